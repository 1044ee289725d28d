package handlers

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/01moynul/homewareontap-golang/internal/apperr"
	"github.com/01moynul/homewareontap-golang/internal/database"
	"github.com/01moynul/homewareontap-golang/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

//
// --- Order Handlers ---
//

// CheckoutInput picks the addresses for the order. Nil ids fall back to the
// customer's default address of that type.
type CheckoutInput struct {
	ShippingAddressID *int64 `json:"shipping_address_id"`
	BillingAddressID  *int64 `json:"billing_address_id"`
}

// newOrderReference returns the customer-facing order number, e.g. HOT-1A2B3C4D.
func newOrderReference() string {
	return "HOT-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

const checkoutAddressColumns = `id, first_name, last_name, phone, street, city, province, postal_code, country`

// resolveAddress returns an address of addrType owned by userID: the explicit
// one when given, otherwise the default. It returns nil when there is no
// default.
func resolveAddress(ctx context.Context, q database.Querier, userID int64, explicit *int64, addrType string) (*models.Address, error) {
	var row *sql.Row
	if explicit != nil {
		row = q.QueryRowContext(ctx,
			"SELECT "+checkoutAddressColumns+" FROM addresses WHERE id = ? AND user_id = ? AND type = ?",
			*explicit, userID, addrType)
	} else {
		row = q.QueryRowContext(ctx,
			"SELECT "+checkoutAddressColumns+" FROM addresses WHERE user_id = ? AND type = ? AND is_default = 1",
			userID, addrType)
	}

	a := models.Address{UserID: userID, Type: addrType}
	err := row.Scan(&a.ID, &a.FirstName, &a.LastName, &a.Phone, &a.Street, &a.City, &a.Province, &a.PostalCode, &a.Country)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.Storage("checkout.address", err)
		}
		if explicit != nil {
			return nil, apperr.NotFound(addrType + " address")
		}
		return nil, nil
	}
	return &a, nil
}

const orderAddressColumns = `order_id, address_id, type, first_name, last_name, phone, street, city,
	province, postal_code, country`

func insertOrderAddress(ctx context.Context, tx *sql.Tx, a models.OrderAddress) error {
	query := "INSERT INTO order_addresses (" + orderAddressColumns + ") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)"
	_, err := tx.ExecContext(ctx, query,
		a.OrderID, a.AddressID, a.Type, a.FirstName, a.LastName, a.Phone, a.Street, a.City,
		a.Province, a.PostalCode, a.Country)
	if err != nil {
		return apperr.Storage("checkout.address.snapshot", err)
	}
	return nil
}

// Checkout is the handler for POST /v1/orders/checkout
// The cart, its products and the chosen addresses are read under lock, the
// order is priced and snapshotted, stock is taken and the cart is emptied,
// all in one transaction.
func (h *Handlers) Checkout(c *gin.Context) {
	userID := currentUser(c)
	ctx := c.Request.Context()

	var input CheckoutInput
	if c.Request.ContentLength != 0 {
		if err := bindJSON(c, &input); err != nil {
			h.respondError(c, err)
			return
		}
	}

	var order models.Order
	err := database.WithTx(ctx, h.DB, nil, func(tx *sql.Tx) error {
		cart, err := loadCart(ctx, tx, userID, true)
		if err != nil {
			return err
		}
		if len(cart.Lines) == 0 {
			return apperr.Validation("cart", "Your cart is empty")
		}
		for _, l := range cart.Lines {
			if !l.InStock() {
				return apperr.Conflict(fmt.Sprintf("Not enough stock for %s", l.Name))
			}
		}

		shipping, err := resolveAddress(ctx, tx, userID, input.ShippingAddressID, models.AddressShipping)
		if err != nil {
			return err
		}
		if shipping == nil {
			return apperr.Validation("shipping_address_id", "Please add a shipping address before checking out")
		}
		billing, err := resolveAddress(ctx, tx, userID, input.BillingAddressID, models.AddressBilling)
		if err != nil {
			return err
		}
		if billing == nil {
			billing = shipping
		}

		// A coupon that lapsed after the cart was priced must not be
		// dropped silently; the customer removes it or picks another.
		summary, coupon, couponErr, err := h.quote(ctx, cart)
		if err != nil {
			return err
		}
		if couponErr != nil {
			return couponErr
		}

		now := h.Now()
		order = models.Order{
			Reference:         newOrderReference(),
			UserID:            userID,
			Status:            models.OrderPending,
			Subtotal:          summary.Subtotal,
			ShippingCost:      summary.ShippingCost,
			TaxAmount:         summary.TaxAmount,
			DiscountAmount:    summary.DiscountAmount,
			GrandTotal:        summary.GrandTotal,
			ShippingAddressID: &shipping.ID,
			BillingAddressID:  &billing.ID,
			ItemCount:         cart.Count(),
			CreatedAt:         now,
			UpdatedAt:         now,
		}
		if coupon != nil {
			order.CouponCode = &coupon.Code
		}

		orderQuery := `
			INSERT INTO orders
			(reference, user_id, status, subtotal, shipping_cost, tax_amount, discount_amount, grand_total,
			 coupon_code, shipping_address_id, billing_address_id, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
		result, err := tx.ExecContext(ctx, orderQuery,
			order.Reference, order.UserID, order.Status,
			order.Subtotal, order.ShippingCost, order.TaxAmount, order.DiscountAmount, order.GrandTotal,
			order.CouponCode, order.ShippingAddressID, order.BillingAddressID, order.CreatedAt, order.UpdatedAt,
		)
		if err != nil {
			return apperr.Storage("checkout.order", err)
		}
		if order.ID, err = result.LastInsertId(); err != nil {
			return apperr.Storage("checkout.order.id", err)
		}

		if err := insertOrderAddress(ctx, tx, models.SnapshotAddress(order.ID, *shipping, models.AddressShipping)); err != nil {
			return err
		}
		if err := insertOrderAddress(ctx, tx, models.SnapshotAddress(order.ID, *billing, models.AddressBilling)); err != nil {
			return err
		}

		itemQuery := `
			INSERT INTO order_items (order_id, product_id, quantity, unit_price, created_at)
			VALUES (?, ?, ?, ?, ?)`
		stockQuery := "UPDATE products SET stock_quantity = stock_quantity - ? WHERE id = ?"

		for _, l := range cart.Lines {
			// Snapshot the price the customer saw.
			if _, err := tx.ExecContext(ctx, itemQuery, order.ID, l.ProductID, l.Quantity, l.UnitPrice, now); err != nil {
				return apperr.Storage("checkout.item", err)
			}
			if _, err := tx.ExecContext(ctx, stockQuery, l.Quantity, l.ProductID); err != nil {
				return apperr.Storage("checkout.stock", err)
			}
		}

		if err := clearCart(ctx, tx, userID, now); err != nil {
			return err
		}

		return h.AddNotification(ctx, tx, userID, models.NotificationOrder,
			fmt.Sprintf("Your order %s has been placed.", order.Reference),
			fmt.Sprintf("/account/orders/%d", order.ID))
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	h.Log.Info("order placed",
		zap.Int64("order_id", order.ID),
		zap.Int64("user_id", userID),
		zap.String("reference", order.Reference),
		zap.String("grand_total", order.GrandTotal.StringFixed(2)),
	)

	c.JSON(http.StatusCreated, gin.H{
		"message": "Order placed successfully",
		"order":   order,
		"summary": order.Pricing(),
	})
}

const orderColumns = `o.id, o.reference, o.user_id, o.status, o.subtotal, o.shipping_cost, o.tax_amount,
	o.discount_amount, o.grand_total, o.coupon_code, o.shipping_address_id, o.billing_address_id,
	o.tracking_number, o.created_at, o.updated_at,
	(SELECT COALESCE(SUM(oi.quantity), 0) FROM order_items oi WHERE oi.order_id = o.id)`

func scanOrder(row interface{ Scan(...any) error }) (models.Order, error) {
	var o models.Order
	err := row.Scan(
		&o.ID, &o.Reference, &o.UserID, &o.Status, &o.Subtotal, &o.ShippingCost, &o.TaxAmount,
		&o.DiscountAmount, &o.GrandTotal, &o.CouponCode, &o.ShippingAddressID, &o.BillingAddressID,
		&o.TrackingNumber, &o.CreatedAt, &o.UpdatedAt, &o.ItemCount,
	)
	return o, err
}

var orderStatuses = map[string]bool{
	models.OrderPending:    true,
	models.OrderProcessing: true,
	models.OrderShipped:    true,
	models.OrderDelivered:  true,
	models.OrderCancelled:  true,
}

// listOrders returns the user's orders, newest first. An empty status means
// all; limit <= 0 means no limit.
func (h *Handlers) listOrders(ctx context.Context, userID int64, status string, limit int) ([]models.Order, error) {
	query := "SELECT " + orderColumns + " FROM orders o WHERE o.user_id = ?"
	args := []any{userID}
	if status != "" {
		query += " AND o.status = ?"
		args = append(args, status)
	}
	query += " ORDER BY o.created_at DESC, o.id DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := h.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperr.Storage("order.list", err)
	}
	defer rows.Close()

	orders := []models.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, apperr.Storage("order.list.scan", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage("order.list.rows", err)
	}
	return orders, nil
}

// GetMyOrders is the handler for GET /v1/orders?status=
func (h *Handlers) GetMyOrders(c *gin.Context) {
	status := c.Query("status")
	if status != "" && !orderStatuses[status] {
		h.respondError(c, apperr.Validation("status", "unknown order status"))
		return
	}

	orders, err := h.listOrders(c.Request.Context(), currentUser(c), status, 0)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

// OrderItemDetail extends the base OrderItem with product info.
type OrderItemDetail struct {
	models.OrderItem
	ProductName string `json:"product_name"`
	ProductSlug string `json:"product_slug"`
	LineTotal   string `json:"line_total"`
}

// GetOrderDetails is the handler for GET /v1/orders/:id
func (h *Handlers) GetOrderDetails(c *gin.Context) {
	userID := currentUser(c)
	ctx := c.Request.Context()

	orderID, err := paramID(c, "id", "order")
	if err != nil {
		h.respondError(c, err)
		return
	}

	o, err := scanOrder(h.DB.QueryRowContext(ctx,
		"SELECT "+orderColumns+" FROM orders o WHERE o.id = ? AND o.user_id = ?", orderID, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			h.respondError(c, apperr.NotFound("order"))
			return
		}
		h.respondError(c, apperr.Storage("order.get", err))
		return
	}

	queryItems := `
		SELECT oi.id, oi.order_id, oi.product_id, oi.quantity, oi.unit_price, oi.created_at, p.name, p.slug
		FROM order_items oi
		JOIN products p ON oi.product_id = p.id
		WHERE oi.order_id = ?
		ORDER BY oi.id`

	rows, err := h.DB.QueryContext(ctx, queryItems, o.ID)
	if err != nil {
		h.respondError(c, apperr.Storage("order.items", err))
		return
	}
	defer rows.Close()

	items := []OrderItemDetail{}
	for rows.Next() {
		var item OrderItemDetail
		if err := rows.Scan(
			&item.ID, &item.OrderID, &item.ProductID, &item.Quantity, &item.UnitPrice, &item.CreatedAt,
			&item.ProductName, &item.ProductSlug,
		); err != nil {
			h.respondError(c, apperr.Storage("order.items.scan", err))
			return
		}
		item.LineTotal = item.OrderItem.LineTotal().StringFixed(2)
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		h.respondError(c, apperr.Storage("order.items.rows", err))
		return
	}

	addresses, err := h.orderAddresses(ctx, o.ID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	// Orders placed before snapshots were kept have no rows; report null.
	body := gin.H{
		"order":            o,
		"items":            items,
		"summary":          o.Pricing(),
		"cancellable":      o.Cancellable(),
		"shipping_address": nil,
		"billing_address":  nil,
	}
	for _, a := range addresses {
		body[a.Type+"_address"] = a
	}

	c.JSON(http.StatusOK, body)
}

// orderAddresses returns the address snapshots taken when the order was placed.
func (h *Handlers) orderAddresses(ctx context.Context, orderID int64) ([]models.OrderAddress, error) {
	rows, err := h.DB.QueryContext(ctx,
		"SELECT "+orderAddressColumns+" FROM order_addresses WHERE order_id = ? ORDER BY type", orderID)
	if err != nil {
		return nil, apperr.Storage("order.addresses", err)
	}
	defer rows.Close()

	addresses := []models.OrderAddress{}
	for rows.Next() {
		var a models.OrderAddress
		if err := rows.Scan(
			&a.OrderID, &a.AddressID, &a.Type, &a.FirstName, &a.LastName, &a.Phone, &a.Street, &a.City,
			&a.Province, &a.PostalCode, &a.Country,
		); err != nil {
			return nil, apperr.Storage("order.addresses.scan", err)
		}
		addresses = append(addresses, a)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage("order.addresses.rows", err)
	}
	return addresses, nil
}

// cancelOrder restocks and cancels a pending order. The order row is locked
// first so checkout, the worker and the customer cannot race on it.
func (h *Handlers) cancelOrder(ctx context.Context, tx *sql.Tx, orderID, userID int64, message string) error {
	var status, reference string
	err := tx.QueryRowContext(ctx,
		"SELECT status, reference FROM orders WHERE id = ? AND user_id = ? FOR UPDATE", orderID, userID).
		Scan(&status, &reference)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.NotFound("order")
		}
		return apperr.Storage("order.cancel.lock", err)
	}
	if status != models.OrderPending {
		return apperr.Conflict("Only pending orders can be cancelled")
	}

	restock := `
		UPDATE products p
		JOIN order_items oi ON oi.product_id = p.id
		SET p.stock_quantity = p.stock_quantity + oi.quantity
		WHERE oi.order_id = ?`
	if _, err := tx.ExecContext(ctx, restock, orderID); err != nil {
		return apperr.Storage("order.cancel.restock", err)
	}

	_, err = tx.ExecContext(ctx, "UPDATE orders SET status = ?, updated_at = ? WHERE id = ?",
		models.OrderCancelled, h.Now(), orderID)
	if err != nil {
		return apperr.Storage("order.cancel", err)
	}

	return h.AddNotification(ctx, tx, userID, models.NotificationOrder,
		fmt.Sprintf(message, reference), fmt.Sprintf("/account/orders/%d", orderID))
}

// CancelOrder is the handler for POST /v1/orders/:id/cancel
func (h *Handlers) CancelOrder(c *gin.Context) {
	userID := currentUser(c)
	ctx := c.Request.Context()

	orderID, err := paramID(c, "id", "order")
	if err != nil {
		h.respondError(c, err)
		return
	}

	err = database.WithTx(ctx, h.DB, nil, func(tx *sql.Tx) error {
		return h.cancelOrder(ctx, tx, orderID, userID, "Your order %s has been cancelled.")
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Order cancelled", "status": models.OrderCancelled})
}
