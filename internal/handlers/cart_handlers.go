package handlers

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/01moynul/homewareontap-golang/internal/apperr"
	"github.com/01moynul/homewareontap-golang/internal/database"
	"github.com/01moynul/homewareontap-golang/internal/models"
	"github.com/01moynul/homewareontap-golang/internal/pricing"
	"github.com/gin-gonic/gin"
)

//
// --- Cart Handlers ---
//

// firstImage pulls the first entry of the products.images JSON array.
const firstImage = `COALESCE(JSON_UNQUOTE(JSON_EXTRACT(p.images, '$[0]')), '')`

// cartState is a cart as read from storage. ID is 0 when the user has no cart yet.
type cartState struct {
	ID         int64
	CouponCode string
	Lines      []models.CartLine
}

// Count is the number of units in the cart (the header badge).
func (s cartState) Count() int {
	n := 0
	for _, l := range s.Lines {
		n += l.Quantity
	}
	return n
}

// loadCart reads the user's cart and its lines. With lock set, the cart row,
// its items and the joined products are locked for the rest of the transaction.
func loadCart(ctx context.Context, q database.Querier, userID int64, lock bool) (cartState, error) {
	var state cartState
	forUpdate := ""
	if lock {
		forUpdate = " FOR UPDATE"
	}

	var coupon sql.NullString
	err := q.QueryRowContext(ctx, "SELECT id, coupon_code FROM carts WHERE user_id = ?"+forUpdate, userID).
		Scan(&state.ID, &coupon)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return cartState{}, nil
		}
		return cartState{}, apperr.Storage("cart.load", err)
	}
	state.CouponCode = coupon.String

	query := `
		SELECT ci.product_id, p.name, p.slug, ` + firstImage + `, p.price, ci.quantity, p.stock_quantity
		FROM cart_items ci
		JOIN products p ON ci.product_id = p.id
		WHERE ci.cart_id = ? AND p.status = 'active'
		ORDER BY ci.created_at, ci.product_id` + forUpdate

	rows, err := q.QueryContext(ctx, query, state.ID)
	if err != nil {
		return cartState{}, apperr.Storage("cart.lines", err)
	}
	defer rows.Close()

	state.Lines = []models.CartLine{}
	for rows.Next() {
		var l models.CartLine
		if err := rows.Scan(&l.ProductID, &l.Name, &l.Slug, &l.ImageURL, &l.UnitPrice, &l.Quantity, &l.StockQuantity); err != nil {
			return cartState{}, apperr.Storage("cart.lines.scan", err)
		}
		state.Lines = append(state.Lines, l)
	}
	if err := rows.Err(); err != nil {
		return cartState{}, apperr.Storage("cart.lines.rows", err)
	}
	return state, nil
}

// getOrCreateCartID finds a user's cart or creates one. Call it inside a transaction.
func (h *Handlers) getOrCreateCartID(ctx context.Context, tx *sql.Tx, userID int64) (int64, error) {
	var cartID int64

	err := tx.QueryRowContext(ctx, "SELECT id FROM carts WHERE user_id = ? FOR UPDATE", userID).Scan(&cartID)
	if err == nil {
		return cartID, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, apperr.Storage("cart.find", err)
	}

	now := h.Now()
	result, err := tx.ExecContext(ctx, "INSERT INTO carts (user_id, created_at, updated_at) VALUES (?, ?, ?)", userID, now, now)
	if err != nil {
		return 0, apperr.Storage("cart.create", err)
	}
	cartID, err = result.LastInsertId()
	if err != nil {
		return 0, apperr.Storage("cart.create.id", err)
	}
	return cartID, nil
}

// quote prices the cart with its stored coupon. An invalid stored coupon is
// reported through couponErr and priced as no coupon.
func (h *Handlers) quote(ctx context.Context, state cartState) (summary models.PricingResult, coupon *models.Coupon, couponErr error, err error) {
	summary, coupon, err = h.Pricing.Quote(ctx, state.Lines, state.CouponCode, h.Coupons)
	if apperr.Is(err, apperr.KindCouponNotFound) {
		return summary, nil, err, nil
	}
	return summary, coupon, nil, err
}

// checkQuantity enforces quantity <= min(stock, MaxLineQuantity).
func checkQuantity(name string, quantity, stock int) error {
	limit := models.CartLine{StockQuantity: stock}.MaxQuantity()
	switch {
	case limit <= 0:
		return apperr.Conflict(fmt.Sprintf("%s is out of stock", name))
	case quantity > limit:
		return apperr.Conflict(fmt.Sprintf("Only %d of %s can be added to your cart", limit, name))
	}
	return nil
}

// respondCart answers a successful cart mutation with the fresh summary.
func (h *Handlers) respondCart(c *gin.Context, status int, message string) {
	ctx := c.Request.Context()
	state, err := loadCart(ctx, h.DB, currentUser(c), false)
	if err != nil {
		h.respondFailure(c, err)
		return
	}
	summary, _, _, err := h.quote(ctx, state)
	if err != nil {
		h.respondFailure(c, err)
		return
	}
	c.JSON(status, gin.H{
		"success":    true,
		"message":    message,
		"summary":    summary,
		"cart_count": state.Count(),
	})
}

// CartItemResponse is one line of GET /v1/cart.
type CartItemResponse struct {
	models.CartLine
	LineTotal   string `json:"line_total"`
	InStock     bool   `json:"in_stock"`
	MaxQuantity int    `json:"max_quantity"`
}

// GetCart is the handler for GET /v1/cart
func (h *Handlers) GetCart(c *gin.Context) {
	ctx := c.Request.Context()

	state, err := loadCart(ctx, h.DB, currentUser(c), false)
	if err != nil {
		h.respondFailure(c, err)
		return
	}
	summary, coupon, couponErr, err := h.quote(ctx, state)
	if err != nil {
		h.respondFailure(c, err)
		return
	}

	items := make([]CartItemResponse, 0, len(state.Lines))
	warnings := []string{}
	for _, l := range state.Lines {
		items = append(items, CartItemResponse{
			CartLine:    l,
			LineTotal:   l.LineTotal().StringFixed(2),
			InStock:     l.InStock(),
			MaxQuantity: l.MaxQuantity(),
		})
		if !l.InStock() {
			warnings = append(warnings, fmt.Sprintf("Only %d of %s left in stock", max(l.StockQuantity, 0), l.Name))
		}
	}

	body := gin.H{
		"success":    true,
		"items":      items,
		"summary":    summary,
		"cart_count": state.Count(),
		"warnings":   warnings,
	}
	if coupon != nil {
		body["coupon_code"] = coupon.Code
	}
	if couponErr != nil {
		body["coupon_message"] = apperr.Message(couponErr)
	}
	c.JSON(http.StatusOK, body)
}

// AddToCartInput defines the JSON for adding an item to the cart.
type AddToCartInput struct {
	ProductID int64 `json:"product_id" binding:"required,gt=0"`
	Quantity  int   `json:"quantity" binding:"required,gt=0"`
}

// AddToCart is the handler for POST /v1/cart/items
// Adding a product already in the cart increases its quantity.
func (h *Handlers) AddToCart(c *gin.Context) {
	userID := currentUser(c)
	ctx := c.Request.Context()

	var input AddToCartInput
	if err := bindJSON(c, &input); err != nil {
		h.respondFailure(c, err)
		return
	}

	err := database.WithTx(ctx, h.DB, nil, func(tx *sql.Tx) error {
		cartID, err := h.getOrCreateCartID(ctx, tx, userID)
		if err != nil {
			return err
		}

		var name string
		var stock int
		err = tx.QueryRowContext(ctx,
			"SELECT name, stock_quantity FROM products WHERE id = ? AND status = 'active' FOR UPDATE",
			input.ProductID).Scan(&name, &stock)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperr.NotFound("product")
			}
			return apperr.Storage("cart.add.product", err)
		}

		var existing int
		err = tx.QueryRowContext(ctx,
			"SELECT quantity FROM cart_items WHERE cart_id = ? AND product_id = ?",
			cartID, input.ProductID).Scan(&existing)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return apperr.Storage("cart.add.existing", err)
		}

		quantity := existing + input.Quantity
		if err := checkQuantity(name, quantity, stock); err != nil {
			return err
		}

		now := h.Now()
		_, err = tx.ExecContext(ctx, `
			INSERT INTO cart_items (cart_id, product_id, quantity, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?)
			ON DUPLICATE KEY UPDATE
				quantity = VALUES(quantity),
				updated_at = VALUES(updated_at)`,
			cartID, input.ProductID, quantity, now, now)
		return apperr.Storage("cart.add", err)
	})
	if err != nil {
		h.respondFailure(c, err)
		return
	}

	h.respondCart(c, http.StatusCreated, "Item added to cart")
}

// UpdateCartItemInput defines the JSON for updating an item's quantity.
type UpdateCartItemInput struct {
	// 0 removes the line.
	Quantity *int `json:"quantity" binding:"required,gte=0"`
}

// UpdateCartItem is the handler for PUT /v1/cart/items/:product_id
func (h *Handlers) UpdateCartItem(c *gin.Context) {
	userID := currentUser(c)
	ctx := c.Request.Context()

	productID, err := paramID(c, "product_id", "cart item")
	if err != nil {
		h.respondFailure(c, err)
		return
	}
	var input UpdateCartItemInput
	if err := bindJSON(c, &input); err != nil {
		h.respondFailure(c, err)
		return
	}

	message := "Cart updated"
	err = database.WithTx(ctx, h.DB, nil, func(tx *sql.Tx) error {
		var cartID int64
		var name string
		var stock int
		err := tx.QueryRowContext(ctx, `
			SELECT ci.cart_id, p.name, p.stock_quantity
			FROM cart_items ci
			JOIN carts ca ON ca.id = ci.cart_id
			JOIN products p ON p.id = ci.product_id
			WHERE ca.user_id = ? AND ci.product_id = ?
			FOR UPDATE`, userID, productID).Scan(&cartID, &name, &stock)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperr.NotFound("cart item")
			}
			return apperr.Storage("cart.update.find", err)
		}

		if *input.Quantity == 0 {
			message = "Item removed from cart"
			_, err := tx.ExecContext(ctx, "DELETE FROM cart_items WHERE cart_id = ? AND product_id = ?", cartID, productID)
			return apperr.Storage("cart.update.remove", err)
		}

		if err := checkQuantity(name, *input.Quantity, stock); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			"UPDATE cart_items SET quantity = ?, updated_at = ? WHERE cart_id = ? AND product_id = ?",
			*input.Quantity, h.Now(), cartID, productID)
		return apperr.Storage("cart.update", err)
	})
	if err != nil {
		h.respondFailure(c, err)
		return
	}

	h.respondCart(c, http.StatusOK, message)
}

// DeleteCartItem is the handler for DELETE /v1/cart/items/:product_id
func (h *Handlers) DeleteCartItem(c *gin.Context) {
	userID := currentUser(c)

	productID, err := paramID(c, "product_id", "cart item")
	if err != nil {
		h.respondFailure(c, err)
		return
	}

	// The join scopes the delete to the caller's own cart.
	query := `
		DELETE ci FROM cart_items ci
		JOIN carts ca ON ca.id = ci.cart_id
		WHERE ca.user_id = ? AND ci.product_id = ?`
	result, err := h.DB.ExecContext(c.Request.Context(), query, userID, productID)
	if err != nil {
		h.respondFailure(c, apperr.Storage("cart.remove", err))
		return
	}
	if rowsAffected, _ := result.RowsAffected(); rowsAffected == 0 {
		h.respondFailure(c, apperr.NotFound("cart item"))
		return
	}

	h.respondCart(c, http.StatusOK, "Item removed from cart")
}

// ClearCart is the handler for DELETE /v1/cart
func (h *Handlers) ClearCart(c *gin.Context) {
	userID := currentUser(c)
	ctx := c.Request.Context()

	err := database.WithTx(ctx, h.DB, nil, func(tx *sql.Tx) error {
		return clearCart(ctx, tx, userID, h.Now())
	})
	if err != nil {
		h.respondFailure(c, err)
		return
	}

	h.respondCart(c, http.StatusOK, "Cart cleared")
}

// clearCart empties the user's cart and drops its coupon.
func clearCart(ctx context.Context, q database.Querier, userID int64, now time.Time) error {
	query := `
		DELETE ci FROM cart_items ci
		JOIN carts ca ON ca.id = ci.cart_id
		WHERE ca.user_id = ?`
	if _, err := q.ExecContext(ctx, query, userID); err != nil {
		return apperr.Storage("cart.clear.items", err)
	}
	_, err := q.ExecContext(ctx, "UPDATE carts SET coupon_code = NULL, updated_at = ? WHERE user_id = ?", now, userID)
	return apperr.Storage("cart.clear.coupon", err)
}

// ApplyCouponInput is the coupon form on the cart page.
type ApplyCouponInput struct {
	CouponCode string `json:"coupon_code" binding:"required,max=50"`
}

// ApplyCoupon is the handler for POST /v1/cart/coupon
// An unknown code is not an error response: the page shows the message next
// to the unchanged summary.
func (h *Handlers) ApplyCoupon(c *gin.Context) {
	userID := currentUser(c)
	ctx := c.Request.Context()

	var input ApplyCouponInput
	if err := bindJSON(c, &input); err != nil {
		h.respondFailure(c, err)
		return
	}
	code := pricing.NormalizeCode(input.CouponCode)
	if code == "" {
		h.respondFailure(c, apperr.Validation("coupon_code", "Please enter a coupon code"))
		return
	}

	state, err := loadCart(ctx, h.DB, userID, false)
	if err != nil {
		h.respondFailure(c, err)
		return
	}
	if len(state.Lines) == 0 {
		h.respondFailure(c, apperr.Validation("coupon_code", "Your cart is empty"))
		return
	}

	summary, coupon, err := h.Pricing.Quote(ctx, state.Lines, code, h.Coupons)
	if apperr.Is(err, apperr.KindCouponNotFound) {
		c.JSON(http.StatusOK, gin.H{
			"success":    false,
			"message":    apperr.Message(err),
			"summary":    summary,
			"cart_count": state.Count(),
		})
		return
	}
	if err != nil {
		h.respondFailure(c, err)
		return
	}

	_, err = h.DB.ExecContext(ctx, "UPDATE carts SET coupon_code = ?, updated_at = ? WHERE id = ?", coupon.Code, h.Now(), state.ID)
	if err != nil {
		h.respondFailure(c, apperr.Storage("cart.coupon.apply", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"message":    fmt.Sprintf("Coupon %s applied. You saved R%s", coupon.Code, summary.DiscountAmount.StringFixed(2)),
		"summary":    summary,
		"cart_count": state.Count(),
	})
}

// RemoveCoupon is the handler for DELETE /v1/cart/coupon
func (h *Handlers) RemoveCoupon(c *gin.Context) {
	_, err := h.DB.ExecContext(c.Request.Context(),
		"UPDATE carts SET coupon_code = NULL, updated_at = ? WHERE user_id = ?", h.Now(), currentUser(c))
	if err != nil {
		h.respondFailure(c, apperr.Storage("cart.coupon.remove", err))
		return
	}
	h.respondCart(c, http.StatusOK, "Coupon removed")
}

func (h *Handlers) cartCount(ctx context.Context, userID int64) (int, error) {
	query := `
		SELECT COALESCE(SUM(ci.quantity), 0)
		FROM cart_items ci
		JOIN carts ca ON ca.id = ci.cart_id
		JOIN products p ON p.id = ci.product_id
		WHERE ca.user_id = ? AND p.status = 'active'`

	var n int
	err := h.DB.QueryRowContext(ctx, query, userID).Scan(&n)
	return n, apperr.Storage("cart.count", err)
}

// GetCartCount is the handler for GET /v1/cart/count
func (h *Handlers) GetCartCount(c *gin.Context) {
	n, err := h.cartCount(c.Request.Context(), currentUser(c))
	if err != nil {
		h.respondFailure(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "cart_count": n})
}
