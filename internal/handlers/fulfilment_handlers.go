package handlers

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/01moynul/homewareontap-golang/internal/apperr"
	"github.com/01moynul/homewareontap-golang/internal/database"
	"github.com/01moynul/homewareontap-golang/internal/middleware"
	"github.com/01moynul/homewareontap-golang/internal/models"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

//
// --- Manager: Order Fulfilment Handlers ---
//

const fulfilmentQueueLimit = 100

// GetFulfilmentQueue is the handler for GET /v1/manager/orders?status=
// Without a status it returns every pending and processing order, oldest first.
func (h *Handlers) GetFulfilmentQueue(c *gin.Context) {
	statuses := []any{models.OrderPending, models.OrderProcessing}
	if s := c.Query("status"); s != "" {
		if !orderStatuses[s] {
			h.respondError(c, apperr.Validation("status", "unknown order status"))
			return
		}
		statuses = []any{s}
	}

	query := "SELECT " + orderColumns + " FROM orders o WHERE o.status IN (?" + strings.Repeat(", ?", len(statuses)-1) + ")" +
		" ORDER BY o.created_at ASC, o.id ASC LIMIT ?"
	args := append(statuses, fulfilmentQueueLimit)

	rows, err := h.DB.QueryContext(c.Request.Context(), query, args...)
	if err != nil {
		h.respondError(c, apperr.Storage("fulfilment.queue", err))
		return
	}
	defer rows.Close()

	orders := []models.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			h.respondError(c, apperr.Storage("fulfilment.queue.scan", err))
			return
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		h.respondError(c, apperr.Storage("fulfilment.queue.rows", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

// UpdateOrderStatusInput moves an order along pending -> processing ->
// shipped -> delivered, or cancels it.
type UpdateOrderStatusInput struct {
	Status         string `json:"status" binding:"required,oneof=processing shipped delivered cancelled"`
	TrackingNumber string `json:"tracking_number" binding:"max=100"`
}

// statusMessage is the customer notification for an order entering status.
func statusMessage(status, reference, tracking string) string {
	switch status {
	case models.OrderProcessing:
		return fmt.Sprintf("Payment for order %s was received. We are preparing it now.", reference)
	case models.OrderShipped:
		return fmt.Sprintf("Your order %s has shipped. Tracking number: %s.", reference, tracking)
	default:
		return fmt.Sprintf("Your order %s was delivered. Let us know what you think by reviewing your items.", reference)
	}
}

// UpdateOrderStatus is the handler for PATCH /v1/manager/orders/:id/status
func (h *Handlers) UpdateOrderStatus(c *gin.Context) {
	ctx := c.Request.Context()

	orderID, err := paramID(c, "id", "order")
	if err != nil {
		h.respondError(c, err)
		return
	}
	var input UpdateOrderStatusInput
	if err := bindJSON(c, &input); err != nil {
		h.respondError(c, err)
		return
	}
	tracking := strings.TrimSpace(input.TrackingNumber)

	var from string
	err = database.WithTx(ctx, h.DB, nil, func(tx *sql.Tx) error {
		var userID int64
		var reference string
		err := tx.QueryRowContext(ctx,
			"SELECT user_id, status, reference FROM orders WHERE id = ? FOR UPDATE", orderID).
			Scan(&userID, &from, &reference)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperr.NotFound("order")
			}
			return apperr.Storage("fulfilment.lock", err)
		}

		if input.Status == models.OrderCancelled {
			return h.cancelOrder(ctx, tx, orderID, userID, "Your order %s was cancelled by the store.")
		}
		if !models.CanTransition(from, input.Status) {
			return apperr.Conflict(fmt.Sprintf("An order that is %s cannot be marked %s", from, input.Status))
		}
		if input.Status == models.OrderShipped && tracking == "" {
			return apperr.Validation("tracking_number", "A tracking number is required to ship an order")
		}

		var trackingArg sql.NullString
		if tracking != "" {
			trackingArg = sql.NullString{String: tracking, Valid: true}
		}
		_, err = tx.ExecContext(ctx,
			"UPDATE orders SET status = ?, tracking_number = COALESCE(?, tracking_number), updated_at = ? WHERE id = ?",
			input.Status, trackingArg, h.Now(), orderID)
		if err != nil {
			return apperr.Storage("fulfilment.update", err)
		}

		return h.AddNotification(ctx, tx, userID, models.NotificationOrder,
			statusMessage(input.Status, reference, tracking), fmt.Sprintf("/account/orders/%d", orderID))
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	h.Log.Info("order status changed",
		zap.Int64("order_id", orderID),
		zap.String("from", from),
		zap.String("to", input.Status),
		zap.Int64("manager_id", currentUser(c)),
		zap.String("manager_role", middleware.Role(c)),
	)

	c.JSON(http.StatusOK, gin.H{"message": "Order updated", "status": input.Status})
}
