package handlers

import (
	"context"
	"database/sql"
	"time"

	"github.com/01moynul/homewareontap-golang/internal/apperr"
	"github.com/01moynul/homewareontap-golang/internal/database"
	"go.uber.org/zap"
)

// ProcessOverdueOrders cancels pending orders older than OrderPendingTTL and
// puts their stock back. Each order is handled in its own transaction so one
// failure does not hold up the rest. It returns the number cancelled.
func (h *Handlers) ProcessOverdueOrders(ctx context.Context) (int, error) {
	cutoff := h.Now().Add(-h.OrderPendingTTL)

	type overdue struct{ orderID, userID int64 }
	var orders []overdue

	rows, err := h.DB.QueryContext(ctx,
		"SELECT id, user_id FROM orders WHERE status = 'pending' AND created_at < ? ORDER BY id", cutoff)
	if err != nil {
		return 0, apperr.Storage("worker.overdue", err)
	}
	for rows.Next() {
		var o overdue
		if err := rows.Scan(&o.orderID, &o.userID); err != nil {
			rows.Close()
			return 0, apperr.Storage("worker.overdue.scan", err)
		}
		orders = append(orders, o)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, apperr.Storage("worker.overdue.rows", err)
	}

	cancelled := 0
	for _, o := range orders {
		err := database.WithTx(ctx, h.DB, nil, func(tx *sql.Tx) error {
			return h.cancelOrder(ctx, tx, o.orderID, o.userID, "Your order %s was cancelled because payment was not received in time.")
		})
		switch {
		case err == nil:
			cancelled++
		case apperr.Is(err, apperr.KindConflict):
			// Paid or cancelled since the scan.
		default:
			h.Log.Error("failed to cancel overdue order", zap.Int64("order_id", o.orderID), zap.Error(err))
		}
	}

	if cancelled > 0 {
		h.Log.Info("cancelled overdue orders", zap.Int("count", cancelled), zap.Time("cutoff", cutoff))
	}
	return cancelled, nil
}

// RunWorker calls ProcessOverdueOrders every interval until ctx is done.
func (h *Handlers) RunWorker(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	h.Log.Info("background worker started", zap.Duration("interval", interval), zap.Duration("pending_ttl", h.OrderPendingTTL))
	for {
		select {
		case <-ctx.Done():
			h.Log.Info("background worker stopped")
			return
		case <-ticker.C:
			if _, err := h.ProcessOverdueOrders(ctx); err != nil {
				h.Log.Error("overdue order sweep failed", zap.Error(err))
			}
		}
	}
}
