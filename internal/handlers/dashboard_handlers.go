package handlers

import (
	"net/http"

	"github.com/01moynul/homewareontap-golang/internal/apperr"
	"github.com/01moynul/homewareontap-golang/internal/models"
	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
)

//
// --- Customer Dashboard ---
//

// DashboardStats are the counters on the account overview.
type DashboardStats struct {
	OrdersByStatus      map[string]int `json:"orders_by_status"`
	TotalOrders         int            `json:"total_orders"`
	UnreadNotifications int            `json:"unread_notifications"`
	CartCount           int            `json:"cart_count"`
	WishlistCount       int            `json:"wishlist_count"`
}

// GetDashboard returns the account overview.
// GET /v1/account/dashboard
// The queries are independent, so they run concurrently.
func (h *Handlers) GetDashboard(c *gin.Context) {
	userID := currentUser(c)
	g, ctx := errgroup.WithContext(c.Request.Context())

	var user *models.User
	var recent []models.Order
	var shipping, billing *models.Address
	stats := DashboardStats{OrdersByStatus: map[string]int{}}

	g.Go(func() error {
		var err error
		user, err = h.getUser(ctx, h.DB, userID)
		return err
	})

	g.Go(func() error {
		var err error
		recent, err = h.listOrders(ctx, userID, "", 5)
		return err
	})

	g.Go(func() error {
		rows, err := h.DB.QueryContext(ctx, "SELECT status, COUNT(*) FROM orders WHERE user_id = ? GROUP BY status", userID)
		if err != nil {
			return apperr.Storage("dashboard.order_counts", err)
		}
		defer rows.Close()
		for rows.Next() {
			var status string
			var n int
			if err := rows.Scan(&status, &n); err != nil {
				return apperr.Storage("dashboard.order_counts.scan", err)
			}
			stats.OrdersByStatus[status] = n
			stats.TotalOrders += n
		}
		return apperr.Storage("dashboard.order_counts.rows", rows.Err())
	})

	g.Go(func() error {
		var err error
		stats.UnreadNotifications, err = h.unreadNotificationCount(ctx, userID)
		return err
	})

	g.Go(func() error {
		var err error
		stats.CartCount, err = h.cartCount(ctx, userID)
		return err
	})

	g.Go(func() error {
		var err error
		stats.WishlistCount, err = h.wishlistCount(ctx, userID)
		return err
	})

	g.Go(func() error {
		var err error
		shipping, billing, err = h.Addresses.Defaults(ctx, userID)
		return err
	})

	if err := g.Wait(); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user":          user,
		"recent_orders": recent,
		"stats":         stats,
		"default_addresses": gin.H{
			"shipping": shipping,
			"billing":  billing,
		},
	})
}
