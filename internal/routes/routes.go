package routes

import (
	"net/http"
	"time"

	"github.com/01moynul/homewareontap-golang/internal/config"
	"github.com/01moynul/homewareontap-golang/internal/handlers"
	"github.com/01moynul/homewareontap-golang/internal/middleware"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// corsConfig allows the storefront pages to call the API with a bearer token.
func corsConfig(origins []string) cors.Config {
	return cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Requested-With", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
}

// SetupRouter builds the engine with every route group.
func SetupRouter(h *handlers.Handlers, cfg *config.Config, log *zap.Logger) *gin.Engine {
	router := gin.New()

	// CORS first so preflight requests never reach the auth gate.
	router.Use(
		cors.New(corsConfig(cfg.CORSOrigins)),
		middleware.RequestID(),
		middleware.Logger(log),
		middleware.Recovery(log),
	)

	loginLimiter := middleware.NewRateLimiter(cfg.LoginRatePerMinute)
	couponLimiter := middleware.NewRateLimiter(cfg.LoginRatePerMinute)

	v1 := router.Group("/v1")
	{
		// --- Public Routes ---
		v1.GET("/ping", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"message": "pong!"})
		})
		v1.POST("/register", loginLimiter.Middleware(), h.Register)
		v1.POST("/login", loginLimiter.Middleware(), h.Login)
		v1.GET("/categories", h.GetCategories)

		// Product pages are public; a token only personalises them.
		products := v1.Group("/products")
		products.Use(middleware.OptionalAuth(h.Tokens))
		{
			products.GET("/:slug", h.GetProductDetail)
			products.GET("/:slug/reviews", h.GetProductReviews)
		}

		// --- Protected Routes (Login Required) ---
		auth := v1.Group("/")
		auth.Use(middleware.AuthMiddleware(h.Tokens))
		{
			// Account
			auth.GET("/account/dashboard", h.GetDashboard)
			auth.GET("/account/settings", h.GetSettings)
			auth.PUT("/account/settings", h.UpdateSettings)
			auth.PUT("/account/password", h.ChangePassword)

			// Addresses
			auth.GET("/addresses", h.GetAddresses)
			auth.POST("/addresses", h.CreateAddress)
			auth.GET("/addresses/:id", h.GetAddress)
			auth.PUT("/addresses/:id", h.UpdateAddress)
			auth.DELETE("/addresses/:id", h.DeleteAddress)
			auth.POST("/addresses/:id/default", h.SetDefaultAddress)

			// Cart
			auth.GET("/cart", h.GetCart)
			auth.DELETE("/cart", h.ClearCart)
			auth.GET("/cart/count", h.GetCartCount)
			auth.POST("/cart/items", h.AddToCart)
			auth.PUT("/cart/items/:product_id", h.UpdateCartItem)
			auth.DELETE("/cart/items/:product_id", h.DeleteCartItem)
			auth.POST("/cart/coupon", couponLimiter.Middleware(), h.ApplyCoupon)
			auth.DELETE("/cart/coupon", h.RemoveCoupon)

			// Orders
			auth.POST("/orders/checkout", h.Checkout)
			auth.GET("/orders", h.GetMyOrders)
			auth.GET("/orders/:id", h.GetOrderDetails)
			auth.POST("/orders/:id/cancel", h.CancelOrder)

			// Notifications
			auth.GET("/notifications", h.GetMyNotifications)
			auth.GET("/notifications/unread-count", h.GetUnreadNotificationCount)
			auth.PATCH("/notifications/read-all", h.MarkAllNotificationsAsRead)
			auth.PATCH("/notifications/:id/read", h.MarkNotificationAsRead)
			auth.DELETE("/notifications/:id", h.DeleteNotification)

			// Payment methods
			auth.GET("/payment-methods", h.GetPaymentMethods)
			auth.POST("/payment-methods", h.AddPaymentMethod)
			auth.POST("/payment-methods/:id/default", h.SetDefaultPaymentMethod)
			auth.DELETE("/payment-methods/:id", h.DeletePaymentMethod)

			// Reviews
			auth.GET("/reviews", h.GetMyReviews)
			auth.POST("/products/:slug/reviews", h.CreateReview)
			auth.PUT("/reviews/:id", h.UpdateReview)
			auth.DELETE("/reviews/:id", h.DeleteReview)

			// Wishlist
			auth.GET("/wishlist", h.GetWishlist)
			auth.POST("/wishlist/toggle", h.ToggleWishlist)
			auth.DELETE("/wishlist/:product_id", h.RemoveFromWishlist)
		}

		// --- Manager Routes (Login + Manager Role Required) ---
		manager := v1.Group("/manager")
		manager.Use(
			middleware.AuthMiddleware(h.Tokens),
			middleware.RequireRole(middleware.DBRoleLookup(h.DB), log, middleware.RoleManager, middleware.RoleAdministrator),
		)
		{
			manager.GET("/orders", h.GetFulfilmentQueue)
			manager.PATCH("/orders/:id/status", h.UpdateOrderStatus)
		}
	}

	return router
}
