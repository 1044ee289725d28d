package handlers

import (
	"context"
	"database/sql"
	"errors"
	"net/http"

	"github.com/01moynul/homewareontap-golang/internal/apperr"
	"github.com/01moynul/homewareontap-golang/internal/database"
	"github.com/01moynul/homewareontap-golang/internal/models"
	"github.com/gin-gonic/gin"
)

// Wishlist toggle outcomes.
const (
	wishlistAdded   = "added"
	wishlistRemoved = "removed"
)

func (h *Handlers) wishlistCount(ctx context.Context, userID int64) (int, error) {
	var n int
	err := h.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM wishlist WHERE user_id = ?", userID).Scan(&n)
	return n, apperr.Storage("wishlist.count", err)
}

// GetWishlist is the handler for GET /v1/wishlist
func (h *Handlers) GetWishlist(c *gin.Context) {
	query := `
		SELECT w.user_id, w.product_id, p.name, p.slug, p.price, ` + firstImage + `, p.stock_quantity > 0, w.created_at
		FROM wishlist w
		JOIN products p ON p.id = w.product_id
		WHERE w.user_id = ? AND p.status = 'active'
		ORDER BY w.created_at DESC`

	rows, err := h.DB.QueryContext(c.Request.Context(), query, currentUser(c))
	if err != nil {
		h.respondError(c, apperr.Storage("wishlist.list", err))
		return
	}
	defer rows.Close()

	items := []models.WishlistItem{}
	for rows.Next() {
		var w models.WishlistItem
		if err := rows.Scan(&w.UserID, &w.ProductID, &w.Name, &w.Slug, &w.Price, &w.ImageURL, &w.InStock, &w.CreatedAt); err != nil {
			h.respondError(c, apperr.Storage("wishlist.list.scan", err))
			return
		}
		items = append(items, w)
	}
	if err := rows.Err(); err != nil {
		h.respondError(c, apperr.Storage("wishlist.list.rows", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": items, "count": len(items)})
}

// ToggleWishlistInput is posted by the heart icon.
type ToggleWishlistInput struct {
	ProductID int64 `json:"product_id" binding:"required,gt=0"`
}

// ToggleWishlist is the handler for POST /v1/wishlist/toggle
// It removes the product if present and adds it otherwise.
func (h *Handlers) ToggleWishlist(c *gin.Context) {
	userID := currentUser(c)
	ctx := c.Request.Context()

	var input ToggleWishlistInput
	if err := bindJSON(c, &input); err != nil {
		h.respondFailure(c, err)
		return
	}

	action := wishlistAdded
	err := database.WithTx(ctx, h.DB, nil, func(tx *sql.Tx) error {
		var one int
		err := tx.QueryRowContext(ctx, "SELECT 1 FROM products WHERE id = ? AND status = 'active'", input.ProductID).Scan(&one)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperr.NotFound("product")
			}
			return apperr.Storage("wishlist.toggle.product", err)
		}

		result, err := tx.ExecContext(ctx, "DELETE FROM wishlist WHERE user_id = ? AND product_id = ?", userID, input.ProductID)
		if err != nil {
			return apperr.Storage("wishlist.toggle.remove", err)
		}
		if n, _ := result.RowsAffected(); n > 0 {
			action = wishlistRemoved
			return nil
		}

		_, err = tx.ExecContext(ctx,
			"INSERT INTO wishlist (user_id, product_id, created_at) VALUES (?, ?, ?)", userID, input.ProductID, h.Now())
		if database.IsDuplicateEntry(err) {
			// A concurrent toggle added it first; the end state is the same.
			return nil
		}
		return apperr.Storage("wishlist.toggle.add", err)
	})
	if err != nil {
		h.respondFailure(c, err)
		return
	}

	message := "Added to your wishlist"
	if action == wishlistRemoved {
		message = "Removed from your wishlist"
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "action": action, "message": message})
}

// RemoveFromWishlist is the handler for DELETE /v1/wishlist/:product_id
func (h *Handlers) RemoveFromWishlist(c *gin.Context) {
	productID, err := paramID(c, "product_id", "wishlist item")
	if err != nil {
		h.respondFailure(c, err)
		return
	}

	result, err := h.DB.ExecContext(c.Request.Context(),
		"DELETE FROM wishlist WHERE user_id = ? AND product_id = ?", currentUser(c), productID)
	if err != nil {
		h.respondFailure(c, apperr.Storage("wishlist.remove", err))
		return
	}
	if n, _ := result.RowsAffected(); n == 0 {
		h.respondFailure(c, apperr.NotFound("wishlist item"))
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "action": wishlistRemoved, "message": "Removed from your wishlist"})
}

func (h *Handlers) inWishlist(ctx context.Context, userID, productID int64) (bool, error) {
	if userID == 0 {
		return false, nil
	}
	var in bool
	err := h.DB.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM wishlist WHERE user_id = ? AND product_id = ?)", userID, productID).Scan(&in)
	return in, apperr.Storage("wishlist.contains", err)
}
