package handlers

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/01moynul/homewareontap-golang/internal/apperr"
	"github.com/01moynul/homewareontap-golang/internal/database"
	"github.com/01moynul/homewareontap-golang/internal/models"
	"github.com/gin-gonic/gin"
)

//
// --- Product Reviews ---
//

const reviewPageSize = 10

// listProductReviews returns a page of a product's reviews, newest first.
// Reviewers are shown as "First L.".
func (h *Handlers) listProductReviews(ctx context.Context, productID int64, limit, offset int) ([]models.Review, error) {
	query := `
		SELECT r.id, r.user_id, r.product_id, r.rating, r.title, r.comment, r.created_at, r.updated_at,
			CONCAT(u.first_name, ' ', LEFT(u.last_name, 1), '.')
		FROM reviews r
		JOIN users u ON u.id = r.user_id
		WHERE r.product_id = ?
		ORDER BY r.created_at DESC, r.id DESC
		LIMIT ? OFFSET ?`

	rows, err := h.DB.QueryContext(ctx, query, productID, limit, offset)
	if err != nil {
		return nil, apperr.Storage("review.list", err)
	}
	defer rows.Close()

	reviews := []models.Review{}
	for rows.Next() {
		var r models.Review
		if err := rows.Scan(&r.ID, &r.UserID, &r.ProductID, &r.Rating, &r.Title, &r.Comment,
			&r.CreatedAt, &r.UpdatedAt, &r.ReviewerName); err != nil {
			return nil, apperr.Storage("review.list.scan", err)
		}
		reviews = append(reviews, r)
	}
	return reviews, apperr.Storage("review.list.rows", rows.Err())
}

// GetProductReviews is the handler for GET /v1/products/:slug/reviews?page=
func (h *Handlers) GetProductReviews(c *gin.Context) {
	ctx := c.Request.Context()

	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}

	p, _, err := findProduct(ctx, h.DB, c.Param("slug"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	rating, err := h.ratingSummary(ctx, p.ID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	reviews, err := h.listProductReviews(ctx, p.ID, reviewPageSize, (page-1)*reviewPageSize)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"reviews": reviews,
		"rating":  rating,
		"page":    page,
		"pages":   (rating.Count + reviewPageSize - 1) / reviewPageSize,
	})
}

// GetMyReviews is the handler for GET /v1/reviews
func (h *Handlers) GetMyReviews(c *gin.Context) {
	query := `
		SELECT r.id, r.user_id, r.product_id, r.rating, r.title, r.comment, r.created_at, r.updated_at,
			p.name, p.slug
		FROM reviews r
		JOIN products p ON p.id = r.product_id
		WHERE r.user_id = ?
		ORDER BY r.created_at DESC`

	rows, err := h.DB.QueryContext(c.Request.Context(), query, currentUser(c))
	if err != nil {
		h.respondError(c, apperr.Storage("review.mine", err))
		return
	}
	defer rows.Close()

	reviews := []models.Review{}
	for rows.Next() {
		var r models.Review
		if err := rows.Scan(&r.ID, &r.UserID, &r.ProductID, &r.Rating, &r.Title, &r.Comment,
			&r.CreatedAt, &r.UpdatedAt, &r.ProductName, &r.ProductSlug); err != nil {
			h.respondError(c, apperr.Storage("review.mine.scan", err))
			return
		}
		reviews = append(reviews, r)
	}
	if err := rows.Err(); err != nil {
		h.respondError(c, apperr.Storage("review.mine.rows", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"reviews": reviews})
}

// ReviewInput is the review form.
type ReviewInput struct {
	Rating  int    `json:"rating" binding:"required,min=1,max=5"`
	Title   string `json:"title" binding:"max=100"`
	Comment string `json:"comment" binding:"required,max=2000"`
}

// CreateReview is the handler for POST /v1/products/:slug/reviews
// Only customers with a delivered order containing the product may review
// it, once.
func (h *Handlers) CreateReview(c *gin.Context) {
	userID := currentUser(c)
	ctx := c.Request.Context()

	var input ReviewInput
	if err := bindJSON(c, &input); err != nil {
		h.respondError(c, err)
		return
	}

	var review models.Review
	err := database.WithTx(ctx, h.DB, nil, func(tx *sql.Tx) error {
		p, _, err := findProduct(ctx, tx, c.Param("slug"))
		if err != nil {
			return err
		}

		purchaseQuery := `
			SELECT EXISTS(
				SELECT 1 FROM order_items oi
				JOIN orders o ON o.id = oi.order_id
				WHERE o.user_id = ? AND oi.product_id = ? AND o.status = ?)`
		var purchased bool
		if err := tx.QueryRowContext(ctx, purchaseQuery, userID, p.ID, models.OrderDelivered).Scan(&purchased); err != nil {
			return apperr.Storage("review.create.purchase", err)
		}
		if !purchased {
			return apperr.Validation("product", "You can only review products from your delivered orders")
		}

		now := h.Now()
		review = models.Review{
			UserID:      userID,
			ProductID:   p.ID,
			Rating:      input.Rating,
			Title:       strings.TrimSpace(input.Title),
			Comment:     strings.TrimSpace(input.Comment),
			CreatedAt:   now,
			UpdatedAt:   now,
			ProductName: p.Name,
			ProductSlug: p.Slug,
		}

		query := `
			INSERT INTO reviews (user_id, product_id, rating, title, comment, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`
		result, err := tx.ExecContext(ctx, query,
			review.UserID, review.ProductID, review.Rating, review.Title, review.Comment, review.CreatedAt, review.UpdatedAt)
		if err != nil {
			if database.IsDuplicateEntry(err) {
				return apperr.Conflict("You have already reviewed this product")
			}
			return apperr.Storage("review.create", err)
		}
		if review.ID, err = result.LastInsertId(); err != nil {
			return apperr.Storage("review.create.id", err)
		}

		return h.AddNotification(ctx, tx, userID, models.NotificationReview,
			fmt.Sprintf("Thanks for reviewing %s.", p.Name), "/products/"+p.Slug)
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Review submitted", "review": review})
}

// UpdateReviewInput carries the fields to change. Nil fields are kept.
type UpdateReviewInput struct {
	Rating  *int    `json:"rating" binding:"omitempty,min=1,max=5"`
	Title   *string `json:"title" binding:"omitempty,max=100"`
	Comment *string `json:"comment" binding:"omitempty,min=1,max=2000"`
}

// UpdateReview is the handler for PUT /v1/reviews/:id
func (h *Handlers) UpdateReview(c *gin.Context) {
	userID := currentUser(c)
	ctx := c.Request.Context()

	id, err := paramID(c, "id", "review")
	if err != nil {
		h.respondError(c, err)
		return
	}
	var input UpdateReviewInput
	if err := bindJSON(c, &input); err != nil {
		h.respondError(c, err)
		return
	}

	err = database.WithTx(ctx, h.DB, nil, func(tx *sql.Tx) error {
		var r models.Review
		err := tx.QueryRowContext(ctx,
			"SELECT rating, title, comment FROM reviews WHERE id = ? AND user_id = ? FOR UPDATE", id, userID).
			Scan(&r.Rating, &r.Title, &r.Comment)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperr.NotFound("review")
			}
			return apperr.Storage("review.update.lock", err)
		}

		if input.Rating != nil {
			r.Rating = *input.Rating
		}
		if input.Title != nil {
			r.Title = strings.TrimSpace(*input.Title)
		}
		if input.Comment != nil {
			r.Comment = strings.TrimSpace(*input.Comment)
		}
		if r.Comment == "" {
			return apperr.Validation("comment", "comment is required")
		}

		_, err = tx.ExecContext(ctx,
			"UPDATE reviews SET rating = ?, title = ?, comment = ?, updated_at = ? WHERE id = ? AND user_id = ?",
			r.Rating, r.Title, r.Comment, h.Now(), id, userID)
		return apperr.Storage("review.update", err)
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Review updated"})
}

// DeleteReview is the handler for DELETE /v1/reviews/:id
func (h *Handlers) DeleteReview(c *gin.Context) {
	id, err := paramID(c, "id", "review")
	if err != nil {
		h.respondError(c, err)
		return
	}

	result, err := h.DB.ExecContext(c.Request.Context(),
		"DELETE FROM reviews WHERE id = ? AND user_id = ?", id, currentUser(c))
	if err != nil {
		h.respondError(c, apperr.Storage("review.delete", err))
		return
	}
	if n, _ := result.RowsAffected(); n == 0 {
		h.respondError(c, apperr.NotFound("review"))
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Review deleted"})
}
