package handlers

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/01moynul/homewareontap-golang/internal/apperr"
	"github.com/01moynul/homewareontap-golang/internal/database"
	"github.com/01moynul/homewareontap-golang/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/gosimple/slug"
)

const recentReviewLimit = 5

// productKey turns the :slug path segment into a lookup. Numeric segments are
// ids; anything else is normalised the same way slugs are generated, so
// "Ceramic-Mug%20Set" finds "ceramic-mug-set".
func productKey(param string) (column string, value any) {
	if id, err := strconv.ParseInt(param, 10, 64); err == nil && id > 0 {
		return "p.id", id
	}
	return "p.slug", slug.Make(param)
}

// findProduct loads an active product by id or slug, with its category.
func findProduct(ctx context.Context, q database.Querier, param string) (*models.Product, *models.Category, error) {
	column, value := productKey(param)
	if s, ok := value.(string); ok && s == "" {
		return nil, nil, apperr.NotFound("product")
	}

	query := `
		SELECT p.id, p.category_id, p.sku, p.name, p.slug, p.description, p.price, p.stock_quantity,
			p.status, p.images, p.created_at, p.updated_at,
			c.id, c.name, c.slug, c.parent_id
		FROM products p
		LEFT JOIN categories c ON c.id = p.category_id
		WHERE ` + column + ` = ? AND p.status = 'active'`

	var p models.Product
	var images []byte
	var catID, catParent sql.NullInt64
	var catName, catSlug sql.NullString
	err := q.QueryRowContext(ctx, query, value).Scan(
		&p.ID, &p.CategoryID, &p.SKU, &p.Name, &p.Slug, &p.Description, &p.Price, &p.StockQuantity,
		&p.Status, &images, &p.CreatedAt, &p.UpdatedAt,
		&catID, &catName, &catSlug, &catParent,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, apperr.NotFound("product")
		}
		return nil, nil, apperr.Storage("product.get", err)
	}

	// Always an array in JSON, never null.
	p.Images = []string{}
	if len(images) > 0 {
		if err := json.Unmarshal(images, &p.Images); err != nil {
			return nil, nil, apperr.Storage("product.get.images", err)
		}
	}

	var category *models.Category
	if catID.Valid {
		category = &models.Category{ID: catID.Int64, Name: catName.String, Slug: catSlug.String}
		if catParent.Valid {
			category.ParentID = &catParent.Int64
		}
	}
	return &p, category, nil
}

func (h *Handlers) ratingSummary(ctx context.Context, productID int64) (models.RatingSummary, error) {
	var r models.RatingSummary
	err := h.DB.QueryRowContext(ctx,
		"SELECT COALESCE(ROUND(AVG(rating), 1), 0), COUNT(*) FROM reviews WHERE product_id = ?", productID).
		Scan(&r.Average, &r.Count)
	return r, apperr.Storage("product.rating", err)
}

// GetProductDetail is the handler for GET /v1/products/:slug
// Authentication is optional; signed-in callers also get in_wishlist.
func (h *Handlers) GetProductDetail(c *gin.Context) {
	ctx := c.Request.Context()

	p, category, err := findProduct(ctx, h.DB, c.Param("slug"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	rating, err := h.ratingSummary(ctx, p.ID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	reviews, err := h.listProductReviews(ctx, p.ID, recentReviewLimit, 0)
	if err != nil {
		h.respondError(c, err)
		return
	}
	inWishlist, err := h.inWishlist(ctx, currentUser(c), p.ID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"product":      p,
		"category":     category,
		"stock_status": p.StockStatus(),
		"max_quantity": p.MaxOrderQuantity(),
		"rating":       rating,
		"reviews":      reviews,
		"in_wishlist":  inWishlist,
	})
}
