package handlers

import (
	"net/http"

	"github.com/01moynul/homewareontap-golang/internal/apperr"
	"github.com/01moynul/homewareontap-golang/internal/models"
	"github.com/gin-gonic/gin"
)

// --- Category Handlers ---

// GetCategories is the handler for GET /v1/categories
// Public. Returns the navigation tree, roots first, each level by name.
func (h *Handlers) GetCategories(c *gin.Context) {
	rows, err := h.DB.QueryContext(c.Request.Context(),
		"SELECT id, name, slug, parent_id, created_at, updated_at FROM categories ORDER BY name ASC")
	if err != nil {
		h.respondError(c, apperr.Storage("category.list", err))
		return
	}
	defer rows.Close()

	var flat []models.Category
	for rows.Next() {
		var cat models.Category
		if err := rows.Scan(&cat.ID, &cat.Name, &cat.Slug, &cat.ParentID, &cat.CreatedAt, &cat.UpdatedAt); err != nil {
			h.respondError(c, apperr.Storage("category.list.scan", err))
			return
		}
		flat = append(flat, cat)
	}
	if err := rows.Err(); err != nil {
		h.respondError(c, apperr.Storage("category.list.rows", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"categories": models.BuildCategoryTree(flat)})
}
