package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product status values.
const (
	ProductActive   = "active"
	ProductInactive = "inactive"
)

// Product is the model for the 'products' table.
type Product struct {
	ID            int64           `json:"id" db:"id"`
	CategoryID    *int64          `json:"category_id,omitempty" db:"category_id"`
	SKU           *string         `json:"sku,omitempty" db:"sku"`
	Name          string          `json:"name" db:"name"`
	Slug          string          `json:"slug" db:"slug"`
	Description   string          `json:"description" db:"description"`
	Price         decimal.Decimal `json:"price" db:"price"`
	StockQuantity int             `json:"stock_quantity" db:"stock_quantity"`
	Status        string          `json:"status" db:"status"`

	// Stored as a JSON array in the 'images' column.
	Images []string `json:"images"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// StockStatus is the label the product page shows next to the price.
func (p Product) StockStatus() string {
	switch {
	case p.StockQuantity <= 0:
		return "out_of_stock"
	case p.StockQuantity <= 5:
		return "low_stock"
	default:
		return "in_stock"
	}
}

// MaxOrderQuantity is the largest quantity the add-to-cart control offers.
func (p Product) MaxOrderQuantity() int {
	if p.StockQuantity < MaxLineQuantity {
		if p.StockQuantity < 0 {
			return 0
		}
		return p.StockQuantity
	}
	return MaxLineQuantity
}

// Review is the model for the 'reviews' table
type Review struct {
	ID        int64     `json:"id" db:"id"`
	UserID    int64     `json:"user_id" db:"user_id"`
	ProductID int64     `json:"product_id" db:"product_id"`
	Rating    int       `json:"rating" db:"rating"`
	Title     string    `json:"title" db:"title"`
	Comment   string    `json:"comment" db:"comment"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`

	// Joins
	ReviewerName string `json:"reviewer_name,omitempty" db:"-"`
	ProductName  string `json:"product_name,omitempty" db:"-"`
	ProductSlug  string `json:"product_slug,omitempty" db:"-"`
}

// RatingSummary aggregates the reviews of one product.
type RatingSummary struct {
	Average decimal.Decimal `json:"average"`
	Count   int             `json:"count"`
}
