package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// MaxLineQuantity caps a single cart line regardless of stock.
const MaxLineQuantity = 10

// Cart defines the struct for the 'carts' table
type Cart struct {
	ID         int64     `json:"id" db:"id"`
	UserID     int64     `json:"user_id" db:"user_id"`
	CouponCode *string   `json:"coupon_code,omitempty" db:"coupon_code"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

// CartItem defines the struct for the 'cart_items' table
type CartItem struct {
	ID        int64     `json:"id" db:"id"`
	CartID    int64     `json:"cart_id" db:"cart_id"`
	ProductID int64     `json:"product_id" db:"product_id"`
	Quantity  int       `json:"quantity" db:"quantity"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// CartLine is one priced line of a cart, built from cart_items joined with
// products on every read.
type CartLine struct {
	ProductID     int64           `json:"product_id"`
	Name          string          `json:"name"`
	Slug          string          `json:"slug"`
	ImageURL      string          `json:"image_url,omitempty"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	Quantity      int             `json:"quantity"`
	StockQuantity int             `json:"stock_quantity"`
}

// LineTotal is unit price times quantity.
func (l CartLine) LineTotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// InStock reports whether the requested quantity can currently be fulfilled.
func (l CartLine) InStock() bool {
	return l.StockQuantity >= l.Quantity
}

// MaxQuantity is the largest quantity the line may be set to.
func (l CartLine) MaxQuantity() int {
	if l.StockQuantity < MaxLineQuantity {
		return l.StockQuantity
	}
	return MaxLineQuantity
}

// PricingResult is the derived money breakdown of a cart or order.
type PricingResult struct {
	Subtotal       decimal.Decimal `json:"cart_total"`
	ShippingCost   decimal.Decimal `json:"shipping_cost"`
	TaxAmount      decimal.Decimal `json:"tax_amount"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	GrandTotal     decimal.Decimal `json:"grand_total"`
}

// MarshalJSON renders every amount with two fraction digits ("60.00").
func (r PricingResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]string{
		"cart_total":      r.Subtotal.StringFixed(2),
		"shipping_cost":   r.ShippingCost.StringFixed(2),
		"tax_amount":      r.TaxAmount.StringFixed(2),
		"discount_amount": r.DiscountAmount.StringFixed(2),
		"grand_total":     r.GrandTotal.StringFixed(2),
	})
}

// Coupon types.
const (
	CouponPercent = "percent"
	CouponFixed   = "fixed"
)

// Coupon is a resolved discount code. For percent coupons Value is a fraction
// (0.10 is ten percent).
type Coupon struct {
	ID        int64           `json:"id" db:"id"`
	Code      string          `json:"code" db:"code"`
	Type      string          `json:"type" db:"type"`
	Value     decimal.Decimal `json:"value" db:"value"`
	IsActive  bool            `json:"is_active" db:"is_active"`
	ExpiresAt *time.Time      `json:"expires_at,omitempty" db:"expires_at"`
}

// WishlistItem defines the struct for the 'wishlist' table
type WishlistItem struct {
	UserID    int64           `json:"user_id" db:"user_id"`
	ProductID int64           `json:"product_id" db:"product_id"`
	Name      string          `json:"name"`
	Slug      string          `json:"slug"`
	Price     decimal.Decimal `json:"price"`
	ImageURL  string          `json:"image_url,omitempty"`
	InStock   bool            `json:"in_stock"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}
