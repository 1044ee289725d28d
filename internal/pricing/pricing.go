// Package pricing turns cart lines and an optional coupon into a
// PricingResult. Tax and shipping are always computed on the pre-discount
// subtotal; the discount only comes off the final total.
package pricing

import (
	"context"
	"errors"
	"fmt"

	"github.com/01moynul/homewareontap-golang/internal/apperr"
	"github.com/01moynul/homewareontap-golang/internal/models"
	"github.com/shopspring/decimal"
)

// ErrInvalidLine is returned for a line with a negative price or quantity.
var ErrInvalidLine = errors.New("invalid cart line")

// CouponResolver looks up a coupon code. Implementations return an
// apperr.KindCouponNotFound error for unknown, inactive or expired codes.
type CouponResolver interface {
	ResolveCoupon(ctx context.Context, code string) (*models.Coupon, error)
}

// Calculator holds the configured shipping and tax policy.
type Calculator struct {
	FlatShippingRate      decimal.Decimal
	FreeShippingThreshold decimal.Decimal
	TaxRate               decimal.Decimal
}

// NewCalculator returns a Calculator for the given policy.
func NewCalculator(flatRate, freeThreshold, taxRate decimal.Decimal) *Calculator {
	return &Calculator{
		FlatShippingRate:      flatRate,
		FreeShippingThreshold: freeThreshold,
		TaxRate:               taxRate,
	}
}

// Calculate prices the lines. Out-of-stock lines still count towards the
// subtotal; the page only warns about them.
func (c *Calculator) Calculate(lines []models.CartLine, coupon *models.Coupon) (models.PricingResult, error) {
	subtotal := decimal.Zero
	for i, l := range lines {
		if l.Quantity < 0 || l.UnitPrice.IsNegative() {
			return models.PricingResult{}, &apperr.Error{
				Kind:    apperr.KindValidation,
				Field:   fmt.Sprintf("lines[%d]", i),
				Message: fmt.Sprintf("product %d has quantity %d and price %s", l.ProductID, l.Quantity, l.UnitPrice.StringFixed(2)),
				Err:     ErrInvalidLine,
			}
		}
		subtotal = subtotal.Add(l.LineTotal())
	}

	res := models.PricingResult{
		Subtotal:     subtotal,
		ShippingCost: decimal.Zero,
		TaxAmount:    c.Tax(subtotal),
	}
	// An empty cart has nothing to ship.
	if len(lines) > 0 {
		res.ShippingCost = c.Shipping(subtotal)
	}

	discount, err := Discount(coupon, res.Subtotal, res.Subtotal.Add(res.ShippingCost).Add(res.TaxAmount))
	if err != nil {
		return models.PricingResult{}, err
	}
	res.DiscountAmount = discount

	total := res.Subtotal.Add(res.ShippingCost).Add(res.TaxAmount).Sub(res.DiscountAmount)
	if total.IsNegative() {
		total = decimal.Zero
	}
	res.GrandTotal = total

	return res, nil
}

// Shipping is free at or above the threshold, otherwise the flat rate.
func (c *Calculator) Shipping(subtotal decimal.Decimal) decimal.Decimal {
	if subtotal.GreaterThanOrEqual(c.FreeShippingThreshold) {
		return decimal.Zero
	}
	return c.FlatShippingRate
}

// Tax is the subtotal times the tax rate, rounded to cents.
func (c *Calculator) Tax(subtotal decimal.Decimal) decimal.Decimal {
	return subtotal.Mul(c.TaxRate).Round(2)
}

// Discount computes a coupon's discount, floored at zero and capped at max.
func Discount(coupon *models.Coupon, subtotal, max decimal.Decimal) (decimal.Decimal, error) {
	if coupon == nil {
		return decimal.Zero, nil
	}

	var d decimal.Decimal
	switch coupon.Type {
	case models.CouponPercent:
		d = subtotal.Mul(coupon.Value).Round(2)
	case models.CouponFixed:
		d = coupon.Value
	default:
		return decimal.Zero, apperr.Validation("coupon_type", fmt.Sprintf("unsupported coupon type %q", coupon.Type))
	}

	if d.IsNegative() {
		d = decimal.Zero
	}
	if d.GreaterThan(max) {
		d = max
	}
	return d, nil
}

// Quote resolves code (if any) and prices the lines. When the code does not
// resolve, the returned result carries no discount and err is the
// CouponNotFound error; the result is still valid for rendering.
func (c *Calculator) Quote(ctx context.Context, lines []models.CartLine, code string, resolver CouponResolver) (models.PricingResult, *models.Coupon, error) {
	if code == "" || resolver == nil {
		res, err := c.Calculate(lines, nil)
		return res, nil, err
	}

	coupon, lookupErr := resolver.ResolveCoupon(ctx, code)
	if lookupErr != nil {
		res, err := c.Calculate(lines, nil)
		if err != nil {
			return models.PricingResult{}, nil, err
		}
		return res, nil, lookupErr
	}

	res, err := c.Calculate(lines, coupon)
	if err != nil {
		return models.PricingResult{}, nil, err
	}
	return res, coupon, nil
}
