package pricing

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/01moynul/homewareontap-golang/internal/apperr"
	"github.com/01moynul/homewareontap-golang/internal/models"
)

// CouponStore resolves coupon codes against the 'coupons' table.
type CouponStore struct {
	DB  *sql.DB
	Now func() time.Time
}

// NewCouponStore returns a CouponStore using the wall clock.
func NewCouponStore(db *sql.DB) *CouponStore {
	return &CouponStore{DB: db, Now: time.Now}
}

// NormalizeCode upper-cases and trims a customer-entered code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ResolveCoupon returns the active, unexpired coupon for code.
func (s *CouponStore) ResolveCoupon(ctx context.Context, code string) (*models.Coupon, error) {
	code = NormalizeCode(code)
	if code == "" {
		return nil, apperr.CouponNotFound(code)
	}

	query := `
		SELECT id, code, type, value, is_active, expires_at
		FROM coupons
		WHERE code = ? AND is_active = 1 AND (expires_at IS NULL OR expires_at > ?)`

	var cp models.Coupon
	var expires sql.NullTime
	err := s.DB.QueryRowContext(ctx, query, code, s.Now()).Scan(
		&cp.ID, &cp.Code, &cp.Type, &cp.Value, &cp.IsActive, &expires,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.CouponNotFound(code)
		}
		return nil, apperr.Storage("coupon.resolve", err)
	}
	if expires.Valid {
		cp.ExpiresAt = &expires.Time
	}
	return &cp, nil
}
