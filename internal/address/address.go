// Package address keeps a user's address book and the rule that each
// (user, type) group has at most one default address.
//
// Every operation that can change a default runs inside one transaction:
// the target row is locked with SELECT ... FOR UPDATE and the whole group is
// rewritten by a single conditional UPDATE, so concurrent requests can never
// leave zero or two defaults behind.
package address

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/01moynul/homewareontap-golang/internal/apperr"
	"github.com/01moynul/homewareontap-golang/internal/database"
	"github.com/01moynul/homewareontap-golang/internal/models"
	"go.uber.org/zap"
)

// Store is the persistence the Manager needs.
type Store interface {
	List(ctx context.Context, userID int64) ([]models.Address, error)
	Get(ctx context.Context, id, userID int64) (*models.Address, error)
	WithTx(ctx context.Context, fn func(tx TxStore) error) error
}

// TxStore is the set of statements available inside a transaction.
type TxStore interface {
	// GetForUpdate locks and returns the address if it belongs to userID.
	GetForUpdate(ctx context.Context, id, userID int64) (*models.Address, error)
	Insert(ctx context.Context, a *models.Address) (int64, error)
	Update(ctx context.Context, a *models.Address) error
	// SetGroupDefault marks id as the only default of (userID, addrType).
	// An id of 0 clears the group.
	SetGroupDefault(ctx context.Context, userID int64, addrType string, id int64) error
	Delete(ctx context.Context, id, userID int64) error
}

// retryAttempts bounds retries of idempotent operations after a deadlock.
const retryAttempts = 3

// Manager implements the address book operations.
type Manager struct {
	store Store
	log   *zap.Logger
	now   func() time.Time
}

// NewManager returns a Manager over store.
func NewManager(store Store, log *zap.Logger) *Manager {
	return &Manager{store: store, log: log, now: time.Now}
}

// List returns the user's addresses grouped by type, defaults first, newest
// first within a group.
func (m *Manager) List(ctx context.Context, userID int64) ([]models.Address, error) {
	return m.store.List(ctx, userID)
}

// Get returns one of the user's addresses.
func (m *Manager) Get(ctx context.Context, id, userID int64) (*models.Address, error) {
	return m.store.Get(ctx, id, userID)
}

// Defaults returns the user's default shipping and billing addresses. Either
// may be nil.
func (m *Manager) Defaults(ctx context.Context, userID int64) (shipping, billing *models.Address, err error) {
	all, err := m.store.List(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	for i := range all {
		a := &all[i]
		if !a.IsDefault {
			continue
		}
		switch a.Type {
		case models.AddressShipping:
			if shipping == nil {
				shipping = a
			}
		case models.AddressBilling:
			if billing == nil {
				billing = a
			}
		}
	}
	return shipping, billing, nil
}

// Add validates and stores a new address and returns its id. Add is not
// idempotent and is never retried.
func (m *Manager) Add(ctx context.Context, a models.Address) (int64, error) {
	normalize(&a)
	if err := Validate(&a); err != nil {
		return 0, err
	}

	now := m.now()
	a.CreatedAt = now
	a.UpdatedAt = now

	var id int64
	err := m.store.WithTx(ctx, func(tx TxStore) error {
		var err error
		if id, err = tx.Insert(ctx, &a); err != nil {
			return err
		}
		if a.IsDefault {
			return tx.SetGroupDefault(ctx, a.UserID, a.Type, id)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	m.log.Info("address added",
		zap.Int64("user_id", a.UserID),
		zap.Int64("address_id", id),
		zap.String("type", a.Type),
		zap.Bool("is_default", a.IsDefault))
	return id, nil
}

// Update applies patch to an address owned by userID.
func (m *Manager) Update(ctx context.Context, id, userID int64, patch models.AddressPatch) error {
	return m.retry(ctx, "update", func() error {
		return m.store.WithTx(ctx, func(tx TxStore) error {
			cur, err := tx.GetForUpdate(ctx, id, userID)
			if err != nil {
				return err
			}

			patch.Apply(cur)
			normalize(cur)
			if err := Validate(cur); err != nil {
				return err
			}
			cur.UpdatedAt = m.now()

			if err := tx.Update(ctx, cur); err != nil {
				return err
			}
			// Covers both an explicit is_default=true and a default
			// address that moved to the other type group.
			if cur.IsDefault {
				return tx.SetGroupDefault(ctx, userID, cur.Type, id)
			}
			return nil
		})
	})
}

// SetDefault makes id the default address of its type. Calling it again is a
// no-op.
func (m *Manager) SetDefault(ctx context.Context, id, userID int64) error {
	return m.retry(ctx, "set_default", func() error {
		return m.store.WithTx(ctx, func(tx TxStore) error {
			a, err := tx.GetForUpdate(ctx, id, userID)
			if err != nil {
				return err
			}
			return tx.SetGroupDefault(ctx, userID, a.Type, id)
		})
	})
}

// Delete removes an address owned by userID. If it was the default, the
// group is left without one.
func (m *Manager) Delete(ctx context.Context, id, userID int64) error {
	return m.retry(ctx, "delete", func() error {
		return m.store.WithTx(ctx, func(tx TxStore) error {
			if _, err := tx.GetForUpdate(ctx, id, userID); err != nil {
				return err
			}
			return tx.Delete(ctx, id, userID)
		})
	})
}

func (m *Manager) retry(ctx context.Context, op string, fn func() error) error {
	var err error
	for attempt := 1; attempt <= retryAttempts; attempt++ {
		err = fn()
		if err == nil || !database.IsDeadlock(err) || ctx.Err() != nil {
			return err
		}
		m.log.Warn("address transaction deadlocked, retrying",
			zap.String("op", op),
			zap.Int("attempt", attempt),
			zap.Error(err))
	}
	return err
}

func normalize(a *models.Address) {
	a.FirstName = strings.TrimSpace(a.FirstName)
	a.LastName = strings.TrimSpace(a.LastName)
	a.Phone = strings.TrimSpace(a.Phone)
	a.Street = strings.TrimSpace(a.Street)
	a.City = strings.TrimSpace(a.City)
	a.Province = strings.TrimSpace(a.Province)
	a.PostalCode = strings.TrimSpace(a.PostalCode)
	a.Country = strings.TrimSpace(a.Country)
	a.Type = strings.ToLower(strings.TrimSpace(a.Type))

	if a.Country == "" {
		a.Country = models.DefaultCountry
	}
	if a.Type == "" {
		a.Type = models.AddressShipping
	}
}

var phonePattern = regexp.MustCompile(`^\+?[0-9(][0-9 ()-]{6,19}$`)

// ValidPhone reports whether s looks like a dialable phone number.
func ValidPhone(s string) bool {
	return phonePattern.MatchString(strings.TrimSpace(s))
}

// ErrNotFound is returned for an address that does not exist or belongs to
// another user.
var ErrNotFound = apperr.NotFound("address")
