package address

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/01moynul/homewareontap-golang/internal/apperr"
	"github.com/01moynul/homewareontap-golang/internal/models"
	"github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
)

// memStore is an in-memory Store. WithTx works on a copy of the table and
// only publishes it when fn succeeds, so failed transactions roll back.
type memStore struct {
	mu     sync.Mutex
	rows   map[int64]models.Address
	nextID int64

	failSetDefault error
	deadlocks      int
}

func newMemStore() *memStore {
	return &memStore{rows: map[int64]models.Address{}}
}

func (s *memStore) List(_ context.Context, userID int64) ([]models.Address, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []models.Address{}
	for _, a := range s.rows {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Type != out[j].Type {
			return out[i].Type < out[j].Type
		}
		if out[i].IsDefault != out[j].IsDefault {
			return out[i].IsDefault
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *memStore) Get(_ context.Context, id, userID int64) (*models.Address, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.rows[id]
	if !ok || a.UserID != userID {
		return nil, ErrNotFound
	}
	return &a, nil
}

func (s *memStore) WithTx(_ context.Context, fn func(tx TxStore) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.deadlocks > 0 {
		s.deadlocks--
		return apperr.Storage("address.tx", &mysql.MySQLError{Number: 1213, Message: "Deadlock found"})
	}

	work := &memTx{rows: make(map[int64]models.Address, len(s.rows)), nextID: s.nextID, failSetDefault: s.failSetDefault}
	for k, v := range s.rows {
		work.rows[k] = v
	}
	if err := fn(work); err != nil {
		return err
	}
	s.rows = work.rows
	s.nextID = work.nextID
	return nil
}

type memTx struct {
	rows           map[int64]models.Address
	nextID         int64
	failSetDefault error
}

func (t *memTx) GetForUpdate(_ context.Context, id, userID int64) (*models.Address, error) {
	a, ok := t.rows[id]
	if !ok || a.UserID != userID {
		return nil, ErrNotFound
	}
	return &a, nil
}

func (t *memTx) Insert(_ context.Context, a *models.Address) (int64, error) {
	t.nextID++
	row := *a
	row.ID = t.nextID
	row.IsDefault = false
	t.rows[row.ID] = row
	return row.ID, nil
}

func (t *memTx) Update(_ context.Context, a *models.Address) error {
	t.rows[a.ID] = *a
	return nil
}

func (t *memTx) SetGroupDefault(_ context.Context, userID int64, addrType string, id int64) error {
	if t.failSetDefault != nil {
		return t.failSetDefault
	}
	for k, a := range t.rows {
		if a.UserID == userID && a.Type == addrType {
			a.IsDefault = a.ID == id
			t.rows[k] = a
		}
	}
	return nil
}

func (t *memTx) Delete(_ context.Context, id, userID int64) error {
	a, ok := t.rows[id]
	if !ok || a.UserID != userID {
		return ErrNotFound
	}
	delete(t.rows, id)
	return nil
}

func newTestManager(store Store) *Manager {
	m := NewManager(store, zap.NewNop())
	clock := time.Date(2026, time.January, 1, 9, 0, 0, 0, time.UTC)
	m.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}
	return m
}

func validAddress(userID int64, addrType string, isDefault bool) models.Address {
	return models.Address{
		UserID:     userID,
		FirstName:  "Naledi",
		LastName:   "Mokoena",
		Phone:      "+27 82 555 0101",
		Street:     "12 Jacaranda Ave",
		City:       "Pretoria",
		Province:   "Gauteng",
		PostalCode: "0181",
		Type:       addrType,
		IsDefault:  isDefault,
	}
}

func countDefaults(t *testing.T, s *memStore, userID int64, addrType string) (int, int64) {
	t.Helper()
	all, _ := s.List(context.Background(), userID)
	n := 0
	var id int64
	for _, a := range all {
		if a.Type == addrType && a.IsDefault {
			n++
			id = a.ID
		}
	}
	return n, id
}

func TestAdd_Validation(t *testing.T) {
	m := newTestManager(newMemStore())

	cases := []struct {
		name  string
		edit  func(a *models.Address)
		field string
	}{
		{"missing first name", func(a *models.Address) { a.FirstName = "  " }, "first_name"},
		{"missing last name", func(a *models.Address) { a.LastName = "" }, "last_name"},
		{"missing phone", func(a *models.Address) { a.Phone = "" }, "phone"},
		{"malformed phone", func(a *models.Address) { a.Phone = "call me" }, "phone"},
		{"missing street", func(a *models.Address) { a.Street = "" }, "street"},
		{"missing city", func(a *models.Address) { a.City = "" }, "city"},
		{"missing province", func(a *models.Address) { a.Province = "" }, "province"},
		{"missing postal code", func(a *models.Address) { a.PostalCode = "" }, "postal_code"},
		{"unknown type", func(a *models.Address) { a.Type = "holiday" }, "type"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a := validAddress(1, models.AddressShipping, false)
			tc.edit(&a)

			_, err := m.Add(context.Background(), a)
			var ae *apperr.Error
			if !errors.As(err, &ae) || ae.Kind != apperr.KindValidation {
				t.Fatalf("expected validation error, got %v", err)
			}
			if ae.Field != tc.field {
				t.Errorf("expected field %q, got %q", tc.field, ae.Field)
			}
		})
	}
}

func TestAdd_DefaultsCountryAndType(t *testing.T) {
	store := newMemStore()
	m := newTestManager(store)

	a := validAddress(1, "", false)
	id, err := m.Add(context.Background(), a)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := m.Get(context.Background(), id, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Country != models.DefaultCountry {
		t.Errorf("expected country %q, got %q", models.DefaultCountry, got.Country)
	}
	if got.Type != models.AddressShipping {
		t.Errorf("expected type shipping, got %q", got.Type)
	}
}

func TestAdd_DefaultClearsSiblings(t *testing.T) {
	store := newMemStore()
	m := newTestManager(store)
	ctx := context.Background()

	first, _ := m.Add(ctx, validAddress(1, models.AddressShipping, true))
	billing, _ := m.Add(ctx, validAddress(1, models.AddressBilling, true))
	second, err := m.Add(ctx, validAddress(1, models.AddressShipping, true))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	n, id := countDefaults(t, store, 1, models.AddressShipping)
	if n != 1 || id != second {
		t.Errorf("expected only %d default shipping, got %d defaults (id %d)", second, n, id)
	}
	if a, _ := m.Get(ctx, first, 1); a.IsDefault {
		t.Error("expected first shipping address to lose default")
	}
	if n, id := countDefaults(t, store, 1, models.AddressBilling); n != 1 || id != billing {
		t.Errorf("billing default should be untouched, got %d defaults (id %d)", n, id)
	}
}

func TestSetDefault_Idempotent(t *testing.T) {
	store := newMemStore()
	m := newTestManager(store)
	ctx := context.Background()

	a, _ := m.Add(ctx, validAddress(1, models.AddressShipping, true))
	b, _ := m.Add(ctx, validAddress(1, models.AddressShipping, false))

	for i := 0; i < 2; i++ {
		if err := m.SetDefault(ctx, b, 1); err != nil {
			t.Fatalf("call %d: unexpected error: %v", i+1, err)
		}
	}

	n, id := countDefaults(t, store, 1, models.AddressShipping)
	if n != 1 || id != b {
		t.Errorf("expected exactly one default (%d), got %d (id %d)", b, n, id)
	}
	if got, _ := m.Get(ctx, a, 1); got.IsDefault {
		t.Error("expected previous default to be cleared")
	}
}

func TestInvariant_AtMostOneDefaultPerGroup(t *testing.T) {
	store := newMemStore()
	m := newTestManager(store)
	ctx := context.Background()
	def := true

	var ids []int64
	for i := 0; i < 4; i++ {
		id, err := m.Add(ctx, validAddress(1, models.AddressShipping, i%2 == 0))
		if err != nil {
			t.Fatalf("add %d: %v", i, err)
		}
		ids = append(ids, id)
	}
	billingID, _ := m.Add(ctx, validAddress(1, models.AddressBilling, true))

	steps := []func() error{
		func() error { return m.SetDefault(ctx, ids[1], 1) },
		func() error { return m.Update(ctx, ids[3], 1, models.AddressPatch{IsDefault: &def}) },
		func() error { return m.SetDefault(ctx, ids[0], 1) },
		func() error {
			typ := models.AddressShipping
			return m.Update(ctx, billingID, 1, models.AddressPatch{Type: &typ})
		},
		func() error { return m.Update(ctx, ids[2], 1, models.AddressPatch{IsDefault: &def}) },
	}

	for i, step := range steps {
		if err := step(); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		for _, typ := range []string{models.AddressShipping, models.AddressBilling} {
			if n, _ := countDefaults(t, store, 1, typ); n > 1 {
				t.Fatalf("step %d: %d default %s addresses", i, n, typ)
			}
		}
	}

	if _, id := countDefaults(t, store, 1, models.AddressShipping); id != ids[2] {
		t.Errorf("expected %d to be the default, got %d", ids[2], id)
	}
}

func TestUpdate_MovingDefaultToOtherType(t *testing.T) {
	store := newMemStore()
	m := newTestManager(store)
	ctx := context.Background()

	ship, _ := m.Add(ctx, validAddress(1, models.AddressShipping, true))
	bill, _ := m.Add(ctx, validAddress(1, models.AddressBilling, true))

	typ := models.AddressBilling
	if err := m.Update(ctx, ship, 1, models.AddressPatch{Type: &typ}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	n, id := countDefaults(t, store, 1, models.AddressBilling)
	if n != 1 || id != ship {
		t.Errorf("expected moved address %d to be the only billing default, got %d (id %d)", ship, n, id)
	}
	if got, _ := m.Get(ctx, bill, 1); got.IsDefault {
		t.Error("expected old billing default to be cleared")
	}
}

func TestUpdate_BumpsUpdatedAtAndValidates(t *testing.T) {
	store := newMemStore()
	m := newTestManager(store)
	ctx := context.Background()

	id, _ := m.Add(ctx, validAddress(1, models.AddressShipping, false))
	before, _ := m.Get(ctx, id, 1)

	city := "Johannesburg"
	if err := m.Update(ctx, id, 1, models.AddressPatch{City: &city}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	after, _ := m.Get(ctx, id, 1)
	if after.City != "Johannesburg" {
		t.Errorf("expected city to change, got %q", after.City)
	}
	if !after.UpdatedAt.After(before.UpdatedAt) {
		t.Error("expected updated_at to advance")
	}

	empty := ""
	err := m.Update(ctx, id, 1, models.AddressPatch{Street: &empty})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
	if got, _ := m.Get(ctx, id, 1); got.Street == "" {
		t.Error("invalid update must not be stored")
	}
}

func TestOwnershipBoundary(t *testing.T) {
	store := newMemStore()
	m := newTestManager(store)
	ctx := context.Background()

	id, _ := m.Add(ctx, validAddress(1, models.AddressShipping, true))
	city := "Elsewhere"

	checks := map[string]error{
		"update":      m.Update(ctx, id, 2, models.AddressPatch{City: &city}),
		"set default": m.SetDefault(ctx, id, 2),
		"delete":      m.Delete(ctx, id, 2),
	}
	for name, err := range checks {
		if !apperr.Is(err, apperr.KindNotFound) {
			t.Errorf("%s: expected not found, got %v", name, err)
		}
	}
	if _, err := m.Get(ctx, id, 2); !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("get: expected not found, got %v", err)
	}

	got, _ := m.Get(ctx, id, 1)
	if got.City == "Elsewhere" || !got.IsDefault {
		t.Error("foreign user must not change the address")
	}
}

func TestDelete_DoesNotPromoteNewDefault(t *testing.T) {
	store := newMemStore()
	m := newTestManager(store)
	ctx := context.Background()

	def, _ := m.Add(ctx, validAddress(1, models.AddressShipping, true))
	m.Add(ctx, validAddress(1, models.AddressShipping, false))

	if err := m.Delete(ctx, def, 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n, _ := countDefaults(t, store, 1, models.AddressShipping); n != 0 {
		t.Errorf("expected no default after deleting it, got %d", n)
	}
	if err := m.Delete(ctx, def, 1); !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("second delete: expected not found, got %v", err)
	}
}

func TestList_Ordering(t *testing.T) {
	store := newMemStore()
	m := newTestManager(store)
	ctx := context.Background()

	oldShip, _ := m.Add(ctx, validAddress(1, models.AddressShipping, false))
	defShip, _ := m.Add(ctx, validAddress(1, models.AddressShipping, true))
	newShip, _ := m.Add(ctx, validAddress(1, models.AddressShipping, false))
	bill, _ := m.Add(ctx, validAddress(1, models.AddressBilling, false))
	m.Add(ctx, validAddress(2, models.AddressBilling, false))

	list, err := m.List(ctx, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []int64{bill, defShip, newShip, oldShip}
	if len(list) != len(want) {
		t.Fatalf("expected %d addresses, got %d", len(want), len(list))
	}
	for i, id := range want {
		if list[i].ID != id {
			t.Errorf("position %d: expected %d, got %d", i, id, list[i].ID)
		}
	}
}

func TestSetDefault_FailureRollsBack(t *testing.T) {
	store := newMemStore()
	m := newTestManager(store)
	ctx := context.Background()

	a, _ := m.Add(ctx, validAddress(1, models.AddressShipping, true))
	b, _ := m.Add(ctx, validAddress(1, models.AddressShipping, false))

	store.failSetDefault = apperr.Storage("address.set_default", errors.New("lost connection"))
	if err := m.SetDefault(ctx, b, 1); !apperr.Is(err, apperr.KindStorage) {
		t.Fatalf("expected storage error, got %v", err)
	}

	n, id := countDefaults(t, store, 1, models.AddressShipping)
	if n != 1 || id != a {
		t.Errorf("expected original default %d to survive, got %d defaults (id %d)", a, n, id)
	}
}

func TestSetDefault_RetriesDeadlock(t *testing.T) {
	store := newMemStore()
	m := newTestManager(store)
	ctx := context.Background()

	m.Add(ctx, validAddress(1, models.AddressShipping, true))
	b, _ := m.Add(ctx, validAddress(1, models.AddressShipping, false))

	store.deadlocks = 2
	if err := m.SetDefault(ctx, b, 1); err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if _, id := countDefaults(t, store, 1, models.AddressShipping); id != b {
		t.Errorf("expected %d to be default, got %d", b, id)
	}

	store.deadlocks = retryAttempts
	if err := m.SetDefault(ctx, b, 1); !apperr.Is(err, apperr.KindStorage) {
		t.Errorf("expected storage error after exhausting retries, got %v", err)
	}
}

func TestDefaults(t *testing.T) {
	store := newMemStore()
	m := newTestManager(store)
	ctx := context.Background()

	ship, _ := m.Add(ctx, validAddress(1, models.AddressShipping, true))
	m.Add(ctx, validAddress(1, models.AddressBilling, false))

	s, b, err := m.Defaults(ctx, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s == nil || s.ID != ship {
		t.Errorf("expected shipping default %d, got %v", ship, s)
	}
	if b != nil {
		t.Errorf("expected no billing default, got %v", b)
	}
}

func TestValidPhone(t *testing.T) {
	good := []string{"0821234567", "+27 82 123 4567", "(011) 555-0100"}
	bad := []string{"", "12345", "phone", "+27-82-123-4567-999999999"}

	for _, p := range good {
		if !ValidPhone(p) {
			t.Errorf("expected %q to be valid", p)
		}
	}
	for _, p := range bad {
		if ValidPhone(p) {
			t.Errorf("expected %q to be invalid", p)
		}
	}
}
