package models

import "time"

// Address types.
const (
	AddressShipping = "shipping"
	AddressBilling  = "billing"
)

// DefaultCountry is stored when an address is saved without a country.
const DefaultCountry = "South Africa"

// Address is the model for the 'addresses' table. Column names are shared
// with the storefront pages and must not change.
type Address struct {
	ID         int64     `json:"id" db:"id"`
	UserID     int64     `json:"user_id" db:"user_id"`
	FirstName  string    `json:"first_name" db:"first_name" validate:"required,max=100"`
	LastName   string    `json:"last_name" db:"last_name" validate:"required,max=100"`
	Phone      string    `json:"phone" db:"phone" validate:"required,phone"`
	Street     string    `json:"street" db:"street" validate:"required,max=255"`
	City       string    `json:"city" db:"city" validate:"required,max=100"`
	Province   string    `json:"province" db:"province" validate:"required,max=100"`
	PostalCode string    `json:"postal_code" db:"postal_code" validate:"required,max=20"`
	Country    string    `json:"country" db:"country" validate:"max=100"`
	Type       string    `json:"type" db:"type" validate:"oneof=shipping billing"`
	IsDefault  bool      `json:"is_default" db:"is_default"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

// FullName joins first and last name for labels.
func (a Address) FullName() string {
	return a.FirstName + " " + a.LastName
}

// AddressPatch carries the fields of a partial address update. Nil fields are
// left untouched.
type AddressPatch struct {
	FirstName  *string `json:"first_name"`
	LastName   *string `json:"last_name"`
	Phone      *string `json:"phone"`
	Street     *string `json:"street"`
	City       *string `json:"city"`
	Province   *string `json:"province"`
	PostalCode *string `json:"postal_code"`
	Country    *string `json:"country"`
	Type       *string `json:"type"`
	IsDefault  *bool   `json:"is_default"`
}

// Apply copies the set fields of p onto a.
func (p AddressPatch) Apply(a *Address) {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&a.FirstName, p.FirstName)
	set(&a.LastName, p.LastName)
	set(&a.Phone, p.Phone)
	set(&a.Street, p.Street)
	set(&a.City, p.City)
	set(&a.Province, p.Province)
	set(&a.PostalCode, p.PostalCode)
	set(&a.Country, p.Country)
	set(&a.Type, p.Type)
	if p.IsDefault != nil {
		a.IsDefault = *p.IsDefault
	}
}

// PaymentMethod is the model for the 'payment_methods' table. Only the
// provider token and display metadata are stored; card numbers and CVVs never
// reach this service.
type PaymentMethod struct {
	ID             int64     `json:"id" db:"id"`
	UserID         int64     `json:"user_id" db:"user_id"`
	Provider       string    `json:"provider" db:"provider"`
	ProviderToken  string    `json:"-" db:"provider_token"`
	Brand          string    `json:"brand" db:"brand"`
	Last4          string    `json:"last4" db:"last4"`
	ExpMonth       int       `json:"exp_month" db:"exp_month"`
	ExpYear        int       `json:"exp_year" db:"exp_year"`
	CardholderName string    `json:"cardholder_name" db:"cardholder_name"`
	IsDefault      bool      `json:"is_default" db:"is_default"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// Expired reports whether the card expired before the month containing now.
func (p PaymentMethod) Expired(now time.Time) bool {
	y, m, _ := now.Date()
	if p.ExpYear != y {
		return p.ExpYear < y
	}
	return p.ExpMonth < int(m)
}
