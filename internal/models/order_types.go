package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order status values.
const (
	OrderPending    = "pending"
	OrderProcessing = "processing"
	OrderShipped    = "shipped"
	OrderDelivered  = "delivered"
	OrderCancelled  = "cancelled"
)

// Order is the model for the 'orders' table. The money columns are a
// snapshot of the PricingResult at checkout.
type Order struct {
	ID                int64           `json:"id" db:"id"`
	Reference         string          `json:"reference" db:"reference"`
	UserID            int64           `json:"user_id" db:"user_id"`
	Status            string          `json:"status" db:"status"`
	Subtotal          decimal.Decimal `json:"subtotal" db:"subtotal"`
	ShippingCost      decimal.Decimal `json:"shipping_cost" db:"shipping_cost"`
	TaxAmount         decimal.Decimal `json:"tax_amount" db:"tax_amount"`
	DiscountAmount    decimal.Decimal `json:"discount_amount" db:"discount_amount"`
	GrandTotal        decimal.Decimal `json:"grand_total" db:"grand_total"`
	CouponCode        *string         `json:"coupon_code,omitempty" db:"coupon_code"`
	ShippingAddressID *int64          `json:"shipping_address_id,omitempty" db:"shipping_address_id"`
	BillingAddressID  *int64          `json:"billing_address_id,omitempty" db:"billing_address_id"`
	TrackingNumber    *string         `json:"tracking_number,omitempty" db:"tracking_number"`
	ItemCount         int             `json:"item_count" db:"-"`
	CreatedAt         time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at" db:"updated_at"`
}

// Pricing returns the order's money snapshot.
func (o Order) Pricing() PricingResult {
	return PricingResult{
		Subtotal:       o.Subtotal,
		ShippingCost:   o.ShippingCost,
		TaxAmount:      o.TaxAmount,
		DiscountAmount: o.DiscountAmount,
		GrandTotal:     o.GrandTotal,
	}
}

// Cancellable reports whether the customer may still cancel the order.
func (o Order) Cancellable() bool {
	return o.Status == OrderPending
}

// OrderItem is the model for the 'order_items' table
type OrderItem struct {
	ID        int64           `json:"id" db:"id"`
	OrderID   int64           `json:"order_id" db:"order_id"`
	ProductID int64           `json:"product_id" db:"product_id"`
	Quantity  int             `json:"quantity" db:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price" db:"unit_price"` // Price at the time of purchase
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}

// LineTotal is unit price times quantity.
func (i OrderItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// OrderAddress is the model for the 'order_addresses' table: a copy of an
// address book entry taken at checkout. Editing or deleting the source
// address later leaves it unchanged.
type OrderAddress struct {
	OrderID    int64  `json:"order_id" db:"order_id"`
	AddressID  *int64 `json:"address_id,omitempty" db:"address_id"`
	Type       string `json:"type" db:"type"`
	FirstName  string `json:"first_name" db:"first_name"`
	LastName   string `json:"last_name" db:"last_name"`
	Phone      string `json:"phone" db:"phone"`
	Street     string `json:"street" db:"street"`
	City       string `json:"city" db:"city"`
	Province   string `json:"province" db:"province"`
	PostalCode string `json:"postal_code" db:"postal_code"`
	Country    string `json:"country" db:"country"`
}

// SnapshotAddress copies a for an order. addrType may differ from a.Type when
// the shipping address is also billed.
func SnapshotAddress(orderID int64, a Address, addrType string) OrderAddress {
	id := a.ID
	return OrderAddress{
		OrderID:    orderID,
		AddressID:  &id,
		Type:       addrType,
		FirstName:  a.FirstName,
		LastName:   a.LastName,
		Phone:      a.Phone,
		Street:     a.Street,
		City:       a.City,
		Province:   a.Province,
		PostalCode: a.PostalCode,
		Country:    a.Country,
	}
}

// orderTransitions lists the statuses a manager may move an order to.
// Cancellation is handled separately because it restocks.
var orderTransitions = map[string][]string{
	OrderPending:    {OrderProcessing},
	OrderProcessing: {OrderShipped},
	OrderShipped:    {OrderDelivered},
}

// CanTransition reports whether an order in status from may move to status to.
func CanTransition(from, to string) bool {
	for _, next := range orderTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
