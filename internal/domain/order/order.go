package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Status is the lifecycle state of an order.
type Status string

const (
	StatusPending   Status = "pending"
	StatusPaid      Status = "paid"
	StatusCancelled Status = "cancelled"
	StatusFailed    Status = "failed"
)

// Metadata keys attached to orders during checkout and payment processing.
const (
	MetaMontonioUUID         = "_montonio_uuid"
	MetaPaymentMethodName    = "_montonio_payment_method_name"
	MetaPreselectedMethod    = "_montonio_preselected_payment_method"
	MetaIsSubscription       = "_is_subscription"
	MetaSubscriptionInterval = "_subscription_interval"
	MetaSubscriptionDiscount = "_subscription_discount"
)

// ErrNotFound is returned when a requested order does not exist.
var ErrNotFound = errors.New("order not found")

// Address holds a billing or shipping address in the storefront's wire format.
type Address struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Company   string `json:"company,omitempty"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Address1  string `json:"address_1"`
	Address2  string `json:"address_2,omitempty"`
	City      string `json:"city"`
	State     string `json:"state,omitempty"`
	Postcode  string `json:"postcode"`
	Country   string `json:"country"`
}

// MetaEntry is a single key-value metadata pair on a line item or shipping line.
type MetaEntry struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// LineItem is a purchased product reference with quantity and optional
// item-level metadata (selected flavor, device color, and similar).
type LineItem struct {
	ProductID int64
	Name      string
	Quantity  int
	UnitPrice decimal.Decimal
	Total     decimal.Decimal
	Meta      []MetaEntry
}

// ShippingLine is a shipping method attached to an order, with the resolved
// cost and optional pickup-point metadata.
type ShippingLine struct {
	MethodID    string
	MethodTitle string
	Total       decimal.Decimal
	Meta        []MetaEntry
}

// FeeLine is an extra charge or (when negative) a discount on the order.
type FeeLine struct {
	Name   string
	Amount decimal.Decimal
}

// Note is a single audit-trail entry on an order.
type Note struct {
	Text      string
	CreatedAt time.Time
}

// Order is the central aggregate: line items, addresses, shipping and fee
// lines, payment details, and arbitrary key-value metadata.
type Order struct {
	ID                 int64
	Key                string
	Status             Status
	Billing            Address
	Shipping           Address
	Items              []LineItem
	ShippingLines      []ShippingLine
	Fees               []FeeLine
	PaymentMethod      string
	PaymentMethodTitle string
	CustomerNote       string
	TransactionID      string
	Subtotal           decimal.Decimal
	Total              decimal.Decimal
	Metadata           map[string]string
	Notes              []Note
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// SetMeta stores a key-value metadata pair on the order.
func (o *Order) SetMeta(key, value string) {
	if o.Metadata == nil {
		o.Metadata = make(map[string]string)
	}
	o.Metadata[key] = value
}

// Meta returns the metadata value for key, or an empty string.
func (o *Order) Meta(key string) string {
	return o.Metadata[key]
}

// AddNote appends an audit-trail note to the order.
func (o *Order) AddNote(text string) {
	o.Notes = append(o.Notes, Note{Text: text, CreatedAt: time.Now()})
}

// IsPaid reports whether the order has reached the paid state.
func (o *Order) IsPaid() bool {
	return o.Status == StatusPaid
}

// ShippingTotal returns the sum of all shipping line costs.
func (o *Order) ShippingTotal() decimal.Decimal {
	sum := decimal.Zero
	for _, l := range o.ShippingLines {
		sum = sum.Add(l.Total)
	}
	return sum
}

// FeeTotal returns the sum of all fee lines. Discounts are negative fees, so
// the result may be negative.
func (o *Order) FeeTotal() decimal.Decimal {
	sum := decimal.Zero
	for _, f := range o.Fees {
		sum = sum.Add(f.Amount)
	}
	return sum
}

// CalculateTotals recomputes the order subtotal (line items only) and grand
// total (subtotal + shipping + fees), rounded to cents.
func (o *Order) CalculateTotals() {
	subtotal := decimal.Zero
	for _, item := range o.Items {
		subtotal = subtotal.Add(item.Total)
	}
	o.Subtotal = subtotal.Round(2)
	o.Total = subtotal.Add(o.ShippingTotal()).Add(o.FeeTotal()).Round(2)
}

// PaymentComplete transitions the order to paid and records the processor's
// transaction id. Completing an already-paid order is a no-op: webhook
// redelivery must not duplicate notes or overwrite the transaction id.
func (o *Order) PaymentComplete(transactionID string) bool {
	if o.Status == StatusPaid {
		return false
	}
	o.Status = StatusPaid
	o.TransactionID = transactionID
	o.AddNote("Payment completed via Montonio")
	return true
}

// Cancel transitions the order to cancelled. Paid orders are never moved out
// of the paid state, so a late cancellation notification is ignored.
func (o *Order) Cancel(reason string) bool {
	if o.Status == StatusPaid {
		return false
	}
	o.Status = StatusCancelled
	o.AddNote(reason)
	return true
}

// Fail transitions the order to failed. Like Cancel, it never moves an order
// out of the paid state.
func (o *Order) Fail(reason string) bool {
	if o.Status == StatusPaid {
		return false
	}
	o.Status = StatusFailed
	o.AddNote(reason)
	return true
}

// Repository defines persistence operations for orders.
type Repository interface {
	// Create persists a new order and assigns its ID.
	Create(ctx context.Context, o *Order) error
	// Get loads an order by id. Returns ErrNotFound when absent.
	Get(ctx context.Context, id int64) (*Order, error)
	// Update persists changes to an existing order.
	Update(ctx context.Context, o *Order) error
}
