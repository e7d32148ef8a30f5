package order

import (
	"context"
	"fmt"
	"strconv"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/oru-store/checkout-api/internal/domain/product"
	"github.com/oru-store/checkout-api/internal/montonio"
)

// Sentinel errors for order creation.
var (
	ErrMissingBilling = errors.New("missing billing information")
	ErrMissingItems   = errors.New("no products in order")
	ErrNoValidItems   = errors.New("no valid products were added to the order")
)

// PaymentError reports a gateway failure after the order was persisted. The
// order is kept so the customer can retry payment against the same id.
type PaymentError struct {
	OrderID int64
	Err     error
}

func (e *PaymentError) Error() string {
	return fmt.Sprintf("payment initialization failed for order %d: %v", e.OrderID, e.Err)
}

func (e *PaymentError) Unwrap() error { return e.Err }

// PaymentGateway initiates a payment for a prepared payload.
type PaymentGateway interface {
	CreateOrder(ctx context.Context, payload montonio.OrderPayload) (*montonio.PaymentSession, error)
}

// CreateRequest is a cart submission from the storefront checkout.
type CreateRequest struct {
	Billing            *Address              `json:"billing"`
	Shipping           *Address              `json:"shipping"`
	LineItems          []RequestLineItem     `json:"line_items"`
	ShippingLines      []RequestShippingLine `json:"shipping_lines"`
	PaymentMethod      string                `json:"payment_method"`
	PaymentMethodTitle string                `json:"payment_method_title"`
	CustomerNote       string                `json:"customer_note"`
	IsSubscription     bool                  `json:"is_subscription"`
}

// RequestLineItem is a submitted cart line.
type RequestLineItem struct {
	ProductID int64       `json:"product_id"`
	Quantity  int         `json:"quantity"`
	Meta      []MetaEntry `json:"meta_data"`
}

// RequestShippingLine is a submitted shipping selection.
type RequestShippingLine struct {
	MethodID    string          `json:"method_id"`
	MethodTitle string          `json:"method_title"`
	Total       decimal.Decimal `json:"total"`
	Meta        []MetaEntry     `json:"meta_data"`
}

// CreateResult is the outcome of a successful order creation + payment
// initiation.
type CreateResult struct {
	Order      *Order
	PaymentURL string
	ItemsAdded int
}

// Config holds checkout-flow settings for the order service.
type Config struct {
	// ReturnURL is the customer-facing order confirmation page the gateway
	// redirects back to.
	ReturnURL string
	// NotificationURL is this service's webhook endpoint.
	NotificationURL string
	// Locale for the gateway's hosted payment page.
	Locale string
}

// Service builds orders from cart submissions and orchestrates payment
// initiation and webhook-driven status transitions.
type Service struct {
	products product.Repository
	orders   Repository
	gateway  PaymentGateway
	cfg      Config
}

// NewService creates an order Service with the required dependencies.
func NewService(products product.Repository, orders Repository, gateway PaymentGateway, cfg Config) *Service {
	if cfg.Locale == "" {
		cfg.Locale = "lt"
	}
	return &Service{
		products: products,
		orders:   orders,
		gateway:  gateway,
		cfg:      cfg,
	}
}

// Create validates a cart submission, persists the order, applies the
// subscription discount when flagged, and initiates payment. Individual
// unresolvable line items are skipped rather than failing the whole cart; an
// order that ends up with zero items is never persisted.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*CreateResult, error) {
	lg := zctx.From(ctx)

	if req.Billing == nil {
		return nil, ErrMissingBilling
	}
	if len(req.LineItems) == 0 {
		return nil, ErrMissingItems
	}

	o := &Order{
		Key:    newOrderKey(),
		Status: StatusPending,
	}

	for _, li := range req.LineItems {
		if li.ProductID <= 0 {
			lg.Warn("Skipping line item with invalid product id", zap.Int64("product_id", li.ProductID))
			continue
		}
		p, err := s.products.GetByID(ctx, li.ProductID)
		if err != nil {
			lg.Warn("Skipping unresolvable line item", zap.Int64("product_id", li.ProductID), zap.Error(err))
			continue
		}
		qty := li.Quantity
		if qty < 1 {
			qty = 1
		}
		o.Items = append(o.Items, LineItem{
			ProductID: p.ID,
			Name:      p.Name,
			Quantity:  qty,
			UnitPrice: p.Price,
			Total:     p.Price.Mul(decimal.NewFromInt(int64(qty))),
			Meta:      li.Meta,
		})
	}

	if len(o.Items) == 0 {
		return nil, ErrNoValidItems
	}

	o.Billing = *req.Billing
	if req.Shipping != nil {
		o.Shipping = *req.Shipping
	} else {
		o.Shipping = *req.Billing
	}

	for _, sl := range req.ShippingLines {
		o.ShippingLines = append(o.ShippingLines, ShippingLine{
			MethodID:    sl.MethodID,
			MethodTitle: sl.MethodTitle,
			Total:       sl.Total,
			Meta:        sl.Meta,
		})
		// Pickup-point metadata is mirrored onto the order itself for
		// downstream consumers that only read order-level metadata.
		for _, m := range sl.Meta {
			if m.Key != "" && m.Value != "" {
				o.SetMeta(m.Key, m.Value)
			}
		}
	}

	o.PaymentMethod = req.PaymentMethod
	if o.PaymentMethod == "" {
		o.PaymentMethod = "montonio"
	}
	o.PaymentMethodTitle = req.PaymentMethodTitle
	if o.PaymentMethodTitle == "" {
		o.PaymentMethodTitle = "Montonio Payments"
	}

	if req.PaymentMethodTitle != "" {
		o.SetMeta(MetaPaymentMethodName, req.PaymentMethodTitle)
		if code, ok := montonio.BankCode(req.PaymentMethodTitle); ok {
			o.SetMeta(MetaPreselectedMethod, code)
		}
	}

	o.CustomerNote = req.CustomerNote

	o.CalculateTotals()

	if req.IsSubscription {
		ApplySubscriptionDiscount(o)
	}

	if err := s.orders.Create(ctx, o); err != nil {
		return nil, errors.Wrap(err, "create order")
	}
	lg.Info("Order created", zap.Int64("order_id", o.ID), zap.String("total", o.Total.String()))

	session, err := s.gateway.CreateOrder(ctx, s.buildPayload(o))
	if err != nil {
		o.AddNote("Payment gateway error: " + err.Error())
		if saveErr := s.orders.Update(ctx, o); saveErr != nil {
			lg.Error("Saving gateway failure note failed", zap.Int64("order_id", o.ID), zap.Error(saveErr))
		}
		return nil, &PaymentError{OrderID: o.ID, Err: err}
	}

	o.SetMeta(MetaMontonioUUID, session.UUID)
	o.TransactionID = session.UUID
	o.AddNote("Montonio payment initiated. UUID: " + session.UUID)
	if err := s.orders.Update(ctx, o); err != nil {
		return nil, errors.Wrap(err, "save payment session")
	}

	return &CreateResult{
		Order:      o,
		PaymentURL: session.PaymentURL,
		ItemsAdded: len(o.Items),
	}, nil
}

// buildPayload shapes the persisted order into a payment-initiation request:
// billing address, order lines plus positive-cost shipping lines, and the
// method-specific payment sub-object.
func (s *Service) buildPayload(o *Order) montonio.OrderPayload {
	lines := make([]montonio.LineItem, 0, len(o.Items)+len(o.ShippingLines))
	for _, item := range o.Items {
		lines = append(lines, montonio.LineItem{
			Name:       item.Name,
			Quantity:   item.Quantity,
			FinalPrice: item.Total.InexactFloat64(),
		})
	}
	for _, sl := range o.ShippingLines {
		if sl.Total.IsPositive() {
			lines = append(lines, montonio.LineItem{
				Name:       sl.MethodTitle,
				Quantity:   1,
				FinalPrice: sl.Total.InexactFloat64(),
			})
		}
	}

	return montonio.OrderPayload{
		MerchantReference: strconv.FormatInt(o.ID, 10),
		ReturnURL:         s.cfg.ReturnURL,
		NotificationURL:   s.cfg.NotificationURL,
		Currency:          "EUR",
		GrandTotal:        o.Total.InexactFloat64(),
		Locale:            s.cfg.Locale,
		BillingAddress: montonio.Address{
			FirstName:    o.Billing.FirstName,
			LastName:     o.Billing.LastName,
			Email:        o.Billing.Email,
			PhoneNumber:  o.Billing.Phone,
			AddressLine1: o.Billing.Address1,
			Locality:     o.Billing.City,
			Country:      o.Billing.Country,
			PostalCode:   o.Billing.Postcode,
		},
		LineItems: lines,
		Payment:   montonio.ClassifyPayment(o.PaymentMethodTitle, o.Total),
	}
}

// Status returns the current state projection of an order for client polling.
func (s *Service) Status(ctx context.Context, id int64) (*Order, error) {
	return s.orders.Get(ctx, id)
}

// HandleNotification applies a verified webhook notification to the
// referenced order. Unknown statuses are acknowledged without a transition,
// and no transition ever moves an order out of the paid state.
func (s *Service) HandleNotification(ctx context.Context, n *montonio.Notification) error {
	id, err := strconv.ParseInt(n.MerchantReference, 10, 64)
	if err != nil {
		return ErrNotFound
	}
	o, err := s.orders.Get(ctx, id)
	if err != nil {
		return err
	}

	var changed bool
	switch n.Status {
	case montonio.StatusFinalized, montonio.StatusPaid:
		changed = o.PaymentComplete(n.UUID)
	case montonio.StatusAbandoned, montonio.StatusVoided:
		changed = o.Cancel("Payment cancelled by customer")
	case montonio.StatusFailed:
		changed = o.Fail("Payment failed")
	}

	if !changed {
		return nil
	}
	if err := s.orders.Update(ctx, o); err != nil {
		return errors.Wrap(err, "save status transition")
	}
	zctx.From(ctx).Info("Order status updated by webhook",
		zap.Int64("order_id", o.ID), zap.String("status", string(o.Status)))
	return nil
}

// newOrderKey generates the random, unguessable key used in customer-facing
// order URLs.
func newOrderKey() string {
	return "order_" + uuid.NewString()
}
