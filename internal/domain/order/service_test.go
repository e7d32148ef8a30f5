package order

import (
	"context"
	"strconv"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oru-store/checkout-api/internal/domain/product"
	"github.com/oru-store/checkout-api/internal/montonio"
)

// --- Mock implementations ---

type mockProductRepo struct {
	byID map[int64]*product.Product
}

func (m *mockProductRepo) GetByID(_ context.Context, id int64) (*product.Product, error) {
	p, ok := m.byID[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	return p, nil
}

type mockOrderRepo struct {
	nextID    int64
	created   []*Order
	updated   []*Order
	createErr error
	updateErr error
}

func (m *mockOrderRepo) Create(_ context.Context, o *Order) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.nextID++
	o.ID = m.nextID
	m.created = append(m.created, o)
	return nil
}

func (m *mockOrderRepo) Get(_ context.Context, id int64) (*Order, error) {
	for _, o := range m.created {
		if o.ID == id {
			return o, nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockOrderRepo) Update(_ context.Context, o *Order) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	m.updated = append(m.updated, o)
	return nil
}

type mockGateway struct {
	session     *montonio.PaymentSession
	err         error
	lastPayload montonio.OrderPayload
	calls       int
}

func (m *mockGateway) CreateOrder(_ context.Context, payload montonio.OrderPayload) (*montonio.PaymentSession, error) {
	m.calls++
	m.lastPayload = payload
	if m.err != nil {
		return nil, m.err
	}
	return m.session, nil
}

// --- Helpers ---

func newProductRepo(products ...product.Product) *mockProductRepo {
	byID := make(map[int64]*product.Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}
	return &mockProductRepo{byID: byID}
}

func testProduct(id int64, name, price string) product.Product {
	return product.Product{
		ID:     id,
		Name:   name,
		Price:  decimal.RequireFromString(price),
		Active: true,
	}
}

func okGateway() *mockGateway {
	return &mockGateway{session: &montonio.PaymentSession{
		UUID:       "pay-uuid",
		PaymentURL: "https://pay.example/pay-uuid",
	}}
}

func testConfig() Config {
	return Config{
		ReturnURL:       "https://shop.example/order-received",
		NotificationURL: "https://shop.example/api/v1/montonio-webhook",
	}
}

func billing() *Address {
	return &Address{
		FirstName: "Jonas",
		LastName:  "Jonaitis",
		Email:     "jonas@example.lt",
		Address1:  "Gedimino pr. 1",
		City:      "Vilnius",
		Postcode:  "01103",
		Country:   "LT",
	}
}

// --- Tests ---

func TestCreate_MissingBilling(t *testing.T) {
	svc := NewService(newProductRepo(), &mockOrderRepo{}, okGateway(), testConfig())

	_, err := svc.Create(context.Background(), CreateRequest{
		LineItems: []RequestLineItem{{ProductID: 1, Quantity: 1}},
	})
	require.ErrorIs(t, err, ErrMissingBilling)
}

func TestCreate_MissingItems(t *testing.T) {
	svc := NewService(newProductRepo(), &mockOrderRepo{}, okGateway(), testConfig())

	_, err := svc.Create(context.Background(), CreateRequest{Billing: billing()})
	require.ErrorIs(t, err, ErrMissingItems)
}

func TestCreate_SkipsUnresolvableItems(t *testing.T) {
	repo := &mockOrderRepo{}
	svc := NewService(
		newProductRepo(testProduct(1, "Coffee Beans", "10.00")),
		repo, okGateway(), testConfig(),
	)

	result, err := svc.Create(context.Background(), CreateRequest{
		Billing: billing(),
		LineItems: []RequestLineItem{
			{ProductID: 1, Quantity: 2},
			{ProductID: 999, Quantity: 1},
			{ProductID: -1, Quantity: 1},
		},
	})

	require.NoError(t, err)
	assert.Equal(t, 1, result.ItemsAdded)
	assert.True(t, decimal.RequireFromString("20.00").Equal(result.Order.Total))
}

func TestCreate_AllItemsUnresolvable(t *testing.T) {
	repo := &mockOrderRepo{}
	svc := NewService(newProductRepo(), repo, okGateway(), testConfig())

	_, err := svc.Create(context.Background(), CreateRequest{
		Billing:   billing(),
		LineItems: []RequestLineItem{{ProductID: 999, Quantity: 1}},
	})

	require.ErrorIs(t, err, ErrNoValidItems)
	assert.Empty(t, repo.created, "an order with zero items is never persisted")
}

func TestCreate_QuantityFloorsToOne(t *testing.T) {
	svc := NewService(
		newProductRepo(testProduct(1, "Coffee Beans", "10.00")),
		&mockOrderRepo{}, okGateway(), testConfig(),
	)

	result, err := svc.Create(context.Background(), CreateRequest{
		Billing:   billing(),
		LineItems: []RequestLineItem{{ProductID: 1, Quantity: 0}},
	})

	require.NoError(t, err)
	require.Len(t, result.Order.Items, 1)
	assert.Equal(t, 1, result.Order.Items[0].Quantity)
}

func TestCreate_ShippingDefaultsToBilling(t *testing.T) {
	svc := NewService(
		newProductRepo(testProduct(1, "Coffee Beans", "10.00")),
		&mockOrderRepo{}, okGateway(), testConfig(),
	)

	result, err := svc.Create(context.Background(), CreateRequest{
		Billing:   billing(),
		LineItems: []RequestLineItem{{ProductID: 1, Quantity: 1}},
	})

	require.NoError(t, err)
	assert.Equal(t, *billing(), result.Order.Shipping)
}

func TestCreate_SuccessfulPayment(t *testing.T) {
	gw := okGateway()
	repo := &mockOrderRepo{}
	svc := NewService(
		newProductRepo(
			testProduct(1, "Coffee Beans", "12.50"),
			testProduct(2, "Filter Pack", "4.99"),
		),
		repo, gw, testConfig(),
	)

	result, err := svc.Create(context.Background(), CreateRequest{
		Billing: billing(),
		LineItems: []RequestLineItem{
			{ProductID: 1, Quantity: 2},
			{ProductID: 2, Quantity: 1},
		},
		ShippingLines: []RequestShippingLine{
			{MethodID: "montonio_omniva_parcel", MethodTitle: "Omniva paštomatas", Total: decimal.RequireFromString("2.99")},
		},
		PaymentMethodTitle: "Swedbank",
	})
	require.NoError(t, err)

	o := result.Order
	assert.True(t, decimal.RequireFromString("29.99").Equal(o.Subtotal))
	assert.True(t, decimal.RequireFromString("32.98").Equal(o.Total))
	assert.Equal(t, "https://pay.example/pay-uuid", result.PaymentURL)
	assert.Equal(t, "pay-uuid", o.Meta(MetaMontonioUUID))
	assert.Equal(t, "pay-uuid", o.TransactionID)
	assert.Equal(t, "Swedbank", o.Meta(MetaPaymentMethodName))
	assert.Equal(t, "HABA", o.Meta(MetaPreselectedMethod))

	// Payload: 2 order lines + 1 shipping line, bank preselection.
	require.Len(t, gw.lastPayload.LineItems, 3)
	assert.Equal(t, strconv.FormatInt(o.ID, 10), gw.lastPayload.MerchantReference)
	assert.InDelta(t, 32.98, gw.lastPayload.GrandTotal, 0.001)
	assert.Equal(t, montonio.MethodPaymentInitiation, gw.lastPayload.Payment.Method)
	assert.Equal(t, "HABA", gw.lastPayload.Payment.PreferredProvider)

	require.Len(t, repo.updated, 1, "session details saved after gateway success")
	require.NotEmpty(t, o.Notes)
	assert.Contains(t, o.Notes[len(o.Notes)-1].Text, "Montonio payment initiated")
}

func TestCreate_FreeShippingExcludedFromPayload(t *testing.T) {
	gw := okGateway()
	svc := NewService(
		newProductRepo(testProduct(1, "Coffee Beans", "60.00")),
		&mockOrderRepo{}, gw, testConfig(),
	)

	_, err := svc.Create(context.Background(), CreateRequest{
		Billing:   billing(),
		LineItems: []RequestLineItem{{ProductID: 1, Quantity: 1}},
		ShippingLines: []RequestShippingLine{
			{MethodID: "montonio_omniva_parcel", MethodTitle: "Omniva paštomatas", Total: decimal.Zero},
		},
	})
	require.NoError(t, err)
	assert.Len(t, gw.lastPayload.LineItems, 1)
}

func TestCreate_ShippingMetaMirroredToOrder(t *testing.T) {
	svc := NewService(
		newProductRepo(testProduct(1, "Coffee Beans", "10.00")),
		&mockOrderRepo{}, okGateway(), testConfig(),
	)

	result, err := svc.Create(context.Background(), CreateRequest{
		Billing:   billing(),
		LineItems: []RequestLineItem{{ProductID: 1, Quantity: 1}},
		ShippingLines: []RequestShippingLine{
			{
				MethodID: "montonio_omniva_parcel",
				Total:    decimal.RequireFromString("2.99"),
				Meta: []MetaEntry{
					{Key: "pickup_point_id", Value: "pt-42"},
					{Key: "", Value: "ignored"},
				},
			},
		},
	})

	require.NoError(t, err)
	assert.Equal(t, "pt-42", result.Order.Meta("pickup_point_id"))
}

func TestCreate_Subscription(t *testing.T) {
	gw := okGateway()
	svc := NewService(
		newProductRepo(testProduct(1, "Coffee Subscription", "30.00")),
		&mockOrderRepo{}, gw, testConfig(),
	)

	result, err := svc.Create(context.Background(), CreateRequest{
		Billing:        billing(),
		LineItems:      []RequestLineItem{{ProductID: 1, Quantity: 1}},
		IsSubscription: true,
	})
	require.NoError(t, err)

	o := result.Order
	assert.Equal(t, "yes", o.Meta(MetaIsSubscription))
	assert.True(t, decimal.RequireFromString("21.00").Equal(o.Total))
	assert.InDelta(t, 21.00, gw.lastPayload.GrandTotal, 0.001, "gateway charges the discounted total")
}

func TestCreate_GatewayFailureKeepsOrder(t *testing.T) {
	gw := &mockGateway{err: errors.New("gateway unavailable")}
	repo := &mockOrderRepo{}
	svc := NewService(
		newProductRepo(testProduct(1, "Coffee Beans", "10.00")),
		repo, gw, testConfig(),
	)

	_, err := svc.Create(context.Background(), CreateRequest{
		Billing:   billing(),
		LineItems: []RequestLineItem{{ProductID: 1, Quantity: 1}},
	})

	var payErr *PaymentError
	require.ErrorAs(t, err, &payErr)
	assert.Equal(t, int64(1), payErr.OrderID)

	require.Len(t, repo.created, 1, "order survives the gateway failure")
	o := repo.created[0]
	assert.Equal(t, StatusPending, o.Status)
	require.NotEmpty(t, o.Notes)
	assert.Contains(t, o.Notes[0].Text, "Payment gateway error")
}

func TestCreate_DefaultPaymentMethod(t *testing.T) {
	svc := NewService(
		newProductRepo(testProduct(1, "Coffee Beans", "10.00")),
		&mockOrderRepo{}, okGateway(), testConfig(),
	)

	result, err := svc.Create(context.Background(), CreateRequest{
		Billing:   billing(),
		LineItems: []RequestLineItem{{ProductID: 1, Quantity: 1}},
	})

	require.NoError(t, err)
	assert.Equal(t, "montonio", result.Order.PaymentMethod)
	assert.Equal(t, "Montonio Payments", result.Order.PaymentMethodTitle)
	assert.Empty(t, result.Order.Meta(MetaPaymentMethodName), "no method metadata without a submitted title")
}

func TestCreate_RepoError(t *testing.T) {
	svc := NewService(
		newProductRepo(testProduct(1, "Coffee Beans", "10.00")),
		&mockOrderRepo{createErr: errors.New("db write failed")},
		okGateway(), testConfig(),
	)

	_, err := svc.Create(context.Background(), CreateRequest{
		Billing:   billing(),
		LineItems: []RequestLineItem{{ProductID: 1, Quantity: 1}},
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "create order")
}

// --- Webhook notification handling ---

func createPaidableOrder(t *testing.T, repo *mockOrderRepo, svc *Service) *Order {
	t.Helper()
	result, err := svc.Create(context.Background(), CreateRequest{
		Billing:   billing(),
		LineItems: []RequestLineItem{{ProductID: 1, Quantity: 1}},
	})
	require.NoError(t, err)
	return result.Order
}

func TestHandleNotification_Paid(t *testing.T) {
	repo := &mockOrderRepo{}
	svc := NewService(newProductRepo(testProduct(1, "Coffee Beans", "10.00")), repo, okGateway(), testConfig())
	o := createPaidableOrder(t, repo, svc)

	err := svc.HandleNotification(context.Background(), &montonio.Notification{
		MerchantReference: strconv.FormatInt(o.ID, 10),
		Status:            montonio.StatusPaid,
		UUID:              "tx-1",
	})
	require.NoError(t, err)
	assert.Equal(t, StatusPaid, o.Status)
	assert.Equal(t, "tx-1", o.TransactionID)
}

func TestHandleNotification_RedeliveryIsNoop(t *testing.T) {
	repo := &mockOrderRepo{}
	svc := NewService(newProductRepo(testProduct(1, "Coffee Beans", "10.00")), repo, okGateway(), testConfig())
	o := createPaidableOrder(t, repo, svc)
	updatesAfterCreate := len(repo.updated)

	n := &montonio.Notification{
		MerchantReference: strconv.FormatInt(o.ID, 10),
		Status:            montonio.StatusFinalized,
		UUID:              "tx-1",
	}
	require.NoError(t, svc.HandleNotification(context.Background(), n))
	require.NoError(t, svc.HandleNotification(context.Background(), n))

	assert.Equal(t, updatesAfterCreate+1, len(repo.updated), "redelivery writes nothing")
	notes := 0
	for _, note := range o.Notes {
		if note.Text == "Payment completed via Montonio" {
			notes++
		}
	}
	assert.Equal(t, 1, notes)
}

func TestHandleNotification_LateFailureAfterPaid(t *testing.T) {
	repo := &mockOrderRepo{}
	svc := NewService(newProductRepo(testProduct(1, "Coffee Beans", "10.00")), repo, okGateway(), testConfig())
	o := createPaidableOrder(t, repo, svc)

	ref := strconv.FormatInt(o.ID, 10)
	require.NoError(t, svc.HandleNotification(context.Background(), &montonio.Notification{
		MerchantReference: ref, Status: montonio.StatusPaid, UUID: "tx-1",
	}))
	require.NoError(t, svc.HandleNotification(context.Background(), &montonio.Notification{
		MerchantReference: ref, Status: montonio.StatusFailed,
	}))

	assert.Equal(t, StatusPaid, o.Status)
}

func TestHandleNotification_Abandoned(t *testing.T) {
	repo := &mockOrderRepo{}
	svc := NewService(newProductRepo(testProduct(1, "Coffee Beans", "10.00")), repo, okGateway(), testConfig())
	o := createPaidableOrder(t, repo, svc)

	require.NoError(t, svc.HandleNotification(context.Background(), &montonio.Notification{
		MerchantReference: strconv.FormatInt(o.ID, 10),
		Status:            montonio.StatusAbandoned,
	}))
	assert.Equal(t, StatusCancelled, o.Status)
}

func TestHandleNotification_UnknownStatusIgnored(t *testing.T) {
	repo := &mockOrderRepo{}
	svc := NewService(newProductRepo(testProduct(1, "Coffee Beans", "10.00")), repo, okGateway(), testConfig())
	o := createPaidableOrder(t, repo, svc)
	updatesAfterCreate := len(repo.updated)

	require.NoError(t, svc.HandleNotification(context.Background(), &montonio.Notification{
		MerchantReference: strconv.FormatInt(o.ID, 10),
		Status:            "PENDING",
	}))
	assert.Equal(t, StatusPending, o.Status)
	assert.Equal(t, updatesAfterCreate, len(repo.updated))
}

func TestHandleNotification_BadReference(t *testing.T) {
	svc := NewService(newProductRepo(), &mockOrderRepo{}, okGateway(), testConfig())

	err := svc.HandleNotification(context.Background(), &montonio.Notification{
		MerchantReference: "not-a-number",
		Status:            montonio.StatusPaid,
	})
	require.ErrorIs(t, err, ErrNotFound)

	err = svc.HandleNotification(context.Background(), &montonio.Notification{
		MerchantReference: "12345",
		Status:            montonio.StatusPaid,
	})
	require.ErrorIs(t, err, ErrNotFound)
}
