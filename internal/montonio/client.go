// Package montonio is a client for the Montonio payment gateway: payment
// initiation, pickup-point lookup, request classification, and webhook
// signature verification.
package montonio

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/go-faster/errors"
)

// Gateway environments and their API base URLs.
const (
	EnvSandbox    = "sandbox"
	EnvProduction = "production"

	sandboxBaseURL    = "https://sandbox-stargate.montonio.com/api"
	productionBaseURL = "https://stargate.montonio.com/api"
)

// Request timeouts mandated by the checkout flow: payment initiation is
// customer-blocking and gets the longer budget.
const (
	paymentTimeout      = 30 * time.Second
	pickupPointsTimeout = 15 * time.Second
)

// Address is the billing address block of a payment-initiation request.
type Address struct {
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	Email        string `json:"email"`
	PhoneNumber  string `json:"phoneNumber"`
	AddressLine1 string `json:"addressLine1"`
	Locality     string `json:"locality"`
	Country      string `json:"country"`
	PostalCode   string `json:"postalCode"`
}

// LineItem is a single purchasable line in a payment-initiation request.
type LineItem struct {
	Name       string  `json:"name"`
	Quantity   int     `json:"quantity"`
	FinalPrice float64 `json:"finalPrice"`
}

// OrderPayload is the payment-initiation request body. AccessKey is filled in
// by the client from the resolved credentials.
type OrderPayload struct {
	AccessKey         string     `json:"accessKey"`
	MerchantReference string     `json:"merchantReference"`
	ReturnURL         string     `json:"returnUrl"`
	NotificationURL   string     `json:"notificationUrl"`
	Currency          string     `json:"currency"`
	GrandTotal        float64    `json:"grandTotal"`
	Locale            string     `json:"locale"`
	BillingAddress    Address    `json:"billingAddress"`
	LineItems         []LineItem `json:"lineItems"`
	Payment           Payment    `json:"payment"`
}

// PaymentSession holds the gateway's identifiers for an initiated payment.
type PaymentSession struct {
	UUID       string
	PaymentURL string
}

// GatewayError is a rejection or transport failure from the payment gateway.
type GatewayError struct {
	Message string
	Err     error
}

func (e *GatewayError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("montonio gateway: %s: %v", e.Message, e.Err)
	}
	return "montonio gateway: " + e.Message
}

func (e *GatewayError) Unwrap() error { return e.Err }

// Client calls the Montonio gateway API. Credentials are resolved per call so
// that configuration changes take effect without a restart.
type Client struct {
	http  *http.Client
	creds *CredentialChain

	// base overrides the environment-derived API base URL in tests.
	base string
}

// NewClient creates a gateway client. When httpClient is nil the default
// client is used; per-call timeouts are applied through the request context.
func NewClient(creds *CredentialChain, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{http: httpClient, creds: creds}
}

func (c *Client) baseURL(environment string) string {
	if c.base != "" {
		return c.base
	}
	if environment == EnvProduction {
		return productionBaseURL
	}
	return sandboxBaseURL
}

// orderResponse is the gateway's payment-initiation response body.
type orderResponse struct {
	UUID       string `json:"uuid"`
	PaymentURL string `json:"paymentUrl"`
	Message    string `json:"message"`
}

// CreateOrder sends a payment-initiation request and returns the session
// identifiers. A missing uuid/paymentUrl pair, a non-2xx status, or a
// transport failure all surface as *GatewayError.
func (c *Client) CreateOrder(ctx context.Context, payload OrderPayload) (*PaymentSession, error) {
	creds, err := c.creds.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	payload.AccessKey = creds.AccessKey

	body, err := json.Marshal(map[string]OrderPayload{"data": payload})
	if err != nil {
		return nil, errors.Wrap(err, "encode payload")
	}

	ctx, cancel := context.WithTimeout(ctx, paymentTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL(creds.Environment)+"/orders", bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "create request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &GatewayError{Message: "payment request failed", Err: err}
	}
	defer resp.Body.Close()

	var data orderResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil && !errors.Is(err, io.EOF) {
		return nil, &GatewayError{Message: "invalid gateway response", Err: err}
	}

	if (resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated) &&
		data.UUID != "" && data.PaymentURL != "" {
		return &PaymentSession{UUID: data.UUID, PaymentURL: data.PaymentURL}, nil
	}

	msg := data.Message
	if msg == "" {
		msg = "payment creation failed"
	}
	return nil, &GatewayError{Message: msg}
}

// PickupPoints fetches the raw pickup-point list for a carrier provider code,
// filtered by country. The response shape varies by carrier, so points are
// returned as generic maps for the locator to normalize.
func (c *Client) PickupPoints(ctx context.Context, provider, country string) ([]map[string]any, error) {
	creds, err := c.creds.Resolve(ctx)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, pickupPointsTimeout)
	defer cancel()

	u := fmt.Sprintf("%s/stores/pickup-points?provider=%s&country=%s",
		c.baseURL(creds.Environment), url.QueryEscape(provider), url.QueryEscape(country))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, errors.Wrap(err, "create request")
	}
	req.Header.Set("Authorization", "Bearer "+creds.AccessKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &GatewayError{Message: "pickup points request failed", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &GatewayError{Message: fmt.Sprintf("pickup points request returned %d", resp.StatusCode)}
	}

	var points []map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&points); err != nil {
		return nil, &GatewayError{Message: "invalid pickup points response", Err: err}
	}
	return points, nil
}
