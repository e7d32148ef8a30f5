package montonio

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Payment method identifiers understood by the gateway.
const (
	MethodCard              = "card"
	MethodApplePay          = "applepay"
	MethodGooglePay         = "googlepay"
	MethodPaymentInitiation = "paymentInitiation"
)

// Payment is the method-specific sub-object of a payment-initiation request.
type Payment struct {
	Method            string  `json:"method"`
	MethodDisplay     string  `json:"methodDisplay"`
	Amount            float64 `json:"amount"`
	Currency          string  `json:"currency"`
	PreferredProvider string  `json:"preferredProvider,omitempty"`
}

// cardTerms mark a payment method title as a card payment. Lithuanian
// storefronts label cards "Kortelė".
var cardTerms = []string{"kortelė", "kortele", "card", "visa", "mastercard"}

// bankProvider pairs a bank name substring with its gateway preselection code.
// Evaluation order is significant: the first matching entry wins.
type bankProvider struct {
	name string
	code string
}

var bankProviders = []bankProvider{
	{"seb", "LITAS"},
	{"swedbank", "HABA"},
	{"luminor", "NDEALT21"},
	{"šiaulių", "CBVI"},
	{"siauliu", "CBVI"},
	{"medicinos", "MDBALT22"},
	{"revolut", "REVOLT21"},
	{"citadele", "INDULT2X"},
}

// BankCode maps a payment method title to a bank preselection code by
// case-insensitive substring match. It is the single lookup table shared by
// the request classifier and the order builder's preselection metadata.
func BankCode(title string) (string, bool) {
	lower := strings.ToLower(title)
	for _, b := range bankProviders {
		if strings.Contains(lower, b.name) {
			return b.code, true
		}
	}
	return "", false
}

// ClassifyPayment maps a human-readable payment method title to the payment
// sub-object the gateway expects. The checks form an ordered decision list:
// card terms, then Apple Pay, then Google Pay, then bank redirect with an
// optional preselected provider.
func ClassifyPayment(title string, amount decimal.Decimal) Payment {
	lower := strings.ToLower(title)
	p := Payment{
		Amount:   amount.InexactFloat64(),
		Currency: "EUR",
	}

	switch {
	case containsAny(lower, cardTerms):
		p.Method = MethodCard
		p.MethodDisplay = "Card Payment"
	case strings.Contains(lower, "apple") && strings.Contains(lower, "pay"):
		p.Method = MethodApplePay
		p.MethodDisplay = "Apple Pay"
	case strings.Contains(lower, "google") && strings.Contains(lower, "pay"):
		p.Method = MethodGooglePay
		p.MethodDisplay = "Google Pay"
	default:
		p.Method = MethodPaymentInitiation
		p.MethodDisplay = title
		if code, ok := BankCode(title); ok {
			p.PreferredProvider = code
		}
	}

	return p
}

func containsAny(s string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}
