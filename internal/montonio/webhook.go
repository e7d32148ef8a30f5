package montonio

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"

	"github.com/go-faster/errors"
)

// SignatureHeader carries the webhook HMAC signature.
const SignatureHeader = "X-Montonio-Signature"

// Payment statuses delivered by webhook notifications.
const (
	StatusFinalized = "FINALIZED"
	StatusPaid      = "PAID"
	StatusAbandoned = "ABANDONED"
	StatusVoided    = "VOIDED"
	StatusFailed    = "FAILED"
)

// Notification is an asynchronous payment-status callback body.
type Notification struct {
	MerchantReference string `json:"merchant_reference"`
	Status            string `json:"status"`
	UUID              string `json:"uuid"`
}

// ParseNotification decodes a webhook body.
func ParseNotification(body []byte) (*Notification, error) {
	var n Notification
	if err := json.Unmarshal(body, &n); err != nil {
		return nil, errors.Wrap(err, "decode notification")
	}
	return &n, nil
}

// Sign computes the hex HMAC-SHA256 signature of a webhook body: the raw JSON
// bytes are base64-encoded, then signed with the shared secret.
func Sign(body []byte, secret []byte) string {
	payload := base64.StdEncoding.EncodeToString(body)
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature recomputes the expected signature for body and compares it
// to the presented one in constant time.
func VerifySignature(body []byte, signature string, secret []byte) bool {
	if len(secret) == 0 || signature == "" {
		return false
	}
	expected := Sign(body, secret)
	return hmac.Equal([]byte(expected), []byte(signature))
}
