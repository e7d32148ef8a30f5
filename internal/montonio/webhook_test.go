package montonio

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSign(t *testing.T) {
	body := []byte(`{"merchant_reference":"42","status":"PAID"}`)
	secret := []byte("shared-secret")

	// The signature covers the base64 form of the body, not the body itself.
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(base64.StdEncoding.EncodeToString(body)))
	expected := hex.EncodeToString(mac.Sum(nil))

	assert.Equal(t, expected, Sign(body, secret))
}

func TestVerifySignature(t *testing.T) {
	body := []byte(`{"merchant_reference":"42","status":"PAID","uuid":"abc"}`)
	secret := []byte("shared-secret")
	sig := Sign(body, secret)

	assert.True(t, VerifySignature(body, sig, secret))
	assert.False(t, VerifySignature(body, sig, []byte("wrong-secret")))
	assert.False(t, VerifySignature(body, "deadbeef", secret))
	assert.False(t, VerifySignature([]byte(`{"tampered":true}`), sig, secret))
	assert.False(t, VerifySignature(body, "", secret), "empty signature never verifies")
	assert.False(t, VerifySignature(body, sig, nil), "empty secret never verifies")
}

func TestParseNotification(t *testing.T) {
	n, err := ParseNotification([]byte(`{"merchant_reference":"1097","status":"FINALIZED","uuid":"pay-uuid"}`))
	require.NoError(t, err)
	assert.Equal(t, "1097", n.MerchantReference)
	assert.Equal(t, StatusFinalized, n.Status)
	assert.Equal(t, "pay-uuid", n.UUID)

	_, err = ParseNotification([]byte("not json"))
	require.Error(t, err)
}
