package montonio

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/go-faster/errors"

	"github.com/oru-store/checkout-api/internal/options"
)

// ErrNotConfigured is returned when no gateway access key can be found in any
// configuration location.
var ErrNotConfigured = errors.New("montonio gateway not configured")

// Credentials holds the merchant's gateway access credentials.
type Credentials struct {
	AccessKey   string
	SecretKey   string
	Environment string
}

// CredentialProvider reads one possible configuration location. It returns
// (nil, nil) when that location holds no usable credentials, letting the
// chain move on to the next provider.
type CredentialProvider func(ctx context.Context, store options.Store) (*Credentials, error)

// CredentialChain resolves merchant credentials by trying an ordered list of
// providers against the configuration store. The first provider that yields a
// non-empty access key wins.
type CredentialChain struct {
	store     options.Store
	providers []CredentialProvider
}

// NewCredentialChain builds the default resolution chain: payment-gateway
// instance settings, then the fixed list of legacy setting blobs, then the
// flat site options.
func NewCredentialChain(store options.Store) *CredentialChain {
	return &CredentialChain{
		store: store,
		providers: []CredentialProvider{
			gatewayInstanceProvider,
			legacySettingsProvider,
			siteOptionsProvider,
		},
	}
}

// Resolve runs the provider chain. Returns ErrNotConfigured when no provider
// yields an access key.
func (c *CredentialChain) Resolve(ctx context.Context) (*Credentials, error) {
	for _, p := range c.providers {
		creds, err := p(ctx, c.store)
		if err != nil {
			return nil, errors.Wrap(err, "resolve credentials")
		}
		if creds != nil && creds.AccessKey != "" {
			if creds.Environment == "" {
				creds.Environment = EnvSandbox
			}
			return creds, nil
		}
	}
	return nil, ErrNotConfigured
}

// Key name variants seen across gateway plugin versions.
var (
	accessKeyNames = []string{"access_key", "accessKey", "api_key", "apiKey"}
	secretKeyNames = []string{"secret_key", "secretKey", "api_secret", "apiSecret"}
)

// legacyOptionNames are the fixed settings-blob names tried in order when no
// gateway instance carries credentials.
var legacyOptionNames = []string{
	"montonio_payments_settings",
	"montonio_settings",
	"montonio_payment_initiation_settings",
	"montonio_card_payments_settings",
}

// gatewayInstanceProvider scans configured payment-gateway instance settings
// for any instance whose name contains "montonio" and probes the known key
// name variants.
func gatewayInstanceProvider(ctx context.Context, store options.Store) (*Credentials, error) {
	entries, err := store.ListByPrefix(ctx, "payment_gateway_")
	if err != nil {
		return nil, errors.Wrap(err, "list gateway settings")
	}

	for _, e := range entries {
		if !strings.Contains(strings.ToLower(e.Name), "montonio") {
			continue
		}
		settings := decodeSettings(e.Value)
		if settings == nil {
			continue
		}
		access := firstString(settings, accessKeyNames)
		if access == "" {
			continue
		}
		return &Credentials{
			AccessKey:   access,
			SecretKey:   firstString(settings, secretKeyNames),
			Environment: firstString(settings, []string{"environment"}),
		}, nil
	}
	return nil, nil
}

// legacySettingsProvider checks the fixed list of legacy option names for a
// settings blob with an access_key field.
func legacySettingsProvider(ctx context.Context, store options.Store) (*Credentials, error) {
	for _, name := range legacyOptionNames {
		raw, err := store.Get(ctx, name)
		if err != nil {
			if errors.Is(err, options.ErrNotFound) {
				continue
			}
			return nil, errors.Wrap(err, "get legacy option")
		}
		settings := decodeSettings(raw)
		if settings == nil {
			continue
		}
		access := firstString(settings, []string{"access_key"})
		if access == "" {
			continue
		}
		return &Credentials{
			AccessKey:   access,
			SecretKey:   firstString(settings, []string{"secret_key"}),
			Environment: firstString(settings, []string{"environment"}),
		}, nil
	}
	return nil, nil
}

// siteOptionsProvider reads the flat site options written by the store's
// admin settings screen.
func siteOptionsProvider(ctx context.Context, store options.Store) (*Credentials, error) {
	access, err := getStringOption(ctx, store, "montonio_access_key")
	if err != nil {
		return nil, err
	}
	if access == "" {
		return nil, nil
	}
	secret, err := getStringOption(ctx, store, "montonio_secret_key")
	if err != nil {
		return nil, err
	}
	env, err := getStringOption(ctx, store, "montonio_environment")
	if err != nil {
		return nil, err
	}
	return &Credentials{AccessKey: access, SecretKey: secret, Environment: env}, nil
}

func getStringOption(ctx context.Context, store options.Store, name string) (string, error) {
	raw, err := store.Get(ctx, name)
	if err != nil {
		if errors.Is(err, options.ErrNotFound) {
			return "", nil
		}
		return "", errors.Wrap(err, "get option")
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", nil
	}
	return s, nil
}

// decodeSettings parses a JSON settings blob into a generic map, returning
// nil when the value is not an object.
func decodeSettings(raw json.RawMessage) map[string]any {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil
	}
	return m
}

// firstString probes the candidate keys in order and returns the first
// non-empty string value.
func firstString(m map[string]any, keys []string) string {
	for _, k := range keys {
		if v, ok := m[k].(string); ok && v != "" {
			return v
		}
	}
	return ""
}
