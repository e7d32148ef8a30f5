package pickup

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/oru-store/checkout-api/internal/cache"
	"github.com/oru-store/checkout-api/internal/montonio"
	"github.com/oru-store/checkout-api/internal/options"
)

// cacheTTL bounds how stale a carrier's pickup-point list may get.
const cacheTTL = time.Hour

// candidateFields are the setting-blob field names that may hold a pickup
// point list, probed in this order. The first field yielding a non-empty list
// wins.
var candidateFields = []string{
	"pickup_points",
	"terminals",
	"locations",
	"parcel_terminals",
	"stores",
}

// apiProviderCodes translates local carrier names to the gateway's provider
// codes. Carriers without an entry pass through unchanged.
var apiProviderCodes = map[string]string{
	"dpd": "dpd_lithuania",
}

// PointsAPI is the live gateway fallback for pickup-point lookup.
type PointsAPI interface {
	PickupPoints(ctx context.Context, provider, country string) ([]map[string]any, error)
}

// Locator resolves a carrier's pickup points by trying, in order: the cache,
// the carrier's shipping settings blobs, and the live gateway API.
type Locator struct {
	cache cache.Cache
	store options.Store
	api   PointsAPI
}

// NewLocator creates a Locator over the given cache, options store, and
// gateway API.
func NewLocator(c cache.Cache, store options.Store, api PointsAPI) *Locator {
	return &Locator{cache: c, store: store, api: api}
}

func cacheKey(carrier string) string {
	return "montonio_" + carrier + "_pickup_points"
}

// Points returns the normalized pickup points for a carrier. A strategy that
// errors is logged and skipped; when every strategy comes up empty the result
// is an empty list, not an error.
func (l *Locator) Points(ctx context.Context, carrier string) ([]Point, error) {
	lg := zctx.From(ctx)

	if points, ok := l.fromCache(ctx, carrier); ok {
		return points, nil
	}

	points, err := l.fromSettings(ctx, carrier)
	if err != nil {
		lg.Warn("Pickup point settings scan failed",
			zap.String("carrier", carrier), zap.Error(err))
	} else if len(points) > 0 {
		return points, nil
	}

	points, err = l.fromAPI(ctx, carrier)
	if err != nil {
		if !errors.Is(err, montonio.ErrNotConfigured) {
			lg.Warn("Pickup point API fallback failed",
				zap.String("carrier", carrier), zap.Error(err))
		}
	} else if len(points) > 0 {
		return points, nil
	}

	return []Point{}, nil
}

// fromCache returns the cached list for a carrier, if fresh and non-empty.
func (l *Locator) fromCache(ctx context.Context, carrier string) ([]Point, bool) {
	raw, ok, err := l.cache.Get(ctx, cacheKey(carrier))
	if err != nil || !ok {
		return nil, false
	}
	var points []Point
	if err := json.Unmarshal(raw, &points); err != nil || len(points) == 0 {
		return nil, false
	}
	return points, true
}

// fromSettings scans the carrier's shipping setting blobs, probing the
// candidate field names. Field values may themselves be JSON-encoded strings.
func (l *Locator) fromSettings(ctx context.Context, carrier string) ([]Point, error) {
	entries, err := l.store.ListByPrefix(ctx, "shipping_montonio_"+carrier)
	if err != nil {
		return nil, errors.Wrap(err, "list shipping settings")
	}

	for _, entry := range entries {
		var settings map[string]json.RawMessage
		if err := json.Unmarshal(entry.Value, &settings); err != nil {
			continue
		}
		for _, field := range candidateFields {
			raw, ok := settings[field]
			if !ok {
				continue
			}
			rawPoints := decodePointList(raw)
			if len(rawPoints) == 0 {
				continue
			}
			points := make([]Point, 0, len(rawPoints))
			for _, rp := range rawPoints {
				points = append(points, Normalize(rp))
			}
			return points, nil
		}
	}
	return nil, nil
}

// decodePointList decodes a candidate field value into raw points. The value
// is either a list directly or a JSON-encoded string holding one.
func decodePointList(raw json.RawMessage) []map[string]any {
	var points []map[string]any
	if err := json.Unmarshal(raw, &points); err == nil {
		return points
	}

	var encoded string
	if err := json.Unmarshal(raw, &encoded); err != nil {
		return nil
	}
	if err := json.Unmarshal([]byte(encoded), &points); err != nil {
		return nil
	}
	return points
}

// fromAPI fetches pickup points from the gateway, caches the normalized list
// for an hour, and returns it.
func (l *Locator) fromAPI(ctx context.Context, carrier string) ([]Point, error) {
	provider := carrier
	if code, ok := apiProviderCodes[carrier]; ok {
		provider = code
	}

	rawPoints, err := l.api.PickupPoints(ctx, provider, "LT")
	if err != nil {
		return nil, err
	}
	if len(rawPoints) == 0 {
		return nil, nil
	}

	points := make([]Point, 0, len(rawPoints))
	for _, rp := range rawPoints {
		points = append(points, Normalize(rp))
	}

	if encoded, err := json.Marshal(points); err == nil {
		if err := l.cache.Set(ctx, cacheKey(carrier), encoded, cacheTTL); err != nil {
			zctx.From(ctx).Warn("Pickup point cache write failed",
				zap.String("carrier", carrier), zap.Error(err))
		}
	}
	return points, nil
}
