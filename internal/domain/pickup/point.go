// Package pickup resolves carrier pickup-point lists from several
// inconsistent sources and normalizes them to one schema.
package pickup

import (
	"strconv"

	"github.com/google/uuid"
)

// Point is a normalized pickup location. Optional source fields default to
// empty strings so that normalization never fails.
type Point struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Address    string `json:"address"`
	City       string `json:"city"`
	Country    string `json:"country"`
	PostalCode string `json:"postalCode"`
}

// Normalize maps a raw pickup point from any backend to the canonical schema:
// the id falls back from uuid to id to a freshly generated one, city falls
// back to locality, postalCode to postal_code, and country defaults to LT.
func Normalize(raw map[string]any) Point {
	id := stringField(raw, "uuid")
	if id == "" {
		id = stringField(raw, "id")
	}
	if id == "" {
		id = uuid.New().String()
	}

	city := stringField(raw, "city")
	if city == "" {
		city = stringField(raw, "locality")
	}

	postal := stringField(raw, "postalCode")
	if postal == "" {
		postal = stringField(raw, "postal_code")
	}

	country := stringField(raw, "country")
	if country == "" {
		country = "LT"
	}

	return Point{
		ID:         id,
		Name:       stringField(raw, "name"),
		Address:    stringField(raw, "address"),
		City:       city,
		Country:    country,
		PostalCode: postal,
	}
}

// stringField reads a map field as a string. Some backends encode numeric
// ids, so JSON numbers are formatted rather than dropped.
func stringField(m map[string]any, key string) string {
	switch v := m[key].(type) {
	case string:
		return v
	case float64:
		if v == float64(int64(v)) {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}
