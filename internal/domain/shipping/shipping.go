// Package shipping enumerates configured shipping methods and classifies them
// by carrier and delivery mode.
package shipping

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Carrier identifies a parcel carrier known to the checkout flow.
type Carrier string

const (
	CarrierOmniva    Carrier = "omniva"
	CarrierUnisend   Carrier = "unisend"
	CarrierDPD       Carrier = "dpd"
	CarrierVenipak   Carrier = "venipak"
	CarrierSmartpost Carrier = "smartpost"
	CarrierInpost    Carrier = "inpost"
	CarrierNone      Carrier = ""
)

// ZoneMethod is one enabled shipping method row as stored, before
// classification.
type ZoneMethod struct {
	MethodID    string
	InstanceID  int
	Title       string
	Description string
	Cost        decimal.Decimal
}

// ZoneStore enumerates enabled shipping methods across every configured zone,
// including the catch-all zone for uncovered locations.
type ZoneStore interface {
	ListEnabledMethods(ctx context.Context) ([]ZoneMethod, error)
}

// Method is the classified read model served to the storefront. Carrier and
// IsPickup are derived from the method id and title on every read.
type Method struct {
	ID          string
	MethodID    string
	InstanceID  int
	Title       string
	Description string
	Cost        decimal.Decimal
	IsPickup    bool
	Carrier     Carrier
}

// Resolver lists and classifies shipping methods.
type Resolver struct {
	store ZoneStore
}

// NewResolver creates a Resolver over the given zone store.
func NewResolver(store ZoneStore) *Resolver {
	return &Resolver{store: store}
}

// ListMethods returns every enabled shipping method with derived carrier and
// delivery-mode fields.
func (r *Resolver) ListMethods(ctx context.Context) ([]Method, error) {
	rows, err := r.store.ListEnabledMethods(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list shipping methods")
	}

	methods := make([]Method, len(rows))
	for i, row := range rows {
		carrier, isPickup := Classify(row.MethodID, row.Title)
		methods[i] = Method{
			ID:          fmt.Sprintf("%s:%d", row.MethodID, row.InstanceID),
			MethodID:    row.MethodID,
			InstanceID:  row.InstanceID,
			Title:       row.Title,
			Description: row.Description,
			Cost:        row.Cost,
			IsPickup:    isPickup,
			Carrier:     carrier,
		}
	}
	return methods, nil
}
