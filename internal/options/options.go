// Package options defines the generic key-value configuration store consumed
// by the payment credential chain and the pickup-point locator.
package options

import (
	"context"
	"encoding/json"

	"github.com/go-faster/errors"
)

// ErrNotFound is returned when a requested option does not exist.
var ErrNotFound = errors.New("option not found")

// Entry is a single configuration option: a name and its JSON-encoded value.
type Entry struct {
	Name  string
	Value json.RawMessage
}

// Store is a read-only view over the configuration options table.
type Store interface {
	// Get returns the value of a single option. Returns ErrNotFound when the
	// option does not exist.
	Get(ctx context.Context, name string) (json.RawMessage, error)
	// ListByPrefix returns all options whose name starts with prefix,
	// ordered by name.
	ListByPrefix(ctx context.Context, prefix string) ([]Entry, error)
}
