package postgres

import (
	"context"
	"encoding/json"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oru-store/checkout-api/internal/options"
)

var _ options.Store = (*OptionRepository)(nil)

// OptionRepository implements options.Store over the store_options table.
type OptionRepository struct {
	pool *pgxpool.Pool
}

// NewOptionRepository returns an OptionRepository that uses the given pool.
func NewOptionRepository(pool *pgxpool.Pool) *OptionRepository {
	return &OptionRepository{pool: pool}
}

// Get returns a single option value. Returns options.ErrNotFound when absent.
func (r *OptionRepository) Get(ctx context.Context, name string) (json.RawMessage, error) {
	const q = `SELECT value FROM store_options WHERE name = $1`

	var value json.RawMessage
	if err := r.pool.QueryRow(ctx, q, name).Scan(&value); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, options.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get option %q", name)
	}
	return value, nil
}

// ListByPrefix returns all options whose name starts with prefix, ordered by
// name so that scan order is deterministic.
func (r *OptionRepository) ListByPrefix(ctx context.Context, prefix string) ([]options.Entry, error) {
	const q = `SELECT name, value FROM store_options WHERE name LIKE $1 || '%' ORDER BY name`

	rows, err := r.pool.Query(ctx, q, prefix)
	if err != nil {
		return nil, errors.Wrapf(err, "list options %q", prefix)
	}
	defer rows.Close()

	var entries []options.Entry
	for rows.Next() {
		var e options.Entry
		if err := rows.Scan(&e.Name, &e.Value); err != nil {
			return nil, errors.Wrap(err, "scan option")
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
