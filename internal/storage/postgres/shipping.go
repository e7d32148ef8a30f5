package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oru-store/checkout-api/internal/domain/shipping"
)

var _ shipping.ZoneStore = (*ShippingZoneRepository)(nil)

// ShippingZoneRepository implements shipping.ZoneStore backed by PostgreSQL.
type ShippingZoneRepository struct {
	pool *pgxpool.Pool
}

// NewShippingZoneRepository returns a ShippingZoneRepository that uses the
// given pool.
func NewShippingZoneRepository(pool *pgxpool.Pool) *ShippingZoneRepository {
	return &ShippingZoneRepository{pool: pool}
}

// ListEnabledMethods returns every enabled shipping method across all zones,
// including the catch-all zone 0.
func (r *ShippingZoneRepository) ListEnabledMethods(ctx context.Context) ([]shipping.ZoneMethod, error) {
	const q = `
		SELECT method_id, instance_id, title, description, cost
		FROM shipping_zone_methods
		WHERE enabled
		ORDER BY zone_id, instance_id`

	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, errors.Wrap(err, "list shipping zone methods")
	}
	defer rows.Close()

	var methods []shipping.ZoneMethod
	for rows.Next() {
		var m shipping.ZoneMethod
		if err := rows.Scan(&m.MethodID, &m.InstanceID, &m.Title, &m.Description, &m.Cost); err != nil {
			return nil, errors.Wrap(err, "scan shipping method")
		}
		methods = append(methods, m)
	}
	return methods, rows.Err()
}
