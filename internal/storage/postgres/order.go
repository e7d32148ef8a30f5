package postgres

import (
	"context"
	"encoding/json"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oru-store/checkout-api/internal/domain/order"
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL. The
// aggregate spans the orders row and its item/shipping/fee/note child rows;
// writes run in a single transaction.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists a new order and its child rows, assigning the order ID.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	billing, shipping, metadata, err := encodeOrderJSON(o)
	if err != nil {
		return err
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "begin")
	}
	defer tx.Rollback(ctx)

	const insertOrder = `
		INSERT INTO orders (order_key, status, billing, shipping, payment_method,
			payment_method_title, customer_note, transaction_id, subtotal, total, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at, updated_at`

	err = tx.QueryRow(ctx, insertOrder,
		o.Key, o.Status, billing, shipping, o.PaymentMethod,
		o.PaymentMethodTitle, o.CustomerNote, o.TransactionID, o.Subtotal, o.Total, metadata,
	).Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return errors.Wrap(err, "insert order")
	}

	if err := insertChildren(ctx, tx, o); err != nil {
		return err
	}

	return errors.Wrap(tx.Commit(ctx), "commit")
}

// Update persists changes to an existing order. Line items, shipping lines,
// fees, and notes are replaced wholesale from the aggregate.
func (r *OrderRepository) Update(ctx context.Context, o *order.Order) error {
	billing, shipping, metadata, err := encodeOrderJSON(o)
	if err != nil {
		return err
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "begin")
	}
	defer tx.Rollback(ctx)

	const updateOrder = `
		UPDATE orders
		SET status = $2, billing = $3, shipping = $4, payment_method = $5,
			payment_method_title = $6, customer_note = $7, transaction_id = $8,
			subtotal = $9, total = $10, metadata = $11, updated_at = now()
		WHERE id = $1`

	tag, err := tx.Exec(ctx, updateOrder,
		o.ID, o.Status, billing, shipping, o.PaymentMethod,
		o.PaymentMethodTitle, o.CustomerNote, o.TransactionID, o.Subtotal, o.Total, metadata)
	if err != nil {
		return errors.Wrap(err, "update order")
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}

	for _, table := range []string{"order_items", "order_shipping_lines", "order_fees", "order_notes"} {
		if _, err := tx.Exec(ctx, "DELETE FROM "+table+" WHERE order_id = $1", o.ID); err != nil {
			return errors.Wrapf(err, "clear %s", table)
		}
	}
	if err := insertChildren(ctx, tx, o); err != nil {
		return err
	}

	return errors.Wrap(tx.Commit(ctx), "commit")
}

// Get loads an order with all child rows. Returns order.ErrNotFound when the
// id does not resolve.
func (r *OrderRepository) Get(ctx context.Context, id int64) (*order.Order, error) {
	const q = `
		SELECT id, order_key, status, billing, shipping, payment_method,
			payment_method_title, customer_note, transaction_id, subtotal, total,
			metadata, created_at, updated_at
		FROM orders WHERE id = $1`

	var (
		o                           order.Order
		billing, shipping, metadata []byte
	)
	err := r.pool.QueryRow(ctx, q, id).Scan(
		&o.ID, &o.Key, &o.Status, &billing, &shipping, &o.PaymentMethod,
		&o.PaymentMethodTitle, &o.CustomerNote, &o.TransactionID, &o.Subtotal, &o.Total,
		&metadata, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get order %d", id)
	}

	if err := json.Unmarshal(billing, &o.Billing); err != nil {
		return nil, errors.Wrap(err, "decode billing")
	}
	if err := json.Unmarshal(shipping, &o.Shipping); err != nil {
		return nil, errors.Wrap(err, "decode shipping")
	}
	if err := json.Unmarshal(metadata, &o.Metadata); err != nil {
		return nil, errors.Wrap(err, "decode metadata")
	}

	if err := r.loadChildren(ctx, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *OrderRepository) loadChildren(ctx context.Context, o *order.Order) error {
	itemRows, err := r.pool.Query(ctx,
		`SELECT product_id, name, quantity, unit_price, total, meta
		 FROM order_items WHERE order_id = $1 ORDER BY id`, o.ID)
	if err != nil {
		return errors.Wrap(err, "query items")
	}
	defer itemRows.Close()
	for itemRows.Next() {
		var (
			item order.LineItem
			meta []byte
		)
		if err := itemRows.Scan(&item.ProductID, &item.Name, &item.Quantity, &item.UnitPrice, &item.Total, &meta); err != nil {
			return errors.Wrap(err, "scan item")
		}
		if err := json.Unmarshal(meta, &item.Meta); err != nil {
			return errors.Wrap(err, "decode item meta")
		}
		o.Items = append(o.Items, item)
	}
	if err := itemRows.Err(); err != nil {
		return errors.Wrap(err, "items")
	}

	shipRows, err := r.pool.Query(ctx,
		`SELECT method_id, method_title, total, meta
		 FROM order_shipping_lines WHERE order_id = $1 ORDER BY id`, o.ID)
	if err != nil {
		return errors.Wrap(err, "query shipping lines")
	}
	defer shipRows.Close()
	for shipRows.Next() {
		var (
			sl   order.ShippingLine
			meta []byte
		)
		if err := shipRows.Scan(&sl.MethodID, &sl.MethodTitle, &sl.Total, &meta); err != nil {
			return errors.Wrap(err, "scan shipping line")
		}
		if err := json.Unmarshal(meta, &sl.Meta); err != nil {
			return errors.Wrap(err, "decode shipping meta")
		}
		o.ShippingLines = append(o.ShippingLines, sl)
	}
	if err := shipRows.Err(); err != nil {
		return errors.Wrap(err, "shipping lines")
	}

	feeRows, err := r.pool.Query(ctx,
		`SELECT name, amount FROM order_fees WHERE order_id = $1 ORDER BY id`, o.ID)
	if err != nil {
		return errors.Wrap(err, "query fees")
	}
	defer feeRows.Close()
	for feeRows.Next() {
		var f order.FeeLine
		if err := feeRows.Scan(&f.Name, &f.Amount); err != nil {
			return errors.Wrap(err, "scan fee")
		}
		o.Fees = append(o.Fees, f)
	}
	if err := feeRows.Err(); err != nil {
		return errors.Wrap(err, "fees")
	}

	noteRows, err := r.pool.Query(ctx,
		`SELECT note, created_at FROM order_notes WHERE order_id = $1 ORDER BY id`, o.ID)
	if err != nil {
		return errors.Wrap(err, "query notes")
	}
	defer noteRows.Close()
	for noteRows.Next() {
		var n order.Note
		if err := noteRows.Scan(&n.Text, &n.CreatedAt); err != nil {
			return errors.Wrap(err, "scan note")
		}
		o.Notes = append(o.Notes, n)
	}
	return errors.Wrap(noteRows.Err(), "notes")
}

func insertChildren(ctx context.Context, tx pgx.Tx, o *order.Order) error {
	for _, item := range o.Items {
		meta, err := encodeMeta(item.Meta)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO order_items (order_id, product_id, name, quantity, unit_price, total, meta)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			o.ID, item.ProductID, item.Name, item.Quantity, item.UnitPrice, item.Total, meta)
		if err != nil {
			return errors.Wrap(err, "insert item")
		}
	}

	for _, sl := range o.ShippingLines {
		meta, err := encodeMeta(sl.Meta)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO order_shipping_lines (order_id, method_id, method_title, total, meta)
			 VALUES ($1, $2, $3, $4, $5)`,
			o.ID, sl.MethodID, sl.MethodTitle, sl.Total, meta)
		if err != nil {
			return errors.Wrap(err, "insert shipping line")
		}
	}

	for _, f := range o.Fees {
		if _, err := tx.Exec(ctx,
			`INSERT INTO order_fees (order_id, name, amount) VALUES ($1, $2, $3)`,
			o.ID, f.Name, f.Amount); err != nil {
			return errors.Wrap(err, "insert fee")
		}
	}

	for _, n := range o.Notes {
		if _, err := tx.Exec(ctx,
			`INSERT INTO order_notes (order_id, note, created_at) VALUES ($1, $2, $3)`,
			o.ID, n.Text, n.CreatedAt); err != nil {
			return errors.Wrap(err, "insert note")
		}
	}
	return nil
}

func encodeOrderJSON(o *order.Order) (billing, shipping, metadata []byte, err error) {
	if billing, err = json.Marshal(o.Billing); err != nil {
		return nil, nil, nil, errors.Wrap(err, "encode billing")
	}
	if shipping, err = json.Marshal(o.Shipping); err != nil {
		return nil, nil, nil, errors.Wrap(err, "encode shipping")
	}
	meta := o.Metadata
	if meta == nil {
		meta = map[string]string{}
	}
	if metadata, err = json.Marshal(meta); err != nil {
		return nil, nil, nil, errors.Wrap(err, "encode metadata")
	}
	return billing, shipping, metadata, nil
}

func encodeMeta(meta []order.MetaEntry) ([]byte, error) {
	if meta == nil {
		meta = []order.MetaEntry{}
	}
	b, err := json.Marshal(meta)
	if err != nil {
		return nil, errors.Wrap(err, "encode meta")
	}
	return b, nil
}
