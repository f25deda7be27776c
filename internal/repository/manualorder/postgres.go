package manualorder

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"storefront-checkout/internal/domain"
)

type postgresRepo struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) Repository {
	return &postgresRepo{pool: pool}
}

// Create stores the order and its items in one transaction.
func (r *postgresRepo) Create(ctx context.Context, order domain.ManualOrder) (*domain.ManualOrder, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	const q = `
INSERT INTO manual_orders (customer_name, email, phone, shipping_address, payment_method, notes, shipping_fee, discount, subtotal, total, created_by)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
RETURNING id::text, created_at
`
	if err := tx.QueryRow(ctx, q,
		order.CustomerName,
		order.Email,
		order.Phone,
		order.ShippingAddress,
		string(order.PaymentMethod),
		order.Notes,
		order.ShippingFee,
		order.Discount,
		order.Subtotal,
		order.Total,
		order.CreatedBy,
	).Scan(&order.ID, &order.CreatedAt); err != nil {
		return nil, err
	}

	const itemQ = `
INSERT INTO manual_order_items (order_id, position, product_id, variant_id, name, price, quantity, discount_amount, discount_percent, total)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
`
	batch := &pgx.Batch{}
	for i, it := range order.Items {
		batch.Queue(itemQ, order.ID, i, it.ProductID, it.VariantID, it.Name, it.Price, it.Quantity, it.DiscountAmount, it.DiscountPercent, it.Total)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23514" {
			return nil, domain.ValidationError{Fields: domain.FieldErrorMap{"items": "Item values are out of range"}}
		}
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.ManualOrder, error) {
	const q = `
SELECT id::text, customer_name, email, phone, shipping_address, payment_method, notes, shipping_fee, discount, subtotal, total, created_by, created_at
FROM manual_orders
WHERE id::text = $1
`
	order, err := scanOrder(r.pool.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	const itemsQ = `
SELECT product_id, variant_id, name, price, quantity, discount_amount, discount_percent, total
FROM manual_order_items
WHERE order_id = $1
ORDER BY position ASC
`
	rows, err := r.pool.Query(ctx, itemsQ, order.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var it domain.ManualOrderItem
		if err := rows.Scan(
			&it.ProductID,
			&it.VariantID,
			&it.Name,
			&it.Price,
			&it.Quantity,
			&it.DiscountAmount,
			&it.DiscountPercent,
			&it.Total,
		); err != nil {
			return nil, err
		}
		order.Items = append(order.Items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return order, nil
}

// List returns order headers without items.
func (r *postgresRepo) List(ctx context.Context, filter ListFilter) ([]domain.ManualOrder, error) {
	const q = `
SELECT id::text, customer_name, email, phone, shipping_address, payment_method, notes, shipping_fee, discount, subtotal, total, created_by, created_at
FROM manual_orders
ORDER BY created_at DESC, id
LIMIT $1 OFFSET $2
`
	rows, err := r.pool.Query(ctx, q, filter.Limit, filter.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.ManualOrder
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *order)
	}
	return out, rows.Err()
}

func scanOrder(row pgx.Row) (*domain.ManualOrder, error) {
	var o domain.ManualOrder
	var method string
	if err := row.Scan(
		&o.ID,
		&o.CustomerName,
		&o.Email,
		&o.Phone,
		&o.ShippingAddress,
		&method,
		&o.Notes,
		&o.ShippingFee,
		&o.Discount,
		&o.Subtotal,
		&o.Total,
		&o.CreatedBy,
		&o.CreatedAt,
	); err != nil {
		return nil, err
	}
	o.PaymentMethod = domain.PaymentMethod(method)
	return &o, nil
}
