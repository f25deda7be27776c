// Package attempt persists the audit trail of checkout submissions.
package attempt

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"storefront-checkout/internal/domain"
)

type Repository interface {
	RecordAttempt(ctx context.Context, a domain.CheckoutAttempt) error
	ListBySession(ctx context.Context, sessionID string) ([]domain.CheckoutAttempt, error)
}

type postgresRepo struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) Repository {
	return &postgresRepo{pool: pool}
}

func (r *postgresRepo) RecordAttempt(ctx context.Context, a domain.CheckoutAttempt) error {
	const q = `
INSERT INTO checkout_attempts (id, session_id, outcome, order_id, message, total, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (id) DO NOTHING
`
	_, err := r.pool.Exec(ctx, q, a.ID, a.SessionID, a.Outcome, a.OrderID, a.Message, a.Total, a.CreatedAt)
	return err
}

func (r *postgresRepo) ListBySession(ctx context.Context, sessionID string) ([]domain.CheckoutAttempt, error) {
	const q = `
SELECT id::text, session_id, outcome, order_id, message, total, created_at
FROM checkout_attempts
WHERE session_id = $1
ORDER BY created_at ASC
`
	rows, err := r.pool.Query(ctx, q, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.CheckoutAttempt
	for rows.Next() {
		var a domain.CheckoutAttempt
		if err := rows.Scan(&a.ID, &a.SessionID, &a.Outcome, &a.OrderID, &a.Message, &a.Total, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
