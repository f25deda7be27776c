package attempt

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"storefront-checkout/internal/domain"
	"storefront-checkout/internal/migrate"
)

func TestPostgres_RecordAndList(t *testing.T) {
	ctx := context.Background()
	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN not set")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	defer pool.Close()

	if err := migrate.Apply(ctx, pool); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	if _, err := pool.Exec(ctx, `TRUNCATE checkout_attempts`); err != nil {
		t.Fatalf("truncate: %v", err)
	}

	repo := NewPostgres(pool)
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	first := domain.CheckoutAttempt{ID: uuid.NewString(), SessionID: "s1", Outcome: "failed", Message: "timeout", Total: 290, CreatedAt: base}
	second := domain.CheckoutAttempt{ID: uuid.NewString(), SessionID: "s1", Outcome: "succeeded", OrderID: "ord-1", Total: 290, CreatedAt: base.Add(time.Minute)}
	for _, a := range []domain.CheckoutAttempt{second, first, first} {
		if err := repo.RecordAttempt(ctx, a); err != nil {
			t.Fatalf("RecordAttempt: %v", err)
		}
	}

	got, err := repo.ListBySession(ctx, "s1")
	if err != nil {
		t.Fatalf("ListBySession: %v", err)
	}
	if len(got) != 2 || got[0].Outcome != "failed" || got[1].OrderID != "ord-1" {
		t.Fatalf("unexpected attempts %+v", got)
	}
}
