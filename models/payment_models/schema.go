package payment_models

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schema depends on the bookings table, so it runs after the catalog migration.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS payments (
		id                 UUID PRIMARY KEY,
		booking_id         UUID NOT NULL UNIQUE REFERENCES bookings(id) ON DELETE CASCADE,
		transaction_id     VARCHAR(255) UNIQUE,
		provider_reference VARCHAR(255),
		checkout_url       TEXT,
		gateway            VARCHAR(32) NOT NULL,
		amount             NUMERIC(10, 2) NOT NULL CHECK (amount >= 0),
		currency           VARCHAR(3) NOT NULL,
		status             VARCHAR(20) NOT NULL DEFAULT 'pending'
		                   CHECK (status IN ('pending', 'completed', 'failed', 'cancelled')),
		payment_method     VARCHAR(50),
		created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at         TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_payments_status ON payments (status)`,
	`CREATE TABLE IF NOT EXISTS payment_events (
		id              UUID PRIMARY KEY,
		payment_id      UUID NOT NULL REFERENCES payments(id) ON DELETE CASCADE,
		source          VARCHAR(16) NOT NULL,
		transaction_id  VARCHAR(255) NOT NULL,
		provider_status VARCHAR(50) NOT NULL,
		previous_status VARCHAR(20) NOT NULL,
		new_status      VARCHAR(20) NOT NULL,
		applied         BOOLEAN NOT NULL,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_payment_events_payment ON payment_events (payment_id)`,
}

func EnsureSchema(ctx context.Context, db *pgxpool.Pool) error {
	for _, stmt := range schema {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply payment schema: %w", err)
		}
	}
	return nil
}
