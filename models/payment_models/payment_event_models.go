package payment_models

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/joy095/staybook/logger"
)

const (
	SourceVerify   = "verify"
	SourceCallback = "callback"
)

// PaymentEvent is an audit row for every settlement attempt, applied or not.
type PaymentEvent struct {
	ID             uuid.UUID `json:"id"`
	PaymentID      uuid.UUID `json:"payment_id"`
	Source         string    `json:"source"`
	TransactionID  string    `json:"transaction_id"`
	ProviderStatus string    `json:"provider_status"`
	PreviousStatus string    `json:"previous_status"`
	NewStatus      string    `json:"new_status"`
	Applied        bool      `json:"applied"`
	CreatedAt      time.Time `json:"created_at"`
}

func (s *Store) RecordEvent(ctx context.Context, e *PaymentEvent) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	_, err := s.DB.Exec(ctx, `
		INSERT INTO payment_events
			(id, payment_id, source, transaction_id, provider_status, previous_status, new_status, applied, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())`,
		e.ID, e.PaymentID, e.Source, e.TransactionID, e.ProviderStatus, e.PreviousStatus, e.NewStatus, e.Applied)
	if err != nil {
		logger.ErrorLogger.Errorf("Failed to record payment event for %s: %v", e.PaymentID, err)
		return fmt.Errorf("database error recording payment event: %w", err)
	}
	return nil
}

func (s *Store) ListEvents(ctx context.Context, paymentID uuid.UUID) ([]PaymentEvent, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT id, payment_id, source, transaction_id, provider_status, previous_status, new_status, applied, created_at
		FROM payment_events WHERE payment_id = $1 ORDER BY created_at ASC`, paymentID)
	if err != nil {
		return nil, fmt.Errorf("database error listing payment events: %w", err)
	}
	defer rows.Close()

	var events []PaymentEvent
	for rows.Next() {
		var e PaymentEvent
		if err := rows.Scan(&e.ID, &e.PaymentID, &e.Source, &e.TransactionID, &e.ProviderStatus,
			&e.PreviousStatus, &e.NewStatus, &e.Applied, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("error reading payment events: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
