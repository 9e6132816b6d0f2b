package payment_models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joy095/staybook/logger"
	"github.com/shopspring/decimal"
)

const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

var (
	ErrPaymentNotFound = errors.New("payment not found")
	ErrBookingNotFound = errors.New("booking not found")
	ErrPaymentExists   = errors.New("payment already exists for booking")
)

// Payment is one settlement attempt for a booking. A booking owns at most one
// payment row; failed attempts are retried by reusing it.
type Payment struct {
	ID                uuid.UUID       `json:"id"`
	BookingID         uuid.UUID       `json:"booking_id"`
	TransactionID     *string         `json:"transaction_id"`
	ProviderReference *string         `json:"provider_reference"`
	CheckoutURL       *string         `json:"checkout_url,omitempty"`
	Gateway           string          `json:"gateway"`
	Amount            decimal.Decimal `json:"amount"`
	Currency          string          `json:"currency"`
	Status            string          `json:"status"`
	PaymentMethod     *string         `json:"payment_method"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`

	// Owner of the parent booking.
	UserID    uuid.UUID `json:"-"`
	UserEmail string    `json:"-"`
}

// BookingSummary is the booking data needed to open a payment.
type BookingSummary struct {
	BookingID    uuid.UUID
	ListingID    uuid.UUID
	UserID       uuid.UUID
	Status       string
	TotalPrice   decimal.Decimal
	ListingTitle string
	Email        string
	FirstName    string
	LastName     string
	Username     string
	PhoneNumber  string
}

// NewPayment creates a pending payment for a booking.
func NewPayment(bookingID uuid.UUID, amount decimal.Decimal, currency, gateway string) (*Payment, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate UUID for payment: %w", err)
	}
	now := time.Now()
	return &Payment{
		ID:        id,
		BookingID: bookingID,
		Gateway:   gateway,
		Amount:    amount,
		Currency:  currency,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Store reads and writes payments over pgxpool.
type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

const selectPayment = `
	SELECT p.id, p.booking_id, p.transaction_id, p.provider_reference, p.checkout_url, p.gateway,
	       p.amount, p.currency, p.status, p.payment_method, p.created_at, p.updated_at,
	       b.user_id, u.email
	FROM payments p
	JOIN bookings b ON b.id = p.booking_id
	JOIN users u ON u.id = b.user_id
`

func scanPayment(row pgx.Row) (*Payment, error) {
	p := &Payment{}
	err := row.Scan(
		&p.ID,
		&p.BookingID,
		&p.TransactionID,
		&p.ProviderReference,
		&p.CheckoutURL,
		&p.Gateway,
		&p.Amount,
		&p.Currency,
		&p.Status,
		&p.PaymentMethod,
		&p.CreatedAt,
		&p.UpdatedAt,
		&p.UserID,
		&p.UserEmail,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}
	return p, nil
}

func (s *Store) GetBookingSummary(ctx context.Context, bookingID uuid.UUID) (*BookingSummary, error) {
	b := &BookingSummary{}
	err := s.DB.QueryRow(ctx, `
		SELECT b.id, b.listing_id, b.user_id, b.status, b.total_price, l.title,
		       u.email, u.first_name, u.last_name, u.username, u.phone_number
		FROM bookings b
		JOIN listings l ON l.id = b.listing_id
		JOIN users u ON u.id = b.user_id
		WHERE b.id = $1`, bookingID).Scan(
		&b.BookingID,
		&b.ListingID,
		&b.UserID,
		&b.Status,
		&b.TotalPrice,
		&b.ListingTitle,
		&b.Email,
		&b.FirstName,
		&b.LastName,
		&b.Username,
		&b.PhoneNumber,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		logger.ErrorLogger.Errorf("Failed to fetch booking %s for payment: %v", bookingID, err)
		return nil, fmt.Errorf("database error fetching booking: %w", err)
	}
	return b, nil
}

func (s *Store) GetByID(ctx context.Context, id uuid.UUID) (*Payment, error) {
	p, err := scanPayment(s.DB.QueryRow(ctx, selectPayment+` WHERE p.id = $1`, id))
	if err != nil && !errors.Is(err, ErrPaymentNotFound) {
		logger.ErrorLogger.Errorf("Failed to fetch payment %s: %v", id, err)
		return nil, fmt.Errorf("database error fetching payment: %w", err)
	}
	return p, err
}

func (s *Store) GetByBookingID(ctx context.Context, bookingID uuid.UUID) (*Payment, error) {
	p, err := scanPayment(s.DB.QueryRow(ctx, selectPayment+` WHERE p.booking_id = $1`, bookingID))
	if err != nil && !errors.Is(err, ErrPaymentNotFound) {
		logger.ErrorLogger.Errorf("Failed to fetch payment for booking %s: %v", bookingID, err)
		return nil, fmt.Errorf("database error fetching payment: %w", err)
	}
	return p, err
}

func (s *Store) GetByTransactionID(ctx context.Context, txRef string) (*Payment, error) {
	p, err := scanPayment(s.DB.QueryRow(ctx, selectPayment+` WHERE p.transaction_id = $1`, txRef))
	if err != nil && !errors.Is(err, ErrPaymentNotFound) {
		logger.ErrorLogger.Errorf("Failed to fetch payment by transaction %s: %v", txRef, err)
		return nil, fmt.Errorf("database error fetching payment: %w", err)
	}
	return p, err
}

// Create inserts a new payment. ErrPaymentExists means another request
// already opened a payment for the booking.
func (s *Store) Create(ctx context.Context, p *Payment) error {
	tag, err := s.DB.Exec(ctx, `
		INSERT INTO payments (id, booking_id, gateway, amount, currency, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (booking_id) DO NOTHING`,
		p.ID, p.BookingID, p.Gateway, p.Amount, p.Currency, p.Status, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		logger.ErrorLogger.Errorf("Failed to create payment for booking %s: %v", p.BookingID, err)
		return fmt.Errorf("database error creating payment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrPaymentExists
	}
	return nil
}

// AssignTransaction stores a fresh transaction reference on a payment that is
// either awaiting its first checkout or being retried after failing. It
// reports false when the payment moved on concurrently.
func (s *Store) AssignTransaction(ctx context.Context, id uuid.UUID, txRef string, amount decimal.Decimal, currency, gateway string) (bool, error) {
	tag, err := s.DB.Exec(ctx, `
		UPDATE payments
		SET transaction_id = $2, provider_reference = NULL, checkout_url = NULL, payment_method = NULL,
		    amount = $3, currency = $4, gateway = $5, status = 'pending', updated_at = NOW()
		WHERE id = $1
		  AND (status IN ('failed', 'cancelled') OR (status = 'pending' AND checkout_url IS NULL))`,
		id, txRef, amount, currency, gateway)
	if err != nil {
		logger.ErrorLogger.Errorf("Failed to assign transaction %s to payment %s: %v", txRef, id, err)
		return false, fmt.Errorf("database error assigning transaction: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// RecordCheckout stores what the provider returned for the current
// transaction. It reports false when another initiation replaced the
// transaction reference in the meantime.
func (s *Store) RecordCheckout(ctx context.Context, id uuid.UUID, txRef, providerRef, checkoutURL string) (bool, error) {
	tag, err := s.DB.Exec(ctx, `
		UPDATE payments
		SET provider_reference = NULLIF($3, ''), checkout_url = $4, updated_at = NOW()
		WHERE id = $1 AND transaction_id = $2 AND status = 'pending'`,
		id, txRef, providerRef, checkoutURL)
	if err != nil {
		logger.ErrorLogger.Errorf("Failed to record checkout for payment %s: %v", id, err)
		return false, fmt.Errorf("database error recording checkout: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Complete moves a pending payment to completed and confirms its booking in
// the same transaction. It reports false when the payment was not pending,
// which makes concurrent verify and callback deliveries converge: exactly one
// caller observes true.
func (s *Store) Complete(ctx context.Context, id uuid.UUID, method string) (bool, error) {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var bookingID uuid.UUID
	err = tx.QueryRow(ctx, `
		UPDATE payments
		SET status = 'completed', payment_method = NULLIF($2, ''), updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
		RETURNING booking_id`, id, method).Scan(&bookingID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		logger.ErrorLogger.Errorf("Failed to complete payment %s: %v", id, err)
		return false, fmt.Errorf("database error completing payment: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		UPDATE bookings SET status = 'confirmed', updated_at = NOW()
		WHERE id = $1 AND status = 'pending'`, bookingID); err != nil {
		logger.ErrorLogger.Errorf("Failed to confirm booking %s: %v", bookingID, err)
		return false, fmt.Errorf("database error confirming booking: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("failed to commit payment completion: %w", err)
	}
	return true, nil
}

// Fail moves a pending payment to failed. It reports false when the payment
// was not pending.
func (s *Store) Fail(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := s.DB.Exec(ctx, `
		UPDATE payments SET status = 'failed', updated_at = NOW()
		WHERE id = $1 AND status = 'pending'`, id)
	if err != nil {
		logger.ErrorLogger.Errorf("Failed to mark payment %s failed: %v", id, err)
		return false, fmt.Errorf("database error failing payment: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
