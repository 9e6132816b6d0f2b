package notification_service

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	EventPaymentConfirmed = "payment.confirmed"
	EventBookingReceived  = "booking.received"
)

// Envelope is the message body put on the notification queue.
type Envelope struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

type PaymentConfirmed struct {
	PaymentID     uuid.UUID       `json:"payment_id"`
	BookingID     uuid.UUID       `json:"booking_id"`
	Email         string          `json:"email"`
	Name          string          `json:"name"`
	ListingTitle  string          `json:"listing_title"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	PaymentMethod string          `json:"payment_method"`
}

type BookingReceived struct {
	BookingID    uuid.UUID       `json:"booking_id"`
	Email        string          `json:"email"`
	Name         string          `json:"name"`
	ListingTitle string          `json:"listing_title"`
	CheckIn      string          `json:"check_in"`
	CheckOut     string          `json:"check_out"`
	Guests       int             `json:"guests"`
	TotalPrice   decimal.Decimal `json:"total_price"`
	Currency     string          `json:"currency"`
}

// Event ids are derived from the subject so redeliveries share a
// de-duplication key.
func paymentConfirmedID(paymentID uuid.UUID) string {
	return EventPaymentConfirmed + ":" + paymentID.String()
}

func bookingReceivedID(bookingID uuid.UUID) string {
	return EventBookingReceived + ":" + bookingID.String()
}

func newEnvelope(id, eventType string, payload interface{}) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{
		ID:         id,
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
		Payload:    raw,
	})
}
