package notification_service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/joy095/staybook/logger"
	"github.com/joy095/staybook/utils/mail"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	logger.InitLoggers()
}

type recordingMailer struct {
	mu       sync.Mutex
	payments []mail.PaymentConfirmationData
	bookings []mail.BookingReceivedData
	to       []string
	err      error
	sent     chan struct{}
}

func (m *recordingMailer) SendPaymentConfirmation(to string, data mail.PaymentConfirmationData) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sent != nil {
		defer func() { m.sent <- struct{}{} }()
	}
	if m.err != nil {
		return m.err
	}
	m.to = append(m.to, to)
	m.payments = append(m.payments, data)
	return nil
}

func (m *recordingMailer) SendBookingReceived(to string, data mail.BookingReceivedData) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.to = append(m.to, to)
	m.bookings = append(m.bookings, data)
	return nil
}

type memoryDeduper struct {
	mu      sync.Mutex
	claimed map[string]bool
}

func (d *memoryDeduper) Claim(_ context.Context, id string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.claimed[id] {
		return false, nil
	}
	d.claimed[id] = true
	return true, nil
}

func (d *memoryDeduper) Release(_ context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.claimed, id)
	return nil
}

type capturePublisher struct {
	ids    []string
	types  []string
	bodies [][]byte
	err    error
}

func (p *capturePublisher) Publish(_ context.Context, id, typ string, body []byte) error {
	if p.err != nil {
		return p.err
	}
	p.ids = append(p.ids, id)
	p.types = append(p.types, typ)
	p.bodies = append(p.bodies, body)
	return nil
}

func samplePaymentEvent() PaymentConfirmed {
	return PaymentConfirmed{
		PaymentID:     uuid.New(),
		BookingID:     uuid.New(),
		Email:         "guest@example.com",
		Name:          "Abebe",
		ListingTitle:  "Lakeside Cabin",
		Amount:        decimal.RequireFromString("3000"),
		Currency:      "ETB",
		PaymentMethod: "telebirr",
	}
}

func TestQueueDispatcherPublishesEnvelope(t *testing.T) {
	pub := &capturePublisher{}
	d := NewQueueDispatcher(pub)
	event := samplePaymentEvent()

	require.NoError(t, d.PaymentConfirmed(context.Background(), event))
	require.Len(t, pub.bodies, 1)
	assert.Equal(t, EventPaymentConfirmed, pub.types[0])
	assert.Equal(t, "payment.confirmed:"+event.PaymentID.String(), pub.ids[0])

	var env Envelope
	require.NoError(t, json.Unmarshal(pub.bodies[0], &env))
	assert.Equal(t, pub.ids[0], env.ID)

	var decoded PaymentConfirmed
	require.NoError(t, json.Unmarshal(env.Payload, &decoded))
	assert.Equal(t, event.Email, decoded.Email)
	assert.True(t, event.Amount.Equal(decoded.Amount))
}

func TestQueueDispatcherWrapsPublishError(t *testing.T) {
	d := NewQueueDispatcher(&capturePublisher{err: errors.New("broker down")})
	err := d.BookingReceived(context.Background(), BookingReceived{BookingID: uuid.New()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")
}

func TestWorkerSendsPaymentConfirmation(t *testing.T) {
	m := &recordingMailer{}
	w := NewWorker(m, nil)
	event := samplePaymentEvent()

	body, err := newEnvelope(paymentConfirmedID(event.PaymentID), EventPaymentConfirmed, event)
	require.NoError(t, err)
	require.NoError(t, w.Handle(context.Background(), body))

	require.Len(t, m.payments, 1)
	assert.Equal(t, "guest@example.com", m.to[0])
	assert.Equal(t, "3000.00", m.payments[0].Amount)
	assert.Equal(t, event.BookingID.String(), m.payments[0].BookingID)
	assert.Equal(t, "telebirr", m.payments[0].PaymentMethod)
}

func TestWorkerSkipsRedelivery(t *testing.T) {
	m := &recordingMailer{}
	w := NewWorker(m, &memoryDeduper{claimed: map[string]bool{}})
	event := samplePaymentEvent()
	body, err := newEnvelope(paymentConfirmedID(event.PaymentID), EventPaymentConfirmed, event)
	require.NoError(t, err)

	require.NoError(t, w.Handle(context.Background(), body))
	require.NoError(t, w.Handle(context.Background(), body))
	assert.Len(t, m.payments, 1)
}

func TestWorkerReleasesClaimOnSendFailure(t *testing.T) {
	m := &recordingMailer{err: errors.New("smtp unavailable")}
	dedup := &memoryDeduper{claimed: map[string]bool{}}
	w := NewWorker(m, dedup)
	event := samplePaymentEvent()
	id := paymentConfirmedID(event.PaymentID)
	body, err := newEnvelope(id, EventPaymentConfirmed, event)
	require.NoError(t, err)

	require.Error(t, w.Handle(context.Background(), body))
	assert.False(t, dedup.claimed[id])
}

func TestWorkerRejectsUnknownEvent(t *testing.T) {
	w := NewWorker(&recordingMailer{}, nil)
	body, err := json.Marshal(Envelope{ID: "x", Type: "listing.deleted", Payload: json.RawMessage(`{}`)})
	require.NoError(t, err)

	err = w.Handle(context.Background(), body)
	assert.ErrorIs(t, err, errUnknownEvent)
}

func TestWorkerSendsBookingReceived(t *testing.T) {
	m := &recordingMailer{}
	w := NewWorker(m, nil)
	event := BookingReceived{
		BookingID:    uuid.New(),
		Email:        "guest@example.com",
		Name:         "Abebe",
		ListingTitle: "Lakeside Cabin",
		CheckIn:      "2026-11-01",
		CheckOut:     "2026-11-04",
		Guests:       2,
		TotalPrice:   decimal.RequireFromString("4500.5"),
		Currency:     "ETB",
	}
	body, err := newEnvelope(bookingReceivedID(event.BookingID), EventBookingReceived, event)
	require.NoError(t, err)

	require.NoError(t, w.Handle(context.Background(), body))
	require.Len(t, m.bookings, 1)
	assert.Equal(t, "4500.50", m.bookings[0].TotalPrice)
	assert.Equal(t, 2, m.bookings[0].Guests)
}

func TestInProcessDispatcherDeliversAsynchronously(t *testing.T) {
	m := &recordingMailer{sent: make(chan struct{}, 1)}
	d := NewInProcessDispatcher(NewWorker(m, nil))

	require.NoError(t, d.PaymentConfirmed(context.Background(), samplePaymentEvent()))

	select {
	case <-m.sent:
	case <-time.After(2 * time.Second):
		t.Fatal("notification was not delivered")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	assert.Len(t, m.payments, 1)
}
