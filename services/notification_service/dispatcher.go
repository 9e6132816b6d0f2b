package notification_service

import (
	"context"
	"fmt"
	"time"

	"github.com/joy095/staybook/logger"
)

// DispatchTimeout bounds how long a request path waits to hand off an event.
const DispatchTimeout = 5 * time.Second

// Dispatcher enqueues notification events. Implementations return as soon as
// the event is handed off; delivery happens in a worker.
type Dispatcher interface {
	PaymentConfirmed(ctx context.Context, event PaymentConfirmed) error
	BookingReceived(ctx context.Context, event BookingReceived) error
}

// Publisher is satisfied by *rabbitmq.Publisher.
type Publisher interface {
	Publish(ctx context.Context, messageID, messageType string, body []byte) error
}

// QueueDispatcher publishes events to the notification queue.
type QueueDispatcher struct {
	publisher Publisher
}

func NewQueueDispatcher(p Publisher) *QueueDispatcher {
	return &QueueDispatcher{publisher: p}
}

func (d *QueueDispatcher) PaymentConfirmed(ctx context.Context, event PaymentConfirmed) error {
	return d.publish(ctx, paymentConfirmedID(event.PaymentID), EventPaymentConfirmed, event)
}

func (d *QueueDispatcher) BookingReceived(ctx context.Context, event BookingReceived) error {
	return d.publish(ctx, bookingReceivedID(event.BookingID), EventBookingReceived, event)
}

func (d *QueueDispatcher) publish(ctx context.Context, id, eventType string, payload interface{}) error {
	body, err := newEnvelope(id, eventType, payload)
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", eventType, err)
	}
	if err := d.publisher.Publish(ctx, id, eventType, body); err != nil {
		return fmt.Errorf("failed to enqueue %s event: %w", eventType, err)
	}
	logger.InfoLogger.Infof("Enqueued %s notification %s", eventType, id)
	return nil
}

// InProcessDispatcher hands events to a Worker on a goroutine. It is used when
// no broker is configured, so request handlers still never wait on SMTP.
type InProcessDispatcher struct {
	worker *Worker
}

func NewInProcessDispatcher(w *Worker) *InProcessDispatcher {
	return &InProcessDispatcher{worker: w}
}

func (d *InProcessDispatcher) PaymentConfirmed(ctx context.Context, event PaymentConfirmed) error {
	return d.dispatch(paymentConfirmedID(event.PaymentID), EventPaymentConfirmed, event)
}

func (d *InProcessDispatcher) BookingReceived(ctx context.Context, event BookingReceived) error {
	return d.dispatch(bookingReceivedID(event.BookingID), EventBookingReceived, event)
}

func (d *InProcessDispatcher) dispatch(id, eventType string, payload interface{}) error {
	body, err := newEnvelope(id, eventType, payload)
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", eventType, err)
	}
	go func() {
		if err := d.worker.Handle(context.Background(), body); err != nil {
			logger.ErrorLogger.Errorf("In-process notification %s failed: %v", id, err)
		}
	}()
	return nil
}
