package notification_service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/joy095/staybook/config"
	"github.com/joy095/staybook/config/rabbitmq"
	"github.com/joy095/staybook/logger"
	"github.com/joy095/staybook/utils/mail"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// Mailer is satisfied by *mail.Mailer.
type Mailer interface {
	SendPaymentConfirmation(to string, data mail.PaymentConfirmationData) error
	SendBookingReceived(to string, data mail.BookingReceivedData) error
}

// Worker turns queued events into emails.
type Worker struct {
	mailer  Mailer
	deduper Deduper
}

// NewWorker builds a worker. deduper may be nil, in which case every delivery
// is mailed.
func NewWorker(mailer Mailer, deduper Deduper) *Worker {
	return &Worker{mailer: mailer, deduper: deduper}
}

var errUnknownEvent = errors.New("unknown notification event type")

// Handle processes one message body. Send failures are logged and returned
// but the caller acknowledges the message either way; notifications are not
// retried.
func (w *Worker) Handle(ctx context.Context, body []byte) error {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("unmarshal envelope: %w", err)
	}

	log := logger.InfoLogger.WithFields(logrus.Fields{"event_id": env.ID, "event_type": env.Type})

	if w.deduper != nil && env.ID != "" {
		claimed, err := w.deduper.Claim(ctx, env.ID)
		if err != nil {
			logger.WarnLogger.Warnf("Dedup claim failed for %s, sending anyway: %v", env.ID, err)
		} else if !claimed {
			log.Info("Notification already sent, skipping redelivery")
			return nil
		}
	}

	err := w.deliver(env)
	if err != nil && w.deduper != nil && env.ID != "" {
		if relErr := w.deduper.Release(ctx, env.ID); relErr != nil {
			logger.WarnLogger.Warnf("Failed to release dedup claim for %s: %v", env.ID, relErr)
		}
	}
	if err == nil {
		log.Info("Notification delivered")
	}
	return err
}

func (w *Worker) deliver(env Envelope) error {
	switch env.Type {
	case EventPaymentConfirmed:
		var e PaymentConfirmed
		if err := json.Unmarshal(env.Payload, &e); err != nil {
			return fmt.Errorf("unmarshal %s: %w", env.Type, err)
		}
		return w.mailer.SendPaymentConfirmation(e.Email, mail.PaymentConfirmationData{
			Name:          e.Name,
			BookingID:     e.BookingID.String(),
			ListingTitle:  e.ListingTitle,
			Amount:        e.Amount.StringFixed(2),
			Currency:      e.Currency,
			PaymentMethod: e.PaymentMethod,
		})

	case EventBookingReceived:
		var e BookingReceived
		if err := json.Unmarshal(env.Payload, &e); err != nil {
			return fmt.Errorf("unmarshal %s: %w", env.Type, err)
		}
		return w.mailer.SendBookingReceived(e.Email, mail.BookingReceivedData{
			Name:         e.Name,
			BookingID:    e.BookingID.String(),
			ListingTitle: e.ListingTitle,
			CheckIn:      e.CheckIn,
			CheckOut:     e.CheckOut,
			Guests:       e.Guests,
			TotalPrice:   e.TotalPrice.StringFixed(2),
			Currency:     e.Currency,
		})
	}
	return fmt.Errorf("%w: %q", errUnknownEvent, env.Type)
}

// Run consumes the notification queue until ctx is cancelled, reconnecting
// whenever the broker drops the connection.
func (w *Worker) Run(ctx context.Context, cfg config.QueueConfig) error {
	for {
		conn, err := rabbitmq.Dial(ctx, cfg.URL)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		err = w.consume(ctx, conn, cfg)
		_ = conn.Close()

		if ctx.Err() != nil {
			return nil
		}
		logger.WarnLogger.Warnf("Notification consumer stopped: %v; reconnecting", err)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(2 * time.Second):
		}
	}
}

func (w *Worker) consume(ctx context.Context, conn *amqp.Connection, cfg config.QueueConfig) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(cfg.PrefetchCount, 0, false); err != nil {
		logger.WarnLogger.Warnf("Set QoS failed: %v", err)
	}
	if err := rabbitmq.DeclareQueue(ch, cfg.NotificationQueue); err != nil {
		return err
	}

	deliveries, err := ch.Consume(cfg.NotificationQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}
	logger.InfoLogger.Infof("Consuming notifications from %s", cfg.NotificationQueue)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := w.Handle(ctx, d.Body); err != nil {
				logger.ErrorLogger.Errorf("Notification %s failed: %v", d.MessageId, err)
			}
			_ = d.Ack(false)
		}
	}
}
