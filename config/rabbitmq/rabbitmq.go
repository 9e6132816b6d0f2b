package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/joy095/staybook/logger"
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	maxBackoff = 30 * time.Second
	// publishDialTimeout bounds the single reconnect attempt made while publishing.
	publishDialTimeout = 5 * time.Second
)

var ErrMissingURL = errors.New("RABBITMQ_URL not set")

// Dial connects to the broker, retrying with exponential backoff until ctx is done.
func Dial(ctx context.Context, url string) (*amqp.Connection, error) {
	if url == "" {
		return nil, ErrMissingURL
	}

	backoff := time.Second
	for {
		conn, err := amqp.Dial(url)
		if err == nil {
			logger.InfoLogger.Info("Connected to RabbitMQ")
			return conn, nil
		}

		logger.WarnLogger.Warnf("RabbitMQ dial failed: %v; retrying in %s", err, backoff)
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("rabbitmq dial: %w", ctx.Err())
		case <-time.After(backoff):
		}
		if backoff < maxBackoff {
			backoff *= 2
		}
	}
}

// DeclareQueue declares a durable queue with the given name.
func DeclareQueue(ch *amqp.Channel, name string) error {
	if _, err := ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare %s: %w", name, err)
	}
	return nil
}

// Publisher sends persistent messages to one durable queue through the
// default exchange. A broken channel is reopened on the next publish.
type Publisher struct {
	url   string
	queue string

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewPublisher connects with the same backoff as Dial. Later reconnects made
// by Publish are a single bounded attempt so callers never wait out an outage.
func NewPublisher(ctx context.Context, url, queue string) (*Publisher, error) {
	p := &Publisher{url: url, queue: queue}
	if err := p.connect(ctx, Dial); err != nil {
		return nil, err
	}
	return p, nil
}

// dialOnce makes one connection attempt, giving up at the earlier of ctx's
// deadline and publishDialTimeout.
func dialOnce(ctx context.Context, url string) (*amqp.Connection, error) {
	if url == "" {
		return nil, ErrMissingURL
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("rabbitmq dial: %w", err)
	}

	timeout := publishDialTimeout
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < timeout {
			timeout = left
		}
	}
	conn, err := amqp.DialConfig(url, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      amqp.DefaultDial(timeout),
	})
	if err != nil {
		return nil, fmt.Errorf("rabbitmq dial: %w", err)
	}
	return conn, nil
}

func (p *Publisher) connect(ctx context.Context, dial func(context.Context, string) (*amqp.Connection, error)) error {
	if p.conn == nil || p.conn.IsClosed() {
		conn, err := dial(ctx, p.url)
		if err != nil {
			return err
		}
		p.conn = conn
	}

	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("rabbitmq channel: %w", err)
	}
	if err := DeclareQueue(ch, p.queue); err != nil {
		_ = ch.Close()
		return err
	}
	p.ch = ch
	return nil
}

func (p *Publisher) Publish(ctx context.Context, messageID, messageType string, body []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ch == nil || p.ch.IsClosed() {
		if err := p.connect(ctx, dialOnce); err != nil {
			return err
		}
	}

	err := p.ch.PublishWithContext(ctx,
		"",      // default exchange
		p.queue, // routing key = queue name
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    messageID,
			Type:         messageType,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}
	return nil
}

func (p *Publisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
}
