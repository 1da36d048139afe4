/*
Package notify publishes committed check-ins to RabbitMQ.

PURPOSE:
  Housekeeping, the restaurant and the WhatsApp report job react to guests
  arriving. The check-in service hands each committed CheckedIn event to a
  Publisher, which writes it as a persistent JSON message to a durable
  queue on the default exchange.

DELIVERY:
  Best effort. The check-in is already committed when the event is
  published; a broker failure is logged by the caller and never undoes it.

SEE ALSO:
  - checkin/events.go: Event type and Notifier interface
*/
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/adf/settlement-engine/checkin"
)

const EventCheckedIn = "frontdesk.checked_in"

// Channel is the part of *amqp.Channel the publisher uses.
type Channel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher implements checkin.Notifier.
type Publisher struct {
	mu    sync.Mutex
	ch    Channel
	conn  *amqp.Connection
	queue string
	now   func() time.Time
}

var _ checkin.Notifier = (*Publisher)(nil)

// Dial connects to url and declares queue.
func Dial(url, queue string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq dial failed: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("rabbitmq channel open failed: %w", err)
	}
	p, err := NewPublisher(ch, queue)
	if err != nil {
		conn.Close()
		return nil, err
	}
	p.conn = conn
	return p, nil
}

// NewPublisher declares queue (durable) on ch.
func NewPublisher(ch Channel, queue string) (*Publisher, error) {
	if queue == "" {
		queue = EventCheckedIn
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("rabbitmq queue declare failed: %w", err)
	}
	return &Publisher{ch: ch, queue: queue, now: time.Now}, nil
}

func (p *Publisher) PublishCheckedIn(ctx context.Context, e checkin.CheckedIn) error {
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal check-in event: %w", err)
	}
	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    fmt.Sprintf("checkin-%d", e.BookingID),
		Type:         EventCheckedIn,
		Timestamp:    p.now().UTC(),
		Body:         body,
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.ch.PublishWithContext(ctx, "", p.queue, false, false, msg); err != nil {
		return fmt.Errorf("rabbitmq publish failed: %w", err)
	}
	return nil
}

// Close closes the channel and, for Dial'ed publishers, the connection.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	err := p.ch.Close()
	if p.conn != nil {
		err = errors.Join(err, p.conn.Close())
	}
	return err
}
