// Package events publishes persisted activity entries to RabbitMQ so other
// services can react to them. Publishing is best effort: failures are logged
// and returned, and callers are free to ignore them.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"adeptify/internal/model"
)

// ActivityQueue is the durable queue activity events are routed to.
const ActivityQueue = "activity.logged"

// Publisher delivers activity events downstream.
type Publisher interface {
	PublishActivity(ctx context.Context, entry model.ActivityLog) error
	Close() error
}

// ActivityEvent is the message body published for each entry.
type ActivityEvent struct {
	ID        string               `json:"id"`
	Action    model.ActivityAction `json:"action"`
	Table     string               `json:"tableName"`
	RecordID  string               `json:"recordId,omitempty"`
	UserID    string               `json:"userId,omitempty"`
	CentreID  string               `json:"centreId,omitempty"`
	CreatedAt time.Time            `json:"createdAt"`
}

// NewActivityEvent converts a stored entry into its wire form.
func NewActivityEvent(entry model.ActivityLog) ActivityEvent {
	ev := ActivityEvent{
		ID:        entry.ID.String(),
		Action:    entry.Action,
		Table:     entry.TargetTable,
		CreatedAt: entry.CreatedAt.UTC(),
	}
	if entry.RecordID != nil {
		ev.RecordID = *entry.RecordID
	}
	if entry.UserID != nil {
		ev.UserID = entry.UserID.String()
	}
	if entry.CentreID != nil {
		ev.CentreID = *entry.CentreID
	}
	return ev
}

// NoopPublisher discards events. Used when no broker is configured.
type NoopPublisher struct{}

func (NoopPublisher) PublishActivity(context.Context, model.ActivityLog) error { return nil }
func (NoopPublisher) Close() error                                             { return nil }

// Fanout delivers every event to each publisher in turn.
type Fanout []Publisher

func (f Fanout) PublishActivity(ctx context.Context, entry model.ActivityLog) error {
	var errs []error
	for _, p := range f {
		if err := p.PublishActivity(ctx, entry); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f Fanout) Close() error {
	var errs []error
	for _, p := range f {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// AMQPPublisher keeps one connection and channel open and redials lazily
// after the broker drops them.
type AMQPPublisher struct {
	url    string
	logger *zap.Logger

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewAMQPPublisher returns a publisher for url. No connection is made until
// the first publish.
func NewAMQPPublisher(url string, logger *zap.Logger) *AMQPPublisher {
	return &AMQPPublisher{url: url, logger: logger.Named("amqp")}
}

// PublishActivity sends entry to ActivityQueue as a persistent JSON message.
func (p *AMQPPublisher) PublishActivity(ctx context.Context, entry model.ActivityLog) error {
	body, err := json.Marshal(NewActivityEvent(entry))
	if err != nil {
		return fmt.Errorf("marshal activity event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ch, err := p.channel()
	if err != nil {
		p.logger.Warn("rabbitmq unavailable", zap.Error(err))
		return err
	}

	err = ch.PublishWithContext(ctx,
		"",            // default exchange
		ActivityQueue, // routing key = queue name
		false,         // mandatory
		false,         // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
			MessageId:    entry.ID.String(),
			Body:         body,
		},
	)
	if err != nil {
		p.logger.Warn("rabbitmq publish failed", zap.Error(err))
		p.reset()
		return err
	}
	return nil
}

// channel returns the open channel, dialing when needed. Caller holds p.mu.
func (p *AMQPPublisher) channel() (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	p.reset()

	conn, err := amqp.Dial(p.url)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if _, err := ch.QueueDeclare(ActivityQueue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare queue: %w", err)
	}
	p.conn, p.ch = conn, ch
	return ch, nil
}

func (p *AMQPPublisher) reset() {
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}

// Close releases the broker connection.
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reset()
	return nil
}
