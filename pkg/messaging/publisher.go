package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/medflow/idscan/pkg/logger"
)

const defaultPublishTimeout = 5 * time.Second

// Channel is the part of *amqp.Channel the publisher needs
type Channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// PublisherOptions names the exchange and the source stamped on every event
type PublisherOptions struct {
	Exchange string
	Source   string
	// Timeout bounds a single publish so a blocked broker cannot stall a request
	Timeout time.Duration
}

// Publisher writes JSON event envelopes to a topic exchange, routed by event type
type Publisher struct {
	channel Channel
	opts    PublisherOptions
	logger  *logger.Logger
}

// NewPublisher declares opts.Exchange on rmq and returns a publisher for it
func NewPublisher(rmq *RabbitMQ, opts PublisherOptions, log *logger.Logger) (*Publisher, error) {
	if err := rmq.DeclareExchange(opts.Exchange); err != nil {
		return nil, fmt.Errorf("failed to declare exchange %s: %w", opts.Exchange, err)
	}
	return NewChannelPublisher(rmq.Channel(), opts, log), nil
}

// NewChannelPublisher publishes on an already prepared channel
func NewChannelPublisher(ch Channel, opts PublisherOptions, log *logger.Logger) *Publisher {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultPublishTimeout
	}
	return &Publisher{channel: ch, opts: opts, logger: log.WithComponent("publisher")}
}

// Publish wraps data in an Event and sends it with eventType as routing key
func (p *Publisher) Publish(ctx context.Context, eventType string, data interface{}) error {
	event, err := NewEvent(eventType, p.opts.Source, CorrelationID(ctx), data)
	if err != nil {
		return fmt.Errorf("failed to create event: %w", err)
	}

	msg, err := event.publishing()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, p.opts.Timeout)
	defer cancel()

	if err := p.channel.PublishWithContext(ctx, p.opts.Exchange, eventType, false, false, msg); err != nil {
		return fmt.Errorf("failed to publish %s: %w", eventType, err)
	}

	p.logger.Debug().
		Str("event_type", eventType).
		Str("event_id", event.ID).
		Str("correlation_id", event.CorrelationID).
		Msg("event published")
	return nil
}

// publishing renders e as a persistent AMQP message
func (e *Event) publishing() (amqp.Publishing, error) {
	body, err := json.Marshal(e)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("failed to marshal event: %w", err)
	}

	return amqp.Publishing{
		ContentType:   "application/json",
		DeliveryMode:  amqp.Persistent,
		MessageId:     e.ID,
		CorrelationId: e.CorrelationID,
		Type:          e.Type,
		AppId:         e.Source,
		Timestamp:     e.Timestamp,
		Headers:       amqp.Table{"event_version": int32(e.Version)},
		Body:          body,
	}, nil
}

type correlationKey struct{}

// WithCorrelationID ties events published under ctx to a request
func WithCorrelationID(ctx context.Context, correlationID string) context.Context {
	return context.WithValue(ctx, correlationKey{}, correlationID)
}

// CorrelationID returns the id set by WithCorrelationID, or ""
func CorrelationID(ctx context.Context) string {
	id, _ := ctx.Value(correlationKey{}).(string)
	return id
}
