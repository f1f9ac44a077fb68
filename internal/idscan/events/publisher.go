package events

import (
	"context"
	"time"

	"github.com/medflow/idscan/internal/idscan/domain"
	"github.com/medflow/idscan/pkg/httputil"
	"github.com/medflow/idscan/pkg/logger"
	"github.com/medflow/idscan/pkg/messaging"
)

// Publisher is satisfied by *messaging.Publisher
type Publisher interface {
	Publish(ctx context.Context, eventType string, data interface{}) error
}

// RecordEventPublisher publishes record lifecycle events.
// A nil publisher turns every call into a no-op, which is how the
// service runs without a broker.
type RecordEventPublisher struct {
	publisher Publisher
	logger    *logger.Logger
}

// NewRecordEventPublisher creates a record event publisher over pub
func NewRecordEventPublisher(pub Publisher, log *logger.Logger) *RecordEventPublisher {
	return &RecordEventPublisher{
		publisher: pub,
		logger:    log.WithComponent("events"),
	}
}

// NewRabbitMQRecordEventPublisher declares the idscan exchange and publishes to it
func NewRabbitMQRecordEventPublisher(rmq *messaging.RabbitMQ, log *logger.Logger) (*RecordEventPublisher, error) {
	pub, err := messaging.NewPublisher(rmq, messaging.PublisherOptions{
		Exchange: messaging.ExchangeIDScanEvents,
		Source:   "idscan-service",
	}, log)
	if err != nil {
		return nil, err
	}
	return NewRecordEventPublisher(pub, log), nil
}

// PublishRecordCreated publishes a record created event
func (p *RecordEventPublisher) PublishRecordCreated(ctx context.Context, rec *domain.Record) {
	p.publish(ctx, messaging.EventRecordCreated, messaging.RecordEvent{
		RecordID:         rec.ID,
		SourceFileName:   rec.SourceFileName,
		IsManuallyEdited: rec.IsManuallyEdited,
		OccurredAt:       rec.ExtractedAt,
	})
}

// PublishRecordUpdated publishes a record updated event
func (p *RecordEventPublisher) PublishRecordUpdated(ctx context.Context, rec *domain.Record, changed []string) {
	p.publish(ctx, messaging.EventRecordUpdated, messaging.RecordEvent{
		RecordID:         rec.ID,
		SourceFileName:   rec.SourceFileName,
		IsManuallyEdited: rec.IsManuallyEdited,
		ChangedFields:    changed,
		OccurredAt:       rec.LastModified,
	})
}

// Events carry ids and field names only, never identity values.
func (p *RecordEventPublisher) publish(ctx context.Context, eventType string, data messaging.RecordEvent) {
	if p == nil || p.publisher == nil {
		return
	}
	if data.OccurredAt.IsZero() {
		data.OccurredAt = time.Now().UTC()
	}
	if requestID := httputil.GetRequestID(ctx); requestID != "" {
		ctx = messaging.WithCorrelationID(ctx, requestID)
	}

	if err := p.publisher.Publish(ctx, eventType, data); err != nil {
		p.logger.Error().Err(err).
			Str("event_type", eventType).
			Str("record_id", data.RecordID).
			Msg("failed to publish record event")
	}
}
