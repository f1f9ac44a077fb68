package messaging

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ExchangeIDScanEvents is the topic exchange record events are published on
const ExchangeIDScanEvents = "idscan.events"

// Routing keys, bind "idscan.record.*" to receive both
const (
	EventRecordCreated = "idscan.record.created"
	EventRecordUpdated = "idscan.record.updated"
)

// EventVersion is bumped when RecordEvent changes incompatibly
const EventVersion = 1

// Event is the envelope around every published payload
type Event struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Version       int             `json:"version"`
	Source        string          `json:"source"`
	Timestamp     time.Time       `json:"timestamp"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Data          json.RawMessage `json:"data"`
}

// NewEvent marshals data into a fresh envelope
func NewEvent(eventType, source, correlationID string, data interface{}) (*Event, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:            uuid.NewString(),
		Type:          eventType,
		Version:       EventVersion,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		CorrelationID: correlationID,
		Data:          raw,
	}, nil
}

// Decode unmarshals the payload into v
func (e *Event) Decode(v interface{}) error {
	return json.Unmarshal(e.Data, v)
}

// RecordEvent is the payload of record created/updated events.
// Identity values stay out of the payload; consumers fetch the record by id.
type RecordEvent struct {
	RecordID         string    `json:"record_id"`
	SourceFileName   string    `json:"source_file_name,omitempty"`
	IsManuallyEdited bool      `json:"is_manually_edited"`
	ChangedFields    []string  `json:"changed_fields,omitempty"`
	OccurredAt       time.Time `json:"occurred_at"`
}
