package cloudevents

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EventFactory creates CloudEvents for production domain events.
type EventFactory struct {
	source string
}

// NewEventFactory creates a new EventFactory for a specific source.
func NewEventFactory(source string) *EventFactory {
	return &EventFactory{source: source}
}

// CreateEvent wraps data in a CloudEvents 1.0 envelope.
func (f *EventFactory) CreateEvent(
	ctx context.Context,
	eventType string,
	subject string,
	data interface{},
) *CloudEvent {
	return &CloudEvent{
		SpecVersion:     "1.0",
		Type:            eventType,
		Source:          f.source,
		Subject:         subject,
		ID:              uuid.New().String(),
		Time:            time.Now().UTC(),
		DataContentType: "application/json",
		Data:            data,
		Extensions:      make(map[string]interface{}),
	}
}
