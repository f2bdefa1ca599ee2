package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"backoffice-service/internal/models"
	"backoffice-service/internal/util"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ChangePublisher announces committed changes on the changes topic, one
// event per collection, keyed by tenant. It satisfies service.Notifier.
type ChangePublisher struct {
	producer *Producer
	now      func() time.Time
}

// NewChangePublisher creates a new change publisher
func NewChangePublisher(producer *Producer) *ChangePublisher {
	return &ChangePublisher{producer: producer, now: time.Now}
}

// NotifyChanged publishes a COLLECTION_CHANGED event for each table
func (cp *ChangePublisher) NotifyChanged(ctx context.Context, tenantID string, tables ...string) error {
	ctx, span := util.StartSpan(ctx, "ChangePublisher.NotifyChanged",
		attribute.String("tenant_id", tenantID),
		attribute.StringSlice("tables", tables))
	var err error
	defer func() { util.EndSpan(span, err) }()

	batch := make([]Message, 0, len(tables))
	for _, table := range tables {
		batch = append(batch, Message{Key: tenantID, Event: NewChangeEvent(tenantID, table, cp.now())})
	}

	err = cp.producer.PublishEvents(ctx, batch...)
	result := "ok"
	if err != nil {
		result = "error"
	}
	util.ChangeEventsPublished.WithLabelValues(result).Add(float64(len(batch)))
	return err
}

// NewChangeEvent builds the event announcing that table changed for a tenant
func NewChangeEvent(tenantID, table string, at time.Time) *models.ChangeEvent {
	return &models.ChangeEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeCollectionChanged,
			Timestamp: at.UTC(),
		},
		TenantID: tenantID,
		Table:    table,
	}
}

// EventHandler handles incoming events
type EventHandler struct {
	onCollectionChanged func(context.Context, *models.ChangeEvent) error
	logger              *zap.Logger
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{logger: util.GetLogger()}
}

// OnCollectionChanged registers a handler for COLLECTION_CHANGED events
func (eh *EventHandler) OnCollectionChanged(handler func(context.Context, *models.ChangeEvent) error) {
	eh.onCollectionChanged = handler
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	eh.logger.Debug("Handling event",
		zap.String("event_type", baseEvent.EventType),
		zap.String("event_id", baseEvent.EventID))

	switch baseEvent.EventType {
	case models.EventTypeCollectionChanged:
		if eh.onCollectionChanged != nil {
			var event models.ChangeEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal %s event: %w", baseEvent.EventType, err)
			}
			if event.TenantID == "" || event.Table == "" {
				return fmt.Errorf("change event %s has no tenant or table", event.EventID)
			}
			return eh.onCollectionChanged(ctx, &event)
		}

	default:
		eh.logger.Warn("Unhandled event type", zap.String("event_type", baseEvent.EventType))
	}

	return nil
}
