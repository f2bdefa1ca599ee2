package worker

import (
	"context"

	"backoffice-service/internal/broker"
	"backoffice-service/internal/models"
	"backoffice-service/internal/util"

	"go.uber.org/zap"
)

// Fanout delivers change events to live subscribers
type Fanout interface {
	PublishChange(ctx context.Context, event *models.ChangeEvent) error
}

// ChangeRelay consumes committed change events from Kafka and fans them out
// to the tenant's live subscribers
type ChangeRelay struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	fanout       Fanout
	logger       *zap.Logger
}

// NewChangeRelay creates a new change relay
func NewChangeRelay(consumer *broker.Consumer, fanout Fanout) *ChangeRelay {
	r := &ChangeRelay{
		consumer:     consumer,
		eventHandler: broker.NewEventHandler(),
		fanout:       fanout,
		logger:       util.GetLogger(),
	}
	r.eventHandler.OnCollectionChanged(r.relay)
	return r
}

// Start starts the relay; it blocks until ctx is done
func (r *ChangeRelay) Start(ctx context.Context) error {
	r.logger.Info("Starting change relay")
	return r.consumer.StartConsuming(ctx, r.eventHandler.HandleMessage)
}

// Stop stops the relay
func (r *ChangeRelay) Stop() error {
	r.logger.Info("Stopping change relay")
	return r.consumer.Close()
}

func (r *ChangeRelay) relay(ctx context.Context, event *models.ChangeEvent) error {
	if err := r.fanout.PublishChange(ctx, event); err != nil {
		util.ChangeEventsRelayed.WithLabelValues("error").Inc()
		r.logger.Error("Failed to relay change event",
			zap.String("tenant_id", event.TenantID),
			zap.String("table", event.Table),
			zap.Error(err))
		return err
	}
	util.ChangeEventsRelayed.WithLabelValues("ok").Inc()
	return nil
}
