package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"backoffice-service/internal/broker"
	"backoffice-service/internal/models"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingFanout struct {
	events []*models.ChangeEvent
	err    error
}

func (f *recordingFanout) PublishChange(_ context.Context, e *models.ChangeEvent) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, e)
	return nil
}

func changeMessage(t *testing.T, tenantID, table string) kafka.Message {
	value, err := json.Marshal(broker.NewChangeEvent(tenantID, table, time.Now()))
	require.NoError(t, err)
	return kafka.Message{Key: []byte(tenantID), Value: value}
}

func TestRelayForwardsChangeEvents(t *testing.T) {
	fanout := &recordingFanout{}
	r := NewChangeRelay(nil, fanout)

	require.NoError(t, r.eventHandler.HandleMessage(context.Background(), changeMessage(t, "tenant-1", models.TableInvoices)))

	require.Len(t, fanout.events, 1)
	assert.Equal(t, "tenant-1", fanout.events[0].TenantID)
	assert.Equal(t, models.TableInvoices, fanout.events[0].Table)
}

func TestRelayReportsFanoutFailure(t *testing.T) {
	r := NewChangeRelay(nil, &recordingFanout{err: errors.New("connection refused")})

	err := r.eventHandler.HandleMessage(context.Background(), changeMessage(t, "tenant-1", models.TableSales))
	assert.Error(t, err)
}
