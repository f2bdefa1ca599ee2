package broker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"backoffice-service/internal/models"
	"backoffice-service/internal/util"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func newTestPublisher(w *fakeWriter) *ChangePublisher {
	cp := NewChangePublisher(&Producer{writer: w, logger: util.GetLogger()})
	cp.now = func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }
	return cp
}

func TestNotifyChangedPublishesOneEventPerTable(t *testing.T) {
	w := &fakeWriter{}
	cp := newTestPublisher(w)

	err := cp.NotifyChanged(context.Background(), "tenant-1", models.TableInvoices, models.TableInventory)
	require.NoError(t, err)
	require.Len(t, w.msgs, 2)

	for i, table := range []string{models.TableInvoices, models.TableInventory} {
		assert.Equal(t, "tenant-1", string(w.msgs[i].Key))

		var event models.ChangeEvent
		require.NoError(t, json.Unmarshal(w.msgs[i].Value, &event))
		assert.Equal(t, models.EventTypeCollectionChanged, event.EventType)
		assert.Equal(t, "tenant-1", event.TenantID)
		assert.Equal(t, table, event.Table)
		assert.NotEmpty(t, event.EventID)
	}
}

func TestNotifyChangedReportsWriteFailure(t *testing.T) {
	w := &fakeWriter{err: errors.New("leader not available")}
	cp := newTestPublisher(w)

	err := cp.NotifyChanged(context.Background(), "tenant-1", models.TableSales)
	assert.Error(t, err)
}

func TestHandleMessageRoutesChangeEvents(t *testing.T) {
	var got *models.ChangeEvent
	h := NewEventHandler()
	h.OnCollectionChanged(func(_ context.Context, e *models.ChangeEvent) error {
		got = e
		return nil
	})

	value, err := json.Marshal(NewChangeEvent("tenant-1", models.TableReturns, time.Now()))
	require.NoError(t, err)
	require.NoError(t, h.HandleMessage(context.Background(), kafka.Message{Value: value}))

	require.NotNil(t, got)
	assert.Equal(t, models.TableReturns, got.Table)
}

func TestHandleMessageRejectsBadPayloads(t *testing.T) {
	h := NewEventHandler()
	h.OnCollectionChanged(func(context.Context, *models.ChangeEvent) error { return nil })

	assert.Error(t, h.HandleMessage(context.Background(), kafka.Message{Value: []byte("{")}))

	value, _ := json.Marshal(NewChangeEvent("", models.TableReturns, time.Now()))
	assert.Error(t, h.HandleMessage(context.Background(), kafka.Message{Value: value}))

	unknown, _ := json.Marshal(models.BaseEvent{EventID: "1", EventType: "SOMETHING_ELSE"})
	assert.NoError(t, h.HandleMessage(context.Background(), kafka.Message{Value: unknown}))
}

type fakeReader struct {
	msgs      []kafka.Message
	committed []kafka.Message
	cancel    context.CancelFunc
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	if len(r.msgs) == 0 {
		r.cancel()
		<-ctx.Done()
		return kafka.Message{}, ctx.Err()
	}
	msg := r.msgs[0]
	r.msgs = r.msgs[1:]
	return msg, nil
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.committed = append(r.committed, msgs...)
	return nil
}

func (r *fakeReader) Close() error { return nil }

func TestConsumerCommitsEveryHandledMessage(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := &fakeReader{msgs: []kafka.Message{{Offset: 1}, {Offset: 2}}, cancel: cancel}
	c := &Consumer{reader: r, topic: "changes", logger: util.GetLogger()}

	handled := 0
	err := c.StartConsuming(ctx, func(context.Context, kafka.Message) error {
		handled++
		if handled == 2 {
			return errors.New("bad message")
		}
		return nil
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 2, handled)
	assert.Len(t, r.committed, 2)
}
