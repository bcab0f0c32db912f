package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-scheduler/internal/model"
	"github.com/jwalitptl/clinic-scheduler/internal/repository/memory"
	"github.com/jwalitptl/clinic-scheduler/pkg/logger"
	"github.com/jwalitptl/clinic-scheduler/pkg/messaging"
	"github.com/jwalitptl/clinic-scheduler/pkg/metrics"
)

type failingBroker struct {
	messaging.Broker
	calls int
}

func (b *failingBroker) Publish(context.Context, string, interface{}) error {
	b.calls++
	return errors.New("broker down")
}

func testConfig() OutboxProcessorConfig {
	return OutboxProcessorConfig{
		BatchSize:     10,
		PollInterval:  time.Second,
		RetryAttempts: 2,
		RetryDelay:    time.Millisecond,
		MaxFailures:   2,
		TopicPrefix:   "scheduler.",
	}
}

func TestProcessOncePublishesPendingEvents(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := memory.NewStore()
	broker := messaging.NewMemoryBroker(10)
	defer broker.Close()
	sub, err := broker.Subscribe(ctx, "scheduler."+model.EventAppointmentCreated)
	require.NoError(t, err)

	require.NoError(t, store.Outbox().Create(ctx, &model.OutboxEvent{
		EventType:   model.EventAppointmentCreated,
		AggregateID: uuid.New(),
		Payload:     []byte(`{"ok":true}`),
	}))

	m := metrics.New("test", prometheus.NewRegistry())
	p := NewOutboxProcessor(store.Outbox(), broker, testConfig(), logger.Nop(), m)

	n, err := p.ProcessOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	select {
	case msg := <-sub:
		assert.JSONEq(t, `{"ok":true}`, string(msg))
	case <-time.After(time.Second):
		t.Fatal("message not delivered")
	}

	pending, err := store.Outbox().GetPendingEvents(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.OutboxEventsProcessed))
}

func TestProcessOnceMarksEventDeadAfterMaxFailures(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	broker := &failingBroker{}
	require.NoError(t, store.Outbox().Create(ctx, &model.OutboxEvent{
		EventType: "x", AggregateID: uuid.New(), Payload: []byte(`{}`),
	}))

	m := metrics.New("test", prometheus.NewRegistry())
	p := NewOutboxProcessor(store.Outbox(), broker, testConfig(), logger.Nop(), m)

	n, err := p.ProcessOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, 2, broker.calls)

	pending, err := store.Outbox().GetPendingEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, model.OutboxStatusFailed, pending[0].Status)
	assert.Equal(t, 1, pending[0].RetryCount)

	_, err = p.ProcessOnce(ctx)
	require.NoError(t, err)
	pending, err = store.Outbox().GetPendingEvents(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
	assert.Equal(t, float64(2), testutil.ToFloat64(m.OutboxEventsFailed))
}
