package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryBrokerFanOut(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b := NewMemoryBroker(4)
	defer b.Close()

	first, err := b.Subscribe(ctx, "appointments")
	require.NoError(t, err)
	second, err := b.Subscribe(ctx, "appointments")
	require.NoError(t, err)
	other, err := b.Subscribe(ctx, "other")
	require.NoError(t, err)

	require.NoError(t, b.Publish(ctx, "appointments", map[string]string{"id": "1"}))

	for _, ch := range []<-chan []byte{first, second} {
		select {
		case msg := <-ch:
			assert.JSONEq(t, `{"id":"1"}`, string(msg))
		case <-time.After(time.Second):
			t.Fatal("message not delivered")
		}
	}
	assert.Len(t, other, 0)
}

func TestMemoryBrokerClosed(t *testing.T) {
	b := NewMemoryBroker(1)
	require.NoError(t, b.Close())
	assert.ErrorIs(t, b.Publish(context.Background(), "x", "y"), ErrBrokerClosed)
	_, err := b.Subscribe(context.Background(), "x")
	assert.ErrorIs(t, err, ErrBrokerClosed)
}

func TestEncodePassesRawJSONThrough(t *testing.T) {
	raw := json.RawMessage(`{"a":1}`)
	out, err := Encode(raw)
	require.NoError(t, err)
	assert.Equal(t, []byte(raw), out)

	out, err = Encode(struct {
		A int `json:"a"`
	}{A: 2})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":2}`, string(out))
}

func TestSubscribeHandlerErrorsDoNotStopDelivery(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b := NewMemoryBroker(4)
	defer b.Close()

	got := make(chan string, 2)
	err := Subscribe(ctx, b, "t", func(_ context.Context, payload []byte) error {
		got <- string(payload)
		return errors.New("boom")
	}, nil)
	require.NoError(t, err)

	require.NoError(t, b.Publish(ctx, "t", "one"))
	require.NoError(t, b.Publish(ctx, "t", "two"))

	for _, want := range []string{"one", "two"} {
		select {
		case v := <-got:
			assert.Equal(t, want, v)
		case <-time.After(time.Second):
			t.Fatal("handler not called")
		}
	}
}
