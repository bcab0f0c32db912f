package email

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-scheduler/pkg/logger"
)

func TestSMTPMessenger_BuildMessage(t *testing.T) {
	m := NewSMTPMessenger(SMTPConfig{Host: "localhost", Port: 1025})

	var buf bytes.Buffer
	_, err := m.buildMessage("pat@example.com", "See you at 09:00").WriteTo(&buf)
	require.NoError(t, err)

	raw := buf.String()
	assert.Contains(t, raw, "From: no-reply@clinic.local")
	assert.Contains(t, raw, "To: pat@example.com")
	assert.Contains(t, raw, "Subject: "+defaultSubject)
	assert.Contains(t, raw, "See you at 09:00")
}

func TestSMTPMessenger_CancelledContext(t *testing.T) {
	m := NewSMTPMessenger(SMTPConfig{Host: "localhost", Port: 1025})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := m.Send(ctx, "pat@example.com", "hello")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLogMessenger_Send(t *testing.T) {
	var buf bytes.Buffer
	m := NewLogMessenger(logger.NewLogger(&logger.Config{Level: logger.InfoLevel, Output: &buf}))

	require.NoError(t, m.Send(context.Background(), "doc@example.com", "new booking"))
	assert.Contains(t, buf.String(), "doc@example.com")
	assert.Contains(t, buf.String(), "new booking")
}
