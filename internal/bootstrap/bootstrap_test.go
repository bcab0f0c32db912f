package bootstrap

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-scheduler/internal/config"
	"github.com/jwalitptl/clinic-scheduler/pkg/logger"
	"github.com/jwalitptl/clinic-scheduler/pkg/messaging"
)

func TestNewRepositories_Memory(t *testing.T) {
	repos, err := NewRepositories(context.Background(), config.DatabaseConfig{Driver: "memory"}, logger.Nop())
	require.NoError(t, err)

	assert.Nil(t, repos.DB)
	assert.NotNil(t, repos.Appointments)
	assert.NotNil(t, repos.Outbox)
	assert.NoError(t, repos.Ping(context.Background()))
	assert.NoError(t, repos.Close())
}

func TestNewBroker(t *testing.T) {
	cfg := &config.Config{Broker: config.BrokerConfig{Type: "memory"}}
	b, err := NewBroker(cfg, logger.Nop())
	require.NoError(t, err)
	assert.IsType(t, &messaging.MemoryBroker{}, b)
	assert.NoError(t, b.Close())

	cfg.Broker.Type = "carrier-pigeon"
	_, err = NewBroker(cfg, logger.Nop())
	assert.Error(t, err)

	cfg.Broker.Type = "kafka"
	_, err = NewBroker(cfg, logger.Nop())
	assert.Error(t, err, "kafka without brokers")
}
