// Package bootstrap builds the shared pieces both binaries start from.
package bootstrap

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/clinic-scheduler/internal/config"
	"github.com/jwalitptl/clinic-scheduler/internal/repository"
	"github.com/jwalitptl/clinic-scheduler/internal/repository/memory"
	"github.com/jwalitptl/clinic-scheduler/internal/repository/postgres"
	"github.com/jwalitptl/clinic-scheduler/pkg/logger"
	"github.com/jwalitptl/clinic-scheduler/pkg/messaging"
	"github.com/jwalitptl/clinic-scheduler/pkg/messaging/kafka"
	"github.com/jwalitptl/clinic-scheduler/pkg/messaging/redis"
)

func NewLogger(cfg config.LogConfig) *logger.Logger {
	return logger.NewLogger(&logger.Config{
		Level:      logger.ParseLevel(cfg.Level),
		TimeFormat: time.RFC3339,
		Output:     os.Stdout,
		Console:    cfg.Console,
	})
}

// Repositories is every store the services need. DB is nil for the memory
// driver.
type Repositories struct {
	DB             *sqlx.DB
	Appointments   repository.AppointmentRepository
	Relations      repository.RelationRepository
	Notifications  repository.NotificationRepository
	Justifications repository.JustificationRepository
	ServiceTypes   repository.ServiceTypeRepository
	People         repository.PersonRepository
	Audit          repository.AuditRepository
	Outbox         repository.OutboxRepository
}

// Ping reports whether the backing database answers.
func (r *Repositories) Ping(ctx context.Context) error {
	if r.DB == nil {
		return nil
	}
	return r.DB.PingContext(ctx)
}

func (r *Repositories) Close() error {
	if r.DB == nil {
		return nil
	}
	return r.DB.Close()
}

// NewRepositories opens the configured store and, for postgres, applies
// migrations when auto_migrate is set.
func NewRepositories(ctx context.Context, cfg config.DatabaseConfig, log *logger.Logger) (*Repositories, error) {
	if cfg.Driver == "memory" {
		log.Warn("using in-memory store; data is lost on restart")
		store := memory.NewStore()
		return &Repositories{
			Appointments:   store.Appointments(),
			Relations:      store.Relations(),
			Notifications:  store.Notifications(),
			Justifications: store.Justifications(),
			ServiceTypes:   store.ServiceTypes(),
			People:         store.People(),
			Audit:          store.Audit(),
			Outbox:         store.Outbox(),
		}, nil
	}

	db, err := postgres.NewDB(cfg)
	if err != nil {
		return nil, err
	}
	if cfg.AutoMigrate {
		if err := postgres.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, err
		}
		log.Info("database migrations applied")
	}

	base := postgres.NewBaseRepository(db)
	return &Repositories{
		DB:             db,
		Appointments:   postgres.NewAppointmentRepository(db),
		Relations:      postgres.NewRelationRepository(db),
		Notifications:  postgres.NewNotificationRepository(db),
		Justifications: postgres.NewJustificationRepository(db),
		ServiceTypes:   postgres.NewServiceTypeRepository(db),
		People:         postgres.NewPersonRepository(db),
		Audit:          postgres.NewAuditRepository(base),
		Outbox:         postgres.NewOutboxRepository(base),
	}, nil
}

// NewBroker builds the configured event bus.
func NewBroker(cfg *config.Config, log *logger.Logger) (messaging.Broker, error) {
	switch cfg.Broker.Type {
	case "memory":
		return messaging.NewMemoryBroker(0), nil
	case "redis":
		return redis.NewRedisBroker(redis.Config{
			URL:          cfg.Redis.URL,
			MaxRetries:   cfg.Redis.MaxRetries,
			RetryBackoff: cfg.Redis.RetryBackoff,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
		}, log)
	case "kafka":
		return kafka.NewKafkaBroker(kafka.Config{
			Brokers:      cfg.Kafka.Brokers,
			GroupID:      cfg.Kafka.GroupID,
			WriteTimeout: cfg.Kafka.WriteTimeout,
		}, log)
	default:
		return nil, fmt.Errorf("unsupported broker type %q", cfg.Broker.Type)
	}
}
