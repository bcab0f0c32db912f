package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/jwalitptl/clinic-scheduler/internal/repository"
	"github.com/jwalitptl/clinic-scheduler/pkg/logger"
)

// RetentionWorker prunes audit logs past their retention window and outbox
// events that were relayed long enough ago.
type RetentionWorker struct {
	audit           repository.AuditRepository
	outbox          repository.OutboxRepository
	retentionDays   int
	outboxRetention time.Duration
	cleanupInterval time.Duration
	logger          *logger.Logger
	now             func() time.Time
}

type RetentionConfig struct {
	AuditRetentionDays int
	OutboxRetention    time.Duration
	CleanupInterval    time.Duration
}

func NewRetentionWorker(audit repository.AuditRepository, outbox repository.OutboxRepository, cfg RetentionConfig, log *logger.Logger) *RetentionWorker {
	if cfg.AuditRetentionDays <= 0 {
		cfg.AuditRetentionDays = 90
	}
	if cfg.OutboxRetention <= 0 {
		cfg.OutboxRetention = 24 * time.Hour
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = time.Hour
	}
	if log == nil {
		log = logger.Nop()
	}
	return &RetentionWorker{
		audit:           audit,
		outbox:          outbox,
		retentionDays:   cfg.AuditRetentionDays,
		outboxRetention: cfg.OutboxRetention,
		cleanupInterval: cfg.CleanupInterval,
		logger:          log,
		now:             time.Now,
	}
}

func (w *RetentionWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.Cleanup(ctx); err != nil {
				// Log error but continue
				w.logger.Error(err, "retention cleanup failed")
			}
		}
	}
}

// Cleanup runs one pruning pass over both stores.
func (w *RetentionWorker) Cleanup(ctx context.Context) error {
	now := w.now()

	if w.audit != nil {
		cutoff := now.AddDate(0, 0, -w.retentionDays)
		rows, err := w.audit.DeleteBefore(ctx, cutoff)
		if err != nil {
			return fmt.Errorf("failed to cleanup audit logs: %w", err)
		}
		w.logger.Info("cleaned up audit logs", "rows", rows, "cutoff", cutoff.Format(time.RFC3339))
	}

	if w.outbox != nil {
		cutoff := now.Add(-w.outboxRetention)
		rows, err := w.outbox.DeleteProcessedBefore(ctx, cutoff)
		if err != nil {
			return fmt.Errorf("failed to cleanup outbox events: %w", err)
		}
		w.logger.Info("cleaned up outbox events", "rows", rows, "cutoff", cutoff.Format(time.RFC3339))
	}
	return nil
}
