package audit

import (
	"context"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-scheduler/pkg/logger"
)

// AuditLogger records audit entries on behalf of the scheduling services.
// A failed write is logged and never fails the caller. A nil *AuditLogger
// records nothing.
type AuditLogger struct {
	service *Service
	logger  *logger.Logger
}

func NewAuditLogger(service *Service, log *logger.Logger) *AuditLogger {
	if log == nil {
		log = logger.Nop()
	}
	return &AuditLogger{
		service: service,
		logger:  log,
	}
}

func (l *AuditLogger) Log(ctx context.Context, action, entityType string, entityID uuid.UUID, opts *LogOptions) {
	if l == nil || l.service == nil {
		return
	}
	if err := l.service.Log(ctx, action, entityType, entityID, opts); err != nil {
		l.logger.Error(err, "failed to write audit log",
			"action", action, "entity_type", entityType, "entity_id", entityID.String())
	}
}
