package audit

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-scheduler/internal/model"
	"github.com/jwalitptl/clinic-scheduler/internal/repository/memory"
)

func TestLog(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	svc := NewService(store.Audit())
	entityID := uuid.New()

	require.NoError(t, svc.Log(ctx, model.AuditActionCreate, model.AuditEntityAppointment, entityID, &LogOptions{
		Changes:  map[string]string{"status": "pending"},
		Metadata: map[string]int{"warnings": 0},
	}))

	logs, err := svc.List(ctx, &model.AuditLogFilters{EntityID: &entityID})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, model.AuditActionCreate, logs[0].Action)

	var changes map[string]string
	require.NoError(t, json.Unmarshal(logs[0].Changes, &changes))
	assert.Equal(t, "pending", changes["status"])
}

func TestCleanup(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	svc := NewService(store.Audit())

	old := &model.AuditLog{Action: "create", EntityType: "appointment", EntityID: uuid.New(), CreatedAt: time.Now().Add(-48 * time.Hour)}
	require.NoError(t, store.Audit().Create(ctx, old))
	require.NoError(t, svc.Log(ctx, "update", "appointment", uuid.New(), nil))

	n, err := svc.Cleanup(ctx, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	logs, err := svc.List(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, logs, 1)
}

func TestAuditLogger_NilIsNoop(t *testing.T) {
	var l *AuditLogger
	assert.NotPanics(t, func() {
		l.Log(context.Background(), "create", "appointment", uuid.New(), nil)
	})
}
