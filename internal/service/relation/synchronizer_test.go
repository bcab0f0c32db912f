package relation

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-scheduler/internal/model"
	"github.com/jwalitptl/clinic-scheduler/internal/repository"
	"github.com/jwalitptl/clinic-scheduler/internal/repository/memory"
	apperrors "github.com/jwalitptl/clinic-scheduler/pkg/errors"
)

type failingRelations struct {
	repository.RelationRepository
	failKind model.LinkKind
}

func (f *failingRelations) ReplaceLinks(ctx context.Context, id uuid.UUID, kind model.LinkKind, ids []uuid.UUID) error {
	if kind == f.failKind {
		return errors.New("insert failed")
	}
	return f.RelationRepository.ReplaceLinks(ctx, id, kind, ids)
}

func TestSyncLinks_Idempotent(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	s := NewSynchronizer(store.Relations(), nil)

	apptID := uuid.New()
	p1, p2, d1 := uuid.New(), uuid.New(), uuid.New()

	require.NoError(t, s.SyncLinks(ctx, apptID, []uuid.UUID{p1, p2, p1}, []uuid.UUID{d1}))
	first, err := store.Relations().ListLinks(ctx, []uuid.UUID{apptID}, model.LinkKindPatient)
	require.NoError(t, err)

	require.NoError(t, s.SyncLinks(ctx, apptID, []uuid.UUID{p1, p2, p1}, []uuid.UUID{d1}))
	second, err := store.Relations().ListLinks(ctx, []uuid.UUID{apptID}, model.LinkKindPatient)
	require.NoError(t, err)

	assert.Equal(t, []uuid.UUID{p1, p2}, first[apptID])
	assert.Equal(t, first, second)
}

func TestSyncLinks_ReplacesNotMerges(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	s := NewSynchronizer(store.Relations(), nil)

	apptID := uuid.New()
	d1, d2 := uuid.New(), uuid.New()
	require.NoError(t, s.SyncLinks(ctx, apptID, []uuid.UUID{uuid.New()}, []uuid.UUID{d1}))
	require.NoError(t, s.SyncLinks(ctx, apptID, []uuid.UUID{uuid.New()}, []uuid.UUID{d2}))

	links, err := store.Relations().ListLinks(ctx, []uuid.UUID{apptID}, model.LinkKindProvider)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{d2}, links[apptID])
}

func TestSyncLinks_FailureIsRelationSyncError(t *testing.T) {
	store := memory.NewStore()
	s := NewSynchronizer(&failingRelations{RelationRepository: store.Relations(), failKind: model.LinkKindProvider}, nil)
	apptID := uuid.New()

	err := s.SyncLinks(context.Background(), apptID, []uuid.UUID{uuid.New()}, []uuid.UUID{uuid.New()})

	var syncErr *apperrors.RelationSyncError
	require.ErrorAs(t, err, &syncErr)
	assert.Equal(t, apptID, syncErr.AppointmentID)
	assert.Equal(t, "provider", syncErr.Kind)
}

func TestHydrate(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	s := NewSynchronizer(store.Relations(), nil)

	p1, p2, d1 := uuid.New(), uuid.New(), uuid.New()
	linked := &model.Appointment{}
	linked.ID = uuid.New()
	require.NoError(t, s.SyncLinks(ctx, linked.ID, []uuid.UUID{p1, p2}, []uuid.UUID{d1}))

	legacy := &model.Appointment{PatientID: p2, ProviderID: d1}
	legacy.ID = uuid.New()

	require.NoError(t, s.Hydrate(ctx, []*model.Appointment{linked, legacy}))

	assert.Equal(t, []uuid.UUID{p1, p2}, linked.PatientIDs)
	assert.Equal(t, p1, linked.PatientID)
	assert.Equal(t, []uuid.UUID{d1}, linked.ProviderIDs)
	assert.Equal(t, []uuid.UUID{p2}, legacy.PatientIDs)
	assert.Equal(t, []uuid.UUID{d1}, legacy.ProviderIDs)
}

func TestRemove(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	s := NewSynchronizer(store.Relations(), nil)
	apptID := uuid.New()

	require.NoError(t, s.SyncLinks(ctx, apptID, []uuid.UUID{uuid.New()}, []uuid.UUID{uuid.New()}))
	require.NoError(t, s.Remove(ctx, apptID))

	links, err := store.Relations().ListLinks(ctx, []uuid.UUID{apptID}, model.LinkKindPatient)
	require.NoError(t, err)
	assert.Empty(t, links)
}
