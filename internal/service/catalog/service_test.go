package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-scheduler/internal/model"
	"github.com/jwalitptl/clinic-scheduler/internal/repository"
	"github.com/jwalitptl/clinic-scheduler/internal/repository/memory"
	apperrors "github.com/jwalitptl/clinic-scheduler/pkg/errors"
)

type countingRepo struct {
	repository.ServiceTypeRepository
	gets int
	err  error
}

func (r *countingRepo) GetByName(ctx context.Context, name string) (*model.ServiceType, error) {
	r.gets++
	if r.err != nil {
		return nil, r.err
	}
	return r.ServiceTypeRepository.GetByName(ctx, name)
}

func newCatalog(t *testing.T) (*Service, *countingRepo) {
	t.Helper()
	repo := &countingRepo{ServiceTypeRepository: memory.NewStore().ServiceTypes()}
	require.NoError(t, repo.Create(context.Background(), &model.ServiceType{Name: "Physio", DurationMinutes: 45, Price: 80}))
	return NewService(repo, Config{}, nil), repo
}

func TestDurationOf(t *testing.T) {
	svc, _ := newCatalog(t)
	ctx := context.Background()

	d, err := svc.DurationOf(ctx, "Physio")
	require.NoError(t, err)
	assert.Equal(t, 45, d)

	d, err = svc.DurationOf(ctx, "Unknown")
	require.NoError(t, err)
	assert.Equal(t, DefaultDurationMinutes, d)

	d, err = svc.DurationOf(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, DefaultDurationMinutes, d)
}

func TestPriceOf(t *testing.T) {
	svc, _ := newCatalog(t)

	p, err := svc.PriceOf(context.Background(), "Physio")
	require.NoError(t, err)
	assert.Equal(t, 80.0, p)

	p, err = svc.PriceOf(context.Background(), "Unknown")
	require.NoError(t, err)
	assert.Zero(t, p)
}

func TestLookup_CachesHitsAndMisses(t *testing.T) {
	svc, repo := newCatalog(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.DurationOf(ctx, "Physio")
		require.NoError(t, err)
		_, err = svc.DurationOf(ctx, "Unknown")
		require.NoError(t, err)
	}
	assert.Equal(t, 2, repo.gets)
}

func TestCreate_InvalidatesCachedMiss(t *testing.T) {
	svc, _ := newCatalog(t)
	ctx := context.Background()

	d, err := svc.DurationOf(ctx, "Group")
	require.NoError(t, err)
	assert.Equal(t, DefaultDurationMinutes, d)

	_, err = svc.Create(ctx, &model.CreateServiceTypeRequest{Name: "Group", DurationMinutes: 90})
	require.NoError(t, err)

	d, err = svc.DurationOf(ctx, "Group")
	require.NoError(t, err)
	assert.Equal(t, 90, d)
}

func TestCreate_Validation(t *testing.T) {
	svc, _ := newCatalog(t)

	_, err := svc.Create(context.Background(), &model.CreateServiceTypeRequest{Name: "Zero"})
	var vErr *apperrors.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "duration_minutes", vErr.Field)
}

func TestLookup_RepositoryError(t *testing.T) {
	svc, repo := newCatalog(t)
	repo.err = errors.New("db down")

	d, err := svc.DurationOf(context.Background(), "Physio")
	require.Error(t, err)
	assert.Equal(t, DefaultDurationMinutes, d)
}
