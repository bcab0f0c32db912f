package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/jwalitptl/clinic-scheduler/internal/model"
	"github.com/jwalitptl/clinic-scheduler/internal/repository"
	apperrors "github.com/jwalitptl/clinic-scheduler/pkg/errors"
	"github.com/jwalitptl/clinic-scheduler/pkg/logger"
)

const (
	DefaultDurationMinutes = 60
	defaultCacheTTL        = 5 * time.Minute
)

// Catalog answers the two lookups the engine needs from the service list.
type Catalog interface {
	DurationOf(ctx context.Context, serviceType string) (int, error)
	PriceOf(ctx context.Context, serviceType string) (float64, error)
}

type Config struct {
	DefaultDurationMinutes int
	CacheTTL               time.Duration
}

// Service resolves service types by name through a read-through cache.
// Unknown names, including the empty name, fall back to the default
// duration and a zero price.
type Service struct {
	repo            repository.ServiceTypeRepository
	cache           *cache.Cache
	defaultDuration int
	logger          *logger.Logger
}

func NewService(repo repository.ServiceTypeRepository, cfg Config, log *logger.Logger) *Service {
	if cfg.DefaultDurationMinutes <= 0 {
		cfg.DefaultDurationMinutes = DefaultDurationMinutes
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = defaultCacheTTL
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		repo:            repo,
		cache:           cache.New(cfg.CacheTTL, 2*cfg.CacheTTL),
		defaultDuration: cfg.DefaultDurationMinutes,
		logger:          log,
	}
}

// Lookup returns the named service type, or nil when it does not exist.
func (s *Service) Lookup(ctx context.Context, name string) (*model.ServiceType, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}
	if v, ok := s.cache.Get(name); ok {
		return v.(*model.ServiceType), nil
	}

	st, err := s.repo.GetByName(ctx, name)
	if err != nil {
		if !apperrors.IsNotFound(err) {
			return nil, fmt.Errorf("failed to get service type: %w", err)
		}
		s.logger.Debug("unknown service type, using defaults", "service_type", name)
		st = nil
	}
	s.cache.Set(name, st, cache.DefaultExpiration)
	return st, nil
}

func (s *Service) DurationOf(ctx context.Context, name string) (int, error) {
	st, err := s.Lookup(ctx, name)
	if err != nil {
		return s.defaultDuration, err
	}
	if st == nil || st.DurationMinutes <= 0 {
		return s.defaultDuration, nil
	}
	return st.DurationMinutes, nil
}

func (s *Service) PriceOf(ctx context.Context, name string) (float64, error) {
	st, err := s.Lookup(ctx, name)
	if err != nil {
		return 0, err
	}
	if st == nil {
		return 0, nil
	}
	return st.Price, nil
}

func (s *Service) Create(ctx context.Context, req *model.CreateServiceTypeRequest) (*model.ServiceType, error) {
	if err := model.Validate(req); err != nil {
		return nil, err
	}
	st := &model.ServiceType{
		Name:            strings.TrimSpace(req.Name),
		DurationMinutes: req.DurationMinutes,
		Price:           req.Price,
		Category:        req.Category,
	}
	if err := s.repo.Create(ctx, st); err != nil {
		return nil, fmt.Errorf("failed to create service type: %w", err)
	}
	s.cache.Delete(st.Name)
	return st, nil
}

func (s *Service) List(ctx context.Context) ([]*model.ServiceType, error) {
	out, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list service types: %w", err)
	}
	return out, nil
}

// Invalidate drops every cached lookup.
func (s *Service) Invalidate() {
	s.cache.Flush()
}
