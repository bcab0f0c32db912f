// Package person keeps the directory of patients and providers the
// dispatcher names and contacts.
package person

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-scheduler/internal/model"
	"github.com/jwalitptl/clinic-scheduler/internal/repository"
	"github.com/jwalitptl/clinic-scheduler/internal/service/audit"
)

type Service struct {
	repo    repository.PersonRepository
	auditor *audit.AuditLogger
}

func NewService(repo repository.PersonRepository, auditor *audit.AuditLogger) *Service {
	return &Service{repo: repo, auditor: auditor}
}

func (s *Service) Create(ctx context.Context, req *model.CreatePersonRequest) (*model.Person, error) {
	if err := model.Validate(req); err != nil {
		return nil, err
	}
	p := &model.Person{
		Role:  req.Role,
		Name:  strings.TrimSpace(req.Name),
		Email: strings.TrimSpace(req.Email),
		Phone: strings.TrimSpace(req.Phone),
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to create person: %w", err)
	}

	s.auditor.Log(ctx, model.AuditActionCreate, model.AuditEntityPerson, p.ID,
		&audit.LogOptions{Metadata: map[string]string{"role": string(p.Role)}})
	return p, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Person, error) {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get person: %w", err)
	}
	return p, nil
}
