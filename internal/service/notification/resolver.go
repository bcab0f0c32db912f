package notification

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-scheduler/internal/repository"
	apperrors "github.com/jwalitptl/clinic-scheduler/pkg/errors"
)

const (
	ChannelEmail = "email"
	ChannelLog   = "log"
)

// ContactResolver decides whether a person can be reached and where.
type ContactResolver interface {
	ResolveAddress(ctx context.Context, personID uuid.UUID) (address string, ok bool, err error)
}

// DirectoryResolver reads addresses from the people directory. The email
// channel only accepts email addresses; the log channel takes an email or,
// failing that, a phone number.
type DirectoryResolver struct {
	people  repository.PersonRepository
	channel string
}

func NewDirectoryResolver(people repository.PersonRepository, channel string) *DirectoryResolver {
	if channel == "" {
		channel = ChannelEmail
	}
	return &DirectoryResolver{people: people, channel: channel}
}

func (r *DirectoryResolver) ResolveAddress(ctx context.Context, personID uuid.UUID) (string, bool, error) {
	p, err := r.people.Get(ctx, personID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to resolve contact for %s: %w", personID, err)
	}

	addr := p.Email
	if addr == "" && r.channel != ChannelEmail {
		addr = p.Phone
	}
	return addr, addr != "", nil
}
