package postgres

import (
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/clinic-scheduler/internal/repository"
)

type appointmentRepository struct {
	BaseRepository
}

type relationRepository struct {
	BaseRepository
}

type notificationRepository struct {
	BaseRepository
}

type justificationRepository struct {
	BaseRepository
}

type serviceTypeRepository struct {
	BaseRepository
}

type personRepository struct {
	BaseRepository
}

func NewAppointmentRepository(db *sqlx.DB) repository.AppointmentRepository {
	return &appointmentRepository{NewBaseRepository(db)}
}

func NewRelationRepository(db *sqlx.DB) repository.RelationRepository {
	return &relationRepository{NewBaseRepository(db)}
}

func NewNotificationRepository(db *sqlx.DB) repository.NotificationRepository {
	return &notificationRepository{NewBaseRepository(db)}
}

func NewJustificationRepository(db *sqlx.DB) repository.JustificationRepository {
	return &justificationRepository{NewBaseRepository(db)}
}

func NewServiceTypeRepository(db *sqlx.DB) repository.ServiceTypeRepository {
	return &serviceTypeRepository{NewBaseRepository(db)}
}

func NewPersonRepository(db *sqlx.DB) repository.PersonRepository {
	return &personRepository{NewBaseRepository(db)}
}
