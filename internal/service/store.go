// Package service implements the registration decision engine and the
// business operations behind the HTTP handlers.
package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dsnpru/activityreg/internal/model"
	"github.com/dsnpru/activityreg/internal/repository"
)

var validate = validator.New()

// Store is the entity store consumed by the registration engine. The
// production implementation is backed by the pgx repositories; tests use an
// in-memory fake.
type Store interface {
	// FindStudent resolves a student by number (preferred) or name.
	FindStudent(ctx context.Context, number, name string) (*model.Student, error)
	GetActivity(ctx context.Context, id string) (*model.Activity, error)
	GetGroup(ctx context.Context, id string) (*model.ActivityGroup, error)
	CountRegistrations(ctx context.Context, activityID string) (int, error)
	CountInGroup(ctx context.Context, studentID, groupID string) (int, error)
	CountUngrouped(ctx context.Context, studentID string) (int, error)
	ExistsRegistration(ctx context.Context, studentID, activityID string) (bool, error)
	// Allocate atomically re-checks and inserts, returning remaining seats.
	Allocate(ctx context.Context, studentID, activityID string) (int, error)
}

// AuditSink records actions best-effort. Failures are logged by callers and
// never propagate.
type AuditSink interface {
	Record(ctx context.Context, actor, action, details, ipAddress string) error
}

// pgStore adapts the pgx repositories to the Store interface.
type pgStore struct {
	students      *repository.StudentRepository
	activities    *repository.ActivityRepository
	groups        *repository.GroupRepository
	registrations *repository.RegistrationRepository
}

// NewStore builds the production Store on top of a pgx pool.
func NewStore(db *pgxpool.Pool) Store {
	return &pgStore{
		students:      repository.NewStudentRepository(db),
		activities:    repository.NewActivityRepository(db),
		groups:        repository.NewGroupRepository(db),
		registrations: repository.NewRegistrationRepository(db),
	}
}

func (s *pgStore) FindStudent(ctx context.Context, number, name string) (*model.Student, error) {
	return s.students.FindByNumberOrName(ctx, number, name)
}

func (s *pgStore) GetActivity(ctx context.Context, id string) (*model.Activity, error) {
	return s.activities.GetByID(ctx, id)
}

func (s *pgStore) GetGroup(ctx context.Context, id string) (*model.ActivityGroup, error) {
	return s.groups.GetByID(ctx, id)
}

func (s *pgStore) CountRegistrations(ctx context.Context, activityID string) (int, error) {
	return s.registrations.CountByActivity(ctx, activityID)
}

func (s *pgStore) CountInGroup(ctx context.Context, studentID, groupID string) (int, error) {
	return s.registrations.CountInGroup(ctx, studentID, groupID)
}

func (s *pgStore) CountUngrouped(ctx context.Context, studentID string) (int, error) {
	return s.registrations.CountUngrouped(ctx, studentID)
}

func (s *pgStore) ExistsRegistration(ctx context.Context, studentID, activityID string) (bool, error) {
	return s.registrations.Exists(ctx, studentID, activityID)
}

func (s *pgStore) Allocate(ctx context.Context, studentID, activityID string) (int, error) {
	return s.registrations.Allocate(ctx, studentID, activityID)
}
