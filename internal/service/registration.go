package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/dsnpru/activityreg/internal/model"
	"github.com/dsnpru/activityreg/internal/repository"
)

// RegistrationService coordinates a registration attempt: evaluate the rules
// on a read-only snapshot, then allocate the seat atomically, then notify
// the audit sink. Only the allocation mutates state.
type RegistrationService struct {
	store Store
	eval  *Evaluator
	audit AuditSink
	now   func() time.Time
}

// NewRegistrationService constructs a RegistrationService. audit may be nil.
func NewRegistrationService(store Store, audit AuditSink) *RegistrationService {
	return &RegistrationService{
		store: store,
		eval:  NewEvaluator(store),
		audit: audit,
		now:   time.Now,
	}
}

// Evaluate exposes the read-only rule evaluation. It never mutates state, so
// repeated calls with unchanged inputs return the same outcome.
func (s *RegistrationService) Evaluate(ctx context.Context, student *model.Student, activity *model.Activity, now time.Time) (*model.Rejection, error) {
	return s.eval.Evaluate(ctx, student, activity, now)
}

// Register handles one registration attempt end to end.
//
// An unknown student is a rejection (the public may submit bad identifiers);
// an unknown activity is a hard error (activities are curated by admins and
// arrive from our own listing). Races detected during allocation are
// downgraded to ordinary rejections, never retried: conditions may have
// changed since the student decided to register.
func (s *RegistrationService) Register(ctx context.Context, req model.RegisterRequest, sourceAddr string) (*model.RegisterResult, error) {
	student, err := s.store.FindStudent(ctx, strings.TrimSpace(req.Number), strings.TrimSpace(req.Name))
	if err != nil {
		if errors.Is(err, repository.ErrStudentNotFound) {
			return reject(&model.Rejection{Code: model.CodeStudentNotFound}), nil
		}
		return nil, fmt.Errorf("resolve student: %w", err)
	}

	activity, err := s.store.GetActivity(ctx, req.ActivityID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("resolve activity: %w", err)
	}

	rej, err := s.eval.Evaluate(ctx, student, activity, s.now())
	if err != nil {
		return nil, fmt.Errorf("evaluate: %w", err)
	}
	if rej != nil {
		return reject(rej), nil
	}

	remaining, err := s.store.Allocate(ctx, student.ID, activity.ID)
	if err != nil {
		if rej := rejectionForAllocError(err); rej != nil {
			return reject(rej), nil
		}
		return nil, fmt.Errorf("allocate: %w", err)
	}

	s.recordAudit(ctx, student, activity, sourceAddr)

	return &model.RegisterResult{
		Success:        true,
		Code:           model.CodeRegistered,
		RemainingSeats: &remaining,
	}, nil
}

// rejectionForAllocError translates allocator races into the rejection the
// evaluator would have produced had it seen the final state. Anything else
// is a hard failure.
func rejectionForAllocError(err error) *model.Rejection {
	switch {
	case errors.Is(err, repository.ErrAlreadyRegistered):
		return &model.Rejection{Code: model.CodeAlreadyRegistered}
	case errors.Is(err, repository.ErrActivityFull):
		return &model.Rejection{Code: model.CodeActivityFull}
	case errors.Is(err, repository.ErrActivityClosed):
		return &model.Rejection{Code: model.CodeActivityClosed}
	case errors.Is(err, repository.ErrGroupQuotaExceeded):
		return &model.Rejection{Code: model.CodeGroupQuotaExceeded}
	case errors.Is(err, repository.ErrUngroupedQuotaExceeded):
		return &model.Rejection{Code: model.CodeUngroupedQuotaExceeded}
	}
	return nil
}

// recordAudit notifies the audit sink. Best-effort: a lost audit entry must
// never fail a committed registration.
func (s *RegistrationService) recordAudit(ctx context.Context, student *model.Student, activity *model.Activity, sourceAddr string) {
	if s.audit == nil {
		return
	}
	details := fmt.Sprintf("student %s registered for activity %q", student.Number, activity.Title)
	if err := s.audit.Record(ctx, student.Number, "register", details, sourceAddr); err != nil {
		log.Printf("audit record failed: %v", err)
	}
}

func reject(rej *model.Rejection) *model.RegisterResult {
	result := &model.RegisterResult{
		Success:   false,
		Code:      rej.Code,
		Rejection: rej,
	}
	if rej.Code == model.CodeActivityFull {
		zero := 0
		result.RemainingSeats = &zero
	}
	return result
}
