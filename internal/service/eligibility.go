package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dsnpru/activityreg/internal/model"
	"github.com/dsnpru/activityreg/internal/repository"
)

// Evaluator runs the registration business rules in a fixed order. It only
// reads; the first failing rule is returned as a structured rejection.
type Evaluator struct {
	store Store
}

// NewEvaluator constructs an Evaluator.
func NewEvaluator(store Store) *Evaluator {
	return &Evaluator{store: store}
}

// Evaluate checks whether student may register for activity at time now.
// A nil rejection means the attempt is approved. Existence of both records
// has already been established by the caller.
//
// Check order: duplicate, activity classroom, scheduling window, group rules
// (group classroom, then group quota; or the fixed ungrouped cap), activity
// status, capacity.
func (e *Evaluator) Evaluate(ctx context.Context, student *model.Student, activity *model.Activity, now time.Time) (*model.Rejection, error) {
	exists, err := e.store.ExistsRegistration(ctx, student.ID, activity.ID)
	if err != nil {
		return nil, fmt.Errorf("duplicate check: %w", err)
	}
	if exists {
		return &model.Rejection{Code: model.CodeAlreadyRegistered}, nil
	}

	if !model.ClassroomAllowed(activity.AllowedClassrooms, student.Classroom) {
		return &model.Rejection{
			Code:              model.CodeClassroomNotAllowed,
			AllowedClassrooms: model.SplitClassrooms(activity.AllowedClassrooms),
		}, nil
	}

	if activity.StartTime != nil && now.Before(*activity.StartTime) {
		return &model.Rejection{
			Code:    model.CodeNotYetOpen,
			OpensAt: activity.StartTime,
		}, nil
	}
	if activity.EndTime != nil && now.After(*activity.EndTime) {
		return &model.Rejection{
			Code:     model.CodeWindowClosed,
			ClosesAt: activity.EndTime,
		}, nil
	}

	if rej, err := e.evaluateQuota(ctx, student, activity); err != nil || rej != nil {
		return rej, err
	}

	if !activity.IsOpen() {
		return &model.Rejection{Code: model.CodeActivityClosed}, nil
	}

	registered, err := e.store.CountRegistrations(ctx, activity.ID)
	if err != nil {
		return nil, fmt.Errorf("capacity check: %w", err)
	}
	if registered >= activity.MaxPeople {
		return &model.Rejection{Code: model.CodeActivityFull}, nil
	}

	return nil, nil
}

// evaluateQuota applies the group-scoped rules, or the fixed ungrouped cap
// when the activity has no group.
func (e *Evaluator) evaluateQuota(ctx context.Context, student *model.Student, activity *model.Activity) (*model.Rejection, error) {
	if activity.GroupID == nil {
		used, err := e.store.CountUngrouped(ctx, student.ID)
		if err != nil {
			return nil, fmt.Errorf("ungrouped quota check: %w", err)
		}
		if used >= model.UngroupedQuota {
			return &model.Rejection{
				Code:  model.CodeUngroupedQuotaExceeded,
				Quota: model.UngroupedQuota,
			}, nil
		}
		return nil, nil
	}

	group, err := e.store.GetGroup(ctx, *activity.GroupID)
	if err != nil {
		// A dangling group reference behaves like no group rules at all,
		// matching how admins can delete a group out from under an activity.
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("load group: %w", err)
	}

	if !model.ClassroomAllowed(group.AllowedClassrooms, student.Classroom) {
		return &model.Rejection{
			Code:              model.CodeClassroomNotAllowed,
			GroupName:         group.Name,
			AllowedClassrooms: model.SplitClassrooms(group.AllowedClassrooms),
		}, nil
	}

	used, err := e.store.CountInGroup(ctx, student.ID, group.ID)
	if err != nil {
		return nil, fmt.Errorf("group quota check: %w", err)
	}
	if used >= group.Quota {
		return &model.Rejection{
			Code:      model.CodeGroupQuotaExceeded,
			GroupName: group.Name,
			Quota:     group.Quota,
		}, nil
	}
	return nil, nil
}
