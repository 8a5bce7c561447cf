package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dsnpru/activityreg/internal/model"
	"github.com/dsnpru/activityreg/internal/repository"
)

// ActivityService orchestrates activity and group management.
type ActivityService struct {
	activities    *repository.ActivityRepository
	groups        *repository.GroupRepository
	registrations *repository.RegistrationRepository
}

// NewActivityService constructs an ActivityService with its dependencies.
func NewActivityService(
	activities *repository.ActivityRepository,
	groups *repository.GroupRepository,
	registrations *repository.RegistrationRepository,
) *ActivityService {
	return &ActivityService{activities: activities, groups: groups, registrations: registrations}
}

// CreateActivity validates the request and delegates to the repository.
func (s *ActivityService) CreateActivity(ctx context.Context, req model.CreateActivityRequest) (*model.Activity, error) {
	req.Title = strings.TrimSpace(req.Title)
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("invalid activity: %w", err)
	}
	if req.StartTime != nil && req.EndTime != nil && req.EndTime.Before(*req.StartTime) {
		return nil, fmt.Errorf("end_time must not precede start_time")
	}
	if req.GroupID != nil {
		if _, err := s.groups.GetByID(ctx, *req.GroupID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, fmt.Errorf("group %s does not exist", *req.GroupID)
			}
			return nil, err
		}
	}
	return s.activities.Create(ctx, req)
}

// ListActivities returns activities with derived counts. publicView hides
// activities whose group is not visible.
func (s *ActivityService) ListActivities(ctx context.Context, publicView bool) ([]model.Activity, error) {
	return s.activities.List(ctx, publicView)
}

// GetActivity returns a single activity by ID.
func (s *ActivityService) GetActivity(ctx context.Context, id string) (*model.Activity, error) {
	if id == "" {
		return nil, fmt.Errorf("activity id is required")
	}
	return s.activities.GetByID(ctx, id)
}

// UpdateActivity applies a partial update and returns the fresh record.
func (s *ActivityService) UpdateActivity(ctx context.Context, id string, req model.UpdateActivityRequest) (*model.Activity, error) {
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("invalid activity update: %w", err)
	}
	a, err := s.activities.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		a.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		a.Description = *req.Description
	}
	if req.MaxPeople != nil {
		a.MaxPeople = *req.MaxPeople
	}
	if req.Status != nil {
		a.Status = *req.Status
	}
	if req.AllowedClassrooms != nil {
		a.AllowedClassrooms = *req.AllowedClassrooms
	}
	if req.StartTime != nil {
		a.StartTime = req.StartTime
	}
	if req.EndTime != nil {
		a.EndTime = req.EndTime
	}
	if req.Color != nil {
		a.Color = *req.Color
	}
	if req.GroupID != nil {
		if *req.GroupID == "" {
			a.GroupID = nil
		} else {
			if _, err := s.groups.GetByID(ctx, *req.GroupID); err != nil {
				return nil, fmt.Errorf("group %s does not exist", *req.GroupID)
			}
			a.GroupID = req.GroupID
		}
	}

	if err := s.activities.Update(ctx, a); err != nil {
		return nil, err
	}
	return s.activities.GetByID(ctx, id)
}

// ToggleActivity flips an activity's status and returns the fresh record.
func (s *ActivityService) ToggleActivity(ctx context.Context, id string) (*model.Activity, error) {
	if _, err := s.activities.ToggleStatus(ctx, id); err != nil {
		return nil, err
	}
	return s.activities.GetByID(ctx, id)
}

// DeleteActivity removes an activity and its registrations.
func (s *ActivityService) DeleteActivity(ctx context.Context, id string) error {
	return s.activities.Delete(ctx, id)
}

// ListRegistrations returns all registrations for an activity.
func (s *ActivityService) ListRegistrations(ctx context.Context, activityID string) ([]model.Registration, error) {
	if _, err := s.activities.GetByID(ctx, activityID); err != nil {
		return nil, err
	}
	return s.registrations.ListByActivity(ctx, activityID)
}

// DeleteRegistration removes a registration by ID (admin withdrawal).
func (s *ActivityService) DeleteRegistration(ctx context.Context, id string) error {
	return s.registrations.Delete(ctx, id)
}

// CreateGroup validates the request and creates an activity group.
func (s *ActivityService) CreateGroup(ctx context.Context, req model.CreateGroupRequest) (*model.ActivityGroup, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Quota == 0 {
		req.Quota = model.UngroupedQuota
	}
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("invalid group: %w", err)
	}
	return s.groups.Create(ctx, req)
}

// ListGroups returns all activity groups.
func (s *ActivityService) ListGroups(ctx context.Context) ([]model.ActivityGroup, error) {
	return s.groups.List(ctx)
}

// UpdateGroup overwrites a group's editable fields.
func (s *ActivityService) UpdateGroup(ctx context.Context, id string, req model.CreateGroupRequest) (*model.ActivityGroup, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("invalid group: %w", err)
	}
	g, err := s.groups.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	g.Name = req.Name
	g.Quota = req.Quota
	g.AllowedClassrooms = req.AllowedClassrooms
	if req.IsVisible != nil {
		g.IsVisible = *req.IsVisible
	}
	if err := s.groups.Update(ctx, g); err != nil {
		return nil, err
	}
	return g, nil
}

// DeleteGroup removes a group; its activities become ungrouped.
func (s *ActivityService) DeleteGroup(ctx context.Context, id string) error {
	return s.groups.Delete(ctx, id)
}
