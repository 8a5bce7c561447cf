package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dsnpru/activityreg/internal/model"
)

// ActivityRepository handles persistence for activities.
type ActivityRepository struct {
	db *pgxpool.Pool
}

// NewActivityRepository constructs an ActivityRepository.
func NewActivityRepository(db *pgxpool.Pool) *ActivityRepository {
	return &ActivityRepository{db: db}
}

// Create inserts a new activity and returns it with a generated UUID.
func (r *ActivityRepository) Create(ctx context.Context, req model.CreateActivityRequest) (*model.Activity, error) {
	a := &model.Activity{
		ID:                uuid.New().String(),
		Title:             req.Title,
		Description:       req.Description,
		MaxPeople:         req.MaxPeople,
		Status:            req.Status,
		AllowedClassrooms: req.AllowedClassrooms,
		StartTime:         req.StartTime,
		EndTime:           req.EndTime,
		Color:             req.Color,
		GroupID:           req.GroupID,
		CreatedAt:         time.Now().UTC(),
	}
	if a.Status == "" {
		a.Status = model.StatusOpen
	}
	if a.Color == "" {
		a.Color = "#e11d48"
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO activities
		   (id, title, description, max_people, status, allowed_classrooms,
		    start_time, end_time, color, group_id, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		a.ID, a.Title, a.Description, a.MaxPeople, a.Status, a.AllowedClassrooms,
		a.StartTime, a.EndTime, a.Color, a.GroupID, a.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert activity: %w", err)
	}
	a.RemainingSeats = a.MaxPeople
	return a, nil
}

const activitySelect = `
	SELECT a.id, a.title, a.description, a.max_people, a.status,
	       a.allowed_classrooms, a.start_time, a.end_time, a.color,
	       a.group_id, a.created_at, g.name,
	       COUNT(r.id) AS registered
	FROM activities a
	LEFT JOIN activity_groups g ON g.id = a.group_id
	LEFT JOIN registrations r ON r.activity_id = a.id`

const activityGroupBy = ` GROUP BY a.id, g.name`

func scanActivity(row pgx.Row) (*model.Activity, error) {
	var a model.Activity
	var description, allowed, groupName *string
	if err := row.Scan(
		&a.ID, &a.Title, &description, &a.MaxPeople, &a.Status,
		&allowed, &a.StartTime, &a.EndTime, &a.Color,
		&a.GroupID, &a.CreatedAt, &groupName, &a.RegisteredCount,
	); err != nil {
		return nil, err
	}
	if description != nil {
		a.Description = *description
	}
	if allowed != nil {
		a.AllowedClassrooms = *allowed
	}
	if groupName != nil {
		a.GroupName = *groupName
	}
	a.RemainingSeats = a.Remaining(a.RegisteredCount)
	return &a, nil
}

// GetByID returns a single activity with its registered count, or ErrNotFound.
func (r *ActivityRepository) GetByID(ctx context.Context, id string) (*model.Activity, error) {
	a, err := scanActivity(r.db.QueryRow(ctx,
		activitySelect+` WHERE a.id = $1`+activityGroupBy, id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get activity: %w", err)
	}
	return a, nil
}

// List returns all activities with registered counts. When onlyVisible is
// set, activities in hidden groups are excluded (the public listing).
func (r *ActivityRepository) List(ctx context.Context, onlyVisible bool) ([]model.Activity, error) {
	query := activitySelect
	if onlyVisible {
		query += ` WHERE a.group_id IS NULL OR g.is_visible`
	}
	query += activityGroupBy + ` ORDER BY a.created_at`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	defer rows.Close()

	var activities []model.Activity
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		activities = append(activities, *a)
	}
	return activities, rows.Err()
}

// Update overwrites an activity's editable fields.
func (r *ActivityRepository) Update(ctx context.Context, a *model.Activity) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE activities
		 SET title = $2, description = $3, max_people = $4, status = $5,
		     allowed_classrooms = $6, start_time = $7, end_time = $8,
		     color = $9, group_id = $10
		 WHERE id = $1`,
		a.ID, a.Title, a.Description, a.MaxPeople, a.Status,
		a.AllowedClassrooms, a.StartTime, a.EndTime, a.Color, a.GroupID,
	)
	if err != nil {
		return fmt.Errorf("update activity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ToggleStatus flips an activity between open and close, returning the new
// status.
func (r *ActivityRepository) ToggleStatus(ctx context.Context, id string) (string, error) {
	var status string
	err := r.db.QueryRow(ctx,
		`UPDATE activities
		 SET status = CASE WHEN status = 'open' THEN 'close' ELSE 'open' END
		 WHERE id = $1
		 RETURNING status`,
		id,
	).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("toggle activity: %w", err)
	}
	return status, nil
}

// Delete removes an activity and, via cascade, its registrations.
func (r *ActivityRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM activities WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete activity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
