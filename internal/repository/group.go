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

// GroupRepository handles persistence for activity groups.
type GroupRepository struct {
	db *pgxpool.Pool
}

// NewGroupRepository constructs a GroupRepository.
func NewGroupRepository(db *pgxpool.Pool) *GroupRepository {
	return &GroupRepository{db: db}
}

const groupColumns = `id, name, quota, allowed_classrooms, is_visible, created_at`

func scanGroup(row pgx.Row) (*model.ActivityGroup, error) {
	var g model.ActivityGroup
	var allowed *string
	if err := row.Scan(&g.ID, &g.Name, &g.Quota, &allowed, &g.IsVisible, &g.CreatedAt); err != nil {
		return nil, err
	}
	if allowed != nil {
		g.AllowedClassrooms = *allowed
	}
	return &g, nil
}

// Create inserts a new group and returns it with a generated UUID.
func (r *GroupRepository) Create(ctx context.Context, req model.CreateGroupRequest) (*model.ActivityGroup, error) {
	g := &model.ActivityGroup{
		ID:                uuid.New().String(),
		Name:              req.Name,
		Quota:             req.Quota,
		AllowedClassrooms: req.AllowedClassrooms,
		IsVisible:         true,
		CreatedAt:         time.Now().UTC(),
	}
	if req.IsVisible != nil {
		g.IsVisible = *req.IsVisible
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO activity_groups (id, name, quota, allowed_classrooms, is_visible, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		g.ID, g.Name, g.Quota, g.AllowedClassrooms, g.IsVisible, g.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert group: %w", err)
	}
	return g, nil
}

// GetByID returns a single group or ErrNotFound.
func (r *GroupRepository) GetByID(ctx context.Context, id string) (*model.ActivityGroup, error) {
	g, err := scanGroup(r.db.QueryRow(ctx,
		`SELECT `+groupColumns+` FROM activity_groups WHERE id = $1`, id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get group: %w", err)
	}
	return g, nil
}

// List returns all groups ordered by name.
func (r *GroupRepository) List(ctx context.Context) ([]model.ActivityGroup, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+groupColumns+` FROM activity_groups ORDER BY name`,
	)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	defer rows.Close()

	var groups []model.ActivityGroup
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, fmt.Errorf("scan group: %w", err)
		}
		groups = append(groups, *g)
	}
	return groups, rows.Err()
}

// Update overwrites a group's editable fields.
func (r *GroupRepository) Update(ctx context.Context, g *model.ActivityGroup) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE activity_groups
		 SET name = $2, quota = $3, allowed_classrooms = $4, is_visible = $5
		 WHERE id = $1`,
		g.ID, g.Name, g.Quota, g.AllowedClassrooms, g.IsVisible,
	)
	if err != nil {
		return fmt.Errorf("update group: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a group. Activities referencing it become ungrouped.
func (r *GroupRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM activity_groups WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete group: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
