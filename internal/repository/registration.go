package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dsnpru/activityreg/internal/model"
)

// uniqueViolation is the PostgreSQL error code raised when an insert breaks
// a unique constraint.
const uniqueViolation = "23505"

// querier is satisfied by both *pgxpool.Pool and pgx.Tx so count queries can
// run standalone or inside the allocation transaction.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// RegistrationRepository handles persistence for registrations, including
// the atomic seat allocation.
type RegistrationRepository struct {
	db *pgxpool.Pool
}

// NewRegistrationRepository constructs a RegistrationRepository.
func NewRegistrationRepository(db *pgxpool.Pool) *RegistrationRepository {
	return &RegistrationRepository{db: db}
}

// Exists reports whether the student already registered for the activity.
func (r *RegistrationRepository) Exists(ctx context.Context, studentID, activityID string) (bool, error) {
	return registrationExists(ctx, r.db, studentID, activityID)
}

func registrationExists(ctx context.Context, q querier, studentID, activityID string) (bool, error) {
	var exists bool
	err := q.QueryRow(ctx,
		`SELECT EXISTS (
		   SELECT 1 FROM registrations WHERE student_id = $1 AND activity_id = $2
		 )`,
		studentID, activityID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check registration exists: %w", err)
	}
	return exists, nil
}

// CountByActivity returns the number of registrations for an activity.
func (r *RegistrationRepository) CountByActivity(ctx context.Context, activityID string) (int, error) {
	return countByActivity(ctx, r.db, activityID)
}

func countByActivity(ctx context.Context, q querier, activityID string) (int, error) {
	var n int
	err := q.QueryRow(ctx,
		`SELECT COUNT(*) FROM registrations WHERE activity_id = $1`, activityID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count registrations: %w", err)
	}
	return n, nil
}

// CountInGroup returns how many activities within the group the student has
// already joined.
func (r *RegistrationRepository) CountInGroup(ctx context.Context, studentID, groupID string) (int, error) {
	return countInGroup(ctx, r.db, studentID, groupID)
}

func countInGroup(ctx context.Context, q querier, studentID, groupID string) (int, error) {
	var n int
	err := q.QueryRow(ctx,
		`SELECT COUNT(*)
		 FROM registrations r
		 JOIN activities a ON a.id = r.activity_id
		 WHERE r.student_id = $1 AND a.group_id = $2`,
		studentID, groupID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count group registrations: %w", err)
	}
	return n, nil
}

// CountUngrouped returns how many ungrouped activities the student has
// already joined.
func (r *RegistrationRepository) CountUngrouped(ctx context.Context, studentID string) (int, error) {
	return countUngrouped(ctx, r.db, studentID)
}

func countUngrouped(ctx context.Context, q querier, studentID string) (int, error) {
	var n int
	err := q.QueryRow(ctx,
		`SELECT COUNT(*)
		 FROM registrations r
		 JOIN activities a ON a.id = r.activity_id
		 WHERE r.student_id = $1 AND a.group_id IS NULL`,
		studentID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count ungrouped registrations: %w", err)
	}
	return n, nil
}

// Count returns the total number of registrations.
func (r *RegistrationRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM registrations`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count all registrations: %w", err)
	}
	return n, nil
}

// Allocate performs the concurrency-safe seat allocation inside a single
// transaction.
//
// The eligibility checks run before this call against a snapshot that may be
// stale by the time we insert (check-then-act). The transaction therefore
// re-checks everything that can race under a row-level lock:
//
//	SELECT … FOR UPDATE on the activity row serialises all allocations for
//	the same activity. Status, capacity, quota, and duplicate are re-read
//	under that lock, and the unique constraint on (student_id, activity_id)
//	backstops duplicate races that bypass the lock (two requests for the
//	same student on different activities never contend on the same row).
//
// Returns the remaining seats after the insert.
func (r *RegistrationRepository) Allocate(ctx context.Context, studentID, activityID string) (int, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	// Lock the activity row; everything below happens under that lock.
	var maxPeople int
	var status string
	var groupID *string
	err = tx.QueryRow(ctx,
		`SELECT max_people, status, group_id
		 FROM activities
		 WHERE id = $1
		 FOR UPDATE`,
		activityID,
	).Scan(&maxPeople, &status, &groupID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("lock activity row: %w", err)
	}

	if status != model.StatusOpen {
		err = ErrActivityClosed
		return 0, err
	}

	var exists bool
	if exists, err = registrationExists(ctx, tx, studentID, activityID); err != nil {
		return 0, err
	} else if exists {
		err = ErrAlreadyRegistered
		return 0, err
	}

	var registered int
	if registered, err = countByActivity(ctx, tx, activityID); err != nil {
		return 0, err
	}
	if registered >= maxPeople {
		err = ErrActivityFull
		return 0, err
	}

	if groupID != nil {
		var quota, used int
		err = tx.QueryRow(ctx,
			`SELECT quota FROM activity_groups WHERE id = $1`, *groupID,
		).Scan(&quota)
		if err != nil {
			return 0, fmt.Errorf("read group quota: %w", err)
		}
		if used, err = countInGroup(ctx, tx, studentID, *groupID); err != nil {
			return 0, err
		}
		if used >= quota {
			err = ErrGroupQuotaExceeded
			return 0, err
		}
	} else {
		var used int
		if used, err = countUngrouped(ctx, tx, studentID); err != nil {
			return 0, err
		}
		if used >= model.UngroupedQuota {
			err = ErrUngroupedQuotaExceeded
			return 0, err
		}
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO registrations (id, student_id, activity_id, created_at)
		 VALUES ($1, $2, $3, $4)`,
		uuid.New().String(), studentID, activityID, time.Now().UTC(),
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			err = ErrAlreadyRegistered
			return 0, err
		}
		return 0, fmt.Errorf("insert registration: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit transaction: %w", err)
	}

	remaining := maxPeople - (registered + 1)
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

// ListByActivity returns all registrations for an activity joined with
// student details, oldest first.
func (r *RegistrationRepository) ListByActivity(ctx context.Context, activityID string) ([]model.Registration, error) {
	rows, err := r.db.Query(ctx,
		`SELECT r.id, r.student_id, r.activity_id, r.created_at,
		        s.name, COALESCE(s.classroom, ''), s.number
		 FROM registrations r
		 JOIN students s ON s.id = r.student_id
		 WHERE r.activity_id = $1
		 ORDER BY r.created_at`,
		activityID,
	)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	defer rows.Close()

	var regs []model.Registration
	for rows.Next() {
		var reg model.Registration
		if err := rows.Scan(
			&reg.ID, &reg.StudentID, &reg.ActivityID, &reg.CreatedAt,
			&reg.StudentName, &reg.StudentClassroom, &reg.StudentNumber,
		); err != nil {
			return nil, fmt.Errorf("scan registration: %w", err)
		}
		regs = append(regs, reg)
	}
	return regs, rows.Err()
}

// ListAll returns every registration joined with student and activity
// details. activityID narrows the result when non-empty. Used by the export.
func (r *RegistrationRepository) ListAll(ctx context.Context, activityID string) ([]model.Registration, error) {
	query := `
		SELECT r.id, r.student_id, r.activity_id, r.created_at,
		       s.name, COALESCE(s.classroom, ''), s.number, a.title
		FROM registrations r
		JOIN students s ON s.id = r.student_id
		JOIN activities a ON a.id = r.activity_id`
	args := []any{}
	if activityID != "" {
		query += ` WHERE r.activity_id = $1`
		args = append(args, activityID)
	}
	query += ` ORDER BY a.title, r.created_at`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list all registrations: %w", err)
	}
	defer rows.Close()

	var regs []model.Registration
	for rows.Next() {
		var reg model.Registration
		if err := rows.Scan(
			&reg.ID, &reg.StudentID, &reg.ActivityID, &reg.CreatedAt,
			&reg.StudentName, &reg.StudentClassroom, &reg.StudentNumber,
			&reg.ActivityTitle,
		); err != nil {
			return nil, fmt.Errorf("scan registration: %w", err)
		}
		regs = append(regs, reg)
	}
	return regs, rows.Err()
}

// Delete removes a registration. Derived counts adjust implicitly since they
// are computed, never cached.
func (r *RegistrationRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM registrations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete registration: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
