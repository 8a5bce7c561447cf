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

// StudentRepository handles persistence for students.
type StudentRepository struct {
	db *pgxpool.Pool
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *pgxpool.Pool) *StudentRepository {
	return &StudentRepository{db: db}
}

const studentColumns = `id, name, classroom, number, created_at`

func scanStudent(row pgx.Row) (*model.Student, error) {
	var s model.Student
	var classroom *string
	if err := row.Scan(&s.ID, &s.Name, &classroom, &s.Number, &s.CreatedAt); err != nil {
		return nil, err
	}
	if classroom != nil {
		s.Classroom = *classroom
	}
	return &s, nil
}

// FindByNumberOrName resolves the student a registration attempt refers to.
// An exact student-number match is preferred; the name is consulted only
// when no number was supplied, since names can collide.
func (r *StudentRepository) FindByNumberOrName(ctx context.Context, number, name string) (*model.Student, error) {
	if number != "" {
		return r.findBy(ctx, "number", number)
	}
	if name != "" {
		return r.findBy(ctx, "name", name)
	}
	return nil, ErrStudentNotFound
}

func (r *StudentRepository) findBy(ctx context.Context, column, value string) (*model.Student, error) {
	s, err := scanStudent(r.db.QueryRow(ctx,
		`SELECT `+studentColumns+` FROM students WHERE `+column+` = $1 ORDER BY created_at LIMIT 1`,
		value,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrStudentNotFound
		}
		return nil, fmt.Errorf("find student by %s: %w", column, err)
	}
	return s, nil
}

// GetByID returns a single student or ErrNotFound.
func (r *StudentRepository) GetByID(ctx context.Context, id string) (*model.Student, error) {
	s, err := scanStudent(r.db.QueryRow(ctx,
		`SELECT `+studentColumns+` FROM students WHERE id = $1`, id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get student: %w", err)
	}
	return s, nil
}

// Search returns up to limit students whose name or number contains q.
func (r *StudentRepository) Search(ctx context.Context, q string, limit int) ([]model.Student, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+studentColumns+`
		 FROM students
		 WHERE name ILIKE '%' || $1 || '%' OR number ILIKE '%' || $1 || '%'
		 ORDER BY name
		 LIMIT $2`,
		q, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("search students: %w", err)
	}
	defer rows.Close()
	return collectStudents(rows)
}

// List returns all students ordered by classroom then number.
func (r *StudentRepository) List(ctx context.Context) ([]model.Student, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+studentColumns+` FROM students ORDER BY classroom, number`,
	)
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	defer rows.Close()
	return collectStudents(rows)
}

func collectStudents(rows pgx.Rows) ([]model.Student, error) {
	var students []model.Student
	for rows.Next() {
		s, err := scanStudent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan student: %w", err)
		}
		students = append(students, *s)
	}
	return students, rows.Err()
}

// Count returns the total number of students.
func (r *StudentRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM students`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count students: %w", err)
	}
	return n, nil
}

// Upsert inserts a student keyed by student number, updating name and
// classroom when the number already exists. Used by the Excel import.
func (r *StudentRepository) Upsert(ctx context.Context, s model.Student) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE students SET name = $2, classroom = $3 WHERE number = $1`,
		s.Number, s.Name, s.Classroom,
	)
	if err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}
	_, err = r.db.Exec(ctx,
		`INSERT INTO students (id, name, classroom, number, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		uuid.New().String(), s.Name, s.Classroom, s.Number, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert student: %w", err)
	}
	return nil
}

// Update overwrites a student's editable fields.
func (r *StudentRepository) Update(ctx context.Context, s *model.Student) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE students SET name = $2, classroom = $3, number = $4 WHERE id = $1`,
		s.ID, s.Name, s.Classroom, s.Number,
	)
	if err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a student and, via cascade, their registrations.
func (r *StudentRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM students WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
