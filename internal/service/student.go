package service

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/dsnpru/activityreg/internal/model"
	"github.com/dsnpru/activityreg/internal/repository"
)

// searchLimit caps the public student search result size.
const searchLimit = 10

// StudentService orchestrates student management and the Excel import.
type StudentService struct {
	students *repository.StudentRepository
}

// NewStudentService constructs a StudentService.
func NewStudentService(students *repository.StudentRepository) *StudentService {
	return &StudentService{students: students}
}

// Search returns students matching q by name or number. Queries shorter than
// two characters return nothing rather than the whole roster.
func (s *StudentService) Search(ctx context.Context, q string) ([]model.Student, error) {
	q = strings.TrimSpace(q)
	if utf8.RuneCountInString(q) < 2 {
		return []model.Student{}, nil
	}
	return s.students.Search(ctx, q, searchLimit)
}

// List returns the whole roster.
func (s *StudentService) List(ctx context.Context) ([]model.Student, error) {
	return s.students.List(ctx)
}

// Update applies a partial update to one student.
func (s *StudentService) Update(ctx context.Context, id string, req model.UpdateStudentRequest) (*model.Student, error) {
	student, err := s.students.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		student.Name = strings.TrimSpace(*req.Name)
	}
	if req.Classroom != nil {
		student.Classroom = strings.TrimSpace(*req.Classroom)
	}
	if req.Number != nil {
		student.Number = strings.TrimSpace(*req.Number)
	}
	if student.Name == "" || student.Number == "" {
		return nil, fmt.Errorf("student name and number are required")
	}
	if err := s.students.Update(ctx, student); err != nil {
		return nil, err
	}
	return student, nil
}

// Delete removes a student and their registrations.
func (s *StudentService) Delete(ctx context.Context, id string) error {
	return s.students.Delete(ctx, id)
}

// Import upserts rows parsed from the import spreadsheet, keyed by student
// number. Returns how many rows were applied.
func (s *StudentService) Import(ctx context.Context, rows []model.Student) (int, error) {
	imported := 0
	for _, row := range rows {
		if row.Number == "" || row.Name == "" {
			continue
		}
		if err := s.students.Upsert(ctx, row); err != nil {
			return imported, fmt.Errorf("import student %s: %w", row.Number, err)
		}
		imported++
	}
	return imported, nil
}
