package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/dsnpru/activityreg/internal/auth"
	"github.com/dsnpru/activityreg/internal/model"
	"github.com/dsnpru/activityreg/internal/repository"
)

// ErrInvalidCredentials is returned when a login attempt fails. It hides
// whether the username or the password was wrong.
var ErrInvalidCredentials = errors.New("invalid username or password")

// AdminService handles admin authentication and the dashboard.
type AdminService struct {
	admins        *repository.AdminRepository
	students      *repository.StudentRepository
	activities    *repository.ActivityRepository
	registrations *repository.RegistrationRepository
	auditLog      *repository.AuditRepository
	tokens        *auth.TokenIssuer
}

// NewAdminService constructs an AdminService with its dependencies.
func NewAdminService(
	admins *repository.AdminRepository,
	students *repository.StudentRepository,
	activities *repository.ActivityRepository,
	registrations *repository.RegistrationRepository,
	auditLog *repository.AuditRepository,
	tokens *auth.TokenIssuer,
) *AdminService {
	return &AdminService{
		admins:        admins,
		students:      students,
		activities:    activities,
		registrations: registrations,
		auditLog:      auditLog,
		tokens:        tokens,
	}
}

// Login verifies credentials and issues an access token.
func (s *AdminService) Login(ctx context.Context, req model.LoginRequest, sourceAddr string) (*model.Token, error) {
	if err := validate.Struct(req); err != nil {
		return nil, ErrInvalidCredentials
	}
	admin, err := s.admins.GetByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("look up admin: %w", err)
	}
	if !auth.VerifyPassword(admin.PasswordHash, req.Password) {
		return nil, ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(admin.Username)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	if err := s.auditLog.Record(ctx, admin.Username, "login", "", sourceAddr); err != nil {
		log.Printf("audit record failed: %v", err)
	}
	return &model.Token{AccessToken: token, TokenType: "bearer"}, nil
}

// VerifyToken returns the admin a bearer token belongs to.
func (s *AdminService) VerifyToken(ctx context.Context, token string) (*model.Admin, error) {
	username, err := s.tokens.Verify(token)
	if err != nil {
		return nil, err
	}
	admin, err := s.admins.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, auth.ErrInvalidToken
		}
		return nil, err
	}
	return admin, nil
}

// RecordAction writes an admin action to the audit log, best-effort.
func (s *AdminService) RecordAction(ctx context.Context, actor, action, details, sourceAddr string) {
	if err := s.auditLog.Record(ctx, actor, action, details, sourceAddr); err != nil {
		log.Printf("audit record failed: %v", err)
	}
}

// AuditLog returns the most recent audit entries.
func (s *AdminService) AuditLog(ctx context.Context, limit int) ([]model.AuditEntry, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.auditLog.List(ctx, limit)
}

// Dashboard aggregates counts for the admin dashboard.
func (s *AdminService) Dashboard(ctx context.Context) (*model.DashboardStats, error) {
	totalStudents, err := s.students.Count(ctx)
	if err != nil {
		return nil, err
	}
	totalRegistrations, err := s.registrations.Count(ctx)
	if err != nil {
		return nil, err
	}
	activities, err := s.activities.List(ctx, false)
	if err != nil {
		return nil, err
	}
	return &model.DashboardStats{
		TotalStudents:      totalStudents,
		TotalRegistrations: totalRegistrations,
		Activities:         activities,
	}, nil
}
