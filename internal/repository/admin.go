package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dsnpru/activityreg/internal/model"
)

// AdminRepository handles persistence for back-office users.
type AdminRepository struct {
	db *pgxpool.Pool
}

// NewAdminRepository constructs an AdminRepository.
func NewAdminRepository(db *pgxpool.Pool) *AdminRepository {
	return &AdminRepository{db: db}
}

// GetByUsername returns an admin or ErrNotFound.
func (r *AdminRepository) GetByUsername(ctx context.Context, username string) (*model.Admin, error) {
	var a model.Admin
	err := r.db.QueryRow(ctx,
		`SELECT id, username, password_hash, is_superuser FROM admins WHERE username = $1`,
		username,
	).Scan(&a.ID, &a.Username, &a.PasswordHash, &a.IsSuperuser)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get admin: %w", err)
	}
	return &a, nil
}

// EnsureDefault seeds a superuser admin when the table is empty. Startup
// concern of the hosting service, called once from main.
func (r *AdminRepository) EnsureDefault(ctx context.Context, username, passwordHash string) error {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM admins)`).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check admins: %w", err)
	}
	if exists {
		return nil
	}
	_, err = r.db.Exec(ctx,
		`INSERT INTO admins (id, username, password_hash, is_superuser)
		 VALUES ($1, $2, $3, TRUE)`,
		uuid.New().String(), username, passwordHash,
	)
	if err != nil {
		return fmt.Errorf("seed default admin: %w", err)
	}
	return nil
}
