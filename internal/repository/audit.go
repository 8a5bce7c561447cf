package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dsnpru/activityreg/internal/model"
)

// AuditRepository appends to and reads the audit log.
type AuditRepository struct {
	db *pgxpool.Pool
}

// NewAuditRepository constructs an AuditRepository.
func NewAuditRepository(db *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{db: db}
}

// Record appends one audit entry.
func (r *AuditRepository) Record(ctx context.Context, actor, action, details, ipAddress string) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO audit_log (id, actor, action, details, ip_address, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		uuid.New().String(), actor, action, details, ipAddress, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// List returns the most recent entries, newest first.
func (r *AuditRepository) List(ctx context.Context, limit int) ([]model.AuditEntry, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, actor, action, COALESCE(details, ''), COALESCE(ip_address, ''), created_at
		 FROM audit_log
		 ORDER BY created_at DESC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()

	var entries []model.AuditEntry
	for rows.Next() {
		var e model.AuditEntry
		if err := rows.Scan(&e.ID, &e.Actor, &e.Action, &e.Details, &e.IPAddress, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
