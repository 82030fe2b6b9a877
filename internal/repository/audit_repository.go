package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/hstu-emis/admin-gateway/internal/models"
)

// AuditRepository persists the gateway's audit trail.
type AuditRepository struct {
	db *sqlx.DB
}

// NewAuditRepository creates a new instance of AuditRepository.
func NewAuditRepository(db *sqlx.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Record inserts one audit trail entry.
func (r *AuditRepository) Record(ctx context.Context, entry *models.AuditLog) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO audit_logs (id, session_id, username, action, resource, resource_id, detail, ip_address, user_agent, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	if _, err := r.db.ExecContext(ctx, query,
		entry.ID,
		entry.SessionID,
		entry.Username,
		entry.Action,
		entry.Resource,
		entry.ResourceID,
		entry.Detail,
		entry.IPAddress,
		entry.UserAgent,
		entry.CreatedAt,
	); err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}

// ListRecent returns the newest audit entries, most recent first.
func (r *AuditRepository) ListRecent(ctx context.Context, limit int) ([]models.AuditLog, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	const query = `SELECT id, session_id, username, action, resource, resource_id, detail, ip_address, user_agent, created_at
		FROM audit_logs ORDER BY created_at DESC LIMIT $1`
	entries := make([]models.AuditLog, 0, limit)
	if err := r.db.SelectContext(ctx, &entries, query, limit); err != nil {
		return nil, fmt.Errorf("list audit logs: %w", err)
	}
	return entries, nil
}
