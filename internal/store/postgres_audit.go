package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/JosePanoy/Web-App-Shoe-Vendo/internal/domain"
	"github.com/google/uuid"
)

// CreateAuditEntry appends one activity log row.
func (r *PostgresRepository) CreateAuditEntry(ctx context.Context, entry *domain.AuditEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	details := entry.Details
	if details == nil {
		details = map[string]any{}
	}
	raw, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("encode audit details: %w", err)
	}
	query := `
		INSERT INTO audit_logs (id, actor_id, actor_role, actor_name, action, target, details, ip, user_agent)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at
	`
	return r.db.QueryRow(ctx, query,
		entry.ID,
		entry.ActorID,
		entry.ActorRole,
		entry.ActorName,
		entry.Action,
		entry.Target,
		string(raw),
		entry.IP,
		entry.UserAgent,
	).Scan(&entry.CreatedAt)
}
