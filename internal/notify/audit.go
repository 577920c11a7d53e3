package notify

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// OutboundEmail is one audited send attempt.
type OutboundEmail struct {
	ID        int64     `json:"id"`
	ActorKey  string    `json:"actor_key"`
	ToEmail   string    `json:"to_email"`
	Subject   string    `json:"subject"`
	Status    string    `json:"status"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

const defaultAuditLimit = 100

// ListRecent returns the newest audit rows, most recent first.
func (o *Orchestrator) ListRecent(ctx context.Context, limit int) ([]OutboundEmail, error) {
	if limit <= 0 || limit > defaultAuditLimit {
		limit = defaultAuditLimit
	}
	rows, err := o.db.QueryContext(ctx, `
		SELECT id, actor_key, to_email, subject, status, error, created_at
		FROM outbound_emails
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("notify: failed to list outbound emails: %w", err)
	}
	defer rows.Close()

	var out []OutboundEmail
	for rows.Next() {
		var rec OutboundEmail
		var sendError sql.NullString
		if err := rows.Scan(&rec.ID, &rec.ActorKey, &rec.ToEmail, &rec.Subject, &rec.Status, &sendError, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("notify: failed to scan outbound email: %w", err)
		}
		rec.Error = sendError.String
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("notify: failed to iterate outbound emails: %w", err)
	}
	return out, nil
}
