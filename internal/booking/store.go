package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PgxPool is the pool surface the store needs. pgxpool.Pool satisfies it, as
// does pgxmock in tests.
type PgxPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PendingAction is one row of remembered booking state. At most one live row
// exists per actor key.
type PendingAction struct {
	ID        int64
	ActorKey  string
	Payload   Payload
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Store persists pending booking drafts in Postgres.
type Store struct {
	pool PgxPool
}

// NewStore builds a Postgres-backed pending booking store.
func NewStore(pool PgxPool) *Store {
	if pool == nil {
		panic("booking: pgx pool cannot be nil")
	}
	return &Store{pool: pool}
}

// Load returns the actor's pending booking draft. The second return is true
// when a draft existed but had expired; expired rows are deleted on read.
func (s *Store) Load(ctx context.Context, actorKey string, now time.Time) (*PendingAction, bool, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, actor_key, payload, created_at, expires_at
		FROM pending_actions
		WHERE actor_key = $1 AND action_type = $2
		ORDER BY created_at DESC
		LIMIT 1
	`, actorKey, ActionType)

	var (
		pending     PendingAction
		payloadJSON []byte
	)
	err := row.Scan(&pending.ID, &pending.ActorKey, &payloadJSON, &pending.CreatedAt, &pending.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("booking: failed to load pending action: %w", err)
	}

	if !pending.ExpiresAt.After(now.UTC()) {
		if _, delErr := s.pool.Exec(ctx, `DELETE FROM pending_actions WHERE id = $1`, pending.ID); delErr != nil {
			return nil, false, fmt.Errorf("booking: failed to delete expired pending action: %w", delErr)
		}
		return nil, true, nil
	}

	if err := json.Unmarshal(payloadJSON, &pending.Payload); err != nil {
		// Unreadable payload behaves like an empty draft.
		pending.Payload = Payload{}
	}
	return &pending, false, nil
}

// Save replaces the actor's pending draft with a fresh one expiring TTL from
// now. Delete-then-insert runs in one transaction so at most one draft ever
// exists per actor.
func (s *Store) Save(ctx context.Context, actorKey string, payload Payload, now time.Time) (*PendingAction, error) {
	payloadJSON, err := json.Marshal(payload.Stamp())
	if err != nil {
		return nil, fmt.Errorf("booking: failed to encode payload: %w", err)
	}

	nowUTC := now.UTC()
	expiresAt := nowUTC.Add(TTL)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("booking: failed to begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		DELETE FROM pending_actions WHERE actor_key = $1 AND action_type = $2
	`, actorKey, ActionType); err != nil {
		return nil, fmt.Errorf("booking: failed to clear previous pending actions: %w", err)
	}

	var id int64
	if err := tx.QueryRow(ctx, `
		INSERT INTO pending_actions (actor_key, action_type, payload, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, actorKey, ActionType, payloadJSON, nowUTC, expiresAt).Scan(&id); err != nil {
		return nil, fmt.Errorf("booking: failed to insert pending action: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("booking: failed to commit pending action: %w", err)
	}

	return &PendingAction{
		ID:        id,
		ActorKey:  actorKey,
		Payload:   payload.Stamp(),
		CreatedAt: nowUTC,
		ExpiresAt: expiresAt,
	}, nil
}

// Clear deletes a pending draft by id.
func (s *Store) Clear(ctx context.Context, id int64) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM pending_actions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("booking: failed to clear pending action: %w", err)
	}
	return nil
}
