package notify

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/satish27072002/mh-skills-coach/internal/observability/metrics"
	"github.com/satish27072002/mh-skills-coach/pkg/logging"
)

// Per-actor outbound email budget.
const (
	MaxAttemptsPerWindow = 3
	AttemptWindow        = 24 * time.Hour
)

// ErrRateLimited is returned when an actor exhausted the email budget. Its
// text is shown to the user verbatim.
var ErrRateLimited = errors.New("email rate limit exceeded (max 3 attempts per 24 hours)")

// Orchestrator sends booking emails through the configured sender and keeps
// an audit row for every attempt, including blocked ones. Only sent and
// failed attempts count against the budget.
type Orchestrator struct {
	db      *sql.DB
	sender  EmailSender
	logger  *logging.Logger
	metrics *metrics.EmailMetrics
	now     func() time.Time
}

// NewOrchestrator builds an email orchestrator.
func NewOrchestrator(db *sql.DB, sender EmailSender, logger *logging.Logger) *Orchestrator {
	if logger == nil {
		logger = logging.Default()
	}
	return &Orchestrator{db: db, sender: sender, logger: logger, now: time.Now}
}

// WithMetrics attaches outbound email counters.
func (o *Orchestrator) WithMetrics(m *metrics.EmailMetrics) *Orchestrator {
	o.metrics = m
	return o
}

// WithClock overrides the orchestrator's clock, for tests.
func (o *Orchestrator) WithClock(now func() time.Time) *Orchestrator {
	o.now = now
	return o
}

func (o *Orchestrator) logAttempt(ctx context.Context, actorKey string, req SendRequest, status, sendError string) {
	_, err := o.db.ExecContext(ctx, `
		INSERT INTO outbound_emails (actor_key, to_email, subject, status, error, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, actorKey, req.To, req.Subject, status, sendError, o.now().UTC())
	if err != nil {
		o.logger.Error("failed to record outbound email attempt", "error", err, "actor_key", actorKey, "status", status)
	}
}

func (o *Orchestrator) attemptCount(ctx context.Context, actorKey string) (int, error) {
	cutoff := o.now().UTC().Add(-AttemptWindow)
	var count int
	err := o.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM outbound_emails
		WHERE actor_key = $1 AND created_at >= $2 AND status IN ('sent', 'failed')
	`, actorKey, cutoff).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("notify: failed to count email attempts: %w", err)
	}
	return count, nil
}

// Send dispatches one email on behalf of an actor. Blocked and failed
// attempts are audited just like successful ones.
func (o *Orchestrator) Send(ctx context.Context, actorKey string, req SendRequest) error {
	attempts, err := o.attemptCount(ctx, actorKey)
	if err != nil {
		return err
	}
	if attempts >= MaxAttemptsPerWindow {
		o.logAttempt(ctx, actorKey, req, "blocked", "rate_limit_exceeded")
		o.metrics.ObserveOutbound("blocked")
		o.logger.Warn("outbound email blocked", "actor_key", actorKey, "attempts", attempts)
		return ErrRateLimited
	}

	sendErr := o.sender.Send(ctx, EmailMessage{
		To:      req.To,
		Subject: req.Subject,
		Body:    req.Body,
		ReplyTo: req.ReplyTo,
	})
	if sendErr != nil {
		o.logAttempt(ctx, actorKey, req, "failed", sendErr.Error())
		o.metrics.ObserveOutbound("failed")
		return fmt.Errorf("failed to send email: %w", sendErr)
	}

	o.logAttempt(ctx, actorKey, req, "sent", "")
	o.metrics.ObserveOutbound("sent")
	return nil
}
