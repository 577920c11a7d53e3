package booking

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/satish27072002/mh-skills-coach/internal/notify"
	"github.com/satish27072002/mh-skills-coach/internal/schema"
	"github.com/satish27072002/mh-skills-coach/pkg/logging"
)

// PendingStore is the persistence surface the agent needs.
type PendingStore interface {
	Load(ctx context.Context, actorKey string, now time.Time) (*PendingAction, bool, error)
	Save(ctx context.Context, actorKey string, payload Payload, now time.Time) (*PendingAction, error)
	Clear(ctx context.Context, id int64) error
}

// SendEmailFunc dispatches a confirmed booking email for an actor. The error
// message, when non-nil, is shown to the user verbatim.
type SendEmailFunc func(ctx context.Context, actorKey string, req notify.SendRequest) error

// Agent drives the multi-turn booking email conversation: collect therapist
// email and appointment time, propose the draft, then send or cancel on
// explicit confirmation.
type Agent struct {
	store     PendingStore
	sendEmail SendEmailFunc
	log       *logging.Logger
	now       func() time.Time
}

// NewAgent builds a booking email agent.
func NewAgent(store PendingStore, sendEmail SendEmailFunc, log *logging.Logger) *Agent {
	if log == nil {
		log = logging.Default()
	}
	return &Agent{store: store, sendEmail: sendEmail, log: log, now: time.Now}
}

// WithClock overrides the agent's clock, for tests.
func (a *Agent) WithClock(now func() time.Time) *Agent {
	a.now = now
	return a
}

func requestedTimeDisplay(iso string) string {
	loc := Location()
	dt, ok := parseISO(iso, loc)
	if !ok {
		return iso
	}
	return dt.In(loc).Format("2006-01-02 15:04") + " " + TimezoneName
}

func proposalFromPayload(payload Payload, expiresAt time.Time) *schema.BookingProposal {
	return &schema.BookingProposal{
		TherapistEmail: payload.TherapistEmail,
		RequestedTime:  requestedTimeDisplay(payload.RequestedDatetimeISO),
		Subject:        payload.Subject,
		Body:           payload.Body,
		ExpiresAt:      expiresAt.In(Location()).Format(time.RFC3339),
	}
}

func missingFieldsMessage(payload Payload, clarification string) string {
	if clarification != "" {
		return clarification
	}
	missingEmail := payload.TherapistEmail == ""
	missingTime := payload.RequestedDatetimeISO == ""
	switch {
	case missingEmail && missingTime:
		return "Please share the therapist email and requested date/time in Europe/Stockholm " +
			"(for example: therapist@example.com, 2026-02-14 15:00)."
	case missingEmail:
		return "Please provide the therapist email address."
	default:
		return "Please provide the requested appointment date/time in Europe/Stockholm."
	}
}

// Handle processes one booking turn. It returns nil when the message is not
// booking-related at all, letting the pipeline fall through to the coach.
func (a *Agent) Handle(ctx context.Context, actor schema.Actor, actorKey, message string, pending *PendingAction, pendingExpired bool) (*schema.ChatResponse, error) {
	if pending != nil {
		return a.handlePending(ctx, actor, actorKey, message, pending)
	}

	if pendingExpired && (IsAffirmative(message) || IsNegative(message)) {
		a.log.Info("booking pending expired", "actor_key", actorKey)
		return &schema.ChatResponse{
			CoachMessage: fmt.Sprintf(
				"Your pending booking request expired after %d minutes. Please start again with therapist email and time.",
				TTLMinutes,
			),
			RequiresConfirmation: schema.BoolPtr(false),
		}, nil
	}

	if IsConfirmationOnlyMessage(message) {
		return &schema.ChatResponse{
			CoachMessage:         "No pending booking request to confirm. Please provide therapist email + time.",
			RequiresConfirmation: schema.BoolPtr(false),
		}, nil
	}

	if !IsBookingIntent(message) {
		return nil, nil
	}

	extracted := Extract(message, a.now())
	sender := Sender{Name: actor.UserName, Email: actor.UserEmail}

	if extracted.TherapistEmail != "" && !extracted.RequestedAt.IsZero() {
		payload := BuildEmailContent(sender, extracted.TherapistEmail, extracted.RequestedAt, extracted.SenderName, "")
		saved, err := a.store.Save(ctx, actorKey, payload, a.now())
		if err != nil {
			return nil, err
		}
		proposal := proposalFromPayload(saved.Payload, saved.ExpiresAt)
		a.log.Info("booking proposal created", "actor_key", actorKey, "to", proposal.TherapistEmail)
		return &schema.ChatResponse{
			CoachMessage: fmt.Sprintf(
				"I prepared an appointment email to %s for %s. Reply YES to send or NO to cancel.",
				proposal.TherapistEmail, proposal.RequestedTime,
			),
			BookingProposal:      proposal,
			RequiresConfirmation: schema.BoolPtr(true),
		}, nil
	}

	payload := Payload{
		TherapistEmail: extracted.TherapistEmail,
		ReplyTo:        actor.UserEmail,
		SenderName:     extracted.SenderName,
	}
	if payload.SenderName == "" {
		payload.SenderName = actor.UserName
	}
	if !extracted.RequestedAt.IsZero() {
		payload.RequestedDatetimeISO = extracted.RequestedAt.Format(time.RFC3339)
	}
	if _, err := a.store.Save(ctx, actorKey, payload, a.now()); err != nil {
		return nil, err
	}
	a.log.Info("booking pending created", "actor_key", actorKey, "missing", strings.Join(payload.Missing(), ","))
	return &schema.ChatResponse{
		CoachMessage:         missingFieldsMessage(payload, extracted.Clarification),
		RequiresConfirmation: schema.BoolPtr(false),
	}, nil
}

func (a *Agent) handlePending(ctx context.Context, actor schema.Actor, actorKey, message string, pending *PendingAction) (*schema.ChatResponse, error) {
	payload := pending.Payload

	if IsNegative(message) {
		if err := a.store.Clear(ctx, pending.ID); err != nil {
			return nil, err
		}
		a.log.Info("booking pending cancelled", "actor_key", actorKey)
		return &schema.ChatResponse{
			CoachMessage:         "Okay, I cancelled the pending booking email request.",
			RequiresConfirmation: schema.BoolPtr(false),
		}, nil
	}

	if IsAffirmative(message) {
		if !payload.Complete() {
			return &schema.ChatResponse{CoachMessage: missingFieldsMessage(payload, "")}, nil
		}
		coachMessage := "Email sent successfully. I have cleared the pending booking request."
		sendErr := a.sendEmail(ctx, actorKey, notify.SendRequest{
			To:      payload.TherapistEmail,
			Subject: payload.Subject,
			Body:    payload.Body,
			ReplyTo: payload.ReplyTo,
		})
		if sendErr != nil {
			coachMessage = "I could not send the email: " + sendErr.Error()
			a.log.Info("booking email failed", "actor_key", actorKey, "reason", sendErr.Error())
		} else {
			a.log.Info("booking email sent", "actor_key", actorKey, "to", payload.TherapistEmail)
		}
		// The draft is consumed whether or not the send worked.
		if err := a.store.Clear(ctx, pending.ID); err != nil {
			return nil, err
		}
		return &schema.ChatResponse{
			CoachMessage:         coachMessage,
			RequiresConfirmation: schema.BoolPtr(false),
		}, nil
	}

	update := Extract(message, a.now())
	changed := false
	if payload.TherapistEmail == "" && update.TherapistEmail != "" {
		payload.TherapistEmail = update.TherapistEmail
		changed = true
	}
	if payload.RequestedDatetimeISO == "" && !update.RequestedAt.IsZero() {
		payload.RequestedDatetimeISO = update.RequestedAt.Format(time.RFC3339)
		changed = true
	}

	if payload.Complete() {
		proposal := proposalFromPayload(payload, pending.ExpiresAt)
		a.log.Info("booking proposal ready", "actor_key", actorKey, "to", proposal.TherapistEmail)
		return &schema.ChatResponse{
			CoachMessage: fmt.Sprintf(
				"Please confirm sending this request to %s for %s. Reply YES to send or NO to cancel.",
				proposal.TherapistEmail, proposal.RequestedTime,
			),
			BookingProposal:      proposal,
			RequiresConfirmation: schema.BoolPtr(true),
		}, nil
	}

	if changed && payload.TherapistEmail != "" && payload.RequestedDatetimeISO != "" {
		requestedAt, ok := parseISO(payload.RequestedDatetimeISO, Location())
		if !ok {
			return nil, fmt.Errorf("booking: invalid stored datetime %q", payload.RequestedDatetimeISO)
		}
		sender := Sender{Name: actor.UserName, Email: actor.UserEmail}
		complete := BuildEmailContent(sender, payload.TherapistEmail, requestedAt, payload.SenderName, payload.ReplyTo)
		saved, err := a.store.Save(ctx, actorKey, complete, a.now())
		if err != nil {
			return nil, err
		}
		proposal := proposalFromPayload(saved.Payload, saved.ExpiresAt)
		a.log.Info("booking proposal created", "actor_key", actorKey, "to", proposal.TherapistEmail)
		return &schema.ChatResponse{
			CoachMessage: fmt.Sprintf(
				"I prepared the email to %s for %s. Reply YES to send or NO to cancel.",
				proposal.TherapistEmail, proposal.RequestedTime,
			),
			BookingProposal:      proposal,
			RequiresConfirmation: schema.BoolPtr(true),
		}, nil
	}

	if changed {
		if _, err := a.store.Save(ctx, actorKey, payload, a.now()); err != nil {
			return nil, err
		}
		a.log.Info("booking pending updated", "actor_key", actorKey, "missing", strings.Join(payload.Missing(), ","))
	}

	return &schema.ChatResponse{
		CoachMessage: missingFieldsMessage(payload, update.Clarification),
	}, nil
}
