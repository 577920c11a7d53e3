package chat

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/satish27072002/mh-skills-coach/internal/booking"
	"github.com/satish27072002/mh-skills-coach/internal/observability/metrics"
	"github.com/satish27072002/mh-skills-coach/internal/safety"
	"github.com/satish27072002/mh-skills-coach/internal/schema"
	"github.com/satish27072002/mh-skills-coach/pkg/logging"
)

// SafetyGate short-circuits crisis messages before any routing happens.
type SafetyGate interface {
	Handle(ctx context.Context, actor schema.Actor, message string) *schema.ChatResponse
}

// TherapistAgent handles provider searches and remembers per-actor state.
type TherapistAgent interface {
	Handle(ctx context.Context, actor schema.Actor, message string) *schema.ChatResponse
	HasPendingLocationRequest(ctx context.Context, actor schema.Actor) bool
}

// BookingAgent drives the multi-turn appointment email flow. A nil response
// means the message was not a booking message after all and falls through to
// the coach.
type BookingAgent interface {
	Handle(ctx context.Context, actor schema.Actor, actorKey, message string, pending *booking.PendingAction, pendingExpired bool) (*schema.ChatResponse, error)
}

// PendingLoader reports the actor's pending booking request, if any.
type PendingLoader interface {
	Load(ctx context.Context, actorKey string, now time.Time) (*booking.PendingAction, bool, error)
}

// CoachResponder produces the default coaching reply with history context.
type CoachResponder interface {
	Respond(ctx context.Context, message string, history []safety.Turn) *schema.ChatResponse
}

// Service runs the chat pipeline: safety checks first, then routing, then the
// selected agent. Crisis handling always precedes the scope check so a crisis
// message can never be dismissed as out of scope.
type Service struct {
	router    *Router
	gate      SafetyGate
	therapist TherapistAgent
	booking   BookingAgent
	pending   PendingLoader
	coach     CoachResponder
	history   HistoryStore
	metrics   *metrics.ChatMetrics
	log       *logging.Logger
	now       func() time.Time
}

func NewService(
	router *Router,
	gate SafetyGate,
	therapistAgent TherapistAgent,
	bookingAgent BookingAgent,
	pending PendingLoader,
	coach CoachResponder,
	history HistoryStore,
	chatMetrics *metrics.ChatMetrics,
	log *logging.Logger,
) *Service {
	if log == nil {
		log = logging.Default()
	}
	return &Service{
		router:    router,
		gate:      gate,
		therapist: therapistAgent,
		booking:   bookingAgent,
		pending:   pending,
		coach:     coach,
		history:   history,
		metrics:   chatMetrics,
		log:       log,
		now:       time.Now,
	}
}

// WithClock overrides the time source.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Handle processes one chat message end to end.
func (s *Service) Handle(ctx context.Context, actor schema.Actor, message string) (*schema.ChatResponse, error) {
	message = strings.TrimSpace(message)
	correlationID := uuid.NewString()
	log := s.log.WithCorrelationID(correlationID)

	sessionKey := actor.SessionKey()

	pending, pendingExpired, err := s.pending.Load(ctx, sessionKey, s.now())
	if err != nil {
		// A storage hiccup should not take chat down; treat as no pending state.
		log.Warn("failed to load pending booking", "error", err.Error())
		pending, pendingExpired = nil, false
	}

	// Crisis check runs before everything else, including the scope check.
	if resp := s.gate.Handle(ctx, actor, message); resp != nil {
		log.Info("safety_trigger", "trigger_type", "safety_gate")
		s.metrics.ObserveSafetyTrigger("safety_gate")
		s.appendHistory(ctx, log, sessionKey, message, resp)
		return resp, nil
	}

	if safety.ContainsJailbreakAttempt(message) {
		log.Info("safety_trigger", "trigger_type", "jailbreak")
		s.metrics.ObserveSafetyTrigger("jailbreak")
		resp := safety.JailbreakRefusal()
		s.appendHistory(ctx, log, sessionKey, message, resp)
		return resp, nil
	}

	if !safety.ScopeCheck(message) {
		log.Info("safety_trigger", "trigger_type", "out_of_scope")
		s.metrics.ObserveSafetyTrigger("out_of_scope")
		resp := safety.OutOfScopeReply()
		s.appendHistory(ctx, log, sessionKey, message, resp)
		return resp, nil
	}

	history, err := s.history.Load(ctx, sessionKey)
	if err != nil {
		log.Warn("failed to load conversation history", "error", err.Error())
		history = nil
	}

	if safety.IsPrescriptionRequest(message) {
		log.Info("safety_trigger", "trigger_type", "prescription")
		s.metrics.ObserveSafetyTrigger("prescription")
		resp := safety.PrescriptionRefusal()
		s.appendHistory(ctx, log, sessionKey, message, resp)
		return resp, nil
	}

	hasPendingLocation := s.therapist.HasPendingLocationRequest(ctx, actor)
	route := s.router.Route(ctx, RouterInput{
		Message:                     message,
		HasPendingBooking:           pending != nil,
		HasPendingTherapistLocation: hasPendingLocation,
	})
	log.Info("agent_routing",
		"route", string(route),
		"has_pending_booking", pending != nil,
		"has_pending_location", hasPendingLocation,
		"user_id", actor.UserID,
	)
	s.metrics.ObserveRoute(string(route))

	switch route {
	case RouteTherapistSearch:
		resp := s.therapist.Handle(ctx, actor, message)
		s.appendHistory(ctx, log, sessionKey, message, resp)
		return resp, nil
	case RouteBookingEmail:
		resp, err := s.booking.Handle(ctx, actor, sessionKey, message, pending, pendingExpired)
		if err != nil {
			return nil, err
		}
		if resp != nil {
			s.appendHistory(ctx, log, sessionKey, message, resp)
			return resp, nil
		}
		// Not an actionable booking message; the coach picks it up below.
	}

	start := s.now()
	resp := s.coach.Respond(ctx, message, history)
	elapsed := time.Since(start)
	log.Info("llm_call", "route", "COACH", "duration_ms", elapsed.Milliseconds())
	s.metrics.ObserveLLMLatency("COACH", elapsed.Seconds())

	s.appendHistory(ctx, log, sessionKey, message, resp)
	return resp, nil
}

func (s *Service) appendHistory(ctx context.Context, log *logging.Logger, sessionKey, message string, resp *schema.ChatResponse) {
	if resp == nil {
		return
	}
	if err := s.history.Append(ctx, sessionKey, message, resp.CoachMessage); err != nil {
		log.Warn("failed to append conversation history", "error", err.Error())
	}
}
