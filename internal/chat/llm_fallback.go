package chat

import (
	"context"
	"strings"

	"github.com/satish27072002/mh-skills-coach/internal/coach"
	"github.com/satish27072002/mh-skills-coach/pkg/logging"
)

const routeClassifierPrompt = `You are an intent classifier for a mental health coaching app.
Classify the user message into exactly one of these labels:
THERAPIST_SEARCH - the user wants to find a therapist, clinic, or provider near a location
BOOKING_EMAIL - the user wants to draft, confirm, or cancel an appointment email
COACH - anything else, including emotional support and coping-skills requests

Answer with only the label, nothing else.`

// NewLLMRouteFallback builds a router fallback backed by an LLM classifier.
// It abstains on any error or unrecognized label so the deterministic default
// still applies.
func NewLLMRouteFallback(llm coach.LLMClient, model string, log *logging.Logger) LLMFallback {
	if log == nil {
		log = logging.Default()
	}
	return func(ctx context.Context, message string) (Route, bool) {
		resp, err := llm.Complete(ctx, coach.LLMRequest{
			Model:       model,
			System:      []string{routeClassifierPrompt},
			Messages:    []coach.ChatMessage{{Role: coach.ChatRoleUser, Content: message}},
			MaxTokens:   8,
			Temperature: 0,
		})
		if err != nil {
			log.Warn("route classifier failed", "error", err.Error())
			return "", false
		}
		switch Route(strings.ToUpper(strings.TrimSpace(resp.Text))) {
		case RouteTherapistSearch:
			return RouteTherapistSearch, true
		case RouteBookingEmail:
			return RouteBookingEmail, true
		case RouteCoach:
			return RouteCoach, true
		}
		return "", false
	}
}
