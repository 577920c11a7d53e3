package chat

import (
	"context"
	"regexp"
	"strings"

	"github.com/satish27072002/mh-skills-coach/internal/booking"
	"github.com/satish27072002/mh-skills-coach/internal/safety"
	"github.com/satish27072002/mh-skills-coach/internal/therapist"
)

// Route identifies which agent handles a chat message.
type Route string

const (
	RouteTherapistSearch Route = "THERAPIST_SEARCH"
	RouteBookingEmail    Route = "BOOKING_EMAIL"
	RouteCoach           Route = "COACH"
)

var therapistSearchKeywords = []string{
	"find therapist",
	"find a therapist",
	"therapist near",
	"therapists near",
	"clinic near",
	"provider near",
	"psychiatry",
	"psychiatrist",
	"psychiatry clinic",
	"bup",
	"mottagning",
	"mental health clinic",
	"find clinic",
}

var emailIntentKeywords = []string{
	"send email",
	"email",
	"appointment",
	"schedule",
	"book",
	"contact therapist",
	"draft email",
}

var (
	emailAddressRe = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)
	nonAlphaRe     = regexp.MustCompile(`[^a-z]+`)
)

// confirmationTokens covers both affirmative and negative replies. A message
// made only of these belongs to the booking agent, which decides what a bare
// "yes" or "no" means given pending state.
var confirmationTokens = map[string]struct{}{
	"yes": {}, "confirm": {}, "confirmed": {}, "ok": {}, "okay": {}, "y": {},
	"no": {}, "cancel": {}, "n": {},
}

// RouterInput carries the message plus the pending-state flags that take
// precedence over keyword matching.
type RouterInput struct {
	Message                     string
	HasPendingBooking           bool
	HasPendingTherapistLocation bool
}

// LLMFallback classifies a message when no deterministic rule fires. A false
// second return means the classifier abstained.
type LLMFallback func(ctx context.Context, message string) (Route, bool)

// Router decides which agent handles a message. Deterministic rules run in
// priority order; the optional LLM fallback only sees messages none of them
// claimed.
type Router struct {
	llmFallback LLMFallback
}

func NewRouter(llmFallback LLMFallback) *Router {
	return &Router{llmFallback: llmFallback}
}

func (r *Router) Route(ctx context.Context, input RouterInput) Route {
	message := strings.TrimSpace(input.Message)

	// Pending booking always continues through the booking agent first.
	if input.HasPendingBooking {
		return RouteBookingEmail
	}

	if input.HasPendingTherapistLocation && therapist.LooksLikeLocationReply(message) {
		return RouteTherapistSearch
	}

	if hasStrongEmailIntent(message) {
		return RouteBookingEmail
	}

	if isTherapistSearchIntent(message) {
		return RouteTherapistSearch
	}

	if booking.IsBookingIntent(message) {
		return RouteBookingEmail
	}

	if isConfirmationOnlyMessage(message) {
		return RouteBookingEmail
	}

	if r.llmFallback != nil {
		if candidate, ok := r.llmFallback(ctx, message); ok {
			switch candidate {
			case RouteTherapistSearch, RouteBookingEmail, RouteCoach:
				return candidate
			}
		}
	}

	return RouteCoach
}

func hasStrongEmailIntent(message string) bool {
	if emailAddressRe.MatchString(message) {
		return true
	}
	lower := strings.ToLower(message)
	for _, keyword := range emailIntentKeywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}

func isTherapistSearchIntent(message string) bool {
	lower := strings.ToLower(message)
	for _, keyword := range therapistSearchKeywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return safety.ClassifyIntent(message) == "therapist_search"
}

func isConfirmationOnlyMessage(message string) bool {
	cleaned := strings.TrimSpace(nonAlphaRe.ReplaceAllString(strings.ToLower(message), " "))
	if cleaned == "" {
		return false
	}
	for _, token := range strings.Fields(cleaned) {
		if _, ok := confirmationTokens[token]; !ok {
			return false
		}
	}
	return true
}
