package therapist

import (
	"context"
	"fmt"
	"time"

	"github.com/satish27072002/mh-skills-coach/internal/observability/metrics"
	"github.com/satish27072002/mh-skills-coach/internal/schema"
	"github.com/satish27072002/mh-skills-coach/pkg/logging"
)

// SearchFunc runs one provider search attempt. Backends may ignore the
// specialty; it still drives the retry ladder.
type SearchFunc func(ctx context.Context, location string, radiusKM int, specialty string, limit int) ([]schema.TherapistResult, error)

// Agent answers therapist search turns: parse the request, ask for a city
// when none is known, search with relaxation retries, and remember the
// location that worked.
type Agent struct {
	search   SearchFunc
	sessions SessionStore
	devMode  bool
	metrics  *metrics.SearchMetrics
	log      *logging.Logger
}

// NewAgent builds a therapist search agent.
func NewAgent(search SearchFunc, sessions SessionStore, devMode bool, log *logging.Logger) *Agent {
	if log == nil {
		log = logging.Default()
	}
	return &Agent{search: search, sessions: sessions, devMode: devMode, log: log}
}

// WithMetrics attaches search counters and latency histograms.
func (a *Agent) WithMetrics(m *metrics.SearchMetrics) *Agent {
	a.metrics = m
	return a
}

// DevMode reports whether search is open without premium entitlement.
func (a *Agent) DevMode() bool {
	return a.devMode
}

// ParseMessage extracts search parameters from free text.
func (a *Agent) ParseMessage(message string) (location string, radiusKM int, specialty string) {
	params := ParseMessage(message)
	return params.Location, params.RadiusKM, params.Specialty
}

// RememberedLocation returns the actor's last successful search location.
// Store failures degrade to "unknown location".
func (a *Agent) RememberedLocation(ctx context.Context, actor schema.Actor) string {
	location, err := a.sessions.RememberedLocation(ctx, actor.SessionKey())
	if err != nil {
		a.log.Warn("failed to load remembered location", "error", err)
		return ""
	}
	return location
}

// RememberLocation stores the actor's location for later turns.
func (a *Agent) RememberLocation(ctx context.Context, actor schema.Actor, location string) error {
	return a.sessions.RememberLocation(ctx, actor.SessionKey(), location)
}

// HasPendingLocationRequest reports whether we previously asked this actor
// for a city and are still waiting.
func (a *Agent) HasPendingLocationRequest(ctx context.Context, actor schema.Actor) bool {
	params, err := a.sessions.PendingQuery(ctx, actor.SessionKey())
	if err != nil {
		a.log.Warn("failed to load pending query", "error", err)
		return false
	}
	return params != nil
}

// SearchWithRetries runs the search, then relaxes constraints when nothing
// matched: drop the specialty first, then widen a narrow radius to the
// default. The returned reason names the relaxation that produced results.
func (a *Agent) SearchWithRetries(ctx context.Context, location string, radiusKM int, specialty string, limit int) ([]schema.TherapistResult, string, error) {
	radius := clamp(orDefault(radiusKM, DefaultRadiusKM), MinRadiusKM, MaxRadiusKM)
	specialty = NormalizeSpecialty(specialty)
	requestedLimit := clamp(orDefault(limit, DefaultLimit), 1, MaxLimit)

	type attempt struct {
		radius    int
		specialty string
		reason    string
	}
	attempts := []attempt{{radius, specialty, ""}}
	if specialty != "" {
		attempts = append(attempts, attempt{radius, "", "specialty"})
	}
	if radius < DefaultRadiusKM {
		attempts = append(attempts, attempt{DefaultRadiusKM, "", "radius"})
	}

	seen := make(map[string]bool)
	var lastErr error
	for _, att := range attempts {
		key := fmt.Sprintf("%d|%s", att.radius, att.specialty)
		if seen[key] {
			continue
		}
		seen[key] = true
		started := time.Now()
		results, err := a.search(ctx, location, att.radius, att.specialty, requestedLimit)
		a.metrics.ObserveSearchLatency("osm", time.Since(started).Seconds())
		if err != nil {
			lastErr = err
			continue
		}
		if len(results) > 0 {
			if att.reason == "" {
				a.metrics.ObserveSearch("results")
			} else {
				a.metrics.ObserveSearch("fallback_" + att.reason)
			}
			return results, att.reason, nil
		}
	}
	if lastErr != nil {
		a.metrics.ObserveSearch("error")
	} else {
		a.metrics.ObserveSearch("empty")
	}
	return nil, "", lastErr
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// Handle answers one therapist search turn.
func (a *Agent) Handle(ctx context.Context, actor schema.Actor, message string) *schema.ChatResponse {
	if actor.UserID == "" && !a.devMode {
		return &schema.ChatResponse{
			CoachMessage: "Please sign in to use therapist search.",
			PremiumCta: &schema.PremiumCta{
				Enabled: true,
				Message: "Sign in and upgrade to premium to unlock therapist search.",
			},
		}
	}
	if actor.UserID != "" && !actor.IsPremium && !a.devMode {
		return &schema.ChatResponse{
			CoachMessage: "Therapist search is available with premium access.",
			PremiumCta: &schema.PremiumCta{
				Enabled: true,
				Message: "Unlock therapist search to see local providers.",
			},
		}
	}

	sessionKey := actor.SessionKey()
	parsed := ParseMessage(message)
	location := parsed.Location

	if location == "" {
		pending, err := a.sessions.PendingQuery(ctx, sessionKey)
		if err != nil {
			a.log.Warn("failed to load pending query", "error", err)
		}
		if pending != nil && LooksLikeLocationReply(message) {
			location = ExtractLocationFromShortReply(message)
			merged := *pending
			merged.Location = location
			if radius := ExtractRadiusKM(message); radius != 0 {
				merged.RadiusKM = radius
			}
			if specialty := NormalizeSpecialty(ExtractSpecialty(message)); specialty != "" {
				merged.Specialty = specialty
			}
			if containsDigit(message) {
				merged.Limit = ExtractLimit(message)
			}
			parsed = merged
		}
	}

	if location == "" {
		// Drop stale context so a fresh request starts clean.
		if err := a.sessions.ClearLocation(ctx, sessionKey); err != nil {
			a.log.Warn("failed to clear remembered location", "error", err)
		}
		if err := a.sessions.ClearPendingQuery(ctx, sessionKey); err != nil {
			a.log.Warn("failed to clear pending query", "error", err)
		}
		if err := a.sessions.SetPendingQuery(ctx, sessionKey, parsed); err != nil {
			a.log.Warn("failed to save pending query", "error", err)
		}
		return &schema.ChatResponse{
			CoachMessage: "Please share a city or postcode so I can search nearby providers.",
			Therapists:   []schema.TherapistResult{},
		}
	}

	if err := a.sessions.ClearPendingQuery(ctx, sessionKey); err != nil {
		a.log.Warn("failed to clear pending query", "error", err)
	}

	results, fallbackReason, err := a.SearchWithRetries(ctx, location, parsed.RadiusKM, parsed.Specialty, parsed.Limit)
	if err != nil {
		a.log.Warn("therapist search failed", "error", err, "location", location)
		results = nil
	}

	if len(results) == 0 {
		return &schema.ChatResponse{
			CoachMessage: fmt.Sprintf(
				"No providers found near %s within %d km. Try a larger radius or nearby area.",
				location, parsed.RadiusKM,
			),
			Therapists: []schema.TherapistResult{},
		}
	}

	if err := a.sessions.RememberLocation(ctx, sessionKey, location); err != nil {
		a.log.Warn("failed to remember location", "error", err)
	}

	switch fallbackReason {
	case "specialty":
		return &schema.ChatResponse{
			CoachMessage: "No exact specialty match; showing nearby providers.",
			Therapists:   results,
		}
	case "radius":
		return &schema.ChatResponse{
			CoachMessage: "No providers found in the requested radius; showing nearby providers.",
			Therapists:   results,
		}
	}
	return &schema.ChatResponse{
		CoachMessage: fmt.Sprintf("Here are therapist options near %s.", location),
		Therapists:   results,
	}
}
