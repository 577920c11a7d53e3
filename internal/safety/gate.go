package safety

import (
	"context"

	"github.com/satish27072002/mh-skills-coach/internal/schema"
	"github.com/satish27072002/mh-skills-coach/pkg/logging"
)

// TherapistFinder is the slice of the therapist agent the gate needs to
// enrich a crisis reply with nearby providers.
type TherapistFinder interface {
	// ParseMessage extracts search parameters from free text. Location is
	// empty when none was mentioned.
	ParseMessage(message string) (location string, radiusKM int, specialty string)
	// RememberedLocation returns the actor's last known location, if any.
	RememberedLocation(ctx context.Context, actor schema.Actor) string
	// SearchWithRetries runs the search with relaxation fallbacks.
	SearchWithRetries(ctx context.Context, location string, radiusKM int, specialty string, limit int) ([]schema.TherapistResult, string, error)
	// RememberLocation stores the actor's location for later turns.
	RememberLocation(ctx context.Context, actor schema.Actor, location string) error
}

// Gate short-circuits every chat turn that signals acute risk. It always
// replies with emergency resources; therapist enrichment is best effort and
// never blocks or fails the crisis reply.
type Gate struct {
	finder  TherapistFinder
	devMode bool
	log     *logging.Logger
}

// NewGate builds a crisis gate. finder may be nil when search is disabled.
func NewGate(finder TherapistFinder, devMode bool, log *logging.Logger) *Gate {
	if log == nil {
		log = logging.Default()
	}
	return &Gate{finder: finder, devMode: devMode, log: log}
}

const crisisMessageBase = "I am really sorry you are feeling this way. You deserve immediate support right now. " +
	"If you are in immediate danger or think you might act on these thoughts, call emergency services now " +
	"(in Sweden: 112). You can also contact Mind Självmordslinjen (90101) for urgent support, and 1177 " +
	"Vårdguiden for healthcare guidance. If you are outside Sweden, please call your local emergency number " +
	"or local crisis hotline now. "

// CrisisResources lists the hotlines attached to every crisis-adjacent reply.
func CrisisResources() []schema.Resource {
	return []schema.Resource{
		{Title: "Emergency services (Sweden) - 112", URL: "https://www.112.se/"},
		{Title: "Mind Självmordslinjen (90101)", URL: "https://mind.se/hitta-hjalp/sjalvmordslinjen/"},
		{Title: "1177 Vårdguiden", URL: "https://www.1177.se/"},
		{Title: "Find an international crisis line", URL: "https://www.opencounseling.com/suicide-hotlines"},
	}
}

// Handle returns a crisis reply when the message signals acute risk, nil
// otherwise. The reply is always produced; search failures are logged and
// swallowed.
func (g *Gate) Handle(ctx context.Context, actor schema.Actor, message string) *schema.ChatResponse {
	if !IsCrisis(message) {
		return nil
	}

	var therapists []schema.TherapistResult
	var location string
	if g.finder != nil {
		parsedLocation, radiusKM, specialty := g.finder.ParseMessage(message)
		location = parsedLocation
		if location == "" {
			location = g.finder.RememberedLocation(ctx, actor)
		}
		searchAvailable := g.devMode || actor.IsPremium
		if location != "" && searchAvailable {
			results, _, err := g.finder.SearchWithRetries(ctx, location, radiusKM, specialty, 0)
			if err != nil {
				g.log.Warn("crisis therapist enrichment failed", "error", err)
			} else {
				therapists = results
				if len(therapists) > 0 {
					if err := g.finder.RememberLocation(ctx, actor, location); err != nil {
						g.log.Warn("remember location failed", "error", err)
					}
				}
			}
		}
	}

	var searchHint string
	switch {
	case len(therapists) > 0:
		searchHint = "I have also included nearby providers below in case contacting one feels possible."
	case location != "":
		searchHint = "If you want, I can keep helping you find nearby providers in the app."
	default:
		searchHint = "If you share your city or postcode, I can help find nearby therapists/clinics in the app."
	}

	return &schema.ChatResponse{
		CoachMessage: crisisMessageBase + searchHint,
		Resources:    CrisisResources(),
		Therapists:   therapists,
		RiskLevel:    schema.RiskLevelCrisis,
	}
}
