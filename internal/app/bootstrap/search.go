package bootstrap

import (
	"context"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"

	appconfig "github.com/satish27072002/mh-skills-coach/internal/config"
	"github.com/satish27072002/mh-skills-coach/internal/schema"
	"github.com/satish27072002/mh-skills-coach/internal/therapist"
	"github.com/satish27072002/mh-skills-coach/pkg/logging"
)

// BuildTherapistAgent assembles the therapist search agent: the OSM backend,
// a session store for remembered locations (Redis when available, in-memory
// otherwise), and the retry wrapper around the raw search.
func BuildTherapistAgent(cfg *appconfig.Config, redisClient *redis.Client, logger *logging.Logger) *therapist.Agent {
	if logger == nil {
		logger = logging.Default()
	}

	osm := therapist.NewOSMClient(therapist.OSMConfig{
		NominatimBaseURL: cfg.NominatimBaseURL,
		OverpassBaseURL:  cfg.OverpassBaseURL,
		UserAgent:        cfg.TherapistSearchUserAgent,
		Enabled:          cfg.TherapistSearchEnabled,
	}, &http.Client{Timeout: 15 * time.Second}, logger)

	search := func(ctx context.Context, location string, radiusKM int, specialty string, limit int) ([]schema.TherapistResult, error) {
		// The OSM backend does not filter by specialty. It is carried in
		// the query text when present so geocoding can still use it.
		if specialty != "" {
			location = location + " " + specialty
		}
		return osm.Search(ctx, location, radiusKM, limit)
	}

	var sessions therapist.SessionStore
	if redisClient != nil {
		sessions = therapist.NewRedisSessionStore(redisClient, otel.Tracer("skillscoach.internal.therapist.sessions"))
	} else {
		logger.Warn("redis not configured, therapist sessions held in memory")
		sessions = therapist.NewMemorySessionStore()
	}

	return therapist.NewAgent(search, sessions, cfg.DevMode, logger)
}
