package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/satish27072002/mh-skills-coach/internal/chat"
	httpmiddleware "github.com/satish27072002/mh-skills-coach/internal/http/middleware"
	"github.com/satish27072002/mh-skills-coach/internal/notify"
	"github.com/satish27072002/mh-skills-coach/internal/therapist"
	"github.com/satish27072002/mh-skills-coach/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger           *logging.Logger
	ChatHandler      *chat.Handler
	TherapistHandler *therapist.Handler
	AuditHandler     *notify.Handler
	MetricsHandler   http.Handler

	AdminAuthSecret    string
	CORSAllowedOrigins []string

	// Chat rate limiting, requests per second with burst.
	ChatRateLimit     float64
	ChatRateBurst     int
	SessionCookieName string
}

// New creates a chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Group(func(public chi.Router) {
		public.Get("/health", healthCheck)
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
		if cfg.TherapistHandler != nil {
			cfg.TherapistHandler.RegisterRoutes(public)
		}
	})

	if cfg.ChatHandler != nil {
		r.Group(func(chatGroup chi.Router) {
			if cfg.ChatRateLimit > 0 {
				chatGroup.Use(httpmiddleware.RateLimit(cfg.ChatRateLimit, cfg.ChatRateBurst, cfg.SessionCookieName))
			}
			cfg.ChatHandler.RegisterRoutes(chatGroup)
		})
	}

	if cfg.AuditHandler != nil {
		r.Route("/admin", func(admin chi.Router) {
			admin.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret))
			cfg.AuditHandler.RegisterRoutes(admin)
		})
	}

	return r
}

func healthCheck(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
