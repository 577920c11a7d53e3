package chat

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/satish27072002/mh-skills-coach/internal/schema"
	"github.com/satish27072002/mh-skills-coach/pkg/logging"
)

const maxMessageBytes = 8 << 10

// ActorResolver maps an HTTP request to a chat actor. The auth layer supplies
// its own implementation; CookieActorResolver is the default for deployments
// without one.
type ActorResolver interface {
	Resolve(r *http.Request) schema.Actor
}

// CookieActorResolver identifies the caller from the session cookie, falling
// back to the booking session cookie and finally to client host + user agent.
type CookieActorResolver struct {
	SessionCookieName string
	BookingCookieName string
}

func (c CookieActorResolver) Resolve(r *http.Request) schema.Actor {
	if cookie, err := r.Cookie(c.SessionCookieName); err == nil && strings.TrimSpace(cookie.Value) != "" {
		return schema.Actor{SessionToken: strings.TrimSpace(cookie.Value)}
	}
	if cookie, err := r.Cookie(c.BookingCookieName); err == nil && strings.TrimSpace(cookie.Value) != "" {
		return schema.Actor{SessionToken: strings.TrimSpace(cookie.Value)}
	}
	return schema.Actor{AnonKey: anonKey(r)}
}

func anonKey(r *http.Request) string {
	host := r.RemoteAddr
	if idx := strings.LastIndex(host, ":"); idx > 0 {
		host = host[:idx]
	}
	ua := r.UserAgent()
	if len(ua) > 40 {
		ua = ua[:40]
	}
	return host + ":" + ua
}

// Handler serves the chat endpoint.
type Handler struct {
	svc               *Service
	resolver          ActorResolver
	bookingCookieName string
	secureCookies     bool
	logger            *logging.Logger
}

func NewHandler(svc *Service, resolver ActorResolver, bookingCookieName string, secureCookies bool, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		svc:               svc,
		resolver:          resolver,
		bookingCookieName: bookingCookieName,
		secureCookies:     secureCookies,
		logger:            logger,
	}
}

// RegisterRoutes mounts the chat endpoint under a chi router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/chat", h.chat)
}

func (h *Handler) chat(w http.ResponseWriter, r *http.Request) {
	var req schema.ChatRequest
	body := http.MaxBytesReader(w, r.Body, maxMessageBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	message := strings.TrimSpace(req.Message)
	if message == "" {
		http.Error(w, "message is required", http.StatusBadRequest)
		return
	}

	actor := h.resolver.Resolve(r)
	// Anonymous callers get a durable session cookie so pending booking state
	// survives across turns.
	if actor.UserID == "" && actor.SessionToken == "" {
		token := uuid.NewString()
		http.SetCookie(w, &http.Cookie{
			Name:     h.bookingCookieName,
			Value:    token,
			Path:     "/",
			HttpOnly: true,
			Secure:   h.secureCookies,
			SameSite: http.SameSiteLaxMode,
		})
		actor.SessionToken = token
	}

	resp, err := h.svc.Handle(r.Context(), actor, message)
	if err != nil {
		h.logger.Error("chat handler: pipeline failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
