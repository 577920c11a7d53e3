package therapist

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/satish27072002/mh-skills-coach/internal/schema"
	"github.com/satish27072002/mh-skills-coach/pkg/logging"
)

// ActorResolver maps an HTTP request to the caller's identity.
type ActorResolver interface {
	Resolve(r *http.Request) schema.Actor
}

// Handler serves the direct provider search endpoint. Entitlement is enforced
// here at the boundary: outside dev mode the endpoint needs a signed-in
// premium user.
type Handler struct {
	agent    *Agent
	resolver ActorResolver
	logger   *logging.Logger
}

func NewHandler(agent *Agent, resolver ActorResolver, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{agent: agent, resolver: resolver, logger: logger}
}

// RegisterRoutes mounts therapist endpoints under a chi router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/therapists/search", h.search)
}

func (h *Handler) search(w http.ResponseWriter, r *http.Request) {
	var req schema.TherapistSearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	location := strings.TrimSpace(req.Location)
	if location == "" {
		http.Error(w, "location is required", http.StatusBadRequest)
		return
	}

	actor := h.resolver.Resolve(r)
	if !h.agent.DevMode() {
		if actor.UserID == "" {
			http.Error(w, "not authenticated", http.StatusUnauthorized)
			return
		}
		if !actor.IsPremium {
			http.Error(w, "premium required", http.StatusForbidden)
			return
		}
	}

	results, _, err := h.agent.SearchWithRetries(r.Context(), location, req.RadiusKM, "", req.Limit)
	if err != nil {
		h.logger.Error("therapist handler: search failed", "error", err)
		http.Error(w, "search unavailable", http.StatusBadGateway)
		return
	}
	if err := h.agent.RememberLocation(r.Context(), actor, location); err != nil {
		h.logger.Warn("therapist handler: failed to remember location", "error", err.Error())
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(schema.TherapistSearchResponse{Results: results})
}
