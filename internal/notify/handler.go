package notify

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/satish27072002/mh-skills-coach/pkg/logging"
)

// Handler exposes the outbound email audit trail for admins.
type Handler struct {
	orchestrator *Orchestrator
	logger       *logging.Logger
}

func NewHandler(orchestrator *Orchestrator, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{orchestrator: orchestrator, logger: logger}
}

// RegisterRoutes mounts audit endpoints under a chi router. The caller is
// expected to wrap them in admin auth.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/outbound-emails", h.listOutboundEmails)
}

func (h *Handler) listOutboundEmails(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		parsed, err := strconv.Atoi(s)
		if err != nil {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	emails, err := h.orchestrator.ListRecent(r.Context(), limit)
	if err != nil {
		h.logger.Error("notify handler: list outbound emails", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"emails": emails,
		"count":  len(emails),
	})
}
