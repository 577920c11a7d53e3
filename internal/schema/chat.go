package schema

// ChatRequest is the inbound payload for a single chat turn.
type ChatRequest struct {
	Message string `json:"message"`
}

// Exercise is a short guided coping exercise included in a coach reply.
type Exercise struct {
	Type            string   `json:"type"`
	Steps           []string `json:"steps"`
	DurationSeconds int      `json:"duration_seconds"`
}

// Resource is a support link surfaced to the user.
type Resource struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description,omitempty"`
}

// PremiumCta nudges the user toward premium features.
type PremiumCta struct {
	Enabled bool   `json:"enabled"`
	Message string `json:"message"`
}

// TherapistResult is one provider returned by therapist search.
type TherapistResult struct {
	Name       string  `json:"name"`
	Address    string  `json:"address"`
	URL        string  `json:"url"`
	Phone      string  `json:"phone"`
	DistanceKM float64 `json:"distance_km"`
	Email      string  `json:"email,omitempty"`
	SourceURL  string  `json:"source_url,omitempty"`
}

// BookingProposal is the read-only projection of a complete pending booking
// shown to the user before they confirm sending.
type BookingProposal struct {
	TherapistEmail string `json:"therapist_email"`
	RequestedTime  string `json:"requested_time"`
	Subject        string `json:"subject"`
	Body           string `json:"body"`
	ExpiresAt      string `json:"expires_at"`
}

// RiskLevelCrisis marks responses produced by the crisis and prescription
// refusal paths.
const RiskLevelCrisis = "crisis"

// ChatResponse is the reply for a single chat turn.
type ChatResponse struct {
	CoachMessage         string            `json:"coach_message"`
	Exercise             *Exercise         `json:"exercise,omitempty"`
	Resources            []Resource        `json:"resources,omitempty"`
	PremiumCta           *PremiumCta       `json:"premium_cta,omitempty"`
	Therapists           []TherapistResult `json:"therapists,omitempty"`
	BookingProposal      *BookingProposal  `json:"booking_proposal,omitempty"`
	RequiresConfirmation *bool             `json:"requires_confirmation,omitempty"`
	RiskLevel            string            `json:"risk_level,omitempty"`
}

// TherapistSearchRequest is the payload for the direct search endpoint.
type TherapistSearchRequest struct {
	Location string `json:"location"`
	RadiusKM int    `json:"radius_km,omitempty"`
	Limit    int    `json:"limit,omitempty"`
}

// TherapistSearchResponse wraps direct search results.
type TherapistSearchResponse struct {
	Results []TherapistResult `json:"results"`
}

// BoolPtr returns a pointer to b, for the optional confirmation flag.
func BoolPtr(b bool) *bool {
	return &b
}

// Actor identifies the requester for session and booking state. Exactly one
// of UserID or SessionToken may be set; AnonKey is the last-resort fallback
// derived from client host + truncated user agent.
type Actor struct {
	UserID       string
	UserEmail    string
	UserName     string
	IsPremium    bool
	SessionToken string
	AnonKey      string
}

// SessionKey returns the stable key used to scope remembered state.
func (a Actor) SessionKey() string {
	switch {
	case a.UserID != "":
		return "user:" + a.UserID
	case a.SessionToken != "":
		return "session:" + a.SessionToken
	default:
		return "anon:" + a.AnonKey
	}
}

// Known reports whether the actor carries any usable identity.
func (a Actor) Known() bool {
	return a.UserID != "" || a.SessionToken != "" || a.AnonKey != ""
}
