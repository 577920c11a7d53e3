package therapist

import (
	"regexp"
	"strings"
)

// Search parameter bounds.
const (
	DefaultRadiusKM = 25
	MinRadiusKM     = 1
	MaxRadiusKM     = 50
	DefaultLimit    = 10
	MaxLimit        = 10
)

var (
	locationRe    = regexp.MustCompile(`(?i)\b(?:near|in|around|at)\s+(.+)`)
	tailSplitRe   = regexp.MustCompile(`(?i)\bwithin\s+\d+\s*(?:km|kilometers?|kilometres?)?\b|\bfor\b|[,.!?]`)
	radiusRe      = regexp.MustCompile(`(?i)\bwithin\s+(\d{1,3})(?:\s*(?:km|kilometers?|kilometres?))?\b`)
	bareRadiusRe  = regexp.MustCompile(`(?i)\b(\d{1,3})\s*(?:km|kilometers?|kilometres?)\b`)
	specialtyRe   = regexp.MustCompile(`(?i)\bfor\s+(.+)`)
	specialtyCutRe = regexp.MustCompile(`(?i)\bwithin\s+\d+\s*(?:km|kilometers?|kilometres?)?\b|\b(?:near|in|around|at)\b|[,.!?]`)
	limitRe       = regexp.MustCompile(`(?i)\b(\d{1,2})\s*(?:therapists?|clinics?|providers?)\b`)
	digitRe       = regexp.MustCompile(`\d`)
	cityTokenRe   = regexp.MustCompile(`^[\p{L}\p{N}_\-\s]{2,40}$`)
)

// placeholder locations that mean "wherever I am", which we cannot geocode.
func isPlaceholderLocation(s string) bool {
	switch strings.ToLower(s) {
	case "me", "here", "my area":
		return true
	}
	return false
}

// cutTail truncates text at the first radius clause, "for", or punctuation.
func cutTail(text string) string {
	if loc := tailSplitRe.FindStringIndex(text); loc != nil {
		text = text[:loc[0]]
	}
	return strings.Trim(text, " .?")
}

// ExtractLocation pulls a place name following "near", "in", "around", or
// "at". Returns empty for placeholders like "near me".
func ExtractLocation(message string) string {
	m := locationRe.FindStringSubmatch(message)
	if m == nil {
		return ""
	}
	location := cutTail(m[1])
	if location == "" || isPlaceholderLocation(location) {
		return ""
	}
	return location
}

// ExtractLocationFromShortReply treats the whole message as a location
// answer, as happens after we asked "which city?".
func ExtractLocationFromShortReply(message string) string {
	location := cutTail(message)
	if location == "" || isPlaceholderLocation(location) {
		return ""
	}
	return location
}

// ExtractRadiusKM returns the requested radius clamped to [1, 50], or 0 when
// none was mentioned.
func ExtractRadiusKM(message string) int {
	m := radiusRe.FindStringSubmatch(message)
	if m == nil {
		m = bareRadiusRe.FindStringSubmatch(message)
	}
	if m == nil {
		return 0
	}
	return clamp(atoi(m[1]), MinRadiusKM, MaxRadiusKM)
}

// ExtractSpecialty pulls a focus area following "for" ("for trauma").
func ExtractSpecialty(message string) string {
	m := specialtyRe.FindStringSubmatch(message)
	if m == nil {
		return ""
	}
	candidate := m[1]
	if loc := specialtyCutRe.FindStringIndex(candidate); loc != nil {
		candidate = candidate[:loc[0]]
	}
	candidate = strings.Trim(candidate, " .?")
	if candidate == "" || isPlaceholderLocation(candidate) {
		return ""
	}
	return candidate
}

// ExtractLimit returns the requested result count clamped to [1, 10],
// defaulting to 10.
func ExtractLimit(message string) int {
	m := limitRe.FindStringSubmatch(message)
	if m == nil {
		return DefaultLimit
	}
	return clamp(atoi(m[1]), 1, MaxLimit)
}

// NormalizeSpecialty trims whitespace; empty means no specialty.
func NormalizeSpecialty(specialty string) string {
	return strings.TrimSpace(specialty)
}

// LooksLikeLocationReply reports whether a short message plausibly names a
// city or postcode.
func LooksLikeLocationReply(message string) bool {
	cleaned := strings.TrimSpace(message)
	if cleaned == "" {
		return false
	}
	if len(strings.Fields(cleaned)) > 4 {
		return false
	}
	return cityTokenRe.MatchString(cleaned)
}

// SearchParams is everything a therapist search needs.
type SearchParams struct {
	Location  string
	RadiusKM  int
	Specialty string
	Limit     int
}

// ParseMessage extracts search parameters from free text.
func ParseMessage(message string) SearchParams {
	radius := ExtractRadiusKM(message)
	if radius == 0 {
		radius = DefaultRadiusKM
	}
	return SearchParams{
		Location:  ExtractLocation(message),
		RadiusKM:  clamp(radius, MinRadiusKM, MaxRadiusKM),
		Specialty: NormalizeSpecialty(ExtractSpecialty(message)),
		Limit:     ExtractLimit(message),
	}
}

func containsDigit(message string) bool {
	return digitRe.MatchString(message)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func atoi(s string) int {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			break
		}
		n = n*10 + int(r-'0')
	}
	return n
}
