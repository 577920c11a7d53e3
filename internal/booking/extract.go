package booking

import (
	"regexp"
	"strings"
	"time"
)

// ActionType is the pending-action discriminator for booking email drafts.
const ActionType = "booking_email"

// TTL is how long a pending booking draft stays valid.
const TTL = 15 * time.Minute

// TTLMinutes is used in user-facing expiry messages.
const TTLMinutes = 15

// TimezoneName is the fixed display timezone for appointment times.
const TimezoneName = "Europe/Stockholm"

// Location returns the Europe/Stockholm location. UTC fallback only matters
// on hosts with a broken zone database.
func Location() *time.Location {
	loc, err := time.LoadLocation(TimezoneName)
	if err != nil {
		return time.UTC
	}
	return loc
}

var (
	emailRe       = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)
	isoDatetimeRe = regexp.MustCompile(`\b(\d{4}-\d{2}-\d{2}[T ]\d{2}:\d{2}(?::\d{2})?(?:Z|[+-]\d{2}:\d{2})?)\b`)
	dateOnlyRe    = regexp.MustCompile(`\b(20\d{2}-\d{2}-\d{2})\b`)
	dateTimeRe    = regexp.MustCompile(`(?i)\b(\d{4}-\d{2}-\d{2})\s+(\d{1,2}:\d{2}(?:\s*[ap]m)?)\b`)
	timeRe        = regexp.MustCompile(`(?i)\b(\d{1,2})(?::(\d{2}))?\s*([ap]m)?\b`)
	timeHHMMRe    = regexp.MustCompile(`\b([01]?\d|2[0-3]):([0-5]\d)\b`)
	dateAtTimeRe  = regexp.MustCompile(`(?i)\b(20\d{2}-\d{2}-\d{2})\s+at\s+([01]?\d|2[0-3]):([0-5]\d)\b`)
	timeOnDateRe  = regexp.MustCompile(`(?i)\b([01]?\d|2[0-3]):([0-5]\d)\s+on\s+(20\d{2}-\d{2}-\d{2})\b`)
	onDateAtRe    = regexp.MustCompile(`(?i)\bon\s+(20\d{2}-\d{2}-\d{2})\s+at\s+([01]?\d|2[0-3]):([0-5]\d)\b`)
	nameRe        = regexp.MustCompile(`(?i)\b(?:my name is|i am|i'm)\s+([a-z][a-z\s.'-]{1,60})\b`)
	weekdayRe     = regexp.MustCompile(`(?i)\b(mon(?:day)?|tue(?:s|sday)?|wed(?:nesday)?|thu(?:rs|rsday)?|fri(?:day)?|sat(?:urday)?|sun(?:day)?)\b`)
	nonLetterRe   = regexp.MustCompile(`[^a-z]+`)
)

// weekdayIndex maps tokens to Monday-based day indexes.
var weekdayIndex = map[string]int{
	"mon": 0, "monday": 0,
	"tue": 1, "tues": 1, "tuesday": 1,
	"wed": 2, "wednesday": 2,
	"thu": 3, "thur": 3, "thurs": 3, "thursday": 3,
	"fri": 4, "friday": 4,
	"sat": 5, "saturday": 5,
	"sun": 6, "sunday": 6,
}

// Extraction holds whatever booking fields could be pulled from one message.
// RequestedAt is the zero time when no parseable datetime was present;
// Clarification then explains what is missing, if anything was close.
type Extraction struct {
	TherapistEmail string
	RequestedAt    time.Time
	SenderName     string
	Clarification  string
}

// IsBookingIntent reports whether the message asks to book or email about an
// appointment. A booking verb alone is not enough; it must come with an email
// address or some datetime hint.
func IsBookingIntent(message string) bool {
	lower := strings.ToLower(message)
	hasAction := false
	for _, phrase := range []string{"email", "send", "appointment", "book", "booking", "request an appointment", "request appointment"} {
		if strings.Contains(lower, phrase) {
			hasAction = true
			break
		}
	}
	if !hasAction {
		return false
	}
	if emailRe.MatchString(message) {
		return true
	}
	return isoDatetimeRe.MatchString(message) ||
		dateTimeRe.MatchString(message) ||
		dateOnlyRe.MatchString(message) ||
		strings.Contains(lower, "tomorrow") ||
		weekdayRe.MatchString(lower)
}

func normalizedTokens(message string) []string {
	cleaned := strings.TrimSpace(nonLetterRe.ReplaceAllString(strings.ToLower(message), " "))
	if cleaned == "" {
		return nil
	}
	return strings.Fields(cleaned)
}

// IsAffirmative reports whether any token confirms sending.
func IsAffirmative(message string) bool {
	for _, token := range normalizedTokens(message) {
		if token == "yes" || token == "send" || token == "confirm" {
			return true
		}
	}
	return false
}

// IsNegative reports whether any token cancels.
func IsNegative(message string) bool {
	for _, token := range normalizedTokens(message) {
		if token == "no" || token == "cancel" || token == "stop" {
			return true
		}
	}
	return false
}

var confirmationOnlyTokens = map[string]bool{
	"yes": true, "confirm": true, "confirmed": true,
	"ok": true, "okay": true, "y": true,
}

// IsConfirmationOnlyMessage reports whether the message consists solely of
// affirmative confirmation tokens.
func IsConfirmationOnlyMessage(message string) bool {
	tokens := normalizedTokens(message)
	if len(tokens) == 0 {
		return false
	}
	for _, token := range tokens {
		if !confirmationOnlyTokens[token] {
			return false
		}
	}
	return true
}

// ExtractEmail returns the first email address in the message, lowercased.
func ExtractEmail(message string) string {
	match := emailRe.FindString(message)
	return strings.ToLower(match)
}

// ExtractSenderName pulls a self-introduction ("my name is X", "I'm X").
func ExtractSenderName(message string) string {
	m := nameRe.FindStringSubmatch(message)
	if m == nil {
		return ""
	}
	name := strings.Join(strings.Fields(m[1]), " ")
	if len(name) > 80 {
		name = name[:80]
	}
	return name
}

// parseTimeToken finds the first time-looking token and normalizes it to a
// 24h hour/minute pair. 12h clock requires an am/pm suffix and hour 1-12.
func parseTimeToken(text string) (hour, minute int, ok bool) {
	m := timeRe.FindStringSubmatch(text)
	if m == nil {
		return 0, 0, false
	}
	hour = atoiSafe(m[1])
	if m[2] != "" {
		minute = atoiSafe(m[2])
	}
	if minute > 59 {
		return 0, 0, false
	}
	ampm := strings.ToLower(m[3])
	if ampm != "" {
		if hour < 1 || hour > 12 {
			return 0, 0, false
		}
		if ampm == "pm" && hour != 12 {
			hour += 12
		}
		if ampm == "am" && hour == 12 {
			hour = 0
		}
	} else if hour > 23 {
		return 0, 0, false
	}
	return hour, minute, true
}

func atoiSafe(s string) int {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return n
		}
		n = n*10 + int(r-'0')
	}
	return n
}

func datetimeFromDateTokens(dateText string, hour, minute int, loc *time.Location) (time.Time, string) {
	base, err := time.ParseInLocation("2006-01-02", dateText, loc)
	if err != nil {
		return time.Time{}, "I could not parse the date. Please use YYYY-MM-DD."
	}
	return time.Date(base.Year(), base.Month(), base.Day(), hour, minute, 0, 0, loc), ""
}

// mondayIndex returns the Monday-based weekday index for t.
func mondayIndex(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// ParseRequestedDatetime resolves the appointment time mentioned in a message
// to Europe/Stockholm. Patterns are tried in a fixed order: ISO-8601 first,
// then "tomorrow HH:MM", weekday + time (next occurrence), explicit date +
// time in its several spellings, and finally bare date and time tokens
// anywhere in the message. The returned clarification tells the user exactly
// which half was missing when only a date or only a time was found.
func ParseRequestedDatetime(message string, now time.Time, loc *time.Location) (time.Time, string) {
	if loc == nil {
		loc = Location()
	}
	nowLocal := now.In(loc)

	if m := isoDatetimeRe.FindStringSubmatch(message); m != nil {
		raw := strings.Replace(m[1], " ", "T", 1)
		if dt, ok := parseISO(raw, loc); ok {
			return dt, ""
		}
		return time.Time{}, "I could not parse the date/time. Please use format YYYY-MM-DD HH:MM."
	}

	lower := strings.ToLower(message)
	hasTomorrow := strings.Contains(lower, "tomorrow")
	weekdayMatch := weekdayRe.FindStringSubmatch(lower)
	hour, minute, hasTime := parseTimeToken(message)

	if hasTomorrow {
		if !hasTime {
			return time.Time{}, "Please include a time (for example: tomorrow 15:00)."
		}
		target := nowLocal.AddDate(0, 0, 1)
		return time.Date(target.Year(), target.Month(), target.Day(), hour, minute, 0, 0, loc), ""
	}

	if weekdayMatch != nil {
		if !hasTime {
			return time.Time{}, "Please include a time with the weekday (for example: Tue 15:00)."
		}
		target := weekdayIndex[strings.ToLower(weekdayMatch[1])]
		deltaDays := (target - mondayIndex(nowLocal) + 7) % 7
		candidate := nowLocal.AddDate(0, 0, deltaDays)
		dt := time.Date(candidate.Year(), candidate.Month(), candidate.Day(), hour, minute, 0, 0, loc)
		if !dt.After(nowLocal) {
			dt = dt.AddDate(0, 0, 7)
		}
		return dt, ""
	}

	if m := dateTimeRe.FindStringSubmatch(message); m != nil {
		h, mi, ok := parseTimeToken(m[2])
		if !ok {
			return time.Time{}, "I could not parse the time. Please include HH:MM (24h) or 3pm."
		}
		return datetimeFromDateTokens(m[1], h, mi, loc)
	}

	if m := dateAtTimeRe.FindStringSubmatch(message); m != nil {
		return datetimeFromDateTokens(m[1], atoiSafe(m[2]), atoiSafe(m[3]), loc)
	}

	if m := timeOnDateRe.FindStringSubmatch(message); m != nil {
		return datetimeFromDateTokens(m[3], atoiSafe(m[1]), atoiSafe(m[2]), loc)
	}

	if m := onDateAtRe.FindStringSubmatch(message); m != nil {
		return datetimeFromDateTokens(m[1], atoiSafe(m[2]), atoiSafe(m[3]), loc)
	}

	dateToken := dateOnlyRe.FindStringSubmatch(message)
	timeToken := timeHHMMRe.FindStringSubmatch(message)
	if dateToken != nil && timeToken != nil {
		return datetimeFromDateTokens(dateToken[1], atoiSafe(timeToken[1]), atoiSafe(timeToken[2]), loc)
	}
	if dateToken != nil {
		return time.Time{}, "Please include a time with the date (for example: 2026-02-14 15:00)."
	}
	if timeToken != nil {
		return time.Time{}, "Please include a date with the time (for example: 2026-02-14 15:00)."
	}

	return time.Time{}, ""
}

func parseISO(raw string, loc *time.Location) (time.Time, bool) {
	if strings.HasSuffix(raw, "Z") {
		raw = strings.TrimSuffix(raw, "Z") + "+00:00"
	}
	for _, layout := range []string{"2006-01-02T15:04:05-07:00", "2006-01-02T15:04-07:00"} {
		if dt, err := time.Parse(layout, raw); err == nil {
			return dt.In(loc), true
		}
	}
	for _, layout := range []string{"2006-01-02T15:04:05", "2006-01-02T15:04"} {
		if dt, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return dt, true
		}
	}
	return time.Time{}, false
}

// Extract pulls every booking field the message mentions.
func Extract(message string, now time.Time) Extraction {
	requestedAt, clarification := ParseRequestedDatetime(message, now, nil)
	return Extraction{
		TherapistEmail: ExtractEmail(message),
		RequestedAt:    requestedAt,
		SenderName:     ExtractSenderName(message),
		Clarification:  clarification,
	}
}
