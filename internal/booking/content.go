package booking

import (
	"fmt"
	"time"
)

// Payload is the draft stored in a pending booking action. Subject and Body
// stay empty until both required fields are known.
type Payload struct {
	TherapistEmail       string   `json:"therapist_email,omitempty"`
	RequestedDatetimeISO string   `json:"requested_datetime_iso,omitempty"`
	Subject              string   `json:"subject,omitempty"`
	Body                 string   `json:"body,omitempty"`
	ReplyTo              string   `json:"reply_to,omitempty"`
	SenderName           string   `json:"sender_name,omitempty"`
	Timezone             string   `json:"timezone,omitempty"`
	MissingFields        []string `json:"missing_fields"`
}

// Complete reports whether the draft is ready to send.
func (p Payload) Complete() bool {
	return p.TherapistEmail != "" && p.RequestedDatetimeISO != "" && p.Subject != "" && p.Body != ""
}

// Missing lists the required fields still absent from the draft.
func (p Payload) Missing() []string {
	var missing []string
	if p.TherapistEmail == "" {
		missing = append(missing, "therapist_email")
	}
	if p.RequestedDatetimeISO == "" {
		missing = append(missing, "requested_datetime_iso")
	}
	return missing
}

// Stamp refreshes the timezone and missing-fields bookkeeping before save.
func (p Payload) Stamp() Payload {
	p.Timezone = TimezoneName
	p.MissingFields = p.Missing()
	if p.MissingFields == nil {
		p.MissingFields = []string{}
	}
	return p
}

// Sender identifies who the booking email is written on behalf of.
type Sender struct {
	Name  string
	Email string
}

// BuildEmailContent renders the full appointment request email once the
// therapist address and time are both known. The timestamp is always shown
// in Europe/Stockholm.
func BuildEmailContent(sender Sender, therapistEmail string, requestedAt time.Time, overrideName, overrideEmail string) Payload {
	name := overrideName
	if name == "" {
		name = sender.Name
	}
	if name == "" {
		name = "A client"
	}
	email := overrideEmail
	if email == "" {
		email = sender.Email
	}

	local := requestedAt.In(Location())
	timestamp := local.Format("2006-01-02 15:04")
	signature := name
	if email != "" {
		signature = name + "\n" + email
	}

	return Payload{
		TherapistEmail:       therapistEmail,
		RequestedDatetimeISO: local.Format(time.RFC3339),
		Subject:              fmt.Sprintf("Appointment request - %s (%s)", timestamp, TimezoneName),
		Body: fmt.Sprintf(
			"Hello,\n\nI would like to request an appointment on %s (%s).\n\nBest regards,\n%s",
			timestamp, TimezoneName, signature,
		),
		ReplyTo: email,
	}
}
