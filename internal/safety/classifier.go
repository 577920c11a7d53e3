package safety

import (
	"regexp"
	"strings"

	"github.com/satish27072002/mh-skills-coach/internal/schema"
)

// crisisKeywords trigger the crisis path. Substring match, lowercase.
var crisisKeywords = []string{
	"suicide",
	"kill myself",
	"self-harm",
	"self harm",
	"hurt myself",
	"end my life",
	"ending my life",
	"harm myself",
	"want to die",
	"take my own life",
	"better off dead",
	"no reason to live",
	"don't want to live",
	"dont want to live",
}

// medicalKeywords trigger the prescription/diagnosis refusal.
var medicalKeywords = []string{
	"diagnosis",
	"diagnose",
	"prescription",
	"prescribe",
	"medication",
	"meds",
	"dosage",
	"antidepressant",
	"ssri",
	"refill",
	"adhd",
	"bipolar",
}

// inScopeKeywords are vocabulary that keeps a message in scope: mental health
// coping, therapist search, and booking language.
var inScopeKeywords = []string{
	"anxious", "anxiety", "stress", "stressed", "panic", "worry", "worried",
	"sad", "depress", "lonely", "overwhelm", "mood", "sleep", "insomnia",
	"feel", "feeling", "cope", "coping", "calm", "breath", "grounding",
	"exercise", "mindful", "therap", "counsel", "psych", "clinic", "bup",
	"mottagning", "appointment", "book", "schedule", "email", "session",
	"confirm", "cancel", "support", "help", "crisis", "talk",
}

func containsAny(message string, keywords []string) bool {
	lower := strings.ToLower(message)
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// IsCrisis reports whether the message signals acute self-harm risk.
func IsCrisis(message string) bool {
	return containsAny(message, crisisKeywords)
}

// IsMedicalRequest reports whether the message asks for diagnosis,
// prescriptions, or medication advice.
func IsMedicalRequest(message string) bool {
	return containsAny(message, medicalKeywords)
}

// IsPrescriptionRequest is the inbound check used by the chat pipeline. It is
// deliberately the same vocabulary as IsMedicalRequest; the two names exist
// because the inbound refusal and the outbound filter evolved separately.
func IsPrescriptionRequest(message string) bool {
	return IsMedicalRequest(message)
}

var firstPersonFeelingRe = regexp.MustCompile(`(?i)\b(i feel|i'm feeling|i am feeling|help me|i need|i can't|i cant)\b`)

// ScopeCheck reports whether the message is something this service should
// handle at all. Short messages pass (greetings), as does anything with
// in-scope vocabulary or first-person feeling phrasing.
func ScopeCheck(message string) bool {
	trimmed := strings.TrimSpace(message)
	if trimmed == "" {
		return true
	}
	if len(strings.Fields(trimmed)) <= 4 {
		return true
	}
	if containsAny(trimmed, inScopeKeywords) {
		return true
	}
	return firstPersonFeelingRe.MatchString(trimmed)
}

var therapistSeekRe = regexp.MustCompile(`(?i)\b(find|need|looking for|search(ing)? for|recommend|near)\b.*\b(therapist|therapists|counsell?or|psychologist|psychiatrist)s?\b`)

// ClassifyIntent is a lightweight fallback classifier used by the router when
// no explicit keyword matched. It only distinguishes therapist search from
// general coaching.
func ClassifyIntent(message string) string {
	if therapistSeekRe.MatchString(message) {
		return "therapist_search"
	}
	return "coach"
}

// PrescriptionRefusal is the fixed reply for medication/diagnosis requests.
// It always carries the crisis risk level and never includes an exercise.
func PrescriptionRefusal() *schema.ChatResponse {
	return &schema.ChatResponse{
		CoachMessage: "I can't help with prescriptions, diagnoses, or medication changes. " +
			"A licensed clinician is the right person for that, and they can review what is safe for you. " +
			"If you are in immediate danger, call 112. " +
			"I can still help with coping skills, finding a therapist, or drafting a booking email.",
		Resources: []schema.Resource{
			{Title: "1177 Vårdguiden", URL: "https://www.1177.se/"},
			{Title: "Find a licensed professional", URL: "https://www.psychologytoday.com/"},
		},
		RiskLevel: schema.RiskLevelCrisis,
	}
}

// GroundingResponse is the default supportive reply with a short exercise,
// used when the LLM coach is unavailable.
func GroundingResponse() *schema.ChatResponse {
	return &schema.ChatResponse{
		CoachMessage: "Thanks for sharing. Let us slow things down together. Here is a short grounding exercise to try.",
		Exercise: &schema.Exercise{
			Type: "5-4-3-2-1 grounding",
			Steps: []string{
				"Name 5 things you can see.",
				"Name 4 things you can feel.",
				"Name 3 things you can hear.",
				"Name 2 things you can smell.",
				"Name 1 thing you can taste.",
			},
			DurationSeconds: 90,
		},
	}
}

// JailbreakRefusal is the fixed reply for instruction-override attempts.
func JailbreakRefusal() *schema.ChatResponse {
	return &schema.ChatResponse{
		CoachMessage: "I can't follow attempts to bypass safety boundaries. " +
			"I'm here to help with mental health coping skills, finding therapists, " +
			"or booking appointments — nothing outside that scope.",
	}
}

// OutOfScopeReply is the fixed reply for requests outside the service's remit.
func OutOfScopeReply() *schema.ChatResponse {
	return &schema.ChatResponse{
		CoachMessage: "I'm here to help with mental health coping skills, finding therapists, " +
			"or booking appointments. I'm not able to help with that — " +
			"is there something in those areas I can support you with?",
	}
}
