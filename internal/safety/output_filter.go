package safety

import (
	"regexp"
	"strings"

	"github.com/satish27072002/mh-skills-coach/internal/schema"
)

// Risk levels returned by AssessConversationRisk, highest priority first.
const (
	RiskJailbreak = "jailbreak"
	RiskCrisis    = "crisis"
	RiskMedical   = "medical"
	RiskNormal    = "normal"
)

var medicalAdvicePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b\d+\s*(mg|milligrams?|ml)\b`),
	regexp.MustCompile(`(?i)\btake\s+(your\s+)?(meds|medication|pills?|tablets?)\b`),
	regexp.MustCompile(`(?i)\b(increase|decrease|double|stop|skip)\s+(your\s+)?(dose|dosage|medication|meds)\b`),
	regexp.MustCompile(`(?i)\bprescri(be|bed|ption|ptions)\b`),
	regexp.MustCompile(`(?i)\b(sertraline|fluoxetine|citalopram|escitalopram|venlafaxine|prozac|zoloft|xanax|valium|lithium|benzo(diazepine)?s?)\b`),
}

// ContainsMedicalAdvice reports whether text gives concrete medication
// instructions (doses, named drugs, prescribing language).
func ContainsMedicalAdvice(text string) bool {
	for _, re := range medicalAdvicePatterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// unsafeRefusal replaces any outbound reply that itself contains unsafe
// content. The wording is fixed so downstream checks can rely on it.
const unsafeRefusal = "I can't help with unsafe instructions or medication advice. " +
	"I can help with coping skills, finding a therapist, or booking an appointment. " +
	"If you need medical guidance, please talk to a licensed clinician."

// FilterUnsafeResponse rewrites an outbound coach reply whose message contains
// jailbreak-pattern or medication-advice text. CTA and risk-level fields are
// preserved; exercise and therapist results from the unsafe reply are dropped.
func FilterUnsafeResponse(resp *schema.ChatResponse) *schema.ChatResponse {
	if resp == nil {
		return nil
	}
	scan := ScanForJailbreak(resp.CoachMessage)
	if len(scan.Reasons) == 0 && !ContainsMedicalAdvice(resp.CoachMessage) {
		return resp
	}
	return &schema.ChatResponse{
		CoachMessage: unsafeRefusal,
		Resources: []schema.Resource{
			{Title: "1177 Vårdguiden", URL: "https://www.1177.se/"},
			{Title: "Mind Självmordslinjen (90101)", URL: "https://mind.se/hitta-hjalp/sjalvmordslinjen/"},
		},
		PremiumCta: resp.PremiumCta,
		RiskLevel:  resp.RiskLevel,
	}
}

// Turn is one message in a conversation transcript.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// AssessConversationRisk scans a transcript and returns the highest risk level
// present plus the snippet that triggered it. Jailbreak outranks crisis, which
// outranks medical. The snippet is empty at the normal level.
func AssessConversationRisk(turns []Turn) (string, string) {
	var crisisSnippet, medicalSnippet string
	for _, t := range turns {
		content := strings.TrimSpace(t.Content)
		if content == "" {
			continue
		}
		if scan := ScanForJailbreak(content); len(scan.Reasons) > 0 {
			return RiskJailbreak, content
		}
		if crisisSnippet == "" && IsCrisis(content) {
			crisisSnippet = content
		}
		if medicalSnippet == "" && (IsMedicalRequest(content) || ContainsMedicalAdvice(content)) {
			medicalSnippet = content
		}
	}
	if crisisSnippet != "" {
		return RiskCrisis, crisisSnippet
	}
	if medicalSnippet != "" {
		return RiskMedical, medicalSnippet
	}
	return RiskNormal, ""
}
