package safety

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsCrisis(t *testing.T) {
	tests := []struct {
		name    string
		message string
		want    bool
	}{
		{"explicit suicide", "I have been thinking about suicide", true},
		{"kill myself", "sometimes I want to kill myself", true},
		{"want to die", "I want to die", true},
		{"end my life", "I am thinking about ending my life", true},
		{"self harm", "I keep thinking about self-harm", true},
		{"hurt myself", "I'm scared I might hurt myself", true},
		{"case insensitive", "I WANT TO DIE", true},

		{"everyday anxiety", "I feel really anxious about work", false},
		{"stress", "I'm so stressed and overwhelmed", false},
		{"sadness", "I've been sad all week", false},
		{"sleep trouble", "I can't sleep at night", false},
		{"greeting", "hi there", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsCrisis(tt.message))
		})
	}
}

func TestIsPrescriptionRequest(t *testing.T) {
	assert.True(t, IsPrescriptionRequest("can you help me with prescription"))
	assert.True(t, IsPrescriptionRequest("what medication should I take"))
	assert.True(t, IsPrescriptionRequest("can you diagnose me"))
	assert.True(t, IsPrescriptionRequest("should I try an SSRI"))

	assert.False(t, IsPrescriptionRequest("I feel anxious today"))
	assert.False(t, IsPrescriptionRequest("help me find a therapist"))
}

func TestScopeCheck(t *testing.T) {
	tests := []struct {
		name    string
		message string
		want    bool
	}{
		{"coping request", "I need help with my anxiety before a presentation", true},
		{"therapist search", "find a therapist near Stockholm", true},
		{"booking", "book an appointment with dr@example.com tomorrow 15:00", true},
		{"short greeting", "hey", true},
		{"short question", "how are you", true},
		{"first person feeling", "i feel completely lost about everything in general", true},

		{"homework", "write a five paragraph essay about the industrial revolution", false},
		{"coding", "generate some python code that sorts a list of numbers quickly", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ScopeCheck(tt.message))
		})
	}
}

func TestClassifyIntent(t *testing.T) {
	assert.Equal(t, "therapist_search", ClassifyIntent("I'm looking for a therapist"))
	assert.Equal(t, "therapist_search", ClassifyIntent("need a psychologist soon"))
	assert.Equal(t, "coach", ClassifyIntent("I feel anxious"))
	assert.Equal(t, "coach", ClassifyIntent("hello"))
}

func TestPrescriptionRefusal(t *testing.T) {
	resp := PrescriptionRefusal()
	require.NotNil(t, resp)
	assert.Contains(t, resp.CoachMessage, "prescriptions")
	assert.Contains(t, resp.CoachMessage, "clinician")
	assert.Contains(t, resp.CoachMessage, "112")
	assert.Equal(t, "crisis", resp.RiskLevel)
	assert.Nil(t, resp.Exercise)
}

func TestGroundingResponse(t *testing.T) {
	resp := GroundingResponse()
	require.NotNil(t, resp.Exercise)
	assert.Equal(t, "5-4-3-2-1 grounding", resp.Exercise.Type)
	assert.Len(t, resp.Exercise.Steps, 5)
	assert.Equal(t, 90, resp.Exercise.DurationSeconds)
}
