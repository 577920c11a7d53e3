package booking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/satish27072002/mh-skills-coach/internal/notify"
	"github.com/satish27072002/mh-skills-coach/internal/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	saved      []Payload
	lastSaved  *PendingAction
	clearedIDs []int64
	nextID     int64
}

func (m *memStore) Load(ctx context.Context, actorKey string, now time.Time) (*PendingAction, bool, error) {
	return m.lastSaved, false, nil
}

func (m *memStore) Save(ctx context.Context, actorKey string, payload Payload, now time.Time) (*PendingAction, error) {
	m.nextID++
	m.saved = append(m.saved, payload.Stamp())
	m.lastSaved = &PendingAction{
		ID:        m.nextID,
		ActorKey:  actorKey,
		Payload:   payload.Stamp(),
		CreatedAt: now.UTC(),
		ExpiresAt: now.UTC().Add(TTL),
	}
	return m.lastSaved, nil
}

func (m *memStore) Clear(ctx context.Context, id int64) error {
	m.clearedIDs = append(m.clearedIDs, id)
	m.lastSaved = nil
	return nil
}

type sendRecorder struct {
	requests []notify.SendRequest
	err      error
}

func (s *sendRecorder) send(ctx context.Context, actorKey string, req notify.SendRequest) error {
	s.requests = append(s.requests, req)
	return s.err
}

func newTestAgent(store *memStore, sender *sendRecorder) *Agent {
	return NewAgent(store, sender.send, nil).WithClock(func() time.Time {
		return time.Date(2026, 2, 11, 10, 0, 0, 0, Location())
	})
}

func completePending(t *testing.T) *PendingAction {
	t.Helper()
	requestedAt := time.Date(2026, 2, 14, 15, 0, 0, 0, Location())
	payload := BuildEmailContent(Sender{Name: "Anna", Email: "anna@example.com"}, "dr@example.com", requestedAt, "", "")
	return &PendingAction{
		ID:        7,
		ActorKey:  "user:1",
		Payload:   payload.Stamp(),
		ExpiresAt: time.Date(2026, 2, 11, 10, 15, 0, 0, time.UTC),
	}
}

func TestAgent_NonBookingMessageFallsThrough(t *testing.T) {
	agent := newTestAgent(&memStore{}, &sendRecorder{})
	resp, err := agent.Handle(context.Background(), schema.Actor{}, "anon:1", "I feel anxious about work and school", nil, false)
	require.NoError(t, err)
	assert.Nil(t, resp)
}

func TestAgent_CompleteRequestCreatesProposal(t *testing.T) {
	store := &memStore{}
	agent := newTestAgent(store, &sendRecorder{})

	resp, err := agent.Handle(context.Background(), schema.Actor{UserName: "Anna", UserEmail: "anna@example.com"},
		"user:1", "send an email to dr@example.com for tomorrow 15:00", nil, false)
	require.NoError(t, err)
	require.NotNil(t, resp)

	require.NotNil(t, resp.BookingProposal)
	assert.Equal(t, "dr@example.com", resp.BookingProposal.TherapistEmail)
	assert.Equal(t, "2026-02-12 15:00 Europe/Stockholm", resp.BookingProposal.RequestedTime)
	assert.Contains(t, resp.BookingProposal.Subject, "Appointment request - 2026-02-12 15:00")
	assert.Contains(t, resp.BookingProposal.Body, "Best regards,\nAnna\nanna@example.com")
	require.NotNil(t, resp.RequiresConfirmation)
	assert.True(t, *resp.RequiresConfirmation)
	assert.Contains(t, resp.CoachMessage, "Reply YES to send or NO to cancel")
	require.Len(t, store.saved, 1)
	assert.True(t, store.saved[0].Complete())
}

func TestAgent_PartialRequestAsksForMissingField(t *testing.T) {
	store := &memStore{}
	agent := newTestAgent(store, &sendRecorder{})

	resp, err := agent.Handle(context.Background(), schema.Actor{}, "user:1",
		"book an appointment with dr@example.com", nil, false)
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, "Please provide the requested appointment date/time in Europe/Stockholm.", resp.CoachMessage)
	require.Len(t, store.saved, 1)
	assert.Equal(t, "dr@example.com", store.saved[0].TherapistEmail)
	assert.Equal(t, []string{"requested_datetime_iso"}, store.saved[0].MissingFields)
}

func TestAgent_ClarificationWinsOverGenericMissingMessage(t *testing.T) {
	agent := newTestAgent(&memStore{}, &sendRecorder{})

	resp, err := agent.Handle(context.Background(), schema.Actor{}, "user:1",
		"book an appointment with dr@example.com tomorrow", nil, false)
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, "Please include a time (for example: tomorrow 15:00).", resp.CoachMessage)
}

func TestAgent_FollowUpCompletesPending(t *testing.T) {
	store := &memStore{}
	agent := newTestAgent(store, &sendRecorder{})

	pending := &PendingAction{
		ID:        3,
		ActorKey:  "user:1",
		Payload:   Payload{TherapistEmail: "dr@example.com"},
		ExpiresAt: time.Date(2026, 2, 11, 10, 15, 0, 0, time.UTC),
	}
	resp, err := agent.Handle(context.Background(), schema.Actor{UserName: "Anna"}, "user:1",
		"tomorrow 15:00", pending, false)
	require.NoError(t, err)
	require.NotNil(t, resp)
	require.NotNil(t, resp.BookingProposal)
	assert.Contains(t, resp.CoachMessage, "I prepared the email to dr@example.com")
	require.NotNil(t, resp.RequiresConfirmation)
	assert.True(t, *resp.RequiresConfirmation)
	require.Len(t, store.saved, 1)
	assert.True(t, store.saved[0].Complete())
}

func TestAgent_NeverOverwritesKnownFields(t *testing.T) {
	store := &memStore{}
	agent := newTestAgent(store, &sendRecorder{})

	pending := &PendingAction{
		ID:        3,
		ActorKey:  "user:1",
		Payload:   Payload{TherapistEmail: "first@example.com"},
		ExpiresAt: time.Date(2026, 2, 11, 10, 15, 0, 0, time.UTC),
	}
	resp, err := agent.Handle(context.Background(), schema.Actor{}, "user:1",
		"actually use other@example.com tomorrow 15:00", pending, false)
	require.NoError(t, err)
	require.NotNil(t, resp)
	require.Len(t, store.saved, 1)
	assert.Equal(t, "first@example.com", store.saved[0].TherapistEmail)
}

func TestAgent_AffirmativeSendsAndClears(t *testing.T) {
	store := &memStore{}
	sender := &sendRecorder{}
	agent := newTestAgent(store, sender)

	resp, err := agent.Handle(context.Background(), schema.Actor{}, "user:1", "yes", completePending(t), false)
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, "Email sent successfully. I have cleared the pending booking request.", resp.CoachMessage)
	require.Len(t, sender.requests, 1)
	assert.Equal(t, "dr@example.com", sender.requests[0].To)
	assert.Equal(t, "anna@example.com", sender.requests[0].ReplyTo)
	assert.Equal(t, []int64{7}, store.clearedIDs)
}

func TestAgent_SendFailureStillClearsPending(t *testing.T) {
	store := &memStore{}
	sender := &sendRecorder{err: errors.New("email rate limit exceeded (max 3 attempts per 24 hours)")}
	agent := newTestAgent(store, sender)

	resp, err := agent.Handle(context.Background(), schema.Actor{}, "user:1", "yes", completePending(t), false)
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, "I could not send the email: email rate limit exceeded (max 3 attempts per 24 hours)", resp.CoachMessage)
	assert.Equal(t, []int64{7}, store.clearedIDs)
}

func TestAgent_AffirmativeWithIncompleteDraftAsksAgain(t *testing.T) {
	store := &memStore{}
	sender := &sendRecorder{}
	agent := newTestAgent(store, sender)

	pending := &PendingAction{ID: 4, ActorKey: "user:1", Payload: Payload{TherapistEmail: "dr@example.com"}}
	resp, err := agent.Handle(context.Background(), schema.Actor{}, "user:1", "yes", pending, false)
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, "Please provide the requested appointment date/time in Europe/Stockholm.", resp.CoachMessage)
	assert.Empty(t, sender.requests)
	assert.Empty(t, store.clearedIDs)
}

func TestAgent_NegativeCancelsPending(t *testing.T) {
	store := &memStore{}
	agent := newTestAgent(store, &sendRecorder{})

	resp, err := agent.Handle(context.Background(), schema.Actor{}, "user:1", "no", completePending(t), false)
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, "Okay, I cancelled the pending booking email request.", resp.CoachMessage)
	assert.Equal(t, []int64{7}, store.clearedIDs)
}

func TestAgent_ExpiredPendingTellsUserToRestart(t *testing.T) {
	agent := newTestAgent(&memStore{}, &sendRecorder{})

	resp, err := agent.Handle(context.Background(), schema.Actor{}, "user:1", "yes", nil, true)
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.Equal(t,
		"Your pending booking request expired after 15 minutes. Please start again with therapist email and time.",
		resp.CoachMessage)
}

func TestAgent_ConfirmationWithoutPending(t *testing.T) {
	agent := newTestAgent(&memStore{}, &sendRecorder{})

	resp, err := agent.Handle(context.Background(), schema.Actor{}, "user:1", "yes", nil, false)
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, "No pending booking request to confirm. Please provide therapist email + time.", resp.CoachMessage)
}
