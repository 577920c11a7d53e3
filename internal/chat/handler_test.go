package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satish27072002/mh-skills-coach/internal/schema"
)

func newHandlerFixture(t *testing.T) (*serviceFixture, *httptest.Server) {
	t.Helper()
	f := newServiceFixture()
	resolver := CookieActorResolver{SessionCookieName: "mh_session", BookingCookieName: "mh_booking_session"}
	handler := NewHandler(f.svc, resolver, "mh_booking_session", false, nil)

	r := chi.NewRouter()
	handler.RegisterRoutes(r)
	server := httptest.NewServer(r)
	t.Cleanup(server.Close)
	return f, server
}

func postChat(t *testing.T, server *httptest.Server, body string, cookies ...*http.Cookie) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, server.URL+"/chat", strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestChatEndpointReturnsCoachReply(t *testing.T) {
	_, server := newHandlerFixture(t)

	resp := postChat(t, server, `{"message": "I feel anxious today"}`,
		&http.Cookie{Name: "mh_session", Value: "tok-1"})

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body schema.ChatResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "coach reply", body.CoachMessage)
}

func TestChatEndpointRejectsEmptyMessage(t *testing.T) {
	_, server := newHandlerFixture(t)

	resp := postChat(t, server, `{"message": "   "}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = postChat(t, server, `not json`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestChatEndpointIssuesSessionCookieForAnonymous(t *testing.T) {
	f, server := newHandlerFixture(t)

	resp := postChat(t, server, `{"message": "I feel anxious today"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var issued *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == "mh_booking_session" {
			issued = c
		}
	}
	require.NotNil(t, issued, "anonymous caller should receive a session cookie")
	assert.NotEmpty(t, issued.Value)
	assert.True(t, issued.HttpOnly)

	// The issued token keys the stored history for this turn.
	history, err := f.history.Load(context.Background(), "session:"+issued.Value)
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestChatEndpointKeepsExistingSessionCookie(t *testing.T) {
	_, server := newHandlerFixture(t)

	resp := postChat(t, server, `{"message": "hello"}`,
		&http.Cookie{Name: "mh_booking_session", Value: "existing-token"})

	require.Equal(t, http.StatusOK, resp.StatusCode)
	for _, c := range resp.Cookies() {
		assert.NotEqual(t, "mh_booking_session", c.Name, "should not reissue the cookie")
	}
}
