package therapist

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

type staticResolver struct {
	actor schema.Actor
}

func (s staticResolver) Resolve(_ *http.Request) schema.Actor { return s.actor }

func newSearchServer(t *testing.T, agent *Agent, actor schema.Actor) *httptest.Server {
	t.Helper()
	handler := NewHandler(agent, staticResolver{actor: actor}, nil)
	r := chi.NewRouter()
	handler.RegisterRoutes(r)
	server := httptest.NewServer(r)
	t.Cleanup(server.Close)
	return server
}

func postSearch(t *testing.T, server *httptest.Server, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(server.URL+"/therapists/search", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestSearchEndpointReturnsResults(t *testing.T) {
	search := &scriptedSearch{results: map[string][]schema.TherapistResult{
		keyFor(25, ""): oneResult("Clinic A"),
	}}
	agent, store := devAgent(search)
	server := newSearchServer(t, agent, schema.Actor{UserID: "u1", IsPremium: true})

	resp := postSearch(t, server, `{"location": "Stockholm"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body schema.TherapistSearchResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Results, 1)
	assert.Equal(t, "Clinic A", body.Results[0].Name)

	// A successful direct search also remembers the location.
	loc, err := store.RememberedLocation(context.Background(), schema.Actor{UserID: "u1"}.SessionKey())
	require.NoError(t, err)
	assert.Equal(t, "Stockholm", loc)
}

func TestSearchEndpointRequiresAuthOutsideDevMode(t *testing.T) {
	agent := NewAgent((&scriptedSearch{}).search, NewMemorySessionStore(), false, nil)

	server := newSearchServer(t, agent, schema.Actor{})
	resp := postSearch(t, server, `{"location": "Stockholm"}`)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestSearchEndpointRequiresPremiumOutsideDevMode(t *testing.T) {
	agent := NewAgent((&scriptedSearch{}).search, NewMemorySessionStore(), false, nil)

	server := newSearchServer(t, agent, schema.Actor{UserID: "u1"})
	resp := postSearch(t, server, `{"location": "Stockholm"}`)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestSearchEndpointValidatesPayload(t *testing.T) {
	agent, _ := devAgent(&scriptedSearch{})
	server := newSearchServer(t, agent, schema.Actor{UserID: "u1", IsPremium: true})

	resp := postSearch(t, server, `{"location": "  "}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = postSearch(t, server, `not json`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSearchEndpointReportsUpstreamFailure(t *testing.T) {
	search := &scriptedSearch{err: assert.AnError}
	agent, _ := devAgent(search)
	server := newSearchServer(t, agent, schema.Actor{UserID: "u1", IsPremium: true})

	resp := postSearch(t, server, `{"location": "Stockholm"}`)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}
