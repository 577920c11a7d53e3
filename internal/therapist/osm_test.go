package therapist

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const geocodeBody = `[{"lat":"59.3293","lon":"18.0686"}]`

const overpassBody = `{"elements":[
	{"type":"node","id":1,"lat":59.33,"lon":18.07,
	 "tags":{"name":"City Therapy","addr:street":"Storgatan","addr:housenumber":"1","addr:city":"Stockholm","phone":"+46 8 123","website":"https://citytherapy.se"}},
	{"type":"way","id":2,"center":{"lat":59.40,"lon":18.20},
	 "tags":{"healthcare":"psychologist"}}
]}`

func newTestOSM(t *testing.T, geocodeHandler, overpassHandler http.HandlerFunc) (*OSMClient, *httptest.Server, *httptest.Server) {
	t.Helper()
	nominatim := httptest.NewServer(geocodeHandler)
	t.Cleanup(nominatim.Close)
	overpass := httptest.NewServer(overpassHandler)
	t.Cleanup(overpass.Close)

	client := NewOSMClient(OSMConfig{
		NominatimBaseURL: nominatim.URL,
		OverpassBaseURL:  overpass.URL,
		UserAgent:        "skills-coach-test",
		Enabled:          true,
	}, nominatim.Client(), nil)
	return client, nominatim, overpass
}

func TestOSMSearch_ReturnsSortedProviders(t *testing.T) {
	client, _, _ := newTestOSM(t,
		func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "Stockholm", r.URL.Query().Get("q"))
			assert.Equal(t, "skills-coach-test", r.Header.Get("User-Agent"))
			w.Write([]byte(geocodeBody))
		},
		func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(overpassBody))
		},
	)

	results, err := client.Search(context.Background(), "Stockholm", 25, 10)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "City Therapy", results[0].Name)
	assert.Equal(t, "Storgatan 1, Stockholm", results[0].Address)
	assert.Equal(t, "https://citytherapy.se", results[0].URL)
	assert.Equal(t, "+46 8 123", results[0].Phone)

	// Unnamed way falls back to defaults and the OSM permalink.
	assert.Equal(t, "Therapist", results[1].Name)
	assert.Equal(t, "Address unavailable", results[1].Address)
	assert.Equal(t, "https://www.openstreetmap.org/way/2", results[1].URL)
	assert.Equal(t, "Phone unavailable", results[1].Phone)

	// Nearest first.
	assert.Less(t, results[0].DistanceKM, results[1].DistanceKM)
}

func TestOSMSearch_CachesResults(t *testing.T) {
	var geocodeCalls atomic.Int32
	client, _, _ := newTestOSM(t,
		func(w http.ResponseWriter, r *http.Request) {
			geocodeCalls.Add(1)
			w.Write([]byte(geocodeBody))
		},
		func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(overpassBody))
		},
	)

	for i := 0; i < 3; i++ {
		_, err := client.Search(context.Background(), "Stockholm", 25, 10)
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), geocodeCalls.Load())

	// Different radius misses the cache.
	_, err := client.Search(context.Background(), "Stockholm", 10, 10)
	require.NoError(t, err)
	assert.Equal(t, int32(2), geocodeCalls.Load())
}

func TestOSMSearch_UnknownPlaceYieldsNoResults(t *testing.T) {
	client, _, _ := newTestOSM(t,
		func(w http.ResponseWriter, r *http.Request) { w.Write([]byte(`[]`)) },
		func(w http.ResponseWriter, r *http.Request) { t.Error("overpass should not be called") },
	)

	results, err := client.Search(context.Background(), "Nowheresville", 25, 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestOSMSearch_OverpassThrottlingYieldsEmpty(t *testing.T) {
	client, _, _ := newTestOSM(t,
		func(w http.ResponseWriter, r *http.Request) { w.Write([]byte(geocodeBody)) },
		func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusTooManyRequests) },
	)

	results, err := client.Search(context.Background(), "Stockholm", 25, 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestOSMSearch_DisabledReturnsNothing(t *testing.T) {
	client := NewOSMClient(OSMConfig{Enabled: false}, nil, nil)
	results, err := client.Search(context.Background(), "Stockholm", 25, 10)
	require.NoError(t, err)
	assert.Nil(t, results)
}

func TestOSMSearch_RateLimitCapsOutboundRequests(t *testing.T) {
	var geocodeCalls atomic.Int32
	client, _, _ := newTestOSM(t,
		func(w http.ResponseWriter, r *http.Request) {
			geocodeCalls.Add(1)
			w.Write([]byte(`[]`))
		},
		func(w http.ResponseWriter, r *http.Request) { w.Write([]byte(`{"elements":[]}`)) },
	)

	base := time.Date(2026, 2, 11, 10, 0, 0, 0, time.UTC)
	client.now = func() time.Time { return base }

	// Unknown places are not cached, so each call consumes budget.
	for i := 0; i < maxRequestsPerMin+5; i++ {
		_, err := client.Search(context.Background(), "Nowheresville", 25, 10)
		require.NoError(t, err)
	}
	assert.Equal(t, int32(maxRequestsPerMin), geocodeCalls.Load())

	// The window slides: a minute later requests flow again.
	client.now = func() time.Time { return base.Add(61 * time.Second) }
	_, err := client.Search(context.Background(), "Nowheresville", 25, 10)
	require.NoError(t, err)
	assert.Equal(t, int32(maxRequestsPerMin+1), geocodeCalls.Load())
}
