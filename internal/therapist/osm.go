package therapist

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/satish27072002/mh-skills-coach/internal/schema"
	"github.com/satish27072002/mh-skills-coach/pkg/logging"
)

// Client-side politeness limits for the public OSM endpoints.
const (
	cacheTTL          = 10 * time.Minute
	maxRequestsPerMin = 30
	geocodeTimeout    = 10 * time.Second
	overpassTimeout   = 25 * time.Second
)

// OSMConfig configures the OpenStreetMap-backed provider search.
type OSMConfig struct {
	NominatimBaseURL string
	OverpassBaseURL  string
	UserAgent        string
	Enabled          bool
}

// OSMClient finds mental health providers by geocoding a location through
// Nominatim and querying Overpass for healthcare nodes around it. Results are
// cached for ten minutes and outbound requests are capped per minute.
type OSMClient struct {
	cfg    OSMConfig
	http   *http.Client
	logger *logging.Logger
	now    func() time.Time

	mu           sync.Mutex
	cache        map[string]cacheEntry
	requestTimes []time.Time
}

type cacheEntry struct {
	at      time.Time
	results []schema.TherapistResult
}

// NewOSMClient builds an OSM search client.
func NewOSMClient(cfg OSMConfig, httpClient *http.Client, logger *logging.Logger) *OSMClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: overpassTimeout}
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &OSMClient{
		cfg:    cfg,
		http:   httpClient,
		logger: logger,
		now:    time.Now,
		cache:  make(map[string]cacheEntry),
	}
}

// allowRequest enforces the process-wide requests-per-minute cap.
func (c *OSMClient) allowRequest() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	keep := c.requestTimes[:0]
	for _, t := range c.requestTimes {
		if now.Sub(t) <= time.Minute {
			keep = append(keep, t)
		}
	}
	c.requestTimes = keep
	if len(c.requestTimes) >= maxRequestsPerMin {
		return false
	}
	c.requestTimes = append(c.requestTimes, now)
	return true
}

func (c *OSMClient) cached(key string) ([]schema.TherapistResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.cache[key]
	if !ok || c.now().Sub(entry.at) >= cacheTTL {
		return nil, false
	}
	return entry.results, true
}

func (c *OSMClient) store(key string, results []schema.TherapistResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache[key] = cacheEntry{at: c.now(), results: results}
}

// ClearCache drops cached results and rate-limit bookkeeping.
func (c *OSMClient) ClearCache() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache = make(map[string]cacheEntry)
	c.requestTimes = nil
}

func (c *OSMClient) nominatimEndpoint() string {
	base := strings.TrimRight(c.cfg.NominatimBaseURL, "/")
	if strings.HasSuffix(base, "/search") {
		return base
	}
	return base + "/search"
}

func (c *OSMClient) overpassEndpoint() string {
	base := strings.TrimRight(c.cfg.OverpassBaseURL, "/")
	if strings.HasSuffix(base, "/api/interpreter") {
		return base
	}
	return base + "/api/interpreter"
}

// Geocode resolves a free-text location to coordinates. The ok return is
// false when the place is unknown.
func (c *OSMClient) Geocode(ctx context.Context, query string) (lat, lon float64, ok bool, err error) {
	if strings.TrimSpace(query) == "" {
		return 0, 0, false, nil
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("limit", "1")

	ctx, cancel := context.WithTimeout(ctx, geocodeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.nominatimEndpoint()+"?"+params.Encode(), nil)
	if err != nil {
		return 0, 0, false, fmt.Errorf("therapist: failed to build geocode request: %w", err)
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, 0, false, fmt.Errorf("therapist: geocode request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return 0, 0, false, fmt.Errorf("therapist: geocode returned status %d", resp.StatusCode)
	}

	var payload []struct {
		Lat string `json:"lat"`
		Lon string `json:"lon"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, 0, false, fmt.Errorf("therapist: failed to decode geocode response: %w", err)
	}
	if len(payload) == 0 {
		return 0, 0, false, nil
	}
	if _, err := fmt.Sscanf(payload[0].Lat, "%f", &lat); err != nil {
		return 0, 0, false, nil
	}
	if _, err := fmt.Sscanf(payload[0].Lon, "%f", &lon); err != nil {
		return 0, 0, false, nil
	}
	return lat, lon, true, nil
}

// overpassElement is one node/way/relation from an Overpass reply.
type overpassElement struct {
	Type   string            `json:"type"`
	ID     int64             `json:"id"`
	Lat    float64           `json:"lat"`
	Lon    float64           `json:"lon"`
	Center *overpassCenter   `json:"center"`
	Tags   map[string]string `json:"tags"`
}

type overpassCenter struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

func overpassQuery(lat, lon float64, radiusM int) string {
	var b strings.Builder
	b.WriteString("[out:json][timeout:25];\n(\n")
	around := fmt.Sprintf("(around:%d,%f,%f)", radiusM, lat, lon)
	for _, healthcare := range []string{"psychotherapist", "psychologist", "psychiatrist", "counselling"} {
		for _, kind := range []string{"node", "way", "relation"} {
			fmt.Fprintf(&b, "  %s[\"healthcare\"=%q]%s;\n", kind, healthcare, around)
		}
	}
	for _, kind := range []string{"node", "way", "relation"} {
		fmt.Fprintf(&b, "  %s[\"amenity\"=\"clinic\"][\"healthcare:speciality\"~\"psych|psychiatry|psychotherapy\",i]%s;\n", kind, around)
	}
	b.WriteString(");\nout center tags;\n")
	return b.String()
}

// overpassSearch lists healthcare elements around a point. Throttling
// responses (429, 5xx) yield an empty result rather than an error.
func (c *OSMClient) overpassSearch(ctx context.Context, lat, lon float64, radiusM int) ([]overpassElement, error) {
	ctx, cancel := context.WithTimeout(ctx, overpassTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.overpassEndpoint(),
		strings.NewReader(overpassQuery(lat, lon, radiusM)))
	if err != nil {
		return nil, fmt.Errorf("therapist: failed to build overpass request: %w", err)
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("therapist: overpass request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		io.Copy(io.Discard, resp.Body)
		c.logger.Warn("overpass throttled", "status", resp.StatusCode)
		return nil, nil
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("therapist: overpass returned status %d", resp.StatusCode)
	}

	var payload struct {
		Elements []overpassElement `json:"elements"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("therapist: failed to decode overpass response: %w", err)
	}
	return payload.Elements, nil
}

func formatAddress(tags map[string]string) string {
	if full := tags["addr:full"]; full != "" {
		return full
	}
	var parts []string
	street := tags["addr:street"]
	if street != "" {
		if number := tags["addr:housenumber"]; number != "" {
			parts = append(parts, street+" "+number)
		} else {
			parts = append(parts, street)
		}
	}
	city := tags["addr:city"]
	postcode := tags["addr:postcode"]
	country := tags["addr:country"]
	if country == "" {
		country = tags["addr:country_code"]
	}
	if country == "" {
		country = tags["country"]
	}
	var locality []string
	if postcode != "" {
		locality = append(locality, postcode)
	}
	if city != "" {
		locality = append(locality, city)
	}
	if len(locality) > 0 {
		parts = append(parts, strings.Join(locality, " "))
	}
	if street == "" && country != "" && len(locality) > 0 {
		parts = append(parts, country)
	}
	if len(parts) == 0 {
		if city != "" || country != "" {
			var fallback []string
			if city != "" {
				fallback = append(fallback, city)
			}
			if country != "" {
				fallback = append(fallback, country)
			}
			return strings.Join(fallback, ", ")
		}
		return "Address unavailable"
	}
	return strings.Join(parts, ", ")
}

func haversineKM(lat1, lon1, lat2, lon2 float64) float64 {
	const radius = 6371.0
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lon2 - lon1) * math.Pi / 180
	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	return radius * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

func normalizeProviders(elements []overpassElement, originLat, originLon float64, limit int) []schema.TherapistResult {
	var providers []schema.TherapistResult
	for _, element := range elements {
		lat, lon := element.Lat, element.Lon
		if lat == 0 && lon == 0 {
			if element.Center == nil {
				continue
			}
			lat, lon = element.Center.Lat, element.Center.Lon
		}
		tags := element.Tags
		if tags == nil {
			tags = map[string]string{}
		}
		name := tags["name"]
		if name == "" {
			name = tags["brand"]
		}
		if name == "" {
			name = "Therapist"
		}
		phone := tags["phone"]
		if phone == "" {
			phone = tags["contact:phone"]
		}
		if phone == "" {
			phone = "Phone unavailable"
		}
		resultURL := tags["website"]
		if resultURL == "" {
			resultURL = tags["contact:website"]
		}
		if resultURL == "" {
			resultURL = fmt.Sprintf("https://www.openstreetmap.org/%s/%d", element.Type, element.ID)
		}
		distance := haversineKM(originLat, originLon, lat, lon)
		providers = append(providers, schema.TherapistResult{
			Name:       name,
			Address:    formatAddress(tags),
			URL:        resultURL,
			Phone:      phone,
			DistanceKM: math.Round(distance*100) / 100,
		})
	}
	sort.Slice(providers, func(i, j int) bool {
		return providers[i].DistanceKM < providers[j].DistanceKM
	})
	if len(providers) > limit {
		providers = providers[:limit]
	}
	return providers
}

// Search geocodes the location and lists nearby providers sorted by distance.
// Disabled search, unknown places, and throttling all yield empty results.
func (c *OSMClient) Search(ctx context.Context, location string, radiusKM, limit int) ([]schema.TherapistResult, error) {
	if !c.cfg.Enabled {
		return nil, nil
	}
	if radiusKM <= 0 {
		radiusKM = DefaultRadiusKM
	}
	if limit <= 0 || limit > MaxLimit {
		limit = DefaultLimit
	}

	cacheKey := fmt.Sprintf("%s|%d", strings.ToLower(strings.TrimSpace(location)), radiusKM)
	if results, ok := c.cached(cacheKey); ok {
		return results, nil
	}
	if !c.allowRequest() {
		c.logger.Warn("osm search rate limited", "location", location)
		return nil, nil
	}

	lat, lon, ok, err := c.Geocode(ctx, location)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	elements, err := c.overpassSearch(ctx, lat, lon, radiusKM*1000)
	if err != nil {
		return nil, err
	}

	providers := normalizeProviders(elements, lat, lon, limit)
	c.store(cacheKey, providers)
	return providers, nil
}
