package therapist

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// sessionTTL bounds how long remembered locations and pending queries live.
const sessionTTL = 24 * time.Hour

// SessionStore remembers per-session search context: the last successful
// location and an unanswered "which city?" query.
type SessionStore interface {
	RememberLocation(ctx context.Context, sessionKey, location string) error
	RememberedLocation(ctx context.Context, sessionKey string) (string, error)
	ClearLocation(ctx context.Context, sessionKey string) error

	SetPendingQuery(ctx context.Context, sessionKey string, params SearchParams) error
	PendingQuery(ctx context.Context, sessionKey string) (*SearchParams, error)
	ClearPendingQuery(ctx context.Context, sessionKey string) error
}

// RedisSessionStore keeps session search context in Redis.
type RedisSessionStore struct {
	redis  *redis.Client
	tracer trace.Tracer
}

// NewRedisSessionStore builds a Redis-backed session store.
func NewRedisSessionStore(client *redis.Client, tracer trace.Tracer) *RedisSessionStore {
	if client == nil {
		panic("therapist: redis client cannot be nil")
	}
	if tracer == nil {
		tracer = otel.Tracer("skillscoach.internal.therapist.session")
	}
	return &RedisSessionStore{redis: client, tracer: tracer}
}

func locationKey(sessionKey string) string {
	return fmt.Sprintf("therapist:location:%s", sessionKey)
}

func pendingQueryKey(sessionKey string) string {
	return fmt.Sprintf("therapist:pending_query:%s", sessionKey)
}

func (s *RedisSessionStore) RememberLocation(ctx context.Context, sessionKey, location string) error {
	ctx, span := s.tracer.Start(ctx, "therapist.remember_location")
	defer span.End()

	if location == "" {
		return nil
	}
	if err := s.redis.Set(ctx, locationKey(sessionKey), location, sessionTTL).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("therapist: failed to persist location: %w", err)
	}
	return nil
}

func (s *RedisSessionStore) RememberedLocation(ctx context.Context, sessionKey string) (string, error) {
	ctx, span := s.tracer.Start(ctx, "therapist.load_location")
	defer span.End()

	location, err := s.redis.Get(ctx, locationKey(sessionKey)).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("therapist: failed to load location: %w", err)
	}
	return location, nil
}

func (s *RedisSessionStore) ClearLocation(ctx context.Context, sessionKey string) error {
	if err := s.redis.Del(ctx, locationKey(sessionKey)).Err(); err != nil {
		return fmt.Errorf("therapist: failed to clear location: %w", err)
	}
	return nil
}

func (s *RedisSessionStore) SetPendingQuery(ctx context.Context, sessionKey string, params SearchParams) error {
	ctx, span := s.tracer.Start(ctx, "therapist.set_pending_query")
	defer span.End()

	data, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("therapist: failed to marshal pending query: %w", err)
	}
	if err := s.redis.Set(ctx, pendingQueryKey(sessionKey), data, sessionTTL).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("therapist: failed to persist pending query: %w", err)
	}
	return nil
}

func (s *RedisSessionStore) PendingQuery(ctx context.Context, sessionKey string) (*SearchParams, error) {
	ctx, span := s.tracer.Start(ctx, "therapist.load_pending_query")
	defer span.End()

	data, err := s.redis.Get(ctx, pendingQueryKey(sessionKey)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("therapist: failed to load pending query: %w", err)
	}
	var params SearchParams
	if err := json.Unmarshal(data, &params); err != nil {
		return nil, fmt.Errorf("therapist: failed to decode pending query: %w", err)
	}
	return &params, nil
}

func (s *RedisSessionStore) ClearPendingQuery(ctx context.Context, sessionKey string) error {
	if err := s.redis.Del(ctx, pendingQueryKey(sessionKey)).Err(); err != nil {
		return fmt.Errorf("therapist: failed to clear pending query: %w", err)
	}
	return nil
}

var _ SessionStore = (*RedisSessionStore)(nil)

// MemorySessionStore is an in-process store for tests and single-node dev.
type MemorySessionStore struct {
	mu        sync.Mutex
	locations map[string]string
	pending   map[string]SearchParams
}

// NewMemorySessionStore builds an empty in-memory session store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{
		locations: make(map[string]string),
		pending:   make(map[string]SearchParams),
	}
}

func (s *MemorySessionStore) RememberLocation(ctx context.Context, sessionKey, location string) error {
	if location == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locations[sessionKey] = location
	return nil
}

func (s *MemorySessionStore) RememberedLocation(ctx context.Context, sessionKey string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.locations[sessionKey], nil
}

func (s *MemorySessionStore) ClearLocation(ctx context.Context, sessionKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.locations, sessionKey)
	return nil
}

func (s *MemorySessionStore) SetPendingQuery(ctx context.Context, sessionKey string, params SearchParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[sessionKey] = params
	return nil
}

func (s *MemorySessionStore) PendingQuery(ctx context.Context, sessionKey string) (*SearchParams, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	params, ok := s.pending[sessionKey]
	if !ok {
		return nil, nil
	}
	return &params, nil
}

func (s *MemorySessionStore) ClearPendingQuery(ctx context.Context, sessionKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, sessionKey)
	return nil
}

var _ SessionStore = (*MemorySessionStore)(nil)
