package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/satish27072002/mh-skills-coach/internal/safety"
)

const (
	historyTTL             = 24 * time.Hour
	DefaultMaxHistoryTurns = 20
)

// HistoryStore keeps the ordered transcript for a session so the coach can
// answer with context. Every reply the service returns is appended, including
// refusals, so the model sees what the user was already told.
type HistoryStore interface {
	Load(ctx context.Context, sessionKey string) ([]safety.Turn, error)
	Append(ctx context.Context, sessionKey, userMessage, assistantMessage string) error
}

type RedisHistoryStore struct {
	redis    *redis.Client
	tracer   trace.Tracer
	maxTurns int
}

func NewRedisHistoryStore(client *redis.Client, maxTurns int) *RedisHistoryStore {
	if client == nil {
		panic("chat: redis client cannot be nil")
	}
	if maxTurns <= 0 {
		maxTurns = DefaultMaxHistoryTurns
	}
	return &RedisHistoryStore{
		redis:    client,
		tracer:   otel.Tracer("skillscoach.internal.chat.history"),
		maxTurns: maxTurns,
	}
}

func (s *RedisHistoryStore) Load(ctx context.Context, sessionKey string) ([]safety.Turn, error) {
	ctx, span := s.tracer.Start(ctx, "chat.load_history")
	defer span.End()

	data, err := s.redis.Get(ctx, historyKey(sessionKey)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("chat: failed to load history: %w", err)
	}

	var history []safety.Turn
	if err := json.Unmarshal(data, &history); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("chat: failed to decode history: %w", err)
	}
	return history, nil
}

func (s *RedisHistoryStore) Append(ctx context.Context, sessionKey, userMessage, assistantMessage string) error {
	ctx, span := s.tracer.Start(ctx, "chat.append_history")
	defer span.End()

	history, err := s.Load(ctx, sessionKey)
	if err != nil {
		return err
	}
	history = append(history,
		safety.Turn{Role: "user", Content: userMessage},
		safety.Turn{Role: "assistant", Content: assistantMessage},
	)
	history = capHistory(history, s.maxTurns)

	data, err := json.Marshal(history)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("chat: failed to marshal history: %w", err)
	}
	if err := s.redis.Set(ctx, historyKey(sessionKey), data, historyTTL).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("chat: failed to persist history: %w", err)
	}
	return nil
}

func historyKey(sessionKey string) string {
	return fmt.Sprintf("chat:history:%s", sessionKey)
}

// capHistory keeps the newest maxTurns exchanges (one user plus one assistant
// message each).
func capHistory(history []safety.Turn, maxTurns int) []safety.Turn {
	maxMessages := maxTurns * 2
	if len(history) <= maxMessages {
		return history
	}
	return history[len(history)-maxMessages:]
}

// MemoryHistoryStore is an in-process HistoryStore for tests and local runs
// without redis.
type MemoryHistoryStore struct {
	mu       sync.Mutex
	turns    map[string][]safety.Turn
	maxTurns int
}

func NewMemoryHistoryStore(maxTurns int) *MemoryHistoryStore {
	if maxTurns <= 0 {
		maxTurns = DefaultMaxHistoryTurns
	}
	return &MemoryHistoryStore{
		turns:    make(map[string][]safety.Turn),
		maxTurns: maxTurns,
	}
}

func (s *MemoryHistoryStore) Load(_ context.Context, sessionKey string) ([]safety.Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	history := s.turns[sessionKey]
	out := make([]safety.Turn, len(history))
	copy(out, history)
	return out, nil
}

func (s *MemoryHistoryStore) Append(_ context.Context, sessionKey, userMessage, assistantMessage string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	history := append(s.turns[sessionKey],
		safety.Turn{Role: "user", Content: userMessage},
		safety.Turn{Role: "assistant", Content: assistantMessage},
	)
	s.turns[sessionKey] = capHistory(history, s.maxTurns)
	return nil
}
