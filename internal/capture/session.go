package capture

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/habitpet/caloriecam/internal/estimation"

	"github.com/go-redis/redis/v8"
)

//go:generate mockgen -source=$GOFILE -destination=session_mocks_test.go -package=capture_test

const (
	DefaultSessionTTL = 10 * time.Minute
	sessionKeyPrefix  = "caloriecam||capture||"
)

var ErrSessionNotFound = errors.New("capture session not found")

// PendingSession is a capture waiting for the answer to a VoI question.
type PendingSession struct {
	ID             string                   `json:"id"`
	Profile        string                   `json:"profile"`
	Result         estimation.CalorieResult `json:"result"`
	Question       string                   `json:"question"`
	AskedQuestions int                      `json:"askedQuestions"`
	CreatedAt      time.Time                `json:"createdAt"`
}

type SessionStore interface {
	Save(ctx context.Context, session PendingSession, ttl time.Duration) error
	Load(ctx context.Context, id string) (*PendingSession, error)
	// Delete returns ErrSessionNotFound when nothing was removed.
	Delete(ctx context.Context, id string) error
}

type RedisSessionStore struct {
	redisClient *redis.Client
}

func NewRedisSessionStore(redisClient *redis.Client) *RedisSessionStore {
	return &RedisSessionStore{
		redisClient: redisClient,
	}
}

func (s *RedisSessionStore) Save(ctx context.Context, session PendingSession, ttl time.Duration) error {
	raw, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := s.redisClient.Set(ctx, sessionKeyPrefix+session.ID, raw, ttl).Err(); err != nil {
		return fmt.Errorf("redis set session: %w", err)
	}
	return nil
}

func (s *RedisSessionStore) Load(ctx context.Context, id string) (*PendingSession, error) {
	raw, err := s.redisClient.Get(ctx, sessionKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get session: %w", err)
	}

	session := &PendingSession{}
	if err := json.Unmarshal(raw, session); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return session, nil
}

func (s *RedisSessionStore) Delete(ctx context.Context, id string) error {
	removed, err := s.redisClient.Del(ctx, sessionKeyPrefix+id).Result()
	if err != nil {
		return fmt.Errorf("redis del session: %w", err)
	}
	if removed == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// MemorySessionStore keeps sessions in process, for the CLI and tests.
type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[string]memorySession
	now      func() time.Time
}

type memorySession struct {
	session   PendingSession
	expiresAt time.Time
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{
		sessions: make(map[string]memorySession),
		now:      time.Now,
	}
}

func (s *MemorySessionStore) Save(_ context.Context, session PendingSession, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = memorySession{
		session:   session,
		expiresAt: s.now().Add(ttl),
	}
	return nil
}

func (s *MemorySessionStore) Load(_ context.Context, id string) (*PendingSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.lookup(id)
	if !ok {
		return nil, ErrSessionNotFound
	}
	session := stored.session
	return &session, nil
}

func (s *MemorySessionStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.lookup(id); !ok {
		return ErrSessionNotFound
	}
	delete(s.sessions, id)
	return nil
}

// lookup must be called with mu held; it evicts expired entries
func (s *MemorySessionStore) lookup(id string) (memorySession, bool) {
	stored, ok := s.sessions[id]
	if !ok {
		return memorySession{}, false
	}
	if !s.now().Before(stored.expiresAt) {
		delete(s.sessions, id)
		return memorySession{}, false
	}
	return stored, true
}
