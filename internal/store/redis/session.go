package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/marks/internal/domain"
)

const (
	// DefaultSessionTTL is used when a session is saved without a TTL (7 days)
	DefaultSessionTTL = 7 * 24 * time.Hour
)

// ErrSessionNotFound is returned for unknown or expired sessions.
var ErrSessionNotFound = errors.New("session not found")

// Session is a signed-in browser.
type Session struct {
	ID        string      `json:"id"`
	User      domain.User `json:"user"`
	CreatedAt time.Time   `json:"created_at"`
	ExpiresAt time.Time   `json:"expires_at"`
}

// Store handles Redis operations for sessions
type Store struct {
	client *redis.Client
	now    func() time.Time
}

// NewStore creates a new Redis store
func NewStore(client *redis.Client) *Store {
	return &Store{
		client: client,
		now:    time.Now,
	}
}

// NewSessionID returns a fresh, time-ordered session ID
func NewSessionID() string {
	return ulid.Make().String()
}

// CreateSession stores a new session for user and returns it
func (s *Store) CreateSession(ctx context.Context, user domain.User, ttl time.Duration) (*Session, error) {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	now := s.now().UTC()
	sess := &Session{
		ID:        NewSessionID(),
		User:      user,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	if err := s.SaveSession(ctx, sess, ttl); err != nil {
		return nil, err
	}
	return sess, nil
}

// SaveSession stores a session and indexes it under its user
func (s *Store) SaveSession(ctx context.Context, sess *Session, ttl time.Duration) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, SessionKey(sess.ID), data, ttl)
	pipe.SAdd(ctx, UserSessionsKey(sess.User.ID), sess.ID)
	pipe.SAdd(ctx, AllSessionsKey(), sess.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// GetSession retrieves a session from Redis by ID
func (s *Store) GetSession(ctx context.Context, id string) (*Session, error) {
	data, err := s.client.Get(ctx, SessionKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &sess, nil
}

// DeleteSession removes a session. Unknown IDs are not an error.
func (s *Store) DeleteSession(ctx context.Context, id string) error {
	sess, err := s.GetSession(ctx, id)
	if err != nil && !errors.Is(err, ErrSessionNotFound) {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, SessionKey(id))
	pipe.SRem(ctx, AllSessionsKey(), id)
	if sess != nil {
		pipe.SRem(ctx, UserSessionsKey(sess.User.ID), id)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteUserSessions signs a user out everywhere and returns how many
// sessions were removed
func (s *Store) DeleteUserSessions(ctx context.Context, userID string) (int, error) {
	ids, err := s.client.SMembers(ctx, UserSessionsKey(userID)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to get user sessions: %w", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	keys := make([]string, 0, len(ids))
	members := make([]interface{}, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, SessionKey(id))
		members = append(members, id)
	}

	pipe := s.client.TxPipeline()
	del := pipe.Del(ctx, keys...)
	pipe.SRem(ctx, AllSessionsKey(), members...)
	pipe.Del(ctx, UserSessionsKey(userID))
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("failed to delete user sessions: %w", err)
	}
	return int(del.Val()), nil
}

// CountSessions returns the number of indexed sessions, including ones
// that expired since the last prune
func (s *Store) CountSessions(ctx context.Context) (int64, error) {
	n, err := s.client.SCard(ctx, AllSessionsKey()).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count sessions: %w", err)
	}
	return n, nil
}

// PruneSessions drops index entries whose session key has expired and
// returns how many were removed
func (s *Store) PruneSessions(ctx context.Context) (int, error) {
	ids, err := s.client.SMembers(ctx, AllSessionsKey()).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to get session IDs: %w", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	pipe := s.client.Pipeline()
	exists := make([]*redis.IntCmd, len(ids))
	for i, id := range ids {
		exists[i] = pipe.Exists(ctx, SessionKey(id))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("failed to check sessions: %w", err)
	}

	stale := make([]interface{}, 0)
	for i, cmd := range exists {
		if cmd.Val() == 0 {
			stale = append(stale, ids[i])
		}
	}
	if len(stale) == 0 {
		return 0, nil
	}

	// per-user sets are cleaned lazily by scanning them for the same IDs
	userKeys, err := s.scanKeys(ctx, KeyPrefixUserSessions+"*")
	if err != nil {
		return 0, err
	}

	pipe = s.client.TxPipeline()
	pipe.SRem(ctx, AllSessionsKey(), stale...)
	for _, key := range userKeys {
		pipe.SRem(ctx, key, stale...)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("failed to prune sessions: %w", err)
	}
	return len(stale), nil
}

func (s *Store) scanKeys(ctx context.Context, pattern string) ([]string, error) {
	var (
		keys   []string
		cursor uint64
	)
	for {
		batch, next, err := s.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", pattern, err)
		}
		keys = append(keys, batch...)
		if next == 0 {
			return keys, nil
		}
		cursor = next
	}
}

// Ping checks the connection
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
