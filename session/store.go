package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultPrefix is the key namespace used when NewStore receives an empty prefix.
const DefaultPrefix = "session"

var (
	// ErrRedisUnavailable wraps any transport or server error from Redis.
	ErrRedisUnavailable = errors.New("redis unavailable")
	// ErrNotFound is returned by Get when the session is absent or expired.
	ErrNotFound = errors.New("session not found")
)

// Store reads and writes sessions. It is safe for concurrent use.
type Store struct {
	redis  redis.UniversalClient
	prefix string
}

// NewStore returns a Store writing keys under prefix.
func NewStore(rdb redis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Store{redis: rdb, prefix: prefix}
}

// Key returns the Redis key holding sessionID.
func (s *Store) Key(sessionID string) string {
	return s.prefix + ":" + sessionID
}

// Save writes sess with the given ttl, replacing any existing record.
func (s *Store) Save(ctx context.Context, sess *Session, ttl time.Duration) error {
	if sess.SessionID == "" {
		return errors.New("session id is empty")
	}
	if ttl <= 0 {
		return errors.New("session ttl must be positive")
	}
	blob, err := Encode(sess)
	if err != nil {
		return err
	}
	if err := s.redis.Set(ctx, s.Key(sess.SessionID), blob, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Get loads a session. It never modifies the key's TTL.
func (s *Store) Get(ctx context.Context, sessionID string) (*Session, error) {
	if sessionID == "" {
		return nil, ErrNotFound
	}
	blob, err := s.redis.Get(ctx, s.Key(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	sess, err := Decode(blob)
	if err != nil {
		return nil, err
	}
	sess.SessionID = sessionID
	return sess, nil
}

// Delete removes a session. Deleting an absent session is not an error.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	if err := s.redis.Del(ctx, s.Key(sessionID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// TTL reports the remaining lifetime of a session, or ErrNotFound.
func (s *Store) TTL(ctx context.Context, sessionID string) (time.Duration, error) {
	d, err := s.redis.PTTL(ctx, s.Key(sessionID)).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if d < 0 {
		return 0, ErrNotFound
	}
	return d, nil
}

// Ping checks connectivity and returns the round-trip latency.
func (s *Store) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return time.Since(start), nil
}
