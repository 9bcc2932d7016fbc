package redis

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/baechuer/real-time-ressys/services/identity-bridge/internal/domain"
)

// SessionStore implements auth.SessionStore on Redis:
// - session id is opaque (random, URL-safe)
// - sess:<id> -> JSON(domain.Session) with TTL
type SessionStore struct {
	rdb *goredis.Client

	prefix     string
	tokenBytes int
}

func NewSessionStore(c *Client) *SessionStore {
	return &SessionStore{
		rdb:        rdbOf(c),
		prefix:     "sess:",
		tokenBytes: 32, // 256-bit
	}
}

func (s *SessionStore) key(id string) string { return s.prefix + id }

func (s *SessionStore) Create(ctx context.Context, sess domain.Session, ttl time.Duration) (string, error) {
	if strings.TrimSpace(sess.UID) == "" {
		return "", domain.ErrMissingField("uid")
	}
	if s.rdb == nil {
		return "", domain.ErrRedisUnavailable(errors.New("redis session store not configured"))
	}

	id, err := newOpaqueID(s.tokenBytes)
	if err != nil {
		return "", domain.ErrRandomFailed(err)
	}
	sess.ID = id

	b, err := json.Marshal(sess)
	if err != nil {
		return "", domain.ErrInternal(err)
	}
	if err := s.rdb.Set(ctx, s.key(id), b, ttl).Err(); err != nil {
		return "", domain.ErrRedisUnavailable(err)
	}
	return id, nil
}

func (s *SessionStore) Get(ctx context.Context, id string) (domain.Session, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Session{}, domain.ErrSessionNotFound()
	}
	if s.rdb == nil {
		return domain.Session{}, domain.ErrRedisUnavailable(errors.New("redis session store not configured"))
	}

	raw, err := s.rdb.Get(ctx, s.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return domain.Session{}, domain.ErrSessionNotFound()
		}
		return domain.Session{}, domain.ErrRedisUnavailable(err)
	}

	var sess domain.Session
	if err := json.Unmarshal(raw, &sess); err != nil || sess.UID == "" {
		// corrupt entry: drop it and treat as logged out
		_ = s.rdb.Del(ctx, s.key(id)).Err()
		return domain.Session{}, domain.ErrSessionNotFound()
	}
	sess.ID = id
	return sess, nil
}

// Update overwrites an existing session and resets its TTL.
func (s *SessionStore) Update(ctx context.Context, sess domain.Session, ttl time.Duration) error {
	if strings.TrimSpace(sess.ID) == "" {
		return domain.ErrSessionNotFound()
	}
	if s.rdb == nil {
		return domain.ErrRedisUnavailable(errors.New("redis session store not configured"))
	}

	b, err := json.Marshal(sess)
	if err != nil {
		return domain.ErrInternal(err)
	}
	ok, err := s.rdb.SetXX(ctx, s.key(sess.ID), b, ttl).Result()
	if err != nil {
		return domain.ErrRedisUnavailable(err)
	}
	if !ok {
		return domain.ErrSessionNotFound()
	}
	return nil
}

// Delete is idempotent.
func (s *SessionStore) Delete(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil
	}
	if s.rdb == nil {
		return domain.ErrRedisUnavailable(errors.New("redis session store not configured"))
	}
	if err := s.rdb.Del(ctx, s.key(id)).Err(); err != nil {
		return domain.ErrRedisUnavailable(err)
	}
	return nil
}

func newOpaqueID(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	// URL-safe, no padding
	return base64.RawURLEncoding.EncodeToString(b), nil
}
