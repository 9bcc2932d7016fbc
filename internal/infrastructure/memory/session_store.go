package memory

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"strings"
	"sync"
	"time"

	"github.com/baechuer/real-time-ressys/services/identity-bridge/internal/domain"
)

type sessionEntry struct {
	sess      domain.Session
	expiresAt time.Time
}

// SessionStore is the in-process fallback used when Redis is unavailable.
// Sessions do not survive a restart.
type SessionStore struct {
	mu   sync.RWMutex
	byID map[string]sessionEntry
	now  func() time.Time
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		byID: make(map[string]sessionEntry),
		now:  time.Now,
	}
}

func (s *SessionStore) Create(ctx context.Context, sess domain.Session, ttl time.Duration) (string, error) {
	if strings.TrimSpace(sess.UID) == "" {
		return "", domain.ErrMissingField("uid")
	}
	id, err := newOpaqueID(32)
	if err != nil {
		return "", domain.ErrRandomFailed(err)
	}
	sess.ID = id

	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[id] = sessionEntry{sess: sess, expiresAt: s.now().Add(ttl)}
	return id, nil
}

func (s *SessionStore) Get(ctx context.Context, id string) (domain.Session, error) {
	s.mu.RLock()
	e, ok := s.byID[id]
	s.mu.RUnlock()

	if !ok {
		return domain.Session{}, domain.ErrSessionNotFound()
	}
	if s.now().After(e.expiresAt) {
		_ = s.Delete(ctx, id)
		return domain.Session{}, domain.ErrSessionNotFound()
	}
	return e.sess, nil
}

func (s *SessionStore) Update(ctx context.Context, sess domain.Session, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.byID[sess.ID]
	if !ok || s.now().After(e.expiresAt) {
		delete(s.byID, sess.ID)
		return domain.ErrSessionNotFound()
	}
	s.byID[sess.ID] = sessionEntry{sess: sess, expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *SessionStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byID, id) // idempotent
	return nil
}

func newOpaqueID(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
