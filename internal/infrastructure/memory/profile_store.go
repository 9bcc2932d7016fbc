package memory

import (
	"context"
	"maps"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/baechuer/real-time-ressys/services/identity-bridge/internal/domain"
)

// ProfileStore keeps the user collection in process. It follows the
// document store's listing rules: ordered by displayName ascending, and
// documents without a displayName are left out of the ordered listing.
type ProfileStore struct {
	mu       sync.RWMutex
	docs     map[string]map[string]any
	watchers map[chan []domain.Document]struct{}
}

func NewProfileStore() *ProfileStore {
	return &ProfileStore{
		docs:     make(map[string]map[string]any),
		watchers: make(map[chan []domain.Document]struct{}),
	}
}

func (s *ProfileStore) Set(ctx context.Context, p domain.Profile) error {
	if strings.TrimSpace(p.UID) == "" {
		return domain.ErrMissingField("uid")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.docs[p.UID]
	if doc == nil {
		doc = make(map[string]any)
	}
	maps.Copy(doc, p.Fields())
	s.docs[p.UID] = doc
	s.notifyLocked()
	return nil
}

func (s *ProfileStore) Add(ctx context.Context, fields map[string]any) (string, error) {
	id := uuid.NewString()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.docs[id] = maps.Clone(fields)
	s.notifyLocked()
	return id, nil
}

func (s *ProfileStore) Get(ctx context.Context, id string) (domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.docs[id]
	if !ok {
		return domain.Document{}, domain.ErrUserNotFound()
	}
	return domain.Document{ID: id, Fields: maps.Clone(doc)}, nil
}

func (s *ProfileStore) List(ctx context.Context) ([]domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked(), nil
}

// Delete is idempotent, like the document store's.
func (s *ProfileStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.docs[id]; !ok {
		return nil
	}
	delete(s.docs, id)
	s.notifyLocked()
	return nil
}

// Watch delivers the current listing right away and a fresh one after every
// change. Slow readers only ever see the latest snapshot.
func (s *ProfileStore) Watch(ctx context.Context) (<-chan []domain.Document, error) {
	ch := make(chan []domain.Document, 1)

	s.mu.Lock()
	s.watchers[ch] = struct{}{}
	ch <- s.snapshotLocked()
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.watchers, ch)
		close(ch)
		s.mu.Unlock()
	}()
	return ch, nil
}

func (s *ProfileStore) snapshotLocked() []domain.Document {
	out := make([]domain.Document, 0, len(s.docs))
	for id, doc := range s.docs {
		if _, ok := doc["displayName"]; !ok {
			continue
		}
		out = append(out, domain.Document{ID: id, Fields: maps.Clone(doc)})
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].DisplayName(), out[j].DisplayName()
		if a != b {
			return a < b
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s *ProfileStore) notifyLocked() {
	if len(s.watchers) == 0 {
		return
	}
	snap := s.snapshotLocked()
	for ch := range s.watchers {
		select {
		case ch <- snap:
		default:
			// replace the stale snapshot
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}
