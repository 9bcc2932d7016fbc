package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baechuer/real-time-ressys/services/identity-bridge/internal/domain"
)

type countingStore struct {
	docs map[string]map[string]any
	gets int
	// afterRead runs between reading the document and returning it
	afterRead func()
}

func (s *countingStore) Set(ctx context.Context, p domain.Profile) error {
	s.docs[p.UID] = p.Fields()
	return nil
}
func (s *countingStore) Add(ctx context.Context, f map[string]any) (string, error) {
	return "", errors.New("not used")
}
func (s *countingStore) Get(ctx context.Context, id string) (domain.Document, error) {
	s.gets++
	d, ok := s.docs[id]
	if s.afterRead != nil {
		hook := s.afterRead
		s.afterRead = nil
		hook()
	}
	if !ok {
		return domain.Document{}, domain.ErrUserNotFound()
	}
	return domain.Document{ID: id, Fields: d}, nil
}
func (s *countingStore) List(ctx context.Context) ([]domain.Document, error) { return nil, nil }
func (s *countingStore) Delete(ctx context.Context, id string) error {
	delete(s.docs, id)
	return nil
}

func TestCachedProfileStore_ReadThrough(t *testing.T) {
	c, mr := newTestClient(t)
	inner := &countingStore{docs: map[string]map[string]any{
		"u1": {"uid": "u1", "displayName": "Ana"},
	}}
	store := NewCachedProfileStore(inner, c, time.Minute)
	ctx := context.Background()

	d, err := store.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Ana", d.DisplayName())
	assert.True(t, mr.Exists("profile:u1"))

	d, err = store.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Ana", d.DisplayName())
	assert.Equal(t, 1, inner.gets, "second read must come from redis")
}

func TestCachedProfileStore_WritesEvict(t *testing.T) {
	c, mr := newTestClient(t)
	inner := &countingStore{docs: map[string]map[string]any{}}
	store := NewCachedProfileStore(inner, c, time.Minute)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, domain.Profile{UID: "u1", DisplayName: "Ana"}))
	_, err := store.Get(ctx, "u1")
	require.NoError(t, err)
	require.True(t, mr.Exists("profile:u1"))

	require.NoError(t, store.Set(ctx, domain.Profile{UID: "u1", DisplayName: "Ana Maria"}))
	assert.False(t, mr.Exists("profile:u1"))

	d, err := store.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Ana Maria", d.DisplayName())

	require.NoError(t, store.Delete(ctx, "u1"))
	assert.False(t, mr.Exists("profile:u1"))
	_, err = store.Get(ctx, "u1")
	assert.True(t, domain.Is(err, "user_not_found"))
}

func TestCachedProfileStore_RedisDown_FallsBack(t *testing.T) {
	c, mr := newTestClient(t)
	inner := &countingStore{docs: map[string]map[string]any{"u1": {"displayName": "Ana"}}}
	store := NewCachedProfileStore(inner, c, time.Minute)
	mr.Close()

	d, err := store.Get(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "Ana", d.DisplayName())
}

func TestCachedProfileStore_Watch_NotSupported(t *testing.T) {
	store := NewCachedProfileStore(&countingStore{docs: map[string]map[string]any{}}, nil, 0)

	_, err := store.Watch(context.Background())
	assert.True(t, domain.Is(err, "not_supported"))
}

func TestCachedProfileStore_ReadRacingWrite_DoesNotCacheStaleDocument(t *testing.T) {
	c, mr := newTestClient(t)
	inner := &countingStore{docs: map[string]map[string]any{
		"u1": {"uid": "u1", "displayName": "Old"},
	}}
	store := NewCachedProfileStore(inner, c, time.Minute)
	ctx := context.Background()

	// a rename lands after the read loaded "Old" but before it fills the cache
	inner.afterRead = func() {
		require.NoError(t, store.Set(ctx, domain.Profile{UID: "u1", DisplayName: "New"}))
	}

	d, err := store.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Old", d.DisplayName())
	assert.False(t, mr.Exists("profile:u1"), "stale document must not be cached")

	d, err = store.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "New", d.DisplayName())
	assert.True(t, mr.Exists("profile:u1"))
}
