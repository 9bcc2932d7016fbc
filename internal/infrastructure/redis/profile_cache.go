package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/baechuer/real-time-ressys/services/identity-bridge/internal/application/auth"
	"github.com/baechuer/real-time-ressys/services/identity-bridge/internal/domain"
)

// CachedProfileStore decorates an auth.ProfileStore with a Redis cache for
// single-document reads.
// - Read path: Redis -> store fallback -> Redis set, guarded by a per-id
//   generation so a read that raced a write never refills the old document
// - Write path (Set/Delete): store -> bump generation + Redis DEL (best effort)
// Cached fields go through JSON, so numbers come back as float64 and
// timestamps as strings.
type CachedProfileStore struct {
	inner   auth.ProfileStore
	rdb     *goredis.Client
	ttl     time.Duration
	keyPref string
	genPref string
}

func NewCachedProfileStore(inner auth.ProfileStore, client *Client, ttl time.Duration) *CachedProfileStore {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CachedProfileStore{
		inner:   inner,
		rdb:     rdbOf(client),
		ttl:     ttl,
		keyPref: "profile:",
		genPref: "profile-gen:",
	}
}

func (c *CachedProfileStore) key(id string) string {
	return c.keyPref + id
}

func (c *CachedProfileStore) genKey(id string) string {
	return c.genPref + id
}

func (c *CachedProfileStore) Get(ctx context.Context, id string) (domain.Document, error) {
	// 1) Try Redis
	if c.rdb != nil {
		raw, err := c.rdb.Get(ctx, c.key(id)).Bytes()
		if err == nil {
			var fields map[string]any
			if jerr := json.Unmarshal(raw, &fields); jerr == nil {
				return domain.Document{ID: id, Fields: fields}, nil
			}
			// bad entry -> fall back to the store
		} else if !errors.Is(err, goredis.Nil) {
			// redis error -> fall back to the store, reads must not fail on cache
		}
	}

	// 2) Store is the source of truth; note the generation before reading it
	gen, genErr := c.generation(ctx, id)
	doc, err := c.inner.Get(ctx, id)
	if err != nil {
		return domain.Document{}, err
	}

	// 3) Best-effort cache fill
	if c.rdb != nil && genErr == nil {
		if b, jerr := json.Marshal(doc.Fields); jerr == nil {
			c.fill(ctx, id, gen, b)
		}
	}
	return doc, nil
}

func (c *CachedProfileStore) generation(ctx context.Context, id string) (int64, error) {
	if c.rdb == nil {
		return 0, nil
	}
	n, err := c.rdb.Get(ctx, c.genKey(id)).Int64()
	if errors.Is(err, goredis.Nil) {
		return 0, nil
	}
	return n, err
}

// fill stores the document only if no write bumped the generation since gen
// was read. A concurrent bump aborts the transaction, which is fine.
func (c *CachedProfileStore) fill(ctx context.Context, id string, gen int64, b []byte) {
	_ = c.rdb.Watch(ctx, func(tx *goredis.Tx) error {
		now, err := tx.Get(ctx, c.genKey(id)).Int64()
		if errors.Is(err, goredis.Nil) {
			now, err = 0, nil
		}
		if err != nil || now != gen {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.Set(ctx, c.key(id), b, c.ttl)
			return nil
		})
		return err
	}, c.genKey(id))
}

func (c *CachedProfileStore) Set(ctx context.Context, p domain.Profile) error {
	if err := c.inner.Set(ctx, p); err != nil {
		return err
	}
	c.evict(ctx, p.UID)
	return nil
}

func (c *CachedProfileStore) Delete(ctx context.Context, id string) error {
	if err := c.inner.Delete(ctx, id); err != nil {
		return err
	}
	c.evict(ctx, id)
	return nil
}

func (c *CachedProfileStore) Add(ctx context.Context, fields map[string]any) (string, error) {
	return c.inner.Add(ctx, fields)
}

func (c *CachedProfileStore) List(ctx context.Context) ([]domain.Document, error) {
	return c.inner.List(ctx)
}

// Watch passes through to the decorated store when it has a change feed.
func (c *CachedProfileStore) Watch(ctx context.Context) (<-chan []domain.Document, error) {
	w, ok := c.inner.(auth.ProfileWatcher)
	if !ok {
		return nil, domain.ErrNotSupported("watch")
	}
	return w.Watch(ctx)
}

func (c *CachedProfileStore) evict(ctx context.Context, id string) {
	if c.rdb == nil {
		return
	}
	// DEL rather than SET: merge writes mean we do not hold the full document.
	// The generation outlives any cached entry so an in-flight fill sees it.
	_, _ = c.rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Incr(ctx, c.genKey(id))
		pipe.Expire(ctx, c.genKey(id), 2*c.ttl)
		pipe.Del(ctx, c.key(id))
		return nil
	})
}
