package source

import (
	"context"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Key identifies a cache entry.
type Key struct {
	Mode       Mode
	Identifier string
	TTL        time.Duration
}

func (k Key) String() string {
	return string(k.Mode) + "|" + k.Identifier + "|" + strconv.FormatInt(int64(k.TTL), 10)
}

// Entry is a cached acquisition result.
type Entry struct {
	Data      []byte
	FetchedAt time.Time
}

// Observer receives cache and fetch events, typically for metrics.
type Observer interface {
	CacheHit(key Key)
	CacheMiss(key Key)
	Fetched(key Key, elapsed time.Duration, err error)
}

// Cache memoizes source bytes per Key. An entry is fresh while
// now - FetchedAt < TTL; a zero TTL never expires. Failures are not
// stored, so the next call tries again. Concurrent misses for one key
// share a single acquisition. A caller whose context ends stops waiting
// with ctx.Err(); the acquisition keeps running for the others and its
// result is still stored.
type Cache struct {
	ttl      time.Duration
	now      func() time.Time
	observer Observer

	mu      sync.Mutex
	entries map[Key]Entry
	group   singleflight.Group
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// WithObserver reports hits, misses and fetches to o.
func WithObserver(o Observer) Option {
	return func(c *Cache) { c.observer = o }
}

// NewCache returns a cache whose entries live for ttl.
func NewCache(ttl time.Duration, opts ...Option) *Cache {
	c := &Cache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[Key]Entry),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TTL returns the configured time-to-live.
func (c *Cache) TTL() time.Duration { return c.ttl }

// Acquire returns the bytes of src, fetching only when no fresh entry exists.
func (c *Cache) Acquire(ctx context.Context, src Source) ([]byte, error) {
	e, err := c.Fetch(ctx, src)
	if err != nil {
		return nil, err
	}
	return e.Data, nil
}

// Fetch is Acquire returning the whole entry. Callers can compare
// FetchedAt to detect a refetch.
func (c *Cache) Fetch(ctx context.Context, src Source) (Entry, error) {
	key := c.key(src)

	if e, ok := c.fresh(key); ok {
		c.hit(key)
		return e, nil
	}
	c.miss(key)

	// The shared acquisition outlives any single caller; source timeouts bound it.
	fetchCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key.String(), func() (interface{}, error) {
		if e, ok := c.fresh(key); ok {
			return e, nil
		}

		start := c.now()
		data, err := src.Acquire(fetchCtx)
		if c.observer != nil {
			c.observer.Fetched(key, c.now().Sub(start), err)
		}
		if err != nil {
			return Entry{}, err
		}

		e := Entry{Data: data, FetchedAt: c.now()}
		c.mu.Lock()
		c.entries[key] = e
		c.mu.Unlock()
		return e, nil
	})

	select {
	case <-ctx.Done():
		return Entry{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return Entry{}, res.Err
		}
		return res.Val.(Entry), nil
	}
}

// Peek returns the cached entry for src without fetching, fresh or not.
func (c *Cache) Peek(src Source) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[c.key(src)]
	return e, ok
}

func (c *Cache) key(src Source) Key {
	d := src.Describe()
	return Key{Mode: d.Mode, Identifier: d.Identifier, TTL: c.ttl}
}

func (c *Cache) fresh(key Key) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return Entry{}, false
	}
	if c.ttl > 0 && c.now().Sub(e.FetchedAt) >= c.ttl {
		return Entry{}, false
	}
	return e, true
}

func (c *Cache) hit(key Key) {
	if c.observer != nil {
		c.observer.CacheHit(key)
	}
}

func (c *Cache) miss(key Key) {
	if c.observer != nil {
		c.observer.CacheMiss(key)
	}
}
