// Package modelcache provides an explicit TTL cache for backend model lists.
// The scope is the caller's choice: New gives an instance-scoped cache with
// no cross-talk, Shared returns a synchronized process-wide singleton. Either
// way the cache is passed by dependency injection; there is no implicit
// module-level mutable state beyond the deliberate Shared singleton.
package modelcache

import (
	"context"
	"sync"
	"time"

	"github.com/johnhenry/aimatey/backend"
)

// DefaultTTL is used when an option leaves the TTL unset.
const DefaultTTL = 5 * time.Minute

// Options configure a Cache.
type Options struct {
	TTL time.Duration

	// Now overrides the clock, for tests.
	Now func() time.Time
}

type entry struct {
	list      *backend.ModelList
	expiresAt time.Time
}

// Cache memoizes model lists per backend name with a TTL. Safe for
// concurrent use.
type Cache struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]entry
}

// New creates an instance-scoped cache.
func New(optFns ...func(o *Options)) *Cache {
	opts := Options{TTL: DefaultTTL, Now: time.Now}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	return &Cache{ttl: opts.TTL, now: opts.Now, entries: map[string]entry{}}
}

var (
	sharedOnce sync.Once
	shared     *Cache
)

// Shared returns the process-wide cache, created on first use with defaults.
func Shared() *Cache {
	sharedOnce.Do(func() { shared = New() })
	return shared
}

// Get returns the cached list for a backend, or nil when absent or expired.
func (c *Cache) Get(name string) *backend.ModelList {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[name]
	if !ok || c.now().After(e.expiresAt) {
		delete(c.entries, name)
		return nil
	}
	return e.list
}

// Put stores a list under the backend's name.
func (c *Cache) Put(name string, list *backend.ModelList) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[name] = entry{list: list, expiresAt: c.now().Add(c.ttl)}
}

// Invalidate drops one backend's entry.
func (c *Cache) Invalidate(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, name)
}

// ListModels returns the cached list for the backend or fetches and caches a
// fresh one via its ModelLister implementation.
func (c *Cache) ListModels(ctx context.Context, be backend.ModelLister, name string, opts backend.ModelListOptions) (*backend.ModelList, error) {
	if cached := c.Get(name); cached != nil {
		return cached, nil
	}
	list, err := be.ListModels(ctx, opts)
	if err != nil {
		return nil, err
	}
	if list.FetchedAt.IsZero() {
		list.FetchedAt = c.now().UTC()
	}
	c.Put(name, list)
	return list, nil
}
