package ownership

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
)

// DefaultCacheTTL is how long a refreshed owner set stays authoritative.
const DefaultCacheTTL = 5 * time.Minute

// Clock abstracts wall-clock time so tests can drive TTL expiry
// deterministically.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns a Clock backed by time.Now.
func SystemClock() Clock { return systemClock{} }

// FetchOwnersFunc retrieves the complete, current owner username set
// from the authoritative source.
type FetchOwnersFunc func(ctx context.Context) ([]string, error)

// ownerSet is an immutable snapshot of the owner usernames. Readers
// observe either the previous or the next complete set, never a partial
// one: refresh builds a new set and publishes it with a single pointer
// swap.
type ownerSet struct {
	usernames   map[string]struct{}
	refreshedAt time.Time
}

// OwnerCache caches the organization's owner set with a TTL. The cache
// is advisory: a miss never means "not owner", it means the caller must
// fall back to an authoritative lookup.
type OwnerCache struct {
	fetch FetchOwnersFunc
	ttl   time.Duration
	clock Clock

	current atomic.Pointer[ownerSet]
	group   singleflight.Group
}

// NewOwnerCache creates an empty cache. The first IsOwner call
// triggers a refresh. A zero ttl falls back to DefaultCacheTTL; a nil
// clock falls back to the system clock.
func NewOwnerCache(fetch FetchOwnersFunc, ttl time.Duration, clock Clock) *OwnerCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if clock == nil {
		clock = SystemClock()
	}
	c := &OwnerCache{fetch: fetch, ttl: ttl, clock: clock}
	c.current.Store(&ownerSet{usernames: map[string]struct{}{}})
	return c
}

// IsOwner reports whether the username is in the cached owner set,
// refreshing first if the set is stale. Usernames compare
// case-insensitively; the set is stored lower-cased.
func (c *OwnerCache) IsOwner(ctx context.Context, username string) (bool, error) {
	set := c.current.Load()
	if c.stale(set) {
		if err := c.Refresh(ctx); err != nil {
			return false, err
		}
		set = c.current.Load()
	}

	_, ok := set.usernames[strings.ToLower(username)]
	return ok, nil
}

// Refresh replaces the owner set wholesale from the authoritative
// source. Concurrent refreshes are coalesced: callers racing on a stale
// set share one upstream fetch.
func (c *OwnerCache) Refresh(ctx context.Context) error {
	_, err, _ := c.group.Do("refresh", func() (interface{}, error) {
		owners, err := c.fetch(ctx)
		if err != nil {
			return nil, err
		}

		usernames := make(map[string]struct{}, len(owners))
		for _, owner := range owners {
			usernames[strings.ToLower(owner)] = struct{}{}
		}

		c.current.Store(&ownerSet{usernames: usernames, refreshedAt: c.clock.Now()})
		return nil, nil
	})
	return err
}

// Invalidate marks the cached set stale so the next lookup refreshes.
// The set itself is kept; a concurrent reader between Invalidate and
// the next refresh still sees a complete (if outdated) set.
func (c *OwnerCache) Invalidate() {
	set := c.current.Load()
	c.current.Store(&ownerSet{usernames: set.usernames})
}

// Size returns the number of cached owner usernames.
func (c *OwnerCache) Size() int {
	return len(c.current.Load().usernames)
}

func (c *OwnerCache) stale(set *ownerSet) bool {
	if set.refreshedAt.IsZero() {
		return true
	}
	return c.clock.Now().Sub(set.refreshedAt) > c.ttl
}
