package ownership

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a manually advanced Clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestOwnerCache_RefreshAndLookup(t *testing.T) {
	clock := newFakeClock()
	var fetches atomic.Int32
	cache := NewOwnerCache(func(ctx context.Context) ([]string, error) {
		fetches.Add(1)
		return []string{"JonPhipps", "maria"}, nil
	}, 5*time.Minute, clock)

	// First lookup refreshes.
	owner, err := cache.IsOwner(context.Background(), "jonphipps")
	require.NoError(t, err)
	assert.True(t, owner)
	assert.Equal(t, int32(1), fetches.Load())

	// Comparison is case-insensitive.
	owner, err = cache.IsOwner(context.Background(), "MARIA")
	require.NoError(t, err)
	assert.True(t, owner)

	owner, err = cache.IsOwner(context.Background(), "stranger")
	require.NoError(t, err)
	assert.False(t, owner)

	// Within the TTL no further fetches happen.
	assert.Equal(t, int32(1), fetches.Load())

	// Past the TTL the next lookup refreshes again.
	clock.Advance(6 * time.Minute)
	_, err = cache.IsOwner(context.Background(), "maria")
	require.NoError(t, err)
	assert.Equal(t, int32(2), fetches.Load())
}

func TestOwnerCache_Invalidate(t *testing.T) {
	clock := newFakeClock()
	var fetches atomic.Int32
	cache := NewOwnerCache(func(ctx context.Context) ([]string, error) {
		fetches.Add(1)
		return []string{"alpha"}, nil
	}, 5*time.Minute, clock)

	_, err := cache.IsOwner(context.Background(), "alpha")
	require.NoError(t, err)
	require.Equal(t, int32(1), fetches.Load())

	cache.Invalidate()

	// Invalidation forces the next lookup to refresh, TTL or not.
	_, err = cache.IsOwner(context.Background(), "alpha")
	require.NoError(t, err)
	assert.Equal(t, int32(2), fetches.Load())
}

func TestOwnerCache_RefreshError(t *testing.T) {
	cache := NewOwnerCache(func(ctx context.Context) ([]string, error) {
		return nil, fmt.Errorf("provider unavailable")
	}, time.Minute, newFakeClock())

	owner, err := cache.IsOwner(context.Background(), "anyone")
	assert.Error(t, err)
	assert.False(t, owner)
	assert.Equal(t, 0, cache.Size())
}

func TestOwnerCache_WholeSetReplacement(t *testing.T) {
	clock := newFakeClock()
	first := true
	cache := NewOwnerCache(func(ctx context.Context) ([]string, error) {
		if first {
			first = false
			return []string{"old-owner"}, nil
		}
		return []string{"new-owner"}, nil
	}, time.Minute, clock)

	require.NoError(t, cache.Refresh(context.Background()))
	owner, _ := cache.IsOwner(context.Background(), "old-owner")
	assert.True(t, owner)

	require.NoError(t, cache.Refresh(context.Background()))
	owner, _ = cache.IsOwner(context.Background(), "old-owner")
	assert.False(t, owner, "refresh replaces the set wholesale")
	owner, _ = cache.IsOwner(context.Background(), "new-owner")
	assert.True(t, owner)
}

// Concurrent readers during a refresh must observe either the old or
// the new complete set, never a partial one.
func TestOwnerCache_ConcurrentReadersSeeCompleteSets(t *testing.T) {
	clock := newFakeClock()

	// Both generations contain pairs that only ever appear together.
	generations := [][]string{
		{"a1", "a2"},
		{"b1", "b2"},
	}
	var gen atomic.Int32
	cache := NewOwnerCache(func(ctx context.Context) ([]string, error) {
		g := generations[gen.Load()%2]
		return g, nil
	}, time.Minute, clock)
	require.NoError(t, cache.Refresh(context.Background()))

	ctx := context.Background()
	var wg sync.WaitGroup
	stop := make(chan struct{})

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				// Within one snapshot the pair must agree.
				set := cache.current.Load()
				_, first := set.usernames["a1"]
				_, second := set.usernames["a2"]
				if first != second {
					t.Error("observed a partially populated owner set")
					return
				}
			}
		}()
	}

	for i := 0; i < 200; i++ {
		gen.Add(1)
		require.NoError(t, cache.Refresh(ctx))
	}
	close(stop)
	wg.Wait()
}
