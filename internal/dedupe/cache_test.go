package dedupe_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hexfold/newsrag/internal/dedupe"
)

func TestCacheSeenDuplicate(t *testing.T) {
	cache := dedupe.NewCache(10, time.Minute)
	require.False(t, cache.IsSeen("a1"))
	cache.MarkSeen("a1")
	require.True(t, cache.IsSeen("a1"))
}

func TestCacheTTLExpiry(t *testing.T) {
	cache := dedupe.NewCache(10, 20*time.Millisecond)
	cache.MarkSeen("a2")
	time.Sleep(25 * time.Millisecond)
	require.False(t, cache.IsSeen("a2"))
}

func TestCacheCapacityEvictsOldest(t *testing.T) {
	cache := dedupe.NewCache(1, time.Minute)
	cache.MarkSeen("first")
	cache.MarkSeen("second")

	require.False(t, cache.IsSeen("first"))
	require.True(t, cache.IsSeen("second"))
}

func TestCacheRetainsRecentMarksAtCapacity(t *testing.T) {
	cache := dedupe.NewCache(2, time.Minute)
	cache.MarkSeen("a")
	cache.MarkSeen("b")

	// Filling the cache to capacity must not forget what was just marked.
	require.True(t, cache.IsSeen("a"))
	require.True(t, cache.IsSeen("b"))
}

func TestCacheReMarkKeepsNewest(t *testing.T) {
	cache := dedupe.NewCache(2, time.Minute)
	cache.MarkSeen("a")
	cache.MarkSeen("b")
	cache.MarkSeen("a")
	cache.MarkSeen("c")

	require.True(t, cache.IsSeen("a"))
	require.True(t, cache.IsSeen("c"))
}
