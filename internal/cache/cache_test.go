package cache

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testManager(t *testing.T, cfg Config) *Manager {
	t.Helper()
	m := NewManager(cfg, zerolog.Nop())
	t.Cleanup(func() { m.Close() })
	return m
}

func TestManagerRoundTrip(t *testing.T) {
	ctx := context.Background()
	m := testManager(t, DefaultConfig())

	m.Set(ctx, "k", 0.42)

	var got float64
	require.True(t, m.Get(ctx, "k", &got))
	assert.Equal(t, 0.42, got)

	stats := m.Stats(ctx)
	assert.Equal(t, int64(1), stats.L1Hits)
	assert.Equal(t, int64(1), stats.Sets)
}

func TestManagerMiss(t *testing.T) {
	ctx := context.Background()
	m := testManager(t, DefaultConfig())

	var got float64
	assert.False(t, m.Get(ctx, "absent", &got))
	assert.Equal(t, int64(1), m.Stats(ctx).Misses)
}

func TestManagerTTLExpiry(t *testing.T) {
	ctx := context.Background()
	m := testManager(t, DefaultConfig())

	m.Set(ctx, "k", 0.42, 10*time.Millisecond)

	var got float64
	require.True(t, m.Get(ctx, "k", &got))

	time.Sleep(25 * time.Millisecond)
	assert.False(t, m.Get(ctx, "k", &got), "entry should expire after its TTL")
}

func TestManagerDisabled(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig()
	cfg.Enabled = false
	m := testManager(t, cfg)

	m.Set(ctx, "k", 1.0)

	var got float64
	assert.False(t, m.Get(ctx, "k", &got))
}

func TestManagerDelete(t *testing.T) {
	ctx := context.Background()
	m := testManager(t, DefaultConfig())

	m.Set(ctx, "k", 1.0)
	m.Delete(ctx, "k")

	var got float64
	assert.False(t, m.Get(ctx, "k", &got))
}

func TestManagerWarmIdempotent(t *testing.T) {
	ctx := context.Background()
	m := testManager(t, DefaultConfig())

	entries := map[string]any{"a": 0.1, "b": 0.2}
	assert.Equal(t, 2, m.Warm(ctx, entries))
	assert.Equal(t, 0, m.Warm(ctx, entries), "second warm should write nothing")

	var got float64
	require.True(t, m.Get(ctx, "b", &got))
	assert.Equal(t, 0.2, got)
}

func TestManagerPromotesFromSQLite(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig()
	cfg.L2Path = filepath.Join(t.TempDir(), "cache.db")
	m := testManager(t, cfg)

	m.Set(ctx, "k", 0.7)

	// Drop the tier-1 copy so the next read must come from sqlite.
	require.NoError(t, m.l1.Delete(ctx, "k"))

	var got float64
	require.True(t, m.Get(ctx, "k", &got))
	assert.Equal(t, 0.7, got)
	assert.Equal(t, int64(1), m.Stats(ctx).L2Hits)

	// The hit should have repopulated tier 1.
	_, _, ok, err := m.l1.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryStoreLRUEviction(t *testing.T) {
	ctx := context.Background()
	s := newMemoryStore(3)
	expiresAt := time.Now().Add(time.Hour)

	for i := 0; i < 3; i++ {
		require.NoError(t, s.Set(ctx, fmt.Sprintf("k%d", i), []byte{byte(i)}, expiresAt))
	}

	// Touch k0 so k1 becomes the least recently used entry.
	_, _, ok, _ := s.Get(ctx, "k0")
	require.True(t, ok)

	require.NoError(t, s.Set(ctx, "k3", []byte{3}, expiresAt))

	_, _, ok, _ = s.Get(ctx, "k1")
	assert.False(t, ok, "least recently used entry should be evicted")
	_, _, ok, _ = s.Get(ctx, "k0")
	assert.True(t, ok)
	assert.Equal(t, int64(1), s.evictions())

	size, err := s.Size(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, size)
}

func TestSQLiteStoreEviction(t *testing.T) {
	ctx := context.Background()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "cache.db"), 2)
	require.NoError(t, err)
	defer store.Close()

	expiresAt := time.Now().Add(time.Hour)
	require.NoError(t, store.Set(ctx, "a", []byte("1"), expiresAt))
	time.Sleep(5 * time.Millisecond)
	require.NoError(t, store.Set(ctx, "b", []byte("2"), expiresAt))
	time.Sleep(5 * time.Millisecond)
	require.NoError(t, store.Set(ctx, "c", []byte("3"), expiresAt))

	size, err := store.Size(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, size)

	_, _, ok, err := store.Get(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok, "oldest entry should be evicted first")
}

func TestSQLiteStoreExpiry(t *testing.T) {
	ctx := context.Background()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "cache.db"), 10)
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Set(ctx, "k", []byte("v"), time.Now().Add(-time.Minute)))

	_, _, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	// Expired rows are purged on read.
	size, err := store.Size(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, size)
}

func TestGenerateKeyCanonical(t *testing.T) {
	a := GenerateKey("intensity", map[string]any{
		"phoneme":         "aa",
		"previousPhoneme": "b",
		"position":        0.5,
	})
	b := GenerateKey("intensity", map[string]any{
		"position":        0.5,
		"previousPhoneme": "b",
		"phoneme":         "aa",
	})
	assert.Equal(t, a, b, "field order must not affect the key")
	assert.Equal(t, "intensity|phoneme=aa|position=0.50|previousPhoneme=b", a)
}

func TestGenerateKeyIgnoresUnlistedFields(t *testing.T) {
	a := GenerateKey("coart", map[string]any{"phoneme": "aa", "nextPhoneme": "b"})
	b := GenerateKey("coart", map[string]any{"phoneme": "aa", "nextPhoneme": "b", "frameID": 17})
	assert.Equal(t, a, b)
}

func TestGenerateKeyQuantizesPosition(t *testing.T) {
	a := GenerateKey("coart", map[string]any{"phoneme": "aa", "position": 0.501})
	b := GenerateKey("coart", map[string]any{"phoneme": "aa", "position": 0.499})
	assert.Equal(t, a, b, "sub-centisecond position jitter must not fragment the cache")
}

func TestGenerateKeyDuration(t *testing.T) {
	key := GenerateKey("blend", map[string]any{"phoneme": "aa", "duration": 150 * time.Millisecond})
	assert.Equal(t, "blend|duration=150ms|phoneme=aa", key)
}
