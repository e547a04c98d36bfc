package cache

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/bytedance/sonic"
	"github.com/rs/zerolog"

	"github.com/normanking/cortexlipsync/internal/metrics"
)

// Config tunes the cache manager.
type Config struct {
	Enabled    bool          `mapstructure:"enabled"`
	L1MaxSize  int           `mapstructure:"l1_max_size"`
	L2MaxSize  int           `mapstructure:"l2_max_size"`
	L2Path     string        `mapstructure:"l2_path"` // empty disables tier 2
	L3Enabled  bool          `mapstructure:"l3_enabled"`
	Redis      RedisConfig   `mapstructure:"redis"`
	DefaultTTL time.Duration `mapstructure:"default_ttl"`
}

// DefaultConfig returns the standard tuning. Tier 2 stays off until a path
// is configured; tier 3 until redis is reachable.
func DefaultConfig() Config {
	return Config{
		Enabled:    true,
		L1MaxSize:  100,
		L2MaxSize:  500,
		L3Enabled:  true,
		DefaultTTL: 24 * time.Hour,
	}
}

// Stats is a point-in-time view of cache effectiveness.
type Stats struct {
	L1Hits      int64 `json:"l1Hits"`
	L2Hits      int64 `json:"l2Hits"`
	L3Hits      int64 `json:"l3Hits"`
	Misses      int64 `json:"misses"`
	Sets        int64 `json:"sets"`
	L1Evictions int64 `json:"l1Evictions"`
	L1Size      int   `json:"l1Size"`
}

// Manager chains the tiers: reads walk L1→L2→L3 and promote hits into the
// faster tiers; writes go through to every enabled tier. L3 failures are
// logged and swallowed.
type Manager struct {
	cfg    Config
	logger zerolog.Logger

	l1 *memoryStore
	l2 Store
	l3 Store

	l1Hits, l2Hits, l3Hits, misses, sets atomic.Int64
	l3Warned                             atomic.Bool
}

// NewManager wires the enabled tiers. A missing L2 path or unreachable
// redis downgrades the respective tier rather than failing construction.
func NewManager(cfg Config, logger zerolog.Logger) *Manager {
	m := &Manager{
		cfg:    cfg,
		logger: logger.With().Str("component", "cache").Logger(),
		l1:     newMemoryStore(cfg.L1MaxSize),
	}
	if cfg.DefaultTTL <= 0 {
		m.cfg.DefaultTTL = DefaultConfig().DefaultTTL
	}

	if cfg.L2Path != "" {
		l2, err := NewSQLiteStore(cfg.L2Path, cfg.L2MaxSize)
		if err != nil {
			m.logger.Warn().Err(err).Str("path", cfg.L2Path).
				Msg("Tier-2 cache unavailable, continuing without it")
		} else {
			m.l2 = l2
		}
	}

	if cfg.L3Enabled && cfg.Redis.Addr != "" {
		l3, err := NewRedisStore(cfg.Redis)
		if err != nil {
			m.logger.Warn().Err(err).Str("addr", cfg.Redis.Addr).
				Msg("Tier-3 cache unavailable, continuing without it")
		} else {
			m.l3 = l3
		}
	}
	return m
}

// Enabled reports whether callers should consult the cache at all.
func (m *Manager) Enabled() bool { return m.cfg.Enabled }

// Get looks key up tier by tier, decoding the stored value into out on a
// hit. Hits below tier 1 are promoted into all faster tiers.
func (m *Manager) Get(ctx context.Context, key string, out any) bool {
	if !m.cfg.Enabled {
		return false
	}

	if data, _, ok, _ := m.l1.Get(ctx, key); ok {
		if sonic.Unmarshal(data, out) == nil {
			m.l1Hits.Add(1)
			metrics.CacheHits.WithLabelValues("l1").Inc()
			return true
		}
	}

	if m.l2 != nil {
		if data, expiresAt, ok, err := m.l2.Get(ctx, key); err != nil {
			m.logger.Warn().Err(err).Msg("Tier-2 read failed")
		} else if ok && sonic.Unmarshal(data, out) == nil {
			m.l2Hits.Add(1)
			metrics.CacheHits.WithLabelValues("l2").Inc()
			_ = m.l1.Set(ctx, key, data, expiresAt)
			return true
		}
	}

	if m.l3 != nil {
		if data, _, ok, err := m.l3.Get(ctx, key); err != nil {
			m.warnL3(err, "Tier-3 read failed")
		} else if ok && sonic.Unmarshal(data, out) == nil {
			m.l3Hits.Add(1)
			metrics.CacheHits.WithLabelValues("l3").Inc()
			expiresAt := time.Now().Add(m.cfg.DefaultTTL)
			_ = m.l1.Set(ctx, key, data, expiresAt)
			if m.l2 != nil {
				if err := m.l2.Set(ctx, key, data, expiresAt); err != nil {
					m.logger.Warn().Err(err).Msg("Tier-2 promote failed")
				}
			}
			return true
		}
	}

	m.misses.Add(1)
	metrics.CacheMisses.Inc()
	return false
}

// Set writes through to every enabled tier. ttl defaults to the configured
// expiry; tier-3 writes are fire-and-forget.
func (m *Manager) Set(ctx context.Context, key string, value any, ttl ...time.Duration) {
	if !m.cfg.Enabled {
		return
	}

	data, err := sonic.Marshal(value)
	if err != nil {
		m.logger.Warn().Err(err).Str("key", key).Msg("Cache value not serializable")
		return
	}

	expiry := m.cfg.DefaultTTL
	if len(ttl) > 0 && ttl[0] > 0 {
		expiry = ttl[0]
	}
	expiresAt := time.Now().Add(expiry)

	m.sets.Add(1)
	_ = m.l1.Set(ctx, key, data, expiresAt)
	if m.l2 != nil {
		if err := m.l2.Set(ctx, key, data, expiresAt); err != nil {
			m.logger.Warn().Err(err).Msg("Tier-2 write failed")
		}
	}
	if m.l3 != nil {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := m.l3.Set(ctx, key, data, expiresAt); err != nil {
				m.warnL3(err, "Tier-3 write failed")
			}
		}()
	}
}

// Delete removes key from every tier.
func (m *Manager) Delete(ctx context.Context, key string) {
	_ = m.l1.Delete(ctx, key)
	if m.l2 != nil {
		if err := m.l2.Delete(ctx, key); err != nil {
			m.logger.Warn().Err(err).Msg("Tier-2 delete failed")
		}
	}
	if m.l3 != nil {
		if err := m.l3.Delete(ctx, key); err != nil {
			m.warnL3(err, "Tier-3 delete failed")
		}
	}
}

// Clear empties every tier.
func (m *Manager) Clear(ctx context.Context) {
	_ = m.l1.Clear(ctx)
	if m.l2 != nil {
		if err := m.l2.Clear(ctx); err != nil {
			m.logger.Warn().Err(err).Msg("Tier-2 clear failed")
		}
	}
	if m.l3 != nil {
		if err := m.l3.Clear(ctx); err != nil {
			m.warnL3(err, "Tier-3 clear failed")
		}
	}
}

// Stats returns hit/miss counters and the tier-1 footprint.
func (m *Manager) Stats(ctx context.Context) Stats {
	size, _ := m.l1.Size(ctx)
	return Stats{
		L1Hits:      m.l1Hits.Load(),
		L2Hits:      m.l2Hits.Load(),
		L3Hits:      m.l3Hits.Load(),
		Misses:      m.misses.Load(),
		Sets:        m.sets.Load(),
		L1Evictions: m.l1.evictions(),
		L1Size:      size,
	}
}

// Warm writes the given entries, skipping keys that already resolve.
// Idempotent: repeated calls with the same entries write nothing new.
func (m *Manager) Warm(ctx context.Context, entries map[string]any) int {
	if !m.cfg.Enabled {
		return 0
	}
	written := 0
	for key, value := range entries {
		var sink any
		if m.Get(ctx, key, &sink) {
			continue
		}
		m.Set(ctx, key, value)
		written++
	}
	m.logger.Debug().Int("written", written).Int("offered", len(entries)).Msg("Cache warmed")
	return written
}

// Close releases resources held by the persistent tiers.
func (m *Manager) Close() error {
	var first error
	for _, tier := range []Store{m.l2, m.l3} {
		if closer, ok := tier.(interface{ Close() error }); ok {
			if err := closer.Close(); err != nil && first == nil {
				first = err
			}
		}
	}
	return first
}

// warnL3 logs the first tier-3 failure at warn and the rest at debug; a
// missing remote tier is an expected running mode, not an error state.
func (m *Manager) warnL3(err error, msg string) {
	if m.l3Warned.CompareAndSwap(false, true) {
		m.logger.Warn().Err(err).Msg(msg)
		return
	}
	m.logger.Debug().Err(err).Msg(msg)
}

// keyWhitelist is the fixed set of context fields that participate in key
// generation, so semantically equivalent contexts collide.
var keyWhitelist = map[string]bool{
	"phoneme":         true,
	"target":          true,
	"previousPhoneme": true,
	"nextPhoneme":     true,
	"position":        true,
	"duration":        true,
	"sequenceLength":  true,
}

// GenerateKey builds a canonical cache key from a computation kind and its
// parameters: whitelisted fields only, sorted by name, deterministically
// serialized.
func GenerateKey(kind string, params map[string]any) string {
	fields := make([]string, 0, len(params))
	for name := range params {
		if keyWhitelist[name] {
			fields = append(fields, name)
		}
	}
	sort.Strings(fields)

	var b strings.Builder
	b.WriteString(kind)
	for _, name := range fields {
		b.WriteByte('|')
		b.WriteString(name)
		b.WriteByte('=')
		b.WriteString(canonicalValue(params[name]))
	}
	return b.String()
}

// canonicalValue renders a parameter deterministically; floats are
// quantized to two decimals so frame jitter does not defeat caching.
func canonicalValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	case float64:
		return fmt.Sprintf("%.2f", t)
	case float32:
		return fmt.Sprintf("%.2f", t)
	case time.Duration:
		return fmt.Sprintf("%dms", t.Milliseconds())
	default:
		return fmt.Sprintf("%v", t)
	}
}
