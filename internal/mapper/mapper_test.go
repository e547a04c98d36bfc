package mapper

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/normanking/cortexlipsync/internal/blend"
	"github.com/normanking/cortexlipsync/internal/blendshape"
	"github.com/normanking/cortexlipsync/internal/cache"
	"github.com/normanking/cortexlipsync/internal/coart"
	"github.com/normanking/cortexlipsync/internal/intensity"
	"github.com/normanking/cortexlipsync/internal/phoneme"
	"github.com/normanking/cortexlipsync/internal/sink"
)

func newTestMapper(t *testing.T, cacheMgr *cache.Manager) (*Mapper, *sink.Capture, *intensity.Matrix) {
	t.Helper()
	logger := zerolog.Nop()
	matrix := intensity.NewMatrix(intensity.DefaultConfig(), logger)
	engine := coart.NewEngine(coart.DefaultConfig(), logger)
	blender := blend.New(blend.DefaultConfig(), logger)
	capture := &sink.Capture{}
	m := New(DefaultConfig(), matrix, engine, blender, cacheMgr, capture, logger)
	return m, capture, matrix
}

// settle drives the frame loop until all transitions finish.
func settle(m *Mapper) {
	ctx := context.Background()
	for i := 0; i < 200; i++ {
		m.Update(ctx, 10*time.Millisecond)
	}
}

func TestMappingCoverage(t *testing.T) {
	for _, p := range phoneme.All {
		mapping, ok := MappingFor(p)
		require.True(t, ok, "phoneme %q has no mapping", p)
		if p.IsSilence() {
			assert.Empty(t, mapping.Targets(), "silence should map to nothing")
		} else {
			require.NotEmpty(t, mapping.Targets(), "phoneme %q has no primary target", p)
			assert.True(t, mapping.Primary.Valid())
		}
	}
}

func TestNormalizePhonemeName(t *testing.T) {
	m, _, _ := newTestMapper(t, nil)

	assert.Equal(t, "ee", m.NormalizePhonemeName("  EE  "))
	assert.Equal(t, "sil", m.NormalizePhonemeName("silence"))
	assert.Equal(t, "pau", m.NormalizePhonemeName("pause"))

	for _, raw := range []string{"  EE  ", "silence", "AA", "b"} {
		once := m.NormalizePhonemeName(raw)
		assert.Equal(t, once, m.NormalizePhonemeName(once))
	}
}

func TestAnimateUnknownPhonemeIsNoop(t *testing.T) {
	m, capture, _ := newTestMapper(t, nil)

	m.AnimatePhoneme(context.Background(), Event{Phoneme: "xyz123"})

	assert.Empty(t, capture.Updates)
	assert.Equal(t, Resting, m.State())
}

func TestAnimatePhonemeNoContextMatchesBase(t *testing.T) {
	m, capture, matrix := newTestMapper(t, nil)

	m.AnimatePhoneme(context.Background(), Event{Phoneme: "aa", Duration: 100 * time.Millisecond})
	settle(m)

	last, ok := capture.Last(blendshape.JawOpen)
	require.True(t, ok)
	assert.InDelta(t, matrix.Base("aa", blendshape.JawOpen), last.Intensity, 1e-3,
		"with no context the animated value should converge on the base intensity")
}

func TestVowelToConsonantReducesIntensity(t *testing.T) {
	m, capture, matrix := newTestMapper(t, nil)

	m.AnimatePhoneme(context.Background(), Event{
		Phoneme:  "b",
		Duration: 100 * time.Millisecond,
		Sequence: &phoneme.Context{Previous: "aa", Position: 1, Index: 1, SequenceLength: 2},
	})
	settle(m)

	last, ok := capture.Last(blendshape.MouthClose)
	require.True(t, ok)
	assert.Less(t, last.Intensity, matrix.Base("b", blendshape.MouthClose),
		"a vowel-to-consonant transition should damp the consonant")
}

func TestSilenceRelaxesChannels(t *testing.T) {
	m, capture, _ := newTestMapper(t, nil)
	ctx := context.Background()

	m.AnimatePhoneme(ctx, Event{Phoneme: "aa", Duration: 100 * time.Millisecond})
	settle(m)
	last, ok := capture.Last(blendshape.JawOpen)
	require.True(t, ok)
	require.Greater(t, last.Intensity, 0.05)

	m.AnimatePhoneme(ctx, Event{Phoneme: "sil", Duration: 100 * time.Millisecond})
	settle(m)

	last, ok = capture.Last(blendshape.JawOpen)
	require.True(t, ok)
	assert.InDelta(t, 0, last.Intensity, 1e-3)
	assert.Equal(t, Resting, m.State())
	assert.Equal(t, phoneme.Sil, m.CurrentPhoneme())
}

func TestStateMachineMorphing(t *testing.T) {
	m, _, _ := newTestMapper(t, nil)
	ctx := context.Background()

	require.Equal(t, Resting, m.State())

	m.AnimatePhoneme(ctx, Event{Phoneme: "aa"})
	assert.Equal(t, Morphing, m.State())

	// Default morph duration is 75ms: still morphing at 40ms.
	m.Update(ctx, 40*time.Millisecond)
	assert.Equal(t, Morphing, m.State())

	m.Update(ctx, 40*time.Millisecond)
	assert.Equal(t, Resting, m.State())
	assert.Equal(t, phoneme.Phoneme("aa"), m.CurrentPhoneme())
}

func TestAnimateSequenceTiming(t *testing.T) {
	m, _, _ := newTestMapper(t, nil)
	ctx := context.Background()

	seq := []phoneme.TimedPhoneme{
		{Phoneme: "aa", Duration: 100 * time.Millisecond},
		{Phoneme: "b", Duration: 100 * time.Millisecond},
		{Phoneme: "iy", Duration: 100 * time.Millisecond},
	}
	m.AnimateSequence(ctx, seq, nil)

	assert.Equal(t, 300*time.Millisecond, m.SequenceRemaining())

	elapsed := time.Duration(0)
	for m.SequenceRemaining() > 0 {
		m.Update(ctx, 10*time.Millisecond)
		elapsed += 10 * time.Millisecond
		require.LessOrEqual(t, elapsed, 400*time.Millisecond, "sequence never completed")
	}

	assert.Equal(t, 300*time.Millisecond, elapsed,
		"playback should take exactly the sum of declared durations")
	assert.Equal(t, phoneme.Phoneme("iy"), m.target)
}

func TestCancelSequence(t *testing.T) {
	m, _, _ := newTestMapper(t, nil)
	ctx := context.Background()

	m.AnimateSequence(ctx, []phoneme.TimedPhoneme{
		{Phoneme: "aa", Duration: 100 * time.Millisecond},
		{Phoneme: "uw", Duration: 100 * time.Millisecond},
	}, nil)
	m.Update(ctx, 10*time.Millisecond)

	m.CancelSequence()
	assert.Equal(t, time.Duration(0), m.SequenceRemaining())

	// The cancelled item must not fire later.
	m.Update(ctx, 200*time.Millisecond)
	assert.NotEqual(t, phoneme.Phoneme("uw"), m.target)
}

func TestAnimatePhonemeUsesCache(t *testing.T) {
	ctx := context.Background()
	mgr := cache.NewManager(cache.DefaultConfig(), zerolog.Nop())
	defer mgr.Close()
	m, _, _ := newTestMapper(t, mgr)

	ev := Event{Phoneme: "aa", Duration: 100 * time.Millisecond}
	m.AnimatePhoneme(ctx, ev)
	first := mgr.Stats(ctx)
	require.Greater(t, first.Sets, int64(0))

	m.AnimatePhoneme(ctx, ev)
	second := mgr.Stats(ctx)
	assert.Greater(t, second.L1Hits, first.L1Hits, "repeat event should hit the cache")
	assert.Equal(t, first.Sets, second.Sets, "repeat event should not recompute")
}

func TestWarmCacheIdempotent(t *testing.T) {
	ctx := context.Background()
	cfg := cache.DefaultConfig()
	cfg.L1MaxSize = 5000
	mgr := cache.NewManager(cfg, zerolog.Nop())
	defer mgr.Close()
	m, _, _ := newTestMapper(t, mgr)

	written := m.WarmCache(ctx)
	assert.Greater(t, written, 0)
	assert.Equal(t, 0, m.WarmCache(ctx), "second warm should write nothing")
}

func TestNilSinkIsSafe(t *testing.T) {
	logger := zerolog.Nop()
	matrix := intensity.NewMatrix(intensity.DefaultConfig(), logger)
	engine := coart.NewEngine(coart.DefaultConfig(), logger)
	blender := blend.New(blend.DefaultConfig(), logger)
	m := New(DefaultConfig(), matrix, engine, blender, nil, nil, logger)

	ctx := context.Background()
	m.AnimatePhoneme(ctx, Event{Phoneme: "aa"})
	m.Update(ctx, 16*time.Millisecond)
	m.Reset()
}
