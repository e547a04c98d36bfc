// Package mapper is the orchestrator: it owns the phoneme→channel mapping
// table and drives the intensity matrix, coarticulation engine, blender and
// cache for each phoneme event.
package mapper

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/normanking/cortexlipsync/internal/blend"
	"github.com/normanking/cortexlipsync/internal/blendshape"
	"github.com/normanking/cortexlipsync/internal/cache"
	"github.com/normanking/cortexlipsync/internal/coart"
	"github.com/normanking/cortexlipsync/internal/intensity"
	"github.com/normanking/cortexlipsync/internal/metrics"
	"github.com/normanking/cortexlipsync/internal/phoneme"
)

// State is the mapper's animation state.
type State int

const (
	Resting State = iota
	Morphing
)

func (s State) String() string {
	if s == Morphing {
		return "morphing"
	}
	return "resting"
}

// Config tunes the orchestration layer.
type Config struct {
	TransitionDuration time.Duration `mapstructure:"transition_duration"`
}

// DefaultConfig returns the standard mapper tuning.
func DefaultConfig() Config {
	return Config{TransitionDuration: 75 * time.Millisecond}
}

// Event is one phoneme to animate, with optional per-event context.
// Intensities and Transition are filled in by AnimateSequence from the
// coarticulation pass; single events leave them empty.
type Event struct {
	Phoneme     phoneme.Phoneme
	Duration    time.Duration
	Audio       *intensity.Audio
	Sequence    *phoneme.Context
	Intensities map[blendshape.Index]float64
	Transition  time.Duration
}

// Mapper composes the animation pipeline behind a single public API.
type Mapper struct {
	cfg    Config
	logger zerolog.Logger

	matrix  *intensity.Matrix
	engine  *coart.Engine
	blender *blend.Blender
	cache   *cache.Manager
	sink    blendshape.Sink

	state         State
	current       phoneme.Phoneme
	target        phoneme.Phoneme
	morphProgress float64

	weights  blendshape.Weights
	timeline []scheduledEvent
	clock    time.Duration
	seqDone  time.Duration // wall-clock end of the running sequence, 0 if none
}

// scheduledEvent is a timeline entry fired by Update once the mapper clock
// passes its offset.
type scheduledEvent struct {
	at    time.Duration
	event Event
}

// New builds a mapper over its collaborators. The sink may be nil, in
// which case animation calls compute but deliver nothing.
func New(cfg Config, matrix *intensity.Matrix, engine *coart.Engine, blender *blend.Blender, cacheMgr *cache.Manager, sink blendshape.Sink, logger zerolog.Logger) *Mapper {
	if cfg.TransitionDuration <= 0 {
		cfg.TransitionDuration = DefaultConfig().TransitionDuration
	}
	return &Mapper{
		cfg:     cfg,
		logger:  logger.With().Str("component", "mapper").Logger(),
		matrix:  matrix,
		engine:  engine,
		blender: blender,
		cache:   cacheMgr,
		sink:    sink,
		state:   Resting,
		current: phoneme.Sil,
		target:  phoneme.Sil,
	}
}

// State returns the current animation state.
func (m *Mapper) State() State { return m.state }

// CurrentPhoneme returns the phoneme the face currently rests on.
func (m *Mapper) CurrentPhoneme() phoneme.Phoneme { return m.current }

// NormalizePhonemeName maps a raw label onto the vocabulary spelling.
func (m *Mapper) NormalizePhonemeName(name string) string {
	return string(phoneme.Normalize(name))
}

// AnimatePhoneme animates a single phoneme event. Unknown symbols are
// logged and skipped; silence relaxes every channel toward neutral.
func (m *Mapper) AnimatePhoneme(ctx context.Context, ev Event) {
	p := phoneme.Normalize(string(ev.Phoneme))
	if !phoneme.Known(p) {
		metrics.UnknownPhonemes.Inc()
		m.logger.Warn().Str("phoneme", string(ev.Phoneme)).Msg("Unknown phoneme, skipping")
		return
	}

	if ev.Audio != nil {
		m.matrix.SetAudio(*ev.Audio)
	}

	m.state = Morphing
	m.target = p
	m.morphProgress = 0

	duration := ev.Duration
	if duration <= 0 {
		duration = m.cfg.TransitionDuration
	}

	targets := make(map[blendshape.Index]float64)
	if p.IsSilence() {
		// Relax every channel that still carries weight.
		for idx := blendshape.Index(0); idx < blendshape.Count; idx++ {
			if m.weights.Get(idx) > 0 {
				targets[idx] = 0
			}
		}
	} else {
		pc := m.sequenceContext(ev)
		mapping := mappings[p]
		factors := m.coartFactors(ctx, p, pc)
		slots := [3]struct {
			idx    blendshape.Index
			factor float64
		}{
			{mapping.Primary, factors.Primary},
			{mapping.Secondary, factors.Secondary},
			{mapping.Tertiary, factors.Tertiary},
		}
		for _, slot := range slots {
			if !slot.idx.Valid() {
				continue
			}
			dynamic := m.dynamicIntensity(ctx, p, slot.idx, pc)
			value := dynamic
			// Sequence events carry intensities already shaped by the
			// full coarticulation pass; rebase them by the dynamic
			// modifier ratio so audio/emotion state still applies.
			if processed, ok := ev.Intensities[slot.idx]; ok {
				if base := m.matrix.Base(p, slot.idx); base > 0 {
					value = processed * (dynamic / base)
				}
			}
			targets[slot.idx] = clamp01(value * slot.factor)
		}
		metrics.PhonemesAnimated.Inc()
	}

	transition := ev.Transition
	if transition <= 0 {
		transition = duration
	}
	opts := blend.Options{Duration: transition}
	m.push(m.blender.Blend(m.snapshot(), targets, 0, opts), duration)
}

// Update advances the mapper clock by dt: due timeline entries fire, the
// morph state machine and active transitions advance, and fresh values go
// to the sink. Call once per animation frame.
func (m *Mapper) Update(ctx context.Context, dt time.Duration) {
	m.clock += dt

	// Fire timeline entries that have come due, in order.
	for len(m.timeline) > 0 && m.timeline[0].at <= m.clock {
		next := m.timeline[0]
		m.timeline = m.timeline[1:]
		m.AnimatePhoneme(ctx, next.event)
	}
	if m.seqDone > 0 && m.clock >= m.seqDone && len(m.timeline) == 0 {
		metrics.SequenceDuration.Observe(m.seqDone.Seconds())
		m.seqDone = 0
	}

	if m.state == Morphing {
		m.morphProgress += float64(dt) / float64(m.cfg.TransitionDuration)
		if m.morphProgress >= 1 {
			m.current = m.target
			m.morphProgress = 0
			m.state = Resting
		}
	}

	m.push(m.blender.Blend(m.snapshot(), nil, dt, blend.Options{}), 0)
}

// AnimateSequence runs coarticulation over the whole sequence once, then
// schedules the items back to back on the mapper timeline. Playback is
// driven by Update and takes exactly the sum of the declared durations.
func (m *Mapper) AnimateSequence(ctx context.Context, seq []phoneme.TimedPhoneme, audio *intensity.Audio) {
	if len(seq) == 0 {
		return
	}

	events := make([]coart.Event, len(seq))
	for i, item := range seq {
		p := phoneme.Normalize(string(item.Phoneme))
		intensities := make(map[blendshape.Index]float64)
		if phoneme.Known(p) && !p.IsSilence() {
			for _, idx := range mappings[p].Targets() {
				intensities[idx] = m.matrix.Base(p, idx)
			}
		}
		events[i] = coart.Event{
			Phoneme:     p,
			Duration:    item.Duration,
			Intensities: intensities,
		}
	}
	events = m.engine.ProcessSequence(events)

	m.CancelSequence()
	var offset time.Duration
	for i, ev := range events {
		seqCtx := m.contextForIndex(events, i)
		m.timeline = append(m.timeline, scheduledEvent{
			at: m.clock + offset,
			event: Event{
				Phoneme:     ev.Phoneme,
				Duration:    ev.Duration,
				Audio:       audio,
				Sequence:    &seqCtx,
				Intensities: ev.Intensities,
				Transition:  ev.TransitionDuration,
			},
		})
		offset += ev.Duration
	}
	m.seqDone = m.clock + offset

	m.logger.Debug().
		Int("phonemes", len(events)).
		Dur("total", offset).
		Msg("Sequence scheduled")
}

// Idle reports whether all scheduled and in-flight animation has finished.
func (m *Mapper) Idle() bool {
	return len(m.timeline) == 0 && m.state == Resting && m.blender.IsIdle()
}

// SequenceRemaining reports how much of the scheduled sequence is left.
func (m *Mapper) SequenceRemaining() time.Duration {
	if m.seqDone <= m.clock {
		return 0
	}
	return m.seqDone - m.clock
}

// CancelSequence drops pending timeline entries and active transitions.
func (m *Mapper) CancelSequence() {
	m.timeline = m.timeline[:0]
	m.seqDone = 0
	m.blender.CancelAll()
}

// Reset relaxes every channel immediately and clears all pending work.
func (m *Mapper) Reset() {
	m.CancelSequence()
	m.weights.Reset()
	m.state = Resting
	m.current = phoneme.Sil
	m.target = phoneme.Sil
	m.morphProgress = 0
	if m.sink != nil {
		if err := m.sink.ResetAll(); err != nil {
			m.logger.Debug().Err(err).Msg("Sink reset failed")
		}
	}
}

// LearnFromFeedback forwards a user rating to the intensity matrix.
func (m *Mapper) LearnFromFeedback(p phoneme.Phoneme, target blendshape.Index, rating float64) {
	m.matrix.LearnFromFeedback(phoneme.Normalize(string(p)), target, rating)
}

// SetEmotion forwards speaker emotion to the intensity matrix.
func (m *Mapper) SetEmotion(e intensity.Emotion) { m.matrix.SetEmotion(e) }

// SetEmotionPreset applies a named emotion preset.
func (m *Mapper) SetEmotionPreset(name intensity.EmotionPreset) { m.matrix.SetEmotionPreset(name) }

// SetAudio forwards global audio context to the intensity matrix.
func (m *Mapper) SetAudio(a intensity.Audio) { m.matrix.SetAudio(a) }

func (m *Mapper) sequenceContext(ev Event) phoneme.Context {
	if ev.Sequence != nil {
		return *ev.Sequence
	}
	return phoneme.Context{Previous: m.current, Duration: ev.Duration, SequenceLength: 1}
}

func (m *Mapper) contextForIndex(events []coart.Event, i int) phoneme.Context {
	ctx := phoneme.Context{
		Index:          i,
		Duration:       events[i].Duration,
		SequenceLength: len(events),
	}
	if len(events) > 1 {
		ctx.Position = float64(i) / float64(len(events)-1)
	}
	if i > 0 {
		ctx.Previous = events[i-1].Phoneme
	}
	if i+1 < len(events) {
		ctx.Next = events[i+1].Phoneme
	}
	return ctx
}

// dynamicIntensity computes (or fetches) the intensity for one channel.
func (m *Mapper) dynamicIntensity(ctx context.Context, p phoneme.Phoneme, idx blendshape.Index, pc phoneme.Context) float64 {
	if m.cache == nil || !m.cache.Enabled() {
		return m.matrix.CalculateDynamicIntensity(p, idx, pc)
	}
	key := cache.GenerateKey("intensity", keyParams(p, idx, pc))
	var v float64
	if m.cache.Get(ctx, key, &v) {
		return v
	}
	v = m.matrix.CalculateDynamicIntensity(p, idx, pc)
	m.cache.Set(ctx, key, v)
	return v
}

// coartFactors computes (or fetches) the adjustment factors for p in pc.
func (m *Mapper) coartFactors(ctx context.Context, p phoneme.Phoneme, pc phoneme.Context) coart.Factors {
	if m.cache == nil || !m.cache.Enabled() {
		return m.engine.GetFactors(p, pc)
	}
	key := cache.GenerateKey("coart", keyParams(p, -1, pc))
	var f coart.Factors
	if m.cache.Get(ctx, key, &f) {
		return f
	}
	f = m.engine.GetFactors(p, pc)
	m.cache.Set(ctx, key, f)
	return f
}

// WarmCache precomputes intensities for every mapped (phoneme, channel)
// pair and coarticulation factors for common adjacent pairs. Idempotent.
func (m *Mapper) WarmCache(ctx context.Context) int {
	if m.cache == nil || !m.cache.Enabled() {
		return 0
	}

	entries := make(map[string]any)
	for _, p := range phoneme.All {
		if p.IsSilence() {
			continue
		}
		for _, idx := range mappings[p].Targets() {
			pc := phoneme.Context{SequenceLength: 1}
			key := cache.GenerateKey("intensity", keyParams(p, idx, pc))
			entries[key] = m.matrix.CalculateDynamicIntensity(p, idx, pc)
		}
	}

	// Adjacent-pair factors: every pair with a defined rule is fair game,
	// since those are the pairs sequences actually hit.
	for _, prev := range phoneme.All {
		for _, p := range phoneme.All {
			if p.IsSilence() || prev.IsSilence() {
				continue
			}
			if _, ok := m.engine.Rule(prev, p); !ok {
				continue
			}
			pc := phoneme.Context{Previous: prev, SequenceLength: 2, Position: 1}
			key := cache.GenerateKey("coart", keyParams(p, -1, pc))
			entries[key] = m.engine.GetFactors(p, pc)
		}
	}

	written := m.cache.Warm(ctx, entries)
	m.logger.Info().Int("entries", len(entries)).Int("written", written).Msg("Cache warmed")
	return written
}

// keyParams builds the whitelisted key fields for a computation.
func keyParams(p phoneme.Phoneme, idx blendshape.Index, pc phoneme.Context) map[string]any {
	params := map[string]any{
		"phoneme":         string(p),
		"previousPhoneme": string(pc.Previous),
		"nextPhoneme":     string(pc.Next),
		"position":        pc.Position,
		"duration":        pc.Duration,
		"sequenceLength":  pc.SequenceLength,
	}
	if idx.Valid() {
		params["target"] = idx.String()
	}
	return params
}

// snapshot copies the last pushed weights into a map for the blender.
func (m *Mapper) snapshot() map[blendshape.Index]float64 {
	out := make(map[blendshape.Index]float64)
	for idx := blendshape.Index(0); idx < blendshape.Count; idx++ {
		if v := m.weights.Get(idx); v != 0 {
			out[idx] = v
		}
	}
	return out
}

// push records blended values and forwards them to the sink.
func (m *Mapper) push(blended map[blendshape.Index]float64, hint time.Duration) {
	metrics.ActiveTransitions.Set(float64(m.blender.ActiveCount()))
	metrics.QueuedTransitions.Set(float64(m.blender.QueuedCount()))

	for idx, v := range blended {
		m.weights.Set(idx, v)
		if m.sink == nil {
			continue
		}
		if err := m.sink.SetBlendshape(idx, v, hint); err != nil {
			m.logger.Debug().Err(err).Str("target", idx.String()).Msg("Sink write failed")
		}
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
