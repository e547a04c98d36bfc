package coart

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/normanking/cortexlipsync/internal/blendshape"
	"github.com/normanking/cortexlipsync/internal/phoneme"
)

// Event is one element of a phoneme sequence under processing. Intensities
// are mutated in place by ProcessSequence.
type Event struct {
	Phoneme            phoneme.Phoneme
	Duration           time.Duration
	Intensities        map[blendshape.Index]float64
	TransitionType     TransitionType
	TransitionDuration time.Duration
}

// Engine applies coarticulation effects to phoneme sequences.
type Engine struct {
	cfg    Config
	logger zerolog.Logger
	rules  map[pair]Rule
}

// NewEngine precomputes the rule table for the full vocabulary.
func NewEngine(cfg Config, logger zerolog.Logger) *Engine {
	if cfg.LookAheadPhonemes <= 0 {
		cfg.LookAheadPhonemes = DefaultConfig().LookAheadPhonemes
	}
	if cfg.SmoothingFactor <= 0 || cfg.SmoothingFactor > 1 {
		cfg.SmoothingFactor = DefaultConfig().SmoothingFactor
	}
	if cfg.TransitionDuration <= 0 {
		cfg.TransitionDuration = DefaultConfig().TransitionDuration
	}
	return &Engine{
		cfg:    cfg,
		logger: logger.With().Str("component", "coart").Logger(),
		rules:  buildRules(cfg),
	}
}

// Rule returns the precomputed rule for an ordered pair, false when the
// pair has no defined category.
func (e *Engine) Rule(from, to phoneme.Phoneme) (Rule, bool) {
	r, ok := e.rules[pair{from, to}]
	return r, ok
}

// ProcessSequence mutates each event's intensities according to its
// phonetic context. Effects apply in fixed order: transition smoothing,
// anticipatory coarticulation, perseveratory reduction, assimilation,
// cluster optimization.
func (e *Engine) ProcessSequence(seq []Event) []Event {
	for i := range seq {
		ev := &seq[i]
		ctx := e.contextAt(seq, i)

		e.applyTransitionSmoothing(ev, ctx)
		e.applyAnticipatory(ev, ctx)
		e.applyPerseveratory(ev, ctx)
		e.applyAssimilation(ev, ctx)
		e.applyClusterOptimization(ev, seq, i)
	}
	return seq
}

// contextAt builds the phonetic context for index i, including the
// look-ahead window.
func (e *Engine) contextAt(seq []Event, i int) phoneme.Context {
	ctx := phoneme.Context{
		Index:          i,
		SequenceLength: len(seq),
		Duration:       seq[i].Duration,
	}
	if len(seq) > 1 {
		ctx.Position = float64(i) / float64(len(seq)-1)
	}
	if i > 0 {
		ctx.Previous = seq[i-1].Phoneme
	}
	if i < len(seq)-1 {
		ctx.Next = seq[i+1].Phoneme
	}
	for d := 1; d <= e.cfg.LookAheadPhonemes && i+d < len(seq); d++ {
		ctx.LookAhead = append(ctx.LookAhead, seq[i+d].Phoneme)
	}
	return ctx
}

// lookAheadWeight decays with distance: 0.7 at one phoneme out, 0.4 at two,
// 0.1 at three, zero beyond.
func lookAheadWeight(distance int) float64 {
	w := 1 - 0.3*float64(distance)
	if w < 0 {
		return 0
	}
	return w
}

// applyTransitionSmoothing eases intensities toward the rule's smoothing
// factor, weighted by the event's position in the sequence, and adopts the
// rule's timing.
func (e *Engine) applyTransitionSmoothing(ev *Event, ctx phoneme.Context) {
	rule, ok := e.Rule(ctx.Previous, ev.Phoneme)
	if !ok {
		return
	}

	weight := easeInOut(ctx.Position)
	for idx, v := range ev.Intensities {
		ev.Intensities[idx] = v + (rule.SmoothingFactor-v)*weight*0.5
	}
	ev.TransitionType = rule.TransitionType
	ev.TransitionDuration = rule.Duration
}

// applyAnticipatory folds upcoming articulation into the current event:
// an upcoming rounded vowel starts lip protrusion early, an upcoming
// bilabial starts lip compression, an open vowel pre-opens the jaw.
func (e *Engine) applyAnticipatory(ev *Event, ctx phoneme.Context) {
	if len(ctx.LookAhead) == 0 {
		return
	}

	var influence [6]float64 // FeatureVector dim order
	for d, next := range ctx.LookAhead {
		w := lookAheadWeight(d + 1)
		if w == 0 {
			continue
		}
		f := phoneme.Features(next)
		if next.IsRounded() {
			influence[1] += 0.5 * w // lipProtrusion
		}
		if next.IsBilabial() {
			influence[5] += 0.6 * w // lipCompression
		}
		if f.JawOpening > 0.6 {
			influence[0] += 0.4 * w // jawOpening
		}
		if f.LipWidth > 0.7 {
			influence[2] += 0.3 * w // lipWidth
		}
	}

	for idx, v := range ev.Intensities {
		tf := blendshape.TargetFeatures(idx).Dims()
		var agg float64
		for i := range influence {
			agg += influence[i] * tf[i]
		}
		if agg != 0 {
			ev.Intensities[idx] = v * (1 + 0.3*agg)
		}
	}
}

// applyPerseveratory reduces articulation after a vowel-to-consonant
// transition: the preceding vowel's posture lingers.
func (e *Engine) applyPerseveratory(ev *Event, ctx phoneme.Context) {
	rule, ok := e.Rule(ctx.Previous, ev.Phoneme)
	if !ok || rule.Category != CategoryVowelToConsonant {
		return
	}
	factor := 1 - rule.SmoothingFactor*0.2
	for idx, v := range ev.Intensities {
		ev.Intensities[idx] = v * factor
	}
}

// applyAssimilation scales the assimilatable channels when the previous
// consonant shares place, manner or voicing with the current one.
func (e *Engine) applyAssimilation(ev *Event, ctx phoneme.Context) {
	pattern := matchAssimilation(ctx.Previous, ev.Phoneme)
	if pattern == nil {
		return
	}
	rule, ok := e.Rule(ctx.Previous, ev.Phoneme)
	if !ok {
		return
	}
	factor := 1 + pattern.Strength*0.5*rule.AssimilationStrength
	for idx, v := range ev.Intensities {
		if assimilatableTargets[idx] {
			ev.Intensities[idx] = v * factor
		}
	}
}

// applyClusterOptimization reduces effort inside consonant clusters: a
// consonant flanked by consonants, or starting a three-consonant run, is
// articulated at 85% intensity and 90% duration.
func (e *Engine) applyClusterOptimization(ev *Event, seq []Event, i int) {
	if !ev.Phoneme.IsConsonant() {
		return
	}
	flanked := i > 0 && i < len(seq)-1 &&
		seq[i-1].Phoneme.IsConsonant() && seq[i+1].Phoneme.IsConsonant()
	starts := i+2 < len(seq) &&
		seq[i+1].Phoneme.IsConsonant() && seq[i+2].Phoneme.IsConsonant()
	if !flanked && !starts {
		return
	}
	for idx, v := range ev.Intensities {
		ev.Intensities[idx] = v * 0.85
	}
	ev.Duration = time.Duration(float64(ev.Duration) * 0.9)
}

// Factors are the per-slot coarticulation multipliers the mapper applies
// outside full-sequence processing.
type Factors struct {
	Primary   float64
	Secondary float64
	Tertiary  float64
}

// NeutralFactors is the identity adjustment.
func NeutralFactors() Factors {
	return Factors{Primary: 1, Secondary: 1, Tertiary: 1}
}

// GetFactors computes the context adjustment for a single phoneme event
// from the rule and assimilation tables. Without a previous phoneme the
// result is the identity.
func (e *Engine) GetFactors(p phoneme.Phoneme, ctx phoneme.Context) Factors {
	f := NeutralFactors()

	rule, ok := e.Rule(ctx.Previous, p)
	if !ok {
		return f
	}

	switch rule.Category {
	case CategoryVowelToConsonant:
		f.Primary *= 1 - rule.SmoothingFactor*0.2
		f.Secondary *= 1 - rule.SmoothingFactor*0.15
		f.Tertiary *= 1 - rule.SmoothingFactor*0.1
	case CategoryVowelGlide:
		f.Primary *= 1 - rule.SmoothingFactor*0.1
		f.Secondary *= 1 - rule.SmoothingFactor*0.05
	case CategoryConsonantAssimilation:
		if pattern := matchAssimilation(ctx.Previous, p); pattern != nil {
			f.Primary *= 1 + pattern.Strength*0.25
			f.Secondary *= 1 + pattern.Strength*0.15
			f.Tertiary *= 1 + pattern.Strength*0.1
		}
	}
	return f
}

// easeInOut is the position easing used by transition smoothing.
func easeInOut(t float64) float64 {
	if t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}
	if t < 0.5 {
		return 2 * t * t
	}
	return -1 + (4-2*t)*t
}
