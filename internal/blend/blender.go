// Package blend turns discrete per-channel target values into continuous
// motion: each changed channel gets a timed transition (linear, eased
// spline or damped spring) under a bounded concurrency cap.
package blend

import (
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/normanking/cortexlipsync/internal/blendshape"
)

// Mode selects the interpolation family for a transition.
type Mode string

const (
	ModeLinear  Mode = "linear"
	ModeSpline  Mode = "spline"
	ModePhysics Mode = "physics"
)

// PhysicsParams configures the damped harmonic oscillator used by
// ModePhysics.
type PhysicsParams struct {
	Damping   float64 `mapstructure:"damping"`
	Stiffness float64 `mapstructure:"stiffness"`
	Mass      float64 `mapstructure:"mass"`
}

// Config tunes the blender.
type Config struct {
	TransitionDuration       time.Duration `mapstructure:"transition_duration"`
	MaxConcurrentTransitions int           `mapstructure:"max_concurrent_transitions"`
	BlendThreshold           float64       `mapstructure:"blend_threshold"`
	DefaultMode              Mode          `mapstructure:"default_mode"`
	DefaultEasing            Easing        `mapstructure:"default_easing"`
	Physics                  PhysicsParams `mapstructure:"physics"`
}

// DefaultConfig returns the standard tuning.
func DefaultConfig() Config {
	return Config{
		TransitionDuration:       200 * time.Millisecond,
		MaxConcurrentTransitions: 5,
		BlendThreshold:           0.01,
		DefaultMode:              ModeSpline,
		DefaultEasing:            EaseInOutCubic,
		Physics:                  PhysicsParams{Damping: 8, Stiffness: 170, Mass: 1},
	}
}

// Options overrides per-call transition parameters. Zero values fall back
// to the blender's configuration.
type Options struct {
	Mode     Mode
	Easing   Easing
	Duration time.Duration
	Physics  *PhysicsParams
}

// transition is one channel's in-flight move from start to end.
type transition struct {
	target   blendshape.Index
	start    float64
	end      float64
	elapsed  time.Duration
	duration time.Duration
	mode     Mode
	easing   Easing
	physics  PhysicsParams
}

func (tr *transition) progress() float64 {
	if tr.duration <= 0 {
		return 1
	}
	return float64(tr.elapsed) / float64(tr.duration)
}

// value evaluates the transition at its current elapsed time.
func (tr *transition) value() float64 {
	p := tr.progress()
	if p >= 1 {
		return tr.end
	}

	switch tr.mode {
	case ModeLinear:
		return tr.start + (tr.end-tr.start)*p
	case ModePhysics:
		return tr.physicsValue()
	default:
		return tr.start + (tr.end-tr.start)*ease(tr.easing, p)
	}
}

// physicsValue evaluates the damped harmonic oscillator. Near-critical
// parameter sets take the aperiodic branch: the under-damped formula is
// only used when the damped frequency is meaningfully positive, so the
// division by omega in the aperiodic B term stays well-conditioned
// (stiffness and mass are clamped positive at config time).
func (tr *transition) physicsValue() float64 {
	displacement := tr.end - tr.start
	if displacement == 0 {
		return tr.end
	}

	m := tr.physics.Mass
	if m <= 0 {
		m = 1
	}
	k := tr.physics.Stiffness
	if k <= 0 {
		k = 170
	}

	omega := math.Sqrt(k / m)
	gamma := tr.physics.Damping / (2 * m)
	t := tr.elapsed.Seconds()

	disc := omega*omega - gamma*gamma
	if disc > 1e-9*omega*omega {
		// Under-damped: decaying oscillation around the target.
		omegaD := math.Sqrt(disc)
		return tr.start + displacement - displacement*math.Exp(-gamma*t)*math.Cos(omegaD*t)
	}

	// Critically or over-damped: aperiodic approach.
	a := displacement
	b := gamma * displacement / omega
	return tr.start + displacement - (a+b*t)*math.Exp(-gamma*t)
}

// Blender owns all per-channel transitions.
type Blender struct {
	cfg    Config
	logger zerolog.Logger

	active map[blendshape.Index]*transition
	queue  []*transition
}

// New creates a Blender, clamping out-of-range configuration to defaults.
func New(cfg Config, logger zerolog.Logger) *Blender {
	def := DefaultConfig()
	if cfg.TransitionDuration <= 0 {
		cfg.TransitionDuration = def.TransitionDuration
	}
	if cfg.MaxConcurrentTransitions <= 0 {
		cfg.MaxConcurrentTransitions = def.MaxConcurrentTransitions
	}
	if cfg.BlendThreshold <= 0 {
		cfg.BlendThreshold = def.BlendThreshold
	}
	if cfg.DefaultMode == "" {
		cfg.DefaultMode = def.DefaultMode
	}
	if cfg.DefaultEasing == "" {
		cfg.DefaultEasing = def.DefaultEasing
	}
	if cfg.Physics.Mass <= 0 {
		cfg.Physics.Mass = def.Physics.Mass
	}
	if cfg.Physics.Stiffness <= 0 {
		cfg.Physics.Stiffness = def.Physics.Stiffness
	}
	if cfg.Physics.Damping < 0 {
		cfg.Physics.Damping = def.Physics.Damping
	}
	return &Blender{
		cfg:    cfg,
		logger: logger.With().Str("component", "blend").Logger(),
		active: make(map[blendshape.Index]*transition),
	}
}

// Blend advances time by dt and folds the requested target values in:
// changed channels get transitions (or retarget an existing one), channels
// already close enough snap. The returned map holds the frame's value for
// every channel that had a transition or a requested target.
func (b *Blender) Blend(current map[blendshape.Index]float64, targets map[blendshape.Index]float64, dt time.Duration, opts Options) map[blendshape.Index]float64 {
	retired := b.advance(dt)
	b.promote()

	for idx, want := range targets {
		cur := current[idx]
		if tr, ok := b.active[idx]; ok {
			// Retarget: keep start at the in-flight value, restart timer.
			tr.start = tr.value()
			tr.end = want
			tr.elapsed = 0
			continue
		}
		if qt := b.queued(idx); qt != nil {
			qt.end = want
			continue
		}
		if math.Abs(want-cur) <= b.cfg.BlendThreshold {
			continue
		}
		b.add(&transition{
			target:   idx,
			start:    cur,
			end:      want,
			duration: b.pickDuration(opts),
			mode:     b.pickMode(opts),
			easing:   b.pickEasing(opts),
			physics:  b.pickPhysics(opts),
		})
	}

	out := make(map[blendshape.Index]float64, len(targets)+len(b.active)+len(retired))
	for idx, end := range retired {
		out[idx] = end // final snap for transitions that finished this frame
	}
	for idx, want := range targets {
		out[idx] = want // snap by default
	}
	for idx, tr := range b.active {
		out[idx] = tr.value()
	}
	for _, tr := range b.queue {
		// Queued channels hold their last value until a slot frees.
		out[tr.target] = tr.start
	}
	return out
}

// advance moves active transitions forward and retires finished ones,
// returning the end values of the transitions that completed.
func (b *Blender) advance(dt time.Duration) map[blendshape.Index]float64 {
	var retired map[blendshape.Index]float64
	for idx, tr := range b.active {
		tr.elapsed += dt
		if tr.progress() >= 1 {
			if retired == nil {
				retired = make(map[blendshape.Index]float64)
			}
			retired[idx] = tr.end
			delete(b.active, idx)
		}
	}
	return retired
}

// promote moves queued transitions into freed slots, oldest first.
func (b *Blender) promote() {
	for len(b.queue) > 0 && len(b.active) < b.cfg.MaxConcurrentTransitions {
		tr := b.queue[0]
		b.queue = b.queue[1:]
		if _, busy := b.active[tr.target]; busy {
			continue
		}
		tr.elapsed = 0
		b.active[tr.target] = tr
	}
}

func (b *Blender) add(tr *transition) {
	if len(b.active) < b.cfg.MaxConcurrentTransitions {
		b.active[tr.target] = tr
		return
	}
	b.queue = append(b.queue, tr)
}

func (b *Blender) queued(idx blendshape.Index) *transition {
	for _, tr := range b.queue {
		if tr.target == idx {
			return tr
		}
	}
	return nil
}

func (b *Blender) pickDuration(opts Options) time.Duration {
	if opts.Duration > 0 {
		return opts.Duration
	}
	return b.cfg.TransitionDuration
}

func (b *Blender) pickMode(opts Options) Mode {
	if opts.Mode != "" {
		return opts.Mode
	}
	return b.cfg.DefaultMode
}

func (b *Blender) pickEasing(opts Options) Easing {
	if opts.Easing != "" {
		return opts.Easing
	}
	return b.cfg.DefaultEasing
}

func (b *Blender) pickPhysics(opts Options) PhysicsParams {
	if opts.Physics != nil {
		return *opts.Physics
	}
	return b.cfg.Physics
}

// IsIdle reports whether no transition is active or queued.
func (b *Blender) IsIdle() bool {
	return len(b.active) == 0 && len(b.queue) == 0
}

// ActiveCount returns the number of in-flight transitions.
func (b *Blender) ActiveCount() int { return len(b.active) }

// QueuedCount returns the number of transitions waiting for a slot.
func (b *Blender) QueuedCount() int { return len(b.queue) }

// CancelTransitions drops state for the given channels immediately; no
// partial progress is kept.
func (b *Blender) CancelTransitions(indices ...blendshape.Index) {
	for _, idx := range indices {
		delete(b.active, idx)
		kept := b.queue[:0]
		for _, tr := range b.queue {
			if tr.target != idx {
				kept = append(kept, tr)
			}
		}
		b.queue = kept
	}
}

// CancelAll drops every transition immediately.
func (b *Blender) CancelAll() {
	b.active = make(map[blendshape.Index]*transition)
	b.queue = nil
}
