package blend

import (
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/normanking/cortexlipsync/internal/blendshape"
)

func newTestBlender(cfg Config) *Blender {
	return New(cfg, zerolog.Nop())
}

func step(b *Blender, current map[blendshape.Index]float64, targets map[blendshape.Index]float64, dt time.Duration, opts Options) map[blendshape.Index]float64 {
	out := b.Blend(current, targets, dt, opts)
	for idx, v := range out {
		current[idx] = v
	}
	return out
}

func TestSnapBelowThreshold(t *testing.T) {
	b := newTestBlender(DefaultConfig())
	current := map[blendshape.Index]float64{blendshape.JawOpen: 0.500}

	out := b.Blend(current, map[blendshape.Index]float64{blendshape.JawOpen: 0.505}, 0, Options{})
	if out[blendshape.JawOpen] != 0.505 {
		t.Errorf("small delta should snap, got %f", out[blendshape.JawOpen])
	}
	if !b.IsIdle() {
		t.Error("no transition should be created below threshold")
	}
}

func TestConvergenceAllModes(t *testing.T) {
	for _, mode := range []Mode{ModeLinear, ModeSpline, ModePhysics} {
		b := newTestBlender(DefaultConfig())
		current := map[blendshape.Index]float64{blendshape.JawOpen: 0}
		targets := map[blendshape.Index]float64{blendshape.JawOpen: 0.8}
		opts := Options{Mode: mode, Duration: 100 * time.Millisecond}

		b.Blend(current, targets, 0, opts)
		// Advance past the duration in one step.
		out := b.Blend(current, nil, 150*time.Millisecond, opts)

		if tr, ok := out[blendshape.JawOpen]; ok {
			if math.Abs(tr-0.8) > 1e-3 {
				t.Errorf("mode %s did not converge: %f", mode, tr)
			}
		}
		if !b.IsIdle() {
			t.Errorf("mode %s transition should have retired", mode)
		}
	}
}

func TestLinearMidpoint(t *testing.T) {
	b := newTestBlender(DefaultConfig())
	current := map[blendshape.Index]float64{blendshape.JawOpen: 0}
	opts := Options{Mode: ModeLinear, Duration: 100 * time.Millisecond}

	b.Blend(current, map[blendshape.Index]float64{blendshape.JawOpen: 1.0}, 0, opts)
	out := b.Blend(current, nil, 50*time.Millisecond, opts)
	if math.Abs(out[blendshape.JawOpen]-0.5) > 1e-9 {
		t.Errorf("linear midpoint should be 0.5, got %f", out[blendshape.JawOpen])
	}
}

func TestSplineMonotonic(t *testing.T) {
	b := newTestBlender(DefaultConfig())
	current := map[blendshape.Index]float64{blendshape.JawOpen: 0}
	opts := Options{Mode: ModeSpline, Duration: 200 * time.Millisecond}

	b.Blend(current, map[blendshape.Index]float64{blendshape.JawOpen: 1.0}, 0, opts)
	prev := 0.0
	for i := 0; i < 10; i++ {
		out := b.Blend(current, nil, 20*time.Millisecond, opts)
		v, ok := out[blendshape.JawOpen]
		if !ok {
			break // retired on the final step
		}
		if v < prev-1e-9 {
			t.Fatalf("spline value decreased: %f -> %f", prev, v)
		}
		prev = v
	}
}

func TestPhysicsCriticalDamping(t *testing.T) {
	// gamma' == omega exactly: k/m = 100, damping = 2*m*omega = 20.
	params := &PhysicsParams{Damping: 20, Stiffness: 100, Mass: 1}
	b := newTestBlender(DefaultConfig())
	current := map[blendshape.Index]float64{blendshape.JawOpen: 0}
	opts := Options{Mode: ModePhysics, Duration: 2 * time.Second, Physics: params}

	b.Blend(current, map[blendshape.Index]float64{blendshape.JawOpen: 1.0}, 0, opts)

	prev := 0.0
	for i := 0; i < 20; i++ {
		out := b.Blend(current, nil, 100*time.Millisecond, opts)
		v, ok := out[blendshape.JawOpen]
		if !ok {
			v = 1.0
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Fatal("critical damping produced a non-finite value")
		}
		// Critically damped approach never overshoots.
		if v > 1.0+1e-6 || v < prev-1e-6 {
			t.Fatalf("critically damped motion not monotonic: %f -> %f", prev, v)
		}
		prev = v
	}
}

func TestPhysicsUnderdampedConverges(t *testing.T) {
	params := &PhysicsParams{Damping: 8, Stiffness: 170, Mass: 1}
	b := newTestBlender(DefaultConfig())
	current := map[blendshape.Index]float64{blendshape.JawOpen: 0.2}
	opts := Options{Mode: ModePhysics, Duration: 1 * time.Second, Physics: params}

	b.Blend(current, map[blendshape.Index]float64{blendshape.JawOpen: 0.9}, 0, opts)
	out := b.Blend(current, nil, 1100*time.Millisecond, opts)
	if v, ok := out[blendshape.JawOpen]; ok && math.Abs(v-0.9) > 1e-3 {
		t.Errorf("underdamped did not converge: %f", v)
	}
}

func TestConcurrencyCapAndQueue(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxConcurrentTransitions = 2
	b := newTestBlender(cfg)

	current := map[blendshape.Index]float64{}
	targets := map[blendshape.Index]float64{
		blendshape.JawOpen:     0.5,
		blendshape.MouthClose:  0.5,
		blendshape.MouthPucker: 0.5,
		blendshape.MouthFunnel: 0.5,
	}
	b.Blend(current, targets, 0, Options{Duration: 100 * time.Millisecond})

	if b.ActiveCount() != 2 {
		t.Errorf("expected 2 active, got %d", b.ActiveCount())
	}
	if b.QueuedCount() != 2 {
		t.Errorf("expected 2 queued, got %d", b.QueuedCount())
	}

	// Finishing the active pair must promote the queued pair, never drop it.
	b.Blend(current, nil, 150*time.Millisecond, Options{})
	if b.ActiveCount() != 2 {
		t.Errorf("queued transitions should be promoted, active=%d", b.ActiveCount())
	}
	if b.QueuedCount() != 0 {
		t.Errorf("queue should drain, got %d", b.QueuedCount())
	}

	b.Blend(current, nil, 250*time.Millisecond, Options{})
	if !b.IsIdle() {
		t.Error("all transitions should eventually retire")
	}
}

func TestRetargetRestartsTimer(t *testing.T) {
	b := newTestBlender(DefaultConfig())
	current := map[blendshape.Index]float64{blendshape.JawOpen: 0}
	opts := Options{Mode: ModeLinear, Duration: 100 * time.Millisecond}

	b.Blend(current, map[blendshape.Index]float64{blendshape.JawOpen: 1.0}, 0, opts)
	b.Blend(current, nil, 50*time.Millisecond, opts)

	// Retarget mid-flight; the transition restarts from its current value.
	out := b.Blend(current, map[blendshape.Index]float64{blendshape.JawOpen: 0.0}, 0, opts)
	if b.ActiveCount() != 1 {
		t.Fatalf("retarget should reuse the transition, active=%d", b.ActiveCount())
	}
	start := out[blendshape.JawOpen]
	if math.Abs(start-0.5) > 1e-9 {
		t.Errorf("restart should hold the in-flight value, got %f", start)
	}

	out = b.Blend(current, nil, 100*time.Millisecond, opts)
	if v, ok := out[blendshape.JawOpen]; ok && math.Abs(v) > 1e-3 {
		t.Errorf("retargeted transition should reach 0, got %f", v)
	}
}

func TestCancelDropsStateImmediately(t *testing.T) {
	b := newTestBlender(DefaultConfig())
	current := map[blendshape.Index]float64{}
	targets := map[blendshape.Index]float64{
		blendshape.JawOpen:    0.9,
		blendshape.MouthClose: 0.9,
	}
	b.Blend(current, targets, 0, Options{})

	b.CancelTransitions(blendshape.JawOpen)
	if b.ActiveCount() != 1 {
		t.Errorf("expected one remaining transition, got %d", b.ActiveCount())
	}

	b.CancelAll()
	if !b.IsIdle() {
		t.Error("CancelAll should leave the blender idle")
	}
}

func TestStepwiseConvergence(t *testing.T) {
	// Drive like a frame loop: repeated small steps land on target.
	b := newTestBlender(DefaultConfig())
	current := map[blendshape.Index]float64{blendshape.MouthPucker: 0.1}
	opts := Options{Duration: 160 * time.Millisecond}

	step(b, current, map[blendshape.Index]float64{blendshape.MouthPucker: 0.7}, 0, opts)
	for i := 0; i < 20 && !b.IsIdle(); i++ {
		step(b, current, nil, 16*time.Millisecond, opts)
	}
	if math.Abs(current[blendshape.MouthPucker]-0.7) > 1e-3 {
		t.Errorf("frame-driven blend did not converge: %f", current[blendshape.MouthPucker])
	}
}
