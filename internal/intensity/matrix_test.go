package intensity

import (
	"testing"

	"github.com/rs/zerolog"

	"github.com/normanking/cortexlipsync/internal/blendshape"
	"github.com/normanking/cortexlipsync/internal/phoneme"
)

func newTestMatrix(cfg Config) *Matrix {
	return NewMatrix(cfg, zerolog.Nop())
}

func TestBaseMatrixBounds(t *testing.T) {
	m := newTestMatrix(DefaultConfig())
	for _, p := range phoneme.All {
		for _, target := range blendshape.ArticulatoryTargets {
			b := m.Base(p, target)
			if b < 0.1 || b > 1.0 {
				t.Errorf("base(%s,%s) = %f out of [0.1,1.0]", p, target, b)
			}
		}
	}
}

func TestBaseMatrixShapes(t *testing.T) {
	m := newTestMatrix(DefaultConfig())

	// An open vowel drives jawOpen much harder than a bilabial stop does.
	if m.Base(phoneme.AA, blendshape.JawOpen) <= m.Base(phoneme.B, blendshape.JawOpen) {
		t.Error("aa should out-drive b on jawOpen")
	}
	// A bilabial stop drives mouthClose harder than an open vowel.
	if m.Base(phoneme.B, blendshape.MouthClose) <= m.Base(phoneme.AA, blendshape.MouthClose) {
		t.Error("b should out-drive aa on mouthClose")
	}
	// A rounded vowel drives mouthPucker harder than a spread one.
	if m.Base(phoneme.UW, blendshape.MouthPucker) <= m.Base(phoneme.IY, blendshape.MouthPucker) {
		t.Error("uw should out-drive iy on mouthPucker")
	}
}

func TestDynamicIntensityClampedUnderExtremes(t *testing.T) {
	m := newTestMatrix(DefaultConfig())
	m.SetAudio(Audio{Amplitude: 1.0, Pitch: 400, Stress: 1.0, SpeakingRate: 8})
	m.SetEmotion(Emotion{Valence: 1, Arousal: 1, Dominance: 1})

	for _, p := range phoneme.All {
		for _, target := range blendshape.ArticulatoryTargets {
			v := m.CalculateDynamicIntensity(p, target, phoneme.Context{Previous: phoneme.AA})
			if v < 0.1 || v > 1.0 {
				t.Fatalf("dynamic(%s,%s) = %f out of [0.1,1.0]", p, target, v)
			}
		}
	}
}

func TestNeutralModifiersReturnBase(t *testing.T) {
	m := newTestMatrix(DefaultConfig())

	base := m.Base(phoneme.AA, blendshape.JawOpen)
	got := m.CalculateDynamicIntensity(phoneme.AA, blendshape.JawOpen, phoneme.Context{})
	if got != base {
		t.Errorf("with no modifiers set, dynamic should equal base: got %f want %f", got, base)
	}
}

func TestCoarticulationDamping(t *testing.T) {
	m := newTestMatrix(DefaultConfig())

	free := m.CalculateDynamicIntensity(phoneme.B, blendshape.MouthClose, phoneme.Context{})
	damped := m.CalculateDynamicIntensity(phoneme.B, blendshape.MouthClose,
		phoneme.Context{Previous: phoneme.AA})
	if damped >= free {
		t.Errorf("previous phoneme should damp intensity: %f >= %f", damped, free)
	}

	// Silence as previous phoneme applies no damping.
	afterSil := m.CalculateDynamicIntensity(phoneme.B, blendshape.MouthClose,
		phoneme.Context{Previous: phoneme.Sil})
	if afterSil != free {
		t.Errorf("silence should not damp: got %f want %f", afterSil, free)
	}
}

func TestAmplitudeModulation(t *testing.T) {
	m := newTestMatrix(DefaultConfig())
	base := m.CalculateDynamicIntensity(phoneme.EH, blendshape.JawOpen, phoneme.Context{})

	m.SetAudio(Audio{Amplitude: 1.0, Pitch: 200, Stress: 0.5, SpeakingRate: 5})
	loud := m.CalculateDynamicIntensity(phoneme.EH, blendshape.JawOpen, phoneme.Context{})
	if loud <= base {
		t.Errorf("full amplitude should raise intensity: %f <= %f", loud, base)
	}

	m.SetAudio(Audio{Amplitude: 0.0, Pitch: 200, Stress: 0.5, SpeakingRate: 5})
	quiet := m.CalculateDynamicIntensity(phoneme.EH, blendshape.JawOpen, phoneme.Context{})
	if quiet >= loud {
		t.Errorf("zero amplitude should lower intensity: %f >= %f", quiet, loud)
	}

	m.ClearAudio()
	if got := m.CalculateDynamicIntensity(phoneme.EH, blendshape.JawOpen, phoneme.Context{}); got != base {
		t.Errorf("ClearAudio should restore neutral: got %f want %f", got, base)
	}
}

func TestEmotionModulation(t *testing.T) {
	m := newTestMatrix(DefaultConfig())
	neutral := m.CalculateDynamicIntensity(phoneme.IY, blendshape.MouthSmileLeft, phoneme.Context{})

	m.SetEmotionPreset(EmotionHappy)
	happy := m.CalculateDynamicIntensity(phoneme.IY, blendshape.MouthSmileLeft, phoneme.Context{})
	if happy <= neutral {
		t.Errorf("positive valence should raise smile intensity: %f <= %f", happy, neutral)
	}

	// Happy emotion does not raise frown channels.
	m.SetEmotionPreset(EmotionNeutral)
	frownNeutral := m.CalculateDynamicIntensity(phoneme.IY, blendshape.MouthFrownLeft, phoneme.Context{})
	m.SetEmotionPreset(EmotionSad)
	frownSad := m.CalculateDynamicIntensity(phoneme.IY, blendshape.MouthFrownLeft, phoneme.Context{})
	if frownSad <= frownNeutral {
		t.Errorf("negative valence should raise frown intensity: %f <= %f", frownSad, frownNeutral)
	}
}

func TestAdaptiveLearning(t *testing.T) {
	m := newTestMatrix(DefaultConfig())

	before := m.CalculateDynamicIntensity(phoneme.AO, blendshape.MouthFunnel, phoneme.Context{})
	for i := 0; i < 20; i++ {
		m.LearnFromFeedback(phoneme.AO, blendshape.MouthFunnel, 1.0)
	}
	after := m.CalculateDynamicIntensity(phoneme.AO, blendshape.MouthFunnel, phoneme.Context{})
	if after <= before {
		t.Errorf("positive feedback should raise intensity: %f <= %f", after, before)
	}

	if len(m.FeedbackHistory(0)) != 20 {
		t.Errorf("expected 20 history entries, got %d", len(m.FeedbackHistory(0)))
	}
}

func TestAdaptiveLearningDisabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AdaptiveLearning = false
	m := newTestMatrix(cfg)

	before := m.CalculateDynamicIntensity(phoneme.AO, blendshape.MouthFunnel, phoneme.Context{})
	m.LearnFromFeedback(phoneme.AO, blendshape.MouthFunnel, 1.0)
	after := m.CalculateDynamicIntensity(phoneme.AO, blendshape.MouthFunnel, phoneme.Context{})

	if before != after {
		t.Error("feedback must be a no-op when learning is disabled")
	}
	if len(m.FeedbackHistory(0)) != 0 {
		t.Error("no history should accumulate when learning is disabled")
	}
}

func TestHistoryTruncation(t *testing.T) {
	m := newTestMatrix(DefaultConfig())
	for i := 0; i < historyCap+1; i++ {
		m.LearnFromFeedback(phoneme.AA, blendshape.JawOpen, 0.5)
	}
	if got := len(m.FeedbackHistory(0)); got != historyKeep {
		t.Errorf("expected history truncated to %d, got %d", historyKeep, got)
	}
}
