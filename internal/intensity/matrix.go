// Package intensity derives blendshape intensities for phonemes: a static
// base matrix from the articulatory feature model plus per-call modulation
// from audio, emotion, coarticulation context and learned preferences.
package intensity

import (
	"math"
	"sync"

	"github.com/rs/zerolog"

	"github.com/normanking/cortexlipsync/internal/blendshape"
	"github.com/normanking/cortexlipsync/internal/phoneme"
)

// Config tunes the intensity model.
type Config struct {
	MinIntensity         float64 `mapstructure:"min_intensity"`
	MaxIntensity         float64 `mapstructure:"max_intensity"`
	AmplitudeSensitivity float64 `mapstructure:"amplitude_sensitivity"`
	ProsodyWeight        float64 `mapstructure:"prosody_weight"`
	EmotionWeight        float64 `mapstructure:"emotion_weight"`
	AdaptiveLearning     bool    `mapstructure:"adaptive_learning"`
	LearningRate         float64 `mapstructure:"learning_rate"`
}

// DefaultConfig returns the standard tuning.
func DefaultConfig() Config {
	return Config{
		MinIntensity:         0.1,
		MaxIntensity:         1.0,
		AmplitudeSensitivity: 0.8,
		ProsodyWeight:        0.6,
		EmotionWeight:        0.4,
		AdaptiveLearning:     true,
		LearningRate:         0.1,
	}
}

// Matrix computes dynamic intensities per (phoneme, target) pair.
type Matrix struct {
	cfg    Config
	logger zerolog.Logger

	base map[phoneme.Phoneme]map[blendshape.Index]float64

	mu       sync.RWMutex
	audio    Audio
	audioSet bool
	emotion  Emotion
	learned  *preferences
}

// NewMatrix precomputes the base intensity table for the whole vocabulary.
func NewMatrix(cfg Config, logger zerolog.Logger) *Matrix {
	m := &Matrix{
		cfg:     cfg,
		logger:  logger.With().Str("component", "intensity").Logger(),
		base:    make(map[phoneme.Phoneme]map[blendshape.Index]float64, len(phoneme.All)),
		learned: newPreferences(cfg.LearningRate),
	}

	for _, p := range phoneme.All {
		row := make(map[blendshape.Index]float64, len(blendshape.ArticulatoryTargets))
		pf := phoneme.Features(p)
		for _, target := range blendshape.ArticulatoryTargets {
			row[target] = m.clamp(baseScore(pf, blendshape.TargetFeatures(target)))
		}
		m.base[p] = row
	}
	return m
}

// baseScore combines feature similarity with the phoneme's articulatory
// magnitude: targets aligned with a strongly articulated phoneme score high,
// orthogonal ones stay near zero.
func baseScore(p, t phoneme.FeatureVector) float64 {
	pd, td := p.Dims(), t.Dims()
	var dot, pp, tt float64
	for i := range pd {
		dot += pd[i] * td[i]
		pp += pd[i] * pd[i]
		tt += td[i] * td[i]
	}
	if pp == 0 || tt == 0 {
		return 0
	}
	similarity := dot / math.Sqrt(pp*tt)
	magnitude := math.Sqrt(pp) / math.Sqrt(6)
	return similarity * (0.6 + 0.4*magnitude)
}

// Base returns the precomputed base intensity for a pair, 0 when the
// phoneme or target is outside the model.
func (m *Matrix) Base(p phoneme.Phoneme, target blendshape.Index) float64 {
	if row, ok := m.base[p]; ok {
		return row[target]
	}
	return 0
}

// CalculateDynamicIntensity applies the modulation pipeline to the base
// value: amplitude, prosody, emotion, coarticulation damping and the
// learned preference multiplier, clamped into the configured range.
func (m *Matrix) CalculateDynamicIntensity(p phoneme.Phoneme, target blendshape.Index, ctx phoneme.Context) float64 {
	base := m.Base(p, target)

	m.mu.RLock()
	audio, audioSet, emotion := m.audio, m.audioSet, m.emotion
	m.mu.RUnlock()

	value := base
	if audioSet {
		value *= m.amplitudeFactor(audio)
		value *= m.prosodicFactor(audio)
	}
	value *= m.emotionFactor(emotion, target)

	if ctx.Previous != "" && !ctx.Previous.IsSilence() {
		value *= 1 - phoneme.Distance(ctx.Previous, p)*0.3
	}

	value *= m.learned.multiplier(p, target)

	return m.clamp(value)
}

// amplitudeFactor maps amplitude in [0,1] onto [0.5,2.0] and blends it in
// by the configured sensitivity.
func (m *Matrix) amplitudeFactor(a Audio) float64 {
	raw := 0.5 + clamp01(a.Amplitude)*1.5
	return 1 + m.cfg.AmplitudeSensitivity*(raw-1)
}

// prosodicFactor is the weighted pitch/stress/rate blend scaled by the
// prosody weight.
func (m *Matrix) prosodicFactor(a Audio) float64 {
	pitch := normalizePitch(a.Pitch)
	stress := clamp01(a.Stress)
	rate := normalizeRate(a.SpeakingRate)

	prosodic := 0.3*pitch + 0.4*stress + 0.3*rate
	return 1 + m.cfg.ProsodyWeight*(prosodic-1)
}

func (m *Matrix) emotionFactor(e Emotion, target blendshape.Index) float64 {
	return 1 + m.cfg.EmotionWeight*emotionValue(e, target)
}

// normalizePitch clips to the usable F0 band [80,400] Hz and maps it to
// [0.8,1.3].
func normalizePitch(hz float64) float64 {
	if hz < 80 {
		hz = 80
	}
	if hz > 400 {
		hz = 400
	}
	return 0.8 + (hz-80)/(400-80)*0.5
}

// normalizeRate clips to [2,8] syllables/sec and maps it to [0.9,1.2].
func normalizeRate(rate float64) float64 {
	if rate < 2 {
		rate = 2
	}
	if rate > 8 {
		rate = 8
	}
	return 0.9 + (rate-2)/(8-2)*0.3
}

func (m *Matrix) clamp(v float64) float64 {
	if v < m.cfg.MinIntensity {
		return m.cfg.MinIntensity
	}
	if v > m.cfg.MaxIntensity {
		return m.cfg.MaxIntensity
	}
	return v
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
