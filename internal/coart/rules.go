// Package coart models coarticulation: context-dependent adjustment of
// phoneme intensities from transition rules, look-ahead influence and
// assimilation patterns.
package coart

import (
	"time"

	"github.com/normanking/cortexlipsync/internal/phoneme"
)

// Category classifies a phoneme-to-phoneme transition.
type Category int

const (
	CategoryNone Category = iota
	CategoryVowelGlide
	CategoryConsonantToVowel
	CategoryVowelToConsonant
	CategoryConsonantAssimilation
)

func (c Category) String() string {
	switch c {
	case CategoryVowelGlide:
		return "vowel-glide"
	case CategoryConsonantToVowel:
		return "consonant-to-vowel"
	case CategoryVowelToConsonant:
		return "vowel-to-consonant"
	case CategoryConsonantAssimilation:
		return "consonant-assimilation"
	default:
		return "none"
	}
}

// TransitionType hints the blend layer how a rule wants to be animated.
type TransitionType string

const (
	TransitionSmooth      TransitionType = "smooth"
	TransitionSharp       TransitionType = "sharp"
	TransitionGlide       TransitionType = "glide"
	TransitionAssimilated TransitionType = "assimilated"
)

// Rule describes the transition between an ordered phoneme pair.
type Rule struct {
	From                 phoneme.Phoneme
	To                   phoneme.Phoneme
	Category             Category
	SmoothingFactor      float64
	TransitionType       TransitionType
	Duration             time.Duration
	AssimilationStrength float64
}

type pair struct {
	from, to phoneme.Phoneme
}

// Config tunes the coarticulation model.
type Config struct {
	LookAheadPhonemes  int           `mapstructure:"look_ahead_phonemes"`
	TransitionDuration time.Duration `mapstructure:"transition_duration"`
	SmoothingFactor    float64       `mapstructure:"smoothing_factor"`
}

// DefaultConfig returns the standard tuning.
func DefaultConfig() Config {
	return Config{
		LookAheadPhonemes:  3,
		TransitionDuration: 150 * time.Millisecond,
		SmoothingFactor:    0.7,
	}
}

// categorize puts an ordered pair into its transition category, or
// CategoryNone when either side is silence.
func categorize(from, to phoneme.Phoneme) Category {
	if from.IsSilence() || to.IsSilence() {
		return CategoryNone
	}
	switch {
	case from.IsVowel() && (to.IsVowel() || to.IsGlide()),
		from.IsGlide() && to.IsVowel():
		return CategoryVowelGlide
	case from.IsConsonant() && to.IsVowel():
		return CategoryConsonantToVowel
	case from.IsVowel() && to.IsConsonant():
		return CategoryVowelToConsonant
	case from.IsConsonant() && to.IsConsonant():
		return CategoryConsonantAssimilation
	}
	return CategoryNone
}

// buildRules precomputes one rule for every ordered pair that falls into a
// defined category. Smoothing rises for similar pairs, duration stretches
// for dissimilar ones.
func buildRules(cfg Config) map[pair]Rule {
	rules := make(map[pair]Rule, len(phoneme.All)*len(phoneme.All))
	for _, from := range phoneme.All {
		for _, to := range phoneme.All {
			cat := categorize(from, to)
			if cat == CategoryNone {
				continue
			}

			dist := phoneme.Distance(from, to)
			r := Rule{
				From:            from,
				To:              to,
				Category:        cat,
				SmoothingFactor: cfg.SmoothingFactor * (0.5 + 0.5*(1-dist)),
				Duration:        time.Duration(float64(cfg.TransitionDuration) * (0.8 + 0.4*dist)),
			}

			switch cat {
			case CategoryVowelGlide:
				r.TransitionType = TransitionGlide
			case CategoryConsonantToVowel:
				r.TransitionType = TransitionSmooth
			case CategoryVowelToConsonant:
				r.TransitionType = TransitionSharp
			case CategoryConsonantAssimilation:
				r.TransitionType = TransitionAssimilated
				if p := matchAssimilation(from, to); p != nil {
					r.AssimilationStrength = p.Strength
				}
			}

			rules[pair{from, to}] = r
		}
	}
	return rules
}
