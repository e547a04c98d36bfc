package coart

import (
	"github.com/normanking/cortexlipsync/internal/blendshape"
	"github.com/normanking/cortexlipsync/internal/phoneme"
)

// AssimilationKind names the phonetic dimension a pattern acts along.
type AssimilationKind string

const (
	AssimilationPlace   AssimilationKind = "place"
	AssimilationManner  AssimilationKind = "manner"
	AssimilationVoicing AssimilationKind = "voicing"
)

// AssimilationPattern describes how strongly one consonant pulls a
// neighbouring consonant toward its own articulation.
type AssimilationPattern struct {
	Kind     AssimilationKind
	Strength float64
	Features []string // affected articulatory feature names
}

var placeFeatures = map[phoneme.Place][]string{
	phoneme.PlaceBilabial:     {"lipCompression"},
	phoneme.PlaceLabiodental:  {"lipCompression", "lipWidth"},
	phoneme.PlaceDental:       {"tongueHeight"},
	phoneme.PlaceAlveolar:     {"tongueHeight"},
	phoneme.PlacePostalveolar: {"tongueHeight", "lipProtrusion"},
	phoneme.PlaceVelar:        {"tongueBackness"},
	phoneme.PlaceGlottal:      {"jawOpening"},
}

// matchAssimilation looks a consonant pair up across the place, manner and
// voicing dimensions in that order; the first matching dimension wins.
// Identical phonemes do not assimilate (there is nothing to pull toward).
func matchAssimilation(from, to phoneme.Phoneme) *AssimilationPattern {
	if from == to || !from.IsConsonant() || !to.IsConsonant() {
		return nil
	}

	if p := from.PlaceOf(); p != phoneme.PlaceNone && p == to.PlaceOf() {
		return &AssimilationPattern{
			Kind:     AssimilationPlace,
			Strength: 0.6,
			Features: placeFeatures[p],
		}
	}
	if m := from.MannerOf(); m != phoneme.MannerNone && m == to.MannerOf() {
		return &AssimilationPattern{
			Kind:     AssimilationManner,
			Strength: 0.4,
			Features: []string{"jawOpening", "lipCompression"},
		}
	}
	if from.IsVoiced() == to.IsVoiced() {
		return &AssimilationPattern{
			Kind:     AssimilationVoicing,
			Strength: 0.2,
			Features: []string{"jawOpening"},
		}
	}
	return nil
}

// assimilatableTargets is the fixed set of channels assimilation may scale.
var assimilatableTargets = map[blendshape.Index]bool{
	blendshape.MouthClose:      true,
	blendshape.MouthPucker:     true,
	blendshape.MouthFunnel:     true,
	blendshape.MouthPressLeft:  true,
	blendshape.MouthPressRight: true,
	blendshape.JawOpen:         true,
	blendshape.TongueOut:       true,
}
