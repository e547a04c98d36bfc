package intensity

import "github.com/normanking/cortexlipsync/internal/blendshape"

// Audio is the prosodic description of the speech being animated.
type Audio struct {
	Amplitude    float64 `json:"amplitude"`    // 0..1
	Pitch        float64 `json:"pitch"`        // Hz
	Stress       float64 `json:"stress"`       // 0..1
	SpeakingRate float64 `json:"speakingRate"` // syllables/sec
}

// Emotion is a valence/arousal/dominance description of the speaker state.
type Emotion struct {
	Valence   float64 `json:"valence"`   // -1..1
	Arousal   float64 `json:"arousal"`   // 0..1
	Dominance float64 `json:"dominance"` // 0..1
}

// SetAudio updates the audio modulation state. Values are clamped to their
// natural bounds; the state stays active until ClearAudio.
func (m *Matrix) SetAudio(a Audio) {
	a.Amplitude = clamp01(a.Amplitude)
	a.Stress = clamp01(a.Stress)
	if a.Pitch < 0 {
		a.Pitch = 0
	}
	if a.SpeakingRate < 0 {
		a.SpeakingRate = 0
	}

	m.mu.Lock()
	m.audio = a
	m.audioSet = true
	m.mu.Unlock()
}

// ClearAudio returns audio modulation to neutral.
func (m *Matrix) ClearAudio() {
	m.mu.Lock()
	m.audio = Audio{}
	m.audioSet = false
	m.mu.Unlock()
}

// SetEmotion updates the emotional modulation state.
func (m *Matrix) SetEmotion(e Emotion) {
	if e.Valence < -1 {
		e.Valence = -1
	}
	if e.Valence > 1 {
		e.Valence = 1
	}
	e.Arousal = clamp01(e.Arousal)
	e.Dominance = clamp01(e.Dominance)

	m.mu.Lock()
	m.emotion = e
	m.mu.Unlock()
}

// EmotionPreset is a named emotional state.
type EmotionPreset string

const (
	EmotionNeutral   EmotionPreset = "neutral"
	EmotionHappy     EmotionPreset = "happy"
	EmotionSad       EmotionPreset = "sad"
	EmotionExcited   EmotionPreset = "excited"
	EmotionSurprised EmotionPreset = "surprised"
	EmotionAngry     EmotionPreset = "angry"
)

var presets = map[EmotionPreset]Emotion{
	EmotionNeutral:   {},
	EmotionHappy:     {Valence: 0.7, Arousal: 0.5, Dominance: 0.5},
	EmotionSad:       {Valence: -0.6, Arousal: 0.2, Dominance: 0.2},
	EmotionExcited:   {Valence: 0.8, Arousal: 0.9, Dominance: 0.6},
	EmotionSurprised: {Valence: 0.2, Arousal: 0.8, Dominance: 0.3},
	EmotionAngry:     {Valence: -0.7, Arousal: 0.8, Dominance: 0.8},
}

// SetEmotionPreset applies a named emotion, neutral for unknown names.
func (m *Matrix) SetEmotionPreset(name EmotionPreset) {
	m.SetEmotion(presets[name])
}

// emotionValue maps the emotion state onto one target's adjustment in
// [-1,1]. Positive valence lifts the smile family, negative valence lifts
// frown and brow-down, high arousal opens jaw and widens eyes; dominance
// gives a small global lift to mouth-area channels.
func emotionValue(e Emotion, target blendshape.Index) float64 {
	var v float64

	switch target {
	case blendshape.MouthSmileLeft, blendshape.MouthSmileRight,
		blendshape.MouthDimpleLeft, blendshape.MouthDimpleRight,
		blendshape.CheekSquintLeft, blendshape.CheekSquintRight:
		if e.Valence > 0 {
			v += e.Valence * 0.8
		}
	case blendshape.MouthFrownLeft, blendshape.MouthFrownRight,
		blendshape.BrowDownLeft, blendshape.BrowDownRight,
		blendshape.MouthPressLeft, blendshape.MouthPressRight:
		if e.Valence < 0 {
			v += -e.Valence * 0.8
		}
	case blendshape.JawOpen, blendshape.EyeWideLeft, blendshape.EyeWideRight,
		blendshape.BrowInnerUp:
		if e.Arousal > 0.5 {
			v += (e.Arousal - 0.5) * 2 * 0.6
		}
	}

	if e.Dominance > 0.5 {
		switch target {
		case blendshape.JawForward, blendshape.MouthStretchLeft, blendshape.MouthStretchRight:
			v += (e.Dominance - 0.5) * 0.4
		}
	}

	if v > 1 {
		v = 1
	}
	if v < -1 {
		v = -1
	}
	return v
}
