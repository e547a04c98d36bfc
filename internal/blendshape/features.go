package blendshape

import "github.com/normanking/cortexlipsync/internal/phoneme"

// targetFeatures describes which articulatory dimensions each channel
// responds to. Only mouth-area channels carry weight; brow/eye channels are
// driven by emotion, not articulation, and keep the zero vector.
var targetFeatures = map[Index]phoneme.FeatureVector{
	JawOpen:    {JawOpening: 1.0},
	JawForward: {JawOpening: 0.3, LipProtrusion: 0.4},

	MouthClose:  {LipCompression: 1.0},
	MouthPucker: {LipProtrusion: 0.9, LipWidth: 0.1},
	MouthFunnel: {JawOpening: 0.3, LipProtrusion: 0.8},

	MouthSmileLeft:  {LipWidth: 0.9, TongueHeight: 0.2},
	MouthSmileRight: {LipWidth: 0.9, TongueHeight: 0.2},

	MouthStretchLeft:  {LipWidth: 0.8, JawOpening: 0.2},
	MouthStretchRight: {LipWidth: 0.8, JawOpening: 0.2},

	MouthFrownLeft:  {LipCompression: 0.3, JawOpening: 0.1},
	MouthFrownRight: {LipCompression: 0.3, JawOpening: 0.1},

	MouthPressLeft:  {LipCompression: 0.8},
	MouthPressRight: {LipCompression: 0.8},

	MouthRollLower: {LipCompression: 0.7},
	MouthRollUpper: {LipCompression: 0.7},

	MouthShrugLower: {LipProtrusion: 0.3, LipCompression: 0.4},
	MouthShrugUpper: {LipProtrusion: 0.4, LipCompression: 0.3},

	MouthLowerDownLeft:  {JawOpening: 0.4, LipWidth: 0.3},
	MouthLowerDownRight: {JawOpening: 0.4, LipWidth: 0.3},
	MouthUpperUpLeft:    {TongueHeight: 0.3, LipWidth: 0.3},
	MouthUpperUpRight:   {TongueHeight: 0.3, LipWidth: 0.3},

	MouthDimpleLeft:  {LipWidth: 0.5},
	MouthDimpleRight: {LipWidth: 0.5},

	TongueOut: {TongueHeight: 0.9, JawOpening: 0.2},

	CheekPuff: {LipCompression: 0.5, LipProtrusion: 0.3},
}

// TargetFeatures returns the articulatory vector a channel responds to.
// Channels with no articulatory role return the zero vector.
func TargetFeatures(idx Index) phoneme.FeatureVector {
	return targetFeatures[idx]
}

// ArticulatoryTargets lists the channels that participate in phoneme-driven
// animation, in index order.
var ArticulatoryTargets = func() []Index {
	out := make([]Index, 0, len(targetFeatures))
	for i := Index(0); i < Count; i++ {
		if _, ok := targetFeatures[i]; ok {
			out = append(out, i)
		}
	}
	return out
}()
