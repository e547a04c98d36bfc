// Package blendshape defines the facial deformation channels the engine
// drives and the sink boundary it writes them to.
package blendshape

import "time"

// Index is the stable integer identifier of a blendshape channel. The set
// follows the ARKit face-tracking convention so sinks can address standard
// avatar rigs directly.
type Index int

const (
	BrowDownLeft Index = iota
	BrowDownRight
	BrowInnerUp
	BrowOuterUpLeft
	BrowOuterUpRight
	CheekPuff
	CheekSquintLeft
	CheekSquintRight
	EyeBlinkLeft
	EyeBlinkRight
	EyeLookDownLeft
	EyeLookDownRight
	EyeLookInLeft
	EyeLookInRight
	EyeLookOutLeft
	EyeLookOutRight
	EyeLookUpLeft
	EyeLookUpRight
	EyeSquintLeft
	EyeSquintRight
	EyeWideLeft
	EyeWideRight
	JawForward
	JawLeft
	JawOpen
	JawRight
	MouthClose
	MouthDimpleLeft
	MouthDimpleRight
	MouthFrownLeft
	MouthFrownRight
	MouthFunnel
	MouthLeft
	MouthLowerDownLeft
	MouthLowerDownRight
	MouthPressLeft
	MouthPressRight
	MouthPucker
	MouthRight
	MouthRollLower
	MouthRollUpper
	MouthShrugLower
	MouthShrugUpper
	MouthSmileLeft
	MouthSmileRight
	MouthStretchLeft
	MouthStretchRight
	MouthUpperUpLeft
	MouthUpperUpRight
	NoseSneerLeft
	NoseSneerRight
	TongueOut
	Count
)

// Names maps indices to their canonical channel names.
var Names = [Count]string{
	"browDownLeft",
	"browDownRight",
	"browInnerUp",
	"browOuterUpLeft",
	"browOuterUpRight",
	"cheekPuff",
	"cheekSquintLeft",
	"cheekSquintRight",
	"eyeBlinkLeft",
	"eyeBlinkRight",
	"eyeLookDownLeft",
	"eyeLookDownRight",
	"eyeLookInLeft",
	"eyeLookInRight",
	"eyeLookOutLeft",
	"eyeLookOutRight",
	"eyeLookUpLeft",
	"eyeLookUpRight",
	"eyeSquintLeft",
	"eyeSquintRight",
	"eyeWideLeft",
	"eyeWideRight",
	"jawForward",
	"jawLeft",
	"jawOpen",
	"jawRight",
	"mouthClose",
	"mouthDimpleLeft",
	"mouthDimpleRight",
	"mouthFrownLeft",
	"mouthFrownRight",
	"mouthFunnel",
	"mouthLeft",
	"mouthLowerDownLeft",
	"mouthLowerDownRight",
	"mouthPressLeft",
	"mouthPressRight",
	"mouthPucker",
	"mouthRight",
	"mouthRollLower",
	"mouthRollUpper",
	"mouthShrugLower",
	"mouthShrugUpper",
	"mouthSmileLeft",
	"mouthSmileRight",
	"mouthStretchLeft",
	"mouthStretchRight",
	"mouthUpperUpLeft",
	"mouthUpperUpRight",
	"noseSneerLeft",
	"noseSneerRight",
	"tongueOut",
}

var byName = func() map[string]Index {
	m := make(map[string]Index, Count)
	for i := Index(0); i < Count; i++ {
		m[Names[i]] = i
	}
	return m
}()

// FromName resolves a channel name to its index, -1 when unknown.
func FromName(name string) Index {
	if idx, ok := byName[name]; ok {
		return idx
	}
	return -1
}

// Valid reports whether idx addresses a defined channel.
func (i Index) Valid() bool { return i >= 0 && i < Count }

// String returns the canonical channel name.
func (i Index) String() string {
	if !i.Valid() {
		return "invalid"
	}
	return Names[i]
}

// Weights is one intensity per channel, each held in [0,1].
type Weights [Count]float64

// Set clamps value to [0,1] and stores it.
func (w *Weights) Set(idx Index, value float64) {
	if !idx.Valid() {
		return
	}
	if value < 0 {
		value = 0
	}
	if value > 1 {
		value = 1
	}
	w[idx] = value
}

// Get returns the current intensity for idx, 0 for invalid indices.
func (w *Weights) Get(idx Index) float64 {
	if !idx.Valid() {
		return 0
	}
	return w[idx]
}

// Reset zeroes every channel.
func (w *Weights) Reset() {
	for i := range w {
		w[i] = 0
	}
}

// Lerp interpolates toward target by t in [0,1].
func (w *Weights) Lerp(target *Weights, t float64) Weights {
	if t <= 0 {
		return *w
	}
	if t >= 1 {
		return *target
	}
	var out Weights
	for i := range w {
		out[i] = w[i] + (target[i]-w[i])*t
	}
	return out
}

// Sink is the output boundary the engine pushes computed intensities to.
// The sink owns the authoritative channel values; the engine only writes.
type Sink interface {
	// SetBlendshape updates one channel. transitionHint tells a remote
	// renderer how long the engine expects the value to take to settle.
	SetBlendshape(idx Index, intensity float64, transitionHint time.Duration) error
	// ResetAll returns every channel to neutral.
	ResetAll() error
}
