package phoneme

import "math"

// FeatureVector is the 6-dimension articulatory description of a phoneme
// or a blendshape target. Every dimension is in [0,1]; unset means 0.
type FeatureVector struct {
	JawOpening     float64
	LipProtrusion  float64
	LipWidth       float64
	TongueHeight   float64
	TongueBackness float64
	LipCompression float64
}

// Dims returns the vector as a fixed-order slice for distance math.
func (f FeatureVector) Dims() [6]float64 {
	return [6]float64{
		f.JawOpening, f.LipProtrusion, f.LipWidth,
		f.TongueHeight, f.TongueBackness, f.LipCompression,
	}
}

// Magnitude is the Euclidean norm of the vector.
func (f FeatureVector) Magnitude() float64 {
	var sum float64
	for _, d := range f.Dims() {
		sum += d * d
	}
	return math.Sqrt(sum)
}

// features holds one vector per phoneme. Values come from standard
// articulatory phonetics: jaw opening tracks vowel height inversely,
// backness and lip rounding follow the vowel chart, consonant rows encode
// the lip/tongue posture of the constriction.
var features = map[Phoneme]FeatureVector{
	// Low and mid vowels
	AA: {JawOpening: 0.9, LipWidth: 0.5, TongueHeight: 0.1, TongueBackness: 0.8},
	AE: {JawOpening: 0.8, LipWidth: 0.7, TongueHeight: 0.2, TongueBackness: 0.2},
	AH: {JawOpening: 0.6, LipWidth: 0.4, TongueHeight: 0.4, TongueBackness: 0.5},
	AO: {JawOpening: 0.7, LipProtrusion: 0.5, LipWidth: 0.2, TongueHeight: 0.3, TongueBackness: 0.9},
	AW: {JawOpening: 0.8, LipProtrusion: 0.4, LipWidth: 0.3, TongueHeight: 0.2, TongueBackness: 0.7},
	AY: {JawOpening: 0.7, LipWidth: 0.6, TongueHeight: 0.3, TongueBackness: 0.4},
	EH: {JawOpening: 0.5, LipWidth: 0.6, TongueHeight: 0.4, TongueBackness: 0.3},
	ER: {JawOpening: 0.4, LipProtrusion: 0.3, LipWidth: 0.3, TongueHeight: 0.5, TongueBackness: 0.5},
	EY: {JawOpening: 0.4, LipWidth: 0.7, TongueHeight: 0.6, TongueBackness: 0.2},

	// High vowels
	IH: {JawOpening: 0.3, LipWidth: 0.6, TongueHeight: 0.7, TongueBackness: 0.2},
	IY: {JawOpening: 0.2, LipWidth: 0.9, TongueHeight: 0.9, TongueBackness: 0.1},
	OW: {JawOpening: 0.5, LipProtrusion: 0.7, LipWidth: 0.1, TongueHeight: 0.5, TongueBackness: 0.8},
	OY: {JawOpening: 0.6, LipProtrusion: 0.5, LipWidth: 0.2, TongueHeight: 0.4, TongueBackness: 0.7},
	UH: {JawOpening: 0.3, LipProtrusion: 0.6, LipWidth: 0.15, TongueHeight: 0.7, TongueBackness: 0.8},
	UW: {JawOpening: 0.2, LipProtrusion: 0.9, LipWidth: 0.05, TongueHeight: 0.9, TongueBackness: 0.9},

	// Stops
	B: {JawOpening: 0.05, LipCompression: 0.9},
	P: {JawOpening: 0.05, LipCompression: 1.0},
	D: {JawOpening: 0.2, TongueHeight: 0.8, TongueBackness: 0.3},
	T: {JawOpening: 0.2, TongueHeight: 0.8, TongueBackness: 0.3},
	G: {JawOpening: 0.3, TongueHeight: 0.7, TongueBackness: 0.9},
	K: {JawOpening: 0.3, TongueHeight: 0.7, TongueBackness: 0.9},

	// Fricatives
	F:  {JawOpening: 0.15, LipWidth: 0.3, LipCompression: 0.6},
	V:  {JawOpening: 0.15, LipWidth: 0.3, LipCompression: 0.5},
	TH: {JawOpening: 0.25, TongueHeight: 0.85, TongueBackness: 0.1},
	DH: {JawOpening: 0.25, TongueHeight: 0.8, TongueBackness: 0.1},
	S:  {JawOpening: 0.15, LipWidth: 0.6, TongueHeight: 0.8, TongueBackness: 0.25},
	Z:  {JawOpening: 0.15, LipWidth: 0.6, TongueHeight: 0.8, TongueBackness: 0.25},
	SH: {JawOpening: 0.2, LipProtrusion: 0.4, LipWidth: 0.2, TongueHeight: 0.75, TongueBackness: 0.4},
	ZH: {JawOpening: 0.2, LipProtrusion: 0.4, LipWidth: 0.2, TongueHeight: 0.75, TongueBackness: 0.4},
	HH: {JawOpening: 0.4, LipWidth: 0.3, TongueHeight: 0.2, TongueBackness: 0.5},

	// Affricates
	CH: {JawOpening: 0.2, LipProtrusion: 0.35, LipWidth: 0.2, TongueHeight: 0.8, TongueBackness: 0.4},
	JH: {JawOpening: 0.2, LipProtrusion: 0.35, LipWidth: 0.2, TongueHeight: 0.8, TongueBackness: 0.4},

	// Nasals
	M:  {JawOpening: 0.05, LipCompression: 0.85},
	N:  {JawOpening: 0.2, TongueHeight: 0.8, TongueBackness: 0.3},
	NG: {JawOpening: 0.25, TongueHeight: 0.7, TongueBackness: 0.9},

	// Liquids and glides
	L: {JawOpening: 0.3, TongueHeight: 0.8, TongueBackness: 0.3},
	R: {JawOpening: 0.3, LipProtrusion: 0.4, TongueHeight: 0.6, TongueBackness: 0.5},
	W: {JawOpening: 0.15, LipProtrusion: 0.8, LipWidth: 0.05, TongueHeight: 0.7, TongueBackness: 0.8},
	Y: {JawOpening: 0.2, LipWidth: 0.7, TongueHeight: 0.85, TongueBackness: 0.15},

	// Silence keeps the zero vector so it never attracts intensity.
	Sil: {},
	Pau: {},
}

// Features returns the articulatory vector for p, the zero vector when p is
// unknown.
func Features(p Phoneme) FeatureVector {
	return features[p]
}

// maxFeatureDistance is the largest possible Euclidean separation of two
// vectors whose dimensions live in [0,1].
var maxFeatureDistance = math.Sqrt(6)

// distances holds the precomputed pairwise feature distance for every
// ordered phoneme pair, scaled to [0,1].
var distances = func() map[Phoneme]map[Phoneme]float64 {
	m := make(map[Phoneme]map[Phoneme]float64, len(All))
	for _, a := range All {
		row := make(map[Phoneme]float64, len(All))
		da := features[a].Dims()
		for _, b := range All {
			db := features[b].Dims()
			var sum float64
			for i := range da {
				d := da[i] - db[i]
				sum += d * d
			}
			row[b] = math.Sqrt(sum) / maxFeatureDistance
		}
		m[a] = row
	}
	return m
}()

// Distance returns the feature-space distance between two phonemes in
// [0,1]. Unknown phonemes are treated as the neutral (zero) posture.
func Distance(a, b Phoneme) float64 {
	if row, ok := distances[a]; ok {
		if d, ok := row[b]; ok {
			return d
		}
	}
	da, db := features[a].Dims(), features[b].Dims()
	var sum float64
	for i := range da {
		d := da[i] - db[i]
		sum += d * d
	}
	return math.Sqrt(sum) / maxFeatureDistance
}

// Similarity is a convenience inverse of Distance.
func Similarity(a, b Phoneme) float64 {
	return 1 - Distance(a, b)
}
