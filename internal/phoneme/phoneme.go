// Package phoneme defines the closed phoneme vocabulary, symbol
// normalization and the articulatory feature model used by the
// intensity and coarticulation layers.
package phoneme

import "strings"

// Phoneme is a symbol from the closed 41-entry vocabulary
// (ARPAbet-style, lower case).
type Phoneme string

const (
	// Vowels
	AA Phoneme = "aa"
	AE Phoneme = "ae"
	AH Phoneme = "ah"
	AO Phoneme = "ao"
	AW Phoneme = "aw"
	AY Phoneme = "ay"
	EH Phoneme = "eh"
	ER Phoneme = "er"
	EY Phoneme = "ey"
	IH Phoneme = "ih"
	IY Phoneme = "iy"
	OW Phoneme = "ow"
	OY Phoneme = "oy"
	UH Phoneme = "uh"
	UW Phoneme = "uw"

	// Consonants
	B  Phoneme = "b"
	CH Phoneme = "ch"
	D  Phoneme = "d"
	DH Phoneme = "dh"
	F  Phoneme = "f"
	G  Phoneme = "g"
	HH Phoneme = "hh"
	JH Phoneme = "jh"
	K  Phoneme = "k"
	L  Phoneme = "l"
	M  Phoneme = "m"
	N  Phoneme = "n"
	NG Phoneme = "ng"
	P  Phoneme = "p"
	R  Phoneme = "r"
	S  Phoneme = "s"
	SH Phoneme = "sh"
	T  Phoneme = "t"
	TH Phoneme = "th"
	V  Phoneme = "v"
	W  Phoneme = "w"
	Y  Phoneme = "y"
	Z  Phoneme = "z"
	ZH Phoneme = "zh"

	// Non-speech
	Sil Phoneme = "sil"
	Pau Phoneme = "pau"
)

// Vowels lists the 15 vowel phonemes.
var Vowels = []Phoneme{AA, AE, AH, AO, AW, AY, EH, ER, EY, IH, IY, OW, OY, UH, UW}

// Consonants lists the 24 consonant phonemes.
var Consonants = []Phoneme{
	B, CH, D, DH, F, G, HH, JH, K, L, M, N,
	NG, P, R, S, SH, T, TH, V, W, Y, Z, ZH,
}

// All lists the full vocabulary including silence and pause.
var All = func() []Phoneme {
	out := make([]Phoneme, 0, len(Vowels)+len(Consonants)+2)
	out = append(out, Vowels...)
	out = append(out, Consonants...)
	out = append(out, Sil, Pau)
	return out
}()

var vocabulary = func() map[Phoneme]bool {
	m := make(map[Phoneme]bool, len(All))
	for _, p := range All {
		m[p] = true
	}
	return m
}()

// synonyms maps common alternate spellings onto vocabulary symbols.
var synonyms = map[string]Phoneme{
	"silence": Sil,
	"pause":   Pau,
	"sp":      Pau,
	"brth":    Pau,
}

// Normalize lower-cases and trims a raw symbol, strips non-alphanumeric
// characters and resolves known synonyms. Unknown symbols pass through
// lower-cased so the caller can decide how to handle them. Idempotent.
func Normalize(name string) Phoneme {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	s := b.String()
	if syn, ok := synonyms[s]; ok {
		return syn
	}
	return Phoneme(s)
}

// Known reports whether p is part of the closed vocabulary.
func Known(p Phoneme) bool {
	return vocabulary[p]
}

// IsVowel reports whether p is one of the 15 vowels.
func (p Phoneme) IsVowel() bool {
	switch p {
	case AA, AE, AH, AO, AW, AY, EH, ER, EY, IH, IY, OW, OY, UH, UW:
		return true
	}
	return false
}

// IsConsonant reports whether p is one of the 24 consonants.
func (p Phoneme) IsConsonant() bool {
	return vocabulary[p] && !p.IsVowel() && !p.IsSilence()
}

// IsSilence reports whether p is sil or pau.
func (p Phoneme) IsSilence() bool {
	return p == Sil || p == Pau
}

// IsRounded reports whether p is produced with rounded lips.
func (p Phoneme) IsRounded() bool {
	switch p {
	case AO, OW, OY, UH, UW, AW, W, R:
		return true
	}
	return false
}

// IsGlide reports whether p is a semivowel.
func (p Phoneme) IsGlide() bool {
	return p == W || p == Y || p == R || p == L
}

// Place is a consonant's place of articulation.
type Place int

const (
	PlaceNone Place = iota
	PlaceBilabial
	PlaceLabiodental
	PlaceDental
	PlaceAlveolar
	PlacePostalveolar
	PlaceVelar
	PlaceGlottal
)

// Manner is a consonant's manner of articulation.
type Manner int

const (
	MannerNone Manner = iota
	MannerStop
	MannerFricative
	MannerAffricate
	MannerNasal
	MannerLiquid
	MannerGlide
)

var places = map[Phoneme]Place{
	B: PlaceBilabial, P: PlaceBilabial, M: PlaceBilabial, W: PlaceBilabial,
	F: PlaceLabiodental, V: PlaceLabiodental,
	TH: PlaceDental, DH: PlaceDental,
	T: PlaceAlveolar, D: PlaceAlveolar, S: PlaceAlveolar, Z: PlaceAlveolar,
	N: PlaceAlveolar, L: PlaceAlveolar, R: PlaceAlveolar,
	SH: PlacePostalveolar, ZH: PlacePostalveolar, CH: PlacePostalveolar, JH: PlacePostalveolar, Y: PlacePostalveolar,
	K: PlaceVelar, G: PlaceVelar, NG: PlaceVelar,
	HH: PlaceGlottal,
}

var manners = map[Phoneme]Manner{
	B: MannerStop, P: MannerStop, D: MannerStop, T: MannerStop, G: MannerStop, K: MannerStop,
	F: MannerFricative, V: MannerFricative, TH: MannerFricative, DH: MannerFricative,
	S: MannerFricative, Z: MannerFricative, SH: MannerFricative, ZH: MannerFricative, HH: MannerFricative,
	CH: MannerAffricate, JH: MannerAffricate,
	M: MannerNasal, N: MannerNasal, NG: MannerNasal,
	L: MannerLiquid, R: MannerLiquid,
	W: MannerGlide, Y: MannerGlide,
}

var voiced = map[Phoneme]bool{
	B: true, D: true, G: true, V: true, DH: true, Z: true, ZH: true,
	JH: true, M: true, N: true, NG: true, L: true, R: true,
	W: true, Y: true,
}

// PlaceOf returns the place of articulation, PlaceNone for vowels and
// silence.
func (p Phoneme) PlaceOf() Place { return places[p] }

// MannerOf returns the manner of articulation, MannerNone for vowels and
// silence.
func (p Phoneme) MannerOf() Manner { return manners[p] }

// IsVoiced reports whether a consonant is voiced. Vowels are always voiced.
func (p Phoneme) IsVoiced() bool {
	if p.IsVowel() {
		return true
	}
	return voiced[p]
}

// IsBilabial reports whether p is articulated with both lips.
func (p Phoneme) IsBilabial() bool { return places[p] == PlaceBilabial }
