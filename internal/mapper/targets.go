package mapper

import (
	"github.com/normanking/cortexlipsync/internal/blendshape"
	"github.com/normanking/cortexlipsync/internal/phoneme"
)

// none marks an unused mapping slot.
const none = blendshape.Index(-1)

// Mapping names up to three blendshape channels a phoneme drives, in
// decreasing order of articulatory importance. Silence maps to nothing.
type Mapping struct {
	Primary   blendshape.Index
	Secondary blendshape.Index
	Tertiary  blendshape.Index
}

// Targets returns the mapped channels in order, skipping unused slots.
func (m Mapping) Targets() []blendshape.Index {
	out := make([]blendshape.Index, 0, 3)
	for _, idx := range [3]blendshape.Index{m.Primary, m.Secondary, m.Tertiary} {
		if idx.Valid() {
			out = append(out, idx)
		}
	}
	return out
}

var mappings = map[phoneme.Phoneme]Mapping{
	// Vowels
	phoneme.AA: {blendshape.JawOpen, blendshape.MouthStretchLeft, blendshape.MouthStretchRight},
	phoneme.AE: {blendshape.JawOpen, blendshape.MouthSmileLeft, blendshape.MouthSmileRight},
	phoneme.AH: {blendshape.JawOpen, blendshape.MouthLowerDownLeft, blendshape.MouthLowerDownRight},
	phoneme.AO: {blendshape.JawOpen, blendshape.MouthFunnel, blendshape.MouthPucker},
	phoneme.AW: {blendshape.JawOpen, blendshape.MouthFunnel, blendshape.MouthPucker},
	phoneme.AY: {blendshape.JawOpen, blendshape.MouthSmileLeft, blendshape.MouthSmileRight},
	phoneme.EH: {blendshape.JawOpen, blendshape.MouthSmileLeft, blendshape.MouthSmileRight},
	phoneme.ER: {blendshape.MouthPucker, blendshape.MouthFunnel, blendshape.JawOpen},
	phoneme.EY: {blendshape.MouthSmileLeft, blendshape.MouthSmileRight, blendshape.JawOpen},
	phoneme.IH: {blendshape.MouthSmileLeft, blendshape.MouthSmileRight, blendshape.JawOpen},
	phoneme.IY: {blendshape.MouthSmileLeft, blendshape.MouthSmileRight, blendshape.JawOpen},
	phoneme.OW: {blendshape.MouthFunnel, blendshape.MouthPucker, blendshape.JawOpen},
	phoneme.OY: {blendshape.MouthFunnel, blendshape.MouthPucker, blendshape.JawOpen},
	phoneme.UH: {blendshape.MouthPucker, blendshape.MouthFunnel, blendshape.JawOpen},
	phoneme.UW: {blendshape.MouthPucker, blendshape.MouthFunnel, blendshape.JawOpen},

	// Consonants
	phoneme.B:  {blendshape.MouthClose, blendshape.MouthPressLeft, blendshape.MouthPressRight},
	phoneme.CH: {blendshape.MouthFunnel, blendshape.MouthPucker, none},
	phoneme.D:  {blendshape.JawOpen, blendshape.MouthUpperUpLeft, blendshape.MouthUpperUpRight},
	phoneme.DH: {blendshape.TongueOut, blendshape.MouthFunnel, none},
	phoneme.F:  {blendshape.MouthFunnel, blendshape.MouthLowerDownLeft, blendshape.MouthLowerDownRight},
	phoneme.G:  {blendshape.JawOpen, blendshape.MouthStretchLeft, blendshape.MouthStretchRight},
	phoneme.HH: {blendshape.JawOpen, none, none},
	phoneme.JH: {blendshape.MouthFunnel, blendshape.MouthPucker, none},
	phoneme.K:  {blendshape.JawOpen, blendshape.MouthStretchLeft, blendshape.MouthStretchRight},
	phoneme.L:  {blendshape.TongueOut, blendshape.JawOpen, none},
	phoneme.M:  {blendshape.MouthClose, blendshape.MouthPressLeft, blendshape.MouthPressRight},
	phoneme.N:  {blendshape.MouthClose, blendshape.JawOpen, none},
	phoneme.NG: {blendshape.JawOpen, blendshape.MouthClose, none},
	phoneme.P:  {blendshape.MouthClose, blendshape.MouthPressLeft, blendshape.MouthPressRight},
	phoneme.R:  {blendshape.MouthPucker, blendshape.MouthFunnel, none},
	phoneme.S:  {blendshape.MouthStretchLeft, blendshape.MouthStretchRight, none},
	phoneme.SH: {blendshape.MouthFunnel, blendshape.MouthPucker, none},
	phoneme.T:  {blendshape.JawOpen, blendshape.MouthUpperUpLeft, blendshape.MouthUpperUpRight},
	phoneme.TH: {blendshape.TongueOut, blendshape.MouthFunnel, none},
	phoneme.V:  {blendshape.MouthFunnel, blendshape.MouthLowerDownLeft, blendshape.MouthLowerDownRight},
	phoneme.W:  {blendshape.MouthPucker, blendshape.MouthFunnel, none},
	phoneme.Y:  {blendshape.MouthSmileLeft, blendshape.MouthSmileRight, none},
	phoneme.Z:  {blendshape.MouthStretchLeft, blendshape.MouthStretchRight, none},
	phoneme.ZH: {blendshape.MouthFunnel, blendshape.MouthPucker, none},

	// Silence relaxes everything
	phoneme.Sil: {none, none, none},
	phoneme.Pau: {none, none, none},
}

// MappingFor returns the static mapping for p, false when p is not in the
// vocabulary.
func MappingFor(p phoneme.Phoneme) (Mapping, bool) {
	m, ok := mappings[p]
	return m, ok
}
