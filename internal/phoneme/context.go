package phoneme

import "time"

// Context carries the phonetic surroundings of one phoneme event. The zero
// value means "no context": no neighbours, no look-ahead, start position.
type Context struct {
	Previous       Phoneme
	Next           Phoneme
	LookAhead      []Phoneme
	Position       float64 // normalized index/length in [0,1]
	Index          int
	Duration       time.Duration
	SequenceLength int
}
