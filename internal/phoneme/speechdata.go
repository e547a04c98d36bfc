package phoneme

import (
	"fmt"
	"time"

	"github.com/bytedance/sonic"
)

// TimedPhoneme is one element of a normalized phoneme sequence.
type TimedPhoneme struct {
	Phoneme  Phoneme       `json:"phoneme"`
	Duration time.Duration `json:"duration"`
	Offset   time.Duration `json:"offset"`
}

// speechData is the wire format produced by upstream TTS/alignment tools.
type speechData struct {
	Phonemes []struct {
		Label    string  `json:"label"`
		Duration float64 `json:"duration"` // milliseconds
		Time     float64 `json:"time"`     // milliseconds from start
	} `json:"phonemes"`
}

// ParseSpeechData parses the {"phonemes":[{label,duration,time}]} wire
// format into a normalized sequence. Entries with an empty label or a
// negative duration are skipped; labels are normalized but unknown symbols
// are kept so the mapper can log and skip them per event.
func ParseSpeechData(raw []byte) ([]TimedPhoneme, error) {
	var data speechData
	if err := sonic.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("parse speech data: %w", err)
	}

	out := make([]TimedPhoneme, 0, len(data.Phonemes))
	for _, p := range data.Phonemes {
		if p.Label == "" || p.Duration < 0 {
			continue
		}
		out = append(out, TimedPhoneme{
			Phoneme:  Normalize(p.Label),
			Duration: time.Duration(p.Duration * float64(time.Millisecond)),
			Offset:   time.Duration(p.Time * float64(time.Millisecond)),
		})
	}
	return out, nil
}
