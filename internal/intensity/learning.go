package intensity

import (
	"sync"
	"time"

	"github.com/normanking/cortexlipsync/internal/blendshape"
	"github.com/normanking/cortexlipsync/internal/phoneme"
)

const (
	historyCap  = 1000
	historyKeep = 500
)

// FeedbackEntry records one adaptive-learning update.
type FeedbackEntry struct {
	Phoneme    phoneme.Phoneme  `json:"phoneme"`
	Target     blendshape.Index `json:"target"`
	Rating     float64          `json:"rating"`
	Multiplier float64          `json:"multiplier"`
	Timestamp  time.Time        `json:"timestamp"`
}

type prefKey struct {
	p phoneme.Phoneme
	t blendshape.Index
}

// preferences holds the learned per-pair multipliers and their history.
type preferences struct {
	mu      sync.RWMutex
	alpha   float64
	table   map[prefKey]float64
	history []FeedbackEntry
}

func newPreferences(alpha float64) *preferences {
	if alpha <= 0 || alpha >= 1 {
		alpha = 0.1
	}
	return &preferences{
		alpha: alpha,
		table: make(map[prefKey]float64),
	}
}

func (pr *preferences) multiplier(p phoneme.Phoneme, t blendshape.Index) float64 {
	pr.mu.RLock()
	defer pr.mu.RUnlock()
	if m, ok := pr.table[prefKey{p, t}]; ok {
		return m
	}
	return 1.0
}

// update moves the multiplier toward the rating-implied value by EMA.
// A rating of 0.5 is neutral; 0 pulls toward half intensity, 1 toward
// one-and-a-half.
func (pr *preferences) update(p phoneme.Phoneme, t blendshape.Index, rating float64) float64 {
	target := 0.5 + clamp01(rating)

	pr.mu.Lock()
	defer pr.mu.Unlock()

	key := prefKey{p, t}
	current, ok := pr.table[key]
	if !ok {
		current = 1.0
	}
	next := (1-pr.alpha)*current + pr.alpha*target
	pr.table[key] = next

	pr.history = append(pr.history, FeedbackEntry{
		Phoneme:    p,
		Target:     t,
		Rating:     rating,
		Multiplier: next,
		Timestamp:  time.Now(),
	})
	if len(pr.history) > historyCap {
		pr.history = append([]FeedbackEntry(nil), pr.history[len(pr.history)-historyKeep:]...)
	}
	return next
}

func (pr *preferences) recent(limit int) []FeedbackEntry {
	pr.mu.RLock()
	defer pr.mu.RUnlock()
	if limit <= 0 || limit > len(pr.history) {
		limit = len(pr.history)
	}
	out := make([]FeedbackEntry, limit)
	copy(out, pr.history[len(pr.history)-limit:])
	return out
}

// LearnFromFeedback folds a user rating in [0,1] into the preference
// multiplier for the pair. A no-op when adaptive learning is disabled.
func (m *Matrix) LearnFromFeedback(p phoneme.Phoneme, target blendshape.Index, rating float64) {
	if !m.cfg.AdaptiveLearning {
		return
	}
	next := m.learned.update(p, target, rating)
	m.logger.Debug().
		Str("phoneme", string(p)).
		Str("target", target.String()).
		Float64("rating", rating).
		Float64("multiplier", next).
		Msg("Preference updated")
}

// FeedbackHistory returns the most recent feedback entries, newest last.
func (m *Matrix) FeedbackHistory(limit int) []FeedbackEntry {
	return m.learned.recent(limit)
}
