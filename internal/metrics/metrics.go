package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PhonemesAnimated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cortex_lipsync_phonemes_animated_total",
			Help: "Total number of phonemes animated",
		},
	)

	UnknownPhonemes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cortex_lipsync_unknown_phonemes_total",
			Help: "Total number of unrecognized phoneme labels",
		},
	)

	SequenceDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cortex_lipsync_sequence_duration_seconds",
			Help:    "Wall-clock duration of animated phoneme sequences",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		},
	)

	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cortex_lipsync_cache_hits_total",
			Help: "Cache hits by tier",
		},
		[]string{"tier"},
	)

	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cortex_lipsync_cache_misses_total",
			Help: "Total number of cache misses",
		},
	)

	CacheEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cortex_lipsync_cache_evictions_total",
			Help: "Total number of tier-1 cache evictions",
		},
	)

	ActiveTransitions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cortex_lipsync_active_transitions",
			Help: "Number of blendshape transitions currently animating",
		},
	)

	QueuedTransitions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cortex_lipsync_queued_transitions",
			Help: "Number of blendshape transitions waiting for a slot",
		},
	)
)
