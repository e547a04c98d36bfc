// Package sink delivers blendshape weights to whatever renders them.
package sink

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/normanking/cortexlipsync/internal/blendshape"
)

// Config selects and tunes the output sink
type Config struct {
	Type         string        `mapstructure:"type"` // console, websocket, none
	URL          string        `mapstructure:"url"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DefaultConfig returns sensible sink defaults
func DefaultConfig() Config {
	return Config{
		Type:         "console",
		URL:          "ws://localhost:8080/api/v1/avatar/blendshapes",
		WriteTimeout: 2 * time.Second,
	}
}

// New builds the sink the config names
func New(cfg Config, logger zerolog.Logger) (blendshape.Sink, error) {
	switch cfg.Type {
	case "console":
		return NewConsole(logger), nil
	case "websocket":
		return NewWebSocket(cfg, logger), nil
	case "none", "":
		return Discard{}, nil
	default:
		return nil, fmt.Errorf("unknown sink type %q", cfg.Type)
	}
}

// Discard drops every update. Useful for warm-up runs and benchmarks.
type Discard struct{}

func (Discard) SetBlendshape(blendshape.Index, float64, time.Duration) error { return nil }
func (Discard) ResetAll() error                                             { return nil }

// Console logs each update through zerolog
type Console struct {
	logger zerolog.Logger
}

// NewConsole creates a logging sink
func NewConsole(logger zerolog.Logger) *Console {
	return &Console{logger: logger.With().Str("component", "sink").Logger()}
}

func (c *Console) SetBlendshape(idx blendshape.Index, intensity float64, hint time.Duration) error {
	c.logger.Info().
		Str("target", idx.String()).
		Float64("intensity", intensity).
		Dur("transition", hint).
		Msg("Blendshape update")
	return nil
}

func (c *Console) ResetAll() error {
	c.logger.Info().Msg("Blendshapes reset")
	return nil
}

// Capture records updates in memory for inspection
type Capture struct {
	Updates []CapturedUpdate
	Resets  int
}

// CapturedUpdate is one recorded SetBlendshape call
type CapturedUpdate struct {
	Index     blendshape.Index
	Intensity float64
	Hint      time.Duration
}

func (c *Capture) SetBlendshape(idx blendshape.Index, intensity float64, hint time.Duration) error {
	c.Updates = append(c.Updates, CapturedUpdate{Index: idx, Intensity: intensity, Hint: hint})
	return nil
}

func (c *Capture) ResetAll() error {
	c.Resets++
	c.Updates = c.Updates[:0]
	return nil
}

// Last returns the most recent update for idx, if any
func (c *Capture) Last(idx blendshape.Index) (CapturedUpdate, bool) {
	for i := len(c.Updates) - 1; i >= 0; i-- {
		if c.Updates[i].Index == idx {
			return c.Updates[i], true
		}
	}
	return CapturedUpdate{}, false
}
