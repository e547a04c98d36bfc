// Package main provides the CLI entry point for the lip-sync engine.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/normanking/cortexlipsync/internal/blend"
	"github.com/normanking/cortexlipsync/internal/blendshape"
	"github.com/normanking/cortexlipsync/internal/cache"
	"github.com/normanking/cortexlipsync/internal/coart"
	"github.com/normanking/cortexlipsync/internal/config"
	"github.com/normanking/cortexlipsync/internal/intensity"
	"github.com/normanking/cortexlipsync/internal/logging"
	"github.com/normanking/cortexlipsync/internal/mapper"
	"github.com/normanking/cortexlipsync/internal/phoneme"
	"github.com/normanking/cortexlipsync/internal/sink"
)

// Version information (set at build time)
var version = "dev"

// pipeline bundles everything a command needs to animate.
type pipeline struct {
	cfg    *config.Config
	logger zerolog.Logger
	cache  *cache.Manager
	mapper *mapper.Mapper
	close  func()
}

func buildPipeline(configPath, sinkType string) (*pipeline, error) {
	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if sinkType != "" {
		cfg.Sink.Type = sinkType
	}

	logger, closeLog, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}

	out, err := sink.New(cfg.Sink, logger)
	if err != nil {
		closeLog()
		return nil, err
	}
	if ws, ok := out.(*sink.WebSocket); ok {
		if err := ws.Connect(context.Background()); err != nil {
			logger.Warn().Err(err).Msg("Sink not reachable yet, will keep retrying")
		}
	}

	cacheMgr := cache.NewManager(cfg.Cache, logger)
	matrix := intensity.NewMatrix(cfg.Intensity, logger)
	engine := coart.NewEngine(cfg.Coarticulation, logger)
	blender := blend.New(cfg.Blending, logger)
	m := mapper.New(cfg.Mapper, matrix, engine, blender, cacheMgr, out, logger)

	return &pipeline{
		cfg:    cfg,
		logger: logger,
		cache:  cacheMgr,
		mapper: m,
		close: func() {
			if ws, ok := out.(*sink.WebSocket); ok {
				ws.Disconnect()
			}
			cacheMgr.Close()
			closeLog()
		},
	}, nil
}

// yamlSpeechData mirrors the JSON wire format for YAML input files.
type yamlSpeechData struct {
	Phonemes []struct {
		Label    string  `yaml:"label"`
		Duration float64 `yaml:"duration"` // milliseconds
		Time     float64 `yaml:"time"`     // milliseconds from start
	} `yaml:"phonemes"`
}

func loadSequence(path string) ([]phoneme.TimedPhoneme, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		var data yamlSpeechData
		if err := yaml.Unmarshal(raw, &data); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		seq := make([]phoneme.TimedPhoneme, 0, len(data.Phonemes))
		for _, p := range data.Phonemes {
			if p.Label == "" || p.Duration < 0 {
				continue
			}
			seq = append(seq, phoneme.TimedPhoneme{
				Phoneme:  phoneme.Normalize(p.Label),
				Duration: time.Duration(p.Duration * float64(time.Millisecond)),
				Offset:   time.Duration(p.Time * float64(time.Millisecond)),
			})
		}
		return seq, nil
	default:
		return phoneme.ParseSpeechData(raw)
	}
}

func main() {
	var configPath string
	var sinkType string
	var metricsAddr string
	var emotion string

	rootCmd := &cobra.Command{
		Use:     "lipsyncd",
		Short:   "Phoneme-to-blendshape lip-sync engine",
		Long:    "Animates facial blendshape channels from timed phoneme sequences,\nwith coarticulation-aware intensity shaping and temporal blending.",
		Version: version,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default ~/.cortexlipsync/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&sinkType, "sink", "", "override output sink: console, websocket, none")

	playCmd := &cobra.Command{
		Use:   "play <speech-file>",
		Short: "Animate a phoneme sequence from a JSON or YAML speech file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := buildPipeline(configPath, sinkType)
			if err != nil {
				return err
			}
			defer p.close()

			seq, err := loadSequence(args[0])
			if err != nil {
				return err
			}
			if len(seq) == 0 {
				return fmt.Errorf("no phonemes in %s", args[0])
			}

			if metricsAddr != "" {
				go func() {
					mux := http.NewServeMux()
					mux.Handle("/metrics", promhttp.Handler())
					if err := http.ListenAndServe(metricsAddr, mux); err != nil {
						p.logger.Warn().Err(err).Msg("Metrics server stopped")
					}
				}()
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if emotion != "" {
				p.mapper.SetEmotionPreset(intensity.EmotionPreset(emotion))
			}
			p.mapper.AnimateSequence(ctx, seq, nil)
			runFrameLoop(ctx, p.mapper)

			stats := p.cache.Stats(ctx)
			p.logger.Info().
				Int("phonemes", len(seq)).
				Int64("cacheHits", stats.L1Hits+stats.L2Hits+stats.L3Hits).
				Int64("cacheMisses", stats.Misses).
				Msg("Playback finished")
			return nil
		},
	}
	playCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address during playback")
	playCmd.Flags().StringVar(&emotion, "emotion", "", "emotion preset: neutral, happy, sad, excited, surprised, angry")

	warmCmd := &cobra.Command{
		Use:   "warm",
		Short: "Precompute cache entries for common phoneme contexts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := buildPipeline(configPath, "none")
			if err != nil {
				return err
			}
			defer p.close()

			written := p.mapper.WarmCache(cmd.Context())
			fmt.Printf("Warmed %d cache entries\n", written)
			return nil
		},
	}

	targetsCmd := &cobra.Command{
		Use:   "targets [phoneme]",
		Short: "List blendshape channels, or the channels a phoneme drives",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				for i := blendshape.Index(0); i < blendshape.Count; i++ {
					fmt.Printf("%2d  %s\n", int(i), i)
				}
				return nil
			}

			p := phoneme.Normalize(args[0])
			if !phoneme.Known(p) {
				return fmt.Errorf("unknown phoneme %q", args[0])
			}
			mapping, _ := mapper.MappingFor(p)
			targets := mapping.Targets()
			if len(targets) == 0 {
				fmt.Printf("%s drives no channels (silence)\n", p)
				return nil
			}
			labels := [3]string{"primary", "secondary", "tertiary"}
			for i, idx := range targets {
				fmt.Printf("%-9s  %2d  %s\n", labels[i], int(idx), idx)
			}
			return nil
		},
	}

	phonemesCmd := &cobra.Command{
		Use:   "phonemes",
		Short: "List the phoneme vocabulary",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			symbols := make([]string, 0, len(phoneme.All))
			for _, p := range phoneme.All {
				symbols = append(symbols, string(p))
			}
			sort.Strings(symbols)
			fmt.Println(strings.Join(symbols, " "))
		},
	}

	rootCmd.AddCommand(playCmd, warmCmd, targetsCmd, phonemesCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// runFrameLoop drives the mapper at animation cadence until it goes idle
// or the context is cancelled.
func runFrameLoop(ctx context.Context, m *mapper.Mapper) {
	const frame = 16 * time.Millisecond
	ticker := time.NewTicker(frame)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			m.CancelSequence()
			return
		case now := <-ticker.C:
			m.Update(ctx, now.Sub(last))
			last = now
			if m.Idle() {
				return
			}
		}
	}
}
