package config

import (
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Watcher reloads a config file when it changes on disk and hands the
// fresh config to a callback.
type Watcher struct {
	path     string
	onChange func(*Config)
	logger   zerolog.Logger
	watcher  *fsnotify.Watcher
	done     chan struct{}
}

// NewWatcher starts watching path. onChange runs on each successful reload;
// unreadable intermediate states (editors write in multiple steps) are
// logged and skipped.
func NewWatcher(path string, logger zerolog.Logger, onChange func(*Config)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	// Watch the directory: editors often replace the file rather than
	// writing it in place, which drops a watch on the file itself.
	if err := fw.Add(filepath.Dir(path)); err != nil {
		fw.Close()
		return nil, err
	}

	w := &Watcher{
		path:     path,
		onChange: onChange,
		logger:   logger.With().Str("component", "config").Logger(),
		watcher:  fw,
		done:     make(chan struct{}),
	}

	go w.watchLoop()

	return w, nil
}

func (w *Watcher) watchLoop() {
	var lastReload time.Time
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Name != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			// Debounce bursts of events from a single save.
			if time.Since(lastReload) < 100*time.Millisecond {
				continue
			}
			lastReload = time.Now()

			cfg, err := LoadFile(w.path)
			if err != nil {
				w.logger.Warn().Err(err).Msg("Config reload failed")
				continue
			}
			w.logger.Info().Str("path", w.path).Msg("Config reloaded")
			w.onChange(cfg)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn().Err(err).Msg("Config watcher error")
		}
	}
}

// Close stops the watcher
func (w *Watcher) Close() error {
	close(w.done)
	return w.watcher.Close()
}
