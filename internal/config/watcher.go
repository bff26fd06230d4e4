package config

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Watcher reloads the configuration file when it changes on disk and swaps
// the new snapshot into a Holder.
type Watcher struct {
	path   string
	holder *Holder
	logger zerolog.Logger
}

// NewWatcher prepares a watcher for the configuration file at path.
func NewWatcher(path string, holder *Holder, logger zerolog.Logger) *Watcher {
	return &Watcher{path: path, holder: holder, logger: logger}
}

// Run watches until ctx is cancelled. A failed reload keeps the previous
// snapshot in place.
//
// The containing directory is watched rather than the file itself: editors
// and configuration management tend to replace the file, which would
// otherwise silently drop the watch.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()
	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) {
				continue
			}
			cfg, err := Load(w.path)
			if err != nil {
				w.logger.Error().Err(err).Msg("failed to reload config")
				continue
			}
			w.holder.Store(cfg)
			cfg.WarnDeprecation(w.logger)
			w.logger.Info().Str("path", w.path).Msg("config is reloaded")
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error().Err(err).Msg("config watcher error")
		}
	}
}
