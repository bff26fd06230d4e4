// Package reaper removes stored files whose expiry timestamp has passed.
package reaper

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/zeybek/gopaste/internal/config"
	"github.com/zeybek/gopaste/internal/paste"
	"github.com/zeybek/gopaste/internal/storage"
)

// Reaper periodically sweeps the upload directories.
type Reaper struct {
	holder *config.Holder
	logger zerolog.Logger
}

// New builds a Reaper reading its settings from holder.
func New(holder *config.Holder, logger zerolog.Logger) *Reaper {
	return &Reaper{holder: holder, logger: logger}
}

// Run sweeps until ctx is cancelled. A fresh configuration snapshot is taken
// at every cycle boundary, so toggling the cleaner takes effect within one
// interval.
func (r *Reaper) Run(ctx context.Context) {
	for {
		cfg := r.holder.Load()
		interval := config.DefaultCleanupInterval
		enabled := false
		if cleanup := cfg.Paste.DeleteExpiredFiles; cleanup != nil {
			enabled = cleanup.Enabled
			if cleanup.Interval.Duration > 0 {
				interval = cleanup.Interval.Duration
			}
		}
		if enabled {
			r.sweep(cfg)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
		}
	}
}

// sweep unlinks every expired file. Errors are logged and do not abort the
// cycle; losing a race against a concurrent consume is fine.
func (r *Reaper) sweep(cfg *config.Config) {
	for _, path := range storage.ExpiredFiles(paste.KindPaths(cfg.Server.UploadPath)) {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			r.logger.Error().Err(err).Str("file", path).Msg("cannot delete expired file")
			continue
		}
		// the password sidecar is keyed on the served name; a consumed
		// one-shot uploaded with an expiry carries two timestamps, so
		// strip until none remain
		served := path
		for storage.TimestampExtension.MatchString(served) {
			served = storage.TimestampExtension.ReplaceAllString(served, "")
		}
		if err := paste.DeletePasswordFile(served); err != nil {
			r.logger.Error().Err(err).Str("file", served).Msg("cannot delete password file")
		}
		r.logger.Info().Str("file", path).Msg("deleted expired file")
	}
}
