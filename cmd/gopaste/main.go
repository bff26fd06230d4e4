// gopaste is a minimal file upload/pastebin service.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/zeybek/gopaste/internal/config"
	"github.com/zeybek/gopaste/internal/paste"
	"github.com/zeybek/gopaste/internal/reaper"
	"github.com/zeybek/gopaste/internal/server"
)

// set via -ldflags "-X main.version=..."
var version = "dev"

func main() {
	var configPath string

	cmd := &cobra.Command{
		Use:           "gopaste",
		Short:         "A minimal file upload/pastebin service",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				configPath = os.Getenv(config.ConfigEnv)
				os.Unsetenv(config.ConfigEnv)
			}
			if configPath == "" {
				configPath = "config.toml"
			}
			return run(configPath)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path of the configuration file")

	if err := cmd.Execute(); err != nil {
		logger := zerolog.New(os.Stderr).With().Timestamp().Logger()
		logger.Fatal().Err(err).Msg("server failed")
	}
}

func run(configPath string) error {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	cfg.WarnDeprecation(logger)
	if cfg.Server.UploadPath == "" {
		cfg.Server.UploadPath = "./upload"
	}
	for _, dir := range paste.KindPaths(cfg.Server.UploadPath) {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return err
		}
	}

	holder := config.NewHolder(cfg)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	watcher := config.NewWatcher(configPath, holder, logger)
	go func() {
		if err := watcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error().Err(err).Msg("config watcher stopped")
		}
	}()
	go reaper.New(holder, logger).Run(ctx)

	srv := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           server.New(holder, logger, version).Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	if cfg.Server.Timeout.Duration > 0 {
		srv.ReadTimeout = cfg.Server.Timeout.Duration
		srv.WriteTimeout = cfg.Server.Timeout.Duration
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-shutdown
		logger.Info().Msg("shutting down")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		srv.Shutdown(shutdownCtx)
		cancel()
	}()

	logger.Info().Str("address", cfg.Server.Address).Msgf("starting gopaste %s", version)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
