package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/harun/toolgate/internal/tracing"
	"github.com/harun/toolgate/pkg/learning"
	"github.com/harun/toolgate/pkg/security"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the gate in the foreground",
	Long: `Run the gate with its maintenance loop, config file watcher and
optional metrics endpoint until interrupted.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	if err := tracing.InitOpenTelemetry("toolgate"); err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracing.ShutdownOpenTelemetry(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("Tracer shutdown failed")
		}
	}()

	// External edits to permissions.json and limits.json hot-reload
	watcher, err := security.NewWatcher(app.gate.Permissions(), app.gate.Tracker(), app.gate.Audit())
	if err != nil {
		return err
	}
	if err := watcher.Start(); err != nil {
		return err
	}
	defer watcher.Stop()

	if err := app.index.Rebuild(context.Background()); err != nil {
		return err
	}

	maintenance := learning.NewMaintenance(app.index, app.cfg.Maintenance.RebuildSchedule)
	if err := maintenance.Start(); err != nil {
		return err
	}
	defer maintenance.Stop()

	var metricsServer *http.Server
	if app.metrics != nil {
		mux := http.NewServeMux()
		mux.Handle("/metrics", app.metrics.Handler())

		metricsServer = &http.Server{
			Addr:    fmt.Sprintf("%s:%d", app.cfg.Metrics.Host, app.cfg.Metrics.Port),
			Handler: mux,
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error().Err(err).Msg("Metrics server failed")
			}
		}()
		log.Info().Str("addr", metricsServer.Addr).Msg("Metrics endpoint listening")
	}

	log.Info().
		Bool("strict", app.gate.Strict()).
		Str("backend", app.cfg.Journal.Backend).
		Msg("Toolgate running")

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info().Msg("Shutting down")

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("Metrics server shutdown failed")
		}
	}

	return nil
}
