// Package entrypoint starts the long-running HTTP operator surface.
package entrypoint

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/mrlokans/scalesync/internal/config"
	"github.com/mrlokans/scalesync/internal/database"
	"github.com/mrlokans/scalesync/internal/database/runs"
	http_controllers "github.com/mrlokans/scalesync/internal/http"
	"github.com/mrlokans/scalesync/internal/miall"
	"github.com/mrlokans/scalesync/internal/services"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

// Serve runs the HTTP server until ctx is done, then shuts it down within
// cfg.ShutdownTimeout.
func Serve(ctx context.Context, router *gin.Engine, cfg config.HTTP, onShutdown ShutdownFunc, log zerolog.Logger) error {
	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Addr()).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("listen on %s: %w", cfg.Addr(), err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Dur("timeout", cfg.ShutdownTimeout).Msg("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	// Stop the background run first so its final state reaches the journal
	if onShutdown != nil {
		onShutdown(shutdownCtx)
	}

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	log.Info().Msg("Server exiting")
	return nil
}

// Run wires the journal, the sync service and the HTTP surface, and serves
// until ctx is done. load is called once at startup and again for every run.
func Run(ctx context.Context, load http_controllers.ConfigLoader, version string, log zerolog.Logger) error {
	cfg, err := load()
	if err != nil {
		return err
	}

	log.Info().Str("version", version).Msg("Starting scalesync")
	if log.GetLevel() > zerolog.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}

	routerCfg := http_controllers.RouterConfig{
		Version:   version,
		Log:       log.With().Str("component", "http").Logger(),
		MiAllPing: miallPinger(load),
	}

	var (
		journal  services.RunJournal
		activity http_controllers.RunActivity
	)
	if cfg.Journal.Enabled {
		db, err := database.NewDatabase(cfg.Journal.Path, log.With().Str("component", "journal").Logger())
		if err != nil {
			return err
		}
		defer db.Close()

		repo := runs.NewRepository(db.DB)
		if n, err := repo.RecoverInterrupted(); err != nil {
			log.Warn().Err(err).Msg("Failed to close interrupted runs")
		} else if n > 0 {
			log.Warn().Int64("runs", n).Msg("Marked interrupted runs as failed")
		}

		journal = repo
		activity = repo
		routerCfg.Runs = repo
		routerCfg.Database = db
	} else {
		log.Warn().Msg("Run journal is disabled, /api/runs will not be available")
	}

	service := services.NewSyncService(journal, log)
	manager := http_controllers.NewRunManager(service, load, log.With().Str("component", "runs").Logger())
	if activity != nil {
		manager.SetRunActivity(activity)
	}
	routerCfg.Manager = manager

	router := http_controllers.NewRouter(routerCfg)

	return Serve(ctx, router, cfg.HTTP, func(ctx context.Context) {
		if err := manager.Shutdown(ctx); err != nil {
			log.Warn().Err(err).Msg("Sync run did not stop before shutdown timeout")
		}
	}, log)
}

// miallPinger connects with the current configuration, pings and disconnects.
func miallPinger(load http_controllers.ConfigLoader) http_controllers.Pinger {
	return func(ctx context.Context) error {
		cfg, err := load()
		if err != nil {
			return err
		}
		repo, err := miall.Open(ctx, cfg.MiAll)
		if err != nil {
			return err
		}
		return repo.Close()
	}
}
