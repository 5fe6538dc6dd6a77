// main is the entry point of the bluescore service.
// It initializes the configuration, logger, database, probe engine and scheduler, and starts the HTTP server.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/rs/zerolog/log"
	"github.com/woozymasta/bluescore/internal/config"
	"github.com/woozymasta/bluescore/internal/dispatcher"
	"github.com/woozymasta/bluescore/internal/fake"
	"github.com/woozymasta/bluescore/internal/logger"
	"github.com/woozymasta/bluescore/internal/maintenance"
	"github.com/woozymasta/bluescore/internal/override"
	"github.com/woozymasta/bluescore/internal/probe"
	"github.com/woozymasta/bluescore/internal/recorder"
	"github.com/woozymasta/bluescore/internal/scoreboard"
	"github.com/woozymasta/bluescore/internal/scoring"
	"github.com/woozymasta/bluescore/internal/server"
	"github.com/woozymasta/bluescore/internal/storage"
	"github.com/woozymasta/bluescore/internal/vars"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg := config.Parse()

	logger.Setup(cfg.Logger)
	log.Info().Str("version", vars.Short()).Msg("Starting bluescore service...")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Database
	store, err := storage.New(cfg.Storage.Path)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing database")
		}
	}()

	// Scoring pipeline
	engine := probe.New(probe.Options{
		UserAgent:     cfg.Probe.UserAgent,
		Timeout:       cfg.Probe.Timeout,
		A2SBufferSize: cfg.Probe.A2SBufferSize,
		VerifyTLS:     cfg.Probe.VerifyTLS,
	})
	rec := recorder.New(store,
		recorder.WithWindow(cfg.Cycle.UptimeWindow),
		recorder.WithRetries(cfg.Cycle.Retries),
	)
	board := scoring.NewBoard(store)
	dispatch := dispatcher.New(dispatcher.Deps{
		Registry: store,
		Prober:   engine,
		Recorder: rec,
		Cycles:   store,
		Scorer:   board,
	},
		dispatcher.WithWorkers(cfg.Cycle.Workers),
		dispatcher.WithDeadline(cfg.Cycle.Deadline),
	)

	// data generation or database maintenance
	if cfg.Storage.GenerateCount > 0 {
		if err := fake.GenerateData(ctx, store, rec, board, cfg.Storage.GenerateCount, cfg.Storage.GenerateUptime); err != nil {
			log.Error().Err(err).Msg("Failed to generate fake data")
		}
		return
	}
	handled, err := maintenance.Run(ctx, cfg, maintenance.Deps{Store: store, Scorer: board, Cycles: dispatch})
	if err != nil {
		log.Error().Err(err).Msg("Maintenance task failed")
	}
	if handled {
		return
	}

	// Scoreboard read path
	source, err := scoreboard.NewSource(cfg.Scores.Source, cfg.Scores.Fixture, store)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize scoreboard source")
	}
	publisher := scoreboard.NewPublisher(source, cfg.Scores.CacheTTL)
	defer publisher.Close()
	board.OnChange(publisher.Invalidate)

	// Make sure every team has a rank before the first cycle finishes
	if _, err := board.Recompute(ctx); err != nil {
		log.Error().Err(err).Msg("Failed to compute initial standings")
	}

	// Init server
	srvHandler := server.New(server.Deps{
		Cycles:     dispatch,
		Store:      store,
		Overrides:  override.New(board),
		Scoreboard: publisher,
	}, cfg)
	defer srvHandler.Close()

	httpServer := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      srvHandler.Run(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: cfg.Cycle.Deadline + 10*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("address", cfg.Server.Address).Msg("Server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	// Graceful Shutdown
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Server forced to shutdown")
		}
		return nil
	})

	if cfg.Cycle.Manual {
		log.Info().Msg("Scheduler disabled, cycles run only when triggered")
	} else {
		g.Go(func() error {
			return dispatch.Run(gctx, cfg.Cycle.Interval)
		})
	}

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Server failed")
	}

	log.Info().Msg("Server exited")
}
