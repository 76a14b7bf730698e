package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Rubinstd/LearningBlockchain/internal/api"
	"github.com/Rubinstd/LearningBlockchain/internal/config"
	"github.com/Rubinstd/LearningBlockchain/internal/ledger"
	"github.com/Rubinstd/LearningBlockchain/internal/logging"
	"github.com/Rubinstd/LearningBlockchain/pkg/version"
)

func main() {
	parsed, err := config.ParseNodeFlags(os.Args[1:])
	if err != nil {
		os.Exit(exitWithError(err))
	}
	cfg := parsed.Config

	log := logging.New(logging.Config{
		App:    "chain-node",
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})

	log.Info("starting node",
		"version", version.Get().String(),
		"config", cfg.File,
		"difficulty", cfg.Chain.Difficulty,
		"digest", cfg.Chain.Digest,
	)

	led, err := ledger.New(ledger.Options{
		Difficulty: cfg.Chain.Difficulty,
		Digest:     cfg.Chain.Digest,
		Logger:     log,
	})
	if err != nil {
		os.Exit(exitWithError(err))
	}
	log.Info("genesis ready", "hash", led.LastBlock().Hash)

	if !cfg.API.Enabled {
		log.Warn("api disabled; node has no way to accept transactions")
		waitForShutdown(log)
		return
	}

	srv := api.NewServer(led, api.Config{
		ListenAddr:     cfg.API.ListenAddr,
		ReadTimeout:    cfg.API.ReadTimeout,
		WriteTimeout:   cfg.API.WriteTimeout,
		IdleTimeout:    cfg.API.IdleTimeout,
		MineTimeout:    cfg.API.MineTimeout,
		APIKey:         cfg.API.APIKey,
		AllowedOrigins: cfg.API.AllowedOrigins,
		RatePerMinute:  cfg.API.RatePerMinute,
		RateBurst:      cfg.API.RateBurst,
	}, log)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		if err != nil {
			log.Error("api server failed", "err", err)
			os.Exit(exitWithError(err))
		}
	case <-shutdownSignal(log):
	}

	ctx, cancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Warn("api shutdown", "err", err)
	}
	log.Info("shutdown complete", "blocks", led.Len(), "pending", led.PendingCount())
}

func shutdownSignal(log *slog.Logger) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		waitForShutdown(log)
		close(done)
	}()
	return done
}

func waitForShutdown(log *slog.Logger) {
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	s := <-ch
	log.Info("shutdown signal received", "signal", s.String())
}

func exitWithError(err error) int {
	_, _ = os.Stderr.WriteString("chain-node error: " + err.Error() + "\n")
	return 1
}
