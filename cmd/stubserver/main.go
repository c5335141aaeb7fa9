package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-cli/internal/config"
	"github.com/stemsi/exstem-cli/internal/logger"
	"github.com/stemsi/exstem-cli/internal/stubserver"
	"github.com/stemsi/exstem-cli/internal/validator"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.StubPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Msg("Starting exam API stub")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	// ─── Seed In-Memory Store ──────────────────────────────────────────
	store := stubserver.NewStore(clockwork.NewRealClock())
	if err := stubserver.Seed(store, cfg); err != nil {
		log.Fatal().Err(err).Msg("Failed to seed store")
	}
	log.Info().
		Str("demo_email", cfg.DemoEmail).
		Msg("Demo account ready")

	// ─── Setup Router ──────────────────────────────────────────────────
	issuer := stubserver.NewTokenIssuer(cfg.JWTSecret, cfg.JWTExpiry)
	handler := stubserver.NewHandler(store, issuer, log)
	r := stubserver.SetupRouter(cfg, handler, issuer)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:    ":" + cfg.StubPort,
		Handler: r,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.StubPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
