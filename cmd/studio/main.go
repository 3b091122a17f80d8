package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/kris790/Kaleidoscope/internal/bootstrap"
	"github.com/kris790/Kaleidoscope/internal/http/handlers"
	httpapi "github.com/kris790/Kaleidoscope/internal/http/httpapi"
	"github.com/kris790/Kaleidoscope/internal/infra"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx := context.Background()
	rt, err := bootstrap.Build(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to start studio")
	}
	logger.Info().
		Str("backend", rt.Backend).
		Str("account_id", rt.Ledger.AccountID()).
		Int("balance", rt.Ledger.Balance()).
		Int("projects", rt.Restored).
		Msg("studio ready")

	app := handlers.NewApp(rt.Studio, rt.Pricing, rt.Backend, logger)
	router := httpapi.NewRouter(app, httpapi.RouterOptions{
		CORSOrigins:     cfg.CORSOrigins,
		RateLimitPerMin: cfg.RateLimitPerMin,
		JWTSecret:       cfg.JWTSecret,
	})
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on %s", server.Addr())
		if err := server.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	// In-flight generations settle as cancelled and are never charged.
	drainCtx, cancelDrain := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelDrain()
	if err := rt.Close(drainCtx); err != nil {
		logger.Error().Err(err).Msg("failed to drain generations")
	}
	logger.Info().Msg("server stopped")
}
