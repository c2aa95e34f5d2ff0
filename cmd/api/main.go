package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"backdrop/internal/auth"
	"backdrop/internal/http/handlers"
	"backdrop/internal/http/httpapi"
	"backdrop/internal/infra"
	"backdrop/internal/infra/geoip"
	"backdrop/internal/mail"
	"backdrop/internal/middleware"
	"backdrop/internal/providers/replicate"
	"backdrop/internal/quota"
	"backdrop/internal/removal"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx := context.Background()
	dbpool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer dbpool.Close()

	sqlRunner := infra.NewSQLRunner(dbpool, logger)

	countryResolver, err := geoip.NewResolver(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("geoip database unavailable, locale falls back to headers")
	}
	var lookup middleware.CountryLookup
	if countryResolver != nil {
		lookup = countryResolver.CountryCode
	}

	sessions := auth.NewSessions(sqlRunner, logger, cfg.SessionTTL)
	ledger := quota.NewLedger(sqlRunner, nil)
	recorder := quota.NewRecorder(sqlRunner)
	mailer := mail.NewSender(cfg, logger)

	predictions := replicate.NewClient(replicate.Options{
		APIToken: cfg.ReplicateAPIToken,
		BaseURL:  cfg.ReplicateBaseURL,
		Version:  cfg.ReplicateVersion,
		Logger:   &logger,
	})
	if !predictions.HasCredentials() {
		logger.Warn().Msg("REPLICATE_API_TOKEN not set, background removal will be rejected")
	}

	remover := removal.NewOrchestrator(removal.Options{
		Client:       predictions,
		Quota:        ledger,
		Usage:        recorder,
		Logger:       logger,
		PollInterval: cfg.RemovalPollInterval,
		PollDeadline: cfg.RemovalPollDeadline,
	})

	app := &handlers.App{
		SQL:      sqlRunner,
		Logger:   logger,
		Config:   cfg,
		Sessions: sessions,
		Quota:    ledger,
		Remover:  remover,
		Mailer:   mailer,
	}

	router := httpapi.NewRouter(app, sessions, lookup)
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
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
	logger.Info().Msg("server stopped")
}
