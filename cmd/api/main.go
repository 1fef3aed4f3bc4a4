package main

import (
	"context"
	"net/http"
	"os"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/punchamoorthee/loanops/internal/api"
	"github.com/punchamoorthee/loanops/internal/cache"
	"github.com/punchamoorthee/loanops/internal/config"
	"github.com/punchamoorthee/loanops/internal/service"
	"github.com/punchamoorthee/loanops/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		l := zerolog.New(os.Stderr)
		l.Fatal().Err(err).Msg("config load failed")
	}

	logger := newLogger(cfg.Env)

	pg, err := store.NewPostgres(context.Background(), cfg.DBSource)
	if err != nil {
		logger.Fatal().Err(err).Msg("unable to connect to database")
	}
	defer pg.Close()

	debtors := cache.NewDebtors(cfg.DebtorsCacheTTL, cfg.DebtorsCacheFile)
	ledger := service.NewLedger(pg, debtors, service.Config{
		LoanPeriodDays: cfg.LoanPeriodDays,
		FinePerDay:     cfg.FinePerDay,
		LostFine:       cfg.LostFine,
	}, logger)
	handler := api.NewHandler(ledger, logger)

	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.Handler())
	r.HandleFunc("/health", handler.HealthCheckHandler)

	apiV1 := r.PathPrefix("/api/v1").Subrouter()
	apiV1.Use(api.RequestLogger(logger))
	handler.Routes(apiV1)

	logger.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("server starting")
	if err := http.ListenAndServe(":"+cfg.Port, r); err != nil {
		logger.Fatal().Err(err).Msg("server stopped")
	}
}

func newLogger(env string) zerolog.Logger {
	if env == "development" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}
