package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"clinsight/internal/artifact"
	"clinsight/internal/config"
	"clinsight/internal/handler"
	"clinsight/internal/history"
	"clinsight/internal/predictor"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr}).Level(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config error")
	}
	gin.SetMode(cfg.GinMode)

	// The model artifacts either load at startup or the process refuses
	// to serve; there is no degraded no-model mode.
	bundle, err := artifact.LoadBundle(cfg.ModelPath)
	if err != nil {
		log.Fatal().Err(err).Msg("loading model bundle failed")
	}
	report, err := artifact.LoadMetricsReport(cfg.MetricsPath)
	if err != nil {
		log.Fatal().Err(err).Msg("loading metrics report failed")
	}
	log.Info().
		Str("best_model", bundle.BestModel).
		Int("diseases", len(bundle.Classes)).
		Int("symptoms", len(bundle.Symptoms)).
		Msg("model bundle loaded")

	ctx := context.Background()
	var store history.Store = history.NewMemoryStore()
	if cfg.EnableDB {
		pg, err := history.NewPostgresStore(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("database connection failed")
		}
		defer pg.Close()
		store = pg
		log.Info().Msg("prediction history backed by postgres")
	}

	pred := predictor.New(bundle, log.With().Str("component", "predictor").Logger())
	h := handler.New(pred, report, store, log.With().Str("component", "handler").Logger())
	router := handler.NewRouter(h, log.Logger, handler.RouterOptions{
		StaticDir:      cfg.StaticDir,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	log.Info().Str("port", cfg.Port).Msg("server listening")
	waitForShutdown(server)
}

func waitForShutdown(server *http.Server) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info().Msg("shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
