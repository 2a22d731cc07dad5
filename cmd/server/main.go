package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"webattack-detector/go-service/internal/api"
	"webattack-detector/go-service/internal/app"
	"webattack-detector/go-service/internal/logger"
	"webattack-detector/go-service/internal/metrics"
	"webattack-detector/go-service/pkg/config"
)

func main() {
	cfgFile := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgFile)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	logger.Init(cfg.Log.Level, cfg.Log.Format)
	metrics.Init()

	if cfg.Server.GinMode != "" {
		gin.SetMode(cfg.Server.GinMode)
	}

	startCtx, cancelStart := context.WithTimeout(context.Background(), 30*time.Second)
	a, err := app.Build(startCtx, cfg)
	cancelStart()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialise pipeline")
	}
	defer a.Close()

	var store api.PredictionStore
	if a.Store != nil {
		store = a.Store
	} else {
		log.Warn().Msg("Elasticsearch disabled, search endpoints will return 503")
	}

	r := gin.New()
	r.Use(gin.Recovery(), api.LoggingMiddleware())
	api.RegisterRoutes(r, api.NewHandler(a.Pipeline, store))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info().
			Str("port", cfg.Server.Port).
			Str("variant", cfg.Pipeline.Variant).
			Str("classifier", cfg.Classifier.URL).
			Msg("web-attack detector listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
	log.Info().Msg("server stopped")
}
