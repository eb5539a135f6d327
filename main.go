package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/seo-optimizer/metatags/api"
	"github.com/seo-optimizer/metatags/config"
	"github.com/seo-optimizer/metatags/fetcher"
	"github.com/seo-optimizer/metatags/logging"
	"github.com/seo-optimizer/metatags/middleware"
	"github.com/seo-optimizer/metatags/service"
	"github.com/seo-optimizer/metatags/stats"
	"github.com/seo-optimizer/metatags/store"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Load environment configuration
	envLoaded := config.LoadEnv()

	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Invalid configuration")
	}

	log, err := logging.New(cfg.LogLevel, cfg.LogFormat, cfg.LogFile)
	if err != nil {
		logrus.WithError(err).Fatal("Invalid logging configuration")
	}
	if !envLoaded {
		log.Info("No .env file found, using environment variables")
	}

	gin.SetMode(cfg.GinMode)

	analyses, err := openStore(cfg)
	if err != nil {
		log.WithError(err).WithField("backend", cfg.StoreBackend).Fatal("Failed to open analysis store")
	}

	monthly, err := stats.NewStorage(cfg.DataDir, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to open statistics storage")
	}
	requests := logging.NewStatistics(cfg.DevMode)

	svc := service.New(
		fetcher.New(fetcher.Config{
			Timeout:      cfg.FetchTimeout,
			MaxBodyBytes: cfg.FetchMaxBodyBytes,
			UserAgent:    cfg.FetchUserAgent,
		}, log),
		analyses,
		monthly,
		cfg.RecentLimit,
		log,
	)

	rateLimiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)

	r := gin.New()
	r.Use(middleware.RequestLogger(log))
	r.Use(middleware.ErrorHandler(log))
	r.Use(middleware.CORS(cfg.AllowedOrigins))
	r.Use(rateLimiter.RateLimit())
	r.Use(middleware.Stats(requests))

	api.NewHandler(svc, requests, monthly, log).Register(r)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.WithFields(logrus.Fields{
			"port":    cfg.Port,
			"store":   cfg.StoreBackend,
			"devMode": cfg.DevMode,
		}).Infof("Server starting on http://localhost:%s", cfg.Port)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.WithError(err).Error("Server forced to shut down")
	}
	if err := monthly.Shutdown(); err != nil {
		log.WithError(err).Error("Failed to flush statistics")
	}
	if err := analyses.Close(); err != nil {
		log.WithError(err).Error("Failed to close analysis store")
	}
	log.Info("Server stopped")
}

func openStore(cfg config.Config) (store.Store, error) {
	switch cfg.StoreBackend {
	case config.StoreSQLite:
		return store.NewSQLite(cfg.SQLitePath)
	case config.StoreRedis:
		return store.NewRedis(store.RedisConfig{
			Address:  cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
	default:
		return store.NewMemory(), nil
	}
}
