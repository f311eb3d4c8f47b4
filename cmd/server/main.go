// backend/cmd/server/main.go
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/Ayash-Bera/placefinder/backend/internal/api"
	"github.com/Ayash-Bera/placefinder/backend/internal/api/handlers"
	"github.com/Ayash-Bera/placefinder/backend/internal/config"
	"github.com/Ayash-Bera/placefinder/backend/internal/database"
	"github.com/Ayash-Bera/placefinder/backend/internal/health"
	"github.com/Ayash-Bera/placefinder/backend/internal/migration"
	"github.com/Ayash-Bera/placefinder/backend/internal/placesapi"
	"github.com/Ayash-Bera/placefinder/backend/internal/repository"
	"github.com/Ayash-Bera/placefinder/backend/internal/services"
	"github.com/Ayash-Bera/placefinder/backend/pkg/utils"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

const (
	healthCheckTimeout  = 3 * time.Second
	poolMetricsInterval = 15 * time.Second
	shutdownTimeout     = 10 * time.Second
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found: %v", err)
	}

	logger := utils.GetLogger()

	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}
	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Fatal("Invalid configuration")
	}

	utils.SetLogLevel(cfg.Log.Level)
	gin.SetMode(cfg.Server.Mode)

	dbManager, err := database.NewManager(&database.Config{
		DatabaseURL: cfg.Database.URL,
		RedisURL:    cfg.Redis.URL,
		LogLevel:    cfg.Database.LogLevel,
	}, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize database manager")
	}
	defer dbManager.Close()

	if err := migration.NewRunner(dbManager.DB, logger).RunMigrations(cfg.Migrations.Path); err != nil {
		logger.WithError(err).Fatal("Failed to run migrations")
	}

	placesClient := placesapi.NewClient(placesapi.Options{
		Endpoint:  cfg.Places.URL,
		APIKey:    cfg.Places.APIKey,
		HealthURL: cfg.Places.HealthURL,
		Timeout:   cfg.Places.Timeout,
	}, logger)

	var cache services.ResultsCache
	if cfg.CacheEnabled() && dbManager.Redis != nil {
		cache = database.NewCache(dbManager.Redis, cfg.Cache.ResultsTTL, logger)
	}

	searchService := services.NewSearchService(
		placesClient,
		repository.NewRepositoryManager(dbManager.DB),
		cache,
		logger,
	)

	checker := health.NewHealthChecker(healthCheckTimeout, logger)
	checker.Register("database", dbManager.PingDatabase, true)
	if dbManager.Redis != nil {
		checker.Register("redis", dbManager.PingRedis, false)
	}
	if placesClient.HealthCheckConfigured() {
		checker.Register("places_api", placesClient.Ping, false)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go database.StartConnectionPoolMetricsCollector(ctx, dbManager.DB, poolMetricsInterval)

	router := api.NewRouter(
		handlers.NewSearchHandler(searchService, logger, cfg.Server.ExposeErrors),
		handlers.NewHealthHandler(checker),
		logger,
	)

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	go func() {
		logger.WithFields(logrus.Fields{
			"port":          cfg.Server.Port,
			"cache_enabled": cache != nil,
		}).Info("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Error("Server stopped unexpectedly")
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Error shutting down server")
	}

	logger.Info("Server stopped")
}
