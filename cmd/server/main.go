// Package main is the entry point for the Insyn API
package main

import (
	"fmt"
	"log"

	"github.com/labstack/echo/v4"
	"github.com/mbergqvist/insynsapi/internal/api"
	"github.com/mbergqvist/insynsapi/internal/api/middleware"
	"github.com/mbergqvist/insynsapi/internal/config"
	"github.com/mbergqvist/insynsapi/internal/figi"
	"github.com/mbergqvist/insynsapi/internal/repository"
	"github.com/mbergqvist/insynsapi/internal/search"
	"github.com/mbergqvist/insynsapi/internal/service"
	"github.com/mbergqvist/insynsapi/pkg/utils/zaplogger"
)

func main() {
	// Load configuration
	cfg, err := config.Get()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Print the configuration
	fmt.Println(cfg.String())

	// Setup logger
	defer zaplogger.Sync()
	zaplogger.SetLogLevel(cfg.ServerLogLevel)
	zaplogger.Info(cfg.APIName + " - " + cfg.APIVersion + " initialized")

	// Connect to Postgres
	db, err := repository.ConnectPostgres(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to Postgres: %v", err)
	}

	// Connect Redis
	redisClient, err := repository.ConnectRedis(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	zaplogger.Info("Redis initialized")

	// Build the services
	tradeRepo := repository.NewTradeRepository(db)
	figiClient := figi.NewClient(cfg.FigiAPIURL, cfg.FigiAPIKey)
	symbolService := service.NewSymbolService(figiClient)
	tradeService := service.NewTradeService(tradeRepo, symbolService, redisClient)
	fetchService := service.NewFetchService(cfg.FeedURL)

	searchEngine, err := search.NewEngine()
	if err != nil {
		log.Fatalf("Failed to create search engine: %v", err)
	}
	if trades, err := tradeService.GetInsiderTrades(); err == nil {
		if err := searchEngine.Rebuild(trades); err != nil {
			zaplogger.Warn("failed to build search index", zaplogger.Fields{"error": err.Error()})
		}
	}

	// Create a new Echo instance
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Setup middleware
	middleware.SetupLoggerMiddleware(e)

	// Setup routes
	api.SetupRoutes(e, cfg, tradeService, searchEngine)

	// Setup and start cron jobs
	cronService := service.NewCronService(cfg, redisClient, fetchService, tradeService, searchEngine)
	cronService.Start()

	// Start the server
	startServer(e, cfg)
}

// startServer starts the Echo server on the specified port
func startServer(e *echo.Echo, cfg *config.Config) {
	port := cfg.ServerPort
	if port == "" {
		port = "3008"
	}
	zaplogger.Info("SERVER STARTED ON PORT " + port)
	e.Logger.Fatal(e.Start(":" + port))
}
