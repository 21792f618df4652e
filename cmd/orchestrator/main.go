package main

import (
	"context"
	"log"
	"time"

	"github.com/careroute/careroute/internal/agents"
	"github.com/careroute/careroute/internal/api"
	"github.com/careroute/careroute/internal/api/handlers"
	"github.com/careroute/careroute/internal/classifier"
	"github.com/careroute/careroute/internal/config"
	"github.com/careroute/careroute/internal/database"
	"github.com/careroute/careroute/internal/health"
	"github.com/careroute/careroute/internal/mcp"
	"github.com/careroute/careroute/internal/middleware"
	"github.com/careroute/careroute/internal/migration"
	"github.com/careroute/careroute/internal/models"
	"github.com/careroute/careroute/internal/orchestrator"
	"github.com/careroute/careroute/internal/repository"
	"github.com/careroute/careroute/internal/server"
	"github.com/careroute/careroute/pkg/utils"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := utils.NewLogger(cfg.LogLevel)
	server.SetGinMode(cfg.LogLevel)

	ctx, stop := server.SignalContext()
	defer stop()

	dbManager, err := database.NewManager(&database.Config{
		DatabaseURL: cfg.Database.URL,
		RedisURL:    cfg.Redis.URL,
		LogLevel:    cfg.LogLevel,
	}, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize storage")
	}
	defer dbManager.Close()

	var routingRepo models.RoutingRecordRepository
	var healthRepo models.SystemHealthRepository
	if dbManager.DB != nil {
		if err := migration.NewRunner(dbManager, logger).RunMigrations("./migrations"); err != nil {
			logger.WithError(err).Fatal("Failed to run migrations")
		}
		repos := repository.NewRepositoryManager(dbManager.DB)
		routingRepo = repos.RoutingRecord
		healthRepo = repos.SystemHealth
	}

	var cache *database.Cache
	var classificationCache classifier.Cache
	if dbManager.Redis != nil {
		cache = database.NewCache(dbManager.Redis, logger)
		classificationCache = cache
	}

	var generator classifier.Generator
	if gen := server.NewGenerator(ctx, cfg, logger); gen != nil {
		generator = gen
	}

	cls := classifier.New(generator, classificationCache, classifier.Options{
		Timeout:  cfg.Orchestrator.ClassifierTimeout,
		CacheTTL: cfg.Cache.ClassificationTTL,
	}, logger)

	healthClient := agents.NewHealthClient(cfg.Orchestrator.HealthAgentURL, cfg.Orchestrator.AgentTimeout, logger)
	insuranceClient := agents.NewInsuranceClient(cfg.Orchestrator.InsuranceAgentURL, cfg.Orchestrator.AgentTimeout, logger)
	mcpClient := mcp.NewClient(cfg.Orchestrator.MCPServerURL, 5*time.Second, logger)

	orch := orchestrator.New(cls, healthClient, insuranceClient, orchestrator.Options{
		AgentTimeout: cfg.Orchestrator.AgentTimeout,
	}, logger)
	var recorder *orchestrator.RepositoryRecorder
	if routingRepo != nil {
		recorder = orchestrator.NewRepositoryRecorder(routingRepo, logger)
		orch.WithRecorder(recorder)
	}

	checker := health.NewHealthChecker(cache, healthRepo, logger)
	if dbManager.DB != nil {
		checker.AddStore("postgresql", health.PingFunc(dbManager.PingDatabase))
	}
	if dbManager.Redis != nil {
		checker.AddStore("redis", health.PingFunc(dbManager.PingRedis))
	}
	checker.
		AddDependency("health_agent", healthClient.URL(), healthClient).
		AddDependency("insurance_agent", insuranceClient.URL(), insuranceClient).
		AddDependency("mcp_server", mcpClient.URL(), mcpClient)

	if cache != nil {
		go checker.PeriodicHealthCheck(ctx, 30*time.Second)
	}

	router := api.NewRouter(ctx, api.RouterConfig{
		Processor: orch,
		Checker:   checker,
		Routing:   handlers.NewRoutingHandler(routingRepo, logger),
		Agents: handlers.AgentURLs{
			HealthAgent:    cfg.Orchestrator.HealthAgentURL,
			InsuranceAgent: cfg.Orchestrator.InsuranceAgentURL,
			MCPServer:      cfg.Orchestrator.MCPServerURL,
		},
		RateLimitPerMinute: cfg.Server.RateLimitPerMinute,
		Logger:             logger,
	})

	logger.WithFields(logrus.Fields{
		"port":            cfg.Server.OrchestratorPort,
		"health_agent":    cfg.Orchestrator.HealthAgentURL,
		"insurance_agent": cfg.Orchestrator.InsuranceAgentURL,
		"llm_enabled":     generator != nil,
		"persistence":     routingRepo != nil,
	}).Info("Starting orchestrator")

	srv := server.New(cfg.Server.OrchestratorPort, middleware.CORS(router, cfg.Server.AllowedOrigins))
	runErr := server.Run(ctx, srv, logger)

	if recorder != nil {
		drainCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := recorder.Close(drainCtx); err != nil {
			logger.WithError(err).Warn("Routing records still pending at shutdown")
		}
		cancel()
	}

	if runErr != nil {
		logger.WithError(runErr).Fatal("Orchestrator stopped with error")
	}
}
