package main

import (
	"log"

	"github.com/careroute/careroute/internal/config"
	"github.com/careroute/careroute/internal/healthagent"
	"github.com/careroute/careroute/internal/mcp"
	"github.com/careroute/careroute/internal/metrics"
	"github.com/careroute/careroute/internal/middleware"
	"github.com/careroute/careroute/internal/server"
	"github.com/careroute/careroute/pkg/utils"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
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

	mcpClient := mcp.NewClient(cfg.Orchestrator.MCPServerURL, cfg.HealthAgent.MCPTimeout, logger)
	service := healthagent.NewService(mcpClient, server.NewGenerator(ctx, cfg, logger), healthagent.Options{
		DefaultState: cfg.HealthAgent.DefaultState,
		MCPTimeout:   cfg.HealthAgent.MCPTimeout,
	}, logger)

	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestID(), middleware.Logger(logger), metrics.Middleware("health-agent"))
	healthagent.NewHandler(service, mcpClient, logger).RegisterRoutes(router)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	logger.WithFields(logrus.Fields{
		"port":            cfg.Server.HealthAgentPort,
		"mcp_server":      cfg.Orchestrator.MCPServerURL,
		"model_available": service.ModelAvailable(),
	}).Info("Starting health agent")

	if err := server.Run(ctx, server.New(cfg.Server.HealthAgentPort, router), logger); err != nil {
		logger.WithError(err).Fatal("Health agent stopped with error")
	}
}
