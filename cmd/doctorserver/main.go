package main

import (
	"log"

	"github.com/careroute/careroute/internal/config"
	"github.com/careroute/careroute/internal/directory"
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

	dir, err := directory.Load()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load doctor directory")
	}

	mcpServer, err := mcp.NewServer(dir, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize doctor search server")
	}

	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestID(), middleware.Logger(logger), metrics.Middleware(mcp.ServerName))
	mcpServer.RegisterRoutes(router)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	logger.WithFields(logrus.Fields{
		"port":    cfg.Server.DoctorServerPort,
		"doctors": dir.Len(),
		"states":  dir.States(),
	}).Info("Starting doctor search server")

	if err := server.Run(ctx, server.New(cfg.Server.DoctorServerPort, router), logger); err != nil {
		logger.WithError(err).Fatal("Doctor search server stopped with error")
	}
}
