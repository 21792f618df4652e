package main

import (
	"log"

	"github.com/careroute/careroute/internal/config"
	"github.com/careroute/careroute/internal/database"
	"github.com/careroute/careroute/internal/insurance"
	"github.com/careroute/careroute/internal/metrics"
	"github.com/careroute/careroute/internal/middleware"
	"github.com/careroute/careroute/internal/repository"
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

	index := insurance.NewIndex()
	if _, err := insurance.LoadDir(index, cfg.Insurance.PolicyDir, logger); err != nil {
		logger.WithError(err).Fatal("Failed to load policy files")
	}

	if cfg.Database.URL != "" {
		dbManager, err := database.NewManager(&database.Config{DatabaseURL: cfg.Database.URL, LogLevel: cfg.LogLevel}, logger)
		if err != nil {
			logger.WithError(err).Fatal("Failed to connect to database")
		}
		defer dbManager.Close()

		repos := repository.NewRepositoryManager(dbManager.DB)
		if _, err := insurance.LoadRepository(index, repos.PolicyDocument, logger); err != nil {
			logger.WithError(err).Warn("Policy documents unavailable, continuing with files only")
		}
	}

	if index.Len() == 0 {
		logger.Warn("No policy documents indexed; every query will get the no-match reply")
	}

	agent := insurance.NewAgent(index, server.NewGenerator(ctx, cfg, logger), cfg.Insurance.TopK, logger)

	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestID(), metrics.Middleware(insurance.ServiceName))
	insurance.NewServer(agent, index, logger).RegisterRoutes(router)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	logger.WithFields(logrus.Fields{
		"port":            cfg.Server.InsuranceAgentPort,
		"chunks":          index.Len(),
		"model_available": agent.ModelAvailable(),
	}).Info("Starting insurance agent")

	if err := server.Run(ctx, server.New(cfg.Server.InsuranceAgentPort, router), logger); err != nil {
		logger.WithError(err).Fatal("Insurance agent stopped with error")
	}
}
