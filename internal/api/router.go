// Package api assembles the orchestrator's HTTP surface.
package api

import (
	"context"

	"github.com/careroute/careroute/internal/api/handlers"
	"github.com/careroute/careroute/internal/metrics"
	"github.com/careroute/careroute/internal/middleware"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

type RouterConfig struct {
	Processor          handlers.Processor
	Checker            handlers.Checker
	Routing            *handlers.RoutingHandler
	Agents             handlers.AgentURLs
	RateLimitPerMinute int
	Logger             *logrus.Logger
}

// NewRouter wires middleware and routes. ctx bounds the rate limiter's cleanup goroutine.
func NewRouter(ctx context.Context, cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.SecurityHeaders())
	router.Use(metrics.Middleware(handlers.ServiceName))

	queryHandler := handlers.NewQueryHandler(cfg.Processor, cfg.Agents, cfg.Logger)
	statusHandler := handlers.NewStatusHandler(cfg.Checker, cfg.Logger)
	routingHandler := cfg.Routing
	if routingHandler == nil {
		routingHandler = handlers.NewRoutingHandler(nil, cfg.Logger)
	}

	router.GET("/health", queryHandler.HandleHealth)
	router.GET("/health/detailed", statusHandler.HandleDetailedHealth)
	router.GET("/agents/status", statusHandler.HandleAgentsStatus)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	limiter := middleware.NewRateLimiter(ctx, cfg.RateLimitPerMinute)
	router.POST("/query", limiter.RateLimit(), queryHandler.HandleQuery)

	v1 := router.Group("/api/v1")
	{
		v1.POST("/query", limiter.RateLimit(), queryHandler.HandleQuery)
		v1.GET("/routing/recent", routingHandler.HandleRecent)
		v1.GET("/routing/stats", routingHandler.HandleStats)
	}

	return router
}
