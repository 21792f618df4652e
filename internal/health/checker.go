// Package health checks the orchestrator's stores and downstream agents.
package health

import (
	"context"
	"time"

	"github.com/careroute/careroute/internal/database"
	"github.com/careroute/careroute/internal/models"
	"github.com/sirupsen/logrus"
)

const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// Pinger is implemented by the agent and doctor search clients.
type Pinger interface {
	Ping(ctx context.Context) error
}

type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

type check struct {
	name     string
	target   string
	critical bool
	pinger   Pinger
}

// HealthChecker manages health checks for all services
type HealthChecker struct {
	checks     []check
	cache      *database.Cache
	healthRepo models.SystemHealthRepository
	timeout    time.Duration
	logger     *logrus.Logger
}

// NewHealthChecker builds an empty checker. cache and healthRepo may be nil.
func NewHealthChecker(cache *database.Cache, healthRepo models.SystemHealthRepository, logger *logrus.Logger) *HealthChecker {
	return &HealthChecker{
		cache:      cache,
		healthRepo: healthRepo,
		timeout:    5 * time.Second,
		logger:     logger,
	}
}

// AddStore registers a store whose failure makes the whole system unhealthy.
func (h *HealthChecker) AddStore(name string, p Pinger) *HealthChecker {
	h.checks = append(h.checks, check{name: name, critical: true, pinger: p})
	return h
}

// AddDependency registers a downstream service whose failure degrades the system.
func (h *HealthChecker) AddDependency(name, target string, p Pinger) *HealthChecker {
	h.checks = append(h.checks, check{name: name, target: target, pinger: p})
	return h
}

// ServiceHealth represents the health status of a service
type ServiceHealth struct {
	Name         string `json:"name"`
	Target       string `json:"target,omitempty"`
	Status       string `json:"status"`
	ResponseTime int    `json:"response_time_ms"`
	Error        string `json:"error,omitempty"`
	LastChecked  string `json:"last_checked"`
}

// OverallHealth represents the overall system health
type OverallHealth struct {
	Status   string          `json:"status"`
	Services []ServiceHealth `json:"services"`
	Uptime   string          `json:"uptime"`
}

func (h *HealthChecker) run(ctx context.Context, c check) ServiceHealth {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	start := time.Now()
	err := c.pinger.Ping(ctx)
	responseTime := int(time.Since(start).Milliseconds())

	status := StatusHealthy
	errorMsg := ""
	if err != nil {
		status = StatusDegraded
		if c.critical {
			status = StatusUnhealthy
		}
		errorMsg = err.Error()
		h.logger.WithError(err).WithField("service", c.name).Warn("Health check failed")
	}

	if h.healthRepo != nil {
		if err := h.healthRepo.UpdateServiceHealth(c.name, status, responseTime, errorMsg); err != nil {
			h.logger.WithError(err).Debug("Failed to record service health")
		}
	}

	return ServiceHealth{
		Name:         c.name,
		Target:       c.target,
		Status:       status,
		ResponseTime: responseTime,
		Error:        errorMsg,
		LastChecked:  time.Now().Format(time.RFC3339),
	}
}

// CheckAll performs health checks on all services
func (h *HealthChecker) CheckAll(ctx context.Context) OverallHealth {
	services := make([]ServiceHealth, 0, len(h.checks))
	for _, c := range h.checks {
		services = append(services, h.run(ctx, c))
	}

	return OverallHealth{
		Status:   aggregate(services),
		Services: services,
		Uptime:   h.getUptime(),
	}
}

func aggregate(services []ServiceHealth) string {
	overallStatus := StatusHealthy
	for _, service := range services {
		if service.Status == StatusUnhealthy {
			return StatusUnhealthy
		}
		if service.Status == StatusDegraded {
			overallStatus = StatusDegraded
		}
	}
	return overallStatus
}

// CheckCached returns the last snapshot stored by PeriodicHealthCheck.
func (h *HealthChecker) CheckCached(ctx context.Context) (*OverallHealth, error) {
	if h.cache == nil {
		return nil, database.ErrNotConfigured
	}
	cachedHealth, err := h.cache.GetCachedSystemHealth(ctx)
	if err != nil {
		return nil, err
	}

	services := make([]ServiceHealth, len(cachedHealth))
	for i, health := range cachedHealth {
		services[i] = ServiceHealth{
			Name:         health.ServiceName,
			Status:       health.Status,
			ResponseTime: health.ResponseTimeMs,
			Error:        health.ErrorMessage,
			LastChecked:  health.CheckedAt.Format(time.RFC3339),
		}
	}

	return &OverallHealth{
		Status:   aggregate(services),
		Services: services,
		Uptime:   h.getUptime(),
	}, nil
}

var startTime = time.Now()

func (h *HealthChecker) getUptime() string {
	return time.Since(startTime).Round(time.Second).String()
}

// PeriodicHealthCheck runs health checks periodically
func (h *HealthChecker) PeriodicHealthCheck(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.snapshot(ctx, interval)
		}
	}
}

func (h *HealthChecker) snapshot(ctx context.Context, interval time.Duration) {
	health := h.CheckAll(ctx)

	if h.cache != nil {
		cacheCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		healthModels := make([]models.SystemHealth, len(health.Services))
		for i, service := range health.Services {
			checkedAt, _ := time.Parse(time.RFC3339, service.LastChecked)
			healthModels[i] = models.SystemHealth{
				ServiceName:    service.Name,
				Status:         service.Status,
				ResponseTimeMs: service.ResponseTime,
				ErrorMessage:   service.Error,
				CheckedAt:      checkedAt,
			}
		}

		if err := h.cache.CacheSystemHealth(cacheCtx, healthModels, 2*interval); err != nil {
			h.logger.WithError(err).Error("Failed to cache health status")
		}
	}

	h.logger.WithField("status", health.Status).Debug("Periodic health check completed")
}
