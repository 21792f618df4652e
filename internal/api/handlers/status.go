package handlers

import (
	"context"
	"net/http"

	"github.com/careroute/careroute/internal/health"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Checker is implemented by health.HealthChecker.
type Checker interface {
	CheckAll(ctx context.Context) health.OverallHealth
	CheckCached(ctx context.Context) (*health.OverallHealth, error)
}

type AgentStatus struct {
	URL    string `json:"url"`
	Status string `json:"status"`
}

type StatusHandler struct {
	checker Checker
	logger  *logrus.Logger
}

func NewStatusHandler(checker Checker, logger *logrus.Logger) *StatusHandler {
	return &StatusHandler{checker: checker, logger: logger}
}

// HandleAgentsStatus probes every downstream agent.
func (h *StatusHandler) HandleAgentsStatus(c *gin.Context) {
	overall := h.checker.CheckAll(c.Request.Context())

	status := make(map[string]AgentStatus)
	for _, service := range overall.Services {
		if service.Target == "" {
			continue
		}
		s := AgentStatus{URL: service.Target, Status: health.StatusHealthy}
		if service.Error != "" {
			s.Status = "error: " + service.Error
		}
		status[service.Name] = s
	}

	c.JSON(http.StatusOK, status)
}

// HandleDetailedHealth serves the cached snapshot when one exists.
func (h *StatusHandler) HandleDetailedHealth(c *gin.Context) {
	if cached, err := h.checker.CheckCached(c.Request.Context()); err == nil {
		h.writeHealth(c, *cached)
		return
	}
	h.writeHealth(c, h.checker.CheckAll(c.Request.Context()))
}

func (h *StatusHandler) writeHealth(c *gin.Context, overall health.OverallHealth) {
	code := http.StatusOK
	if overall.Status == health.StatusUnhealthy {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, overall)
}
