package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/careroute/careroute/internal/models"
	"github.com/careroute/careroute/internal/orchestrator"
	"github.com/careroute/careroute/pkg/utils"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const (
	ServiceName    = "orchestrator-server"
	ServiceVersion = "1.0.0"
	maxQueryLength = 2000
)

// Processor is implemented by orchestrator.Orchestrator.
type Processor interface {
	Process(ctx context.Context, location, query, forceAgent string) models.QueryResponse
}

// AgentURLs are reported by /health.
type AgentURLs struct {
	HealthAgent    string `json:"health_agent"`
	InsuranceAgent string `json:"insurance_agent"`
	MCPServer      string `json:"mcp_server"`
}

type QueryHandler struct {
	orchestrator Processor
	agents       AgentURLs
	logger       *logrus.Logger
}

func NewQueryHandler(p Processor, agents AgentURLs, logger *logrus.Logger) *QueryHandler {
	return &QueryHandler{
		orchestrator: p,
		agents:       agents,
		logger:       logger,
	}
}

// HandleQuery routes a user query to the right agent.
func (h *QueryHandler) HandleQuery(c *gin.Context) {
	var req models.QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.WithError(err).Warn("Invalid query request")
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request format", err)
		return
	}

	if strings.TrimSpace(req.Query) == "" {
		utils.ErrorResponse(c, http.StatusBadRequest, "Query cannot be empty", nil)
		return
	}

	if len(req.Query) > maxQueryLength {
		utils.ErrorResponse(c, http.StatusBadRequest, "Query too long (max 2000 characters)", nil)
		return
	}

	agent := req.Agent
	if agent == "" {
		agent = "auto"
	}

	ctx := orchestrator.WithRequestID(c.Request.Context(), c.GetString("request_id"))
	resp := h.orchestrator.Process(ctx, req.Location, req.Query, agent)

	h.logger.WithFields(logrus.Fields{
		"request_id": c.GetString("request_id"),
		"agent_used": resp.AgentUsed,
		"success":    resp.Success,
	}).Info("Orchestration completed")

	c.JSON(http.StatusOK, resp)
}

func (h *QueryHandler) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": ServiceName,
		"version": ServiceVersion,
		"agents":  h.agents,
	})
}
