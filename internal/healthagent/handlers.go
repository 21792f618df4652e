package healthagent

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/careroute/careroute/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const (
	ServiceName = "Hospital Agent Server"
	ACPAgent    = "health_agent"
)

// Pinger reports whether the doctor search server is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
	URL() string
}

type Handler struct {
	service *Service
	mcp     Pinger
	logger  *logrus.Logger
}

func NewHandler(service *Service, mcp Pinger, logger *logrus.Logger) *Handler {
	return &Handler{service: service, mcp: mcp, logger: logger}
}

func (h *Handler) RegisterRoutes(r gin.IRouter) {
	r.GET("/", h.Root)
	r.GET("/health", h.Health)
	r.POST("/query", h.Query)
	r.POST("/run_sync", h.RunSync)
}

func (h *Handler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service":         ServiceName,
		"status":          "running",
		"mcp_server":      h.mcp.URL(),
		"model_available": h.service.ModelAvailable(),
	})
}

func (h *Handler) Health(c *gin.Context) {
	mcpStatus := "healthy"
	if err := h.mcp.Ping(c.Request.Context()); err != nil {
		h.logger.WithError(err).Debug("Doctor search server unreachable")
		mcpStatus = "unreachable"
	}

	c.JSON(http.StatusOK, gin.H{
		"status":          "healthy",
		"service":         ServiceName,
		"mcp_server":      mcpStatus,
		"model_available": h.service.ModelAvailable(),
	})
}

// Query is the endpoint the orchestrator calls.
func (h *Handler) Query(c *gin.Context) {
	var req models.AgentQueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.AgentQueryResponse{Success: false, Error: fmt.Sprintf("Invalid request: %v", err)})
		return
	}

	if strings.TrimSpace(req.Query) == "" {
		c.JSON(http.StatusBadRequest, models.AgentQueryResponse{Success: false, Error: "Query cannot be empty"})
		return
	}

	switch req.Agent {
	case "", "hospital", "doctor":
	default:
		c.JSON(http.StatusBadRequest, models.AgentQueryResponse{Success: false, Error: "Agent must be 'hospital' or 'doctor'"})
		return
	}

	result := h.service.Answer(c.Request.Context(), req.Location, req.Query)
	c.JSON(http.StatusOK, models.AgentQueryResponse{Success: true, Result: result})
}

// RunSync serves the ACP-style envelope.
func (h *Handler) RunSync(c *gin.Context) {
	var req models.RunSyncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid agent specified"})
		return
	}

	if req.Agent != ACPAgent {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Invalid agent specified: %s", req.Agent)})
		return
	}

	result := h.service.Answer(c.Request.Context(), "", req.Input)
	c.JSON(http.StatusOK, models.RunSyncResponse{
		Success: true,
		Output:  []models.Message{{Parts: []models.MessagePart{{Content: result}}}},
	})
}
