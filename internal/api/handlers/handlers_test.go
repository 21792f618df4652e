package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/careroute/careroute/internal/health"
	"github.com/careroute/careroute/internal/models"
	"github.com/careroute/careroute/internal/orchestrator"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProcessor struct {
	calls     int
	location  string
	query     string
	agent     string
	requestID string
}

func (f *fakeProcessor) Process(ctx context.Context, location, query, forceAgent string) models.QueryResponse {
	f.calls++
	f.location, f.query, f.agent = location, query, forceAgent
	f.requestID = orchestrator.RequestIDFrom(ctx)
	return models.QueryResponse{
		Result:     "Dr. Sarah Mitchell",
		Success:    true,
		AgentUsed:  "health_doctor",
		Confidence: 0.8,
		Reasoning:  "LLM classified as health/doctor query",
	}
}

type fakeChecker struct {
	overall health.OverallHealth
	cached  *health.OverallHealth
}

func (f *fakeChecker) CheckAll(ctx context.Context) health.OverallHealth { return f.overall }

func (f *fakeChecker) CheckCached(ctx context.Context) (*health.OverallHealth, error) {
	if f.cached == nil {
		return nil, errors.New("miss")
	}
	return f.cached, nil
}

type fakeRoutingRepo struct {
	limit  int
	counts []models.CategoryCount
	err    error
}

func (f *fakeRoutingRepo) Create(ctx context.Context, r *models.RoutingRecord) error { return nil }

func (f *fakeRoutingRepo) GetRecent(limit int) ([]models.RoutingRecord, error) {
	f.limit = limit
	return []models.RoutingRecord{{RequestID: "r1", QueryText: "q", Category: "insurance"}}, f.err
}

func (f *fakeRoutingRepo) CountByCategory() ([]models.CategoryCount, error) { return f.counts, f.err }

func setup() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set("request_id", "req-1")
		c.Next()
	})
	return router
}

func postJSON(router *gin.Engine, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func get(router *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestHandleQuery(t *testing.T) {
	p := &fakeProcessor{}
	router := setup()
	router.POST("/query", NewQueryHandler(p, AgentURLs{}, logrus.New()).HandleQuery)

	w := postJSON(router, "/query", `{"location":"atlanta","query":"need a cardiologist"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp models.QueryResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "health_doctor", resp.AgentUsed)
	assert.True(t, resp.Success)
	assert.Equal(t, "auto", p.agent)
	assert.Equal(t, "atlanta", p.location)
	assert.Equal(t, "req-1", p.requestID)

	postJSON(router, "/query", `{"query":"copay","agent":"insurance"}`)
	assert.Equal(t, "insurance", p.agent)
}

func TestHandleQuery_Rejects(t *testing.T) {
	p := &fakeProcessor{}
	router := setup()
	router.POST("/query", NewQueryHandler(p, AgentURLs{}, logrus.New()).HandleQuery)

	w := postJSON(router, "/query", `{"query":"   "}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Query cannot be empty")

	w = postJSON(router, "/query", `{"query":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = postJSON(router, "/query", `{"query":"`+strings.Repeat("a", 2001)+`"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	assert.Equal(t, 0, p.calls)
}

func TestHandleHealth(t *testing.T) {
	router := setup()
	agents := AgentURLs{HealthAgent: "http://server:7000", InsuranceAgent: "ws://insurance-server:7001", MCPServer: "http://mcpserver:8333"}
	router.GET("/health", NewQueryHandler(&fakeProcessor{}, agents, logrus.New()).HandleHealth)

	w := get(router, "/health")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{
		"status": "healthy",
		"service": "orchestrator-server",
		"version": "1.0.0",
		"agents": {
			"health_agent": "http://server:7000",
			"insurance_agent": "ws://insurance-server:7001",
			"mcp_server": "http://mcpserver:8333"
		}
	}`, w.Body.String())
}

func TestHandleAgentsStatus(t *testing.T) {
	checker := &fakeChecker{overall: health.OverallHealth{
		Status: health.StatusDegraded,
		Services: []health.ServiceHealth{
			{Name: "redis", Status: health.StatusHealthy},
			{Name: "health_agent", Target: "http://server:7000", Status: health.StatusHealthy},
			{Name: "insurance_agent", Target: "ws://insurance-server:7001", Status: health.StatusDegraded, Error: "connection refused"},
		},
	}}
	router := setup()
	router.GET("/agents/status", NewStatusHandler(checker, logrus.New()).HandleAgentsStatus)

	w := get(router, "/agents/status")
	require.Equal(t, http.StatusOK, w.Code)

	var status map[string]AgentStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Len(t, status, 2)
	assert.Equal(t, AgentStatus{URL: "http://server:7000", Status: "healthy"}, status["health_agent"])
	assert.Equal(t, "error: connection refused", status["insurance_agent"].Status)
}

func TestHandleDetailedHealth(t *testing.T) {
	checker := &fakeChecker{overall: health.OverallHealth{Status: health.StatusUnhealthy}}
	router := setup()
	router.GET("/health/detailed", NewStatusHandler(checker, logrus.New()).HandleDetailedHealth)

	w := get(router, "/health/detailed")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	checker.cached = &health.OverallHealth{Status: health.StatusHealthy}
	w = get(router, "/health/detailed")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRoutingHandler_WithoutPersistence(t *testing.T) {
	h := NewRoutingHandler(nil, logrus.New())
	router := setup()
	router.GET("/recent", h.HandleRecent)
	router.GET("/stats", h.HandleStats)

	assert.Equal(t, http.StatusServiceUnavailable, get(router, "/recent").Code)
	assert.Equal(t, http.StatusServiceUnavailable, get(router, "/stats").Code)
}

func TestRoutingHandler_Recent(t *testing.T) {
	repo := &fakeRoutingRepo{}
	router := setup()
	router.GET("/recent", NewRoutingHandler(repo, logrus.New()).HandleRecent)

	w := get(router, "/recent?limit=500")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 100, repo.limit)
	assert.Contains(t, w.Body.String(), `"request_id":"req-1"`)

	get(router, "/recent?limit=abc")
	assert.Equal(t, 20, repo.limit)
}

func TestRoutingHandler_Stats(t *testing.T) {
	repo := &fakeRoutingRepo{counts: []models.CategoryCount{
		{Category: "health_doctor", Count: 3},
		{Category: "insurance", Count: 2},
	}}
	router := setup()
	router.GET("/stats", NewRoutingHandler(repo, logrus.New()).HandleStats)

	w := get(router, "/stats")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data models.RoutingStats `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, int64(5), body.Data.Total)
	assert.Len(t, body.Data.Categories, 2)

	repo.err = errors.New("db down")
	assert.Equal(t, http.StatusInternalServerError, get(router, "/stats").Code)
}
