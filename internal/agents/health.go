// Package agents holds the orchestrator's adapters for the downstream agents.
package agents

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/careroute/careroute/internal/models"
	"github.com/sirupsen/logrus"
)

var (
	// ErrEmptyResponse is returned when an agent answers with no content.
	ErrEmptyResponse = errors.New("agent returned an empty response")
	// ErrAgentFailed wraps an application-level failure reported by an agent.
	ErrAgentFailed = errors.New("agent reported failure")
)

// StatusError is returned when the health agent answers with a non-200 status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("health agent returned status %d", e.StatusCode)
}

// HealthClient talks to the doctor-search agent over HTTP.
type HealthClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *logrus.Logger
}

func NewHealthClient(baseURL string, timeout time.Duration, logger *logrus.Logger) *HealthClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HealthClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// AskHealth posts the query to the agent's /query endpoint.
func (c *HealthClient) AskHealth(ctx context.Context, location, query string) (string, error) {
	payload := models.AgentQueryRequest{
		Location: location,
		Query:    query,
		Agent:    "hospital",
	}

	var resp models.AgentQueryResponse
	if err := c.makeRequest(ctx, http.MethodPost, "/query", payload, &resp); err != nil {
		return "", err
	}

	if !resp.Success {
		msg := resp.Error
		if msg == "" {
			msg = "unknown error"
		}
		return "", fmt.Errorf("%w: %s", ErrAgentFailed, msg)
	}
	if resp.Result == "" {
		return "", ErrEmptyResponse
	}
	return resp.Result, nil
}

// Ping checks the agent's /health endpoint.
func (c *HealthClient) Ping(ctx context.Context) error {
	return c.makeRequest(ctx, http.MethodGet, "/health", nil, nil)
}

func (c *HealthClient) URL() string {
	return c.baseURL
}

func (c *HealthClient) makeRequest(ctx context.Context, method, endpoint string, payload interface{}, result interface{}) error {
	url := c.baseURL + endpoint

	var body io.Reader
	if payload != nil {
		jsonData, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal payload: %w", err)
		}
		body = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.WithFields(logrus.Fields{
		"method": method,
		"url":    url,
	}).Debug("Calling health agent")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	c.logger.WithFields(logrus.Fields{
		"status_code":   resp.StatusCode,
		"url":           url,
		"response_size": len(responseBody),
	}).Debug("Health agent response received")

	if resp.StatusCode != http.StatusOK {
		return &StatusError{StatusCode: resp.StatusCode, Body: string(responseBody)}
	}

	if result != nil && len(responseBody) > 0 {
		if err := json.Unmarshal(responseBody, result); err != nil {
			return fmt.Errorf("failed to unmarshal response: %w", err)
		}
	}

	return nil
}
