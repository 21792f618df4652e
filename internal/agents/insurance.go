package agents

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/careroute/careroute/internal/models"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// InsuranceClient talks to the insurance agent over a websocket. Each call
// opens a connection, sends one message and reads exactly one reply.
type InsuranceClient struct {
	url     string
	timeout time.Duration
	dialer  *websocket.Dialer
	logger  *logrus.Logger
}

func NewInsuranceClient(rawURL string, timeout time.Duration, logger *logrus.Logger) *InsuranceClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &InsuranceClient{
		url:     WebsocketURL(rawURL),
		timeout: timeout,
		dialer: &websocket.Dialer{
			HandshakeTimeout: 10 * time.Second,
			Proxy:            http.ProxyFromEnvironment,
		},
		logger: logger,
	}
}

// WebsocketURL rewrites http(s) schemes to ws(s).
func WebsocketURL(raw string) string {
	switch {
	case strings.HasPrefix(raw, "http://"):
		return "ws://" + strings.TrimPrefix(raw, "http://")
	case strings.HasPrefix(raw, "https://"):
		return "wss://" + strings.TrimPrefix(raw, "https://")
	default:
		return raw
	}
}

func (c *InsuranceClient) URL() string {
	return c.url
}

// AskInsurance sends the query and returns the agent's reply content.
func (c *InsuranceClient) AskInsurance(ctx context.Context, query string) (string, error) {
	conn, err := c.dial(ctx)
	if err != nil {
		return "", err
	}
	defer conn.Close()

	deadline := c.deadline(ctx)
	if err := conn.SetWriteDeadline(deadline); err != nil {
		return "", fmt.Errorf("failed to set write deadline: %w", err)
	}
	msg := models.InsuranceMessage{Type: models.InsuranceMessageTypeMessage, Content: query}
	if err := conn.WriteJSON(msg); err != nil {
		return "", fmt.Errorf("failed to send message: %w", err)
	}

	// unblock the read if the caller goes away before the deadline
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			conn.SetReadDeadline(time.Now())
		case <-stop:
		}
	}()

	if err := conn.SetReadDeadline(deadline); err != nil {
		return "", fmt.Errorf("failed to set read deadline: %w", err)
	}
	var reply models.InsuranceMessage
	if err := conn.ReadJSON(&reply); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		if d, ok := ctx.Deadline(); ok && !time.Now().Before(d) {
			return "", context.DeadlineExceeded
		}
		return "", fmt.Errorf("failed to read reply: %w", err)
	}

	conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))

	c.logger.WithFields(logrus.Fields{
		"type":   reply.Type,
		"length": len(reply.Content),
	}).Debug("Insurance agent reply received")

	if reply.Type == models.InsuranceMessageTypeError {
		return "", fmt.Errorf("%w: %s", ErrAgentFailed, reply.Content)
	}
	if strings.TrimSpace(reply.Content) == "" {
		return "", ErrEmptyResponse
	}
	return reply.Content, nil
}

// Ping opens and closes a connection.
func (c *InsuranceClient) Ping(ctx context.Context) error {
	conn, err := c.dial(ctx)
	if err != nil {
		return err
	}
	conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return conn.Close()
}

func (c *InsuranceClient) dial(ctx context.Context) (*websocket.Conn, error) {
	conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", c.url, err)
	}
	return conn, nil
}

func (c *InsuranceClient) deadline(ctx context.Context) time.Time {
	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		return d
	}
	return deadline
}
