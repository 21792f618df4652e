package insurance

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/careroute/careroute/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const ServiceName = "insurance-agent-server"

// Answerer is implemented by Agent.
type Answerer interface {
	Answer(ctx context.Context, query string) string
}

type Server struct {
	agent    Answerer
	index    *Index
	upgrader websocket.Upgrader
	logger   *logrus.Logger
}

func NewServer(agent Answerer, index *Index, logger *logrus.Logger) *Server {
	return &Server{
		agent: agent,
		index: index,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// service-to-service traffic, no browser origin to check
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
}

func (s *Server) RegisterRoutes(r gin.IRouter) {
	r.GET("/", s.Serve)
	r.GET("/ws", s.Serve)
	r.GET("/health", s.Health)
}

func (s *Server) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   ServiceName,
		"documents": s.index.Len(),
	})
}

// Serve upgrades the connection and answers each message frame in order.
func (s *Server) Serve(c *gin.Context) {
	if !websocket.IsWebSocketUpgrade(c.Request) {
		c.JSON(http.StatusOK, gin.H{"service": ServiceName, "status": "running"})
		return
	}

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.WithError(err).Warn("Websocket upgrade failed")
		return
	}
	defer conn.Close()

	ctx := c.Request.Context()
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.WithError(err).Debug("Websocket closed unexpectedly")
			}
			return
		}

		reply := s.handleFrame(ctx, data)
		if err := conn.WriteJSON(reply); err != nil {
			s.logger.WithError(err).Warn("Failed to write reply")
			return
		}
	}
}

func (s *Server) handleFrame(ctx context.Context, data []byte) models.InsuranceMessage {
	var msg models.InsuranceMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return errorFrame("Invalid message format: expected JSON with type and content")
	}

	if msg.Type != models.InsuranceMessageTypeMessage {
		return errorFrame(fmt.Sprintf("Unsupported message type: %s", msg.Type))
	}

	if strings.TrimSpace(msg.Content) == "" {
		return errorFrame("Message content cannot be empty")
	}

	return models.InsuranceMessage{
		Type:    models.InsuranceMessageTypeMessage,
		Content: s.agent.Answer(ctx, msg.Content),
	}
}

func errorFrame(content string) models.InsuranceMessage {
	return models.InsuranceMessage{Type: models.InsuranceMessageTypeError, Content: content}
}
