package agents

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/careroute/careroute/internal/models"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthClient_AskHealth(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/query", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req models.AgentQueryRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "atlanta", req.Location)
		assert.Equal(t, "I need a cardiologist", req.Query)
		assert.Equal(t, "hospital", req.Agent)

		json.NewEncoder(w).Encode(models.AgentQueryResponse{Success: true, Result: "Dr. Sarah Mitchell"})
	}))
	defer server.Close()

	client := NewHealthClient(server.URL, time.Second, logrus.New())
	result, err := client.AskHealth(context.Background(), "atlanta", "I need a cardiologist")
	require.NoError(t, err)
	assert.Equal(t, "Dr. Sarah Mitchell", result)
}

func TestHealthClient_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr func(t *testing.T, err error)
	}{
		{
			name:   "non-200 status",
			status: http.StatusInternalServerError,
			body:   `{"detail":"boom"}`,
			wantErr: func(t *testing.T, err error) {
				var statusErr *StatusError
				require.True(t, errors.As(err, &statusErr))
				assert.Equal(t, http.StatusInternalServerError, statusErr.StatusCode)
				assert.Contains(t, err.Error(), "500")
			},
		},
		{
			name:   "agent reported failure",
			status: http.StatusOK,
			body:   `{"success":false,"error":"mcp down"}`,
			wantErr: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrAgentFailed)
				assert.Contains(t, err.Error(), "mcp down")
			},
		},
		{
			name:   "empty result",
			status: http.StatusOK,
			body:   `{"success":true,"result":""}`,
			wantErr: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrEmptyResponse)
			},
		},
		{
			name:   "malformed body",
			status: http.StatusOK,
			body:   `not json`,
			wantErr: func(t *testing.T, err error) {
				assert.Contains(t, err.Error(), "unmarshal")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := NewHealthClient(server.URL, time.Second, logrus.New())
			_, err := client.AskHealth(context.Background(), "", "q")
			require.Error(t, err)
			tt.wantErr(t, err)
		})
	}
}

func TestHealthClient_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	client := NewHealthClient(url, time.Second, logrus.New())
	_, err := client.AskHealth(context.Background(), "", "q")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "request failed")
	assert.Error(t, client.Ping(context.Background()))
}

func newInsuranceServer(t *testing.T, handle func(conn *websocket.Conn)) *httptest.Server {
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		handle(conn)
	}))
}

func TestInsuranceClient_AskInsurance(t *testing.T) {
	server := newInsuranceServer(t, func(conn *websocket.Conn) {
		var msg models.InsuranceMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		assert.Equal(t, "message", msg.Type)
		conn.WriteJSON(models.InsuranceMessage{Type: "message", Content: "Covered: " + msg.Content})
	})
	defer server.Close()

	client := NewInsuranceClient(server.URL, time.Second, logrus.New())
	assert.True(t, strings.HasPrefix(client.URL(), "ws://"))

	reply, err := client.AskInsurance(context.Background(), "is an MRI covered")
	require.NoError(t, err)
	assert.Equal(t, "Covered: is an MRI covered", reply)
}

func TestInsuranceClient_ErrorFrame(t *testing.T) {
	server := newInsuranceServer(t, func(conn *websocket.Conn) {
		var msg models.InsuranceMessage
		conn.ReadJSON(&msg)
		conn.WriteJSON(models.InsuranceMessage{Type: "error", Content: "index not loaded"})
	})
	defer server.Close()

	client := NewInsuranceClient(server.URL, time.Second, logrus.New())
	_, err := client.AskInsurance(context.Background(), "q")
	assert.ErrorIs(t, err, ErrAgentFailed)
	assert.Contains(t, err.Error(), "index not loaded")
}

func TestInsuranceClient_Timeout(t *testing.T) {
	server := newInsuranceServer(t, func(conn *websocket.Conn) {
		var msg models.InsuranceMessage
		conn.ReadJSON(&msg)
		time.Sleep(300 * time.Millisecond)
	})
	defer server.Close()

	client := NewInsuranceClient(server.URL, 50*time.Millisecond, logrus.New())
	start := time.Now()
	_, err := client.AskInsurance(context.Background(), "q")
	require.Error(t, err)
	assert.Less(t, time.Since(start), 250*time.Millisecond)
}

func TestInsuranceClient_ContextCancel(t *testing.T) {
	server := newInsuranceServer(t, func(conn *websocket.Conn) {
		var msg models.InsuranceMessage
		conn.ReadJSON(&msg)
		time.Sleep(300 * time.Millisecond)
	})
	defer server.Close()

	client := NewInsuranceClient(server.URL, 5*time.Second, logrus.New())
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.AskInsurance(ctx, "q")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestInsuranceClient_Unreachable(t *testing.T) {
	client := NewInsuranceClient("ws://127.0.0.1:1", time.Second, logrus.New())
	_, err := client.AskInsurance(context.Background(), "q")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect")
	assert.Error(t, client.Ping(context.Background()))
}

func TestWebsocketURL(t *testing.T) {
	assert.Equal(t, "ws://host:7001", WebsocketURL("http://host:7001"))
	assert.Equal(t, "wss://host", WebsocketURL("https://host"))
	assert.Equal(t, "ws://host:7001", WebsocketURL("ws://host:7001"))
}
