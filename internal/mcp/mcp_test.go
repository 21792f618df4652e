package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/careroute/careroute/internal/directory"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dir, err := directory.Load()
	require.NoError(t, err)
	server, err := NewServer(dir, logrus.New())
	require.NoError(t, err)

	router := gin.New()
	server.RegisterRoutes(router)
	return router
}

func rpc(t *testing.T, router *gin.Engine, body string) Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestServer_Info(t *testing.T) {
	router := setupRouter(t)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "doctor-search-server", body["name"])
	assert.Equal(t, "1.0.0", body["version"])
}

func TestServer_ToolsList(t *testing.T) {
	router := setupRouter(t)
	resp := rpc(t, router, `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`)
	require.Nil(t, resp.Error)

	data, err := json.Marshal(resp.Result)
	require.NoError(t, err)
	var result struct {
		Tools []Tool `json:"tools"`
	}
	require.NoError(t, json.Unmarshal(data, &result))
	require.Len(t, result.Tools, 1)
	assert.Equal(t, "doctor_search", result.Tools[0].Name)
	assert.Equal(t, []interface{}{"state"}, result.Tools[0].InputSchema["required"])
}

func TestServer_ToolsCall(t *testing.T) {
	router := setupRouter(t)

	resp := rpc(t, router, `{"jsonrpc":"2.0","id":"a","method":"tools/call","params":{"name":"doctor_search","arguments":{"state":"ga"}}}`)
	require.Nil(t, resp.Error)
	assert.JSONEq(t, `"a"`, string(resp.ID))

	data, err := json.Marshal(resp.Result)
	require.NoError(t, err)
	var result CallResult
	require.NoError(t, json.Unmarshal(data, &result))
	require.Len(t, result.Content, 1)
	assert.Equal(t, "text", result.Content[0].Type)
	assert.Contains(t, result.Content[0].Text, "DOC001")
	assert.Contains(t, result.Content[0].Text, "Dr. Sarah Mitchell")
}

func TestServer_ToolsCallNoDoctors(t *testing.T) {
	router := setupRouter(t)

	resp := rpc(t, router, `{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"doctor_search","arguments":{"state":"NY"}}}`)
	require.Nil(t, resp.Error)
	data, _ := json.Marshal(resp.Result)
	assert.Contains(t, string(data), "No doctors found in state: NY")
}

func TestServer_ToolsCallBlankState(t *testing.T) {
	router := setupRouter(t)

	resp := rpc(t, router, `{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"doctor_search","arguments":{"state":"  "}}}`)
	require.Nil(t, resp.Error)

	data, err := json.Marshal(resp.Result)
	require.NoError(t, err)
	var result CallResult
	require.NoError(t, json.Unmarshal(data, &result))
	assert.True(t, result.IsError)
	require.Len(t, result.Content, 1)
	assert.Equal(t, ErrEmptyState.Error(), result.Content[0].Text)
}

func TestServer_DoctorSearchBlankState(t *testing.T) {
	router := setupRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/doctor_search", strings.NewReader(`{"state":"   "}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), ErrEmptyState.Error())
}

func TestServer_RPCErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		code int
	}{
		{"parse error", `{"jsonrpc":`, CodeParseError},
		{"missing version", `{"id":1,"method":"tools/list"}`, CodeInvalidRequest},
		{"missing method", `{"jsonrpc":"2.0","id":1}`, CodeInvalidRequest},
		{"unknown method", `{"jsonrpc":"2.0","id":1,"method":"resources/list"}`, CodeMethodNotFound},
		{"unknown tool", `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"hospital_search","arguments":{}}}`, CodeMethodNotFound},
		{"missing state", `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"doctor_search","arguments":{}}}`, CodeInvalidParams},
		{"state not a string", `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"doctor_search","arguments":{"state":7}}}`, CodeInvalidParams},
	}

	router := setupRouter(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := rpc(t, router, tt.body)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
			assert.Equal(t, "2.0", resp.JSONRPC)
		})
	}
}

func TestServer_Notification(t *testing.T) {
	router := setupRouter(t)
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"jsonrpc":"2.0","method":"notifications/initialized"}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusAccepted, w.Code)
}

func TestClient_DoctorSearch(t *testing.T) {
	server := httptest.NewServer(setupRouter(t))
	defer server.Close()

	client := NewClient(server.URL, time.Second, logrus.New())
	result, err := client.DoctorSearch(context.Background(), "TX")
	require.NoError(t, err)
	assert.Contains(t, result, "Dr. Priya Patel")

	result, err = client.DoctorSearch(context.Background(), "ZZ")
	require.NoError(t, err)
	assert.Equal(t, "No doctors found in state: ZZ", result)

	assert.NoError(t, client.Ping(context.Background()))
}

func TestClient_RetriesThenSucceeds(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(DoctorSearchResponse{Result: "ok"})
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second, logrus.New()).
		WithRetry(RetryConfig{MaxRetries: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond})

	result, err := client.DoctorSearch(context.Background(), "GA")
	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestClient_GivesUp(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second, logrus.New()).
		WithRetry(RetryConfig{MaxRetries: 2, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond})

	_, err := client.DoctorSearch(context.Background(), "GA")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "operation failed after 2 retries")
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestClient_StopsOnCancelledContext(t *testing.T) {
	client := NewClient("http://127.0.0.1:1", time.Second, logrus.New())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.DoctorSearch(ctx, "GA")
	assert.ErrorIs(t, err, context.Canceled)
}
