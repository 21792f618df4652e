package mcp

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/careroute/careroute/internal/directory"
	"github.com/careroute/careroute/pkg/utils"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/xeipuuv/gojsonschema"
)

// ErrEmptyState is returned by doctor_search when the state is blank.
var ErrEmptyState = errors.New("state must not be empty")

type toolFunc func(args map[string]interface{}) (string, error)

type registeredTool struct {
	Tool
	schema *gojsonschema.Schema
	call   toolFunc
}

// Server exposes the doctor directory over JSON-RPC and plain REST.
type Server struct {
	dir    *directory.Directory
	tools  map[string]*registeredTool
	order  []string
	logger *logrus.Logger
}

func NewServer(dir *directory.Directory, logger *logrus.Logger) (*Server, error) {
	s := &Server{
		dir:    dir,
		tools:  make(map[string]*registeredTool),
		logger: logger,
	}

	err := s.register(Tool{
		Name:        ToolDoctorSearch,
		Description: "Search for doctors by two-letter US state code (e.g. 'CA', 'NY', 'TX').",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"state": map[string]interface{}{
					"type":        "string",
					"description": "Two-letter US state code",
				},
			},
			"required": []interface{}{"state"},
		},
	}, s.doctorSearch)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Server) register(tool Tool, call toolFunc) error {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(tool.InputSchema))
	if err != nil {
		return fmt.Errorf("invalid input schema for tool %s: %w", tool.Name, err)
	}
	s.tools[tool.Name] = &registeredTool{Tool: tool, schema: schema, call: call}
	s.order = append(s.order, tool.Name)
	return nil
}

func (s *Server) RegisterRoutes(r gin.IRouter) {
	r.GET("/", s.Info)
	r.POST("/", s.HandleRPC)
	r.POST("/mcp", s.HandleRPC)
	r.POST("/doctor_search", s.DoctorSearch)
	r.GET("/health", s.Health)
}

func (s *Server) Info(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"name":    ServerName,
		"version": ServerVersion,
		"tools":   s.order,
	})
}

func (s *Server) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": ServerName,
		"doctors": s.dir.Len(),
		"states":  s.dir.States(),
	})
}

// DoctorSearch is the REST shortcut for the doctor_search tool.
func (s *Server) DoctorSearch(c *gin.Context) {
	var req DoctorSearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request", err)
		return
	}

	result, err := s.doctorSearch(map[string]interface{}{"state": req.State})
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request", err)
		return
	}
	c.JSON(http.StatusOK, DoctorSearchResponse{Result: result})
}

// HandleRPC serves a single JSON-RPC 2.0 request.
func (s *Server) HandleRPC(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusOK, errorResponse(nil, CodeParseError, "failed to read request body"))
		return
	}

	var req Request
	if err := json.Unmarshal(body, &req); err != nil {
		c.JSON(http.StatusOK, errorResponse(nil, CodeParseError, "Parse error"))
		return
	}

	if req.JSONRPC != "2.0" || req.Method == "" {
		c.JSON(http.StatusOK, errorResponse(req.ID, CodeInvalidRequest, "Invalid Request"))
		return
	}

	// notifications carry no id and get no response body
	if len(req.ID) == 0 && strings.HasPrefix(req.Method, "notifications/") {
		c.Status(http.StatusAccepted)
		return
	}

	s.logger.WithFields(logrus.Fields{
		"method": req.Method,
	}).Debug("MCP request received")

	result, rpcErr := s.dispatch(req)
	if rpcErr != nil {
		c.JSON(http.StatusOK, Response{JSONRPC: "2.0", ID: normalizeID(req.ID), Error: rpcErr})
		return
	}
	c.JSON(http.StatusOK, Response{JSONRPC: "2.0", ID: normalizeID(req.ID), Result: result})
}

func (s *Server) dispatch(req Request) (interface{}, *RPCError) {
	switch req.Method {
	case "initialize":
		return gin.H{
			"protocolVersion": ProtocolVersion,
			"serverInfo":      gin.H{"name": ServerName, "version": ServerVersion},
			"capabilities":    gin.H{"tools": gin.H{}},
		}, nil
	case "ping":
		return gin.H{}, nil
	case "tools/list":
		tools := make([]Tool, 0, len(s.order))
		for _, name := range s.order {
			tools = append(tools, s.tools[name].Tool)
		}
		return gin.H{"tools": tools}, nil
	case "tools/call":
		return s.callTool(req.Params)
	default:
		return nil, &RPCError{Code: CodeMethodNotFound, Message: fmt.Sprintf("Method not found: %s", req.Method)}
	}
}

func (s *Server) callTool(raw json.RawMessage) (interface{}, *RPCError) {
	var params CallParams
	if len(raw) == 0 {
		return nil, &RPCError{Code: CodeInvalidParams, Message: "missing params"}
	}
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, &RPCError{Code: CodeInvalidParams, Message: fmt.Sprintf("invalid params: %v", err)}
	}

	tool, ok := s.tools[params.Name]
	if !ok {
		return nil, &RPCError{Code: CodeMethodNotFound, Message: fmt.Sprintf("Unknown tool: %s", params.Name)}
	}

	args := params.Arguments
	if args == nil {
		args = map[string]interface{}{}
	}

	result, err := tool.schema.Validate(gojsonschema.NewGoLoader(args))
	if err != nil {
		return nil, &RPCError{Code: CodeInvalidParams, Message: fmt.Sprintf("argument validation failed: %v", err)}
	}
	if !result.Valid() {
		var problems []string
		for _, desc := range result.Errors() {
			problems = append(problems, desc.String())
		}
		return nil, &RPCError{Code: CodeInvalidParams, Message: "Invalid arguments: " + strings.Join(problems, "; ")}
	}

	text, err := tool.call(args)
	if err != nil {
		s.logger.WithError(err).WithField("tool", params.Name).Error("Tool call failed")
		return CallResult{Content: []Content{{Type: "text", Text: err.Error()}}, IsError: true}, nil
	}
	return CallResult{Content: []Content{{Type: "text", Text: text}}}, nil
}

func (s *Server) doctorSearch(args map[string]interface{}) (string, error) {
	state, _ := args["state"].(string)
	state = strings.ToUpper(strings.TrimSpace(state))
	if state == "" {
		return "", ErrEmptyState
	}

	result := s.dir.Lookup(state)
	s.logger.WithFields(logrus.Fields{
		"state":   state,
		"matches": len(s.dir.Search(state)),
	}).Info("Doctor search")
	return result, nil
}

func errorResponse(id json.RawMessage, code int, message string) Response {
	return Response{
		JSONRPC: "2.0",
		ID:      normalizeID(id),
		Error:   &RPCError{Code: code, Message: message},
	}
}

func normalizeID(id json.RawMessage) json.RawMessage {
	if len(id) == 0 {
		return json.RawMessage("null")
	}
	return id
}
