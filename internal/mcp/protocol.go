// Package mcp serves the doctor directory as a JSON-RPC tool server and
// provides the client the health agent uses to query it.
package mcp

import "encoding/json"

const (
	ServerName      = "doctor-search-server"
	ServerVersion   = "1.0.0"
	ProtocolVersion = "2024-11-05"

	ToolDoctorSearch = "doctor_search"
)

// JSON-RPC 2.0 error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  interface{}     `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return e.Message
}

// Tool is the description returned by tools/list.
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

type CallParams struct {
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
}

type Content struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type CallResult struct {
	Content []Content `json:"content"`
	IsError bool      `json:"isError,omitempty"`
}

// DoctorSearchRequest and DoctorSearchResponse are the plain REST form of the
// doctor_search tool.
type DoctorSearchRequest struct {
	State string `json:"state" binding:"required"`
}

type DoctorSearchResponse struct {
	Result string `json:"result"`
}
