package models

// QueryRequest is the body accepted by the orchestrator's /query endpoint.
type QueryRequest struct {
	Location string `json:"location"`
	Query    string `json:"query"`
	Agent    string `json:"agent"`
}

// QueryResponse is the orchestrator's normalized answer.
type QueryResponse struct {
	Result     string  `json:"result"`
	Success    bool    `json:"success"`
	AgentUsed  string  `json:"agent_used"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

// AgentQueryRequest is what the orchestrator posts to the health agent.
type AgentQueryRequest struct {
	Location string `json:"location,omitempty"`
	Query    string `json:"query"`
	Agent    string `json:"agent,omitempty"`
}

type AgentQueryResponse struct {
	Success bool   `json:"success"`
	Result  string `json:"result,omitempty"`
	Error   string `json:"error,omitempty"`
}

// RunSyncRequest and RunSyncResponse are the ACP envelope of the health agent.
type RunSyncRequest struct {
	Agent string `json:"agent" binding:"required"`
	Input string `json:"input"`
}

type MessagePart struct {
	Content string `json:"content"`
}

type Message struct {
	Parts []MessagePart `json:"parts"`
}

type RunSyncResponse struct {
	Success bool      `json:"success"`
	Output  []Message `json:"output"`
	Error   *string   `json:"error"`
}

// InsuranceMessage is a single websocket frame exchanged with the insurance agent.
type InsuranceMessage struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

const (
	InsuranceMessageTypeMessage = "message"
	InsuranceMessageTypeError   = "error"
)

type RoutingStats struct {
	Total      int64           `json:"total"`
	Categories []CategoryCount `json:"categories"`
}
