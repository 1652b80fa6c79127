package monitoring

import "github.com/retailworks/shopchat/internal/model/chat"

// Conversation is one handler's transcript within a session.
type Conversation struct {
	ConversationID string         `json:"conversation_id"`
	HandlerType    string         `json:"handler_type"`
	SessionID      string         `json:"session_id"`
	Messages       []chat.Message `json:"messages"`
	MessageCount   int            `json:"message_count"`
	UpdatedAt      string         `json:"updated_at"`
}

// SharedContext is the cross-handler state the assistant accumulates
// for a session.
type SharedContext struct {
	SessionID       string            `json:"session_id,omitempty"`
	Products        []chat.Product    `json:"products,omitempty"`
	Orders          []chat.Order      `json:"orders,omitempty"`
	UserPreferences map[string]string `json:"user_preferences,omitempty"`
	SearchHistory   []string          `json:"search_history,omitempty"`
	LastUpdated     string            `json:"last_updated,omitempty"`
}

// RoutingDecision records one turn's dispatch to a handler.
type RoutingDecision struct {
	Timestamp       string `json:"timestamp"`
	AssistantNumber string `json:"assistant_number"`
	HandlerName     string `json:"handler_name"`
	UserMessage     string `json:"user_message"`
	Decision        string `json:"routing_decision"`
	Reasoning       string `json:"routing_reasoning"`
	MessageID       string `json:"message_id"`
}

// RouterData is the routing history for a session, most recent first.
type RouterData struct {
	SessionID string            `json:"session_id"`
	Decisions []RoutingDecision `json:"routing_decisions"`
}

// SessionSummary is the monitoring view of one session.
type SessionSummary struct {
	SessionID    string `json:"session_id"`
	UserID       string `json:"user_id"`
	CreatedAt    string `json:"created_at"`
	LastActivity string `json:"last_activity"`
	MessageCount int    `json:"message_count"`
	Title        string `json:"title"`
}

// Metric is one request's performance record.
type Metric struct {
	Timestamp     string  `json:"timestamp"`
	HandlerType   string  `json:"handler_type"`
	SessionID     string  `json:"session_id"`
	UserID        string  `json:"user_id,omitempty"`
	ResponseTime  float64 `json:"response_time"`
	MessageLength int     `json:"message_length"`
	UseAgent      bool    `json:"use_agent"`
}

// AgentMessage is one turn of an agent-mode conversation.
type AgentMessage struct {
	Timestamp string           `json:"timestamp"`
	Role      string           `json:"role"`
	Content   string           `json:"content"`
	MessageID string           `json:"message_id"`
	Metadata  AgentMessageMeta `json:"metadata"`
}

// AgentMessageMeta tags a message with its producing agent.
type AgentMessageMeta struct {
	AgentType string `json:"agent_type"`
	ToolUse   bool   `json:"tool_use"`
}

// AgentMetadata summarizes an agent conversation.
type AgentMetadata struct {
	TotalMessages     int      `json:"total_messages"`
	UserMessages      int      `json:"user_messages"`
	AssistantMessages int      `json:"assistant_messages"`
	ToolExecutions    int      `json:"tool_executions"`
	AgentTypesUsed    []string `json:"agent_types_used"`
	LastActivity      string   `json:"last_activity,omitempty"`
}

// AggregatedMetrics are event-loop totals and per-message averages.
type AggregatedMetrics struct {
	TotalCycles           float64 `json:"total_cycles"`
	TotalDuration         float64 `json:"total_duration"`
	TotalTokens           int     `json:"total_tokens"`
	AvgCyclesPerMessage   float64 `json:"avg_cycles_per_message"`
	AvgDurationPerMessage float64 `json:"avg_duration_per_message"`
	AvgTokensPerMessage   float64 `json:"avg_tokens_per_message"`
}

// MetricsSnapshot is one assistant turn's event-loop sample.
type MetricsSnapshot struct {
	MessageNumber int     `json:"message_number"`
	Timestamp     string  `json:"timestamp"`
	Cycles        float64 `json:"cycles"`
	Duration      float64 `json:"duration"`
	Tokens        int     `json:"tokens"`
}

// EventLoopMetrics carries the per-session metrics timeline.
type EventLoopMetrics struct {
	HasMetrics        bool               `json:"has_metrics"`
	TotalSnapshots    int                `json:"total_snapshots,omitempty"`
	AggregatedMetrics *AggregatedMetrics `json:"aggregated_metrics,omitempty"`
	SnapshotsTimeline []MetricsSnapshot  `json:"snapshots_timeline,omitempty"`
}

// AgentConversation is the full agent-mode view of a session.
type AgentConversation struct {
	SessionID        string           `json:"session_id"`
	AgentMessages    []AgentMessage   `json:"agent_messages"`
	AgentMetadata    AgentMetadata    `json:"agent_metadata"`
	EventLoopMetrics EventLoopMetrics `json:"event_loop_metrics"`
	HasMetrics       bool             `json:"has_metrics"`
	RetrievedAt      string           `json:"retrieved_at"`
}
