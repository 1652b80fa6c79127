package chat

import "time"

// Session identifies one conversation with the shopping assistant.
type Session struct {
	ID           string    `json:"sessionId"`
	UserID       string    `json:"userId"`
	Title        string    `json:"title"`
	CreatedAt    time.Time `json:"createdAt"`
	LastUsed     time.Time `json:"lastUsed"`
	MessageCount int       `json:"messageCount"`
	AgentMode    bool      `json:"isAgentMode"`
}
