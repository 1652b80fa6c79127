package chat

import "time"

// Message persists individual turns for the monitoring views.
type Message struct {
	ID        string    `json:"message_id"`
	SessionID string    `json:"session_id,omitempty"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"timestamp"`
}
