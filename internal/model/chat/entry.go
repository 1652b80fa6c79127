package chat

import "time"

// Role identifies who authored a transcript entry.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Kind identifies what a transcript entry renders as.
type Kind string

const (
	KindPlain          Kind = "plain"
	KindProducts       Kind = "products"
	KindOrder          Kind = "order"
	KindWaiting        Kind = "waiting"
	KindError          Kind = "error"
	KindRecommendation Kind = "recommendation"
)

// Entry is one rendered unit of the conversation transcript.
type Entry struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Kind      Kind      `json:"kind"`
	Text      string    `json:"text,omitempty"`
	Products  []Product `json:"products,omitempty"`
	Order     *Order    `json:"order,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}
