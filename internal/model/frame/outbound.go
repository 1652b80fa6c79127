package frame

import "errors"

// Outbound is the single client-to-server frame: one user turn plus the
// shopper profile the assistant personalizes against.
type Outbound struct {
	UserID          string `json:"user_id"`
	Text            string `json:"user_message"`
	Persona         string `json:"user_persona"`
	DiscountPersona string `json:"user_discount_persona"`
	SessionID       string `json:"session_id"`
	Name            string `json:"user_name,omitempty"`
	Email           string `json:"user_email,omitempty"`
	Age             int    `json:"user_age,omitempty"`
	Gender          string `json:"user_gender,omitempty"`
	UseAgent        bool   `json:"use_agent"`
}

// Validate rejects turns the backend would silently drop.
func (o Outbound) Validate() error {
	if o.UserID == "" {
		return errors.New("frame: outbound requires user_id")
	}
	if o.Text == "" {
		return errors.New("frame: outbound requires user_message")
	}
	return nil
}
