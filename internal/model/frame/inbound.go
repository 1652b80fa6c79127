package frame

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/retailworks/shopchat/internal/model/chat"
)

// Frame types pushed by the assistant over the socket.
const (
	TypeTextChunk     = "text_chunk"
	TypeProductSearch = "product_search"
	TypeOrder         = "order"
	TypeWait          = "wait"
	TypeError         = "error"
	TypeStreamEnd     = "stream_end"
)

// ErrUnknownType reports an inbound frame whose type tag is not part of
// the protocol. Consumers treat such frames as no-ops.
var ErrUnknownType = errors.New("frame: unknown type")

// Inbound is one server-to-client frame, already shape-checked. Only the
// fields belonging to the tagged type are populated.
type Inbound struct {
	Type     string
	Text     string
	Products []chat.Product
	Order    *chat.Order
}

// ParseInbound validates a raw socket payload into a tagged frame. The
// type tag is inspected first, then each variant has its payload shape
// enforced, so consumers never see a half-formed frame.
func ParseInbound(raw []byte) (Inbound, error) {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return Inbound{}, fmt.Errorf("frame: decode: %w", err)
	}
	if probe.Type == "" {
		return Inbound{}, errors.New("frame: missing type")
	}

	switch probe.Type {
	case TypeTextChunk:
		var v struct {
			Content *string `json:"content"`
		}
		if err := json.Unmarshal(raw, &v); err != nil || v.Content == nil {
			return Inbound{}, errors.New("frame: text_chunk requires string content")
		}
		return Inbound{Type: TypeTextChunk, Text: *v.Content}, nil

	case TypeProductSearch:
		var v struct {
			Results []chat.Product `json:"results"`
		}
		if err := json.Unmarshal(raw, &v); err != nil {
			return Inbound{}, fmt.Errorf("frame: product_search results: %w", err)
		}
		if v.Results == nil {
			return Inbound{}, errors.New("frame: product_search requires results array")
		}
		return Inbound{Type: TypeProductSearch, Products: v.Results}, nil

	case TypeOrder:
		var v struct {
			Content json.RawMessage `json:"content"`
		}
		if err := json.Unmarshal(raw, &v); err != nil {
			return Inbound{}, fmt.Errorf("frame: order content: %w", err)
		}
		// The legacy stream sometimes carried a pre-rendered summary
		// string here; only the object form is accepted.
		trimmed := bytes.TrimSpace(v.Content)
		if len(trimmed) == 0 || trimmed[0] != '{' {
			return Inbound{}, errors.New("frame: order content must be an object")
		}
		var ord chat.Order
		if err := json.Unmarshal(trimmed, &ord); err != nil {
			return Inbound{}, fmt.Errorf("frame: order content: %w", err)
		}
		return Inbound{Type: TypeOrder, Order: &ord}, nil

	case TypeWait, TypeError:
		var v struct {
			Message *string `json:"message"`
		}
		if err := json.Unmarshal(raw, &v); err != nil || v.Message == nil {
			return Inbound{}, fmt.Errorf("frame: %s requires string message", probe.Type)
		}
		return Inbound{Type: probe.Type, Text: *v.Message}, nil

	case TypeStreamEnd:
		return Inbound{Type: TypeStreamEnd}, nil

	default:
		return Inbound{Type: probe.Type}, ErrUnknownType
	}
}
