package assistant

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/retailworks/shopchat/internal/analysis/intent"
	"github.com/retailworks/shopchat/internal/model/chat"
	"github.com/retailworks/shopchat/internal/model/frame"
	"github.com/retailworks/shopchat/internal/model/profile"
)

// Wait placeholders shown while a handler works. The client drops them as
// soon as the first content frame lands.
const (
	waitOrderHistory  = "Getting order history..."
	waitProductSearch = "Searching for products..."
	waitCompare       = "Searching for products to compare..."
)

const handlerRouter = "router"

// Sink delivers one wire frame to the connected client. The WebSocket
// handler supplies a function that marshals the value and writes it out.
type Sink func(v any) error

// Frame shapes the engine emits. Field names follow the wire contract the
// client's frame parser enforces.
type (
	waitFrame struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	}
	chunkFrame struct {
		Type    string `json:"type"`
		Content string `json:"content"`
	}
	productsFrame struct {
		Type    string         `json:"type"`
		Results []chat.Product `json:"results"`
	}
	orderFrame struct {
		Type    string     `json:"type"`
		Content chat.Order `json:"content"`
	}
	errorFrame struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	}
	endFrame struct {
		Type string `json:"type"`
	}
)

// Engine is the scripted assistant behind the dev backend. Each turn is
// routed with the keyword classifier, answered with a plausible frame
// sequence, and recorded so the monitoring API has real data to serve.
type Engine struct {
	store *Store

	// chunkDelay paces text chunks so the stream is visible in the client.
	chunkDelay time.Duration
}

// NewEngine builds an engine over the given store.
func NewEngine(store *Store) *Engine {
	return &Engine{store: store, chunkDelay: 40 * time.Millisecond}
}

// Respond handles one user turn: classify, stream the scripted reply frames
// through sink, and record conversation state and metrics. The returned
// error is non-nil only when sink fails or ctx is cancelled; protocol-level
// problems are reported to the client as error frames instead.
func (e *Engine) Respond(ctx context.Context, turn frame.Outbound, sink Sink) error {
	start := time.Now()

	sessionID := strings.TrimSpace(turn.SessionID)
	if sessionID == "" {
		sessionID = uuid.NewString()
		log.Printf("[assistant] turn without session_id, using %s", sessionID)
	}

	if strings.TrimSpace(turn.Text) == "" {
		if err := sink(errorFrame{Type: frame.TypeError, Message: "Sorry, I encountered an error: processing your request"}); err != nil {
			return err
		}
		return sink(endFrame{Type: frame.TypeStreamEnd})
	}

	e.store.TrackActivity(sessionID, turn.UserID)

	if turn.UseAgent {
		reply, err := e.agentTurn(ctx, sessionID, turn, sink, start)
		if err != nil {
			return err
		}
		e.store.RecordMetric(turn.UserID, sessionID, "agent_handler", time.Since(start).Seconds(), len(reply), true)
		return sink(endFrame{Type: frame.TypeStreamEnd})
	}

	decision := intent.Classify(turn.Text)
	e.store.SaveMessage(sessionID, handlerRouter, chat.RoleUser, turn.Text)
	e.store.RecordRouting(sessionID, turn.Text, decision)
	log.Printf("[assistant] session=%s user=%s %s", sessionID, turn.UserID, decision.Reasoning)

	e.store.SaveMessage(sessionID, string(decision.Intent), chat.RoleUser, turn.Text)

	var (
		reply string
		err   error
	)
	switch decision.Intent {
	case intent.OrderHistory:
		reply, err = e.orderHistory(ctx, sessionID, sink)
	case intent.ProductSearch:
		reply, err = e.productSearch(ctx, sessionID, turn, sink)
	case intent.ProductDetails:
		reply, err = e.productDetails(ctx, sessionID, sink)
	case intent.CompareProducts:
		reply, err = e.compareProducts(ctx, sessionID, turn, sink)
	default:
		reply, err = e.generalInquiry(ctx, turn, sink)
	}
	if err != nil {
		return err
	}

	e.store.SaveMessage(sessionID, string(decision.Intent), chat.RoleAssistant, reply)
	e.store.RecordMetric(turn.UserID, sessionID, string(decision.Intent), time.Since(start).Seconds(), len(reply), false)
	return sink(endFrame{Type: frame.TypeStreamEnd})
}

func (e *Engine) orderHistory(ctx context.Context, sessionID string, sink Sink) (string, error) {
	if err := sink(waitFrame{Type: frame.TypeWait, Message: waitOrderHistory}); err != nil {
		return "", err
	}

	orders := orderHistoryFixture(time.Now().UTC())
	for _, ord := range orders {
		if err := sink(orderFrame{Type: frame.TypeOrder, Content: ord}); err != nil {
			return "", err
		}
	}
	e.store.RecordOrders(sessionID, orders)

	latest := orders[0]
	reply := fmt.Sprintf(
		"I found %d recent orders on your account. The latest, %s from %s, is %s; the earlier ones were delivered. Want tracking details or help with a return?",
		len(orders), latest.OrderID, latest.OrderDate, strings.ToLower(latest.Status),
	)
	return reply, e.streamText(ctx, sink, reply)
}

func (e *Engine) productSearch(ctx context.Context, sessionID string, turn frame.Outbound, sink Sink) (string, error) {
	if err := sink(waitFrame{Type: frame.TypeWait, Message: waitProductSearch}); err != nil {
		return "", err
	}

	picks := searchShelf(profile.ParsePersonaTag(turn.Persona), turn.Text)
	if err := sink(productsFrame{Type: frame.TypeProductSearch, Results: picks}); err != nil {
		return "", err
	}
	e.store.RecordSearch(sessionID, turn.Text, picks)

	top := picks[0]
	reply := fmt.Sprintf("Here are %d picks that match what you're after. The %s at $%.2f stands out%s Anything here worth a closer look?",
		len(picks), top.Name, top.Price, discountClause(profile.ParseDiscountTag(turn.DiscountPersona)))
	return reply, e.streamText(ctx, sink, reply)
}

func (e *Engine) productDetails(ctx context.Context, sessionID string, sink Sink) (string, error) {
	var reply string
	if sc := e.store.SharedContext(sessionID); sc != nil && len(sc.Products) > 0 {
		p := sc.Products[len(sc.Products)-1]
		reply = fmt.Sprintf("The %s runs $%.2f and we have %d in stock. %s. Want me to compare it with something else?",
			p.Name, p.Price, p.Stock, p.Description)
	} else {
		reply = "Tell me which product caught your eye and I'll pull up its specifications, materials, and availability."
	}
	return reply, e.streamText(ctx, sink, reply)
}

func (e *Engine) compareProducts(ctx context.Context, sessionID string, turn frame.Outbound, sink Sink) (string, error) {
	if err := sink(waitFrame{Type: frame.TypeWait, Message: waitCompare}); err != nil {
		return "", err
	}

	tag := profile.ParsePersonaTag(turn.Persona)
	picks := searchShelf(tag, turn.Text)
	if len(picks) < 2 {
		picks = searchShelf(tag, "")
	}
	picks = picks[:2]
	if err := sink(productsFrame{Type: frame.TypeProductSearch, Results: picks}); err != nil {
		return "", err
	}
	e.store.RecordSearch(sessionID, turn.Text, picks)

	a, b := picks[0], picks[1]
	cheaper := a
	if b.Price < a.Price {
		cheaper = b
	}
	reply := fmt.Sprintf(
		"Here's how they stack up. The %s runs $%.2f against $%.2f for the %s, so the %s saves you $%.2f. On availability it's %d units versus %d. Want a deeper look at either one?",
		a.Name, a.Price, b.Price, b.Name, cheaper.Name, diff(a.Price, b.Price), a.Stock, b.Stock,
	)
	return reply, e.streamText(ctx, sink, reply)
}

func (e *Engine) generalInquiry(ctx context.Context, turn frame.Outbound, sink Sink) (string, error) {
	name := strings.TrimSpace(turn.Name)
	if name == "" {
		name = "there"
	}
	reply := fmt.Sprintf(
		"Happy to help, %s. I can look up your orders, search the catalog, pull product details, or compare picks side by side. Standard shipping lands in 3-5 business days and returns are free within 30 days. What are you shopping for today?",
		name,
	)
	return reply, e.streamText(ctx, sink, reply)
}

func (e *Engine) agentTurn(ctx context.Context, sessionID string, turn frame.Outbound, sink Sink, start time.Time) (string, error) {
	if err := sink(waitFrame{Type: frame.TypeWait, Message: "AI agent (unified) is processing your request..."}); err != nil {
		return "", err
	}

	picks := searchShelf(profile.ParsePersonaTag(turn.Persona), turn.Text)
	top := picks[0]
	reply := fmt.Sprintf(
		"I checked the catalog, your orders, and current promotions in one pass. The %s at $%.2f looks like the strongest match right now. Ask a follow-up and I'll dig into details, comparisons, or order status without switching modes.",
		top.Name, top.Price,
	)
	if err := e.streamText(ctx, sink, reply); err != nil {
		return "", err
	}

	tokens := len(strings.Fields(turn.Text)) + len(strings.Fields(reply))
	e.store.RecordAgentTurn(sessionID, turn.Text, reply, time.Since(start).Seconds(), tokens)
	return reply, nil
}

// streamText writes the reply as a run of small text_chunk frames, pacing
// them by chunkDelay when configured.
func (e *Engine) streamText(ctx context.Context, sink Sink, text string) error {
	words := strings.Fields(text)
	for i := 0; i < len(words); i += 3 {
		end := i + 3
		if end > len(words) {
			end = len(words)
		}
		chunk := strings.Join(words[i:end], " ")
		if end < len(words) {
			chunk += " "
		}
		if err := sink(chunkFrame{Type: frame.TypeTextChunk, Content: chunk}); err != nil {
			return err
		}
		if e.chunkDelay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(e.chunkDelay):
			}
		}
	}
	return nil
}

func discountClause(tag profile.DiscountTag) string {
	switch tag {
	case profile.DiscountLowerPriced:
		return ", and it's one of the lower-priced picks on the shelf."
	case profile.DiscountAll:
		return ", and it's part of this week's promotions."
	default:
		return "."
	}
}

func diff(a, b float64) float64 {
	if a > b {
		return a - b
	}
	return b - a
}
