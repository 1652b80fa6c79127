package chat

import (
	"context"
	"errors"
	"strings"
	"sync"

	chatModel "github.com/retailworks/shopchat/internal/model/chat"
	"github.com/retailworks/shopchat/internal/model/frame"
	"github.com/retailworks/shopchat/internal/model/profile"
	"github.com/retailworks/shopchat/internal/service/recommend"
	"github.com/retailworks/shopchat/internal/service/session"
	"github.com/retailworks/shopchat/internal/service/stream"
)

// ErrEmptyMessage rejects sends with nothing to say.
var ErrEmptyMessage = errors.New("chat: message is empty")

// Transport is the slice of the WebSocket channel the controller drives.
// *transport.Channel satisfies it; tests substitute a fake.
type Transport interface {
	Subscribe(fn func(frame.Inbound)) func()
	Send(v frame.Outbound)
	IsOpen() bool
	Close()
}

// Deps wires the controller's collaborators.
type Deps struct {
	Transport  Transport
	Resolver   *session.Resolver
	Reducer    *stream.Reducer
	Prefetcher *recommend.Prefetcher
	Profile    profile.Profile
	UseAgent   bool

	// OnUpdate, when set, runs after every transcript change so the UI
	// can repaint. It fires on the transport's read goroutine and must
	// not block.
	OnUpdate func()
}

// Controller composes the session resolver, stream reducer, transport
// channel, and recommendation prefetcher behind one API the terminal
// client drives.
type Controller struct {
	transport  Transport
	resolver   *session.Resolver
	reducer    *stream.Reducer
	prefetcher *recommend.Prefetcher
	profile    profile.Profile
	useAgent   bool
	onUpdate   func()

	mu   sync.RWMutex
	recs recommend.Result

	unsubscribe func()
}

// NewController wires the dependencies together and subscribes the
// reducer to the transport's inbound frames.
func NewController(deps Deps) *Controller {
	c := &Controller{
		transport:  deps.Transport,
		resolver:   deps.Resolver,
		reducer:    deps.Reducer,
		prefetcher: deps.Prefetcher,
		profile:    deps.Profile,
		useAgent:   deps.UseAgent,
		onUpdate:   deps.OnUpdate,
	}
	c.unsubscribe = c.transport.Subscribe(c.handleFrame)
	return c
}

func (c *Controller) handleFrame(in frame.Inbound) {
	c.reducer.Apply(in)
	c.notify()
}

func (c *Controller) notify() {
	if c.onUpdate != nil {
		c.onUpdate()
	}
}

// SendText appends the user's turn to the transcript and ships it to the
// assistant. Only validation fails here; transport failures come back
// through the stream as synthesized error frames. A text matching one of
// the current recommendation chips is recorded as a recommendation pick.
func (c *Controller) SendText(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyMessage
	}

	active := c.resolver.ResolveActive(ctx)

	if c.isRecommendation(text) {
		c.reducer.AppendRecommendation(text)
	} else {
		c.reducer.AppendUser(text)
	}
	c.notify()

	c.resolver.Touch(ctx, active.MessageCount+1)

	out := frame.Outbound{
		UserID:          c.profile.UserID,
		Text:            text,
		Persona:         string(c.profile.Persona),
		DiscountPersona: string(c.profile.Discount),
		SessionID:       active.ID,
		Name:            c.profile.Name,
		Email:           c.profile.Email,
		Age:             c.profile.Age,
		Gender:          c.profile.Gender,
		UseAgent:        c.useAgent,
	}
	if err := out.Validate(); err != nil {
		return err
	}

	c.transport.Send(out)
	return nil
}

func (c *Controller) isRecommendation(text string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, item := range c.recs.Items {
		if item == text {
			return true
		}
	}
	return false
}

// StartNewSession mints a fresh identity, clears the transcript, and
// prefetches chips for it.
func (c *Controller) StartNewSession(ctx context.Context) chatModel.Session {
	s := c.resolver.StartNew(ctx)
	c.reducer.Reset()
	c.notify()
	c.Recommendations(ctx, false)
	return s
}

// SwitchSession makes id the active identity and clears the transcript.
// Frames still in flight for the previous session are not torn down; the
// resolver logs that race and the next transcript accepts them.
func (c *Controller) SwitchSession(ctx context.Context, id string) chatModel.Session {
	s := c.resolver.SwitchTo(ctx, id)
	c.reducer.Reset()
	c.notify()
	c.Recommendations(ctx, false)
	return s
}

// Recommendations fetches suggestion chips for the active session and
// remembers them for chip matching. It never fails; degraded fetches
// serve the persona fallback table.
func (c *Controller) Recommendations(ctx context.Context, force bool) []string {
	active := c.resolver.ResolveActive(ctx)
	res := c.prefetcher.Fetch(ctx, active.ID, force)

	c.mu.Lock()
	c.recs = res
	c.mu.Unlock()

	return res.Items
}

// CurrentRecommendations returns the chips from the most recent fetch.
func (c *Controller) CurrentRecommendations() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.recs.Items...)
}

// RecommendationsDegraded reports whether the current chips came from
// the offline fallback table rather than the recommendations API.
func (c *Controller) RecommendationsDegraded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.recs.FromFallback
}

// History lists the user's sessions, most recent first, bounded to the
// resolver's history window.
func (c *Controller) History(ctx context.Context) []chatModel.Session {
	return c.resolver.ListHistory(ctx)
}

// RemoveSession deletes a session remote and locally. Removing the
// active session leaves the next ResolveActive to re-resolve.
func (c *Controller) RemoveSession(ctx context.Context, id string) {
	c.resolver.Remove(ctx, id)
}

// Entries returns the transcript in arrival order.
func (c *Controller) Entries() []chatModel.Entry {
	return c.reducer.Entries()
}

// ActiveSession resolves the current conversation identity.
func (c *Controller) ActiveSession(ctx context.Context) chatModel.Session {
	return c.resolver.ResolveActive(ctx)
}

// Profile returns the shopper the controller sends as.
func (c *Controller) Profile() profile.Profile {
	return c.profile
}

// Connected reports whether the transport currently holds an open socket.
func (c *Controller) Connected() bool {
	return c.transport.IsOpen()
}

// Close detaches from the transport and shuts it down.
func (c *Controller) Close() {
	if c.unsubscribe != nil {
		c.unsubscribe()
	}
	c.transport.Close()
}
