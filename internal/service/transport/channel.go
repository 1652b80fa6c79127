package transport

import (
	"context"
	"errors"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/retailworks/shopchat/internal/model/frame"
)

// State is the lifecycle phase of the channel.
type State int

const (
	StateConnecting State = iota
	StateOpen
	StateClosed
)

// String returns the state label used in logs.
func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	default:
		return "closed"
	}
}

// Default timings. The reconnect delay is fixed: no backoff, no cap.
const (
	defaultReconnectDelay   = 5 * time.Second
	defaultHandshakeTimeout = 30 * time.Second
	defaultReadTimeout      = 60 * time.Second
	defaultWriteTimeout     = 30 * time.Second
	defaultPingInterval     = 54 * time.Second
)

// Transport failures never reach callers as errors; they are replayed
// into the stream as assistant-style error frames with these texts.
const (
	msgNotConnected   = "Not connected to server. Please try again."
	msgConnectionLost = "Connection lost. Reconnecting..."
	msgDialFailed     = "Connection error. Please check your network connection."
	msgParseFailed    = "Failed to parse server response"
)

// Config holds the channel wiring. Zero durations take the defaults.
type Config struct {
	URL              string
	ReconnectDelay   time.Duration
	HandshakeTimeout time.Duration
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	PingInterval     time.Duration
}

func (c Config) withDefaults() Config {
	if c.ReconnectDelay <= 0 {
		c.ReconnectDelay = defaultReconnectDelay
	}
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = defaultHandshakeTimeout
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = defaultReadTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = defaultWriteTimeout
	}
	if c.PingInterval <= 0 {
		c.PingInterval = defaultPingInterval
	}
	return c
}

// Channel keeps one WebSocket to the assistant alive and fans every
// inbound frame out to its subscribers. Failures are surfaced as
// synthesized error frames, never as returned errors.
type Channel struct {
	cfg Config

	mu      sync.RWMutex
	conn    *websocket.Conn
	state   State
	subs    map[int]func(frame.Inbound)
	nextSub int
	started bool
	closed  bool
	cancel  context.CancelFunc

	// writeMu serializes data writes; gorilla allows only one writer.
	writeMu sync.Mutex

	done chan struct{}
}

// New builds a channel. Call Start to begin connecting.
func New(cfg Config) *Channel {
	return &Channel{
		cfg:   cfg.withDefaults(),
		state: StateClosed,
		subs:  make(map[int]func(frame.Inbound)),
		done:  make(chan struct{}),
	}
}

// Start launches the connect loop. It returns immediately; the loop
// keeps redialing until Close or ctx cancellation.
func (ch *Channel) Start(ctx context.Context) {
	ch.mu.Lock()
	if ch.started || ch.closed {
		ch.mu.Unlock()
		return
	}
	ch.started = true
	runCtx, cancel := context.WithCancel(ctx)
	ch.cancel = cancel
	ch.mu.Unlock()

	go ch.run(runCtx)
}

// Subscribe registers a frame consumer. Every consumer receives every
// inbound frame in arrival order; callbacks run on the read pump and
// must not block. The returned func removes the subscription.
func (ch *Channel) Subscribe(fn func(frame.Inbound)) func() {
	ch.mu.Lock()
	id := ch.nextSub
	ch.nextSub++
	ch.subs[id] = fn
	ch.mu.Unlock()

	return func() {
		ch.mu.Lock()
		delete(ch.subs, id)
		ch.mu.Unlock()
	}
}

// Send marshals one outbound turn onto the socket. When the channel is
// not open the turn is dropped and an error frame is synthesized so the
// failure shows up in the transcript instead of an error return.
func (ch *Channel) Send(v frame.Outbound) {
	ch.mu.RLock()
	conn := ch.conn
	open := ch.state == StateOpen && conn != nil
	ch.mu.RUnlock()

	if !open {
		log.Printf("[transport] send while %s, dropping turn", ch.CurrentState())
		ch.deliver(errorFrame(msgNotConnected))
		return
	}

	ch.writeMu.Lock()
	conn.SetWriteDeadline(time.Now().Add(ch.cfg.WriteTimeout))
	err := conn.WriteJSON(v)
	ch.writeMu.Unlock()

	if err != nil {
		// The read pump will notice the dead socket and reconnect.
		log.Printf("[transport] write failed: %v", err)
		ch.deliver(errorFrame(msgNotConnected))
	}
}

// IsOpen reports whether a turn sent now would go out on the wire.
func (ch *Channel) IsOpen() bool {
	return ch.CurrentState() == StateOpen
}

// CurrentState returns the lifecycle phase for UI polling.
func (ch *Channel) CurrentState() State {
	ch.mu.RLock()
	defer ch.mu.RUnlock()
	return ch.state
}

// Close sends a normal-closure frame, stops the reconnect loop and
// waits for it to exit. Safe to call more than once.
func (ch *Channel) Close() {
	ch.mu.Lock()
	if ch.closed {
		ch.mu.Unlock()
		return
	}
	ch.closed = true
	conn := ch.conn
	cancel := ch.cancel
	started := ch.started
	if !started {
		ch.state = StateClosed
	}
	ch.mu.Unlock()

	if conn != nil {
		deadline := time.Now().Add(ch.cfg.WriteTimeout)
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		conn.Close()
	}
	if cancel != nil {
		cancel()
	}
	if started {
		<-ch.done
	}
}

func (ch *Channel) run(ctx context.Context) {
	defer func() {
		ch.setState(StateClosed)
		close(ch.done)
	}()

	for {
		if ch.stopping(ctx) {
			return
		}
		ch.setState(StateConnecting)

		conn, err := ch.dial(ctx)
		if err != nil {
			if ch.stopping(ctx) {
				return
			}
			log.Printf("[transport] dial %s failed: %v", ch.cfg.URL, err)
			ch.deliver(errorFrame(msgDialFailed))
			if !ch.pause(ctx) {
				return
			}
			continue
		}

		if !ch.attach(conn) {
			conn.Close()
			return
		}
		log.Printf("[transport] connected to %s", ch.cfg.URL)

		pingCtx, stopPing := context.WithCancel(ctx)
		go ch.pingLoop(pingCtx, conn)

		err = ch.readPump(conn)
		stopPing()
		ch.detach()
		conn.Close()

		if ch.stopping(ctx) {
			return
		}
		if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
			log.Printf("[transport] connection closed by server")
			return
		}

		log.Printf("[transport] connection lost: %v", err)
		ch.deliver(errorFrame(msgConnectionLost))
		if !ch.pause(ctx) {
			return
		}
	}
}

func (ch *Channel) dial(ctx context.Context) (*websocket.Conn, error) {
	dialer := &websocket.Dialer{
		HandshakeTimeout: ch.cfg.HandshakeTimeout,
	}
	conn, _, err := dialer.DialContext(ctx, ch.cfg.URL, nil)
	return conn, err
}

// attach publishes the live socket. Returns false when Close raced the
// dial, in which case the caller discards the connection.
func (ch *Channel) attach(conn *websocket.Conn) bool {
	conn.SetReadDeadline(time.Now().Add(ch.cfg.ReadTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(ch.cfg.ReadTimeout))
	})

	ch.mu.Lock()
	defer ch.mu.Unlock()
	if ch.closed {
		return false
	}
	ch.conn = conn
	ch.state = StateOpen
	return true
}

func (ch *Channel) detach() {
	ch.mu.Lock()
	ch.conn = nil
	ch.mu.Unlock()
}

// readPump consumes frames until the socket dies and returns the
// terminal error for the run loop to classify.
func (ch *Channel) readPump(conn *websocket.Conn) error {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		in, err := frame.ParseInbound(data)
		if err != nil && !errors.Is(err, frame.ErrUnknownType) {
			log.Printf("[transport] malformed frame dropped: %v", err)
			ch.deliver(errorFrame(msgParseFailed))
			continue
		}
		// Unknown types pass through; downstream treats them as no-ops.
		ch.deliver(in)
	}
}

func (ch *Channel) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(ch.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ch.writeMu.Lock()
			conn.SetWriteDeadline(time.Now().Add(ch.cfg.WriteTimeout))
			err := conn.WriteMessage(websocket.PingMessage, nil)
			ch.writeMu.Unlock()
			if err != nil {
				log.Printf("[transport] ping failed: %v", err)
				return
			}
		}
	}
}

func (ch *Channel) deliver(in frame.Inbound) {
	ch.mu.RLock()
	ids := make([]int, 0, len(ch.subs))
	for id := range ch.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(frame.Inbound), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, ch.subs[id])
	}
	ch.mu.RUnlock()

	for _, fn := range fns {
		fn(in)
	}
}

func (ch *Channel) setState(s State) {
	ch.mu.Lock()
	ch.state = s
	ch.mu.Unlock()
}

func (ch *Channel) stopping(ctx context.Context) bool {
	if ctx.Err() != nil {
		return true
	}
	ch.mu.RLock()
	defer ch.mu.RUnlock()
	return ch.closed
}

// pause sleeps the fixed reconnect delay; false means the loop should
// exit instead of redialing.
func (ch *Channel) pause(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(ch.cfg.ReconnectDelay):
		return !ch.stopping(ctx)
	}
}

func errorFrame(msg string) frame.Inbound {
	return frame.Inbound{Type: frame.TypeError, Text: msg}
}
