package assistant

import (
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/retailworks/shopchat/internal/analysis/intent"
	"github.com/retailworks/shopchat/internal/model/chat"
	"github.com/retailworks/shopchat/internal/service/monitoring"
)

const (
	sessionListLimit   = 20
	contextSliceLimit  = 10
	defaultMetricLimit = 100
)

// Store is the dev backend's entire state: the session registry, per-handler
// conversations, shared context, routing history, performance metrics, and
// agent-mode transcripts. One instance backs the REST handlers, the WebSocket
// endpoint, and the monitoring views, the way the cloud deployment shares a
// handful of tables.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]chat.Session
	convs    map[string]map[string]*conversation
	contexts map[string]*monitoring.SharedContext
	routes   map[string][]monitoring.RoutingDecision
	metrics  []metricRecord
	agents   map[string]*agentRecord
}

type conversation struct {
	id        string
	handler   string
	messages  []chat.Message
	updatedAt time.Time
}

type metricRecord struct {
	at            time.Time
	userID        string
	sessionID     string
	handlerType   string
	responseTime  float64
	messageLength int
	useAgent      bool
}

type agentRecord struct {
	messages  []monitoring.AgentMessage
	snapshots []monitoring.MetricsSnapshot
	lastAt    time.Time
}

// NewStore returns an empty backend state container.
func NewStore() *Store {
	return &Store{
		sessions: make(map[string]chat.Session),
		convs:    make(map[string]map[string]*conversation),
		contexts: make(map[string]*monitoring.SharedContext),
		routes:   make(map[string][]monitoring.RoutingDecision),
		agents:   make(map[string]*agentRecord),
	}
}

// CreateSession registers a session, filling in timestamps when absent.
func (s *Store) CreateSession(sess chat.Session) chat.Session {
	now := time.Now().UTC()
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = now
	}
	if sess.LastUsed.IsZero() {
		sess.LastUsed = now
	}
	if sess.Title == "" {
		sess.Title = "Session " + sess.CreatedAt.Format("2006-01-02 15:04")
	}

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()
	return sess
}

// TouchSession applies a partial update and bumps LastUsed. A touch for an
// unknown session creates it, mirroring the upsert semantics of the
// production session table.
func (s *Store) TouchSession(userID, id string, title *string, messageCount *int, agentMode *bool) chat.Session {
	now := time.Now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		sess = chat.Session{
			ID:        id,
			UserID:    userID,
			Title:     "Session " + now.Format("2006-01-02 15:04"),
			CreatedAt: now,
		}
	}
	if title != nil && *title != "" {
		sess.Title = *title
	}
	if messageCount != nil && *messageCount >= 0 {
		sess.MessageCount = *messageCount
	}
	if agentMode != nil {
		sess.AgentMode = *agentMode
	}
	sess.LastUsed = now

	s.sessions[id] = sess
	return sess
}

// TrackActivity upserts the session a turn belongs to and counts the message.
func (s *Store) TrackActivity(sessionID, userID string) {
	now := time.Now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		sess = chat.Session{
			ID:        sessionID,
			UserID:    userID,
			Title:     "Session " + now.Format("2006-01-02 15:04"),
			CreatedAt: now,
		}
	}
	sess.MessageCount++
	sess.LastUsed = now
	s.sessions[sessionID] = sess
}

// Sessions lists a user's sessions, most recently used first. A
// non-positive limit takes the session API default of 20; the
// monitoring view asks for 50.
func (s *Store) Sessions(userID string, limit int) []chat.Session {
	if limit <= 0 {
		limit = sessionListLimit
	}

	s.mu.RLock()
	var out []chat.Session
	for _, sess := range s.sessions {
		if sess.UserID == userID {
			out = append(out, sess)
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].LastUsed.After(out[j].LastUsed) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// DeleteSession removes a session from the registry. Deleting an unknown id
// is a no-op, matching the idempotent production delete.
func (s *Store) DeleteSession(userID, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if ok && (userID == "" || sess.UserID == userID) {
		delete(s.sessions, id)
	}
}

// SaveMessage appends one turn to a handler's conversation for a session.
func (s *Store) SaveMessage(sessionID, handlerType string, role chat.Role, content string) chat.Message {
	msg := chat.Message{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	byHandler, ok := s.convs[sessionID]
	if !ok {
		byHandler = make(map[string]*conversation)
		s.convs[sessionID] = byHandler
	}
	conv, ok := byHandler[handlerType]
	if !ok {
		conv = &conversation{id: uuid.NewString(), handler: handlerType}
		byHandler[handlerType] = conv
	}
	conv.messages = append(conv.messages, msg)
	conv.updatedAt = msg.CreatedAt
	return msg
}

// Conversations returns every handler transcript for a session, most
// recently updated first.
func (s *Store) Conversations(sessionID string) []monitoring.Conversation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []monitoring.Conversation
	for _, conv := range s.convs[sessionID] {
		out = append(out, monitoring.Conversation{
			ConversationID: conv.id,
			HandlerType:    conv.handler,
			SessionID:      sessionID,
			Messages:       append([]chat.Message(nil), conv.messages...),
			MessageCount:   len(conv.messages),
			UpdatedAt:      conv.updatedAt.Format(time.RFC3339),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt > out[j].UpdatedAt })
	return out
}

// RecordSearch folds a product search into the session's shared context.
func (s *Store) RecordSearch(sessionID, query string, products []chat.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sc := s.ensureContextLocked(sessionID)
	sc.SearchHistory = capTail(append(sc.SearchHistory, query), contextSliceLimit)
	sc.Products = capTail(append(sc.Products, products...), contextSliceLimit)
	sc.LastUpdated = time.Now().UTC().Format(time.RFC3339)
}

// RecordOrders folds retrieved orders into the session's shared context.
func (s *Store) RecordOrders(sessionID string, orders []chat.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sc := s.ensureContextLocked(sessionID)
	sc.Orders = capTail(append(sc.Orders, orders...), contextSliceLimit)
	sc.LastUpdated = time.Now().UTC().Format(time.RFC3339)
}

// RecordPreference stores one user preference in the shared context.
func (s *Store) RecordPreference(sessionID, key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sc := s.ensureContextLocked(sessionID)
	if sc.UserPreferences == nil {
		sc.UserPreferences = make(map[string]string)
	}
	sc.UserPreferences[key] = value
	sc.LastUpdated = time.Now().UTC().Format(time.RFC3339)
}

func (s *Store) ensureContextLocked(sessionID string) *monitoring.SharedContext {
	sc, ok := s.contexts[sessionID]
	if !ok {
		sc = &monitoring.SharedContext{SessionID: sessionID}
		s.contexts[sessionID] = sc
	}
	return sc
}

// SharedContext returns a copy of the session's shared context, or nil when
// the session has none yet.
func (s *Store) SharedContext(sessionID string) *monitoring.SharedContext {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sc, ok := s.contexts[sessionID]
	if !ok {
		return nil
	}

	out := *sc
	out.Products = append([]chat.Product(nil), sc.Products...)
	out.Orders = append([]chat.Order(nil), sc.Orders...)
	out.SearchHistory = append([]string(nil), sc.SearchHistory...)
	if sc.UserPreferences != nil {
		out.UserPreferences = make(map[string]string, len(sc.UserPreferences))
		for k, v := range sc.UserPreferences {
			out.UserPreferences[k] = v
		}
	}
	return &out
}

// RecordRouting appends a routing decision to the session's history.
func (s *Store) RecordRouting(sessionID, userMessage string, d intent.Decision) monitoring.RoutingDecision {
	decision := monitoring.RoutingDecision{
		Timestamp:       time.Now().UTC().Format(time.RFC3339),
		AssistantNumber: d.AssistantNumber,
		HandlerName:     d.HandlerName,
		UserMessage:     userMessage,
		Decision:        d.Reasoning,
		Reasoning:       fmt.Sprintf("Keyword routing selected assistant #%s for: %q", d.AssistantNumber, truncate(userMessage, 100)),
		MessageID:       uuid.NewString(),
	}

	s.mu.Lock()
	s.routes[sessionID] = append(s.routes[sessionID], decision)
	s.mu.Unlock()
	return decision
}

// RouterHistory returns the session's routing decisions, most recent first.
func (s *Store) RouterHistory(sessionID string) monitoring.RouterData {
	s.mu.RLock()
	stored := s.routes[sessionID]
	decisions := make([]monitoring.RoutingDecision, len(stored))
	for i, d := range stored {
		decisions[len(stored)-1-i] = d
	}
	s.mu.RUnlock()

	return monitoring.RouterData{SessionID: sessionID, Decisions: decisions}
}

// RecordMetric appends one turn's performance sample.
func (s *Store) RecordMetric(userID, sessionID, handlerType string, responseTime float64, messageLength int, useAgent bool) {
	s.mu.Lock()
	s.metrics = append(s.metrics, metricRecord{
		at:            time.Now().UTC(),
		userID:        userID,
		sessionID:     sessionID,
		handlerType:   handlerType,
		responseTime:  responseTime,
		messageLength: messageLength,
		useAgent:      useAgent,
	})
	s.mu.Unlock()
}

// Metrics filters performance samples by user, handler, and time range,
// most recent first. Empty or "all" filters match everything; the range
// defaults to 24h and the limit to 100.
func (s *Store) Metrics(userID, handlerType, timeRange string, limit int) []monitoring.Metric {
	if limit <= 0 {
		limit = defaultMetricLimit
	}
	cutoff := rangeCutoff(time.Now().UTC(), timeRange)

	s.mu.RLock()
	var matched []metricRecord
	for _, m := range s.metrics {
		if m.at.Before(cutoff) {
			continue
		}
		if userID != "" && userID != "all" && m.userID != userID {
			continue
		}
		if handlerType != "" && handlerType != "all" && m.handlerType != handlerType {
			continue
		}
		matched = append(matched, m)
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool { return matched[i].at.After(matched[j].at) })
	if len(matched) > limit {
		matched = matched[:limit]
	}

	out := make([]monitoring.Metric, len(matched))
	for i, m := range matched {
		out[i] = monitoring.Metric{
			Timestamp:     m.at.Format(time.RFC3339),
			HandlerType:   m.handlerType,
			SessionID:     m.sessionID,
			UserID:        m.userID,
			ResponseTime:  m.responseTime,
			MessageLength: m.messageLength,
			UseAgent:      m.useAgent,
		}
	}
	return out
}

func rangeCutoff(now time.Time, timeRange string) time.Time {
	switch timeRange {
	case monitoring.RangeHour:
		return now.Add(-time.Hour)
	case monitoring.RangeWeek:
		return now.AddDate(0, 0, -7)
	case monitoring.RangeMonth:
		return now.AddDate(0, 0, -30)
	default:
		return now.Add(-24 * time.Hour)
	}
}

// RecordAgentTurn appends a user/assistant exchange to the session's
// agent-mode transcript along with one event-loop snapshot.
func (s *Store) RecordAgentTurn(sessionID, userText, replyText string, duration float64, tokens int) {
	now := time.Now().UTC()
	stamp := now.Format(time.RFC3339)

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.agents[sessionID]
	if !ok {
		rec = &agentRecord{}
		s.agents[sessionID] = rec
	}

	rec.messages = append(rec.messages,
		monitoring.AgentMessage{
			Timestamp: stamp,
			Role:      string(chat.RoleUser),
			Content:   userText,
			MessageID: uuid.NewString(),
			Metadata:  monitoring.AgentMessageMeta{AgentType: "unified"},
		},
		monitoring.AgentMessage{
			Timestamp: stamp,
			Role:      string(chat.RoleAssistant),
			Content:   replyText,
			MessageID: uuid.NewString(),
			Metadata:  monitoring.AgentMessageMeta{AgentType: "unified", ToolUse: true},
		},
	)
	rec.snapshots = append(rec.snapshots, monitoring.MetricsSnapshot{
		MessageNumber: len(rec.snapshots) + 1,
		Timestamp:     stamp,
		Cycles:        1,
		Duration:      round2(duration),
		Tokens:        tokens,
	})
	rec.lastAt = now
}

// AgentConversation assembles the agent-mode view of a session. The second
// return is false when the session never ran in agent mode.
func (s *Store) AgentConversation(sessionID string) (monitoring.AgentConversation, bool) {
	s.mu.RLock()
	rec, ok := s.agents[sessionID]
	if !ok {
		s.mu.RUnlock()
		return monitoring.AgentConversation{}, false
	}
	messages := append([]monitoring.AgentMessage(nil), rec.messages...)
	snapshots := append([]monitoring.MetricsSnapshot(nil), rec.snapshots...)
	lastAt := rec.lastAt
	s.mu.RUnlock()

	meta := monitoring.AgentMetadata{
		TotalMessages: len(messages),
		LastActivity:  lastAt.Format(time.RFC3339),
	}
	typesSeen := make(map[string]bool)
	for _, m := range messages {
		switch m.Role {
		case string(chat.RoleUser):
			meta.UserMessages++
		case string(chat.RoleAssistant):
			meta.AssistantMessages++
		}
		if m.Metadata.ToolUse {
			meta.ToolExecutions++
		}
		if m.Metadata.AgentType != "" && !typesSeen[m.Metadata.AgentType] {
			typesSeen[m.Metadata.AgentType] = true
			meta.AgentTypesUsed = append(meta.AgentTypesUsed, m.Metadata.AgentType)
		}
	}

	loop := monitoring.EventLoopMetrics{HasMetrics: len(snapshots) > 0}
	if loop.HasMetrics {
		agg := monitoring.AggregatedMetrics{}
		for _, snap := range snapshots {
			agg.TotalCycles += snap.Cycles
			agg.TotalDuration += snap.Duration
			agg.TotalTokens += snap.Tokens
		}
		n := float64(len(snapshots))
		agg.TotalDuration = round2(agg.TotalDuration)
		agg.AvgCyclesPerMessage = round2(agg.TotalCycles / n)
		agg.AvgDurationPerMessage = round2(agg.TotalDuration / n)
		agg.AvgTokensPerMessage = round2(float64(agg.TotalTokens) / n)

		loop.TotalSnapshots = len(snapshots)
		loop.AggregatedMetrics = &agg
		loop.SnapshotsTimeline = snapshots
	}

	return monitoring.AgentConversation{
		SessionID:        sessionID,
		AgentMessages:    messages,
		AgentMetadata:    meta,
		EventLoopMetrics: loop,
		HasMetrics:       loop.HasMetrics,
		RetrievedAt:      time.Now().UTC().Format(time.RFC3339),
	}, true
}

func capTail[T any](items []T, limit int) []T {
	if len(items) <= limit {
		return items
	}
	return items[len(items)-limit:]
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
