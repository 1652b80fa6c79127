package assistant

import (
	"testing"
	"time"

	"github.com/retailworks/shopchat/internal/analysis/intent"
	"github.com/retailworks/shopchat/internal/model/chat"
	"github.com/retailworks/shopchat/internal/service/monitoring"
)

func TestSessionLifecycle(t *testing.T) {
	store := NewStore()

	created := store.CreateSession(chat.Session{ID: "s1", UserID: "u1"})
	if created.CreatedAt.IsZero() || created.LastUsed.IsZero() {
		t.Fatal("CreateSession should fill timestamps")
	}
	if created.Title == "" {
		t.Fatal("CreateSession should default the title")
	}

	title := "Renamed"
	count := 7
	touched := store.TouchSession("u1", "s1", &title, &count, nil)
	if touched.Title != "Renamed" || touched.MessageCount != 7 {
		t.Fatalf("TouchSession did not apply updates: %+v", touched)
	}
	if !touched.LastUsed.After(created.LastUsed) && !touched.LastUsed.Equal(created.LastUsed) {
		t.Fatal("TouchSession should bump LastUsed")
	}

	// Touching an unknown id creates it.
	ghost := store.TouchSession("u1", "s-ghost", nil, nil, nil)
	if ghost.ID != "s-ghost" || ghost.UserID != "u1" {
		t.Fatalf("TouchSession upsert failed: %+v", ghost)
	}

	sessions := store.Sessions("u1", 0)
	if len(sessions) != 2 {
		t.Fatalf("Sessions(u1) = %d entries, want 2", len(sessions))
	}
	if sessions[0].ID != "s-ghost" {
		t.Errorf("most recently used session should sort first, got %s", sessions[0].ID)
	}

	store.DeleteSession("u1", "s1")
	store.DeleteSession("u1", "never-existed")
	if got := store.Sessions("u1", 0); len(got) != 1 {
		t.Fatalf("after delete, Sessions(u1) = %d entries, want 1", len(got))
	}

	// A different user's delete must not remove someone else's session.
	store.DeleteSession("u2", "s-ghost")
	if got := store.Sessions("u1", 0); len(got) != 1 {
		t.Fatal("cross-user delete should be refused")
	}
}

func TestMetricsFiltering(t *testing.T) {
	store := NewStore()
	store.RecordMetric("u1", "s1", "product_search", 0.8, 120, false)
	store.RecordMetric("u1", "s1", "order_history", 1.2, 90, false)
	store.RecordMetric("u2", "s2", "product_search", 0.5, 60, true)

	if got := store.Metrics("", "", "", 0); len(got) != 3 {
		t.Fatalf("unfiltered metrics = %d, want 3", len(got))
	}
	if got := store.Metrics("u1", "", "", 0); len(got) != 2 {
		t.Fatalf("user filter = %d, want 2", len(got))
	}
	if got := store.Metrics("all", "product_search", "", 0); len(got) != 2 {
		t.Fatalf("handler filter = %d, want 2", len(got))
	}
	if got := store.Metrics("", "", "", 1); len(got) != 1 {
		t.Fatalf("limit = %d entries, want 1", len(got))
	}

	got := store.Metrics("u2", "", monitoring.RangeHour, 0)
	if len(got) != 1 || !got[0].UseAgent {
		t.Fatalf("unexpected u2 metrics: %+v", got)
	}
}

func TestRangeCutoff(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		timeRange string
		want      time.Time
	}{
		{monitoring.RangeHour, now.Add(-time.Hour)},
		{monitoring.RangeDay, now.Add(-24 * time.Hour)},
		{monitoring.RangeWeek, now.AddDate(0, 0, -7)},
		{monitoring.RangeMonth, now.AddDate(0, 0, -30)},
		{"", now.Add(-24 * time.Hour)},
		{"nonsense", now.Add(-24 * time.Hour)},
	}
	for _, tt := range tests {
		if got := rangeCutoff(now, tt.timeRange); !got.Equal(tt.want) {
			t.Errorf("rangeCutoff(%q) = %s, want %s", tt.timeRange, got, tt.want)
		}
	}
}

func TestRouterHistoryMostRecentFirst(t *testing.T) {
	store := NewStore()
	first := intent.Classify("where is my order")
	second := intent.Classify("show me lamps")
	store.RecordRouting("s1", "where is my order", first)
	store.RecordRouting("s1", "show me lamps", second)

	history := store.RouterHistory("s1")
	if len(history.Decisions) != 2 {
		t.Fatalf("decisions = %d, want 2", len(history.Decisions))
	}
	if history.Decisions[0].UserMessage != "show me lamps" {
		t.Errorf("latest decision should come first, got %q", history.Decisions[0].UserMessage)
	}
	if history.SessionID != "s1" {
		t.Errorf("SessionID = %q", history.SessionID)
	}
}

func TestSharedContextIsolation(t *testing.T) {
	store := NewStore()
	if store.SharedContext("missing") != nil {
		t.Fatal("unknown session should have nil context")
	}

	store.RecordSearch("s1", "lamps", []chat.Product{{ID: "p1", Name: "Lamp"}})
	sc := store.SharedContext("s1")
	if sc == nil || len(sc.Products) != 1 {
		t.Fatalf("unexpected context: %+v", sc)
	}

	// Mutating the copy must not touch stored state.
	sc.Products[0].Name = "Changed"
	sc.SearchHistory = append(sc.SearchHistory, "extra")
	fresh := store.SharedContext("s1")
	if fresh.Products[0].Name != "Lamp" || len(fresh.SearchHistory) != 1 {
		t.Fatalf("stored context was mutated through copy: %+v", fresh)
	}
}

func TestSharedContextBounded(t *testing.T) {
	store := NewStore()
	for i := 0; i < contextSliceLimit+5; i++ {
		store.RecordSearch("s1", "query", []chat.Product{{ID: "p", Name: "P"}})
	}
	sc := store.SharedContext("s1")
	if len(sc.SearchHistory) != contextSliceLimit || len(sc.Products) != contextSliceLimit {
		t.Fatalf("context slices not capped: %d searches, %d products",
			len(sc.SearchHistory), len(sc.Products))
	}
}

func TestAgentConversationAggregation(t *testing.T) {
	store := NewStore()
	if _, ok := store.AgentConversation("missing"); ok {
		t.Fatal("unknown session should report no agent conversation")
	}

	store.RecordAgentTurn("s1", "find a lamp", "Here is a lamp.", 1.0, 10)
	store.RecordAgentTurn("s1", "cheaper one?", "This one is cheaper.", 2.0, 20)

	agent, ok := store.AgentConversation("s1")
	if !ok {
		t.Fatal("agent conversation missing")
	}
	meta := agent.AgentMetadata
	if meta.TotalMessages != 4 || meta.UserMessages != 2 || meta.AssistantMessages != 2 {
		t.Fatalf("unexpected metadata: %+v", meta)
	}
	if meta.ToolExecutions != 2 {
		t.Errorf("ToolExecutions = %d, want 2", meta.ToolExecutions)
	}
	if len(meta.AgentTypesUsed) != 1 || meta.AgentTypesUsed[0] != "unified" {
		t.Errorf("AgentTypesUsed = %v", meta.AgentTypesUsed)
	}

	loop := agent.EventLoopMetrics
	if !loop.HasMetrics || loop.TotalSnapshots != 2 {
		t.Fatalf("unexpected loop metrics: %+v", loop)
	}
	agg := loop.AggregatedMetrics
	if agg.TotalCycles != 2 || agg.TotalDuration != 3 || agg.TotalTokens != 30 {
		t.Fatalf("unexpected totals: %+v", agg)
	}
	if agg.AvgDurationPerMessage != 1.5 || agg.AvgTokensPerMessage != 15 {
		t.Fatalf("unexpected averages: %+v", agg)
	}
	if loop.SnapshotsTimeline[1].MessageNumber != 2 {
		t.Errorf("snapshot numbering broken: %+v", loop.SnapshotsTimeline)
	}
}
