package session

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/retailworks/shopchat/internal/model/chat"
)

func newTestCache(t *testing.T) *SQLiteCache {
	t.Helper()
	cache, err := NewSQLiteCache(filepath.Join(t.TempDir(), "shopchat.db"))
	if err != nil {
		t.Fatalf("open cache: %v", err)
	}
	t.Cleanup(func() { cache.Close() })
	return cache
}

func TestHistoryBoundedAtTen(t *testing.T) {
	cache := newTestCache(t)
	base := time.Date(2025, 8, 1, 10, 0, 0, 0, time.UTC)

	for i := 0; i < 12; i++ {
		cache.Remember("shopper_001", chat.Session{
			ID:        fmt.Sprintf("session_%02d", i),
			UserID:    "shopper_001",
			CreatedAt: base,
			LastUsed:  base.Add(time.Duration(i) * time.Minute),
		})
	}

	hist := cache.History("shopper_001")
	if len(hist) != historyLimit {
		t.Fatalf("expected %d sessions, got %d", historyLimit, len(hist))
	}
	if hist[0].ID != "session_11" {
		t.Fatalf("expected most recent first, got %s", hist[0].ID)
	}
	for _, s := range hist {
		if s.ID == "session_00" || s.ID == "session_01" {
			t.Fatalf("expected oldest sessions pruned, found %s", s.ID)
		}
	}
}

func TestRememberMovesReusedSessionToFront(t *testing.T) {
	cache := newTestCache(t)
	base := time.Date(2025, 8, 1, 10, 0, 0, 0, time.UTC)

	cache.Remember("shopper_001", chat.Session{ID: "session_a", LastUsed: base})
	cache.Remember("shopper_001", chat.Session{ID: "session_b", LastUsed: base.Add(time.Minute)})
	cache.Remember("shopper_001", chat.Session{ID: "session_a", LastUsed: base.Add(2 * time.Minute)})

	hist := cache.History("shopper_001")
	if len(hist) != 2 {
		t.Fatalf("expected dedup by id, got %d entries", len(hist))
	}
	if hist[0].ID != "session_a" || hist[1].ID != "session_b" {
		t.Fatalf("unexpected order: %s %s", hist[0].ID, hist[1].ID)
	}
}

func TestRememberDoesNotRewindRecency(t *testing.T) {
	cache := newTestCache(t)
	base := time.Date(2025, 8, 1, 10, 0, 0, 0, time.UTC)

	cache.Remember("shopper_001", chat.Session{ID: "session_a", LastUsed: base.Add(time.Hour), MessageCount: 6})
	// A stale remote copy arriving during a merge.
	cache.Remember("shopper_001", chat.Session{ID: "session_a", LastUsed: base, MessageCount: 2})

	hist := cache.History("shopper_001")
	if len(hist) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(hist))
	}
	if !hist[0].LastUsed.Equal(base.Add(time.Hour)) {
		t.Fatalf("expected recency kept at %s, got %s", base.Add(time.Hour), hist[0].LastUsed)
	}
	if hist[0].MessageCount != 6 {
		t.Fatalf("expected message count kept at 6, got %d", hist[0].MessageCount)
	}
}

func TestActivePointerRoundTrip(t *testing.T) {
	cache := newTestCache(t)

	if _, ok := cache.ActiveID("shopper_001"); ok {
		t.Fatal("expected no active pointer initially")
	}

	cache.SetActive("shopper_001", "session_a")
	id, ok := cache.ActiveID("shopper_001")
	if !ok || id != "session_a" {
		t.Fatalf("expected session_a active, got %q ok=%v", id, ok)
	}

	cache.SetActive("shopper_001", "session_b")
	id, _ = cache.ActiveID("shopper_001")
	if id != "session_b" {
		t.Fatalf("expected pointer replaced with session_b, got %s", id)
	}
}

func TestForgetClearsActivePointer(t *testing.T) {
	cache := newTestCache(t)
	base := time.Date(2025, 8, 1, 10, 0, 0, 0, time.UTC)

	cache.Remember("shopper_001", chat.Session{ID: "session_a", LastUsed: base})
	cache.SetActive("shopper_001", "session_a")

	cache.Forget("shopper_001", "session_a")

	if _, ok := cache.ActiveID("shopper_001"); ok {
		t.Fatal("expected active pointer cleared")
	}
	if len(cache.History("shopper_001")) != 0 {
		t.Fatal("expected history entry removed")
	}
}

func TestForgetKeepsUnrelatedActivePointer(t *testing.T) {
	cache := newTestCache(t)
	base := time.Date(2025, 8, 1, 10, 0, 0, 0, time.UTC)

	cache.Remember("shopper_001", chat.Session{ID: "session_a", LastUsed: base})
	cache.Remember("shopper_001", chat.Session{ID: "session_b", LastUsed: base.Add(time.Minute)})
	cache.SetActive("shopper_001", "session_b")

	cache.Forget("shopper_001", "session_a")

	id, ok := cache.ActiveID("shopper_001")
	if !ok || id != "session_b" {
		t.Fatalf("expected session_b still active, got %q ok=%v", id, ok)
	}
}

func TestCacheIsolatesUsers(t *testing.T) {
	cache := newTestCache(t)
	base := time.Date(2025, 8, 1, 10, 0, 0, 0, time.UTC)

	cache.Remember("shopper_001", chat.Session{ID: "session_a", LastUsed: base})
	cache.Remember("shopper_002", chat.Session{ID: "session_b", LastUsed: base})
	cache.SetActive("shopper_001", "session_a")

	if got := cache.History("shopper_002"); len(got) != 1 || got[0].ID != "session_b" {
		t.Fatalf("unexpected history for shopper_002: %+v", got)
	}
	if _, ok := cache.ActiveID("shopper_002"); ok {
		t.Fatal("expected no active pointer for shopper_002")
	}
}

func TestCacheSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "shopchat.db")
	base := time.Date(2025, 8, 1, 10, 0, 0, 0, time.UTC)

	cache, err := NewSQLiteCache(path)
	if err != nil {
		t.Fatalf("open cache: %v", err)
	}
	cache.Remember("shopper_001", chat.Session{
		ID:        "session_a",
		Title:     "Session 2025-08-01 10:00",
		CreatedAt: base,
		LastUsed:  base,
	})
	cache.SetActive("shopper_001", "session_a")
	if err := cache.Close(); err != nil {
		t.Fatalf("close cache: %v", err)
	}

	reopened, err := NewSQLiteCache(path)
	if err != nil {
		t.Fatalf("reopen cache: %v", err)
	}
	defer reopened.Close()

	hist := reopened.History("shopper_001")
	if len(hist) != 1 || hist[0].ID != "session_a" {
		t.Fatalf("expected persisted session, got %+v", hist)
	}
	if hist[0].Title != "Session 2025-08-01 10:00" {
		t.Fatalf("unexpected title: %q", hist[0].Title)
	}
	if !hist[0].LastUsed.Equal(base) {
		t.Fatalf("expected LastUsed %s, got %s", base, hist[0].LastUsed)
	}
	if id, _ := reopened.ActiveID("shopper_001"); id != "session_a" {
		t.Fatalf("expected active pointer persisted, got %s", id)
	}
}
