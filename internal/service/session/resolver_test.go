package session

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/retailworks/shopchat/internal/model/chat"
)

type fakeStore struct {
	sessions  []chat.Session
	listErr   error
	createErr error
	touchErr  error
	deleteErr error

	created []chat.Session
	touched []string
	deleted []string
}

func (f *fakeStore) List(ctx context.Context, userID string) ([]chat.Session, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]chat.Session, len(f.sessions))
	copy(out, f.sessions)
	return out, nil
}

func (f *fakeStore) Create(ctx context.Context, s chat.Session) error {
	f.created = append(f.created, s)
	return f.createErr
}

func (f *fakeStore) Touch(ctx context.Context, userID, id, title string, messageCount int) error {
	f.touched = append(f.touched, id)
	return f.touchErr
}

func (f *fakeStore) Delete(ctx context.Context, userID, id string) error {
	f.deleted = append(f.deleted, id)
	return f.deleteErr
}

type memCache struct {
	active  map[string]string
	history map[string][]chat.Session
}

func newMemCache() *memCache {
	return &memCache{
		active:  make(map[string]string),
		history: make(map[string][]chat.Session),
	}
}

func (m *memCache) ActiveID(userID string) (string, bool) {
	id, ok := m.active[userID]
	return id, ok
}

func (m *memCache) SetActive(userID, id string) {
	m.active[userID] = id
}

func (m *memCache) History(userID string) []chat.Session {
	hist := m.history[userID]
	out := make([]chat.Session, len(hist))
	copy(out, hist)
	return out
}

func (m *memCache) Remember(userID string, s chat.Session) {
	next := []chat.Session{s}
	for _, cur := range m.history[userID] {
		if cur.ID != s.ID {
			next = append(next, cur)
		}
	}
	if len(next) > historyLimit {
		next = next[:historyLimit]
	}
	m.history[userID] = next
}

func (m *memCache) Forget(userID, id string) {
	var next []chat.Session
	for _, cur := range m.history[userID] {
		if cur.ID != id {
			next = append(next, cur)
		}
	}
	m.history[userID] = next
	if m.active[userID] == id {
		delete(m.active, userID)
	}
}

var sessionIDPattern = regexp.MustCompile(`^session_\d{13}_[0-9a-f]{9}$`)

func testSession(id string, lastUsed time.Time) chat.Session {
	return chat.Session{
		ID:        id,
		UserID:    "shopper_001",
		Title:     "Session " + lastUsed.Format("2006-01-02 15:04"),
		CreatedAt: lastUsed,
		LastUsed:  lastUsed,
	}
}

func TestResolveActivePrefersCachedPointer(t *testing.T) {
	base := time.Date(2025, 8, 1, 10, 0, 0, 0, time.UTC)
	older := testSession("session_a", base)
	newer := testSession("session_b", base.Add(time.Hour))

	store := &fakeStore{sessions: []chat.Session{newer, older}}
	cache := newMemCache()
	cache.Remember("shopper_001", older)
	cache.SetActive("shopper_001", "session_a")

	r := NewResolver(store, cache, "shopper_001")
	got := r.ResolveActive(context.Background())

	if got.ID != "session_a" {
		t.Fatalf("expected cached active session_a, got %s", got.ID)
	}
}

func TestResolveActiveFallsToMostRecentRemote(t *testing.T) {
	base := time.Date(2025, 8, 1, 10, 0, 0, 0, time.UTC)
	older := testSession("session_a", base)
	newer := testSession("session_b", base.Add(time.Hour))

	store := &fakeStore{sessions: []chat.Session{newer, older}}
	cache := newMemCache()
	cache.SetActive("shopper_001", "session_gone")

	r := NewResolver(store, cache, "shopper_001")
	got := r.ResolveActive(context.Background())

	if got.ID != "session_b" {
		t.Fatalf("expected most recent remote session_b, got %s", got.ID)
	}
	if id, _ := cache.ActiveID("shopper_001"); id != "session_b" {
		t.Fatalf("expected active pointer session_b, got %s", id)
	}
}

func TestResolveActiveMintsWhenEmpty(t *testing.T) {
	store := &fakeStore{}
	cache := newMemCache()

	r := NewResolver(store, cache, "shopper_001")
	got := r.ResolveActive(context.Background())

	if !sessionIDPattern.MatchString(got.ID) {
		t.Fatalf("unexpected session id shape: %s", got.ID)
	}
	if len(store.created) != 1 {
		t.Fatalf("expected 1 remote create, got %d", len(store.created))
	}
	if id, _ := cache.ActiveID("shopper_001"); id != got.ID {
		t.Fatalf("expected active pointer %s, got %s", got.ID, id)
	}
}

func TestResolveActiveDegradesToCacheOnRemoteFailure(t *testing.T) {
	base := time.Date(2025, 8, 1, 10, 0, 0, 0, time.UTC)
	cached := testSession("session_cached", base)

	store := &fakeStore{listErr: errors.New("remote down")}
	cache := newMemCache()
	cache.Remember("shopper_001", cached)
	cache.SetActive("shopper_001", "session_cached")

	r := NewResolver(store, cache, "shopper_001")
	got := r.ResolveActive(context.Background())

	if got.ID != "session_cached" {
		t.Fatalf("expected cached session, got %s", got.ID)
	}
	if len(store.created) != 0 {
		t.Fatalf("expected no remote create, got %d", len(store.created))
	}
}

func TestResolveActiveRemoteDownEmptyCacheMintsLocally(t *testing.T) {
	store := &fakeStore{
		listErr:   errors.New("remote down"),
		createErr: errors.New("remote down"),
	}
	cache := newMemCache()

	r := NewResolver(store, cache, "shopper_001")
	got := r.ResolveActive(context.Background())

	if !sessionIDPattern.MatchString(got.ID) {
		t.Fatalf("unexpected session id shape: %s", got.ID)
	}
	if id, _ := cache.ActiveID("shopper_001"); id != got.ID {
		t.Fatalf("expected minted session active locally, got %s", id)
	}
	if len(cache.History("shopper_001")) != 1 {
		t.Fatalf("expected minted session cached, got %d entries", len(cache.History("shopper_001")))
	}
}

func TestStartNewShape(t *testing.T) {
	store := &fakeStore{}
	cache := newMemCache()

	r := NewResolver(store, cache, "shopper_001")
	got := r.StartNew(context.Background())

	if !sessionIDPattern.MatchString(got.ID) {
		t.Fatalf("unexpected session id shape: %s", got.ID)
	}
	titlePattern := regexp.MustCompile(`^Session \d{4}-\d{2}-\d{2} \d{2}:\d{2}$`)
	if !titlePattern.MatchString(got.Title) {
		t.Fatalf("unexpected title shape: %q", got.Title)
	}
	if got.UserID != "shopper_001" {
		t.Fatalf("expected owner shopper_001, got %s", got.UserID)
	}
	if len(store.created) != 1 || store.created[0].ID != got.ID {
		t.Fatalf("expected remote create for %s", got.ID)
	}
}

func TestStartNewMintsUniqueIDs(t *testing.T) {
	r := NewResolver(&fakeStore{}, newMemCache(), "shopper_001")

	seen := make(map[string]bool)
	for i := 0; i < 20; i++ {
		s := r.StartNew(context.Background())
		if seen[s.ID] {
			t.Fatalf("duplicate session id minted: %s", s.ID)
		}
		seen[s.ID] = true
	}
}

func TestSwitchToUnknownIDCreatesBareHandle(t *testing.T) {
	store := &fakeStore{}
	cache := newMemCache()

	r := NewResolver(store, cache, "shopper_001")
	got := r.SwitchTo(context.Background(), "session_elsewhere")

	if got.ID != "session_elsewhere" {
		t.Fatalf("expected handle for session_elsewhere, got %s", got.ID)
	}
	if id, _ := cache.ActiveID("shopper_001"); id != "session_elsewhere" {
		t.Fatalf("expected active pointer session_elsewhere, got %s", id)
	}
	if len(store.touched) != 1 || store.touched[0] != "session_elsewhere" {
		t.Fatalf("expected remote touch for session_elsewhere, got %v", store.touched)
	}
}

func TestTouchBumpsActiveSession(t *testing.T) {
	base := time.Date(2025, 8, 1, 10, 0, 0, 0, time.UTC)
	active := testSession("session_active", base)
	active.MessageCount = 2

	store := &fakeStore{}
	cache := newMemCache()
	cache.Remember("shopper_001", active)
	cache.SetActive("shopper_001", "session_active")

	r := NewResolver(store, cache, "shopper_001")
	r.Touch(context.Background(), 5)

	hist := cache.History("shopper_001")
	if len(hist) != 1 || hist[0].MessageCount != 5 {
		t.Fatalf("expected message count 5, got %+v", hist)
	}
	if !hist[0].LastUsed.After(base) {
		t.Fatalf("expected LastUsed bumped past %s, got %s", base, hist[0].LastUsed)
	}

	r.Touch(context.Background(), -1)
	hist = cache.History("shopper_001")
	if hist[0].MessageCount != 5 {
		t.Fatalf("expected negative count to leave 5 unchanged, got %d", hist[0].MessageCount)
	}
}

func TestTouchWithoutActiveIsNoOp(t *testing.T) {
	store := &fakeStore{}
	r := NewResolver(store, newMemCache(), "shopper_001")

	r.Touch(context.Background(), 3)

	if len(store.touched) != 0 {
		t.Fatalf("expected no remote touch, got %v", store.touched)
	}
}

func TestRemoveClearsActivePointer(t *testing.T) {
	base := time.Date(2025, 8, 1, 10, 0, 0, 0, time.UTC)
	active := testSession("session_doomed", base)

	store := &fakeStore{deleteErr: errors.New("remote down")}
	cache := newMemCache()
	cache.Remember("shopper_001", active)
	cache.SetActive("shopper_001", "session_doomed")

	r := NewResolver(store, cache, "shopper_001")
	r.Remove(context.Background(), "session_doomed")

	if len(store.deleted) != 1 {
		t.Fatalf("expected remote delete attempt, got %v", store.deleted)
	}
	if _, ok := cache.ActiveID("shopper_001"); ok {
		t.Fatal("expected active pointer cleared")
	}
	if len(cache.History("shopper_001")) != 0 {
		t.Fatal("expected session forgotten locally")
	}
}

func TestListHistoryMergesRemoteIntoCache(t *testing.T) {
	base := time.Date(2025, 8, 1, 10, 0, 0, 0, time.UTC)
	local := testSession("session_local", base)
	older := testSession("session_a", base.Add(time.Hour))
	newer := testSession("session_b", base.Add(2*time.Hour))

	store := &fakeStore{sessions: []chat.Session{newer, older}}
	cache := newMemCache()
	cache.Remember("shopper_001", local)

	r := NewResolver(store, cache, "shopper_001")
	got := r.ListHistory(context.Background())

	if len(got) != 3 {
		t.Fatalf("expected 3 sessions, got %d", len(got))
	}
	if got[0].ID != "session_b" || got[1].ID != "session_a" || got[2].ID != "session_local" {
		t.Fatalf("unexpected order: %s %s %s", got[0].ID, got[1].ID, got[2].ID)
	}
}

func TestListHistoryServesCacheWhenRemoteDown(t *testing.T) {
	base := time.Date(2025, 8, 1, 10, 0, 0, 0, time.UTC)
	local := testSession("session_local", base)

	store := &fakeStore{listErr: errors.New("remote down")}
	cache := newMemCache()
	cache.Remember("shopper_001", local)

	r := NewResolver(store, cache, "shopper_001")
	got := r.ListHistory(context.Background())

	if len(got) != 1 || got[0].ID != "session_local" {
		t.Fatalf("expected cached history, got %+v", got)
	}
}
