package session

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/retailworks/shopchat/internal/model/chat"
)

// RemoteStore is the remote session registry. The REST client
// implements it; tests swap in fakes.
type RemoteStore interface {
	List(ctx context.Context, userID string) ([]chat.Session, error)
	Create(ctx context.Context, s chat.Session) error
	Touch(ctx context.Context, userID, id, title string, messageCount int) error
	Delete(ctx context.Context, userID, id string) error
}

// Cache is the local durable fallback. Implementations absorb their
// own failures; none of these calls may error out.
type Cache interface {
	// ActiveID returns the active session pointer for the user.
	ActiveID(userID string) (string, bool)
	SetActive(userID, id string)
	// History lists remembered sessions most-recent-first, bounded.
	History(userID string) []chat.Session
	// Remember upserts a session; a re-used id moves to the front
	// instead of duplicating.
	Remember(userID string, s chat.Session)
	// Forget drops the session and clears the active pointer when it
	// referenced id.
	Forget(userID, id string)
}

// Resolver answers "which conversation am I in" for one shopper. Remote
// failures degrade to the local cache and a log line; no operation
// surfaces an error to the caller.
type Resolver struct {
	store  RemoteStore
	cache  Cache
	userID string
}

// NewResolver wires a resolver for the given shopper identity.
func NewResolver(store RemoteStore, cache Cache, userID string) *Resolver {
	return &Resolver{store: store, cache: cache, userID: userID}
}

// UserID returns the shopper identity this resolver serves.
func (r *Resolver) UserID() string {
	return r.userID
}

// ResolveActive returns the current session, creating one if the
// shopper has none. Preference order: cached active pointer (validated
// against the remote list when reachable), then the most recent remote
// session, then a freshly minted one.
func (r *Resolver) ResolveActive(ctx context.Context) chat.Session {
	remote, err := r.store.List(ctx, r.userID)
	if err != nil {
		log.Printf("[session] remote list failed, using local cache: %v", err)
		return r.resolveLocal(ctx)
	}

	r.mergeIntoCache(remote)

	if id, ok := r.cache.ActiveID(r.userID); ok {
		for _, s := range remote {
			if s.ID == id {
				return s
			}
		}
		// The pointer refers to a session the remote no longer has.
	}
	if len(remote) > 0 {
		r.cache.SetActive(r.userID, remote[0].ID)
		return remote[0]
	}
	return r.StartNew(ctx)
}

// StartNew mints a fresh session, registers it remotely (best-effort)
// and marks it active in the cache.
func (r *Resolver) StartNew(ctx context.Context) chat.Session {
	now := time.Now()
	s := chat.Session{
		ID:        mintID(now),
		UserID:    r.userID,
		Title:     "Session " + now.Format("2006-01-02 15:04"),
		CreatedAt: now.UTC(),
		LastUsed:  now.UTC(),
	}

	if err := r.store.Create(ctx, s); err != nil {
		log.Printf("[session] remote create failed for %s: %v", s.ID, err)
	}
	r.cache.Remember(r.userID, s)
	r.cache.SetActive(r.userID, s.ID)
	return s
}

// SwitchTo marks id active without validating it remotely. Streams
// still in flight for the previous session are not torn down, so late
// frames can land in the new transcript; callers accept that.
func (r *Resolver) SwitchTo(ctx context.Context, id string) chat.Session {
	log.Printf("[session] switching active session to %s; in-flight frames may still arrive", id)

	target, found := r.lookup(id)
	if !found {
		target = chat.Session{ID: id, UserID: r.userID}
	}
	target.LastUsed = time.Now().UTC()

	r.cache.Remember(r.userID, target)
	r.cache.SetActive(r.userID, id)
	if err := r.store.Touch(ctx, r.userID, id, target.Title, target.MessageCount); err != nil {
		log.Printf("[session] remote touch failed for %s: %v", id, err)
	}
	return target
}

// Touch bumps LastUsed on the active session, remote and cached. A
// negative messageCount leaves the stored count unchanged.
func (r *Resolver) Touch(ctx context.Context, messageCount int) {
	id, ok := r.cache.ActiveID(r.userID)
	if !ok || id == "" {
		return
	}

	cur, found := r.lookup(id)
	if !found {
		cur = chat.Session{ID: id, UserID: r.userID}
	}
	cur.LastUsed = time.Now().UTC()
	if messageCount >= 0 {
		cur.MessageCount = messageCount
	}

	r.cache.Remember(r.userID, cur)
	if err := r.store.Touch(ctx, r.userID, id, cur.Title, cur.MessageCount); err != nil {
		log.Printf("[session] remote touch failed for %s: %v", id, err)
	}
}

// Remove deletes the session remote (best-effort) and locally. If it
// was active the next ResolveActive re-resolves.
func (r *Resolver) Remove(ctx context.Context, id string) {
	if err := r.store.Delete(ctx, r.userID, id); err != nil {
		log.Printf("[session] remote delete failed for %s: %v", id, err)
	}
	r.cache.Forget(r.userID, id)
}

// ListHistory merges the remote list into the cache when reachable and
// serves the cache: most-recent-first, at most 10 entries.
func (r *Resolver) ListHistory(ctx context.Context) []chat.Session {
	remote, err := r.store.List(ctx, r.userID)
	if err != nil {
		log.Printf("[session] remote list failed, serving cached history: %v", err)
	} else {
		r.mergeIntoCache(remote)
	}
	return r.cache.History(r.userID)
}

func (r *Resolver) resolveLocal(ctx context.Context) chat.Session {
	if id, ok := r.cache.ActiveID(r.userID); ok && id != "" {
		if s, found := r.lookup(id); found {
			return s
		}
		// Pointer survived but its record did not; serve a bare handle.
		return chat.Session{ID: id, UserID: r.userID}
	}
	if hist := r.cache.History(r.userID); len(hist) > 0 {
		r.cache.SetActive(r.userID, hist[0].ID)
		return hist[0]
	}
	return r.StartNew(ctx)
}

func (r *Resolver) lookup(id string) (chat.Session, bool) {
	for _, s := range r.cache.History(r.userID) {
		if s.ID == id {
			return s, true
		}
	}
	return chat.Session{}, false
}

// mergeIntoCache replays a recency-desc remote list oldest-first so the
// cache's recency order matches the remote's.
func (r *Resolver) mergeIntoCache(remote []chat.Session) {
	for i := len(remote) - 1; i >= 0; i-- {
		r.cache.Remember(r.userID, remote[i])
	}
}

// mintID builds ids like session_1724580000000_a1b2c3d4e: millisecond
// timestamp plus the first 9 hex chars of a fresh uuid.
func mintID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
	return fmt.Sprintf("session_%d_%s", now.UnixMilli(), suffix)
}
