package stream

import (
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/retailworks/shopchat/internal/model/chat"
	"github.com/retailworks/shopchat/internal/model/frame"
)

// Reducer folds the inbound frame sequence into an ordered transcript.
// Entries are append-only except for waiting placeholders, which are
// removed as soon as real content arrives. At most one entry is ever
// growable, and it is always the tail.
type Reducer struct {
	mu      sync.RWMutex
	entries []chat.Entry
}

// New returns an empty transcript reducer.
func New() *Reducer {
	return &Reducer{entries: make([]chat.Entry, 0, 32)}
}

// Apply folds one validated frame into the transcript. Unknown frame
// types are ignored.
func (r *Reducer) Apply(f frame.Inbound) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch f.Type {
	case frame.TypeTextChunk:
		r.dropTrailingWaits()
		if i := len(r.entries) - 1; i >= 0 && appendable(r.entries[i]) {
			r.entries[i].Text += f.Text
			return
		}
		r.push(chat.Entry{Role: chat.RoleAssistant, Kind: chat.KindPlain, Text: f.Text})

	case frame.TypeProductSearch:
		r.dropTrailingWaits()
		r.push(chat.Entry{Role: chat.RoleAssistant, Kind: chat.KindProducts, Products: f.Products})

	case frame.TypeOrder:
		r.dropTrailingWaits()
		r.push(chat.Entry{Role: chat.RoleAssistant, Kind: chat.KindOrder, Order: f.Order})

	case frame.TypeWait:
		r.push(chat.Entry{Role: chat.RoleAssistant, Kind: chat.KindWaiting, Text: f.Text})

	case frame.TypeError:
		r.dropTrailingWaits()
		r.push(chat.Entry{Role: chat.RoleAssistant, Kind: chat.KindError, Text: f.Text})

	case frame.TypeStreamEnd:
		// The growable tail simply stops growing once the next user
		// turn interposes; the transcript itself does not change.

	default:
		log.Printf("[stream] ignoring frame type %q", f.Type)
	}
}

// AppendUser records an outbound user turn. User entries never grow, so
// they also stop any assistant entry from absorbing later chunks.
func (r *Reducer) AppendUser(text string) chat.Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.push(chat.Entry{Role: chat.RoleUser, Kind: chat.KindPlain, Text: text})
}

// AppendRecommendation records a suggestion chip the user picked.
func (r *Reducer) AppendRecommendation(text string) chat.Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.push(chat.Entry{Role: chat.RoleUser, Kind: chat.KindRecommendation, Text: text})
}

// Entries returns a copy of the transcript in arrival order.
func (r *Reducer) Entries() []chat.Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	copied := make([]chat.Entry, len(r.entries))
	copy(copied, r.entries)
	return copied
}

// Len reports the number of transcript entries.
func (r *Reducer) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Reset clears the transcript, e.g. when switching sessions.
func (r *Reducer) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = r.entries[:0]
}

// appendable reports whether an entry may absorb further chunk text.
// Only a plain assistant entry at the tail qualifies; everything else
// (user turns, products, orders, errors, placeholders) is sealed.
func appendable(e chat.Entry) bool {
	return e.Role == chat.RoleAssistant && e.Kind == chat.KindPlain
}

// dropTrailingWaits removes waiting placeholders sitting at the tail so
// real content never renders below a stale spinner line.
func (r *Reducer) dropTrailingWaits() {
	for len(r.entries) > 0 && r.entries[len(r.entries)-1].Kind == chat.KindWaiting {
		r.entries = r.entries[:len(r.entries)-1]
	}
}

func (r *Reducer) push(e chat.Entry) chat.Entry {
	e.ID = uuid.NewString()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	r.entries = append(r.entries, e)
	return e
}
