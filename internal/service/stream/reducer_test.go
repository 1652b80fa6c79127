package stream_test

import (
	"testing"

	"github.com/retailworks/shopchat/internal/model/chat"
	"github.com/retailworks/shopchat/internal/model/frame"
	"github.com/retailworks/shopchat/internal/service/stream"
)

func chunk(text string) frame.Inbound {
	return frame.Inbound{Type: frame.TypeTextChunk, Text: text}
}

func TestApplyChunksCoalesce(t *testing.T) {
	r := stream.New()
	r.Apply(chunk("Here are "))
	r.Apply(chunk("some options."))

	entries := r.Entries()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].Text != "Here are some options." {
		t.Fatalf("chunks did not coalesce: %q", entries[0].Text)
	}
	if entries[0].Role != chat.RoleAssistant || entries[0].Kind != chat.KindPlain {
		t.Fatalf("unexpected entry shape: %+v", entries[0])
	}
}

func TestApplyUserTurnSplitsChunkRuns(t *testing.T) {
	r := stream.New()
	r.Apply(chunk("First answer"))
	r.AppendUser("another question")
	r.Apply(chunk("Second answer"))

	entries := r.Entries()
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if entries[0].Text != "First answer" || entries[2].Text != "Second answer" {
		t.Fatalf("chunk runs merged across user turn: %+v", entries)
	}
	if entries[1].Role != chat.RoleUser {
		t.Fatalf("middle entry should be the user turn: %+v", entries[1])
	}
}

func TestApplyWaitRemovedBeforeContent(t *testing.T) {
	r := stream.New()
	r.Apply(frame.Inbound{Type: frame.TypeWait, Text: "Searching for products..."})
	r.Apply(frame.Inbound{Type: frame.TypeWait, Text: "Getting order history..."})
	r.Apply(chunk("Found it."))

	entries := r.Entries()
	if len(entries) != 1 {
		t.Fatalf("placeholders should be gone, got %d entries", len(entries))
	}
	if entries[0].Kind != chat.KindPlain || entries[0].Text != "Found it." {
		t.Fatalf("unexpected surviving entry: %+v", entries[0])
	}
}

func TestApplyWaitRemovedBeforeEveryContentKind(t *testing.T) {
	cases := []frame.Inbound{
		{Type: frame.TypeProductSearch, Products: []chat.Product{{ID: "p1", Name: "Lamp"}}},
		{Type: frame.TypeOrder, Order: &chat.Order{OrderID: "o-1", Status: "shipped"}},
		{Type: frame.TypeError, Text: "Sorry, there was an error processing your request. Please try again."},
	}
	for _, content := range cases {
		r := stream.New()
		r.Apply(frame.Inbound{Type: frame.TypeWait, Text: "Searching for products..."})
		r.Apply(content)

		entries := r.Entries()
		if len(entries) != 1 {
			t.Fatalf("%s: placeholder survived, %d entries", content.Type, len(entries))
		}
		if entries[0].Kind == chat.KindWaiting {
			t.Fatalf("%s: tail is still a placeholder", content.Type)
		}
	}
}

func TestApplyErrorIsolation(t *testing.T) {
	r := stream.New()
	r.Apply(chunk("partial answer"))
	r.Apply(frame.Inbound{Type: frame.TypeError, Text: "Sorry, I encountered an error: timeout"})
	r.Apply(chunk("fresh start"))

	entries := r.Entries()
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if entries[1].Kind != chat.KindError {
		t.Fatalf("expected error entry, got %+v", entries[1])
	}
	if entries[1].Text != "Sorry, I encountered an error: timeout" {
		t.Fatalf("error text mangled: %q", entries[1].Text)
	}
	if entries[2].Text != "fresh start" || entries[2].Kind != chat.KindPlain {
		t.Fatalf("chunk after error should start a new entry: %+v", entries[2])
	}
}

func TestApplyContentKindsSealTheTail(t *testing.T) {
	r := stream.New()
	r.Apply(frame.Inbound{Type: frame.TypeProductSearch, Products: []chat.Product{{ID: "p1"}}})
	r.Apply(chunk("And here is why."))

	entries := r.Entries()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Kind != chat.KindProducts || entries[1].Kind != chat.KindPlain {
		t.Fatalf("product entry absorbed chunk text: %+v", entries)
	}
}

func TestApplyUnknownTypeIsNoOp(t *testing.T) {
	r := stream.New()
	r.Apply(chunk("hello"))
	r.Apply(frame.Inbound{Type: "typing_indicator"})

	entries := r.Entries()
	if len(entries) != 1 || entries[0].Text != "hello" {
		t.Fatalf("unknown frame mutated the transcript: %+v", entries)
	}
}

func TestApplyStreamEndKeepsTranscript(t *testing.T) {
	r := stream.New()
	r.Apply(chunk("done"))
	r.Apply(frame.Inbound{Type: frame.TypeStreamEnd})

	entries := r.Entries()
	if len(entries) != 1 || entries[0].Text != "done" {
		t.Fatalf("stream_end mutated the transcript: %+v", entries)
	}
}

// Applying a chunk may only grow the tail or add a new tail. Settled
// entries never change, whatever came before; the only removable ones
// are trailing waiting placeholders.
func TestChunksNeverMutateSettledEntries(t *testing.T) {
	script := []frame.Inbound{
		{Type: frame.TypeWait, Text: "Searching for products..."},
		chunk("a"),
		{Type: frame.TypeProductSearch, Products: []chat.Product{{ID: "p1"}}},
		chunk("b"),
		{Type: frame.TypeError, Text: "boom"},
		{Type: frame.TypeStreamEnd},
		chunk("c"),
		{Type: frame.TypeOrder, Order: &chat.Order{OrderID: "o-9"}},
	}

	r := stream.New()
	for _, f := range script {
		r.Apply(f)

		before := r.Entries()
		base := before
		for len(base) > 0 && base[len(base)-1].Kind == chat.KindWaiting {
			base = base[:len(base)-1]
		}

		r.Apply(chunk("x"))
		after := r.Entries()

		var settled int
		switch len(after) {
		case len(base) + 1:
			settled = len(base)
		case len(base):
			settled = len(base) - 1
		default:
			t.Fatalf("after %s: chunk changed entry count %d -> %d", f.Type, len(base), len(after))
		}
		for i := 0; i < settled; i++ {
			if base[i].ID != after[i].ID || base[i].Text != after[i].Text {
				t.Fatalf("after %s: settled entry %d mutated", f.Type, i)
			}
		}
	}
}

func TestScenarioStreamWithInterruptions(t *testing.T) {
	r := stream.New()

	r.AppendUser("show me desk lamps")
	r.Apply(frame.Inbound{Type: frame.TypeWait, Text: "Searching for products..."})
	r.Apply(chunk("Here are "))
	r.Apply(chunk("some options."))
	r.AppendUser("actually, my orders")
	r.Apply(frame.Inbound{Type: frame.TypeWait, Text: "Getting order history..."})
	r.Apply(frame.Inbound{Type: frame.TypeError, Text: "Sorry, there was an error processing your request. Please try again."})
	r.Apply(chunk("Let me retry "))
	r.Apply(chunk("that."))
	r.Apply(frame.Inbound{Type: frame.TypeStreamEnd})

	entries := r.Entries()
	want := []struct {
		role chat.Role
		kind chat.Kind
		text string
	}{
		{chat.RoleUser, chat.KindPlain, "show me desk lamps"},
		{chat.RoleAssistant, chat.KindPlain, "Here are some options."},
		{chat.RoleUser, chat.KindPlain, "actually, my orders"},
		{chat.RoleAssistant, chat.KindError, "Sorry, there was an error processing your request. Please try again."},
		{chat.RoleAssistant, chat.KindPlain, "Let me retry that."},
	}

	if len(entries) != len(want) {
		t.Fatalf("expected %d entries, got %d: %+v", len(want), len(entries), entries)
	}
	for i, w := range want {
		if entries[i].Role != w.role || entries[i].Kind != w.kind || entries[i].Text != w.text {
			t.Fatalf("entry %d = {%s %s %q}, want {%s %s %q}",
				i, entries[i].Role, entries[i].Kind, entries[i].Text, w.role, w.kind, w.text)
		}
	}
}

func TestEntriesReturnsCopy(t *testing.T) {
	r := stream.New()
	r.Apply(chunk("immutable"))

	entries := r.Entries()
	entries[0].Text = "mutated"

	if got := r.Entries()[0].Text; got != "immutable" {
		t.Fatalf("caller mutation leaked into the reducer: %q", got)
	}
}

func TestResetClearsTranscript(t *testing.T) {
	r := stream.New()
	r.AppendUser("hello")
	r.Apply(chunk("world"))
	r.Reset()

	if r.Len() != 0 {
		t.Fatalf("expected empty transcript after reset, got %d", r.Len())
	}
}

func TestAppendRecommendationKind(t *testing.T) {
	r := stream.New()
	e := r.AppendRecommendation("Show me seasonal home decor")
	if e.Role != chat.RoleUser || e.Kind != chat.KindRecommendation {
		t.Fatalf("unexpected recommendation entry: %+v", e)
	}
	if e.ID == "" {
		t.Fatal("entry should receive an id")
	}
}
