package session

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/retailworks/shopchat/internal/model/chat"
)

func TestRESTStoreList(t *testing.T) {
	base := time.Date(2025, 8, 1, 10, 0, 0, 0, time.UTC)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("expected GET, got %s", r.Method)
			return
		}
		if r.URL.Path != "/sessions/shopper_001" {
			t.Errorf("unexpected path: %s", r.URL.Path)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"sessions": []chat.Session{
				{ID: "session_b", UserID: "shopper_001", LastUsed: base.Add(time.Hour)},
				{ID: "session_a", UserID: "shopper_001", LastUsed: base},
			},
		})
	}))
	defer srv.Close()

	store := NewRESTStore(srv.URL, nil)
	got, err := store.List(context.Background(), "shopper_001")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 || got[0].ID != "session_b" {
		t.Fatalf("unexpected sessions: %+v", got)
	}
}

func TestRESTStoreListErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	store := NewRESTStore(srv.URL, nil)
	if _, err := store.List(context.Background(), "shopper_001"); err == nil {
		t.Fatal("expected error on 500")
	}
}

func TestRESTStoreCreate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
			return
		}
		if r.URL.Path != "/sessions/shopper_001" {
			t.Errorf("unexpected path: %s", r.URL.Path)
			return
		}
		var body struct {
			SessionID   string `json:"sessionId"`
			UserID      string `json:"userId"`
			Title       string `json:"title"`
			IsAgentMode bool   `json:"isAgentMode"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
			return
		}
		if body.SessionID != "session_new" || body.UserID != "shopper_001" {
			t.Errorf("unexpected body: %+v", body)
			return
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]string{
			"sessionId": body.SessionID,
			"message":   "Session created successfully",
		})
	}))
	defer srv.Close()

	store := NewRESTStore(srv.URL, nil)
	err := store.Create(context.Background(), chat.Session{
		ID:     "session_new",
		UserID: "shopper_001",
		Title:  "Session 2025-08-01 10:00",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
}

func TestRESTStoreTouchOmitsNegativeCount(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("expected PUT, got %s", r.Method)
			return
		}
		if r.URL.Path != "/sessions/shopper_001/session_a" {
			t.Errorf("unexpected path: %s", r.URL.Path)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"message": "Session updated successfully"})
	}))
	defer srv.Close()

	store := NewRESTStore(srv.URL, nil)
	if err := store.Touch(context.Background(), "shopper_001", "session_a", "", -1); err != nil {
		t.Fatalf("touch: %v", err)
	}
	if _, present := got["messageCount"]; present {
		t.Fatalf("expected messageCount omitted, got %+v", got)
	}
	if _, present := got["title"]; present {
		t.Fatalf("expected empty title omitted, got %+v", got)
	}
}

func TestRESTStoreTouchSendsCount(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		json.NewEncoder(w).Encode(map[string]string{"message": "Session updated successfully"})
	}))
	defer srv.Close()

	store := NewRESTStore(srv.URL, nil)
	if err := store.Touch(context.Background(), "shopper_001", "session_a", "Renamed", 7); err != nil {
		t.Fatalf("touch: %v", err)
	}
	if got["messageCount"] != float64(7) {
		t.Fatalf("expected messageCount 7, got %v", got["messageCount"])
	}
	if got["title"] != "Renamed" {
		t.Fatalf("expected title Renamed, got %v", got["title"])
	}
}

func TestRESTStoreDelete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			t.Errorf("expected DELETE, got %s", r.Method)
			return
		}
		if r.URL.Path != "/sessions/shopper_001/session_a" {
			t.Errorf("unexpected path: %s", r.URL.Path)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"message": "Session deleted successfully"})
	}))
	defer srv.Close()

	store := NewRESTStore(srv.URL, nil)
	if err := store.Delete(context.Background(), "shopper_001", "session_a"); err != nil {
		t.Fatalf("delete: %v", err)
	}
}

func TestRESTStoreTrimsTrailingSlash(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/sessions/shopper_001" {
			t.Errorf("unexpected path: %s", r.URL.Path)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"sessions": []chat.Session{}})
	}))
	defer srv.Close()

	store := NewRESTStore(srv.URL+"/api/v1/", nil)
	if _, err := store.List(context.Background(), "shopper_001"); err != nil {
		t.Fatalf("list: %v", err)
	}
}
