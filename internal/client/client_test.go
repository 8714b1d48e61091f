package client_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"peermatch-service/internal/client"
	"peermatch-service/internal/model"
)

func TestFetchRandomQuestion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/questions/random" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("topic"); got != "arrays" {
			t.Fatalf("unexpected topic %q", got)
		}
		if got := r.URL.Query().Get("difficulty"); got != "medium" {
			t.Fatalf("unexpected difficulty %q", got)
		}
		json.NewEncoder(w).Encode(model.Question{
			ID: "q1", Title: "Two Sum", Difficulty: "medium", Topic: "arrays",
		})
	}))
	defer srv.Close()

	c := client.NewQuestionClient(srv.URL, time.Second)
	q, err := c.FetchRandom(context.Background(), "arrays", "medium")
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if q.ID != "q1" || q.Title != "Two Sum" {
		t.Fatalf("unexpected question: %+v", q)
	}
}

func TestFetchRandomQuestionNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no question", http.StatusNotFound)
	}))
	defer srv.Close()

	c := client.NewQuestionClient(srv.URL, time.Second)
	if _, err := c.FetchRandom(context.Background(), "arrays", "medium"); err == nil {
		t.Fatal("expected error on 404")
	}
}

func TestCreateSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/sessions" {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var body map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("bad body: %v", err)
		}
		if body["userA"] != "u1" || body["userB"] != "u2" {
			t.Fatalf("unexpected users: %v", body)
		}
		if body["questionId"] != "q1" {
			t.Fatalf("question fields not flattened: %v", body)
		}
		json.NewEncoder(w).Encode(map[string]string{"id": "sess-9"})
	}))
	defer srv.Close()

	c := client.NewCollabClient(srv.URL, time.Second)
	id, err := c.Create(context.Background(), client.SessionRequest{
		UserA: "u1", UserB: "u2", Topic: "arrays", Difficulty: "medium",
		Question: model.Question{ID: "q1", Title: "Two Sum"},
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if id != "sess-9" {
		t.Fatalf("expected sess-9, got %q", id)
	}
}

func TestSessionStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/sessions/live":
			json.NewEncoder(w).Encode(map[string]interface{}{
				"session": map[string]string{"status": "active"},
			})
		case "/sessions/done":
			json.NewEncoder(w).Encode(map[string]interface{}{
				"session": map[string]string{"status": "ended"},
			})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := client.NewCollabClient(srv.URL, time.Second)

	status, found, err := c.Status(context.Background(), "live")
	if err != nil || !found || status != "active" {
		t.Fatalf("live: status=%q found=%v err=%v", status, found, err)
	}

	status, found, err = c.Status(context.Background(), "done")
	if err != nil || !found || status != client.SessionEnded {
		t.Fatalf("done: status=%q found=%v err=%v", status, found, err)
	}

	// a vanished session is a signal, not an error
	_, found, err = c.Status(context.Background(), "gone")
	if err != nil || found {
		t.Fatalf("gone: found=%v err=%v", found, err)
	}
}
