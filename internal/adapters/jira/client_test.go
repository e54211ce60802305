package jira

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func newTestClient(t *testing.T, handler http.Handler, pageSize int) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := NewClient(Config{
		BaseURL:    srv.URL,
		Email:      "dev@example.com",
		APIToken:   "token",
		PageSize:   pageSize,
		HTTPClient: srv.Client(),
	})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return client, srv
}

func TestNewClientRequiresBaseURL(t *testing.T) {
	if _, err := NewClient(Config{BaseURL: "  "}); err == nil {
		t.Fatal("expected error for empty base url")
	}
}

func TestPing(t *testing.T) {
	var gotAuth string
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rest/api/3/myself" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}), 0)

	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("Ping() error = %v", err)
	}
	if gotAuth == "" {
		t.Fatal("expected basic auth header")
	}
}

func TestSearchKeysPaging(t *testing.T) {
	all := []string{"PROJ-1", "PROJ-2", "PROJ-3"}
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/rest/api/3/search" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var req struct {
			StartAt    int `json:"startAt"`
			MaxResults int `json:"maxResults"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode search request: %v", err)
		}
		end := req.StartAt + req.MaxResults
		if end > len(all) {
			end = len(all)
		}
		type issue struct {
			Key string `json:"key"`
		}
		page := struct {
			Total  int     `json:"total"`
			Issues []issue `json:"issues"`
		}{Total: len(all)}
		for _, key := range all[req.StartAt:end] {
			page.Issues = append(page.Issues, issue{Key: key})
		}
		_ = json.NewEncoder(w).Encode(page)
	}), 2)

	keys, err := client.SearchKeys(context.Background(), "project = PROJ")
	if err != nil {
		t.Fatalf("SearchKeys() error = %v", err)
	}
	if len(keys) != 3 {
		t.Fatalf("expected 3 keys, got %v", keys)
	}
	for i, want := range all {
		if keys[i] != want {
			t.Fatalf("key %d = %q, want %q", i, keys[i], want)
		}
	}
}

func TestFetchIssue(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rest/api/3/issue/PROJ-1" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if r.URL.Query().Get("expand") != "changelog" {
			t.Errorf("expected changelog expansion, got %q", r.URL.RawQuery)
		}
		fmt.Fprint(w, `{
			"key": "PROJ-1",
			"fields": {
				"created": "2024-01-01T09:00:00.000+0000",
				"status": {"name": "In Progress"}
			},
			"changelog": {
				"histories": [
					{
						"created": "2024-01-03T09:00:00.000+0000",
						"items": [
							{"field": "status", "fromString": "Open", "toString": "In Progress"},
							{"field": "assignee", "fromString": "a", "toString": "b"}
						]
					}
				]
			}
		}`)
	}), 0)

	rec, err := client.FetchIssue(context.Background(), "PROJ-1")
	if err != nil {
		t.Fatalf("FetchIssue() error = %v", err)
	}
	if rec.Key != "PROJ-1" || rec.CurrentState != "In Progress" {
		t.Fatalf("unexpected record %+v", rec)
	}
	want := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	if !rec.Created.UTC().Equal(want) {
		t.Fatalf("unexpected created %v", rec.Created)
	}
	if len(rec.History.Entries) != 1 || len(rec.History.Entries[0].Items) != 2 {
		t.Fatalf("changelog not carried over: %+v", rec.History)
	}
	if rec.History.Entries[0].Items[0].From != "Open" {
		t.Fatalf("unexpected change item %+v", rec.History.Entries[0].Items[0])
	}
}

func TestRetryOnRateLimit(t *testing.T) {
	var calls atomic.Int32
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
	}), 0)

	start := time.Now()
	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("Ping() error = %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected 2 attempts, got %d", calls.Load())
	}
	if elapsed := time.Since(start); elapsed < time.Second {
		t.Fatalf("expected at least the Retry-After wait, slept %v", elapsed)
	}
}

func TestRetryWaitIsCancellable(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "10")
		w.WriteHeader(http.StatusTooManyRequests)
	}), 0)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	start := time.Now()
	err := client.Ping(ctx)
	if err == nil {
		t.Fatal("expected context error")
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("wait not cancelled, slept %v", elapsed)
	}
}

func TestErrorStatus(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}), 0)
	if err := client.Ping(context.Background()); err == nil {
		t.Fatal("expected error for 500 status")
	}
}

func TestRetryAfterClamp(t *testing.T) {
	mk := func(v string) *http.Response {
		resp := &http.Response{Header: http.Header{}}
		if v != "" {
			resp.Header.Set("Retry-After", v)
		}
		return resp
	}
	if got := retryAfter(mk("0")); got != time.Second {
		t.Fatalf("expected 1s floor, got %v", got)
	}
	if got := retryAfter(mk("600")); got != 10*time.Second {
		t.Fatalf("expected 10s ceiling, got %v", got)
	}
	if got := retryAfter(mk("")); got != 2*time.Second {
		t.Fatalf("expected 2s default, got %v", got)
	}
}
