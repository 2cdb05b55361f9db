package timelog

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func testClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{
		RootURL:     srv.URL,
		FunctionKey: "func-key",
		APIKey:      "api-key",
		Timeout:     5 * time.Second,
	})
}

func TestEntriesForWorkItem(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/func-key/timelog/query" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("x-functions-key"); got != "api-key" {
			t.Errorf("Expected x-functions-key header, got %q", got)
		}
		q := r.URL.Query()
		if got := q.Get("createdOnFromDate"); got != "2025-01-01T00:00:00" {
			t.Errorf("createdOnFromDate = %q", got)
		}
		if got := q.Get("workitemId"); got != "123" {
			t.Errorf("workitemId = %q", got)
		}
		fmt.Fprint(w, `[
			{"comment":"fixture work","week":12,"timeTypeDescription":"Development","minutes":90,"date":"2025-03-15T00:00:00","userName":"jane","createdOn":"2025-03-15T16:04:11","createdBy":"jane"},
			{"comment":"review","week":12,"timeTypeDescription":"Review","minutes":30.5,"date":"2025-03-16T00:00:00","userName":"joe","createdOn":"2025-03-16T09:00:00","createdBy":"joe"}
		]`)
	}))

	entries := client.EntriesForWorkItem(context.Background(), "123", 2025)
	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(entries))
	}
	if entries[0].Comment != "fixture work" {
		t.Errorf("Comment = %q", entries[0].Comment)
	}
	if entries[0].Minutes.String() != "90" {
		t.Errorf("Minutes = %q, want 90", entries[0].Minutes.String())
	}
	if entries[1].Minutes.String() != "30.5" {
		t.Errorf("Minutes = %q, want 30.5 preserved exactly", entries[1].Minutes.String())
	}
}

func TestEntriesForWorkItem_NotFoundMeansEmpty(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	if entries := client.EntriesForWorkItem(context.Background(), "999", 2025); len(entries) != 0 {
		t.Errorf("Expected zero entries for 404, got %d", len(entries))
	}
}

func TestEntriesForWorkItem_FailOpen(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}},
		{"forbidden", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		}},
		{"malformed body", func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"not":"a list"}`)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := testClient(t, tt.handler)
			if entries := client.EntriesForWorkItem(context.Background(), "1", 2025); len(entries) != 0 {
				t.Errorf("Expected zero entries on %s, got %d", tt.name, len(entries))
			}
		})
	}
}
