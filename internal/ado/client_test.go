package ado

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func testClient(t *testing.T, handler http.Handler) Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{
		BaseURL:      srv.URL,
		Organization: "testorg",
		Token:        "secret",
		Timeout:      5 * time.Second,
	})
}

func TestFetchWorkItems_BatchBoundaries(t *testing.T) {
	tests := []struct {
		name        string
		idCount     int
		wantBatches []int
	}{
		{"exactly one full batch", 200, []int{200}},
		{"one over the limit", 201, []int{200, 1}},
		{"small", 3, []int{3}},
		{"empty", 0, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotBatches []int
			client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if !strings.Contains(r.URL.Path, "/testorg/Proj/_apis/wit/workitemsbatch") {
					t.Errorf("unexpected path %s", r.URL.Path)
				}
				var req batchRequest
				if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
					t.Fatalf("decode request: %v", err)
				}
				gotBatches = append(gotBatches, len(req.IDs))

				resp := batchResponse{}
				for _, id := range req.IDs {
					resp.Value = append(resp.Value, workItemDTO{
						ID:     id,
						Fields: workItemFields{ID: id, Title: fmt.Sprintf("Item %d", id), State: "Doing"},
					})
				}
				json.NewEncoder(w).Encode(resp)
			}))

			ids := make([]int, tt.idCount)
			for i := range ids {
				ids[i] = i + 1
			}

			items, err := client.FetchWorkItems(context.Background(), "Proj", ids)
			if err != nil {
				t.Fatalf("FetchWorkItems: %v", err)
			}
			if len(items) != tt.idCount {
				t.Errorf("Expected %d items, got %d", tt.idCount, len(items))
			}
			if len(gotBatches) != len(tt.wantBatches) {
				t.Fatalf("Expected %d batch calls, got %d (%v)", len(tt.wantBatches), len(gotBatches), gotBatches)
			}
			for i, want := range tt.wantBatches {
				if gotBatches[i] != want {
					t.Errorf("Batch %d: expected size %d, got %d", i, want, gotBatches[i])
				}
			}
		})
	}
}

func TestQueryWorkItemIDs_Scope(t *testing.T) {
	var gotPath string
	var gotQuery string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		var req wiqlRequest
		json.NewDecoder(r.Body).Decode(&req)
		gotQuery = req.Query
		fmt.Fprint(w, `{"workItems":[{"id":7},{"id":9}]}`)
	})

	t.Run("project scoped", func(t *testing.T) {
		client := testClient(t, handler)
		ids, err := client.QueryWorkItemIDs(context.Background(), "My Project", "SELECT [System.Id] FROM WorkItems")
		if err != nil {
			t.Fatalf("QueryWorkItemIDs: %v", err)
		}
		if len(ids) != 2 || ids[0] != 7 || ids[1] != 9 {
			t.Errorf("Expected [7 9], got %v", ids)
		}
		if gotPath != "/testorg/My%20Project/_apis/wit/wiql" {
			t.Errorf("Expected project-scoped wiql path, got %s", gotPath)
		}
		if gotQuery != "SELECT [System.Id] FROM WorkItems" {
			t.Errorf("Query not forwarded, got %q", gotQuery)
		}
	})

	t.Run("organization scoped", func(t *testing.T) {
		client := testClient(t, handler)
		if _, err := client.QueryWorkItemIDs(context.Background(), "", "SELECT [System.Id] FROM WorkItems"); err != nil {
			t.Fatalf("QueryWorkItemIDs: %v", err)
		}
		if gotPath != "/testorg/_apis/wit/wiql" {
			t.Errorf("Expected org-scoped wiql path, got %s", gotPath)
		}
	})
}

func TestTeamSettings_Probe(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/testorg/Proj/Team_A/_apis/work/teamsettings" {
			fmt.Fprint(w, `{"bugsBehavior":"off"}`)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))

	if err := client.TeamSettings(context.Background(), "Proj", "Team_A"); err != nil {
		t.Errorf("Expected existing team probe to succeed, got %v", err)
	}
	if err := client.TeamSettings(context.Background(), "Proj", "Team_Ghost"); err == nil {
		t.Error("Expected missing team probe to fail")
	}
}

func TestRevisions(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "" {
			t.Error("Expected Authorization header on revisions request")
		}
		if r.URL.Path != "/testorg/Proj/_apis/wit/workItems/42/revisions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		fmt.Fprint(w, `{"value":[
			{"rev":1,"fields":{"System.State":"New","System.ChangedDate":"2025-02-01T08:00:00Z"}},
			{"rev":2,"fields":{"System.State":"Doing","System.ChangedDate":"2025-02-03T09:30:00Z"}}
		]}`)
	}))

	revs, err := client.Revisions(context.Background(), "Proj", 42)
	if err != nil {
		t.Fatalf("Revisions: %v", err)
	}
	if len(revs) != 2 {
		t.Fatalf("Expected 2 revisions, got %d", len(revs))
	}
	if revs[1].Fields.State != "Doing" {
		t.Errorf("Expected second revision state Doing, got %q", revs[1].Fields.State)
	}
}

func TestAuthHeader(t *testing.T) {
	var gotAuth string
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		fmt.Fprint(w, `{}`)
	}))

	_ = client.TeamSettings(context.Background(), "Proj", "Team_A")

	// base64(":secret")
	want := "Basic OnNlY3JldA=="
	if gotAuth != want {
		t.Errorf("Expected auth header %q, got %q", want, gotAuth)
	}
}
