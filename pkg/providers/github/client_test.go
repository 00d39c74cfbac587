package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"bountyhooks/pkg/bounty"
)

func newTestClient(t *testing.T, mux *http.ServeMux) *Client {
	t.Helper()
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	client, err := NewClient(context.Background(), Config{BaseURL: server.URL, Token: "test-token", TimeoutMS: 2000})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func TestGetIssueLabels(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v3/repos/acme/api/issues/5", func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("unexpected authorization header %q", got)
		}
		fmt.Fprint(w, `{"id":905,"number":5,"title":"Crash","labels":[{"name":"bug"},{"name":"bounty"}]}`)
	})
	client := newTestClient(t, mux)

	issue, err := client.GetIssue(context.Background(), "acme", "api", 5)
	if err != nil {
		t.Fatalf("get issue: %v", err)
	}
	if issue.ID != 905 || issue.Number != 5 || len(issue.Labels) != 2 || issue.Labels[1] != "bounty" {
		t.Fatalf("unexpected issue: %+v", issue)
	}
}

func TestGetIssueNotFound(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v3/repos/acme/api/issues/6", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"message":"Not Found"}`)
	})
	client := newTestClient(t, mux)

	if _, err := client.GetIssue(context.Background(), "acme", "api", 6); !errors.Is(err, bounty.ErrIssueNotFound) {
		t.Fatalf("expected ErrIssueNotFound, got %v", err)
	}
}

func TestListIssueEventsPaginates(t *testing.T) {
	mux := http.NewServeMux()
	var serverURL string
	mux.HandleFunc("/api/v3/repos/acme/api/issues/7/events", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "2" {
			fmt.Fprint(w, `[{"event":"merged","actor":{"login":"dev"},"commit_id":"sha-2"}]`)
			return
		}
		w.Header().Set("Link", fmt.Sprintf(`<%s/api/v3/repos/acme/api/issues/7/events?page=2>; rel="next"`, serverURL))
		fmt.Fprint(w, `[{"event":"labeled","actor":{"login":"owner"}}]`)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	serverURL = server.URL

	client, err := NewClient(context.Background(), Config{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	events, err := client.ListIssueEvents(context.Background(), "acme", "api", 7)
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events across pages, got %d", len(events))
	}
	if events[1].Event != "merged" || events[1].Actor != "dev" || events[1].CommitID != "sha-2" {
		t.Fatalf("unexpected event: %+v", events[1])
	}
}

func TestClientRequiresRepository(t *testing.T) {
	client, err := NewClient(context.Background(), Config{})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if _, err := client.GetIssue(context.Background(), "", "api", 1); !errors.Is(err, bounty.ErrMissingRepo) {
		t.Fatalf("expected ErrMissingRepo, got %v", err)
	}
}
