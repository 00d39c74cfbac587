package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"bountyhooks/pkg/storage"
)

type stubClaims struct {
	records []storage.ClaimRecord
	err     error
	repoID  int64
}

func (s *stubClaims) SaveClaim(ctx context.Context, record storage.ClaimRecord) error { return nil }

func (s *stubClaims) GetClaim(ctx context.Context, prID int64) (*storage.ClaimRecord, error) {
	for i := range s.records {
		if s.records[i].PRID == prID {
			return &s.records[i], nil
		}
	}
	return nil, s.err
}

func (s *stubClaims) ListClaims(ctx context.Context, repoID int64) ([]storage.ClaimRecord, error) {
	s.repoID = repoID
	return s.records, s.err
}

type stubBounties struct {
	records []storage.BountyRecord
}

func (s *stubBounties) UpsertBounty(ctx context.Context, record storage.BountyRecord) error {
	return nil
}

func (s *stubBounties) CloseBounty(ctx context.Context, issueID int64, commitID string) error {
	return nil
}

func (s *stubBounties) ListBounties(ctx context.Context, repoID int64) ([]storage.BountyRecord, error) {
	return s.records, nil
}

func newRouter(claims storage.ClaimStore, bounties storage.BountyStore) http.Handler {
	r := chi.NewRouter()
	Mount(r, claims, bounties, log.New(io.Discard, "", 0))
	return r
}

func get(h http.Handler, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestClaimsHandlerListsByRepo(t *testing.T) {
	commit := "abc123"
	claims := &stubClaims{records: []storage.ClaimRecord{
		{RepoID: 7, PRID: 9001, PRNumber: 12, UserID: 55, IssueNumber: 42, State: "merged", CommitID: &commit},
	}}
	rec := get(newRouter(claims, &stubBounties{}), "/claims?repo_id=7")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if claims.repoID != 7 {
		t.Fatalf("expected repo 7, got %d", claims.repoID)
	}
	var out []map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out) != 1 || out[0]["state"] != "merged" || out[0]["commit_id"] != "abc123" {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}
}

func TestClaimsHandlerValidatesRepoID(t *testing.T) {
	router := newRouter(&stubClaims{}, &stubBounties{})
	if rec := get(router, "/claims"); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing repo_id, got %d", rec.Code)
	}
	if rec := get(router, "/claims?repo_id=abc"); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid repo_id, got %d", rec.Code)
	}
}

func TestClaimsHandlerStoreError(t *testing.T) {
	rec := get(newRouter(&stubClaims{err: errors.New("boom")}, &stubBounties{}), "/claims?repo_id=7")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestBountiesHandler(t *testing.T) {
	bounties := &stubBounties{records: []storage.BountyRecord{
		{RepoID: 7, Owner: "acme", RepoName: "widgets", IssueID: 4242, IssueNumber: 42, State: "open"},
	}}
	rec := get(newRouter(&stubClaims{}, bounties), "/bounties?repo_id=7")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var out []map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out) != 1 || out[0]["repository"] != "acme/widgets" || out[0]["closing_commit_id"] != nil {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}
}

func TestHealth(t *testing.T) {
	rec := get(newRouter(&stubClaims{}, &stubBounties{}), "/health")
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "application/json" {
		t.Fatalf("unexpected health response %d %q", rec.Code, rec.Header().Get("Content-Type"))
	}
}

func TestClaimHandlerByPullRequest(t *testing.T) {
	claims := &stubClaims{records: []storage.ClaimRecord{
		{RepoID: 7, PRID: 9001, PRNumber: 12, IssueNumber: 42, State: "opened"},
	}}
	router := newRouter(claims, &stubBounties{})

	rec := get(router, "/claims/9001")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var out map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out["state"] != "opened" || out["commit_id"] != nil {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}

	if rec := get(router, "/claims/1"); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown claim, got %d", rec.Code)
	}
	if rec := get(router, "/claims/abc"); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid pr_id, got %d", rec.Code)
	}
}
