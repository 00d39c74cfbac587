package api

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"bountyhooks/pkg/storage"
)

// ClaimsHandler lists pull request claims of a repository.
type ClaimsHandler struct {
	Store  storage.ClaimStore
	Logger *log.Logger
}

func (h *ClaimsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		http.Error(w, "storage not configured", http.StatusServiceUnavailable)
		return
	}
	repoID, ok := repoIDParam(w, r)
	if !ok {
		return
	}
	records, err := h.Store.ListClaims(r.Context(), repoID)
	if err != nil {
		http.Error(w, "list claims failed", http.StatusInternalServerError)
		if h.Logger != nil {
			h.Logger.Printf("list claims failed repo_id=%d: %v", repoID, err)
		}
		return
	}
	out := make([]claimResponse, 0, len(records))
	for _, record := range records {
		out = append(out, toClaimResponse(record))
	}
	writeJSON(w, out)
}

// ClaimHandler returns the claim of one pull request, addressed by {pr_id}.
type ClaimHandler struct {
	Store  storage.ClaimStore
	Logger *log.Logger
}

func (h *ClaimHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		http.Error(w, "storage not configured", http.StatusServiceUnavailable)
		return
	}
	prID, err := strconv.ParseInt(chi.URLParam(r, "pr_id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid pr_id", http.StatusBadRequest)
		return
	}
	record, err := h.Store.GetClaim(r.Context(), prID)
	if err != nil {
		http.Error(w, "get claim failed", http.StatusInternalServerError)
		if h.Logger != nil {
			h.Logger.Printf("get claim failed pr_id=%d: %v", prID, err)
		}
		return
	}
	if record == nil {
		http.Error(w, "claim not found", http.StatusNotFound)
		return
	}
	writeJSON(w, toClaimResponse(*record))
}

// BountiesHandler lists bounty issues of a repository.
type BountiesHandler struct {
	Store  storage.BountyStore
	Logger *log.Logger
}

func (h *BountiesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		http.Error(w, "storage not configured", http.StatusServiceUnavailable)
		return
	}
	repoID, ok := repoIDParam(w, r)
	if !ok {
		return
	}
	records, err := h.Store.ListBounties(r.Context(), repoID)
	if err != nil {
		http.Error(w, "list bounties failed", http.StatusInternalServerError)
		if h.Logger != nil {
			h.Logger.Printf("list bounties failed repo_id=%d: %v", repoID, err)
		}
		return
	}
	out := make([]bountyResponse, 0, len(records))
	for _, record := range records {
		out = append(out, bountyResponse{
			RepoID:          record.RepoID,
			Repository:      record.Owner + "/" + record.RepoName,
			IssueID:         record.IssueID,
			IssueNumber:     record.IssueNumber,
			Title:           record.Title,
			HTMLURL:         record.HTMLURL,
			State:           record.State,
			ClosingCommitID: record.ClosingCommitID,
			UpdatedAt:       record.UpdatedAt,
		})
	}
	writeJSON(w, out)
}

// Health reports liveness.
func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

type claimResponse struct {
	RepoID      int64     `json:"repo_id"`
	PRID        int64     `json:"pr_id"`
	PRNumber    int       `json:"pr_number"`
	UserID      int64     `json:"user_id"`
	IssueNumber int       `json:"issue_number"`
	State       string    `json:"state"`
	CommitID    *string   `json:"commit_id"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type bountyResponse struct {
	RepoID          int64     `json:"repo_id"`
	Repository      string    `json:"repository"`
	IssueID         int64     `json:"issue_id"`
	IssueNumber     int       `json:"issue_number"`
	Title           string    `json:"title"`
	HTMLURL         string    `json:"html_url"`
	State           string    `json:"state"`
	ClosingCommitID *string   `json:"closing_commit_id"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func toClaimResponse(record storage.ClaimRecord) claimResponse {
	return claimResponse{
		RepoID:      record.RepoID,
		PRID:        record.PRID,
		PRNumber:    record.PRNumber,
		UserID:      record.UserID,
		IssueNumber: record.IssueNumber,
		State:       record.State,
		CommitID:    record.CommitID,
		UpdatedAt:   record.UpdatedAt,
	}
}

func repoIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get("repo_id"))
	if raw == "" {
		http.Error(w, "missing repo_id", http.StatusBadRequest)
		return 0, false
	}
	repoID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		http.Error(w, "invalid repo_id", http.StatusBadRequest)
		return 0, false
	}
	return repoID, true
}

func writeJSON(w http.ResponseWriter, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}
