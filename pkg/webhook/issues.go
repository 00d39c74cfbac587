package webhook

import (
	"context"
	"errors"
	"fmt"
	"log"

	"bountyhooks/internal"
	"bountyhooks/pkg/bounty"
	"bountyhooks/pkg/storage"
	"bountyhooks/pkg/tasks"
)

// TaskCommitSearch is the task kind that looks up the commit closing a bounty issue.
const TaskCommitSearch = "commit_search"

var issueClosingEvents = []string{bounty.EventReferenced, bounty.EventClosed}

type commitSearch struct {
	Owner       string `json:"owner"`
	Repo        string `json:"repo"`
	IssueID     int64  `json:"issue_id"`
	IssueNumber int    `json:"issue_number"`
	Actor       string `json:"actor"`
}

// IssueHandler tracks bounty issues.
type IssueHandler struct {
	bounties *bounty.Service
	commits  *bounty.CommitResolver
	tasks    tasks.Submitter
	logger   *log.Logger
	metrics  internal.Metrics
}

// NewIssueHandler creates an IssueHandler.
func NewIssueHandler(bounties *bounty.Service, commits *bounty.CommitResolver, submitter tasks.Submitter, logger *log.Logger) *IssueHandler {
	if logger == nil {
		logger = log.Default()
	}
	return &IssueHandler{bounties: bounties, commits: commits, tasks: submitter, logger: logger}
}

// Handle processes an issues delivery.
func (h *IssueHandler) Handle(ctx context.Context, requestID string, event issuesPayload) {
	repo := event.Repository.toRepository()
	issue := event.Issue.toIssue()
	labels := h.bounties.Labels()

	switch event.Action {
	case "labeled":
		if event.Label == nil || !labels.Is(event.Label.Name) {
			return
		}
		if err := h.bounties.AddBountyForIssue(ctx, repo, issue); err != nil {
			h.logger.Printf("add bounty failed repo=%s issue=%d: %v", repo.FullName, issue.Number, err)
			return
		}
		h.metrics.IncBounty("opened")
	case "closed":
		if !labels.HasBountyLabel(issue) {
			return
		}
		task, err := tasks.NewTask(TaskCommitSearch, commitSearch{
			Owner:       repo.Owner,
			Repo:        repo.Name,
			IssueID:     issue.ID,
			IssueNumber: issue.Number,
			Actor:       repo.Owner,
		})
		if err != nil {
			h.logger.Printf("commit search task encode failed repo=%s issue=%d: %v", repo.FullName, issue.Number, err)
			return
		}
		task.RequestID = requestID
		if err := h.tasks.Submit(ctx, task); err != nil {
			h.logger.Printf("commit search submit failed repo=%s issue=%d: %v", repo.FullName, issue.Number, err)
		}
	}
}

// HandleCommitSearch runs a commit_search task: it finds the commit that
// closed the issue and closes the bounty with it. No commit is a no-op.
func (h *IssueHandler) HandleCommitSearch(ctx context.Context, task tasks.Task) error {
	var search commitSearch
	if err := task.Decode(&search); err != nil {
		return fmt.Errorf("decode commit search: %w", err)
	}
	commitID, ok := h.commits.Resolve(ctx, bounty.CommitQuery{
		Owner:      search.Owner,
		Repo:       search.Repo,
		Number:     search.IssueNumber,
		Actor:      search.Actor,
		EventTypes: issueClosingEvents,
	})
	if !ok {
		return nil
	}
	err := h.bounties.Close(ctx, commitID, search.IssueID)
	if errors.Is(err, storage.ErrNotFound) {
		internal.WithRequestID(h.logger, task.RequestID).Printf("closed issue is not a tracked bounty owner=%s repo=%s issue=%d", search.Owner, search.Repo, search.IssueNumber)
		return nil
	}
	if err != nil {
		return err
	}
	h.metrics.IncBounty("closed")
	return nil
}
