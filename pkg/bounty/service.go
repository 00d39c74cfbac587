package bounty

import (
	"context"
	"fmt"

	"bountyhooks/pkg/storage"
)

// Service creates and closes bounties.
type Service struct {
	store  storage.BountyStore
	labels Labels
}

// NewService creates a Service.
func NewService(store storage.BountyStore, labels Labels) *Service {
	return &Service{store: store, labels: labels}
}

// Labels returns the bounty label helpers.
func (s *Service) Labels() Labels {
	return s.labels
}

// AddBountyForIssue records issue as an open bounty of repo.
func (s *Service) AddBountyForIssue(ctx context.Context, repo Repository, issue Issue) error {
	if issue.ID == 0 {
		return ErrMissingIssueID
	}
	err := s.store.UpsertBounty(ctx, storage.BountyRecord{
		RepoID:      repo.ID,
		RepoName:    repo.Name,
		Owner:       repo.Owner,
		IssueID:     issue.ID,
		IssueNumber: issue.Number,
		Title:       issue.Title,
		HTMLURL:     issue.HTMLURL,
		State:       "open",
	})
	if err != nil {
		return fmt.Errorf("add bounty for %s#%d: %w", repo.FullName, issue.Number, err)
	}
	return nil
}

// Close marks the bounty issue as closed by commitID.
func (s *Service) Close(ctx context.Context, commitID string, issueID int64) error {
	if issueID == 0 {
		return ErrMissingIssueID
	}
	if err := s.store.CloseBounty(ctx, issueID, commitID); err != nil {
		return fmt.Errorf("close bounty issue %d: %w", issueID, err)
	}
	return nil
}
