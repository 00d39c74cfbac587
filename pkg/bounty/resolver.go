package bounty

import (
	"context"
	"errors"
	"log"
	"slices"
)

// IssueSource looks up a single issue on the source platform. Implementations
// return ErrIssueNotFound (or a nil issue) when the issue does not exist.
type IssueSource interface {
	GetIssue(ctx context.Context, owner, repo string, number int) (*Issue, error)
}

// Labels knows the canonical bounty label.
type Labels struct {
	name string
}

// NewLabels returns label helpers for the given bounty label name.
func NewLabels(name string) (Labels, error) {
	if name == "" {
		return Labels{}, ErrMissingLabel
	}
	return Labels{name: name}, nil
}

// Name returns the bounty label name.
func (l Labels) Name() string {
	return l.name
}

// Is reports whether label is the bounty label.
func (l Labels) Is(label string) bool {
	return l.name != "" && label == l.name
}

// HasBountyLabel reports whether the issue carries the bounty label.
func (l Labels) HasBountyLabel(issue Issue) bool {
	return l.name != "" && slices.Contains(issue.Labels, l.name)
}

// Resolver confirms that an issue number refers to a bounty issue.
type Resolver struct {
	issues IssueSource
	labels Labels
	logger *log.Logger
}

// NewResolver creates a Resolver.
func NewResolver(issues IssueSource, labels Labels, logger *log.Logger) *Resolver {
	if logger == nil {
		logger = log.Default()
	}
	return &Resolver{issues: issues, labels: labels, logger: logger}
}

// Resolve performs one issue lookup and returns the number back only when the
// issue currently carries the bounty label. Lookup failures resolve to false.
func (r *Resolver) Resolve(ctx context.Context, owner, repo string, number int) (int, bool) {
	if number <= 0 {
		return 0, false
	}
	issue, err := r.issues.GetIssue(ctx, owner, repo, number)
	if err != nil {
		if !errors.Is(err, ErrIssueNotFound) {
			r.logger.Printf("issue lookup failed owner=%s repo=%s issue=%d: %v", owner, repo, number, err)
		}
		return 0, false
	}
	if issue == nil || !r.labels.HasBountyLabel(*issue) {
		return 0, false
	}
	return number, true
}
