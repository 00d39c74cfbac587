package bounty

import (
	"context"
	"log"
)

// TimelineSource lists the lifecycle events of an issue or pull request.
type TimelineSource interface {
	ListIssueEvents(ctx context.Context, owner, repo string, number int) ([]IssueEvent, error)
}

// CommitQuery selects the commit tied to a lifecycle event. EventTypes are
// tried in order, most authoritative first.
type CommitQuery struct {
	Owner      string
	Repo       string
	Number     int
	Actor      string
	EventTypes []string
}

// CommitResolver finds terminating commits on event timelines.
type CommitResolver struct {
	timeline TimelineSource
	logger   *log.Logger
}

// NewCommitResolver creates a CommitResolver.
func NewCommitResolver(timeline TimelineSource, logger *log.Logger) *CommitResolver {
	if logger == nil {
		logger = log.Default()
	}
	return &CommitResolver{timeline: timeline, logger: logger}
}

// Resolve fetches the timeline once and returns the commit id of the first
// event matching the actor, trying event types in the order given.
func (c *CommitResolver) Resolve(ctx context.Context, query CommitQuery) (string, bool) {
	if len(query.EventTypes) == 0 {
		return "", false
	}
	events, err := c.timeline.ListIssueEvents(ctx, query.Owner, query.Repo, query.Number)
	if err != nil {
		c.logger.Printf("timeline fetch failed owner=%s repo=%s number=%d events=%v: %v",
			query.Owner, query.Repo, query.Number, query.EventTypes, err)
		return "", false
	}
	for _, eventType := range query.EventTypes {
		for _, event := range events {
			if event.Event != eventType || event.Actor != query.Actor || event.CommitID == "" {
				continue
			}
			return event.CommitID, true
		}
	}
	return "", false
}
