package webhook

import (
	"context"
	"encoding/json"
	"log"
	"strconv"

	"bountyhooks/internal"
	"bountyhooks/pkg/bounty"
	"bountyhooks/pkg/tasks"
)

// ClaimTransition describes a persisted claim change.
type ClaimTransition struct {
	Event      string
	Action     string
	Repository bounty.Repository
	Claim      bounty.Claim
	UserLogin  string
}

type transitionDocument struct {
	Event       string             `json:"event"`
	Action      string             `json:"action"`
	State       string             `json:"state"`
	RepoID      int64              `json:"repo_id"`
	PRNumber    int                `json:"pr_number"`
	IssueNumber int                `json:"issue_number"`
	UserLogin   string             `json:"user_login"`
	CommitID    *string            `json:"commit_id"`
	Repository  repositoryDocument `json:"repository"`
}

type repositoryDocument struct {
	ID       int64  `json:"id"`
	FullName string `json:"full_name"`
	Owner    string `json:"owner"`
	Name     string `json:"name"`
}

// Notifier publishes claim transitions to the topics selected by rules.
type Notifier struct {
	rules     *internal.RuleEngine
	publisher tasks.Publisher
	logger    *log.Logger
	metrics   internal.Metrics
}

// NewNotifier creates a Notifier.
func NewNotifier(rules *internal.RuleEngine, publisher tasks.Publisher, logger *log.Logger) *Notifier {
	if logger == nil {
		logger = log.Default()
	}
	return &Notifier{rules: rules, publisher: publisher, logger: logger}
}

// Notify evaluates the rules and publishes the transition once per topic.
// Failures are logged.
func (n *Notifier) Notify(ctx context.Context, requestID string, t ClaimTransition) {
	if n == nil || n.rules == nil || n.publisher == nil {
		return
	}
	payload, err := json.Marshal(transitionDocument{
		Event:       t.Event,
		Action:      t.Action,
		State:       string(t.Claim.State),
		RepoID:      t.Repository.ID,
		PRNumber:    t.Claim.PRNumber,
		IssueNumber: t.Claim.IssueNumber,
		UserLogin:   t.UserLogin,
		CommitID:    t.Claim.CommitID,
		Repository: repositoryDocument{
			ID:       t.Repository.ID,
			FullName: t.Repository.FullName,
			Owner:    t.Repository.Owner,
			Name:     t.Repository.Name,
		},
	})
	if err != nil {
		n.logger.Printf("claim transition encode failed: %v", err)
		return
	}

	metadata := map[string]string{
		"event":     t.Event,
		"action":    t.Action,
		"state":     string(t.Claim.State),
		"pr_number": strconv.Itoa(t.Claim.PRNumber),
	}
	if requestID != "" {
		metadata["request_id"] = requestID
	}
	for _, topic := range n.rules.Evaluate(payload) {
		if err := n.publisher.Publish(ctx, topic, payload, metadata); err != nil {
			n.metrics.IncNotifyError(topic)
			internal.WithRequestID(n.logger, requestID).Printf("claim notify failed topic=%s pr=%d: %v", topic, t.Claim.PRNumber, err)
		}
	}
}
