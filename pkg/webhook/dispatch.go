package webhook

import (
	"context"
	"encoding/json"
	"log"

	"github.com/go-playground/webhooks/v6/github"

	"bountyhooks/internal"
)

// Dispatcher routes authenticated deliveries by event kind.
type Dispatcher struct {
	issues *IssueHandler
	pulls  *PullRequestHandler
	logger *log.Logger
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(issues *IssueHandler, pulls *PullRequestHandler, logger *log.Logger) *Dispatcher {
	if logger == nil {
		logger = log.Default()
	}
	return &Dispatcher{issues: issues, pulls: pulls, logger: logger}
}

// Dispatch decodes body for event and runs the matching handler. Unknown
// events, ping included, are ignored.
func (d *Dispatcher) Dispatch(ctx context.Context, requestID string, event github.Event, body []byte) {
	logger := internal.WithRequestID(d.logger, requestID)
	switch event {
	case github.IssuesEvent:
		var payload issuesPayload
		if err := json.Unmarshal(body, &payload); err != nil {
			logger.Printf("issues payload decode failed: %v", err)
			return
		}
		d.issues.Handle(ctx, requestID, payload)
	case github.PullRequestEvent:
		var payload pullRequestEventPayload
		if err := json.Unmarshal(body, &payload); err != nil {
			logger.Printf("pull_request payload decode failed: %v", err)
			return
		}
		d.pulls.Handle(ctx, requestID, payload)
	case github.PingEvent:
		logger.Printf("ping received")
	}
}
