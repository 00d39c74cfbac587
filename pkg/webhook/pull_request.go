package webhook

import (
	"context"
	"encoding/json"
	"log"

	"bountyhooks/internal"
	"bountyhooks/pkg/bounty"
	"bountyhooks/pkg/storage"
)

var mergeEvents = []string{bounty.EventMerged}

// PullRequestHandler moves pull request claims through opened, merged and closed.
type PullRequestHandler struct {
	resolver *bounty.Resolver
	commits  *bounty.CommitResolver
	users    storage.UserStore
	claims   storage.ClaimStore
	notifier *Notifier
	logger   *log.Logger
	metrics  internal.Metrics
}

// NewPullRequestHandler creates a PullRequestHandler. notifier may be nil.
func NewPullRequestHandler(resolver *bounty.Resolver, commits *bounty.CommitResolver, users storage.UserStore, claims storage.ClaimStore, notifier *Notifier, logger *log.Logger) *PullRequestHandler {
	if logger == nil {
		logger = log.Default()
	}
	return &PullRequestHandler{
		resolver: resolver,
		commits:  commits,
		users:    users,
		claims:   claims,
		notifier: notifier,
		logger:   logger,
	}
}

// Handle processes a pull_request delivery. Only opened and closed are acted on.
func (h *PullRequestHandler) Handle(ctx context.Context, requestID string, event pullRequestEventPayload) {
	if event.Action != "opened" && event.Action != "closed" {
		return
	}
	logger := internal.WithRequestID(h.logger, requestID)
	repo := event.Repository.toRepository()
	pr := event.PullRequest

	candidate, ok := bounty.FirstIssueNumber(pr.Body, pr.Title)
	if !ok {
		return
	}
	issueNumber, ok := h.resolver.Resolve(ctx, repo.Owner, repo.Name, candidate)
	if !ok {
		return
	}

	author := toUser(pr.User)
	var extra string
	if len(author.Extra) > 0 {
		if raw, err := json.Marshal(author.Extra); err == nil {
			extra = string(raw)
		}
	}
	if err := h.users.CreateUser(ctx, storage.UserRecord{
		ID:        author.ID,
		Login:     author.Login,
		Name:      author.Name,
		Email:     author.Email,
		AvatarURL: author.AvatarURL,
		ExtraJSON: extra,
	}); err != nil {
		logger.Printf("user upsert failed repo=%s pr=%d user=%s: %v", repo.FullName, pr.Number, author.Login, err)
		return
	}

	claim := bounty.Claim{
		RepoID:      repo.ID,
		PRID:        pr.ID,
		PRNumber:    pr.Number,
		UserID:      author.ID,
		IssueNumber: issueNumber,
		State:       bounty.ClaimOpened,
	}
	if event.Action == "closed" {
		claim.State = bounty.ClaimClosed
		commitID, found := h.commits.Resolve(ctx, bounty.CommitQuery{
			Owner:      repo.Owner,
			Repo:       repo.Name,
			Number:     pr.Number,
			Actor:      author.Login,
			EventTypes: mergeEvents,
		})
		if found {
			claim.State = bounty.ClaimMerged
			claim.CommitID = &commitID
		}
	}

	if err := h.claims.SaveClaim(ctx, storage.ClaimRecord{
		RepoID:      claim.RepoID,
		PRID:        claim.PRID,
		PRNumber:    claim.PRNumber,
		UserID:      claim.UserID,
		IssueNumber: claim.IssueNumber,
		State:       string(claim.State),
		CommitID:    claim.CommitID,
	}); err != nil {
		logger.Printf("claim save failed repo=%s pr=%d issue=%d state=%s: %v", repo.FullName, pr.Number, issueNumber, claim.State, err)
		return
	}
	h.metrics.IncClaim(string(claim.State))

	h.notifier.Notify(ctx, requestID, ClaimTransition{
		Event:      "pull_request",
		Action:     event.Action,
		Repository: repo,
		Claim:      claim,
		UserLogin:  author.Login,
	})
}

// toUser maps the pull request author, using the login when no display name is present.
func toUser(user userPayload) bounty.User {
	name := user.Name
	if name == "" {
		name = user.Login
	}
	extra := map[string]string{}
	if user.HTMLURL != "" {
		extra["html_url"] = user.HTMLURL
	}
	if user.Type != "" {
		extra["type"] = user.Type
	}
	return bounty.User{
		ID:        user.ID,
		Login:     user.Login,
		Name:      name,
		Email:     user.Email,
		AvatarURL: user.AvatarURL,
		Extra:     extra,
	}
}
