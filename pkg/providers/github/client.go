package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"bountyhooks/pkg/bounty"

	gh "github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"
)

const defaultBaseURL = "https://api.github.com"

// Config contains GitHub REST API settings.
type Config struct {
	BaseURL       string `yaml:"base_url"`
	Token         string `yaml:"token"`
	TimeoutMS     int64  `yaml:"timeout_ms"`
	EventsPerPage int    `yaml:"events_per_page"`
	MaxEventPages int    `yaml:"max_event_pages"`
}

// Client reads issues and issue timelines through the official GitHub SDK.
type Client struct {
	api      *gh.Client
	timeout  time.Duration
	perPage  int
	maxPages int
}

var (
	_ bounty.IssueSource    = (*Client)(nil)
	_ bounty.TimelineSource = (*Client)(nil)
)

// NewClient creates a GitHub client authenticated with a static token. An
// empty token yields an anonymous client.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	httpClient := http.DefaultClient
	if cfg.Token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token})
		httpClient = oauth2.NewClient(ctx, ts)
	}

	api := gh.NewClient(httpClient)
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL != "" && baseURL != defaultBaseURL {
		enterprise, err := api.WithEnterpriseURLs(baseURL, baseURL)
		if err != nil {
			return nil, fmt.Errorf("github base url: %w", err)
		}
		api = enterprise
	}

	client := &Client{
		api:      api,
		timeout:  time.Duration(cfg.TimeoutMS) * time.Millisecond,
		perPage:  cfg.EventsPerPage,
		maxPages: cfg.MaxEventPages,
	}
	if client.perPage <= 0 {
		client.perPage = 100
	}
	if client.maxPages <= 0 {
		client.maxPages = 10
	}
	return client, nil
}

// GetIssue fetches one issue. A 404 is reported as bounty.ErrIssueNotFound.
func (c *Client) GetIssue(ctx context.Context, owner, repo string, number int) (*bounty.Issue, error) {
	if owner == "" || repo == "" {
		return nil, bounty.ErrMissingRepo
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	issue, _, err := c.api.Issues.Get(ctx, owner, repo, number)
	if err != nil {
		if isNotFound(err) {
			return nil, bounty.ErrIssueNotFound
		}
		return nil, fmt.Errorf("get issue %s/%s#%d: %w", owner, repo, number, err)
	}

	labels := make([]string, 0, len(issue.Labels))
	for _, label := range issue.Labels {
		labels = append(labels, label.GetName())
	}
	return &bounty.Issue{
		ID:      issue.GetID(),
		Number:  issue.GetNumber(),
		Title:   issue.GetTitle(),
		HTMLURL: issue.GetHTMLURL(),
		Labels:  labels,
	}, nil
}

// ListIssueEvents returns the event timeline of an issue or pull request,
// following pagination up to the configured page limit.
func (c *Client) ListIssueEvents(ctx context.Context, owner, repo string, number int) ([]bounty.IssueEvent, error) {
	if owner == "" || repo == "" {
		return nil, bounty.ErrMissingRepo
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	opts := &gh.ListOptions{PerPage: c.perPage}
	var out []bounty.IssueEvent
	for page := 0; page < c.maxPages; page++ {
		events, resp, err := c.api.Issues.ListIssueEvents(ctx, owner, repo, number, opts)
		if err != nil {
			return nil, fmt.Errorf("list events %s/%s#%d: %w", owner, repo, number, err)
		}
		for _, event := range events {
			out = append(out, bounty.IssueEvent{
				Actor:    event.GetActor().GetLogin(),
				Event:    event.GetEvent(),
				CommitID: event.GetCommitID(),
			})
		}
		if resp == nil || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return out, nil
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

func isNotFound(err error) bool {
	var respErr *gh.ErrorResponse
	if errors.As(err, &respErr) && respErr.Response != nil {
		return respErr.Response.StatusCode == http.StatusNotFound
	}
	return false
}
