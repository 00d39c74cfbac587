package webhook

import "bountyhooks/pkg/bounty"

type userPayload struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatar_url"`
	HTMLURL   string `json:"html_url"`
	Type      string `json:"type"`
}

type repositoryPayload struct {
	ID       int64       `json:"id"`
	Name     string      `json:"name"`
	FullName string      `json:"full_name"`
	Owner    userPayload `json:"owner"`
}

func (r repositoryPayload) toRepository() bounty.Repository {
	return bounty.Repository{
		ID:       r.ID,
		Owner:    r.Owner.Login,
		Name:     r.Name,
		FullName: r.FullName,
	}
}

type labelPayload struct {
	Name string `json:"name"`
}

type issuePayload struct {
	ID      int64          `json:"id"`
	Number  int            `json:"number"`
	Title   string         `json:"title"`
	HTMLURL string         `json:"html_url"`
	Labels  []labelPayload `json:"labels"`
}

func (i issuePayload) toIssue() bounty.Issue {
	labels := make([]string, 0, len(i.Labels))
	for _, label := range i.Labels {
		labels = append(labels, label.Name)
	}
	return bounty.Issue{
		ID:      i.ID,
		Number:  i.Number,
		Title:   i.Title,
		HTMLURL: i.HTMLURL,
		Labels:  labels,
	}
}

type pullRequestPayload struct {
	ID     int64       `json:"id"`
	Number int         `json:"number"`
	Title  string      `json:"title"`
	Body   string      `json:"body"`
	Merged bool        `json:"merged"`
	User   userPayload `json:"user"`
}

// envelope is the part of every delivery needed before authentication.
type envelope struct {
	Action     string            `json:"action"`
	Repository repositoryPayload `json:"repository"`
}

type issuesPayload struct {
	Action     string            `json:"action"`
	Issue      issuePayload      `json:"issue"`
	Label      *labelPayload     `json:"label"`
	Repository repositoryPayload `json:"repository"`
}

type pullRequestEventPayload struct {
	Action      string             `json:"action"`
	Number      int                `json:"number"`
	PullRequest pullRequestPayload `json:"pull_request"`
	Repository  repositoryPayload  `json:"repository"`
}
