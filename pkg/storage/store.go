package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("record not found")

// RepositoryRecord stores a tracked repository and its webhook secret.
type RepositoryRecord struct {
	ID         int64
	Owner      string
	Name       string
	FullName   string
	HookSecret string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// BountyRecord stores a bounty issue.
type BountyRecord struct {
	RepoID          int64
	RepoName        string
	Owner           string
	IssueID         int64
	IssueNumber     int
	Title           string
	HTMLURL         string
	State           string
	ClosingCommitID *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// UserRecord stores a claim author.
type UserRecord struct {
	ID        int64
	Login     string
	Name      string
	Email     string
	AvatarURL string
	ExtraJSON string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ClaimRecord stores a pull request claim on a bounty issue.
type ClaimRecord struct {
	RepoID      int64
	PRID        int64
	PRNumber    int
	UserID      int64
	IssueNumber int
	State       string
	CommitID    *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// RepositoryStore resolves repositories and their hook secrets.
type RepositoryStore interface {
	UpsertRepository(ctx context.Context, record RepositoryRecord) error
	GetRepository(ctx context.Context, fullName string) (*RepositoryRecord, error)
}

// BountyStore persists bounty issues.
type BountyStore interface {
	UpsertBounty(ctx context.Context, record BountyRecord) error
	CloseBounty(ctx context.Context, issueID int64, commitID string) error
	ListBounties(ctx context.Context, repoID int64) ([]BountyRecord, error)
}

// UserStore persists claim authors.
type UserStore interface {
	CreateUser(ctx context.Context, record UserRecord) error
	GetUser(ctx context.Context, id int64) (*UserRecord, error)
}

// ClaimStore persists pull request claims. SaveClaim upserts on PRID.
type ClaimStore interface {
	SaveClaim(ctx context.Context, record ClaimRecord) error
	GetClaim(ctx context.Context, prID int64) (*ClaimRecord, error)
	ListClaims(ctx context.Context, repoID int64) ([]ClaimRecord, error)
}
