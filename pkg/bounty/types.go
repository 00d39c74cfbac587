package bounty

// Repository identifies the repository a webhook was delivered for.
type Repository struct {
	ID       int64
	Owner    string
	Name     string
	FullName string
}

// Issue is a snapshot of an issue as seen by a single webhook or lookup.
type Issue struct {
	ID      int64
	Number  int
	Title   string
	HTMLURL string
	Labels  []string
}

// IssueEvent is one entry of an issue or pull request event timeline.
type IssueEvent struct {
	Actor    string
	Event    string
	CommitID string
}

// ClaimState is the lifecycle state of a pull request claim.
type ClaimState string

const (
	ClaimOpened ClaimState = "opened"
	ClaimMerged ClaimState = "merged"
	ClaimClosed ClaimState = "closed"
)

// Claim is a pull request asserted to resolve a bounty issue.
type Claim struct {
	RepoID      int64
	PRID        int64
	PRNumber    int
	UserID      int64
	IssueNumber int
	State       ClaimState
	CommitID    *string
}

// User is the author of a claim.
type User struct {
	ID        int64
	Login     string
	Name      string
	Email     string
	AvatarURL string
	// Extra holds profile fields kept verbatim, such as html_url and type.
	Extra map[string]string
}

// Lifecycle event names used when searching a timeline for commits.
const (
	EventReferenced = "referenced"
	EventClosed     = "closed"
	EventMerged     = "merged"
)
