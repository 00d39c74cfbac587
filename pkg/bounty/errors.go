package bounty

import "errors"

var (
	ErrIssueNotFound  = errors.New("issue not found")
	ErrMissingLabel   = errors.New("bounty label is not configured")
	ErrMissingIssueID = errors.New("issue id is required")
	ErrMissingRepo    = errors.New("repository owner and name are required")
)
