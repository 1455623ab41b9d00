package github

import (
	"fmt"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// DATA TRANSFER OBJECTS
// Wire shapes of the GitHub REST API v3 responses. Only the fields the
// tracker reads are declared; the rest of the payload is ignored.
// ══════════════════════════════════════════════════════════════════════════════

// UserDTO is the author object embedded in PRs, reviews and comments.
type UserDTO struct {
	Login string `json:"login"`
	Type  string `json:"type"`
}

// LabelDTO is a label attached to a pull request.
type LabelDTO struct {
	Name string `json:"name"`
}

// PullRequestDTO is one element of GET /repos/{owner}/{repo}/pulls.
type PullRequestDTO struct {
	Number  int        `json:"number"`
	Title   string     `json:"title"`
	State   string     `json:"state"`
	HTMLURL string     `json:"html_url"`
	User    *UserDTO   `json:"user"`
	Labels  []LabelDTO `json:"labels"`

	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	MergedAt  *time.Time `json:"merged_at"`
}

// Review states GitHub reports for formal reviews.
const (
	ReviewStateApproved         = "APPROVED"
	ReviewStateChangesRequested = "CHANGES_REQUESTED"
	ReviewStateCommented        = "COMMENTED"
	ReviewStateDismissed        = "DISMISSED"
)

// ReviewDTO is one element of GET /repos/{owner}/{repo}/pulls/{n}/reviews.
type ReviewDTO struct {
	User        *UserDTO  `json:"user"`
	State       string    `json:"state"`
	HTMLURL     string    `json:"html_url"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// IssueCommentDTO is one element of GET /repos/{owner}/{repo}/issues/{n}/comments.
// PR conversation comments live on the issues endpoint.
type IssueCommentDTO struct {
	User      *UserDTO  `json:"user"`
	HTMLURL   string    `json:"html_url"`
	CreatedAt time.Time `json:"created_at"`
}

// APIErrorDTO is the standard GitHub error body.
type APIErrorDTO struct {
	Message          string `json:"message"`
	DocumentationURL string `json:"documentation_url"`

	// StatusCode is filled from the HTTP response, not the body.
	StatusCode int `json:"-"`
}

// Error implements the error interface.
func (e *APIErrorDTO) Error() string {
	return fmt.Sprintf("github api error: status %d: %s", e.StatusCode, e.Message)
}

// IsNotFound reports whether the error is a 404.
func (e *APIErrorDTO) IsNotFound() bool {
	return e.StatusCode == 404
}
