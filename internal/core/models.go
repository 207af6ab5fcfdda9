package core

import (
	"fmt"
	"time"
)

// ReviewStatus is the lifecycle state of a stored review.
type ReviewStatus string

const (
	ReviewStatusPending   ReviewStatus = "pending"
	ReviewStatusCompleted ReviewStatus = "completed"
	ReviewStatusFailed    ReviewStatus = "failed"
)

// Review is one stored review attempt for a pull request. Reviews are
// append-only: each run of the review pipeline creates a new row, never
// updates an existing one, so the full attempt history stays visible.
type Review struct {
	ID               string       `db:"id"`
	RepositoryID     string       `db:"repository_id"`
	PullRequestNum   int          `db:"pr_number"`
	PullRequestTitle string       `db:"pr_title"`
	PullRequestURL   string       `db:"pr_url"`
	Body             string       `db:"body"`
	Status           ReviewStatus `db:"status"`
	CreatedAt        time.Time    `db:"created_at"`
}

// Repository is a GitHub repository a user has connected for review.
// The review pipeline only reads it.
type Repository struct {
	ID        string    `db:"id"`
	Owner     string    `db:"owner"`
	Name      string    `db:"name"`
	FullName  string    `db:"full_name"`
	UserID    string    `db:"user_id"`
	CreatedAt time.Time `db:"created_at"`
}

// PullRequestURL builds the canonical GitHub URL for a PR in this repository.
func (r *Repository) PullRequestURL(number int) string {
	return fmt.Sprintf("https://github.com/%s/pull/%d", r.FullName, number)
}

// Credential is an access token for one user on one external provider.
// It is owned by the auth subsystem; the pipeline fetches it read-only and
// passes it to the platform client without inspecting it.
type Credential struct {
	ID          string    `db:"id"`
	UserID      string    `db:"user_id"`
	Provider    string    `db:"provider"`
	AccessToken string    `db:"access_token"`
	CreatedAt   time.Time `db:"created_at"`
}

// ProviderGitHub is the only credential provider the pipeline consumes.
const ProviderGitHub = "github"

// RepoFile is one text file read from a repository tree, the unit of work
// for the indexing pipeline.
type RepoFile struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}
