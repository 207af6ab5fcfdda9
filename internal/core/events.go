// Package core defines the domain types and interfaces shared by the
// review pipeline: work items, reviews, repositories, and credentials.
package core

import (
	"fmt"
	"strings"

	"github.com/google/go-github/v73/github"
)

// Work item event names. These are the only events the dispatcher routes.
const (
	EventReviewRequested     = "pr.review.requested"
	EventRepositoryConnected = "repository.connected"
)

// ReviewRequested is the payload of a pr.review.requested work item.
type ReviewRequested struct {
	Owner             string `json:"owner"`
	RepoName          string `json:"repoName"`
	PullRequestNumber int    `json:"pullRequestNumber"`
	UserID            string `json:"userId,omitempty"`
	InstallationID    int64  `json:"installationId,omitempty"`
}

// RepositoryConnected is the payload of a repository.connected work item.
type RepositoryConnected struct {
	Owner          string `json:"owner"`
	Repo           string `json:"repo"`
	UserID         string `json:"userId,omitempty"`
	InstallationID int64  `json:"installationId,omitempty"`
}

// WorkItem is a typed event that triggers a pipeline. It is immutable once
// enqueued; exactly one payload field is set, matching Name.
type WorkItem struct {
	Name                string
	ReviewRequested     *ReviewRequested
	RepositoryConnected *RepositoryConnected
}

// Key returns the distinguishing key of the work item, used for logging.
// For reviews this is "owner/repo#number".
func (w *WorkItem) Key() string {
	switch w.Name {
	case EventReviewRequested:
		if w.ReviewRequested != nil {
			return fmt.Sprintf("%s/%s#%d", w.ReviewRequested.Owner, w.ReviewRequested.RepoName, w.ReviewRequested.PullRequestNumber)
		}
	case EventRepositoryConnected:
		if w.RepositoryConnected != nil {
			return w.RepositoryConnected.Owner + "/" + w.RepositoryConnected.Repo
		}
	}
	return w.Name
}

// ErrNotActionable marks webhook events that carry no work: unknown event
// types, irrelevant pull-request actions, malformed payloads. The ingress
// layer acknowledges these with a success response instead of failing.
type ErrNotActionable struct {
	Reason string
}

func (e *ErrNotActionable) Error() string {
	return "event is not actionable: " + e.Reason
}

// WorkItemFromPullRequestEvent transforms a raw GitHub pull_request webhook
// event into a pr.review.requested work item. It acts as an anti-corruption
// layer: only "opened" and "synchronize" actions produce work, and the
// payload is validated before anything is enqueued.
func WorkItemFromPullRequestEvent(event *github.PullRequestEvent) (*WorkItem, error) {
	action := event.GetAction()
	if action != "opened" && action != "synchronize" {
		return nil, &ErrNotActionable{Reason: fmt.Sprintf("pull request action %q", action)}
	}

	repo := event.GetRepo()
	if repo == nil || repo.GetFullName() == "" {
		return nil, &ErrNotActionable{Reason: "repository information is missing"}
	}

	owner, name, err := SplitFullName(repo.GetFullName())
	if err != nil {
		return nil, &ErrNotActionable{Reason: err.Error()}
	}

	number := event.GetPullRequest().GetNumber()
	if number <= 0 {
		number = event.GetNumber()
	}
	if number <= 0 {
		return nil, &ErrNotActionable{Reason: fmt.Sprintf("invalid pull request number: %d", number)}
	}

	item := &WorkItem{
		Name: EventReviewRequested,
		ReviewRequested: &ReviewRequested{
			Owner:             owner,
			RepoName:          name,
			PullRequestNumber: number,
		},
	}
	if inst := event.GetInstallation(); inst != nil {
		item.ReviewRequested.InstallationID = inst.GetID()
	}
	return item, nil
}

// SplitFullName splits "owner/name" into its two parts.
func SplitFullName(fullName string) (owner, name string, err error) {
	parts := strings.SplitN(fullName, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repository full name: %q", fullName)
	}
	return parts[0], parts[1], nil
}
