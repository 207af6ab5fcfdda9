// Package github wraps the GitHub API operations the pipeline consumes:
// pull-request data, repository contents, comments, and webhooks.
package github

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/go-github/v73/github"
)

// TreeEntry is one blob in a repository tree listing.
type TreeEntry struct {
	Path string
	SHA  string
	Size int
}

// PullRequestData bundles the fields the review pipeline needs from a PR.
type PullRequestData struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Diff        string `json:"diff"`
}

// Client is the focused, testable surface over the GitHub API.
type Client interface {
	GetPullRequestData(ctx context.Context, owner, repo string, number int) (*PullRequestData, error)
	CreateComment(ctx context.Context, owner, repo string, number int, body string) error
	ListTree(ctx context.Context, owner, repo string) ([]TreeEntry, error)
	GetBlob(ctx context.Context, owner, repo, sha string) (string, error)
	GetFileContent(ctx context.Context, owner, repo, path string) ([]byte, error)
	CreateWebhook(ctx context.Context, owner, repo, callbackURL, secret string) error
}

type gitHubClient struct {
	client *github.Client
	logger *slog.Logger
}

// NewClient wraps the official go-github client.
func NewClient(client *github.Client, logger *slog.Logger) Client {
	return &gitHubClient{client: client, logger: logger}
}

// GetPullRequestData fetches the PR title, body, and raw diff in one call
// pair so the fetch-diff step has everything the prompt needs.
func (g *gitHubClient) GetPullRequestData(ctx context.Context, owner, repo string, number int) (*PullRequestData, error) {
	pr, _, err := g.client.PullRequests.Get(ctx, owner, repo, number)
	if err != nil {
		g.logger.Error("failed to get pull request", "owner", owner, "repo", repo, "pr", number, "error", err)
		return nil, fmt.Errorf("failed to get pull request %s/%s#%d: %w", owner, repo, number, err)
	}

	diff, _, err := g.client.PullRequests.GetRaw(ctx, owner, repo, number, github.RawOptions{Type: github.Diff})
	if err != nil {
		g.logger.Error("failed to get pull request diff", "owner", owner, "repo", repo, "pr", number, "error", err)
		return nil, fmt.Errorf("failed to get diff for %s/%s#%d: %w", owner, repo, number, err)
	}

	return &PullRequestData{
		Title:       pr.GetTitle(),
		Description: pr.GetBody(),
		Diff:        diff,
	}, nil
}

// CreateComment posts a comment on the pull request's issue thread.
func (g *gitHubClient) CreateComment(ctx context.Context, owner, repo string, number int, body string) error {
	comment := &github.IssueComment{Body: github.Ptr(body)}
	if _, _, err := g.client.Issues.CreateComment(ctx, owner, repo, number, comment); err != nil {
		g.logger.Error("failed to create comment", "owner", owner, "repo", repo, "pr", number, "error", err)
		return fmt.Errorf("failed to create comment on %s/%s#%d: %w", owner, repo, number, err)
	}
	return nil
}

// ListTree returns all blobs in the repository's default branch,
// recursively.
func (g *gitHubClient) ListTree(ctx context.Context, owner, repo string) ([]TreeEntry, error) {
	repoInfo, _, err := g.client.Repositories.Get(ctx, owner, repo)
	if err != nil {
		return nil, fmt.Errorf("failed to get repository %s/%s: %w", owner, repo, err)
	}

	tree, _, err := g.client.Git.GetTree(ctx, owner, repo, repoInfo.GetDefaultBranch(), true)
	if err != nil {
		g.logger.Error("failed to get repository tree", "owner", owner, "repo", repo, "error", err)
		return nil, fmt.Errorf("failed to get tree for %s/%s: %w", owner, repo, err)
	}
	if tree.GetTruncated() {
		g.logger.Warn("repository tree listing truncated by the API", "owner", owner, "repo", repo)
	}

	entries := make([]TreeEntry, 0, len(tree.Entries))
	for _, e := range tree.Entries {
		if e.GetType() != "blob" {
			continue
		}
		entries = append(entries, TreeEntry{
			Path: e.GetPath(),
			SHA:  e.GetSHA(),
			Size: e.GetSize(),
		})
	}
	return entries, nil
}

// GetBlob fetches a blob's raw content by SHA.
func (g *gitHubClient) GetBlob(ctx context.Context, owner, repo, sha string) (string, error) {
	content, _, err := g.client.Git.GetBlobRaw(ctx, owner, repo, sha)
	if err != nil {
		return "", fmt.Errorf("failed to get blob %s from %s/%s: %w", sha, owner, repo, err)
	}
	return string(content), nil
}

// GetFileContent fetches one file from the default branch. A missing file
// returns nil content and no error, so optional files like .codehawk.yml
// are cheap to probe.
func (g *gitHubClient) GetFileContent(ctx context.Context, owner, repo, path string) ([]byte, error) {
	file, _, resp, err := g.client.Repositories.GetContents(ctx, owner, repo, path, nil)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get contents of %s in %s/%s: %w", path, owner, repo, err)
	}
	if file == nil {
		return nil, fmt.Errorf("%s in %s/%s is not a file", path, owner, repo)
	}
	content, err := file.GetContent()
	if err != nil {
		return nil, fmt.Errorf("failed to decode contents of %s: %w", path, err)
	}
	return []byte(content), nil
}

// CreateWebhook registers the service's webhook endpoint on a repository,
// subscribing to pull_request events.
func (g *gitHubClient) CreateWebhook(ctx context.Context, owner, repo, callbackURL, secret string) error {
	hook := &github.Hook{
		Events: []string{"pull_request"},
		Config: &github.HookConfig{
			URL:         github.Ptr(callbackURL),
			ContentType: github.Ptr("json"),
		},
		Active: github.Ptr(true),
	}
	if secret != "" {
		hook.Config.Secret = github.Ptr(secret)
	}
	if _, _, err := g.client.Repositories.CreateHook(ctx, owner, repo, hook); err != nil {
		g.logger.Error("failed to create webhook", "owner", owner, "repo", repo, "error", err)
		return fmt.Errorf("failed to create webhook on %s/%s: %w", owner, repo, err)
	}
	return nil
}
