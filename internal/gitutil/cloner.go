// Package gitutil provides the local-repository plumbing used by the CLI:
// cloning, worktree loading, and pull-request URL parsing.
package gitutil

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"

	"github.com/go-git/go-git/v5"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
)

// Cloner clones repositories into temporary directories.
type Cloner struct {
	logger *slog.Logger
}

// NewCloner returns a Cloner.
func NewCloner(logger *slog.Logger) *Cloner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cloner{logger: logger}
}

// CloneTemp shallow-clones a repository into a temporary directory and
// returns the path with a cleanup function.
func (c *Cloner) CloneTemp(ctx context.Context, repoURL, token string) (string, func(), error) {
	if err := validateRepoURL(repoURL); err != nil {
		return "", nil, err
	}

	repoPath, err := os.MkdirTemp("", "codehawk-repo-*")
	if err != nil {
		return "", nil, fmt.Errorf("failed to create temp directory: %w", err)
	}
	cleanup := func() {
		c.logger.Info("cleaning up temporary repository", "path", repoPath)
		if removeErr := os.RemoveAll(repoPath); removeErr != nil {
			c.logger.Error("failed to remove temp repo", "path", repoPath, "error", removeErr)
		}
	}

	opts := &git.CloneOptions{
		URL:   repoURL,
		Depth: 1,
	}
	if token != "" {
		opts.Auth = &githttp.BasicAuth{Username: "x-access-token", Password: token}
	}

	c.logger.Info("cloning repository", "url", repoURL, "path", repoPath)
	if _, err := git.PlainCloneContext(ctx, repoPath, false, opts); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("failed to clone %s: %w", repoURL, err)
	}

	return repoPath, cleanup, nil
}

// validateRepoURL rejects anything but http(s) remotes and local paths.
// file:// is intentionally unsupported.
func validateRepoURL(repoURL string) error {
	if !strings.Contains(repoURL, "://") {
		return nil
	}
	if !strings.HasPrefix(repoURL, "https://") && !strings.HasPrefix(repoURL, "http://") {
		return fmt.Errorf("invalid repository URL: %s", repoURL)
	}
	if _, err := url.Parse(repoURL); err != nil {
		return fmt.Errorf("failed to parse repository URL %q: %w", repoURL, err)
	}
	return nil
}
