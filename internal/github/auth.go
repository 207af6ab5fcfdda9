package github

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/bradleyfalzon/ghinstallation/v2"
	"github.com/google/go-github/v73/github"
	"golang.org/x/oauth2"

	"github.com/codehawk/codehawk/internal/config"
)

// ClientFactory builds authenticated GitHub clients. The review pipeline
// resolves one per run: from a stored user token, or from an App
// installation when the webhook carries an installation ID.
type ClientFactory interface {
	FromToken(ctx context.Context, token string) Client
	FromInstallation(ctx context.Context, installationID int64) (Client, error)
}

type clientFactory struct {
	cfg    *config.GitHubConfig
	logger *slog.Logger
}

// NewClientFactory creates the default factory.
func NewClientFactory(cfg *config.GitHubConfig, logger *slog.Logger) ClientFactory {
	return &clientFactory{cfg: cfg, logger: logger}
}

// FromToken authenticates with a user access token (OAuth or PAT).
func (f *clientFactory) FromToken(ctx context.Context, token string) Client {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	tc := oauth2.NewClient(ctx, ts)
	return NewClient(github.NewClient(tc), f.logger)
}

// FromInstallation authenticates as a GitHub App installation by minting an
// installation token with the App's private key.
func (f *clientFactory) FromInstallation(ctx context.Context, installationID int64) (Client, error) {
	if f.cfg.AppID == 0 || f.cfg.PrivateKeyPath == "" {
		return nil, fmt.Errorf("GitHub App credentials are not configured")
	}

	privateKey, err := os.ReadFile(f.cfg.PrivateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key from %s: %w", f.cfg.PrivateKeyPath, err)
	}

	appTransport, err := ghinstallation.NewAppsTransport(http.DefaultTransport, f.cfg.AppID, privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create GitHub App transport: %w", err)
	}
	appClient := github.NewClient(&http.Client{Transport: appTransport})

	token, _, err := appClient.Apps.CreateInstallationToken(ctx, installationID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create installation token for installation %d: %w", installationID, err)
	}
	if token.GetToken() == "" {
		return nil, fmt.Errorf("received an empty installation token")
	}

	f.logger.Info("created installation token", "installation_id", installationID, "expires_at", token.GetExpiresAt())
	return f.FromToken(ctx, token.GetToken()), nil
}
