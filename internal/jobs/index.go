package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/codehawk/codehawk/internal/config"
	"github.com/codehawk/codehawk/internal/core"
	"github.com/codehawk/codehawk/internal/github"
	"github.com/codehawk/codehawk/internal/rag"
	"github.com/codehawk/codehawk/internal/storage"
	"github.com/codehawk/codehawk/internal/workflow"
)

// Index pipeline step names.
const (
	indexPipelineName = "index-repository"
	stepFetchFiles    = "fetch-files"
	stepIndexCodebase = "index-codebase"
)

// maxIndexableBlobSize skips files the truncation step would discard most
// of anyway. The indexer truncates content to 8k chars; fetching multi-MB
// blobs for that is wasted API budget.
const maxIndexableBlobSize = 1 << 20

// repoSnapshot is the persisted result of fetch-files: the indexable slice
// of the repository tree plus its settings.
type repoSnapshot struct {
	RepoFullName string           `json:"repoFullName"`
	Files        []core.RepoFile  `json:"files"`
	RepoConfig   *core.RepoConfig `json:"repoConfig,omitempty"`
}

// IndexJob runs the durable indexing pipeline for a connected repository:
// resolve credentials, fetch the file tree, and embed the contents into the
// repository's vector collection.
type IndexJob struct {
	store   storage.Store
	clients github.ClientFactory
	engine  *workflow.Engine
	indexer rag.Indexer
	logger  *slog.Logger
}

// NewIndexJob wires the indexing pipeline dependencies.
func NewIndexJob(
	store storage.Store,
	clients github.ClientFactory,
	engine *workflow.Engine,
	indexer rag.Indexer,
	logger *slog.Logger,
) *IndexJob {
	return &IndexJob{
		store:   store,
		clients: clients,
		engine:  engine,
		indexer: indexer,
		logger:  logger,
	}
}

// Run executes the indexing pipeline for a repository.connected work item.
func (j *IndexJob) Run(ctx context.Context, item *core.WorkItem) error {
	conn := item.RepositoryConnected
	if conn == nil {
		return fmt.Errorf("work item %q has no repository payload", item.Name)
	}

	j.logger.Info("starting index job", "repo", conn.Owner+"/"+conn.Repo)

	result, err := j.engine.Execute(ctx, j.pipeline(conn), item.Key())
	if err != nil {
		return fmt.Errorf("index pipeline failed for %s: %w", item.Key(), err)
	}

	j.logger.Info("index job completed", "run", result.RunID, "item", item.Key())
	return nil
}

func (j *IndexJob) pipeline(conn *core.RepositoryConnected) workflow.Pipeline {
	return workflow.Pipeline{
		Name: indexPipelineName,
		Steps: []workflow.Step{
			{Name: stepFetchCredentials, Run: j.fetchCredentials(conn)},
			{Name: stepFetchFiles, Run: j.fetchFiles(conn)},
			{Name: stepIndexCodebase, Run: j.indexCodebase()},
		},
	}
}

// fetchCredentials ensures the repository row exists and resolves GitHub
// authentication, reusing the review pipeline's persisted auth shape.
func (j *IndexJob) fetchCredentials(conn *core.RepositoryConnected) workflow.StepFunc {
	return func(ctx context.Context, _ *workflow.Run) (any, error) {
		repo, err := j.store.GetRepositoryByOwnerName(ctx, conn.Owner, conn.Repo)
		if errors.Is(err, storage.ErrNotFound) {
			repo = &core.Repository{
				Owner:  conn.Owner,
				Name:   conn.Repo,
				UserID: conn.UserID,
			}
			if err := j.store.CreateRepository(ctx, repo); err != nil {
				return nil, err
			}
		} else if err != nil {
			return nil, err
		}

		auth := &reviewAuth{
			RepositoryID: repo.ID,
			RepoFullName: repo.Owner + "/" + repo.Name,
			UserID:       repo.UserID,
		}

		if conn.InstallationID > 0 {
			auth.InstallationID = conn.InstallationID
			return auth, nil
		}

		userID := conn.UserID
		if userID == "" {
			userID = repo.UserID
		}
		cred, err := j.store.GetCredential(ctx, userID, core.ProviderGitHub)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return nil, workflow.Fatal(fmt.Errorf("no GitHub credential for user %s: %w", userID, err))
			}
			return nil, err
		}
		auth.Token = cred.AccessToken
		return auth, nil
	}
}

// fetchFiles lists the default-branch tree and downloads the indexable
// blobs. A blob that fails to download is skipped, not fatal.
func (j *IndexJob) fetchFiles(conn *core.RepositoryConnected) workflow.StepFunc {
	return func(ctx context.Context, run *workflow.Run) (any, error) {
		var auth reviewAuth
		if err := run.Result(stepFetchCredentials, &auth); err != nil {
			return nil, workflow.Fatal(err)
		}

		client, err := clientFor(ctx, j.clients, &auth)
		if err != nil {
			return nil, err
		}

		snapshot := &repoSnapshot{RepoFullName: auth.RepoFullName}

		if raw, err := client.GetFileContent(ctx, conn.Owner, conn.Repo, config.RepoConfigFileName); err == nil && raw != nil {
			repoCfg, parseErr := config.ParseRepoConfig(raw)
			if parseErr != nil {
				j.logger.Warn("ignoring malformed repo config", "repo", auth.RepoFullName, "error", parseErr)
			} else {
				snapshot.RepoConfig = repoCfg
			}
		}

		entries, err := client.ListTree(ctx, conn.Owner, conn.Repo)
		if err != nil {
			return nil, err
		}

		for _, entry := range entries {
			if !rag.IsIndexablePath(entry.Path) || entry.Size > maxIndexableBlobSize {
				continue
			}
			content, err := client.GetBlob(ctx, conn.Owner, conn.Repo, entry.SHA)
			if err != nil {
				j.logger.Warn("failed to fetch blob, skipping", "repo", auth.RepoFullName, "path", entry.Path, "error", err)
				continue
			}
			snapshot.Files = append(snapshot.Files, core.RepoFile{Path: entry.Path, Content: content})
		}

		j.logger.Info("fetched repository files", "repo", auth.RepoFullName, "files", len(snapshot.Files))
		return snapshot, nil
	}
}

func (j *IndexJob) indexCodebase() workflow.StepFunc {
	return func(ctx context.Context, run *workflow.Run) (any, error) {
		var snapshot repoSnapshot
		if err := run.Result(stepFetchFiles, &snapshot); err != nil {
			return nil, workflow.Fatal(err)
		}

		stats, err := j.indexer.IndexRepository(ctx, snapshot.RepoFullName, snapshot.Files, snapshot.RepoConfig)
		if err != nil {
			return nil, err
		}
		return stats, nil
	}
}
