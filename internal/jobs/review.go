package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/codehawk/codehawk/internal/config"
	"github.com/codehawk/codehawk/internal/core"
	"github.com/codehawk/codehawk/internal/github"
	"github.com/codehawk/codehawk/internal/llm"
	"github.com/codehawk/codehawk/internal/rag"
	"github.com/codehawk/codehawk/internal/storage"
	"github.com/codehawk/codehawk/internal/workflow"
)

// Review pipeline step names. Step results are persisted under these names,
// so changing them invalidates in-flight runs.
const (
	reviewPipelineName   = "generate-review"
	stepFetchCredentials = "fetch-credentials"
	stepFetchDiff        = "fetch-diff"
	stepRetrieveContext  = "retrieve-context"
	stepGenerateReview   = "generate-review"
	stepPostComment      = "post-comment"
	stepSaveReview       = "save-review"
)

// contextTopK is how many indexed passages the review prompt embeds.
const contextTopK = 5

// reviewAuth is the persisted result of fetch-credentials. Later steps
// rebuild an authenticated client from it, so a resumed run needs no
// in-memory state.
type reviewAuth struct {
	RepositoryID   string `json:"repositoryId"`
	RepoFullName   string `json:"repoFullName"`
	UserID         string `json:"userId,omitempty"`
	Token          string `json:"token,omitempty"`
	InstallationID int64  `json:"installationId,omitempty"`
}

// pullRequestInfo is the persisted result of fetch-diff.
type pullRequestInfo struct {
	Title          string `json:"title"`
	Description    string `json:"description"`
	Diff           string `json:"diff"`
	ReviewDisabled bool   `json:"reviewDisabled,omitempty"`
}

// ReviewJob runs the durable review pipeline for a pull request: fetch
// credentials and diff, retrieve indexed context, generate the review, post
// it as a comment, and record a Review row. Every run leaves exactly one
// Review behind, completed or failed.
type ReviewJob struct {
	store     storage.Store
	clients   github.ClientFactory
	engine    *workflow.Engine
	retriever rag.Retriever
	generator llm.Generator
	logger    *slog.Logger
}

// NewReviewJob wires the review pipeline dependencies.
func NewReviewJob(
	store storage.Store,
	clients github.ClientFactory,
	engine *workflow.Engine,
	retriever rag.Retriever,
	generator llm.Generator,
	logger *slog.Logger,
) *ReviewJob {
	return &ReviewJob{
		store:     store,
		clients:   clients,
		engine:    engine,
		retriever: retriever,
		generator: generator,
		logger:    logger,
	}
}

// Run executes the review pipeline for a pr.review.requested work item.
// A failed run records a Review with status failed so the attempt stays
// visible in history.
func (j *ReviewJob) Run(ctx context.Context, item *core.WorkItem) error {
	req := item.ReviewRequested
	if req == nil {
		return fmt.Errorf("work item %q has no review payload", item.Name)
	}

	j.logger.Info("starting review job", "repo", req.Owner+"/"+req.RepoName, "pr", req.PullRequestNumber)

	result, err := j.engine.Execute(ctx, j.pipeline(req), item.Key())
	if err != nil {
		j.recordFailure(ctx, req, err)
		return fmt.Errorf("review pipeline failed for %s: %w", item.Key(), err)
	}

	j.logger.Info("review job completed", "run", result.RunID, "item", item.Key())
	return nil
}

func (j *ReviewJob) pipeline(req *core.ReviewRequested) workflow.Pipeline {
	return workflow.Pipeline{
		Name: reviewPipelineName,
		Steps: []workflow.Step{
			{Name: stepFetchCredentials, Run: j.fetchCredentials(req)},
			{Name: stepFetchDiff, Run: j.fetchDiff(req)},
			{Name: stepRetrieveContext, Run: j.retrieveContext()},
			{Name: stepGenerateReview, Run: j.generateReview()},
			// Posting the comment must never block saving the review.
			{Name: stepPostComment, Run: j.postComment(req), ContinueOnError: true},
			{Name: stepSaveReview, Run: j.saveReview(req)},
		},
	}
}

// fetchCredentials resolves how the rest of the run authenticates against
// GitHub. A missing repository or credential cannot heal on retry, so both
// are fatal.
func (j *ReviewJob) fetchCredentials(req *core.ReviewRequested) workflow.StepFunc {
	return func(ctx context.Context, _ *workflow.Run) (any, error) {
		repo, err := j.store.GetRepositoryByOwnerName(ctx, req.Owner, req.RepoName)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return nil, workflow.Fatal(fmt.Errorf("repository %s/%s is not connected: %w", req.Owner, req.RepoName, err))
			}
			return nil, err
		}

		auth := &reviewAuth{
			RepositoryID: repo.ID,
			RepoFullName: repo.FullName,
			UserID:       repo.UserID,
		}

		if req.InstallationID > 0 {
			auth.InstallationID = req.InstallationID
			return auth, nil
		}

		userID := req.UserID
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

// fetchDiff pulls the PR title, description, and raw diff, and consults the
// repository's settings file for a review opt-out.
func (j *ReviewJob) fetchDiff(req *core.ReviewRequested) workflow.StepFunc {
	return func(ctx context.Context, run *workflow.Run) (any, error) {
		var auth reviewAuth
		if err := run.Result(stepFetchCredentials, &auth); err != nil {
			return nil, workflow.Fatal(err)
		}

		client, err := clientFor(ctx, j.clients, &auth)
		if err != nil {
			return nil, err
		}

		info := &pullRequestInfo{}
		if raw, err := client.GetFileContent(ctx, req.Owner, req.RepoName, config.RepoConfigFileName); err == nil && raw != nil {
			repoCfg, parseErr := config.ParseRepoConfig(raw)
			if parseErr != nil {
				j.logger.Warn("ignoring malformed repo config", "repo", auth.RepoFullName, "error", parseErr)
			} else if !repoCfg.Review.Enabled {
				info.ReviewDisabled = true
				return info, nil
			}
		}

		data, err := client.GetPullRequestData(ctx, req.Owner, req.RepoName, req.PullRequestNumber)
		if err != nil {
			return nil, err
		}
		info.Title = data.Title
		info.Description = data.Description
		info.Diff = data.Diff
		return info, nil
	}
}

// retrieveContext queries the repository's vector collection for passages
// relevant to the PR. Missing context degrades the review, never the run.
func (j *ReviewJob) retrieveContext() workflow.StepFunc {
	return func(ctx context.Context, run *workflow.Run) (any, error) {
		var auth reviewAuth
		if err := run.Result(stepFetchCredentials, &auth); err != nil {
			return nil, workflow.Fatal(err)
		}
		var info pullRequestInfo
		if err := run.Result(stepFetchDiff, &info); err != nil {
			return nil, workflow.Fatal(err)
		}
		if info.ReviewDisabled {
			return []string{}, nil
		}

		query := strings.TrimSpace(info.Title + "\n\n" + info.Description)
		passages, err := j.retriever.RetrieveContext(ctx, query, auth.RepoFullName, contextTopK)
		if err != nil {
			return nil, err
		}
		if passages == nil {
			passages = []string{}
		}
		return passages, nil
	}
}

func (j *ReviewJob) generateReview() workflow.StepFunc {
	return func(ctx context.Context, run *workflow.Run) (any, error) {
		var info pullRequestInfo
		if err := run.Result(stepFetchDiff, &info); err != nil {
			return nil, workflow.Fatal(err)
		}
		if info.ReviewDisabled {
			return "", nil
		}
		if info.Diff == "" {
			return nil, workflow.Fatal(fmt.Errorf("pull request has an empty diff"))
		}
		var passages []string
		if err := run.Result(stepRetrieveContext, &passages); err != nil {
			return nil, workflow.Fatal(err)
		}

		return j.generator.GenerateReview(ctx, &llm.ReviewInput{
			Title:       info.Title,
			Description: info.Description,
			Diff:        info.Diff,
			Context:     passages,
		})
	}
}

func (j *ReviewJob) postComment(req *core.ReviewRequested) workflow.StepFunc {
	return func(ctx context.Context, run *workflow.Run) (any, error) {
		var auth reviewAuth
		if err := run.Result(stepFetchCredentials, &auth); err != nil {
			return nil, workflow.Fatal(err)
		}
		var body string
		if err := run.Result(stepGenerateReview, &body); err != nil {
			return nil, workflow.Fatal(err)
		}
		if body == "" {
			return false, nil
		}

		client, err := clientFor(ctx, j.clients, &auth)
		if err != nil {
			return nil, err
		}
		if err := client.CreateComment(ctx, req.Owner, req.RepoName, req.PullRequestNumber, body); err != nil {
			return nil, err
		}
		return true, nil
	}
}

// saveReview records the completed review. Reviews are append-only: each
// run inserts a new row.
func (j *ReviewJob) saveReview(req *core.ReviewRequested) workflow.StepFunc {
	return func(ctx context.Context, run *workflow.Run) (any, error) {
		var auth reviewAuth
		if err := run.Result(stepFetchCredentials, &auth); err != nil {
			return nil, workflow.Fatal(err)
		}
		var info pullRequestInfo
		if err := run.Result(stepFetchDiff, &info); err != nil {
			return nil, workflow.Fatal(err)
		}
		if info.ReviewDisabled {
			j.logger.Info("reviews disabled for repository, skipping", "repo", auth.RepoFullName)
			return false, nil
		}
		var body string
		if err := run.Result(stepGenerateReview, &body); err != nil {
			return nil, workflow.Fatal(err)
		}

		review := &core.Review{
			RepositoryID:     auth.RepositoryID,
			PullRequestNum:   req.PullRequestNumber,
			PullRequestTitle: info.Title,
			PullRequestURL:   fmt.Sprintf("https://github.com/%s/pull/%d", auth.RepoFullName, req.PullRequestNumber),
			Body:             body,
			Status:           core.ReviewStatusCompleted,
		}
		if err := j.store.SaveReview(ctx, review); err != nil {
			return nil, err
		}
		return true, nil
	}
}

// recordFailure writes a failed Review so the attempt shows up in history
// alongside successful ones. Best effort: a failure here is only logged.
// Reviews reference a repository row, so nothing is recorded for a
// repository that was never connected.
func (j *ReviewJob) recordFailure(ctx context.Context, req *core.ReviewRequested, runErr error) {
	repo, err := j.store.GetRepositoryByOwnerName(ctx, req.Owner, req.RepoName)
	if err != nil {
		j.logger.Warn("cannot record failed review for unknown repository",
			"repo", req.Owner+"/"+req.RepoName,
			"pr", req.PullRequestNumber,
			"run_error", runErr,
		)
		return
	}

	review := &core.Review{
		RepositoryID:   repo.ID,
		PullRequestNum: req.PullRequestNumber,
		PullRequestURL: repo.PullRequestURL(req.PullRequestNumber),
		Body:           fmt.Sprintf("Review failed: %v", runErr),
		Status:         core.ReviewStatusFailed,
	}
	if err := j.store.SaveReview(ctx, review); err != nil {
		j.logger.Error("failed to record failed review",
			"repo", req.Owner+"/"+req.RepoName,
			"pr", req.PullRequestNumber,
			"error", err,
		)
	}
}

// clientFor rebuilds an authenticated client from persisted auth material.
// Installation auth mints a fresh token each time, so resumed runs never
// depend on a token that expired while the run was parked.
func clientFor(ctx context.Context, clients github.ClientFactory, auth *reviewAuth) (github.Client, error) {
	if auth.InstallationID > 0 {
		return clients.FromInstallation(ctx, auth.InstallationID)
	}
	if auth.Token == "" {
		return nil, workflow.Fatal(fmt.Errorf("no authentication available for %s", auth.RepoFullName))
	}
	return clients.FromToken(ctx, auth.Token), nil
}
