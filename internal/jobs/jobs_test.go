package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codehawk/codehawk/internal/core"
	"github.com/codehawk/codehawk/internal/github"
	"github.com/codehawk/codehawk/internal/llm"
	"github.com/codehawk/codehawk/internal/rag"
	"github.com/codehawk/codehawk/internal/storage"
	"github.com/codehawk/codehawk/internal/workflow"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func testEngine() *workflow.Engine {
	return workflow.NewEngine(workflow.NewMemoryRunStore(), workflow.Config{
		MaxStepAttempts: 2,
		InitialBackoff:  time.Millisecond,
	}, discardLogger())
}

// fakeStore is an in-memory storage.Store.
type fakeStore struct {
	mu      sync.Mutex
	repos   map[string]*core.Repository
	creds   map[string]*core.Credential
	reviews []core.Review
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		repos: make(map[string]*core.Repository),
		creds: make(map[string]*core.Credential),
	}
}

func (s *fakeStore) SaveReview(_ context.Context, review *core.Review) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if review.ID == "" {
		review.ID = fmt.Sprintf("rev-%d", len(s.reviews)+1)
	}
	s.reviews = append(s.reviews, *review)
	return nil
}

func (s *fakeStore) ListReviews(_ context.Context, limit int) ([]core.Review, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Review, len(s.reviews))
	copy(out, s.reviews)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *fakeStore) ListReviewsForRepo(ctx context.Context, repositoryID string, limit int) ([]core.Review, error) {
	all, _ := s.ListReviews(ctx, 0)
	var out []core.Review
	for _, r := range all {
		if r.RepositoryID == repositoryID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *fakeStore) GetRepositoryByOwnerName(_ context.Context, owner, name string) (*core.Repository, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	repo, ok := s.repos[owner+"/"+name]
	if !ok {
		return nil, fmt.Errorf("repository %s/%s: %w", owner, name, storage.ErrNotFound)
	}
	cp := *repo
	return &cp, nil
}

func (s *fakeStore) CreateRepository(_ context.Context, repo *core.Repository) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if repo.ID == "" {
		repo.ID = fmt.Sprintf("repo-%d", len(s.repos)+1)
	}
	if repo.FullName == "" {
		repo.FullName = repo.Owner + "/" + repo.Name
	}
	cp := *repo
	s.repos[repo.Owner+"/"+repo.Name] = &cp
	return nil
}

func (s *fakeStore) DeleteRepository(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, repo := range s.repos {
		if repo.ID == id {
			delete(s.repos, key)
		}
	}
	return nil
}

func (s *fakeStore) GetCredential(_ context.Context, userID, provider string) (*core.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cred, ok := s.creds[userID+"/"+provider]
	if !ok {
		return nil, fmt.Errorf("credential for user %s: %w", userID, storage.ErrNotFound)
	}
	cp := *cred
	return &cp, nil
}

func (s *fakeStore) UpsertCredential(_ context.Context, cred *core.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *cred
	s.creds[cred.UserID+"/"+cred.Provider] = &cp
	return nil
}

func (s *fakeStore) savedReviews() []core.Review {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Review, len(s.reviews))
	copy(out, s.reviews)
	return out
}

// fakeClient is a scripted github.Client.
type fakeClient struct {
	mu         sync.Mutex
	pr         *github.PullRequestData
	files      map[string][]byte
	tree       []github.TreeEntry
	blobs      map[string]string
	commentErr error
	comments   []string
}

func (c *fakeClient) GetPullRequestData(_ context.Context, _, _ string, _ int) (*github.PullRequestData, error) {
	if c.pr == nil {
		return nil, errors.New("no pull request scripted")
	}
	return c.pr, nil
}

func (c *fakeClient) CreateComment(_ context.Context, _, _ string, _ int, body string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.commentErr != nil {
		return c.commentErr
	}
	c.comments = append(c.comments, body)
	return nil
}

func (c *fakeClient) ListTree(_ context.Context, _, _ string) ([]github.TreeEntry, error) {
	return c.tree, nil
}

func (c *fakeClient) GetBlob(_ context.Context, _, _, sha string) (string, error) {
	content, ok := c.blobs[sha]
	if !ok {
		return "", fmt.Errorf("no blob %s", sha)
	}
	return content, nil
}

func (c *fakeClient) GetFileContent(_ context.Context, _, _, path string) ([]byte, error) {
	return c.files[path], nil
}

func (c *fakeClient) CreateWebhook(_ context.Context, _, _, _, _ string) error {
	return nil
}

func (c *fakeClient) postedComments() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.comments))
	copy(out, c.comments)
	return out
}

// fakeFactory hands out the same scripted client for any auth.
type fakeFactory struct {
	client *fakeClient
}

func (f *fakeFactory) FromToken(_ context.Context, _ string) github.Client {
	return f.client
}

func (f *fakeFactory) FromInstallation(_ context.Context, _ int64) (github.Client, error) {
	return f.client, nil
}

type fakeRetriever struct {
	passages []string
}

func (r *fakeRetriever) RetrieveContext(_ context.Context, _, _ string, _ int) ([]string, error) {
	return r.passages, nil
}

type fakeGenerator struct {
	review string
	err    error
}

func (g *fakeGenerator) GenerateReview(_ context.Context, _ *llm.ReviewInput) (string, error) {
	return g.review, g.err
}

type fakeIndexer struct {
	mu    sync.Mutex
	calls []indexCall
}

type indexCall struct {
	repo    string
	files   []core.RepoFile
	repoCfg *core.RepoConfig
}

func (ix *fakeIndexer) IndexRepository(_ context.Context, repoFullName string, files []core.RepoFile, repoCfg *core.RepoConfig) (*rag.IndexStats, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.calls = append(ix.calls, indexCall{repo: repoFullName, files: files, repoCfg: repoCfg})
	return &rag.IndexStats{Indexed: len(files)}, nil
}

func connectedRepoStore() *fakeStore {
	store := newFakeStore()
	_ = store.CreateRepository(context.Background(), &core.Repository{
		Owner:  "acme",
		Name:   "widgets",
		UserID: "user-1",
	})
	_ = store.UpsertCredential(context.Background(), &core.Credential{
		UserID:      "user-1",
		Provider:    core.ProviderGitHub,
		AccessToken: "gho_token",
	})
	return store
}

func reviewWorkItem() *core.WorkItem {
	return &core.WorkItem{
		Name: core.EventReviewRequested,
		ReviewRequested: &core.ReviewRequested{
			Owner:             "acme",
			RepoName:          "widgets",
			PullRequestNumber: 42,
		},
	}
}

func TestReviewJob_HappyPath(t *testing.T) {
	store := connectedRepoStore()
	client := &fakeClient{
		pr: &github.PullRequestData{Title: "Add cache", Description: "desc", Diff: "+cache"},
	}
	job := NewReviewJob(store, &fakeFactory{client: client}, testEngine(),
		&fakeRetriever{passages: []string{"File: cache.go\n\nhelpers"}},
		&fakeGenerator{review: "## Looks good"},
		discardLogger(),
	)

	err := job.Run(context.Background(), reviewWorkItem())
	require.NoError(t, err)

	reviews := store.savedReviews()
	require.Len(t, reviews, 1)
	assert.Equal(t, core.ReviewStatusCompleted, reviews[0].Status)
	assert.Equal(t, "## Looks good", reviews[0].Body)
	assert.Equal(t, 42, reviews[0].PullRequestNum)
	assert.Equal(t, "Add cache", reviews[0].PullRequestTitle)
	assert.Equal(t, "https://github.com/acme/widgets/pull/42", reviews[0].PullRequestURL)

	comments := client.postedComments()
	require.Len(t, comments, 1)
	assert.Equal(t, "## Looks good", comments[0])
}

func TestReviewJob_MissingCredentialRecordsFailedReview(t *testing.T) {
	store := newFakeStore()
	_ = store.CreateRepository(context.Background(), &core.Repository{
		Owner:  "acme",
		Name:   "widgets",
		UserID: "user-1",
	})
	client := &fakeClient{}
	job := NewReviewJob(store, &fakeFactory{client: client}, testEngine(),
		&fakeRetriever{}, &fakeGenerator{review: "never generated"}, discardLogger())

	err := job.Run(context.Background(), reviewWorkItem())
	require.Error(t, err)

	reviews := store.savedReviews()
	require.Len(t, reviews, 1, "a failed run records exactly one review")
	assert.Equal(t, core.ReviewStatusFailed, reviews[0].Status)
	assert.Contains(t, reviews[0].Body, "no GitHub credential")
	assert.Empty(t, client.postedComments(), "no comment may be posted for a failed run")
}

func TestReviewJob_PostCommentFailureStillSavesReview(t *testing.T) {
	store := connectedRepoStore()
	client := &fakeClient{
		pr:         &github.PullRequestData{Title: "t", Diff: "+x"},
		commentErr: errors.New("comment API down"),
	}
	job := NewReviewJob(store, &fakeFactory{client: client}, testEngine(),
		&fakeRetriever{}, &fakeGenerator{review: "body"}, discardLogger())

	err := job.Run(context.Background(), reviewWorkItem())
	require.NoError(t, err, "a failed comment must not fail the run")

	reviews := store.savedReviews()
	require.Len(t, reviews, 1)
	assert.Equal(t, core.ReviewStatusCompleted, reviews[0].Status)
	assert.Equal(t, "body", reviews[0].Body)
}

func TestReviewJob_ReviewsDisabledByRepoConfig(t *testing.T) {
	store := connectedRepoStore()
	client := &fakeClient{
		pr: &github.PullRequestData{Title: "t", Diff: "+x"},
		files: map[string][]byte{
			".codehawk.yml": []byte("review:\n  enabled: false\n"),
		},
	}
	job := NewReviewJob(store, &fakeFactory{client: client}, testEngine(),
		&fakeRetriever{}, &fakeGenerator{review: "body"}, discardLogger())

	err := job.Run(context.Background(), reviewWorkItem())
	require.NoError(t, err)

	assert.Empty(t, store.savedReviews())
	assert.Empty(t, client.postedComments())
}

func TestIndexJob_FetchesIndexableFilesOnly(t *testing.T) {
	store := connectedRepoStore()
	client := &fakeClient{
		tree: []github.TreeEntry{
			{Path: "main.go", SHA: "sha1", Size: 100},
			{Path: "logo.png", SHA: "sha2", Size: 100},
			{Path: "huge.sql", SHA: "sha3", Size: 10 << 20},
		},
		blobs: map[string]string{
			"sha1": "package main",
			"sha2": "\x89PNG",
			"sha3": "INSERT ...",
		},
	}
	indexer := &fakeIndexer{}
	job := NewIndexJob(store, &fakeFactory{client: client}, testEngine(), indexer, discardLogger())

	err := job.Run(context.Background(), &core.WorkItem{
		Name: core.EventRepositoryConnected,
		RepositoryConnected: &core.RepositoryConnected{
			Owner: "acme", Repo: "widgets", UserID: "user-1",
		},
	})
	require.NoError(t, err)

	require.Len(t, indexer.calls, 1)
	call := indexer.calls[0]
	assert.Equal(t, "acme/widgets", call.repo)
	require.Len(t, call.files, 1, "binary and oversized blobs are never fetched")
	assert.Equal(t, "main.go", call.files[0].Path)
	assert.Equal(t, "package main", call.files[0].Content)
}

func TestIndexJob_CreatesRepositoryWhenUnknown(t *testing.T) {
	store := newFakeStore()
	_ = store.UpsertCredential(context.Background(), &core.Credential{
		UserID:      "user-2",
		Provider:    core.ProviderGitHub,
		AccessToken: "gho_token",
	})
	client := &fakeClient{
		tree:  []github.TreeEntry{{Path: "a.go", SHA: "s", Size: 1}},
		blobs: map[string]string{"s": "package a"},
	}
	job := NewIndexJob(store, &fakeFactory{client: client}, testEngine(), &fakeIndexer{}, discardLogger())

	err := job.Run(context.Background(), &core.WorkItem{
		Name: core.EventRepositoryConnected,
		RepositoryConnected: &core.RepositoryConnected{
			Owner: "acme", Repo: "gadgets", UserID: "user-2",
		},
	})
	require.NoError(t, err)

	repo, err := store.GetRepositoryByOwnerName(context.Background(), "acme", "gadgets")
	require.NoError(t, err)
	assert.Equal(t, "user-2", repo.UserID)
}

func TestDispatcher_RoutesAndRejectsUnknownEvents(t *testing.T) {
	done := make(chan *core.WorkItem, 1)
	jobs := map[string]core.Job{
		core.EventReviewRequested: jobFunc(func(_ context.Context, item *core.WorkItem) error {
			done <- item
			return nil
		}),
	}
	d := NewDispatcher(jobs, 1, 10, discardLogger())
	defer d.Stop()

	item := reviewWorkItem()
	require.NoError(t, d.Dispatch(context.Background(), item))

	select {
	case got := <-done:
		assert.Equal(t, item.Key(), got.Key())
	case <-time.After(2 * time.Second):
		t.Fatal("dispatched item was never processed")
	}

	err := d.Dispatch(context.Background(), &core.WorkItem{Name: "unknown.event"})
	assert.Error(t, err)
}

type jobFunc func(ctx context.Context, item *core.WorkItem) error

func (f jobFunc) Run(ctx context.Context, item *core.WorkItem) error {
	return f(ctx, item)
}
