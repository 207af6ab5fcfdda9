// Package storage implements persistence for reviews, repositories,
// credentials, and workflow state, plus the vector store abstraction.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/xid"

	"github.com/codehawk/codehawk/internal/core"
)

// ErrNotFound reports a missing row for lookups where absence is meaningful
// to the caller (credentials, repositories).
var ErrNotFound = errors.New("not found")

// Store defines the relational operations the pipeline consumes.
type Store interface {
	SaveReview(ctx context.Context, review *core.Review) error
	ListReviews(ctx context.Context, limit int) ([]core.Review, error)
	ListReviewsForRepo(ctx context.Context, repositoryID string, limit int) ([]core.Review, error)

	GetRepositoryByOwnerName(ctx context.Context, owner, name string) (*core.Repository, error)
	CreateRepository(ctx context.Context, repo *core.Repository) error
	DeleteRepository(ctx context.Context, id string) error

	GetCredential(ctx context.Context, userID, provider string) (*core.Credential, error)
	UpsertCredential(ctx context.Context, cred *core.Credential) error
}

type postgresStore struct {
	db *sqlx.DB
}

// NewStore creates a Postgres-backed Store.
func NewStore(db *sqlx.DB) Store {
	return &postgresStore{db: db}
}

// SaveReview inserts a new review row. Reviews are append-only; there is no
// update path by design.
func (s *postgresStore) SaveReview(ctx context.Context, review *core.Review) error {
	if review.ID == "" {
		review.ID = xid.New().String()
	}
	if review.CreatedAt.IsZero() {
		review.CreatedAt = time.Now().UTC()
	}
	const query = `
		INSERT INTO reviews (id, repository_id, pr_number, pr_title, pr_url, body, status, created_at)
		VALUES (:id, :repository_id, :pr_number, :pr_title, :pr_url, :body, :status, :created_at)`
	if _, err := s.db.NamedExecContext(ctx, query, review); err != nil {
		return fmt.Errorf("failed to insert review for PR #%d: %w", review.PullRequestNum, err)
	}
	return nil
}

func (s *postgresStore) ListReviews(ctx context.Context, limit int) ([]core.Review, error) {
	const query = `
		SELECT id, repository_id, pr_number, pr_title, pr_url, body, status, created_at
		FROM reviews ORDER BY created_at DESC LIMIT $1`
	var reviews []core.Review
	if err := s.db.SelectContext(ctx, &reviews, query, limit); err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	return reviews, nil
}

func (s *postgresStore) ListReviewsForRepo(ctx context.Context, repositoryID string, limit int) ([]core.Review, error) {
	const query = `
		SELECT id, repository_id, pr_number, pr_title, pr_url, body, status, created_at
		FROM reviews WHERE repository_id = $1 ORDER BY created_at DESC LIMIT $2`
	var reviews []core.Review
	if err := s.db.SelectContext(ctx, &reviews, query, repositoryID, limit); err != nil {
		return nil, fmt.Errorf("failed to list reviews for repository %s: %w", repositoryID, err)
	}
	return reviews, nil
}

func (s *postgresStore) GetRepositoryByOwnerName(ctx context.Context, owner, name string) (*core.Repository, error) {
	const query = `
		SELECT id, owner, name, full_name, user_id, created_at
		FROM repositories WHERE owner = $1 AND name = $2`
	var repo core.Repository
	if err := s.db.GetContext(ctx, &repo, query, owner, name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("repository %s/%s: %w", owner, name, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get repository %s/%s: %w", owner, name, err)
	}
	return &repo, nil
}

func (s *postgresStore) CreateRepository(ctx context.Context, repo *core.Repository) error {
	if repo.ID == "" {
		repo.ID = xid.New().String()
	}
	if repo.FullName == "" {
		repo.FullName = repo.Owner + "/" + repo.Name
	}
	if repo.CreatedAt.IsZero() {
		repo.CreatedAt = time.Now().UTC()
	}
	const query = `
		INSERT INTO repositories (id, owner, name, full_name, user_id, created_at)
		VALUES (:id, :owner, :name, :full_name, :user_id, :created_at)
		ON CONFLICT (owner, name) DO NOTHING`
	if _, err := s.db.NamedExecContext(ctx, query, repo); err != nil {
		return fmt.Errorf("failed to create repository %s: %w", repo.FullName, err)
	}
	return nil
}

func (s *postgresStore) DeleteRepository(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM repositories WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete repository %s: %w", id, err)
	}
	return nil
}

func (s *postgresStore) GetCredential(ctx context.Context, userID, provider string) (*core.Credential, error) {
	const query = `
		SELECT id, user_id, provider, access_token, created_at
		FROM credentials WHERE user_id = $1 AND provider = $2`
	var cred core.Credential
	if err := s.db.GetContext(ctx, &cred, query, userID, provider); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("credential for user %s on %s: %w", userID, provider, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get credential for user %s: %w", userID, err)
	}
	return &cred, nil
}

func (s *postgresStore) UpsertCredential(ctx context.Context, cred *core.Credential) error {
	if cred.ID == "" {
		cred.ID = xid.New().String()
	}
	if cred.CreatedAt.IsZero() {
		cred.CreatedAt = time.Now().UTC()
	}
	const query = `
		INSERT INTO credentials (id, user_id, provider, access_token, created_at)
		VALUES (:id, :user_id, :provider, :access_token, :created_at)
		ON CONFLICT (user_id, provider) DO UPDATE SET access_token = EXCLUDED.access_token`
	if _, err := s.db.NamedExecContext(ctx, query, cred); err != nil {
		return fmt.Errorf("failed to upsert credential for user %s: %w", cred.UserID, err)
	}
	return nil
}
