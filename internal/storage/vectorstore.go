package storage

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/sevigo/goframe/embeddings"
	"github.com/sevigo/goframe/schema"
	"github.com/sevigo/goframe/vectorstores"
	"github.com/sevigo/goframe/vectorstores/qdrant"
)

// VectorStore is the similarity index the retrieval service reads and the
// indexing pipeline writes. Each repository gets its own collection, which
// scopes every query to one repository key.
type VectorStore interface {
	// AddDocuments embeds and upserts documents into a collection.
	AddDocuments(ctx context.Context, collectionName string, docs []schema.Document) error

	// SimilaritySearch returns the numDocs most relevant documents for the
	// query, best first. A missing collection yields an empty result, not
	// an error.
	SimilaritySearch(ctx context.Context, collectionName, query string, numDocs int) ([]schema.Document, error)

	// DeleteCollection removes a collection and all its vectors.
	DeleteCollection(ctx context.Context, collectionName string) error
}

// qdrantVectorStore implements VectorStore on Qdrant. The embedder is shared
// with query-time retrieval: index vectors and query vectors must come from
// the same embedding model or similarity silently degrades.
type qdrantVectorStore struct {
	host     string
	embedder embeddings.Embedder
	logger   *slog.Logger
}

// NewQdrantVectorStore creates a Qdrant-backed vector store.
func NewQdrantVectorStore(host string, embedder embeddings.Embedder, logger *slog.Logger) VectorStore {
	return &qdrantVectorStore{host: host, embedder: embedder, logger: logger}
}

func (q *qdrantVectorStore) storeFor(collectionName string) (vectorstores.VectorStore, error) {
	if strings.TrimSpace(collectionName) == "" {
		return nil, fmt.Errorf("collection name cannot be empty")
	}
	return qdrant.New(
		qdrant.WithHost(q.host),
		qdrant.WithEmbedder(q.embedder),
		qdrant.WithCollectionName(collectionName),
		qdrant.WithLogger(q.logger),
	)
}

func (q *qdrantVectorStore) AddDocuments(ctx context.Context, collectionName string, docs []schema.Document) error {
	store, err := q.storeFor(collectionName)
	if err != nil {
		return fmt.Errorf("failed to get qdrant store for collection %s: %w", collectionName, err)
	}
	if _, err := store.AddDocuments(ctx, docs); err != nil {
		return fmt.Errorf("failed to add documents to collection %s: %w", collectionName, err)
	}
	return nil
}

func (q *qdrantVectorStore) SimilaritySearch(ctx context.Context, collectionName, query string, numDocs int) ([]schema.Document, error) {
	store, err := q.storeFor(collectionName)
	if err != nil {
		return nil, fmt.Errorf("failed to get qdrant store for collection %s: %w", collectionName, err)
	}
	return store.SimilaritySearch(ctx, query, numDocs)
}

func (q *qdrantVectorStore) DeleteCollection(ctx context.Context, collectionName string) error {
	store, err := q.storeFor(collectionName)
	if err != nil {
		return fmt.Errorf("failed to get qdrant store for collection %s: %w", collectionName, err)
	}
	return store.DeleteCollection(ctx, collectionName)
}

var collectionNameSanitizer = regexp.MustCompile("[^a-z0-9_-]+")

// CollectionName derives the Qdrant collection for a repository. The
// embedder model is part of the name so switching models never mixes
// incompatible embedding spaces in one collection.
func CollectionName(repoFullName, embedderModel string) string {
	repo := collectionNameSanitizer.ReplaceAllString(strings.ToLower(strings.ReplaceAll(repoFullName, "/", "-")), "")
	model := collectionNameSanitizer.ReplaceAllString(strings.ToLower(strings.Split(embedderModel, ":")[0]), "")

	name := fmt.Sprintf("repo-%s-%s", repo, model)
	if len(name) > 255 {
		name = name[:255]
	}
	return name
}
