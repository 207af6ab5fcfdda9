// Package rag implements the retrieval-augmented context services: the
// indexing pipeline that populates the vector index and the retriever that
// reads it back at review time.
package rag

import (
	"context"
	"log/slog"

	"github.com/codehawk/codehawk/internal/storage"
)

// Retriever returns the most relevant indexed passages for a query.
type Retriever interface {
	// RetrieveContext returns up to topK passages for the repository,
	// ordered best first. A repository with no indexed content yields an
	// empty slice, never an error; callers proceed without context.
	RetrieveContext(ctx context.Context, query, repoFullName string, topK int) ([]string, error)
}

type retriever struct {
	vectorStore   storage.VectorStore
	embedderModel string
	logger        *slog.Logger
}

// NewRetriever creates a Retriever reading the same collections the Indexer
// writes. Both must be constructed with the same embedder model name, or
// they resolve different collections.
func NewRetriever(vs storage.VectorStore, embedderModel string, logger *slog.Logger) Retriever {
	return &retriever{vectorStore: vs, embedderModel: embedderModel, logger: logger}
}

func (r *retriever) RetrieveContext(ctx context.Context, query, repoFullName string, topK int) ([]string, error) {
	if topK <= 0 {
		return nil, nil
	}

	collection := storage.CollectionName(repoFullName, r.embedderModel)
	docs, err := r.vectorStore.SimilaritySearch(ctx, collection, query, topK)
	if err != nil {
		// An unindexed repository surfaces as a missing collection. Reviews
		// degrade to no context rather than failing the run.
		r.logger.Warn("similarity search failed, proceeding without context",
			"repo", repoFullName,
			"collection", collection,
			"error", err,
		)
		return nil, nil
	}

	passages := make([]string, 0, len(docs))
	for _, doc := range docs {
		if doc.PageContent == "" {
			continue
		}
		passages = append(passages, doc.PageContent)
	}
	return passages, nil
}
