package rag

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codehawk/codehawk/internal/core"
)

func TestRetriever_UnindexedRepositoryReturnsEmptyNotError(t *testing.T) {
	store := newFakeVectorStore()
	r := NewRetriever(store, "test-embedder", discardLogger())

	passages, err := r.RetrieveContext(context.Background(), "anything", "never/indexed", 5)
	require.NoError(t, err)
	assert.Empty(t, passages)
}

func TestRetriever_RoundTripFindsIndexedContent(t *testing.T) {
	store := newFakeVectorStore()
	ix := NewIndexer(store, "test-embedder", discardLogger())
	r := NewRetriever(store, "test-embedder", discardLogger())

	files := []core.RepoFile{
		{Path: "tree.go", Content: "binary tree traversal in order, pre order and post order"},
		{Path: "server.go", Content: "http server with router and middleware"},
		{Path: "cache.go", Content: "cache eviction policy least recently used"},
	}
	_, err := ix.IndexRepository(context.Background(), "acme/widgets", files, nil)
	require.NoError(t, err)

	passages, err := r.RetrieveContext(context.Background(), "how does the binary tree traversal work", "acme/widgets", 2)
	require.NoError(t, err)
	require.NotEmpty(t, passages)
	assert.Contains(t, passages[0], "tree.go", "best match should be the tree file chunk")
}

func TestRetriever_RespectsTopK(t *testing.T) {
	store := newFakeVectorStore()
	ix := NewIndexer(store, "test-embedder", discardLogger())
	r := NewRetriever(store, "test-embedder", discardLogger())

	files := []core.RepoFile{
		{Path: "a.go", Content: "http server"},
		{Path: "b.go", Content: "http router"},
		{Path: "c.go", Content: "http middleware"},
	}
	_, err := ix.IndexRepository(context.Background(), "acme/widgets", files, nil)
	require.NoError(t, err)

	passages, err := r.RetrieveContext(context.Background(), "http", "acme/widgets", 2)
	require.NoError(t, err)
	assert.Len(t, passages, 2)
}

func TestRetriever_ZeroTopK(t *testing.T) {
	store := newFakeVectorStore()
	r := NewRetriever(store, "test-embedder", discardLogger())

	passages, err := r.RetrieveContext(context.Background(), "query", "acme/widgets", 0)
	require.NoError(t, err)
	assert.Empty(t, passages)
}
