package rag

import (
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codehawk/codehawk/internal/core"
	"github.com/codehawk/codehawk/internal/storage"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestIsIndexablePath(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"main.go", true},
		{"README.md", true},
		{"src/app.ts", true},
		{"Makefile", true},
		{"logo.png", false},
		{"assets/Photo.JPG", false},
		{"release.tar", false},
		{"dist/app.exe", false},
		{"lib/native.so", false},
		{"fonts/inter.woff2", false},
		{"demo.mp4", false},
		{"go.sum", true},
		{"yarn.lock", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, IsIndexablePath(tt.path))
		})
	}
}

func TestIndexer_SkipsBinaryFiles(t *testing.T) {
	store := newFakeVectorStore()
	ix := NewIndexer(store, "test-embedder", discardLogger())

	files := []core.RepoFile{
		{Path: "main.go", Content: "package main"},
		{Path: "logo.png", Content: "\x89PNG..."},
		{Path: "bundle.zip", Content: "PK..."},
	}

	stats, err := ix.IndexRepository(context.Background(), "acme/widgets", files, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Indexed)
	assert.Equal(t, 2, stats.Skipped)

	docs := store.docs(storage.CollectionName("acme/widgets", "test-embedder"))
	require.Len(t, docs, 1)
	assert.Equal(t, "main.go", docs[0].Metadata["path"])
}

func TestIndexer_TruncatesLongContent(t *testing.T) {
	store := newFakeVectorStore()
	ix := NewIndexer(store, "test-embedder", discardLogger())

	files := []core.RepoFile{{Path: "big.go", Content: strings.Repeat("x", 20000)}}
	_, err := ix.IndexRepository(context.Background(), "acme/widgets", files, nil)
	require.NoError(t, err)

	docs := store.docs(storage.CollectionName("acme/widgets", "test-embedder"))
	require.Len(t, docs, 1)
	assert.Len(t, docs[0].PageContent, 8000)
	assert.True(t, strings.HasPrefix(docs[0].PageContent, "File: big.go\n\n"))
}

func TestIndexer_BatchesUpserts(t *testing.T) {
	store := newFakeVectorStore()
	ix := NewIndexer(store, "test-embedder", discardLogger())

	files := make([]core.RepoFile, 0, 250)
	for i := 0; i < 250; i++ {
		files = append(files, core.RepoFile{Path: "file" + string(rune('a'+i%26)) + ".go", Content: "content"})
	}

	stats, err := ix.IndexRepository(context.Background(), "acme/widgets", files, nil)
	require.NoError(t, err)
	assert.Equal(t, 250, stats.Indexed)
	assert.Equal(t, []int{100, 100, 50}, store.addCalls)
}

func TestIndexer_SingleBadFileDoesNotAbortTheRest(t *testing.T) {
	store := newFakeVectorStore()
	store.failPaths["bad.go"] = true
	ix := NewIndexer(store, "test-embedder", discardLogger())

	files := []core.RepoFile{
		{Path: "good.go", Content: "package good"},
		{Path: "bad.go", Content: "package bad"},
		{Path: "fine.go", Content: "package fine"},
	}

	stats, err := ix.IndexRepository(context.Background(), "acme/widgets", files, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Indexed)
	assert.Equal(t, 1, stats.Failed)

	docs := store.docs(storage.CollectionName("acme/widgets", "test-embedder"))
	assert.Len(t, docs, 2)
}

func TestIndexer_HonorsRepoConfigExcludes(t *testing.T) {
	store := newFakeVectorStore()
	ix := NewIndexer(store, "test-embedder", discardLogger())

	cfg := core.DefaultRepoConfig()
	cfg.Index.ExcludePaths = append(cfg.Index.ExcludePaths, "generated/")
	cfg.Index.ExcludeExts = []string{".sql"}

	files := []core.RepoFile{
		{Path: "generated/api.go", Content: "package api"},
		{Path: "vendor/dep/dep.go", Content: "package dep"},
		{Path: "schema.sql", Content: "CREATE TABLE t ();"},
		{Path: "main.go", Content: "package main"},
	}

	stats, err := ix.IndexRepository(context.Background(), "acme/widgets", files, cfg)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Indexed)
	assert.Equal(t, 3, stats.Skipped)
}
