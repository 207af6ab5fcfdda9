package rag

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/sevigo/goframe/schema"

	"github.com/codehawk/codehawk/internal/core"
	"github.com/codehawk/codehawk/internal/storage"
)

const (
	// maxContentLength bounds what goes to the embedding model per file.
	maxContentLength = 8000
	// upsertBatchSize bounds the request size against the vector store.
	upsertBatchSize = 100
)

// binaryExts lists file extensions the indexer never embeds: images,
// archives, compiled artifacts, fonts, and media.
var binaryExts = map[string]struct{}{
	".png": {}, ".jpg": {}, ".jpeg": {}, ".gif": {}, ".bmp": {}, ".ico": {}, ".webp": {}, ".svg": {},
	".zip": {}, ".tar": {}, ".gz": {}, ".bz2": {}, ".xz": {}, ".7z": {}, ".rar": {},
	".exe": {}, ".dll": {}, ".so": {}, ".dylib": {}, ".a": {}, ".o": {}, ".class": {}, ".jar": {},
	".wasm": {}, ".bin": {}, ".dat": {},
	".pdf": {}, ".doc": {}, ".docx": {}, ".xls": {}, ".xlsx": {}, ".ppt": {}, ".pptx": {},
	".ttf": {}, ".otf": {}, ".woff": {}, ".woff2": {}, ".eot": {},
	".mp3": {}, ".mp4": {}, ".wav": {}, ".avi": {}, ".mov": {}, ".mkv": {}, ".flac": {}, ".ogg": {},
	".lock": {},
}

// IsIndexablePath reports whether a file path should be embedded based on
// its extension.
func IsIndexablePath(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	_, binary := binaryExts[ext]
	return !binary
}

// IndexStats summarizes one indexing run.
type IndexStats struct {
	Indexed int `json:"indexed"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// Indexer ingests repository files into the vector index.
type Indexer interface {
	// IndexRepository embeds the given files and upserts them under the
	// repository's collection. A failing file is logged and skipped; one
	// bad file never aborts the rest.
	IndexRepository(ctx context.Context, repoFullName string, files []core.RepoFile, repoCfg *core.RepoConfig) (*IndexStats, error)
}

type indexer struct {
	vectorStore   storage.VectorStore
	embedderModel string
	logger        *slog.Logger
}

// NewIndexer creates an Indexer writing to the given vector store.
func NewIndexer(vs storage.VectorStore, embedderModel string, logger *slog.Logger) Indexer {
	return &indexer{vectorStore: vs, embedderModel: embedderModel, logger: logger}
}

func (ix *indexer) IndexRepository(ctx context.Context, repoFullName string, files []core.RepoFile, repoCfg *core.RepoConfig) (*IndexStats, error) {
	if repoCfg == nil {
		repoCfg = core.DefaultRepoConfig()
	}
	collection := storage.CollectionName(repoFullName, ix.embedderModel)
	stats := &IndexStats{}

	docs := make([]schema.Document, 0, len(files))
	for _, file := range files {
		if !ix.shouldIndex(file.Path, repoCfg) {
			stats.Skipped++
			continue
		}

		content := fmt.Sprintf("File: %s\n\n%s", file.Path, file.Content)
		if len(content) > maxContentLength {
			content = content[:maxContentLength]
		}

		docs = append(docs, schema.Document{
			PageContent: content,
			Metadata: map[string]any{
				"repo": repoFullName,
				"path": file.Path,
			},
		})
	}

	for batch := range len(docs)/upsertBatchSize + 1 {
		start := batch * upsertBatchSize
		end := min(start+upsertBatchSize, len(docs))
		if start >= end {
			break
		}
		ix.upsertBatch(ctx, collection, docs[start:end], stats)
	}

	ix.logger.Info("indexing complete",
		"repo", repoFullName,
		"collection", collection,
		"indexed", stats.Indexed,
		"skipped", stats.Skipped,
		"failed", stats.Failed,
	)
	return stats, nil
}

// upsertBatch adds one batch of documents. When the batch fails as a whole,
// each document is retried individually so a single bad file only loses
// itself.
func (ix *indexer) upsertBatch(ctx context.Context, collection string, batch []schema.Document, stats *IndexStats) {
	if err := ix.vectorStore.AddDocuments(ctx, collection, batch); err == nil {
		stats.Indexed += len(batch)
		return
	}

	for _, doc := range batch {
		if err := ix.vectorStore.AddDocuments(ctx, collection, []schema.Document{doc}); err != nil {
			path, _ := doc.Metadata["path"].(string)
			ix.logger.Error("failed to embed file, skipping", "path", path, "error", err)
			stats.Failed++
			continue
		}
		stats.Indexed++
	}
}

func (ix *indexer) shouldIndex(path string, repoCfg *core.RepoConfig) bool {
	if !IsIndexablePath(path) {
		return false
	}
	for _, prefix := range repoCfg.Index.ExcludePaths {
		if strings.HasPrefix(path, prefix) {
			return false
		}
	}
	ext := strings.ToLower(filepath.Ext(path))
	for _, excluded := range repoCfg.Index.ExcludeExts {
		if ext == strings.ToLower(excluded) {
			return false
		}
	}
	return true
}
