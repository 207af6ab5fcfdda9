package rag

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/sevigo/goframe/schema"
)

// fakeVectorStore is an in-memory stand-in using cosine similarity over
// small word-count vectors, so round-trip relevance is actually exercised.
type fakeVectorStore struct {
	mu          sync.Mutex
	collections map[string][]storedDoc
	failPaths   map[string]bool
	addCalls    []int
}

type storedDoc struct {
	doc schema.Document
	vec []float64
}

var fakeVocab = []string{"tree", "traversal", "binary", "http", "server", "router", "cache", "eviction"}

func newFakeVectorStore() *fakeVectorStore {
	return &fakeVectorStore{
		collections: make(map[string][]storedDoc),
		failPaths:   make(map[string]bool),
	}
}

func embedText(text string) []float64 {
	lower := strings.ToLower(text)
	vec := make([]float64, len(fakeVocab))
	for i, word := range fakeVocab {
		vec[i] = float64(strings.Count(lower, word))
	}
	return vec
}

func cosine(a, b []float64) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func (f *fakeVectorStore) AddDocuments(_ context.Context, collectionName string, docs []schema.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.addCalls = append(f.addCalls, len(docs))

	for _, doc := range docs {
		if path, _ := doc.Metadata["path"].(string); f.failPaths[path] {
			return fmt.Errorf("embedding failed for %s", path)
		}
	}
	for _, doc := range docs {
		f.collections[collectionName] = append(f.collections[collectionName], storedDoc{
			doc: doc,
			vec: embedText(doc.PageContent),
		})
	}
	return nil
}

func (f *fakeVectorStore) SimilaritySearch(_ context.Context, collectionName, query string, numDocs int) ([]schema.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	stored, ok := f.collections[collectionName]
	if !ok {
		return nil, fmt.Errorf("collection %s not found", collectionName)
	}

	queryVec := embedText(query)
	ranked := make([]storedDoc, len(stored))
	copy(ranked, stored)
	sort.SliceStable(ranked, func(i, j int) bool {
		return cosine(queryVec, ranked[i].vec) > cosine(queryVec, ranked[j].vec)
	})

	if numDocs > len(ranked) {
		numDocs = len(ranked)
	}
	out := make([]schema.Document, 0, numDocs)
	for _, sd := range ranked[:numDocs] {
		out = append(out, sd.doc)
	}
	return out, nil
}

func (f *fakeVectorStore) DeleteCollection(_ context.Context, collectionName string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.collections, collectionName)
	return nil
}

func (f *fakeVectorStore) docs(collectionName string) []schema.Document {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]schema.Document, 0, len(f.collections[collectionName]))
	for _, sd := range f.collections[collectionName] {
		out = append(out, sd.doc)
	}
	return out
}
