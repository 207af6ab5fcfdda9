package storage

import (
	"strings"
	"testing"
)

func TestCollectionName(t *testing.T) {
	tests := []struct {
		name     string
		repo     string
		embedder string
		want     string
	}{
		{
			name:     "simple repo",
			repo:     "acme/widgets",
			embedder: "nomic-embed-text",
			want:     "repo-acme-widgets-nomic-embed-text",
		},
		{
			name:     "model tag stripped",
			repo:     "acme/widgets",
			embedder: "nomic-embed-text:latest",
			want:     "repo-acme-widgets-nomic-embed-text",
		},
		{
			name:     "uppercase and special characters sanitized",
			repo:     "Acme/My.Widgets",
			embedder: "Embed@Model",
			want:     "repo-acme-mywidgets-embedmodel",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CollectionName(tt.repo, tt.embedder); got != tt.want {
				t.Errorf("CollectionName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCollectionName_BoundedLength(t *testing.T) {
	got := CollectionName(strings.Repeat("a", 300)+"/b", "model")
	if len(got) > 255 {
		t.Errorf("collection name exceeds 255 chars: %d", len(got))
	}
}
