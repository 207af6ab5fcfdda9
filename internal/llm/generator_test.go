package llm

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeModel stands in for the language model and records the prompt it
// received.
type fakeModel struct {
	response string
	err      error
	prompt   string
}

func (f *fakeModel) Call(_ context.Context, prompt string) (string, error) {
	f.prompt = prompt
	return f.response, f.err
}

func newTestGenerator(t *testing.T, model *fakeModel) Generator {
	t.Helper()
	pm, err := NewPromptManager()
	require.NoError(t, err)
	return &generator{
		call:      model.Call,
		promptMgr: pm,
		provider:  DefaultProvider,
		timeout:   time.Minute,
		logger:    slog.New(slog.DiscardHandler),
	}
}

func TestGenerateReview_EmbedsPromptSections(t *testing.T) {
	model := &fakeModel{response: "## Review\nLooks good."}
	gen := newTestGenerator(t, model)

	review, err := gen.GenerateReview(context.Background(), &ReviewInput{
		Title:       "Add widget cache",
		Description: "Caches widgets for an hour",
		Diff:        "+func Cache() {}",
		Context:     []string{"File: cache.go\n\nexisting cache helpers"},
	})
	require.NoError(t, err)
	assert.Equal(t, "## Review\nLooks good.", review)

	assert.Contains(t, model.prompt, "Add widget cache")
	assert.Contains(t, model.prompt, "Caches widgets for an hour")
	assert.Contains(t, model.prompt, "+func Cache() {}")
	assert.Contains(t, model.prompt, "existing cache helpers")
	assert.Contains(t, model.prompt, "Walkthrough")
	assert.Contains(t, model.prompt, "Final Verdict")
}

func TestGenerateReview_DefaultsForMissingFields(t *testing.T) {
	model := &fakeModel{response: "ok"}
	gen := newTestGenerator(t, model)

	_, err := gen.GenerateReview(context.Background(), &ReviewInput{
		Title: "t",
		Diff:  "+x",
	})
	require.NoError(t, err)
	assert.Contains(t, model.prompt, "No description provided")
	assert.Contains(t, model.prompt, "No additional context available.")
}

func TestGenerateReview_Errors(t *testing.T) {
	t.Run("empty diff", func(t *testing.T) {
		gen := newTestGenerator(t, &fakeModel{response: "ok"})
		_, err := gen.GenerateReview(context.Background(), &ReviewInput{Title: "t"})
		assert.Error(t, err)
	})

	t.Run("model error", func(t *testing.T) {
		gen := newTestGenerator(t, &fakeModel{err: errors.New("rate limited")})
		_, err := gen.GenerateReview(context.Background(), &ReviewInput{Title: "t", Diff: "+x"})
		assert.ErrorContains(t, err, "rate limited")
	})

	t.Run("empty model output", func(t *testing.T) {
		gen := newTestGenerator(t, &fakeModel{response: "   \n"})
		_, err := gen.GenerateReview(context.Background(), &ReviewInput{Title: "t", Diff: "+x"})
		assert.ErrorContains(t, err, "empty review")
	})
}

func TestPromptManager_RendersDefaultVariant(t *testing.T) {
	pm, err := NewPromptManager()
	require.NoError(t, err)

	out, err := pm.Render(CodeReviewPrompt, ModelProvider("gemini"), map[string]string{
		"Title": "x", "Description": "y", "Context": "z", "Diff": "d",
	})
	require.NoError(t, err)
	assert.True(t, strings.Contains(out, "expert code reviewer"))
}

func TestPromptManager_UnknownKey(t *testing.T) {
	pm, err := NewPromptManager()
	require.NoError(t, err)
	_, err = pm.Render(PromptKey("missing"), DefaultProvider, nil)
	assert.Error(t, err)
}
