package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sevigo/goframe/llms"
)

// ReviewInput carries everything the review prompt embeds.
type ReviewInput struct {
	Title       string
	Description string
	Diff        string
	Context     []string
}

// Generator produces a review for a pull request. The model output is
// opaque markdown: the requested structure is part of the prompt, and the
// pipeline tolerates prose that deviates from it.
type Generator interface {
	GenerateReview(ctx context.Context, input *ReviewInput) (string, error)
}

type generator struct {
	call      func(ctx context.Context, prompt string) (string, error)
	promptMgr *PromptManager
	provider  ModelProvider
	timeout   time.Duration
	logger    *slog.Logger
}

// NewGenerator creates a Generator backed by the given model.
func NewGenerator(model llms.Model, promptMgr *PromptManager, provider string, timeout time.Duration, logger *slog.Logger) Generator {
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &generator{
		call: func(ctx context.Context, prompt string) (string, error) {
			return model.Call(ctx, prompt)
		},
		promptMgr: promptMgr,
		provider:  ModelProvider(provider),
		timeout:   timeout,
		logger:    logger,
	}
}

func (g *generator) GenerateReview(ctx context.Context, input *ReviewInput) (string, error) {
	if input == nil || input.Diff == "" {
		return "", fmt.Errorf("review input has no diff")
	}

	prompt, err := g.buildPrompt(input)
	if err != nil {
		return "", err
	}

	genCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	review, err := g.call(genCtx, prompt)
	if err != nil {
		return "", fmt.Errorf("model call failed: %w", err)
	}
	g.logger.Info("review generated",
		"prompt_chars", len(prompt),
		"review_chars", len(review),
		"duration", time.Since(start).Round(time.Millisecond),
	)

	if strings.TrimSpace(review) == "" {
		return "", fmt.Errorf("model returned an empty review")
	}
	return review, nil
}

func (g *generator) buildPrompt(input *ReviewInput) (string, error) {
	description := input.Description
	if description == "" {
		description = "No description provided"
	}

	contextBlock := "No additional context available."
	if len(input.Context) > 0 {
		contextBlock = strings.Join(input.Context, "\n\n")
	}

	return g.promptMgr.Render(CodeReviewPrompt, g.provider, map[string]string{
		"Title":       input.Title,
		"Description": description,
		"Context":     contextBlock,
		"Diff":        input.Diff,
	})
}
