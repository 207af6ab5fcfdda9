package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/codehawk/codehawk/internal/gitutil"
	"github.com/codehawk/codehawk/internal/llm"
	"github.com/codehawk/codehawk/internal/wire"
)

var (
	reviewPost bool
	reviewTopK int
)

var reviewCmd = &cobra.Command{
	Use:   "review [pr-url]",
	Short: "Generate a code review for a GitHub pull request",
	Long: `Generate a code review for a GitHub pull request. The command
fetches the PR diff, retrieves codebase context from the vector store,
and prints the generated review. With --post the review is also posted
as a comment on the pull request.

Examples:
  codehawk review https://github.com/acme/widgets/pull/123
  codehawk review --post https://github.com/acme/widgets/pull/123`,
	Args: cobra.ExactArgs(1),
	RunE: runReview,
}

func init() { //nolint:gochecknoinits // Cobra command registration
	reviewCmd.Flags().BoolVar(&reviewPost, "post", false, "Post the review as a PR comment")
	reviewCmd.Flags().IntVar(&reviewTopK, "context", 5, "How many indexed passages to retrieve")
	rootCmd.AddCommand(reviewCmd)
}

func runReview(_ *cobra.Command, args []string) error {
	ctx := context.Background()

	owner, repo, prNumber, err := gitutil.ParsePullRequestURL(args[0])
	if err != nil {
		return fmt.Errorf("invalid PR URL: %w (expected https://github.com/owner/repo/pull/123)", err)
	}

	token := resolveToken()
	if token == "" {
		return fmt.Errorf("no GitHub token: pass --github-token or set GITHUB_TOKEN")
	}

	toolkit, cleanup, err := wire.InitializeToolkit(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}
	defer cleanup()

	repoFullName := owner + "/" + repo
	titleColor.Println("CodeHawk - PR Review")
	dimColor.Printf("   Target: %s#%d\n\n", repoFullName, prNumber)

	fmt.Println("Fetching pull request...")
	client := toolkit.Clients.FromToken(ctx, token)
	pr, err := client.GetPullRequestData(ctx, owner, repo, prNumber)
	if err != nil {
		return fmt.Errorf("failed to fetch PR: %w", err)
	}

	fmt.Println("Retrieving codebase context...")
	query := strings.TrimSpace(pr.Title + "\n\n" + pr.Description)
	passages, err := toolkit.Retriever.RetrieveContext(ctx, query, repoFullName, reviewTopK)
	if err != nil {
		return fmt.Errorf("failed to retrieve context: %w", err)
	}
	if len(passages) == 0 {
		warnColor.Println("No indexed context found; run 'codehawk index' first for better reviews.")
	}

	fmt.Println("Generating review...")
	start := time.Now()
	review, err := toolkit.Generator.GenerateReview(ctx, &llm.ReviewInput{
		Title:       pr.Title,
		Description: pr.Description,
		Diff:        pr.Diff,
		Context:     passages,
	})
	if err != nil {
		return fmt.Errorf("failed to generate review: %w", err)
	}
	dimColor.Printf("Generated in %s\n\n", time.Since(start).Round(time.Millisecond))

	fmt.Println(review)

	if reviewPost {
		fmt.Println()
		fmt.Println("Posting review comment...")
		if err := client.CreateComment(ctx, owner, repo, prNumber, review); err != nil {
			return fmt.Errorf("failed to post comment: %w", err)
		}
		successColor.Println("Review posted.")
	}
	return nil
}
