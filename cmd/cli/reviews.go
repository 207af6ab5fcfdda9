package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/codehawk/codehawk/internal/core"
	"github.com/codehawk/codehawk/internal/wire"
)

var (
	reviewsJSON  bool
	reviewsLimit int
)

var reviewsCmd = &cobra.Command{
	Use:   "reviews",
	Short: "List stored reviews",
	RunE: func(_ *cobra.Command, _ []string) error {
		ctx := context.Background()

		toolkit, cleanup, err := wire.InitializeToolkit(ctx)
		if err != nil {
			return fmt.Errorf("failed to initialize: %w", err)
		}
		defer cleanup()

		reviews, err := toolkit.Store.ListReviews(ctx, reviewsLimit)
		if err != nil {
			return fmt.Errorf("failed to list reviews: %w", err)
		}

		if reviewsJSON {
			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			return encoder.Encode(reviews)
		}

		if len(reviews) == 0 {
			fmt.Println("No reviews stored yet.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "PR\tTITLE\tSTATUS\tCREATED")
		for _, review := range reviews {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
				review.PullRequestURL,
				truncate(review.PullRequestTitle, 40),
				statusLabel(review.Status),
				review.CreatedAt.Format(time.RFC822),
			)
		}
		return w.Flush()
	},
}

func init() { //nolint:gochecknoinits // Cobra command registration
	reviewsCmd.Flags().BoolVar(&reviewsJSON, "json", false, "Output reviews as JSON")
	reviewsCmd.Flags().IntVar(&reviewsLimit, "limit", 50, "Maximum number of reviews to list")
	rootCmd.AddCommand(reviewsCmd)
}

func statusLabel(status core.ReviewStatus) string {
	switch status {
	case core.ReviewStatusCompleted:
		return successColor.Sprint(string(status))
	case core.ReviewStatusFailed:
		return errorColor.Sprint(string(status))
	default:
		return warnColor.Sprint(string(status))
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-1] + "…"
}
