package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/codehawk/codehawk/internal/core"
	"github.com/codehawk/codehawk/internal/storage"
	"github.com/codehawk/codehawk/internal/wire"
)

// How many reviews the browser loads at once.
const reviewPageSize = 100

func initializeToolkitCmd() tea.Cmd {
	return func() tea.Msg {
		toolkit, cleanup, err := wire.InitializeToolkit(context.Background())
		if err != nil {
			return toolkitReadyMsg{err: err}
		}
		return toolkitReadyMsg{toolkit: toolkit, cleanup: cleanup}
	}
}

func loadReviewsCmd(store storage.Store) tea.Cmd {
	return func() tea.Msg {
		reviews, err := store.ListReviews(context.Background(), reviewPageSize)
		return reviewsLoadedMsg{reviews: reviews, err: err}
	}
}

func renderReviewCmd(review core.Review, width int) tea.Cmd {
	return func() tea.Msg {
		renderer, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			return reviewRenderedMsg{reviewID: review.ID, err: err}
		}
		body := review.Body
		if body == "" {
			body = "_This review has no body._"
		}
		header := fmt.Sprintf("# %s\n\n%s\n\n---\n\n", review.PullRequestTitle, review.PullRequestURL)
		content, err := renderer.Render(header + body)
		if err != nil {
			return reviewRenderedMsg{reviewID: review.ID, err: err}
		}
		return reviewRenderedMsg{reviewID: review.ID, content: content}
	}
}
