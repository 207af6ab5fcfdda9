package main

import (
	"github.com/codehawk/codehawk/internal/core"
	"github.com/codehawk/codehawk/internal/wire"
)

// Indicates that the backing services have been initialized.
type toolkitReadyMsg struct {
	toolkit *wire.Toolkit
	cleanup func()
	err     error
}

type reviewsLoadedMsg struct {
	reviews []core.Review
	err     error
}

// Carries the glamour-rendered markdown body of one review.
type reviewRenderedMsg struct {
	reviewID string
	content  string
	err      error
}

// A generic error message for reporting failures from commands.
type errorMsg struct{ err error }

func (e errorMsg) Error() string {
	return e.err.Error()
}
