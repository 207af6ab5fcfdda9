package core

import (
	"context"
)

// Dispatcher accepts work items and queues them for asynchronous processing.
// It decouples the event source (webhook handler, CLI) from pipeline
// execution and provides backpressure when the queue is full.
type Dispatcher interface {
	// Dispatch queues a work item. It returns an error only when the item
	// cannot be accepted (for example, the queue is full); pipeline failures
	// after acceptance never surface here.
	Dispatch(ctx context.Context, item *WorkItem) error
	// Stop drains the queue and waits for in-flight jobs to finish.
	Stop()
}

// Job is a unit of background work triggered by a WorkItem. Each registered
// event name maps to one Job.
type Job interface {
	Run(ctx context.Context, item *WorkItem) error
}
