// Package jobs defines the background pipelines triggered by work items:
// pull-request reviews and repository indexing.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/codehawk/codehawk/internal/core"
)

// dispatcher implements core.Dispatcher with a pool of worker goroutines
// draining a bounded queue. Each work item is routed to the job registered
// for its event name.
type dispatcher struct {
	jobs       map[string]core.Job
	queue      chan *core.WorkItem
	maxWorkers int
	wg         sync.WaitGroup
	logger     *slog.Logger
}

// NewDispatcher builds a dispatcher over the given event-name-to-job
// routing table and starts its workers. If maxWorkers is not positive it
// defaults to 1; if queueSize is not positive it defaults to 100.
func NewDispatcher(jobs map[string]core.Job, maxWorkers, queueSize int, logger *slog.Logger) core.Dispatcher {
	if maxWorkers <= 0 {
		maxWorkers = 1
	}
	if queueSize <= 0 {
		queueSize = 100
	}
	d := &dispatcher{
		jobs:       jobs,
		maxWorkers: maxWorkers,
		queue:      make(chan *core.WorkItem, queueSize),
		logger:     logger,
	}
	d.startWorkers()
	return d
}

func (d *dispatcher) startWorkers() {
	for i := range d.maxWorkers {
		d.wg.Add(1)
		go d.startWorker(i)
	}
}

// startWorker processes items from the queue until it is closed.
func (d *dispatcher) startWorker(workerID int) {
	defer d.wg.Done()
	d.logger.Info("starting worker", "id", workerID)

	for item := range d.queue {
		d.processItem(workerID, item)
	}

	d.logger.Info("shutting down worker", "id", workerID)
}

func (d *dispatcher) processItem(workerID int, item *core.WorkItem) {
	d.logger.Info("worker processing item",
		"worker_id", workerID,
		"event", item.Name,
		"item", item.Key(),
	)

	job, ok := d.jobs[item.Name]
	if !ok {
		d.logger.Error("no job registered for event", "event", item.Name)
		return
	}

	if err := job.Run(context.Background(), item); err != nil {
		d.logger.Error("job failed",
			"event", item.Name,
			"item", item.Key(),
			"error", err,
		)
	}
}

// Dispatch queues a work item for processing. It fails fast when the queue
// is full instead of blocking the caller.
func (d *dispatcher) Dispatch(_ context.Context, item *core.WorkItem) error {
	if _, ok := d.jobs[item.Name]; !ok {
		return fmt.Errorf("no job registered for event %q", item.Name)
	}

	d.logger.Info("queuing work item", "event", item.Name, "item", item.Key())

	select {
	case d.queue <- item:
		return nil
	default:
		return fmt.Errorf("job queue is full, cannot accept work item %q", item.Key())
	}
}

// Stop closes the queue and waits for in-flight jobs to finish.
func (d *dispatcher) Stop() {
	d.logger.Info("stopping dispatcher and waiting for jobs to finish")
	close(d.queue)
	d.wg.Wait()
	d.logger.Info("all jobs have finished")
}
