package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/xid"
	"golang.org/x/sync/semaphore"
)

// Config bounds the engine's retry and concurrency behavior.
type Config struct {
	// MaxConcurrentRuns caps simultaneous runs per pipeline. Runs beyond the
	// ceiling block until a slot frees, backpressuring the queue.
	MaxConcurrentRuns int
	// MaxStepAttempts bounds how often a step runs before its transient
	// failure is converted to a run failure.
	MaxStepAttempts int
	// InitialBackoff is the first retry delay; subsequent delays grow
	// exponentially.
	InitialBackoff time.Duration
}

// Engine executes pipelines against a RunStore.
type Engine struct {
	store  RunStore
	cfg    Config
	logger *slog.Logger

	mu   sync.Mutex
	sems map[string]*semaphore.Weighted
}

// NewEngine creates an engine. Zero or negative config values fall back to
// safe defaults (5 concurrent runs, 3 attempts, 500ms initial backoff).
func NewEngine(store RunStore, cfg Config, logger *slog.Logger) *Engine {
	if cfg.MaxConcurrentRuns <= 0 {
		cfg.MaxConcurrentRuns = 5
	}
	if cfg.MaxStepAttempts <= 0 {
		cfg.MaxStepAttempts = 3
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 500 * time.Millisecond
	}
	return &Engine{
		store:  store,
		cfg:    cfg,
		logger: logger,
		sems:   make(map[string]*semaphore.Weighted),
	}
}

// Execute starts a fresh run of the pipeline with a new run ID.
func (e *Engine) Execute(ctx context.Context, p Pipeline, itemKey string) (*RunResult, error) {
	return e.Resume(ctx, p, xid.New().String(), itemKey)
}

// Resume executes the pipeline under an existing run identity. Steps that
// already succeeded in a previous execution of the same run are replayed
// from their persisted results; execution continues from the first
// unexecuted step. Resume with a new run ID is equivalent to Execute.
func (e *Engine) Resume(ctx context.Context, p Pipeline, runID, itemKey string) (*RunResult, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	sem := e.semFor(p.Name)
	if err := sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("waiting for a run slot: %w", err)
	}
	defer sem.Release(1)

	if err := e.store.EnsureRun(ctx, &WorkflowRun{
		ID:        runID,
		Pipeline:  p.Name,
		ItemKey:   itemKey,
		Status:    RunStatusRunning,
		StartedAt: time.Now().UTC(),
	}); err != nil {
		return nil, fmt.Errorf("failed to create workflow run: %w", err)
	}

	prior, err := e.store.GetSteps(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to load step records: %w", err)
	}

	run := &Run{ID: runID, ItemKey: itemKey, results: make(map[string]json.RawMessage)}
	result := &RunResult{RunID: runID, Status: RunStatusCompleted}

	for _, step := range p.Steps {
		if rec, ok := prior[step.Name]; ok && rec.Status == StepStatusSucceeded {
			run.results[step.Name] = rec.Result
			e.logger.Debug("replaying completed step", "run", runID, "step", step.Name)
			continue
		}

		raw, attempts, stepErr := e.executeStep(ctx, step, run)

		rec := &StepRecord{
			RunID:     runID,
			Name:      step.Name,
			Attempts:  attempts,
			UpdatedAt: time.Now().UTC(),
		}
		if stepErr != nil {
			rec.Status = StepStatusFailed
			rec.Error = stepErr.Error()
			if saveErr := e.store.SaveStep(ctx, rec); saveErr != nil {
				e.logger.Error("failed to persist failed step record", "run", runID, "step", step.Name, "error", saveErr)
			}

			if step.ContinueOnError {
				e.logger.Warn("step failed, continuing run", "run", runID, "step", step.Name, "error", stepErr)
				continue
			}

			e.logger.Error("step failed, failing run", "run", runID, "step", step.Name, "attempts", attempts, "error", stepErr)
			e.finish(ctx, runID, RunStatusFailed)
			result.Status = RunStatusFailed
			result.FailedStep = step.Name
			result.StepErr = stepErr
			return result, stepErr
		}

		rec.Status = StepStatusSucceeded
		rec.Result = raw
		// Durability boundary: the result must be on disk before the next
		// step starts, so a crash between steps loses no completed work.
		if err := e.store.SaveStep(ctx, rec); err != nil {
			e.finish(ctx, runID, RunStatusFailed)
			return nil, fmt.Errorf("failed to persist result of step %q: %w", step.Name, err)
		}
		run.results[step.Name] = raw
	}

	e.finish(ctx, runID, RunStatusCompleted)
	return result, nil
}

// executeStep runs one step with exponential backoff on transient errors.
// Fatal errors abort immediately; exhausting the attempt budget converts a
// transient failure into a permanent one.
func (e *Engine) executeStep(ctx context.Context, step Step, run *Run) (json.RawMessage, int, error) {
	attempts := 0

	op := func() (json.RawMessage, error) {
		attempts++
		out, err := step.Run(ctx, run)
		if err != nil {
			if IsFatal(err) {
				return nil, backoff.Permanent(err)
			}
			return nil, err
		}
		raw, err := json.Marshal(out)
		if err != nil {
			return nil, backoff.Permanent(fmt.Errorf("step %q returned an unserializable result: %w", step.Name, err))
		}
		return raw, nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = e.cfg.InitialBackoff

	notify := func(err error, next time.Duration) {
		e.logger.Warn("step failed, retrying",
			"run", run.ID,
			"step", step.Name,
			"attempt", attempts,
			"retry_in", next,
			"error", err,
		)
	}

	raw, err := backoff.RetryNotifyWithData(
		op,
		backoff.WithContext(backoff.WithMaxRetries(bo, uint64(e.cfg.MaxStepAttempts-1)), ctx),
		notify,
	)
	return raw, attempts, err
}

func (e *Engine) finish(ctx context.Context, runID string, status RunStatus) {
	if err := e.store.FinishRun(ctx, runID, status); err != nil {
		e.logger.Error("failed to record run status", "run", runID, "status", status, "error", err)
	}
}

func (e *Engine) semFor(pipeline string) *semaphore.Weighted {
	e.mu.Lock()
	defer e.mu.Unlock()
	sem, ok := e.sems[pipeline]
	if !ok {
		sem = semaphore.NewWeighted(int64(e.cfg.MaxConcurrentRuns))
		e.sems[pipeline] = sem
	}
	return sem
}
