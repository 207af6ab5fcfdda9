// Package workflow implements a durable step executor: named pipelines run
// as an ordered sequence of idempotent, independently retryable steps whose
// results are persisted before the next step begins. Re-executing a run
// after a crash replays completed steps from their stored results instead of
// repeating their side effects.
package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// RunStatus is the lifecycle state of a workflow run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// StepStatus is the lifecycle state of a single step within a run.
type StepStatus string

const (
	StepStatusPending   StepStatus = "pending"
	StepStatusSucceeded StepStatus = "succeeded"
	StepStatusFailed    StepStatus = "failed"
)

// WorkflowRun is one durable execution of a pipeline for a work item.
type WorkflowRun struct {
	ID         string     `db:"id"`
	Pipeline   string     `db:"pipeline"`
	ItemKey    string     `db:"item_key"`
	Status     RunStatus  `db:"status"`
	StartedAt  time.Time  `db:"started_at"`
	FinishedAt *time.Time `db:"finished_at"`
}

// StepRecord is the persisted outcome of one step. Once a record is
// succeeded its result is immutable: any re-execution of the run replays it
// verbatim. This is the executor's core correctness property.
type StepRecord struct {
	RunID     string          `db:"run_id"`
	Name      string          `db:"step_name"`
	Status    StepStatus      `db:"status"`
	Result    json.RawMessage `db:"result"`
	Error     string          `db:"error"`
	Attempts  int             `db:"attempts"`
	UpdatedAt time.Time       `db:"updated_at"`
}

// RunStore persists workflow runs and step records.
type RunStore interface {
	// EnsureRun inserts the run if it does not exist yet. Resuming an
	// existing run is a no-op.
	EnsureRun(ctx context.Context, run *WorkflowRun) error
	// FinishRun records the terminal status of a run.
	FinishRun(ctx context.Context, runID string, status RunStatus) error
	// GetSteps returns all step records of a run, keyed by step name.
	GetSteps(ctx context.Context, runID string) (map[string]StepRecord, error)
	// SaveStep upserts one step record.
	SaveStep(ctx context.Context, rec *StepRecord) error
}

// Run is the execution context handed to each step. It exposes the decoded
// results of prior steps; all side-effecting work happens inside step
// bodies, so step boundaries stay deterministic and safe to replay.
type Run struct {
	ID      string
	ItemKey string

	results map[string]json.RawMessage
}

// Result decodes the persisted result of a prior step into out. It fails if
// the step has not produced a result in this run.
func (r *Run) Result(step string, out any) error {
	raw, ok := r.results[step]
	if !ok {
		return fmt.Errorf("no result recorded for step %q", step)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode result of step %q: %w", step, err)
	}
	return nil
}

// StepFunc is a step body: a transformation from prior results to a
// serializable result. Network calls, randomness, and clock reads are
// confined here.
type StepFunc func(ctx context.Context, run *Run) (any, error)

// Step is one named unit of a pipeline.
type Step struct {
	Name string
	Run  StepFunc
	// ContinueOnError records the step's failure without failing the run.
	// Used for side effects that must not block later steps, such as
	// posting the review comment before the review is saved.
	ContinueOnError bool
}

// Pipeline is a named, ordered list of steps. Step names must be unique
// within a pipeline.
type Pipeline struct {
	Name  string
	Steps []Step
}

// Validate checks the structural invariants of the pipeline.
func (p *Pipeline) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("pipeline name cannot be empty")
	}
	if len(p.Steps) == 0 {
		return fmt.Errorf("pipeline %q has no steps", p.Name)
	}
	seen := make(map[string]struct{}, len(p.Steps))
	for _, s := range p.Steps {
		if s.Name == "" {
			return fmt.Errorf("pipeline %q contains a step with no name", p.Name)
		}
		if s.Run == nil {
			return fmt.Errorf("step %q has no body", s.Name)
		}
		if _, dup := seen[s.Name]; dup {
			return fmt.Errorf("duplicate step name %q in pipeline %q", s.Name, p.Name)
		}
		seen[s.Name] = struct{}{}
	}
	return nil
}

// RunResult summarizes a finished run.
type RunResult struct {
	RunID      string
	Status     RunStatus
	FailedStep string
	StepErr    error
}
