package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/codehawk/codehawk/internal/workflow"
)

type postgresRunStore struct {
	db *sqlx.DB
}

// NewRunStore creates the Postgres-backed workflow.RunStore. Persisted step
// results are what make runs resumable after a crash.
func NewRunStore(db *sqlx.DB) workflow.RunStore {
	return &postgresRunStore{db: db}
}

func (s *postgresRunStore) EnsureRun(ctx context.Context, run *workflow.WorkflowRun) error {
	const query = `
		INSERT INTO workflow_runs (id, pipeline, item_key, status, started_at)
		VALUES (:id, :pipeline, :item_key, :status, :started_at)
		ON CONFLICT (id) DO NOTHING`
	if _, err := s.db.NamedExecContext(ctx, query, run); err != nil {
		return fmt.Errorf("failed to ensure workflow run %s: %w", run.ID, err)
	}
	return nil
}

func (s *postgresRunStore) FinishRun(ctx context.Context, runID string, status workflow.RunStatus) error {
	const query = `UPDATE workflow_runs SET status = $2, finished_at = $3 WHERE id = $1`
	if _, err := s.db.ExecContext(ctx, query, runID, status, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to finish workflow run %s: %w", runID, err)
	}
	return nil
}

func (s *postgresRunStore) GetSteps(ctx context.Context, runID string) (map[string]workflow.StepRecord, error) {
	const query = `
		SELECT run_id, step_name, status, result, error, attempts, updated_at
		FROM step_records WHERE run_id = $1`
	var records []workflow.StepRecord
	if err := s.db.SelectContext(ctx, &records, query, runID); err != nil {
		return nil, fmt.Errorf("failed to load step records for run %s: %w", runID, err)
	}
	out := make(map[string]workflow.StepRecord, len(records))
	for _, rec := range records {
		out[rec.Name] = rec
	}
	return out, nil
}

func (s *postgresRunStore) SaveStep(ctx context.Context, rec *workflow.StepRecord) error {
	const query = `
		INSERT INTO step_records (run_id, step_name, status, result, error, attempts, updated_at)
		VALUES (:run_id, :step_name, :status, :result, :error, :attempts, :updated_at)
		ON CONFLICT (run_id, step_name) DO UPDATE SET
			status = EXCLUDED.status,
			result = EXCLUDED.result,
			error = EXCLUDED.error,
			attempts = EXCLUDED.attempts,
			updated_at = EXCLUDED.updated_at`
	if _, err := s.db.NamedExecContext(ctx, query, rec); err != nil {
		return fmt.Errorf("failed to save step %q of run %s: %w", rec.Name, rec.RunID, err)
	}
	return nil
}
