package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"threadscout/backend/pkg/models"
)

// PostgresRunStore is a PostgreSQL implementation of the RunStore interface.
type PostgresRunStore struct {
	db *pgxpool.Pool
}

// NewPostgresRunStore creates a new PostgresRunStore.
func NewPostgresRunStore(db *pgxpool.Pool) *PostgresRunStore {
	return &PostgresRunStore{db: db}
}

// CreateRun inserts a new run in the running state.
func (s *PostgresRunStore) CreateRun(ctx context.Context, run *models.Run) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO runs (id, definition_id, workspace_id, status, dry_run, started_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		run.ID, run.DefinitionID, run.WorkspaceID, run.Status, run.DryRun, run.StartedAt)
	return err
}

// GetRun retrieves a run by its ID.
func (s *PostgresRunStore) GetRun(ctx context.Context, id string) (*models.Run, error) {
	var run models.Run
	var summary []byte
	err := s.db.QueryRow(ctx,
		`SELECT id, definition_id, workspace_id, status, dry_run, started_at, completed_at, result_summary, error_message
		 FROM runs WHERE id = $1`, id).
		Scan(&run.ID, &run.DefinitionID, &run.WorkspaceID, &run.Status, &run.DryRun,
			&run.StartedAt, &run.CompletedAt, &summary, &run.ErrorMessage)
	if err != nil {
		return nil, err
	}
	if summary != nil {
		run.Summary = &models.ResultSummary{}
		if err := json.Unmarshal(summary, run.Summary); err != nil {
			return nil, fmt.Errorf("failed to decode result summary: %w", err)
		}
	}
	return &run, nil
}

// CompleteRun transitions a running run to completed. The conditional update
// guarantees a run reaches a terminal state exactly once.
func (s *PostgresRunStore) CompleteRun(ctx context.Context, id string, summary *models.ResultSummary) error {
	payload, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to encode result summary: %w", err)
	}
	tag, err := s.db.Exec(ctx,
		`UPDATE runs SET status = $2, completed_at = now(), result_summary = $3
		 WHERE id = $1 AND status = $4`,
		id, models.RunCompleted, payload, models.RunRunning)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrRunFinalized
	}
	return nil
}

// FailRun transitions a running run to failed with an error message.
func (s *PostgresRunStore) FailRun(ctx context.Context, id string, message string) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE runs SET status = $2, completed_at = now(), error_message = $3
		 WHERE id = $1 AND status = $4`,
		id, models.RunFailed, message, models.RunRunning)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrRunFinalized
	}
	return nil
}
