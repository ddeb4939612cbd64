package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"threadscout/backend/pkg/models"
)

// PostgresProcessedStore is a PostgreSQL implementation of the ProcessedStore
// interface. The (workspace_id, post_id) primary key makes recording safe
// under concurrent runs: two runs racing on the same post cannot both win.
type PostgresProcessedStore struct {
	db *pgxpool.Pool
}

// NewPostgresProcessedStore creates a new PostgresProcessedStore.
func NewPostgresProcessedStore(db *pgxpool.Pool) *PostgresProcessedStore {
	return &PostgresProcessedStore{db: db}
}

// FilterProcessed returns the subset of ids already recorded for the workspace.
func (s *PostgresProcessedStore) FilterProcessed(ctx context.Context, workspaceID string, ids []string) (map[string]struct{}, error) {
	processed := make(map[string]struct{})
	if len(ids) == 0 {
		return processed, nil
	}

	rows, err := s.db.Query(ctx,
		`SELECT post_id FROM processed_posts WHERE workspace_id = $1 AND post_id = ANY($2)`,
		workspaceID, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		processed[id] = struct{}{}
	}
	return processed, rows.Err()
}

// InsertBatch inserts records with ON CONFLICT DO NOTHING and returns the
// number of rows actually written. Existing keys are left untouched.
func (s *PostgresProcessedStore) InsertBatch(ctx context.Context, records []models.ProcessedRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, r := range records {
		batch.Queue(
			`INSERT INTO processed_posts (workspace_id, post_id, run_id, score, recommend, rationale, draft_text, posted)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			 ON CONFLICT (workspace_id, post_id) DO NOTHING`,
			r.WorkspaceID, r.PostID, r.RunID, r.Score, r.Recommend, r.Rationale, r.DraftText, r.Posted)
	}

	results := s.db.SendBatch(ctx, batch)
	defer results.Close()

	inserted := 0
	for range records {
		tag, err := results.Exec()
		if err != nil {
			return inserted, err
		}
		inserted += int(tag.RowsAffected())
	}
	return inserted, nil
}
