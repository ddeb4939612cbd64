package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"threadscout/backend/pkg/models"
)

// PostgresDefinitionStore is a PostgreSQL implementation of the
// DefinitionStore interface. Stage specs are stored as JSONB.
type PostgresDefinitionStore struct {
	db *pgxpool.Pool
}

// NewPostgresDefinitionStore creates a new PostgresDefinitionStore.
func NewPostgresDefinitionStore(db *pgxpool.Pool) *PostgresDefinitionStore {
	return &PostgresDefinitionStore{db: db}
}

// GetDefinition retrieves a workflow definition by its ID.
func (s *PostgresDefinitionStore) GetDefinition(ctx context.Context, id string) (*models.WorkflowDefinition, error) {
	var def models.WorkflowDefinition
	var stages []byte
	err := s.db.QueryRow(ctx,
		`SELECT id, workspace_id, name, description, stages, created_at, updated_at
		 FROM workflow_definitions WHERE id = $1`, id).
		Scan(&def.ID, &def.WorkspaceID, &def.Name, &def.Description, &stages, &def.CreatedAt, &def.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(stages, &def.Stages); err != nil {
		return nil, fmt.Errorf("failed to decode stages: %w", err)
	}
	return &def, nil
}

// ListDefinitions returns all definitions for a workspace.
func (s *PostgresDefinitionStore) ListDefinitions(ctx context.Context, workspaceID string) ([]*models.WorkflowDefinition, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, workspace_id, name, description, stages, created_at, updated_at
		 FROM workflow_definitions WHERE workspace_id = $1 ORDER BY created_at`, workspaceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var defs []*models.WorkflowDefinition
	for rows.Next() {
		var def models.WorkflowDefinition
		var stages []byte
		if err := rows.Scan(&def.ID, &def.WorkspaceID, &def.Name, &def.Description, &stages, &def.CreatedAt, &def.UpdatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(stages, &def.Stages); err != nil {
			return nil, fmt.Errorf("failed to decode stages for %s: %w", def.ID, err)
		}
		defs = append(defs, &def)
	}
	return defs, rows.Err()
}

// PutDefinition creates or replaces a workflow definition.
func (s *PostgresDefinitionStore) PutDefinition(ctx context.Context, def *models.WorkflowDefinition) error {
	stages, err := json.Marshal(def.Stages)
	if err != nil {
		return fmt.Errorf("failed to encode stages: %w", err)
	}
	_, err = s.db.Exec(ctx,
		`INSERT INTO workflow_definitions (id, workspace_id, name, description, stages, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, now(), now())
		 ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			stages = EXCLUDED.stages,
			updated_at = now()`,
		def.ID, def.WorkspaceID, def.Name, def.Description, stages)
	return err
}
