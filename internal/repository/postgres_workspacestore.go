package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"threadscout/backend/pkg/models"
)

// PostgresWorkspaceStore is a PostgreSQL implementation of the WorkspaceStore
// interface.
type PostgresWorkspaceStore struct {
	db *pgxpool.Pool
}

// NewPostgresWorkspaceStore creates a new PostgresWorkspaceStore.
func NewPostgresWorkspaceStore(db *pgxpool.Pool) *PostgresWorkspaceStore {
	return &PostgresWorkspaceStore{db: db}
}

// GetWorkspace retrieves a workspace by its ID.
func (s *PostgresWorkspaceStore) GetWorkspace(ctx context.Context, id string) (*models.Workspace, error) {
	var ws models.Workspace
	var keywords []byte
	err := s.db.QueryRow(ctx,
		`SELECT id, name, description, target_audience, brand_voice, keywords, credential, created_at, updated_at
		 FROM workspaces WHERE id = $1`, id).
		Scan(&ws.ID, &ws.Name, &ws.Description, &ws.TargetAudience, &ws.BrandVoice,
			&keywords, &ws.Credential, &ws.CreatedAt, &ws.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(keywords, &ws.Keywords); err != nil {
		return nil, fmt.Errorf("failed to decode keywords: %w", err)
	}
	return &ws, nil
}

// CreateWorkspace inserts a new workspace.
func (s *PostgresWorkspaceStore) CreateWorkspace(ctx context.Context, ws *models.Workspace) error {
	keywords, err := json.Marshal(ws.Keywords)
	if err != nil {
		return fmt.Errorf("failed to encode keywords: %w", err)
	}
	_, err = s.db.Exec(ctx,
		`INSERT INTO workspaces (id, name, description, target_audience, brand_voice, keywords, credential, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())`,
		ws.ID, ws.Name, ws.Description, ws.TargetAudience, ws.BrandVoice, keywords, ws.Credential)
	return err
}
