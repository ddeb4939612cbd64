package main

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"threadscout/backend/internal/config"
	"threadscout/backend/internal/logging"
	"threadscout/backend/internal/repository"
	"threadscout/backend/pkg/models"
)

func main() {
	ctx := context.Background()
	logger := logging.NewLogger()

	// Load config
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Connect to DB
	connStr := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.DB.Host, cfg.DB.Port, cfg.DB.User, cfg.DB.Password, cfg.DB.Name, cfg.DB.SSLMode,
	)
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	defer pool.Close()

	// 1. Apply schema
	if _, err := pool.Exec(ctx, repository.Schema); err != nil {
		log.Fatalf("Failed to apply schema: %v", err)
	}
	logger.Info("Schema applied")

	workspaceStore := repository.NewPostgresWorkspaceStore(pool)
	definitionStore := repository.NewPostgresDefinitionStore(pool)

	// 2. Create a development workspace
	ws := &models.Workspace{
		ID:             uuid.New().String(),
		Name:           "Local Dev Workspace",
		Description:    "A developer tools company helping teams ship faster.",
		TargetAudience: "software engineers and engineering managers",
		BrandVoice:     "practical, direct, no marketing fluff",
		Keywords:       []string{"ci", "deployment", "developer tools"},
	}
	if err := workspaceStore.CreateWorkspace(ctx, ws); err != nil {
		log.Fatalf("Failed to create workspace: %v", err)
	}
	logger.Info("Seeded workspace %s", ws.ID)

	// 3. Create the standard four-stage workflow
	def := &models.WorkflowDefinition{
		ID:          uuid.New().String(),
		WorkspaceID: ws.ID,
		Name:        "Engage r/devops",
		Description: "Finds deployment discussions and drafts helpful replies.",
		Stages: []models.StageSpec{
			{Kind: models.StageSearch, Search: &models.SearchConfig{
				Subreddit: "devops",
				Keywords:  []string{"deployment", "ci", "pipeline"},
				Limit:     25,
			}},
			{Kind: models.StageEvaluate, Evaluate: &models.EvaluateConfig{Threshold: 7.0}},
			{Kind: models.StageReply, Reply: &models.ReplyConfig{MaxLength: 600, Tone: "conversational"}},
			{Kind: models.StageRecord, Record: &models.RecordConfig{}},
		},
	}
	if err := definitionStore.PutDefinition(ctx, def); err != nil {
		log.Fatalf("Failed to create workflow: %v", err)
	}
	logger.Info("Seeded workflow %s (%s)", def.Name, def.ID)

	logger.Info("Seeding complete!")
}
