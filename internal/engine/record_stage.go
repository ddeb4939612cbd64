package engine

import (
	"context"
	"fmt"

	"threadscout/backend/internal/logging"
	"threadscout/backend/internal/repository"
	"threadscout/backend/pkg/models"
)

// RecordStage writes one ProcessedRecord per candidate as an idempotent
// batch. Existing (workspace, post) keys are left untouched, so even two
// runs racing on overlapping candidates record each post at most once.
type RecordStage struct {
	store         repository.ProcessedStore
	recordDryRuns bool
	logger        *logging.Logger
}

// NewRecordStage creates a new RecordStage. recordDryRuns controls whether
// trial runs persist records; this is an explicit switch, never inferred.
func NewRecordStage(store repository.ProcessedStore, recordDryRuns bool, logger *logging.Logger) *RecordStage {
	return &RecordStage{store: store, recordDryRuns: recordDryRuns, logger: logger}
}

func (s *RecordStage) Kind() models.StageKind { return models.StageRecord }

func (s *RecordStage) Run(ctx context.Context, ec *Context) error {
	if ec.DryRun && !s.recordDryRuns {
		s.logger.Info("record stage: run=%s dry run, skipping persistence", ec.RunID)
		return nil
	}

	records := make([]models.ProcessedRecord, 0, len(ec.Candidates))
	for _, cand := range ec.Candidates {
		record := models.ProcessedRecord{
			WorkspaceID: ec.Workspace.ID,
			PostID:      cand.ID,
			RunID:       ec.RunID,
			Posted:      false,
		}
		if ev := ec.EvaluationFor(cand.ID); ev != nil {
			record.Score = ev.Score
			record.Recommend = ev.Recommend
			record.Rationale = ev.Rationale
		}
		if draft, ok := ec.Drafts[cand.ID]; ok && draft.Succeeded {
			record.DraftText = draft.Text
		}
		records = append(records, record)
	}

	inserted, err := s.store.InsertBatch(ctx, records)
	if err != nil {
		return fmt.Errorf("record insert: %w", err)
	}
	s.logger.Info("record stage: run=%s records=%d inserted=%d", ec.RunID, len(records), inserted)
	return nil
}
