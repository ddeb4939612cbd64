package engine

import (
	"context"

	"threadscout/backend/pkg/models"
)

// Stage is one typed step of the pipeline. A stage returning an error is
// run-fatal; per-item failures are absorbed inside the stage and recorded on
// the execution context instead.
type Stage interface {
	Kind() models.StageKind
	Run(ctx context.Context, ec *Context) error
}
