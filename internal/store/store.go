// Package store persists run history and per-run audit trails.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/crm-cleanup/internal/model"
)

// ErrNotFound is returned when a run ID does not exist.
var ErrNotFound = eris.New("run not found")

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status model.RunStatus `json:"status,omitempty"`
	Limit  int             `json:"limit,omitempty"`
	Offset int             `json:"offset,omitempty"`
}

// Store defines the persistence interface for cleanup runs.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, inputs []model.RunInput) (*model.Run, error)
	CompleteRun(ctx context.Context, runID string, summary *model.RunSummary) error
	FailRun(ctx context.Context, runID string, runErr error) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	// Audit
	SaveAudit(ctx context.Context, runID string, rows []model.AuditRow) error
	ListAudit(ctx context.Context, runID string) ([]model.AuditRow, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

const defaultListLimit = 100

// completedStatus maps a summary to its terminal run status.
func completedStatus(summary *model.RunSummary) model.RunStatus {
	if summary != nil && summary.Cancelled {
		return model.RunStatusCancelled
	}
	return model.RunStatusComplete
}

func errorText(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}
