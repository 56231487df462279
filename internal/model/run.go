package model

import "time"

// RunStatus represents the current state of a processing run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusComplete  RunStatus = "complete"
	RunStatusCancelled RunStatus = "cancelled"
	RunStatusFailed    RunStatus = "failed"
)

// RunInput describes one file fed into a run.
type RunInput struct {
	Path    string `json:"path"`
	Source  Source `json:"source"`
	Records int    `json:"records"`
}

// Run is a persisted record of one processing run.
type Run struct {
	ID         string      `json:"id"`
	Status     RunStatus   `json:"status"`
	Inputs     []RunInput  `json:"inputs"`
	Summary    *RunSummary `json:"summary,omitempty"`
	Error      string      `json:"error,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
	FinishedAt *time.Time  `json:"finished_at,omitempty"`
}

// RunSummary is the reportable outcome of a run.
type RunSummary struct {
	Stats           Stats  `json:"stats"`
	SlicesCompleted int    `json:"slices_completed"`
	SlicesTotal     int    `json:"slices_total"`
	Cancelled       bool   `json:"cancelled"`
	DurationMs      int64  `json:"duration_ms"`
	Exported        int    `json:"exported"`
	Output          string `json:"output,omitempty"`
}

// AuditRow is the flat persisted form of one audit line.
type AuditRow struct {
	RunID     string `json:"run_id"`
	RecordID  int    `json:"record_id"`
	RecordKey string `json:"record_key"`
	Field     string `json:"field"`
	OldValue  string `json:"old_value"`
	NewValue  string `json:"new_value"`
	Reason    string `json:"reason"`
}
