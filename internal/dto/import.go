package dto

import "time"

// ImportRequest carries rows of an assignment import. Headers are optional;
// without them columns are read positionally.
type ImportRequest struct {
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows" validate:"required,min=1"`
}

// ImportRowIssue describes why a row was skipped, failed or accepted with a warning.
type ImportRowIssue struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

// ImportSummary counts row outcomes of one import run. A row is counted
// once; the record counters tally the assignment writes it caused.
type ImportSummary struct {
	Rows      int              `json:"rows"`
	Succeeded int              `json:"succeeded"`
	Skipped   int              `json:"skipped"`
	Errored   int              `json:"errored"`
	Created   int              `json:"created"`
	Updated   int              `json:"updated"`
	Unchanged int              `json:"unchanged"`
	Warnings  []ImportRowIssue `json:"warnings,omitempty"`
	Skips     []ImportRowIssue `json:"skips,omitempty"`
	Errors    []ImportRowIssue `json:"errors,omitempty"`
}

// ImportJobStatus tracks an asynchronous import.
type ImportJobStatus string

const (
	ImportJobQueued    ImportJobStatus = "queued"
	ImportJobRunning   ImportJobStatus = "running"
	ImportJobCompleted ImportJobStatus = "completed"
	ImportJobFailed    ImportJobStatus = "failed"
)

// ImportJob is the pollable state of an asynchronous import.
type ImportJob struct {
	ID         string          `json:"id"`
	Status     ImportJobStatus `json:"status"`
	Summary    *ImportSummary  `json:"summary,omitempty"`
	Error      string          `json:"error,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	FinishedAt *time.Time      `json:"finished_at,omitempty"`
}
