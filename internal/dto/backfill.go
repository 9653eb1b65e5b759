package dto

import (
	"github.com/noah-isme/workload-api/internal/models"
	"github.com/noah-isme/workload-api/internal/workload"
)

// BackfillPreview lists the second-semester records a backfill would create.
// Skipped counts semester-1 sources left out for carrying no hours.
type BackfillPreview struct {
	Candidates []models.Assignment `json:"candidates"`
	Count      int                 `json:"count"`
	Skipped    int                 `json:"skipped"`
}

// BackfillFailure names a candidate that could not be persisted.
type BackfillFailure struct {
	Assignment models.Assignment `json:"assignment"`
	Reason     string            `json:"reason"`
}

// BackfillResult summarises an applied backfill. Failures do not undo the
// records already created.
type BackfillResult struct {
	Succeeded int                 `json:"succeeded"`
	Skipped   int                 `json:"skipped"`
	Errored   int                 `json:"errored"`
	Applied   []models.Assignment `json:"applied"`
	Failed    []BackfillFailure   `json:"failed,omitempty"`
}

// CoverageReport lists semester coverage per teacher and subject.
type CoverageReport struct {
	Entries []workload.Coverage `json:"entries"`
	Uneven  int                 `json:"uneven"`
}

// DiscrepancyReport lists slots whose hours differ between semesters.
type DiscrepancyReport struct {
	Entries []workload.Discrepancy `json:"entries"`
}
