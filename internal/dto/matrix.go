package dto

import "github.com/noah-isme/workload-api/internal/workload"

// MatrixCell is one staged edit. Zero hours clears the cell.
type MatrixCell struct {
	TeacherID string  `json:"teacher_id" validate:"required"`
	SubjectID string  `json:"subject_id" validate:"required"`
	Hours     float64 `json:"hours" validate:"gte=0,lte=40"`
}

// MatrixSaveRequest stages edits for one class and semester. DryRun returns
// the computed intents without writing them.
type MatrixSaveRequest struct {
	Cells  []MatrixCell `json:"cells" validate:"required,min=1,dive"`
	DryRun bool         `json:"dry_run"`
}

// MatrixFailure names an intent that could not be applied.
type MatrixFailure struct {
	Intent workload.Intent `json:"intent"`
	Reason string          `json:"reason"`
}

// MatrixSaveResult reports what a save did.
type MatrixSaveResult struct {
	Intents []workload.Intent `json:"intents"`
	Applied int               `json:"applied"`
	Failed  []MatrixFailure   `json:"failed,omitempty"`
	Atomic  bool              `json:"atomic"`
	DryRun  bool              `json:"dry_run"`
}
