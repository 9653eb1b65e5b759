package dto

import (
	"github.com/noah-isme/workload-api/internal/models"
	"github.com/noah-isme/workload-api/internal/workload"
)

// WorkloadEntry is a teacher's workload tuple labelled for display.
type WorkloadEntry struct {
	workload.Workload
	ShortCode string `json:"short_code"`
	Name      string `json:"name"`
	Active    bool   `json:"active"`
}

// AssignmentView pairs an assignment with its advisory classification.
type AssignmentView struct {
	models.AssignmentDetail
	Conflict workload.ConflictResult `json:"conflict"`
}

// AssignmentRequest captures a new or proposed assignment. Force persists a
// proposal even when it classifies as an error.
type AssignmentRequest struct {
	TeacherID    string          `json:"teacher_id" validate:"required"`
	SubjectID    string          `json:"subject_id" validate:"required"`
	ClassID      string          `json:"class_id" validate:"required"`
	Semester     models.Semester `json:"semester" validate:"required,oneof=1 2"`
	HoursPerWeek float64         `json:"hours_per_week" validate:"gt=0,lte=40"`
	TeamGroupID  *string         `json:"team_group_id" validate:"omitempty,max=64"`
	Force        bool            `json:"force"`
}

// AssignmentUpdateRequest changes the hours or team group of an assignment.
// Removing an assignment goes through delete, so hours must stay positive.
type AssignmentUpdateRequest struct {
	HoursPerWeek float64 `json:"hours_per_week" validate:"gt=0,lte=40"`
	TeamGroupID  *string `json:"team_group_id" validate:"omitempty,max=64"`
	Force        bool    `json:"force"`
}

// AssignmentResult is returned after a write with the classification that
// was evaluated for it.
type AssignmentResult struct {
	Assignment models.Assignment       `json:"assignment"`
	Conflict   workload.ConflictResult `json:"conflict"`
}
