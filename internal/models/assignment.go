package models

import "time"

// Assignment links a teacher to a class/subject/semester slot with a weekly hour count.
type Assignment struct {
	ID           string    `db:"id" json:"id"`
	TeacherID    string    `db:"teacher_id" json:"teacher_id"`
	SubjectID    string    `db:"subject_id" json:"subject_id"`
	ClassID      string    `db:"class_id" json:"class_id"`
	Semester     Semester  `db:"semester" json:"semester"`
	HoursPerWeek float64   `db:"hours_per_week" json:"hours_per_week"`
	TeamGroupID  *string   `db:"team_group_id" json:"team_group_id,omitempty"`
	Optimized    bool      `db:"optimized" json:"optimized"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// AssignmentDetail enriches assignments with descriptive fields.
type AssignmentDetail struct {
	Assignment
	TeacherCode string `db:"teacher_code" json:"teacher_code"`
	TeacherName string `db:"teacher_name" json:"teacher_name"`
	SubjectCode string `db:"subject_code" json:"subject_code"`
	SubjectName string `db:"subject_name" json:"subject_name"`
	ClassName   string `db:"class_name" json:"class_name"`
}

// AssignmentFilter narrows assignment queries. Empty fields are ignored.
type AssignmentFilter struct {
	TeacherID string
	ClassID   string
	SubjectID string
	Semester  Semester
}
