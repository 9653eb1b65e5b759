package models

import (
	"fmt"
	"strconv"
	"time"
)

const (
	MinGrade = 5
	MaxGrade = 10
)

// Class represents a class such as "07A" or "08INF".
type Class struct {
	ID            string    `db:"id" json:"id"`
	Name          string    `db:"name" json:"name"`
	Grade         int       `db:"grade" json:"grade"`
	StudentCount  int       `db:"student_count" json:"student_count"`
	TargetHoursS1 *float64  `db:"target_hours_s1" json:"target_hours_s1,omitempty"`
	TargetHoursS2 *float64  `db:"target_hours_s2" json:"target_hours_s2,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// TargetHours returns the configured weekly target for the semester, if any.
func (c Class) TargetHours(semester Semester) *float64 {
	if semester == SemesterSecond {
		return c.TargetHoursS2
	}
	return c.TargetHoursS1
}

// ClassFilter defines filter criteria for listing classes.
type ClassFilter struct {
	Grade  int
	Search string
}

// GradeFromClassName parses the two-digit grade prefix of a class name.
func GradeFromClassName(name string) (int, error) {
	if len(name) < 3 {
		return 0, fmt.Errorf("class name %q too short", name)
	}
	grade, err := strconv.Atoi(name[:2])
	if err != nil {
		return 0, fmt.Errorf("class name %q lacks a two-digit grade prefix", name)
	}
	if grade < MinGrade || grade > MaxGrade {
		return 0, fmt.Errorf("class name %q has grade %d outside %d-%d", name, grade, MinGrade, MaxGrade)
	}
	return grade, nil
}
