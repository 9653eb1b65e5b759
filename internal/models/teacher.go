package models

import (
	"time"

	"github.com/lib/pq"
)

// Teacher represents an instructor record together with the data the workload engine needs.
type Teacher struct {
	ID             string         `db:"id" json:"id"`
	Name           string         `db:"name" json:"name"`
	ShortCode      string         `db:"short_code" json:"short_code"`
	Qualifications pq.StringArray `db:"qualifications" json:"qualifications"`
	MaxHours       float64        `db:"max_hours" json:"max_hours"`
	Active         bool           `db:"active" json:"active"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updated_at"`
}

// TeacherFilter captures filtering options for listing teachers.
type TeacherFilter struct {
	Search    string
	Active    *bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
