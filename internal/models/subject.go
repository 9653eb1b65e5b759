package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// SubjectCategory classifies a subject in the curriculum.
type SubjectCategory string

const (
	SubjectCategoryCore            SubjectCategory = "core"
	SubjectCategoryMinor           SubjectCategory = "minor"
	SubjectCategoryElective        SubjectCategory = "elective"
	SubjectCategorySpecialArea     SubjectCategory = "special-area"
	SubjectCategoryDifferentiation SubjectCategory = "differentiation"
)

// Valid reports whether c is a known category.
func (c SubjectCategory) Valid() bool {
	switch c {
	case SubjectCategoryCore, SubjectCategoryMinor, SubjectCategoryElective, SubjectCategorySpecialArea, SubjectCategoryDifferentiation:
		return true
	}
	return false
}

// GradeHours maps a grade to its advisory weekly hour target.
type GradeHours map[int]float64

// Value encodes the map as JSON for storage.
func (g GradeHours) Value() (driver.Value, error) {
	if g == nil {
		return nil, nil
	}
	return json.Marshal(g)
}

// Scan decodes a JSON column.
func (g *GradeHours) Scan(src interface{}) error {
	if src == nil {
		*g = nil
		return nil
	}
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("grade hours: unsupported type %T", src)
	}
	out := GradeHours{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("grade hours: %w", err)
	}
	*g = out
	return nil
}

// Subject represents an academic subject.
type Subject struct {
	ID         string          `db:"id" json:"id"`
	Name       string          `db:"name" json:"name"`
	ShortCode  string          `db:"short_code" json:"short_code"`
	Category   SubjectCategory `db:"category" json:"category"`
	GradeHours GradeHours      `db:"grade_hours" json:"grade_hours,omitempty"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time       `db:"updated_at" json:"updated_at"`
}

// SubjectFilter captures supported filters for listing subjects.
type SubjectFilter struct {
	Category string
	Search   string
}
