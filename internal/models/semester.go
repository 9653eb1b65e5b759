package models

import "fmt"

// Semester identifies one of the two half-year teaching periods.
type Semester string

const (
	SemesterFirst  Semester = "1"
	SemesterSecond Semester = "2"
)

// Semesters lists both semesters in calendar order.
var Semesters = []Semester{SemesterFirst, SemesterSecond}

// Valid reports whether s is one of the two known semesters.
func (s Semester) Valid() bool {
	return s == SemesterFirst || s == SemesterSecond
}

// ParseSemester accepts exactly "1" or "2".
func ParseSemester(raw string) (Semester, error) {
	s := Semester(raw)
	if !s.Valid() {
		return "", fmt.Errorf("invalid semester %q", raw)
	}
	return s, nil
}
