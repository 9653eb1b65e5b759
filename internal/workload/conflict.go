package workload

import (
	"fmt"
	"strings"

	"github.com/noah-isme/workload-api/internal/models"
)

// DefaultWarningRatio is the share of max hours above which a load is flagged.
const DefaultWarningRatio = 0.9

// Severity classifies an assignment against qualification and workload rules.
type Severity string

const (
	SeverityOK      Severity = "ok"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// ConflictKind names the rule that produced a classification.
type ConflictKind string

const (
	ConflictNone          ConflictKind = ""
	ConflictQualification ConflictKind = "qualification"
	ConflictOverload      ConflictKind = "overload"
	ConflictHighLoad      ConflictKind = "high_load"
)

// ConflictResult is the advisory classification of one assignment.
type ConflictResult struct {
	Severity       Severity     `json:"severity"`
	Kind           ConflictKind `json:"kind,omitempty"`
	Message        string       `json:"message"`
	ProjectedHours float64      `json:"projected_hours"`
	MaxHours       float64      `json:"max_hours"`
	Percentage     float64      `json:"percentage"`
}

// Blocking reports whether a proposed assignment with this result should be refused.
func (r ConflictResult) Blocking() bool {
	return r.Severity == SeverityError
}

// Detector classifies assignments. The zero value uses strict qualification
// matching and a ratio of zero; use NewDetector for the standard 90% threshold.
type Detector struct {
	WarningRatio       float64
	LooseQualification bool
}

// NewDetector builds a detector. A ratio outside (0, 1] falls back to DefaultWarningRatio.
func NewDetector(warningRatio float64, looseQualification bool) Detector {
	if warningRatio <= 0 || warningRatio > 1 {
		warningRatio = DefaultWarningRatio
	}
	return Detector{WarningRatio: warningRatio, LooseQualification: looseQualification}
}

// Qualified reports whether teacher may teach subject. Strict mode requires a
// qualification equal to the subject's short code or name; loose mode accepts
// any qualification containing the short code.
func (d Detector) Qualified(teacher models.Teacher, subject models.Subject) bool {
	for _, q := range teacher.Qualifications {
		if q == subject.ShortCode || (subject.Name != "" && q == subject.Name) {
			return true
		}
		if d.LooseQualification && subject.ShortCode != "" && strings.Contains(q, subject.ShortCode) {
			return true
		}
	}
	return false
}

// Classify applies the rules in order: qualification, overload, high load, ok.
func (d Detector) Classify(teacher models.Teacher, subject models.Subject, projected float64) ConflictResult {
	result := ConflictResult{
		Severity:       SeverityOK,
		ProjectedHours: projected,
		MaxHours:       teacher.MaxHours,
		Percentage:     Percentage(projected, teacher.MaxHours),
	}

	switch {
	case !d.Qualified(teacher, subject):
		result.Severity = SeverityError
		result.Kind = ConflictQualification
		result.Message = fmt.Sprintf("%s is not qualified for %s", teacherLabel(teacher), subjectLabel(subject))
	case projected > teacher.MaxHours:
		result.Severity = SeverityError
		result.Kind = ConflictOverload
		result.Message = fmt.Sprintf("%s would teach %s of max %s hours", teacherLabel(teacher), formatHours(projected), formatHours(teacher.MaxHours))
	case projected > teacher.MaxHours*d.WarningRatio:
		result.Severity = SeverityWarning
		result.Kind = ConflictHighLoad
		result.Message = fmt.Sprintf("%s is at %.0f%% of max hours", teacherLabel(teacher), result.Percentage)
	default:
		result.Message = "ok"
	}
	return result
}

// DetectExisting classifies an already persisted assignment against the
// teacher's current workload derived from assignments.
func (d Detector) DetectExisting(teacher models.Teacher, subject models.Subject, assignments []models.Assignment) ConflictResult {
	return d.Classify(teacher, subject, Aggregate(teacher, assignments).CurrentHours)
}

// DetectProposed classifies a new or edited assignment. The projection is the
// teacher's current workload without the edited record (matched by ID) plus
// the proposed hours, whichever semester the proposal targets.
func (d Detector) DetectProposed(teacher models.Teacher, subject models.Subject, existing []models.Assignment, proposed models.Assignment) ConflictResult {
	remaining := make([]models.Assignment, 0, len(existing))
	for _, a := range existing {
		if proposed.ID != "" && a.ID == proposed.ID {
			continue
		}
		remaining = append(remaining, a)
	}
	projected := Aggregate(teacher, remaining).CurrentHours
	if validHours(proposed.HoursPerWeek) {
		projected += proposed.HoursPerWeek
	}
	return d.Classify(teacher, subject, projected)
}

func teacherLabel(t models.Teacher) string {
	if t.ShortCode != "" {
		return "teacher " + t.ShortCode
	}
	return "teacher " + t.ID
}

func subjectLabel(s models.Subject) string {
	if s.ShortCode != "" {
		return "subject " + s.ShortCode
	}
	return "subject " + s.ID
}

func formatHours(v float64) string {
	return fmt.Sprintf("%g", v)
}
