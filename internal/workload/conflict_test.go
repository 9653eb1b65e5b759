package workload

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/workload-api/internal/models"
)

func TestClassifyQualificationError(t *testing.T) {
	d := NewDetector(0, false)
	teacher := models.Teacher{ID: "t-1", ShortCode: "MUE", Qualifications: []string{"M", "E"}, MaxHours: 25}
	subject := models.Subject{ID: "s-d", ShortCode: "D", Name: "Deutsch"}

	result := d.Classify(teacher, subject, 4)
	assert.Equal(t, SeverityError, result.Severity)
	assert.Equal(t, ConflictQualification, result.Kind)
	assert.Contains(t, result.Message, "not qualified for subject D")
	assert.True(t, result.Blocking())
}

func TestClassifyLoadThresholds(t *testing.T) {
	d := NewDetector(DefaultWarningRatio, false)
	teacher := models.Teacher{ID: "t-1", Qualifications: []string{"M"}, MaxHours: 25}
	subject := models.Subject{ShortCode: "M"}

	assert.Equal(t, SeverityWarning, d.Classify(teacher, subject, 24).Severity)
	assert.Equal(t, SeverityOK, d.Classify(teacher, subject, 20).Severity)
	assert.Equal(t, SeverityError, d.Classify(teacher, subject, 26).Severity)
	assert.Equal(t, ConflictOverload, d.Classify(teacher, subject, 26).Kind)
	assert.Equal(t, SeverityOK, d.Classify(teacher, subject, 22.5).Severity)
	assert.Equal(t, SeverityWarning, d.Classify(teacher, subject, 25).Severity)
}

func TestQualifiedMatching(t *testing.T) {
	strict := NewDetector(0, false)
	loose := NewDetector(0, true)
	teacher := models.Teacher{Qualifications: []string{"Mathe", "Ph"}}

	assert.True(t, strict.Qualified(teacher, models.Subject{ShortCode: "XX", Name: "Mathe"}))
	assert.False(t, strict.Qualified(teacher, models.Subject{ShortCode: "Ma"}))
	assert.True(t, loose.Qualified(teacher, models.Subject{ShortCode: "Ma"}))
	assert.False(t, strict.Qualified(teacher, models.Subject{ShortCode: "ph"}))
	assert.False(t, loose.Qualified(models.Teacher{}, models.Subject{ShortCode: "Ma"}))
}

func TestDetectProposedAddsToCurrentWorkload(t *testing.T) {
	d := NewDetector(DefaultWarningRatio, false)
	teacher := models.Teacher{ID: "t-1", Qualifications: []string{"M"}, MaxHours: 25}
	subject := models.Subject{ID: "s-m", ShortCode: "M"}
	existing := []models.Assignment{
		assignment("t-1", "s-m", "07A", models.SemesterFirst, 20),
		assignment("t-1", "s-m", "07A", models.SemesterSecond, 10),
	}

	lighter := d.DetectProposed(teacher, subject, existing, assignment("", "s-m", "07B", models.SemesterSecond, 4))
	assert.Equal(t, SeverityWarning, lighter.Severity)
	assert.Equal(t, 24.0, lighter.ProjectedHours)

	heavier := d.DetectProposed(teacher, subject, existing, assignment("", "s-m", "07B", models.SemesterFirst, 4))
	assert.Equal(t, SeverityWarning, heavier.Severity)
	assert.Equal(t, 24.0, heavier.ProjectedHours)

	overload := d.DetectProposed(teacher, subject, existing, assignment("", "s-m", "07B", models.SemesterSecond, 6))
	assert.Equal(t, SeverityError, overload.Severity)
	assert.Equal(t, 26.0, overload.ProjectedHours)

	empty := d.DetectProposed(teacher, subject, existing, assignment("", "s-m", "07B", models.SemesterSecond, 0))
	assert.Equal(t, 20.0, empty.ProjectedHours)
}

func TestDetectProposedReplacesEditedRecord(t *testing.T) {
	d := NewDetector(DefaultWarningRatio, false)
	teacher := models.Teacher{ID: "t-1", Qualifications: []string{"M"}, MaxHours: 25}
	subject := models.Subject{ID: "s-m", ShortCode: "M"}
	current := assignment("t-1", "s-m", "07A", models.SemesterFirst, 20)
	current.ID = "a-1"

	other := assignment("t-1", "s-m", "07B", models.SemesterSecond, 8)
	other.ID = "a-2"

	edited := current
	edited.HoursPerWeek = 10
	result := d.DetectProposed(teacher, subject, []models.Assignment{current, other}, edited)
	assert.Equal(t, 18.0, result.ProjectedHours)
	assert.Equal(t, SeverityOK, result.Severity)
}

func TestDetectExisting(t *testing.T) {
	d := NewDetector(DefaultWarningRatio, false)
	teacher := models.Teacher{ID: "t-1", Qualifications: []string{"M"}, MaxHours: 10}
	subject := models.Subject{ShortCode: "M"}
	result := d.DetectExisting(teacher, subject, []models.Assignment{assignment("t-1", "s-m", "07A", models.SemesterFirst, 12)})
	assert.Equal(t, ConflictOverload, result.Kind)
}
