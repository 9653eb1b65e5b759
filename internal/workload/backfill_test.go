package workload

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/workload-api/internal/models"
)

func TestBackfillSynthesizesMissingSecondSemester(t *testing.T) {
	source := assignment("T", "S", "C", models.SemesterFirst, 4)
	source.ID = "a-1"
	source.TeamGroupID = strPtr("team-9")
	input := []models.Assignment{source}

	first := Backfill(input)
	require.Len(t, first, 1)
	got := first[0]
	assert.Empty(t, got.ID)
	assert.Equal(t, "T", got.TeacherID)
	assert.Equal(t, "S", got.SubjectID)
	assert.Equal(t, "C", got.ClassID)
	assert.Equal(t, models.SemesterSecond, got.Semester)
	assert.Equal(t, 4.0, got.HoursPerWeek)
	require.NotNil(t, got.TeamGroupID)
	assert.Equal(t, "team-9", *got.TeamGroupID)
	assert.NotSame(t, source.TeamGroupID, got.TeamGroupID)

	assert.Equal(t, models.SemesterFirst, input[0].Semester)
	assert.Equal(t, first, Backfill(input))

	persisted := append(input, got)
	assert.Empty(t, Backfill(persisted))
}

func TestBackfillSkipsPresentCounterpartsAndCollapsesDuplicates(t *testing.T) {
	input := []models.Assignment{
		assignment("T", "S", "C", models.SemesterFirst, 4),
		assignment("T", "S", "C", models.SemesterSecond, 2),
		assignment("T", "E", "C", models.SemesterFirst, 2),
		assignment("T", "E", "C", models.SemesterFirst, 3),
		assignment("T", "B", "C", models.SemesterFirst, 0),
	}

	out, skipped := PlanBackfill(input)
	require.Len(t, out, 1)
	assert.Equal(t, "E", out[0].SubjectID)
	assert.Equal(t, 3.0, out[0].HoursPerWeek)
	assert.Equal(t, 1, skipped)
	assert.Equal(t, out, Backfill(input))
}

func TestBackfillIsOneDirectional(t *testing.T) {
	assert.Empty(t, Backfill([]models.Assignment{assignment("T", "S", "C", models.SemesterSecond, 4)}))
}

func TestSemesterCoverage(t *testing.T) {
	out := SemesterCoverage([]models.Assignment{
		assignment("T", "M", "07A", models.SemesterFirst, 4),
		assignment("T", "M", "07B", models.SemesterSecond, 4),
		assignment("T", "E", "07A", models.SemesterSecond, 2),
		assignment("U", "E", "07A", models.SemesterFirst, 0),
	})

	require.Len(t, out, 2)
	assert.Equal(t, Coverage{TeacherID: "T", SubjectID: "E", Semesters: []models.Semester{models.SemesterSecond}, Uneven: true}, out[0])
	assert.Equal(t, Coverage{TeacherID: "T", SubjectID: "M", Semesters: []models.Semester{models.SemesterFirst, models.SemesterSecond}}, out[1])
}

func TestDiscrepancies(t *testing.T) {
	out := Discrepancies([]models.Assignment{
		assignment("T", "M", "07A", models.SemesterFirst, 4),
		assignment("T", "M", "07A", models.SemesterSecond, 3),
		assignment("T", "E", "07A", models.SemesterFirst, 2),
		assignment("T", "E", "07A", models.SemesterSecond, 2),
		assignment("T", "D", "07A", models.SemesterFirst, 2),
	})

	require.Len(t, out, 1)
	assert.Equal(t, SlotKey{TeacherID: "T", SubjectID: "M", ClassID: "07A"}, out[0].SlotKey)
	assert.Equal(t, 4.0, out[0].Semester1Hours)
	assert.Equal(t, 3.0, out[0].Semester2Hours)
}
