package workload

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/workload-api/internal/models"
)

func TestAggregateClassCountsTeamOnce(t *testing.T) {
	target := 6.0
	class := models.Class{ID: "07A", TargetHoursS1: &target}

	a := assignment("t-1", "M", "07A", models.SemesterFirst, 4)
	a.TeamGroupID = strPtr("team-1")
	b := assignment("t-2", "M", "07A", models.SemesterFirst, 3)
	b.TeamGroupID = strPtr("team-1")

	load := AggregateClass(class, []models.Assignment{
		a, b,
		assignment("t-3", "E", "07A", models.SemesterFirst, 3),
		assignment("t-3", "E", "07A", models.SemesterSecond, 3),
		assignment("t-3", "E", "07B", models.SemesterFirst, 5),
	})

	assert.Equal(t, 7.0, load.Semester1Total)
	assert.Equal(t, 3.0, load.Semester2Total)
	dev := load.Deviation(models.SemesterFirst)
	require.NotNil(t, dev)
	assert.Equal(t, 1.0, *dev)
	assert.Nil(t, load.Deviation(models.SemesterSecond))
}
