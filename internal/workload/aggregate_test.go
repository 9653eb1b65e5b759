package workload

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/workload-api/internal/models"
)

func TestAggregateUsesHeavierSemester(t *testing.T) {
	teacher := models.Teacher{ID: "t-1", MaxHours: 25}
	records := []models.Assignment{
		assignment("t-1", "M", "07A", models.SemesterFirst, 4),
		assignment("t-1", "M", "07B", models.SemesterFirst, 4),
		assignment("t-1", "E", "07A", models.SemesterSecond, 3),
		assignment("t-2", "E", "07A", models.SemesterSecond, 10),
	}

	w := Aggregate(teacher, records)
	assert.Equal(t, 8.0, w.Semester1Total)
	assert.Equal(t, 3.0, w.Semester2Total)
	assert.Equal(t, 8.0, w.CurrentHours)
	assert.Equal(t, 25.0, w.MaxHours)
	assert.InDelta(t, 32.0, w.Percentage, 1e-9)
}

func TestAggregatePercentageIsUnbounded(t *testing.T) {
	teacher := models.Teacher{ID: "t-1", MaxHours: 10}
	w := Aggregate(teacher, []models.Assignment{assignment("t-1", "M", "07A", models.SemesterSecond, 15)})
	assert.InDelta(t, 150.0, w.Percentage, 1e-9)
	assert.Zero(t, Percentage(5, 0))
}

func TestAggregateIsIdempotentAndOrderIndependent(t *testing.T) {
	teacher := models.Teacher{ID: "t-1", MaxHours: 26}
	records := []models.Assignment{
		assignment("t-1", "M", "07A", models.SemesterFirst, 0.1),
		assignment("t-1", "E", "07B", models.SemesterFirst, 0.2),
		assignment("t-1", "D", "07C", models.SemesterFirst, 0.3),
		assignment("t-1", "D", "07C", models.SemesterFirst, 0.25),
		assignment("t-1", "M", "08A", models.SemesterSecond, 1.7),
	}
	want := Aggregate(teacher, records)
	assert.Equal(t, want, Aggregate(teacher, records))

	rnd := rand.New(rand.NewSource(42))
	for i := 0; i < 25; i++ {
		shuffled := append([]models.Assignment(nil), records...)
		rnd.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		assert.Equal(t, want, Aggregate(teacher, shuffled))
	}
}

func TestAggregateAllMatchesSingleTeacherAggregation(t *testing.T) {
	teachers := []models.Teacher{{ID: "t-1", MaxHours: 20}, {ID: "t-2", MaxHours: 10}, {ID: "t-3", MaxHours: 25}}
	records := []models.Assignment{
		assignment("t-1", "M", "07A", models.SemesterFirst, 4),
		assignment("t-2", "E", "07A", models.SemesterFirst, 9),
		assignment("t-2", "E", "07A", models.SemesterSecond, 2),
	}

	all := AggregateAll(teachers, records)
	require.Len(t, all, 3)
	assert.Equal(t, "t-2", all[0].TeacherID)
	assert.Equal(t, "t-1", all[1].TeacherID)
	assert.Equal(t, "t-3", all[2].TeacherID)
	for i, w := range all {
		for _, teacher := range teachers {
			if teacher.ID == w.TeacherID {
				assert.Equal(t, Aggregate(teacher, records), all[i])
			}
		}
	}
}
