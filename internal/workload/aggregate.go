package workload

import (
	"math"
	"sort"

	"github.com/noah-isme/workload-api/internal/models"
)

// Workload is a teacher's weekly load derived from normalized assignments.
type Workload struct {
	TeacherID      string  `json:"teacher_id"`
	Semester1Total float64 `json:"semester1_total"`
	Semester2Total float64 `json:"semester2_total"`
	CurrentHours   float64 `json:"current_hours"`
	MaxHours       float64 `json:"max_hours"`
	Percentage     float64 `json:"percentage"`
}

// Hours returns the total for the given semester.
func (w Workload) Hours(semester models.Semester) float64 {
	if semester == models.SemesterSecond {
		return w.Semester2Total
	}
	return w.Semester1Total
}

// Aggregate computes the workload of teacher from assignments. Records
// belonging to other teachers are ignored. The current hours are the heavier
// of the two semesters since semesters do not run concurrently.
func Aggregate(teacher models.Teacher, assignments []models.Assignment) Workload {
	s1, s2 := Normalize(assignments).ForTeacher(teacher.ID).SemesterTotals()
	return newWorkload(teacher, s1, s2)
}

// AggregateAll computes workloads for every teacher in one pass, ordered by
// percentage descending and then by teacher id.
func AggregateAll(teachers []models.Teacher, assignments []models.Assignment) []Workload {
	totals := make(map[string][2]float64, len(teachers))
	for _, e := range Normalize(assignments).Entries() {
		t := totals[e.Key.TeacherID]
		switch e.Key.Semester {
		case models.SemesterFirst:
			t[0] += e.Hours
		case models.SemesterSecond:
			t[1] += e.Hours
		}
		totals[e.Key.TeacherID] = t
	}

	out := make([]Workload, 0, len(teachers))
	for _, teacher := range teachers {
		t := totals[teacher.ID]
		out = append(out, newWorkload(teacher, t[0], t[1]))
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Percentage != out[j].Percentage {
			return out[i].Percentage > out[j].Percentage
		}
		return out[i].TeacherID < out[j].TeacherID
	})
	return out
}

func newWorkload(teacher models.Teacher, s1, s2 float64) Workload {
	current := math.Max(s1, s2)
	return Workload{
		TeacherID:      teacher.ID,
		Semester1Total: s1,
		Semester2Total: s2,
		CurrentHours:   current,
		MaxHours:       teacher.MaxHours,
		Percentage:     Percentage(current, teacher.MaxHours),
	}
}

// Percentage returns current/max*100, unbounded above. A non-positive max yields 0.
func Percentage(current, max float64) float64 {
	if max <= 0 {
		return 0
	}
	return current / max * 100
}
