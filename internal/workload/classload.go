package workload

import (
	"sort"

	"github.com/noah-isme/workload-api/internal/models"
)

// ClassLoad compares the hours a class receives against its targets.
type ClassLoad struct {
	ClassID        string   `json:"class_id"`
	Semester1Total float64  `json:"semester1_total"`
	Semester2Total float64  `json:"semester2_total"`
	TargetS1       *float64 `json:"target_s1,omitempty"`
	TargetS2       *float64 `json:"target_s2,omitempty"`
}

// Deviation returns total minus target for the semester, or nil without a target.
func (c ClassLoad) Deviation(semester models.Semester) *float64 {
	target, total := c.TargetS1, c.Semester1Total
	if semester == models.SemesterSecond {
		target, total = c.TargetS2, c.Semester2Total
	}
	if target == nil {
		return nil
	}
	d := total - *target
	return &d
}

// AggregateClass sums the hours class receives per semester. A team-teaching
// group counts once per subject and semester, with the largest hours any of
// its teachers carries, because the students sit in one lesson.
func AggregateClass(class models.Class, assignments []models.Assignment) ClassLoad {
	teams := make(map[teamSlot]float64)
	load := ClassLoad{ClassID: class.ID, TargetS1: class.TargetHoursS1, TargetS2: class.TargetHoursS2}

	add := func(semester models.Semester, hours float64) {
		switch semester {
		case models.SemesterFirst:
			load.Semester1Total += hours
		case models.SemesterSecond:
			load.Semester2Total += hours
		}
	}

	for _, e := range Normalize(assignments).Entries() {
		if e.Key.ClassID != class.ID {
			continue
		}
		if e.Key.TeamGroupID == "" {
			add(e.Key.Semester, e.Hours)
			continue
		}
		slot := teamSlot{e.Key.TeamGroupID, e.Key.SubjectID, e.Key.Semester}
		if e.Hours > teams[slot] {
			teams[slot] = e.Hours
		}
	}
	slots := make([]teamSlot, 0, len(teams))
	for slot := range teams {
		slots = append(slots, slot)
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i].less(slots[j]) })
	for _, slot := range slots {
		add(slot.semester, teams[slot])
	}
	return load
}

type teamSlot struct {
	group    string
	subject  string
	semester models.Semester
}

func (t teamSlot) less(o teamSlot) bool {
	if t.semester != o.semester {
		return t.semester < o.semester
	}
	if t.group != o.group {
		return t.group < o.group
	}
	return t.subject < o.subject
}
