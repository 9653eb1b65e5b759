package workload

import (
	"sort"
	"time"

	"github.com/noah-isme/workload-api/internal/models"
)

// SlotKey identifies a teacher teaching a subject in a class, regardless of semester.
type SlotKey struct {
	TeacherID string `json:"teacher_id"`
	SubjectID string `json:"subject_id"`
	ClassID   string `json:"class_id"`
}

func slotOf(a models.Assignment) SlotKey {
	return SlotKey{TeacherID: a.TeacherID, SubjectID: a.SubjectID, ClassID: a.ClassID}
}

// Backfill returns a semester-2 copy of every semester-1 assignment whose
// (teacher, subject, class) has no semester-2 record. Duplicated semester-1
// records yield a single copy carrying the highest hours. The returned
// records have no ID and are not persisted; the input is never modified.
func Backfill(assignments []models.Assignment) []models.Assignment {
	candidates, _ := PlanBackfill(assignments)
	return candidates
}

// PlanBackfill is Backfill that also counts the semester-1 sources left out
// because their hours are zero or invalid.
func PlanBackfill(assignments []models.Assignment) (candidates []models.Assignment, skipped int) {
	present := make(map[SlotKey]struct{})
	for _, a := range assignments {
		if a.Semester == models.SemesterSecond {
			present[slotOf(a)] = struct{}{}
		}
	}

	index := make(map[SlotKey]int)
	var out []models.Assignment
	for _, a := range assignments {
		if a.Semester != models.SemesterFirst {
			continue
		}
		key := slotOf(a)
		if _, ok := present[key]; ok {
			continue
		}
		if !validHours(a.HoursPerWeek) {
			skipped++
			continue
		}
		if i, ok := index[key]; ok {
			if a.HoursPerWeek > out[i].HoursPerWeek {
				out[i] = synthesize(a)
			}
			continue
		}
		index[key] = len(out)
		out = append(out, synthesize(a))
	}
	return out, skipped
}

func synthesize(source models.Assignment) models.Assignment {
	record := source
	record.ID = ""
	record.Semester = models.SemesterSecond
	if source.TeamGroupID != nil {
		group := *source.TeamGroupID
		record.TeamGroupID = &group
	}
	record.CreatedAt = time.Time{}
	record.UpdatedAt = time.Time{}
	return record
}

// Coverage lists the semesters in which a teacher teaches a subject.
type Coverage struct {
	TeacherID string            `json:"teacher_id"`
	SubjectID string            `json:"subject_id"`
	Semesters []models.Semester `json:"semesters"`
	Uneven    bool              `json:"uneven"`
}

// SemesterCoverage groups assignments with positive hours by (teacher,
// subject) and reports which semesters each pair appears in. Pairs taught in
// only one semester are marked uneven. Nothing is modified.
func SemesterCoverage(assignments []models.Assignment) []Coverage {
	type pair struct{ teacher, subject string }
	seen := make(map[pair]map[models.Semester]struct{})
	for _, a := range assignments {
		if !validHours(a.HoursPerWeek) || !a.Semester.Valid() {
			continue
		}
		p := pair{a.TeacherID, a.SubjectID}
		if seen[p] == nil {
			seen[p] = make(map[models.Semester]struct{}, 2)
		}
		seen[p][a.Semester] = struct{}{}
	}

	out := make([]Coverage, 0, len(seen))
	for p, semesters := range seen {
		c := Coverage{TeacherID: p.teacher, SubjectID: p.subject}
		for _, s := range models.Semesters {
			if _, ok := semesters[s]; ok {
				c.Semesters = append(c.Semesters, s)
			}
		}
		c.Uneven = len(c.Semesters) < len(models.Semesters)
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TeacherID != out[j].TeacherID {
			return out[i].TeacherID < out[j].TeacherID
		}
		return out[i].SubjectID < out[j].SubjectID
	})
	return out
}

// Discrepancy reports a slot taught in both semesters with different hours.
type Discrepancy struct {
	SlotKey
	Semester1Hours float64 `json:"semester1_hours"`
	Semester2Hours float64 `json:"semester2_hours"`
}

// Discrepancies compares the normalized hours of each slot across semesters.
// Team-teaching records of the same teacher are folded into the slot with
// their maximum. The result is informational only.
func Discrepancies(assignments []models.Assignment) []Discrepancy {
	hours := make(map[SlotKey][2]float64)
	for _, e := range Normalize(assignments).Entries() {
		slot := SlotKey{TeacherID: e.Key.TeacherID, SubjectID: e.Key.SubjectID, ClassID: e.Key.ClassID}
		h := hours[slot]
		idx := 0
		if e.Key.Semester == models.SemesterSecond {
			idx = 1
		}
		if e.Hours > h[idx] {
			h[idx] = e.Hours
		}
		hours[slot] = h
	}

	var out []Discrepancy
	for slot, h := range hours {
		if h[0] > 0 && h[1] > 0 && h[0] != h[1] {
			out = append(out, Discrepancy{SlotKey: slot, Semester1Hours: h[0], Semester2Hours: h[1]})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].SlotKey, out[j].SlotKey
		if a.TeacherID != b.TeacherID {
			return a.TeacherID < b.TeacherID
		}
		if a.SubjectID != b.SubjectID {
			return a.SubjectID < b.SubjectID
		}
		return a.ClassID < b.ClassID
	})
	return out
}
