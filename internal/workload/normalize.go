package workload

import (
	"sort"

	"github.com/noah-isme/workload-api/internal/models"
)

// Key identifies one effective teaching slot. TeamGroupID is empty for
// individual teaching; co-teachers in a team share the group id but keep
// their own key through TeacherID.
type Key struct {
	TeamGroupID string
	ClassID     string
	SubjectID   string
	TeacherID   string
	Semester    models.Semester
}

// KeyOf builds the normalization key for a record.
func KeyOf(a models.Assignment) Key {
	key := Key{
		ClassID:   a.ClassID,
		SubjectID: a.SubjectID,
		TeacherID: a.TeacherID,
		Semester:  a.Semester,
	}
	if a.TeamGroupID != nil {
		key.TeamGroupID = *a.TeamGroupID
	}
	return key
}

func (k Key) less(o Key) bool {
	if k.TeacherID != o.TeacherID {
		return k.TeacherID < o.TeacherID
	}
	if k.Semester != o.Semester {
		return k.Semester < o.Semester
	}
	if k.ClassID != o.ClassID {
		return k.ClassID < o.ClassID
	}
	if k.SubjectID != o.SubjectID {
		return k.SubjectID < o.SubjectID
	}
	return k.TeamGroupID < o.TeamGroupID
}

// Entry is one normalized slot and its effective hours.
type Entry struct {
	Key   Key
	Hours float64
}

// NormalizedSet holds one effective hour value per key.
type NormalizedSet map[Key]float64

// Normalize collapses raw records into effective hours per key. Records
// without finite positive hours are dropped; duplicates keep the maximum
// value so that re-importing the same slot is idempotent.
func Normalize(assignments []models.Assignment) NormalizedSet {
	set := make(NormalizedSet, len(assignments))
	for _, a := range assignments {
		if !validHours(a.HoursPerWeek) {
			continue
		}
		key := KeyOf(a)
		if current, ok := set[key]; !ok || a.HoursPerWeek > current {
			set[key] = a.HoursPerWeek
		}
	}
	return set
}

// Entries returns the set in a stable order.
func (s NormalizedSet) Entries() []Entry {
	out := make([]Entry, 0, len(s))
	for k, h := range s {
		out = append(out, Entry{Key: k, Hours: h})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key.less(out[j].Key) })
	return out
}

// ForTeacher restricts the set to one teacher.
func (s NormalizedSet) ForTeacher(teacherID string) NormalizedSet {
	out := make(NormalizedSet)
	for k, h := range s {
		if k.TeacherID == teacherID {
			out[k] = h
		}
	}
	return out
}

// SemesterTotals sums the set per semester in key order.
func (s NormalizedSet) SemesterTotals() (semester1, semester2 float64) {
	for _, e := range s.Entries() {
		switch e.Key.Semester {
		case models.SemesterFirst:
			semester1 += e.Hours
		case models.SemesterSecond:
			semester2 += e.Hours
		}
	}
	return semester1, semester2
}
