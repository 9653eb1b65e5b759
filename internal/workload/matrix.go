package workload

import (
	"math"
	"sort"

	"github.com/noah-isme/workload-api/internal/models"
)

// CellKey addresses one cell of the assignment matrix of a class.
type CellKey struct {
	TeacherID string `json:"teacher_id"`
	SubjectID string `json:"subject_id"`
}

// IntentKind is the persistence action a matrix change turns into.
type IntentKind string

const (
	IntentCreate IntentKind = "create"
	IntentUpdate IntentKind = "update"
	IntentDelete IntentKind = "delete"
)

var intentOrder = map[IntentKind]int{IntentDelete: 0, IntentUpdate: 1, IntentCreate: 2}

// Intent is a single pending write derived from a staged cell.
type Intent struct {
	Kind       IntentKind        `json:"kind"`
	Cell       CellKey           `json:"cell"`
	Assignment models.Assignment `json:"assignment"`
}

// Stage accumulates uncommitted cell edits for one class and semester.
type Stage struct {
	ClassID  string
	Semester models.Semester
	cells    map[CellKey]float64
}

// NewStage starts an empty staging area.
func NewStage(classID string, semester models.Semester) *Stage {
	return &Stage{ClassID: classID, Semester: semester, cells: make(map[CellKey]float64)}
}

// Set stages hours for a cell; the last value set wins. Zero clears the cell.
func (s *Stage) Set(teacherID, subjectID string, hours float64) {
	s.cells[CellKey{TeacherID: teacherID, SubjectID: subjectID}] = hours
}

// Clear stages removal of a cell, as when the teacher is unassigned.
func (s *Stage) Clear(teacherID, subjectID string) {
	s.Set(teacherID, subjectID, 0)
}

// Len returns the number of staged cells.
func (s *Stage) Len() int {
	return len(s.cells)
}

// Diff compares staged cells against the current records and returns the
// writes needed to make persistence match: deletes first, then updates, then
// creates. Cells whose value already matches produce nothing. When a cell
// has several records with the same normalization key, the first by id is
// kept and the rest are deleted.
func (s *Stage) Diff(current []models.Assignment) []Intent {
	byCell := make(map[CellKey][]models.Assignment)
	for _, a := range current {
		if a.ClassID != s.ClassID || a.Semester != s.Semester {
			continue
		}
		cell := CellKey{TeacherID: a.TeacherID, SubjectID: a.SubjectID}
		byCell[cell] = append(byCell[cell], a)
	}

	var intents []Intent
	for cell, hours := range s.cells {
		records := byCell[cell]
		sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })

		if !validHours(hours) {
			for _, r := range records {
				intents = append(intents, Intent{Kind: IntentDelete, Cell: cell, Assignment: r})
			}
			continue
		}

		if len(records) == 0 {
			intents = append(intents, Intent{Kind: IntentCreate, Cell: cell, Assignment: models.Assignment{
				TeacherID:    cell.TeacherID,
				SubjectID:    cell.SubjectID,
				ClassID:      s.ClassID,
				Semester:     s.Semester,
				HoursPerWeek: hours,
			}})
			continue
		}

		kept := records[0]
		keptKey := KeyOf(kept)
		for _, r := range records[1:] {
			if KeyOf(r) == keptKey {
				intents = append(intents, Intent{Kind: IntentDelete, Cell: cell, Assignment: r})
			}
		}
		if math.Abs(kept.HoursPerWeek-hours) > 1e-9 {
			kept.HoursPerWeek = hours
			kept.Optimized = false
			intents = append(intents, Intent{Kind: IntentUpdate, Cell: cell, Assignment: kept})
		}
	}

	sort.SliceStable(intents, func(i, j int) bool {
		a, b := intents[i], intents[j]
		if intentOrder[a.Kind] != intentOrder[b.Kind] {
			return intentOrder[a.Kind] < intentOrder[b.Kind]
		}
		if a.Cell.TeacherID != b.Cell.TeacherID {
			return a.Cell.TeacherID < b.Cell.TeacherID
		}
		if a.Cell.SubjectID != b.Cell.SubjectID {
			return a.Cell.SubjectID < b.Cell.SubjectID
		}
		return a.Assignment.ID < b.Assignment.ID
	})
	return intents
}
