package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/workload-api/internal/models"
	appErrors "github.com/noah-isme/workload-api/pkg/errors"
)

// memAssignments is an in-memory assignment store shared by the service tests.
type memAssignments struct {
	mu      sync.Mutex
	records []models.Assignment
	seq     int
	// failWrite makes Create/Update fail for matching records.
	failWrite func(models.Assignment) error
	listErr   error
	execs     []sqlx.ExtContext
}

func (m *memAssignments) matches(a models.Assignment, f models.AssignmentFilter) bool {
	return (f.TeacherID == "" || a.TeacherID == f.TeacherID) &&
		(f.ClassID == "" || a.ClassID == f.ClassID) &&
		(f.SubjectID == "" || a.SubjectID == f.SubjectID) &&
		(f.Semester == "" || a.Semester == f.Semester)
}

func (m *memAssignments) List(_ context.Context, filter models.AssignmentFilter) ([]models.Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []models.Assignment
	for _, a := range m.records {
		if m.matches(a, filter) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memAssignments) ListDetails(ctx context.Context, filter models.AssignmentFilter) ([]models.AssignmentDetail, error) {
	list, err := m.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	details := make([]models.AssignmentDetail, 0, len(list))
	for _, a := range list {
		details = append(details, models.AssignmentDetail{
			Assignment:  a,
			TeacherCode: strings.ToUpper(a.TeacherID),
			SubjectCode: a.SubjectID,
			ClassName:   a.ClassID,
		})
	}
	return details, nil
}

func (m *memAssignments) FindByID(_ context.Context, id string) (*models.Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.records {
		if a.ID == id {
			cp := a
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *memAssignments) FindBySlot(_ context.Context, exec sqlx.ExtContext, a models.Assignment) ([]models.Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Assignment
	for _, r := range m.records {
		if r.TeacherID == a.TeacherID && r.SubjectID == a.SubjectID && r.ClassID == a.ClassID &&
			r.Semester == a.Semester && sameTeam(r.TeamGroupID, a.TeamGroupID) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].HoursPerWeek > out[j].HoursPerWeek })
	return out, nil
}

func sameTeam(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func (m *memAssignments) Create(_ context.Context, exec sqlx.ExtContext, a *models.Assignment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.execs = append(m.execs, exec)
	if m.failWrite != nil {
		if err := m.failWrite(*a); err != nil {
			return err
		}
	}
	if a.ID == "" {
		m.seq++
		a.ID = fmt.Sprintf("gen-%d", m.seq)
	}
	a.CreatedAt = time.Now()
	m.records = append(m.records, *a)
	return nil
}

func (m *memAssignments) Update(_ context.Context, exec sqlx.ExtContext, a *models.Assignment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.execs = append(m.execs, exec)
	if m.failWrite != nil {
		if err := m.failWrite(*a); err != nil {
			return err
		}
	}
	for i, r := range m.records {
		if r.ID == a.ID {
			m.records[i] = *a
			return nil
		}
	}
	return sql.ErrNoRows
}

func (m *memAssignments) Delete(_ context.Context, exec sqlx.ExtContext, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.execs = append(m.execs, exec)
	for i, r := range m.records {
		if r.ID == id {
			m.records = append(m.records[:i], m.records[i+1:]...)
			return nil
		}
	}
	return sql.ErrNoRows
}

func (m *memAssignments) snapshot() []models.Assignment {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.Assignment(nil), m.records...)
}

// memDirectory serves teachers, subjects and classes by id and by code.
type memDirectory struct {
	teachers map[string]models.Teacher
	subjects map[string]models.Subject
	classes  map[string]models.Class
}

type teacherLookup struct{ *memDirectory }
type subjectLookup struct{ *memDirectory }
type classLookup struct{ *memDirectory }

func (d teacherLookup) FindByID(_ context.Context, id string) (*models.Teacher, error) {
	if t, ok := d.teachers[id]; ok {
		return &t, nil
	}
	return nil, sql.ErrNoRows
}

func (d teacherLookup) FindByShortCode(_ context.Context, code string) (*models.Teacher, error) {
	for _, t := range d.teachers {
		if strings.EqualFold(t.ShortCode, code) {
			cp := t
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (d teacherLookup) ListAll(_ context.Context, activeOnly bool) ([]models.Teacher, error) {
	out := make([]models.Teacher, 0, len(d.teachers))
	for _, t := range d.teachers {
		if activeOnly && !t.Active {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (d subjectLookup) FindByID(_ context.Context, id string) (*models.Subject, error) {
	if s, ok := d.subjects[id]; ok {
		return &s, nil
	}
	return nil, sql.ErrNoRows
}

func (d subjectLookup) FindByShortCode(_ context.Context, code string) (*models.Subject, error) {
	for _, s := range d.subjects {
		if s.ShortCode == code {
			cp := s
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (d classLookup) FindByID(_ context.Context, id string) (*models.Class, error) {
	if c, ok := d.classes[id]; ok {
		return &c, nil
	}
	return nil, sql.ErrNoRows
}

func (d classLookup) FindByName(_ context.Context, name string) (*models.Class, error) {
	for _, c := range d.classes {
		if strings.EqualFold(c.Name, name) {
			cp := c
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

// newSchool returns a small directory: MUE teaches maths and physics with
// 25 max hours, SCH teaches German with 20, and OLD is inactive.
func newSchool() *memDirectory {
	return &memDirectory{
		teachers: map[string]models.Teacher{
			"t-mue": {ID: "t-mue", Name: "Anna Mueller", ShortCode: "MUE", Qualifications: []string{"M", "Ph"}, MaxHours: 25, Active: true},
			"t-sch": {ID: "t-sch", Name: "Jonas Schmidt", ShortCode: "SCH", Qualifications: []string{"D"}, MaxHours: 20, Active: true},
			"t-old": {ID: "t-old", Name: "Old Timer", ShortCode: "OLD", Qualifications: []string{"M"}, MaxHours: 10, Active: false},
		},
		subjects: map[string]models.Subject{
			"s-m":  {ID: "s-m", Name: "Mathematik", ShortCode: "M", Category: models.SubjectCategoryCore},
			"s-ph": {ID: "s-ph", Name: "Physik", ShortCode: "Ph", Category: models.SubjectCategoryCore},
			"s-d":  {ID: "s-d", Name: "Deutsch", ShortCode: "D", Category: models.SubjectCategoryCore},
		},
		classes: map[string]models.Class{
			"c-07a": {ID: "c-07a", Name: "07A", Grade: 7},
			"c-08b": {ID: "c-08b", Name: "08B", Grade: 8},
		},
	}
}

func record(id, teacher, subject, class string, semester models.Semester, hours float64) models.Assignment {
	return models.Assignment{ID: id, TeacherID: teacher, SubjectID: subject, ClassID: class, Semester: semester, HoursPerWeek: hours}
}

// countingInvalidator records workload cache invalidations.
type countingInvalidator struct{ calls int }

func (c *countingInvalidator) Invalidate(context.Context) { c.calls++ }

type stubCacheRepo struct {
	store map[string][]byte
}

func (s *stubCacheRepo) Get(_ context.Context, key string, dest interface{}) error {
	payload, ok := s.store[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(payload, dest)
}

func (s *stubCacheRepo) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	if s.store == nil {
		s.store = make(map[string][]byte)
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.store[key] = payload
	return nil
}

func (s *stubCacheRepo) DeleteByPattern(_ context.Context, pattern string) error {
	prefix := strings.TrimSuffix(pattern, "*")
	for key := range s.store {
		if strings.HasPrefix(key, prefix) {
			delete(s.store, key)
		}
	}
	return nil
}
