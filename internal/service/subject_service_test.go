package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/workload-api/internal/models"
	appErrors "github.com/noah-isme/workload-api/pkg/errors"
)

type subjectRepoStub struct {
	items map[string]models.Subject
}

func (s *subjectRepoStub) List(ctx context.Context, filter models.SubjectFilter) ([]models.Subject, error) {
	out := make([]models.Subject, 0, len(s.items))
	for _, subject := range s.items {
		out = append(out, subject)
	}
	return out, nil
}

func (s *subjectRepoStub) FindByID(ctx context.Context, id string) (*models.Subject, error) {
	if subject, ok := s.items[id]; ok {
		return &subject, nil
	}
	return nil, sql.ErrNoRows
}

func (s *subjectRepoStub) ExistsByShortCode(ctx context.Context, code string, excludeID string) (bool, error) {
	for id, subject := range s.items {
		if subject.ShortCode == code && id != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (s *subjectRepoStub) Create(ctx context.Context, subject *models.Subject) error {
	subject.ID = "s-new"
	s.items[subject.ID] = *subject
	return nil
}

func (s *subjectRepoStub) Update(ctx context.Context, subject *models.Subject) error {
	s.items[subject.ID] = *subject
	return nil
}

func TestSubjectServiceCreate(t *testing.T) {
	repo := &subjectRepoStub{items: map[string]models.Subject{}}
	svc := NewSubjectService(repo, nil, nil)

	subject, err := svc.Create(context.Background(), SubjectRequest{
		Name:       "Informatik",
		ShortCode:  " Inf ",
		Category:   models.SubjectCategoryDifferentiation,
		GradeHours: map[int]float64{7: 2, 8: 3},
	})
	require.NoError(t, err)
	assert.Equal(t, "Inf", subject.ShortCode)
	assert.Equal(t, 3.0, subject.GradeHours[8])

	_, err = svc.Create(context.Background(), SubjectRequest{Name: "Informatik 2", ShortCode: "Inf", Category: models.SubjectCategoryCore})
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestSubjectServiceValidation(t *testing.T) {
	svc := NewSubjectService(&subjectRepoStub{items: map[string]models.Subject{}}, nil, nil)

	cases := map[string]SubjectRequest{
		"unknown category": {Name: "Kunst", ShortCode: "Ku", Category: "art"},
		"grade out of range": {Name: "Kunst", ShortCode: "Ku", Category: models.SubjectCategoryMinor,
			GradeHours: map[int]float64{4: 2}},
		"negative hours": {Name: "Kunst", ShortCode: "Ku", Category: models.SubjectCategoryMinor,
			GradeHours: map[int]float64{6: -1}},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), req)
			assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
		})
	}
}

func TestSubjectServiceUpdateNotFound(t *testing.T) {
	svc := NewSubjectService(&subjectRepoStub{items: map[string]models.Subject{}}, nil, nil)

	_, err := svc.Update(context.Background(), "missing", SubjectRequest{Name: "Kunst", ShortCode: "Ku", Category: models.SubjectCategoryMinor})
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
