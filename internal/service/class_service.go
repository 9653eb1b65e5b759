package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/workload-api/internal/models"
	"github.com/noah-isme/workload-api/internal/workload"
	appErrors "github.com/noah-isme/workload-api/pkg/errors"
)

type classRepository interface {
	List(ctx context.Context, filter models.ClassFilter) ([]models.Class, error)
	FindByID(ctx context.Context, id string) (*models.Class, error)
	ExistsByName(ctx context.Context, name string, excludeID string) (bool, error)
	Create(ctx context.Context, class *models.Class) error
	Update(ctx context.Context, class *models.Class) error
}

type assignmentLister interface {
	List(ctx context.Context, filter models.AssignmentFilter) ([]models.Assignment, error)
}

// ClassRequest captures the payload for creating or updating a class. Grade
// may be omitted and is then derived from the name prefix.
type ClassRequest struct {
	Name          string   `json:"name" validate:"required,min=3,max=20"`
	Grade         int      `json:"grade" validate:"omitempty,min=5,max=10"`
	StudentCount  int      `json:"student_count" validate:"gte=0"`
	TargetHoursS1 *float64 `json:"target_hours_s1" validate:"omitempty,gte=0"`
	TargetHoursS2 *float64 `json:"target_hours_s2" validate:"omitempty,gte=0"`
}

// ClassService coordinates class operations.
type ClassService struct {
	repo        classRepository
	assignments assignmentLister
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewClassService constructs a class service.
func NewClassService(repo classRepository, assignments assignmentLister, validate *validator.Validate, logger *zap.Logger) *ClassService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClassService{repo: repo, assignments: assignments, validator: validate, logger: logger}
}

// List returns classes matching filter.
func (s *ClassService) List(ctx context.Context, filter models.ClassFilter) ([]models.Class, error) {
	classes, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classes")
	}
	return classes, nil
}

// Get returns a class by id.
func (s *ClassService) Get(ctx context.Context, id string) (*models.Class, error) {
	class, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	return class, nil
}

// Create registers a class.
func (s *ClassService) Create(ctx context.Context, req ClassRequest) (*models.Class, error) {
	name, grade, err := s.validate(req)
	if err != nil {
		return nil, err
	}
	if err := s.ensureUniqueName(ctx, name, ""); err != nil {
		return nil, err
	}
	class := &models.Class{
		Name:          name,
		Grade:         grade,
		StudentCount:  req.StudentCount,
		TargetHoursS1: req.TargetHoursS1,
		TargetHoursS2: req.TargetHoursS2,
	}
	if err := s.repo.Create(ctx, class); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create class")
	}
	return class, nil
}

// Update modifies class fields.
func (s *ClassService) Update(ctx context.Context, id string, req ClassRequest) (*models.Class, error) {
	name, grade, err := s.validate(req)
	if err != nil {
		return nil, err
	}
	class, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.ensureUniqueName(ctx, name, id); err != nil {
		return nil, err
	}
	class.Name = name
	class.Grade = grade
	class.StudentCount = req.StudentCount
	class.TargetHoursS1 = req.TargetHoursS1
	class.TargetHoursS2 = req.TargetHoursS2
	if err := s.repo.Update(ctx, class); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update class")
	}
	return class, nil
}

// Load reports the weekly hours a class receives per semester against its targets.
func (s *ClassService) Load(ctx context.Context, id string) (*workload.ClassLoad, error) {
	class, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	assignments, err := s.assignments.List(ctx, models.AssignmentFilter{ClassID: id})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class assignments")
	}
	load := workload.AggregateClass(*class, assignments)
	return &load, nil
}

func (s *ClassService) validate(req ClassRequest) (string, int, error) {
	if err := s.validator.Struct(req); err != nil {
		return "", 0, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class payload")
	}
	name := strings.ToUpper(strings.TrimSpace(req.Name))
	derived, err := models.GradeFromClassName(name)
	if err != nil {
		return "", 0, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	if req.Grade != 0 && req.Grade != derived {
		return "", 0, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("grade %d does not match class name %s", req.Grade, name))
	}
	return name, derived, nil
}

func (s *ClassService) ensureUniqueName(ctx context.Context, name, excludeID string) error {
	exists, err := s.repo.ExistsByName(ctx, name, excludeID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check class name uniqueness")
	}
	if exists {
		return appErrors.Clone(appErrors.ErrConflict, "class name already exists")
	}
	return nil
}
