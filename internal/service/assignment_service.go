package service

import (
	"context"
	"database/sql"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/workload-api/internal/dto"
	"github.com/noah-isme/workload-api/internal/models"
	"github.com/noah-isme/workload-api/internal/workload"
	appErrors "github.com/noah-isme/workload-api/pkg/errors"
)

type assignmentStore interface {
	List(ctx context.Context, filter models.AssignmentFilter) ([]models.Assignment, error)
	ListDetails(ctx context.Context, filter models.AssignmentFilter) ([]models.AssignmentDetail, error)
	FindByID(ctx context.Context, id string) (*models.Assignment, error)
	FindBySlot(ctx context.Context, exec sqlx.ExtContext, assignment models.Assignment) ([]models.Assignment, error)
	Create(ctx context.Context, exec sqlx.ExtContext, assignment *models.Assignment) error
	Update(ctx context.Context, exec sqlx.ExtContext, assignment *models.Assignment) error
	Delete(ctx context.Context, exec sqlx.ExtContext, id string) error
}

type teacherFinder interface {
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
}

type subjectFinder interface {
	FindByID(ctx context.Context, id string) (*models.Subject, error)
}

type classFinder interface {
	FindByID(ctx context.Context, id string) (*models.Class, error)
}

// AssignmentServiceParams groups constructor dependencies.
type AssignmentServiceParams struct {
	Assignments assignmentStore
	Teachers    teacherFinder
	Subjects    subjectFinder
	Classes     classFinder
	Detector    workload.Detector
	Workloads   workloadInvalidator
	Metrics     *MetricsService
	Validator   *validator.Validate
	Logger      *zap.Logger
}

// AssignmentService manages assignments and classifies them against
// qualification and workload rules. Classifications are advisory on reads;
// on writes an error classification refuses the change unless forced.
type AssignmentService struct {
	assignments assignmentStore
	teachers    teacherFinder
	subjects    subjectFinder
	classes     classFinder
	detector    workload.Detector
	workloads   workloadInvalidator
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewAssignmentService creates a service instance.
func NewAssignmentService(params AssignmentServiceParams) *AssignmentService {
	validate := params.Validator
	if validate == nil {
		validate = validator.New()
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	detector := params.Detector
	if detector.WarningRatio <= 0 {
		detector = workload.NewDetector(detector.WarningRatio, detector.LooseQualification)
	}
	return &AssignmentService{
		assignments: params.Assignments,
		teachers:    params.Teachers,
		subjects:    params.Subjects,
		classes:     params.Classes,
		detector:    detector,
		workloads:   params.Workloads,
		metrics:     params.Metrics,
		validator:   validate,
		logger:      logger,
	}
}

// List returns assignments matching filter, each annotated with the
// classification of its teacher's current load.
func (s *AssignmentService) List(ctx context.Context, filter models.AssignmentFilter) ([]dto.AssignmentView, error) {
	if filter.Semester != "" && !filter.Semester.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "semester must be 1 or 2")
	}
	details, err := s.assignments.ListDetails(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list assignments")
	}

	teachers := make(map[string]*models.Teacher)
	subjects := make(map[string]*models.Subject)
	loads := make(map[string][]models.Assignment)

	views := make([]dto.AssignmentView, 0, len(details))
	for _, detail := range details {
		teacher, ok := teachers[detail.TeacherID]
		if !ok {
			if teacher, err = s.loadTeacher(ctx, detail.TeacherID); err != nil {
				return nil, err
			}
			teachers[detail.TeacherID] = teacher
			if loads[detail.TeacherID], err = s.assignments.List(ctx, models.AssignmentFilter{TeacherID: detail.TeacherID}); err != nil {
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher assignments")
			}
		}
		subject, ok := subjects[detail.SubjectID]
		if !ok {
			if subject, err = s.loadSubject(ctx, detail.SubjectID); err != nil {
				return nil, err
			}
			subjects[detail.SubjectID] = subject
		}
		views = append(views, dto.AssignmentView{
			AssignmentDetail: detail,
			Conflict:         s.detector.DetectExisting(*teacher, *subject, loads[detail.TeacherID]),
		})
	}
	return views, nil
}

// Check classifies a proposed assignment without persisting it.
func (s *AssignmentService) Check(ctx context.Context, req dto.AssignmentRequest) (*workload.ConflictResult, error) {
	_, result, err := s.evaluate(ctx, req)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordConflict(*result, false)
	return result, nil
}

// Create persists a new assignment. An error classification refuses it
// with ErrAssignmentConflict unless req.Force is set. A record already
// occupying the same teacher, subject, class, semester and team group is
// refused with ErrConflict regardless of Force.
func (s *AssignmentService) Create(ctx context.Context, req dto.AssignmentRequest) (*dto.AssignmentResult, error) {
	proposed, result, err := s.evaluate(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := s.ensureSlotFree(ctx, *proposed, ""); err != nil {
		return nil, err
	}
	if result.Blocking() && !req.Force {
		s.metrics.RecordConflict(*result, true)
		return nil, appErrors.Clone(appErrors.ErrAssignmentConflict, result.Message)
	}
	s.metrics.RecordConflict(*result, false)

	if err := s.assignments.Create(ctx, nil, proposed); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create assignment")
	}
	invalidateWorkloads(ctx, s.workloads)
	s.logger.Info("assignment created",
		zap.String("assignment_id", proposed.ID),
		zap.String("severity", string(result.Severity)),
		zap.Bool("forced", req.Force && result.Blocking()),
	)
	return &dto.AssignmentResult{Assignment: *proposed, Conflict: *result}, nil
}

// Update changes the hours or team group of an assignment. Raising hours is
// subject to the same blocking rule as Create; lowering them never is.
func (s *AssignmentService) Update(ctx context.Context, id string, req dto.AssignmentUpdateRequest) (*dto.AssignmentResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload")
	}
	current, err := s.assignments.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignment")
	}
	teacher, err := s.loadTeacher(ctx, current.TeacherID)
	if err != nil {
		return nil, err
	}
	subject, err := s.loadSubject(ctx, current.SubjectID)
	if err != nil {
		return nil, err
	}
	existing, err := s.assignments.List(ctx, models.AssignmentFilter{TeacherID: current.TeacherID})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher assignments")
	}

	updated := *current
	updated.HoursPerWeek = req.HoursPerWeek
	updated.TeamGroupID = normalizeOptional(req.TeamGroupID)
	updated.Optimized = false
	if !sameTeamGroup(current.TeamGroupID, updated.TeamGroupID) {
		if err := s.ensureSlotFree(ctx, updated, current.ID); err != nil {
			return nil, err
		}
	}

	result := s.detector.DetectProposed(*teacher, *subject, existing, updated)
	blocked := result.Blocking() && updated.HoursPerWeek > current.HoursPerWeek && !req.Force
	s.metrics.RecordConflict(result, blocked)
	if blocked {
		return nil, appErrors.Clone(appErrors.ErrAssignmentConflict, result.Message)
	}

	if err := s.assignments.Update(ctx, nil, &updated); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update assignment")
	}
	invalidateWorkloads(ctx, s.workloads)
	return &dto.AssignmentResult{Assignment: updated, Conflict: result}, nil
}

// Delete removes an assignment.
func (s *AssignmentService) Delete(ctx context.Context, id string) error {
	if err := s.assignments.Delete(ctx, nil, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete assignment")
	}
	invalidateWorkloads(ctx, s.workloads)
	return nil
}

func (s *AssignmentService) evaluate(ctx context.Context, req dto.AssignmentRequest) (*models.Assignment, *workload.ConflictResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload")
	}
	teacher, err := s.loadTeacher(ctx, req.TeacherID)
	if err != nil {
		return nil, nil, err
	}
	if !teacher.Active {
		return nil, nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "teacher inactive")
	}
	subject, err := s.loadSubject(ctx, req.SubjectID)
	if err != nil {
		return nil, nil, err
	}
	if _, err := s.classes.FindByID(ctx, req.ClassID); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}

	existing, err := s.assignments.List(ctx, models.AssignmentFilter{TeacherID: teacher.ID})
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher assignments")
	}

	proposed := &models.Assignment{
		TeacherID:    teacher.ID,
		SubjectID:    subject.ID,
		ClassID:      req.ClassID,
		Semester:     req.Semester,
		HoursPerWeek: req.HoursPerWeek,
		TeamGroupID:  normalizeOptional(req.TeamGroupID),
	}
	result := s.detector.DetectProposed(*teacher, *subject, existing, *proposed)
	return proposed, &result, nil
}

func (s *AssignmentService) ensureSlotFree(ctx context.Context, a models.Assignment, exceptID string) error {
	occupants, err := s.assignments.FindBySlot(ctx, nil, a)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check assignment slot")
	}
	for _, o := range occupants {
		if o.ID != exceptID {
			return appErrors.Clone(appErrors.ErrConflict, "assignment already exists for this teacher, subject, class and semester")
		}
	}
	return nil
}

func sameTeamGroup(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func (s *AssignmentService) loadTeacher(ctx context.Context, id string) (*models.Teacher, error) {
	teacher, err := s.teachers.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}
	return teacher, nil
}

func (s *AssignmentService) loadSubject(ctx context.Context, id string) (*models.Subject, error) {
	subject, err := s.subjects.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}
	return subject, nil
}

func normalizeOptional(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
