package service

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/workload-api/internal/dto"
	"github.com/noah-isme/workload-api/internal/models"
	"github.com/noah-isme/workload-api/internal/workload"
	appErrors "github.com/noah-isme/workload-api/pkg/errors"
)

type matrixStore interface {
	List(ctx context.Context, filter models.AssignmentFilter) ([]models.Assignment, error)
	Create(ctx context.Context, exec sqlx.ExtContext, assignment *models.Assignment) error
	Update(ctx context.Context, exec sqlx.ExtContext, assignment *models.Assignment) error
	Delete(ctx context.Context, exec sqlx.ExtContext, id string) error
}

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

// MatrixServiceParams groups constructor dependencies.
type MatrixServiceParams struct {
	Assignments matrixStore
	Classes     classFinder
	Tx          txProvider
	AtomicSave  bool
	Workloads   workloadInvalidator
	Metrics     *MetricsService
	Validator   *validator.Validate
	Logger      *zap.Logger
}

// MatrixService saves edits of a class's teacher/subject matrix for one
// semester. Atomic saves apply every change in one transaction; otherwise
// each change is applied on its own and failures are reported.
type MatrixService struct {
	assignments matrixStore
	classes     classFinder
	tx          txProvider
	atomic      bool
	workloads   workloadInvalidator
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewMatrixService constructs a MatrixService.
func NewMatrixService(params MatrixServiceParams) *MatrixService {
	validate := params.Validator
	if validate == nil {
		validate = validator.New()
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MatrixService{
		assignments: params.Assignments,
		classes:     params.Classes,
		tx:          params.Tx,
		atomic:      params.AtomicSave && params.Tx != nil,
		workloads:   params.Workloads,
		metrics:     params.Metrics,
		validator:   validate,
		logger:      logger,
	}
}

// Save stages req's cells against the class's current assignments and
// applies the resulting creates, updates and deletes.
func (s *MatrixService) Save(ctx context.Context, classID string, semester models.Semester, req dto.MatrixSaveRequest) (*dto.MatrixSaveResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid matrix payload")
	}
	if !semester.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "semester must be 1 or 2")
	}
	if _, err := s.classes.FindByID(ctx, classID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}

	current, err := s.assignments.List(ctx, models.AssignmentFilter{ClassID: classID, Semester: semester})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class assignments")
	}

	stage := workload.NewStage(classID, semester)
	for _, cell := range req.Cells {
		stage.Set(cell.TeacherID, cell.SubjectID, cell.Hours)
	}
	intents := stage.Diff(current)
	if intents == nil {
		intents = []workload.Intent{}
	}

	result := &dto.MatrixSaveResult{Intents: intents, Atomic: s.atomic, DryRun: req.DryRun}
	if req.DryRun || len(intents) == 0 {
		return result, nil
	}

	if s.atomic {
		if err := s.applyAtomic(ctx, intents); err != nil {
			s.metrics.RecordMatrixSave(true, "rolled_back")
			return nil, err
		}
		result.Applied = len(intents)
		s.metrics.RecordMatrixSave(true, "applied")
	} else {
		s.applySequential(ctx, intents, result)
		outcome := "applied"
		if len(result.Failed) > 0 {
			outcome = "partial"
		}
		s.metrics.RecordMatrixSave(false, outcome)
	}

	if result.Applied > 0 {
		invalidateWorkloads(ctx, s.workloads)
	}
	s.logger.Info("matrix saved",
		zap.String("class_id", classID),
		zap.String("semester", string(semester)),
		zap.Int("applied", result.Applied),
		zap.Int("failed", len(result.Failed)),
		zap.Bool("atomic", s.atomic),
	)
	return result, nil
}

func (s *MatrixService) applyAtomic(ctx context.Context, intents []workload.Intent) (err error) {
	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, intent := range intents {
		if err = s.apply(ctx, tx, intent); err != nil {
			err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, describeIntentFailure(intent))
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit matrix transaction")
		return err
	}
	return nil
}

func (s *MatrixService) applySequential(ctx context.Context, intents []workload.Intent, result *dto.MatrixSaveResult) {
	for _, intent := range intents {
		if err := s.apply(ctx, nil, intent); err != nil {
			s.logger.Warn("matrix intent failed", zap.String("kind", string(intent.Kind)), zap.Error(err))
			result.Failed = append(result.Failed, dto.MatrixFailure{Intent: intent, Reason: err.Error()})
			continue
		}
		result.Applied++
	}
}

func (s *MatrixService) apply(ctx context.Context, exec sqlx.ExtContext, intent workload.Intent) error {
	record := intent.Assignment
	switch intent.Kind {
	case workload.IntentCreate:
		return s.assignments.Create(ctx, exec, &record)
	case workload.IntentUpdate:
		return s.assignments.Update(ctx, exec, &record)
	case workload.IntentDelete:
		return s.assignments.Delete(ctx, exec, record.ID)
	default:
		return fmt.Errorf("unknown intent %q", intent.Kind)
	}
}

func describeIntentFailure(intent workload.Intent) string {
	return fmt.Sprintf("matrix save rolled back: %s of teacher %s subject %s failed", intent.Kind, intent.Cell.TeacherID, intent.Cell.SubjectID)
}
