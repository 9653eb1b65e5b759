package service

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/workload-api/internal/dto"
	"github.com/noah-isme/workload-api/internal/models"
	"github.com/noah-isme/workload-api/internal/workload"
	appErrors "github.com/noah-isme/workload-api/pkg/errors"
)

type backfillStore interface {
	List(ctx context.Context, filter models.AssignmentFilter) ([]models.Assignment, error)
	Create(ctx context.Context, exec sqlx.ExtContext, assignment *models.Assignment) error
}

// BackfillService copies first-semester assignments into the second
// semester where a teacher has no second-semester record for the same
// subject and class, and reports semester coverage.
type BackfillService struct {
	assignments backfillStore
	workloads   workloadInvalidator
	metrics     *MetricsService
	logger      *zap.Logger
}

// NewBackfillService constructs a BackfillService.
func NewBackfillService(assignments backfillStore, workloads workloadInvalidator, metrics *MetricsService, logger *zap.Logger) *BackfillService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BackfillService{assignments: assignments, workloads: workloads, metrics: metrics, logger: logger}
}

// Preview returns the records Apply would create without writing anything.
func (s *BackfillService) Preview(ctx context.Context, filter models.AssignmentFilter) (*dto.BackfillPreview, error) {
	candidates, skipped, err := s.candidates(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &dto.BackfillPreview{Candidates: candidates, Count: len(candidates), Skipped: skipped}, nil
}

// Apply persists every backfill candidate. Each record is written on its
// own; a failure is reported and the remaining candidates are still tried.
func (s *BackfillService) Apply(ctx context.Context, filter models.AssignmentFilter) (*dto.BackfillResult, error) {
	candidates, skipped, err := s.candidates(ctx, filter)
	if err != nil {
		return nil, err
	}

	result := &dto.BackfillResult{Skipped: skipped, Applied: make([]models.Assignment, 0, len(candidates))}
	for _, candidate := range candidates {
		record := candidate
		if err := s.assignments.Create(ctx, nil, &record); err != nil {
			s.logger.Warn("backfill record failed",
				zap.String("teacher_id", record.TeacherID),
				zap.String("subject_id", record.SubjectID),
				zap.String("class_id", record.ClassID),
				zap.Error(err),
			)
			result.Failed = append(result.Failed, dto.BackfillFailure{Assignment: candidate, Reason: err.Error()})
			continue
		}
		result.Applied = append(result.Applied, record)
	}

	result.Succeeded = len(result.Applied)
	result.Errored = len(result.Failed)
	s.metrics.RecordBackfill(result.Succeeded, result.Errored)
	if len(result.Applied) > 0 {
		invalidateWorkloads(ctx, s.workloads)
	}
	s.logger.Info("backfill applied",
		zap.Int("succeeded", result.Succeeded),
		zap.Int("skipped", result.Skipped),
		zap.Int("errored", result.Errored),
	)
	return result, nil
}

// Coverage reports in which semesters each teacher teaches each subject.
func (s *BackfillService) Coverage(ctx context.Context, filter models.AssignmentFilter) (*dto.CoverageReport, error) {
	assignments, err := s.list(ctx, filter)
	if err != nil {
		return nil, err
	}
	report := &dto.CoverageReport{Entries: workload.SemesterCoverage(assignments)}
	for _, entry := range report.Entries {
		if entry.Uneven {
			report.Uneven++
		}
	}
	return report, nil
}

// Discrepancies reports slots taught in both semesters with different hours.
func (s *BackfillService) Discrepancies(ctx context.Context, filter models.AssignmentFilter) (*dto.DiscrepancyReport, error) {
	assignments, err := s.list(ctx, filter)
	if err != nil {
		return nil, err
	}
	entries := workload.Discrepancies(assignments)
	if entries == nil {
		entries = []workload.Discrepancy{}
	}
	return &dto.DiscrepancyReport{Entries: entries}, nil
}

func (s *BackfillService) candidates(ctx context.Context, filter models.AssignmentFilter) ([]models.Assignment, int, error) {
	assignments, err := s.list(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	candidates, skipped := workload.PlanBackfill(assignments)
	if candidates == nil {
		candidates = []models.Assignment{}
	}
	return candidates, skipped, nil
}

// list ignores a semester filter because backfill compares both semesters.
func (s *BackfillService) list(ctx context.Context, filter models.AssignmentFilter) ([]models.Assignment, error) {
	filter.Semester = ""
	start := time.Now()
	assignments, err := s.assignments.List(ctx, filter)
	s.metrics.ObserveDBQuery("assignments_backfill", time.Since(start))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignments")
	}
	return assignments, nil
}
