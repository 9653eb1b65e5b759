package service

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/workload-api/internal/dto"
	"github.com/noah-isme/workload-api/internal/models"
	"github.com/noah-isme/workload-api/internal/workload"
	appErrors "github.com/noah-isme/workload-api/pkg/errors"
)

type teacherDirectory interface {
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
	ListAll(ctx context.Context, activeOnly bool) ([]models.Teacher, error)
}

// workloadInvalidator drops cached workload figures after assignment writes.
type workloadInvalidator interface {
	Invalidate(ctx context.Context)
}

func invalidateWorkloads(ctx context.Context, w workloadInvalidator) {
	if w != nil {
		w.Invalidate(ctx)
	}
}

// WorkloadServiceParams groups constructor dependencies.
type WorkloadServiceParams struct {
	Teachers    teacherDirectory
	Assignments assignmentLister
	Cache       *CacheService
	Metrics     *MetricsService
	Logger      *zap.Logger
	CacheTTL    time.Duration
}

// WorkloadService reads assignments and derives teacher workloads. Results
// are cached until the next assignment write.
type WorkloadService struct {
	teachers    teacherDirectory
	assignments assignmentLister
	cache       *CacheService
	metrics     *MetricsService
	logger      *zap.Logger
	ttl         time.Duration
}

// NewWorkloadService constructs a WorkloadService.
func NewWorkloadService(params WorkloadServiceParams) *WorkloadService {
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	ttl := params.CacheTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &WorkloadService{
		teachers:    params.Teachers,
		assignments: params.Assignments,
		cache:       params.Cache,
		metrics:     params.Metrics,
		logger:      logger,
		ttl:         ttl,
	}
}

// Teacher returns the workload of one teacher. The boolean reports a cache hit.
func (s *WorkloadService) Teacher(ctx context.Context, teacherID string) (*dto.WorkloadEntry, bool, error) {
	cacheKey := "teacher:" + teacherID
	var cached dto.WorkloadEntry
	if hit, _ := s.cache.Get(ctx, cacheKey, &cached); hit {
		return &cached, true, nil
	}

	teacher, err := s.teachers.FindByID(ctx, teacherID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, false, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}

	start := time.Now()
	assignments, err := s.assignments.List(ctx, models.AssignmentFilter{TeacherID: teacherID})
	s.metrics.ObserveDBQuery("assignments_by_teacher", time.Since(start))
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignments")
	}

	entry := labelWorkload(*teacher, workload.Aggregate(*teacher, assignments))
	if err := s.cache.Set(ctx, cacheKey, entry, s.ttl); err != nil {
		s.logger.Debug("workload cache write skipped", zap.String("teacher_id", teacherID), zap.Error(err))
	}
	return &entry, false, nil
}

// Overview returns the workload of every teacher ordered by percentage,
// heaviest first. Inactive teachers are included only on request.
func (s *WorkloadService) Overview(ctx context.Context, includeInactive bool) ([]dto.WorkloadEntry, bool, error) {
	cacheKey := "overview:active"
	if includeInactive {
		cacheKey = "overview:all"
	}
	var cached []dto.WorkloadEntry
	if hit, _ := s.cache.Get(ctx, cacheKey, &cached); hit {
		return cached, true, nil
	}

	teachers, err := s.teachers.ListAll(ctx, !includeInactive)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list teachers")
	}
	start := time.Now()
	assignments, err := s.assignments.List(ctx, models.AssignmentFilter{})
	s.metrics.ObserveDBQuery("assignments_all", time.Since(start))
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignments")
	}

	byID := make(map[string]models.Teacher, len(teachers))
	for _, t := range teachers {
		byID[t.ID] = t
	}
	loads := workload.AggregateAll(teachers, assignments)
	entries := make([]dto.WorkloadEntry, 0, len(loads))
	for _, load := range loads {
		entries = append(entries, labelWorkload(byID[load.TeacherID], load))
	}

	if err := s.cache.Set(ctx, cacheKey, entries, s.ttl); err != nil {
		s.logger.Debug("overview cache write skipped", zap.Error(err))
	}
	return entries, false, nil
}

// Invalidate drops every cached workload.
func (s *WorkloadService) Invalidate(ctx context.Context) {
	if s == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, "*"); err != nil {
		s.logger.Warn("workload cache invalidation failed", zap.Error(err))
	}
}

func labelWorkload(teacher models.Teacher, load workload.Workload) dto.WorkloadEntry {
	return dto.WorkloadEntry{Workload: load, ShortCode: teacher.ShortCode, Name: teacher.Name, Active: teacher.Active}
}
