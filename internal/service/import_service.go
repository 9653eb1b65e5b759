package service

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/workload-api/internal/dto"
	"github.com/noah-isme/workload-api/internal/models"
	"github.com/noah-isme/workload-api/internal/workload"
	appErrors "github.com/noah-isme/workload-api/pkg/errors"
	"github.com/noah-isme/workload-api/pkg/jobs"
)

// JobTypeAssignmentImport identifies queued import jobs.
const JobTypeAssignmentImport = "assignment_import"

const (
	outcomeSucceeded = "succeeded"
	outcomeSkipped   = "skipped"
	outcomeErrored   = "errored"
	outcomeWarned    = "warned"
)

type teacherCodeLookup interface {
	FindByShortCode(ctx context.Context, code string) (*models.Teacher, error)
}

type subjectCodeLookup interface {
	FindByShortCode(ctx context.Context, code string) (*models.Subject, error)
}

type classNameLookup interface {
	FindByName(ctx context.Context, name string) (*models.Class, error)
}

type assignmentUpserter interface {
	FindBySlot(ctx context.Context, exec sqlx.ExtContext, assignment models.Assignment) ([]models.Assignment, error)
	Create(ctx context.Context, exec sqlx.ExtContext, assignment *models.Assignment) error
	Update(ctx context.Context, exec sqlx.ExtContext, assignment *models.Assignment) error
}

type jobEnqueuer interface {
	Enqueue(job jobs.Job) error
}

// ImportServiceParams groups constructor dependencies.
type ImportServiceParams struct {
	Teachers    teacherCodeLookup
	Subjects    subjectCodeLookup
	Classes     classNameLookup
	Assignments assignmentUpserter
	Workloads   workloadInvalidator
	Results     *CacheService
	Metrics     *MetricsService
	Validator   *validator.Validate
	Logger      *zap.Logger
	MaxRows     int
	ResultTTL   time.Duration
}

// ImportService turns tabular rows into assignments. Rows that cannot be
// read or that name unknown records are skipped; rows whose writes fail are
// reported as errored. Neither stops the run.
type ImportService struct {
	teachers    teacherCodeLookup
	subjects    subjectCodeLookup
	classes     classNameLookup
	assignments assignmentUpserter
	workloads   workloadInvalidator
	results     *CacheService
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
	maxRows     int
	resultTTL   time.Duration

	queue jobEnqueuer
	mu    sync.RWMutex
	local map[string]dto.ImportJob
	now   func() time.Time
}

// NewImportService constructs an ImportService.
func NewImportService(params ImportServiceParams) *ImportService {
	validate := params.Validator
	if validate == nil {
		validate = validator.New()
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	ttl := params.ResultTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &ImportService{
		teachers:    params.Teachers,
		subjects:    params.Subjects,
		classes:     params.Classes,
		assignments: params.Assignments,
		workloads:   params.Workloads,
		results:     params.Results,
		metrics:     params.Metrics,
		validator:   validate,
		logger:      logger,
		maxRows:     params.MaxRows,
		resultTTL:   ttl,
		local:       make(map[string]dto.ImportJob),
		now:         time.Now,
	}
}

// AttachQueue enables asynchronous imports through queue.
func (s *ImportService) AttachQueue(queue jobEnqueuer) {
	s.queue = queue
}

// ParseCSV reads a CSV upload into an import request. The delimiter is
// sniffed from the first line (semicolon or comma). With hasHeader the first
// record becomes the header row.
func ParseCSV(r io.Reader, hasHeader bool) (dto.ImportRequest, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return dto.ImportRequest{}, fmt.Errorf("read csv: %w", err)
	}
	raw = bytes.TrimPrefix(raw, []byte("\xef\xbb\xbf"))

	reader := csv.NewReader(bytes.NewReader(raw))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	firstLine := raw
	if idx := bytes.IndexByte(raw, '\n'); idx >= 0 {
		firstLine = raw[:idx]
	}
	if bytes.Count(firstLine, []byte(";")) > bytes.Count(firstLine, []byte(",")) {
		reader.Comma = ';'
	}

	records, err := reader.ReadAll()
	if err != nil {
		return dto.ImportRequest{}, fmt.Errorf("parse csv: %w", err)
	}

	var req dto.ImportRequest
	for i, record := range records {
		if i == 0 && hasHeader {
			req.Headers = record
			continue
		}
		if isBlankRecord(record) {
			continue
		}
		req.Rows = append(req.Rows, record)
	}
	return req, nil
}

func isBlankRecord(record []string) bool {
	for _, field := range record {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}

// Run imports every row synchronously and returns the summary.
func (s *ImportService) Run(ctx context.Context, req dto.ImportRequest) (*dto.ImportSummary, error) {
	if err := s.validateRequest(req); err != nil {
		return nil, err
	}

	summary := &dto.ImportSummary{Rows: len(req.Rows)}
	res := newImportResolver(s)
	for i, row := range req.Rows {
		rowNumber := i + 1
		result := workload.TransformRow(row, req.Headers)
		if result.Skip {
			summary.Skipped++
			summary.Skips = append(summary.Skips, dto.ImportRowIssue{Row: rowNumber, Reason: result.Reason})
			s.metrics.RecordImportRow(outcomeSkipped)
			continue
		}
		if result.Warning != "" {
			summary.Warnings = append(summary.Warnings, dto.ImportRowIssue{Row: rowNumber, Reason: result.Warning})
			s.metrics.RecordImportRow(outcomeWarned)
		}

		if err := s.importProposals(ctx, res, result.Proposals, summary); err != nil {
			var unresolved unresolvedCodeError
			if errors.As(err, &unresolved) {
				summary.Skipped++
				summary.Skips = append(summary.Skips, dto.ImportRowIssue{Row: rowNumber, Reason: err.Error()})
				s.metrics.RecordImportRow(outcomeSkipped)
				continue
			}
			s.logger.Warn("import row failed", zap.Int("row", rowNumber), zap.Error(err))
			summary.Errored++
			summary.Errors = append(summary.Errors, dto.ImportRowIssue{Row: rowNumber, Reason: err.Error()})
			s.metrics.RecordImportRow(outcomeErrored)
			continue
		}
		summary.Succeeded++
		s.metrics.RecordImportRow(outcomeSucceeded)
	}

	if summary.Created+summary.Updated > 0 {
		invalidateWorkloads(ctx, s.workloads)
	}
	s.logger.Info("assignment import finished",
		zap.Int("rows", summary.Rows),
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("skipped", summary.Skipped),
		zap.Int("errored", summary.Errored),
		zap.Int("warnings", len(summary.Warnings)),
	)
	return summary, nil
}

// Submit queues req for asynchronous processing and returns the pending job.
func (s *ImportService) Submit(ctx context.Context, req dto.ImportRequest) (*dto.ImportJob, error) {
	if s.queue == nil {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "asynchronous imports are not enabled")
	}
	if err := s.validateRequest(req); err != nil {
		return nil, err
	}
	job := dto.ImportJob{ID: uuid.NewString(), Status: dto.ImportJobQueued, CreatedAt: s.now().UTC()}
	s.store(ctx, job)
	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: JobTypeAssignmentImport, Payload: req}); err != nil {
		job.Status = dto.ImportJobFailed
		job.Error = err.Error()
		s.store(ctx, job)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to queue import")
	}
	return &job, nil
}

// HandleJob is the queue handler for asynchronous imports. A run in which
// every attempted row failed on storage is returned as an error so the queue
// retries it; the upsert keeps reruns idempotent. Partial failures complete
// with the errored rows listed in the summary.
func (s *ImportService) HandleJob(ctx context.Context, job jobs.Job) error {
	req, ok := job.Payload.(dto.ImportRequest)
	if !ok {
		s.logger.Error("unexpected import payload", zap.String("job_id", job.ID))
		return nil
	}
	state := dto.ImportJob{ID: job.ID, Status: dto.ImportJobRunning, CreatedAt: job.Enqueued}
	s.store(ctx, state)

	summary, err := s.Run(ctx, req)
	finished := s.now().UTC()
	state.FinishedAt = &finished
	if err != nil {
		state.Status = dto.ImportJobFailed
		state.Error = err.Error()
		s.store(ctx, state)
		if isInternal(err) {
			return err
		}
		return nil
	}
	state.Summary = summary
	if summary.Errored > 0 && summary.Succeeded == 0 {
		state.Status = dto.ImportJobFailed
		state.Error = summary.Errors[0].Reason
		s.store(ctx, state)
		return appErrors.Clone(appErrors.ErrInternal, fmt.Sprintf("import failed for all %d attempted rows", summary.Errored))
	}
	state.Status = dto.ImportJobCompleted
	s.store(ctx, state)
	return nil
}

// MarkExhausted records a job that the queue gave up on.
func (s *ImportService) MarkExhausted(job jobs.Job, err error) {
	finished := s.now().UTC()
	s.store(context.Background(), dto.ImportJob{
		ID:         job.ID,
		Status:     dto.ImportJobFailed,
		Error:      err.Error(),
		CreatedAt:  job.Enqueued,
		FinishedAt: &finished,
	})
}

// Job returns the state of an asynchronous import.
func (s *ImportService) Job(ctx context.Context, id string) (*dto.ImportJob, error) {
	var job dto.ImportJob
	if hit, _ := s.results.Get(ctx, id, &job); hit {
		return &job, nil
	}
	s.mu.RLock()
	job, ok := s.local[id]
	s.mu.RUnlock()
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "import job not found")
	}
	return &job, nil
}

func (s *ImportService) store(ctx context.Context, job dto.ImportJob) {
	cutoff := s.now().Add(-s.resultTTL)
	s.mu.Lock()
	for id, stored := range s.local {
		if stored.FinishedAt != nil && stored.FinishedAt.Before(cutoff) {
			delete(s.local, id)
		}
	}
	s.local[job.ID] = job
	s.mu.Unlock()
	if err := s.results.Set(ctx, job.ID, job, s.resultTTL); err != nil {
		s.logger.Warn("import job state not cached", zap.String("job_id", job.ID), zap.Error(err))
	}
}

func (s *ImportService) validateRequest(req dto.ImportRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid import payload")
	}
	if s.maxRows > 0 && len(req.Rows) > s.maxRows {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("import exceeds %d rows", s.maxRows))
	}
	return nil
}

func (s *ImportService) importProposals(ctx context.Context, res *importResolver, proposals []workload.ProposedAssignment, summary *dto.ImportSummary) error {
	for _, p := range proposals {
		record, err := res.resolve(ctx, p)
		if err != nil {
			return err
		}
		outcome, err := s.upsert(ctx, record)
		if err != nil {
			return err
		}
		switch outcome {
		case upsertCreated:
			summary.Created++
		case upsertUpdated:
			summary.Updated++
		default:
			summary.Unchanged++
		}
	}
	return nil
}

type upsertOutcome int

const (
	upsertUnchanged upsertOutcome = iota
	upsertCreated
	upsertUpdated
)

// upsert writes record unless a record with the same normalization key
// already carries at least as many hours. Duplicates keep the maximum.
func (s *ImportService) upsert(ctx context.Context, record models.Assignment) (upsertOutcome, error) {
	existing, err := s.assignments.FindBySlot(ctx, nil, record)
	if err != nil {
		return upsertUnchanged, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up assignment")
	}
	if len(existing) == 0 {
		if err := s.assignments.Create(ctx, nil, &record); err != nil {
			return upsertUnchanged, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create assignment")
		}
		return upsertCreated, nil
	}

	top := existing[0]
	for _, a := range existing[1:] {
		if a.HoursPerWeek > top.HoursPerWeek {
			top = a
		}
	}
	if record.HoursPerWeek <= top.HoursPerWeek {
		return upsertUnchanged, nil
	}
	top.HoursPerWeek = record.HoursPerWeek
	top.Optimized = false
	if err := s.assignments.Update(ctx, nil, &top); err != nil {
		return upsertUnchanged, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update assignment")
	}
	return upsertUpdated, nil
}

// importResolver memoises code lookups for one run.
type importResolver struct {
	svc      *ImportService
	teachers map[string]string
	subjects map[string]string
	classes  map[string]string
}

func newImportResolver(svc *ImportService) *importResolver {
	return &importResolver{
		svc:      svc,
		teachers: make(map[string]string),
		subjects: make(map[string]string),
		classes:  make(map[string]string),
	}
}

func (r *importResolver) resolve(ctx context.Context, p workload.ProposedAssignment) (models.Assignment, error) {
	teacherID, err := r.lookup(ctx, r.teachers, strings.ToUpper(p.TeacherCode), "teacher", func(ctx context.Context, key string) (string, error) {
		t, err := r.svc.teachers.FindByShortCode(ctx, key)
		if err != nil {
			return "", err
		}
		return t.ID, nil
	})
	if err != nil {
		return models.Assignment{}, err
	}
	subjectID, err := r.lookup(ctx, r.subjects, p.SubjectCode, "subject", func(ctx context.Context, key string) (string, error) {
		s, err := r.svc.subjects.FindByShortCode(ctx, key)
		if err != nil {
			return "", err
		}
		return s.ID, nil
	})
	if err != nil {
		return models.Assignment{}, err
	}
	classID, err := r.lookup(ctx, r.classes, p.ClassName, "class", func(ctx context.Context, key string) (string, error) {
		c, err := r.svc.classes.FindByName(ctx, key)
		if err != nil {
			return "", err
		}
		return c.ID, nil
	})
	if err != nil {
		return models.Assignment{}, err
	}
	return models.Assignment{
		TeacherID:    teacherID,
		SubjectID:    subjectID,
		ClassID:      classID,
		Semester:     p.Semester,
		HoursPerWeek: p.Hours,
		TeamGroupID:  p.TeamGroupID,
	}, nil
}

// unresolvedCodeError marks a row naming a teacher, subject or class that
// does not exist. Such rows are skipped, not errored.
type unresolvedCodeError struct {
	kind string
	code string
}

func (e unresolvedCodeError) Error() string {
	return fmt.Sprintf("unknown %s %q", e.kind, e.code)
}

func (r *importResolver) lookup(ctx context.Context, memo map[string]string, key, kind string, find func(context.Context, string) (string, error)) (string, error) {
	if id, ok := memo[key]; ok {
		if id == "" {
			return "", unresolvedCodeError{kind: kind, code: key}
		}
		return id, nil
	}
	id, err := find(ctx, key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			memo[key] = ""
			return "", unresolvedCodeError{kind: kind, code: key}
		}
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, fmt.Sprintf("failed to resolve %s", kind))
	}
	memo[key] = id
	return id, nil
}

func isInternal(err error) bool {
	return errors.Is(err, appErrors.ErrInternal)
}
