package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/workload-api/internal/dto"
	"github.com/noah-isme/workload-api/internal/models"
	appErrors "github.com/noah-isme/workload-api/pkg/errors"
	"github.com/noah-isme/workload-api/pkg/export"
)

// ExportFormat names a rendered report format.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

// ParseExportFormat accepts csv or pdf, defaulting to csv when empty.
func ParseExportFormat(raw string) (ExportFormat, error) {
	switch ExportFormat(strings.ToLower(strings.TrimSpace(raw))) {
	case "", ExportFormatCSV:
		return ExportFormatCSV, nil
	case ExportFormatPDF:
		return ExportFormatPDF, nil
	}
	return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", raw))
}

type workloadOverviewer interface {
	Overview(ctx context.Context, includeInactive bool) ([]dto.WorkloadEntry, bool, error)
}

type assignmentDetailLister interface {
	ListDetails(ctx context.Context, filter models.AssignmentFilter) ([]models.AssignmentDetail, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportFile is a rendered report ready to stream.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ExportService renders workload and assignment reports.
type ExportService struct {
	workloads   workloadOverviewer
	assignments assignmentDetailLister
	csv         csvRenderer
	pdf         pdfRenderer
	logger      *zap.Logger
	now         func() time.Time
}

// NewExportService constructs an ExportService.
func NewExportService(workloads workloadOverviewer, assignments assignmentDetailLister, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{workloads: workloads, assignments: assignments, csv: csv, pdf: pdf, logger: logger, now: time.Now}
}

// Workload renders the school-wide workload overview.
func (s *ExportService) Workload(ctx context.Context, format ExportFormat, includeInactive bool) (*ExportFile, error) {
	entries, _, err := s.workloads.Overview(ctx, includeInactive)
	if err != nil {
		return nil, err
	}
	headers := []string{"Teacher", "Name", "Semester 1", "Semester 2", "Current", "Max", "Load (%)"}
	rows := make([]map[string]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, map[string]string{
			"Teacher":    e.ShortCode,
			"Name":       e.Name,
			"Semester 1": formatDecimal(e.Semester1Total),
			"Semester 2": formatDecimal(e.Semester2Total),
			"Current":    formatDecimal(e.CurrentHours),
			"Max":        formatDecimal(e.MaxHours),
			"Load (%)":   strconv.FormatFloat(e.Percentage, 'f', 1, 64),
		})
	}
	return s.render(format, "workload", "Teaching Workload", export.Dataset{Headers: headers, Rows: rows})
}

// Assignments renders the assignments matching filter.
func (s *ExportService) Assignments(ctx context.Context, format ExportFormat, filter models.AssignmentFilter) (*ExportFile, error) {
	details, err := s.assignments.ListDetails(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list assignments")
	}
	headers := []string{"Semester", "Class", "Subject", "Teacher", "Hours", "Team"}
	rows := make([]map[string]string, 0, len(details))
	for _, d := range details {
		team := ""
		if d.TeamGroupID != nil {
			team = *d.TeamGroupID
		}
		rows = append(rows, map[string]string{
			"Semester": string(d.Semester),
			"Class":    d.ClassName,
			"Subject":  d.SubjectCode,
			"Teacher":  d.TeacherCode,
			"Hours":    formatDecimal(d.HoursPerWeek),
			"Team":     team,
		})
	}
	title := "Assignments"
	if filter.Semester != "" {
		title = fmt.Sprintf("Assignments Semester %s", filter.Semester)
	}
	return s.render(format, "assignments", title, export.Dataset{Headers: headers, Rows: rows})
}

func (s *ExportService) render(format ExportFormat, name, title string, data export.Dataset) (*ExportFile, error) {
	var (
		payload     []byte
		contentType string
		err         error
	)
	switch format {
	case ExportFormatCSV:
		payload, err = s.csv.Render(data)
		contentType = "text/csv"
	case ExportFormatPDF:
		payload, err = s.pdf.Render(data, title)
		contentType = "application/pdf"
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	filename := fmt.Sprintf("%s_%s.%s", name, s.now().UTC().Format("20060102_150405"), format)
	s.logger.Debug("export rendered", zap.String("file", filename), zap.Int("rows", len(data.Rows)))
	return &ExportFile{Filename: filename, ContentType: contentType, Data: payload}, nil
}

// formatDecimal prints hours without trailing zeros, e.g. 4, 1.5, 0.25.
func formatDecimal(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
