package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/workload-api/internal/dto"
	"github.com/noah-isme/workload-api/internal/models"
	"github.com/noah-isme/workload-api/internal/workload"
	appErrors "github.com/noah-isme/workload-api/pkg/errors"
	"github.com/noah-isme/workload-api/pkg/export"
)

type overviewStub struct {
	entries []dto.WorkloadEntry
	err     error
}

func (s overviewStub) Overview(ctx context.Context, includeInactive bool) ([]dto.WorkloadEntry, bool, error) {
	return s.entries, false, s.err
}

func newExportServiceForTest(t *testing.T, overview overviewStub, details *memAssignments) *ExportService {
	t.Helper()
	svc := NewExportService(overview, details, zap.NewNop(), export.NewCSVExporter(), export.NewPDFExporter())
	svc.now = func() time.Time { return time.Date(2026, 2, 3, 10, 4, 5, 0, time.UTC) }
	return svc
}

func TestExportServiceWorkloadCSV(t *testing.T) {
	overview := overviewStub{entries: []dto.WorkloadEntry{{
		Workload:  workload.Workload{TeacherID: "t-mue", Semester1Total: 22.5, Semester2Total: 20, CurrentHours: 22.5, MaxHours: 25, Percentage: 90},
		ShortCode: "MUE",
		Name:      "Anna Mueller",
		Active:    true,
	}}}
	svc := newExportServiceForTest(t, overview, &memAssignments{})

	file, err := svc.Workload(context.Background(), ExportFormatCSV, false)
	require.NoError(t, err)
	assert.Equal(t, "workload_20260203_100405.csv", file.Filename)
	assert.Equal(t, "text/csv", file.ContentType)

	lines := strings.Split(strings.TrimSpace(string(file.Data)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "Teacher,Name,Semester 1,Semester 2,Current,Max,Load (%)", lines[0])
	assert.Equal(t, "MUE,Anna Mueller,22.5,20,22.5,25,90.0", lines[1])
}

func TestExportServiceAssignmentsPDF(t *testing.T) {
	team := "T1"
	rec := record("a1", "t-mue", "s-m", "c-07a", models.SemesterFirst, 4)
	rec.TeamGroupID = &team
	svc := newExportServiceForTest(t, overviewStub{}, &memAssignments{records: []models.Assignment{rec}})

	file, err := svc.Assignments(context.Background(), ExportFormatPDF, models.AssignmentFilter{Semester: models.SemesterFirst})
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", file.ContentType)
	assert.True(t, strings.HasSuffix(file.Filename, ".pdf"))
	assert.True(t, strings.HasPrefix(string(file.Data), "%PDF"))
}

func TestExportServiceErrors(t *testing.T) {
	failing := overviewStub{err: appErrors.Clone(appErrors.ErrInternal, "boom")}
	svc := newExportServiceForTest(t, failing, &memAssignments{listErr: errors.New("timeout")})

	_, err := svc.Workload(context.Background(), ExportFormatCSV, false)
	require.Error(t, err)

	_, err = svc.Assignments(context.Background(), ExportFormatCSV, models.AssignmentFilter{})
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)

	_, err = ParseExportFormat("xlsx")
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	format, err := ParseExportFormat(" PDF ")
	require.NoError(t, err)
	assert.Equal(t, ExportFormatPDF, format)
}
