package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/workload-api/internal/dto"
	"github.com/noah-isme/workload-api/internal/middleware"
	"github.com/noah-isme/workload-api/internal/models"
	"github.com/noah-isme/workload-api/internal/service"
	"github.com/noah-isme/workload-api/pkg/response"
)

type workloadReader interface {
	Teacher(ctx context.Context, teacherID string) (*dto.WorkloadEntry, bool, error)
	Overview(ctx context.Context, includeInactive bool) ([]dto.WorkloadEntry, bool, error)
}

type reportExporter interface {
	Workload(ctx context.Context, format service.ExportFormat, includeInactive bool) (*service.ExportFile, error)
	Assignments(ctx context.Context, format service.ExportFormat, filter models.AssignmentFilter) (*service.ExportFile, error)
}

// WorkloadHandler serves teacher workloads and rendered reports.
type WorkloadHandler struct {
	workloads workloadReader
	exports   reportExporter
}

// NewWorkloadHandler constructs a WorkloadHandler.
func NewWorkloadHandler(workloads workloadReader, exports reportExporter) *WorkloadHandler {
	return &WorkloadHandler{workloads: workloads, exports: exports}
}

// Teacher godoc
// @Summary Workload of one teacher
// @Tags Workload
// @Produce json
// @Param id path string true "Teacher ID"
// @Success 200 {object} response.Envelope
// @Router /teachers/{id}/workload [get]
func (h *WorkloadHandler) Teacher(c *gin.Context) {
	entry, cacheHit, err := h.workloads.Teacher(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, entry, nil, middleware.ExtractMeta(c))
}

// Overview godoc
// @Summary School-wide workload overview, heaviest load first
// @Tags Workload
// @Produce json
// @Param include_inactive query bool false "Include inactive teachers"
// @Success 200 {object} response.Envelope
// @Router /workload [get]
func (h *WorkloadHandler) Overview(c *gin.Context) {
	entries, cacheHit, err := h.workloads.Overview(c.Request.Context(), includeInactive(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, entries, nil, middleware.ExtractMeta(c))
}

// Export godoc
// @Summary Download the workload overview
// @Tags Workload
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv or pdf" default(csv)
// @Param include_inactive query bool false "Include inactive teachers"
// @Success 200 {file} file
// @Router /workload/export [get]
func (h *WorkloadHandler) Export(c *gin.Context) {
	format, err := service.ParseExportFormat(c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	file, err := h.exports.Workload(c.Request.Context(), format, includeInactive(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Data)
}

// ExportAssignments godoc
// @Summary Download assignments
// @Tags Assignments
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv or pdf" default(csv)
// @Param teacher_id query string false "Teacher ID"
// @Param class_id query string false "Class ID"
// @Param semester query string false "Semester (1 or 2)"
// @Success 200 {file} file
// @Router /assignments/export [get]
func (h *WorkloadHandler) ExportAssignments(c *gin.Context) {
	format, err := service.ParseExportFormat(c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	filter, err := assignmentFilterFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	file, err := h.exports.Assignments(c.Request.Context(), format, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Data)
}

func includeInactive(c *gin.Context) bool {
	v, _ := strconv.ParseBool(c.Query("include_inactive"))
	return v
}
