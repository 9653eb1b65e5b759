package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/workload-api/internal/dto"
	"github.com/noah-isme/workload-api/internal/models"
	"github.com/noah-isme/workload-api/pkg/response"
)

type backfillService interface {
	Preview(ctx context.Context, filter models.AssignmentFilter) (*dto.BackfillPreview, error)
	Apply(ctx context.Context, filter models.AssignmentFilter) (*dto.BackfillResult, error)
	Coverage(ctx context.Context, filter models.AssignmentFilter) (*dto.CoverageReport, error)
	Discrepancies(ctx context.Context, filter models.AssignmentFilter) (*dto.DiscrepancyReport, error)
}

// BackfillHandler exposes second-semester backfill and coverage reports.
type BackfillHandler struct {
	service backfillService
}

// NewBackfillHandler constructs a BackfillHandler.
func NewBackfillHandler(svc backfillService) *BackfillHandler {
	return &BackfillHandler{service: svc}
}

// Preview godoc
// @Summary Preview second-semester backfill
// @Tags Backfill
// @Produce json
// @Param teacher_id query string false "Teacher ID"
// @Param class_id query string false "Class ID"
// @Success 200 {object} response.Envelope
// @Router /backfill/preview [get]
func (h *BackfillHandler) Preview(c *gin.Context) {
	h.respond(c, func(ctx context.Context, f models.AssignmentFilter) (interface{}, error) {
		return h.service.Preview(ctx, f)
	})
}

// Apply godoc
// @Summary Create missing second-semester assignments
// @Description Each record is written on its own; failures are listed and do not undo the others.
// @Tags Backfill
// @Produce json
// @Param teacher_id query string false "Teacher ID"
// @Param class_id query string false "Class ID"
// @Success 200 {object} response.Envelope
// @Router /backfill/apply [post]
func (h *BackfillHandler) Apply(c *gin.Context) {
	h.respond(c, func(ctx context.Context, f models.AssignmentFilter) (interface{}, error) {
		return h.service.Apply(ctx, f)
	})
}

// Coverage godoc
// @Summary Semester coverage per teacher and subject
// @Tags Reports
// @Produce json
// @Param teacher_id query string false "Teacher ID"
// @Success 200 {object} response.Envelope
// @Router /reports/coverage [get]
func (h *BackfillHandler) Coverage(c *gin.Context) {
	h.respond(c, func(ctx context.Context, f models.AssignmentFilter) (interface{}, error) {
		return h.service.Coverage(ctx, f)
	})
}

// Discrepancies godoc
// @Summary Slots with different hours in the two semesters
// @Tags Reports
// @Produce json
// @Param teacher_id query string false "Teacher ID"
// @Param class_id query string false "Class ID"
// @Success 200 {object} response.Envelope
// @Router /reports/discrepancies [get]
func (h *BackfillHandler) Discrepancies(c *gin.Context) {
	h.respond(c, func(ctx context.Context, f models.AssignmentFilter) (interface{}, error) {
		return h.service.Discrepancies(ctx, f)
	})
}

func (h *BackfillHandler) respond(c *gin.Context, fn func(context.Context, models.AssignmentFilter) (interface{}, error)) {
	filter, err := assignmentFilterFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	data, err := fn(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, data, nil)
}
