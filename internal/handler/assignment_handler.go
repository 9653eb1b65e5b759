package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/workload-api/internal/dto"
	"github.com/noah-isme/workload-api/internal/middleware"
	"github.com/noah-isme/workload-api/internal/models"
	"github.com/noah-isme/workload-api/internal/workload"
	appErrors "github.com/noah-isme/workload-api/pkg/errors"
	"github.com/noah-isme/workload-api/pkg/response"
)

type assignmentService interface {
	List(ctx context.Context, filter models.AssignmentFilter) ([]dto.AssignmentView, error)
	Check(ctx context.Context, req dto.AssignmentRequest) (*workload.ConflictResult, error)
	Create(ctx context.Context, req dto.AssignmentRequest) (*dto.AssignmentResult, error)
	Update(ctx context.Context, id string, req dto.AssignmentUpdateRequest) (*dto.AssignmentResult, error)
	Delete(ctx context.Context, id string) error
}

// AssignmentHandler exposes assignment endpoints.
type AssignmentHandler struct {
	service assignmentService
}

// NewAssignmentHandler constructs an AssignmentHandler.
func NewAssignmentHandler(svc assignmentService) *AssignmentHandler {
	return &AssignmentHandler{service: svc}
}

// List godoc
// @Summary List assignments with their conflict classification
// @Tags Assignments
// @Produce json
// @Param teacher_id query string false "Teacher ID"
// @Param class_id query string false "Class ID"
// @Param subject_id query string false "Subject ID"
// @Param semester query string false "Semester (1 or 2)"
// @Success 200 {object} response.Envelope
// @Router /assignments [get]
func (h *AssignmentHandler) List(c *gin.Context) {
	filter, err := assignmentFilterFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	views, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	severities := map[workload.Severity]int{}
	for _, v := range views {
		severities[v.Conflict.Severity]++
	}
	middleware.SetMeta(c, "count", len(views))
	middleware.SetMeta(c, "conflicts", severities)
	response.JSON(c, http.StatusOK, views, nil, middleware.ExtractMeta(c))
}

// Check godoc
// @Summary Classify a proposed assignment without saving it
// @Tags Assignments
// @Accept json
// @Produce json
// @Param payload body dto.AssignmentRequest true "Proposed assignment"
// @Success 200 {object} response.Envelope
// @Router /assignments/check [post]
func (h *AssignmentHandler) Check(c *gin.Context) {
	var req dto.AssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid assignment payload"))
		return
	}
	result, err := h.service.Check(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Create godoc
// @Summary Create assignment
// @Description Refused with 409 ASSIGNMENT_CONFLICT when the assignment classifies as an error, unless force is set.
// @Tags Assignments
// @Accept json
// @Produce json
// @Param payload body dto.AssignmentRequest true "Assignment payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /assignments [post]
func (h *AssignmentHandler) Create(c *gin.Context) {
	var req dto.AssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid assignment payload"))
		return
	}
	result, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Update godoc
// @Summary Update assignment hours
// @Tags Assignments
// @Accept json
// @Produce json
// @Param id path string true "Assignment ID"
// @Param payload body dto.AssignmentUpdateRequest true "Assignment payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /assignments/{id} [put]
func (h *AssignmentHandler) Update(c *gin.Context) {
	var req dto.AssignmentUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid assignment payload"))
		return
	}
	result, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Delete godoc
// @Summary Delete assignment
// @Tags Assignments
// @Param id path string true "Assignment ID"
// @Success 204
// @Router /assignments/{id} [delete]
func (h *AssignmentHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

func assignmentFilterFromQuery(c *gin.Context) (models.AssignmentFilter, error) {
	filter := models.AssignmentFilter{
		TeacherID: strings.TrimSpace(c.Query("teacher_id")),
		ClassID:   strings.TrimSpace(c.Query("class_id")),
		SubjectID: strings.TrimSpace(c.Query("subject_id")),
	}
	if raw := strings.TrimSpace(c.Query("semester")); raw != "" {
		semester, err := models.ParseSemester(raw)
		if err != nil {
			return filter, appErrors.Clone(appErrors.ErrValidation, "semester must be 1 or 2")
		}
		filter.Semester = semester
	}
	return filter, nil
}
