package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/workload-api/internal/dto"
	"github.com/noah-isme/workload-api/internal/models"
	appErrors "github.com/noah-isme/workload-api/pkg/errors"
	"github.com/noah-isme/workload-api/pkg/response"
)

type matrixService interface {
	Save(ctx context.Context, classID string, semester models.Semester, req dto.MatrixSaveRequest) (*dto.MatrixSaveResult, error)
}

// MatrixHandler saves edits of a class's teacher/subject matrix.
type MatrixHandler struct {
	service matrixService
}

// NewMatrixHandler constructs a MatrixHandler.
func NewMatrixHandler(svc matrixService) *MatrixHandler {
	return &MatrixHandler{service: svc}
}

// Save godoc
// @Summary Save matrix edits for a class and semester
// @Description Cells with zero hours remove the assignment. With dry_run the computed changes are returned without saving.
// @Tags Matrix
// @Accept json
// @Produce json
// @Param id path string true "Class ID"
// @Param semester path string true "Semester (1 or 2)"
// @Param payload body dto.MatrixSaveRequest true "Staged cells"
// @Success 200 {object} response.Envelope
// @Router /classes/{id}/matrix/{semester} [post]
func (h *MatrixHandler) Save(c *gin.Context) {
	semester, err := models.ParseSemester(c.Param("semester"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "semester must be 1 or 2"))
		return
	}
	var req dto.MatrixSaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid matrix payload"))
		return
	}
	result, err := h.service.Save(c.Request.Context(), c.Param("id"), semester, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
