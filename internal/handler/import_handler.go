package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/workload-api/internal/dto"
	"github.com/noah-isme/workload-api/internal/service"
	appErrors "github.com/noah-isme/workload-api/pkg/errors"
	"github.com/noah-isme/workload-api/pkg/response"
)

// maxUploadBytes bounds CSV uploads.
const maxUploadBytes = 8 << 20

type importService interface {
	Run(ctx context.Context, req dto.ImportRequest) (*dto.ImportSummary, error)
	Submit(ctx context.Context, req dto.ImportRequest) (*dto.ImportJob, error)
	Job(ctx context.Context, id string) (*dto.ImportJob, error)
}

// ImportHandler accepts bulk assignment imports.
type ImportHandler struct {
	service importService
}

// NewImportHandler constructs an ImportHandler.
func NewImportHandler(svc importService) *ImportHandler {
	return &ImportHandler{service: svc}
}

// Import godoc
// @Summary Import assignment rows
// @Description Rows are read as teacher, class, subject, hours[, distribution[, team]] unless headers name the columns.
// @Tags Imports
// @Accept json
// @Produce json
// @Param async query bool false "Queue the import and return a job"
// @Param payload body dto.ImportRequest true "Rows"
// @Success 200 {object} response.Envelope
// @Success 202 {object} response.Envelope
// @Router /imports [post]
func (h *ImportHandler) Import(c *gin.Context) {
	var req dto.ImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid import payload"))
		return
	}
	h.dispatch(c, req)
}

// ImportCSV godoc
// @Summary Import assignments from a CSV upload
// @Description Semicolon and comma delimiters are detected from the first line.
// @Tags Imports
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "CSV file"
// @Param header query bool false "First line is a header" default(true)
// @Param async query bool false "Queue the import and return a job"
// @Success 200 {object} response.Envelope
// @Success 202 {object} response.Envelope
// @Router /imports/csv [post]
func (h *ImportHandler) ImportCSV(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes)
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "file is required"))
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "unable to read upload"))
		return
	}
	defer file.Close()

	hasHeader := true
	if raw := c.Query("header"); raw != "" {
		if v, err := strconv.ParseBool(raw); err == nil {
			hasHeader = v
		}
	}
	req, err := service.ParseCSV(file, hasHeader)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid csv"))
		return
	}
	h.dispatch(c, req)
}

// Job godoc
// @Summary State of an asynchronous import
// @Tags Imports
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Router /imports/{id} [get]
func (h *ImportHandler) Job(c *gin.Context) {
	job, err := h.service.Job(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, job, nil)
}

func (h *ImportHandler) dispatch(c *gin.Context, req dto.ImportRequest) {
	if async, _ := strconv.ParseBool(c.Query("async")); async {
		job, err := h.service.Submit(c.Request.Context(), req)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.JSON(c, http.StatusAccepted, job, nil)
		return
	}
	summary, err := h.service.Run(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}
