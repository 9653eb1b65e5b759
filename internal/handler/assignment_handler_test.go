package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/workload-api/internal/dto"
	"github.com/noah-isme/workload-api/internal/models"
	"github.com/noah-isme/workload-api/internal/workload"
	appErrors "github.com/noah-isme/workload-api/pkg/errors"
)

type fakeAssignmentSrv struct {
	lastFilter models.AssignmentFilter
	lastCreate dto.AssignmentRequest
	lastID     string
	views      []dto.AssignmentView
	check      *workload.ConflictResult
	result     *dto.AssignmentResult
	err        error
}

func (f *fakeAssignmentSrv) List(_ context.Context, filter models.AssignmentFilter) ([]dto.AssignmentView, error) {
	f.lastFilter = filter
	return f.views, f.err
}

func (f *fakeAssignmentSrv) Check(_ context.Context, req dto.AssignmentRequest) (*workload.ConflictResult, error) {
	f.lastCreate = req
	return f.check, f.err
}

func (f *fakeAssignmentSrv) Create(_ context.Context, req dto.AssignmentRequest) (*dto.AssignmentResult, error) {
	f.lastCreate = req
	return f.result, f.err
}

func (f *fakeAssignmentSrv) Update(_ context.Context, id string, _ dto.AssignmentUpdateRequest) (*dto.AssignmentResult, error) {
	f.lastID = id
	return f.result, f.err
}

func (f *fakeAssignmentSrv) Delete(_ context.Context, id string) error {
	f.lastID = id
	return f.err
}

func TestAssignmentHandlerListParsesFilter(t *testing.T) {
	srv := &fakeAssignmentSrv{views: []dto.AssignmentView{{
		AssignmentDetail: models.AssignmentDetail{Assignment: models.Assignment{ID: "a1"}},
		Conflict:         workload.ConflictResult{Severity: workload.SeverityWarning},
	}}}
	h := NewAssignmentHandler(srv)

	c, rec := newTestContext(http.MethodGet, "/assignments?teacher_id=t-1&class_id=c-1&semester=2", nil)
	h.List(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.AssignmentFilter{TeacherID: "t-1", ClassID: "c-1", Semester: models.SemesterSecond}, srv.lastFilter)

	var views []map[string]interface{}
	require.NoError(t, json.Unmarshal(decodeEnvelope(rec).Data, &views))
	require.Len(t, views, 1)
	assert.Equal(t, "a1", views[0]["id"])
	assert.Equal(t, "warning", views[0]["conflict"].(map[string]interface{})["severity"])

	meta := decodeEnvelope(rec).Meta
	assert.Equal(t, 1.0, meta["count"])
	assert.Equal(t, map[string]interface{}{"warning": 1.0}, meta["conflicts"])
}

func TestAssignmentHandlerListRejectsSemester(t *testing.T) {
	h := NewAssignmentHandler(&fakeAssignmentSrv{})

	c, rec := newTestContext(http.MethodGet, "/assignments?semester=3", nil)
	h.List(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAssignmentHandlerCreate(t *testing.T) {
	srv := &fakeAssignmentSrv{result: &dto.AssignmentResult{
		Assignment: models.Assignment{ID: "a1", TeacherID: "t-1"},
		Conflict:   workload.ConflictResult{Severity: workload.SeverityOK},
	}}
	h := NewAssignmentHandler(srv)

	c, rec := newTestContext(http.MethodPost, "/assignments", jsonBody(map[string]interface{}{
		"teacher_id":     "t-1",
		"subject_id":     "s-1",
		"class_id":       "c-1",
		"semester":       "1",
		"hours_per_week": 4,
		"force":          true,
	}))
	h.Create(c)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.True(t, srv.lastCreate.Force)
	assert.Equal(t, 4.0, srv.lastCreate.HoursPerWeek)
}

func TestAssignmentHandlerCreateConflict(t *testing.T) {
	srv := &fakeAssignmentSrv{err: appErrors.Clone(appErrors.ErrAssignmentConflict, "MUE would teach 27 of 25 hours")}
	h := NewAssignmentHandler(srv)

	c, rec := newTestContext(http.MethodPost, "/assignments", jsonBody(map[string]interface{}{"teacher_id": "t-1"}))
	h.Create(c)

	assert.Equal(t, http.StatusConflict, rec.Code)
	envelope := decodeEnvelope(rec)
	assert.Equal(t, "ASSIGNMENT_CONFLICT", envelope.Error["code"])
}

func TestAssignmentHandlerCreateBadJSON(t *testing.T) {
	h := NewAssignmentHandler(&fakeAssignmentSrv{})

	c, rec := newTestContext(http.MethodPost, "/assignments", strings.NewReader("{"))
	h.Create(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", decodeEnvelope(rec).Error["code"])
}

func TestAssignmentHandlerCheck(t *testing.T) {
	srv := &fakeAssignmentSrv{check: &workload.ConflictResult{Severity: workload.SeverityError, Kind: workload.ConflictQualification}}
	h := NewAssignmentHandler(srv)

	c, rec := newTestContext(http.MethodPost, "/assignments/check", jsonBody(map[string]interface{}{"teacher_id": "t-1"}))
	h.Check(c)

	require.Equal(t, http.StatusOK, rec.Code)
	var result workload.ConflictResult
	require.NoError(t, json.Unmarshal(decodeEnvelope(rec).Data, &result))
	assert.Equal(t, workload.ConflictQualification, result.Kind)
}

func TestAssignmentHandlerUpdateAndDelete(t *testing.T) {
	srv := &fakeAssignmentSrv{result: &dto.AssignmentResult{}}
	h := NewAssignmentHandler(srv)

	c, rec := newTestContext(http.MethodPut, "/assignments/a9", jsonBody(map[string]interface{}{"hours_per_week": 2}), gin.Param{Key: "id", Value: "a9"})
	h.Update(c)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "a9", srv.lastID)

	c, rec = newTestContext(http.MethodDelete, "/assignments/a7", nil, gin.Param{Key: "id", Value: "a7"})
	h.Delete(c)
	c.Writer.WriteHeaderNow()
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "a7", srv.lastID)
}
