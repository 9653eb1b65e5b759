package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/workload-api/internal/models"
	"github.com/noah-isme/workload-api/internal/service"
	appErrors "github.com/noah-isme/workload-api/pkg/errors"
)

type fakeTeacherSrv struct {
	filter      models.TeacherFilter
	created     service.CreateTeacherRequest
	deactivated string
	err         error
}

func (f *fakeTeacherSrv) List(_ context.Context, filter models.TeacherFilter) ([]models.Teacher, *models.Pagination, error) {
	f.filter = filter
	return []models.Teacher{{ID: "t-1", ShortCode: "MUE"}}, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: 1}, f.err
}

func (f *fakeTeacherSrv) Get(_ context.Context, id string) (*models.Teacher, error) {
	if id != "t-1" {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
	}
	return &models.Teacher{ID: id, ShortCode: "MUE"}, nil
}

func (f *fakeTeacherSrv) Create(_ context.Context, req service.CreateTeacherRequest) (*models.Teacher, error) {
	f.created = req
	return &models.Teacher{ID: "t-new", ShortCode: req.ShortCode}, f.err
}

func (f *fakeTeacherSrv) Update(_ context.Context, id string, req service.UpdateTeacherRequest) (*models.Teacher, error) {
	return &models.Teacher{ID: id, ShortCode: req.ShortCode}, f.err
}

func (f *fakeTeacherSrv) Deactivate(_ context.Context, id string) error {
	f.deactivated = id
	return f.err
}

func TestTeacherHandlerListQuery(t *testing.T) {
	srv := &fakeTeacherSrv{}
	h := NewTeacherHandler(srv)

	c, rec := newTestContext(http.MethodGet, "/teachers?search=mue&active=false&page=2&limit=10&sort=name&order=desc", nil)
	h.List(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "mue", srv.filter.Search)
	require.NotNil(t, srv.filter.Active)
	assert.False(t, *srv.filter.Active)
	assert.Equal(t, 2, srv.filter.Page)
	assert.Equal(t, 10, srv.filter.PageSize)
	assert.Equal(t, "name", srv.filter.SortBy)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotNil(t, body["pagination"])
}

func TestTeacherHandlerGetNotFound(t *testing.T) {
	h := NewTeacherHandler(&fakeTeacherSrv{})

	c, rec := newTestContext(http.MethodGet, "/teachers/zzz", nil, gin.Param{Key: "id", Value: "zzz"})
	h.Get(c)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTeacherHandlerCreateAndDeactivate(t *testing.T) {
	srv := &fakeTeacherSrv{}
	h := NewTeacherHandler(srv)

	c, rec := newTestContext(http.MethodPost, "/teachers", jsonBody(map[string]interface{}{
		"name":           "Anna Mueller",
		"short_code":     "mue",
		"qualifications": []string{"M", "Ph"},
		"max_hours":      25,
	}))
	h.Create(c)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, []string{"M", "Ph"}, srv.created.Qualifications)

	c, rec = newTestContext(http.MethodDelete, "/teachers/t-1", nil, gin.Param{Key: "id", Value: "t-1"})
	h.Delete(c)
	c.Writer.WriteHeaderNow()
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "t-1", srv.deactivated)
}
