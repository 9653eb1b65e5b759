package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/workload-api/internal/dto"
	"github.com/noah-isme/workload-api/internal/models"
	"github.com/noah-isme/workload-api/internal/workload"
	appErrors "github.com/noah-isme/workload-api/pkg/errors"
)

type txProviderMock struct {
	db *sqlx.DB
}

func newTxProviderMock(t *testing.T) (txProvider, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return &txProviderMock{db: sqlx.NewDb(db, "sqlmock")}, mock
}

func (t *txProviderMock) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return t.db.BeginTxx(ctx, opts)
}

func matrixRecords() []models.Assignment {
	return []models.Assignment{
		record("a1", "t-mue", "s-m", "c-07a", models.SemesterFirst, 4),
		record("a2", "t-sch", "s-d", "c-07a", models.SemesterFirst, 5),
		record("a3", "t-mue", "s-ph", "c-07a", models.SemesterFirst, 2),
		record("a4", "t-mue", "s-m", "c-07a", models.SemesterSecond, 4),
	}
}

func matrixRequest() dto.MatrixSaveRequest {
	return dto.MatrixSaveRequest{Cells: []dto.MatrixCell{
		{TeacherID: "t-mue", SubjectID: "s-m", Hours: 5},
		{TeacherID: "t-sch", SubjectID: "s-d", Hours: 5},
		{TeacherID: "t-mue", SubjectID: "s-ph", Hours: 0},
		{TeacherID: "t-sch", SubjectID: "s-m", Hours: 3},
	}}
}

func TestMatrixServiceSaveAtomic(t *testing.T) {
	tx, mock := newTxProviderMock(t)
	store := &memAssignments{records: matrixRecords()}
	invalidator := &countingInvalidator{}
	svc := NewMatrixService(MatrixServiceParams{
		Assignments: store,
		Classes:     classLookup{newSchool()},
		Tx:          tx,
		AtomicSave:  true,
		Workloads:   invalidator,
	})

	mock.ExpectBegin()
	mock.ExpectCommit()

	result, err := svc.Save(context.Background(), "c-07a", models.SemesterFirst, matrixRequest())
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())

	require.Len(t, result.Intents, 3)
	assert.Equal(t, workload.IntentDelete, result.Intents[0].Kind)
	assert.Equal(t, workload.IntentUpdate, result.Intents[1].Kind)
	assert.Equal(t, workload.IntentCreate, result.Intents[2].Kind)
	assert.Equal(t, 3, result.Applied)
	assert.True(t, result.Atomic)
	assert.Equal(t, 1, invalidator.calls)

	for _, exec := range store.execs {
		_, isTx := exec.(*sqlx.Tx)
		assert.True(t, isTx)
	}

	byID := map[string]models.Assignment{}
	for _, a := range store.snapshot() {
		byID[a.ID] = a
	}
	assert.NotContains(t, byID, "a3")
	assert.Equal(t, 5.0, byID["a1"].HoursPerWeek)
	assert.Equal(t, 4.0, byID["a4"].HoursPerWeek)
	assert.Len(t, byID, 4)
}

func TestMatrixServiceSaveAtomicRollsBack(t *testing.T) {
	tx, mock := newTxProviderMock(t)
	store := &memAssignments{records: matrixRecords()}
	store.failWrite = func(a models.Assignment) error {
		if a.TeacherID == "t-sch" && a.SubjectID == "s-m" {
			return errors.New("constraint violation")
		}
		return nil
	}
	invalidator := &countingInvalidator{}
	svc := NewMatrixService(MatrixServiceParams{
		Assignments: store,
		Classes:     classLookup{newSchool()},
		Tx:          tx,
		AtomicSave:  true,
		Workloads:   invalidator,
	})

	mock.ExpectBegin()
	mock.ExpectRollback()

	_, err := svc.Save(context.Background(), "c-07a", models.SemesterFirst, matrixRequest())
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErr.Code)
	assert.Contains(t, appErr.Message, "teacher t-sch subject s-m")
	assert.NoError(t, mock.ExpectationsWereMet())
	assert.Zero(t, invalidator.calls)
}

func TestMatrixServiceSaveSequentialPartial(t *testing.T) {
	store := &memAssignments{records: matrixRecords()}
	store.failWrite = func(a models.Assignment) error {
		if a.TeacherID == "t-sch" && a.SubjectID == "s-m" {
			return errors.New("constraint violation")
		}
		return nil
	}
	svc := NewMatrixService(MatrixServiceParams{
		Assignments: store,
		Classes:     classLookup{newSchool()},
		AtomicSave:  true,
	})

	result, err := svc.Save(context.Background(), "c-07a", models.SemesterFirst, matrixRequest())
	require.NoError(t, err)
	assert.False(t, result.Atomic)
	assert.Equal(t, 2, result.Applied)
	require.Len(t, result.Failed, 1)
	assert.Equal(t, workload.IntentCreate, result.Failed[0].Intent.Kind)
	assert.Equal(t, "constraint violation", result.Failed[0].Reason)
}

func TestMatrixServiceDryRun(t *testing.T) {
	store := &memAssignments{records: matrixRecords()}
	svc := NewMatrixService(MatrixServiceParams{Assignments: store, Classes: classLookup{newSchool()}})

	req := matrixRequest()
	req.DryRun = true
	result, err := svc.Save(context.Background(), "c-07a", models.SemesterFirst, req)
	require.NoError(t, err)
	assert.Len(t, result.Intents, 3)
	assert.Zero(t, result.Applied)
	assert.Empty(t, store.execs)
}

func TestMatrixServiceSaveErrors(t *testing.T) {
	svc := NewMatrixService(MatrixServiceParams{Assignments: &memAssignments{}, Classes: classLookup{newSchool()}})
	ctx := context.Background()

	_, err := svc.Save(ctx, "missing", models.SemesterFirst, matrixRequest())
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	_, err = svc.Save(ctx, "c-07a", "3", matrixRequest())
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.Save(ctx, "c-07a", models.SemesterFirst, dto.MatrixSaveRequest{})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
