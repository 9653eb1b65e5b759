package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/workload-api/internal/models"
	appErrors "github.com/noah-isme/workload-api/pkg/errors"
)

func newWorkloadFixture(cacheEnabled bool, records ...models.Assignment) (*WorkloadService, *memAssignments, *stubCacheRepo) {
	school := newSchool()
	store := &memAssignments{records: records}
	repo := &stubCacheRepo{store: map[string][]byte{}}
	cache := NewCacheService(repo, nil, "workload", time.Minute, nil, cacheEnabled)
	svc := NewWorkloadService(WorkloadServiceParams{
		Teachers:    teacherLookup{school},
		Assignments: store,
		Cache:       cache,
	})
	return svc, store, repo
}

func TestWorkloadServiceTeacher(t *testing.T) {
	svc, _, _ := newWorkloadFixture(false,
		record("a1", "t-mue", "s-m", "c-07a", models.SemesterFirst, 10),
		record("a2", "t-mue", "s-m", "c-07a", models.SemesterFirst, 12),
		record("a3", "t-mue", "s-ph", "c-08b", models.SemesterSecond, 4),
		record("a4", "t-sch", "s-d", "c-07a", models.SemesterFirst, 6),
	)

	entry, hit, err := svc.Teacher(context.Background(), "t-mue")
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "MUE", entry.ShortCode)
	// duplicate slot keeps the larger record
	assert.Equal(t, 12.0, entry.Semester1Total)
	assert.Equal(t, 4.0, entry.Semester2Total)
	assert.Equal(t, 12.0, entry.CurrentHours)
	assert.Equal(t, 25.0, entry.MaxHours)
	assert.InDelta(t, 48.0, entry.Percentage, 0.0001)

	_, _, err = svc.Teacher(context.Background(), "missing")
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestWorkloadServiceCachesUntilInvalidated(t *testing.T) {
	svc, store, repo := newWorkloadFixture(true, record("a1", "t-mue", "s-m", "c-07a", models.SemesterFirst, 10))
	ctx := context.Background()

	_, hit, err := svc.Teacher(ctx, "t-mue")
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Contains(t, repo.store, "workload:teacher:t-mue")

	store.records = append(store.records, record("a2", "t-mue", "s-ph", "c-07a", models.SemesterFirst, 5))

	cached, hit, err := svc.Teacher(ctx, "t-mue")
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 10.0, cached.CurrentHours)

	svc.Invalidate(ctx)
	assert.Empty(t, repo.store)

	fresh, hit, err := svc.Teacher(ctx, "t-mue")
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 15.0, fresh.CurrentHours)
}

func TestWorkloadServiceOverview(t *testing.T) {
	svc, _, _ := newWorkloadFixture(true,
		record("a1", "t-mue", "s-m", "c-07a", models.SemesterFirst, 10),
		record("a2", "t-sch", "s-d", "c-07a", models.SemesterSecond, 15),
		record("a3", "t-old", "s-m", "c-08b", models.SemesterFirst, 9),
	)
	ctx := context.Background()

	entries, hit, err := svc.Overview(ctx, false)
	require.NoError(t, err)
	assert.False(t, hit)
	require.Len(t, entries, 2)
	assert.Equal(t, "SCH", entries[0].ShortCode)
	assert.InDelta(t, 75.0, entries[0].Percentage, 0.0001)
	assert.Equal(t, "MUE", entries[1].ShortCode)

	all, _, err := svc.Overview(ctx, true)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "OLD", all[0].ShortCode)
	assert.False(t, all[0].Active)

	_, hit, err = svc.Overview(ctx, false)
	require.NoError(t, err)
	assert.True(t, hit)
}

func TestWorkloadServiceInvalidateNil(t *testing.T) {
	var svc *WorkloadService
	assert.NotPanics(t, func() { svc.Invalidate(context.Background()) })
}
