package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheServiceNamespacesKeys(t *testing.T) {
	repo := &stubCacheRepo{store: map[string][]byte{}}
	metrics := NewMetricsService()
	workloads := NewCacheService(repo, metrics, "workload", time.Minute, nil, true)
	imports := NewCacheService(repo, metrics, "import", time.Minute, nil, true)
	ctx := context.Background()

	require.NoError(t, workloads.Set(ctx, "teacher:1", map[string]int{"hours": 4}, 0))
	require.NoError(t, imports.Set(ctx, "job-1", map[string]string{"status": "queued"}, 0))
	assert.Contains(t, repo.store, "workload:teacher:1")
	assert.Contains(t, repo.store, "import:job-1")

	var out map[string]int
	hit, err := workloads.Get(ctx, "teacher:1", &out)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 4, out["hours"])

	hit, err = workloads.Get(ctx, "teacher:2", &out)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, workloads.Invalidate(ctx, "*"))
	assert.NotContains(t, repo.store, "workload:teacher:1")
	assert.Contains(t, repo.store, "import:job-1")

	snapshot := metrics.Snapshot()
	assert.Equal(t, uint64(1), snapshot.CacheHits)
	assert.Equal(t, uint64(1), snapshot.CacheMisses)
}

func TestCacheServiceDisabled(t *testing.T) {
	repo := &stubCacheRepo{store: map[string][]byte{}}
	cache := NewCacheService(repo, nil, "workload", 0, nil, false)

	require.NoError(t, cache.Set(context.Background(), "k", 1, 0))
	assert.Empty(t, repo.store)
	hit, err := cache.Get(context.Background(), "k", new(int))
	require.NoError(t, err)
	assert.False(t, hit)

	var nilCache *CacheService
	assert.False(t, nilCache.Enabled())
}
