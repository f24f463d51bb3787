package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/guarderia-api/internal/dto"
)

type failingCache struct{ *memoryCache }

func (f *failingCache) Get(context.Context, string, interface{}) error {
	return errors.New("redis: connection refused")
}

func TestCacheServiceStatusRoundTrip(t *testing.T) {
	repo := newMemoryCache()
	metrics := NewMetricsService()
	cache := NewCacheService(repo, metrics, time.Minute, zap.NewNop(), true)
	ctx := context.Background()

	_, hit := cache.Status(ctx, "child-1", testDay)
	assert.False(t, hit)

	cache.StoreStatus(ctx, dto.TodayStatus{ChildID: "child-1", Date: testDay, HasEntry: true}, 0)
	status, hit := cache.Status(ctx, "child-1", testDay)
	require.True(t, hit)
	assert.True(t, status.HasEntry)

	require.NoError(t, cache.ForgetStatuses(ctx, testDay, "child-1"))
	_, hit = cache.Status(ctx, "child-1", testDay)
	assert.False(t, hit)
}

func TestCacheServiceDisabledIsNoop(t *testing.T) {
	repo := newMemoryCache()
	cache := NewCacheService(repo, nil, 0, nil, false)
	ctx := context.Background()

	cache.StoreStatus(ctx, dto.TodayStatus{ChildID: "child-1", Date: testDay}, 0)
	assert.False(t, repo.has(StatusCacheKey("child-1", testDay)))
	assert.NoError(t, cache.ForgetStatuses(ctx, testDay, "child-1"))

	var nilCache *CacheService
	assert.False(t, nilCache.Enabled())
	_, hit := nilCache.Status(ctx, "child-1", testDay)
	assert.False(t, hit)
}

func TestCacheServiceBulkInvalidationDropsWholeDate(t *testing.T) {
	repo := newMemoryCache()
	cache := NewCacheService(repo, nil, time.Minute, zap.NewNop(), true)
	ctx := context.Background()

	other := testDay.AddDays(-1)
	cache.StoreStatus(ctx, dto.TodayStatus{ChildID: "child-1", Date: testDay}, 0)
	cache.StoreStatus(ctx, dto.TodayStatus{ChildID: "child-1", Date: other}, 0)

	ids := make([]string, bulkInvalidation+1)
	for i := range ids {
		ids[i] = "child-x"
	}
	require.NoError(t, cache.ForgetStatuses(ctx, testDay, ids...))
	assert.Equal(t, []string{"attendance:status:*:" + testDay.String()}, repo.patterns)
	assert.False(t, repo.has(StatusCacheKey("child-1", testDay)))
	assert.True(t, repo.has(StatusCacheKey("child-1", other)))
}

func TestCacheServiceReadFailureIsAMiss(t *testing.T) {
	repo := &failingCache{memoryCache: newMemoryCache()}
	cache := NewCacheService(repo, nil, time.Minute, zap.NewNop(), true)

	_, hit := cache.Status(context.Background(), "child-1", testDay)
	assert.False(t, hit)
}
