package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/campusdesk/college-admin-api/internal/models"
)

type failingCache struct{}

func (failingCache) Get(ctx context.Context, key string, dest interface{}) error {
	return errors.New("connection refused")
}

func (failingCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return errors.New("connection refused")
}

func (failingCache) DeleteByPattern(ctx context.Context, pattern string) error {
	return errors.New("connection refused")
}

func TestCacheServiceRoundTripRecordsMetrics(t *testing.T) {
	metrics := NewMetricsService()
	cache := NewCacheService(newMemoryCache(), metrics, time.Minute, nil, true)
	ctx := context.Background()

	var summary models.DashboardSummary
	assert.False(t, cache.Get(ctx, "dashboard:summary", &summary))

	cache.Set(ctx, "dashboard:summary", &models.DashboardSummary{ActiveTeachers: 4}, 0)
	assert.True(t, cache.Get(ctx, "dashboard:summary", &summary))
	assert.Equal(t, 4, summary.ActiveTeachers)

	snap := metrics.Snapshot()
	assert.Equal(t, uint64(1), snap.CacheHits)
	assert.Equal(t, uint64(1), snap.CacheMisses)
	assert.InDelta(t, 0.5, snap.CacheHitRatio, 0.0001)
}

func TestCacheServiceFailingStoreDegradesToMiss(t *testing.T) {
	cache := NewCacheService(failingCache{}, nil, 0, nil, true)
	ctx := context.Background()

	var summary models.DashboardSummary
	assert.False(t, cache.Get(ctx, "dashboard:summary", &summary))
	assert.NotPanics(t, func() {
		cache.Set(ctx, "dashboard:summary", summary, 0)
		cache.Invalidate(ctx, cacheNamespaceDashboard)
	})
}

func TestCacheServiceDisabled(t *testing.T) {
	store := newMemoryCache()
	cache := NewCacheService(store, nil, 0, nil, false)
	cache.Set(context.Background(), "coverage:all", []models.CoverageNeed{}, 0)
	assert.Empty(t, store.entries)
	assert.False(t, cache.Enabled())

	var nilCache *CacheService
	assert.False(t, nilCache.Enabled())
}

func TestCacheServiceInvalidateNamespaces(t *testing.T) {
	store := newMemoryCache()
	cache := NewCacheService(store, nil, 0, nil, true)
	ctx := context.Background()
	cache.Set(ctx, Key(cacheNamespaceCoverage, "all"), []models.CoverageNeed{}, 0)
	cache.Set(ctx, Key(cacheNamespaceDashboard, "summary"), models.DashboardSummary{}, 0)

	cache.Invalidate(ctx, cacheNamespaceCoverage, cacheNamespaceDashboard)
	assert.Empty(t, store.entries)
	assert.Equal(t, []string{"coverage:*", "dashboard:*"}, store.deleted)
}

func TestCacheKey(t *testing.T) {
	assert.Equal(t, "coverage:2025-03-10:IT", Key(cacheNamespaceCoverage, "2025-03-10", " ", "IT"))
	assert.Equal(t, "dashboard", Key(cacheNamespaceDashboard))
}
