package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/campusdesk/college-admin-api/internal/models"
	appErrors "github.com/campusdesk/college-admin-api/pkg/errors"
)

type fakeDashboardRepo struct {
	summary    models.DashboardSummary
	err        error
	calls      int
	today      string
	monthStart string
}

func (f *fakeDashboardRepo) Summary(ctx context.Context, today, monthStart string) (*models.DashboardSummary, error) {
	f.calls++
	f.today, f.monthStart = today, monthStart
	if f.err != nil {
		return nil, f.err
	}
	s := f.summary
	return &s, nil
}

func newDashboardFixture(repo *fakeDashboardRepo, cache *CacheService) *DashboardService {
	svc := NewDashboardService(repo, cache, zap.NewNop(), DashboardServiceConfig{})
	svc.now = func() time.Time { return time.Date(2025, time.March, 12, 7, 0, 0, 0, time.UTC) }
	return svc
}

func TestDashboardServiceSummaryCaches(t *testing.T) {
	repo := &fakeDashboardRepo{summary: models.DashboardSummary{ActiveTeachers: 40, LecturesNeedingCover: 3}}
	store := newMemoryCache()
	svc := newDashboardFixture(repo, NewCacheService(store, nil, 0, nil, true))
	ctx := context.Background()

	first, hit, err := svc.Summary(ctx)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 40, first.ActiveTeachers)
	assert.Equal(t, "2025-03-12", repo.today)
	assert.Equal(t, "2025-03-01", repo.monthStart)
	assert.Contains(t, store.entries, "dashboard:summary:2025-03-12")

	second, hit, err := svc.Summary(ctx)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 3, second.LecturesNeedingCover)
	assert.Equal(t, 1, repo.calls)
}

func TestDashboardServiceWithoutCache(t *testing.T) {
	repo := &fakeDashboardRepo{}
	svc := newDashboardFixture(repo, NewCacheService(newMemoryCache(), nil, 0, nil, false))

	_, hit, err := svc.Summary(context.Background())
	require.NoError(t, err)
	assert.False(t, hit)
	_, _, err = svc.Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, repo.calls)
}

func TestDashboardServiceSummaryError(t *testing.T) {
	repo := &fakeDashboardRepo{err: errors.New("db down")}
	svc := newDashboardFixture(repo, nil)

	_, _, err := svc.Summary(context.Background())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
}
