package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/campusdesk/college-admin-api/internal/models"
	"github.com/campusdesk/college-admin-api/internal/substitution"
	appErrors "github.com/campusdesk/college-admin-api/pkg/errors"
)

type dashboardRepository interface {
	Summary(ctx context.Context, today, monthStart string) (*models.DashboardSummary, error)
}

// DashboardServiceConfig tunes dashboard behaviour.
type DashboardServiceConfig struct {
	CacheTTL time.Duration
}

// DashboardService composes the admin dashboard summary.
type DashboardService struct {
	repo   dashboardRepository
	cache  *CacheService
	logger *zap.Logger
	cfg    DashboardServiceConfig
	now    func() time.Time
}

// NewDashboardService constructs a DashboardService.
func NewDashboardService(repo dashboardRepository, cache *CacheService, logger *zap.Logger, cfg DashboardServiceConfig) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 30 * time.Second
	}
	return &DashboardService{repo: repo, cache: cache, logger: logger, cfg: cfg, now: time.Now}
}

// Summary returns today's headline counts and whether they came from cache.
func (s *DashboardService) Summary(ctx context.Context) (*models.DashboardSummary, bool, error) {
	monthStart, today := substitution.MonthWindow(s.now().UTC())
	key := Key(cacheNamespaceDashboard, "summary", today)

	var cached models.DashboardSummary
	if s.cache.Get(ctx, key, &cached) {
		return &cached, true, nil
	}

	summary, err := s.repo.Summary(ctx, today, monthStart)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load dashboard summary")
	}
	summary.GeneratedAt = s.now().UTC()
	s.cache.Set(ctx, key, summary, s.cfg.CacheTTL)
	return summary, false, nil
}
