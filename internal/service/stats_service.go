package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/campushub/complaint-desk-api/internal/dto"
	"github.com/campushub/complaint-desk-api/internal/models"
	appErrors "github.com/campushub/complaint-desk-api/pkg/errors"
)

type statsRepository interface {
	StatusCounts(ctx context.Context, filter models.ComplaintFilter) (*dto.StatusCounts, error)
	AvgResolutionHours(ctx context.Context, filter models.ComplaintFilter) (*float64, error)
	CountByCategory(ctx context.Context, filter models.ComplaintFilter) ([]dto.CategoryCount, error)
	CountByMonth(ctx context.Context, filter models.ComplaintFilter) ([]dto.MonthCount, error)
}

type statsCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// StatsService assembles the dashboard payload. Results are cached per
// actor scope; the cache key includes the role and actor so a student's
// numbers never leak into an admin's dashboard or vice versa.
type StatsService struct {
	repo     statsRepository
	cache    statsCache
	cacheTTL time.Duration
	metrics  *MetricsService
	logger   *zap.Logger
}

// NewStatsService constructs the service.
func NewStatsService(repo statsRepository, cache statsCache, cacheTTL time.Duration, metrics *MetricsService, logger *zap.Logger) *StatsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &StatsService{repo: repo, cache: cache, cacheTTL: cacheTTL, metrics: metrics, logger: logger}
}

func statsCacheKey(actor Actor) string {
	switch actor.Role {
	case models.RoleAdmin:
		return "stats:admin"
	default:
		return fmt.Sprintf("stats:%s:%s", actor.Role, actor.ID)
	}
}

// Dashboard returns the role-scoped complaint statistics.
func (s *StatsService) Dashboard(ctx context.Context, actor Actor) (*dto.ComplaintStats, error) {
	filter := models.ComplaintFilter{}
	switch actor.Role {
	case models.RoleAdmin:
	case models.RoleFaculty:
		filter.AssigneeID = actor.ID
	case models.RoleStudent:
		filter.OwnerID = actor.ID
	default:
		return nil, appErrors.ErrForbidden
	}

	key := statsCacheKey(actor)
	if s.cache != nil {
		var cached dto.ComplaintStats
		err := s.cache.Get(ctx, key, &cached)
		if err == nil {
			s.metrics.RecordCacheOperation(true)
			return &cached, nil
		}
		s.metrics.RecordCacheOperation(false)
		if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("stats cache read failed", zap.String("key", key), zap.Error(err))
		}
	}

	counts, err := s.repo.StatusCounts(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate status counts")
	}
	avg, err := s.repo.AvgResolutionHours(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute resolution time")
	}
	byCategory, err := s.repo.CountByCategory(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate categories")
	}
	byMonth, err := s.repo.CountByMonth(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate months")
	}

	stats := &dto.ComplaintStats{
		StatusCounts:       *counts,
		AvgResolutionHours: avg,
		ByCategory:         make(map[string]int, len(byCategory)),
		ByMonth:            make(map[string]int, len(byMonth)),
	}
	for _, bucket := range byCategory {
		stats.ByCategory[bucket.Name] = bucket.Count
	}
	for _, bucket := range byMonth {
		stats.ByMonth[bucket.Month] = bucket.Count
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, stats, s.cacheTTL); err != nil {
			s.logger.Warn("stats cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return stats, nil
}

// Invalidate drops every cached dashboard. Called after mutations that
// change the aggregates.
func (s *StatsService) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, "stats:*"); err != nil {
		s.logger.Warn("stats cache invalidation failed", zap.Error(err))
	}
}
