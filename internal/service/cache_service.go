package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/guarderia-api/internal/dto"
	"github.com/noah-isme/guarderia-api/internal/models"
	appErrors "github.com/noah-isme/guarderia-api/pkg/errors"
)

// CacheRepository abstracts persistence for cached payloads.
type CacheRepository interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// bulkInvalidation is the batch size above which a whole date is dropped
// with one pattern delete instead of listing every key.
const bulkInvalidation = 200

// StatusCacheKey is the read-through key for a child's status on a date.
func StatusCacheKey(childID string, date models.Date) string {
	return fmt.Sprintf("attendance:status:%s:%s", childID, date.String())
}

func statusDatePattern(date models.Date) string {
	return fmt.Sprintf("attendance:status:*:%s", date.String())
}

// CacheService is the optional read-through cache for per-child daily
// status. Failures are logged and counted but never fail the caller; the
// event store stays authoritative.
type CacheService struct {
	repo    CacheRepository
	metrics *MetricsService
	ttl     time.Duration
	logger  *zap.Logger
	enabled bool
}

// NewCacheService constructs a cache service. A nil repo or enabled=false
// turns every call into a no-op.
func NewCacheService(repo CacheRepository, metrics *MetricsService, ttl time.Duration, logger *zap.Logger, enabled bool) *CacheService {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheService{repo: repo, metrics: metrics, ttl: ttl, logger: logger, enabled: enabled}
}

// Enabled indicates whether caching is active.
func (s *CacheService) Enabled() bool {
	return s != nil && s.enabled && s.repo != nil
}

// Status returns the cached status of childID on date, if any.
func (s *CacheService) Status(ctx context.Context, childID string, date models.Date) (dto.TodayStatus, bool) {
	if !s.Enabled() {
		return dto.TodayStatus{}, false
	}
	key := StatusCacheKey(childID, date)
	var status dto.TodayStatus
	start := time.Now()
	err := s.repo.Get(ctx, key, &status)
	s.metrics.RecordCacheOperation(err == nil, time.Since(start))
	if err != nil {
		if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("status cache read failed", zap.String("key", key), zap.Error(err))
		}
		return dto.TodayStatus{}, false
	}
	return status, true
}

// StoreStatus caches status under its child and date. ttl <= 0 uses the
// configured default.
func (s *CacheService) StoreStatus(ctx context.Context, status dto.TodayStatus, ttl time.Duration) {
	if !s.Enabled() {
		return
	}
	if ttl <= 0 {
		ttl = s.ttl
	}
	key := StatusCacheKey(status.ChildID, status.Date)
	start := time.Now()
	err := s.repo.Set(ctx, key, status, ttl)
	s.metrics.ObserveCacheWrite(time.Since(start))
	if err != nil {
		s.logger.Warn("status cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// ForgetStatuses drops the cached status of childIDs on date. Large batches,
// such as a daily closing, drop every status cached for the date instead.
func (s *CacheService) ForgetStatuses(ctx context.Context, date models.Date, childIDs ...string) error {
	if !s.Enabled() || len(childIDs) == 0 {
		return nil
	}
	if len(childIDs) > bulkInvalidation {
		pattern := statusDatePattern(date)
		if err := s.repo.DeleteByPattern(ctx, pattern); err != nil {
			s.logger.Warn("status cache bulk invalidation failed", zap.String("pattern", pattern), zap.Error(err))
			return err
		}
		return nil
	}
	keys := make([]string, 0, len(childIDs))
	for _, id := range childIDs {
		keys = append(keys, StatusCacheKey(id, date))
	}
	if err := s.repo.Delete(ctx, keys...); err != nil {
		s.logger.Warn("status cache invalidation failed", zap.String("date", date.String()), zap.Int("children", len(keys)), zap.Error(err))
		return err
	}
	return nil
}
