package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/campus360/incidencias-service/internal/domain"
	"github.com/campus360/incidencias-service/internal/repository"
	apperrors "github.com/campus360/incidencias-service/pkg/util/errorutil"
)

// CatalogService resolves state/priority/category codes. Code lookups are
// cached in redis; the service degrades to direct reads when no cache client
// is configured or the cache is unreachable. An unknown code surfaces as a
// validation error, never as not-found.
type CatalogService struct {
	catalogs repository.CatalogRepository
	cache    *redis.Client
	ttl      time.Duration
	logger   *zap.Logger
}

// NewCatalogService constructs the service. cache may be nil.
func NewCatalogService(catalogs repository.CatalogRepository, cache *redis.Client, ttl time.Duration, logger *zap.Logger) *CatalogService {
	return &CatalogService{catalogs: catalogs, cache: cache, ttl: ttl, logger: logger}
}

// GetState resolves a state code.
func (s *CatalogService) GetState(ctx context.Context, code domain.StateCode) (*domain.State, error) {
	key := catalogKey("state", string(code))
	var cached domain.State
	if s.cacheGet(ctx, key, &cached) {
		return &cached, nil
	}
	state, err := s.catalogs.GetStateByCode(ctx, code)
	if err != nil {
		return nil, unknownCode(err, "state", string(code))
	}
	s.cacheSet(ctx, key, state)
	return state, nil
}

// GetPriority resolves a priority code.
func (s *CatalogService) GetPriority(ctx context.Context, code domain.PriorityCode) (*domain.Priority, error) {
	key := catalogKey("priority", string(code))
	var cached domain.Priority
	if s.cacheGet(ctx, key, &cached) {
		return &cached, nil
	}
	priority, err := s.catalogs.GetPriorityByCode(ctx, code)
	if err != nil {
		return nil, unknownCode(err, "priority", string(code))
	}
	s.cacheSet(ctx, key, priority)
	return priority, nil
}

// GetCategory resolves a category code.
func (s *CatalogService) GetCategory(ctx context.Context, code domain.CategoryCode) (*domain.Category, error) {
	key := catalogKey("category", string(code))
	var cached domain.Category
	if s.cacheGet(ctx, key, &cached) {
		return &cached, nil
	}
	category, err := s.catalogs.GetCategoryByCode(ctx, code)
	if err != nil {
		return nil, unknownCode(err, "category", string(code))
	}
	s.cacheSet(ctx, key, category)
	return category, nil
}

// ListStates returns active states ordered by display rank.
func (s *CatalogService) ListStates(ctx context.Context) ([]domain.State, error) {
	return s.catalogs.ListStates(ctx)
}

// ListPriorities returns active priorities ordered by level.
func (s *CatalogService) ListPriorities(ctx context.Context) ([]domain.Priority, error) {
	return s.catalogs.ListPriorities(ctx)
}

// ListCategories returns active categories ordered by name.
func (s *CatalogService) ListCategories(ctx context.Context) ([]domain.Category, error) {
	return s.catalogs.ListCategories(ctx)
}

func (s *CatalogService) cacheGet(ctx context.Context, key string, dest any) bool {
	if s.cache == nil {
		return false
	}
	raw, err := s.cache.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Debug("catalog cache read failed", zap.String("key", key), zap.Error(err))
		}
		return false
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		s.logger.Debug("catalog cache entry corrupt", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

func (s *CatalogService) cacheSet(ctx context.Context, key string, value any) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, raw, s.ttl).Err(); err != nil {
		s.logger.Debug("catalog cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func catalogKey(kind, code string) string {
	return fmt.Sprintf("catalog:%s:%s", kind, code)
}

func unknownCode(err error, kind, code string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewValidationError(
			fmt.Sprintf("unknown %s code %q", kind, code),
			map[string]any{"code": code},
		)
	}
	return err
}
