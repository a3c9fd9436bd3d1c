package application

import (
	"context"

	"github.com/devbush/voxcribe/internal/domain"
	"github.com/devbush/voxcribe/internal/ports"
)

// CacheStats holds cache statistics
type CacheStats struct {
	ItemCount int
	TotalSize int64
}

// CacheService manages stored transcripts.
type CacheService struct {
	cache ports.CacheStore
}

// NewCacheService creates a new cache service
func NewCacheService(cache ports.CacheStore) *CacheService {
	return &CacheService{cache: cache}
}

// Stats returns cache statistics
func (s *CacheService) Stats(ctx context.Context) (*CacheStats, error) {
	count, size, err := s.cache.Stats(ctx)
	if err != nil {
		return nil, err
	}
	return &CacheStats{ItemCount: count, TotalSize: size}, nil
}

// Lookup returns the cached transcript for a media file and settings.
func (s *CacheService) Lookup(ctx context.Context, mediaPath string, opts TranscribeOptions) (*ports.CachedItem, error) {
	key, err := s.key(ctx, mediaPath, opts)
	if err != nil {
		return nil, err
	}
	return s.cache.Get(ctx, key)
}

// Forget drops the cached transcript for a media file and settings, so the
// next run transcribes it again.
func (s *CacheService) Forget(ctx context.Context, mediaPath string, opts TranscribeOptions) error {
	key, err := s.key(ctx, mediaPath, opts)
	if err != nil {
		return err
	}
	return s.cache.Delete(ctx, key)
}

func (s *CacheService) key(ctx context.Context, mediaPath string, opts TranscribeOptions) (string, error) {
	model := opts.Model
	if model == "" {
		model = domain.DefaultModel
	}
	language, err := domain.NormalizeLanguage(opts.Language)
	if err != nil {
		return "", err
	}
	key, err := CacheKey(ctx, mediaPath, model, language, opts.IncludeSegments)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return "", domain.Cancelled("cache key", ctxErr)
	}
	if err != nil {
		return "", domain.NewError(domain.ErrNotFound, "cache key", mediaPath, err)
	}
	return key, nil
}

// CleanExpired removes expired cache entries
func (s *CacheService) CleanExpired(ctx context.Context) (int, error) {
	return s.cache.CleanExpired(ctx)
}

// Clear removes all cache entries
func (s *CacheService) Clear(ctx context.Context) error {
	return s.cache.Clear(ctx)
}
