package application

import (
	"context"

	"github.com/devbush/yt2text/internal/domain"
	"github.com/devbush/yt2text/internal/ports"
)

// CacheStats holds audio cache statistics
type CacheStats struct {
	Dir       string
	ItemCount int
	TotalSize int64
}

// CacheService handles audio cache management operations
type CacheService struct {
	store ports.AudioStore
}

// NewCacheService creates a new cache service
func NewCacheService(store ports.AudioStore) *CacheService {
	return &CacheService{store: store}
}

// Stats returns cache statistics
func (s *CacheService) Stats(ctx context.Context) (*CacheStats, error) {
	count, size, err := s.store.Stats(ctx)
	if err != nil {
		return nil, err
	}
	return &CacheStats{
		Dir:       s.store.Dir(),
		ItemCount: count,
		TotalSize: size,
	}, nil
}

// Lookup returns the cached audio for a video, or domain.ErrCacheMiss
func (s *CacheService) Lookup(ctx context.Context, id domain.VideoID) (*ports.CachedAudio, error) {
	return s.store.Lookup(ctx, id)
}

// CleanExpired removes audio older than the cache TTL
func (s *CacheService) CleanExpired(ctx context.Context) (int, error) {
	return s.store.CleanExpired(ctx)
}

// Clear removes all cached audio
func (s *CacheService) Clear(ctx context.Context) error {
	return s.store.Clear(ctx)
}
