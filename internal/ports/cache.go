package ports

import (
	"context"
	"time"

	"github.com/devbush/yt2text/internal/domain"
)

// CachedAudio describes an audio file held in the cache directory.
type CachedAudio struct {
	VideoID   domain.VideoID
	Path      string
	Size      int64
	UpdatedAt time.Time
}

// AudioStore manages the directory downloaded audio is written to.
type AudioStore interface {
	// Dir returns the directory audio files are stored in.
	Dir() string

	// Lookup returns the cached audio for a video, or domain.ErrCacheMiss.
	Lookup(ctx context.Context, id domain.VideoID) (*CachedAudio, error)

	// Remove deletes the cached audio for a video. Missing files are not an error.
	Remove(ctx context.Context, id domain.VideoID) error

	// CleanExpired removes audio older than the store TTL and returns the count removed.
	CleanExpired(ctx context.Context) (int, error)

	// Clear removes all cached audio.
	Clear(ctx context.Context) error

	// Stats returns cache statistics: item count and total size in bytes.
	Stats(ctx context.Context) (itemCount int, totalSize int64, err error)
}
