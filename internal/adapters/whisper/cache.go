package whisper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/devbush/yt2text/internal/domain"
	"github.com/devbush/yt2text/internal/ports"
)

var errCacheClosed = errors.New("model cache is closed")

// ModelCache holds at most one loaded model per size for its lifetime.
// Concurrent first requests for a size share a single load. Failed
// loads are not remembered, so a later call tries again.
type ModelCache struct {
	loader ports.ModelLoader
	logger *slog.Logger

	mu      sync.RWMutex
	handles map[string]ports.ModelHandle
	closed  bool

	group singleflight.Group
	loads atomic.Int64
}

// NewModelCache creates an empty cache backed by loader
func NewModelCache(loader ports.ModelLoader, logger *slog.Logger) *ModelCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &ModelCache{
		loader:  loader,
		logger:  logger,
		handles: make(map[string]ports.ModelHandle),
	}
}

func (c *ModelCache) cached(size string) (ports.ModelHandle, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return nil, false, errCacheClosed
	}
	h, ok := c.handles[size]
	return h, ok, nil
}

// Get returns the model for size, loading it on first use. A load is
// shared by every waiting caller and outlives any one caller's context;
// a caller whose context ends stops waiting with its own ctx error.
func (c *ModelCache) Get(ctx context.Context, size string) (ports.ModelHandle, error) {
	if h, ok, err := c.cached(size); err != nil || ok {
		return h, err
	}

	loadCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(size, func() (any, error) {
		if h, ok, err := c.cached(size); err != nil || ok {
			return h, err
		}

		c.loads.Add(1)
		c.logger.Debug("whisper: loading model", slog.String("size", size))

		h, err := c.loader.Load(loadCtx, size)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", domain.ErrModelLoadFailed, size, err)
		}

		c.mu.Lock()
		defer c.mu.Unlock()
		if c.closed {
			_ = h.Close()
			return nil, errCacheClosed
		}
		c.handles[size] = h
		return h, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(ports.ModelHandle), nil
	}
}

// Loads reports how many loads have been attempted
func (c *ModelCache) Loads() int64 {
	return c.loads.Load()
}

// Sizes lists the currently loaded model sizes
func (c *ModelCache) Sizes() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	sizes := make([]string, 0, len(c.handles))
	for size := range c.handles {
		sizes = append(sizes, size)
	}
	sort.Strings(sizes)
	return sizes
}

// Close releases every loaded model. The cache is unusable afterwards.
func (c *ModelCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true

	var errs []error
	for size, h := range c.handles {
		if err := h.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s model: %w", size, err))
		}
	}
	c.handles = nil
	return errors.Join(errs...)
}
