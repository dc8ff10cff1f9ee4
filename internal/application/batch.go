package application

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/devbush/yt2text/internal/domain"
)

// BatchItem is the outcome of one URL in a batch
type BatchItem struct {
	Index    int
	URL      string
	Result   *domain.TranscriptResult
	Err      error
	Duration time.Duration
}

// OK reports whether the video resolved without error
func (i BatchItem) OK() bool {
	return i.Err == nil
}

// BatchHooks observe a batch while it runs. Hooks are called from worker
// goroutines and must be safe for concurrent use.
type BatchHooks struct {
	OnStage func(index int, stage Stage)
	OnDone  func(item BatchItem)
}

// BatchResolver resolves independent videos concurrently. A failure is
// recorded on its item and never stops the rest of the batch.
type BatchResolver struct {
	resolver *Resolver
	hooks    BatchHooks
	inflight singleflight.Group
}

// NewBatchResolver creates a batch resolver over r
func NewBatchResolver(r *Resolver, hooks BatchHooks) *BatchResolver {
	return &BatchResolver{resolver: r, hooks: hooks}
}

// ResolveAll resolves every URL with at most concurrency in flight and
// returns one item per input, in input order.
func (b *BatchResolver) ResolveAll(ctx context.Context, urls []string, opts ResolveOptions, concurrency int) []BatchItem {
	if concurrency < 1 {
		concurrency = 1
	}

	items := make([]BatchItem, len(urls))

	var group errgroup.Group
	group.SetLimit(concurrency)

	for i, url := range urls {
		group.Go(func() error {
			items[i] = b.resolveOne(ctx, i, url, opts)
			if b.hooks.OnDone != nil {
				b.hooks.OnDone(items[i])
			}
			return nil
		})
	}
	_ = group.Wait()

	return items
}

// flight is what one shared resolution hands to every item that joined it
type flight struct {
	result *domain.TranscriptResult
	stages []Stage
}

func (b *BatchResolver) resolveOne(ctx context.Context, index int, url string, opts ResolveOptions) BatchItem {
	start := time.Now()

	// Two URLs naming the same video share one resolution
	key := url
	if id, err := b.resolver.parser.Parse(url); err == nil {
		key = string(id)
	}

	led := false
	v, err, _ := b.inflight.Do(key, func() (any, error) {
		led = true
		var f flight
		itemOpts := opts
		itemOpts.OnStage = func(s Stage) {
			f.stages = append(f.stages, s)
			if b.hooks.OnStage != nil {
				b.hooks.OnStage(index, s)
			}
		}
		res, err := b.resolver.Resolve(ctx, url, itemOpts)
		f.result = res
		return f, err
	})

	f, _ := v.(flight)
	if !led {
		// replay the shared resolution's progress for this item
		if b.hooks.OnStage != nil {
			for _, s := range f.stages {
				b.hooks.OnStage(index, s)
			}
		}
		if rerr, ok := err.(*domain.ResolveError); ok && rerr.URL != url {
			own := *rerr
			own.URL = url
			err = &own
		}
	}

	item := BatchItem{
		Index:    index,
		URL:      url,
		Err:      err,
		Duration: time.Since(start),
	}
	if err == nil && f.result != nil {
		r := *f.result
		item.Result = &r
	}
	return item
}

// Failed returns the items that ended in error
func Failed(items []BatchItem) []BatchItem {
	var failed []BatchItem
	for _, item := range items {
		if !item.OK() {
			failed = append(failed, item)
		}
	}
	return failed
}
