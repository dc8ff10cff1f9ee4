package application

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/devbush/yt2text/internal/domain"
	"github.com/devbush/yt2text/internal/ports"
)

// fakeTranscripts returns canned captions per video ID
type fakeTranscripts struct {
	mu    sync.Mutex
	texts map[domain.VideoID]string
	calls []domain.VideoID
	langs []string
}

func (f *fakeTranscripts) Fetch(ctx context.Context, id domain.VideoID, language string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, id)
	f.langs = append(f.langs, language)
	text, ok := f.texts[id]
	return text, ok
}

func (f *fakeTranscripts) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// fakeAudio records downloads and fails for IDs listed in errs
type fakeAudio struct {
	mu     sync.Mutex
	errs   map[domain.VideoID]error
	urls   []string
	forced []bool
	delay  time.Duration

	active    atomic.Int32
	maxActive atomic.Int32
}

func (f *fakeAudio) Download(ctx context.Context, url string, id domain.VideoID, cacheDir string, force bool) (*ports.AudioArtifact, error) {
	n := f.active.Add(1)
	defer f.active.Add(-1)
	for {
		peak := f.maxActive.Load()
		if n <= peak || f.maxActive.CompareAndSwap(peak, n) {
			break
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	f.mu.Lock()
	f.urls = append(f.urls, url)
	f.forced = append(f.forced, force)
	err := f.errs[id]
	f.mu.Unlock()

	if err != nil {
		return nil, err
	}
	return &ports.AudioArtifact{VideoID: id, Path: cacheDir + "/" + string(id) + ".wav"}, nil
}

func (f *fakeAudio) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.urls)
}

// fakeSpeech returns text unchanged, or err
type fakeSpeech struct {
	mu    sync.Mutex
	text  string
	err   error
	sizes []string
}

func (f *fakeSpeech) Transcribe(ctx context.Context, audio *ports.AudioArtifact, modelSize string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sizes = append(f.sizes, modelSize)
	return f.text, f.err
}

func (f *fakeSpeech) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sizes)
}

// fakeStore implements ports.AudioStore in memory
type fakeStore struct {
	mu      sync.Mutex
	removed []domain.VideoID

	itemCount    int
	totalSize    int64
	cleanedCount int
	statsErr     error
	cleanErr     error
	clearErr     error
	removeErr    error
}

func (s *fakeStore) Dir() string { return "/tmp/yt2text-cache" }

func (s *fakeStore) Lookup(ctx context.Context, id domain.VideoID) (*ports.CachedAudio, error) {
	return nil, domain.ErrCacheMiss
}

func (s *fakeStore) Remove(ctx context.Context, id domain.VideoID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removed = append(s.removed, id)
	return s.removeErr
}

func (s *fakeStore) CleanExpired(ctx context.Context) (int, error) {
	if s.cleanErr != nil {
		return 0, s.cleanErr
	}
	return s.cleanedCount, nil
}

func (s *fakeStore) Clear(ctx context.Context) error {
	return s.clearErr
}

func (s *fakeStore) Stats(ctx context.Context) (int, int64, error) {
	if s.statsErr != nil {
		return 0, 0, s.statsErr
	}
	return s.itemCount, s.totalSize, nil
}

func (s *fakeStore) removedIDs() []domain.VideoID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.VideoID(nil), s.removed...)
}

var (
	_ ports.TranscriptSource  = (*fakeTranscripts)(nil)
	_ ports.AudioFetcher      = (*fakeAudio)(nil)
	_ ports.SpeechTranscriber = (*fakeSpeech)(nil)
	_ ports.AudioStore        = (*fakeStore)(nil)
)
