package cache

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/devbush/yt2text/internal/domain"
	"github.com/devbush/yt2text/internal/ports"
)

// audioExt is the extension the downloader writes
const audioExt = ".wav"

// AudioStore keeps downloaded audio as <baseDir>/<videoID>.wav
type AudioStore struct {
	fs      afero.Fs
	baseDir string
	ttl     time.Duration
}

// NewAudioStore creates a store on the OS filesystem
func NewAudioStore(baseDir string, ttl time.Duration) *AudioStore {
	return NewAudioStoreFs(afero.NewOsFs(), baseDir, ttl)
}

// NewAudioStoreFs creates a store on the given filesystem
func NewAudioStoreFs(fs afero.Fs, baseDir string, ttl time.Duration) *AudioStore {
	return &AudioStore{
		fs:      fs,
		baseDir: baseDir,
		ttl:     ttl,
	}
}

func (s *AudioStore) Dir() string {
	return s.baseDir
}

func (s *AudioStore) audioPath(id domain.VideoID) string {
	return filepath.Join(s.baseDir, string(id)+audioExt)
}

func (s *AudioStore) Lookup(ctx context.Context, id domain.VideoID) (*ports.CachedAudio, error) {
	path := s.audioPath(id)

	info, err := s.fs.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrCacheMiss
		}
		return nil, err
	}
	if info.IsDir() || info.Size() == 0 {
		return nil, domain.ErrCacheMiss
	}

	return &ports.CachedAudio{
		VideoID:   id,
		Path:      path,
		Size:      info.Size(),
		UpdatedAt: info.ModTime(),
	}, nil
}

func (s *AudioStore) Remove(ctx context.Context, id domain.VideoID) error {
	err := s.fs.Remove(s.audioPath(id))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// entries lists audio files in the store, skipping partial downloads
func (s *AudioStore) entries() ([]ports.CachedAudio, error) {
	infos, err := afero.ReadDir(s.fs, s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var items []ports.CachedAudio
	for _, info := range infos {
		if info.IsDir() || !strings.HasSuffix(info.Name(), audioExt) {
			continue
		}
		id := strings.TrimSuffix(info.Name(), audioExt)
		items = append(items, ports.CachedAudio{
			VideoID:   domain.VideoID(id),
			Path:      filepath.Join(s.baseDir, info.Name()),
			Size:      info.Size(),
			UpdatedAt: info.ModTime(),
		})
	}
	return items, nil
}

func (s *AudioStore) CleanExpired(ctx context.Context) (int, error) {
	if s.ttl <= 0 {
		return 0, nil
	}

	items, err := s.entries()
	if err != nil {
		return 0, err
	}

	cutoff := time.Now().Add(-s.ttl)
	cleaned := 0
	for _, item := range items {
		if ctx.Err() != nil {
			return cleaned, ctx.Err()
		}
		if item.UpdatedAt.Before(cutoff) {
			if err := s.fs.Remove(item.Path); err == nil {
				cleaned++
			}
		}
	}

	return cleaned, nil
}

func (s *AudioStore) Clear(ctx context.Context) error {
	infos, err := afero.ReadDir(s.fs, s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	for _, info := range infos {
		_ = s.fs.RemoveAll(filepath.Join(s.baseDir, info.Name()))
	}

	return nil
}

func (s *AudioStore) Stats(ctx context.Context) (itemCount int, totalSize int64, err error) {
	items, err := s.entries()
	if err != nil {
		return 0, 0, err
	}

	for _, item := range items {
		itemCount++
		totalSize += item.Size
	}

	return itemCount, totalSize, nil
}

var _ ports.AudioStore = (*AudioStore)(nil)
