package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/spf13/afero"

	"github.com/devbush/yt2text/internal/domain"
)

const testDir = "/cache"

func writeAudio(t *testing.T, fs afero.Fs, name string, data string, modTime time.Time) {
	t.Helper()
	path := testDir + "/" + name
	if err := afero.WriteFile(fs, path, []byte(data), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
	if err := fs.Chtimes(path, modTime, modTime); err != nil {
		t.Fatalf("failed to set mtime on %s: %v", path, err)
	}
}

func TestAudioStore_Lookup(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := NewAudioStoreFs(fs, testDir, 24*time.Hour)
	ctx := context.Background()

	writeAudio(t, fs, "dQw4w9WgXcQ.wav", "RIFFdata", time.Now())

	got, err := store.Lookup(ctx, "dQw4w9WgXcQ")
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if got.Path != "/cache/dQw4w9WgXcQ.wav" {
		t.Errorf("Lookup() path = %s, want /cache/dQw4w9WgXcQ.wav", got.Path)
	}
	if got.Size != 8 {
		t.Errorf("Lookup() size = %d, want 8", got.Size)
	}
}

func TestAudioStore_LookupMiss(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := NewAudioStoreFs(fs, testDir, 24*time.Hour)
	ctx := context.Background()

	_, err := store.Lookup(ctx, "nonexistent")
	if !errors.Is(err, domain.ErrCacheMiss) {
		t.Errorf("Lookup() error = %v, want ErrCacheMiss", err)
	}

	// Zero-byte files are leftovers from failed downloads
	writeAudio(t, fs, "emptyAudio1.wav", "", time.Now())
	_, err = store.Lookup(ctx, "emptyAudio1")
	if !errors.Is(err, domain.ErrCacheMiss) {
		t.Errorf("Lookup() on empty file error = %v, want ErrCacheMiss", err)
	}
}

func TestAudioStore_Remove(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := NewAudioStoreFs(fs, testDir, 24*time.Hour)
	ctx := context.Background()

	writeAudio(t, fs, "dQw4w9WgXcQ.wav", "RIFF", time.Now())

	if err := store.Remove(ctx, "dQw4w9WgXcQ"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if _, err := store.Lookup(ctx, "dQw4w9WgXcQ"); !errors.Is(err, domain.ErrCacheMiss) {
		t.Errorf("audio should be gone after Remove(), got %v", err)
	}

	// Removing again is not an error
	if err := store.Remove(ctx, "dQw4w9WgXcQ"); err != nil {
		t.Errorf("second Remove() error = %v", err)
	}
}

func TestAudioStore_CleanExpired(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := NewAudioStoreFs(fs, testDir, 24*time.Hour)
	ctx := context.Background()

	writeAudio(t, fs, "oldVideo001.wav", "old", time.Now().Add(-48*time.Hour))
	writeAudio(t, fs, "newVideo001.wav", "new", time.Now())
	writeAudio(t, fs, "partial.wav.part", "partial", time.Now().Add(-48*time.Hour))

	cleaned, err := store.CleanExpired(ctx)
	if err != nil {
		t.Fatalf("CleanExpired() error = %v", err)
	}
	if cleaned != 1 {
		t.Errorf("CleanExpired() = %d, want 1", cleaned)
	}

	if _, err := store.Lookup(ctx, "newVideo001"); err != nil {
		t.Errorf("fresh audio should survive, got %v", err)
	}
	if _, err := store.Lookup(ctx, "oldVideo001"); !errors.Is(err, domain.ErrCacheMiss) {
		t.Errorf("expired audio should be removed, got %v", err)
	}
}

func TestAudioStore_CleanExpiredNoTTL(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := NewAudioStoreFs(fs, testDir, 0)

	writeAudio(t, fs, "oldVideo001.wav", "old", time.Now().Add(-48*time.Hour))

	cleaned, err := store.CleanExpired(context.Background())
	if err != nil {
		t.Fatalf("CleanExpired() error = %v", err)
	}
	if cleaned != 0 {
		t.Errorf("CleanExpired() with no TTL = %d, want 0", cleaned)
	}
}

func TestAudioStore_StatsAndClear(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := NewAudioStoreFs(fs, testDir, 24*time.Hour)
	ctx := context.Background()

	writeAudio(t, fs, "aaaaaaaaaaa.wav", "12345", time.Now())
	writeAudio(t, fs, "bbbbbbbbbbb.wav", "123", time.Now())
	writeAudio(t, fs, "notes.txt", "ignored", time.Now())

	count, size, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if count != 2 || size != 8 {
		t.Errorf("Stats() = (%d, %d), want (2, 8)", count, size)
	}

	if err := store.Clear(ctx); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}

	count, size, err = store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats() after Clear() error = %v", err)
	}
	if count != 0 || size != 0 {
		t.Errorf("Stats() after Clear() = (%d, %d), want (0, 0)", count, size)
	}
}

func TestAudioStore_MissingDir(t *testing.T) {
	store := NewAudioStoreFs(afero.NewMemMapFs(), "/does/not/exist", time.Hour)
	ctx := context.Background()

	if count, _, err := store.Stats(ctx); err != nil || count != 0 {
		t.Errorf("Stats() on missing dir = %d, %v", count, err)
	}
	if err := store.Clear(ctx); err != nil {
		t.Errorf("Clear() on missing dir error = %v", err)
	}
	if n, err := store.CleanExpired(ctx); err != nil || n != 0 {
		t.Errorf("CleanExpired() on missing dir = %d, %v", n, err)
	}
}
