package whisper

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/devbush/yt2text/internal/domain"
	"github.com/devbush/yt2text/internal/ports"
)

// blockingHandle waits for the context to end
type blockingHandle struct{}

func (blockingHandle) Size() string { return "small" }
func (blockingHandle) Transcribe(ctx context.Context, path string) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}
func (blockingHandle) Close() error { return nil }

type staticLoader struct {
	handle ports.ModelHandle
	err    error
}

func (l staticLoader) Load(ctx context.Context, size string) (ports.ModelHandle, error) {
	return l.handle, l.err
}

var testAudio = &ports.AudioArtifact{VideoID: "dQw4w9WgXcQ", Path: "/cache/dQw4w9WgXcQ.wav"}

func TestTranscriber_Transcribe(t *testing.T) {
	loader := newFakeLoader()
	tr := NewTranscriber(NewModelCache(loader, nil), time.Minute, nil)

	text, err := tr.Transcribe(context.Background(), testAudio, "small")
	if err != nil {
		t.Fatalf("Transcribe() error = %v", err)
	}
	if text != "transcribed by small" {
		t.Errorf("Transcribe() = %q, want model output unchanged", text)
	}
}

func TestTranscriber_ReusesModelAcrossCalls(t *testing.T) {
	loader := newFakeLoader()
	cache := NewModelCache(loader, nil)
	tr := NewTranscriber(cache, 0, nil)

	for i := 0; i < 3; i++ {
		if _, err := tr.Transcribe(context.Background(), testAudio, "small"); err != nil {
			t.Fatalf("Transcribe() #%d error = %v", i, err)
		}
	}
	if cache.Loads() != 1 {
		t.Errorf("Loads() = %d, want 1", cache.Loads())
	}
}

func TestTranscriber_LoadFailure(t *testing.T) {
	cache := NewModelCache(staticLoader{err: domain.ErrModelNotFound}, nil)
	tr := NewTranscriber(cache, 0, nil)

	_, err := tr.Transcribe(context.Background(), testAudio, "large")
	if !errors.Is(err, domain.ErrModelLoadFailed) {
		t.Errorf("error = %v, want ErrModelLoadFailed", err)
	}
	if errors.Is(err, domain.ErrTranscriptionFailed) {
		t.Error("load failure must not be reported as a transcription failure")
	}
	if !errors.Is(err, domain.ErrModelNotFound) {
		t.Error("underlying cause should be kept")
	}
}

func TestTranscriber_InferenceFailure(t *testing.T) {
	handle := &fakeHandle{size: "small", err: errors.New("corrupt audio")}
	tr := NewTranscriber(NewModelCache(staticLoader{handle: handle}, nil), 0, nil)

	_, err := tr.Transcribe(context.Background(), testAudio, "small")
	if !errors.Is(err, domain.ErrTranscriptionFailed) {
		t.Errorf("error = %v, want ErrTranscriptionFailed", err)
	}
}

func TestTranscriber_Timeout(t *testing.T) {
	tr := NewTranscriber(NewModelCache(staticLoader{handle: blockingHandle{}}, nil), 20*time.Millisecond, nil)

	_, err := tr.Transcribe(context.Background(), testAudio, "small")
	if !errors.Is(err, domain.ErrTranscriptionFailed) {
		t.Errorf("error = %v, want ErrTranscriptionFailed on timeout", err)
	}
}

func TestTranscriber_NoAudio(t *testing.T) {
	tr := NewTranscriber(NewModelCache(newFakeLoader(), nil), 0, nil)

	if _, err := tr.Transcribe(context.Background(), nil, "small"); !errors.Is(err, domain.ErrTranscriptionFailed) {
		t.Errorf("error = %v, want ErrTranscriptionFailed", err)
	}
}
