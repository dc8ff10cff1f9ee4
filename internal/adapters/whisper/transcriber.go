package whisper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/devbush/yt2text/internal/domain"
	"github.com/devbush/yt2text/internal/ports"
)

// Transcriber implements ports.SpeechTranscriber on top of a ModelCache
type Transcriber struct {
	models  *ModelCache
	timeout time.Duration
	logger  *slog.Logger
}

// NewTranscriber creates a transcriber. A zero timeout means no limit.
func NewTranscriber(models *ModelCache, timeout time.Duration, logger *slog.Logger) *Transcriber {
	if logger == nil {
		logger = slog.Default()
	}
	return &Transcriber{
		models:  models,
		timeout: timeout,
		logger:  logger,
	}
}

// Transcribe runs the model of the given size over the whole file.
// Load failures wrap domain.ErrModelLoadFailed; inference failures and
// timeouts wrap domain.ErrTranscriptionFailed.
func (t *Transcriber) Transcribe(ctx context.Context, audio *ports.AudioArtifact, modelSize string) (string, error) {
	if audio == nil || audio.Path == "" {
		return "", fmt.Errorf("%w: no audio file", domain.ErrTranscriptionFailed)
	}

	model, err := t.models.Get(ctx, modelSize)
	if err != nil {
		return "", err
	}

	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	start := time.Now()
	text, err := model.Transcribe(ctx, audio.Path)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: inference exceeded %s", domain.ErrTranscriptionFailed, t.timeout)
		}
		return "", fmt.Errorf("%w: %w", domain.ErrTranscriptionFailed, err)
	}

	t.logger.Debug("whisper: transcribed",
		slog.String("video_id", string(audio.VideoID)),
		slog.String("model", modelSize),
		slog.Duration("took", time.Since(start)),
		slog.Int("chars", len(text)))
	return text, nil
}

var _ ports.SpeechTranscriber = (*Transcriber)(nil)
