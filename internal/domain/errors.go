package domain

import (
	"errors"
	"fmt"
)

var (
	// Resolution failure kinds
	ErrInvalidURL            = errors.New("invalid YouTube URL")
	ErrTranscriptUnavailable = errors.New("transcript unavailable")
	ErrDownloadFailed        = errors.New("audio download failed")
	ErrTranscriptionFailed   = errors.New("transcription failed")
	ErrModelLoadFailed       = errors.New("model load failed")

	// Video platform errors
	ErrVideoUnavailable = errors.New("video not found, private, or removed")
	ErrVideoRestricted  = errors.New("video is geo-restricted, age-restricted, or members-only")
	ErrRateLimited      = errors.New("rate limited by YouTube")

	// Transcription errors
	ErrModelNotFound = errors.New("model not found")
	ErrUnknownModel  = errors.New("unknown model size")

	// Cache errors
	ErrCacheMiss = errors.New("cache miss")

	// Dependency errors
	ErrFFmpegNotFound = errors.New("ffmpeg not found")
	ErrToolNotFound   = errors.New("required tool not found")
)

// ErrorKind classifies a terminal resolution failure
type ErrorKind int

const (
	KindInvalidURL ErrorKind = iota + 1
	KindDownloadFailed
	KindTranscriptionFailed
	KindModelLoadFailed
)

func (k ErrorKind) String() string {
	switch k {
	case KindInvalidURL:
		return "invalid_url"
	case KindDownloadFailed:
		return "download_failed"
	case KindTranscriptionFailed:
		return "transcription_failed"
	case KindModelLoadFailed:
		return "model_load_failed"
	default:
		return "unknown"
	}
}

// sentinel returns the package-level error matching this kind.
func (k ErrorKind) sentinel() error {
	switch k {
	case KindInvalidURL:
		return ErrInvalidURL
	case KindDownloadFailed:
		return ErrDownloadFailed
	case KindTranscriptionFailed:
		return ErrTranscriptionFailed
	case KindModelLoadFailed:
		return ErrModelLoadFailed
	default:
		return nil
	}
}

// ResolveError is a terminal failure for one video. It carries the input URL,
// the video ID when one was extracted, and the underlying cause unchanged.
type ResolveError struct {
	URL     string
	VideoID VideoID
	Kind    ErrorKind
	Err     error
}

func (e *ResolveError) Error() string {
	subject := e.URL
	if e.VideoID != "" {
		subject = string(e.VideoID)
	}

	var what string
	switch e.Kind {
	case KindInvalidURL:
		what = "not a recognizable YouTube video URL"
	case KindDownloadFailed:
		what = "could not download audio"
	case KindTranscriptionFailed:
		what = "could not transcribe audio"
	case KindModelLoadFailed:
		what = "could not load speech model"
	default:
		what = "failed"
	}

	if e.Err == nil {
		return fmt.Sprintf("%s: %s", subject, what)
	}
	return fmt.Sprintf("%s: %s: %v", subject, what, e.Err)
}

func (e *ResolveError) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for this error's kind, so callers
// can match on kind without inspecting the wrapped cause.
func (e *ResolveError) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && target == s
}
