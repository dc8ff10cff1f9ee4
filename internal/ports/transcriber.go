package ports

import (
	"context"
)

// Model represents a Whisper model
type Model struct {
	Name        string
	Size        int64 // bytes
	Description string
	Downloaded  bool
}

// SpeechTranscriber converts a local audio file to text with an offline model
type SpeechTranscriber interface {
	// Transcribe runs the model of the given size over the whole file and
	// returns the recognized text without post-processing.
	Transcribe(ctx context.Context, audio *AudioArtifact, modelSize string) (string, error)
}

// ModelHandle is a loaded speech model, shared by all transcriptions at its size
type ModelHandle interface {
	// Size returns the model size name (tiny, base, small, medium, large)
	Size() string

	// Transcribe runs inference over the audio file at path
	Transcribe(ctx context.Context, path string) (string, error)

	// Close releases the model
	Close() error
}

// ModelLoader performs the expensive load of a model
type ModelLoader interface {
	Load(ctx context.Context, size string) (ModelHandle, error)
}

// ModelManager handles model files on disk
type ModelManager interface {
	// AvailableModels returns list of available models
	AvailableModels() []Model

	// IsModelDownloaded checks if a model is available locally
	IsModelDownloaded(model string) bool

	// DownloadModel downloads a model with progress callback
	DownloadModel(ctx context.Context, model string, progress func(downloaded, total int64)) error

	// DeleteModel removes a downloaded model
	DeleteModel(model string) error
}
