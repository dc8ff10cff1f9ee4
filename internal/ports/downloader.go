package ports

import (
	"context"

	"github.com/devbush/yt2text/internal/domain"
)

// AudioArtifact references an audio file stored locally for one video.
type AudioArtifact struct {
	VideoID domain.VideoID
	Path    string // deterministic: <cacheDir>/<videoID>.wav
	Reused  bool   // true if an existing file was returned without downloading
}

// AudioFetcher downloads the best available audio stream of a video.
type AudioFetcher interface {
	// Download writes audio for id into cacheDir and returns the artifact.
	// An existing file for id is reused unless force is set.
	Download(ctx context.Context, url string, id domain.VideoID, cacheDir string, force bool) (*AudioArtifact, error)
}

// ToolManager manages the external binaries the audio fetcher depends on.
type ToolManager interface {
	// yt-dlp management

	// IsAvailable checks if yt-dlp is installed and ready.
	IsAvailable() bool

	// GetBinaryPath returns the path to the yt-dlp binary.
	GetBinaryPath() string

	// Install downloads and installs yt-dlp, reporting progress via callback.
	Install(ctx context.Context, progress func(downloaded, total int64)) error

	// Update updates yt-dlp to the latest version.
	Update(ctx context.Context) error

	// ffmpeg management

	// IsFFmpegAvailable checks if ffmpeg is installed.
	IsFFmpegAvailable() bool

	// GetFFmpegPath returns the path to the ffmpeg binary.
	GetFFmpegPath() string

	// InstallFFmpeg downloads and installs ffmpeg (Windows and Linux).
	InstallFFmpeg(ctx context.Context, progress func(downloaded, total int64)) error

	// FFmpegInstructions returns platform-specific installation instructions.
	FFmpegInstructions() string
}
