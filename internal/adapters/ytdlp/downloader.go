package ytdlp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/devbush/yt2text/internal/config"
	"github.com/devbush/yt2text/internal/domain"
	"github.com/devbush/yt2text/internal/ports"
)

// audioFormat is what the speech model consumes: 16 kHz mono WAV
const (
	audioFormat   = "wav"
	ffmpegPostArg = "ffmpeg:-ar 16000 -ac 1"
)

// runFunc executes a binary and returns its stderr
type runFunc func(ctx context.Context, bin string, args []string) (stderr string, err error)

// Downloader implements AudioFetcher and ToolManager using yt-dlp
type Downloader struct {
	binDir  string
	timeout time.Duration

	// mu guards the lazily resolved tool paths
	mu         sync.Mutex
	binPath    string
	ffmpegPath string

	logger *slog.Logger
	run    runFunc
}

// Option configures a Downloader
type Option func(*Downloader)

// WithBinDir sets where bundled binaries are installed and looked up
func WithBinDir(dir string) Option {
	return func(d *Downloader) { d.binDir = dir }
}

// WithYtDlpPath pins the yt-dlp binary
func WithYtDlpPath(path string) Option {
	return func(d *Downloader) { d.binPath = path }
}

// WithFFmpegPath pins the ffmpeg binary
func WithFFmpegPath(path string) Option {
	return func(d *Downloader) { d.ffmpegPath = path }
}

// WithTimeout bounds a single download
func WithTimeout(timeout time.Duration) Option {
	return func(d *Downloader) { d.timeout = timeout }
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(d *Downloader) { d.logger = l }
}

func withRunner(run runFunc) Option {
	return func(d *Downloader) { d.run = run }
}

// NewDownloader creates a new yt-dlp downloader
func NewDownloader(opts ...Option) *Downloader {
	d := &Downloader{
		binDir: config.BinDir(),
		logger: slog.Default(),
		run:    runCommand,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func binaryName() string {
	if runtime.GOOS == "windows" {
		return "yt-dlp.exe"
	}
	return "yt-dlp"
}

// audioPath is the deterministic location of a video's audio in cacheDir
func audioPath(cacheDir string, id domain.VideoID) string {
	return filepath.Join(cacheDir, string(id)+"."+audioFormat)
}

// findExecutable checks the bundled bin dir first, then PATH
func findExecutable(binDir, name string) string {
	if binDir != "" {
		bundled := filepath.Join(binDir, name)
		if _, err := os.Stat(bundled); err == nil {
			return bundled
		}
	}

	if path, err := exec.LookPath(name); err == nil {
		return path
	}

	return ""
}

func (d *Downloader) GetBinaryPath() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.binPath == "" {
		d.binPath = findExecutable(d.binDir, binaryName())
	}
	return d.binPath
}

func (d *Downloader) IsAvailable() bool {
	return d.GetBinaryPath() != ""
}

func (d *Downloader) Download(ctx context.Context, url string, id domain.VideoID, cacheDir string, force bool) (*ports.AudioArtifact, error) {
	target := audioPath(cacheDir, id)

	if !force {
		if info, err := os.Stat(target); err == nil && info.Size() > 0 {
			d.logger.Debug("ytdlp: reusing cached audio", slog.String("path", target))
			return &ports.AudioArtifact{VideoID: id, Path: target, Reused: true}, nil
		}
	}

	binPath := d.GetBinaryPath()
	if binPath == "" {
		return nil, fmt.Errorf("yt-dlp: %w", domain.ErrToolNotFound)
	}

	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	args := d.buildArgs(url, id, cacheDir, force)
	d.logger.Debug("ytdlp: downloading audio", slog.String("video_id", string(id)), slog.Any("args", args))

	stderr, err := d.run(ctx, binPath, args)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("yt-dlp interrupted: %w", ctx.Err())
		}
		if errors.Is(err, exec.ErrNotFound) {
			return nil, fmt.Errorf("yt-dlp: %w", domain.ErrToolNotFound)
		}
		return nil, classifyFailure(stderr, err)
	}

	info, err := os.Stat(target)
	if err != nil || info.Size() == 0 {
		return nil, fmt.Errorf("yt-dlp finished but produced no audio at %s", target)
	}

	return &ports.AudioArtifact{VideoID: id, Path: target}, nil
}

func (d *Downloader) buildArgs(url string, id domain.VideoID, cacheDir string, force bool) []string {
	args := []string{
		"--no-warnings",
		"--no-playlist",
		"--no-progress",
		"-f", "bestaudio/best",
		"-x",
		"--audio-format", audioFormat,
		"--postprocessor-args", ffmpegPostArg,
		"-o", filepath.Join(cacheDir, string(id)+".%(ext)s"),
	}
	if force {
		args = append(args, "--force-overwrites")
	}
	if ffmpeg := d.GetFFmpegPath(); ffmpeg != "" {
		args = append(args, "--ffmpeg-location", ffmpeg)
	}
	return append(args, url)
}

// classifyFailure maps yt-dlp stderr onto domain errors
func classifyFailure(stderr string, err error) error {
	msg := errorLine(stderr)
	lower := strings.ToLower(stderr)

	var cause error
	switch {
	case containsAny(lower, "private video", "video unavailable", "has been removed",
		"no longer available", "does not exist", "account associated with this video has been terminated"):
		cause = domain.ErrVideoUnavailable
	case containsAny(lower, "sign in to confirm your age", "age-restricted", "age restricted",
		"available in your country", "geo restrict", "members-only", "join this channel"):
		cause = domain.ErrVideoRestricted
	case containsAny(lower, "http error 429", "too many requests"):
		cause = domain.ErrRateLimited
	case containsAny(lower, "ffmpeg not found", "ffprobe and ffmpeg not found", "ffmpeg is not installed"):
		cause = domain.ErrFFmpegNotFound
	}

	if cause == nil {
		if msg == "" {
			return fmt.Errorf("yt-dlp failed: %w", err)
		}
		return fmt.Errorf("yt-dlp failed: %s", msg)
	}
	if msg == "" {
		return fmt.Errorf("yt-dlp: %w", cause)
	}
	return fmt.Errorf("yt-dlp: %s: %w", msg, cause)
}

// errorLine picks the most useful line of yt-dlp stderr
func errorLine(stderr string) string {
	lines := strings.Split(strings.TrimSpace(stderr), "\n")
	for _, line := range lines {
		if strings.HasPrefix(line, "ERROR:") {
			return strings.TrimSpace(strings.TrimPrefix(line, "ERROR:"))
		}
	}
	return strings.TrimSpace(lines[len(lines)-1])
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func runCommand(ctx context.Context, bin string, args []string) (string, error) {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stderr.String(), err
}

func (d *Downloader) Install(ctx context.Context, progress func(downloaded, total int64)) error {
	if err := os.MkdirAll(d.binDir, 0755); err != nil {
		return err
	}

	destPath := filepath.Join(d.binDir, binaryName())
	if err := downloadFile(ctx, ytDlpDownloadURL(), destPath, progress); err != nil {
		return fmt.Errorf("failed to download yt-dlp: %w", err)
	}

	// Make executable on Unix
	if runtime.GOOS != "windows" {
		if err := os.Chmod(destPath, 0755); err != nil {
			return err
		}
	}

	d.mu.Lock()
	d.binPath = destPath
	d.mu.Unlock()
	return nil
}

func ytDlpDownloadURL() string {
	base := "https://github.com/yt-dlp/yt-dlp/releases/latest/download/"

	switch runtime.GOOS {
	case "windows":
		return base + "yt-dlp.exe"
	case "darwin":
		return base + "yt-dlp_macos"
	default:
		return base + "yt-dlp"
	}
}

func (d *Downloader) Update(ctx context.Context) error {
	binPath := d.GetBinaryPath()
	if binPath == "" {
		return fmt.Errorf("yt-dlp: %w", domain.ErrToolNotFound)
	}

	stderr, err := d.run(ctx, binPath, []string{"-U"})
	if err != nil {
		return fmt.Errorf("yt-dlp update failed: %s", errorLine(stderr))
	}
	return nil
}

// downloadFile streams url to destPath, removing partial files on failure
func downloadFile(ctx context.Context, url, destPath string, progress func(downloaded, total int64)) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	tmpPath := destPath + ".tmp"
	out, err := os.Create(tmpPath)
	if err != nil {
		return err
	}

	success := false
	defer func() {
		out.Close()
		if !success {
			os.Remove(tmpPath)
		}
	}()

	w := &progressWriter{w: out, total: resp.ContentLength, progress: progress}
	if _, err := io.Copy(w, resp.Body); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		return err
	}

	success = true
	return nil
}

type progressWriter struct {
	w          io.Writer
	total      int64
	downloaded int64
	progress   func(downloaded, total int64)
}

func (p *progressWriter) Write(b []byte) (int, error) {
	n, err := p.w.Write(b)
	p.downloaded += int64(n)
	if p.progress != nil {
		p.progress(p.downloaded, p.total)
	}
	return n, err
}

var (
	_ ports.AudioFetcher = (*Downloader)(nil)
	_ ports.ToolManager  = (*Downloader)(nil)
)
