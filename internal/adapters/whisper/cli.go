package whisper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/devbush/yt2text/internal/domain"
	"github.com/devbush/yt2text/internal/ports"
)

// runFunc executes a binary and returns its stderr
type runFunc func(ctx context.Context, bin string, args []string) (stderr string, err error)

func runCommand(ctx context.Context, bin string, args []string) (string, error) {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stderr.String(), err
}

func exeNames(names ...string) []string {
	if runtime.GOOS != "windows" {
		return names
	}
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = n + ".exe"
	}
	return out
}

// findBinary checks the bundled bin dir, then PATH, for the first of names
func findBinary(binDir string, names []string) string {
	if binDir != "" {
		for _, name := range names {
			bundled := filepath.Join(binDir, name)
			if _, err := os.Stat(bundled); err == nil {
				return bundled
			}
		}
	}

	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	return ""
}

// LoaderConfig is shared by both loaders
type LoaderConfig struct {
	Models       *Models
	BinDir       string
	BinaryPath   string // overrides discovery
	Threads      int
	AutoDownload bool // fetch missing models instead of failing
	Logger       *slog.Logger
}

func (c *LoaderConfig) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}

// prepareModel validates size and makes sure its file is on disk
func (c *LoaderConfig) prepareModel(ctx context.Context, size string) (string, error) {
	if !IsValidModel(size) {
		return "", fmt.Errorf("%w: %s", domain.ErrUnknownModel, size)
	}
	if !c.Models.IsModelDownloaded(size) {
		if !c.AutoDownload {
			return "", fmt.Errorf("%s (run: yt2text model download %s): %w", size, size, domain.ErrModelNotFound)
		}
		c.logger().Info("whisper: downloading missing model", slog.String("size", size))
		if err := c.Models.DownloadModel(ctx, size, nil); err != nil {
			return "", err
		}
	}
	return c.Models.Path(size), nil
}

func (c *LoaderConfig) binary(names []string) string {
	if c.BinaryPath != "" {
		return c.BinaryPath
	}
	return findBinary(c.BinDir, names)
}

// CLILoader runs whisper-cli once per transcription. Loading verifies the
// model file and the binary so later calls cannot fail on either.
type CLILoader struct {
	cfg LoaderConfig
	run runFunc
}

// NewCLILoader creates a loader for the whisper.cpp command line tool
func NewCLILoader(cfg LoaderConfig) *CLILoader {
	return &CLILoader{cfg: cfg, run: runCommand}
}

func (l *CLILoader) Load(ctx context.Context, size string) (ports.ModelHandle, error) {
	modelPath, err := l.cfg.prepareModel(ctx, size)
	if err != nil {
		return nil, err
	}

	bin := l.cfg.binary(exeNames("whisper-cli", "whisper-cpp", "whisper", "main"))
	if bin == "" {
		return nil, fmt.Errorf("whisper-cli (install whisper.cpp): %w", domain.ErrToolNotFound)
	}

	return &cliHandle{
		size:      size,
		modelPath: modelPath,
		bin:       bin,
		threads:   l.cfg.Threads,
		run:       l.run,
	}, nil
}

type cliHandle struct {
	size      string
	modelPath string
	bin       string
	threads   int
	run       runFunc
}

func (h *cliHandle) Size() string {
	return h.size
}

func (h *cliHandle) Transcribe(ctx context.Context, path string) (string, error) {
	tmpDir, err := os.MkdirTemp("", "yt2text-whisper-")
	if err != nil {
		return "", err
	}
	defer os.RemoveAll(tmpDir)

	outputBase := filepath.Join(tmpDir, "out")
	args := []string{
		"-m", h.modelPath,
		"-f", path,
		"-of", outputBase,
		"-oj",
		"-l", "auto",
		"-np",
	}
	if h.threads > 0 {
		args = append(args, "-t", strconv.Itoa(h.threads))
	}

	if stderr, err := h.run(ctx, h.bin, args); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if msg := lastLine(stderr); msg != "" {
			return "", fmt.Errorf("whisper-cli: %s: %w", msg, err)
		}
		return "", fmt.Errorf("whisper-cli: %w", err)
	}

	data, err := os.ReadFile(outputBase + ".json")
	if err != nil {
		return "", fmt.Errorf("whisper-cli produced no output: %w", err)
	}
	return parseWhisperJSON(data)
}

func (h *cliHandle) Close() error {
	return nil
}

// parseWhisperJSON concatenates segment texts from whisper-cli -oj output
// as emitted, trimming only the ends of the whole transcript
func parseWhisperJSON(data []byte) (string, error) {
	var output struct {
		Transcription []struct {
			Text string `json:"text"`
		} `json:"transcription"`
	}

	if err := json.Unmarshal(data, &output); err != nil {
		return "", fmt.Errorf("parse whisper output: %w", err)
	}

	var sb strings.Builder
	for _, item := range output.Transcription {
		sb.WriteString(item.Text)
	}
	return strings.TrimSpace(sb.String()), nil
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}

var _ ports.ModelLoader = (*CLILoader)(nil)
