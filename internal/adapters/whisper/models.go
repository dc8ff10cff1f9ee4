package whisper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/devbush/yt2text/internal/config"
	"github.com/devbush/yt2text/internal/domain"
	"github.com/devbush/yt2text/internal/ports"
)

// Model sizes in bytes (approximate)
var modelSizes = map[string]int64{
	"tiny":   75 * 1024 * 1024,
	"base":   142 * 1024 * 1024,
	"small":  466 * 1024 * 1024,
	"medium": 1500 * 1024 * 1024,
	"large":  2900 * 1024 * 1024,
}

// modelFiles maps size names onto ggml file stems
var modelFiles = map[string]string{
	"tiny":   "tiny",
	"base":   "base",
	"small":  "small",
	"medium": "medium",
	"large":  "large-v3",
}

// IsValidModel reports whether name is a known model size
func IsValidModel(name string) bool {
	_, ok := modelSizes[name]
	return ok
}

// Models manages ggml model files in a directory
type Models struct {
	modelsDir string
	baseURL   string
}

// NewModels creates a model manager rooted at modelsDir
func NewModels(modelsDir string) *Models {
	if modelsDir == "" {
		modelsDir = config.ModelsDir()
	}
	return &Models{
		modelsDir: modelsDir,
		baseURL:   "https://huggingface.co/ggerganov/whisper.cpp/resolve/main",
	}
}

func (m *Models) modelURL(name string) string {
	return fmt.Sprintf("%s/ggml-%s.bin", m.baseURL, modelFiles[name])
}

// Path returns where the model file for name lives
func (m *Models) Path(name string) string {
	return filepath.Join(m.modelsDir, fmt.Sprintf("ggml-%s.bin", modelFiles[name]))
}

func (m *Models) AvailableModels() []ports.Model {
	models := []ports.Model{
		{Name: "tiny", Size: modelSizes["tiny"], Description: "~75MB, basic accuracy, very fast"},
		{Name: "base", Size: modelSizes["base"], Description: "~142MB, good accuracy, fast"},
		{Name: "small", Size: modelSizes["small"], Description: "~466MB, better accuracy, moderate speed"},
		{Name: "medium", Size: modelSizes["medium"], Description: "~1.5GB, great accuracy, slower"},
		{Name: "large", Size: modelSizes["large"], Description: "~2.9GB, best accuracy, slow"},
	}

	for i := range models {
		models[i].Downloaded = m.IsModelDownloaded(models[i].Name)
	}

	return models
}

func (m *Models) IsModelDownloaded(model string) bool {
	if !IsValidModel(model) {
		return false
	}
	info, err := os.Stat(m.Path(model))
	return err == nil && info.Size() > 0
}

func (m *Models) DownloadModel(ctx context.Context, model string, progress func(downloaded, total int64)) error {
	if !IsValidModel(model) {
		return fmt.Errorf("%w: %s", domain.ErrUnknownModel, model)
	}

	if err := os.MkdirAll(m.modelsDir, 0755); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.modelURL(model), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to download model: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to download model: HTTP %d", resp.StatusCode)
	}

	destPath := m.Path(model)
	tempPath := destPath + ".tmp"

	out, err := os.Create(tempPath)
	if err != nil {
		return err
	}

	success := false
	defer func() {
		out.Close()
		if !success {
			os.Remove(tempPath)
		}
	}()

	counter := &countingWriter{total: resp.ContentLength, progress: progress}
	if _, err := io.Copy(io.MultiWriter(out, counter), resp.Body); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}

	if err := out.Close(); err != nil {
		return err
	}
	if err := os.Rename(tempPath, destPath); err != nil {
		return err
	}

	success = true
	return nil
}

func (m *Models) DeleteModel(model string) error {
	if !IsValidModel(model) {
		return fmt.Errorf("%w: %s", domain.ErrUnknownModel, model)
	}
	if err := os.Remove(m.Path(model)); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%s: %w", model, domain.ErrModelNotFound)
		}
		return err
	}
	return nil
}

type countingWriter struct {
	total      int64
	downloaded int64
	progress   func(downloaded, total int64)
}

func (c *countingWriter) Write(p []byte) (int, error) {
	c.downloaded += int64(len(p))
	if c.progress != nil {
		c.progress(c.downloaded, c.total)
	}
	return len(p), nil
}

var _ ports.ModelManager = (*Models)(nil)
