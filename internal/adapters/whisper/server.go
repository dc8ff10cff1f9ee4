package whisper

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/devbush/yt2text/internal/domain"
	"github.com/devbush/yt2text/internal/ports"
)

// ServerLoader keeps one whisper-server process per model size, so the
// model stays resident in memory between transcriptions.
type ServerLoader struct {
	cfg          LoaderConfig
	startTimeout time.Duration
	http         *http.Client
}

// NewServerLoader creates a loader for the whisper.cpp HTTP server
func NewServerLoader(cfg LoaderConfig) *ServerLoader {
	return &ServerLoader{
		cfg:          cfg,
		startTimeout: 2 * time.Minute,
		http:         &http.Client{},
	}
}

func (l *ServerLoader) Load(ctx context.Context, size string) (ports.ModelHandle, error) {
	modelPath, err := l.cfg.prepareModel(ctx, size)
	if err != nil {
		return nil, err
	}

	bin := l.cfg.binary(exeNames("whisper-server", "server"))
	if bin == "" {
		return nil, fmt.Errorf("whisper-server (install whisper.cpp): %w", domain.ErrToolNotFound)
	}

	port, err := freePort()
	if err != nil {
		return nil, fmt.Errorf("allocate port: %w", err)
	}

	args := []string{
		"-m", modelPath,
		"--host", "127.0.0.1",
		"--port", strconv.Itoa(port),
		"-l", "auto",
	}
	if l.cfg.Threads > 0 {
		args = append(args, "-t", strconv.Itoa(l.cfg.Threads))
	}

	var stderr bytes.Buffer
	// The process outlives ctx; Close stops it.
	cmd := exec.Command(bin, args...)
	cmd.Stderr = &stderr
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start whisper-server: %w", err)
	}

	exited := make(chan error, 1)
	go func() { exited <- cmd.Wait() }()

	h := &serverHandle{
		size:    size,
		baseURL: "http://127.0.0.1:" + strconv.Itoa(port),
		http:    l.http,
		cmd:     cmd,
		exited:  exited,
	}

	if err := h.waitReady(ctx, l.startTimeout); err != nil {
		_ = h.Close()
		if msg := lastLine(stderr.String()); msg != "" {
			return nil, fmt.Errorf("whisper-server: %s: %w", msg, err)
		}
		return nil, fmt.Errorf("whisper-server: %w", err)
	}

	l.cfg.logger().Debug("whisper: server ready", slog.String("size", size), slog.String("url", h.baseURL))
	return h, nil
}

func freePort() (int, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port, nil
}

// serverHandle is a running whisper-server. Inference is serialised.
type serverHandle struct {
	size    string
	baseURL string
	http    *http.Client

	mu     sync.Mutex
	cmd    *exec.Cmd
	exited chan error
}

func (h *serverHandle) Size() string {
	return h.size
}

var errServerExited = errors.New("whisper-server exited")

// waitReady polls the server until it answers or the timeout passes
func (h *serverHandle) waitReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	probe := func() (struct{}, error) {
		select {
		case err := <-h.exited:
			h.exited <- err
			return struct{}{}, backoff.Permanent(errServerExited)
		default:
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.baseURL+"/", nil)
		if err != nil {
			return struct{}{}, backoff.Permanent(err)
		}
		resp, err := h.http.Do(req)
		if err != nil {
			return struct{}{}, err
		}
		resp.Body.Close()
		return struct{}{}, nil
	}

	_, err := backoff.Retry(ctx, probe,
		backoff.WithBackOff(backoff.NewConstantBackOff(250*time.Millisecond)),
		backoff.WithMaxElapsedTime(timeout),
	)
	return err
}

func (h *serverHandle) Transcribe(ctx context.Context, path string) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	body, contentType, err := inferenceForm(path)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.baseURL+"/inference", body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := h.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("whisper-server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return "", fmt.Errorf("whisper-server: HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var out struct {
		Text  string `json:"text"`
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode whisper-server response: %w", err)
	}
	if out.Error != "" {
		return "", fmt.Errorf("whisper-server: %s", out.Error)
	}
	return strings.TrimSpace(out.Text), nil
}

func inferenceForm(path string) (io.Reader, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", err
	}
	defer f.Close()

	b := &bytes.Buffer{}
	mp := multipart.NewWriter(b)

	for field, value := range map[string]string{
		"response_format": "json",
		"temperature":     "0.0",
	} {
		if err := mp.WriteField(field, value); err != nil {
			return nil, "", err
		}
	}

	fp, err := mp.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(fp, f); err != nil {
		return nil, "", err
	}
	if err := mp.Close(); err != nil {
		return nil, "", err
	}
	return b, mp.FormDataContentType(), nil
}

func (h *serverHandle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.cmd == nil || h.cmd.Process == nil {
		return nil
	}
	cmd := h.cmd
	h.cmd = nil

	select {
	case <-h.exited:
		return nil
	default:
	}
	if err := cmd.Process.Kill(); err != nil {
		return err
	}
	<-h.exited
	return nil
}

var _ ports.ModelLoader = (*ServerLoader)(nil)
