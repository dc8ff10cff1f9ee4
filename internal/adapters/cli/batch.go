package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/spf13/cobra"

	"github.com/devbush/yt2text/internal/adapters/cli/tui"
	"github.com/devbush/yt2text/internal/application"
	"github.com/devbush/yt2text/internal/domain"
)

var (
	batchFileFlag    string
	batchConcurrency int
)

const maxBatchConcurrency = 16

// NewBatchCmd creates the batch command
func NewBatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch [urls...]",
		Short: "Transcribe multiple videos",
		Long: `Transcribe multiple YouTube videos concurrently.

Provide video URLs as arguments and/or via a file with --file.
Each transcript is saved to the output directory (--output, default: current
directory) as <video-id>.txt or <video-id>.json.

Example:
  yt2text batch "https://www.youtube.com/watch?v=dQw4w9WgXcQ"
  yt2text batch --file videos.txt
  yt2text batch --file videos.txt --concurrency 2 -o transcripts/`,
		RunE: runBatch,
	}

	cmd.Flags().StringVarP(&batchFileFlag, "file", "f", "", "File with URLs (one per line)")
	cmd.Flags().IntVarP(&batchConcurrency, "concurrency", "c", 3, fmt.Sprintf("Max videos in flight (max %d)", maxBatchConcurrency))

	return cmd
}

func runBatch(cmd *cobra.Command, args []string) error {
	batchConcurrency = max(1, min(batchConcurrency, maxBatchConcurrency))

	app, err := GetApp()
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}

	urls, err := CollectInputs(app.Parser, args, batchFileFlag)
	if err != nil {
		return fmt.Errorf("failed to collect inputs: %w", err)
	}
	if len(urls) == 0 {
		return fmt.Errorf("no video URLs provided")
	}

	format, err := outputFormat(app)
	if err != nil {
		return err
	}

	outputDir := outputFlag
	if outputDir == "" {
		outputDir = "."
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	opts := resolveOptions(cmd, app)
	if needsAudioTools(app) {
		// Workers share the tools, so install up front rather than per video
		ensureAudioTools(ctx, app, nil)
	}

	return processBatch(ctx, app, urls, opts, format, outputDir)
}

func needsAudioTools(app *App) bool {
	return !app.Downloader.IsAvailable() || !app.Downloader.IsFFmpegAvailable()
}

func processBatch(ctx context.Context, app *App, urls []string, opts application.ResolveOptions, format, outputDir string) error {
	progress := tui.NewBatchProgress(len(urls), quietFlag)
	var writeFailures atomic.Int32

	batch := application.NewBatchResolver(app.Resolver, application.BatchHooks{
		OnDone: func(item application.BatchItem) {
			if item.OK() && item.Result.Found {
				if err := saveTranscript(item.Result, format, outputDir); err != nil {
					item.Err = err
					writeFailures.Add(1)
				}
			}
			progress.AddResult(batchResult(item))
		},
	})

	items := batch.ResolveAll(ctx, urls, opts, batchConcurrency)
	progress.Complete()

	summary := Summarize(items)
	summary.Failed += int(writeFailures.Load())
	summary.Found -= int(writeFailures.Load())
	if summary.Failed > 0 || summary.Missing > 0 {
		return fmt.Errorf("%d of %d videos failed, %d had no transcript", summary.Failed, summary.Total, summary.Missing)
	}
	return nil
}

// batchResult converts a batch item to its display row
func batchResult(item application.BatchItem) tui.BatchResult {
	r := tui.BatchResult{
		Label:    item.URL,
		Success:  item.OK(),
		Duration: item.Duration,
	}

	var re *domain.ResolveError
	if errors.As(item.Err, &re) && re.VideoID != "" {
		r.Label = string(re.VideoID)
	}

	switch {
	case item.Err != nil:
		r.ErrMsg = item.Err.Error()
		if re != nil && re.Err != nil {
			r.ErrMsg = fmt.Sprintf("%s: %s", re.Kind, lastLine(re.Err.Error()))
		}
	case !item.Result.Found:
		r.Label = string(item.Result.VideoID)
		r.Success = false
		r.ErrMsg = domain.ErrTranscriptUnavailable.Error()
	default:
		r.Label = string(item.Result.VideoID)
		r.Source = tui.SourceLabel(item.Result.Source)
	}
	return r
}

func transcriptPath(outputDir string, id domain.VideoID, format string) string {
	ext := "txt"
	if format == "json" {
		ext = "json"
	}
	return filepath.Join(outputDir, string(id)+"."+ext)
}

func saveTranscript(result *domain.TranscriptResult, format, outputDir string) error {
	data, err := formatResult(result, format)
	if err != nil {
		return err
	}
	if err := writeFileAtomic(transcriptPath(outputDir, result.VideoID, format), data); err != nil {
		return fmt.Errorf("failed to write transcript: %w", err)
	}
	return nil
}
