package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/devbush/yt2text/internal/adapters/cli/tui"
	"github.com/devbush/yt2text/internal/application"
	"github.com/devbush/yt2text/internal/domain"
)

var (
	// Global flags
	formatFlag    string
	modelFlag     string
	languageFlag  string
	noCacheFlag   bool
	keepAudioFlag bool
	outputFlag    string
	quietFlag     bool
	verboseFlag   bool
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "yt2text [video-url]",
		Short: "Get the transcript of a YouTube video",
		Long: `yt2text turns a YouTube video URL into plain text.

It uses the video's captions when they exist and otherwise downloads the
audio and transcribes it locally with whisper.cpp.

Provide a video URL to transcribe it, or run without arguments for an
interactive menu.`,
		Args:          cobra.MaximumNArgs(1),
		RunE:          runRoot,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&formatFlag, "format", "", "Output format: text, json (default from config)")
	rootCmd.PersistentFlags().StringVarP(&modelFlag, "model", "m", "", "Whisper model: tiny, base, small, medium, large (default from config)")
	rootCmd.PersistentFlags().StringVarP(&languageFlag, "language", "l", "", "Caption language code (default from config)")
	rootCmd.PersistentFlags().BoolVar(&noCacheFlag, "no-cache", false, "Re-download audio and skip cached results")
	rootCmd.PersistentFlags().BoolVar(&keepAudioFlag, "keep-audio", false, "Keep downloaded audio in the cache (default from config)")
	rootCmd.PersistentFlags().StringVarP(&outputFlag, "output", "o", "", "Output file path (batch: output directory)")
	rootCmd.PersistentFlags().BoolVarP(&quietFlag, "quiet", "q", false, "Suppress progress output")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Debug logging on stderr")

	rootCmd.AddCommand(NewBatchCmd())
	rootCmd.AddCommand(NewCacheCmd())
	rootCmd.AddCommand(NewModelCmd())
	rootCmd.AddCommand(NewDepsCmd())

	return rootCmd
}

func runRoot(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return runInteractiveMenu(cmd)
	}

	return runResolve(cmd, args[0])
}

func runInteractiveMenu(cmd *cobra.Command) error {
	options := []tui.MenuOption{
		{Label: "Transcribe a video", Value: "resolve"},
		{Label: "Manage models", Value: "models"},
		{Label: "Manage cache", Value: "cache"},
		{Label: "Check dependencies", Value: "deps"},
	}

	selected, err := tui.RunMenu("What would you like to do?", options)
	if err != nil {
		return err
	}

	switch selected {
	case "resolve":
		return runResolveInteractive(cmd)
	case "models":
		return runModelList(cmd, nil)
	case "cache":
		return runCacheStatus(cmd, nil)
	case "deps":
		return runDepsStatus(cmd, nil)
	case "":
		fmt.Fprintln(os.Stderr, "Cancelled")
	}

	return nil
}

func runResolveInteractive(cmd *cobra.Command) error {
	app, err := GetApp()
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}

	input, err := tui.RunPrompt("Enter a YouTube video URL", "https://www.youtube.com/watch?v=...", func(s string) error {
		_, err := app.Parser.Parse(s)
		return err
	})
	if err != nil {
		return err
	}
	if input == "" {
		fmt.Fprintln(os.Stderr, "Cancelled")
		return nil
	}

	return runResolve(cmd, input)
}

// resolveOptions builds options from flags, falling back to config defaults
func resolveOptions(cmd *cobra.Command, app *App) application.ResolveOptions {
	opts := application.ResolveOptions{
		ModelSize:     modelFlag,
		Language:      languageFlag,
		ForceDownload: noCacheFlag,
		KeepAudio:     app.Config.Audio.Keep,
	}
	if opts.ModelSize == "" {
		opts.ModelSize = app.Config.Defaults.Model
	}
	if opts.Language == "" {
		opts.Language = app.Config.Defaults.Language
	}
	if cmd.Flags().Changed("keep-audio") {
		opts.KeepAudio = keepAudioFlag
	}
	return opts
}

func outputFormat(app *App) (string, error) {
	format := formatFlag
	if format == "" {
		format = app.Config.Defaults.Format
	}
	switch format {
	case "", "text":
		return "text", nil
	case "json":
		return "json", nil
	default:
		return "", fmt.Errorf("unknown format: %s (use text or json)", format)
	}
}

// stageSteps maps resolver stages onto progress display rows
var stageSteps = []application.Stage{
	application.StageTranscript,
	application.StageDownload,
	application.StageTranscribe,
}

func stageIndex(s application.Stage) int {
	for i, st := range stageSteps {
		if st == s {
			return i
		}
	}
	return -1
}

func runResolve(cmd *cobra.Command, input string) error {
	app, err := GetApp()
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}

	format, err := outputFormat(app)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	names := make([]string, len(stageSteps))
	for i, s := range stageSteps {
		names[i] = s.String()
	}
	progress := tui.NewProgressDisplay(names, quietFlag)

	opts := resolveOptions(cmd, app)
	opts.OnStage = func(s application.Stage) {
		idx := stageIndex(s)
		progress.StartStep(idx)
		if s == application.StageDownload {
			ensureAudioTools(ctx, app, func(d, t int64) { progress.UpdateProgress(idx, d, t) })
		}
	}

	spinnerDone := progress.StartSpinner()
	result, err := app.Resolver.Resolve(ctx, input, opts)
	close(spinnerDone)

	if err != nil {
		progress.Fail(failureSummary(err))
		return err
	}
	progress.Finish()

	if err := writeResult(result, format, outputFlag); err != nil {
		return err
	}

	if !result.Found && format == "text" {
		return fmt.Errorf("%s: %w", result.VideoID, domain.ErrTranscriptUnavailable)
	}

	outputs := map[string]string{
		"Source": tui.SourceLabel(result.Source),
		"Words":  fmt.Sprintf("%d", result.WordCount()),
	}
	if result.Model != "" {
		outputs["Model"] = result.Model
	}
	if outputFlag != "" {
		outputs["Transcript"] = outputFlag
	}
	progress.Complete(outputs)

	return nil
}

// ensureAudioTools installs yt-dlp and ffmpeg when they are missing and the
// platform allows it. Failures are logged; the download then reports the
// missing tool itself.
func ensureAudioTools(ctx context.Context, app *App, progress func(downloaded, total int64)) {
	if !app.Downloader.IsAvailable() {
		app.Logger.Info("installing yt-dlp")
		if err := app.Downloader.Install(ctx, progress); err != nil {
			app.Logger.Warn("yt-dlp install failed", slog.Any("err", err))
		}
	}

	if !app.Downloader.IsFFmpegAvailable() {
		app.Logger.Info("installing ffmpeg")
		if err := app.Downloader.InstallFFmpeg(ctx, progress); err != nil {
			app.Logger.Warn("ffmpeg install failed", slog.Any("err", err),
				slog.String("instructions", app.Downloader.FFmpegInstructions()))
		}
	}
}

// failureSummary is the short message shown next to the failed step
func failureSummary(err error) string {
	var re *domain.ResolveError
	if errors.As(err, &re) && re.Err != nil {
		return lastLine(re.Err.Error())
	}
	return lastLine(err.Error())
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndex(s, "\n"); i >= 0 {
		return s[i+1:]
	}
	return s
}

// formatResult renders a result as text or indented JSON
func formatResult(result *domain.TranscriptResult, format string) ([]byte, error) {
	switch format {
	case "json":
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	default:
		if !result.Found {
			return nil, nil
		}
		return []byte(result.Text + "\n"), nil
	}
}

func writeResult(result *domain.TranscriptResult, format, path string) error {
	data, err := formatResult(result, format)
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}
	if path != "" {
		return writeFileAtomic(path, data)
	}
	return writeTo(os.Stdout, data)
}

func writeTo(w io.Writer, data []byte) error {
	_, err := w.Write(data)
	return err
}

// Execute runs the CLI
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := NewRootCmd().ExecuteContext(ctx)
	stop()
	closeApp()

	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
