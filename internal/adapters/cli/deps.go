package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewDepsCmd creates the deps subcommand
func NewDepsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deps",
		Short: "Manage dependencies (yt-dlp, ffmpeg)",
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show dependency status",
		RunE:  runDepsStatus,
	}

	updateCmd := &cobra.Command{
		Use:   "update",
		Short: "Update yt-dlp to latest version",
		RunE:  runDepsUpdate,
	}

	installCmd := &cobra.Command{
		Use:   "install",
		Short: "Install yt-dlp and ffmpeg",
		RunE:  runDepsInstall,
	}

	cmd.AddCommand(statusCmd, updateCmd, installCmd)
	return cmd
}

func runDepsStatus(cmd *cobra.Command, args []string) error {
	app, err := GetApp()
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Println("Dependency Status:")
	fmt.Println()

	if app.Downloader.IsAvailable() {
		fmt.Printf("  yt-dlp:   installed (%s)\n", app.Downloader.GetBinaryPath())
	} else {
		fmt.Println("  yt-dlp:   not found")
	}

	if app.Downloader.IsFFmpegAvailable() {
		fmt.Printf("  ffmpeg:   installed (%s)\n", app.Downloader.GetFFmpegPath())
	} else {
		fmt.Println("  ffmpeg:   not found")
	}

	models := app.Models.AvailableModels()
	downloaded := 0
	for _, m := range models {
		if m.Downloaded {
			downloaded++
		}
	}
	fmt.Printf("  whisper:  %s mode, %d/%d models downloaded\n", app.Config.Whisper.Mode, downloaded, len(models))
	fmt.Println()

	return nil
}

func runDepsUpdate(cmd *cobra.Command, args []string) error {
	app, err := GetApp()
	if err != nil {
		return err
	}

	if !app.Downloader.IsAvailable() {
		return fmt.Errorf("yt-dlp is not installed. Run 'yt2text deps install' first")
	}

	fmt.Println("Updating yt-dlp...")

	if err := app.Downloader.Update(cmd.Context()); err != nil {
		return err
	}

	fmt.Println("yt-dlp updated")
	return nil
}

func printPercent(downloaded, total int64) {
	if total > 0 {
		pct := float64(downloaded) / float64(total) * 100
		fmt.Printf("\rProgress: %.1f%%", pct)
	}
}

func runDepsInstall(cmd *cobra.Command, args []string) error {
	app, err := GetApp()
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	if app.Downloader.IsAvailable() {
		fmt.Println("yt-dlp is already installed")
	} else {
		fmt.Println("Installing yt-dlp...")
		if err := app.Downloader.Install(ctx, printPercent); err != nil {
			return err
		}
		fmt.Println("\nyt-dlp installed")
	}

	if app.Downloader.IsFFmpegAvailable() {
		fmt.Println("ffmpeg is already installed")
		return nil
	}

	fmt.Println("Installing ffmpeg...")
	if err := app.Downloader.InstallFFmpeg(ctx, printPercent); err != nil {
		return fmt.Errorf("%w\n\n%s", err, app.Downloader.FFmpegInstructions())
	}
	fmt.Println("\nffmpeg installed")
	return nil
}
