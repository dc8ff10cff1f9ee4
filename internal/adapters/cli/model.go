package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/devbush/yt2text/internal/adapters/cli/tui"
	"github.com/devbush/yt2text/internal/adapters/whisper"
	"github.com/devbush/yt2text/internal/domain"
)

// NewModelCmd creates the model subcommand
func NewModelCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "model",
		Short: "Manage Whisper models",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List available models",
		RunE:  runModelList,
	}

	downloadCmd := &cobra.Command{
		Use:   "download <model>",
		Short: "Download a model",
		Args:  cobra.ExactArgs(1),
		RunE:  runModelDownload,
	}

	removeCmd := &cobra.Command{
		Use:   "remove <model>",
		Short: "Remove a downloaded model",
		Args:  cobra.ExactArgs(1),
		RunE:  runModelRemove,
	}

	cmd.AddCommand(listCmd, downloadCmd, removeCmd)
	return cmd
}

func runModelList(cmd *cobra.Command, args []string) error {
	app, err := GetApp()
	if err != nil {
		return err
	}

	models := app.Models.AvailableModels()

	fmt.Println()
	fmt.Printf("  %-10s %-12s %s\n", "Model", "Size", "Status")
	fmt.Println("  " + strings.Repeat("-", 40))

	for _, m := range models {
		status := "not downloaded"
		if m.Downloaded {
			status = "downloaded"
		}
		if m.Name == app.Config.Defaults.Model {
			status += " (default)"
		}

		fmt.Printf("  %-10s %-12s %s\n", m.Name, tui.FormatSize(m.Size), status)
	}
	fmt.Println()

	return nil
}

func validModel(model string) error {
	if !whisper.IsValidModel(model) {
		return fmt.Errorf("%w: %s (use tiny, base, small, medium, large)", domain.ErrUnknownModel, model)
	}
	return nil
}

func runModelDownload(cmd *cobra.Command, args []string) error {
	app, err := GetApp()
	if err != nil {
		return err
	}

	model := args[0]
	if err := validModel(model); err != nil {
		return err
	}

	if app.Models.IsModelDownloaded(model) {
		fmt.Printf("Model '%s' is already downloaded\n", model)
		return nil
	}

	fmt.Printf("Downloading model '%s'...\n", model)

	err = app.Models.DownloadModel(cmd.Context(), model, func(downloaded, total int64) {
		if total > 0 {
			pct := float64(downloaded) / float64(total) * 100
			fmt.Printf("\rProgress: %.1f%% (%s / %s)", pct, tui.FormatSize(downloaded), tui.FormatSize(total))
		}
	})
	if err != nil {
		return err
	}

	fmt.Println("\nModel downloaded successfully")
	return nil
}

func runModelRemove(cmd *cobra.Command, args []string) error {
	app, err := GetApp()
	if err != nil {
		return err
	}

	model := args[0]
	if err := validModel(model); err != nil {
		return err
	}

	if !app.Models.IsModelDownloaded(model) {
		fmt.Printf("Model '%s' is not downloaded\n", model)
		return nil
	}

	if err := app.Models.DeleteModel(model); err != nil {
		return err
	}

	fmt.Printf("Model '%s' removed\n", model)
	return nil
}
