package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/devbush/voxcribe/internal/adapters/cli/tui"
	"github.com/devbush/voxcribe/internal/domain"
)

var modelJSONFlag bool

// NewModelCmd creates the model subcommand
func NewModelCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "model",
		Short: "Manage Whisper models",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List models and their download state",
		Args:  cobra.NoArgs,
		RunE:  runModelList,
	}
	listCmd.Flags().BoolVar(&modelJSONFlag, "json", false, "Print as JSON")

	downloadCmd := &cobra.Command{
		Use:   "download <model>",
		Short: "Download a model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runModelDownload(cmd.Context(), args[0])
		},
	}

	removeCmd := &cobra.Command{
		Use:   "remove <model>",
		Short: "Remove a downloaded model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runModelRemove(cmd.Context(), args[0])
		},
	}

	cmd.AddCommand(listCmd, downloadCmd, removeCmd)
	return cmd
}

func runModelList(cmd *cobra.Command, args []string) error {
	app, err := GetApp()
	if err != nil {
		return err
	}

	models := app.Models.ListAll()

	if modelJSONFlag {
		data, err := json.MarshalIndent(models, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	defaultModel := app.Config.ModelID()

	fmt.Println()
	fmt.Printf("  %-9s %10s  %-26s %s\n", "Model", "Size", "Description", "Status")
	fmt.Println("  " + strings.Repeat("-", 60))
	for _, m := range models {
		fmt.Println("  " + tui.FormatModelLine(m, m.ID == defaultModel))
	}
	fmt.Println()

	return nil
}

func runModelDownload(ctx context.Context, name string) error {
	app, err := GetApp()
	if err != nil {
		return err
	}

	id, err := domain.ParseModelID(name)
	if err != nil {
		return err
	}

	if app.Models.IsAvailable(id) {
		fmt.Printf("Model '%s' is already downloaded\n", id)
		return nil
	}

	info, _ := domain.LookupModel(id)
	progress := tui.NewProgressDisplay(os.Stderr, []string{"Downloading model " + string(id)}, quietFlag, isInteractive())
	progress.StartStep(0)

	err = app.Models.Acquire(ctx, id, func(ratio float64) {
		progress.UpdateBytes(0, int64(ratio*float64(info.SizeBytes)), info.SizeBytes)
	})
	if err != nil {
		progress.FailStep(0, err.Error())
		return err
	}
	progress.CompleteStep(0)

	path, _ := app.Models.ResolveLocalPath(id)
	fmt.Printf("Model '%s' downloaded to %s\n", id, path)
	return nil
}

func runModelRemove(ctx context.Context, name string) error {
	app, err := GetApp()
	if err != nil {
		return err
	}

	id, err := domain.ParseModelID(name)
	if err != nil {
		return err
	}

	if !app.Models.IsAvailable(id) {
		fmt.Printf("Model '%s' is not downloaded\n", id)
		return nil
	}

	if err := app.Models.Remove(ctx, id); err != nil {
		return err
	}

	fmt.Printf("Model '%s' removed\n", id)
	return nil
}

func runModelsInteractive(ctx context.Context) error {
	app, err := GetApp()
	if err != nil {
		return err
	}

	id, ok, err := pickModel(app)
	if err != nil || !ok {
		return err
	}

	if !app.Models.IsAvailable(id) {
		return runModelDownload(ctx, string(id))
	}

	action, err := tui.RunMenu(fmt.Sprintf("Model '%s' is downloaded", id), []tui.MenuOption{
		{Label: "Keep it", Value: "keep"},
		{Label: "Remove it", Value: "remove"},
	})
	if err != nil {
		return err
	}
	if action == "remove" {
		return runModelRemove(ctx, string(id))
	}
	return nil
}
