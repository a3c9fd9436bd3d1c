package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/devbush/voxcribe/internal/adapters/cli/tui"
)

// NewDepsCmd creates the deps subcommand
func NewDepsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deps",
		Short: "Manage external tools (ffmpeg, whisper.cpp)",
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show dependency status",
		Args:  cobra.NoArgs,
		RunE:  runDepsStatus,
	}

	installCmd := &cobra.Command{
		Use:   "install",
		Short: "Install ffmpeg and ffprobe if missing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDepsInstall(cmd.Context())
		},
	}

	cmd.AddCommand(statusCmd, installCmd)
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

	tools := app.Normalizer.Tools()
	printTool("ffmpeg", tools.FFmpeg)
	printTool("ffprobe", tools.FFprobe)
	printTool("whisper", app.Recognizer.BinaryPath())

	// Whisper models
	models := app.Models.ListAll()
	downloaded := 0
	for _, m := range models {
		if m.Available {
			downloaded++
		}
	}
	fmt.Printf("  %-9s %d/%d downloaded (%s)\n", "models", downloaded, len(models), app.Dirs.Models)
	fmt.Println()

	return nil
}

func printTool(name, path string) {
	if path == "" {
		fmt.Printf("  %-9s not found\n", name)
		return
	}
	fmt.Printf("  %-9s installed (%s)\n", name, path)
}

func runDepsInstall(ctx context.Context) error {
	app, err := GetApp()
	if err != nil {
		return err
	}

	if app.Normalizer.Tools().Complete() {
		fmt.Println("ffmpeg is already installed")
	} else {
		progress := tui.NewProgressDisplay(os.Stderr, []string{"Installing ffmpeg"}, quietFlag, isInteractive())
		progress.StartStep(0)
		err := app.Normalizer.Initialize(ctx, func(downloaded, total int64) {
			progress.UpdateBytes(0, downloaded, total)
		})
		if err != nil {
			progress.FailStep(0, err.Error())
			return err
		}
		progress.CompleteStep(0)
		fmt.Printf("ffmpeg installed to %s\n", app.Dirs.FFmpeg)
	}

	if app.Recognizer.BinaryPath() == "" {
		fmt.Println()
		fmt.Println(whisperInstructions())
	}
	return nil
}
