package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/devbush/voxcribe/internal/adapters/cli/tui"
	"github.com/devbush/voxcribe/internal/application"
)

var (
	clearAllFlag      bool
	forgetSegmentFlag bool
)

// NewCacheCmd creates the cache subcommand
func NewCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage cached transcripts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCacheStatus(cmd.Context())
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear cache entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCacheClear(cmd.Context(), clearAllFlag)
		},
	}
	clearCmd.Flags().BoolVar(&clearAllFlag, "all", false, "Clear all cache entries")

	forgetCmd := &cobra.Command{
		Use:   "forget <media-file>",
		Short: "Drop the cached transcript of a file for the selected model and language",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCacheForget(cmd.Context(), args[0])
		},
	}
	forgetCmd.Flags().BoolVar(&forgetSegmentFlag, "segments", false, "Target the entry stored with segments")

	cmd.AddCommand(clearCmd, forgetCmd)

	return cmd
}

func runCacheStatus(ctx context.Context) error {
	app, err := GetApp()
	if err != nil {
		return err
	}

	stats, err := app.CacheSvc.Stats(ctx)
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Println("Cache Statistics:")
	fmt.Printf("  Items: %d\n", stats.ItemCount)
	fmt.Printf("  Size:  %s\n", tui.FormatSize(stats.TotalSize))
	fmt.Printf("  TTL:   %s\n", app.Config.Defaults.CacheTTL)
	fmt.Printf("  Path:  %s\n", app.Dirs.Transcripts)
	fmt.Println()

	return nil
}

func runCacheClear(ctx context.Context, all bool) error {
	app, err := GetApp()
	if err != nil {
		return err
	}

	if all {
		if err := app.CacheSvc.Clear(ctx); err != nil {
			return err
		}
		fmt.Println("All cache entries cleared")
		return nil
	}

	cleaned, err := app.CacheSvc.CleanExpired(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Removed %d expired entries\n", cleaned)
	return nil
}

func runCacheForget(ctx context.Context, mediaPath string) error {
	app, err := GetApp()
	if err != nil {
		return err
	}

	req, err := requestFromFlags(app)
	if err != nil {
		return err
	}

	err = app.CacheSvc.Forget(ctx, mediaPath, application.TranscribeOptions{
		Model:           req.Model,
		Language:        req.Language,
		IncludeSegments: forgetSegmentFlag,
	})
	if err != nil {
		return err
	}
	fmt.Printf("Forgot cached transcript of %s (%s)\n", mediaPath, req.Model)
	return nil
}

func runCacheInteractive(ctx context.Context) error {
	if err := runCacheStatus(ctx); err != nil {
		return err
	}

	selected, err := tui.RunMenu("Cache", []tui.MenuOption{
		{Label: "Remove expired entries", Value: "expired"},
		{Label: "Clear everything", Value: "all"},
		{Label: "Back", Value: ""},
	})
	if err != nil || selected == "" {
		return err
	}
	return runCacheClear(ctx, selected == "all")
}
