package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/devbush/voxcribe/internal/adapters/cli/tui"
	"github.com/devbush/voxcribe/internal/domain"
)

// ExitCancelled is the process exit code after a user cancellation.
const ExitCancelled = 130

var (
	// Global flags
	configFlag   string
	verboseFlag  bool
	quietFlag    bool
	modelFlag    string
	languageFlag string
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "voxcribe",
		Short: "Transcribe audio and video locally with Whisper",
		Long: `voxcribe transcribes audio and video files on this machine.

Media is converted with ffmpeg and recognized with whisper.cpp; nothing is
uploaded. Run without arguments for an interactive menu.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runRoot,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "Config file (default: <app dir>/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVarP(&quietFlag, "quiet", "q", false, "Suppress progress output")
	rootCmd.PersistentFlags().StringVarP(&modelFlag, "model", "m", "", "Whisper model: "+strings.Join(domain.ModelIDs(), ", "))
	rootCmd.PersistentFlags().StringVarP(&languageFlag, "language", "l", "", "Language code (auto, en, fr, es, etc.)")

	// Add subcommands
	rootCmd.AddCommand(NewTranscribeCmd())
	rootCmd.AddCommand(NewRecordCmd())
	rootCmd.AddCommand(NewModelCmd())
	rootCmd.AddCommand(NewDepsCmd())
	rootCmd.AddCommand(NewCacheCmd())
	rootCmd.AddCommand(NewLanguagesCmd())

	return rootCmd
}

func runRoot(cmd *cobra.Command, args []string) error {
	if !isInteractive() {
		return cmd.Help()
	}
	return runInteractiveMenu(cmd.Context())
}

// isInteractive reports whether stderr (where progress goes) is a terminal.
func isInteractive() bool {
	fd := os.Stderr.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func runInteractiveMenu(ctx context.Context) error {
	options := []tui.MenuOption{
		{Label: "Transcribe a media file", Value: "transcribe"},
		{Label: "Record from microphone", Value: "record"},
		{Label: "Manage models", Value: "models"},
		{Label: "Install dependencies", Value: "deps"},
		{Label: "Manage cache", Value: "cache"},
	}

	selected, err := tui.RunMenu("What would you like to do?", options)
	if err != nil {
		return err
	}

	switch selected {
	case "transcribe":
		return runTranscribeInteractive(ctx)
	case "record":
		return runRecord(ctx)
	case "models":
		return runModelsInteractive(ctx)
	case "deps":
		return runDepsInstall(ctx)
	case "cache":
		return runCacheInteractive(ctx)
	case "":
		fmt.Fprintln(os.Stderr, "Cancelled")
	}

	return nil
}

func runTranscribeInteractive(ctx context.Context) error {
	app, err := GetApp()
	if err != nil {
		return err
	}

	mediaPath, err := prompt(os.Stdin, os.Stderr, "Enter the path of an audio or video file: ")
	if err != nil {
		return err
	}
	if mediaPath == "" {
		fmt.Fprintln(os.Stderr, "Cancelled")
		return nil
	}

	model, ok, err := pickModel(app)
	if err != nil || !ok {
		return err
	}
	language, ok, err := pickLanguage()
	if err != nil || !ok {
		return err
	}
	choices, err := tui.RunTranscribeOptions(tui.TranscribeChoices{})
	if err != nil || choices == nil {
		return err
	}

	result, err := transcribeFile(ctx, app, mediaPath, transcribeRequest{
		Model:    model,
		Language: language,
		Segments: choices.Segments,
		NoCache:  choices.NoCache,
	})
	if err != nil {
		return err
	}

	format := app.Config.Defaults.Format
	output := ""
	if choices.SaveSRT {
		format = "srt"
		output = replaceExt(mediaPath, ".srt")
	}
	return emitResult(os.Stdout, result.Output, format, output)
}

func pickModel(app *App) (domain.ModelID, bool, error) {
	defaultModel := app.Config.ModelID()
	var options []tui.MenuOption
	for _, m := range app.Models.ListAll() {
		options = append(options, tui.MenuOption{
			Label: tui.FormatModelLine(m, m.ID == defaultModel),
			Value: string(m.ID),
		})
	}

	selected, err := tui.RunMenu("Which model?", options)
	if err != nil || selected == "" {
		return "", false, err
	}
	return domain.ModelID(selected), true, nil
}

func pickLanguage() (string, bool, error) {
	var items []tui.PickerItem
	for _, lang := range domain.Languages() {
		label := lang.Name
		if !lang.IsAuto() {
			label = fmt.Sprintf("%s (%s)", lang.Name, lang.Code)
		}
		items = append(items, tui.PickerItem{Label: label, Value: lang.Code})
	}

	item, ok, err := tui.RunPicker("Which language is spoken?", items, 10)
	if err != nil || !ok {
		return "", false, err
	}
	return item.Value, true, nil
}

// prompt reads one trimmed line. Surrounding quotes are removed so that
// paths dragged into a terminal work.
func prompt(in io.Reader, out io.Writer, question string) (string, error) {
	fmt.Fprint(out, question)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	line = strings.TrimSpace(line)
	if len(line) >= 2 && (line[0] == '"' || line[0] == '\'') && line[len(line)-1] == line[0] {
		line = line[1 : len(line)-1]
	}
	return line, nil
}

// Execute runs the CLI and returns the process exit code
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := NewRootCmd().ExecuteContext(ctx)
	return reportError(os.Stderr, err)
}

// reportError prints err with a hint for the common failure kinds and maps it
// to an exit code.
func reportError(w io.Writer, err error) int {
	if err == nil {
		return 0
	}
	if domain.IsCancelled(err) || errors.Is(err, context.Canceled) {
		fmt.Fprintln(w, "Cancelled")
		return ExitCancelled
	}

	fmt.Fprintf(w, "Error: %v\n", err)
	switch domain.KindOf(err) {
	case domain.ErrModelUnavailable:
		fmt.Fprintln(w, "Hint: download it with 'voxcribe model download <model>'")
	case domain.ErrNoAudioStream:
		fmt.Fprintln(w, "Hint: the file has no audio track to transcribe")
	case domain.ErrTransientIO:
		fmt.Fprintln(w, "Hint: check your network connection and free disk space, then retry")
	}
	return 1
}
