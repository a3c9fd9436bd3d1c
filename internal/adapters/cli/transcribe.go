package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/devbush/voxcribe/internal/adapters/cli/tui"
	"github.com/devbush/voxcribe/internal/application"
	"github.com/devbush/voxcribe/internal/domain"
)

var (
	formatFlag   string
	outputFlag   string
	segmentsFlag bool
	noCacheFlag  bool
)

// NewTranscribeCmd creates the transcribe subcommand
func NewTranscribeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transcribe <media-file>",
		Short: "Transcribe an audio or video file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTranscribe(cmd.Context(), args[0])
		},
	}

	cmd.Flags().StringVarP(&formatFlag, "format", "f", "", "Output format: text, srt, json (default from config)")
	cmd.Flags().StringVarP(&outputFlag, "output", "o", "", "Output file path (default: stdout)")
	cmd.Flags().BoolVar(&segmentsFlag, "segments", false, "Keep timed segments (implied by --format srt)")
	cmd.Flags().BoolVar(&noCacheFlag, "no-cache", false, "Skip cache")

	return cmd
}

func runTranscribe(ctx context.Context, mediaPath string) error {
	app, err := GetApp()
	if err != nil {
		return err
	}

	req, err := requestFromFlags(app)
	if err != nil {
		return err
	}
	format := resolveFormat(app)
	if format == "srt" {
		req.Segments = true
	}

	result, err := transcribeFile(ctx, app, mediaPath, req)
	if err != nil {
		return err
	}
	return emitResult(os.Stdout, result.Output, format, outputFlag)
}

// transcribeRequest is one transcription as chosen by flags or the menu.
type transcribeRequest struct {
	Model    domain.ModelID
	Language string
	Segments bool
	NoCache  bool
}

func requestFromFlags(app *App) (transcribeRequest, error) {
	model := app.Config.ModelID()
	if modelFlag != "" {
		id, err := domain.ParseModelID(modelFlag)
		if err != nil {
			return transcribeRequest{}, err
		}
		model = id
	}

	language := app.Config.Defaults.Language
	if languageFlag != "" {
		language = languageFlag
	}
	code, err := domain.NormalizeLanguage(language)
	if err != nil {
		return transcribeRequest{}, err
	}

	return transcribeRequest{
		Model:    model,
		Language: code,
		Segments: segmentsFlag,
		NoCache:  noCacheFlag,
	}, nil
}

func resolveFormat(app *App) string {
	if formatFlag != "" {
		return formatFlag
	}
	return app.Config.Defaults.Format
}

// transcribeFile makes sure the toolchain and model are present, then runs
// the pipeline with progress on stderr.
func transcribeFile(ctx context.Context, app *App, mediaPath string, req transcribeRequest) (*application.TranscribeResult, error) {
	if err := prepare(ctx, app, req.Model); err != nil {
		return nil, err
	}

	var result *application.TranscribeResult
	run := func(ctx context.Context, onProgress domain.ProgressFunc, onSegment func(domain.TextSegment)) error {
		res, err := app.TranscribeSvc.Transcribe(ctx, mediaPath, application.TranscribeOptions{
			Model:           req.Model,
			Language:        req.Language,
			IncludeSegments: req.Segments,
			NoCache:         req.NoCache,
			OnSegment:       onSegment,
		}, onProgress)
		result = res
		return err
	}

	title := "Transcribing " + filepath.Base(mediaPath)
	if !quietFlag && isInteractive() {
		if err := tui.RunPipeline(ctx, title, os.Stderr, run); err != nil {
			return nil, err
		}
		return result, nil
	}

	progress := tui.NewProgressDisplay(os.Stderr, []string{title}, quietFlag, false)
	progress.StartStep(0)
	err := run(ctx, func(p domain.Progress) {
		progress.UpdateRatio(0, p.Ratio, p.Phase)
	}, nil)
	if err != nil {
		progress.FailStep(0, err.Error())
		return nil, err
	}
	if result.FromCache {
		progress.SkipStep(0, "cached")
	} else {
		progress.CompleteStep(0)
	}
	return result, nil
}

// prepare installs ffmpeg and downloads the model when missing.
func prepare(ctx context.Context, app *App, model domain.ModelID) error {
	progress := tui.NewProgressDisplay(os.Stderr, []string{"Checking dependencies", "Downloading model " + string(model)}, quietFlag, isInteractive())

	progress.StartStep(0)
	if err := ensureTools(ctx, app, func(d, t int64) { progress.UpdateBytes(0, d, t) }); err != nil {
		progress.FailStep(0, err.Error())
		return err
	}
	progress.CompleteStep(0)

	if app.Models.IsAvailable(model) {
		progress.SkipStep(1, "already downloaded")
		return nil
	}

	progress.StartStep(1)
	info, _ := domain.LookupModel(model)
	err := app.Models.Acquire(ctx, model, func(ratio float64) {
		progress.UpdateBytes(1, int64(ratio*float64(info.SizeBytes)), info.SizeBytes)
	})
	if err != nil {
		progress.FailStep(1, err.Error())
		return err
	}
	progress.CompleteStep(1)
	return nil
}

// ensureTools initializes ffmpeg and checks that whisper-cli can be found.
func ensureTools(ctx context.Context, app *App, progress func(downloaded, total int64)) error {
	if err := app.Normalizer.Initialize(ctx, progress); err != nil {
		return err
	}
	if app.Recognizer.BinaryPath() == "" {
		return errors.New(whisperInstructions())
	}
	return nil
}

func whisperInstructions() string {
	msg := "whisper.cpp command line tool (whisper-cli) not found.\n"
	switch runtime.GOOS {
	case "darwin":
		msg += "Install it with: brew install whisper-cpp"
	case "windows":
		msg += "Download a release from https://github.com/ggerganov/whisper.cpp/releases and add it to PATH"
	default:
		msg += "Build it from https://github.com/ggerganov/whisper.cpp and add whisper-cli to PATH"
	}
	msg += fmt.Sprintf("\nor set tools.whisper_binary in %s", configPathForHelp())
	return msg
}

func configPathForHelp() string {
	if configFlag != "" {
		return configFlag
	}
	return "config.yaml"
}
