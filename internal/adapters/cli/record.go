package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/devbush/voxcribe/internal/adapters/cli/tui"
	"github.com/devbush/voxcribe/internal/domain"
)

var (
	keepFlag         string
	noTranscribeFlag bool
)

// NewRecordCmd creates the record subcommand
func NewRecordCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record from the microphone, then transcribe the recording",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRecord(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&keepFlag, "keep", "", "Save the recording (WAV) to this path")
	cmd.Flags().BoolVar(&noTranscribeFlag, "no-transcribe", false, "Only record; implies --keep")
	cmd.Flags().StringVarP(&formatFlag, "format", "f", "", "Output format: text, srt, json (default from config)")
	cmd.Flags().StringVarP(&outputFlag, "output", "o", "", "Output file path (default: stdout)")
	cmd.Flags().BoolVar(&segmentsFlag, "segments", false, "Keep timed segments (implied by --format srt)")

	return cmd
}

func runRecord(ctx context.Context) error {
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
	// Every recording is new audio.
	req.NoCache = true

	// Capture needs ffmpeg; fetch the model now so transcription starts right away.
	if noTranscribeFlag {
		if err := app.Normalizer.Initialize(ctx, nil); err != nil {
			return err
		}
	} else if err := prepare(ctx, app, req.Model); err != nil {
		return err
	}

	session, err := app.Recorder.Start(ctx, domain.DefaultRecordingConfig())
	if err != nil {
		return err
	}

	stop, err := waitForStop(ctx)
	if err != nil || !stop {
		if cancelErr := app.Recorder.Cancel(); cancelErr != nil {
			app.Log.Warn().Err(cancelErr).Msg("failed to discard recording")
		}
		if err != nil {
			return err
		}
		return domain.Cancelled("record", ctx.Err())
	}

	path, err := app.Recorder.Stop()
	if err != nil {
		return err
	}
	if !quietFlag {
		fmt.Fprintf(os.Stderr, "Recorded %s\n", tui.FormatElapsed(session.Duration()))
	}

	keep := keepFlag
	if keep == "" && noTranscribeFlag {
		keep = recordingName(session.StartedAt)
	}
	if keep != "" {
		if err := moveFile(path, keep); err != nil {
			os.Remove(path)
			return fmt.Errorf("failed to save recording: %w", err)
		}
		path = keep
		if !quietFlag {
			fmt.Fprintf(os.Stderr, "Recording saved to %s\n", keep)
		}
	} else {
		defer func() {
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				app.Log.Warn().Err(err).Str("path", path).Msg("failed to remove recording")
			}
		}()
	}

	if noTranscribeFlag {
		return nil
	}

	result, err := transcribeFile(ctx, app, path, req)
	if err != nil {
		return err
	}
	return emitResult(os.Stdout, result.Output, format, outputFlag)
}

// waitForStop blocks until the user ends the recording. It returns false
// when the recording should be discarded.
func waitForStop(ctx context.Context) (bool, error) {
	app, err := GetApp()
	if err != nil {
		return false, err
	}

	if isInteractive() {
		action, err := tui.RunRecording(ctx, os.Stderr, app.Recorder.OnElapsed)
		if err != nil {
			return false, err
		}
		return action == tui.RecordingStop && ctx.Err() == nil, nil
	}

	if !quietFlag {
		fmt.Fprintln(os.Stderr, "Recording... press Enter to stop, Ctrl+C to discard")
	}
	return waitForEnter(ctx, os.Stdin), nil
}

// waitForEnter returns true when a line (or EOF) is read from in, false when
// ctx ends first.
func waitForEnter(ctx context.Context, in io.Reader) bool {
	line := make(chan struct{}, 1)
	go func() {
		bufio.NewReader(in).ReadString('\n')
		line <- struct{}{}
	}()

	select {
	case <-line:
		return true
	case <-ctx.Done():
		return false
	}
}

// recordingName is the default file name for a kept recording.
func recordingName(started time.Time) string {
	return fmt.Sprintf("recording-%s.wav", started.Format("20060102-150405"))
}
