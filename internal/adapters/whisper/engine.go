// Package whisper runs speech recognition with whisper.cpp models.
package whisper

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/devbush/voxcribe/internal/domain"
	"github.com/devbush/voxcribe/internal/ports"
)

// Progress phases reported by the engine.
const (
	PhaseInitializing = "Initializing transcription"
	PhaseTranscribing = "Transcribing"
)

// ModelResolver maps a model id to its local artifact.
type ModelResolver interface {
	ResolveLocalPath(id domain.ModelID) (string, error)
}

// Engine implements ports.RecognitionEngine on top of a Recognizer.
type Engine struct {
	models     ModelResolver
	recognizer Recognizer
	log        zerolog.Logger
	now        func() time.Time
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) EngineOption {
	return func(e *Engine) { e.log = l.With().Str("component", "engine").Logger() }
}

// NewEngine creates an engine resolving models through models.
func NewEngine(models ModelResolver, recognizer Recognizer, opts ...EngineOption) *Engine {
	e := &Engine{models: models, recognizer: recognizer, log: zerolog.Nop(), now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Transcribe recognizes speech in audioPath. For every segment, in order, the
// text is trimmed, retained when requested, handed to the segment observer
// and then reported as progress. Progress is the byte position of the
// segment end within the file.
func (e *Engine) Transcribe(ctx context.Context, audioPath string, model domain.ModelID, opts domain.TranscriptionOptions, progress domain.ProgressFunc) (*domain.TranscriptionOutput, error) {
	const op = "transcribe"

	started := e.now()
	if err := ctx.Err(); err != nil {
		return nil, domain.Cancelled(op, err)
	}

	if fi, err := os.Stat(audioPath); err != nil || fi.IsDir() {
		if err == nil {
			err = errors.New("is a directory")
		}
		return nil, domain.NewError(domain.ErrNotFound, op, audioPath, err)
	}

	modelPath, err := e.models.ResolveLocalPath(model)
	if err != nil {
		return nil, err
	}

	lang, err := domain.NormalizeLanguage(opts.Language)
	if err != nil {
		return nil, domain.NewError(domain.ErrEngineFailure, op, audioPath, err)
	}

	layout, err := readLayout(audioPath)
	if err != nil {
		e.log.Debug().Err(err).Str("path", audioPath).Msg("using default audio layout for progress")
	}

	report := func(p domain.Progress) {
		if progress != nil {
			progress(p)
		}
	}
	report(domain.Progress{Ratio: 0, Phase: PhaseInitializing})

	var (
		segments  []domain.TextSegment
		texts     []string
		lastStart time.Duration = -1
		lastRatio float64
	)
	if opts.IncludeSegments {
		segments = []domain.TextSegment{}
	}

	emit := func(raw RawSegment) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if raw.Start < lastStart {
			return fmt.Errorf("segment at %v arrived after segment at %v", raw.Start, lastStart)
		}
		lastStart = raw.Start

		seg := domain.TextSegment{
			Text:  strings.TrimSpace(raw.Text),
			Start: raw.Start,
			End:   raw.End,
		}
		if opts.IncludeSegments {
			segments = append(segments, seg)
		}
		if opts.OnSegmentDetected != nil {
			opts.OnSegmentDetected(seg)
		}
		texts = append(texts, seg.Text)

		if ratio := domain.ClampRatio(layout.ratioAt(seg.End)); ratio > lastRatio {
			lastRatio = ratio
		}
		report(domain.Progress{Ratio: lastRatio, Phase: PhaseTranscribing, PartialText: seg.Text})
		return nil
	}

	e.log.Debug().Str("model", string(model)).Str("audio", audioPath).Str("language", lang).Msg("recognition started")
	req := RecognizeRequest{ModelPath: modelPath, AudioPath: audioPath, Language: lang}
	if err := e.recognizer.Recognize(ctx, req, emit); err != nil {
		return nil, domain.Classify(ctx, domain.ErrEngineFailure, op, audioPath, err)
	}

	completed := e.now()
	e.log.Debug().Int("segments", len(texts)).Dur("elapsed", completed.Sub(started)).Msg("recognition finished")

	return &domain.TranscriptionOutput{
		FullText:           strings.Join(texts, "\n"),
		ProcessingDuration: completed.Sub(started),
		Model:              model,
		CompletedAt:        completed,
		SourceMediaPath:    audioPath,
		Segments:           segments,
	}, nil
}

// Ensure Engine implements ports.RecognitionEngine
var _ ports.RecognitionEngine = (*Engine)(nil)
