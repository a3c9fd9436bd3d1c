package application

import (
	"context"
	"errors"
	"os"

	"github.com/rs/zerolog"

	"github.com/devbush/voxcribe/internal/domain"
	"github.com/devbush/voxcribe/internal/ports"
)

// Pipeline phases reported by the orchestrator. Recognition phases are
// passed through from the engine.
const (
	PhasePreparing  = "Preparing audio"
	PhaseConverting = "Converting audio format"
	PhaseCompleted  = "Completed"
)

// Share of the progress bar given to normalization; recognition gets the rest.
const normalizeWeight = 0.2

// Orchestrator runs model check, normalization and recognition as one
// cancellable operation with a single progress signal.
type Orchestrator struct {
	models     ports.ModelRepository
	normalizer ports.MediaNormalizer
	engine     ports.RecognitionEngine
	extract    ports.ExtractOptions
	log        zerolog.Logger
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithExtractOptions overrides the normalized audio format.
func WithExtractOptions(opts ports.ExtractOptions) OrchestratorOption {
	return func(o *Orchestrator) { o.extract = opts }
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) OrchestratorOption {
	return func(o *Orchestrator) { o.log = l.With().Str("component", "pipeline").Logger() }
}

// NewOrchestrator wires the pipeline stages.
func NewOrchestrator(models ports.ModelRepository, normalizer ports.MediaNormalizer, engine ports.RecognitionEngine, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		models:     models,
		normalizer: normalizer,
		engine:     engine,
		extract:    ports.DefaultExtractOptions(),
		log:        zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// CheckModelReady reports whether model can be used without downloading.
func (o *Orchestrator) CheckModelReady(model domain.ModelID) bool {
	return o.models.IsAvailable(model)
}

// RunPipeline transcribes mediaPath with model. Progress ratios never
// decrease: normalization fills [0, 0.2], recognition fills [0.2, 1]. The
// intermediate audio file is deleted whatever the outcome. The returned
// output carries mediaPath as its source.
func (o *Orchestrator) RunPipeline(ctx context.Context, mediaPath string, model domain.ModelID, opts domain.TranscriptionOptions, onProgress domain.ProgressFunc) (*domain.TranscriptionOutput, error) {
	const op = "run pipeline"

	if err := ctx.Err(); err != nil {
		return nil, domain.Cancelled(op, err)
	}

	if fi, err := os.Stat(mediaPath); err != nil || fi.IsDir() {
		if err == nil {
			err = errors.New("is a directory")
		}
		return nil, domain.NewError(domain.ErrNotFound, op, mediaPath, err)
	}
	if !o.models.IsAvailable(model) {
		return nil, domain.NewError(domain.ErrModelUnavailable, op, string(model), nil)
	}

	gate := &progressGate{sink: onProgress}
	gate.emit(domain.Progress{Ratio: 0, Phase: PhasePreparing})

	var audioPath string
	defer func() {
		if audioPath == "" {
			return
		}
		if err := os.Remove(audioPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			o.log.Warn().Err(err).Str("path", audioPath).Msg("failed to remove normalized audio")
		}
	}()

	o.log.Debug().Str("media", mediaPath).Str("model", string(model)).Msg("normalizing media")
	audioPath, err := o.normalizer.ExtractAudio(ctx, mediaPath, o.extract, func(ratio float64) {
		gate.emit(domain.Progress{Ratio: domain.ClampRatio(ratio) * normalizeWeight, Phase: PhaseConverting})
	})
	if err != nil {
		return nil, surface(ctx, op, err)
	}

	o.log.Debug().Str("audio", audioPath).Msg("running recognition")
	out, err := o.engine.Transcribe(ctx, audioPath, model, opts, func(p domain.Progress) {
		p.Ratio = normalizeWeight + domain.ClampRatio(p.Ratio)*(1-normalizeWeight)
		gate.emit(p)
	})
	if err != nil {
		return nil, surface(ctx, op, err)
	}

	result := out.WithSourceMediaPath(mediaPath)
	if gate.last < 1 {
		gate.emit(domain.Progress{Ratio: 1, Phase: PhaseCompleted})
	}
	return &result, nil
}

// surface returns err unchanged unless ctx has ended, in which case the
// caller always sees a cancellation.
func surface(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil && !domain.IsCancelled(err) {
		return domain.Cancelled(op, ctxErr)
	}
	return err
}

// progressGate forwards progress, raising any ratio below the last one seen.
type progressGate struct {
	sink    domain.ProgressFunc
	last    float64
	started bool
}

func (g *progressGate) emit(p domain.Progress) {
	ratio := domain.ClampRatio(p.Ratio)
	if g.started && ratio < g.last {
		ratio = g.last
	}
	g.last = ratio
	g.started = true

	if g.sink != nil {
		p.Ratio = ratio
		g.sink(p)
	}
}
