package application

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/devbush/voxcribe/internal/domain"
	"github.com/devbush/voxcribe/internal/ports"
)

type pipelineFixture struct {
	orch       *Orchestrator
	models     *mockModels
	normalizer *mockNormalizer
	engine     *mockEngine
	tempDir    string
	media      string
}

func newPipelineFixture(t *testing.T) *pipelineFixture {
	t.Helper()
	tempDir := t.TempDir()
	media := filepath.Join(t.TempDir(), "a.mp4")
	if err := os.WriteFile(media, []byte("media"), 0644); err != nil {
		t.Fatal(err)
	}

	f := &pipelineFixture{
		models:     &mockModels{available: map[domain.ModelID]bool{domain.ModelBase: true}},
		normalizer: &mockNormalizer{tempDir: tempDir, ratios: []float64{0, 0.5, 1}},
		engine: &mockEngine{
			progress: []domain.Progress{
				{Ratio: 0, Phase: "Initializing transcription"},
				{Ratio: 0.4, Phase: "Transcribing", PartialText: "hello"},
				{Ratio: 0.3, Phase: "Transcribing", PartialText: "stale"},
				{Ratio: 1, Phase: "Transcribing", PartialText: "world"},
			},
			segments: []domain.TextSegment{
				{Text: "hello", Start: 0, End: time.Second},
				{Text: "world", Start: time.Second, End: 2 * time.Second},
			},
		},
		tempDir: tempDir,
		media:   media,
	}
	f.orch = NewOrchestrator(f.models, f.normalizer, f.engine)
	return f
}

func assertNoTempFiles(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("temp dir has %d leftover entries", len(entries))
	}
}

func TestRunPipeline_Success(t *testing.T) {
	f := newPipelineFixture(t)

	var events []domain.Progress
	out, err := f.orch.RunPipeline(context.Background(), f.media, domain.ModelBase,
		domain.TranscriptionOptions{IncludeSegments: true},
		func(p domain.Progress) { events = append(events, p) })
	if err != nil {
		t.Fatalf("RunPipeline() error = %v", err)
	}

	if events[0].Phase != PhasePreparing || events[0].Ratio != 0 {
		t.Errorf("first event = %+v", events[0])
	}
	for i := 1; i < len(events); i++ {
		if events[i].Ratio < events[i-1].Ratio {
			t.Fatalf("progress decreased at %d: %v -> %v", i, events[i-1].Ratio, events[i].Ratio)
		}
	}
	if last := events[len(events)-1]; last.Ratio != 1 {
		t.Errorf("final ratio = %v, want 1", last.Ratio)
	}

	var converting, stale bool
	for _, e := range events {
		if e.Phase == PhaseConverting {
			converting = true
			if e.Ratio > normalizeWeight {
				t.Errorf("conversion ratio %v exceeds its band", e.Ratio)
			}
		}
		if e.PartialText == "stale" {
			stale = true
			if math.Abs(e.Ratio-0.52) > 1e-9 {
				t.Errorf("regressed ratio should be held at previous value, got %v", e.Ratio)
			}
		}
	}
	if !converting || !stale {
		t.Errorf("missing events: %+v", events)
	}

	if out.SourceMediaPath != f.media {
		t.Errorf("SourceMediaPath = %q, want %q", out.SourceMediaPath, f.media)
	}
	if f.engine.gotAudio == f.media {
		t.Error("engine should receive the normalized file")
	}
	if out.FullText == "" {
		t.Error("FullText should not be empty")
	}
	for i := 1; i < len(out.Segments); i++ {
		if out.Segments[i].Start < out.Segments[i-1].Start {
			t.Error("segments out of order")
		}
	}
	assertNoTempFiles(t, f.tempDir)
}

func TestRunPipeline_CompletedEventWhenEngineStopsShort(t *testing.T) {
	f := newPipelineFixture(t)
	f.engine.progress = []domain.Progress{{Ratio: 0.6, Phase: "Transcribing"}}

	var events []domain.Progress
	if _, err := f.orch.RunPipeline(context.Background(), f.media, domain.ModelBase, domain.TranscriptionOptions{},
		func(p domain.Progress) { events = append(events, p) }); err != nil {
		t.Fatal(err)
	}

	last := events[len(events)-1]
	if last.Ratio != 1 || last.Phase != PhaseCompleted {
		t.Errorf("last event = %+v, want completed at 1", last)
	}
}

func TestRunPipeline_ModelUnavailable(t *testing.T) {
	f := newPipelineFixture(t)
	f.models.available = map[domain.ModelID]bool{}

	called := false
	_, err := f.orch.RunPipeline(context.Background(), f.media, domain.ModelBase, domain.TranscriptionOptions{},
		func(domain.Progress) { called = true })
	if !errors.Is(err, domain.ErrModelUnavailable) {
		t.Fatalf("error = %v, want ErrModelUnavailable", err)
	}
	if f.normalizer.calls != 0 {
		t.Error("normalization must not start without a model")
	}
	if called {
		t.Error("no progress expected")
	}
	assertNoTempFiles(t, f.tempDir)
}

func TestRunPipeline_MediaNotFound(t *testing.T) {
	f := newPipelineFixture(t)

	_, err := f.orch.RunPipeline(context.Background(), filepath.Join(t.TempDir(), "missing.mp4"), domain.ModelBase, domain.TranscriptionOptions{}, nil)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
	if f.normalizer.calls != 0 {
		t.Error("normalizer should not be called")
	}
}

func TestRunPipeline_NoAudioStream(t *testing.T) {
	f := newPipelineFixture(t)
	f.normalizer.err = domain.NewError(domain.ErrNoAudioStream, "extract audio", f.media, nil)

	_, err := f.orch.RunPipeline(context.Background(), f.media, domain.ModelBase, domain.TranscriptionOptions{}, nil)
	if !errors.Is(err, domain.ErrNoAudioStream) {
		t.Fatalf("error = %v, want ErrNoAudioStream", err)
	}
	assertNoTempFiles(t, f.tempDir)
}

func TestRunPipeline_EngineFailureCleansUp(t *testing.T) {
	f := newPipelineFixture(t)
	engineErr := domain.NewError(domain.ErrEngineFailure, "transcribe", "", errors.New("bad model"))
	f.engine.err = engineErr

	_, err := f.orch.RunPipeline(context.Background(), f.media, domain.ModelBase, domain.TranscriptionOptions{}, nil)
	if err != engineErr {
		t.Fatalf("error = %v, want engine error unchanged", err)
	}
	if len(f.normalizer.outputs) != 1 {
		t.Fatal("expected one normalized file")
	}
	assertNoTempFiles(t, f.tempDir)
}

func TestRunPipeline_PreCancelled(t *testing.T) {
	f := newPipelineFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.orch.RunPipeline(ctx, f.media, domain.ModelBase, domain.TranscriptionOptions{}, nil)
	if !domain.IsCancelled(err) {
		t.Fatalf("error = %v, want cancelled", err)
	}
	if f.normalizer.calls != 0 {
		t.Error("no stage should run")
	}
	assertNoTempFiles(t, f.tempDir)
}

func TestRunPipeline_CancelledDuringRecognition(t *testing.T) {
	f := newPipelineFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.engine.before = cancel

	_, err := f.orch.RunPipeline(ctx, f.media, domain.ModelBase, domain.TranscriptionOptions{}, nil)
	if !domain.IsCancelled(err) {
		t.Fatalf("error = %v, want cancelled", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled in chain, got %v", err)
	}
	assertNoTempFiles(t, f.tempDir)
}

func TestRunPipeline_FailureAfterCancelIsCancellation(t *testing.T) {
	f := newPipelineFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.normalizer.err = errors.New("ffmpeg killed")
	f.normalizer.ratios = nil

	// The normalizer fails with a plain error while ctx is already done.
	f.orch.normalizer = &cancellingNormalizer{mockNormalizer: f.normalizer, cancel: cancel}

	_, err := f.orch.RunPipeline(ctx, f.media, domain.ModelBase, domain.TranscriptionOptions{}, nil)
	if !domain.IsCancelled(err) {
		t.Errorf("error = %v, want cancelled", err)
	}
}

type cancellingNormalizer struct {
	*mockNormalizer
	cancel context.CancelFunc
}

func (c *cancellingNormalizer) ExtractAudio(ctx context.Context, src string, opts ports.ExtractOptions, progress func(float64)) (string, error) {
	c.cancel()
	return "", c.err
}

func TestCheckModelReady(t *testing.T) {
	f := newPipelineFixture(t)
	if !f.orch.CheckModelReady(domain.ModelBase) {
		t.Error("base should be ready")
	}
	if f.orch.CheckModelReady(domain.ModelLargeV3) {
		t.Error("large-v3 should not be ready")
	}
}

func TestProgressGate(t *testing.T) {
	var got []float64
	g := &progressGate{sink: func(p domain.Progress) { got = append(got, p.Ratio) }}

	for _, r := range []float64{0.1, 0.05, 0.3, 2, 0.9} {
		g.emit(domain.Progress{Ratio: r})
	}

	want := []float64{0.1, 0.1, 0.3, 1, 1}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}
