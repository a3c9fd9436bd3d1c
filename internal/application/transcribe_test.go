package application

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/devbush/voxcribe/internal/domain"
)

func newTestService(t *testing.T) (*TranscribeService, *pipelineFixture, *mockCache) {
	t.Helper()
	f := newPipelineFixture(t)
	cache := newMockCache()
	return NewTranscribeService(cache, f.orch, time.Hour, zerolog.Nop()), f, cache
}

func TestTranscribeService_CachesResult(t *testing.T) {
	svc, f, cache := newTestService(t)
	ctx := context.Background()
	opts := TranscribeOptions{Model: domain.ModelBase}

	first, err := svc.Transcribe(ctx, f.media, opts, nil)
	if err != nil {
		t.Fatalf("Transcribe() error = %v", err)
	}
	if first.FromCache {
		t.Error("first run should not come from cache")
	}
	if len(cache.items) != 1 {
		t.Fatalf("cache items = %d, want 1", len(cache.items))
	}

	var last domain.Progress
	second, err := svc.Transcribe(ctx, f.media, opts, func(p domain.Progress) { last = p })
	if err != nil {
		t.Fatalf("Transcribe() error = %v", err)
	}
	if !second.FromCache {
		t.Error("second run should come from cache")
	}
	if f.normalizer.calls != 1 {
		t.Errorf("pipeline ran %d times, want 1", f.normalizer.calls)
	}
	if last.Ratio != 1 {
		t.Errorf("cache hit should report completion, got %+v", last)
	}
	if second.Output.FullText != first.Output.FullText {
		t.Errorf("cached text = %q, want %q", second.Output.FullText, first.Output.FullText)
	}
}

func TestTranscribeService_CacheHitUsesCurrentPath(t *testing.T) {
	svc, f, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Transcribe(ctx, f.media, TranscribeOptions{}, nil); err != nil {
		t.Fatal(err)
	}

	copyPath := filepath.Join(t.TempDir(), "copy.mp4")
	data, _ := os.ReadFile(f.media)
	os.WriteFile(copyPath, data, 0644)

	res, err := svc.Transcribe(ctx, copyPath, TranscribeOptions{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !res.FromCache || res.Output.SourceMediaPath != copyPath {
		t.Errorf("result = %+v, want cache hit for %s", res, copyPath)
	}
}

func TestTranscribeService_NoCache(t *testing.T) {
	svc, f, _ := newTestService(t)
	ctx := context.Background()

	svc.Transcribe(ctx, f.media, TranscribeOptions{}, nil)
	res, err := svc.Transcribe(ctx, f.media, TranscribeOptions{NoCache: true}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.FromCache {
		t.Error("NoCache should bypass the cache")
	}
	if f.normalizer.calls != 2 {
		t.Errorf("pipeline ran %d times, want 2", f.normalizer.calls)
	}
}

func TestTranscribeService_CacheFailureIsNonFatal(t *testing.T) {
	svc, f, cache := newTestService(t)
	cache.setErr = errors.New("disk full")

	res, err := svc.Transcribe(context.Background(), f.media, TranscribeOptions{}, nil)
	if err != nil {
		t.Fatalf("Transcribe() error = %v", err)
	}
	if res.Output == nil || cache.sets != 1 {
		t.Errorf("result = %+v, sets = %d", res, cache.sets)
	}
}

func TestTranscribeService_DefaultModel(t *testing.T) {
	svc, f, _ := newTestService(t)
	f.models.available = map[domain.ModelID]bool{domain.DefaultModel: true}

	res, err := svc.Transcribe(context.Background(), f.media, TranscribeOptions{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.Output.Model != domain.DefaultModel {
		t.Errorf("Model = %q, want %q", res.Output.Model, domain.DefaultModel)
	}
}

func TestTranscribeService_PipelineErrorsPropagate(t *testing.T) {
	svc, f, cache := newTestService(t)
	f.models.available = map[domain.ModelID]bool{}

	_, err := svc.Transcribe(context.Background(), f.media, TranscribeOptions{Model: domain.ModelSmall}, nil)
	if !errors.Is(err, domain.ErrModelUnavailable) {
		t.Fatalf("error = %v, want ErrModelUnavailable", err)
	}
	if len(cache.items) != 0 {
		t.Error("failures must not be cached")
	}

	_, err = svc.Transcribe(context.Background(), filepath.Join(t.TempDir(), "none.mp4"), TranscribeOptions{}, nil)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestTranscribeService_InvalidLanguage(t *testing.T) {
	svc, f, _ := newTestService(t)

	if _, err := svc.Transcribe(context.Background(), f.media, TranscribeOptions{Language: "zz-not-a-lang-!"}, nil); err == nil {
		t.Error("expected error for invalid language")
	}
	if f.normalizer.calls != 0 {
		t.Error("pipeline should not run")
	}
}

func TestCacheKey(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.wav")
	b := filepath.Join(dir, "b.wav")
	os.WriteFile(a, []byte("same"), 0644)
	os.WriteFile(b, []byte("same"), 0644)

	keyA, err := CacheKey(context.Background(), a, domain.ModelBase, "", false)
	if err != nil {
		t.Fatal(err)
	}
	keyB, _ := CacheKey(context.Background(), b, domain.ModelBase, "", false)
	if keyA != keyB {
		t.Error("identical content should share a key")
	}
	if len(keyA) != 16 {
		t.Errorf("key %q should be 16 hex chars", keyA)
	}

	variants := []struct {
		model    domain.ModelID
		lang     string
		segments bool
	}{
		{domain.ModelTiny, "", false},
		{domain.ModelBase, "en", false},
		{domain.ModelBase, "", true},
	}
	for _, v := range variants {
		k, _ := CacheKey(context.Background(), a, v.model, v.lang, v.segments)
		if k == keyA {
			t.Errorf("variant %+v should change the key", v)
		}
	}

	if _, err := CacheKey(context.Background(), filepath.Join(dir, "missing"), domain.ModelBase, "", false); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestTranscribeService_CancelledBeforeCacheHit(t *testing.T) {
	svc, f, _ := newTestService(t)

	if _, err := svc.Transcribe(context.Background(), f.media, TranscribeOptions{}, nil); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var events int
	res, err := svc.Transcribe(ctx, f.media, TranscribeOptions{}, func(domain.Progress) { events++ })
	if !domain.IsCancelled(err) {
		t.Fatalf("Transcribe() = %+v, %v, want cancelled", res, err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error %v should wrap context.Canceled", err)
	}
	if events != 0 {
		t.Errorf("progress events = %d, want 0", events)
	}
	if f.normalizer.calls != 1 {
		t.Errorf("pipeline ran %d times, want 1", f.normalizer.calls)
	}
}

func TestCacheKey_Cancelled(t *testing.T) {
	media := filepath.Join(t.TempDir(), "big.mp4")
	if err := os.WriteFile(media, make([]byte, 3*hashChunkSize), 0644); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := CacheKey(ctx, media, domain.ModelBase, "", false); !errors.Is(err, context.Canceled) {
		t.Errorf("CacheKey() error = %v, want context.Canceled", err)
	}
}

func TestCtxReader_StopsMidStream(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := ctxReader{ctx: ctx, r: strings.NewReader("0123456789")}

	buf := make([]byte, 4)
	if n, err := r.Read(buf); n != 4 || err != nil {
		t.Fatalf("Read() = %d, %v, want 4, nil", n, err)
	}
	cancel()
	if n, err := r.Read(buf); n != 0 || !errors.Is(err, context.Canceled) {
		t.Errorf("Read() after cancel = %d, %v, want 0, context.Canceled", n, err)
	}
}
