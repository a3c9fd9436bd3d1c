package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/spf13/afero"

	"github.com/devbush/voxcribe/internal/domain"
	"github.com/devbush/voxcribe/internal/ports"
)

func newTestCache() (*FileCache, afero.Fs) {
	fs := afero.NewMemMapFs()
	return NewFileCache("/cache", WithFs(fs)), fs
}

func sampleItem(ttl time.Duration) *ports.CachedItem {
	return &ports.CachedItem{
		Output: &domain.TranscriptionOutput{
			FullText: "Hello world",
			Model:    domain.ModelBase,
			Segments: []domain.TextSegment{{Text: "Hello world", End: 1500 * time.Millisecond}},
		},
		MediaPath: "/tmp/video.mp4",
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(ttl),
	}
}

func TestFileCache_SetGet(t *testing.T) {
	cache, fs := newTestCache()
	ctx := context.Background()

	if err := cache.Set(ctx, "abc123", sampleItem(24*time.Hour)); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	got, err := cache.Get(ctx, "abc123")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Output.FullText != "Hello world" {
		t.Errorf("FullText = %q, want Hello world", got.Output.FullText)
	}
	if got.Output.Model != domain.ModelBase || got.MediaPath != "/tmp/video.mp4" {
		t.Errorf("Get() = %+v", got)
	}
	if len(got.Output.Segments) != 1 || got.Output.Segments[0].End != 1500*time.Millisecond {
		t.Errorf("Segments = %+v", got.Output.Segments)
	}

	text, err := afero.ReadFile(fs, "/cache/abc123/transcript.txt")
	if err != nil || string(text) != "Hello world\n" {
		t.Errorf("transcript.txt = %q, %v", text, err)
	}
}

func TestFileCache_GetMiss(t *testing.T) {
	cache, _ := newTestCache()

	if _, err := cache.Get(context.Background(), "nonexistent"); err != domain.ErrCacheMiss {
		t.Errorf("Get() error = %v, want ErrCacheMiss", err)
	}
}

func TestFileCache_InvalidKey(t *testing.T) {
	cache, _ := newTestCache()
	ctx := context.Background()

	for _, key := range []string{"", "../escape", "a/b"} {
		if _, err := cache.Get(ctx, key); err == nil || errors.Is(err, domain.ErrCacheMiss) {
			t.Errorf("Get(%q) error = %v, want invalid key", key, err)
		}
		if err := cache.Set(ctx, key, sampleItem(time.Hour)); err == nil {
			t.Errorf("Set(%q) should fail", key)
		}
	}
}

func TestFileCache_GetExpired(t *testing.T) {
	cache, _ := newTestCache()
	ctx := context.Background()

	cache.Set(ctx, "old", sampleItem(-time.Hour))

	if _, err := cache.Get(ctx, "old"); err != domain.ErrCacheExpired {
		t.Errorf("Get() error = %v, want ErrCacheExpired", err)
	}
}

func TestFileCache_CleanExpired(t *testing.T) {
	cache, fs := newTestCache()
	ctx := context.Background()

	cache.Set(ctx, "expired", sampleItem(-time.Hour))
	cache.Set(ctx, "valid", sampleItem(time.Hour))
	afero.WriteFile(fs, "/cache/corrupt/meta.json", []byte("{not json"), 0644)

	cleaned, err := cache.CleanExpired(ctx)
	if err != nil {
		t.Fatalf("CleanExpired() error = %v", err)
	}
	if cleaned != 2 {
		t.Errorf("CleanExpired() = %d, want 2", cleaned)
	}

	if _, err := cache.Get(ctx, "valid"); err != nil {
		t.Errorf("valid entry should remain: %v", err)
	}
	if ok, _ := afero.DirExists(fs, "/cache/expired"); ok {
		t.Error("expired entry should be removed")
	}
}

func TestFileCache_StatsAndClear(t *testing.T) {
	cache, _ := newTestCache()
	ctx := context.Background()

	count, size, err := cache.Stats(ctx)
	if err != nil || count != 0 || size != 0 {
		t.Fatalf("empty Stats() = %d, %d, %v", count, size, err)
	}

	cache.Set(ctx, "one", sampleItem(time.Hour))
	cache.Set(ctx, "two", sampleItem(time.Hour))

	count, size, err = cache.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if count != 2 || size == 0 {
		t.Errorf("Stats() = %d items, %d bytes", count, size)
	}

	if err := cache.Clear(ctx); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if count, _, _ := cache.Stats(ctx); count != 0 {
		t.Errorf("Stats() after Clear = %d items", count)
	}
}

func TestFileCache_Delete(t *testing.T) {
	cache, _ := newTestCache()
	ctx := context.Background()

	cache.Set(ctx, "gone", sampleItem(time.Hour))
	if err := cache.Delete(ctx, "gone"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := cache.Get(ctx, "gone"); err != domain.ErrCacheMiss {
		t.Errorf("Get() after Delete error = %v", err)
	}
	if err := cache.Delete(ctx, "gone"); err != nil {
		t.Errorf("second Delete() error = %v", err)
	}
}
