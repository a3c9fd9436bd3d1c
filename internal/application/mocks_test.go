package application

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/devbush/voxcribe/internal/domain"
	"github.com/devbush/voxcribe/internal/ports"
)

// Mock implementations for testing
type mockCache struct {
	mu     sync.Mutex
	items  map[string]*ports.CachedItem
	setErr error
	sets   int
}

func newMockCache() *mockCache {
	return &mockCache{items: make(map[string]*ports.CachedItem)}
}

func (m *mockCache) Get(ctx context.Context, key string) (*ports.CachedItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if item, ok := m.items[key]; ok {
		return item, nil
	}
	return nil, domain.ErrCacheMiss
}

func (m *mockCache) Set(ctx context.Context, key string, item *ports.CachedItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sets++
	if m.setErr != nil {
		return m.setErr
	}
	m.items[key] = item
	return nil
}

func (m *mockCache) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, key)
	return nil
}

func (m *mockCache) CleanExpired(ctx context.Context) (int, error) { return 0, nil }
func (m *mockCache) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = make(map[string]*ports.CachedItem)
	return nil
}
func (m *mockCache) GetCacheDir(key string) string { return "/tmp/" + key }
func (m *mockCache) Stats(ctx context.Context) (int, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items), 0, nil
}

type mockModels struct {
	available map[domain.ModelID]bool
}

func (m *mockModels) ListAll() []domain.ModelDescriptor { return nil }
func (m *mockModels) Get(id domain.ModelID) (domain.ModelDescriptor, error) {
	return domain.ModelDescriptor{ID: id, Available: m.available[id]}, nil
}
func (m *mockModels) IsAvailable(id domain.ModelID) bool { return m.available[id] }
func (m *mockModels) ResolveLocalPath(id domain.ModelID) (string, error) {
	if !m.available[id] {
		return "", domain.NewError(domain.ErrModelUnavailable, "resolve model", string(id), nil)
	}
	return "/models/" + string(id), nil
}
func (m *mockModels) Acquire(ctx context.Context, id domain.ModelID, progress func(float64)) error {
	m.available[id] = true
	return nil
}
func (m *mockModels) Remove(ctx context.Context, id domain.ModelID) error {
	delete(m.available, id)
	return nil
}

// mockNormalizer writes a real file into tempDir like the ffmpeg adapter.
type mockNormalizer struct {
	tempDir string
	ratios  []float64
	err     error
	calls   int
	outputs []string
}

func (m *mockNormalizer) Initialize(ctx context.Context, progress func(int64, int64)) error {
	return nil
}

func (m *mockNormalizer) IsReady() bool { return true }

func (m *mockNormalizer) ExtractAudio(ctx context.Context, src string, opts ports.ExtractOptions, progress func(float64)) (string, error) {
	m.calls++
	if err := ctx.Err(); err != nil {
		return "", domain.Cancelled("extract audio", err)
	}
	if m.err != nil {
		return "", m.err
	}
	out := filepath.Join(m.tempDir, uuid.NewString()+".wav")
	if err := os.WriteFile(out, []byte("RIFF"), 0644); err != nil {
		return "", err
	}
	m.outputs = append(m.outputs, out)
	for _, r := range m.ratios {
		progress(r)
	}
	return out, nil
}

type mockEngine struct {
	progress []domain.Progress
	segments []domain.TextSegment
	err      error
	before   func() // runs before returning
	gotAudio string
}

func (m *mockEngine) Transcribe(ctx context.Context, audioPath string, model domain.ModelID, opts domain.TranscriptionOptions, progress domain.ProgressFunc) (*domain.TranscriptionOutput, error) {
	m.gotAudio = audioPath
	for _, p := range m.progress {
		progress(p)
	}
	for _, s := range m.segments {
		if opts.OnSegmentDetected != nil {
			opts.OnSegmentDetected(s)
		}
	}
	if m.before != nil {
		m.before()
	}
	if err := ctx.Err(); err != nil {
		return nil, domain.Cancelled("transcribe", err)
	}
	if m.err != nil {
		return nil, m.err
	}

	out := &domain.TranscriptionOutput{
		FullText:        "hello\nworld",
		Model:           model,
		SourceMediaPath: audioPath,
	}
	if opts.IncludeSegments {
		out.Segments = m.segments
	}
	return out, nil
}
