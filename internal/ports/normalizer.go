package ports

import "context"

// ExtractOptions selects the normalized audio format.
type ExtractOptions struct {
	SampleRate int
	Channels   int
}

// DefaultExtractOptions returns 16 kHz mono.
func DefaultExtractOptions() ExtractOptions {
	return ExtractOptions{SampleRate: 16000, Channels: 1}
}

// MediaNormalizer converts arbitrary media into 16-bit PCM WAV.
type MediaNormalizer interface {
	// Initialize provisions the conversion toolchain. It is idempotent and safe
	// for concurrent use; once ready it returns immediately without progress.
	Initialize(ctx context.Context, progress func(downloaded, total int64)) error

	// IsReady reports whether Initialize has completed.
	IsReady() bool

	// ExtractAudio writes a new temporary WAV and returns its path. The caller
	// owns the file.
	ExtractAudio(ctx context.Context, sourcePath string, opts ExtractOptions, progress func(ratio float64)) (string, error)
}
