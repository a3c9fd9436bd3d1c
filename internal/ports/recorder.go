package ports

import (
	"context"
	"time"

	"github.com/devbush/voxcribe/internal/domain"
)

// Recorder captures microphone audio to a WAV file.
type Recorder interface {
	// Start begins a capture. Only one session may be active.
	Start(ctx context.Context, cfg domain.RecordingConfig) (*domain.RecordingSession, error)

	// Stop ends the capture and returns the recorded file path.
	Stop() (string, error)

	// Cancel ends the capture and deletes the file.
	Cancel() error

	// IsRecording reports whether a session is active.
	IsRecording() bool

	// OnElapsed registers a callback invoked periodically while recording.
	OnElapsed(fn func(elapsed time.Duration))
}
