package ports

import (
	"context"

	"github.com/devbush/voxcribe/internal/domain"
)

// RecognitionEngine runs speech recognition over a normalized audio file.
type RecognitionEngine interface {
	// Transcribe streams segments through opts.OnSegmentDetected and progress,
	// and returns the aggregated output. The caller owns audioPath.
	Transcribe(ctx context.Context, audioPath string, model domain.ModelID, opts domain.TranscriptionOptions, progress domain.ProgressFunc) (*domain.TranscriptionOutput, error)
}
