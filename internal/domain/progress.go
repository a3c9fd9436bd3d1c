package domain

// Progress is a transient progress event. Ratio is in [0,1].
type Progress struct {
	Ratio       float64
	Phase       string
	PartialText string
}

// Percent returns the ratio as a percentage clamped to [0,100].
func (p Progress) Percent() float64 {
	return ClampRatio(p.Ratio) * 100
}

// ProgressFunc receives progress events synchronously, in order.
type ProgressFunc func(Progress)

// ClampRatio limits r to [0,1]. NaN maps to 0.
func ClampRatio(r float64) float64 {
	switch {
	case r != r:
		return 0
	case r < 0:
		return 0
	case r > 1:
		return 1
	default:
		return r
	}
}

// TranscriptionOptions controls a single transcription.
type TranscriptionOptions struct {
	// Language is an ISO 639-1 code; empty or "auto" means auto-detect.
	Language string
	// IncludeSegments keeps timed segments in the output.
	IncludeSegments bool
	// OnSegmentDetected is called synchronously for each segment, in order,
	// before the progress event that carries the same text.
	OnSegmentDetected func(TextSegment)
}
