package domain

import "time"

// RecordingConfig describes the capture format. Defaults match what the
// recognizer consumes.
type RecordingConfig struct {
	SampleRate    int
	Channels      int
	BitsPerSample int
}

// DefaultRecordingConfig returns 16 kHz mono 16-bit capture.
func DefaultRecordingConfig() RecordingConfig {
	return RecordingConfig{SampleRate: 16000, Channels: 1, BitsPerSample: 16}
}

// RecordingSession tracks one microphone capture.
type RecordingSession struct {
	ID         string
	StartedAt  time.Time
	StoppedAt  time.Time // zero while recording
	OutputPath string
}

// Stopped reports whether the session has ended.
func (s RecordingSession) Stopped() bool {
	return !s.StoppedAt.IsZero()
}

// Duration is stop (or now) minus start.
func (s RecordingSession) Duration() time.Duration {
	end := s.StoppedAt
	if end.IsZero() {
		end = time.Now()
	}
	return end.Sub(s.StartedAt)
}
