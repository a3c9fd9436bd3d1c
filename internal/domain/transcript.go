package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"
)

// TextSegment is a span of recognized speech with its offsets in the audio.
type TextSegment struct {
	Text  string
	Start time.Duration
	End   time.Duration
}

// Duration returns the length of the segment.
func (s TextSegment) Duration() time.Duration {
	return s.End - s.Start
}

type segmentJSON struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// MarshalJSON encodes offsets as seconds.
func (s TextSegment) MarshalJSON() ([]byte, error) {
	return json.Marshal(segmentJSON{
		Start: s.Start.Seconds(),
		End:   s.End.Seconds(),
		Text:  s.Text,
	})
}

func (s *TextSegment) UnmarshalJSON(data []byte) error {
	var raw segmentJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	s.Text = raw.Text
	s.Start = secondsToDuration(raw.Start)
	s.End = secondsToDuration(raw.End)
	return nil
}

func secondsToDuration(seconds float64) time.Duration {
	return time.Duration(math.Round(seconds*1000)) * time.Millisecond
}

// TranscriptionOutput is the result of one transcription. Treat it as immutable;
// use WithSourceMediaPath to derive a copy.
type TranscriptionOutput struct {
	FullText           string        `json:"text"`
	ProcessingDuration time.Duration `json:"processing_duration"`
	Model              ModelID       `json:"model"`
	CompletedAt        time.Time     `json:"completed_at"`
	SourceMediaPath    string        `json:"source_media_path,omitempty"`
	Segments           []TextSegment `json:"segments,omitempty"` // nil unless requested
}

// WithSourceMediaPath returns a copy of o pointing at path.
func (o TranscriptionOutput) WithSourceMediaPath(path string) TranscriptionOutput {
	out := o
	out.SourceMediaPath = path
	if o.Segments != nil {
		out.Segments = make([]TextSegment, len(o.Segments))
		copy(out.Segments, o.Segments)
	}
	return out
}

// ToText returns the plain transcript, falling back to the segments when the
// full text is empty.
func (o TranscriptionOutput) ToText() string {
	if o.FullText != "" {
		return o.FullText
	}

	var parts []string
	for _, seg := range o.Segments {
		parts = append(parts, strings.TrimSpace(seg.Text))
	}
	return strings.Join(parts, "\n")
}

// ToSRT returns the transcript in SRT subtitle format
func (o TranscriptionOutput) ToSRT() string {
	var sb strings.Builder

	for i, seg := range o.Segments {
		// Sequence number
		sb.WriteString(fmt.Sprintf("%d\n", i+1))
		// Timestamps
		sb.WriteString(fmt.Sprintf("%s --> %s\n", formatSRTTime(seg.Start), formatSRTTime(seg.End)))
		// Text
		sb.WriteString(strings.TrimSpace(seg.Text))
		sb.WriteString("\n\n")
	}

	return strings.TrimSuffix(sb.String(), "\n")
}

// formatSRTTime converts an offset to SRT timestamp format (HH:MM:SS,mmm)
func formatSRTTime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := d.Milliseconds()
	hours := total / 3_600_000
	minutes := (total % 3_600_000) / 60_000
	secs := (total % 60_000) / 1000
	millis := total % 1000

	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, secs, millis)
}
