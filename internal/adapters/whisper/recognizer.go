package whisper

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// RawSegment is a segment as produced by the recognizer, before trimming.
type RawSegment struct {
	Start time.Duration
	End   time.Duration
	Text  string
}

// RecognizeRequest describes one recognition run.
type RecognizeRequest struct {
	ModelPath string
	AudioPath string
	Language  string // empty for auto-detect
}

// Recognizer is the inference capability: given a model and normalized audio
// it produces timed segments in order. Returning an error from emit stops
// recognition and Recognize returns that error.
type Recognizer interface {
	Recognize(ctx context.Context, req RecognizeRequest, emit func(RawSegment) error) error
}

var segmentLineRegex = regexp.MustCompile(`^\[(\d+:\d+:\d+[,.]\d+)\s*-->\s*(\d+:\d+:\d+[,.]\d+)\]\s?(.*)$`)

// parseSegmentLine parses "[00:00:01.000 --> 00:00:03.500]  text".
func parseSegmentLine(line string) (RawSegment, bool) {
	m := segmentLineRegex.FindStringSubmatch(strings.TrimRight(line, "\r\n"))
	if m == nil {
		return RawSegment{}, false
	}
	return RawSegment{
		Start: parseTimestamp(m[1]),
		End:   parseTimestamp(m[2]),
		Text:  m[3],
	}, true
}

var timestampRegex = regexp.MustCompile(`(\d+):(\d+):(\d+)[,.](\d+)`)

func parseTimestamp(ts string) time.Duration {
	matches := timestampRegex.FindStringSubmatch(ts)
	if len(matches) != 5 {
		return 0
	}

	hours, _ := strconv.Atoi(matches[1])
	minutes, _ := strconv.Atoi(matches[2])
	seconds, _ := strconv.Atoi(matches[3])
	// The fraction is read as milliseconds: ".5" is 500ms, ".12345" is 123ms.
	digits := matches[4]
	if len(digits) > 3 {
		digits = digits[:3]
	}
	millis, _ := strconv.Atoi(digits + strings.Repeat("0", 3-len(digits)))

	return time.Duration(hours)*time.Hour +
		time.Duration(minutes)*time.Minute +
		time.Duration(seconds)*time.Second +
		time.Duration(millis)*time.Millisecond
}
