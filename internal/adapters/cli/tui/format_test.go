package tui

import (
	"strings"
	"testing"
	"time"

	"github.com/devbush/voxcribe/internal/domain"
)

func TestFormatSize(t *testing.T) {
	tests := []struct {
		input    int64
		expected string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{148_000_000, "141.1 MB"},
		{3_100_000_000, "2.9 GB"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			result := FormatSize(tt.input)
			if result != tt.expected {
				t.Errorf("FormatSize(%d) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestFormatElapsed(t *testing.T) {
	tests := []struct {
		input    time.Duration
		expected string
	}{
		{0, "00:00.0"},
		{-time.Second, "00:00.0"},
		{1250 * time.Millisecond, "00:01.2"},
		{61*time.Second + 900*time.Millisecond, "01:01.9"},
		{10 * time.Minute, "10:00.0"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			result := FormatElapsed(tt.input)
			if result != tt.expected {
				t.Errorf("FormatElapsed(%v) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestFormatSegmentLine(t *testing.T) {
	seg := domain.TextSegment{Text: "hello", Start: time.Second, End: 2500 * time.Millisecond}

	got := FormatSegmentLine(seg)
	want := "[00:01.0 -> 00:02.5] hello"
	if got != want {
		t.Errorf("FormatSegmentLine() = %q, want %q", got, want)
	}
}

func TestFormatModelLine(t *testing.T) {
	m := domain.ModelDescriptor{ID: domain.ModelBase, Description: "Fast", SizeBytes: 148_000_000, Available: true}

	result := FormatModelLine(m, true)

	if !strings.HasPrefix(result, "base") {
		t.Errorf("FormatModelLine() should start with the id: %q", result)
	}
	if !strings.Contains(result, "✓") || !strings.Contains(result, "(default)") {
		t.Errorf("FormatModelLine() missing status markers: %q", result)
	}
}
