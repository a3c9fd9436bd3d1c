package domain

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestTranscriptionOutput_ToText(t *testing.T) {
	tests := []struct {
		name string
		out  TranscriptionOutput
		want string
	}{
		{
			name: "full text wins",
			out: TranscriptionOutput{
				FullText: "Hello world.\nHow are you?",
				Segments: []TextSegment{{Text: "ignored"}},
			},
			want: "Hello world.\nHow are you?",
		},
		{
			name: "falls back to segments",
			out: TranscriptionOutput{
				Segments: []TextSegment{
					{Start: 0, End: 3500 * time.Millisecond, Text: " Hello world. "},
					{Start: 3500 * time.Millisecond, End: 7 * time.Second, Text: "How are you?"},
				},
			},
			want: "Hello world.\nHow are you?",
		},
		{
			name: "empty",
			out:  TranscriptionOutput{},
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.out.ToText(); got != tt.want {
				t.Errorf("ToText() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTranscriptionOutput_ToSRT(t *testing.T) {
	out := TranscriptionOutput{
		Segments: []TextSegment{
			{Start: 0, End: 3500 * time.Millisecond, Text: "Hello world."},
			{Start: 3500 * time.Millisecond, End: 7200 * time.Millisecond, Text: "How are you?"},
		},
	}

	result := out.ToSRT()

	if !strings.Contains(result, "00:00:00,000 --> 00:00:03,500") {
		t.Errorf("ToSRT() missing first timestamp, got:\n%s", result)
	}
	if !strings.Contains(result, "Hello world.") {
		t.Errorf("ToSRT() missing first text")
	}
	if !strings.Contains(result, "00:00:03,500 --> 00:00:07,200") {
		t.Errorf("ToSRT() missing second timestamp, got:\n%s", result)
	}
	if !strings.HasPrefix(result, "1\n") {
		t.Errorf("ToSRT() should start with sequence number, got:\n%s", result)
	}
}

func TestFormatSRTTime(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "00:00:00,000"},
		{1500 * time.Millisecond, "00:00:01,500"},
		{time.Hour + 2*time.Minute + 3*time.Second + 4*time.Millisecond, "01:02:03,004"},
		{-time.Second, "00:00:00,000"},
	}

	for _, tt := range tests {
		if got := formatSRTTime(tt.in); got != tt.want {
			t.Errorf("formatSRTTime(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTranscriptionOutput_WithSourceMediaPath(t *testing.T) {
	orig := TranscriptionOutput{
		FullText:        "hi",
		SourceMediaPath: "/tmp/x.wav",
		Segments:        []TextSegment{{Text: "hi"}},
	}

	patched := orig.WithSourceMediaPath("/home/me/a.mp4")

	if patched.SourceMediaPath != "/home/me/a.mp4" {
		t.Errorf("SourceMediaPath = %q", patched.SourceMediaPath)
	}
	if orig.SourceMediaPath != "/tmp/x.wav" {
		t.Errorf("original mutated: %q", orig.SourceMediaPath)
	}

	patched.Segments[0].Text = "changed"
	if orig.Segments[0].Text != "hi" {
		t.Error("segments should be copied, not shared")
	}
}

func TestTextSegment_JSON(t *testing.T) {
	seg := TextSegment{Text: "hello", Start: 1250 * time.Millisecond, End: 2 * time.Second}

	data, err := json.Marshal(seg)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if !strings.Contains(string(data), `"start":1.25`) {
		t.Errorf("expected start in seconds, got %s", data)
	}

	var back TextSegment
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if back != seg {
		t.Errorf("round trip = %+v, want %+v", back, seg)
	}
}
