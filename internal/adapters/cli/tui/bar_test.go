package tui

import "testing"

func TestRenderBar(t *testing.T) {
	tests := []struct {
		ratio float64
		width int
		want  string
	}{
		{0, 10, "[          ]"},
		{-1, 10, "[          ]"},
		{0.5, 10, "[=====>    ]"},
		{1, 10, "[==========]"},
		{1.5, 10, "[==========]"},
		{0.3, 10, "[==>       ]"},
		{0.01, 10, "[>         ]"},
		{0.99, 10, "[=========>]"},
	}

	for _, tt := range tests {
		got := renderBar(tt.ratio, tt.width)
		if got != tt.want {
			t.Errorf("renderBar(%v, %d) = %q, want %q", tt.ratio, tt.width, got, tt.want)
		}
	}
}
