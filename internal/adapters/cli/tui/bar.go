package tui

import (
	"strings"

	"github.com/devbush/voxcribe/internal/domain"
)

// renderBar creates a text progress bar like [=====>    ] for non-terminal output.
// ratio=0   -> [          ]
// ratio=0.3 -> [==>       ]
// ratio=0.5 -> [=====>    ]
// ratio=1   -> [==========]
func renderBar(ratio float64, width int) string {
	ratio = domain.ClampRatio(ratio)

	var bar strings.Builder
	bar.WriteString("[")

	switch {
	case ratio >= 1:
		bar.WriteString(strings.Repeat("=", width))
	case ratio == 0:
		bar.WriteString(strings.Repeat(" ", width))
	default:
		head := int(ratio*float64(width) + 0.5)
		head = max(1, min(head, width))

		// The head sits after the filled part once past the midpoint.
		equals := head - 1
		if ratio >= 0.5 {
			equals = head
		}
		equals = max(0, min(equals, width-1))

		bar.WriteString(strings.Repeat("=", equals))
		bar.WriteString(">")
		bar.WriteString(strings.Repeat(" ", width-equals-1))
	}

	bar.WriteString("]")
	return bar.String()
}
