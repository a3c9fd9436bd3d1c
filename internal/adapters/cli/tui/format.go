package tui

import (
	"fmt"
	"time"

	"github.com/devbush/voxcribe/internal/domain"
)

// FormatSize formats a byte count with binary units
// Examples: 512 -> "512 B", 1536 -> "1.5 KB", 148000000 -> "141.1 MB"
func FormatSize(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(b)/float64(div), "KMGTPE"[exp])
}

// FormatElapsed formats a recording duration as "MM:SS.t"
func FormatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	tenths := d.Milliseconds() / 100
	return fmt.Sprintf("%02d:%02d.%d", tenths/600, (tenths/10)%60, tenths%10)
}

// FormatSegmentLine formats a segment as "[00:01.2 -> 00:03.4] text"
func FormatSegmentLine(seg domain.TextSegment) string {
	return fmt.Sprintf("[%s -> %s] %s", FormatElapsed(seg.Start), FormatElapsed(seg.End), seg.Text)
}

// FormatModelLine formats a model for display
// Example: "base      141.1 MB  Fast, good for English  ✓"
func FormatModelLine(m domain.ModelDescriptor, isDefault bool) string {
	status := " "
	if m.Available {
		status = "✓"
	}
	if isDefault {
		status += " (default)"
	}
	return fmt.Sprintf("%-9s %10s  %-26s %s", m.ID, FormatSize(m.SizeBytes), m.Description, status)
}
