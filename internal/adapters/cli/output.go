package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/devbush/voxcribe/internal/domain"
)

// renderOutput formats a transcript as text, srt or json.
func renderOutput(out *domain.TranscriptionOutput, format string) (string, error) {
	switch format {
	case "", "text":
		return out.ToText(), nil
	case "srt":
		if len(out.Segments) == 0 && out.FullText != "" {
			return "", fmt.Errorf("srt output needs segments; rerun with --segments")
		}
		return out.ToSRT(), nil
	case "json":
		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return "", err
		}
		return string(data), nil
	default:
		return "", fmt.Errorf("unknown format: %s (use text, srt or json)", format)
	}
}

// emitResult writes the rendered transcript to path, or to w when path is empty.
func emitResult(w io.Writer, out *domain.TranscriptionOutput, format, path string) error {
	content, err := renderOutput(out, format)
	if err != nil {
		return err
	}

	if path == "" {
		fmt.Fprintln(w, content)
		return nil
	}

	if err := os.WriteFile(path, []byte(content+"\n"), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if !quietFlag {
		fmt.Fprintf(os.Stderr, "Transcript saved to %s\n", path)
	}
	return nil
}

func replaceExt(path, ext string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ext
}
