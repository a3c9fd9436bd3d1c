package ffmpeg

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
)

// Tools holds resolved executable paths. Empty means not found.
type Tools struct {
	FFmpeg  string
	FFprobe string
}

// Complete reports whether both executables were found.
func (t Tools) Complete() bool {
	return t.FFmpeg != "" && t.FFprobe != ""
}

func binaryName(name string) string {
	if runtime.GOOS == "windows" {
		return name + ".exe"
	}
	return name
}

// Locate looks for ffmpeg and ffprobe in each dir in order, then in PATH.
func Locate(dirs ...string) Tools {
	return Tools{
		FFmpeg:  findBinary("ffmpeg", dirs),
		FFprobe: findBinary("ffprobe", dirs),
	}
}

func findBinary(name string, dirs []string) string {
	bin := binaryName(name)
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		candidate := filepath.Join(dir, bin)
		if fi, err := os.Stat(candidate); err == nil && !fi.IsDir() {
			return candidate
		}
	}

	if path, err := exec.LookPath(bin); err == nil {
		return path
	}
	return ""
}
