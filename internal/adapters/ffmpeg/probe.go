package ffmpeg

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/devbush/voxcribe/internal/domain"
	"github.com/devbush/voxcribe/internal/process"
)

const probeCacheSize = 64

// MediaInfo is what the normalizer needs to know about a source file.
type MediaInfo struct {
	FormatName   string
	Duration     time.Duration // zero when unknown
	AudioStreams int
}

// HasAudio reports whether at least one audio stream is present.
func (m MediaInfo) HasAudio() bool {
	return m.AudioStreams > 0
}

type probeKey struct {
	path    string
	size    int64
	modTime int64
}

type prober struct {
	bin   string
	grace time.Duration
	cache *lru.Cache[probeKey, MediaInfo]
}

func newProber(bin string, grace time.Duration) *prober {
	cache, err := lru.New[probeKey, MediaInfo](probeCacheSize)
	if err != nil {
		// Only fails for a non-positive size.
		panic(err)
	}
	return &prober{bin: bin, grace: grace, cache: cache}
}

// Probe inspects path with ffprobe. Results are cached until the file changes.
// A file ffprobe cannot parse yields ErrNoAudioStream.
func (p *prober) Probe(ctx context.Context, path string, fi os.FileInfo) (MediaInfo, error) {
	const op = "probe media"

	key := probeKey{path: path, size: fi.Size(), modTime: fi.ModTime().UnixNano()}
	if info, ok := p.cache.Get(key); ok {
		return info, nil
	}

	cmd := process.Command(ctx, p.grace, p.bin,
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if ctx.Err() == nil && errors.As(err, &exitErr) {
			return MediaInfo{}, domain.NewError(domain.ErrNoAudioStream, op, path,
				fmt.Errorf("ffprobe: %s", strings.TrimSpace(stderr.String())))
		}
		return MediaInfo{}, domain.Classify(ctx, domain.ErrTransientIO, op, path, err)
	}

	info, err := parseProbeOutput(out)
	if err != nil {
		return MediaInfo{}, domain.NewError(domain.ErrTransientIO, op, path, err)
	}

	p.cache.Add(key, info)
	return info, nil
}

type probeOutput struct {
	Streams []struct {
		CodecType string `json:"codec_type"`
		Duration  string `json:"duration"`
	} `json:"streams"`
	Format struct {
		FormatName string `json:"format_name"`
		Duration   string `json:"duration"`
	} `json:"format"`
}

func parseProbeOutput(data []byte) (MediaInfo, error) {
	var raw probeOutput
	if err := json.Unmarshal(data, &raw); err != nil {
		return MediaInfo{}, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}

	info := MediaInfo{
		FormatName: raw.Format.FormatName,
		Duration:   parseSeconds(raw.Format.Duration),
	}
	for _, s := range raw.Streams {
		if s.CodecType != "audio" {
			continue
		}
		info.AudioStreams++
		if info.Duration == 0 {
			info.Duration = parseSeconds(s.Duration)
		}
	}
	return info, nil
}

// parseSeconds reads ffprobe's decimal seconds. "N/A" and garbage give 0.
func parseSeconds(s string) time.Duration {
	secs, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs * float64(time.Second))
}
