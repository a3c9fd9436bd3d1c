// Package ffmpeg converts arbitrary media into PCM WAV using the ffmpeg and
// ffprobe executables, provisioning them on first use when they are missing.
package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/devbush/voxcribe/internal/domain"
	"github.com/devbush/voxcribe/internal/ports"
	"github.com/devbush/voxcribe/internal/process"
)

// Config configures a Normalizer.
type Config struct {
	ToolsDir    string // bundled location, also the install target
	SearchDir   string // optional user-configured location
	TempDir     string // where normalized files are written
	GracePeriod time.Duration
}

type initState int

const (
	stateNotInitialized initState = iota
	stateInitializing
	stateReady
)

// initAttempt is shared by every caller waiting on the same initialization.
type initAttempt struct {
	done chan struct{}
	err  error
}

// Normalizer implements ports.MediaNormalizer.
type Normalizer struct {
	cfg         Config
	provisioner Provisioner
	log         zerolog.Logger

	mu      sync.Mutex
	state   initState
	attempt *initAttempt
	tools   Tools
	prober  *prober
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithProvisioner replaces the default installer.
func WithProvisioner(p Provisioner) Option {
	return func(n *Normalizer) { n.provisioner = p }
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(n *Normalizer) { n.log = l.With().Str("component", "ffmpeg").Logger() }
}

// NewNormalizer creates a normalizer. Nothing is located until Initialize.
func NewNormalizer(cfg Config, opts ...Option) *Normalizer {
	if cfg.GracePeriod <= 0 {
		cfg.GracePeriod = process.DefaultGracePeriod
	}
	if cfg.TempDir == "" {
		cfg.TempDir = os.TempDir()
	}
	n := &Normalizer{cfg: cfg, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(n)
	}
	if n.provisioner == nil {
		n.provisioner = NewInstaller(nil, nil, n.log)
	}
	return n
}

// Tools returns the resolved executables. Before Initialize it searches
// without installing anything.
func (n *Normalizer) Tools() Tools {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.state == stateReady {
		return n.tools
	}
	return Locate(n.cfg.ToolsDir, n.cfg.SearchDir)
}

func (n *Normalizer) IsReady() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state == stateReady
}

// Initialize locates ffmpeg and ffprobe and installs them into ToolsDir when
// either is missing. Concurrent callers share one attempt. If that attempt is
// cancelled, waiters whose own context is still live start a new one.
func (n *Normalizer) Initialize(ctx context.Context, progress func(downloaded, total int64)) error {
	const op = "initialize ffmpeg"

	for {
		n.mu.Lock()
		switch n.state {
		case stateReady:
			n.mu.Unlock()
			return nil

		case stateInitializing:
			a := n.attempt
			n.mu.Unlock()

			select {
			case <-a.done:
			case <-ctx.Done():
				return domain.Cancelled(op, ctx.Err())
			}
			if a.err == nil {
				return nil
			}
			if domain.IsCancelled(a.err) && ctx.Err() == nil {
				continue
			}
			return a.err

		default:
			a := &initAttempt{done: make(chan struct{})}
			n.state = stateInitializing
			n.attempt = a
			n.mu.Unlock()

			tools, err := n.provision(ctx, progress)

			n.mu.Lock()
			if err == nil {
				n.tools = tools
				n.prober = newProber(tools.FFprobe, n.cfg.GracePeriod)
				n.state = stateReady
			} else {
				n.state = stateNotInitialized
			}
			n.attempt = nil
			a.err = err
			n.mu.Unlock()
			close(a.done)

			return err
		}
	}
}

func (n *Normalizer) provision(ctx context.Context, progress func(downloaded, total int64)) (Tools, error) {
	const op = "initialize ffmpeg"

	if err := ctx.Err(); err != nil {
		return Tools{}, domain.Cancelled(op, err)
	}

	tools := Locate(n.cfg.ToolsDir, n.cfg.SearchDir)
	if tools.Complete() {
		n.log.Debug().Str("ffmpeg", tools.FFmpeg).Str("ffprobe", tools.FFprobe).Msg("toolchain found")
		return tools, nil
	}

	n.log.Info().Str("dir", n.cfg.ToolsDir).Msg("installing ffmpeg")
	if err := n.provisioner.Provision(ctx, n.cfg.ToolsDir, progress); err != nil {
		return Tools{}, domain.Classify(ctx, domain.ErrTransientIO, op, n.cfg.ToolsDir, err)
	}

	tools = Locate(n.cfg.ToolsDir, n.cfg.SearchDir)
	if !tools.Complete() {
		return Tools{}, domain.NewError(domain.ErrTransientIO, op, n.cfg.ToolsDir,
			errors.New("ffmpeg or ffprobe missing after install"))
	}
	return tools, nil
}

func (n *Normalizer) snapshot() (Tools, *prober) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.tools, n.prober
}

// Probe reports the format, duration and audio stream count of path.
func (n *Normalizer) Probe(ctx context.Context, path string) (MediaInfo, error) {
	if err := n.Initialize(ctx, nil); err != nil {
		return MediaInfo{}, err
	}
	fi, err := statSource(path)
	if err != nil {
		return MediaInfo{}, err
	}
	_, p := n.snapshot()
	return p.Probe(ctx, path, fi)
}

// ExtractAudio converts sourcePath to 16-bit PCM WAV in TempDir. Progress is
// processed/total source duration and is only reported when the duration is
// known. The output file is removed on every failure.
func (n *Normalizer) ExtractAudio(ctx context.Context, sourcePath string, opts ports.ExtractOptions, progress func(ratio float64)) (string, error) {
	const op = "extract audio"

	if err := ctx.Err(); err != nil {
		return "", domain.Cancelled(op, err)
	}
	fi, err := statSource(sourcePath)
	if err != nil {
		return "", err
	}
	if err := n.Initialize(ctx, nil); err != nil {
		return "", err
	}
	tools, p := n.snapshot()

	info, err := p.Probe(ctx, sourcePath, fi)
	if err != nil {
		return "", err
	}
	if !info.HasAudio() {
		return "", domain.NewError(domain.ErrNoAudioStream, op, sourcePath, nil)
	}

	defaults := ports.DefaultExtractOptions()
	if opts.SampleRate <= 0 {
		opts.SampleRate = defaults.SampleRate
	}
	if opts.Channels <= 0 {
		opts.Channels = defaults.Channels
	}

	if err := os.MkdirAll(n.cfg.TempDir, 0755); err != nil {
		return "", domain.NewError(domain.ErrTransientIO, op, n.cfg.TempDir, err)
	}
	outPath := filepath.Join(n.cfg.TempDir, uuid.NewString()+".wav")

	// Track success to clean up partial output on failure
	success := false
	defer func() {
		if success {
			return
		}
		if rmErr := os.Remove(outPath); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			n.log.Warn().Err(rmErr).Str("path", outPath).Msg("failed to remove partial audio")
		}
	}()

	cmd := process.Command(ctx, n.cfg.GracePeriod, tools.FFmpeg, extractArgs(sourcePath, outPath, opts)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return "", domain.NewError(domain.ErrTransientIO, op, sourcePath, err)
	}

	n.log.Debug().Str("source", sourcePath).Str("output", outPath).Dur("duration", info.Duration).Msg("extracting audio")
	if err := cmd.Start(); err != nil {
		return "", domain.Classify(ctx, domain.ErrTransientIO, op, sourcePath, err)
	}

	trackProgress(stdout, info.Duration, progress)

	if err := cmd.Wait(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			err = fmt.Errorf("%w: %s", err, msg)
		}
		return "", domain.Classify(ctx, domain.ErrTransientIO, op, sourcePath, err)
	}
	if err := ctx.Err(); err != nil {
		return "", domain.Cancelled(op, err)
	}

	success = true
	return outPath, nil
}

func extractArgs(src, dst string, opts ports.ExtractOptions) []string {
	return []string{
		"-hide_banner",
		"-nostdin",
		"-loglevel", "error",
		"-y",
		"-i", src,
		"-vn",
		"-map", "0:a:0",
		"-ac", strconv.Itoa(opts.Channels),
		"-ar", strconv.Itoa(opts.SampleRate),
		"-c:a", "pcm_s16le",
		"-progress", "pipe:1",
		"-nostats",
		dst,
	}
}

func statSource(path string) (os.FileInfo, error) {
	const op = "open media"

	fi, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, domain.NewError(domain.ErrNotFound, op, path, err)
		}
		return nil, domain.NewError(domain.ErrTransientIO, op, path, err)
	}
	if fi.IsDir() {
		return nil, domain.NewError(domain.ErrNotFound, op, path, errors.New("is a directory"))
	}
	return fi, nil
}

// Ensure Normalizer implements ports.MediaNormalizer
var _ ports.MediaNormalizer = (*Normalizer)(nil)
