// Package capture records microphone audio to WAV with an ffmpeg child
// process.
package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
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

const (
	defaultStartupWait = 250 * time.Millisecond
	defaultStopTimeout = 1200 * time.Millisecond
	elapsedInterval    = 100 * time.Millisecond
)

// Config configures a Recorder.
type Config struct {
	// Binary returns the ffmpeg executable; resolved at Start.
	Binary      func() string
	TempDir     string
	InputFormat string // pulse, avfoundation, dshow...
	InputDevice string
	StartupWait time.Duration
	StopTimeout time.Duration
}

// DefaultInput returns the capture format and device for goos.
func DefaultInput(goos string) (format, device string) {
	switch goos {
	case "darwin":
		return "avfoundation", ":0"
	case "windows":
		return "dshow", ""
	default:
		return "pulse", "default"
	}
}

// Recorder implements ports.Recorder. One session at a time.
type Recorder struct {
	cfg Config
	log zerolog.Logger

	mu        sync.Mutex
	active    *session
	onElapsed func(time.Duration)
}

type session struct {
	info    *domain.RecordingSession
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	stderr  *strings.Builder
	waitErr chan error
	kill    context.CancelFunc
	ticker  *time.Ticker
	done    chan struct{}
	exited  chan struct{} // closed when tick returns
}

// NewRecorder creates a recorder.
func NewRecorder(cfg Config, log zerolog.Logger) *Recorder {
	if cfg.InputFormat == "" {
		cfg.InputFormat, cfg.InputDevice = DefaultInput(runtime.GOOS)
	}
	if cfg.StartupWait <= 0 {
		cfg.StartupWait = defaultStartupWait
	}
	if cfg.StopTimeout <= 0 {
		cfg.StopTimeout = defaultStopTimeout
	}
	if cfg.TempDir == "" {
		cfg.TempDir = os.TempDir()
	}
	return &Recorder{cfg: cfg, log: log.With().Str("component", "recorder").Logger()}
}

func (r *Recorder) OnElapsed(fn func(time.Duration)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onElapsed = fn
}

func (r *Recorder) IsRecording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active != nil
}

func (r *Recorder) args(cfg domain.RecordingConfig, out string) []string {
	return []string{
		"-hide_banner",
		"-loglevel", "error",
		"-f", r.cfg.InputFormat,
		"-i", r.cfg.InputDevice,
		"-ac", strconv.Itoa(cfg.Channels),
		"-ar", strconv.Itoa(cfg.SampleRate),
		"-c:a", "pcm_s" + strconv.Itoa(cfg.BitsPerSample) + "le",
		"-y",
		out,
	}
}

// Start launches ffmpeg and returns once capture is running. ctx bounds
// startup only; the recording runs until Stop or Cancel.
func (r *Recorder) Start(ctx context.Context, cfg domain.RecordingConfig) (*domain.RecordingSession, error) {
	const op = "start recording"

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.active != nil {
		return nil, domain.ErrAlreadyRecording
	}
	if err := ctx.Err(); err != nil {
		return nil, domain.Cancelled(op, err)
	}

	defaults := domain.DefaultRecordingConfig()
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = defaults.SampleRate
	}
	if cfg.Channels <= 0 {
		cfg.Channels = defaults.Channels
	}
	if cfg.BitsPerSample != 16 && cfg.BitsPerSample != 24 && cfg.BitsPerSample != 32 {
		cfg.BitsPerSample = defaults.BitsPerSample
	}

	var bin string
	if r.cfg.Binary != nil {
		bin = r.cfg.Binary()
	}
	if bin == "" {
		return nil, domain.NewError(domain.ErrNotFound, op, "ffmpeg", errors.New("ffmpeg not found"))
	}
	if r.cfg.InputDevice == "" {
		return nil, domain.NewError(domain.ErrNotFound, op, r.cfg.InputFormat, errors.New("no capture device configured"))
	}

	if err := os.MkdirAll(r.cfg.TempDir, 0755); err != nil {
		return nil, domain.NewError(domain.ErrTransientIO, op, r.cfg.TempDir, err)
	}
	id := uuid.NewString()
	out := filepath.Join(r.cfg.TempDir, "recording_"+id+".wav")

	runCtx, kill := context.WithCancel(context.Background())
	cmd := process.Command(runCtx, r.cfg.StopTimeout, bin, r.args(cfg, out)...)
	stderr := &strings.Builder{}
	cmd.Stderr = stderr
	stdin, err := cmd.StdinPipe()
	if err != nil {
		kill()
		return nil, domain.NewError(domain.ErrTransientIO, op, bin, err)
	}
	if err := cmd.Start(); err != nil {
		kill()
		return nil, domain.NewError(domain.ErrTransientIO, op, bin, err)
	}

	waitErr := make(chan error, 1)
	go func() {
		waitErr <- cmd.Wait()
		close(waitErr)
	}()

	// ffmpeg fails fast when the device cannot be opened.
	select {
	case err := <-waitErr:
		kill()
		os.Remove(out)
		msg := strings.TrimSpace(stderr.String())
		if err == nil {
			err = errors.New("exited immediately")
		}
		return nil, domain.NewError(domain.ErrTransientIO, op, r.cfg.InputDevice, fmt.Errorf("ffmpeg: %w: %s", err, msg))
	case <-ctx.Done():
		kill()
		<-waitErr
		os.Remove(out)
		return nil, domain.Cancelled(op, ctx.Err())
	case <-time.After(r.cfg.StartupWait):
	}

	s := &session{
		info: &domain.RecordingSession{
			ID:         id,
			StartedAt:  time.Now(),
			OutputPath: out,
		},
		cmd:     cmd,
		stdin:   stdin,
		stderr:  stderr,
		waitErr: waitErr,
		kill:    kill,
		ticker:  time.NewTicker(elapsedInterval),
		done:    make(chan struct{}),
		exited:  make(chan struct{}),
	}
	r.active = s
	go r.tick(s)

	r.log.Info().Str("session", id).Str("path", out).Msg("recording started")
	return s.info, nil
}

func (r *Recorder) tick(s *session) {
	defer close(s.exited)
	for {
		select {
		case <-s.done:
			return
		case <-s.ticker.C:
			r.mu.Lock()
			fn := r.onElapsed
			r.mu.Unlock()
			if fn != nil {
				fn(time.Since(s.info.StartedAt))
			}
		}
	}
}

// Stop finalizes the recording and returns the WAV path. The caller owns the file.
func (r *Recorder) Stop() (string, error) {
	s, err := r.detach()
	if err != nil {
		return "", err
	}

	stopErr := r.shutdown(s)
	s.info.StoppedAt = time.Now()

	if stopErr != nil {
		os.Remove(s.info.OutputPath)
		return "", domain.NewError(domain.ErrTransientIO, "stop recording", s.info.OutputPath, stopErr)
	}
	if fi, err := os.Stat(s.info.OutputPath); err != nil || fi.Size() == 0 {
		os.Remove(s.info.OutputPath)
		return "", domain.NewError(domain.ErrTransientIO, "stop recording", s.info.OutputPath, errors.New("no audio was captured"))
	}

	r.log.Info().Str("session", s.info.ID).Dur("duration", s.info.Duration()).Msg("recording stopped")
	return s.info.OutputPath, nil
}

// Cancel stops the recording and deletes the file.
func (r *Recorder) Cancel() error {
	s, err := r.detach()
	if err != nil {
		return err
	}

	if err := r.shutdown(s); err != nil {
		r.log.Debug().Err(err).Msg("recorder shutdown")
	}
	s.info.StoppedAt = time.Now()

	if err := os.Remove(s.info.OutputPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		r.log.Warn().Err(err).Str("path", s.info.OutputPath).Msg("failed to remove cancelled recording")
	}
	r.log.Info().Str("session", s.info.ID).Msg("recording cancelled")
	return nil
}

func (r *Recorder) detach() (*session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.active
	if s == nil {
		return nil, domain.ErrNotRecording
	}
	r.active = nil
	return s, nil
}

// shutdown waits for the elapsed ticker to return, then asks ffmpeg to quit
// ("q" on stdin lets it finalize the WAV header), escalating to an interrupt
// and finally a kill.
func (r *Recorder) shutdown(s *session) error {
	s.ticker.Stop()
	close(s.done)
	<-s.exited
	defer s.kill()

	io.WriteString(s.stdin, "q\n")
	s.stdin.Close()

	select {
	case err, ok := <-s.waitErr:
		if ok {
			return normalizeStopErr(err, s.stderr)
		}
		return nil
	case <-time.After(r.cfg.StopTimeout):
	}

	process.Interrupt(s.cmd)
	select {
	case err, ok := <-s.waitErr:
		if ok {
			return normalizeStopErr(err, s.stderr)
		}
		return nil
	case <-time.After(r.cfg.StopTimeout):
	}

	s.kill()
	if err, ok := <-s.waitErr; ok {
		return normalizeStopErr(err, s.stderr)
	}
	return nil
}

// normalizeStopErr ignores non-zero exits: ffmpeg reports one when it is
// interrupted even though the file is complete.
func normalizeStopErr(err error, stderr *strings.Builder) error {
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return nil
	}
	if msg := strings.TrimSpace(stderr.String()); msg != "" {
		return fmt.Errorf("%w: %s", err, msg)
	}
	return err
}

// Ensure Recorder implements ports.Recorder
var _ ports.Recorder = (*Recorder)(nil)
