package whisper

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/devbush/voxcribe/internal/domain"
	"github.com/devbush/voxcribe/internal/process"
)

var binaryNames = []string{"whisper-cli", "whisper-cpp", "whisper", "main"}

// FindBinary looks for a whisper.cpp executable in dirs, then in PATH.
func FindBinary(dirs ...string) string {
	names := binaryNames
	if runtime.GOOS == "windows" {
		names = make([]string, len(binaryNames))
		for i, n := range binaryNames {
			names[i] = n + ".exe"
		}
	}

	// Check bundled location
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		for _, name := range names {
			candidate := filepath.Join(dir, name)
			if fi, err := os.Stat(candidate); err == nil && !fi.IsDir() {
				return candidate
			}
		}
	}

	// Check PATH
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	return ""
}

// CLIRecognizer runs the whisper.cpp command line tool and streams the
// segments it prints.
type CLIRecognizer struct {
	binPath string
	dirs    []string
	threads int
	grace   time.Duration
	log     zerolog.Logger

	once sync.Once
}

// CLIOption configures a CLIRecognizer.
type CLIOption func(*CLIRecognizer)

// WithBinary pins the executable instead of searching for it.
func WithBinary(path string) CLIOption {
	return func(c *CLIRecognizer) { c.binPath = path }
}

// WithSearchDirs adds directories searched before PATH.
func WithSearchDirs(dirs ...string) CLIOption {
	return func(c *CLIRecognizer) { c.dirs = append(c.dirs, dirs...) }
}

// WithThreads sets the inference thread count. Zero keeps the tool default.
func WithThreads(n int) CLIOption {
	return func(c *CLIRecognizer) { c.threads = n }
}

// WithCLILogger sets the logger.
func WithCLILogger(l zerolog.Logger) CLIOption {
	return func(c *CLIRecognizer) { c.log = l.With().Str("component", "whisper-cli").Logger() }
}

// NewCLIRecognizer creates a recognizer backed by whisper-cli.
func NewCLIRecognizer(opts ...CLIOption) *CLIRecognizer {
	c := &CLIRecognizer{grace: process.DefaultGracePeriod, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BinaryPath returns the executable in use, or "" when none was found.
func (c *CLIRecognizer) BinaryPath() string {
	c.once.Do(func() {
		if c.binPath == "" {
			c.binPath = FindBinary(c.dirs...)
		}
	})
	return c.binPath
}

func (c *CLIRecognizer) args(req RecognizeRequest) []string {
	lang := req.Language
	if lang == "" {
		lang = domain.AutoLanguage
	}
	args := []string{
		"-m", req.ModelPath,
		"-f", req.AudioPath,
		"-l", lang,
		"-np", // only results on stdout
	}
	if c.threads > 0 {
		args = append(args, "-t", fmt.Sprint(c.threads))
	}
	return args
}

func (c *CLIRecognizer) Recognize(ctx context.Context, req RecognizeRequest, emit func(RawSegment) error) error {
	bin := c.BinaryPath()
	if bin == "" {
		return errors.New("whisper binary not found (install whisper.cpp)")
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	cmd := process.Command(runCtx, c.grace, bin, c.args(req)...)
	stderr := &tailBuffer{limit: 4096}
	cmd.Stderr = stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}

	c.log.Debug().Str("bin", bin).Str("model", req.ModelPath).Str("audio", req.AudioPath).Msg("starting recognition")
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start whisper: %w", err)
	}

	var emitErr error
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		seg, ok := parseSegmentLine(scanner.Text())
		if !ok {
			continue
		}
		if emitErr = emit(seg); emitErr != nil {
			break
		}
	}
	if emitErr == nil {
		emitErr = scanner.Err()
	}
	if emitErr != nil {
		// Nobody reads stdout any more; stop the tool.
		cancel()
	}

	waitErr := cmd.Wait()
	switch {
	case emitErr != nil:
		return emitErr
	case waitErr != nil:
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("whisper failed: %w: %s", waitErr, msg)
		}
		return fmt.Errorf("whisper failed: %w", waitErr)
	}
	return nil
}

// tailBuffer keeps only the last limit bytes written.
type tailBuffer struct {
	limit int
	buf   []byte
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.buf = append(t.buf, p...)
	if over := len(t.buf) - t.limit; over > 0 {
		t.buf = t.buf[over:]
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	return string(t.buf)
}

// Ensure CLIRecognizer implements Recognizer
var _ Recognizer = (*CLIRecognizer)(nil)
