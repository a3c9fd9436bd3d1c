// Package download streams remote artifacts to disk in fixed-size chunks.
// Files are written to "<dest>.part" and renamed into place only after the
// whole body has been written, so a partial transfer is never observable
// under the final name.
package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/devbush/voxcribe/internal/domain"
)

const (
	// DefaultBufferSize is the chunk size used when none is configured.
	DefaultBufferSize = 32 * 1024
	// DefaultMaxAttempts bounds connection attempts per download.
	DefaultMaxAttempts = 3

	partSuffix = ".part"
)

// PartPath returns the in-progress name for dest.
func PartPath(dest string) string {
	return dest + partSuffix
}

// StatusError is returned when the server answers with a non-200 status.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: HTTP %d", e.URL, e.Code)
}

// Downloader fetches URLs into files on an afero filesystem.
type Downloader struct {
	fs          afero.Fs
	client      *http.Client
	bufferSize  int
	maxAttempts uint
	log         zerolog.Logger
}

// Option configures a Downloader.
type Option func(*Downloader)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(d *Downloader) {
		if c != nil {
			d.client = c
		}
	}
}

// WithBufferSize sets the chunk size.
func WithBufferSize(n int) Option {
	return func(d *Downloader) {
		if n > 0 {
			d.bufferSize = n
		}
	}
}

// WithMaxAttempts sets how many times opening the response is attempted.
func WithMaxAttempts(n int) Option {
	return func(d *Downloader) {
		if n > 0 {
			d.maxAttempts = uint(n)
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(d *Downloader) {
		d.log = l
	}
}

// New creates a Downloader writing to fs.
func New(fs afero.Fs, opts ...Option) *Downloader {
	d := &Downloader{
		fs:          fs,
		client:      http.DefaultClient,
		bufferSize:  DefaultBufferSize,
		maxAttempts: DefaultMaxAttempts,
		log:         zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// NewHTTPClient returns a client whose timeout applies to waiting for response
// headers only. A whole-request timeout would abort large model transfers.
func NewHTTPClient(headerTimeout time.Duration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = headerTimeout
	return &http.Client{Transport: transport}
}

// ToFile downloads url to dest and returns the number of bytes written.
// progress is called after every chunk, and only when the server reported a
// content length. On any failure nothing is left at dest or its part file.
// Errors are classified as domain.ErrCancelled or domain.ErrTransientIO.
func (d *Downloader) ToFile(ctx context.Context, url, dest string, progress func(written, total int64)) (int64, error) {
	const op = "download"

	if err := ctx.Err(); err != nil {
		return 0, domain.Cancelled(op, err)
	}
	if err := d.fs.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return 0, domain.NewError(domain.ErrTransientIO, op, dest, err)
	}

	resp, err := d.open(ctx, url)
	if err != nil {
		return 0, domain.Classify(ctx, domain.ErrTransientIO, op, url, err)
	}
	defer resp.Body.Close()

	part := PartPath(dest)
	out, err := d.fs.Create(part)
	if err != nil {
		return 0, domain.NewError(domain.ErrTransientIO, op, part, err)
	}

	// Track success to clean up partial downloads on failure
	success := false
	closed := false
	defer func() {
		if !closed {
			out.Close()
		}
		if !success {
			if rmErr := d.fs.Remove(part); rmErr != nil && !errors.Is(rmErr, afero.ErrFileNotFound) {
				d.log.Warn().Err(rmErr).Str("path", part).Msg("failed to remove partial download")
			}
		}
	}()

	total := resp.ContentLength
	written, err := d.copyChunks(ctx, out, resp.Body, total, progress)
	if err != nil {
		return written, domain.Classify(ctx, domain.ErrTransientIO, op, url, err)
	}

	if err := out.Sync(); err != nil {
		return written, domain.NewError(domain.ErrTransientIO, op, part, err)
	}
	closed = true
	if err := out.Close(); err != nil {
		return written, domain.NewError(domain.ErrTransientIO, op, part, err)
	}
	if err := d.fs.Rename(part, dest); err != nil {
		return written, domain.NewError(domain.ErrTransientIO, op, dest, err)
	}

	success = true
	d.log.Debug().Str("url", url).Str("path", dest).Int64("bytes", written).Msg("download complete")
	return written, nil
}

func (d *Downloader) copyChunks(ctx context.Context, dst io.Writer, src io.Reader, total int64, progress func(written, total int64)) (int64, error) {
	var written int64
	buf := make([]byte, d.bufferSize)
	for {
		// Check for context cancellation
		select {
		case <-ctx.Done():
			return written, ctx.Err()
		default:
		}

		n, err := src.Read(buf)
		if n > 0 {
			if _, writeErr := dst.Write(buf[:n]); writeErr != nil {
				return written, writeErr
			}
			written += int64(n)
			if progress != nil && total > 0 {
				progress(written, total)
			}
		}
		if err == io.EOF {
			return written, nil
		}
		if err != nil {
			return written, err
		}
	}
}

// open issues the GET, retrying connection failures and 5xx/429 answers with
// exponential backoff. Other statuses fail immediately.
func (d *Downloader) open(ctx context.Context, url string) (*http.Response, error) {
	attempt := 0
	operation := func() (*http.Response, error) {
		attempt++
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
		}

		resp, err := d.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, backoff.Permanent(err)
			}
			return nil, err
		}

		if resp.StatusCode == http.StatusOK {
			return resp, nil
		}

		resp.Body.Close()
		statusErr := &StatusError{URL: url, Code: resp.StatusCode}
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return nil, statusErr
		}
		return nil, backoff.Permanent(statusErr)
	}

	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = 250 * time.Millisecond
	expo.MaxInterval = 5 * time.Second

	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(expo),
		backoff.WithMaxTries(d.maxAttempts),
		backoff.WithNotify(func(err error, wait time.Duration) {
			d.log.Debug().Err(err).Int("attempt", attempt).Dur("wait", wait).Msg("retrying download")
		}),
	)
}
