package domain

import (
	"context"
	"errors"
	"fmt"
)

var (
	// Pipeline error kinds
	ErrNotFound         = errors.New("not found")
	ErrModelUnavailable = errors.New("model is not available locally")
	ErrNoAudioStream    = errors.New("media contains no audio stream")
	ErrCancelled        = errors.New("cancelled")
	ErrTransientIO      = errors.New("i/o failure")
	ErrEngineFailure    = errors.New("recognition engine failure")

	// Cache errors
	ErrCacheExpired = errors.New("cache expired")
	ErrCacheMiss    = errors.New("cache miss")

	// Recording errors
	ErrAlreadyRecording = errors.New("already recording")
	ErrNotRecording     = errors.New("not recording")
)

var errorKinds = []error{
	ErrCancelled,
	ErrNotFound,
	ErrModelUnavailable,
	ErrNoAudioStream,
	ErrTransientIO,
	ErrEngineFailure,
}

// PipelineError attaches an error kind and the failing operation to a cause.
// errors.Is matches both the kind and anything in the cause chain.
type PipelineError struct {
	Op   string
	Path string
	Kind error
	Err  error
}

func (e *PipelineError) Error() string {
	msg := fmt.Sprintf("%s: %v", e.Op, e.Kind)
	if e.Path != "" {
		msg += fmt.Sprintf(" (%s)", e.Path)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *PipelineError) Is(target error) bool {
	return e.Kind == target
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// NewError builds a PipelineError of the given kind.
func NewError(kind error, op, path string, err error) error {
	return &PipelineError{Op: op, Path: path, Kind: kind, Err: err}
}

// Cancelled wraps a context error so it matches both ErrCancelled and the context error.
func Cancelled(op string, err error) error {
	if err == nil {
		err = context.Canceled
	}
	return &PipelineError{Op: op, Kind: ErrCancelled, Err: err}
}

// IsCancelled reports whether err is a cancellation rather than a failure.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled)
}

// KindOf returns the pipeline kind carried by err, or nil if it has none.
func KindOf(err error) error {
	for _, kind := range errorKinds {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}

// Classify assigns kind to err unless it already carries one. A done context
// always wins: the result is then a cancellation.
func Classify(ctx context.Context, kind error, op, path string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrCancelled) {
		return err
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return &PipelineError{Op: op, Path: path, Kind: ErrCancelled, Err: ctxErr}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &PipelineError{Op: op, Path: path, Kind: ErrCancelled, Err: err}
	}
	if KindOf(err) != nil {
		return err
	}
	return &PipelineError{Op: op, Path: path, Kind: kind, Err: err}
}
