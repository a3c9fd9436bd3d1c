// Package models stores Whisper model artifacts on local disk and downloads
// them on request.
package models

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/devbush/voxcribe/internal/domain"
	"github.com/devbush/voxcribe/internal/download"
	"github.com/devbush/voxcribe/internal/ports"
)

// DefaultBaseURL hosts the ggml model files.
const DefaultBaseURL = "https://huggingface.co/ggerganov/whisper.cpp/resolve/main"

// Config configures a Repository.
type Config struct {
	Dir         string // models directory
	BaseURL     string
	BufferSize  int
	MaxAttempts int
}

// Repository implements ports.ModelRepository. The filesystem is the only
// source of truth; nothing about availability is cached.
type Repository struct {
	cfg    Config
	fs     afero.Fs
	client *http.Client
	log    zerolog.Logger
	dl     *download.Downloader
	locks  keyedLock
}

// Option configures a Repository.
type Option func(*Repository)

// WithFs replaces the OS filesystem.
func WithFs(fs afero.Fs) Option {
	return func(r *Repository) { r.fs = fs }
}

// WithHTTPClient sets the client used for downloads.
func WithHTTPClient(c *http.Client) Option {
	return func(r *Repository) { r.client = c }
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(r *Repository) { r.log = l.With().Str("component", "models").Logger() }
}

// NewRepository creates a repository rooted at cfg.Dir.
func NewRepository(cfg Config, opts ...Option) *Repository {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	r := &Repository{
		cfg:    cfg,
		fs:     afero.NewOsFs(),
		client: http.DefaultClient,
		log:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.dl = download.New(r.fs,
		download.WithHTTPClient(r.client),
		download.WithBufferSize(cfg.BufferSize),
		download.WithMaxAttempts(cfg.MaxAttempts),
		download.WithLogger(r.log),
	)
	return r
}

// ModelURL returns the download location of a model artifact.
func ModelURL(baseURL string, info domain.ModelInfo) string {
	return strings.TrimRight(baseURL, "/") + "/" + info.FileName
}

// LocalPath returns where the artifact for info lives, whether or not it exists.
func (r *Repository) LocalPath(info domain.ModelInfo) string {
	return filepath.Join(r.cfg.Dir, info.FileName)
}

func (r *Repository) ListAll() []domain.ModelDescriptor {
	catalog := domain.Catalog()
	out := make([]domain.ModelDescriptor, 0, len(catalog))
	for _, info := range catalog {
		out = append(out, r.describe(info))
	}
	return out
}

func (r *Repository) Get(id domain.ModelID) (domain.ModelDescriptor, error) {
	info, err := lookup(id)
	if err != nil {
		return domain.ModelDescriptor{}, err
	}
	return r.describe(info), nil
}

func (r *Repository) IsAvailable(id domain.ModelID) bool {
	info, err := lookup(id)
	if err != nil {
		return false
	}
	return r.describe(info).Available
}

func (r *Repository) ResolveLocalPath(id domain.ModelID) (string, error) {
	info, err := lookup(id)
	if err != nil {
		return "", err
	}
	desc := r.describe(info)
	if !desc.Available {
		return "", domain.NewError(domain.ErrModelUnavailable, "resolve model", r.LocalPath(info), nil)
	}
	return desc.LocalPath, nil
}

func (r *Repository) Acquire(ctx context.Context, id domain.ModelID, progress func(ratio float64)) error {
	const op = "acquire model"

	info, err := lookup(id)
	if err != nil {
		return err
	}

	unlock, err := r.locks.lock(ctx, id)
	if err != nil {
		return domain.Cancelled(op, err)
	}
	defer unlock()

	url := ModelURL(r.cfg.BaseURL, info)
	dest := r.LocalPath(info)
	r.log.Info().Str("model", string(id)).Str("url", url).Msg("downloading model")

	var report func(written, total int64)
	if progress != nil {
		report = func(written, total int64) {
			progress(float64(written) / float64(total))
		}
	}

	n, err := r.dl.ToFile(ctx, url, dest, report)
	if err != nil {
		r.log.Warn().Err(err).Str("model", string(id)).Msg("model download failed")
		return err
	}

	r.log.Info().Str("model", string(id)).Int64("bytes", n).Msg("model downloaded")
	return nil
}

func (r *Repository) Remove(ctx context.Context, id domain.ModelID) error {
	const op = "remove model"

	info, err := lookup(id)
	if err != nil {
		return err
	}

	unlock, err := r.locks.lock(ctx, id)
	if err != nil {
		return domain.Cancelled(op, err)
	}
	defer unlock()

	path := r.LocalPath(info)
	for _, p := range []string{path, download.PartPath(path)} {
		if err := r.fs.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return domain.NewError(domain.ErrTransientIO, op, p, err)
		}
	}

	r.log.Info().Str("model", string(id)).Msg("model removed")
	return nil
}

func (r *Repository) describe(info domain.ModelInfo) domain.ModelDescriptor {
	desc := domain.ModelDescriptor{
		ID:          info.ID,
		Name:        info.DisplayName,
		Description: info.Description,
		SizeBytes:   info.SizeBytes,
	}

	path := r.LocalPath(info)
	if fi, err := r.fs.Stat(path); err == nil && fi.Mode().IsRegular() && fi.Size() > 0 {
		desc.Available = true
		desc.LocalPath = path
	}
	return desc
}

func lookup(id domain.ModelID) (domain.ModelInfo, error) {
	info, ok := domain.LookupModel(id)
	if !ok {
		return domain.ModelInfo{}, domain.NewError(domain.ErrNotFound, "lookup model", string(id), nil)
	}
	return info, nil
}

// Ensure Repository implements ports.ModelRepository
var _ ports.ModelRepository = (*Repository)(nil)
