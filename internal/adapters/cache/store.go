// Package cache persists transcription results under one directory per key.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/devbush/voxcribe/internal/domain"
	"github.com/devbush/voxcribe/internal/ports"
)

const (
	metaFileName = "meta.json"
	textFileName = "transcript.txt"

	metaVersion = 1
)

var keyPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// FileCache stores each item as <baseDir>/<key>/meta.json plus a plain
// text copy of the transcript for browsing.
type FileCache struct {
	fs      afero.Fs
	baseDir string
	log     zerolog.Logger
	now     func() time.Time
}

// Option configures a FileCache.
type Option func(*FileCache)

// WithFs replaces the OS filesystem.
func WithFs(fs afero.Fs) Option {
	return func(c *FileCache) { c.fs = fs }
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *FileCache) { c.log = l.With().Str("component", "cache").Logger() }
}

func NewFileCache(baseDir string, opts ...Option) *FileCache {
	c := &FileCache{
		fs:      afero.NewOsFs(),
		baseDir: baseDir,
		log:     zerolog.Nop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type metaFile struct {
	Version   int                         `json:"version"`
	Output    *domain.TranscriptionOutput `json:"output"`
	MediaPath string                      `json:"media_path"`
	CreatedAt time.Time                   `json:"created_at"`
	ExpiresAt time.Time                   `json:"expires_at"`
}

func (c *FileCache) GetCacheDir(key string) string {
	return filepath.Join(c.baseDir, key)
}

func (c *FileCache) metaPath(key string) string {
	return filepath.Join(c.GetCacheDir(key), metaFileName)
}

func validKey(key string) error {
	if !keyPattern.MatchString(key) {
		return fmt.Errorf("invalid cache key %q", key)
	}
	return nil
}

func (c *FileCache) Get(ctx context.Context, key string) (*ports.CachedItem, error) {
	if err := validKey(key); err != nil {
		return nil, err
	}

	data, err := afero.ReadFile(c.fs, c.metaPath(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, domain.ErrCacheMiss
		}
		return nil, err
	}

	var meta metaFile
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("corrupt cache entry %s: %w", key, err)
	}
	if meta.Version != metaVersion || meta.Output == nil {
		return nil, domain.ErrCacheMiss
	}

	if c.now().After(meta.ExpiresAt) {
		return nil, domain.ErrCacheExpired
	}

	return &ports.CachedItem{
		Output:    meta.Output,
		MediaPath: meta.MediaPath,
		CreatedAt: meta.CreatedAt,
		ExpiresAt: meta.ExpiresAt,
	}, nil
}

func (c *FileCache) Set(ctx context.Context, key string, item *ports.CachedItem) error {
	if err := validKey(key); err != nil {
		return err
	}
	if item == nil || item.Output == nil {
		return errors.New("cache item has no output")
	}

	cacheDir := c.GetCacheDir(key)
	if err := c.fs.MkdirAll(cacheDir, 0755); err != nil {
		return err
	}

	meta := metaFile{
		Version:   metaVersion,
		Output:    item.Output,
		MediaPath: item.MediaPath,
		CreatedAt: item.CreatedAt,
		ExpiresAt: item.ExpiresAt,
	}

	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}

	if err := c.writeAtomic(filepath.Join(cacheDir, textFileName), []byte(item.Output.ToText()+"\n")); err != nil {
		return err
	}
	// meta.json last: its presence marks the entry complete.
	return c.writeAtomic(c.metaPath(key), data)
}

func (c *FileCache) writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := afero.WriteFile(c.fs, tmp, data, 0644); err != nil {
		c.fs.Remove(tmp)
		return err
	}
	return c.fs.Rename(tmp, path)
}

func (c *FileCache) Delete(ctx context.Context, key string) error {
	if err := validKey(key); err != nil {
		return err
	}
	return c.fs.RemoveAll(c.GetCacheDir(key))
}

func (c *FileCache) entries() ([]os.FileInfo, error) {
	entries, err := afero.ReadDir(c.fs, c.baseDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	dirs := entries[:0]
	for _, e := range entries {
		if e.IsDir() && keyPattern.MatchString(e.Name()) {
			dirs = append(dirs, e)
		}
	}
	return dirs, nil
}

// CleanExpired removes expired entries and entries that can no longer be read.
func (c *FileCache) CleanExpired(ctx context.Context) (int, error) {
	entries, err := c.entries()
	if err != nil {
		return 0, err
	}

	cleaned := 0
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return cleaned, err
		}

		key := entry.Name()
		_, err := c.Get(ctx, key)
		if err == nil {
			continue
		}
		if err := c.Delete(ctx, key); err != nil {
			c.log.Warn().Err(err).Str("key", key).Msg("failed to remove cache entry")
			continue
		}
		cleaned++
	}

	return cleaned, nil
}

func (c *FileCache) Clear(ctx context.Context) error {
	entries, err := c.entries()
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if err := c.fs.RemoveAll(filepath.Join(c.baseDir, entry.Name())); err != nil {
			c.log.Warn().Err(err).Str("key", entry.Name()).Msg("failed to remove cache entry")
		}
	}

	return nil
}

func (c *FileCache) Stats(ctx context.Context) (itemCount int, totalSize int64, err error) {
	entries, err := c.entries()
	if err != nil {
		return 0, 0, err
	}

	for _, entry := range entries {
		itemCount++

		dirPath := filepath.Join(c.baseDir, entry.Name())
		_ = afero.Walk(c.fs, dirPath, func(path string, info os.FileInfo, err error) error {
			if err == nil && !info.IsDir() {
				totalSize += info.Size()
			}
			return nil
		})
	}

	return itemCount, totalSize, nil
}

var _ ports.CacheStore = (*FileCache)(nil)
