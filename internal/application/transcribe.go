package application

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/rs/zerolog"

	"github.com/devbush/voxcribe/internal/domain"
	"github.com/devbush/voxcribe/internal/ports"
)

// TranscribeOptions configures the transcription
type TranscribeOptions struct {
	Model           domain.ModelID
	Language        string // empty or "auto" for auto-detect
	IncludeSegments bool
	NoCache         bool
	OnSegment       func(domain.TextSegment)
}

// TranscribeResult contains the transcription result
type TranscribeResult struct {
	Output    *domain.TranscriptionOutput
	FromCache bool
}

// TranscribeService runs the pipeline behind a transcript cache.
type TranscribeService struct {
	cache    ports.CacheStore
	pipeline *Orchestrator
	cacheTTL time.Duration
	log      zerolog.Logger
}

// NewTranscribeService creates a new transcription service
func NewTranscribeService(cache ports.CacheStore, pipeline *Orchestrator, cacheTTL time.Duration, log zerolog.Logger) *TranscribeService {
	return &TranscribeService{
		cache:    cache,
		pipeline: pipeline,
		cacheTTL: cacheTTL,
		log:      log.With().Str("component", "transcribe").Logger(),
	}
}

// Transcribe returns a cached transcript for identical media and settings,
// or runs the pipeline and caches its output.
func (s *TranscribeService) Transcribe(ctx context.Context, mediaPath string, opts TranscribeOptions, progress domain.ProgressFunc) (*TranscribeResult, error) {
	const op = "transcribe"

	if err := ctx.Err(); err != nil {
		return nil, domain.Cancelled(op, err)
	}

	model := opts.Model
	if model == "" {
		model = domain.DefaultModel
	}

	language, err := domain.NormalizeLanguage(opts.Language)
	if err != nil {
		return nil, err
	}

	var key string
	if s.cache != nil {
		key, err = CacheKey(ctx, mediaPath, model, language, opts.IncludeSegments)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, domain.Cancelled(op, ctxErr)
		}
		if err != nil {
			// Missing media is reported by the pipeline with the proper kind.
			s.log.Debug().Err(err).Msg("cache key unavailable")
			key = ""
		}
	}

	// Check cache first (unless bypassed)
	if key != "" && !opts.NoCache {
		cached, err := s.cache.Get(ctx, key)
		if err == nil && cached.Output != nil {
			s.log.Debug().Str("key", key).Msg("cache hit")
			out := cached.Output.WithSourceMediaPath(mediaPath)
			if progress != nil {
				progress(domain.Progress{Ratio: 1, Phase: PhaseCompleted})
			}
			return &TranscribeResult{Output: &out, FromCache: true}, nil
		}
	}

	out, err := s.pipeline.RunPipeline(ctx, mediaPath, model, domain.TranscriptionOptions{
		Language:          language,
		IncludeSegments:   opts.IncludeSegments,
		OnSegmentDetected: opts.OnSegment,
	}, progress)
	if err != nil {
		return nil, err
	}

	if key != "" {
		now := time.Now()
		item := &ports.CachedItem{
			Output:    out,
			MediaPath: mediaPath,
			CreatedAt: now,
			ExpiresAt: now.Add(s.cacheTTL),
		}
		// Cache result (failures are non-fatal)
		if err := s.cache.Set(ctx, key, item); err != nil {
			s.log.Warn().Err(err).Str("key", key).Msg("failed to cache transcript")
		}
	}

	return &TranscribeResult{Output: out}, nil
}

// CacheKey identifies a transcription by media content and the settings
// that change its output. Hashing stops when ctx is done.
func CacheKey(ctx context.Context, mediaPath string, model domain.ModelID, language string, includeSegments bool) (string, error) {
	f, err := os.Open(mediaPath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := xxhash.New()
	if _, err := io.CopyBuffer(h, ctxReader{ctx: ctx, r: f}, make([]byte, hashChunkSize)); err != nil {
		return "", fmt.Errorf("failed to hash %s: %w", mediaPath, err)
	}
	h.WriteString("\x00" + string(model))
	h.WriteString("\x00" + language)
	h.WriteString("\x00" + strconv.FormatBool(includeSegments))

	return fmt.Sprintf("%016x", h.Sum64()), nil
}

const hashChunkSize = 1 << 20

// ctxReader fails reads once ctx is done.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
