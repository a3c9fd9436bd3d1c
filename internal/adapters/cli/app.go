package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/devbush/voxcribe/internal/adapters/cache"
	"github.com/devbush/voxcribe/internal/adapters/capture"
	"github.com/devbush/voxcribe/internal/adapters/ffmpeg"
	"github.com/devbush/voxcribe/internal/adapters/models"
	"github.com/devbush/voxcribe/internal/adapters/whisper"
	"github.com/devbush/voxcribe/internal/application"
	"github.com/devbush/voxcribe/internal/config"
	"github.com/devbush/voxcribe/internal/download"
	"github.com/devbush/voxcribe/internal/logging"
	"github.com/devbush/voxcribe/internal/ports"
)

// App holds all application dependencies
type App struct {
	Config *config.Config
	Dirs   config.Dirs
	Log    zerolog.Logger

	Models     *models.Repository
	Normalizer *ffmpeg.Normalizer
	Recognizer *whisper.CLIRecognizer
	Recorder   *capture.Recorder
	Cache      ports.CacheStore

	Pipeline      *application.Orchestrator
	TranscribeSvc *application.TranscribeService
	CacheSvc      *application.CacheService
}

// NewApp loads configuration and wires up all dependencies
func NewApp(configPath string, verbose bool) (*App, error) {
	if configPath == "" {
		configPath = config.ConfigPath()
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	dirs := cfg.Dirs()
	if err := dirs.EnsureDirs(); err != nil {
		return nil, err
	}

	logCfg := cfg.Log
	if verbose {
		logCfg.Level = "debug"
	}
	log := logging.New(logCfg, os.Stderr)

	ttl, err := cfg.GetCacheTTL()
	if err != nil {
		ttl = 7 * 24 * time.Hour // Default
	}

	httpClient := download.NewHTTPClient(cfg.DownloadTimeout())

	// Create adapters
	repo := models.NewRepository(models.Config{
		Dir:         dirs.Models,
		BaseURL:     cfg.Download.BaseURL,
		BufferSize:  cfg.Download.BufferSize,
		MaxAttempts: cfg.Download.MaxAttempts,
	}, models.WithHTTPClient(httpClient), models.WithLogger(log))

	installer := ffmpeg.NewInstaller(nil, download.New(afero.NewOsFs(),
		download.WithHTTPClient(httpClient),
		download.WithBufferSize(cfg.Download.BufferSize),
		download.WithMaxAttempts(cfg.Download.MaxAttempts),
		download.WithLogger(logging.Component(log, "ffmpeg-install")),
	), logging.Component(log, "ffmpeg-install"))

	normalizer := ffmpeg.NewNormalizer(ffmpeg.Config{
		ToolsDir:  dirs.FFmpeg,
		SearchDir: cfg.Tools.FFmpegDir,
		TempDir:   dirs.Temp,
	}, ffmpeg.WithProvisioner(installer), ffmpeg.WithLogger(log))

	recognizer := whisper.NewCLIRecognizer(
		whisper.WithBinary(cfg.Tools.WhisperBinary),
		whisper.WithSearchDirs(filepath.Join(dirs.Root, "bin")),
		whisper.WithThreads(cfg.Tools.Threads),
		whisper.WithCLILogger(log),
	)
	engine := whisper.NewEngine(repo, recognizer, whisper.WithLogger(log))

	recorder := capture.NewRecorder(capture.Config{
		Binary:      func() string { return normalizer.Tools().FFmpeg },
		TempDir:     dirs.Temp,
		InputFormat: cfg.Record.InputFormat,
		InputDevice: cfg.Record.InputDevice,
	}, log)

	cacheStore := cache.NewFileCache(dirs.Transcripts, cache.WithLogger(log))

	// Create services
	pipeline := application.NewOrchestrator(repo, normalizer, engine, application.WithLogger(log))
	transcribeSvc := application.NewTranscribeService(cacheStore, pipeline, ttl, log)
	cacheSvc := application.NewCacheService(cacheStore)

	return &App{
		Config:        cfg,
		Dirs:          dirs,
		Log:           log,
		Models:        repo,
		Normalizer:    normalizer,
		Recognizer:    recognizer,
		Recorder:      recorder,
		Cache:         cacheStore,
		Pipeline:      pipeline,
		TranscribeSvc: transcribeSvc,
		CacheSvc:      cacheSvc,
	}, nil
}

var globalApp *App

// GetApp returns the global app instance, creating it if needed
func GetApp() (*App, error) {
	if globalApp == nil {
		app, err := NewApp(configFlag, verboseFlag)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize: %w", err)
		}
		globalApp = app
	}
	return globalApp, nil
}
