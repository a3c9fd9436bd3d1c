package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/devbush/voxcribe/internal/domain"
)

// HomeEnv overrides the storage root when set.
const HomeEnv = "VOXCRIBE_HOME"

// Config represents the application configuration
type Config struct {
	Defaults DefaultsConfig `yaml:"defaults"`
	Storage  StorageConfig  `yaml:"storage"`
	Download DownloadConfig `yaml:"download"`
	Tools    ToolsConfig    `yaml:"tools"`
	Record   RecordConfig   `yaml:"record"`
	Log      LogConfig      `yaml:"log"`
}

// DefaultsConfig holds default values
type DefaultsConfig struct {
	Model    string `yaml:"model" validate:"required,model"`
	Language string `yaml:"language" validate:"omitempty,language"`
	Format   string `yaml:"format" validate:"required,oneof=text srt json"`
	CacheTTL string `yaml:"cache_ttl" validate:"required,ttl"`
}

// StorageConfig locates models, tools, temp files and transcripts.
type StorageConfig struct {
	Root string `yaml:"root"` // empty: AppDir()
}

// DownloadConfig tunes model and toolchain downloads.
type DownloadConfig struct {
	BaseURL     string `yaml:"base_url" validate:"required,url"`
	Timeout     string `yaml:"timeout" validate:"required,duration"`
	BufferSize  int    `yaml:"buffer_size" validate:"min=4096"`
	MaxAttempts int    `yaml:"max_attempts" validate:"min=1,max=10"`
}

// ToolsConfig holds custom path overrides
type ToolsConfig struct {
	FFmpegDir     string `yaml:"ffmpeg_dir"`
	WhisperBinary string `yaml:"whisper_binary"`
	Threads       int    `yaml:"threads" validate:"min=0"`
}

// RecordConfig selects the capture device. Empty values use the platform default.
type RecordConfig struct {
	InputFormat string `yaml:"input_format"`
	InputDevice string `yaml:"input_device"`
}

// LogConfig controls diagnostic output.
type LogConfig struct {
	Level  string `yaml:"level" validate:"required,oneof=debug info warn error"`
	Format string `yaml:"format" validate:"required,oneof=auto console json"`
}

// DefaultConfig returns configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Defaults: DefaultsConfig{
			Model:    string(domain.DefaultModel),
			Language: domain.AutoLanguage,
			Format:   "text",
			CacheTTL: "7d",
		},
		Download: DownloadConfig{
			BaseURL:     "https://huggingface.co/ggerganov/whisper.cpp/resolve/main",
			Timeout:     "30s",
			BufferSize:  64 * 1024,
			MaxAttempts: 4,
		},
		Log: LogConfig{
			Level:  "warn",
			Format: "auto",
		},
	}
}

// AppDir returns the default storage root: $VOXCRIBE_HOME, or Voxcribe under
// the user config directory.
func AppDir() string {
	if dir := os.Getenv(HomeEnv); dir != "" {
		return dir
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return ".voxcribe"
	}
	return filepath.Join(base, "Voxcribe")
}

// ConfigPath returns the config file path
func ConfigPath() string {
	return filepath.Join(AppDir(), "config.yaml")
}

// Dirs are the directories derived from the storage root.
type Dirs struct {
	Root        string
	Models      string
	FFmpeg      string
	Temp        string
	Transcripts string
}

// Dirs resolves the storage layout.
func (c *Config) Dirs() Dirs {
	root := c.Storage.Root
	if root == "" {
		root = AppDir()
	}
	return Dirs{
		Root:        root,
		Models:      filepath.Join(root, "Models"),
		FFmpeg:      filepath.Join(root, "FFmpeg"),
		Temp:        filepath.Join(root, "Temp"),
		Transcripts: filepath.Join(root, "Transcripts"),
	}
}

// EnsureDirs creates all required directories
func (d Dirs) EnsureDirs() error {
	for _, dir := range []string{d.Root, d.Models, d.FFmpeg, d.Temp, d.Transcripts} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// Load reads config from file, returns default if not exists
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, err
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return cfg, nil
}

// LoadDefault loads config from default path
func LoadDefault() (*Config, error) {
	return Load(ConfigPath())
}

// Save writes config to file
func (c *Config) Save(path string) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// SaveDefault saves config to default path
func (c *Config) SaveDefault() error {
	return c.Save(ConfigPath())
}

// GetCacheTTL returns the cache TTL as a duration
func (c *Config) GetCacheTTL() (time.Duration, error) {
	return ParseDuration(c.Defaults.CacheTTL)
}

// DownloadTimeout returns the response header timeout for downloads.
func (c *Config) DownloadTimeout() time.Duration {
	d, err := time.ParseDuration(c.Download.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// ModelID returns the configured default model.
func (c *Config) ModelID() domain.ModelID {
	id, err := domain.ParseModelID(c.Defaults.Model)
	if err != nil {
		return domain.DefaultModel
	}
	return id
}

var durationPattern = regexp.MustCompile(`^(\d+)(h|d)$`)

// ParseDuration parses duration strings like "24h", "7d", "30d"
func ParseDuration(s string) (time.Duration, error) {
	matches := durationPattern.FindStringSubmatch(s)
	if len(matches) != 3 {
		return 0, fmt.Errorf("invalid duration format: %s (use format like 24h, 7d)", s)
	}

	value, _ := strconv.Atoi(matches[1])
	unit := matches[2]

	switch unit {
	case "h":
		return time.Duration(value) * time.Hour, nil
	case "d":
		return time.Duration(value) * 24 * time.Hour, nil
	default:
		return 0, fmt.Errorf("unknown duration unit: %s", unit)
	}
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())

		// Report fields by their yaml keys.
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})

		_ = validate.RegisterValidation("ttl", func(fl validator.FieldLevel) bool {
			_, err := ParseDuration(fl.Field().String())
			return err == nil
		})
		_ = validate.RegisterValidation("duration", func(fl validator.FieldLevel) bool {
			d, err := time.ParseDuration(fl.Field().String())
			return err == nil && d > 0
		})
		_ = validate.RegisterValidation("model", func(fl validator.FieldLevel) bool {
			_, err := domain.ParseModelID(fl.Field().String())
			return err == nil
		})
		_ = validate.RegisterValidation("language", func(fl validator.FieldLevel) bool {
			_, err := domain.NormalizeLanguage(fl.Field().String())
			return err == nil
		})
	})
	return validate
}

// Validate checks every field against its constraints.
func (c *Config) Validate() error {
	err := getValidator().Struct(c)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	messages := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		// Namespace is "Config.defaults.model"; drop the root type.
		field := fe.Namespace()
		if i := strings.IndexByte(field, '.'); i >= 0 {
			field = field[i+1:]
		}
		messages = append(messages, fmt.Sprintf("%s: %s", field, describe(fe)))
	}
	return errors.New(strings.Join(messages, "; "))
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "url":
		return "must be a valid URL"
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "ttl":
		return fmt.Sprintf("invalid duration %q (use format like 24h, 7d)", fe.Value())
	case "duration":
		return fmt.Sprintf("invalid duration %q (use format like 30s, 2m)", fe.Value())
	case "model":
		return fmt.Sprintf("unknown model %q (valid: %s)", fe.Value(), strings.Join(domain.ModelIDs(), ", "))
	case "language":
		return fmt.Sprintf("unsupported language %q", fe.Value())
	default:
		return "is invalid"
	}
}
