// Package config provides configuration loading and structs for kbassist.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug    bool           `yaml:"debug"`
	LogLevel string         `yaml:"log_level" validate:"omitempty,oneof=debug info warn error"`
	Server   ServerConfig   `yaml:"server"`
	Storage  StorageConfig  `yaml:"storage"`
	Chunking ChunkingConfig `yaml:"chunking"`
	Index    IndexConfig    `yaml:"index"`
	Search   SearchConfig   `yaml:"search"`
	LLM      LLMConfig      `yaml:"llm"`
	Mirror   MirrorConfig   `yaml:"mirror"`
	Admin    AdminConfig    `yaml:"admin"`
	Upload   UploadConfig   `yaml:"upload"`
	Watch    WatchConfig    `yaml:"watch"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host" validate:"required"`
	Port int    `yaml:"port" validate:"min=1,max=65535"`
}

// StorageConfig holds filesystem locations.
type StorageConfig struct {
	DatabasePath  string `yaml:"database_path" validate:"required"`
	PDFDir        string `yaml:"pdf_dir" validate:"required"`
	BackupDir     string `yaml:"backup_dir" validate:"required"`
	EmbeddingsDir string `yaml:"embeddings_dir" validate:"required"`
}

// ChunkingConfig controls how extracted text is split. An overlap at or above
// the chunk size is accepted but yields near-duplicate chunks.
type ChunkingConfig struct {
	ChunkSize int    `yaml:"chunk_size" validate:"gt=0"`
	Overlap   int    `yaml:"chunk_overlap" validate:"gte=0"`
	Separator string `yaml:"separator" validate:"required"`
}

// IndexConfig holds TF-IDF vectorizer parameters.
type IndexConfig struct {
	MaxFeatures int     `yaml:"max_features" validate:"gte=0"`
	MinDF       int     `yaml:"min_df" validate:"gte=1"`
	MaxDF       float64 `yaml:"max_df" validate:"gt=0,lte=1"`
	SmallCorpus int     `yaml:"small_corpus" validate:"gte=0"`
}

// SearchConfig fixes the retriever's result count and score floor.
type SearchConfig struct {
	K              int     `yaml:"k" validate:"gte=1,lte=100"`
	ScoreThreshold float64 `yaml:"score_threshold" validate:"gte=0,lte=1"`
}

// LLMConfig configures the chat-completion client.
type LLMConfig struct {
	APIKey      string        `yaml:"api_key"`
	BaseURL     string        `yaml:"base_url" validate:"omitempty,url"`
	Model       string        `yaml:"model" validate:"oneof=gpt-4o-mini gpt-4o gpt-4 gpt-3.5-turbo"`
	Temperature float32       `yaml:"temperature" validate:"gte=0,lte=2"`
	MaxTokens   int           `yaml:"max_tokens" validate:"gte=0"`
	Timeout     time.Duration `yaml:"timeout"`
}

// MirrorConfig configures the object-store mirror of the index artifacts.
type MirrorConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Endpoint  string `yaml:"endpoint" validate:"required_if=Enabled true"`
	Bucket    string `yaml:"bucket" validate:"required_if=Enabled true"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	UseSSL    bool   `yaml:"use_ssl"`
	Region    string `yaml:"region"`
	Prefix    string `yaml:"prefix"`
}

// AdminConfig guards the admin endpoints.
type AdminConfig struct {
	Password       string        `yaml:"password"`
	SessionTimeout time.Duration `yaml:"session_timeout" validate:"gt=0"`
}

// UploadConfig limits PDF uploads.
type UploadConfig struct {
	MaxFileSizeMB     int      `yaml:"max_file_size_mb" validate:"gt=0"`
	MaxFiles          int      `yaml:"max_files" validate:"gt=0"`
	AllowedExtensions []string `yaml:"allowed_extensions" validate:"min=1,dive,startswith=."`
}

// MaxFileSizeBytes returns the upload size limit in bytes.
func (u *UploadConfig) MaxFileSizeBytes() int64 {
	return int64(u.MaxFileSizeMB) << 20
}

// WatchConfig controls rebuilding when the PDF directory changes.
type WatchConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Debounce time.Duration `yaml:"debounce"`
}

// Load reads and parses the config file at path, applies defaults and
// environment overrides, expands paths, and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return finish(&cfg, filepath.Dir(path))
}

// Default returns the configuration used when no config file exists: defaults
// plus environment overrides, with relative paths resolved against baseDir.
func Default(baseDir string) (*Config, error) {
	return finish(&Config{}, baseDir)
}

func finish(cfg *Config, baseDir string) (*Config, error) {
	ApplyDefaults(cfg)
	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, baseDir)
	cfg.Storage.PDFDir = expandPath(cfg.Storage.PDFDir, baseDir)
	cfg.Storage.BackupDir = expandPath(cfg.Storage.BackupDir, baseDir)
	cfg.Storage.EmbeddingsDir = expandPath(cfg.Storage.EmbeddingsDir, baseDir)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks struct constraints.
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// expandPath converts a path to absolute. "~/" paths are relative to the home
// directory; other relative paths are relative to baseDir.
func expandPath(path string, baseDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	if abs, err := filepath.Abs(filepath.Join(baseDir, path)); err == nil {
		return abs
	}
	return filepath.Join(baseDir, path)
}
