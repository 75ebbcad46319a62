package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/menta2k/pond-analyzer/internal/utils"
	"github.com/menta2k/pond-analyzer/pkg/media"
)

// Config holds the application configuration
type Config struct {
	Model     ModelConfig     `json:"model"`
	Sampler   SamplerConfig   `json:"sampler"`
	Analysis  AnalysisConfig  `json:"analysis"`
	Economics EconomicsConfig `json:"economics"`
	Storage   StorageConfig   `json:"storage"`
	Review    ReviewConfig    `json:"review"`
}

// ModelConfig locates the activity model weights. An empty path runs the
// fallback predictor.
type ModelConfig struct {
	WeightsPath string `json:"weights_path"`
}

// SamplerConfig holds configuration for frame sampling
type SamplerConfig struct {
	MaxFrames       int      `json:"max_frames"`
	VideoExtensions []string `json:"video_extensions"`
	FFmpegPath      string   `json:"ffmpeg_path"`
	FFprobePath     string   `json:"ffprobe_path"`
}

// AnalysisConfig holds configuration for the analysis pipeline
type AnalysisConfig struct {
	MaxConcurrentAnalyses  int     `json:"max_concurrent_analyses"`
	MinConfidenceThreshold float64 `json:"min_confidence_threshold"`
	RequestTimeoutSeconds  int     `json:"request_timeout_seconds"`
	Seed                   uint64  `json:"seed"`
}

// EconomicsConfig holds pricing used by feed recommendations
type EconomicsConfig struct {
	DefaultFeedCost float64 `json:"default_feed_cost"`
}

// StorageConfig holds upload gating, cleanup and database settings
type StorageConfig struct {
	DatabasePath         string   `json:"database_path"`
	UploadDir            string   `json:"upload_dir"`
	MaxFileSize          int64    `json:"max_file_size"`
	AllowedExtensions    []string `json:"allowed_extensions"`
	CleanupIntervalHours int      `json:"cleanup_interval_hours"`
}

// ReviewConfig selects the optional second-opinion backend
type ReviewConfig struct {
	Backend string `json:"backend"`
	URL     string `json:"url"`
	Model   string `json:"model"`
}

// Default returns a configuration with default values
func Default() *Config {
	return &Config{
		Sampler: SamplerConfig{
			MaxFrames:       media.DefaultMaxFrames,
			VideoExtensions: slices.Clone(media.DefaultVideoExtensions),
		},
		Analysis: AnalysisConfig{
			MaxConcurrentAnalyses:  5,
			MinConfidenceThreshold: 0.7,
		},
		Economics: EconomicsConfig{
			DefaultFeedCost: 4.50,
		},
		Storage: StorageConfig{
			DatabasePath:         "./pond.db",
			UploadDir:            "./uploads",
			MaxFileSize:          utils.DefaultMaxFileSize,
			AllowedExtensions:    slices.Clone(utils.DefaultAllowedExtensions),
			CleanupIntervalHours: 24,
		},
	}
}

// LoadFromFile loads configuration from a JSON file. Keys missing from the
// file keep their default values.
func LoadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a JSON file
func (c *Config) SaveToFile(filename string) error {
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ApplyEnv overrides fields from environment variables. Call after loading
// a .env file so its values are visible.
func (c *Config) ApplyEnv() error {
	if v, ok := lookup("MODEL_WEIGHTS"); ok {
		c.Model.WeightsPath = v
	}
	if err := envInt("MAX_CONCURRENT", &c.Analysis.MaxConcurrentAnalyses); err != nil {
		return err
	}
	if err := envFloat("MIN_CONFIDENCE", &c.Analysis.MinConfidenceThreshold); err != nil {
		return err
	}
	if err := envFloat("DEFAULT_FEED_COST", &c.Economics.DefaultFeedCost); err != nil {
		return err
	}
	if v, ok := lookup("UPLOAD_DIR"); ok {
		c.Storage.UploadDir = v
	}
	if v, ok := lookup("MAX_FILE_SIZE"); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("MAX_FILE_SIZE: %w", err)
		}
		c.Storage.MaxFileSize = n
	}
	if err := envInt("CLEANUP_INTERVAL_HOURS", &c.Storage.CleanupIntervalHours); err != nil {
		return err
	}
	if v, ok := lookup("DATABASE_PATH"); ok {
		c.Storage.DatabasePath = v
	}
	if v, ok := lookup("REVIEW_BACKEND"); ok {
		c.Review.Backend = strings.ToLower(v)
	}
	if v, ok := lookup("REVIEW_URL"); ok {
		c.Review.URL = v
	}
	if v, ok := lookup("REVIEW_MODEL"); ok {
		c.Review.Model = v
	}
	return nil
}

func lookup(key string) (string, bool) {
	v := strings.TrimSpace(utils.GetEnv(key, ""))
	return v, v != ""
}

func envInt(key string, dst *int) error {
	v, ok := lookup(key)
	if !ok {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}

func envFloat(key string, dst *float64) error {
	v, ok := lookup(key)
	if !ok {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = f
	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Sampler.MaxFrames < 1 {
		return fmt.Errorf("sampler.max_frames must be positive")
	}

	if c.Analysis.MaxConcurrentAnalyses < 1 {
		return fmt.Errorf("analysis.max_concurrent_analyses must be positive")
	}

	if c.Analysis.MinConfidenceThreshold < 0 || c.Analysis.MinConfidenceThreshold > 1 {
		return fmt.Errorf("analysis.min_confidence_threshold must be between 0 and 1")
	}

	if c.Analysis.RequestTimeoutSeconds < 0 {
		return fmt.Errorf("analysis.request_timeout_seconds cannot be negative")
	}

	if c.Economics.DefaultFeedCost <= 0 {
		return fmt.Errorf("economics.default_feed_cost must be positive")
	}

	if c.Storage.MaxFileSize < 1 {
		return fmt.Errorf("storage.max_file_size must be positive")
	}

	if len(c.Storage.AllowedExtensions) == 0 {
		return fmt.Errorf("storage.allowed_extensions cannot be empty")
	}

	if c.Storage.CleanupIntervalHours < 1 {
		return fmt.Errorf("storage.cleanup_interval_hours must be positive")
	}

	switch c.Review.Backend {
	case "", "ollama", "llamacpp":
	default:
		return fmt.Errorf("review.backend must be one of ollama, llamacpp or empty, got %q", c.Review.Backend)
	}

	return nil
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./config.json"
	}
	return filepath.Join(home, ".config", "pond-analyzer", "config.json")
}
