package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the full application configuration.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Storage     StorageConfig     `yaml:"storage"`
	Workers     WorkersConfig     `yaml:"workers"`
	Chapters    ChaptersConfig    `yaml:"chapters"`
	Providers   ProvidersConfig   `yaml:"providers"`
	Gemini      GeminiConfig      `yaml:"gemini"`
	GoogleDrive GoogleDriveConfig `yaml:"google_drive"`
	Cleanup     CleanupConfig     `yaml:"cleanup"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type StorageConfig struct {
	TempDir   string `yaml:"temp_dir"`
	OutputDir string `yaml:"output_dir"`
	Database  string `yaml:"database"`
}

type WorkersConfig struct {
	MaxConcurrent int `yaml:"max_concurrent"`
}

type ChaptersConfig struct {
	DurationSeconds int `yaml:"duration_seconds"`
	TitleWords      int `yaml:"title_words"`
}

// ProvidersConfig holds the transcript acquisition knobs. The retry and
// timeout values are configuration rather than constants so deployments
// can tune them per provider quota.
type ProvidersConfig struct {
	Speech   SpeechConfig   `yaml:"speech"`
	Captions CaptionsConfig `yaml:"captions"`

	RequestTimeoutSeconds    int `yaml:"request_timeout_seconds"`
	TranscriptTimeoutSeconds int `yaml:"transcript_timeout_seconds"`
}

type SpeechConfig struct {
	Endpoint           string `yaml:"endpoint"`
	APIKey             string `yaml:"api_key"`
	Language           string `yaml:"language"`
	MaxAttempts        int    `yaml:"max_attempts"`
	BackoffBaseSeconds int    `yaml:"backoff_base_seconds"`
}

type CaptionsConfig struct {
	Endpoint  string   `yaml:"endpoint"`
	Languages []string `yaml:"languages"`
}

type GeminiConfig struct {
	APIKeys []string `yaml:"api_keys"`
	Model   string   `yaml:"model"`
}

type GoogleDriveConfig struct {
	CredentialsFile string `yaml:"credentials_file"`
	TokenFile       string `yaml:"token_file"`
	FolderName      string `yaml:"folder_name"`
}

type CleanupConfig struct {
	IntervalMinutes int `yaml:"interval_minutes"`
	MaxAgeHours     int `yaml:"max_age_hours"`
}

// Load reads and validates a YAML config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks required fields and fills defaults.
func (c *Config) Validate() error {
	if c.Providers.Speech.Endpoint == "" {
		return fmt.Errorf("providers.speech.endpoint is required")
	}
	if c.Storage.Database == "" {
		return fmt.Errorf("storage.database is required")
	}

	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Storage.TempDir == "" {
		c.Storage.TempDir = "temp"
	}
	if c.Storage.OutputDir == "" {
		c.Storage.OutputDir = "outputs"
	}
	if c.Workers.MaxConcurrent == 0 {
		c.Workers.MaxConcurrent = 4
	}
	if c.Chapters.DurationSeconds == 0 {
		c.Chapters.DurationSeconds = 120
	}
	if c.Chapters.TitleWords == 0 {
		c.Chapters.TitleWords = 6
	}
	if c.Providers.Speech.Language == "" {
		c.Providers.Speech.Language = "en"
	}
	if c.Providers.Speech.MaxAttempts == 0 {
		c.Providers.Speech.MaxAttempts = 3
	}
	if c.Providers.Speech.BackoffBaseSeconds == 0 {
		c.Providers.Speech.BackoffBaseSeconds = 1
	}
	if len(c.Providers.Captions.Languages) == 0 {
		c.Providers.Captions.Languages = []string{"en"}
	}
	if c.Providers.RequestTimeoutSeconds == 0 {
		c.Providers.RequestTimeoutSeconds = 60
	}
	if c.Providers.TranscriptTimeoutSeconds == 0 {
		c.Providers.TranscriptTimeoutSeconds = 300
	}
	if c.Gemini.Model == "" {
		c.Gemini.Model = "gemini-2.5-flash"
	}
	if c.Cleanup.IntervalMinutes == 0 {
		c.Cleanup.IntervalMinutes = 30
	}
	if c.Cleanup.MaxAgeHours == 0 {
		c.Cleanup.MaxAgeHours = 6
	}

	return nil
}
