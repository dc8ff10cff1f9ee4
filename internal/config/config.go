package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Defaults DefaultsConfig `yaml:"defaults"`
	Paths    PathsConfig    `yaml:"paths"`
	Whisper  WhisperConfig  `yaml:"whisper"`
	Network  NetworkConfig  `yaml:"network"`
	Audio    AudioConfig    `yaml:"audio"`
	YouTube  YouTubeConfig  `yaml:"youtube"`
	Results  ResultsConfig  `yaml:"results"`
}

// DefaultsConfig holds default values
type DefaultsConfig struct {
	Model    string `yaml:"model"`
	Language string `yaml:"language"`
	Format   string `yaml:"format"`
	CacheTTL string `yaml:"cache_ttl"`
}

// PathsConfig holds custom path overrides
type PathsConfig struct {
	YtDlp   string `yaml:"yt_dlp"`
	FFmpeg  string `yaml:"ffmpeg"`
	Whisper string `yaml:"whisper"`
}

// WhisperConfig controls how the speech model runs
type WhisperConfig struct {
	Mode             string `yaml:"mode"` // cli or server
	Threads          int    `yaml:"threads"`
	InferenceTimeout string `yaml:"inference_timeout"`
}

// NetworkConfig bounds outbound calls
type NetworkConfig struct {
	Timeout           string  `yaml:"timeout"`
	DownloadTimeout   string  `yaml:"download_timeout"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
}

// AudioConfig controls downloaded audio retention
type AudioConfig struct {
	Keep bool `yaml:"keep"`
}

// YouTubeConfig controls URL parsing
type YouTubeConfig struct {
	AlternateURLForms bool `yaml:"alternate_url_forms"`
}

// ResultsConfig sizes the in-process result cache (0 disables it)
type ResultsConfig struct {
	Size int    `yaml:"size"`
	TTL  string `yaml:"ttl"`
}

// DefaultConfig returns configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Defaults: DefaultsConfig{
			Model:    "small",
			Language: "en",
			Format:   "text",
			CacheTTL: "7d",
		},
		Whisper: WhisperConfig{
			Mode:             "cli",
			InferenceTimeout: "2h",
		},
		Network: NetworkConfig{
			Timeout:           "30s",
			DownloadTimeout:   "30m",
			RequestsPerSecond: 2,
		},
		Audio: AudioConfig{
			Keep: true,
		},
		Results: ResultsConfig{
			Size: 128,
			TTL:  "1h",
		},
	}
}

// AppDir returns the application directory (~/.yt2text)
func AppDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".yt2text"
	}
	return filepath.Join(home, ".yt2text")
}

// ModelsDir returns the models directory
func ModelsDir() string {
	return filepath.Join(AppDir(), "models")
}

// CacheDir returns the audio cache directory
func CacheDir() string {
	return filepath.Join(AppDir(), "cache")
}

// BinDir returns the bin directory
func BinDir() string {
	return filepath.Join(AppDir(), "bin")
}

// ConfigPath returns the config file path
func ConfigPath() string {
	return filepath.Join(AppDir(), "config.yaml")
}

// EnsureDirs creates all required directories
func EnsureDirs() error {
	dirs := []string{AppDir(), ModelsDir(), CacheDir(), BinDir()}
	for _, dir := range dirs {
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
		return nil, err
	}

	return cfg, nil
}

// LoadDefault loads config from default path
func LoadDefault() (*Config, error) {
	return Load(ConfigPath())
}

// Save writes config to file
func (c *Config) Save(path string) error {
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

// Validate checks enumerated values and duration strings
func (c *Config) Validate() error {
	switch c.Whisper.Mode {
	case "cli", "server":
	default:
		return fmt.Errorf("invalid whisper.mode %q (use cli or server)", c.Whisper.Mode)
	}

	durations := map[string]string{
		"defaults.cache_ttl":        c.Defaults.CacheTTL,
		"whisper.inference_timeout": c.Whisper.InferenceTimeout,
		"network.timeout":           c.Network.Timeout,
		"network.download_timeout":  c.Network.DownloadTimeout,
		"results.ttl":               c.Results.TTL,
	}
	for key, value := range durations {
		if value == "" {
			continue
		}
		if _, err := ParseDuration(value); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
	}

	if c.Network.RequestsPerSecond < 0 {
		return fmt.Errorf("network.requests_per_second must not be negative")
	}
	return nil
}

// GetCacheTTL returns the cache TTL as a duration
func (c *Config) GetCacheTTL() (time.Duration, error) {
	return ParseDuration(c.Defaults.CacheTTL)
}

// NetworkTimeout returns the per-request timeout, zero if unset
func (c *Config) NetworkTimeout() time.Duration {
	return parseOrZero(c.Network.Timeout)
}

// DownloadTimeout returns the audio download timeout, zero if unset
func (c *Config) DownloadTimeout() time.Duration {
	return parseOrZero(c.Network.DownloadTimeout)
}

// InferenceTimeout returns the speech model timeout, zero if unset
func (c *Config) InferenceTimeout() time.Duration {
	return parseOrZero(c.Whisper.InferenceTimeout)
}

// ResultsTTL returns the result cache TTL, zero if unset
func (c *Config) ResultsTTL() time.Duration {
	return parseOrZero(c.Results.TTL)
}

func parseOrZero(s string) time.Duration {
	if s == "" {
		return 0
	}
	d, err := ParseDuration(s)
	if err != nil {
		return 0
	}
	return d
}

var durationPattern = regexp.MustCompile(`^(\d+)(s|m|h|d)$`)

// ParseDuration parses duration strings like "30s", "10m", "24h", "7d"
func ParseDuration(s string) (time.Duration, error) {
	matches := durationPattern.FindStringSubmatch(s)
	if len(matches) != 3 {
		return 0, fmt.Errorf("invalid duration format: %s (use format like 30s, 10m, 24h, 7d)", s)
	}

	value, _ := strconv.Atoi(matches[1])
	unit := matches[2]

	switch unit {
	case "s":
		return time.Duration(value) * time.Second, nil
	case "m":
		return time.Duration(value) * time.Minute, nil
	case "h":
		return time.Duration(value) * time.Hour, nil
	case "d":
		return time.Duration(value) * 24 * time.Hour, nil
	default:
		return 0, fmt.Errorf("unknown duration unit: %s", unit)
	}
}
