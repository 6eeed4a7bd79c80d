package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	_ "time/tzdata"

	"gopkg.in/yaml.v3"

	"github.com/runnerr0/tvguide/internal/backend"
)

// Default config file path.
const DefaultConfigPath = "~/.config/tvguide/config.yaml"

// ErrUnknownBackend is returned by Validate for an unknown backend name.
var ErrUnknownBackend = errors.New("unknown backend")

// Config holds all tvguide configuration.
type Config struct {
	Backend     string            `yaml:"backend"`
	Storage     StorageConfig     `yaml:"storage"`
	Fetch       FetchConfig       `yaml:"fetch"`
	HTML        HTMLConfig        `yaml:"html"`
	XMLTVFile   XMLTVFileConfig   `yaml:"xmltv_file"`
	XMLTVRemote XMLTVRemoteConfig `yaml:"xmltv_remote"`
	Images      ImagesConfig      `yaml:"images"`
	Logging     LoggingConfig     `yaml:"logging"`
}

type StorageConfig struct {
	Path          string `yaml:"path"`
	SQLiteFile    string `yaml:"sqlite_file"`
	RetentionDays int    `yaml:"retention_days"`
	MaxFutureDays int    `yaml:"max_future_days"`
}

type FetchConfig struct {
	UserAgent     string        `yaml:"user_agent"`
	Timeout       time.Duration `yaml:"timeout"`
	MaxRedirects  int           `yaml:"max_redirects"`
	AllowInsecure bool          `yaml:"allow_insecure"`
	MaxBytes      int64         `yaml:"max_bytes"`
}

type HTMLConfig struct {
	BaseURL  string `yaml:"base_url"`
	CDNURL   string `yaml:"cdn_url"`
	Timezone string `yaml:"timezone"`
}

type XMLTVFileConfig struct {
	Path string `yaml:"path"`
}

type XMLTVRemoteConfig struct {
	BaseURL string `yaml:"base_url"`
}

type ImagesConfig struct {
	// CacheDir is relative to Storage.Path unless absolute.
	CacheDir string `yaml:"cache_dir"`
	// RedisURL selects the Redis image cache when set.
	RedisURL string `yaml:"redis_url"`
	TTLHours int    `yaml:"ttl_hours"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	// File receives the log instead of stderr when set.
	File string `yaml:"file"`
}

// Load reads a YAML config file at path and merges it with defaults.
// Returns an error if the file cannot be read or contains invalid YAML.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	return cfg, nil
}

// ExpandPath replaces a leading ~ with the user's home directory.
func ExpandPath(path string) (string, error) {
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolving home directory: %w", err)
		}
		return filepath.Join(home, path[1:]), nil
	}
	return path, nil
}

// LoadOrCreate loads the config from the default path. If the file does
// not exist, it creates the directory structure and writes defaults.
func LoadOrCreate() (*Config, error) {
	path, err := ExpandPath(DefaultConfigPath)
	if err != nil {
		return nil, err
	}
	return LoadOrCreateAt(path)
}

// LoadOrCreateAt loads the config from the given path. If the file does
// not exist, it creates the directory structure and writes defaults.
func LoadOrCreateAt(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := DefaultConfig()

		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating config directory: %w", err)
		}

		data, err := yaml.Marshal(cfg)
		if err != nil {
			return nil, fmt.Errorf("marshaling default config: %w", err)
		}

		if err := os.WriteFile(path, data, 0644); err != nil {
			return nil, fmt.Errorf("writing default config: %w", err)
		}

		return cfg, nil
	}

	return Load(path)
}

// Environment overrides read by ApplyEnv.
const (
	EnvBackend   = "TVGUIDE_BACKEND"
	EnvDB        = "TVGUIDE_DB"
	EnvXMLTVFile = "TVGUIDE_XMLTV_FILE"
	EnvRedisURL  = "TVGUIDE_REDIS_URL"
	EnvLogLevel  = "TVGUIDE_LOG_LEVEL"
)

// ApplyEnv loads .env.local and .env, then overrides cfg from the
// TVGUIDE_* environment variables. TVGUIDE_DB is a full database path.
func (c *Config) ApplyEnv() {
	loadEnvFiles()

	if v := os.Getenv(EnvBackend); v != "" {
		c.Backend = v
	}
	if v := os.Getenv(EnvDB); v != "" {
		c.Storage.Path = filepath.Dir(v)
		c.Storage.SQLiteFile = filepath.Base(v)
	}
	if v := os.Getenv(EnvXMLTVFile); v != "" {
		c.XMLTVFile.Path = v
	}
	if v := os.Getenv(EnvRedisURL); v != "" {
		c.Images.RedisURL = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Logging.Level = v
	}
}

// BackendKind returns the configured backend.
func (c *Config) BackendKind() (backend.Kind, error) {
	k, err := backend.ParseKind(strings.TrimSpace(c.Backend))
	if err != nil {
		return "", fmt.Errorf("%w %q", ErrUnknownBackend, c.Backend)
	}
	return k, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	kind, err := c.BackendKind()
	if err != nil {
		return err
	}
	if kind == backend.KindXMLTVFile && c.XMLTVFile.Path == "" {
		return errors.New("xmltv_file.path is required for the xmltv-file backend")
	}
	if c.Storage.SQLiteFile == "" {
		return errors.New("storage.sqlite_file is required")
	}
	if c.Storage.RetentionDays < 0 || c.Storage.MaxFutureDays < 0 {
		return errors.New("storage retention and max future days must not be negative")
	}
	if c.Fetch.Timeout < 0 {
		return errors.New("fetch.timeout must not be negative")
	}
	if c.Fetch.MaxRedirects < 0 {
		return errors.New("fetch.max_redirects must not be negative")
	}
	if c.HTML.Timezone != "" {
		if _, err := time.LoadLocation(c.HTML.Timezone); err != nil {
			return fmt.Errorf("html.timezone: %w", err)
		}
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("logging.format %q: want text or json", c.Logging.Format)
	}
	return nil
}

// DBPath returns the expanded database path.
func (c *Config) DBPath() (string, error) {
	dir, err := ExpandPath(c.Storage.Path)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, c.Storage.SQLiteFile), nil
}

// ImageCacheDir returns the expanded image cache directory.
func (c *Config) ImageCacheDir() (string, error) {
	dir, err := ExpandPath(c.Images.CacheDir)
	if err != nil {
		return "", err
	}
	if filepath.IsAbs(dir) {
		return dir, nil
	}
	base, err := ExpandPath(c.Storage.Path)
	if err != nil {
		return "", err
	}
	return filepath.Join(base, dir), nil
}

// Retention returns how long stopped programs are kept.
func (c *Config) Retention() time.Duration {
	return time.Duration(c.Storage.RetentionDays) * 24 * time.Hour
}

// MaxFuture returns how far ahead programs are kept.
func (c *Config) MaxFuture() time.Duration {
	return time.Duration(c.Storage.MaxFutureDays) * 24 * time.Hour
}

// ImageTTL returns the Redis image cache expiry; zero keeps images.
func (c *Config) ImageTTL() time.Duration {
	return time.Duration(c.Images.TTLHours) * time.Hour
}
