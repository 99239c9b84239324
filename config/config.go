// Package config provides configuration management for the coachsync tool.
// It supports loading configuration from YAML files and environment
// variables; overrides are applied once at load time, never mid-run.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ridgelineco/coachsync/pkg/db"
)

// Default configuration values.
const (
	DefaultConfigDir  = ".coachsync"
	DefaultConfigFile = "config.yaml"
	DefaultSyncDelay  = 30 * time.Second
	DefaultListLimit  = 50
	DefaultServeAddr  = ":8087"
)

// CredentialConfig is one provider API credential.
type CredentialConfig struct {
	// Label identifies the credential in logs and reports.
	Label string `yaml:"label"`

	// APIKey is the provider bearer token. It may be left empty in the
	// file and supplied from the encrypted credential store instead.
	APIKey string `yaml:"api_key,omitempty"`

	// OwnerCoachID attributes otherwise-unmatched transcripts fetched
	// under this credential to a coach.
	OwnerCoachID string `yaml:"owner_coach_id,omitempty"`
}

// ProviderConfig holds transcription-provider settings.
type ProviderConfig struct {
	// APIURL is the provider's GraphQL endpoint; empty uses the default.
	APIURL string `yaml:"api_url,omitempty"`

	// WebhookSecret signs inbound webhook deliveries.
	WebhookSecret string `yaml:"webhook_secret,omitempty"`

	// Credentials are walked in order by the sync scheduler.
	Credentials []CredentialConfig `yaml:"credentials"`
}

// RedisConfig holds event-bus connection settings.
type RedisConfig struct {
	Host     string `yaml:"host,omitempty"`
	Port     int    `yaml:"port,omitempty"`
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db,omitempty"`
}

// Enabled reports whether Redis publishing is configured.
func (c *RedisConfig) Enabled() bool {
	return c != nil && c.Host != ""
}

// EmbeddingConfig holds embedding-service settings.
type EmbeddingConfig struct {
	APIURL string `yaml:"api_url,omitempty"`
	APIKey string `yaml:"api_key,omitempty"`
	Model  string `yaml:"model,omitempty"`
}

// SyncConfig holds scheduler and chunker tuning.
type SyncConfig struct {
	// Delay is the pause between credentials during a run.
	Delay time.Duration `yaml:"-"`

	// ListLimit caps per-credential transcript discovery.
	ListLimit int `yaml:"list_limit,omitempty"`

	ChunkSize    int `yaml:"chunk_size,omitempty"`
	ChunkOverlap int `yaml:"chunk_overlap,omitempty"`
}

// NotificationsConfig holds chat-ops forwarding settings.
type NotificationsConfig struct {
	// ChatWebhookURL receives fire-and-forget pipeline notifications.
	ChatWebhookURL string `yaml:"chat_webhook_url,omitempty"`
}

// Config is the full coachsync configuration.
type Config struct {
	// Database holds Postgres connection settings.
	Database db.Config `yaml:"database"`

	Provider      ProviderConfig      `yaml:"provider"`
	Redis         RedisConfig         `yaml:"redis"`
	Embedding     EmbeddingConfig     `yaml:"embedding"`
	Sync          SyncConfig          `yaml:"sync"`
	Notifications NotificationsConfig `yaml:"notifications"`

	// ServeAddr is the webhook listener bind address.
	ServeAddr string `yaml:"serve_addr,omitempty"`

	// Debug enables verbose debug logging.
	Debug bool `yaml:"debug,omitempty"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Database:  *db.DefaultConfig(),
		Sync:      SyncConfig{Delay: DefaultSyncDelay, ListLimit: DefaultListLimit},
		ServeAddr: DefaultServeAddr,
	}
}

// ConfigDir returns the configuration directory path.
// Uses $COACHSYNC_CONFIG_DIR if set, otherwise ~/.coachsync
func ConfigDir() (string, error) {
	if dir := os.Getenv("COACHSYNC_CONFIG_DIR"); dir != "" {
		return dir, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}

	return filepath.Join(home, DefaultConfigDir), nil
}

// ConfigPath returns the full path to the configuration file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, DefaultConfigFile), nil
}

// LoadConfig loads the configuration.
// Sources are applied in order (later overrides earlier):
// 1. Default values
// 2. Config file (~/.coachsync/config.yaml or $COACHSYNC_CONFIG_DIR/config.yaml)
// 3. COACHSYNC_* environment variables
func LoadConfig() (*Config, error) {
	cfg := DefaultConfig()

	configPath, err := ConfigPath()
	if err != nil {
		return nil, fmt.Errorf("getting config path: %w", err)
	}

	if _, err := os.Stat(configPath); err == nil {
		if err := loadFromFile(cfg, configPath); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}

	loadFromEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// fileConfig mirrors Config with the sync delay as a duration string.
type fileConfig struct {
	Database      db.Config           `yaml:"database"`
	Provider      ProviderConfig      `yaml:"provider"`
	Redis         RedisConfig         `yaml:"redis"`
	Embedding     EmbeddingConfig     `yaml:"embedding"`
	Sync          struct {
		Delay        string `yaml:"delay"`
		ListLimit    int    `yaml:"list_limit"`
		ChunkSize    int    `yaml:"chunk_size"`
		ChunkOverlap int    `yaml:"chunk_overlap"`
	} `yaml:"sync"`
	Notifications NotificationsConfig `yaml:"notifications"`
	ServeAddr     string              `yaml:"serve_addr"`
	Debug         bool                `yaml:"debug"`
}

// loadFromFile loads configuration from a YAML file.
func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}

	var fc fileConfig
	fc.Database = cfg.Database
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}

	cfg.Database = fc.Database
	cfg.Provider = fc.Provider
	cfg.Redis = fc.Redis
	cfg.Embedding = fc.Embedding
	cfg.Notifications = fc.Notifications
	cfg.Debug = fc.Debug

	if fc.ServeAddr != "" {
		cfg.ServeAddr = fc.ServeAddr
	}
	if fc.Sync.Delay != "" {
		delay, err := time.ParseDuration(fc.Sync.Delay)
		if err != nil {
			return fmt.Errorf("parsing sync delay: %w", err)
		}
		cfg.Sync.Delay = delay
	}
	if fc.Sync.ListLimit > 0 {
		cfg.Sync.ListLimit = fc.Sync.ListLimit
	}
	cfg.Sync.ChunkSize = fc.Sync.ChunkSize
	cfg.Sync.ChunkOverlap = fc.Sync.ChunkOverlap

	return nil
}

// loadFromEnv overlays environment variables onto the configuration.
func loadFromEnv(cfg *Config) {
	if v := os.Getenv("COACHSYNC_DB_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("COACHSYNC_DB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Database.Port = port
		}
	}
	if v := os.Getenv("COACHSYNC_DB_NAME"); v != "" {
		cfg.Database.Database = v
	}
	if v := os.Getenv("COACHSYNC_DB_USER"); v != "" {
		cfg.Database.User = v
	}
	if v := os.Getenv("COACHSYNC_DB_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("COACHSYNC_DB_SSLMODE"); v != "" {
		cfg.Database.SSLMode = v
	}

	if v := os.Getenv("COACHSYNC_PROVIDER_API_URL"); v != "" {
		cfg.Provider.APIURL = v
	}
	if v := os.Getenv("COACHSYNC_WEBHOOK_SECRET"); v != "" {
		cfg.Provider.WebhookSecret = v
	}

	if v := os.Getenv("COACHSYNC_REDIS_HOST"); v != "" {
		cfg.Redis.Host = v
	}
	if v := os.Getenv("COACHSYNC_REDIS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Redis.Port = port
		}
	}
	if v := os.Getenv("COACHSYNC_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}

	if v := os.Getenv("COACHSYNC_EMBEDDING_API_URL"); v != "" {
		cfg.Embedding.APIURL = v
	}
	if v := os.Getenv("COACHSYNC_EMBEDDING_API_KEY"); v != "" {
		cfg.Embedding.APIKey = v
	}
	if v := os.Getenv("COACHSYNC_EMBEDDING_MODEL"); v != "" {
		cfg.Embedding.Model = v
	}

	if v := os.Getenv("COACHSYNC_CHAT_WEBHOOK_URL"); v != "" {
		cfg.Notifications.ChatWebhookURL = v
	}

	if v := os.Getenv("COACHSYNC_SYNC_DELAY"); v != "" {
		if delay, err := time.ParseDuration(v); err == nil {
			cfg.Sync.Delay = delay
		}
	}

	if v := os.Getenv("COACHSYNC_SERVE_ADDR"); v != "" {
		cfg.ServeAddr = v
	}

	if v := os.Getenv("COACHSYNC_DEBUG"); v == "true" || v == "1" {
		cfg.Debug = true
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if err := c.Database.Validate(); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if c.Sync.Delay < 0 {
		return fmt.Errorf("sync delay must not be negative")
	}
	if c.Sync.ListLimit < 0 {
		return fmt.Errorf("sync list_limit must not be negative")
	}
	if c.Sync.ChunkSize < 0 || c.Sync.ChunkOverlap < 0 {
		return fmt.Errorf("chunk sizes must not be negative")
	}
	if c.Sync.ChunkSize > 0 && c.Sync.ChunkOverlap >= c.Sync.ChunkSize {
		return fmt.Errorf("chunk_overlap must be smaller than chunk_size")
	}

	seen := make(map[string]bool)
	for i, cred := range c.Provider.Credentials {
		if cred.Label == "" {
			return fmt.Errorf("provider credential %d missing label", i)
		}
		if seen[cred.Label] {
			return fmt.Errorf("duplicate provider credential label %q", cred.Label)
		}
		seen[cred.Label] = true
	}

	return nil
}

// SaveConfig saves the configuration to the config file.
func SaveConfig(cfg *Config) error {
	configDir, err := ConfigDir()
	if err != nil {
		return fmt.Errorf("getting config directory: %w", err)
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	var fc fileConfig
	fc.Database = cfg.Database
	fc.Provider = cfg.Provider
	fc.Redis = cfg.Redis
	fc.Embedding = cfg.Embedding
	fc.Notifications = cfg.Notifications
	fc.ServeAddr = cfg.ServeAddr
	fc.Debug = cfg.Debug
	fc.Sync.Delay = cfg.Sync.Delay.String()
	fc.Sync.ListLimit = cfg.Sync.ListLimit
	fc.Sync.ChunkSize = cfg.Sync.ChunkSize
	fc.Sync.ChunkOverlap = cfg.Sync.ChunkOverlap

	data, err := yaml.Marshal(&fc)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	configPath := filepath.Join(configDir, DefaultConfigFile)
	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// EnsureConfigDir creates the configuration directory if it doesn't exist.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0700)
}
