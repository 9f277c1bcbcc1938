// ABOUTME: Configuration loading and parsing for taskmill
// ABOUTME: Supports YAML files with environment variable expansion and duration parsing

package config

import (
	"encoding/base64"
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete taskmill configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	Secrets  SecretsConfig  `yaml:"secrets"`
	Google   GoogleConfig   `yaml:"google"`
	Mistral  MistralConfig  `yaml:"mistral"`
	Polling  PollingConfig  `yaml:"polling"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig holds HTTP server address configuration
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// AuthConfig holds API authentication configuration
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
}

// SecretsConfig holds the key used to encrypt provider tokens at rest.
// The key is base64-encoded and must decode to exactly 32 bytes.
type SecretsConfig struct {
	EncryptionKey string `yaml:"encryption_key"`
}

// GoogleConfig holds Google OAuth client configuration
type GoogleConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	RedirectURL  string `yaml:"redirect_url"`
}

// MistralConfig holds the language-model service configuration
type MistralConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

// PollingConfig holds mailbox polling configuration
type PollingConfig struct {
	Interval     time.Duration `yaml:"-"`
	MessageLimit int           `yaml:"message_limit"`

	// Raw string value for YAML unmarshaling
	IntervalRaw string `yaml:"interval"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Defaults applied when the config file leaves fields unset.
const (
	DefaultPollInterval = 10 * time.Second
	DefaultMessageLimit = 50
	DefaultMistralModel = "mistral-large-latest"
)

// Load reads a configuration file from the given path and returns a parsed Config.
// Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the raw YAML content
	expandedData := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

func (c *Config) applyDefaults() {
	if c.Polling.Interval == 0 {
		c.Polling.Interval = DefaultPollInterval
	}
	if c.Polling.MessageLimit == 0 {
		c.Polling.MessageLimit = DefaultMessageLimit
	}
	if c.Mistral.Model == "" {
		c.Mistral.Model = DefaultMistralModel
	}
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
// Missing credentials or an unusable encryption key are startup-fatal:
// the polling pipeline must never run with tokens it cannot decrypt.
func (c *Config) Validate() error {
	if c.Server.HTTPAddr == "" {
		return fmt.Errorf("server.http_addr is required")
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}

	if c.Secrets.EncryptionKey == "" {
		return fmt.Errorf("secrets.encryption_key is required")
	}
	if _, err := c.EncryptionKey(); err != nil {
		return err
	}

	if c.Google.ClientID == "" {
		return fmt.Errorf("google.client_id is required")
	}
	if c.Google.ClientSecret == "" {
		return fmt.Errorf("google.client_secret is required")
	}
	if c.Google.RedirectURL == "" {
		return fmt.Errorf("google.redirect_url is required")
	}

	if c.Mistral.APIKey == "" {
		return fmt.Errorf("mistral.api_key is required")
	}

	return nil
}

// EncryptionKey decodes the base64 token-encryption key into its raw 32 bytes.
func (c *Config) EncryptionKey() ([32]byte, error) {
	var key [32]byte

	raw, err := base64.StdEncoding.DecodeString(c.Secrets.EncryptionKey)
	if err != nil {
		return key, fmt.Errorf("decoding secrets.encryption_key: %w", err)
	}
	if len(raw) != 32 {
		return key, fmt.Errorf("secrets.encryption_key must decode to 32 bytes, got %d", len(raw))
	}

	copy(key[:], raw)
	return key, nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	var err error

	if cfg.Polling.IntervalRaw != "" {
		cfg.Polling.Interval, err = time.ParseDuration(cfg.Polling.IntervalRaw)
		if err != nil {
			return fmt.Errorf("parsing polling.interval %q: %w", cfg.Polling.IntervalRaw, err)
		}
	}

	return nil
}
