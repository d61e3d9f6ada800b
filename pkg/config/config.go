package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for igfetch
type Config struct {
	// Instagram session and API settings
	Instagram InstagramConfig `yaml:"instagram" json:"instagram"`

	// Outgoing HTTP settings
	HTTP HTTPConfig `yaml:"http" json:"http"`

	// Retry configuration for transient failures
	Retry RetryConfig `yaml:"retry" json:"retry"`

	// Client-side request throttling
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`

	// Where sessions are read from and persisted to
	SessionStore SessionStoreConfig `yaml:"session_store" json:"session_store"`

	// Thumbnail proxy references
	Stream StreamConfig `yaml:"stream" json:"stream"`

	// HTTP service mode
	Server ServerConfig `yaml:"server" json:"server"`

	// Output settings for downloads
	Output OutputConfig `yaml:"output" json:"output"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// InstagramConfig holds Instagram-specific configuration
type InstagramConfig struct {
	SessionID string        `yaml:"session_id" json:"session_id"`
	CSRFToken string        `yaml:"csrf_token" json:"csrf_token"`
	UserAgent string        `yaml:"user_agent" json:"user_agent"`
	BaseURL   string        `yaml:"base_url" json:"base_url"`
	TokenTTL  time.Duration `yaml:"token_ttl" json:"token_ttl"`
}

// HTTPConfig holds transport settings
type HTTPConfig struct {
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
}

// RetryConfig holds retry configuration
type RetryConfig struct {
	Enabled     bool          `yaml:"enabled" json:"enabled"`
	MaxAttempts int           `yaml:"max_attempts" json:"max_attempts"`
	BaseDelay   time.Duration `yaml:"base_delay" json:"base_delay"`
	MaxDelay    time.Duration `yaml:"max_delay" json:"max_delay"`
	Multiplier  float64       `yaml:"multiplier" json:"multiplier"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Enabled           bool   `yaml:"enabled" json:"enabled"`
	Strategy          string `yaml:"strategy" json:"strategy"`
	RequestsPerMinute int    `yaml:"requests_per_minute" json:"requests_per_minute"`
}

// SessionStoreConfig selects the session persistence backend
type SessionStoreConfig struct {
	Backend       string `yaml:"backend" json:"backend"`
	File          string `yaml:"file" json:"file"`
	RedisAddr     string `yaml:"redis_addr" json:"redis_addr"`
	RedisPassword string `yaml:"redis_password" json:"redis_password"`
	RedisDB       int    `yaml:"redis_db" json:"redis_db"`
}

// StreamConfig holds thumbnail proxy settings
type StreamConfig struct {
	Secret    string        `yaml:"secret" json:"secret"`
	PublicURL string        `yaml:"public_url" json:"public_url"`
	TTL       time.Duration `yaml:"ttl" json:"ttl"`
}

// ServerConfig holds settings for the HTTP service mode
type ServerConfig struct {
	Addr string `yaml:"addr" json:"addr"`
}

// OutputConfig holds output directory configuration
type OutputConfig struct {
	BaseDirectory       string `yaml:"base_directory" json:"base_directory"`
	ConcurrentDownloads int    `yaml:"concurrent_downloads" json:"concurrent_downloads"`
	OverwriteExisting   bool   `yaml:"overwrite_existing" json:"overwrite_existing"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// Session store backends
const (
	BackendAuto    = "auto"
	BackendKeyring = "keyring"
	BackendFile    = "file"
	BackendEnv     = "env"
	BackendRedis   = "redis"
	BackendMemory  = "memory"
)

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Instagram: InstagramConfig{
			UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/128.0.0.0 Safari/537.36",
			BaseURL:   "https://www.instagram.com",
			TokenTTL:  24 * time.Hour,
		},
		HTTP: HTTPConfig{
			Timeout: 30 * time.Second,
		},
		Retry: RetryConfig{
			Enabled:     true,
			MaxAttempts: 3,
			BaseDelay:   time.Second,
			MaxDelay:    10 * time.Second,
			Multiplier:  2.0,
		},
		RateLimit: RateLimitConfig{
			Enabled:           true,
			Strategy:          "token_bucket",
			RequestsPerMinute: 60,
		},
		SessionStore: SessionStoreConfig{
			Backend: BackendAuto,
		},
		Stream: StreamConfig{
			PublicURL: "http://localhost:9000",
			TTL:       90 * time.Second,
		},
		Server: ServerConfig{
			Addr: ":9000",
		},
		Output: OutputConfig{
			BaseDirectory:       "./downloads",
			ConcurrentDownloads: 3,
			OverwriteExisting:   false,
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	if sessionID := os.Getenv("IGFETCH_SESSION_ID"); sessionID != "" {
		c.Instagram.SessionID = sessionID
	}
	if csrfToken := os.Getenv("IGFETCH_CSRF_TOKEN"); csrfToken != "" {
		c.Instagram.CSRFToken = csrfToken
	}
	if userAgent := os.Getenv("IGFETCH_USER_AGENT"); userAgent != "" {
		c.Instagram.UserAgent = userAgent
	}
	if ttl := os.Getenv("IGFETCH_TOKEN_TTL"); ttl != "" {
		d, err := time.ParseDuration(ttl)
		if err != nil {
			return fmt.Errorf("invalid IGFETCH_TOKEN_TTL: %w", err)
		}
		c.Instagram.TokenTTL = d
	}

	if timeout := os.Getenv("IGFETCH_HTTP_TIMEOUT"); timeout != "" {
		d, err := time.ParseDuration(timeout)
		if err != nil {
			return fmt.Errorf("invalid IGFETCH_HTTP_TIMEOUT: %w", err)
		}
		c.HTTP.Timeout = d
	}

	if rpm := os.Getenv("IGFETCH_REQUESTS_PER_MINUTE"); rpm != "" {
		val, err := strconv.Atoi(rpm)
		if err != nil {
			return fmt.Errorf("invalid IGFETCH_REQUESTS_PER_MINUTE: %w", err)
		}
		if val > 0 {
			c.RateLimit.RequestsPerMinute = val
		}
	}

	if backend := os.Getenv("IGFETCH_SESSION_BACKEND"); backend != "" {
		c.SessionStore.Backend = strings.ToLower(backend)
	}
	if addr := os.Getenv("IGFETCH_REDIS_ADDR"); addr != "" {
		c.SessionStore.RedisAddr = addr
	}
	if password := os.Getenv("IGFETCH_REDIS_PASSWORD"); password != "" {
		c.SessionStore.RedisPassword = password
	}

	if secret := os.Getenv("IGFETCH_STREAM_SECRET"); secret != "" {
		c.Stream.Secret = secret
	}
	if publicURL := os.Getenv("IGFETCH_PUBLIC_URL"); publicURL != "" {
		c.Stream.PublicURL = publicURL
	}
	if addr := os.Getenv("IGFETCH_ADDR"); addr != "" {
		c.Server.Addr = addr
	}

	if outputDir := os.Getenv("IGFETCH_OUTPUT_DIR"); outputDir != "" {
		c.Output.BaseDirectory = outputDir
	}

	if logLevel := os.Getenv("IGFETCH_LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}

	return nil
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	home := os.Getenv("HOME")
	locations := []string{
		".igfetch.yaml",
		".igfetch.yml",
		filepath.Join(home, ".config", "igfetch", "config.yaml"),
		filepath.Join(home, ".config", "igfetch", "config.yml"),
		filepath.Join(home, ".igfetch.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.Instagram.BaseURL == "" {
		errs = append(errs, errors.New("instagram base URL is required"))
	}
	if c.Instagram.TokenTTL <= 0 {
		errs = append(errs, errors.New("token TTL must be positive"))
	}

	if c.HTTP.Timeout <= 0 {
		errs = append(errs, errors.New("HTTP timeout must be positive"))
	}

	if c.Retry.Enabled {
		if c.Retry.MaxAttempts <= 0 {
			errs = append(errs, errors.New("retry max attempts must be positive"))
		}
		if c.Retry.Multiplier < 1 {
			errs = append(errs, errors.New("retry multiplier must be at least 1"))
		}
	}

	if c.RateLimit.Enabled {
		if c.RateLimit.RequestsPerMinute <= 0 {
			errs = append(errs, errors.New("requests per minute must be positive"))
		}
		switch c.RateLimit.Strategy {
		case "token_bucket", "sliding_window":
		default:
			errs = append(errs, fmt.Errorf("unknown rate limit strategy: %s", c.RateLimit.Strategy))
		}
	}

	switch c.SessionStore.Backend {
	case BackendAuto, BackendKeyring, BackendFile, BackendEnv, BackendMemory:
	case BackendRedis:
		if c.SessionStore.RedisAddr == "" {
			errs = append(errs, errors.New("redis session backend requires redis_addr"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown session store backend: %s", c.SessionStore.Backend))
	}

	if c.Stream.TTL <= 0 {
		errs = append(errs, errors.New("stream TTL must be positive"))
	}

	if c.Output.ConcurrentDownloads <= 0 {
		errs = append(errs, errors.New("concurrent downloads must be positive"))
	}
	if c.Output.ConcurrentDownloads > 10 {
		errs = append(errs, errors.New("concurrent downloads should not exceed 10"))
	}
	if c.Output.BaseDirectory == "" {
		errs = append(errs, errors.New("output directory is required"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "disabled": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if sessionID, ok := flags["session-id"].(string); ok && sessionID != "" {
		c.Instagram.SessionID = sessionID
	}
	if csrfToken, ok := flags["csrf-token"].(string); ok && csrfToken != "" {
		c.Instagram.CSRFToken = csrfToken
	}
	if backend, ok := flags["session-backend"].(string); ok && backend != "" {
		c.SessionStore.Backend = backend
	}
	if outputDir, ok := flags["output"].(string); ok && outputDir != "" {
		c.Output.BaseDirectory = outputDir
	}
	if concurrent, ok := flags["concurrent"].(int); ok && concurrent > 0 {
		c.Output.ConcurrentDownloads = concurrent
	}
	if addr, ok := flags["addr"].(string); ok && addr != "" {
		c.Server.Addr = addr
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// Missing .env files are not an error
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".igfetch.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
