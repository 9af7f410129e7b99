// Package config loads tablero settings from defaults, a YAML file, .env
// files and TABLERO_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// ============================================================================
// CONFIG - Server, datasets, assistant, redis and logging settings
// ============================================================================
// Precedence (highest first):
//   1. TABLERO_* environment variables (TABLERO_SERVER_ADDR → server.addr)
//   2. YAML config file
//   3. Defaults
// .env files are read before the environment provider runs, so their
// values behave like real environment variables.
// ============================================================================

const (
	envPrefix         = "TABLERO_"
	maxConfigFileSize = 1024 * 1024 // 1MB
)

// ErrInvalidConfig is wrapped by every Validate failure.
var ErrInvalidConfig = errors.New("invalid config")

// Config is the full tablero configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Datasets  DatasetsConfig  `koanf:"datasets"`
	Assistant AssistantConfig `koanf:"assistant"`
	Redis     RedisConfig     `koanf:"redis"`
	Log       LogConfig       `koanf:"log"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr            string        `koanf:"addr"`
	RateLimit       float64       `koanf:"rate_limit"` // assistant calls per second
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// DatasetsConfig holds the file paths of the two built-in datasets.
type DatasetsConfig struct {
	Students string `koanf:"students"`
	Cases    string `koanf:"cases"`
}

// AssistantConfig selects and configures the language-model provider.
type AssistantConfig struct {
	Provider  string        `koanf:"provider"` // "gemini", "anthropic", "mock"
	Model     string        `koanf:"model"`
	APIKey    string        `koanf:"api_key"`
	Timeout   time.Duration `koanf:"timeout"`
	CacheTTL  time.Duration `koanf:"cache_ttl"`
	MaxTokens int           `koanf:"max_tokens"`
	History   int           `koanf:"history"` // entries kept per session
}

// RedisConfig configures the optional reply cache.
type RedisConfig struct {
	Enabled  bool   `koanf:"enabled"`
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level  string `koanf:"level"`  // debug, info, warn, error
	Format string `koanf:"format"` // json, console
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			RateLimit:       1,
			ShutdownTimeout: 10 * time.Second,
		},
		Datasets: DatasetsConfig{
			Students: "data/estudiantes.csv",
			Cases:    "data/procesos.csv",
		},
		Assistant: AssistantConfig{
			Provider:  "gemini",
			Model:     "gemini-1.5-flash",
			Timeout:   30 * time.Second,
			CacheTTL:  time.Hour,
			MaxTokens: 2048,
			History:   20,
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load builds the configuration. An empty path skips the YAML file; a path
// that does not exist is an error. envFiles are optional .env files; missing
// ones are ignored.
func Load(path string, envFiles ...string) (*Config, error) {
	for _, f := range envFiles {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return nil, fmt.Errorf("failed to load env file %s: %w", f, err)
		}
	}

	k := koanf.New(".")

	if path != "" {
		content, err := readConfigFile(path)
		if err != nil {
			return nil, err
		}
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	// TABLERO_ASSISTANT_API_KEY -> assistant.api_key
	if err := k.Load(env.Provider(envPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyProviderKeys(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// envKey maps SECTION_FIELD_NAME to section.field_name.
func envKey(s string) string {
	lower := strings.ToLower(strings.TrimPrefix(s, envPrefix))
	parts := strings.SplitN(lower, "_", 2)
	if len(parts) == 1 {
		return lower
	}
	return parts[0] + "." + parts[1]
}

func readConfigFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if info.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigFileSize)
	}

	content, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return content, nil
}

// applyProviderKeys falls back to the provider's conventional variable
// when no TABLERO_ASSISTANT_API_KEY was given.
func applyProviderKeys(cfg *Config) {
	if cfg.Assistant.APIKey != "" {
		return
	}
	switch cfg.Assistant.Provider {
	case "gemini":
		cfg.Assistant.APIKey = os.Getenv("GEMINI_API_KEY")
	case "anthropic":
		cfg.Assistant.APIKey = os.Getenv("ANTHROPIC_API_KEY")
	}
}

// Validate checks the configuration for values no component can work with.
func (c *Config) Validate() error {
	if c.Datasets.Students == "" {
		return fmt.Errorf("%w: datasets.students is empty", ErrInvalidConfig)
	}
	if c.Datasets.Cases == "" {
		return fmt.Errorf("%w: datasets.cases is empty", ErrInvalidConfig)
	}
	switch c.Assistant.Provider {
	case "gemini", "anthropic", "mock":
	default:
		return fmt.Errorf("%w: unknown assistant.provider %q", ErrInvalidConfig, c.Assistant.Provider)
	}
	if c.Assistant.Timeout <= 0 {
		return fmt.Errorf("%w: assistant.timeout must be positive", ErrInvalidConfig)
	}
	if c.Server.RateLimit < 0 {
		return fmt.Errorf("%w: server.rate_limit must not be negative", ErrInvalidConfig)
	}
	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("%w: redis.addr is required when redis is enabled", ErrInvalidConfig)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("%w: unknown log.format %q", ErrInvalidConfig, c.Log.Format)
	}
	return nil
}
