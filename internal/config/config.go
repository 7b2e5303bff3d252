// Package config loads runtime startup configuration from YAML.
package config

import (
	"bytes"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfigPath is used when --config is not provided.
	DefaultConfigPath = "config.yml"
	defaultPort       = 3000
	defaultEnv        = "development"
	defaultRedisHost  = "localhost"
	defaultRedisPort  = 6379
	defaultRedisDB    = 0
)

// AppConfig holds runtime startup configuration loaded from YAML.
type AppConfig struct {
	Port           int                `yaml:"port"`
	Env            string             `yaml:"env"` // "development" | "production"
	RedisURL       string             `yaml:"redis_url"`
	Redis          RedisRuntimeConfig `yaml:"redis"`
	AllowedOrigins []string           `yaml:"allowed_origins"`
	Gemini         GeminiConfig       `yaml:"gemini"`
}

type RedisRuntimeConfig struct {
	URL      string `yaml:"url"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	TLS      bool   `yaml:"tls"`
}

// GeminiConfig configures the text-generation gateway. APIKey is the
// process-default credential used when a request carries no room; rooms with
// their own key override it per request.
type GeminiConfig struct {
	APIKey         string `yaml:"api_key"`
	Endpoint       string `yaml:"endpoint"`
	Model          string `yaml:"model"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

func Load(configPath string) (*AppConfig, error) {
	path := strings.TrimSpace(configPath)
	if path == "" {
		path = DefaultConfigPath
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file %q: %w", path, err)
	}

	cfg := defaultAppConfig()
	decoder := yaml.NewDecoder(bytes.NewReader(content))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parse config file %q: %w", path, err)
	}

	if cfg.Gemini.APIKey == "" {
		cfg.Gemini.APIKey = os.Getenv("GEMINI_API_KEY")
	}

	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("invalid port %d in %q, expected 1-65535", cfg.Port, path)
	}
	if cfg.Redis.Port < 1 || cfg.Redis.Port > 65535 {
		return nil, fmt.Errorf("invalid redis.port %d in %q, expected 1-65535", cfg.Redis.Port, path)
	}
	if cfg.Redis.DB < 0 {
		return nil, fmt.Errorf("invalid redis.db %d in %q, expected >= 0", cfg.Redis.DB, path)
	}
	if cfg.Gemini.TimeoutSeconds < 0 {
		return nil, fmt.Errorf("invalid gemini.timeout_seconds %d in %q, expected >= 0", cfg.Gemini.TimeoutSeconds, path)
	}

	return &cfg, nil
}

func defaultAppConfig() AppConfig {
	return AppConfig{
		Port: defaultPort,
		Env:  defaultEnv,
		Redis: RedisRuntimeConfig{
			Host: defaultRedisHost,
			Port: defaultRedisPort,
			DB:   defaultRedisDB,
		},
	}
}

// IsDev reports whether the app runs in development mode.
func (c *AppConfig) IsDev() bool {
	return strings.EqualFold(strings.TrimSpace(c.Env), "development")
}

// ResolveRedisURL returns the configured URL, or assembles one from the
// host/port parts.
func (c *AppConfig) ResolveRedisURL() string {
	if url := strings.TrimSpace(c.RedisURL); url != "" {
		return url
	}
	if url := strings.TrimSpace(c.Redis.URL); url != "" {
		return url
	}

	scheme := "redis"
	if c.Redis.TLS {
		scheme = "rediss"
	}

	auth := ""
	if c.Redis.Username != "" || c.Redis.Password != "" {
		auth = c.Redis.Username + ":" + c.Redis.Password + "@"
	}

	host := net.JoinHostPort(c.Redis.Host, strconv.Itoa(c.Redis.Port))
	return fmt.Sprintf("%s://%s%s/%d", scheme, auth, host, c.Redis.DB)
}

// GeminiTimeout returns the configured gateway timeout, 0 meaning default.
func (c *AppConfig) GeminiTimeout() time.Duration {
	return time.Duration(c.Gemini.TimeoutSeconds) * time.Second
}
