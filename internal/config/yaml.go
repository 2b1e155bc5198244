// Package config defines the codespace.yaml document.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// YAMLConfig represents the top-level codespace configuration file.
type YAMLConfig struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Cache    CacheConfig    `yaml:"cache"`
	Auth     AuthConfig     `yaml:"auth"`
	Share    ShareConfig    `yaml:"share"`
	MCP      MCPConfig      `yaml:"mcp"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig controls the HTTP server behavior.
type ServerConfig struct {
	Host            string          `yaml:"host"`
	Port            int             `yaml:"port"`
	MaxBodySize     string          `yaml:"max_body_size"`
	ShutdownTimeout string          `yaml:"shutdown_timeout"`
	CORS            CORSConfig      `yaml:"cors"`
	RateLimit       RateLimitConfig `yaml:"rate_limit"`
}

// CORSConfig controls cross-origin resource sharing settings.
type CORSConfig struct {
	Origins []string `yaml:"origins"`
}

// RateLimitConfig caps per-IP request rates. Zero disables a limit.
type RateLimitConfig struct {
	AnonymousPerMinute int `yaml:"anonymous_per_minute"`
	LoginPerMinute     int `yaml:"login_per_minute"`
}

// DatabaseConfig selects the durable store.
type DatabaseConfig struct {
	Driver string         `yaml:"driver"`
	DSN    string         `yaml:"dsn"`
	Pool   PoolYAMLConfig `yaml:"pool"`
}

// PoolYAMLConfig controls the connection pool of the durable store.
type PoolYAMLConfig struct {
	MaxOpenConns    int    `yaml:"max_open_conns"`
	MaxIdleConns    int    `yaml:"max_idle_conns"`
	ConnMaxLifetime string `yaml:"conn_max_lifetime"`
}

// CacheConfig selects the cache and its entry lifetimes.
type CacheConfig struct {
	Driver       string `yaml:"driver"` // redis or memory
	Addr         string `yaml:"addr"`
	Password     string `yaml:"password"`
	DB           int    `yaml:"db"`
	DialTimeout  string `yaml:"dial_timeout"`
	ActiveTTL    string `yaml:"active_ttl"`
	EphemeralTTL string `yaml:"ephemeral_ttl"`
}

// AuthConfig controls user authentication.
type AuthConfig struct {
	JWTSecret  string `yaml:"jwt_secret"`
	AccessTTL  string `yaml:"access_ttl"`
	RefreshTTL string `yaml:"refresh_ttl"`
}

// ShareConfig holds the secret share tokens are sealed with.
type ShareConfig struct {
	TokenSecret string `yaml:"token_secret"`
}

// MCPConfig controls the MCP (Model Context Protocol) server.
type MCPConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Transport string `yaml:"transport"` // stdio or http
	Port      int    `yaml:"port"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// LoadYAMLConfig reads and parses a YAML configuration file over the
// defaults. Environment variables referenced as ${VAR_NAME} in the file are
// expanded before parsing.
func LoadYAMLConfig(path string) (*YAMLConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	// Expand environment variables: ${VAR_NAME}
	content := os.ExpandEnv(string(data))

	cfg := DefaultYAMLConfig()
	if err := yaml.Unmarshal([]byte(content), cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	return cfg, nil
}

// DefaultYAMLConfig returns a YAMLConfig pre-filled with sensible defaults.
func DefaultYAMLConfig() *YAMLConfig {
	return &YAMLConfig{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8000,
			MaxBodySize:     "1MB",
			ShutdownTimeout: "30s",
			CORS: CORSConfig{
				Origins: []string{"*"},
			},
			RateLimit: RateLimitConfig{
				AnonymousPerMinute: 30,
				LoginPerMinute:     20,
			},
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    "codespace.db",
			Pool: PoolYAMLConfig{
				MaxOpenConns:    25,
				MaxIdleConns:    5,
				ConnMaxLifetime: "5m",
			},
		},
		Cache: CacheConfig{
			Driver:       "redis",
			Addr:         "localhost:6379",
			DialTimeout:  "5s",
			ActiveTTL:    "1h",
			EphemeralTTL: "15m",
		},
		Auth: AuthConfig{
			AccessTTL:  "15m",
			RefreshTTL: "24h",
		},
		MCP: MCPConfig{
			Enabled:   true,
			Transport: "stdio",
			Port:      8001,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// WriteDefaultConfig writes the default configuration to a YAML file.
func WriteDefaultConfig(path string) error {
	cfg := DefaultYAMLConfig()
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate reports every problem in the document at once.
func (c *YAMLConfig) Validate() error {
	var errs []error
	check := func(field, value string) time.Duration {
		d, err := time.ParseDuration(value)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", field, err))
			return 0
		}
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %s", field, value))
		}
		return d
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port out of range: %d", c.Server.Port))
	}
	if _, err := ParseSize(c.Server.MaxBodySize); err != nil {
		errs = append(errs, fmt.Errorf("server.max_body_size: %w", err))
	}
	check("server.shutdown_timeout", c.Server.ShutdownTimeout)

	switch c.Database.Driver {
	case "sqlite", "postgres", "mysql", "sqlserver":
	default:
		errs = append(errs, fmt.Errorf("database.driver %q is not one of sqlite, postgres, mysql, sqlserver", c.Database.Driver))
	}
	if c.Database.Driver != "sqlite" && c.Database.DSN == "" {
		errs = append(errs, errors.New("database.dsn is required"))
	}
	if c.Database.Pool.ConnMaxLifetime != "" {
		check("database.pool.conn_max_lifetime", c.Database.Pool.ConnMaxLifetime)
	}

	switch c.Cache.Driver {
	case "redis":
		if c.Cache.Addr == "" {
			errs = append(errs, errors.New("cache.addr is required for the redis driver"))
		}
		check("cache.dial_timeout", c.Cache.DialTimeout)
	case "memory":
	default:
		errs = append(errs, fmt.Errorf("cache.driver %q is not one of redis, memory", c.Cache.Driver))
	}
	active := check("cache.active_ttl", c.Cache.ActiveTTL)
	ephemeral := check("cache.ephemeral_ttl", c.Cache.EphemeralTTL)
	if active > 0 && ephemeral > 0 && ephemeral >= active {
		errs = append(errs, fmt.Errorf("cache.ephemeral_ttl (%s) must be shorter than cache.active_ttl (%s)", ephemeral, active))
	}

	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("auth.jwt_secret is required"))
	}
	check("auth.access_ttl", c.Auth.AccessTTL)
	check("auth.refresh_ttl", c.Auth.RefreshTTL)
	if c.Share.TokenSecret == "" {
		errs = append(errs, errors.New("share.token_secret is required"))
	}

	switch c.MCP.Transport {
	case "stdio", "http":
	default:
		errs = append(errs, fmt.Errorf("mcp.transport %q is not one of stdio, http", c.MCP.Transport))
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("logging.format %q is not one of text, json", c.Logging.Format))
	}

	return errors.Join(errs...)
}

// Duration parses a duration field, returning zero for an empty or invalid
// value. Call Validate first to surface parse errors.
func Duration(value string) time.Duration {
	d, _ := time.ParseDuration(value)
	return d
}

// ParseSize parses a byte size such as "512", "64KB" or "10MB".
func ParseSize(s string) (int64, error) {
	s = strings.TrimSpace(strings.ToUpper(s))
	mult := int64(1)
	for _, u := range []struct {
		suffix string
		mult   int64
	}{
		{"GB", 1 << 30},
		{"MB", 1 << 20},
		{"KB", 1 << 10},
		{"B", 1},
	} {
		if strings.HasSuffix(s, u.suffix) {
			s = strings.TrimSpace(strings.TrimSuffix(s, u.suffix))
			mult = u.mult
			break
		}
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q", s)
	}
	if n < 0 {
		return 0, fmt.Errorf("size must not be negative: %d", n)
	}
	return n * mult, nil
}
