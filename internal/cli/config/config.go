package config

import (
	"errors"
	"fmt"
	"net/netip"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/graphiti-lang/graphiti/internal/db"
)

// FileNames are the config file names searched for, in order
var FileNames = []string{"graphiti.yml", "graphiti.yaml"}

// Config represents the Graphiti configuration
type Config struct {
	Database  DatabaseConfig  `mapstructure:"database" yaml:"database"`
	Server    ServerConfig    `mapstructure:"server" yaml:"server"`
	Log       LogConfig       `mapstructure:"log" yaml:"log"`
	Auth      AuthConfig      `mapstructure:"auth" yaml:"auth,omitempty"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit" yaml:"ratelimit"`
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	Driver string `mapstructure:"driver" yaml:"driver"`
	URL    string `mapstructure:"url" yaml:"url"`
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Port int    `mapstructure:"port" yaml:"port"`
	Host string `mapstructure:"host" yaml:"host"`
	Path string `mapstructure:"path" yaml:"path"`
	// Profiling mounts pprof endpoints on the server
	Profiling bool `mapstructure:"profiling" yaml:"profiling,omitempty"`
	// TrustedProxies are the addresses or CIDR ranges allowed to report the
	// client address in X-Forwarded-For
	TrustedProxies []string `mapstructure:"trusted_proxies" yaml:"trusted_proxies,omitempty"`
}

// Addr returns the listen address
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LogConfig represents logging configuration
type LogConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Development bool   `mapstructure:"development" yaml:"development"`
}

// AuthConfig represents authentication configuration. Auth is disabled when
// no secret is set.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret" yaml:"jwt_secret,omitempty"`
}

// RateLimitConfig represents rate limiting configuration. Limits are kept in
// Redis when an address is set and in memory otherwise.
type RateLimitConfig struct {
	RedisAddr string        `mapstructure:"redis_addr" yaml:"redis_addr,omitempty"`
	Limit     int           `mapstructure:"limit" yaml:"limit"`
	Window    time.Duration `mapstructure:"window" yaml:"window"`
}

// MarshalYAML writes the window as a duration string
func (r RateLimitConfig) MarshalYAML() (interface{}, error) {
	return struct {
		RedisAddr string `yaml:"redis_addr,omitempty"`
		Limit     int    `yaml:"limit"`
		Window    string `yaml:"window"`
	}{r.RedisAddr, r.Limit, r.Window.String()}, nil
}

// Default returns the configuration used when no file is present
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{Driver: "pgx"},
		Server:   ServerConfig{Port: 4000, Host: "localhost", Path: "/graphql"},
		Log:      LogConfig{Level: "info"},
		RateLimit: RateLimitConfig{
			Limit:  100,
			Window: time.Minute,
		},
	}
}

// Load loads the configuration from the given file, or from graphiti.yml or
// graphiti.yaml in the current directory when file is empty. Environment
// variables override file values, with dots replaced by underscores
// (DATABASE_URL, SERVER_PORT, ...).
func Load(file string) (*Config, error) {
	v := viper.New()

	defaults := Default()
	v.SetDefault("database.driver", defaults.Database.Driver)
	v.SetDefault("database.url", "")
	v.SetDefault("server.port", defaults.Server.Port)
	v.SetDefault("server.host", defaults.Server.Host)
	v.SetDefault("server.path", defaults.Server.Path)
	v.SetDefault("server.profiling", false)
	v.SetDefault("log.level", defaults.Log.Level)
	v.SetDefault("log.development", false)
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("ratelimit.redis_addr", "")
	v.SetDefault("ratelimit.limit", defaults.RateLimit.Limit)
	v.SetDefault("ratelimit.window", defaults.RateLimit.Window)

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("graphiti")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found - use defaults
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// GetDatabaseURL returns the database URL from the environment or the config
// file in the current directory
func GetDatabaseURL() string {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url
	}

	cfg, err := Load("")
	if err != nil {
		return ""
	}

	return cfg.Database.URL
}

// FindConfigFile walks up from the current directory looking for a config file
func FindConfigFile() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		for _, name := range FileNames {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				return path, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("no %s found", FileNames[0])
		}
		dir = parent
	}
}

// Write stores the configuration as YAML at path
func Write(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate validates the configuration
func Validate(cfg *Config) error {
	if _, err := db.DialectFor(cfg.Database.Driver); err != nil {
		return fmt.Errorf("database.driver: %w", err)
	}

	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got: %d", cfg.Server.Port)
	}

	if !strings.HasPrefix(cfg.Server.Path, "/") {
		return fmt.Errorf("server.path must start with '/', got: %s", cfg.Server.Path)
	}
	if len(cfg.Server.Path) > 1 && strings.HasSuffix(cfg.Server.Path, "/") {
		return fmt.Errorf("server.path must not end with '/', got: %s", cfg.Server.Path)
	}

	for _, proxy := range cfg.Server.TrustedProxies {
		if _, err := netip.ParsePrefix(proxy); err == nil {
			continue
		}
		if _, err := netip.ParseAddr(proxy); err != nil {
			return fmt.Errorf("server.trusted_proxies: invalid address or CIDR %q", proxy)
		}
	}

	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Log.Level)); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}

	if cfg.RateLimit.Limit < 1 {
		return fmt.Errorf("ratelimit.limit must be positive, got: %d", cfg.RateLimit.Limit)
	}
	if cfg.RateLimit.Window <= 0 {
		return fmt.Errorf("ratelimit.window must be positive, got: %s", cfg.RateLimit.Window)
	}
	return nil
}
