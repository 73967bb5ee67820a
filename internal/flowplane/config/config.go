// Package config loads and validates the flowplane control plane
// configuration from YAML, with environment variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete flowplane control plane configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server" json:"server"`
	XDS      XDSConfig      `yaml:"xds" json:"xds"`
	Database DatabaseConfig `yaml:"database" json:"database"`
	Auth     AuthConfig     `yaml:"auth" json:"auth"`
	Logging  LoggingConfig  `yaml:"logging" json:"logging"`
	Features FeaturesConfig `yaml:"features" json:"features"`
}

// ServerConfig contains the REST API server's HTTP settings.
type ServerConfig struct {
	APIPort          int    `yaml:"api_port" json:"api_port"`
	XDSPort          int    `yaml:"xds_port" json:"xds_port"`
	ReadTimeout      string `yaml:"read_timeout" json:"read_timeout"`
	WriteTimeout     string `yaml:"write_timeout" json:"write_timeout"`
	IdleTimeout      string `yaml:"idle_timeout" json:"idle_timeout"`
	GracefulShutdown bool   `yaml:"graceful_shutdown" json:"graceful_shutdown"`
	ShutdownTimeout  string `yaml:"shutdown_timeout" json:"shutdown_timeout"`
}

// XDSConfig contains ADS server and snapshot cache configuration.
type XDSConfig struct {
	DefaultListenerPort int                 `yaml:"default_listener_port" json:"default_listener_port"`
	DefaultNodeID       string              `yaml:"default_node_id" json:"default_node_id"`
	SnapshotCache       SnapshotCacheConfig `yaml:"snapshot_cache" json:"snapshot_cache"`
	GRPC                GRPCConfig          `yaml:"grpc" json:"grpc"`
}

// SnapshotCacheConfig contains snapshot cache settings.
type SnapshotCacheConfig struct {
	ADS bool `yaml:"ads" json:"ads"`
}

// GRPCConfig contains ADS gRPC server keepalive settings.
type GRPCConfig struct {
	KeepaliveTime                string `yaml:"keepalive_time" json:"keepalive_time"`
	KeepaliveTimeout             string `yaml:"keepalive_timeout" json:"keepalive_timeout"`
	KeepaliveMinTime              string `yaml:"keepalive_min_time" json:"keepalive_min_time"`
	KeepalivePermitWithoutStream bool   `yaml:"keepalive_permit_without_stream" json:"keepalive_permit_without_stream"`
}

// DatabaseConfig contains the Postgres connection settings for the
// repository layer's GORM backend.
type DatabaseConfig struct {
	DSN            string `yaml:"dsn" json:"dsn"`
	MaxConnections int    `yaml:"max_connections" json:"max_connections"`
	ConnectTimeout string `yaml:"connect_timeout" json:"connect_timeout"`
}

// AuthConfig contains personal-access-token bootstrap settings.
type AuthConfig struct {
	BootstrapToken string   `yaml:"bootstrap_token" json:"bootstrap_token"`
	DefaultScopes  []string `yaml:"default_scopes" json:"default_scopes"`
}

// LoggingConfig contains structured logging configuration.
type LoggingConfig struct {
	Level            string `yaml:"level" json:"level"`
	Format           string `yaml:"format" json:"format"`
	Output           string `yaml:"output" json:"output"`
	Structured       bool   `yaml:"structured" json:"structured"`
	EnableCaller     bool   `yaml:"enable_caller" json:"enable_caller"`
	EnableStacktrace bool   `yaml:"enable_stacktrace" json:"enable_stacktrace"`
}

// FeaturesConfig contains feature flags.
type FeaturesConfig struct {
	OpenAPIValidation bool `yaml:"openapi_validation" json:"openapi_validation"`
	Metrics           bool `yaml:"metrics" json:"metrics"`
	Tracing           bool `yaml:"tracing" json:"tracing"`
}

// Load reads configuration from configPath, falling back to a handful of
// default locations and finally to Default() if none exist.
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = findConfigFile()
	}
	if configPath == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("read config file %s: %w", configPath, err)
	}

	return LoadFromData(data)
}

// LoadFromData parses YAML configuration data, merges it with defaults,
// validates it, and applies environment variable overrides.
func LoadFromData(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config data: %w", err)
	}

	cfg = *mergeWithDefaults(&cfg)
	applyEnvOverrides(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func findConfigFile() string {
	if envPath := os.Getenv("FLOWPLANE_CONFIG"); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	paths := []string{
		"flowplane-config.yaml",
		"flowplane-config.yml",
		"config/flowplane-config.yaml",
		"config/flowplane-config.yml",
		"/etc/flowplane/config.yaml",
		"/etc/flowplane/config.yml",
	}
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

func mergeWithDefaults(cfg *Config) *Config {
	defaults := Default()

	if cfg.Server.APIPort == 0 {
		cfg.Server.APIPort = defaults.Server.APIPort
	}
	if cfg.Server.XDSPort == 0 {
		cfg.Server.XDSPort = defaults.Server.XDSPort
	}
	if cfg.Server.ReadTimeout == "" {
		cfg.Server.ReadTimeout = defaults.Server.ReadTimeout
	}
	if cfg.Server.WriteTimeout == "" {
		cfg.Server.WriteTimeout = defaults.Server.WriteTimeout
	}
	if cfg.Server.IdleTimeout == "" {
		cfg.Server.IdleTimeout = defaults.Server.IdleTimeout
	}
	if cfg.Server.ShutdownTimeout == "" {
		cfg.Server.ShutdownTimeout = defaults.Server.ShutdownTimeout
	}
	if !cfg.Server.GracefulShutdown {
		cfg.Server.GracefulShutdown = defaults.Server.GracefulShutdown
	}

	if cfg.XDS.DefaultListenerPort == 0 {
		cfg.XDS.DefaultListenerPort = defaults.XDS.DefaultListenerPort
	}
	if cfg.XDS.DefaultNodeID == "" {
		cfg.XDS.DefaultNodeID = defaults.XDS.DefaultNodeID
	}
	if cfg.XDS.GRPC.KeepaliveTime == "" {
		cfg.XDS.GRPC.KeepaliveTime = defaults.XDS.GRPC.KeepaliveTime
	}
	if cfg.XDS.GRPC.KeepaliveTimeout == "" {
		cfg.XDS.GRPC.KeepaliveTimeout = defaults.XDS.GRPC.KeepaliveTimeout
	}
	if cfg.XDS.GRPC.KeepaliveMinTime == "" {
		cfg.XDS.GRPC.KeepaliveMinTime = defaults.XDS.GRPC.KeepaliveMinTime
	}
	if !cfg.XDS.SnapshotCache.ADS {
		cfg.XDS.SnapshotCache.ADS = defaults.XDS.SnapshotCache.ADS
	}
	if !cfg.XDS.GRPC.KeepalivePermitWithoutStream {
		cfg.XDS.GRPC.KeepalivePermitWithoutStream = defaults.XDS.GRPC.KeepalivePermitWithoutStream
	}

	if cfg.Database.DSN == "" {
		cfg.Database.DSN = defaults.Database.DSN
	}
	if cfg.Database.MaxConnections == 0 {
		cfg.Database.MaxConnections = defaults.Database.MaxConnections
	}
	if cfg.Database.ConnectTimeout == "" {
		cfg.Database.ConnectTimeout = defaults.Database.ConnectTimeout
	}

	if len(cfg.Auth.DefaultScopes) == 0 {
		cfg.Auth.DefaultScopes = defaults.Auth.DefaultScopes
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = defaults.Logging.Level
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = defaults.Logging.Format
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = defaults.Logging.Output
	}

	return cfg
}

func (c *Config) GetServerReadTimeout() time.Duration  { return parseOr(c.Server.ReadTimeout, 30*time.Second) }
func (c *Config) GetServerWriteTimeout() time.Duration { return parseOr(c.Server.WriteTimeout, 30*time.Second) }
func (c *Config) GetServerIdleTimeout() time.Duration  { return parseOr(c.Server.IdleTimeout, 60*time.Second) }
func (c *Config) GetShutdownTimeout() time.Duration    { return parseOr(c.Server.ShutdownTimeout, 10*time.Second) }
func (c *Config) GetKeepaliveTime() time.Duration      { return parseOr(c.XDS.GRPC.KeepaliveTime, 30*time.Second) }
func (c *Config) GetKeepaliveTimeout() time.Duration   { return parseOr(c.XDS.GRPC.KeepaliveTimeout, 5*time.Second) }
func (c *Config) GetKeepaliveMinTime() time.Duration   { return parseOr(c.XDS.GRPC.KeepaliveMinTime, 5*time.Second) }
func (c *Config) GetDatabaseConnectTimeout() time.Duration {
	return parseOr(c.Database.ConnectTimeout, 5*time.Second)
}

func parseOr(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

// SaveToFile writes the configuration to path as YAML, creating parent
// directories as needed.
func (c *Config) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file %s: %w", path, err)
	}
	return nil
}
