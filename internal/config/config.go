// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	DB       DBConfig       `mapstructure:"db"`
	Watchdog WatchdogConfig `mapstructure:"watchdog"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig controls the HTTP listeners and static asset serving.
type ServerConfig struct {
	HTTPPort  int    `mapstructure:"http_port"`
	HTTPSPort int    `mapstructure:"https_port"`
	CertDir   string `mapstructure:"cert_dir"`
	StaticDir string `mapstructure:"static_dir"`
	BodyLimit int64  `mapstructure:"body_limit_bytes"`
}

// DBConfig controls access to the Postgres database.
type DBConfig struct {
	DSN      string `mapstructure:"dsn"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
}

// WatchdogConfig governs the startup readiness probe.
type WatchdogConfig struct {
	IntervalSeconds int `mapstructure:"interval_seconds"`
	TimeoutSeconds  int `mapstructure:"timeout_seconds"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SHOPFINDER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.http_port", 8000)
	v.SetDefault("server.https_port", 8443)
	v.SetDefault("server.cert_dir", "")
	v.SetDefault("server.static_dir", "../angular-frontend/dist")
	v.SetDefault("server.body_limit_bytes", 4096)
	// AutomaticEnv only surfaces keys viper already knows about, so every
	// key needs a default — including ones whose default is empty.
	v.SetDefault("db.dsn", "")
	v.SetDefault("db.max_conns", 4)
	v.SetDefault("db.min_conns", 1)
	v.SetDefault("watchdog.interval_seconds", 1)
	v.SetDefault("watchdog.timeout_seconds", 30)
	v.SetDefault("logging.development", false)
}

// Validate checks invariants across the loaded configuration.
func (c Config) Validate() error {
	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		return fmt.Errorf("server.http_port %d out of range", c.Server.HTTPPort)
	}
	if c.Server.HTTPSPort <= 0 || c.Server.HTTPSPort > 65535 {
		return fmt.Errorf("server.https_port %d out of range", c.Server.HTTPSPort)
	}
	if c.Server.BodyLimit <= 0 {
		return fmt.Errorf("server.body_limit_bytes must be positive")
	}
	if c.Watchdog.IntervalSeconds <= 0 {
		return fmt.Errorf("watchdog.interval_seconds must be positive")
	}
	if c.Watchdog.TimeoutSeconds <= 0 {
		return fmt.Errorf("watchdog.timeout_seconds must be positive")
	}
	return nil
}
