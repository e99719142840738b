// Package config loads wbauthd settings from an optional YAML file and the environment.
package config

import (
	"time"

	"github.com/inkstone/wbauth"
	"github.com/inkstone/wbauth/internal/obs"
	"github.com/inkstone/wbauth/userstore"
)

type App struct {
	Name       string `mapstructure:"name"`
	Env        string `mapstructure:"env"`
	Version    string `mapstructure:"version"`
	Production bool   `mapstructure:"production"`
}

type Server struct {
	HTTPAddr        string        `mapstructure:"http_addr"`
	MetricsAddr     string        `mapstructure:"metrics_addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	GracefulTimeout time.Duration `mapstructure:"graceful_timeout"`
}

type Redis struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
	// Embedded starts an in-process miniredis when Addr is unreachable. Ignored in production.
	Embedded bool `mapstructure:"embedded"`
}

type DB struct {
	DSN             string        `mapstructure:"dsn"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
	QueryTimeout    time.Duration `mapstructure:"query_timeout"`
}

func (d *DB) AsPostgresConfig() userstore.PostgresConfig {
	return userstore.PostgresConfig{
		DSN:             d.DSN,
		MaxConns:        d.MaxConns,
		MinConns:        d.MinConns,
		MaxConnLifetime: d.MaxConnLifetime,
		MaxConnIdleTime: d.MaxConnIdleTime,
		QueryTimeout:    d.QueryTimeout,
	}
}

type JWT struct {
	AccessSecret  string        `mapstructure:"access_secret"`
	RefreshSecret string        `mapstructure:"refresh_secret"`
	AccessTTL     time.Duration `mapstructure:"access_ttl"`
	RefreshTTL    time.Duration `mapstructure:"refresh_ttl"`
	Issuer        string        `mapstructure:"issuer"`
	Leeway        time.Duration `mapstructure:"leeway"`
}

type Log struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

type Audit struct {
	Enabled    bool `mapstructure:"enabled"`
	BufferSize int  `mapstructure:"buffer_size"`
}

type Metrics struct {
	Enabled bool `mapstructure:"enabled"`
	Latency bool `mapstructure:"latency"`
}

type Config struct {
	App     App     `mapstructure:"app"`
	Server  Server  `mapstructure:"server"`
	Redis   Redis   `mapstructure:"redis"`
	DB      DB      `mapstructure:"db"`
	JWT     JWT     `mapstructure:"jwt"`
	Log     Log     `mapstructure:"log"`
	Audit   Audit   `mapstructure:"audit"`
	Metrics Metrics `mapstructure:"metrics"`
}

func (c *Config) AsLoggerConfig() obs.LogConfig {
	return obs.LogConfig{
		Level:  c.Log.Level,
		Pretty: c.Log.Pretty,
		App:    c.App.Name,
		Env:    c.App.Env,
		Ver:    c.App.Version,
	}
}

// EngineConfig maps the daemon settings onto a wbauth.Config. The result is validated
// by Builder.Build, not here.
func (c *Config) EngineConfig() wbauth.Config {
	cfg := wbauth.DefaultConfig()
	cfg.JWT.AccessSecret = []byte(c.JWT.AccessSecret)
	cfg.JWT.RefreshSecret = []byte(c.JWT.RefreshSecret)
	cfg.JWT.AccessTTL = c.JWT.AccessTTL
	cfg.JWT.RefreshTTL = c.JWT.RefreshTTL
	cfg.JWT.Issuer = c.JWT.Issuer
	cfg.JWT.Leeway = c.JWT.Leeway
	cfg.Store.KeyPrefix = c.Redis.Prefix
	cfg.Audit.Enabled = c.Audit.Enabled
	if c.Audit.BufferSize > 0 {
		cfg.Audit.BufferSize = c.Audit.BufferSize
	}
	cfg.Metrics.Enabled = c.Metrics.Enabled
	cfg.Metrics.EnableLatencyHistograms = c.Metrics.Enabled && c.Metrics.Latency
	cfg.Security.ProductionMode = c.App.Production
	return cfg
}

type ErrConfig string

func (e ErrConfig) Error() string { return string(e) }
