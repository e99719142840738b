package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

const (
	ErrMissingSecrets ErrConfig = "jwt.access_secret and jwt.refresh_secret are required"
	ErrNoRedisAddr    ErrConfig = "redis.addr is required in production"
)

// Load reads path (if non-empty) and overlays environment variables, where
// jwt.access_secret maps to JWT_ACCESS_SECRET. A missing file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
		_ = v.ReadInConfig()
	}

	v.SetDefault("app.name", "wbauthd")
	v.SetDefault("app.env", "dev")
	v.SetDefault("app.version", "")
	v.SetDefault("app.production", false)

	v.SetDefault("server.http_addr", ":8080")
	v.SetDefault("server.metrics_addr", ":9102")
	v.SetDefault("server.read_timeout", "5s")
	v.SetDefault("server.write_timeout", "10s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.graceful_timeout", "15s")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "")
	v.SetDefault("redis.embedded", true)

	v.SetDefault("db.dsn", "")
	v.SetDefault("db.max_conns", 10)
	v.SetDefault("db.min_conns", 1)
	v.SetDefault("db.max_conn_lifetime", "30m")
	v.SetDefault("db.max_conn_idle_time", "10m")
	v.SetDefault("db.query_timeout", "2s")

	v.SetDefault("jwt.access_secret", "")
	v.SetDefault("jwt.refresh_secret", "")
	v.SetDefault("jwt.access_ttl", "7200s")
	v.SetDefault("jwt.refresh_ttl", "720h")
	v.SetDefault("jwt.issuer", "")
	v.SetDefault("jwt.leeway", "0s")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	v.SetDefault("audit.enabled", true)
	v.SetDefault("audit.buffer_size", 1024)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.latency", true)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if cfg.JWT.AccessSecret == "" || cfg.JWT.RefreshSecret == "" {
		return nil, ErrMissingSecrets
	}
	if cfg.App.Production {
		cfg.Redis.Embedded = false
		if cfg.Redis.Addr == "" {
			return nil, ErrNoRedisAddr
		}
	}
	return &cfg, nil
}
