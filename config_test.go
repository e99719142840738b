package wbauth

import (
	"testing"
	"time"
)

func validTestConfig() Config {
	cfg := defaultConfig()
	cfg.JWT.AccessSecret = []byte("access-secret-access-secret-0001")
	cfg.JWT.RefreshSecret = []byte("refresh-secret-refresh-secret-01")
	// keep argon2 cheap in tests
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	return cfg
}

func TestDefaultConfigWindows(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.JWT.AccessTTL != 7200*time.Second {
		t.Fatalf("expected 7200s access ttl, got %v", cfg.JWT.AccessTTL)
	}
	if cfg.JWT.RefreshTTL != 2592000*time.Second {
		t.Fatalf("expected 30d refresh ttl, got %v", cfg.JWT.RefreshTTL)
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected default config without secrets to be invalid")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantValid bool
	}{
		{
			name:      "valid baseline",
			mutate:    func(c *Config) {},
			wantValid: true,
		},
		{
			name: "missing access secret",
			mutate: func(c *Config) {
				c.JWT.AccessSecret = nil
			},
			wantValid: false,
		},
		{
			name: "missing refresh secret",
			mutate: func(c *Config) {
				c.JWT.RefreshSecret = nil
			},
			wantValid: false,
		},
		{
			name: "short secret",
			mutate: func(c *Config) {
				c.JWT.AccessSecret = []byte("short")
			},
			wantValid: false,
		},
		{
			name: "shared secret",
			mutate: func(c *Config) {
				c.JWT.RefreshSecret = cloneBytes(c.JWT.AccessSecret)
			},
			wantValid: false,
		},
		{
			name: "zero access ttl",
			mutate: func(c *Config) {
				c.JWT.AccessTTL = 0
			},
			wantValid: false,
		},
		{
			name: "refresh shorter than access",
			mutate: func(c *Config) {
				c.JWT.RefreshTTL = time.Minute
			},
			wantValid: false,
		},
		{
			name: "jwt leeway valid",
			mutate: func(c *Config) {
				c.JWT.Leeway = 45 * time.Second
			},
			wantValid: true,
		},
		{
			name: "jwt leeway invalid",
			mutate: func(c *Config) {
				c.JWT.Leeway = 3 * time.Minute
			},
			wantValid: false,
		},
		{
			name: "blank issuer",
			mutate: func(c *Config) {
				c.JWT.Issuer = "   "
			},
			wantValid: false,
		},
		{
			name: "prefix with whitespace",
			mutate: func(c *Config) {
				c.Store.KeyPrefix = "wb :"
			},
			wantValid: false,
		},
		{
			name: "password min below floor",
			mutate: func(c *Config) {
				c.Password.MinLength = 4
			},
			wantValid: false,
		},
		{
			name: "password max below min",
			mutate: func(c *Config) {
				c.Password.MaxLength = 7
			},
			wantValid: false,
		},
		{
			name: "audit enabled without buffer",
			mutate: func(c *Config) {
				c.Audit.Enabled = true
				c.Audit.BufferSize = 0
			},
			wantValid: false,
		},
		{
			name: "production requires long secrets",
			mutate: func(c *Config) {
				c.Security.ProductionMode = true
				c.JWT.AccessSecret = []byte("sixteen-byte-key")
				c.Password.Memory = 65536
			},
			wantValid: false,
		},
		{
			name: "production rejects weak argon2",
			mutate: func(c *Config) {
				c.Security.ProductionMode = true
			},
			wantValid: false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validTestConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantValid && err != nil {
				t.Fatalf("expected valid config, got %v", err)
			}
			if !tc.wantValid && err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestCloneConfigCopiesSecrets(t *testing.T) {
	cfg := validTestConfig()
	clone := cloneConfig(cfg)
	cfg.JWT.AccessSecret[0] = 'X'
	if clone.JWT.AccessSecret[0] == 'X' {
		t.Fatal("expected clone to be isolated from caller mutation")
	}
}
