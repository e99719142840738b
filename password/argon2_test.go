package password

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cheapConfig() Config {
	return Config{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	}
}

func newCheap(t *testing.T) *Argon2 {
	t.Helper()
	h, err := NewArgon2(cheapConfig())
	require.NoError(t, err)
	return h
}

func TestHashAndVerify(t *testing.T) {
	h, err := NewArgon2(Config{Memory: 65536, Time: 3, Parallelism: 2, SaltLength: 16, KeyLength: 32})
	require.NoError(t, err)

	hash, err := h.Hash("P@ssw0rd-Ascii")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$argon2id$v=19$m=65536,t=3,p=2$"), hash)

	ok, err := h.Verify("P@ssw0rd-Ascii", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.Verify("P@ssw0rd-ascii", hash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSaltsDiffer(t *testing.T) {
	h := newCheap(t)
	a, err := h.Hash("same-password")
	require.NoError(t, err)
	b, err := h.Hash("same-password")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestVerifyUsesStoredParameters(t *testing.T) {
	old := newCheap(t)
	hash, err := old.Hash("registered-last-year")
	require.NoError(t, err)

	cfg := cheapConfig()
	cfg.Time = 2
	cfg.KeyLength = 64
	current, err := NewArgon2(cfg)
	require.NoError(t, err)

	ok, err := current.Verify("registered-last-year", hash)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVerifyMalformedHash(t *testing.T) {
	h := newCheap(t)
	valid, err := h.Hash("version-test")
	require.NoError(t, err)

	cases := map[string]string{
		"not phc":        "not-a-phc-hash",
		"bcrypt":         "$2a$10$abcdefghijklmnopqrstuv",
		"wrong version":  strings.Replace(valid, "$v=19$", "$v=18$", 1),
		"argon2i":        strings.Replace(valid, "$argon2id$", "$argon2i$", 1),
		"trailing param": strings.Replace(valid, ",p=1$", ",p=1,x=2$", 1),
		"memory floor":   strings.Replace(valid, "m=8192", "m=1024", 1),
		"bad salt":       strings.Replace(valid, "$v=19$m=8192,t=1,p=1$", "$v=19$m=8192,t=1,p=1$!!", 1),
	}
	for name, encoded := range cases {
		t.Run(name, func(t *testing.T) {
			ok, err := h.Verify("version-test", encoded)
			assert.ErrorIs(t, err, ErrMalformedHash)
			assert.False(t, ok)
		})
	}
}

func TestLengthLimits(t *testing.T) {
	h := newCheap(t)

	_, err := h.Hash("")
	assert.ErrorIs(t, err, ErrPasswordTooShort)
	_, err = h.Hash("short")
	assert.ErrorIs(t, err, ErrPasswordTooShort)

	long := strings.Repeat("x", DefaultMaxPasswordBytes+1)
	_, err = h.Hash(long)
	assert.ErrorIs(t, err, ErrPasswordTooLong)

	hash, err := h.Hash("within-limits")
	require.NoError(t, err)
	_, err = h.Verify(long, hash)
	assert.ErrorIs(t, err, ErrPasswordTooLong)
}

func TestMinPasswordBytesConfigurable(t *testing.T) {
	cfg := cheapConfig()
	cfg.MinPasswordBytes = 12
	h, err := NewArgon2(cfg)
	require.NoError(t, err)

	_, err = h.Hash("eleven-char")
	assert.ErrorIs(t, err, ErrPasswordTooShort)
	_, err = h.Hash("twelve-chars")
	assert.NoError(t, err)
}

func TestNewArgon2RejectsWeakConfig(t *testing.T) {
	cases := map[string]func(*Config){
		"memory":         func(c *Config) { c.Memory = 4096 },
		"time":           func(c *Config) { c.Time = 0 },
		"parallelism":    func(c *Config) { c.Parallelism = 0 },
		"salt":           func(c *Config) { c.SaltLength = 8 },
		"key":            func(c *Config) { c.KeyLength = 8 },
		"negative min":   func(c *Config) { c.MinPasswordBytes = -1 },
		"inverted range": func(c *Config) { c.MinPasswordBytes = 20; c.MaxPasswordBytes = 10 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := cheapConfig()
			mutate(&cfg)
			_, err := NewArgon2(cfg)
			assert.Error(t, err)
		})
	}
}
