package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	// DefaultMinPasswordBytes applies when Config.MinPasswordBytes is zero.
	DefaultMinPasswordBytes = 8
	// DefaultMaxPasswordBytes applies when Config.MaxPasswordBytes is zero.
	DefaultMaxPasswordBytes = 1024

	floorMemoryKB   uint32 = 8 * 1024
	floorSaltLength uint32 = 16
	floorKeyLength  uint32 = 16
	phcAlgorithm           = "argon2id"
)

var (
	// ErrPasswordTooShort is returned by Hash for inputs below MinPasswordBytes.
	ErrPasswordTooShort = errors.New("password too short")
	// ErrPasswordTooLong is returned by Hash and Verify for inputs above MaxPasswordBytes.
	ErrPasswordTooLong = errors.New("password too long")
	// ErrMalformedHash is returned by Verify when the stored hash is not an argon2id PHC
	// string this package can read.
	ErrMalformedHash = errors.New("malformed password hash")
)

var b64 = base64.StdEncoding

// Config holds argon2id cost parameters and the accepted plaintext size range.
type Config struct {
	Memory      uint32 // in KB
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32

	MinPasswordBytes int
	MaxPasswordBytes int
}

// Argon2 hashes and verifies passwords as PHC-encoded argon2id strings. It is safe for
// concurrent use.
type Argon2 struct {
	cfg Config
}

// NewArgon2 validates cfg and returns a hasher. Zero size limits take the defaults.
func NewArgon2(cfg Config) (*Argon2, error) {
	if cfg.MinPasswordBytes == 0 {
		cfg.MinPasswordBytes = DefaultMinPasswordBytes
	}
	if cfg.MaxPasswordBytes == 0 {
		cfg.MaxPasswordBytes = DefaultMaxPasswordBytes
	}

	switch {
	case cfg.Memory < floorMemoryKB:
		return nil, fmt.Errorf("password memory must be >= %d KB", floorMemoryKB)
	case cfg.Time < 1:
		return nil, errors.New("password time must be >= 1")
	case cfg.Parallelism < 1:
		return nil, errors.New("password parallelism must be >= 1")
	case cfg.SaltLength < floorSaltLength:
		return nil, fmt.Errorf("password salt length must be >= %d", floorSaltLength)
	case cfg.KeyLength < floorKeyLength:
		return nil, fmt.Errorf("password key length must be >= %d", floorKeyLength)
	case cfg.MinPasswordBytes < 1:
		return nil, errors.New("password min length must be >= 1")
	case cfg.MaxPasswordBytes < cfg.MinPasswordBytes:
		return nil, errors.New("password max length must be >= min length")
	}

	return &Argon2{cfg: cfg}, nil
}

// phc is one decoded $argon2id$v=19$m=..,t=..,p=..$salt$key string.
type phc struct {
	memory      uint32
	time        uint32
	parallelism uint8
	salt        []byte
	key         []byte
}

func (p phc) String() string {
	return fmt.Sprintf("$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		phcAlgorithm, argon2.Version,
		p.memory, p.time, p.parallelism,
		b64.EncodeToString(p.salt), b64.EncodeToString(p.key),
	)
}

func (p phc) derive(password string) []byte {
	return argon2.IDKey([]byte(password), p.salt, p.time, p.memory, p.parallelism, uint32(len(p.key)))
}

// Hash returns the PHC encoding of password under a fresh random salt. Lengths are
// measured in raw bytes with no Unicode normalization.
func (a *Argon2) Hash(password string) (string, error) {
	if len(password) < a.cfg.MinPasswordBytes {
		return "", ErrPasswordTooShort
	}
	if len(password) > a.cfg.MaxPasswordBytes {
		return "", ErrPasswordTooLong
	}

	p := phc{
		memory:      a.cfg.Memory,
		time:        a.cfg.Time,
		parallelism: a.cfg.Parallelism,
		salt:        make([]byte, a.cfg.SaltLength),
		key:         make([]byte, a.cfg.KeyLength),
	}
	if _, err := rand.Read(p.salt); err != nil {
		return "", fmt.Errorf("read salt: %w", err)
	}
	p.key = p.derive(password)

	return p.String(), nil
}

// Verify reports whether password matches encoded in constant time. The cost
// parameters are taken from encoded, so hashes made under an older Config still verify.
func (a *Argon2) Verify(password string, encoded string) (bool, error) {
	if len(password) > a.cfg.MaxPasswordBytes {
		return false, ErrPasswordTooLong
	}
	p, err := decodePHC(encoded)
	if err != nil {
		return false, err
	}

	return subtle.ConstantTimeCompare(p.derive(password), p.key) == 1, nil
}

func decodePHC(encoded string) (phc, error) {
	// "", "argon2id", "v=19", "m=..,t=..,p=..", salt, key
	fields := strings.Split(encoded, "$")
	if len(fields) != 6 || fields[0] != "" {
		return phc{}, fmt.Errorf("%w: expected 5 PHC fields", ErrMalformedHash)
	}
	if fields[1] != phcAlgorithm {
		return phc{}, fmt.Errorf("%w: algorithm %q", ErrMalformedHash, fields[1])
	}

	if fields[2] != fmt.Sprintf("v=%d", argon2.Version) {
		return phc{}, fmt.Errorf("%w: version %q", ErrMalformedHash, fields[2])
	}

	var p phc
	_, err := fmt.Sscanf(fields[3], "m=%d,t=%d,p=%d", &p.memory, &p.time, &p.parallelism)
	// round trip rejects trailing junk and non-canonical numbers
	if err != nil || fmt.Sprintf("m=%d,t=%d,p=%d", p.memory, p.time, p.parallelism) != fields[3] {
		return phc{}, fmt.Errorf("%w: parameters %q", ErrMalformedHash, fields[3])
	}
	if p.memory < floorMemoryKB || p.time < 1 || p.parallelism < 1 {
		return phc{}, fmt.Errorf("%w: parameters below floor", ErrMalformedHash)
	}

	if p.salt, err = b64.DecodeString(fields[4]); err != nil || len(p.salt) < int(floorSaltLength) {
		return phc{}, fmt.Errorf("%w: salt", ErrMalformedHash)
	}
	if p.key, err = b64.DecodeString(fields[5]); err != nil || len(p.key) == 0 {
		return phc{}, fmt.Errorf("%w: key", ErrMalformedHash)
	}

	return p, nil
}
