package jwt

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Kind is the value of the "type" claim that separates access tokens from refresh tokens.
type Kind string

const (
	// KindAccess marks short-lived bearer tokens.
	KindAccess Kind = "access"
	// KindRefresh marks long-lived tokens exchanged for new access tokens.
	KindRefresh Kind = "refresh"
)

var (
	// ErrInvalidToken is returned by ParseAccess for every rejection reason.
	ErrInvalidToken = errors.New("invalid access token")
	// ErrInvalidRefreshToken is returned by ParseRefresh for every rejection reason.
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
)

// Config holds signing material and validity windows.
//
// AccessSecret and RefreshSecret must be non-empty and different. Now overrides the
// clock used for both signing and verification; nil means time.Now.
type Config struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
	Leeway        time.Duration
	Now           func() time.Time
}

// Manager signs and verifies HS256 access and refresh tokens.
//
// A Manager is immutable after NewManager and safe for concurrent use.
type Manager struct {
	config Config
}

// Claims is the payload shared by both token kinds. Subject carries the user id and,
// for refresh tokens, ID carries the token id registered in the revocation store.
type Claims struct {
	Kind Kind `json:"type"`
	jwt.RegisteredClaims
}

// UserID returns the subject claim.
func (c *Claims) UserID() string { return c.Subject }

// TokenID returns the jti claim.
func (c *Claims) TokenID() string { return c.ID }

// NewManager validates cfg and returns a Manager.
func NewManager(cfg Config) (*Manager, error) {
	if len(cfg.AccessSecret) == 0 || len(cfg.RefreshSecret) == 0 {
		return nil, errors.New("access and refresh secrets are required")
	}
	if string(cfg.AccessSecret) == string(cfg.RefreshSecret) {
		return nil, errors.New("access and refresh secrets must differ")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	cfg.Issuer = strings.TrimSpace(cfg.Issuer)

	return &Manager{config: cfg}, nil
}

// AccessTTL returns the configured access-token lifetime.
func (j *Manager) AccessTTL() time.Duration { return j.config.AccessTTL }

// RefreshTTL returns the configured refresh-token lifetime.
func (j *Manager) RefreshTTL() time.Duration { return j.config.RefreshTTL }

// SignAccess mints an access token for userID and returns it together with its lifetime
// in whole seconds.
func (j *Manager) SignAccess(userID string) (string, int64, error) {
	if strings.TrimSpace(userID) == "" {
		return "", 0, errors.New("empty subject")
	}
	token, err := j.sign(KindAccess, userID, uuid.NewString(), j.config.AccessTTL, j.config.AccessSecret)
	if err != nil {
		return "", 0, err
	}
	return token, seconds(j.config.AccessTTL), nil
}

// SignRefresh mints a refresh token for userID that carries tokenID as its jti.
func (j *Manager) SignRefresh(userID, tokenID string) (string, int64, error) {
	if strings.TrimSpace(userID) == "" {
		return "", 0, errors.New("empty subject")
	}
	if strings.TrimSpace(tokenID) == "" {
		return "", 0, errors.New("empty token id")
	}
	token, err := j.sign(KindRefresh, userID, tokenID, j.config.RefreshTTL, j.config.RefreshSecret)
	if err != nil {
		return "", 0, err
	}
	return token, seconds(j.config.RefreshTTL), nil
}

// ParseAccess verifies an access token. Any failure, including a refresh token presented
// here, yields an error matching ErrInvalidToken.
func (j *Manager) ParseAccess(tokenStr string) (*Claims, error) {
	claims, err := j.parse(tokenStr, KindAccess, j.config.AccessSecret)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return claims, nil
}

// ParseRefresh verifies a refresh token. Any failure yields an error matching
// ErrInvalidRefreshToken. A successful parse does not mean the token is still valid: the
// caller must check the token id against the revocation store.
func (j *Manager) ParseRefresh(tokenStr string) (*Claims, error) {
	claims, err := j.parse(tokenStr, KindRefresh, j.config.RefreshSecret)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRefreshToken, err)
	}
	if strings.TrimSpace(claims.ID) == "" {
		return nil, fmt.Errorf("%w: missing jti", ErrInvalidRefreshToken)
	}
	return claims, nil
}

func (j *Manager) sign(kind Kind, subject, id string, ttl time.Duration, secret []byte) (string, error) {
	now := j.config.Now()
	claims := Claims{
		Kind: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ID:        id,
			Issuer:    j.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func (j *Manager) parse(tokenStr string, kind Kind, secret []byte) (*Claims, error) {
	if tokenStr == "" {
		return nil, errors.New("empty token")
	}
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(j.config.Now),
	}
	if j.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(j.config.Leeway))
	}
	if j.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(j.config.Issuer))
	}

	parser := jwt.NewParser(options...)
	token, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		return secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	if claims.Kind != kind {
		return nil, fmt.Errorf("unexpected token type %q", claims.Kind)
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return nil, errors.New("missing subject")
	}
	return claims, nil
}

func seconds(d time.Duration) int64 {
	return int64(d / time.Second)
}
