package wbauth

import (
	"context"
	"io"
	"time"

	internalaudit "github.com/inkstone/wbauth/internal/audit"
	"go.uber.org/zap"
)

// UserRecord is the account shape returned by [UserProvider].
type UserRecord struct {
	ID           string
	Email        string
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

// CreateUserInput is passed to [UserProvider.CreateUser]. Email is already normalized
// and PasswordHash already computed.
type CreateUserInput struct {
	Email        string
	Username     string
	PasswordHash string
}

// UserProvider is the user-identity lookup the Engine consumes. Implementations return
// [ErrUserNotFound] when no user matches and [ErrAccountExists] on duplicate email.
type UserProvider interface {
	FindUserByEmail(ctx context.Context, email string) (UserRecord, error)
	GetUserByID(ctx context.Context, userID string) (UserRecord, error)
	CreateUser(ctx context.Context, input CreateUserInput) (UserRecord, error)
}

// PasswordHasher is the credential verifier the Engine consumes. The default is
// password.Argon2.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext string, encodedHash string) (bool, error)
}

// RevocationStore records which refresh-token ids are live for which user.
// The default is session.Store.
//
// GetRefreshTokenUserID must report an absent id as found=false with a nil error and
// reserve non-nil errors for infrastructure failures.
type RevocationStore interface {
	SaveRefreshToken(ctx context.Context, userID, tokenID string, ttl time.Duration) error
	GetRefreshTokenUserID(ctx context.Context, tokenID string) (string, bool, error)
	RevokeAllRefreshTokens(ctx context.Context, userID string) error
}

// TokenPair is returned by Issue. ExpiresIn and RefreshExpiresIn are lifetimes in
// whole seconds.
type TokenPair struct {
	AccessToken      string `json:"accessToken"`
	RefreshToken     string `json:"refreshToken"`
	ExpiresIn        int64  `json:"expiresIn"`
	RefreshExpiresIn int64  `json:"refreshExpiresIn"`
}

// AccessGrant is returned by Refresh. The refresh token presented stays valid.
type AccessGrant struct {
	AccessToken string `json:"accessToken"`
	ExpiresIn   int64  `json:"expiresIn"`
}

// LoginResult is returned by Login and Register.
type LoginResult struct {
	User   UserRecord
	Tokens TokenPair
}

// RegisterInput is the raw registration request.
type RegisterInput struct {
	Email    string
	Username string
	Password string
}

// AuditEvent is the structured record passed to an [AuditSink].
type AuditEvent = internalaudit.Event

// AuditSink receives audit events from the async dispatcher.
type AuditSink = internalaudit.Sink

// NoOpSink drops audit events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink buffers audit events in a channel. Useful in tests.
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink writes audit events as JSON lines.
type JSONWriterSink = internalaudit.JSONWriterSink

// ZapSink writes audit events through a zap logger.
type ZapSink = internalaudit.ZapSink

// NewChannelSink returns a [ChannelSink] with the given buffer size.
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink returns a [JSONWriterSink] writing to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

// NewZapSink returns a [ZapSink] logging under the "audit" name.
func NewZapSink(logger *zap.Logger) *ZapSink {
	return internalaudit.NewZapSink(logger)
}
