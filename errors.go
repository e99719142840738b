package wbauth

import "errors"

var (
	// ErrUnauthenticated is returned by RequireIdentity when the access token is missing,
	// malformed, expired, wrongly signed or of the wrong kind.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrRefreshFailed is returned by Refresh for every refresh-token rejection, including a
	// token whose id is no longer in the revocation store.
	ErrRefreshFailed = errors.New("refresh failed")
	// ErrStoreUnavailable wraps infrastructure failures of the revocation store. It is never
	// used for an absent entry.
	ErrStoreUnavailable = errors.New("revocation store unavailable")
	// ErrInvalidCredentials is returned by Login for unknown emails and wrong passwords alike.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserNotFound is returned by a UserProvider when no user matches.
	ErrUserNotFound = errors.New("user not found")
	// ErrAccountExists is returned by a UserProvider and Register on duplicate email.
	ErrAccountExists = errors.New("account already exists")
	// ErrRegistrationInvalid is returned by Register when input fails validation.
	ErrRegistrationInvalid = errors.New("invalid registration request")
	// ErrTokenIssueFailed is returned when signing or id generation fails.
	ErrTokenIssueFailed = errors.New("token issue failed")
	// ErrEngineNotReady is returned when an Engine was not produced by Builder.Build.
	ErrEngineNotReady = errors.New("engine not initialized")
)
