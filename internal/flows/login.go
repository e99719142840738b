package flows

import (
	"context"
	"errors"
)

// LoginFailureKind classifies credential check failures.
type LoginFailureKind int

const (
	LoginFailureNone LoginFailureKind = iota
	LoginFailureUserNotFound
	LoginFailureLookup
	LoginFailureVerify
	LoginFailureMismatch
)

// LoginResult carries the authenticated user or failure metadata.
type LoginResult struct {
	Failure LoginFailureKind
	Err     error
	User    UserRecord
}

// LoginDeps captures credential check dependencies.
//
// DummyHash, when set, is verified against on unknown emails so both failure paths spend
// comparable time in the hasher.
type LoginDeps struct {
	FindUserByEmail func(ctx context.Context, email string) (UserRecord, error)
	VerifyPassword  func(plaintext, encodedHash string) (bool, error)
	DummyHash       string
	UserNotFound    error
}

// RunVerifyCredentials looks up email and checks password against the stored hash.
func RunVerifyCredentials(ctx context.Context, email, password string, deps LoginDeps) LoginResult {
	user, err := deps.FindUserByEmail(ctx, email)
	if err != nil {
		if deps.UserNotFound != nil && errors.Is(err, deps.UserNotFound) {
			if deps.DummyHash != "" {
				_, _ = deps.VerifyPassword(password, deps.DummyHash)
			}
			return LoginResult{Failure: LoginFailureUserNotFound, Err: err}
		}
		return LoginResult{Failure: LoginFailureLookup, Err: err}
	}

	ok, err := deps.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return LoginResult{Failure: LoginFailureVerify, Err: err, User: user}
	}
	if !ok {
		return LoginResult{Failure: LoginFailureMismatch, User: user}
	}

	return LoginResult{User: user}
}
