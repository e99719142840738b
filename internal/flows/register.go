package flows

import (
	"context"
	"errors"
)

// RegisterFailureKind classifies account creation failures.
type RegisterFailureKind int

const (
	RegisterFailureNone RegisterFailureKind = iota
	RegisterFailureHash
	RegisterFailureExists
	RegisterFailureCreate
)

// RegisterRequest is the already-validated registration input.
type RegisterRequest struct {
	Email    string
	Username string
	Password string
}

// RegisterResult carries the created user or failure metadata.
type RegisterResult struct {
	Failure RegisterFailureKind
	Err     error
	User    UserRecord
}

// RegisterDeps captures account creation dependencies.
type RegisterDeps struct {
	HashPassword  func(string) (string, error)
	CreateUser    func(ctx context.Context, email, username, passwordHash string) (UserRecord, error)
	AccountExists error
}

// RunRegister hashes the password and creates the user record.
func RunRegister(ctx context.Context, req RegisterRequest, deps RegisterDeps) RegisterResult {
	hash, err := deps.HashPassword(req.Password)
	if err != nil {
		return RegisterResult{Failure: RegisterFailureHash, Err: err}
	}

	user, err := deps.CreateUser(ctx, req.Email, req.Username, hash)
	if err != nil {
		if deps.AccountExists != nil && errors.Is(err, deps.AccountExists) {
			return RegisterResult{Failure: RegisterFailureExists, Err: err}
		}
		return RegisterResult{Failure: RegisterFailureCreate, Err: err}
	}

	return RegisterResult{User: user}
}
