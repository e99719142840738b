package flows

import (
	"context"

	"github.com/inkstone/wbauth/jwt"
)

// RefreshFailureKind classifies refresh flow failures for root-level mapping.
type RefreshFailureKind int

const (
	RefreshFailureNone RefreshFailureKind = iota
	RefreshFailureDecode
	RefreshFailureStore
	RefreshFailureNotFound
	RefreshFailureSubjectMismatch
	RefreshFailureIssueAccess
)

// RefreshResult carries either the new access token or failure metadata.
type RefreshResult struct {
	Failure     RefreshFailureKind
	Err         error
	UserID      string
	TokenID     string
	AccessToken string
	ExpiresIn   int64
}

type RefreshStore interface {
	GetRefreshTokenUserID(ctx context.Context, tokenID string) (string, bool, error)
}

// RefreshDeps captures refresh flow dependencies.
type RefreshDeps struct {
	ParseRefresh func(string) (*jwt.Claims, error)
	SignAccess   func(userID string) (string, int64, error)
	Store        RefreshStore
}

// RunRefresh verifies a refresh token, cross-checks its id against the revocation store
// and signs a new access token. The refresh token itself is not rotated.
func RunRefresh(ctx context.Context, refreshToken string, deps RefreshDeps) RefreshResult {
	claims, err := deps.ParseRefresh(refreshToken)
	if err != nil {
		return RefreshResult{Failure: RefreshFailureDecode, Err: err}
	}
	userID := claims.UserID()
	tokenID := claims.TokenID()

	storedUserID, found, err := deps.Store.GetRefreshTokenUserID(ctx, tokenID)
	if err != nil {
		return RefreshResult{Failure: RefreshFailureStore, Err: err, UserID: userID, TokenID: tokenID}
	}
	if !found {
		return RefreshResult{Failure: RefreshFailureNotFound, UserID: userID, TokenID: tokenID}
	}
	if storedUserID != userID {
		return RefreshResult{Failure: RefreshFailureSubjectMismatch, UserID: userID, TokenID: tokenID}
	}

	access, expiresIn, err := deps.SignAccess(userID)
	if err != nil {
		return RefreshResult{Failure: RefreshFailureIssueAccess, Err: err, UserID: userID, TokenID: tokenID}
	}

	return RefreshResult{
		UserID:      userID,
		TokenID:     tokenID,
		AccessToken: access,
		ExpiresIn:   expiresIn,
	}
}
