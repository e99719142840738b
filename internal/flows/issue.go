package flows

import (
	"context"
	"time"
)

// IssueFailureKind classifies issue flow failures for root-level mapping.
type IssueFailureKind int

const (
	IssueFailureNone IssueFailureKind = iota
	IssueFailureTokenID
	IssueFailureSignAccess
	IssueFailureSignRefresh
	IssueFailureSave
)

// IssueResult carries either a complete token pair or failure metadata. Token fields are
// empty whenever Failure is set.
type IssueResult struct {
	Failure          IssueFailureKind
	Err              error
	UserID           string
	TokenID          string
	AccessToken      string
	RefreshToken     string
	ExpiresIn        int64
	RefreshExpiresIn int64
}

type IssueStore interface {
	SaveRefreshToken(ctx context.Context, userID, tokenID string, ttl time.Duration) error
}

// IssueDeps captures issue flow dependencies.
type IssueDeps struct {
	NewTokenID  func() (string, error)
	SignAccess  func(userID string) (string, int64, error)
	SignRefresh func(userID, tokenID string) (string, int64, error)
	RefreshTTL  time.Duration
	Store       IssueStore
}

// RunIssue mints a token id, signs both tokens and registers the id in the revocation
// store. Tokens are only returned after the store write succeeded.
func RunIssue(ctx context.Context, userID string, deps IssueDeps) IssueResult {
	tokenID, err := deps.NewTokenID()
	if err != nil {
		return IssueResult{Failure: IssueFailureTokenID, Err: err, UserID: userID}
	}

	access, expiresIn, err := deps.SignAccess(userID)
	if err != nil {
		return IssueResult{Failure: IssueFailureSignAccess, Err: err, UserID: userID}
	}

	refresh, refreshExpiresIn, err := deps.SignRefresh(userID, tokenID)
	if err != nil {
		return IssueResult{Failure: IssueFailureSignRefresh, Err: err, UserID: userID}
	}

	if err := deps.Store.SaveRefreshToken(ctx, userID, tokenID, deps.RefreshTTL); err != nil {
		return IssueResult{Failure: IssueFailureSave, Err: err, UserID: userID, TokenID: tokenID}
	}

	return IssueResult{
		UserID:           userID,
		TokenID:          tokenID,
		AccessToken:      access,
		RefreshToken:     refresh,
		ExpiresIn:        expiresIn,
		RefreshExpiresIn: refreshExpiresIn,
	}
}
