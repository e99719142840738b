package flows

import (
	"github.com/inkstone/wbauth/jwt"
)

// IdentityFailureKind classifies access-token rejections.
type IdentityFailureKind int

const (
	IdentityFailureNone IdentityFailureKind = iota
	IdentityFailureMissing
	IdentityFailureInvalid
)

// IdentityResult carries the authenticated user id or failure metadata.
type IdentityResult struct {
	Failure IdentityFailureKind
	Err     error
	UserID  string
}

// IdentityDeps captures access-token verification dependencies.
type IdentityDeps struct {
	ParseAccess func(string) (*jwt.Claims, error)
}

// RunRequireIdentity verifies an access token without touching the revocation store.
func RunRequireIdentity(token string, deps IdentityDeps) IdentityResult {
	if token == "" {
		return IdentityResult{Failure: IdentityFailureMissing}
	}
	claims, err := deps.ParseAccess(token)
	if err != nil {
		return IdentityResult{Failure: IdentityFailureInvalid, Err: err}
	}
	return IdentityResult{UserID: claims.UserID()}
}
