package flows

import (
	"context"
)

type LogoutStore interface {
	RevokeAllRefreshTokens(ctx context.Context, userID string) error
}

// LogoutDeps captures logout flow dependencies.
type LogoutDeps struct {
	Store LogoutStore
}

// RunLogoutAll revokes every refresh token owned by userID. Access tokens already
// handed out are left to expire on their own.
func RunLogoutAll(ctx context.Context, userID string, deps LogoutDeps) error {
	return deps.Store.RevokeAllRefreshTokens(ctx, userID)
}
