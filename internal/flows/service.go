package flows

import (
	"context"
)

// Service is the centralized flow runner built once by the root engine.
type Service struct {
	deps Deps
}

// New returns a flow service with immutable dependency wiring.
func New(deps Deps) Service {
	return Service{deps: deps}
}

// Initialized reports whether the service has been wired with flow deps.
func (s Service) Initialized() bool {
	return s.deps.Identity.ParseAccess != nil && s.deps.Issue.Store != nil
}

func (s Service) Issue(ctx context.Context, userID string) IssueResult {
	return RunIssue(ctx, userID, s.deps.Issue)
}

func (s Service) Refresh(ctx context.Context, refreshToken string) RefreshResult {
	return RunRefresh(ctx, refreshToken, s.deps.Refresh)
}

func (s Service) RequireIdentity(token string) IdentityResult {
	return RunRequireIdentity(token, s.deps.Identity)
}

func (s Service) LogoutAll(ctx context.Context, userID string) error {
	return RunLogoutAll(ctx, userID, s.deps.Logout)
}

func (s Service) VerifyCredentials(ctx context.Context, email, password string) LoginResult {
	return RunVerifyCredentials(ctx, email, password, s.deps.Login)
}

func (s Service) Register(ctx context.Context, req RegisterRequest) RegisterResult {
	return RunRegister(ctx, req, s.deps.Register)
}
