package flows

import "time"

// Deps groups flow dependency sets. Root engine builds this once and delegates
// request methods to the matching flow implementation.
type Deps struct {
	Issue    IssueDeps
	Refresh  RefreshDeps
	Identity IdentityDeps
	Logout   LogoutDeps
	Login    LoginDeps
	Register RegisterDeps
}

// UserRecord is the flow-local user model used by login and register flows.
type UserRecord struct {
	UserID       string
	Email        string
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}
