// Package wbauth is the session subsystem of a whiteboard service. It issues signed
// access and refresh tokens, records live refresh-token ids in a Redis revocation
// store, exchanges refresh tokens for new access tokens and revokes every refresh
// token of a user on logout.
//
// Engine methods are safe to call from multiple goroutines after [Builder.Build].
//
// # Token model
//
// Access tokens are stateless: RequireIdentity checks only signature, kind and expiry,
// so an access token keeps working after Logout until its own expiry. Refresh tokens
// carry a random id that must also be present in the revocation store and owned by the
// token's subject. Refresh does not rotate the refresh token.
//
// # Errors
//
// Token rejections surface as [ErrUnauthenticated] (access) or [ErrRefreshFailed]
// (refresh). Revocation store outages surface as [ErrStoreUnavailable] and are never
// reported as a token rejection.
//
// # Architecture boundaries
//
// wbauth is the public surface. Flow orchestration and audit dispatch live under
// internal/. The HTTP surface lives in internal/httpapi and the daemon in cmd/wbauthd.
package wbauth
