// Package session provides the Redis-backed revocation store for refresh tokens.
//
// # Architecture boundaries
//
// This package owns the [Store] and its key layout. It does NOT parse or sign tokens and
// does NOT decide whether a refresh is allowed; the Engine combines the store answer
// with the token claims.
//
// # What this package must NOT do
//
//   - Import wbauth or jwt (no upward imports).
//   - Store token strings. Only opaque token ids and user ids are written.
//   - Treat a missing key as an error. Absence means revoked or expired.
package session
