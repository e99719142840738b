// Package middleware adapts wbauth.Engine to net/http.
//
// [RequireIdentity] reads the Authorization header, calls Engine.RequireIdentity and
// injects the authenticated user id into the request context, where handlers read it
// with [UserIDFromContext].
//
// This package does not parse tokens or touch Redis. Every decision is delegated to
// the Engine.
package middleware
