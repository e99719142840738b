// Package jwt signs and verifies the HS256 access and refresh tokens issued by wbauth.
// Each kind has its own secret and a "type" claim, so a token is only accepted by the
// verifier for its own kind.
package jwt
