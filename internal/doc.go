// Package internal contains helpers that are private to wbauth, currently the
// refresh-token id generator.
//
// # Sub-packages
//
//   - audit — async event dispatch (Dispatcher + Sink implementations)
//   - flows — pure-function flow orchestrators for every Engine operation
//   - config — viper-based loader for the wbauthd daemon
//   - obs — zap logger construction and the metrics listener
//   - httpapi — REST handlers for the auth endpoints
//
// # What this package must NOT do
//
//   - Export types that appear in the public wbauth API.
//   - Be imported by any package outside the wbauth module.
package internal
