// Package internal contains helpers private to promptgate, chiefly the
// random identifiers used for sessions and verification tokens.
//
// # Sub-packages
//
//   - audit: async event dispatch (Dispatcher + Sink implementations)
//   - config: koanf-backed loading of the service configuration
//   - flows: flow orchestrators for every Engine operation
//   - httpapi: the HTTP surface
//   - logging: slog setup and error helpers
//   - mailer: verification email delivery
//   - rate: Redis-backed login attempt limiter
package internal
