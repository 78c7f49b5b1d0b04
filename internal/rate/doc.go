// Package rate implements the Redis-backed login attempt limiter shared by the
// JSON and form login channels.
//
// # Window semantics
//
// Fixed-window counters: INCR, then EXPIRE on the first hit of a window. Keys:
//   - rl:login:<sha256(identifier)>  failed logins per account identifier
//   - rl:login-ip:<ip>               failed logins per client IP (optional)
//
// Identifiers are hashed so raw email addresses never appear in key names.
package rate
