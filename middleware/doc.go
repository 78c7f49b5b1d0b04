// Package middleware holds the HTTP adapters around promptgate.Engine: the
// auth gate, CORS, client IP capture and panic recovery.
//
// # Auth gate
//
// [RequireAuth] reads the Authorization header, calls Validate, and on
// success stores the caller's promptgate.Identity in the request context,
// where [IdentityFromContext] retrieves it. Rejections are 401 responses with
// a JSON body {"error": "<message>"}.
//
// # What this package must NOT do
//
//   - Parse or create JWTs directly (delegates to Engine).
//   - Access Redis or the user store.
//   - Refresh or extend sessions.
package middleware
