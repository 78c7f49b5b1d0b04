// Package promptgate is the authentication and session core of the Immerse
// Seoul image service: registration with email verification, password login
// over two channels (JSON and HTML form), Redis-backed revocable sessions, and
// the bearer-token gate in front of protected routes.
//
// Engine methods are safe for concurrent use after [Builder.Build].
//
// # Architecture boundaries
//
// promptgate exposes [Engine], [Builder], [Config] and the value types that
// cross its surface ([Identity], [LoginResult], [UserRecord]). Flow
// orchestration, rate limiting and audit dispatch live under internal/.
// Persistence of users and delivery of verification mail are collaborators
// reached through [UserStore] and [Mailer]; concrete adapters live in
// store/postgres, store/memory and internal/mailer.
//
// # What this package must NOT do
//
//   - Speak HTTP. Transport lives in internal/httpapi and middleware.
//   - Extend a session on access. A session lives exactly its configured TTL
//     unless logout removes it first.
//   - Tell callers whether an unknown email or a wrong password caused a
//     failed login.
package promptgate
