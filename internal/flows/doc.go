// Package flows holds the orchestration behind each Engine operation.
//
// Every flow is a function taking a typed dependency struct: RunRegister,
// RunAuthenticate, RunValidate, RunLogout and RunVerifyEmail. Both login
// channels go through RunAuthenticate, so rate limiting, the verification
// requirement and session minting cannot drift between them.
//
// # What this package must NOT do
//
//   - Hold state between calls.
//   - Import the root promptgate package.
//   - Perform I/O except through its dependency functions.
package flows
