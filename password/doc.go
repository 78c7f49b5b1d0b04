// Package password hashes and verifies user passwords with Argon2id.
//
// # Output format
//
// Hashes are encoded as PHC strings:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// Every hash carries its own random salt, so two users with the same password
// never share a stored value. [Hasher.NeedsUpgrade] reports hashes produced with
// weaker parameters so the caller can re-hash after the next successful login.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords.
//   - Enforce password policy beyond the empty and oversized checks.
//   - Log plaintext passwords.
package password
