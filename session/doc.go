// Package session persists login sessions in Redis.
//
// A session is written once at login under "<prefix>:<sessionID>" with a TTL
// equal to the configured session duration and is never extended on read. The
// key's existence is the only authority on whether a token bound to that
// session is still honored: logout deletes the key, expiry removes it.
//
// # What this package must NOT do
//
//   - Verify tokens or passwords.
//   - Refresh or slide TTLs.
package session
