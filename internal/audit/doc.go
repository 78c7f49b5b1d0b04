// Package audit carries security events (logins, logouts, registrations,
// email verifications) from the engine to a pluggable sink without blocking
// the request path.
//
// The Dispatcher owns one goroutine. Emit either enqueues or, when the buffer
// is full and DropIfFull is set, counts a drop. Close drains what is queued and
// waits for the goroutine to exit.
package audit
