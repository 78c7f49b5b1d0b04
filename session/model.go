package session

import "time"

// Session is the server-side record bound to an issued token.
type Session struct {
	SessionID string
	UserID    string
	// LoginType is empty for the JSON login flow and "legacy" for the form flow.
	LoginType string
	CreatedAt time.Time
}
