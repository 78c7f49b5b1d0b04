package flows

import "context"

// UserRecord is the flow-local view of a stored user.
type UserRecord struct {
	ID           string
	Email        string
	Username     string
	PasswordHash string
	Plan         string
	Verified     bool
	Active       bool
}

// Outcome describes the result of one flow run for metrics and audit.
type Outcome struct {
	Success   bool
	UserID    string
	SessionID string
	LoginType string
	Reason    string
	Err       error
	Metadata  map[string]string
}

// Reporter receives flow outcomes. Nil reporters are replaced with a no-op.
type Reporter func(ctx context.Context, out Outcome)

// Warner logs a non-fatal problem that does not change the flow's result.
type Warner func(ctx context.Context, msg string, err error)

func (r Reporter) orNop() Reporter {
	if r == nil {
		return func(context.Context, Outcome) {}
	}
	return r
}

func (w Warner) orNop() Warner {
	if w == nil {
		return func(context.Context, string, error) {}
	}
	return w
}
