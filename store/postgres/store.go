package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"

	"github.com/immerseseoul/promptgate"
)

// poolIface is the subset of *pgxpool.Pool the store uses. pgxmock's pool
// satisfies it in unit tests.
type poolIface interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// UserStore is a promptgate.UserStore backed by PostgreSQL.
type UserStore struct {
	pool poolIface
}

var _ promptgate.UserStore = (*UserStore)(nil)

// NewUserStore wraps an existing pool.
func NewUserStore(pool poolIface) *UserStore {
	return &UserStore{pool: pool}
}

// Connect opens a pool for dsn and verifies it with a ping.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, oops.Code("DB_CONNECT_FAILED").With("operation", "create pool").Wrap(err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, oops.Code("DB_CONNECT_FAILED").With("operation", "ping").Wrap(err)
	}
	return pool, nil
}

const selectUser = `SELECT id, email, username, password_hash, is_verified, is_active, plan FROM users`

func scanUser(row pgx.Row) (*promptgate.UserRecord, error) {
	var u promptgate.UserRecord
	if err := row.Scan(&u.ID, &u.Email, &u.Username, &u.PasswordHash, &u.Verified, &u.Active, &u.Plan); err != nil {
		return nil, err
	}
	return &u, nil
}

// FindByEmail returns the active user with email.
func (s *UserStore) FindByEmail(ctx context.Context, email string) (*promptgate.UserRecord, error) {
	u, err := scanUser(s.pool.QueryRow(ctx, selectUser+` WHERE email = $1 AND is_active`, email))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, promptgate.ErrUserNotFound
	}
	if err != nil {
		return nil, oops.Code("USER_QUERY_FAILED").With("operation", "find user by email").Wrap(err)
	}
	return u, nil
}

// FindByID returns the active user with id.
func (s *UserStore) FindByID(ctx context.Context, id string) (*promptgate.UserRecord, error) {
	u, err := scanUser(s.pool.QueryRow(ctx, selectUser+` WHERE id = $1 AND is_active`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, promptgate.ErrUserNotFound
	}
	if err != nil {
		return nil, oops.Code("USER_QUERY_FAILED").With("operation", "find user by id").With("user_id", id).Wrap(err)
	}
	return u, nil
}

// Exists reports whether email or username is already registered.
func (s *UserStore) Exists(ctx context.Context, email, username string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE email = $1 OR username = $2)`,
		email, username).Scan(&exists)
	if err != nil {
		return false, oops.Code("USER_QUERY_FAILED").With("operation", "check existing user").Wrap(err)
	}
	return exists, nil
}

// Create inserts an unverified user and its rate-limit row in one transaction.
func (s *UserStore) Create(ctx context.Context, nu promptgate.NewUser) (err error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return oops.Code("USER_CREATE_FAILED").With("operation", "begin").Wrap(err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx) //nolint:errcheck // the insert error takes precedence
		}
	}()

	_, err = tx.Exec(ctx,
		`INSERT INTO users (id, email, username, password_hash, is_verified, verification_token)
		 VALUES ($1, $2, $3, $4, FALSE, $5)`,
		nu.ID, nu.Email, nu.Username, nu.PasswordHash, nu.VerificationToken)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return promptgate.ErrUserExists
		}
		return oops.Code("USER_CREATE_FAILED").With("operation", "insert user").With("user_id", nu.ID).Wrap(err)
	}

	if _, err = tx.Exec(ctx, `INSERT INTO user_rate_limits (user_id) VALUES ($1)`, nu.ID); err != nil {
		return oops.Code("USER_CREATE_FAILED").With("operation", "insert rate limit row").With("user_id", nu.ID).Wrap(err)
	}

	if err = tx.Commit(ctx); err != nil {
		return oops.Code("USER_CREATE_FAILED").With("operation", "commit").With("user_id", nu.ID).Wrap(err)
	}
	return nil
}

// RedeemVerificationToken verifies the token's owner and clears the token.
// The single UPDATE makes concurrent redemptions of one token yield one winner.
func (s *UserStore) RedeemVerificationToken(ctx context.Context, token string) (string, error) {
	var id string
	err := s.pool.QueryRow(ctx,
		`UPDATE users SET is_verified = TRUE, verification_token = NULL
		 WHERE verification_token = $1
		 RETURNING id`,
		token).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", promptgate.ErrVerificationInvalid
	}
	if err != nil {
		return "", oops.Code("USER_VERIFY_FAILED").With("operation", "redeem verification token").Wrap(err)
	}
	return id, nil
}

// UpdatePasswordHash replaces a user's stored hash.
func (s *UserStore) UpdatePasswordHash(ctx context.Context, userID, hash string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE users SET password_hash = $1 WHERE id = $2`, hash, userID)
	if err != nil {
		return oops.Code("USER_UPDATE_FAILED").With("operation", "update password hash").With("user_id", userID).Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return promptgate.ErrUserNotFound
	}
	return nil
}
