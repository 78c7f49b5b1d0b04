package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/immerseseoul/promptgate"
)

var userColumns = []string{"id", "email", "username", "password_hash", "is_verified", "is_active", "plan"}

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err, "failed to create mock")
	t.Cleanup(mock.Close)
	return mock
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	oopsErr, ok := oops.AsOops(err)
	require.True(t, ok, "expected an oops error, got %T", err)
	assert.Equal(t, code, oopsErr.Code())
}

func TestUserStore_FindByEmail(t *testing.T) {
	query := regexp.QuoteMeta(selectUser + ` WHERE email = $1 AND is_active`)

	tests := []struct {
		name      string
		setupMock func(mock pgxmock.PgxPoolIface)
		want      *promptgate.UserRecord
		wantErr   error
		wantCode  string
	}{
		{
			name: "found",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(query).WithArgs("ana@example.com").
					WillReturnRows(pgxmock.NewRows(userColumns).
						AddRow("u1", "ana@example.com", "ana", "hash", true, true, "Enterprise"))
			},
			want: &promptgate.UserRecord{ID: "u1", Email: "ana@example.com", Username: "ana", PasswordHash: "hash", Verified: true, Active: true, Plan: "Enterprise"},
		},
		{
			name: "missing or inactive",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(query).WithArgs("ana@example.com").WillReturnError(pgx.ErrNoRows)
			},
			wantErr: promptgate.ErrUserNotFound,
		},
		{
			name: "database error",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(query).WithArgs("ana@example.com").WillReturnError(errors.New("connection refused"))
			},
			wantCode: "USER_QUERY_FAILED",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := newMock(t)
			tt.setupMock(mock)

			got, err := NewUserStore(mock).FindByEmail(context.Background(), "ana@example.com")
			switch {
			case tt.wantErr != nil:
				require.ErrorIs(t, err, tt.wantErr)
			case tt.wantCode != "":
				require.Error(t, err)
				assertCode(t, err, tt.wantCode)
			default:
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestUserStore_FindByID(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta(selectUser + ` WHERE id = $1 AND is_active`)).WithArgs("u9").
		WillReturnError(pgx.ErrNoRows)

	_, err := NewUserStore(mock).FindByID(context.Background(), "u9")
	require.ErrorIs(t, err, promptgate.ErrUserNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserStore_Exists(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(`SELECT EXISTS`).WithArgs("ana@example.com", "ana").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := NewUserStore(mock).Exists(context.Background(), "ana@example.com", "ana")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserStore_Create(t *testing.T) {
	nu := promptgate.NewUser{ID: "u1", Email: "ana@example.com", Username: "ana", PasswordHash: "hash", VerificationToken: "vtok"}

	tests := []struct {
		name      string
		setupMock func(mock pgxmock.PgxPoolIface)
		wantErr   error
		wantCode  string
	}{
		{
			name: "inserts user and rate limit row",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectBegin()
				mock.ExpectExec(`INSERT INTO users`).WithArgs("u1", "ana@example.com", "ana", "hash", "vtok").
					WillReturnResult(pgxmock.NewResult("INSERT", 1))
				mock.ExpectExec(`INSERT INTO user_rate_limits`).WithArgs("u1").
					WillReturnResult(pgxmock.NewResult("INSERT", 1))
				mock.ExpectCommit()
			},
		},
		{
			name: "unique violation is user exists",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectBegin()
				mock.ExpectExec(`INSERT INTO users`).WithArgs("u1", "ana@example.com", "ana", "hash", "vtok").
					WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation})
				mock.ExpectRollback()
			},
			wantErr: promptgate.ErrUserExists,
		},
		{
			name: "rate limit row failure rolls back",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectBegin()
				mock.ExpectExec(`INSERT INTO users`).WithArgs("u1", "ana@example.com", "ana", "hash", "vtok").
					WillReturnResult(pgxmock.NewResult("INSERT", 1))
				mock.ExpectExec(`INSERT INTO user_rate_limits`).WithArgs("u1").
					WillReturnError(errors.New("disk full"))
				mock.ExpectRollback()
			},
			wantCode: "USER_CREATE_FAILED",
		},
		{
			name: "begin failure",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectBegin().WillReturnError(errors.New("connection refused"))
			},
			wantCode: "USER_CREATE_FAILED",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := newMock(t)
			tt.setupMock(mock)

			err := NewUserStore(mock).Create(context.Background(), nu)
			switch {
			case tt.wantErr != nil:
				require.ErrorIs(t, err, tt.wantErr)
			case tt.wantCode != "":
				require.Error(t, err)
				assertCode(t, err, tt.wantCode)
			default:
				require.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestUserStore_RedeemVerificationToken(t *testing.T) {
	t.Run("redeems once", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery(`UPDATE users SET is_verified = TRUE, verification_token = NULL`).WithArgs("vtok").
			WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow("u1"))
		mock.ExpectQuery(`UPDATE users SET is_verified = TRUE, verification_token = NULL`).WithArgs("vtok").
			WillReturnError(pgx.ErrNoRows)

		store := NewUserStore(mock)
		id, err := store.RedeemVerificationToken(context.Background(), "vtok")
		require.NoError(t, err)
		assert.Equal(t, "u1", id)

		_, err = store.RedeemVerificationToken(context.Background(), "vtok")
		require.ErrorIs(t, err, promptgate.ErrVerificationInvalid)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("database error", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery(`UPDATE users`).WithArgs("vtok").WillReturnError(errors.New("timeout"))

		_, err := NewUserStore(mock).RedeemVerificationToken(context.Background(), "vtok")
		require.Error(t, err)
		assert.NotErrorIs(t, err, promptgate.ErrVerificationInvalid)
		assertCode(t, err, "USER_VERIFY_FAILED")
	})
}

func TestUserStore_UpdatePasswordHash(t *testing.T) {
	mock := newMock(t)
	mock.ExpectExec(`UPDATE users SET password_hash`).WithArgs("newhash", "u1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`UPDATE users SET password_hash`).WithArgs("newhash", "u9").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	store := NewUserStore(mock)
	require.NoError(t, store.UpdatePasswordHash(context.Background(), "u1", "newhash"))
	require.ErrorIs(t, store.UpdatePasswordHash(context.Background(), "u9", "newhash"), promptgate.ErrUserNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
