//go:build integration

package postgres_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/immerseseoul/promptgate"
	"github.com/immerseseoul/promptgate/store/postgres"
)

func setupStore(t *testing.T) *postgres.UserStore {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("promptgate_test"),
		tcpostgres.WithUsername("promptgate"),
		tcpostgres.WithPassword("promptgate"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	migrator, err := postgres.NewMigrator(dsn)
	require.NoError(t, err)
	require.NoError(t, migrator.Up())
	require.NoError(t, migrator.Close())

	pool, err := postgres.Connect(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	return postgres.NewUserStore(pool)
}

func TestUserStoreLifecycle(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, promptgate.NewUser{
		ID: "u1", Email: "ana@example.com", Username: "ana", PasswordHash: "hash", VerificationToken: "vtok",
	}))

	err := store.Create(ctx, promptgate.NewUser{ID: "u2", Email: "ana@example.com", Username: "other", PasswordHash: "hash", VerificationToken: "v2"})
	require.ErrorIs(t, err, promptgate.ErrUserExists)
	err = store.Create(ctx, promptgate.NewUser{ID: "u3", Email: "other@example.com", Username: "ana", PasswordHash: "hash", VerificationToken: "v3"})
	require.ErrorIs(t, err, promptgate.ErrUserExists)

	u, err := store.FindByEmail(ctx, "ana@example.com")
	require.NoError(t, err)
	assert.False(t, u.Verified)
	assert.Equal(t, promptgate.PlanFree, u.Plan)

	var wg sync.WaitGroup
	results := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.RedeemVerificationToken(ctx, "vtok")
			results <- err
		}()
	}
	wg.Wait()
	close(results)
	wins := 0
	for err := range results {
		if err == nil {
			wins++
		} else {
			assert.ErrorIs(t, err, promptgate.ErrVerificationInvalid)
		}
	}
	assert.Equal(t, 1, wins)

	u, err = store.FindByID(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, u.Verified)
}
