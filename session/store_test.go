package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		rdb.Close()
		mr.Close()
	})
	return NewStore(rdb, ""), mr
}

func testSession() *Session {
	return &Session{
		SessionID: "sid-1",
		UserID:    "u-1",
		CreatedAt: time.UnixMilli(1700000000123).UTC(),
	}
}

func TestSaveGetDelete(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()
	sess := testSession()

	if err := store.Save(ctx, sess, time.Hour); err != nil {
		t.Fatalf("save: %v", err)
	}
	if !mr.Exists("session:sid-1") {
		t.Fatal("expected key session:sid-1")
	}

	got, err := store.Get(ctx, "sid-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.SessionID != "sid-1" || got.UserID != "u-1" || !got.CreatedAt.Equal(sess.CreatedAt) || got.LoginType != "" {
		t.Fatalf("unexpected session: %+v", got)
	}

	if err := store.Delete(ctx, "sid-1"); err != nil {
		t.Fatalf("first delete: %v", err)
	}
	if err := store.Delete(ctx, "sid-1"); err != nil {
		t.Fatalf("second delete: %v", err)
	}
	if _, err := store.Get(ctx, "sid-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestGetDoesNotExtendTTL(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	if err := store.Save(ctx, testSession(), 10*time.Second); err != nil {
		t.Fatalf("save: %v", err)
	}
	mr.FastForward(4 * time.Second)
	if _, err := store.Get(ctx, "sid-1"); err != nil {
		t.Fatalf("get: %v", err)
	}
	if ttl := mr.TTL("session:sid-1"); ttl != 6*time.Second {
		t.Fatalf("ttl after read = %v, want 6s", ttl)
	}

	mr.FastForward(6 * time.Second)
	if _, err := store.Get(ctx, "sid-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected expired session to be absent, got %v", err)
	}
}

func TestSaveLastWriteWins(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	first := testSession()
	second := testSession()
	second.LoginType = "legacy"

	if err := store.Save(ctx, first, time.Hour); err != nil {
		t.Fatalf("save first: %v", err)
	}
	if err := store.Save(ctx, second, time.Hour); err != nil {
		t.Fatalf("save second: %v", err)
	}
	got, err := store.Get(ctx, "sid-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.LoginType != "legacy" {
		t.Fatalf("login type = %q, want legacy", got.LoginType)
	}
}

func TestTTLReportsRemaining(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	if _, err := store.TTL(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := store.Save(ctx, testSession(), time.Minute); err != nil {
		t.Fatalf("save: %v", err)
	}
	d, err := store.TTL(ctx, "sid-1")
	if err != nil {
		t.Fatalf("ttl: %v", err)
	}
	if d <= 0 || d > time.Minute {
		t.Fatalf("ttl = %v, want (0, 1m]", d)
	}
}

func TestStoreReportsRedisUnavailable(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()
	mr.Close()

	if err := store.Save(ctx, testSession(), time.Hour); !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("save: expected ErrRedisUnavailable, got %v", err)
	}
	if _, err := store.Get(ctx, "sid-1"); !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("get: expected ErrRedisUnavailable, got %v", err)
	}
	if _, err := store.Ping(ctx); !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("ping: expected ErrRedisUnavailable, got %v", err)
	}
}

func TestSaveRejectsInvalidInput(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	if err := store.Save(ctx, &Session{UserID: "u"}, time.Hour); err == nil {
		t.Fatal("expected missing session id to be rejected")
	}
	if err := store.Save(ctx, testSession(), 0); err == nil {
		t.Fatal("expected zero ttl to be rejected")
	}
}
