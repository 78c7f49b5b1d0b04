package memory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/immerseseoul/promptgate"
)

func TestCreateRejectsDuplicates(t *testing.T) {
	s := New()
	ctx := context.Background()
	if err := s.Create(ctx, promptgate.NewUser{ID: "1", Email: "a@x.io", Username: "a", VerificationToken: "t1"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := s.Create(ctx, promptgate.NewUser{ID: "2", Email: "a@x.io", Username: "b"}); !errors.Is(err, promptgate.ErrUserExists) {
		t.Fatalf("duplicate email: expected ErrUserExists, got %v", err)
	}
	if err := s.Create(ctx, promptgate.NewUser{ID: "3", Email: "c@x.io", Username: "a"}); !errors.Is(err, promptgate.ErrUserExists) {
		t.Fatalf("duplicate username: expected ErrUserExists, got %v", err)
	}
	u, err := s.FindByEmail(ctx, "a@x.io")
	if err != nil {
		t.Fatalf("FindByEmail: %v", err)
	}
	if u.Verified || !u.Active || u.Plan != promptgate.PlanFree {
		t.Fatalf("unexpected new user state %+v", u)
	}
}

func TestRedeemIsOneShotUnderContention(t *testing.T) {
	s := New()
	ctx := context.Background()
	if err := s.Create(ctx, promptgate.NewUser{ID: "1", Email: "a@x.io", Username: "a", VerificationToken: "tok"}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.RedeemVerificationToken(ctx, "tok"); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if wins != 1 {
		t.Fatalf("expected exactly one redemption, got %d", wins)
	}
	u, _ := s.FindByID(ctx, "1")
	if !u.Verified {
		t.Fatal("user should be verified")
	}
	if _, ok := s.VerificationToken("a@x.io"); ok {
		t.Fatal("token should be cleared")
	}
}

func TestInactiveUserIsNotFound(t *testing.T) {
	s := New()
	s.Put(promptgate.UserRecord{ID: "1", Email: "a@x.io", Username: "a", Active: false})
	if _, err := s.FindByID(context.Background(), "1"); !errors.Is(err, promptgate.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}
