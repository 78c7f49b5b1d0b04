package flows

import (
	"context"
	"errors"
	"testing"

	"github.com/immerseseoul/promptgate/jwt"
	"github.com/immerseseoul/promptgate/session"
)

var errNoSession = errors.New("no session")

func validateDeps(sessions map[string]*session.Session, users map[string]UserRecord) ValidateDeps {
	return ValidateDeps{
		ParseToken: func(token string) (*jwt.Claims, error) {
			switch token {
			case "good":
				return &jwt.Claims{UserID: "u1", SessionID: "s1"}, nil
			case "orphan":
				return &jwt.Claims{UserID: "u9", SessionID: "s9"}, nil
			case "stolen":
				return &jwt.Claims{UserID: "u2", SessionID: "s1"}, nil
			}
			return nil, jwt.ErrTokenInvalid
		},
		GetSession: func(_ context.Context, id string) (*session.Session, error) {
			if s, ok := sessions[id]; ok {
				return s, nil
			}
			return nil, errNoSession
		},
		SessionNotFound: errNoSession,
		FindUserByID: func(_ context.Context, id string) (UserRecord, error) {
			if u, ok := users[id]; ok {
				return u, nil
			}
			return UserRecord{}, errNoUser
		},
		UserNotFound: errNoUser,
	}
}

func TestValidateGateOrder(t *testing.T) {
	sessions := map[string]*session.Session{
		"s1": {SessionID: "s1", UserID: "u1"},
		"s9": {SessionID: "s9", UserID: "u9"},
	}
	users := map[string]UserRecord{"u1": {ID: "u1", Email: "ana@example.com"}}

	tests := []struct {
		token string
		want  ValidateFailure
	}{
		{"", ValidateNoToken},
		{"garbage", ValidateInvalidToken},
		{"stolen", ValidateSessionExpired},
		{"orphan", ValidateUserNotFound},
		{"good", ValidateOK},
	}
	for _, tt := range tests {
		res := RunValidate(context.Background(), tt.token, validateDeps(sessions, users))
		if res.Failure != tt.want {
			t.Fatalf("token %q: expected %s, got %s", tt.token, tt.want, res.Failure)
		}
	}

	delete(sessions, "s1")
	if res := RunValidate(context.Background(), "good", validateDeps(sessions, users)); res.Failure != ValidateSessionExpired {
		t.Fatalf("deleted session: expected session_expired, got %s", res.Failure)
	}
}

func TestValidateStoreFailureIsUnavailable(t *testing.T) {
	deps := validateDeps(nil, nil)
	boom := errors.New("redis down")
	deps.GetSession = func(context.Context, string) (*session.Session, error) { return nil, boom }
	res := RunValidate(context.Background(), "good", deps)
	if res.Failure != ValidateUnavailable || !errors.Is(res.Err, boom) {
		t.Fatalf("expected unavailable wrapping %v, got %+v", boom, res)
	}
}

func TestLogoutIsNoopForBadTokens(t *testing.T) {
	deleted := 0
	deps := LogoutDeps{
		ParseToken:    validateDeps(nil, nil).ParseToken,
		DeleteSession: func(context.Context, string) error { deleted++; return nil },
	}
	for _, tok := range []string{"", "garbage"} {
		if err := RunLogout(context.Background(), tok, deps); err != nil {
			t.Fatalf("token %q: %v", tok, err)
		}
	}
	if deleted != 0 {
		t.Fatalf("expected no deletes, got %d", deleted)
	}
	if err := RunLogout(context.Background(), "good", deps); err != nil || deleted != 1 {
		t.Fatalf("expected one delete, got %d err=%v", deleted, err)
	}
}

func TestVerifyEmail(t *testing.T) {
	errTok := errors.New("bad token")
	tokens := map[string]string{"vtok": "u1"}
	deps := VerifyEmailDeps{
		Redeem: func(_ context.Context, tok string) (string, error) {
			id, ok := tokens[tok]
			if !ok {
				return "", errTok
			}
			delete(tokens, tok)
			return id, nil
		},
		Errors: VerifyEmailErrors{MissingToken: errFields, Invalid: errTok},
	}
	if _, err := RunVerifyEmail(context.Background(), " ", deps); !errors.Is(err, errFields) {
		t.Fatalf("expected missing token, got %v", err)
	}
	id, err := RunVerifyEmail(context.Background(), "vtok", deps)
	if err != nil || id != "u1" {
		t.Fatalf("expected u1, got %q err=%v", id, err)
	}
	if _, err := RunVerifyEmail(context.Background(), "vtok", deps); !errors.Is(err, errTok) {
		t.Fatalf("second redeem: expected invalid, got %v", err)
	}
}

func TestValidateMalformedSessionIDSkipsStore(t *testing.T) {
	lookups := 0
	deps := validateDeps(map[string]*session.Session{"s1": {SessionID: "s1", UserID: "u1"}}, nil)
	deps.GetSession = func(context.Context, string) (*session.Session, error) {
		lookups++
		return nil, errNoSession
	}
	deps.CheckSessionID = func(string) error { return errors.New("bad id") }

	res := RunValidate(context.Background(), "good", deps)
	if res.Failure != ValidateSessionExpired {
		t.Fatalf("expected session_expired, got %s", res.Failure)
	}
	if lookups != 0 {
		t.Fatalf("expected no session lookup, got %d", lookups)
	}
}

func TestVerifyEmailRejectsMalformedToken(t *testing.T) {
	errTok := errors.New("bad token")
	redeemed := 0
	var outcomes []Outcome
	deps := VerifyEmailDeps{
		Redeem: func(context.Context, string) (string, error) {
			redeemed++
			return "u1", nil
		},
		CheckFormat: func(tok string) error {
			if tok != "well-formed" {
				return errors.New("malformed")
			}
			return nil
		},
		Report: func(_ context.Context, o Outcome) { outcomes = append(outcomes, o) },
		Errors: VerifyEmailErrors{MissingToken: errFields, Invalid: errTok},
	}

	if _, err := RunVerifyEmail(context.Background(), "not base64!", deps); !errors.Is(err, errTok) {
		t.Fatalf("expected invalid, got %v", err)
	}
	if redeemed != 0 {
		t.Fatal("malformed token must not reach the store")
	}
	if len(outcomes) != 1 || outcomes[0].Reason != ReasonInvalidToken {
		t.Fatalf("unexpected outcomes %+v", outcomes)
	}
	if _, err := RunVerifyEmail(context.Background(), "well-formed", deps); err != nil || redeemed != 1 {
		t.Fatalf("expected redeem, got err=%v redeemed=%d", err, redeemed)
	}
}
