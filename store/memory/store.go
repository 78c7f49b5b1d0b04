// Package memory is an in-process promptgate.UserStore for local development
// and tests. Data is lost when the process exits.
package memory

import (
	"context"
	"sync"

	"github.com/immerseseoul/promptgate"
)

type user struct {
	rec   promptgate.UserRecord
	token string
}

// Store keeps users in maps guarded by a RWMutex.
type Store struct {
	mu         sync.RWMutex
	byID       map[string]*user
	byEmail    map[string]string
	byUsername map[string]string
	byToken    map[string]string
}

var _ promptgate.UserStore = (*Store)(nil)

// New returns an empty Store.
func New() *Store {
	return &Store{
		byID:       make(map[string]*user),
		byEmail:    make(map[string]string),
		byUsername: make(map[string]string),
		byToken:    make(map[string]string),
	}
}

// Put inserts or replaces a user directly. Seeding only.
func (s *Store) Put(rec promptgate.UserRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.byID[rec.ID]; ok {
		delete(s.byEmail, old.rec.Email)
		delete(s.byUsername, old.rec.Username)
	}
	s.byID[rec.ID] = &user{rec: rec}
	s.byEmail[rec.Email] = rec.ID
	s.byUsername[rec.Username] = rec.ID
}

func (s *Store) FindByEmail(_ context.Context, email string) (*promptgate.UserRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byEmail[email]
	if !ok {
		return nil, promptgate.ErrUserNotFound
	}
	return s.activeCopy(id)
}

func (s *Store) FindByID(_ context.Context, id string) (*promptgate.UserRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeCopy(id)
}

func (s *Store) activeCopy(id string) (*promptgate.UserRecord, error) {
	u, ok := s.byID[id]
	if !ok || !u.rec.Active {
		return nil, promptgate.ErrUserNotFound
	}
	rec := u.rec
	return &rec, nil
}

func (s *Store) Exists(_ context.Context, email, username string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, emailTaken := s.byEmail[email]
	_, nameTaken := s.byUsername[username]
	return emailTaken || nameTaken, nil
}

func (s *Store) Create(_ context.Context, nu promptgate.NewUser) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byEmail[nu.Email]; ok {
		return promptgate.ErrUserExists
	}
	if _, ok := s.byUsername[nu.Username]; ok {
		return promptgate.ErrUserExists
	}
	s.byID[nu.ID] = &user{
		rec: promptgate.UserRecord{
			ID:           nu.ID,
			Email:        nu.Email,
			Username:     nu.Username,
			PasswordHash: nu.PasswordHash,
			Active:       true,
			Plan:         promptgate.PlanFree,
		},
		token: nu.VerificationToken,
	}
	s.byEmail[nu.Email] = nu.ID
	s.byUsername[nu.Username] = nu.ID
	if nu.VerificationToken != "" {
		s.byToken[nu.VerificationToken] = nu.ID
	}
	return nil
}

func (s *Store) RedeemVerificationToken(_ context.Context, token string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byToken[token]
	if !ok {
		return "", promptgate.ErrVerificationInvalid
	}
	delete(s.byToken, token)
	u := s.byID[id]
	u.rec.Verified = true
	u.token = ""
	return id, nil
}

func (s *Store) UpdatePasswordHash(_ context.Context, userID, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[userID]
	if !ok {
		return promptgate.ErrUserNotFound
	}
	u.rec.PasswordHash = hash
	return nil
}

// VerificationToken returns the pending token for email, if any. Tests use it
// in place of reading the verification mail.
func (s *Store) VerificationToken(email string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byEmail[email]
	if !ok {
		return "", false
	}
	tok := s.byID[id].token
	return tok, tok != ""
}
