package goCred

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"testing"
)

type memProvider struct {
	mu        sync.Mutex
	seq       int
	byID      map[string]UserRecord
	byEmail   map[string]string
	lookupErr error
	creates   int
}

func newMemProvider() *memProvider {
	return &memProvider{
		byID:    map[string]UserRecord{},
		byEmail: map[string]string{},
	}
}

func (p *memProvider) GetUserByEmail(_ context.Context, email string) (UserRecord, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.lookupErr != nil {
		return UserRecord{}, p.lookupErr
	}
	id, ok := p.byEmail[email]
	if !ok {
		return UserRecord{}, ErrUserNotFound
	}
	return p.byID[id], nil
}

func (p *memProvider) GetUserByID(_ context.Context, userID string) (UserRecord, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.lookupErr != nil {
		return UserRecord{}, p.lookupErr
	}
	u, ok := p.byID[userID]
	if !ok {
		return UserRecord{}, fmt.Errorf("%w: %s", ErrUserNotFound, userID)
	}
	return u, nil
}

func (p *memProvider) CreateUser(_ context.Context, in CreateUserInput) (UserRecord, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.creates++
	if _, ok := p.byEmail[in.Email]; ok {
		return UserRecord{}, ErrProviderDuplicateIdentifier
	}
	p.seq++
	u := UserRecord{
		ID:           "user-" + strconv.Itoa(p.seq),
		Email:        in.Email,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		PasswordHash: in.PasswordHash,
		Role:         in.Role,
		IsActive:     true,
	}
	p.byID[u.ID] = u
	p.byEmail[u.Email] = u.ID
	return u, nil
}

func (p *memProvider) UpdatePasswordHash(_ context.Context, userID, newHash string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	u, ok := p.byID[userID]
	if !ok {
		return ErrUserNotFound
	}
	u.PasswordHash = newHash
	p.byID[userID] = u
	return nil
}

func (p *memProvider) DeleteUser(_ context.Context, userID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	u, ok := p.byID[userID]
	if !ok {
		return ErrUserNotFound
	}
	delete(p.byID, userID)
	delete(p.byEmail, u.Email)
	return nil
}

func (p *memProvider) UpdateProfile(_ context.Context, userID string, upd ProfileUpdate) (UserRecord, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	u, ok := p.byID[userID]
	if !ok {
		return UserRecord{}, ErrUserNotFound
	}
	if upd.Email != nil && *upd.Email != u.Email {
		if _, taken := p.byEmail[*upd.Email]; taken {
			return UserRecord{}, ErrProviderDuplicateIdentifier
		}
		delete(p.byEmail, u.Email)
		u.Email = *upd.Email
		p.byEmail[u.Email] = u.ID
	}
	if upd.FirstName != nil {
		u.FirstName = *upd.FirstName
	}
	if upd.LastName != nil {
		u.LastName = *upd.LastName
	}
	p.byID[userID] = u
	return u, nil
}

func (p *memProvider) setActive(userID string, active bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	u := p.byID[userID]
	u.IsActive = active
	p.byID[userID] = u
}

type memSessions struct {
	mu         sync.Mutex
	tokens     map[string]string
	replaceErr error
	clearErr   error
	replaces   int
}

func newMemSessions() *memSessions {
	return &memSessions{tokens: map[string]string{}}
}

func (s *memSessions) Replace(_ context.Context, userID, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replaces++
	if s.replaceErr != nil {
		return s.replaceErr
	}
	s.tokens[userID] = token
	return nil
}

func (s *memSessions) Clear(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.clearErr != nil {
		return s.clearErr
	}
	delete(s.tokens, userID)
	return nil
}

func (s *memSessions) Current(_ context.Context, userID string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tok, ok := s.tokens[userID]
	return tok, ok, nil
}

func (s *memSessions) CompareAndSwap(_ context.Context, userID, expected, next string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.tokens[userID]; !ok || cur != expected {
		return false, nil
	}
	s.tokens[userID] = next
	return true, nil
}

func (s *memSessions) get(userID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tokens[userID]
}

// plainProvider hides the optional provider capabilities.
type plainProvider struct {
	UserProvider
}

// txProvider creates the account and writes its slot as one step, undoing
// the account when the slot write fails.
type txProvider struct {
	*memProvider
	sessions *memSessions
	slotErr  error
}

func (p *txProvider) CreateUserWithSession(ctx context.Context, in CreateUserInput, issue func(UserRecord) (string, error)) (UserRecord, error) {
	u, err := p.CreateUser(ctx, in)
	if err != nil {
		return UserRecord{}, err
	}
	token, err := issue(u)
	if err == nil {
		err = p.slotErr
	}
	if err == nil {
		p.sessions.mu.Lock()
		p.sessions.tokens[u.ID] = token
		p.sessions.mu.Unlock()
		return u, nil
	}
	_ = p.DeleteUser(ctx, u.ID)
	return UserRecord{}, err
}

// plainSessions hides CompareAndSwap.
type plainSessions struct {
	SessionStore
}

type recordingSink struct {
	mu   sync.Mutex
	jobs []string
	err  error
}

func (r *recordingSink) Submit(_ context.Context, name string, payload map[string]string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.jobs = append(r.jobs, name+":"+payload["userId"])
	return nil
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.JWT.AccessSecret = []byte("access-secret-for-tests-0123456789")
	cfg.JWT.RefreshSecret = []byte("refresh-secret-for-tests-0123456789")
	cfg.Password.Cost = 4
	return cfg
}

func newTestEngine(t *testing.T, mutate func(*Config)) (*Engine, *memProvider, *memSessions) {
	t.Helper()
	cfg := testConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	up := newMemProvider()
	sessions := newMemSessions()
	engine, err := New().
		WithConfig(cfg).
		WithUserProvider(up).
		WithSessionStore(sessions).
		Build()
	if err != nil {
		t.Fatalf("build engine: %v", err)
	}
	return engine, up, sessions
}

func registerAlice(t *testing.T, e *Engine) *AuthResult {
	t.Helper()
	res, err := e.Register(context.Background(), RegisterRequest{
		Email:     "a@x.com",
		FirstName: "Alice",
		LastName:  "Example",
		Password:  "secret1",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	return res
}

func requireRefreshInvalid(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected refresh failure")
	}
	if err != ErrRefreshInvalid {
		t.Fatalf("expected ErrRefreshInvalid, got %v", err)
	}
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("ErrRefreshInvalid must match ErrUnauthorized")
	}
}
