package goCred

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/MrEthical07/goCred/jwt"
	"github.com/MrEthical07/goCred/session"
	"github.com/alicebob/miniredis/v2"
	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

func TestRegisterThenValidateCredentials(t *testing.T) {
	engine, _, _ := newTestEngine(t, nil)
	res := registerAlice(t, engine)

	user := engine.ValidateCredentials(context.Background(), "a@x.com", "secret1")
	if user == nil {
		t.Fatalf("expected user for valid credentials")
	}
	if user.ID != res.User.ID {
		t.Fatalf("user id = %q, want %q", user.ID, res.User.ID)
	}
	if user.PasswordHash == "" || user.PasswordHash == "secret1" {
		t.Fatalf("expected stored digest on validated record")
	}
	if got := engine.ValidateCredentials(context.Background(), " A@X.com ", "secret1"); got == nil {
		t.Fatalf("email lookup must be case and space insensitive")
	}
	if got := engine.ValidateCredentials(context.Background(), "a@x.com", "secret2"); got != nil {
		t.Fatalf("wrong password accepted")
	}
	if got := engine.ValidateCredentials(context.Background(), "nobody@x.com", "secret1"); got != nil {
		t.Fatalf("unknown email accepted")
	}
}

func TestValidateCredentialsSwallowsLookupErrors(t *testing.T) {
	engine, up, _ := newTestEngine(t, nil)
	registerAlice(t, engine)

	up.lookupErr = errors.New("connection refused")
	if got := engine.ValidateCredentials(context.Background(), "a@x.com", "secret1"); got != nil {
		t.Fatalf("expected nil on lookup failure")
	}
}

func TestValidateCredentialsRejectsInactive(t *testing.T) {
	engine, up, _ := newTestEngine(t, nil)
	res := registerAlice(t, engine)
	up.setActive(res.User.ID, false)

	if got := engine.ValidateCredentials(context.Background(), "a@x.com", "secret1"); got != nil {
		t.Fatalf("inactive account accepted")
	}
}

func TestRefreshRotationInvalidatesPriorToken(t *testing.T) {
	engine, _, _ := newTestEngine(t, nil)
	registerAlice(t, engine)

	login, err := engine.Authenticate(context.Background(), "a@x.com", "secret1")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	refreshToken1 := login.RefreshToken

	rotated, err := engine.Refresh(context.Background(), refreshToken1)
	if err != nil {
		t.Fatalf("first refresh: %v", err)
	}
	if rotated.RefreshToken == refreshToken1 {
		t.Fatalf("refresh token not rotated")
	}

	_, err = engine.Refresh(context.Background(), refreshToken1)
	requireRefreshInvalid(t, err)

	if _, err := engine.Refresh(context.Background(), rotated.RefreshToken); err != nil {
		t.Fatalf("rotated token must remain usable: %v", err)
	}
}

func TestLoginSupersedesPreviousRefreshToken(t *testing.T) {
	engine, _, _ := newTestEngine(t, nil)
	first := registerAlice(t, engine)

	if _, err := engine.Authenticate(context.Background(), "a@x.com", "secret1"); err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	_, err := engine.Refresh(context.Background(), first.RefreshToken)
	requireRefreshInvalid(t, err)
}

func TestLogoutThenRefreshUnauthorized(t *testing.T) {
	engine, _, sessions := newTestEngine(t, nil)
	res := registerAlice(t, engine)

	out := engine.Logout(context.Background(), res.User.ID)
	if out.Message != "Logged out successfully" {
		t.Fatalf("unexpected logout message %q", out.Message)
	}
	if tok := sessions.get(res.User.ID); tok != "" {
		t.Fatalf("slot not cleared")
	}

	_, err := engine.Refresh(context.Background(), res.RefreshToken)
	requireRefreshInvalid(t, err)
}

func TestLogoutIdempotent(t *testing.T) {
	engine, _, sessions := newTestEngine(t, nil)
	res := registerAlice(t, engine)

	for i := 0; i < 2; i++ {
		if out := engine.Logout(context.Background(), res.User.ID); out.Message == "" {
			t.Fatalf("logout %d returned empty acknowledgment", i)
		}
	}

	sessions.clearErr = errors.New("store down")
	if out := engine.Logout(context.Background(), res.User.ID); out.Message != "Logged out successfully" {
		t.Fatalf("store failure must not surface from logout")
	}
}

func TestRefreshUniformErrorForEveryCause(t *testing.T) {
	engine, _, _ := newTestEngine(t, nil)
	res := registerAlice(t, engine)
	cfg := testConfig()

	otherSecret, err := jwt.NewManager(jwt.Config{
		AccessSecret:  cfg.JWT.AccessSecret,
		RefreshSecret: []byte("a-completely-different-refresh-secret"),
		AccessTTL:     cfg.JWT.AccessTTL,
		RefreshTTL:    cfg.JWT.RefreshTTL,
	})
	if err != nil {
		t.Fatalf("manager: %v", err)
	}
	wrongSecret, err := otherSecret.IssueRefresh(res.User.ID, res.User.Email, string(res.User.Role))
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	expiredClaims := jwtlib.MapClaims{
		"sub":   res.User.ID,
		"email": res.User.Email,
		"role":  string(res.User.Role),
		"iat":   time.Now().Add(-2 * time.Hour).Unix(),
		"exp":   time.Now().Add(-time.Hour).Unix(),
	}
	expired, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, expiredClaims).SignedString(cfg.JWT.RefreshSecret)
	if err != nil {
		t.Fatalf("sign expired: %v", err)
	}

	ghost, err := engine.jwtManager.IssueRefresh("no-such-user", "ghost@x.com", "user")
	if err != nil {
		t.Fatalf("issue ghost: %v", err)
	}

	cases := map[string]string{
		"wrong secret": wrongSecret,
		"expired":      expired,
		"unknown user": ghost,
		"access token": res.AccessToken,
		"malformed":    "not-a-jwt",
		"empty":        "",
	}

	var messages []string
	for name, token := range cases {
		_, err := engine.Refresh(context.Background(), token)
		if err != ErrRefreshInvalid {
			t.Fatalf("%s: got %v, want ErrRefreshInvalid", name, err)
		}
		messages = append(messages, err.Error())
	}
	for _, m := range messages[1:] {
		if m != messages[0] {
			t.Fatalf("refresh error messages differ: %q vs %q", m, messages[0])
		}
	}

	if got := engine.MetricsSnapshot().Counters[MetricRefreshFailure]; got != uint64(len(cases)) {
		t.Fatalf("refresh failure counter = %d, want %d", got, len(cases))
	}
}

func TestRefreshRejectsInactiveUser(t *testing.T) {
	engine, up, _ := newTestEngine(t, nil)
	res := registerAlice(t, engine)
	up.setActive(res.User.ID, false)

	_, err := engine.Refresh(context.Background(), res.RefreshToken)
	requireRefreshInvalid(t, err)
}

func TestRegisterDuplicateConflict(t *testing.T) {
	engine, _, _ := newTestEngine(t, nil)
	registerAlice(t, engine)

	_, err := engine.Register(context.Background(), RegisterRequest{
		Email:     "A@x.com",
		FirstName: "Alice",
		LastName:  "Again",
		Password:  "secret1",
	})
	if !errors.Is(err, ErrAccountExists) || !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrAccountExists, got %v", err)
	}
	if engine.MetricsSnapshot().Counters[MetricRegisterDuplicate] != 1 {
		t.Fatalf("duplicate metric not recorded")
	}
}

func TestRegisterValidation(t *testing.T) {
	engine, up, _ := newTestEngine(t, nil)

	_, err := engine.Register(context.Background(), RegisterRequest{
		Email:     "a@x.com",
		FirstName: "Alice",
		LastName:  "Example",
		Password:  "12345",
	})
	if !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
	if !strings.Contains(err.Error(), "password") {
		t.Fatalf("error should name the field: %v", err)
	}

	_, err = engine.Register(context.Background(), RegisterRequest{
		Email:     "a@x.com",
		FirstName: "Alice",
		LastName:  "Example",
		Password:  "secret1",
		Role:      "superuser",
	})
	if !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest for role, got %v", err)
	}
	if up.creates != 0 {
		t.Fatalf("provider called for invalid input")
	}
}

func TestRegisterRejectsPasswordOverBcryptLimit(t *testing.T) {
	engine, up, _ := newTestEngine(t, nil)

	_, err := engine.Register(context.Background(), RegisterRequest{
		Email:     "a@x.com",
		FirstName: "Alice",
		LastName:  "Example",
		Password:  strings.Repeat("x", 80),
	})
	if !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
	if up.creates != 0 {
		t.Fatalf("provider called for overlong password")
	}

	if _, err := engine.Register(context.Background(), RegisterRequest{
		Email:     "a@x.com",
		FirstName: "Alice",
		LastName:  "Example",
		Password:  strings.Repeat("x", 72),
	}); err != nil {
		t.Fatalf("72-byte password rejected: %v", err)
	}

	res, _ := up.GetUserByEmail(context.Background(), "a@x.com")
	if err := engine.ChangePassword(context.Background(), res.ID, strings.Repeat("y", 73)); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("change password: expected ErrInvalidRequest, got %v", err)
	}
}

func TestRegisterHashesPasswordBeforePersist(t *testing.T) {
	engine, up, _ := newTestEngine(t, nil)
	res := registerAlice(t, engine)

	stored := up.byID[res.User.ID]
	if stored.PasswordHash == "" || stored.PasswordHash == "secret1" {
		t.Fatalf("provider received %q", stored.PasswordHash)
	}
	if !engine.hasher.Verify("secret1", stored.PasswordHash) {
		t.Fatalf("stored digest does not verify")
	}
	if res.User.Role != RoleUser {
		t.Fatalf("default role = %q", res.User.Role)
	}
}

func TestSummaryRedactsRecordValue(t *testing.T) {
	s := UserRecord{
		ID:           "user-1",
		Email:        "a@x.com",
		PasswordHash: "digest",
		RefreshToken: "token",
		Role:         RoleAdmin,
	}.Summary()
	if s.ID != "user-1" || s.Email != "a@x.com" || s.Role != RoleAdmin {
		t.Fatalf("unexpected summary %+v", s)
	}
	raw, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(raw), "digest") || strings.Contains(string(raw), "token") {
		t.Fatalf("summary leaked secrets: %s", raw)
	}
}

func TestAuthResultNeverSerializesSecrets(t *testing.T) {
	engine, _, _ := newTestEngine(t, nil)
	res := registerAlice(t, engine)

	user := engine.ValidateCredentials(context.Background(), "a@x.com", "secret1")
	user.RefreshToken = res.RefreshToken

	for name, v := range map[string]any{"summary": res.User, "record": user} {
		raw, err := json.Marshal(v)
		if err != nil {
			t.Fatalf("%s: marshal: %v", name, err)
		}
		s := string(raw)
		if strings.Contains(s, user.PasswordHash) || strings.Contains(s, res.RefreshToken) {
			t.Fatalf("%s leaks secrets: %s", name, s)
		}
		if strings.Contains(strings.ToLower(s), "password") {
			t.Fatalf("%s carries a password field: %s", name, s)
		}
	}

	raw, _ := json.Marshal(res)
	for _, key := range []string{`"access_token"`, `"refresh_token"`, `"user"`} {
		if !strings.Contains(string(raw), key) {
			t.Fatalf("auth result missing %s: %s", key, raw)
		}
	}
}

func TestLoginStoreFailureReturnsNothing(t *testing.T) {
	engine, _, sessions := newTestEngine(t, nil)
	registerAlice(t, engine)
	user := engine.ValidateCredentials(context.Background(), "a@x.com", "secret1")

	sessions.replaceErr = errors.New("disk full")
	res, err := engine.Login(context.Background(), user)
	if err == nil || res != nil {
		t.Fatalf("expected failure without tokens, got %+v %v", res, err)
	}
	if !errors.Is(err, sessions.replaceErr) {
		t.Fatalf("store error must propagate, got %v", err)
	}
}

func TestAuthenticateInvalidCredentials(t *testing.T) {
	engine, _, _ := newTestEngine(t, nil)
	registerAlice(t, engine)

	_, err := engine.Authenticate(context.Background(), "a@x.com", "nope-nope")
	if !errors.Is(err, ErrInvalidCredentials) || !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestJobFailureDoesNotFailAuth(t *testing.T) {
	cfg := testConfig()
	cfg.Jobs.NotifyOnLogin = true
	sink := &recordingSink{err: errors.New("queue unavailable")}
	engine, err := New().
		WithConfig(cfg).
		WithUserProvider(newMemProvider()).
		WithSessionStore(newMemSessions()).
		WithJobSink(sink).
		Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	registerAlice(t, engine)
	if _, err := engine.Authenticate(context.Background(), "a@x.com", "secret1"); err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if got := engine.MetricsSnapshot().Counters[MetricJobSubmitFailure]; got != 2 {
		t.Fatalf("job failure counter = %d, want 2", got)
	}
}

func TestRegisterSubmitsWelcomeJob(t *testing.T) {
	sink := &recordingSink{}
	engine, err := New().
		WithConfig(testConfig()).
		WithUserProvider(newMemProvider()).
		WithSessionStore(newMemSessions()).
		WithJobSink(sink).
		Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	res := registerAlice(t, engine)

	if len(sink.jobs) != 1 || sink.jobs[0] != JobSendNotification+":"+res.User.ID {
		t.Fatalf("unexpected jobs %v", sink.jobs)
	}
}

func TestVerifyAccess(t *testing.T) {
	engine, _, _ := newTestEngine(t, nil)
	res := registerAlice(t, engine)

	p, err := engine.VerifyAccess(res.AccessToken)
	if err != nil {
		t.Fatalf("verify access: %v", err)
	}
	if p.UserID != res.User.ID || p.Email != "a@x.com" || p.Role != RoleUser {
		t.Fatalf("unexpected principal %+v", p)
	}
	if _, err := engine.VerifyAccess(res.RefreshToken); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("refresh token accepted as access token: %v", err)
	}
}

func TestGetUser(t *testing.T) {
	engine, _, _ := newTestEngine(t, nil)
	res := registerAlice(t, engine)

	u, err := engine.GetUser(context.Background(), res.User.ID)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if *u != res.User {
		t.Fatalf("summary = %+v, want %+v", *u, res.User)
	}
	if _, err := engine.GetUser(context.Background(), "missing"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestChangePasswordClearsSession(t *testing.T) {
	engine, _, _ := newTestEngine(t, nil)
	res := registerAlice(t, engine)

	if err := engine.ChangePassword(context.Background(), res.User.ID, "short"); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
	if err := engine.ChangePassword(context.Background(), res.User.ID, "brand-new-secret"); err != nil {
		t.Fatalf("change password: %v", err)
	}

	if engine.ValidateCredentials(context.Background(), "a@x.com", "secret1") != nil {
		t.Fatalf("old password still valid")
	}
	if engine.ValidateCredentials(context.Background(), "a@x.com", "brand-new-secret") == nil {
		t.Fatalf("new password rejected")
	}
	_, err := engine.Refresh(context.Background(), res.RefreshToken)
	requireRefreshInvalid(t, err)
}

func TestDeleteUser(t *testing.T) {
	engine, _, sessions := newTestEngine(t, nil)
	res := registerAlice(t, engine)

	if err := engine.DeleteUser(context.Background(), res.User.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if sessions.get(res.User.ID) != "" {
		t.Fatalf("slot survived delete")
	}
	if _, err := engine.GetUser(context.Background(), res.User.ID); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestBuildRejectsCompareAndSwapWithoutCapability(t *testing.T) {
	cfg := testConfig()
	cfg.Session.Rotation = RotationCompareAndSwap
	_, err := New().
		WithConfig(cfg).
		WithUserProvider(newMemProvider()).
		WithSessionStore(plainSessions{newMemSessions()}).
		Build()
	if !errors.Is(err, ErrRotationUnsupported) {
		t.Fatalf("expected ErrRotationUnsupported, got %v", err)
	}
}

func TestBuildRequiresDependencies(t *testing.T) {
	if _, err := New().WithConfig(testConfig()).WithSessionStore(newMemSessions()).Build(); err == nil {
		t.Fatalf("expected error without user provider")
	}
	if _, err := New().WithConfig(testConfig()).WithUserProvider(newMemProvider()).Build(); err == nil {
		t.Fatalf("expected error without session store")
	}
	if _, err := New().WithUserProvider(newMemProvider()).WithSessionStore(newMemSessions()).Build(); err == nil {
		t.Fatalf("expected error without secrets")
	}

	b := New().WithConfig(testConfig()).WithUserProvider(newMemProvider()).WithSessionStore(newMemSessions())
	if _, err := b.Build(); err != nil {
		t.Fatalf("first build: %v", err)
	}
	if _, err := b.Build(); err == nil {
		t.Fatalf("expected builder reuse to fail")
	}
}

func TestBuildCopiesSecrets(t *testing.T) {
	cfg := testConfig()
	engine, err := New().
		WithConfig(cfg).
		WithUserProvider(newMemProvider()).
		WithSessionStore(newMemSessions()).
		Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	res := registerAlice(t, engine)

	for i := range cfg.JWT.RefreshSecret {
		cfg.JWT.RefreshSecret[i] = 'x'
	}
	if _, err := engine.Refresh(context.Background(), res.RefreshToken); err != nil {
		t.Fatalf("mutating caller config affected engine: %v", err)
	}
}

func TestEngineWithRedisSessionStore(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	defer mr.Close()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	cfg := testConfig()
	cfg.Session.Rotation = RotationCompareAndSwap
	engine, err := New().
		WithConfig(cfg).
		WithUserProvider(newMemProvider()).
		WithSessionStore(session.NewRedisStore(rdb, "rt", cfg.JWT.RefreshTTL)).
		Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	res := registerAlice(t, engine)
	if got, _ := mr.Get("rt:" + res.User.ID); got != res.RefreshToken {
		t.Fatalf("redis slot not written")
	}

	rotated, err := engine.Refresh(context.Background(), res.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	_, err = engine.Refresh(context.Background(), res.RefreshToken)
	requireRefreshInvalid(t, err)

	engine.Logout(context.Background(), res.User.ID)
	_, err = engine.Refresh(context.Background(), rotated.RefreshToken)
	requireRefreshInvalid(t, err)
	if mr.Exists("rt:" + res.User.ID) {
		t.Fatalf("redis slot survived logout")
	}
}

func TestNilEngineIsSafe(t *testing.T) {
	var e *Engine
	if _, err := e.Register(context.Background(), RegisterRequest{}); !errors.Is(err, ErrEngineNotReady) {
		t.Fatalf("register on nil engine: %v", err)
	}
	if _, err := e.Refresh(context.Background(), "x"); err != ErrRefreshInvalid {
		t.Fatalf("refresh on nil engine: %v", err)
	}
	if e.ValidateCredentials(context.Background(), "a", "b") != nil {
		t.Fatalf("validate on nil engine")
	}
	e.Close()
}

func TestValidateCredentialsUpgradesLowerCostDigest(t *testing.T) {
	legacy, up, sessions := newTestEngine(t, nil)
	res := registerAlice(t, legacy)

	cfg := testConfig()
	cfg.Password.Cost = 5
	engine, err := New().
		WithConfig(cfg).
		WithUserProvider(up).
		WithSessionStore(sessions).
		Build()
	if err != nil {
		t.Fatalf("build engine: %v", err)
	}

	before := up.byID[res.User.ID].PasswordHash
	if cost, _ := bcrypt.Cost([]byte(before)); cost != 4 {
		t.Fatalf("registered at cost %d, want 4", cost)
	}

	if engine.ValidateCredentials(context.Background(), "a@x.com", "wrong-secret") != nil {
		t.Fatalf("wrong password accepted")
	}
	if up.byID[res.User.ID].PasswordHash != before {
		t.Fatalf("digest rewritten after a failed check")
	}

	user := engine.ValidateCredentials(context.Background(), "a@x.com", "secret1")
	if user == nil {
		t.Fatalf("valid credentials rejected")
	}
	after := up.byID[res.User.ID].PasswordHash
	if cost, _ := bcrypt.Cost([]byte(after)); cost != 5 {
		t.Fatalf("stored digest cost = %d, want 5", cost)
	}
	if user.PasswordHash != after {
		t.Fatalf("returned record carries the stale digest")
	}
	if engine.ValidateCredentials(context.Background(), "a@x.com", "secret1") == nil {
		t.Fatalf("upgraded digest does not verify")
	}
}

func TestUpdateProfile(t *testing.T) {
	engine, _, _ := newTestEngine(t, nil)
	alice := registerAlice(t, engine)
	if _, err := engine.Register(context.Background(), RegisterRequest{
		Email: "b@x.com", FirstName: "Bob", LastName: "Builder", Password: "secret1",
	}); err != nil {
		t.Fatalf("register bob: %v", err)
	}

	str := func(s string) *string { return &s }

	got, err := engine.UpdateProfile(context.Background(), alice.User.ID, ProfileUpdate{FirstName: str("  Alicia ")})
	if err != nil {
		t.Fatalf("update name: %v", err)
	}
	if got.FirstName != "Alicia" || got.LastName != "Example" || got.Email != "a@x.com" {
		t.Fatalf("unexpected summary %+v", got)
	}

	if _, err := engine.UpdateProfile(context.Background(), alice.User.ID, ProfileUpdate{Email: str("B@x.com")}); !errors.Is(err, ErrAccountExists) {
		t.Fatalf("expected ErrAccountExists, got %v", err)
	}
	if _, err := engine.UpdateProfile(context.Background(), alice.User.ID, ProfileUpdate{Email: str("A@X.com")}); err != nil {
		t.Fatalf("own email treated as conflict: %v", err)
	}
	if _, err := engine.UpdateProfile(context.Background(), alice.User.ID, ProfileUpdate{LastName: str("E")}); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
	if _, err := engine.UpdateProfile(context.Background(), "ghost", ProfileUpdate{FirstName: str("Ghost")}); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}

	got, err = engine.UpdateProfile(context.Background(), alice.User.ID, ProfileUpdate{Email: str("alicia@x.com")})
	if err != nil {
		t.Fatalf("update email: %v", err)
	}
	if got.Email != "alicia@x.com" {
		t.Fatalf("email = %q", got.Email)
	}
	if engine.ValidateCredentials(context.Background(), "alicia@x.com", "secret1") == nil {
		t.Fatalf("login under the new email failed")
	}
}

func TestUpdateProfileUnsupportedProvider(t *testing.T) {
	engine, err := New().
		WithConfig(testConfig()).
		WithUserProvider(plainProvider{newMemProvider()}).
		WithSessionStore(newMemSessions()).
		Build()
	if err != nil {
		t.Fatalf("build engine: %v", err)
	}
	name := "Alicia"
	if _, err := engine.UpdateProfile(context.Background(), "user-1", ProfileUpdate{FirstName: &name}); !errors.Is(err, ErrProfileUpdateUnsupported) {
		t.Fatalf("expected ErrProfileUpdateUnsupported, got %v", err)
	}
}

func TestRegisterWithSessionCreator(t *testing.T) {
	sessions := newMemSessions()
	provider := &txProvider{memProvider: newMemProvider(), sessions: sessions}
	engine, err := New().
		WithConfig(testConfig()).
		WithUserProvider(provider).
		WithSessionStore(sessions).
		Build()
	if err != nil {
		t.Fatalf("build engine: %v", err)
	}

	res := registerAlice(t, engine)
	if sessions.replaces != 0 {
		t.Fatalf("session store written outside the provider transaction")
	}
	if sessions.get(res.User.ID) != res.RefreshToken {
		t.Fatalf("slot not written by the provider")
	}
	if _, err := engine.Refresh(context.Background(), res.RefreshToken); err != nil {
		t.Fatalf("refresh after atomic register: %v", err)
	}

	provider.slotErr = errors.New("slot write failed")
	_, err = engine.Register(context.Background(), RegisterRequest{
		Email: "b@x.com", FirstName: "Bob", LastName: "Builder", Password: "secret1",
	})
	if !errors.Is(err, provider.slotErr) {
		t.Fatalf("expected slot error, got %v", err)
	}
	if _, err := provider.GetUserByEmail(context.Background(), "b@x.com"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("account survived a failed slot write: %v", err)
	}
}
