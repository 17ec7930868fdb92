package goCred

import (
	"context"
	"errors"
	"fmt"
	"hash/maphash"
	"sync"
	"time"

	"github.com/MrEthical07/goCred/internal/flows"
	"github.com/MrEthical07/goCred/internal/logging"
	"github.com/MrEthical07/goCred/jwt"
	"github.com/MrEthical07/goCred/password"
)

const (
	// JobSendNotification is submitted after register and login.
	JobSendNotification = "send-notification"

	logoutMessage = "Logged out successfully"
	minNameLength = 2
)

// Engine is the token lifecycle service: registration, login, credential
// validation, refresh rotation and logout over a single refresh slot per user.
//
// Engine instances are built by [Builder.Build] and safe for concurrent use.
type Engine struct {
	config       Config
	flows        flows.Service
	userProvider UserProvider
	sessions     SessionStore
	hasher       *password.Bcrypt
	jwtManager   *jwt.Manager
	jobs         JobSink
	log          logging.Logger
	metrics      *Metrics
	locks        *userLocks
}

// Close stops the job sink if it owns background work.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if c, ok := e.jobs.(interface{ Close() }); ok {
		c.Close()
	}
}

// JobsDropped reports jobs the sink discarded because its buffer was full.
func (e *Engine) JobsDropped() uint64 {
	if e == nil {
		return 0
	}
	if d, ok := e.jobs.(interface{ Dropped() uint64 }); ok {
		return d.Dropped()
	}
	return 0
}

// MetricsSnapshot returns a point-in-time copy of the engine counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// Register creates an account and logs it in.
//
// The password is hashed exactly once before the provider sees it. A taken
// email yields [ErrAccountExists]; validation failures wrap [ErrInvalidRequest].
// Provider and session store failures propagate unchanged.
func (e *Engine) Register(ctx context.Context, req RegisterRequest) (*AuthResult, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	res, err := e.flows.Register(ctx, flows.RegisterRequest{
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Password:  req.Password,
		Role:      string(req.Role),
	})
	if err != nil {
		var ve *flows.ValidationError
		switch {
		case errors.As(err, &ve):
			return nil, invalidRequest(ve.Error())
		case errors.Is(err, ErrProviderDuplicateIdentifier):
			e.metricInc(MetricRegisterDuplicate)
			return nil, ErrAccountExists
		}
		return nil, err
	}

	e.metricInc(MetricRegisterSuccess)
	e.log.Info(ctx, "user registered", "user_id", res.User.ID)
	if e.config.Jobs.NotifyOnRegister {
		e.submitJob(ctx, JobSendNotification, map[string]string{
			"userId":  res.User.ID,
			"message": "Welcome to the platform!",
		})
	}
	return authResult(res), nil
}

// Login issues a fresh pair for a user whose credentials the caller already
// validated, and stores the refresh token in the user's slot, superseding
// any previous one. Tokens are returned only if the slot write succeeded.
func (e *Engine) Login(ctx context.Context, user *UserRecord) (*AuthResult, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	if user == nil || user.ID == "" {
		return nil, invalidRequest("user required")
	}

	res, err := e.flows.Login(ctx, toFlowUser(*user))
	if err != nil {
		return nil, err
	}

	e.metricInc(MetricLoginSuccess)
	if e.config.Jobs.NotifyOnLogin {
		e.submitJob(ctx, JobSendNotification, map[string]string{
			"userId":  res.User.ID,
			"message": "New sign-in to your account",
		})
	}
	return authResult(res), nil
}

// ValidateCredentials returns the user for a matching active email/password
// pair and nil otherwise. Unknown emails, wrong passwords, inactive accounts
// and lookup errors are indistinguishable to the caller. The returned record
// still carries PasswordHash.
func (e *Engine) ValidateCredentials(ctx context.Context, email, password string) *UserRecord {
	if !e.ready() {
		return nil
	}
	u := e.flows.ValidateCredentials(ctx, email, password)
	if u == nil {
		e.metricInc(MetricCredentialsRejected)
		return nil
	}
	rec := fromFlowUser(*u)
	return &rec
}

// Authenticate is ValidateCredentials followed by Login. A rejected pair
// yields [ErrInvalidCredentials].
func (e *Engine) Authenticate(ctx context.Context, email, password string) (*AuthResult, error) {
	user := e.ValidateCredentials(ctx, email, password)
	if user == nil {
		return nil, ErrInvalidCredentials
	}
	return e.Login(ctx, user)
}

// Refresh exchanges a refresh token for a new pair and rotates the stored
// slot. Every failure, whatever its cause, is [ErrRefreshInvalid].
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	if !e.ready() {
		return nil, ErrRefreshInvalid
	}

	var start time.Time
	if e.metrics != nil && e.metrics.enableLatency {
		start = time.Now()
	}

	res := e.flows.Refresh(ctx, refreshToken)

	if !start.IsZero() {
		e.metrics.Observe(MetricRefreshLatency, time.Since(start))
	}

	if res.Failure != flows.RefreshFailureNone {
		e.metricInc(MetricRefreshFailure)
		switch res.Failure {
		case flows.RefreshFailureMismatch:
			e.metricInc(MetricRefreshMismatch)
		case flows.RefreshFailureRaceLost:
			e.metricInc(MetricRefreshRaceLost)
		}
		e.log.Debug(ctx, "refresh rejected", "reason", res.Failure.String(), "user_id", res.UserID, "error", res.Err)
		return nil, ErrRefreshInvalid
	}

	e.metricInc(MetricRefreshSuccess)
	return &AuthResult{
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		User:         fromFlowUser(res.User).Summary(),
	}, nil
}

// Logout clears the user's refresh slot. It always acknowledges; store
// failures are logged, not returned.
func (e *Engine) Logout(ctx context.Context, userID string) LogoutResult {
	if e.ready() && userID != "" {
		if err := e.flows.Logout(ctx, userID); err != nil {
			e.log.Warn(ctx, "logout: clear session failed", "user_id", userID, "error", err)
		}
		e.metricInc(MetricLogout)
	}
	return LogoutResult{Message: logoutMessage}
}

// VerifyAccess validates an access token and returns its principal.
func (e *Engine) VerifyAccess(token string) (*Principal, error) {
	if e == nil || e.jwtManager == nil {
		return nil, ErrEngineNotReady
	}
	claims, err := e.jwtManager.VerifyAccess(token)
	if err != nil {
		return nil, ErrTokenInvalid
	}
	return &Principal{
		UserID: claims.UserID(),
		Email:  claims.Email,
		Role:   Role(claims.Role),
	}, nil
}

// GetUser returns the redacted profile for userID, or [ErrUserNotFound].
func (e *Engine) GetUser(ctx context.Context, userID string) (*UserSummary, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	u, err := e.userProvider.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	s := u.Summary()
	return &s, nil
}

// UpdateProfile applies self-service profile changes and returns the updated
// summary. Moving to an email held by another account yields
// [ErrAccountExists]; validation failures wrap [ErrInvalidRequest]. Providers
// without [ProfileUpdater] yield [ErrProfileUpdateUnsupported].
func (e *Engine) UpdateProfile(ctx context.Context, userID string, update ProfileUpdate) (*UserSummary, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	if _, ok := e.userProvider.(ProfileUpdater); !ok {
		return nil, ErrProfileUpdateUnsupported
	}

	u, err := e.flows.UpdateProfile(ctx, userID, flows.ProfileChanges{
		Email:     update.Email,
		FirstName: update.FirstName,
		LastName:  update.LastName,
	})
	if err != nil {
		var ve *flows.ValidationError
		switch {
		case errors.As(err, &ve):
			return nil, invalidRequest(ve.Error())
		case errors.Is(err, flows.ErrEmailTaken), errors.Is(err, ErrProviderDuplicateIdentifier):
			return nil, ErrAccountExists
		}
		return nil, err
	}

	e.log.Info(ctx, "profile updated", "user_id", userID)
	s := fromFlowUser(u).Summary()
	return &s, nil
}

// ChangePassword hashes newPassword, stores the digest and clears the refresh
// slot so every outstanding refresh token stops working.
func (e *Engine) ChangePassword(ctx context.Context, userID, newPassword string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	if len(newPassword) < e.config.Password.MinLength {
		return invalidRequest(fmt.Sprintf("password must be at least %d characters", e.config.Password.MinLength))
	}
	if len(newPassword) > flows.MaxPasswordBytes {
		return invalidRequest(fmt.Sprintf("password must be at most %d bytes", flows.MaxPasswordBytes))
	}

	hash, err := e.hasher.Hash(newPassword)
	if err != nil {
		return invalidRequest(err.Error())
	}
	if err := e.userProvider.UpdatePasswordHash(ctx, userID, hash); err != nil {
		return err
	}
	if err := e.clearSlot(ctx, userID); err != nil {
		return err
	}

	e.metricInc(MetricPasswordChanged)
	e.log.Info(ctx, "password changed", "user_id", userID)
	return nil
}

// DeleteUser clears the refresh slot and removes the account.
func (e *Engine) DeleteUser(ctx context.Context, userID string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	if err := e.clearSlot(ctx, userID); err != nil {
		return err
	}
	return e.userProvider.DeleteUser(ctx, userID)
}

// clearSlot empties the user's refresh slot under the per-user lock, if any,
// so a refresh that already read the slot cannot write it back.
func (e *Engine) clearSlot(ctx context.Context, userID string) error {
	if e.locks != nil {
		unlock := e.locks.lock(userID)
		defer unlock()
	}
	if err := e.sessions.Clear(ctx, userID); err != nil {
		return fmt.Errorf("%w: %w", ErrSessionStoreUnavailable, err)
	}
	return nil
}

// rehash stores a digest of password at the configured cost. It runs after
// a successful credential check on a digest made at a lower cost.
func (e *Engine) rehash(ctx context.Context, userID, password string) (string, error) {
	digest, err := e.hasher.Hash(password)
	if err == nil {
		err = e.userProvider.UpdatePasswordHash(ctx, userID, digest)
	}
	if err != nil {
		e.log.Warn(ctx, "password rehash failed", "user_id", userID, "error", err)
		return "", err
	}
	e.log.Debug(ctx, "password rehashed", "user_id", userID, "cost", e.hasher.Cost())
	return digest, nil
}

func (e *Engine) ready() bool {
	return e != nil && e.flows.Initialized()
}

func (e *Engine) submitJob(ctx context.Context, name string, payload map[string]string) {
	if e.jobs == nil {
		return
	}
	if err := e.jobs.Submit(ctx, name, payload); err != nil {
		e.metricInc(MetricJobSubmitFailure)
		e.log.Warn(ctx, "job submit failed", "job", name, "error", err)
	}
}

func authResult(res *flows.LoginResult) *AuthResult {
	return &AuthResult{
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		User:         fromFlowUser(res.User).Summary(),
	}
}

func toFlowUser(u UserRecord) flows.User {
	return flows.User{
		ID:           u.ID,
		Email:        u.Email,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		Role:         string(u.Role),
		PasswordHash: u.PasswordHash,
		IsActive:     u.IsActive,
	}
}

func fromFlowUser(u flows.User) UserRecord {
	return UserRecord{
		ID:           u.ID,
		Email:        u.Email,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		PasswordHash: u.PasswordHash,
		Role:         Role(u.Role),
		IsActive:     u.IsActive,
	}
}

const userLockStripes = 64

// userLocks is a striped mutex set keyed by user id. Two users may share a
// stripe; one user always maps to the same stripe.
type userLocks struct {
	seed    maphash.Seed
	stripes [userLockStripes]sync.Mutex
}

func newUserLocks() *userLocks {
	return &userLocks{seed: maphash.MakeSeed()}
}

func (l *userLocks) lock(userID string) func() {
	m := &l.stripes[maphash.String(l.seed, userID)%userLockStripes]
	m.Lock()
	return m.Unlock
}
