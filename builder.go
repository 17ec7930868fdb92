package goCred

import (
	"context"
	"errors"
	"log/slog"

	"github.com/MrEthical07/goCred/internal/flows"
	"github.com/MrEthical07/goCred/internal/logging"
	"github.com/MrEthical07/goCred/jwt"
	"github.com/MrEthical07/goCred/password"
)

// dummyPassword is hashed once per engine so credential checks for unknown
// emails run one bcrypt comparison like a real account would.
const dummyPassword = "goCred-timing-equalizer"

// Builder assembles an [Engine].
//
// Builder instances are intended to be configured during initialization and
// used once.
type Builder struct {
	config Config

	userProvider UserProvider
	sessionStore SessionStore
	jobSink      JobSink
	logger       logging.Logger

	built bool
}

// New returns a builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the whole configuration with a deep copy of cfg.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

func (b *Builder) WithUserProvider(up UserProvider) *Builder {
	b.userProvider = up
	return b
}

func (b *Builder) WithSessionStore(store SessionStore) *Builder {
	b.sessionStore = store
	return b
}

// WithJobSink sets the sink for post-login notification jobs. Optional.
func (b *Builder) WithJobSink(sink JobSink) *Builder {
	b.jobSink = sink
	return b
}

// WithLogger sets the structured logger. Nil discards logs.
func (b *Builder) WithLogger(l *slog.Logger) *Builder {
	if l == nil {
		b.logger = nil
		return b
	}
	b.logger = logging.NewSlogLogger(l)
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// WithRotation selects how concurrent refreshes of one user are resolved.
func (b *Builder) WithRotation(mode RotationMode) *Builder {
	b.config.Session.Rotation = mode
	return b
}

// Build validates the configuration and wires the engine. A builder can be
// built once. [RotationCompareAndSwap] requires a session store that
// implements [CompareAndSwapSessionStore], otherwise Build returns
// [ErrRotationUnsupported].
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.userProvider == nil {
		return nil, errors.New("user provider required")
	}
	if b.sessionStore == nil {
		return nil, errors.New("session store required")
	}

	var cas CompareAndSwapSessionStore
	if cfg.Session.Rotation == RotationCompareAndSwap {
		var ok bool
		cas, ok = b.sessionStore.(CompareAndSwapSessionStore)
		if !ok {
			return nil, ErrRotationUnsupported
		}
	}

	// -------- SIGNING / HASHING --------
	jwtManager, err := jwt.NewManager(jwt.Config{
		AccessSecret:  cfg.JWT.AccessSecret,
		RefreshSecret: cfg.JWT.RefreshSecret,
		AccessTTL:     cfg.JWT.AccessTTL,
		RefreshTTL:    cfg.JWT.RefreshTTL,
		Issuer:        cfg.JWT.Issuer,
		Leeway:        cfg.JWT.Leeway,
	})
	if err != nil {
		return nil, err
	}

	hasher, err := password.NewBcrypt(password.Config{Cost: cfg.Password.Cost})
	if err != nil {
		return nil, err
	}
	dummyHash, err := hasher.Hash(dummyPassword)
	if err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		logger = logging.Nop{}
	}

	e := &Engine{
		config:       cfg,
		userProvider: b.userProvider,
		sessions:     b.sessionStore,
		hasher:       hasher,
		jwtManager:   jwtManager,
		jobs:         b.jobSink,
		log:          logger,
		metrics:      NewMetrics(cfg.Metrics),
	}
	if cfg.Session.Rotation == RotationPerUserLock {
		e.locks = newUserLocks()
	}

	// -------- FLOWS --------
	e.flows = flows.New(e.flowDeps(cas, dummyHash))

	b.built = true
	return e, nil
}

func (e *Engine) flowDeps(cas CompareAndSwapSessionStore, dummyHash string) flows.Deps {
	var lockUser func(string) func()
	if e.locks != nil {
		lockUser = e.locks.lock
	}

	loginDeps := flows.LoginDeps{
		Tokens:   e.jwtManager,
		Sessions: e.sessions,
		LockUser: lockUser,
	}

	findByID := func(ctx context.Context, userID string) (flows.User, error) {
		u, err := e.userProvider.GetUserByID(ctx, userID)
		if err != nil {
			return flows.User{}, err
		}
		return toFlowUser(u), nil
	}

	refreshDeps := flows.RefreshDeps{
		VerifyRefresh: func(token string) (string, error) {
			claims, err := e.jwtManager.VerifyRefresh(token)
			if err != nil {
				return "", err
			}
			return claims.UserID(), nil
		},
		FindByID: findByID,
		Sessions: e.sessions,
		Tokens:   e.jwtManager,
		LockUser: lockUser,
	}
	if cas != nil {
		refreshDeps.CompareAndSwap = cas.CompareAndSwap
	}

	registerDeps := flows.RegisterDeps{
		MinPasswordLength: e.config.Password.MinLength,
		MinNameLength:     minNameLength,
		ValidRole:         func(r string) bool { return Role(r).Valid() },
		HashPassword:      e.hasher.Hash,
		CreateUser: func(ctx context.Context, req flows.RegisterRequest, hash string) (flows.User, error) {
			u, err := e.userProvider.CreateUser(ctx, createUserInput(req, hash))
			if err != nil {
				return flows.User{}, err
			}
			return toFlowUser(u), nil
		},
		Login: func(ctx context.Context, u flows.User) (*flows.LoginResult, error) {
			return flows.RunLogin(ctx, u, loginDeps)
		},
	}
	if sc, ok := e.userProvider.(SessionCreator); ok {
		registerDeps.Tokens = e.jwtManager
		registerDeps.CreateWithSession = func(ctx context.Context, req flows.RegisterRequest, hash string, issue func(flows.User) (string, error)) (flows.User, error) {
			u, err := sc.CreateUserWithSession(ctx, createUserInput(req, hash), func(rec UserRecord) (string, error) {
				return issue(toFlowUser(rec))
			})
			if err != nil {
				return flows.User{}, err
			}
			return toFlowUser(u), nil
		}
	}

	profileDeps := flows.ProfileDeps{
		MinNameLength: minNameLength,
		FindByID:      findByID,
		EmailTaken: func(ctx context.Context, email string) (bool, error) {
			_, err := e.userProvider.GetUserByEmail(ctx, email)
			switch {
			case err == nil:
				return true, nil
			case errors.Is(err, ErrUserNotFound):
				return false, nil
			}
			return false, err
		},
	}
	if pu, ok := e.userProvider.(ProfileUpdater); ok {
		profileDeps.Update = func(ctx context.Context, userID string, c flows.ProfileChanges) (flows.User, error) {
			u, err := pu.UpdateProfile(ctx, userID, ProfileUpdate{
				Email:     c.Email,
				FirstName: c.FirstName,
				LastName:  c.LastName,
			})
			if err != nil {
				return flows.User{}, err
			}
			return toFlowUser(u), nil
		}
	}

	return flows.Deps{
		Login:    loginDeps,
		Register: registerDeps,
		Validate: flows.ValidateDeps{
			FindByEmail: func(ctx context.Context, email string) (flows.User, error) {
				u, err := e.userProvider.GetUserByEmail(ctx, email)
				if err != nil {
					return flows.User{}, err
				}
				return toFlowUser(u), nil
			},
			VerifyPassword: e.hasher.Verify,
			DummyHash:      dummyHash,
			OnLookupError: func(ctx context.Context, err error) {
				if !errors.Is(err, ErrUserNotFound) {
					e.log.Debug(ctx, "credential lookup failed", "error", err)
				}
			},
			NeedsRehash: e.hasher.NeedsUpgrade,
			Rehash:      e.rehash,
		},
		Refresh: refreshDeps,
		Logout:  flows.LogoutDeps{Sessions: e.sessions, LockUser: lockUser},
		Profile: profileDeps,
	}
}

func createUserInput(req flows.RegisterRequest, hash string) CreateUserInput {
	return CreateUserInput{
		Email:        req.Email,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		PasswordHash: hash,
		Role:         Role(req.Role),
	}
}
