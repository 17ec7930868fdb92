package flows

import "context"

// Service is the centralized flow runner built once by the root engine.
type Service struct {
	deps Deps
}

// New returns a flow service with immutable dependency wiring.
func New(deps Deps) Service {
	return Service{deps: deps}
}

// Initialized reports whether the service has been wired with flow deps.
func (s Service) Initialized() bool {
	return s.deps.Refresh.VerifyRefresh != nil && s.deps.Login.Sessions != nil
}

func (s Service) Register(ctx context.Context, req RegisterRequest) (*LoginResult, error) {
	return RunRegister(ctx, req, s.deps.Register)
}

func (s Service) Login(ctx context.Context, user User) (*LoginResult, error) {
	return RunLogin(ctx, user, s.deps.Login)
}

func (s Service) ValidateCredentials(ctx context.Context, email, password string) *User {
	return RunValidateCredentials(ctx, email, password, s.deps.Validate)
}

func (s Service) Refresh(ctx context.Context, refreshToken string) RefreshResult {
	return RunRefresh(ctx, refreshToken, s.deps.Refresh)
}

func (s Service) Logout(ctx context.Context, userID string) error {
	return RunLogout(ctx, userID, s.deps.Logout)
}

func (s Service) UpdateProfile(ctx context.Context, userID string, changes ProfileChanges) (User, error) {
	return RunUpdateProfile(ctx, userID, changes, s.deps.Profile)
}
