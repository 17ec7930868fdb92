package httpapi

import (
	"context"
	"net/http"
	"time"

	goCred "github.com/MrEthical07/goCred"
	"github.com/MrEthical07/goCred/internal/logging"
	"github.com/MrEthical07/goCred/jobs"
	"github.com/MrEthical07/goCred/middleware"
)

const (
	apiPrefix  = "/api/v1"
	apiVersion = "1.0.0"
)

// Engine is the subset of *goCred.Engine the handlers call.
type Engine interface {
	Register(ctx context.Context, req goCred.RegisterRequest) (*goCred.AuthResult, error)
	Authenticate(ctx context.Context, email, password string) (*goCred.AuthResult, error)
	Refresh(ctx context.Context, refreshToken string) (*goCred.AuthResult, error)
	Logout(ctx context.Context, userID string) goCred.LogoutResult
	GetUser(ctx context.Context, userID string) (*goCred.UserSummary, error)
	UpdateProfile(ctx context.Context, userID string, update goCred.ProfileUpdate) (*goCred.UserSummary, error)
	VerifyAccess(token string) (*goCred.Principal, error)
}

// JobQueue is satisfied by *jobs.Queue.
type JobQueue interface {
	Enqueue(ctx context.Context, name string, payload map[string]string) (jobs.Job, error)
	Status(ctx context.Context) (jobs.QueueStatus, error)
}

// Check is one readiness dependency.
type Check struct {
	Name string
	Ping func(ctx context.Context) error
}

// Options wires a Server. Engine is required; the rest are optional.
type Options struct {
	Engine       Engine
	Jobs         JobQueue
	Checks       []Check
	Metrics      http.Handler
	Environment  string
	Logger       logging.Logger
	CheckTimeout time.Duration
}

type Server struct {
	engine       Engine
	jobs         JobQueue
	checks       []Check
	env          string
	log          logging.Logger
	checkTimeout time.Duration
	now          func() time.Time

	handler http.Handler
}

func New(opts Options) *Server {
	s := &Server{
		engine:       opts.Engine,
		jobs:         opts.Jobs,
		checks:       opts.Checks,
		env:          opts.Environment,
		log:          opts.Logger,
		checkTimeout: opts.CheckTimeout,
		now:          time.Now,
	}
	if s.log == nil {
		s.log = logging.Nop{}
	}
	if s.checkTimeout <= 0 {
		s.checkTimeout = 2 * time.Second
	}

	guard := middleware.Guard(opts.Engine)
	adminOnly := func(h http.HandlerFunc) http.Handler {
		return guard(middleware.RequireRole(goCred.RoleAdmin)(h))
	}

	mux := http.NewServeMux()

	mux.HandleFunc("POST "+apiPrefix+"/auth/register", s.register)
	mux.HandleFunc("POST "+apiPrefix+"/auth/login", s.login)
	mux.HandleFunc("POST "+apiPrefix+"/auth/refresh", s.refresh)
	mux.Handle("POST "+apiPrefix+"/auth/logout", guard(http.HandlerFunc(s.logout)))

	mux.Handle("GET "+apiPrefix+"/users/me", guard(http.HandlerFunc(s.me)))
	mux.Handle("PATCH "+apiPrefix+"/users/me", guard(http.HandlerFunc(s.updateMe)))

	mux.Handle("GET "+apiPrefix+"/jobs/status", adminOnly(s.jobStatus))
	mux.Handle("POST "+apiPrefix+"/jobs/notification", adminOnly(s.addNotification))

	mux.HandleFunc("GET "+apiPrefix+"/health", s.health)
	mux.HandleFunc("GET "+apiPrefix+"/health/readiness", s.readiness)
	mux.HandleFunc("GET "+apiPrefix+"/health/liveness", s.liveness)

	if opts.Metrics != nil {
		mux.Handle("GET /metrics", opts.Metrics)
	}

	s.handler = s.logRequests(mux)
	return s
}

func (s *Server) Handler() http.Handler {
	return s.handler
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.Debug(r.Context(), "http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}
