package fakeapi

import (
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"devblog/internal/errors"
	"devblog/internal/model"
)

const bcryptCost = 4

// Server is an in-memory blog API with the same routes and error shapes as
// the real one. It counts every call so tests can assert on traffic.
type Server struct {
	echo   *echo.Echo
	issuer *TokenIssuer

	mu       sync.Mutex
	users    map[string]*account
	byEmail  map[string]string
	posts    map[string]model.Post
	tokens   map[string]string
	preset   []string
	calls    map[string]int
	failures map[string]int
	delay    time.Duration
	now      func() time.Time
}

type account struct {
	user         model.User
	passwordHash []byte
}

// Option configures a Server.
type Option func(*Server)

// WithTokens makes the server hand out the given access tokens, in order,
// before it starts signing its own.
func WithTokens(tokens ...string) Option {
	return func(s *Server) {
		s.preset = append(s.preset, tokens...)
	}
}

// WithDelay holds every response for d.
func WithDelay(d time.Duration) Option {
	return func(s *Server) {
		s.delay = d
	}
}

// WithLogging turns on echo request logging.
func WithLogging() Option {
	return func(s *Server) {
		s.echo.Use(middleware.Logger())
	}
}

// New creates a server with no users and no posts.
func New(opts ...Option) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:     e,
		issuer:   NewTokenIssuer("fakeapi-secret"),
		users:    make(map[string]*account),
		byEmail:  make(map[string]string),
		posts:    make(map[string]model.Post),
		tokens:   make(map[string]string),
		calls:    make(map[string]int),
		failures: make(map[string]int),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start serves on addr until the listener fails.
func (s *Server) Start(addr string) error {
	return s.echo.Start(addr)
}

// Listen serves on a random local port for the duration of tb and returns
// the base URL.
func (s *Server) Listen(tb testing.TB) string {
	tb.Helper()
	ts := httptest.NewServer(s.echo)
	tb.Cleanup(ts.Close)
	return ts.URL
}

func (s *Server) routes() {
	e := s.echo
	e.Use(middleware.Recover())
	e.Use(s.count)

	e.Validator = &CustomValidator{validator: validator.New()}

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	e.POST("/auth/register", s.register)
	e.POST("/auth/login", s.login)
	e.GET("/posts", s.listPosts)
	e.GET("/posts/:id", s.getPost)

	secured := e.Group("", echojwt.WithConfig(echojwt.Config{
		ParseTokenFunc: s.parseToken,
		ErrorHandler: func(c echo.Context, err error) error {
			return echo.NewHTTPError(http.StatusUnauthorized, errors.ErrorResponse{
				Message: "Unauthorized",
				Code:    "UNAUTHORIZED",
			})
		},
	}))
	secured.POST("/auth/logout", s.logout)
	secured.GET("/auth/me", s.me)
	secured.POST("/posts", s.createPost)
	secured.PUT("/posts/:id", s.updatePost)
	secured.DELETE("/posts/:id", s.deletePost)
}

// count records the call and plays back any failure queued with FailNext.
func (s *Server) count(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		key := routeKey(c.Request().Method, c.Path())

		s.mu.Lock()
		s.calls[key]++
		status := 0
		if s.failures[key] > 0 {
			s.failures[key]--
			status = http.StatusInternalServerError
		}
		delay := s.delay
		s.mu.Unlock()

		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-c.Request().Context().Done():
				return c.Request().Context().Err()
			}
		}
		if status != 0 {
			return echo.NewHTTPError(status, errors.ErrorResponse{Message: "Internal server error", Code: "INJECTED"})
		}
		return next(c)
	}
}

func (s *Server) parseToken(c echo.Context, auth string) (any, error) {
	s.mu.Lock()
	userID, ok := s.tokens[auth]
	s.mu.Unlock()
	if !ok {
		return nil, errUnknownToken
	}
	if strings.Count(auth, ".") == 2 {
		if _, err := s.issuer.Verify(auth); err != nil {
			return nil, err
		}
	}
	return userID, nil
}

// Calls reports how often route was hit with method. route uses the echo
// pattern, e.g. "/posts/:id".
func (s *Server) Calls(method, route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[routeKey(method, route)]
}

// TotalCalls reports the number of requests served.
func (s *Server) TotalCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		n += c
	}
	return n
}

// ResetCalls zeroes the counters.
func (s *Server) ResetCalls() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = make(map[string]int)
}

// FailNext makes the next n calls to route answer 500.
func (s *Server) FailNext(method, route string, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[routeKey(method, route)] += n
}

// Revoke invalidates token server-side, as an expiry would.
func (s *Server) Revoke(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, token)
}

// Posts returns every stored post, newest first.
func (s *Server) Posts() []model.Post {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sortedPostsLocked()
}

func (s *Server) sortedPostsLocked() []model.Post {
	out := make([]model.Post, 0, len(s.posts))
	for _, p := range s.posts {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func routeKey(method, route string) string {
	return method + " " + route
}

// CustomValidator wraps validator for Echo.
type CustomValidator struct {
	validator *validator.Validate
}

// Validate implements echo.Validator interface.
func (cv *CustomValidator) Validate(i any) error {
	return cv.validator.Struct(i)
}
