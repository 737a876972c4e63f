package flow

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/mock"

	"devblog/internal/cache"
	"devblog/internal/model"
	"devblog/internal/session"
)

// MockAuthAPI is a mock implementation of api.AuthAPI.
type MockAuthAPI struct {
	mock.Mock
}

func (m *MockAuthAPI) Login(ctx context.Context, in model.LoginInput) (*model.AuthResponse, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AuthResponse), args.Error(1)
}

func (m *MockAuthAPI) Register(ctx context.Context, in model.RegisterInput) (*model.AuthResponse, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AuthResponse), args.Error(1)
}

func (m *MockAuthAPI) Logout(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockAuthAPI) Me(ctx context.Context) (*model.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

// MockPostsAPI is a mock implementation of api.PostsAPI.
type MockPostsAPI struct {
	mock.Mock
}

func (m *MockPostsAPI) List(ctx context.Context) ([]model.Post, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Post), args.Error(1)
}

func (m *MockPostsAPI) Get(ctx context.Context, id string) (*model.Post, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Post), args.Error(1)
}

func (m *MockPostsAPI) Create(ctx context.Context, payload model.PostPayload) (*model.Post, error) {
	args := m.Called(ctx, payload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Post), args.Error(1)
}

func (m *MockPostsAPI) Update(ctx context.Context, id string, payload model.PostPayload) (*model.Post, error) {
	args := m.Called(ctx, id, payload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Post), args.Error(1)
}

func (m *MockPostsAPI) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockConfirmer is a mock implementation of Confirmer.
type MockConfirmer struct {
	mock.Mock
}

func (m *MockConfirmer) Confirm(ctx context.Context, prompt string) (bool, error) {
	args := m.Called(ctx, prompt)
	return args.Bool(0), args.Error(1)
}

type notice struct {
	Kind    NoticeKind
	Message string
}

// recorder captures notices and navigation.
type recorder struct {
	mu      sync.Mutex
	notices []notice
	routes  []string
}

func (r *recorder) Notify(kind NoticeKind, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, notice{Kind: kind, Message: message})
}

func (r *recorder) Navigate(route string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes = append(r.routes, route)
}

func (r *recorder) lastRoute() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.routes) == 0 {
		return ""
	}
	return r.routes[len(r.routes)-1]
}

func (r *recorder) lastNotice() notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.notices) == 0 {
		return notice{}
	}
	return r.notices[len(r.notices)-1]
}

type harness struct {
	authAPI   *MockAuthAPI
	postsAPI  *MockPostsAPI
	confirmer *MockConfirmer
	session   *session.Session
	cache     *cache.Cache
	rec       *recorder
	auth      *Auth
	posts     *Posts
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		authAPI:   new(MockAuthAPI),
		postsAPI:  new(MockPostsAPI),
		confirmer: new(MockConfirmer),
		session:   session.New(session.NewMemoryStore()),
		cache:     cache.New(cache.Options{}),
		rec:       &recorder{},
	}
	t.Cleanup(h.cache.Close)
	h.auth = NewAuth(h.authAPI, h.session, h.cache, h.rec, h.rec)
	h.posts = NewPosts(h.postsAPI, h.auth, h.cache, h.rec, h.rec, h.confirmer)
	return h
}

// signIn puts the harness in the state a successful login leaves behind.
func (h *harness) signIn(t *testing.T, user *model.User) {
	t.Helper()
	if err := h.session.SetToken(context.Background(), "tok-"+user.ID); err != nil {
		t.Fatal(err)
	}
	h.cache.Write(cache.AuthUser, user)
}

func (h *harness) assertExpectations(t *testing.T) {
	h.authAPI.AssertExpectations(t)
	h.postsAPI.AssertExpectations(t)
	h.confirmer.AssertExpectations(t)
}
