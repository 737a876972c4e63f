package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/golang/glog"
)

// Session is the process-wide view of "am I logged in, and with what
// credential". The token is read from the backing Store once and then held
// in memory; writes go through to the Store.
type Session struct {
	store Store

	mu        sync.RWMutex
	token     string
	loaded    bool
	listeners []func(authenticated bool)
}

// New creates a Session over store.
func New(store Store) *Session {
	return &Session{store: store}
}

// Load reads the persisted token, if any. Backend failures are logged and
// treated as anonymous.
func (s *Session) Load(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadLocked(ctx)
}

func (s *Session) loadLocked(ctx context.Context) {
	if s.loaded {
		return
	}
	token, err := s.store.Token(ctx)
	if err != nil {
		glog.Warningf("session: load token: %v", err)
		token = ""
	}
	s.token = token
	s.loaded = true
}

// Token returns the current token, or "" when anonymous.
func (s *Session) Token(ctx context.Context) string {
	s.mu.RLock()
	if s.loaded {
		defer s.mu.RUnlock()
		return s.token
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadLocked(ctx)
	return s.token
}

// Authenticated reports whether a token is held. It says nothing about
// whether the server still accepts it.
func (s *Session) Authenticated(ctx context.Context) bool {
	return s.Token(ctx) != ""
}

// SetToken makes token current for this process and persists it. The
// in-memory token is updated even when persistence fails.
func (s *Session) SetToken(ctx context.Context, token string) error {
	s.mu.Lock()
	s.token = token
	s.loaded = true
	listeners := s.listeners
	s.mu.Unlock()

	notify(listeners, token != "")

	if err := s.store.SetToken(ctx, token); err != nil {
		return fmt.Errorf("persist token: %w", err)
	}
	return nil
}

// ClearToken forgets the token. It is safe to call when no token is set.
// The process is anonymous afterwards even if the backend delete fails.
func (s *Session) ClearToken(ctx context.Context) error {
	s.mu.Lock()
	had := s.token != "" || !s.loaded
	s.token = ""
	s.loaded = true
	listeners := s.listeners
	s.mu.Unlock()

	if had {
		notify(listeners, false)
	}

	if err := s.store.ClearToken(ctx); err != nil {
		return fmt.Errorf("clear token: %w", err)
	}
	return nil
}

// OnChange registers fn to run after every SetToken and after any
// ClearToken that dropped a token.
func (s *Session) OnChange(fn func(authenticated bool)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Claims decodes the current token without verifying it.
func (s *Session) Claims(ctx context.Context) (*Claims, error) {
	token := s.Token(ctx)
	if token == "" {
		return nil, ErrNoToken
	}
	return ParseClaims(token)
}

func notify(listeners []func(bool), authenticated bool) {
	for _, fn := range listeners {
		fn(authenticated)
	}
}
