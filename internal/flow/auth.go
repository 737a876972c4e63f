package flow

import (
	"context"
	"errors"
	"strings"

	"github.com/golang/glog"

	"devblog/internal/api"
	"devblog/internal/cache"
	apperrors "devblog/internal/errors"
	"devblog/internal/model"
)

const (
	msgInvalidCredentials = "Invalid email or password"
	msgLoginFailed        = "Login failed. Please try again."
	msgEmailTaken         = "An account with this email already exists"
	msgRegisterFailed     = "Registration failed. Please try again."
	msgLoggedIn           = "Welcome back!"
	msgRegistered         = "Account created successfully! Welcome to Dev Blog!"
	msgLoggedOut          = "Logged out successfully"
	msgLogoutFailed       = "Logout failed. Please try again."
)

// Auth runs login, register and logout, and answers who is signed in.
type Auth struct {
	api      api.AuthAPI
	session  Session
	cache    *cache.Cache
	notifier Notifier
	nav      Navigator

	login    *Machine
	register *Machine
	logout   *Machine
}

// NewAuth creates the auth flows.
func NewAuth(authAPI api.AuthAPI, session Session, c *cache.Cache, notifier Notifier, nav Navigator) *Auth {
	return &Auth{
		api:      authAPI,
		session:  session,
		cache:    c,
		notifier: notifier,
		nav:      nav,
		login:    newMachine("login"),
		register: newMachine("register"),
		logout:   newMachine("logout"),
	}
}

// LoginState exposes the login lifecycle.
func (a *Auth) LoginState() *Machine { return a.login }

// RegisterState exposes the register lifecycle.
func (a *Auth) RegisterState() *Machine { return a.register }

// LogoutState exposes the logout lifecycle.
func (a *Auth) LogoutState() *Machine { return a.logout }

// Login exchanges credentials for a session. On success the token is
// stored, the user is cached and the navigator goes home.
func (a *Auth) Login(ctx context.Context, in model.LoginInput) (*model.User, error) {
	if err := a.login.begin(); err != nil {
		return nil, err
	}

	in.Email = strings.TrimSpace(in.Email)
	if err := model.Validate(in); err != nil {
		return nil, fail(a.notifier, a.login, err, "")
	}

	resp, err := a.api.Login(ctx, in)
	if err != nil {
		return nil, fail(a.notifier, a.login, err, loginMessage(err))
	}

	a.establish(ctx, resp)
	a.login.succeed()
	a.notifier.Notify(NoticeSuccess, msgLoggedIn)
	a.nav.Navigate(RouteHome)
	return &resp.User, nil
}

// Register creates an account and signs in with it.
func (a *Auth) Register(ctx context.Context, in model.RegisterInput) (*model.User, error) {
	if err := a.register.begin(); err != nil {
		return nil, err
	}

	in.FullName = strings.TrimSpace(in.FullName)
	in.Email = strings.TrimSpace(in.Email)
	if err := model.Validate(in); err != nil {
		return nil, fail(a.notifier, a.register, err, "")
	}

	resp, err := a.api.Register(ctx, in)
	if err != nil {
		return nil, fail(a.notifier, a.register, err, registerMessage(err))
	}

	a.establish(ctx, resp)
	a.register.succeed()
	a.notifier.Notify(NoticeSuccess, msgRegistered)
	a.nav.Navigate(RouteHome)
	return &resp.User, nil
}

// Logout tells the server the session is over. Whatever the server says,
// the local token and every cached entry are dropped afterwards. The server
// error, if any, is returned.
func (a *Auth) Logout(ctx context.Context) error {
	if err := a.logout.begin(); err != nil {
		return err
	}

	var serverErr error
	if a.session.Token(ctx) != "" {
		serverErr = a.api.Logout(ctx)
		// a rejected token is as logged out as it gets
		if errors.Is(serverErr, apperrors.ErrUnauthorized) {
			serverErr = nil
		}
	}

	if err := a.session.ClearToken(context.WithoutCancel(ctx)); err != nil {
		glog.Warningf("logout: %v", err)
	}
	a.cache.Clear()

	if serverErr != nil {
		glog.Warningf("logout: server: %v", serverErr)
		fail(a.notifier, a.logout, serverErr, msgLogoutFailed)
	} else {
		a.logout.succeed()
		a.notifier.Notify(NoticeSuccess, msgLoggedOut)
	}
	a.nav.Navigate(RouteHome)
	return serverErr
}

// CurrentUser returns the signed-in user, or nil when anonymous. No request
// is made without a token. A token the server rejects also yields nil.
func (a *Auth) CurrentUser(ctx context.Context) (*model.User, error) {
	if a.session.Token(ctx) == "" {
		return nil, nil
	}
	user, err := cache.Get(ctx, a.cache, cache.AuthUser, a.api.Me)
	if errors.Is(err, apperrors.ErrUnauthorized) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (a *Auth) establish(ctx context.Context, resp *model.AuthResponse) {
	if err := a.session.SetToken(ctx, resp.AccessToken); err != nil {
		// the token is live for this process even if it did not persist
		glog.Warningf("session: %v", err)
	}
	user := resp.User
	a.cache.Write(cache.AuthUser, &user)
}

func loginMessage(err error) string {
	if errors.Is(err, apperrors.ErrUnauthorized) {
		return msgInvalidCredentials
	}
	return apperrors.UserMessage(err, msgLoginFailed)
}

func registerMessage(err error) string {
	if errors.Is(err, apperrors.ErrConflict) {
		return apperrors.UserMessage(err, msgEmailTaken)
	}
	return apperrors.UserMessage(err, msgRegisterFailed)
}
