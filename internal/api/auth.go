package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"devblog/internal/gateway"
	"devblog/internal/model"
)

// AuthAPI covers the /auth endpoints.
type AuthAPI interface {
	Login(ctx context.Context, in model.LoginInput) (*model.AuthResponse, error)
	Register(ctx context.Context, in model.RegisterInput) (*model.AuthResponse, error)
	Logout(ctx context.Context) error
	Me(ctx context.Context) (*model.User, error)
}

type authAPI struct {
	doer Doer
}

// NewAuthAPI creates an AuthAPI over doer.
func NewAuthAPI(doer Doer) AuthAPI {
	return &authAPI{doer: doer}
}

func (a *authAPI) Login(ctx context.Context, in model.LoginInput) (*model.AuthResponse, error) {
	raw, err := a.doer.Do(ctx, http.MethodPost, "/auth/login", in, public)
	if err != nil {
		return nil, err
	}
	return decodeAuth(raw, "login")
}

// Register sends fullName, email and password. ConfirmPassword is never serialized.
func (a *authAPI) Register(ctx context.Context, in model.RegisterInput) (*model.AuthResponse, error) {
	raw, err := a.doer.Do(ctx, http.MethodPost, "/auth/register", in, public)
	if err != nil {
		return nil, err
	}
	return decodeAuth(raw, "register")
}

func (a *authAPI) Logout(ctx context.Context) error {
	_, err := a.doer.Do(ctx, http.MethodPost, "/auth/logout", nil, authed)
	return err
}

func (a *authAPI) Me(ctx context.Context) (*model.User, error) {
	raw, err := a.doer.Do(ctx, http.MethodGet, "/auth/me", nil, authed)
	if err != nil {
		return nil, err
	}
	user, err := gateway.Decode[model.User](raw)
	if err != nil {
		return nil, fmt.Errorf("current user: %w", err)
	}
	return &user, nil
}

func decodeAuth(raw []byte, op string) (*model.AuthResponse, error) {
	resp, err := gateway.Decode[model.AuthResponse](raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if resp.AccessToken == "" {
		return nil, fmt.Errorf("%s: %w", op, errors.New("response carried no access token"))
	}
	return &resp, nil
}
