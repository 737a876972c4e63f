package flow

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"devblog/internal/cache"
	apperrors "devblog/internal/errors"
	"devblog/internal/model"
)

func TestAuth_Login(t *testing.T) {
	user := model.User{ID: "u1", FullName: "Ada", Email: "a@b.com"}

	tests := []struct {
		name        string
		input       model.LoginInput
		setupMock   func(*MockAuthAPI)
		wantErr     error
		wantToken   string
		wantMessage string
		wantRoute   string
	}{
		{
			name:  "success",
			input: model.LoginInput{Email: " a@b.com ", Password: "secret"},
			setupMock: func(m *MockAuthAPI) {
				m.On("Login", mock.Anything, model.LoginInput{Email: "a@b.com", Password: "secret"}).
					Return(&model.AuthResponse{AccessToken: "t1", User: user}, nil)
			},
			wantToken:   "t1",
			wantMessage: msgLoggedIn,
			wantRoute:   RouteHome,
		},
		{
			name:  "wrong credentials",
			input: model.LoginInput{Email: "a@b.com", Password: "nope"},
			setupMock: func(m *MockAuthAPI) {
				m.On("Login", mock.Anything, mock.Anything).
					Return(nil, apperrors.NewHTTPError(http.StatusUnauthorized, []byte(`{"message":"Unauthorized"}`)))
			},
			wantErr:     apperrors.ErrUnauthorized,
			wantMessage: msgInvalidCredentials,
		},
		{
			name:  "server unreachable",
			input: model.LoginInput{Email: "a@b.com", Password: "secret"},
			setupMock: func(m *MockAuthAPI) {
				m.On("Login", mock.Anything, mock.Anything).
					Return(nil, apperrors.NewNetworkError(errors.New("connection refused")))
			},
			wantErr:     apperrors.ErrNetwork,
			wantMessage: apperrors.MessageNetwork,
		},
		{
			name:        "invalid email never reaches the server",
			input:       model.LoginInput{Email: "not-an-email", Password: "secret"},
			setupMock:   func(m *MockAuthAPI) {},
			wantErr:     apperrors.ErrValidation,
			wantMessage: "Please enter a valid email address",
		},
		{
			name:        "missing password",
			input:       model.LoginInput{Email: "a@b.com"},
			setupMock:   func(m *MockAuthAPI) {},
			wantErr:     apperrors.ErrValidation,
			wantMessage: "Password is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			tt.setupMock(h.authAPI)

			got, err := h.auth.Login(context.Background(), tt.input)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)
				assert.Equal(t, StateError, h.auth.LoginState().State())
				assert.Equal(t, tt.wantMessage, h.auth.LoginState().Message())
				assert.Equal(t, notice{NoticeError, tt.wantMessage}, h.rec.lastNotice())
				_, cached := h.cache.Peek(cache.AuthUser)
				assert.False(t, cached)
			} else {
				require.NoError(t, err)
				assert.Equal(t, &user, got)
				assert.Equal(t, StateSuccess, h.auth.LoginState().State())
				assert.Equal(t, notice{NoticeSuccess, tt.wantMessage}, h.rec.lastNotice())
				entry, ok := h.cache.Peek(cache.AuthUser)
				require.True(t, ok)
				assert.Equal(t, &user, entry.Data)
			}
			assert.Equal(t, tt.wantToken, h.session.Token(context.Background()))
			assert.Equal(t, tt.wantRoute, h.rec.lastRoute())
			h.assertExpectations(t)
		})
	}
}

func TestAuth_LoginRejectsResubmissionWhilePending(t *testing.T) {
	h := newHarness(t)
	release := make(chan struct{})
	started := make(chan struct{})
	in := model.LoginInput{Email: "a@b.com", Password: "secret"}
	h.authAPI.On("Login", mock.Anything, in).
		Run(func(args mock.Arguments) {
			close(started)
			<-release
		}).
		Return(&model.AuthResponse{AccessToken: "t1", User: model.User{ID: "u1"}}, nil).
		Once()

	done := make(chan error)
	go func() {
		_, err := h.auth.Login(context.Background(), in)
		done <- err
	}()
	<-started

	assert.Equal(t, StatePending, h.auth.LoginState().State())
	_, err := h.auth.Login(context.Background(), in)
	assert.ErrorIs(t, err, ErrPending)

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, StateSuccess, h.auth.LoginState().State())
	h.assertExpectations(t)
}

func TestAuth_Register(t *testing.T) {
	valid := model.RegisterInput{FullName: "Ada", Email: "a@b.com", Password: "secret", ConfirmPassword: "secret"}

	tests := []struct {
		name        string
		input       model.RegisterInput
		setupMock   func(*MockAuthAPI)
		wantErr     error
		wantMessage string
	}{
		{
			name:  "success",
			input: valid,
			setupMock: func(m *MockAuthAPI) {
				m.On("Register", mock.Anything, valid).
					Return(&model.AuthResponse{AccessToken: "t2", User: model.User{ID: "u2"}}, nil)
			},
			wantMessage: msgRegistered,
		},
		{
			name:  "email taken with server message",
			input: valid,
			setupMock: func(m *MockAuthAPI) {
				m.On("Register", mock.Anything, valid).
					Return(nil, apperrors.NewHTTPError(http.StatusConflict, []byte(`{"message":"Email already registered"}`)))
			},
			wantErr:     apperrors.ErrConflict,
			wantMessage: "Email already registered",
		},
		{
			name:  "email taken without server message",
			input: valid,
			setupMock: func(m *MockAuthAPI) {
				m.On("Register", mock.Anything, valid).
					Return(nil, apperrors.NewHTTPError(http.StatusConflict, nil))
			},
			wantErr:     apperrors.ErrConflict,
			wantMessage: msgEmailTaken,
		},
		{
			name:        "passwords differ",
			input:       model.RegisterInput{FullName: "Ada", Email: "a@b.com", Password: "secret", ConfirmPassword: "secrets"},
			setupMock:   func(m *MockAuthAPI) {},
			wantErr:     apperrors.ErrValidation,
			wantMessage: "Passwords do not match",
		},
		{
			name:        "short password",
			input:       model.RegisterInput{FullName: "Ada", Email: "a@b.com", Password: "abc", ConfirmPassword: "abc"},
			setupMock:   func(m *MockAuthAPI) {},
			wantErr:     apperrors.ErrValidation,
			wantMessage: "Password must be at least 6 characters long",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			tt.setupMock(h.authAPI)

			_, err := h.auth.Register(context.Background(), tt.input)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, tt.wantMessage, h.auth.RegisterState().Message())
				assert.Empty(t, h.session.Token(context.Background()))
				assert.Empty(t, h.rec.routes)
			} else {
				require.NoError(t, err)
				assert.Equal(t, "t2", h.session.Token(context.Background()))
				assert.Equal(t, RouteHome, h.rec.lastRoute())
			}
			assert.Equal(t, tt.wantMessage, h.rec.lastNotice().Message)
			h.assertExpectations(t)
		})
	}
}

func TestAuth_Logout(t *testing.T) {
	tests := []struct {
		name       string
		setupMock  func(*MockAuthAPI)
		wantErr    bool
		wantNotice notice
	}{
		{
			name:       "server accepts",
			setupMock:  func(m *MockAuthAPI) { m.On("Logout", mock.Anything).Return(nil) },
			wantNotice: notice{NoticeSuccess, msgLoggedOut},
		},
		{
			name: "server fails",
			setupMock: func(m *MockAuthAPI) {
				m.On("Logout", mock.Anything).Return(apperrors.NewHTTPError(http.StatusInternalServerError, nil))
			},
			wantErr:    true,
			wantNotice: notice{NoticeError, msgLogoutFailed},
		},
		{
			name: "server unreachable",
			setupMock: func(m *MockAuthAPI) {
				m.On("Logout", mock.Anything).Return(apperrors.NewNetworkError(context.DeadlineExceeded))
			},
			wantErr:    true,
			wantNotice: notice{NoticeError, msgLogoutFailed},
		},
		{
			name: "token already rejected",
			setupMock: func(m *MockAuthAPI) {
				m.On("Logout", mock.Anything).Return(apperrors.NewHTTPError(http.StatusUnauthorized, nil))
			},
			wantNotice: notice{NoticeSuccess, msgLoggedOut},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.signIn(t, &model.User{ID: "u1"})
			h.cache.Write(cache.PostsList, []model.Post{{ID: "p1"}})
			tt.setupMock(h.authAPI)

			err := h.auth.Logout(context.Background())

			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Empty(t, h.session.Token(context.Background()))
			assert.Equal(t, 0, h.cache.Len())
			assert.Equal(t, RouteHome, h.rec.lastRoute())
			assert.Equal(t, tt.wantNotice, h.rec.lastNotice())
			h.assertExpectations(t)
		})
	}
}

func TestAuth_LogoutWhenAnonymousSkipsServer(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.auth.Logout(context.Background()))

	h.authAPI.AssertNotCalled(t, "Logout", mock.Anything)
	assert.Equal(t, RouteHome, h.rec.lastRoute())
}

func TestAuth_CurrentUser(t *testing.T) {
	t.Run("anonymous makes no request", func(t *testing.T) {
		h := newHarness(t)

		user, err := h.auth.CurrentUser(context.Background())

		assert.NoError(t, err)
		assert.Nil(t, user)
		h.authAPI.AssertNotCalled(t, "Me", mock.Anything)
	})

	t.Run("fetched once then cached", func(t *testing.T) {
		h := newHarness(t)
		require.NoError(t, h.session.SetToken(context.Background(), "t1"))
		h.authAPI.On("Me", mock.Anything).Return(&model.User{ID: "u1"}, nil).Once()

		for i := 0; i < 3; i++ {
			user, err := h.auth.CurrentUser(context.Background())
			require.NoError(t, err)
			assert.Equal(t, "u1", user.ID)
		}
		h.assertExpectations(t)
	})

	t.Run("rejected token reads as anonymous", func(t *testing.T) {
		h := newHarness(t)
		require.NoError(t, h.session.SetToken(context.Background(), "expired"))
		h.authAPI.On("Me", mock.Anything).Return(nil, apperrors.NewHTTPError(http.StatusUnauthorized, nil))

		user, err := h.auth.CurrentUser(context.Background())

		assert.NoError(t, err)
		assert.Nil(t, user)
	})

	t.Run("other failures surface", func(t *testing.T) {
		h := newHarness(t)
		require.NoError(t, h.session.SetToken(context.Background(), "t1"))
		h.authAPI.On("Me", mock.Anything).Return(nil, apperrors.NewNetworkError(errors.New("down")))

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_, err := h.auth.CurrentUser(ctx)

		assert.ErrorIs(t, err, apperrors.ErrNetwork)
	})
}
