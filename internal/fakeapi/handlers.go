package fakeapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"

	apperrors "devblog/internal/errors"
	"devblog/internal/model"
)

var (
	errUnknownToken = errors.New("unknown or revoked token")
	// ErrUserAlreadyExists is returned when registering a taken email.
	ErrUserAlreadyExists = errors.New("user already exists")
)

// RegisterRequest is the body of POST /auth/register.
type RegisterRequest struct {
	FullName string `json:"fullName" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// PostRequest is the body of POST /posts and PUT /posts/:id.
type PostRequest struct {
	Title      string   `json:"title" validate:"required"`
	Excerpt    string   `json:"excerpt" validate:"required,max=150"`
	Content    string   `json:"content" validate:"required"`
	AuthorName string   `json:"authorName" validate:"required"`
	Tags       []string `json:"tags"`
}

func (s *Server) register(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	user, err := s.AddUser(req.FullName, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrUserAlreadyExists) {
			return echo.NewHTTPError(http.StatusConflict, apperrors.ErrorResponse{
				Message: "Email already registered",
				Code:    "USER_ALREADY_EXISTS",
			})
		}
		return echo.NewHTTPError(http.StatusInternalServerError, apperrors.ErrorResponse{
			Message: "failed to register user",
			Code:    "REGISTRATION_FAILED",
		})
	}

	return s.authenticated(c, http.StatusCreated, user, "user registered successfully")
}

func (s *Server) login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	s.mu.Lock()
	acct := s.users[s.byEmail[strings.ToLower(req.Email)]]
	s.mu.Unlock()

	if acct == nil || bcrypt.CompareHashAndPassword(acct.passwordHash, []byte(req.Password)) != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, apperrors.ErrorResponse{
			Message: "Invalid credentials",
			Code:    "INVALID_CREDENTIALS",
		})
	}

	return s.authenticated(c, http.StatusOK, acct.user, "")
}

func (s *Server) authenticated(c echo.Context, status int, user model.User, message string) error {
	token, err := s.issue(user)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, apperrors.ErrorResponse{
			Message: "failed to issue token",
			Code:    "TOKEN_FAILED",
		})
	}
	return c.JSON(status, model.AuthResponse{
		AccessToken: token,
		User:        user,
		Message:     message,
	})
}

func (s *Server) issue(user model.User) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var token string
	if len(s.preset) > 0 {
		token, s.preset = s.preset[0], s.preset[1:]
	} else {
		signed, err := s.issuer.Issue(user.ID, user.Email)
		if err != nil {
			return "", err
		}
		token = signed
	}
	s.tokens[token] = user.ID
	return token, nil
}

func (s *Server) logout(c echo.Context) error {
	s.Revoke(bearer(c))
	return c.JSON(http.StatusOK, map[string]string{"message": "logged out successfully"})
}

func (s *Server) me(c echo.Context) error {
	user, ok := s.currentUser(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, apperrors.ErrorResponse{Message: "Unauthorized"})
	}
	return c.JSON(http.StatusOK, user)
}

func (s *Server) listPosts(c echo.Context) error {
	return c.JSON(http.StatusOK, s.Posts())
}

func (s *Server) getPost(c echo.Context) error {
	s.mu.Lock()
	post, ok := s.posts[c.Param("id")]
	s.mu.Unlock()
	if !ok {
		return postNotFound()
	}
	return c.JSON(http.StatusOK, post)
}

func (s *Server) createPost(c echo.Context) error {
	user, ok := s.currentUser(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, apperrors.ErrorResponse{Message: "Unauthorized"})
	}
	req, err := bindPost(c)
	if err != nil {
		return err
	}

	post := model.Post{
		ID:         uuid.NewString(),
		Title:      req.Title,
		Excerpt:    req.Excerpt,
		Content:    req.Content,
		AuthorName: req.AuthorName,
		AuthorID:   &model.AuthorRef{ID: user.ID, FullName: user.FullName, Email: user.Email},
		Tags:       nonNil(req.Tags),
		CreatedAt:  s.now().UTC(),
	}

	s.mu.Lock()
	s.posts[post.ID] = post
	s.mu.Unlock()

	return c.JSON(http.StatusCreated, post)
}

func (s *Server) updatePost(c echo.Context) error {
	user, ok := s.currentUser(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, apperrors.ErrorResponse{Message: "Unauthorized"})
	}
	req, err := bindPost(c)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	post, ok := s.posts[c.Param("id")]
	if !ok {
		return postNotFound()
	}
	if post.AuthorID == nil || post.AuthorID.ID != user.ID {
		return notAuthor()
	}

	post.Title = req.Title
	post.Excerpt = req.Excerpt
	post.Content = req.Content
	post.AuthorName = req.AuthorName
	post.Tags = nonNil(req.Tags)
	s.posts[post.ID] = post

	return c.JSON(http.StatusOK, post)
}

func (s *Server) deletePost(c echo.Context) error {
	user, ok := s.currentUser(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, apperrors.ErrorResponse{Message: "Unauthorized"})
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	post, ok := s.posts[c.Param("id")]
	if !ok {
		return postNotFound()
	}
	if post.AuthorID == nil || post.AuthorID.ID != user.ID {
		return notAuthor()
	}
	delete(s.posts, post.ID)

	return c.NoContent(http.StatusNoContent)
}

func (s *Server) currentUser(c echo.Context) (model.User, bool) {
	userID, _ := c.Get("user").(string)
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.users[userID]
	if !ok {
		return model.User{}, false
	}
	return acct.user, true
}

func bindPost(c echo.Context) (*PostRequest, error) {
	var req PostRequest
	if err := c.Bind(&req); err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, apperrors.ErrorResponse{
			Message: err.Error(),
			Code:    "VALIDATION_FAILED",
		})
	}
	return &req, nil
}

func bearer(c echo.Context) string {
	return strings.TrimPrefix(c.Request().Header.Get(echo.HeaderAuthorization), "Bearer ")
}

func postNotFound() error {
	return echo.NewHTTPError(http.StatusNotFound, apperrors.ErrorResponse{
		Message: "Post not found",
		Code:    "POST_NOT_FOUND",
	})
}

func notAuthor() error {
	return echo.NewHTTPError(http.StatusForbidden, apperrors.ErrorResponse{
		Message: "You can only modify your own posts",
		Code:    "NOT_AUTHOR",
	})
}

func nonNil(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
