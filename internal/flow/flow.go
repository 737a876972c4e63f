package flow

import (
	"context"
	"errors"

	"github.com/golang/glog"

	apperrors "devblog/internal/errors"
)

var (
	// ErrPending is returned when a flow is submitted again before the
	// previous submission finished.
	ErrPending = errors.New("already in progress")
	// ErrAuthRequired is returned when an anonymous caller starts a flow that
	// needs a session. The navigator has been sent to the login route.
	ErrAuthRequired = errors.New("authentication required")
	// ErrCancelled is returned when the user declined a confirmation.
	ErrCancelled = errors.New("cancelled")
)

// Routes the flows navigate to.
const (
	RouteHome       = "/"
	RouteLogin      = "/login"
	RouteRegister   = "/register"
	RouteCreatePost = "/create-post"
)

// PostRoute is the detail page of a post.
func PostRoute(id string) string {
	return "/posts/" + id
}

// EditRoute is the edit page of a post.
func EditRoute(id string) string {
	return "/posts/edit/" + id
}

// NoticeKind classifies a user-facing notice.
type NoticeKind int

const (
	NoticeSuccess NoticeKind = iota
	NoticeError
	NoticeInfo
)

func (k NoticeKind) String() string {
	switch k {
	case NoticeSuccess:
		return "success"
	case NoticeError:
		return "error"
	default:
		return "info"
	}
}

// Notifier shows short messages to the user.
type Notifier interface {
	Notify(kind NoticeKind, message string)
}

// Navigator moves the user to another route.
type Navigator interface {
	Navigate(route string)
}

// Confirmer asks the user a yes/no question.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

// Session is the slice of the session the flows need. *session.Session
// implements it.
type Session interface {
	Token(ctx context.Context) string
	SetToken(ctx context.Context, token string) error
	ClearToken(ctx context.Context) error
}

// fail moves m to the error state and tells the user. message falls back to
// the text derived from err.
func fail(n Notifier, m *Machine, err error, message string) error {
	if message == "" {
		message = apperrors.UserMessage(err, "")
	}
	m.fail(err, message)
	n.Notify(NoticeError, message)
	glog.V(1).Infof("flow: %s failed: %v", m.name, err)
	return err
}
