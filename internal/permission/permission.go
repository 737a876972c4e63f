package permission

import "devblog/internal/model"

// CanEdit reports whether user may edit or delete post. It is true only when
// both are known and the user's id equals the post's author id. Any missing
// piece means no.
func CanEdit(user *model.User, post *model.Post) bool {
	if user == nil || post == nil || post.AuthorID == nil {
		return false
	}
	if user.ID == "" || post.AuthorID.ID == "" {
		return false
	}
	return user.ID == post.AuthorID.ID
}

// IsAuthenticated reports whether a user is known.
func IsAuthenticated(user *model.User) bool {
	return user != nil && user.ID != ""
}

// DisplayName returns the name to greet user with.
func DisplayName(user *model.User) string {
	switch {
	case user == nil:
		return "Guest"
	case user.FullName != "":
		return user.FullName
	case user.Email != "":
		return user.Email
	default:
		return "Guest"
	}
}
