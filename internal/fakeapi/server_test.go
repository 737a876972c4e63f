package fakeapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"devblog/internal/model"
)

func do(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestServer_LoginIssuesPresetThenSignedTokens(t *testing.T) {
	srv := New(WithTokens("t1"))
	_, err := srv.AddUser("Ada", "a@b.com", "secret")
	require.NoError(t, err)

	creds := LoginRequest{Email: "a@b.com", Password: "secret"}

	rec := do(t, srv.Handler(), http.MethodPost, "/auth/login", "", creds)
	require.Equal(t, http.StatusOK, rec.Code)
	var first model.AuthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &first))
	assert.Equal(t, "t1", first.AccessToken)
	assert.Equal(t, "a@b.com", first.User.Email)

	rec = do(t, srv.Handler(), http.MethodPost, "/auth/login", "", creds)
	require.Equal(t, http.StatusOK, rec.Code)
	var second model.AuthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &second))
	claims, err := srv.issuer.Verify(second.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, first.User.ID, claims.Subject)

	for _, token := range []string{first.AccessToken, second.AccessToken} {
		rec = do(t, srv.Handler(), http.MethodGet, "/auth/me", token, nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestServer_LoginRejectsBadPassword(t *testing.T) {
	srv := New()
	_, err := srv.AddUser("Ada", "a@b.com", "secret")
	require.NoError(t, err)

	rec := do(t, srv.Handler(), http.MethodPost, "/auth/login", "", LoginRequest{Email: "a@b.com", Password: "wrong"})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"message":"Invalid credentials","code":"INVALID_CREDENTIALS"}`, rec.Body.String())
}

func TestServer_RegisterConflict(t *testing.T) {
	srv := New()
	req := RegisterRequest{FullName: "Ada", Email: "a@b.com", Password: "secret"}

	rec := do(t, srv.Handler(), http.MethodPost, "/auth/register", "", req)
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, srv.Handler(), http.MethodPost, "/auth/register", "", req)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestServer_SecuredRoutesNeedAToken(t *testing.T) {
	srv := New()

	tests := []struct {
		method string
		path   string
		token  string
	}{
		{http.MethodGet, "/auth/me", ""},
		{http.MethodPost, "/posts", ""},
		{http.MethodPost, "/posts", "forged"},
		{http.MethodDelete, "/posts/p1", ""},
		{http.MethodPost, "/auth/logout", "forged"},
	}
	for _, tt := range tests {
		rec := do(t, srv.Handler(), tt.method, tt.path, tt.token, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "%s %s", tt.method, tt.path)
	}
}

func TestServer_PostOwnership(t *testing.T) {
	srv := New(WithTokens("ada-token", "grace-token"))
	ada, err := srv.AddUser("Ada", "ada@example.com", "secret")
	require.NoError(t, err)
	_, err = srv.AddUser("Grace", "grace@example.com", "secret")
	require.NoError(t, err)
	post := srv.AddPost(ada, model.Post{Title: "Hello", Excerpt: "E", Content: "C"})

	do(t, srv.Handler(), http.MethodPost, "/auth/login", "", LoginRequest{Email: "ada@example.com", Password: "secret"})
	do(t, srv.Handler(), http.MethodPost, "/auth/login", "", LoginRequest{Email: "grace@example.com", Password: "secret"})

	edit := PostRequest{Title: "Hijacked", Excerpt: "E", Content: "C", AuthorName: "Grace"}
	rec := do(t, srv.Handler(), http.MethodPut, "/posts/"+post.ID, "grace-token", edit)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(t, srv.Handler(), http.MethodDelete, "/posts/"+post.ID, "ada-token", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, srv.Handler(), http.MethodGet, "/posts/"+post.ID, "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	assert.Equal(t, 1, srv.Calls(http.MethodPut, "/posts/:id"))
	assert.Equal(t, 1, srv.Calls(http.MethodDelete, "/posts/:id"))
	assert.Equal(t, 2, srv.Calls(http.MethodPost, "/auth/login"))
}

func TestServer_LogoutRevokes(t *testing.T) {
	srv := New(WithTokens("t1"))
	_, err := srv.AddUser("Ada", "a@b.com", "secret")
	require.NoError(t, err)
	do(t, srv.Handler(), http.MethodPost, "/auth/login", "", LoginRequest{Email: "a@b.com", Password: "secret"})

	rec := do(t, srv.Handler(), http.MethodPost, "/auth/logout", "t1", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, srv.Handler(), http.MethodGet, "/auth/me", "t1", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestServer_FailNext(t *testing.T) {
	srv := New()
	srv.FailNext(http.MethodGet, "/posts", 1)

	assert.Equal(t, http.StatusInternalServerError, do(t, srv.Handler(), http.MethodGet, "/posts", "", nil).Code)
	assert.Equal(t, http.StatusOK, do(t, srv.Handler(), http.MethodGet, "/posts", "", nil).Code)
	assert.Equal(t, 2, srv.Calls(http.MethodGet, "/posts"))
}

func TestServer_Seed(t *testing.T) {
	srv := New()

	email, password, err := srv.Seed()
	require.NoError(t, err)

	posts := srv.Posts()
	require.Len(t, posts, 3)
	assert.Equal(t, "Bearer tokens without tears", posts[0].Title)

	rec := do(t, srv.Handler(), http.MethodPost, "/auth/login", "", LoginRequest{Email: email, Password: password})
	assert.Equal(t, http.StatusOK, rec.Code)
}
