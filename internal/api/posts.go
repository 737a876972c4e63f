package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"devblog/internal/gateway"
	"devblog/internal/model"
)

// PostsAPI covers the /posts endpoints.
type PostsAPI interface {
	List(ctx context.Context) ([]model.Post, error)
	Get(ctx context.Context, id string) (*model.Post, error)
	Create(ctx context.Context, payload model.PostPayload) (*model.Post, error)
	Update(ctx context.Context, id string, payload model.PostPayload) (*model.Post, error)
	Delete(ctx context.Context, id string) error
}

type postsAPI struct {
	doer Doer
}

// NewPostsAPI creates a PostsAPI over doer.
func NewPostsAPI(doer Doer) PostsAPI {
	return &postsAPI{doer: doer}
}

func postPath(id string) string {
	return "/posts/" + url.PathEscape(id)
}

// List fetches every post. Reading posts needs no session.
func (a *postsAPI) List(ctx context.Context) ([]model.Post, error) {
	raw, err := a.doer.Do(ctx, http.MethodGet, "/posts", nil, public)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return []model.Post{}, nil
	}
	posts, err := gateway.Decode[[]model.Post](raw)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	return posts, nil
}

// Get fetches one post; a missing post fails with errors.ErrNotFound.
func (a *postsAPI) Get(ctx context.Context, id string) (*model.Post, error) {
	raw, err := a.doer.Do(ctx, http.MethodGet, postPath(id), nil, public)
	if err != nil {
		return nil, err
	}
	post, err := gateway.Decode[model.Post](raw)
	if err != nil {
		return nil, fmt.Errorf("get post %s: %w", id, err)
	}
	return &post, nil
}

// Create publishes a new post; the server assigns id and createdAt.
func (a *postsAPI) Create(ctx context.Context, payload model.PostPayload) (*model.Post, error) {
	raw, err := a.doer.Do(ctx, http.MethodPost, "/posts", payload, authed)
	if err != nil {
		return nil, err
	}
	post, err := gateway.Decode[model.Post](raw)
	if err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}
	return &post, nil
}

// Update replaces the editable fields of a post and returns the server's copy.
func (a *postsAPI) Update(ctx context.Context, id string, payload model.PostPayload) (*model.Post, error) {
	raw, err := a.doer.Do(ctx, http.MethodPut, postPath(id), payload, authed)
	if err != nil {
		return nil, err
	}
	post, err := gateway.Decode[model.Post](raw)
	if err != nil {
		return nil, fmt.Errorf("update post %s: %w", id, err)
	}
	return &post, nil
}

// Delete removes a post.
func (a *postsAPI) Delete(ctx context.Context, id string) error {
	_, err := a.doer.Do(ctx, http.MethodDelete, postPath(id), nil, authed)
	return err
}
