package flow

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang/glog"

	"devblog/internal/api"
	"devblog/internal/cache"
	apperrors "devblog/internal/errors"
	"devblog/internal/model"
	"devblog/internal/permission"
)

const (
	msgCreated      = "Post created successfully!"
	msgCreateFailed = "Failed to create post"
	msgUpdated      = "Post updated successfully!"
	msgUpdateFailed = "Failed to update post"
	msgDeleted      = "Post deleted successfully"
	msgDeleteFailed = "Failed to delete post"
	msgNotAuthor    = "You can only change your own posts"
	msgSignIn       = "Please sign in to continue"
)

// Posts runs the post queries and the create, update and delete flows.
type Posts struct {
	api       api.PostsAPI
	auth      *Auth
	cache     *cache.Cache
	notifier  Notifier
	nav       Navigator
	confirmer Confirmer

	create *Machine
	update *Machine
	remove *Machine
}

// NewPosts creates the post flows. auth answers who is signed in.
func NewPosts(postsAPI api.PostsAPI, auth *Auth, c *cache.Cache, notifier Notifier, nav Navigator, confirmer Confirmer) *Posts {
	return &Posts{
		api:       postsAPI,
		auth:      auth,
		cache:     c,
		notifier:  notifier,
		nav:       nav,
		confirmer: confirmer,
		create:    newMachine("create post"),
		update:    newMachine("update post"),
		remove:    newMachine("delete post"),
	}
}

// CreateState exposes the create lifecycle.
func (p *Posts) CreateState() *Machine { return p.create }

// UpdateState exposes the update lifecycle.
func (p *Posts) UpdateState() *Machine { return p.update }

// DeleteState exposes the delete lifecycle.
func (p *Posts) DeleteState() *Machine { return p.remove }

// ListPosts returns every post, from cache when fresh.
func (p *Posts) ListPosts(ctx context.Context) ([]model.Post, error) {
	return cache.Get(ctx, p.cache, cache.PostsList, p.api.List)
}

// GetPost returns one post, from cache when fresh. A missing post fails
// with errors.ErrNotFound.
func (p *Posts) GetPost(ctx context.Context, id string) (*model.Post, error) {
	return cache.Get(ctx, p.cache, cache.PostDetail(id), p.fetchPost(id))
}

func (p *Posts) refetchPost(ctx context.Context, id string) (*model.Post, error) {
	p.cache.Invalidate(cache.PostDetail(id))
	return p.GetPost(ctx, id)
}

func (p *Posts) fetchPost(id string) func(context.Context) (*model.Post, error) {
	return func(ctx context.Context) (*model.Post, error) {
		return p.api.Get(ctx, id)
	}
}

// EnterCreate guards the create page. Anonymous callers are sent to the
// login route and get ErrAuthRequired; no request is made for them.
func (p *Posts) EnterCreate(ctx context.Context) (*model.User, error) {
	return p.requireUser(ctx)
}

// Create publishes form. The list is invalidated, the new post seeds its
// detail entry and the navigator goes to it.
func (p *Posts) Create(ctx context.Context, form model.PostForm) (*model.Post, error) {
	if err := p.create.begin(); err != nil {
		return nil, err
	}

	if _, err := p.requireUser(ctx); err != nil {
		return nil, fail(p.notifier, p.create, err, guardMessage(err))
	}

	form = form.Trimmed()
	if err := model.Validate(form); err != nil {
		return nil, fail(p.notifier, p.create, err, "")
	}

	post, err := p.api.Create(ctx, form.Payload())
	if err != nil {
		return nil, fail(p.notifier, p.create, err, apperrors.UserMessage(err, msgCreateFailed))
	}

	p.cache.Invalidate(cache.PostsList)
	if post.ID != "" {
		p.cache.Write(cache.PostDetail(post.ID), post)
	}
	p.create.succeed()
	p.notifier.Notify(NoticeSuccess, msgCreated)
	glog.V(1).Infof("flow: created post %s", post.ID)

	if post.ID != "" {
		p.nav.Navigate(PostRoute(post.ID))
	} else {
		p.nav.Navigate(RouteHome)
	}
	return post, nil
}

// EnterEdit guards the edit page and returns the form pre-filled from the
// post. Anyone but the author is sent back to the post with
// errors.ErrForbidden.
func (p *Posts) EnterEdit(ctx context.Context, id string) (model.PostForm, error) {
	user, err := p.requireUser(ctx)
	if err != nil {
		return model.PostForm{}, err
	}
	post, err := p.GetPost(ctx, id)
	if err != nil {
		return model.PostForm{}, err
	}
	if !permission.CanEdit(user, post) {
		p.nav.Navigate(PostRoute(id))
		return model.PostForm{}, apperrors.ErrForbidden
	}
	return model.FormFromPost(post), nil
}

// Update replaces the post's fields with form. Ownership is checked against
// a freshly fetched copy of the post before anything is sent.
func (p *Posts) Update(ctx context.Context, id string, form model.PostForm) (*model.Post, error) {
	if err := p.update.begin(); err != nil {
		return nil, err
	}

	user, err := p.requireUser(ctx)
	if err != nil {
		return nil, fail(p.notifier, p.update, err, guardMessage(err))
	}
	current, err := p.refetchPost(ctx, id)
	if err != nil {
		return nil, fail(p.notifier, p.update, err, apperrors.UserMessage(err, msgUpdateFailed))
	}
	if !permission.CanEdit(user, current) {
		p.nav.Navigate(PostRoute(id))
		return nil, fail(p.notifier, p.update, apperrors.ErrForbidden, msgNotAuthor)
	}

	form = form.Trimmed()
	if err := model.Validate(form); err != nil {
		return nil, fail(p.notifier, p.update, err, "")
	}

	post, err := p.api.Update(ctx, id, form.Payload())
	if err != nil {
		return nil, fail(p.notifier, p.update, err, apperrors.UserMessage(err, msgUpdateFailed))
	}

	p.cache.Write(cache.PostDetail(id), post)
	p.cache.Invalidate(cache.PostsList)
	p.update.succeed()
	p.notifier.Notify(NoticeSuccess, msgUpdated)
	p.nav.Navigate(PostRoute(id))
	return post, nil
}

// Delete removes the post after the user confirms. A post that is already
// gone counts as deleted. Declining leaves everything untouched and returns
// ErrCancelled.
func (p *Posts) Delete(ctx context.Context, id string) error {
	if err := p.remove.begin(); err != nil {
		return err
	}

	user, err := p.requireUser(ctx)
	if err != nil {
		return fail(p.notifier, p.remove, err, guardMessage(err))
	}

	post, err := p.GetPost(ctx, id)
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		p.deleted(id)
		return nil
	case err != nil:
		return fail(p.notifier, p.remove, err, apperrors.UserMessage(err, msgDeleteFailed))
	case !permission.CanEdit(user, post):
		return fail(p.notifier, p.remove, apperrors.ErrForbidden, msgNotAuthor)
	}

	ok, err := p.confirmer.Confirm(ctx, fmt.Sprintf("Delete %q? This cannot be undone.", post.Title))
	if err != nil {
		return fail(p.notifier, p.remove, err, msgDeleteFailed)
	}
	if !ok {
		p.remove.reset()
		return ErrCancelled
	}

	if err := p.api.Delete(ctx, id); err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return fail(p.notifier, p.remove, err, apperrors.UserMessage(err, msgDeleteFailed))
	}
	p.deleted(id)
	return nil
}

func (p *Posts) deleted(id string) {
	p.cache.Remove(cache.PostDetail(id))
	p.cache.Invalidate(cache.PostsList)
	p.remove.succeed()
	p.notifier.Notify(NoticeSuccess, msgDeleted)
	glog.V(1).Infof("flow: deleted post %s", id)
	p.nav.Navigate(RouteHome)
}

// requireUser returns the signed-in user or sends the navigator to login.
func (p *Posts) requireUser(ctx context.Context) (*model.User, error) {
	user, err := p.auth.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	if user == nil {
		p.nav.Navigate(RouteLogin)
		return nil, ErrAuthRequired
	}
	return user, nil
}

func guardMessage(err error) string {
	if errors.Is(err, ErrAuthRequired) {
		return msgSignIn
	}
	return ""
}
