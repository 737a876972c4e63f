package fakeapi

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"devblog/internal/model"
)

// AddUser registers an account directly, bypassing HTTP.
func (s *Server) AddUser(fullName, email, password string) (model.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return model.User{}, fmt.Errorf("hash password: %w", err)
	}

	key := strings.ToLower(strings.TrimSpace(email))

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.byEmail[key]; taken {
		return model.User{}, ErrUserAlreadyExists
	}

	created := s.now().UTC()
	user := model.User{
		ID:        uuid.NewString(),
		FullName:  fullName,
		Email:     email,
		CreatedAt: &created,
	}
	s.users[user.ID] = &account{user: user, passwordHash: hash}
	s.byEmail[key] = user.ID
	return user, nil
}

// AddPost stores post as written by author. An empty ID is assigned.
func (s *Server) AddPost(author model.User, post model.Post) model.Post {
	if post.ID == "" {
		post.ID = uuid.NewString()
	}
	if post.CreatedAt.IsZero() {
		post.CreatedAt = s.now().UTC()
	}
	if post.AuthorName == "" {
		post.AuthorName = author.FullName
	}
	post.AuthorID = &model.AuthorRef{ID: author.ID, FullName: author.FullName, Email: author.Email}
	post.Tags = nonNil(post.Tags)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.posts[post.ID] = post
	return post
}

// Seed fills the server with a demo author and a few posts, and returns the
// author's credentials.
func (s *Server) Seed() (email, password string, err error) {
	email, password = "demo@devblog.local", "password"
	author, err := s.AddUser("Demo Author", email, password)
	if err != nil {
		return "", "", err
	}

	base := s.now().UTC().Add(-72 * time.Hour)
	for i, p := range []model.Post{
		{
			Title:   "Getting started with Go modules",
			Excerpt: "A short tour of go.mod, versions and the module cache.",
			Content: "Modules are the unit of versioning in Go...",
			Tags:    []string{"go", "tooling"},
		},
		{
			Title:   "Caching API responses on the client",
			Excerpt: "Invalidation beats expiry when you own the mutations.",
			Content: "Every write knows which reads it makes stale...",
			Tags:    []string{"caching", "http"},
		},
		{
			Title:   "Bearer tokens without tears",
			Excerpt: "Store it once, attach it everywhere, drop it on 401.",
			Content: "A session is just a string until the server says otherwise...",
			Tags:    []string{"auth"},
		},
	} {
		p.CreatedAt = base.Add(time.Duration(i) * 24 * time.Hour)
		s.AddPost(author, p)
	}
	return email, password, nil
}
