package model

import (
	"encoding/json"
	"strings"
	"time"
)

// AuthorRef is the denormalized author embedded in a Post.
type AuthorRef struct {
	ID       string `json:"id"`
	FullName string `json:"fullName,omitempty"`
	Email    string `json:"email,omitempty"`
}

// UnmarshalJSON accepts an object (with "id" or legacy "_id") or a bare id
// string. Any other shape decodes to an empty ref instead of failing the
// whole post, so ownership checks fail closed.
func (r *AuthorRef) UnmarshalJSON(data []byte) error {
	var id string
	if err := json.Unmarshal(data, &id); err == nil {
		*r = AuthorRef{ID: id}
		return nil
	}

	type alias AuthorRef
	var raw struct {
		alias
		LegacyID string `json:"_id"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		*r = AuthorRef{}
		return nil
	}
	*r = AuthorRef(raw.alias)
	if r.ID == "" {
		r.ID = raw.LegacyID
	}
	return nil
}

// Post is a blog post as served by the API.
type Post struct {
	ID         string     `json:"id"`
	Title      string     `json:"title"`
	Excerpt    string     `json:"excerpt"`
	Content    string     `json:"content"`
	AuthorName string     `json:"authorName"`
	AuthorID   *AuthorRef `json:"authorId,omitempty"`
	Tags       []string   `json:"tags"`
	CreatedAt  time.Time  `json:"createdAt"`
}

// UnmarshalJSON accepts the legacy "_id" field when "id" is absent.
func (p *Post) UnmarshalJSON(data []byte) error {
	type alias Post
	var raw struct {
		alias
		LegacyID string `json:"_id"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*p = Post(raw.alias)
	if p.ID == "" {
		p.ID = raw.LegacyID
	}
	return nil
}

// PostForm holds the create/edit form fields as typed by the author.
// Tags is the comma-separated free text.
type PostForm struct {
	Title      string `label:"Title" validate:"required"`
	Excerpt    string `label:"Excerpt" validate:"required,max=150"`
	Content    string `label:"Content" validate:"required"`
	AuthorName string `label:"Author name" validate:"required"`
	Tags       string `label:"Tags"`
}

// PostPayload is the body sent on POST /posts and PUT /posts/:id.
type PostPayload struct {
	Title      string   `json:"title"`
	Excerpt    string   `json:"excerpt"`
	Content    string   `json:"content"`
	AuthorName string   `json:"authorName"`
	Tags       []string `json:"tags"`
}

// Trimmed returns a copy with surrounding whitespace removed from every field.
func (f PostForm) Trimmed() PostForm {
	return PostForm{
		Title:      strings.TrimSpace(f.Title),
		Excerpt:    strings.TrimSpace(f.Excerpt),
		Content:    strings.TrimSpace(f.Content),
		AuthorName: strings.TrimSpace(f.AuthorName),
		Tags:       f.Tags,
	}
}

// Payload converts the form into the wire body.
func (f PostForm) Payload() PostPayload {
	return PostPayload{
		Title:      f.Title,
		Excerpt:    f.Excerpt,
		Content:    f.Content,
		AuthorName: f.AuthorName,
		Tags:       ParseTags(f.Tags),
	}
}

// FormFromPost pre-populates an edit form.
func FormFromPost(p *Post) PostForm {
	return PostForm{
		Title:      p.Title,
		Excerpt:    p.Excerpt,
		Content:    p.Content,
		AuthorName: p.AuthorName,
		Tags:       JoinTags(p.Tags),
	}
}

// ParseTags splits on comma, trims, and drops empty entries. Order is kept
// and duplicates are not removed. The result is never nil.
func ParseTags(s string) []string {
	tags := []string{}
	for _, part := range strings.Split(s, ",") {
		if tag := strings.TrimSpace(part); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

// JoinTags is the inverse of ParseTags for display.
func JoinTags(tags []string) string {
	return strings.Join(tags, ", ")
}
