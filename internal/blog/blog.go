// Package blog defines the records exchanged with the blog REST API.
//
// The backend populates references inconsistently: an author or a comment's
// post may arrive either as a bare id string or as an embedded object. The
// types here accept both shapes so callers never branch on the wire format.
package blog

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
)

// Role is a user's permission level.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// User is an account as returned by /auth/me and /users.
type User struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Role   Role   `json:"role"`
	Avatar string `json:"avatar,omitempty"`
}

// IsAdmin reports whether u may use the admin tools.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Author is the author of a post or comment.
type Author struct {
	ID     string `json:"_id,omitempty"`
	Name   string `json:"name"`
	Email  string `json:"email,omitempty"`
	Role   string `json:"role,omitempty"`
	Avatar string `json:"avatar,omitempty"`

	// Ref is true when the API sent only a bare reference string.
	Ref bool `json:"-"`
}

// UnmarshalJSON accepts either a string reference or an author object.
func (a *Author) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*a = Author{}
		return nil
	}
	if data[0] == '"' {
		var ref string
		if err := json.Unmarshal(data, &ref); err != nil {
			return err
		}
		*a = Author{ID: ref, Name: ref, Ref: true}
		return nil
	}
	type plain Author
	var v plain
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*a = Author(v)
	return nil
}

// MarshalJSON writes references back as strings so round trips keep their shape.
func (a Author) MarshalJSON() ([]byte, error) {
	if a.Ref {
		return json.Marshal(a.ID)
	}
	type plain Author
	return json.Marshal(plain(a))
}

// DisplayName returns the author's name, or "Unknown" when absent.
func (a Author) DisplayName() string {
	if strings.TrimSpace(a.Name) == "" {
		return "Unknown"
	}
	return a.Name
}

// Post is a blog post. Content is HTML produced by the web editor.
type Post struct {
	ID           string    `json:"_id"`
	Title        string    `json:"title"`
	Content      string    `json:"content"`
	Author       Author    `json:"author"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
	ThumbnailURL string    `json:"thumbnailUrl,omitempty"`
	Likes        int       `json:"likes,omitempty"`
	Bookmarked   bool      `json:"bookmarked,omitempty"`
	Badge        string    `json:"badge,omitempty"`
}

// excerptRunes is how much body text a card shows.
const excerptRunes = 160

// Excerpt returns the first 160 runes of the post's plain text followed by "...".
func (p Post) Excerpt() string {
	text := []rune(StripHTML(p.Content))
	if len(text) > excerptRunes {
		text = text[:excerptRunes]
	}
	return string(text) + "..."
}

// AuthoredBy reports whether the post belongs to userID.
func (p Post) AuthoredBy(userID string) bool {
	return userID != "" && p.Author.ID == userID
}

// PostRef is a comment's post: either a bare id or an embedded post.
type PostRef struct {
	ID   string
	Post *Post
}

// UnmarshalJSON accepts either a string id or a post object.
func (r *PostRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*r = PostRef{}
		return nil
	}
	if data[0] == '"' {
		return json.Unmarshal(data, &r.ID)
	}
	var p Post
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*r = PostRef{ID: p.ID, Post: &p}
	return nil
}

// MarshalJSON writes the reference as its id.
func (r PostRef) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.ID)
}

// Comment is a comment on a post.
type Comment struct {
	ID        string    `json:"_id"`
	Post      PostRef   `json:"post"`
	Author    Author    `json:"author"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// PostPage is one page of a post listing.
type PostPage struct {
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
	Total int    `json:"total"`
	Posts []Post `json:"posts"`
}

// CommentPage is one page of comments for a post.
type CommentPage struct {
	Page     int       `json:"page"`
	Limit    int       `json:"limit"`
	Total    int       `json:"total"`
	Comments []Comment `json:"comments"`
}
