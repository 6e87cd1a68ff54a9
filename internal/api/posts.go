package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/abelbrown/quill/internal/blog"
)

// SearchParams selects one page of posts.
type SearchParams struct {
	Text   string
	Page   int
	Limit  int
	Sort   string // "new" or "old"; empty means backend default
	Author string // user id filter
}

func (p SearchParams) values() url.Values {
	v := url.Values{}
	page := p.Page
	if page < 1 {
		page = 1
	}
	v.Set("page", strconv.Itoa(page))
	if p.Limit > 0 {
		v.Set("limit", strconv.Itoa(p.Limit))
	}
	if p.Text != "" {
		v.Set("q", p.Text)
	}
	if p.Sort != "" {
		v.Set("sort", p.Sort)
	}
	if p.Author != "" {
		v.Set("author", p.Author)
	}
	return v
}

// postPageWire has pointer fields so absent keys are detectable.
type postPageWire struct {
	Page  *int        `json:"page"`
	Limit *int        `json:"limit"`
	Total *int        `json:"total"`
	Posts []blog.Post `json:"posts"`
}

func (w postPageWire) validate() (blog.PostPage, error) {
	switch {
	case w.Page == nil:
		return blog.PostPage{}, fmt.Errorf("missing page: %w", ErrMalformed)
	case w.Limit == nil:
		return blog.PostPage{}, fmt.Errorf("missing limit: %w", ErrMalformed)
	case w.Total == nil:
		return blog.PostPage{}, fmt.Errorf("missing total: %w", ErrMalformed)
	case w.Posts == nil:
		return blog.PostPage{}, fmt.Errorf("missing posts: %w", ErrMalformed)
	case *w.Total < 0:
		return blog.PostPage{}, fmt.Errorf("negative total: %w", ErrMalformed)
	}
	return blog.PostPage{Page: *w.Page, Limit: *w.Limit, Total: *w.Total, Posts: w.Posts}, nil
}

// SearchPosts fetches one page of posts. The response must carry page,
// limit, total and posts; anything else is ErrMalformed.
func (c *Client) SearchPosts(ctx context.Context, p SearchParams) (blog.PostPage, error) {
	var w postPageWire
	if err := c.do(ctx, http.MethodGet, "/posts", p.values(), nil, &w); err != nil {
		return blog.PostPage{}, fmt.Errorf("search posts: %w", err)
	}
	page, err := w.validate()
	if err != nil {
		return blog.PostPage{}, fmt.Errorf("search posts: %w", err)
	}
	return page, nil
}

// decodePost accepts {"post": {...}} as well as a bare post.
func decodePost(raw json.RawMessage) (blog.Post, error) {
	var env struct {
		Post *blog.Post `json:"post"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return blog.Post{}, fmt.Errorf("%v: %w", err, ErrMalformed)
	}
	if env.Post != nil {
		return *env.Post, nil
	}
	var p blog.Post
	if err := json.Unmarshal(raw, &p); err != nil {
		return blog.Post{}, fmt.Errorf("%v: %w", err, ErrMalformed)
	}
	if p.ID == "" {
		return blog.Post{}, fmt.Errorf("missing post: %w", ErrMalformed)
	}
	return p, nil
}

func postPath(id string) string {
	return "/posts/" + url.PathEscape(id)
}

// GetPost fetches a single post.
func (c *Client) GetPost(ctx context.Context, id string) (blog.Post, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, postPath(id), nil, nil, &raw); err != nil {
		return blog.Post{}, fmt.Errorf("get post %s: %w", id, err)
	}
	return decodePost(raw)
}

// PostInput is the editable part of a post.
type PostInput struct {
	Title        string `json:"title"`
	Content      string `json:"content"`
	Badge        string `json:"badge,omitempty"`
	ThumbnailURL string `json:"thumbnailUrl,omitempty"`
}

// CreatePost publishes a new post as the signed-in user.
func (c *Client) CreatePost(ctx context.Context, in PostInput) (blog.Post, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodPost, "/posts", nil, in, &raw); err != nil {
		return blog.Post{}, fmt.Errorf("create post: %w", err)
	}
	return decodePost(raw)
}

// UpdatePost replaces the editable fields of post id.
func (c *Client) UpdatePost(ctx context.Context, id string, in PostInput) (blog.Post, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodPatch, postPath(id), nil, in, &raw); err != nil {
		return blog.Post{}, fmt.Errorf("update post %s: %w", id, err)
	}
	return decodePost(raw)
}

// DeletePost removes post id.
func (c *Client) DeletePost(ctx context.Context, id string) error {
	if err := c.do(ctx, http.MethodDelete, postPath(id), nil, nil, nil); err != nil {
		return fmt.Errorf("delete post %s: %w", id, err)
	}
	return nil
}

// LikeResult is the server's view of a like toggle.
type LikeResult struct {
	Liked bool `json:"liked"`
	Likes int  `json:"likes"`
}

// LikePost toggles the signed-in user's like on post id.
func (c *Client) LikePost(ctx context.Context, id string) (LikeResult, error) {
	var res LikeResult
	if err := c.do(ctx, http.MethodPost, postPath(id)+"/like", nil, nil, &res); err != nil {
		return LikeResult{}, fmt.Errorf("like post %s: %w", id, err)
	}
	return res, nil
}
