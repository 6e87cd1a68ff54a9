package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/abelbrown/quill/internal/blog"
)

// ListComments fetches one page of comments on postID.
func (c *Client) ListComments(ctx context.Context, postID string, page, limit int) (blog.CommentPage, error) {
	out, err := c.listComments(ctx, postID, page, limit)
	if err != nil {
		return blog.CommentPage{}, fmt.Errorf("list comments: %w", err)
	}
	return out, nil
}

// ListAllComments fetches one page of comments across every post, newest
// first. Admin only.
func (c *Client) ListAllComments(ctx context.Context, page, limit int) (blog.CommentPage, error) {
	out, err := c.listComments(ctx, "", page, limit)
	if err != nil {
		return blog.CommentPage{}, fmt.Errorf("list all comments: %w", err)
	}
	return out, nil
}

func (c *Client) listComments(ctx context.Context, postID string, page, limit int) (blog.CommentPage, error) {
	v := url.Values{}
	if postID != "" {
		v.Set("post", postID)
	}
	v.Set("page", strconv.Itoa(max(page, 1)))
	if limit > 0 {
		v.Set("limit", strconv.Itoa(limit))
	}
	var out blog.CommentPage
	if err := c.do(ctx, http.MethodGet, "/comments", v, nil, &out); err != nil {
		return blog.CommentPage{}, err
	}
	return out, nil
}

// CreateComment adds a comment to postID as the signed-in user.
func (c *Client) CreateComment(ctx context.Context, postID, content string) (blog.Comment, error) {
	body := struct {
		PostID  string `json:"postId"`
		Content string `json:"content"`
	}{postID, content}

	var out struct {
		Comment *blog.Comment `json:"comment"`
	}
	if err := c.do(ctx, http.MethodPost, "/comments", nil, body, &out); err != nil {
		return blog.Comment{}, fmt.Errorf("create comment: %w", err)
	}
	if out.Comment == nil {
		return blog.Comment{}, fmt.Errorf("create comment: missing comment: %w", ErrMalformed)
	}
	return *out.Comment, nil
}

// DeleteComment removes a comment. Admin only.
func (c *Client) DeleteComment(ctx context.Context, id string) error {
	if err := c.do(ctx, http.MethodDelete, "/comments/"+url.PathEscape(id), nil, nil, nil); err != nil {
		return fmt.Errorf("delete comment %s: %w", id, err)
	}
	return nil
}
