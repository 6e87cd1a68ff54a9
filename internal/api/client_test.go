package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/abelbrown/quill/internal/blog"
	"github.com/abelbrown/quill/internal/otel"
	"github.com/abelbrown/quill/internal/stub"
)

type fixture struct {
	backend *stub.Server
	srv     *httptest.Server
	tokens  *MemoryToken
	client  *Client
	alice   blog.User
	aliceTk string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	backend := stub.New()
	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)

	alice, tok, err := backend.AddUser("Alice", "alice@example.com", "secret1", blog.RoleUser)
	if err != nil {
		t.Fatalf("AddUser: %v", err)
	}

	tokens := &MemoryToken{}
	c, err := New(srv.URL, WithTokenSource(tokens))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return &fixture{backend: backend, srv: srv, tokens: tokens, client: c, alice: alice, aliceTk: tok}
}

func TestNewRejectsBadBaseURL(t *testing.T) {
	if _, err := New("ftp://example.com"); err == nil {
		t.Error("expected error for ftp scheme")
	}
	if _, err := New("://nope"); err == nil {
		t.Error("expected parse error")
	}
}

func TestSearchPostsPagination(t *testing.T) {
	f := newFixture(t)
	f.backend.SeedPosts(f.alice, 10)

	page, err := f.client.SearchPosts(context.Background(), SearchParams{Page: 2, Limit: 9, Sort: "new"})
	if err != nil {
		t.Fatalf("SearchPosts: %v", err)
	}
	if page.Total != 10 || page.Page != 2 || page.Limit != 9 {
		t.Errorf("page meta = %+v", page)
	}
	if len(page.Posts) != 1 || page.Posts[0].Title != "Post 1" {
		t.Errorf("expected oldest post on page 2, got %+v", page.Posts)
	}
}

func TestSearchPostsQueryAndSort(t *testing.T) {
	f := newFixture(t)
	f.backend.AddPost(f.alice, blog.Post{Title: "Cats rule", Content: "<p>meow</p>", CreatedAt: time.Unix(100, 0)})
	f.backend.AddPost(f.alice, blog.Post{Title: "Dogs", Content: "<p>about <b>cats</b> too</p>", CreatedAt: time.Unix(200, 0)})
	f.backend.AddPost(f.alice, blog.Post{Title: "Birds", Content: "<p>tweet</p>", CreatedAt: time.Unix(300, 0)})

	page, err := f.client.SearchPosts(context.Background(), SearchParams{Text: "CATS", Page: 1, Limit: 9, Sort: "old"})
	if err != nil {
		t.Fatalf("SearchPosts: %v", err)
	}
	if page.Total != 2 {
		t.Fatalf("total = %d, want 2", page.Total)
	}
	if page.Posts[0].Title != "Cats rule" || page.Posts[1].Title != "Dogs" {
		t.Errorf("sort=old order wrong: %s, %s", page.Posts[0].Title, page.Posts[1].Title)
	}
}

func TestSearchPostsEmptyResult(t *testing.T) {
	f := newFixture(t)
	page, err := f.client.SearchPosts(context.Background(), SearchParams{Text: "nothing", Page: 1, Limit: 9})
	if err != nil {
		t.Fatalf("SearchPosts: %v", err)
	}
	if page.Total != 0 || len(page.Posts) != 0 {
		t.Errorf("expected empty page, got %+v", page)
	}
}

func TestSearchPostsMalformed(t *testing.T) {
	cases := map[string]string{
		"missing total": `{"page":1,"limit":9,"posts":[]}`,
		"missing posts": `{"page":1,"limit":9,"total":0}`,
		"not json":      `<html>oops</html>`,
		"empty":         ``,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(body))
			}))
			defer srv.Close()
			c, _ := New(srv.URL)
			_, err := c.SearchPosts(context.Background(), SearchParams{Page: 1, Limit: 9})
			if !errors.Is(err, ErrMalformed) {
				t.Errorf("err = %v, want ErrMalformed", err)
			}
		})
	}
}

func TestStatusErrorMapping(t *testing.T) {
	f := newFixture(t)

	_, err := f.client.Me(context.Background())
	if !errors.Is(err, ErrUnauthorized) {
		t.Errorf("Me without token: err = %v, want ErrUnauthorized", err)
	}
	if Message(err) != "Not authorized" {
		t.Errorf("Message = %q", Message(err))
	}

	_, err = f.client.GetPost(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("GetPost missing: err = %v, want ErrNotFound", err)
	}

	f.backend.FailNext(http.StatusInternalServerError)
	_, err = f.client.SearchPosts(context.Background(), SearchParams{Page: 1, Limit: 9})
	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusInternalServerError {
		t.Errorf("err = %v, want 500 StatusError", err)
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrUnauthorized) {
		t.Error("500 must not match 401/404 sentinels")
	}
}

func TestGetPostAcceptsBarePost(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"_id":"p1","title":"Bare","author":"someone"}`))
	}))
	defer srv.Close()
	c, _ := New(srv.URL)

	p, err := c.GetPost(context.Background(), "p1")
	if err != nil {
		t.Fatalf("GetPost: %v", err)
	}
	if p.Title != "Bare" || !p.Author.Ref || p.Author.ID != "someone" {
		t.Errorf("unexpected post %+v", p)
	}
}

func TestAuthFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.client.Login(ctx, "alice@example.com", "wrong"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("bad login err = %v", err)
	}

	s, err := f.client.Login(ctx, "alice@example.com", "secret1")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if s.User.ID != f.alice.ID || s.Token == "" {
		t.Fatalf("session = %+v", s)
	}
	f.tokens.Set(s.Token)

	me, err := f.client.Me(ctx)
	if err != nil || me.Email != "alice@example.com" {
		t.Fatalf("Me = %+v, %v", me, err)
	}

	if err := f.client.UpdateMe(ctx, "Alice B", "alice@example.com"); err != nil {
		t.Fatalf("UpdateMe: %v", err)
	}
	if err := f.client.ChangePassword(ctx, "nope", "newsecret"); err == nil {
		t.Error("expected wrong current password to fail")
	}
	if err := f.client.ChangePassword(ctx, "secret1", "newsecret"); err != nil {
		t.Fatalf("ChangePassword: %v", err)
	}
	if _, err := f.client.Login(ctx, "alice@example.com", "newsecret"); err != nil {
		t.Errorf("login with new password: %v", err)
	}

	reg, err := f.client.Register(ctx, "Bob", "bob@example.com", "hunter22")
	if err != nil || reg.User.Role != blog.RoleUser {
		t.Fatalf("Register = %+v, %v", reg, err)
	}
	if _, err := f.client.Register(ctx, "Bob", "bob@example.com", "hunter22"); err == nil {
		t.Error("duplicate register should fail")
	}
}

func TestPostLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.tokens.Set(f.aliceTk)

	p, err := f.client.CreatePost(ctx, PostInput{Title: "Hello", Content: "<p>world</p>", Badge: "news"})
	if err != nil {
		t.Fatalf("CreatePost: %v", err)
	}
	if p.ID == "" || p.Author.ID != f.alice.ID {
		t.Fatalf("created post = %+v", p)
	}

	p, err = f.client.UpdatePost(ctx, p.ID, PostInput{Title: "Hello again", Content: "<p>world</p>"})
	if err != nil || p.Title != "Hello again" {
		t.Fatalf("UpdatePost = %+v, %v", p, err)
	}

	like, err := f.client.LikePost(ctx, p.ID)
	if err != nil || !like.Liked || like.Likes != 1 {
		t.Fatalf("LikePost = %+v, %v", like, err)
	}
	like, _ = f.client.LikePost(ctx, p.ID)
	if like.Liked || like.Likes != 0 {
		t.Errorf("second like should toggle off, got %+v", like)
	}

	c, err := f.client.CreateComment(ctx, p.ID, "nice")
	if err != nil || c.Content != "nice" || c.Post.ID != p.ID {
		t.Fatalf("CreateComment = %+v, %v", c, err)
	}
	comments, err := f.client.ListComments(ctx, p.ID, 1, 50)
	if err != nil || comments.Total != 1 || comments.Comments[0].Author.Name != "Alice" {
		t.Fatalf("ListComments = %+v, %v", comments, err)
	}

	if err := f.client.DeletePost(ctx, p.ID); err != nil {
		t.Fatalf("DeletePost: %v", err)
	}
	if _, err := f.client.GetPost(ctx, p.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("deleted post still reachable: %v", err)
	}
}

func TestAdminUsers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, adminTok, _ := f.backend.AddUser("Root", "root@example.com", "rootroot", blog.RoleAdmin)
	f.backend.SeedPosts(f.alice, 3)

	f.tokens.Set(f.aliceTk)
	if _, err := f.client.ListUsers(ctx); err == nil {
		t.Fatal("non-admin should not list users")
	}

	f.tokens.Set(adminTok)
	users, err := f.client.ListUsers(ctx)
	if err != nil || len(users) != 2 {
		t.Fatalf("ListUsers = %v, %v", users, err)
	}
	if err := f.client.DeleteUser(ctx, f.alice.ID); err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}
	page, _ := f.client.SearchPosts(ctx, SearchParams{Page: 1, Limit: 50, Author: f.alice.ID})
	if page.Total != 0 {
		t.Errorf("deleted user's posts remain: %d", page.Total)
	}
}

func TestAdminComments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, adminTok, _ := f.backend.AddUser("Root", "root@example.com", "rootroot", blog.RoleAdmin)
	posts := f.backend.SeedPosts(f.alice, 2)

	f.tokens.Set(f.aliceTk)
	for _, p := range posts {
		if _, err := f.client.CreateComment(ctx, p.ID, "on "+p.Title); err != nil {
			t.Fatalf("CreateComment: %v", err)
		}
	}
	if _, err := f.client.ListAllComments(ctx, 1, 100); err == nil {
		t.Fatal("non-admin should not list every comment")
	}

	f.tokens.Set(adminTok)
	all, err := f.client.ListAllComments(ctx, 1, 100)
	if err != nil || all.Total != 2 || all.Limit != 100 {
		t.Fatalf("ListAllComments = %+v, %v", all, err)
	}
	if all.Comments[0].Content != "on Post 2" {
		t.Errorf("newest first expected, got %q", all.Comments[0].Content)
	}

	if err := f.client.DeleteComment(ctx, all.Comments[0].ID); err != nil {
		t.Fatalf("DeleteComment: %v", err)
	}
	if err := f.client.DeleteComment(ctx, all.Comments[0].ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete = %v, want ErrNotFound", err)
	}
	left, _ := f.client.ListComments(ctx, posts[1].ID, 1, 50)
	if left.Total != 0 {
		t.Errorf("deleted comment still listed: %+v", left.Comments)
	}
}

func TestRequestHeaders(t *testing.T) {
	var gotAuth, gotID, gotQuery atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth.Store(r.Header.Get("Authorization"))
		gotID.Store(r.Header.Get("X-Request-ID"))
		gotQuery.Store(r.URL.RawQuery)
		w.Write([]byte(`{"page":1,"limit":9,"total":0,"posts":[]}`))
	}))
	defer srv.Close()

	c, _ := New(srv.URL+"/api/", WithTokenSource(StaticToken("abc")))
	if _, err := c.SearchPosts(context.Background(), SearchParams{Text: "a b", Page: 2, Limit: 9, Sort: "old"}); err != nil {
		t.Fatal(err)
	}
	if gotAuth.Load() != "Bearer abc" {
		t.Errorf("Authorization = %v", gotAuth.Load())
	}
	if id, _ := gotID.Load().(string); len(id) != 36 {
		t.Errorf("X-Request-ID = %q", id)
	}
	q, _ := gotQuery.Load().(string)
	for _, want := range []string{"page=2", "limit=9", "q=a+b", "sort=old"} {
		if !strings.Contains(q, want) {
			t.Errorf("query %q missing %q", q, want)
		}
	}
}

func TestRateLimitAndCancel(t *testing.T) {
	f := newFixture(t)
	c, _ := New(f.srv.URL, WithRateLimit(0.001, 1))

	if _, err := c.SearchPosts(context.Background(), SearchParams{Page: 1, Limit: 9}); err != nil {
		t.Fatalf("first request should use the burst: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := c.SearchPosts(ctx, SearchParams{Page: 1, Limit: 9}); err == nil {
		t.Error("second request should fail waiting on the limiter")
	}
}

func TestEventsEmitted(t *testing.T) {
	f := newFixture(t)
	l := otel.NewNullLogger()
	rb := otel.NewRingBuffer(16)
	l.SetRingBuffer(rb)

	c, _ := New(f.srv.URL, WithEvents(l))
	c.SearchPosts(context.Background(), SearchParams{Page: 1, Limit: 9})
	c.GetPost(context.Background(), "missing")
	l.Close()

	stats := rb.Stats()
	if stats[otel.KindAPIRequest] != 1 || stats[otel.KindAPIError] != 1 {
		t.Errorf("stats = %v", stats)
	}
	ev := rb.LastMatching("api.error", 1)[0]
	if ev.Status != http.StatusNotFound || ev.Comp != "api" || ev.Path != "GET /posts/missing" {
		t.Errorf("error event = %+v", ev)
	}
}
