package stub

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/abelbrown/quill/internal/blog"
)

func do(t *testing.T, s *Server, method, target, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func TestListPostsDefaults(t *testing.T) {
	s := New()
	u, _, _ := s.AddUser("A", "a@x.io", "pw1234", blog.RoleUser)
	s.SeedPosts(u, 12)

	rec := do(t, s, http.MethodGet, "/posts", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var page blog.PostPage
	if err := json.Unmarshal(rec.Body.Bytes(), &page); err != nil {
		t.Fatal(err)
	}
	if page.Page != 1 || page.Limit != 10 || page.Total != 12 || len(page.Posts) != 10 {
		t.Errorf("page = %+v (posts %d)", page, len(page.Posts))
	}
	if page.Posts[0].Title != "Post 12" {
		t.Errorf("newest first expected, got %q", page.Posts[0].Title)
	}
}

func TestListPostsPastEndIsEmptyArray(t *testing.T) {
	s := New()
	rec := do(t, s, http.MethodGet, "/posts?page=5&limit=9", "", "")
	if !strings.Contains(rec.Body.String(), `"posts":[]`) {
		t.Errorf("expected empty posts array, got %s", rec.Body.String())
	}
}

func TestFailNextQueues(t *testing.T) {
	s := New()
	s.FailNext(http.StatusBadGateway)
	s.FailNext(http.StatusUnauthorized)

	if rec := do(t, s, http.MethodGet, "/posts", "", ""); rec.Code != http.StatusBadGateway {
		t.Errorf("first = %d", rec.Code)
	}
	if rec := do(t, s, http.MethodGet, "/posts", "", ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("second = %d", rec.Code)
	}
	if rec := do(t, s, http.MethodGet, "/posts", "", ""); rec.Code != http.StatusOK {
		t.Errorf("third = %d", rec.Code)
	}
}

func TestOwnershipChecks(t *testing.T) {
	s := New()
	alice, aliceTok, _ := s.AddUser("Alice", "alice@x.io", "pw1234", blog.RoleUser)
	_, bobTok, _ := s.AddUser("Bob", "bob@x.io", "pw1234", blog.RoleUser)
	_, rootTok, _ := s.AddUser("Root", "root@x.io", "pw1234", blog.RoleAdmin)
	p := s.AddPost(alice, blog.Post{Title: "mine", Content: "x"})

	if rec := do(t, s, http.MethodDelete, "/posts/"+p.ID, bobTok, ""); rec.Code != http.StatusForbidden {
		t.Errorf("bob delete = %d, want 403", rec.Code)
	}
	if rec := do(t, s, http.MethodDelete, "/posts/"+p.ID, "", ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("anonymous delete = %d, want 401", rec.Code)
	}
	if rec := do(t, s, http.MethodGet, "/users", aliceTok, ""); rec.Code != http.StatusForbidden {
		t.Errorf("alice list users = %d, want 403", rec.Code)
	}
	if rec := do(t, s, http.MethodDelete, "/posts/"+p.ID, rootTok, ""); rec.Code != http.StatusOK {
		t.Errorf("admin delete = %d, want 200", rec.Code)
	}
}

func TestCommentsNewestFirst(t *testing.T) {
	s := New()
	tick := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	s.SetClock(func() time.Time { tick = tick.Add(time.Second); return tick })
	alice, tok, _ := s.AddUser("Alice", "alice@x.io", "pw1234", blog.RoleUser)
	p := s.AddPost(alice, blog.Post{Title: "t", Content: "c"})

	do(t, s, http.MethodPost, "/comments", tok, `{"postId":"`+p.ID+`","content":"first"}`)
	do(t, s, http.MethodPost, "/comments", tok, `{"postId":"`+p.ID+`","content":"second"}`)
	if rec := do(t, s, http.MethodPost, "/comments", tok, `{"postId":"`+p.ID+`","content":"   "}`); rec.Code != http.StatusBadRequest {
		t.Errorf("blank comment = %d, want 400", rec.Code)
	}

	rec := do(t, s, http.MethodGet, "/comments?post="+p.ID, "", "")
	var page blog.CommentPage
	if err := json.Unmarshal(rec.Body.Bytes(), &page); err != nil {
		t.Fatal(err)
	}
	if page.Total != 2 || page.Comments[0].Content != "second" {
		t.Errorf("comments = %+v", page.Comments)
	}
}

func TestCommentModerationIsAdminOnly(t *testing.T) {
	s := New()
	alice, tok, _ := s.AddUser("Alice", "alice@x.io", "pw1234", blog.RoleUser)
	_, rootTok, _ := s.AddUser("Root", "root@x.io", "pw1234", blog.RoleAdmin)
	p1 := s.AddPost(alice, blog.Post{Title: "one", Content: "c"})
	p2 := s.AddPost(alice, blog.Post{Title: "two", Content: "c"})
	do(t, s, http.MethodPost, "/comments", tok, `{"postId":"`+p1.ID+`","content":"a"}`)
	do(t, s, http.MethodPost, "/comments", tok, `{"postId":"`+p2.ID+`","content":"b"}`)

	if rec := do(t, s, http.MethodGet, "/comments", "", ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("anonymous list all = %d", rec.Code)
	}
	if rec := do(t, s, http.MethodGet, "/comments", tok, ""); rec.Code != http.StatusForbidden {
		t.Errorf("user list all = %d", rec.Code)
	}

	rec := do(t, s, http.MethodGet, "/comments?page=1&limit=100", rootTok, "")
	var page blog.CommentPage
	if err := json.Unmarshal(rec.Body.Bytes(), &page); err != nil {
		t.Fatal(err)
	}
	if page.Total != 2 || page.Comments[0].Content != "b" {
		t.Fatalf("all comments = %+v", page.Comments)
	}

	target := page.Comments[0].ID
	if rec := do(t, s, http.MethodDelete, "/comments/"+target, tok, ""); rec.Code != http.StatusForbidden {
		t.Errorf("user delete = %d", rec.Code)
	}
	if rec := do(t, s, http.MethodDelete, "/comments/"+target, rootTok, ""); rec.Code != http.StatusOK {
		t.Errorf("admin delete = %d", rec.Code)
	}
	if rec := do(t, s, http.MethodDelete, "/comments/"+target, rootTok, ""); rec.Code != http.StatusNotFound {
		t.Errorf("second delete = %d", rec.Code)
	}

	do(t, s, http.MethodDelete, "/posts/"+p1.ID, tok, "")
	rec = do(t, s, http.MethodGet, "/comments", rootTok, "")
	page = blog.CommentPage{}
	json.Unmarshal(rec.Body.Bytes(), &page)
	if page.Total != 0 {
		t.Errorf("comments left after deleting their post: %+v", page.Comments)
	}
}
