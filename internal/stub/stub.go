// Package stub is an in-memory blog backend speaking the same REST dialect
// as the real one. quillctl serves it for demos; tests run it under httptest.
package stub

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"golang.org/x/crypto/bcrypt"

	"github.com/abelbrown/quill/internal/blog"
)

var errNotFound = errors.New("not found")

type account struct {
	user blog.User
	hash []byte
}

// Server holds the backend state. Safe for concurrent use.
type Server struct {
	mu       sync.Mutex
	users    map[string]*account // by id
	tokens   map[string]string   // token -> user id
	posts    []*blog.Post
	comments []*blog.Comment
	likes    map[string]map[string]bool // post id -> user ids
	failNext []int                      // status codes to answer with next
	now      func() time.Time
	router   *mux.Router
}

// New creates an empty backend.
func New() *Server {
	s := &Server{
		users:  make(map[string]*account),
		tokens: make(map[string]string),
		likes:  make(map[string]map[string]bool),
		now:    time.Now,
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.injectFailures)

	r.HandleFunc("/posts", s.listPosts).Methods(http.MethodGet)
	r.HandleFunc("/posts", s.authed(s.createPost)).Methods(http.MethodPost)
	r.HandleFunc("/posts/{id}", s.getPost).Methods(http.MethodGet)
	r.HandleFunc("/posts/{id}", s.authed(s.updatePost)).Methods(http.MethodPatch)
	r.HandleFunc("/posts/{id}", s.authed(s.deletePost)).Methods(http.MethodDelete)
	r.HandleFunc("/posts/{id}/like", s.authed(s.likePost)).Methods(http.MethodPost)

	r.HandleFunc("/comments", s.listComments).Methods(http.MethodGet)
	r.HandleFunc("/comments", s.authed(s.createComment)).Methods(http.MethodPost)
	r.HandleFunc("/comments/{id}", s.admin(s.deleteComment)).Methods(http.MethodDelete)

	r.HandleFunc("/auth/login", s.login).Methods(http.MethodPost)
	r.HandleFunc("/auth/register", s.register).Methods(http.MethodPost)
	r.HandleFunc("/auth/me", s.authed(s.me)).Methods(http.MethodGet)

	r.HandleFunc("/users", s.admin(s.listUsers)).Methods(http.MethodGet)
	r.HandleFunc("/users/me", s.authed(s.updateMe)).Methods(http.MethodPatch)
	r.HandleFunc("/users/me/change-password", s.authed(s.changePassword)).Methods(http.MethodPost)
	r.HandleFunc("/users/{id}", s.admin(s.deleteUser)).Methods(http.MethodDelete)
	return r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// FailNext makes the next request answer with code and a generic message.
// Calls queue up.
func (s *Server) FailNext(code int) {
	s.mu.Lock()
	s.failNext = append(s.failNext, code)
	s.mu.Unlock()
}

// SetClock replaces the time source used for new records.
func (s *Server) SetClock(now func() time.Time) {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
}

func (s *Server) injectFailures(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		var code int
		if len(s.failNext) > 0 {
			code, s.failNext = s.failNext[0], s.failNext[1:]
		}
		s.mu.Unlock()
		if code != 0 {
			writeError(w, code, "injected failure")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// AddUser creates an account and returns it with a bearer token.
func (s *Server) AddUser(name, email, password string, role blog.Role) (blog.User, string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return blog.User{}, "", fmt.Errorf("hash password: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.users {
		if strings.EqualFold(a.user.Email, email) {
			return blog.User{}, "", fmt.Errorf("email %s already registered", email)
		}
	}
	u := blog.User{ID: uuid.NewString(), Name: name, Email: email, Role: role}
	s.users[u.ID] = &account{user: u, hash: hash}
	return u, s.issueLocked(u.ID), nil
}

func (s *Server) issueLocked(userID string) string {
	tok := uuid.NewString()
	s.tokens[tok] = userID
	return tok
}

// AddPost stores p as written by author. Zero CreatedAt means now.
func (s *Server) AddPost(author blog.User, p blog.Post) blog.Post {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.now()
	}
	p.UpdatedAt = p.CreatedAt
	p.Author = blog.Author{ID: author.ID, Name: author.Name, Email: author.Email, Role: string(author.Role)}
	s.posts = append(s.posts, &p)
	return p
}

// SeedPosts adds n posts titled "Post 1".."Post n", one minute apart,
// oldest first.
func (s *Server) SeedPosts(author blog.User, n int) []blog.Post {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]blog.Post, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, s.AddPost(author, blog.Post{
			Title:     fmt.Sprintf("Post %d", i),
			Content:   fmt.Sprintf("<p>Body of post %d.</p>", i),
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}
	return out
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"message": msg})
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func intParam(r *http.Request, name string, def int) int {
	n, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil || n < 1 {
		return def
	}
	return n
}

func paginate[T any](items []T, page, limit int) []T {
	start := (page - 1) * limit
	if start >= len(items) {
		return []T{}
	}
	end := min(start+limit, len(items))
	return items[start:end]
}

type userHandler func(w http.ResponseWriter, r *http.Request, me blog.User)

func (s *Server) currentUser(r *http.Request) (blog.User, bool) {
	tok, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		return blog.User{}, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.users[s.tokens[tok]]
	if !ok {
		return blog.User{}, false
	}
	return a.user, true
}

func (s *Server) authed(h userHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		me, ok := s.currentUser(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "Not authorized")
			return
		}
		h(w, r, me)
	}
}

func (s *Server) admin(h userHandler) http.HandlerFunc {
	return s.authed(func(w http.ResponseWriter, r *http.Request, me blog.User) {
		if !me.IsAdmin() {
			writeError(w, http.StatusForbidden, "Admin access required")
			return
		}
		h(w, r, me)
	})
}

func (s *Server) findPostLocked(id string) (int, error) {
	for i, p := range s.posts {
		if p.ID == id {
			return i, nil
		}
	}
	return -1, errNotFound
}

func (s *Server) listPosts(w http.ResponseWriter, r *http.Request) {
	q := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("q")))
	author := r.URL.Query().Get("author")
	oldest := r.URL.Query().Get("sort") == "old"
	page := intParam(r, "page", 1)
	limit := intParam(r, "limit", 10)

	s.mu.Lock()
	var matched []blog.Post
	for _, p := range s.posts {
		if author != "" && p.Author.ID != author {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(p.Title), q) &&
			!strings.Contains(strings.ToLower(blog.StripHTML(p.Content)), q) {
			continue
		}
		matched = append(matched, *p)
	}
	s.mu.Unlock()

	sort.SliceStable(matched, func(i, j int) bool {
		if oldest {
			return matched[i].CreatedAt.Before(matched[j].CreatedAt)
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	writeJSON(w, http.StatusOK, blog.PostPage{
		Page:  page,
		Limit: limit,
		Total: len(matched),
		Posts: paginate(matched, page, limit),
	})
}

func (s *Server) getPost(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	i, err := s.findPostLocked(mux.Vars(r)["id"])
	var p blog.Post
	if err == nil {
		p = *s.posts[i]
	}
	s.mu.Unlock()
	if err != nil {
		writeError(w, http.StatusNotFound, "Post not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"post": p})
}

type postBody struct {
	Title        string `json:"title"`
	Content      string `json:"content"`
	Badge        string `json:"badge"`
	ThumbnailURL string `json:"thumbnailUrl"`
}

func (s *Server) createPost(w http.ResponseWriter, r *http.Request, me blog.User) {
	var body postBody
	if err := decode(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(body.Title) == "" || strings.TrimSpace(body.Content) == "" {
		writeError(w, http.StatusBadRequest, "Title and content are required")
		return
	}
	p := s.AddPost(me, blog.Post{
		Title:        body.Title,
		Content:      body.Content,
		Badge:        body.Badge,
		ThumbnailURL: body.ThumbnailURL,
	})
	writeJSON(w, http.StatusCreated, map[string]any{"post": p})
}

func (s *Server) updatePost(w http.ResponseWriter, r *http.Request, me blog.User) {
	var body postBody
	if err := decode(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	i, err := s.findPostLocked(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusNotFound, "Post not found")
		return
	}
	p := s.posts[i]
	if p.Author.ID != me.ID && !me.IsAdmin() {
		writeError(w, http.StatusForbidden, "Not your post")
		return
	}
	if body.Title != "" {
		p.Title = body.Title
	}
	if body.Content != "" {
		p.Content = body.Content
	}
	p.Badge = body.Badge
	p.ThumbnailURL = body.ThumbnailURL
	p.UpdatedAt = s.now()
	writeJSON(w, http.StatusOK, map[string]any{"post": *p})
}

func (s *Server) deletePost(w http.ResponseWriter, r *http.Request, me blog.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, err := s.findPostLocked(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusNotFound, "Post not found")
		return
	}
	if s.posts[i].Author.ID != me.ID && !me.IsAdmin() {
		writeError(w, http.StatusForbidden, "Not your post")
		return
	}
	postID := s.posts[i].ID
	delete(s.likes, postID)
	s.posts = append(s.posts[:i], s.posts[i+1:]...)
	kept := s.comments[:0]
	for _, c := range s.comments {
		if c.Post.ID != postID {
			kept = append(kept, c)
		}
	}
	s.comments = kept
	writeJSON(w, http.StatusOK, map[string]string{"message": "Post deleted"})
}

func (s *Server) likePost(w http.ResponseWriter, r *http.Request, me blog.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, err := s.findPostLocked(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusNotFound, "Post not found")
		return
	}
	p := s.posts[i]
	set := s.likes[p.ID]
	if set == nil {
		set = make(map[string]bool)
		s.likes[p.ID] = set
	}
	liked := !set[me.ID]
	if liked {
		set[me.ID] = true
	} else {
		delete(set, me.ID)
	}
	p.Likes = len(set)
	writeJSON(w, http.StatusOK, map[string]any{"liked": liked, "likes": p.Likes})
}

// listComments lists the comments on one post, or on every post for admins
// when no post is given.
func (s *Server) listComments(w http.ResponseWriter, r *http.Request) {
	postID := r.URL.Query().Get("post")
	page := intParam(r, "page", 1)
	limit := intParam(r, "limit", 10)

	if postID == "" {
		me, ok := s.currentUser(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "Not authorized")
			return
		}
		if !me.IsAdmin() {
			writeError(w, http.StatusForbidden, "Admin access required")
			return
		}
	}

	s.mu.Lock()
	matched := []blog.Comment{}
	for i := len(s.comments) - 1; i >= 0; i-- {
		if c := s.comments[i]; postID == "" || c.Post.ID == postID {
			matched = append(matched, *c)
		}
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, blog.CommentPage{
		Page:     page,
		Limit:    limit,
		Total:    len(matched),
		Comments: paginate(matched, page, limit),
	})
}

func (s *Server) createComment(w http.ResponseWriter, r *http.Request, me blog.User) {
	var body struct {
		PostID  string `json:"postId"`
		Content string `json:"content"`
	}
	if err := decode(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(body.Content) == "" {
		writeError(w, http.StatusBadRequest, "Comment cannot be empty")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.findPostLocked(body.PostID); err != nil {
		writeError(w, http.StatusNotFound, "Post not found")
		return
	}
	now := s.now()
	c := &blog.Comment{
		ID:        uuid.NewString(),
		Post:      blog.PostRef{ID: body.PostID},
		Author:    blog.Author{ID: me.ID, Name: me.Name},
		Content:   body.Content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.comments = append(s.comments, c)
	writeJSON(w, http.StatusCreated, map[string]any{"comment": *c})
}

func (s *Server) deleteComment(w http.ResponseWriter, r *http.Request, _ blog.User) {
	id := mux.Vars(r)["id"]
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, c := range s.comments {
		if c.ID == id {
			s.comments = append(s.comments[:i], s.comments[i+1:]...)
			writeJSON(w, http.StatusOK, map[string]string{"message": "Comment deleted"})
			return
		}
	}
	writeError(w, http.StatusNotFound, "Comment not found")
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decode(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.users {
		if !strings.EqualFold(a.user.Email, body.Email) {
			continue
		}
		if bcrypt.CompareHashAndPassword(a.hash, []byte(body.Password)) != nil {
			break
		}
		writeJSON(w, http.StatusOK, map[string]any{"user": a.user, "token": s.issueLocked(a.user.ID)})
		return
	}
	writeError(w, http.StatusUnauthorized, "Invalid email or password")
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decode(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if body.Name == "" || body.Email == "" || len(body.Password) < 6 {
		writeError(w, http.StatusBadRequest, "Name, email and a password of at least 6 characters are required")
		return
	}
	u, tok, err := s.AddUser(body.Name, body.Email, body.Password, blog.RoleUser)
	if err != nil {
		writeError(w, http.StatusConflict, "Email already registered")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"user": u, "token": tok})
}

func (s *Server) me(w http.ResponseWriter, r *http.Request, me blog.User) {
	writeJSON(w, http.StatusOK, map[string]any{"user": me})
}

func (s *Server) listUsers(w http.ResponseWriter, r *http.Request, _ blog.User) {
	s.mu.Lock()
	users := make([]blog.User, 0, len(s.users))
	for _, a := range s.users {
		users = append(users, a.user)
	}
	s.mu.Unlock()
	sort.Slice(users, func(i, j int) bool { return users[i].Name < users[j].Name })
	writeJSON(w, http.StatusOK, map[string]any{"users": users})
}

func (s *Server) updateMe(w http.ResponseWriter, r *http.Request, me blog.User) {
	var body struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	if err := decode(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(body.Name) == "" || strings.TrimSpace(body.Email) == "" {
		writeError(w, http.StatusBadRequest, "Name and email are required")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.users[me.ID]
	a.user.Name = body.Name
	a.user.Email = body.Email
	writeJSON(w, http.StatusOK, map[string]any{"user": a.user})
}

func (s *Server) changePassword(w http.ResponseWriter, r *http.Request, me blog.User) {
	var body struct {
		Current string `json:"currentPassword"`
		New     string `json:"newPassword"`
	}
	if err := decode(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(body.New) < 6 {
		writeError(w, http.StatusBadRequest, "New password must be at least 6 characters")
		return
	}
	s.mu.Lock()
	a := s.users[me.ID]
	hash := a.hash
	s.mu.Unlock()

	if bcrypt.CompareHashAndPassword(hash, []byte(body.Current)) != nil {
		writeError(w, http.StatusBadRequest, "Current password is incorrect")
		return
	}
	next, err := bcrypt.GenerateFromPassword([]byte(body.New), bcrypt.MinCost)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Could not update password")
		return
	}
	s.mu.Lock()
	a.hash = next
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{"message": "Password updated"})
}

func (s *Server) deleteUser(w http.ResponseWriter, r *http.Request, me blog.User) {
	id := mux.Vars(r)["id"]
	if id == me.ID {
		writeError(w, http.StatusBadRequest, "Cannot delete yourself")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	delete(s.users, id)
	for tok, uid := range s.tokens {
		if uid == id {
			delete(s.tokens, tok)
		}
	}
	kept := s.posts[:0]
	for _, p := range s.posts {
		if p.Author.ID != id {
			kept = append(kept, p)
		}
	}
	s.posts = kept
	writeJSON(w, http.StatusOK, map[string]string{"message": "User deleted"})
}
