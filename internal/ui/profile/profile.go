// Package profile is the signed-in user's page: their posts and account
// editing. Admins also get every user, every post and comment moderation.
package profile

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"github.com/abelbrown/quill/internal/api"
	"github.com/abelbrown/quill/internal/blog"
	"github.com/abelbrown/quill/internal/logging"
	"github.com/abelbrown/quill/internal/nav"
	"github.com/abelbrown/quill/internal/ui/form"
	"github.com/abelbrown/quill/internal/ui/intent"
	"github.com/abelbrown/quill/internal/ui/styles"
)

// ListLimit caps each post list on the page.
const ListLimit = 50

// CommentLimit caps the moderation list.
const CommentLimit = 100

// Backend is the slice of the API the profile page uses.
type Backend interface {
	Me(ctx context.Context) (blog.User, error)
	SearchPosts(ctx context.Context, p api.SearchParams) (blog.PostPage, error)
	ListUsers(ctx context.Context) ([]blog.User, error)
	DeletePost(ctx context.Context, id string) error
	DeleteUser(ctx context.Context, id string) error
	ListAllComments(ctx context.Context, page, limit int) (blog.CommentPage, error)
	DeleteComment(ctx context.Context, id string) error
	UpdateMe(ctx context.Context, name, email string) error
	ChangePassword(ctx context.Context, current, next string) error
}

// Edit selects one of the account forms.
type Edit string

const (
	EditNone     Edit = ""
	EditInfo     Edit = "info"
	EditPassword Edit = "password"
)

// ParseEdit reads the edit query parameter.
func ParseEdit(s string) Edit {
	switch Edit(s) {
	case EditInfo, EditPassword:
		return Edit(s)
	}
	return EditNone
}

// Tab is a list on the page.
type Tab int

const (
	TabMine Tab = iota
	TabAllPosts
	TabUsers
	TabComments
)

var tabNames = map[Tab]string{
	TabMine:     "My posts",
	TabAllPosts: "All posts",
	TabUsers:    "Users",
	TabComments: "Comments",
}

type loadedMsg struct {
	user     blog.User
	mine     []blog.Post
	all      []blog.Post
	users    []blog.User
	comments []blog.Comment
	err      error
}

type deletedMsg struct {
	what string
	err  error
}

type savedMsg struct {
	err error
}

// pending is a delete waiting for confirmation. what is "post", "user"
// or "comment".
type pending struct {
	what   string
	id     string
	prompt string
}

var keys = struct {
	Up, Down, Tab, Open, EditPost, Delete, New, Info, Password, Reload, Yes, Submit, Cancel key.Binding
}{
	Up:       key.NewBinding(key.WithKeys("k", "up")),
	Down:     key.NewBinding(key.WithKeys("j", "down")),
	Tab:      key.NewBinding(key.WithKeys("tab")),
	Open:     key.NewBinding(key.WithKeys("enter")),
	EditPost: key.NewBinding(key.WithKeys("e")),
	Delete:   key.NewBinding(key.WithKeys("d")),
	New:      key.NewBinding(key.WithKeys("n")),
	Info:     key.NewBinding(key.WithKeys("i")),
	Password: key.NewBinding(key.WithKeys("w")),
	Reload:   key.NewBinding(key.WithKeys("r")),
	Yes:      key.NewBinding(key.WithKeys("y")),
	Submit:   key.NewBinding(key.WithKeys("enter")),
	Cancel:   key.NewBinding(key.WithKeys("esc")),
}

// Model is the profile page.
type Model struct {
	backend Backend
	edit    Edit
	ctx     context.Context
	cancel  context.CancelFunc

	user    *blog.User
	mine    []blog.Post
	all     []blog.Post
	users    []blog.User
	comments []blog.Comment
	loading  bool
	failed  bool

	tab     Tab
	cursor  int
	confirm *pending

	form form.Form
	busy bool
}

// New creates the page. edit opens one of the account forms.
func New(b Backend, edit Edit) Model {
	ctx, cancel := context.WithCancel(context.Background())
	m := Model{backend: b, edit: edit, ctx: ctx, cancel: cancel, loading: true}
	switch edit {
	case EditInfo:
		m.form = form.New("Name", "Email")
	case EditPassword:
		m.form = form.New("Current password", "New password")
	}
	return m
}

// WithTab selects the list shown first. Admin lists fall back to the
// user's own posts once the page learns the user is not an admin.
func (m Model) WithTab(t Tab) Model {
	m.tab = t
	return m
}

// Init loads the page.
func (m Model) Init() tea.Cmd { return m.load() }

// load fetches the user, then their posts; admins also get every user,
// every post and every comment, all lists concurrently.
func (m Model) load() tea.Cmd {
	ctx, b := m.ctx, m.backend
	return func() tea.Msg {
		me, err := b.Me(ctx)
		if err != nil {
			return loadedMsg{err: err}
		}
		msg := loadedMsg{user: me}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			page, err := b.SearchPosts(gctx, api.SearchParams{Author: me.ID, Page: 1, Limit: ListLimit})
			msg.mine = page.Posts
			return err
		})
		if me.IsAdmin() {
			g.Go(func() error {
				users, err := b.ListUsers(gctx)
				msg.users = users
				return err
			})
			g.Go(func() error {
				page, err := b.SearchPosts(gctx, api.SearchParams{Page: 1, Limit: ListLimit})
				msg.all = page.Posts
				return err
			})
			g.Go(func() error {
				page, err := b.ListAllComments(gctx, 1, CommentLimit)
				msg.comments = page.Comments
				return err
			})
		}
		msg.err = g.Wait()
		return msg
	}
}

// User returns the loaded user.
func (m Model) User() (blog.User, bool) {
	if m.user == nil {
		return blog.User{}, false
	}
	return *m.user, true
}

// Mine returns the user's own posts.
func (m Model) Mine() []blog.Post { return m.mine }

// AllPosts returns every post (admins only).
func (m Model) AllPosts() []blog.Post { return m.all }

// Users returns every user (admins only).
func (m Model) Users() []blog.User { return m.users }

// Comments returns every comment (admins only).
func (m Model) Comments() []blog.Comment { return m.comments }

// Tab returns the selected list.
func (m Model) Tab() Tab { return m.tab }

func (m Model) Capturing() bool { return m.edit != EditNone || m.confirm != nil }
func (m Model) Close()          { m.cancel() }

func (m Model) Title() string {
	switch m.edit {
	case EditInfo:
		return "Edit profile"
	case EditPassword:
		return "Change password"
	}
	return "Profile"
}

func (m Model) Help() string {
	switch {
	case m.edit != EditNone:
		return "tab:next field  enter:save  esc:cancel"
	case m.confirm != nil:
		return "y:confirm  any other key:cancel"
	}
	h := "j/k:move  enter:open  e:edit  d:delete  n:new post  i:edit info  w:password"
	if m.admin() {
		h = "tab:switch list  " + h
	}
	return h
}

func (m Model) admin() bool { return m.user != nil && m.user.IsAdmin() }

func (m Model) tabs() []Tab {
	if m.admin() {
		return []Tab{TabMine, TabAllPosts, TabUsers, TabComments}
	}
	return []Tab{TabMine}
}

func (m Model) rows() int { return m.count(m.tab) }

func (m Model) selectedPost() (blog.Post, bool) {
	var list []blog.Post
	switch m.tab {
	case TabMine:
		list = m.mine
	case TabAllPosts:
		list = m.all
	}
	if m.cursor >= len(list) {
		return blog.Post{}, false
	}
	return list[m.cursor], true
}

func (m Model) hasTab(t Tab) bool {
	for _, have := range m.tabs() {
		if have == t {
			return true
		}
	}
	return false
}

// Update handles a message.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loadedMsg:
		m.loading = false
		if msg.err != nil {
			if errors.Is(msg.err, api.ErrUnauthorized) {
				return m, func() tea.Msg { return intent.SessionExpired{} }
			}
			logging.Warn("profile: load", "err", msg.err)
			m.failed = true
			return m, intent.Fail("Failed to load profile")
		}
		u := msg.user
		m.user = &u
		m.failed = false
		m.mine, m.all, m.users, m.comments = msg.mine, msg.all, msg.users, msg.comments
		if !m.hasTab(m.tab) {
			m.tab = TabMine
		}
		m.cursor = min(m.cursor, max(0, m.rows()-1))
		if m.edit == EditInfo && m.form.Value(0) == "" && m.form.Value(1) == "" {
			m.form.SetValue(0, u.Name)
			m.form.SetValue(1, u.Email)
		}
		return m, func() tea.Msg { return intent.UserChanged{User: u} }

	case deletedMsg:
		if msg.err != nil {
			logging.Warn("profile: delete", "what", msg.what, "err", msg.err)
			return m, tea.Batch(intent.Fail("Failed to delete "+msg.what), m.load())
		}
		return m, intent.Info(strings.ToUpper(msg.what[:1]) + msg.what[1:] + " deleted")

	case savedMsg:
		m.busy = false
		if msg.err != nil {
			logging.Warn("profile: save", "edit", m.edit, "err", msg.err)
			if m.edit == EditPassword {
				return m, intent.Fail("Password change failed")
			}
			return m, intent.Fail("Update failed")
		}
		done := "Profile updated"
		if m.edit == EditPassword {
			done = "Password changed"
		}
		return m, tea.Batch(intent.Info(done), intent.Go("/profile"))

	case tea.KeyMsg:
		switch {
		case m.edit != EditNone:
			return m.handleFormKey(msg)
		case m.confirm != nil:
			return m.handleConfirmKey(msg)
		}
		return m.handleKey(msg)
	}

	if m.edit != EditNone {
		return m, m.form.Update(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Down):
		if m.cursor < m.rows()-1 {
			m.cursor++
		}
	case key.Matches(msg, keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, keys.Tab):
		tabs := m.tabs()
		for i, t := range tabs {
			if t == m.tab {
				m.tab = tabs[(i+1)%len(tabs)]
				break
			}
		}
		m.cursor = 0
	case key.Matches(msg, keys.Open):
		if m.tab == TabComments {
			if m.cursor < len(m.comments) && m.comments[m.cursor].Post.ID != "" {
				return m, intent.Go(nav.PostPath(m.comments[m.cursor].Post.ID))
			}
			return m, nil
		}
		if p, ok := m.selectedPost(); ok {
			return m, intent.Go(nav.PostPath(p.ID))
		}
	case key.Matches(msg, keys.EditPost):
		if p, ok := m.selectedPost(); ok {
			return m, intent.Go(nav.EditPostPath(p.ID))
		}
	case key.Matches(msg, keys.Delete):
		switch m.tab {
		case TabUsers:
			if m.cursor < len(m.users) {
				m.confirm = &pending{what: "user", id: m.users[m.cursor].ID, prompt: "Delete this user?"}
			}
		case TabComments:
			if m.cursor < len(m.comments) {
				m.confirm = &pending{what: "comment", id: m.comments[m.cursor].ID, prompt: "Delete comment?"}
			}
		default:
			if p, ok := m.selectedPost(); ok {
				m.confirm = &pending{what: "post", id: p.ID, prompt: "Delete this post?"}
			}
		}
	case key.Matches(msg, keys.New):
		return m, intent.Go("/profile/posts/new")
	case key.Matches(msg, keys.Info):
		return m, intent.Go("/profile?edit=info")
	case key.Matches(msg, keys.Password):
		return m, intent.Go("/profile?edit=password")
	case key.Matches(msg, keys.Reload):
		m.loading = true
		return m, m.load()
	}
	return m, nil
}

func (m Model) handleConfirmKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	p := m.confirm
	m.confirm = nil
	if !key.Matches(msg, keys.Yes) {
		return m, nil
	}
	ctx, b := m.ctx, m.backend
	switch p.what {
	case "user":
		m.removeUser(p.id)
		return m, func() tea.Msg { return deletedMsg{what: "user", err: b.DeleteUser(ctx, p.id)} }
	case "comment":
		m.removeComment(p.id)
		return m, func() tea.Msg { return deletedMsg{what: "comment", err: b.DeleteComment(ctx, p.id)} }
	}
	m.removePost(p.id)
	return m, func() tea.Msg { return deletedMsg{what: "post", err: b.DeletePost(ctx, p.id)} }
}

func (m *Model) removeComment(id string) {
	comments := make([]blog.Comment, 0, len(m.comments))
	for _, c := range m.comments {
		if c.ID != id {
			comments = append(comments, c)
		}
	}
	m.comments = comments
	m.cursor = min(m.cursor, max(0, m.rows()-1))
}

// removePost drops id from both post lists ahead of the server reply.
func (m *Model) removePost(id string) {
	keep := func(p blog.Post) bool { return p.ID != id }
	m.mine = filterPosts(m.mine, keep)
	m.all = filterPosts(m.all, keep)
	m.cursor = min(m.cursor, max(0, m.rows()-1))
}

// removeUser drops the user and every post they wrote.
func (m *Model) removeUser(id string) {
	users := make([]blog.User, 0, len(m.users))
	for _, u := range m.users {
		if u.ID != id {
			users = append(users, u)
		}
	}
	m.users = users
	m.all = filterPosts(m.all, func(p blog.Post) bool { return p.Author.ID != id })
	m.cursor = min(m.cursor, max(0, m.rows()-1))
}

func filterPosts(posts []blog.Post, keep func(blog.Post) bool) []blog.Post {
	out := make([]blog.Post, 0, len(posts))
	for _, p := range posts {
		if keep(p) {
			out = append(out, p)
		}
	}
	return out
}

func (m Model) handleFormKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Cancel):
		return m, intent.Go("/profile")
	case key.Matches(msg, keys.Submit):
		if !m.form.Last() {
			return m, m.form.Move(1)
		}
		return m.save()
	}
	return m, m.form.Update(msg)
}

func (m Model) save() (Model, tea.Cmd) {
	if m.busy {
		return m, nil
	}
	ctx, b := m.ctx, m.backend
	switch m.edit {
	case EditInfo:
		name, email := m.form.Value(0), m.form.Value(1)
		if name == "" || email == "" {
			return m, intent.Fail("Name and email are required")
		}
		m.busy = true
		return m, func() tea.Msg { return savedMsg{err: b.UpdateMe(ctx, name, email)} }
	case EditPassword:
		cur, next := m.form.Raw(0), m.form.Raw(1)
		if cur == "" || next == "" {
			return m, intent.Fail("Both passwords are required")
		}
		m.busy = true
		return m, func() tea.Msg { return savedMsg{err: b.ChangePassword(ctx, cur, next)} }
	}
	return m, nil
}

// View renders the page.
func (m Model) View() string {
	var b strings.Builder
	if m.user != nil {
		u := m.user
		b.WriteString(styles.Title.Render(u.Name) + "  " + styles.Meta.Render(u.Email))
		if u.IsAdmin() {
			b.WriteString("  " + styles.Badge.Render("admin"))
		}
		b.WriteString("\n\n")
	}

	switch {
	case m.edit != EditNone:
		b.WriteString(styles.Title.Render(m.Title()) + "\n\n" + m.form.View())
		if m.busy {
			b.WriteString("\n" + styles.Muted.Render("Saving..."))
		}
		return b.String()
	case m.loading && m.user == nil:
		return b.String() + styles.Muted.Render("Loading profile...")
	case m.failed && m.user == nil:
		return b.String() + styles.ErrorStyle.Render("Failed to load profile. Press r to retry.")
	}

	var tabs []string
	for _, t := range m.tabs() {
		label := fmt.Sprintf("%s (%d)", tabNames[t], m.count(t))
		if t == m.tab {
			tabs = append(tabs, styles.PageCurrent.Render(label))
		} else {
			tabs = append(tabs, styles.PageOther.Render(label))
		}
	}
	b.WriteString(strings.Join(tabs, " ") + "\n\n")

	if m.rows() == 0 {
		b.WriteString(styles.Muted.Render("Nothing here.") + "\n")
	}
	switch m.tab {
	case TabUsers:
		for i, u := range m.users {
			b.WriteString(cursorMark(i == m.cursor) + u.Name + "  " + styles.Meta.Render(u.Email+" · "+string(u.Role)) + "\n")
		}
	case TabComments:
		for i, c := range m.comments {
			meta := c.Author.DisplayName()
			if !c.CreatedAt.IsZero() {
				meta += " · " + humanize.Time(c.CreatedAt)
			}
			b.WriteString(cursorMark(i == m.cursor) + oneLine(c.Content, 60) + "  " + styles.Meta.Render(meta) + "\n")
		}
	default:
		list := m.mine
		if m.tab == TabAllPosts {
			list = m.all
		}
		for i, p := range list {
			meta := p.Author.DisplayName()
			if !p.CreatedAt.IsZero() {
				meta += " · " + humanize.Time(p.CreatedAt)
			}
			b.WriteString(cursorMark(i == m.cursor) + p.Title + "  " + styles.Meta.Render(meta) + "\n")
		}
	}

	if m.confirm != nil {
		b.WriteString("\n" + styles.ErrorStyle.Render(m.confirm.prompt+" (y/n)"))
	}
	return b.String()
}

func (m Model) count(t Tab) int {
	switch t {
	case TabAllPosts:
		return len(m.all)
	case TabUsers:
		return len(m.users)
	case TabComments:
		return len(m.comments)
	}
	return len(m.mine)
}

// oneLine collapses whitespace and cuts s to n runes.
func oneLine(s string, n int) string {
	r := []rune(strings.Join(strings.Fields(s), " "))
	if len(r) <= n {
		return string(r)
	}
	return string(r[:n-3]) + "..."
}

func cursorMark(selected bool) string {
	if selected {
		return styles.StatusBarKey.Render("▸ ")
	}
	return "  "
}
