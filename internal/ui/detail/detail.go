// Package detail shows a single post with its likes, share link and comments.
package detail

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/dustin/go-humanize"

	"github.com/abelbrown/quill/internal/api"
	"github.com/abelbrown/quill/internal/blog"
	"github.com/abelbrown/quill/internal/logging"
	"github.com/abelbrown/quill/internal/nav"
	"github.com/abelbrown/quill/internal/ui/intent"
	"github.com/abelbrown/quill/internal/ui/styles"
)

// CommentLimit is how many comments are loaded with a post.
const CommentLimit = 50

// composerHeight is the textarea plus its label.
const composerHeight = 5

// Backend is the slice of the API the detail page uses.
type Backend interface {
	GetPost(ctx context.Context, id string) (blog.Post, error)
	LikePost(ctx context.Context, id string) (api.LikeResult, error)
	ListComments(ctx context.Context, postID string, page, limit int) (blog.CommentPage, error)
	CreateComment(ctx context.Context, postID, content string) (blog.Comment, error)
}

type postMsg struct {
	post blog.Post
	err  error
}

type commentsMsg struct {
	page blog.CommentPage
	err  error
}

type likedMsg struct {
	res api.LikeResult
	err error
}

type commentedMsg struct {
	comment blog.Comment
	err     error
}

var keys = struct {
	Like, Share, Comment, Send, Cancel, Reload key.Binding
}{
	Like:    key.NewBinding(key.WithKeys("l")),
	Share:   key.NewBinding(key.WithKeys("y")),
	Comment: key.NewBinding(key.WithKeys("c")),
	Send:    key.NewBinding(key.WithKeys("ctrl+s")),
	Cancel:  key.NewBinding(key.WithKeys("esc")),
	Reload:  key.NewBinding(key.WithKeys("r")),
}

// Option configures a Model.
type Option func(*Model)

// WithClipboard replaces the system clipboard.
func WithClipboard(fn func(string) error) Option {
	return func(m *Model) { m.copy = fn }
}

// WithShareBase sets the origin prepended to shared links.
func WithShareBase(base string) Option {
	return func(m *Model) { m.shareBase = strings.TrimRight(base, "/") }
}

// WithSignedIn tells the page whether liking and commenting are allowed.
func WithSignedIn(ok bool) Option {
	return func(m *Model) { m.signedIn = ok }
}

// WithTheme picks the glamour style: "dark", "light" or "notty".
func WithTheme(theme string) Option {
	return func(m *Model) { m.theme = theme }
}

// Model is the post detail page.
type Model struct {
	backend Backend
	id      string
	ctx     context.Context
	cancel  context.CancelFunc

	post     *blog.Post
	notFound bool
	failed   bool
	comments []blog.Comment
	liking   bool
	posting  bool

	composer  textarea.Model
	vp        viewport.Model
	body      string
	bodyWidth int

	signedIn  bool
	shareBase string
	theme     string
	copy      func(string) error
	width     int
	height    int
}

// New creates the page for post id.
func New(b Backend, id string, opts ...Option) Model {
	ctx, cancel := context.WithCancel(context.Background())
	ta := textarea.New()
	ta.Placeholder = "Write a comment..."
	ta.ShowLineNumbers = false
	ta.SetHeight(composerHeight - 2)
	ta.CharLimit = 2000

	m := Model{
		backend:  b,
		id:       id,
		ctx:      ctx,
		cancel:   cancel,
		composer: ta,
		vp:       viewport.New(80, 20),
		theme:    "dark",
		copy:     clipboard.WriteAll,
	}
	for _, opt := range opts {
		opt(&m)
	}
	return m
}

// Init loads the post and its comments in parallel.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.loadPost(), m.loadComments())
}

func (m Model) loadPost() tea.Cmd {
	ctx, b, id := m.ctx, m.backend, m.id
	return func() tea.Msg {
		p, err := b.GetPost(ctx, id)
		return postMsg{post: p, err: err}
	}
}

func (m Model) loadComments() tea.Cmd {
	ctx, b, id := m.ctx, m.backend, m.id
	return func() tea.Msg {
		page, err := b.ListComments(ctx, id, 1, CommentLimit)
		return commentsMsg{page: page, err: err}
	}
}

// Post returns the loaded post, if any.
func (m Model) Post() (blog.Post, bool) {
	if m.post == nil {
		return blog.Post{}, false
	}
	return *m.post, true
}

// Comments returns the loaded comments, newest first.
func (m Model) Comments() []blog.Comment { return m.comments }

// ShareLink is what the share key copies.
func (m Model) ShareLink() string { return m.shareBase + nav.PostPath(m.id) }

func (m Model) Capturing() bool { return m.composer.Focused() }
func (m Model) Close()          { m.cancel() }

func (m Model) Title() string {
	if m.post != nil {
		return m.post.Title
	}
	return "Post"
}

func (m Model) Help() string {
	if m.composer.Focused() {
		return "ctrl+s:send  esc:cancel"
	}
	return "j/k:scroll  l:like  y:share  c:comment  r:reload"
}

// Update handles a message.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.composer.SetWidth(max(20, msg.Width-4))
		m.resize()
		m.refresh()
		return m, nil

	case postMsg:
		if msg.err != nil {
			logging.Warn("detail: load post", "id", m.id, "err", msg.err)
			m.notFound = errors.Is(msg.err, api.ErrNotFound)
			m.failed = !m.notFound
			m.refresh()
			return m, nil
		}
		p := msg.post
		m.post = &p
		m.failed, m.notFound = false, false
		m.body = ""
		m.refresh()
		return m, nil

	case commentsMsg:
		if msg.err != nil {
			logging.Warn("detail: load comments", "id", m.id, "err", msg.err)
			return m, nil
		}
		m.comments = msg.page.Comments
		m.refresh()
		return m, nil

	case likedMsg:
		m.liking = false
		if msg.err != nil {
			if errors.Is(msg.err, api.ErrUnauthorized) {
				return m, func() tea.Msg { return intent.SessionExpired{} }
			}
			return m, intent.Fail("Like failed: " + api.Message(msg.err))
		}
		if m.post != nil {
			m.post.Likes = msg.res.Likes
			m.refresh()
		}
		if msg.res.Liked {
			return m, intent.Info("Liked")
		}
		return m, intent.Info("Like removed")

	case commentedMsg:
		m.posting = false
		if msg.err != nil {
			if errors.Is(msg.err, api.ErrUnauthorized) {
				return m, func() tea.Msg { return intent.SessionExpired{} }
			}
			return m, intent.Fail("Failed to post comment")
		}
		m.comments = append([]blog.Comment{msg.comment}, m.comments...)
		m.composer.Reset()
		m.composer.Blur()
		m.resize()
		m.refresh()
		return m, intent.Info("Comment posted")

	case tea.KeyMsg:
		if m.composer.Focused() {
			return m.handleComposerKey(msg)
		}
		return m.handleKey(msg)
	}

	if m.composer.Focused() {
		var cmd tea.Cmd
		m.composer, cmd = m.composer.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleComposerKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Cancel):
		m.composer.Blur()
		m.resize()
		return m, nil

	case key.Matches(msg, keys.Send):
		text := strings.TrimSpace(m.composer.Value())
		if text == "" {
			return m, intent.Fail("Comment cannot be empty")
		}
		if m.posting {
			return m, nil
		}
		m.posting = true
		ctx, b, id := m.ctx, m.backend, m.id
		return m, func() tea.Msg {
			c, err := b.CreateComment(ctx, id, text)
			return commentedMsg{comment: c, err: err}
		}
	}

	var cmd tea.Cmd
	m.composer, cmd = m.composer.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Like):
		if m.post == nil || m.liking {
			return m, nil
		}
		if !m.signedIn {
			return m, intent.Go(nav.LoginPath(nav.PostPath(m.id)))
		}
		m.liking = true
		ctx, b, id := m.ctx, m.backend, m.id
		return m, func() tea.Msg {
			res, err := b.LikePost(ctx, id)
			return likedMsg{res: res, err: err}
		}

	case key.Matches(msg, keys.Share):
		if err := m.copy(m.ShareLink()); err != nil {
			logging.Warn("detail: clipboard", "err", err)
			return m, intent.Fail("Could not copy link")
		}
		return m, intent.Info("Link copied!")

	case key.Matches(msg, keys.Comment):
		if m.post == nil {
			return m, nil
		}
		if !m.signedIn {
			return m, intent.Go(nav.LoginPath(nav.PostPath(m.id)))
		}
		cmd := m.composer.Focus()
		m.resize()
		return m, cmd

	case key.Matches(msg, keys.Reload):
		return m, m.Init()
	}

	var cmd tea.Cmd
	m.vp, cmd = m.vp.Update(msg)
	return m, cmd
}

func (m *Model) resize() {
	w, h := m.width, m.height
	if w <= 0 {
		w, h = 80, 24
	}
	if m.composer.Focused() {
		h -= composerHeight
	}
	m.vp.Width = w
	m.vp.Height = max(3, h)
}

// renderBody renders the post content through glamour, caching per width.
func (m *Model) renderBody() string {
	width := min(max(m.vp.Width-4, 40), 120)
	if m.body != "" && m.bodyWidth == width {
		return m.body
	}
	md := blog.ToMarkdown(m.post.Content)
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(m.theme),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		logging.Warn("detail: renderer", "err", err)
		m.body = md
	} else if out, err := r.Render(md); err != nil {
		logging.Warn("detail: render", "err", err)
		m.body = md
	} else {
		m.body = out
	}
	m.bodyWidth = width
	return m.body
}

func (m *Model) refresh() {
	var b strings.Builder
	switch {
	case m.notFound:
		b.WriteString(styles.ErrorStyle.Render("Post not found") + "\n")
	case m.failed:
		b.WriteString(styles.ErrorStyle.Render("Failed to load post. Press r to retry.") + "\n")
	case m.post == nil:
		b.WriteString(styles.Muted.Render("Loading...") + "\n")
	default:
		p := m.post
		title := styles.Title.Render(p.Title)
		if p.Badge != "" {
			title = styles.Badge.Render(p.Badge) + " " + title
		}
		b.WriteString(title + "\n")
		meta := "by " + p.Author.DisplayName()
		if !p.CreatedAt.IsZero() {
			meta += " · " + p.CreatedAt.Format("Jan 2, 2006")
		}
		meta += " · ♥ " + humanize.Comma(int64(p.Likes))
		b.WriteString(styles.Meta.Render(meta) + "\n")
		b.WriteString(m.renderBody())
	}

	b.WriteString("\n" + styles.Title.Render(fmt.Sprintf("Comments (%d)", len(m.comments))) + "\n\n")
	if len(m.comments) == 0 {
		b.WriteString(styles.Muted.Render("No comments yet.") + "\n")
	}
	for _, c := range m.comments {
		head := c.Author.DisplayName()
		if !c.CreatedAt.IsZero() {
			head += " · " + humanize.Time(c.CreatedAt)
		}
		b.WriteString(styles.Meta.Render(head) + "\n")
		b.WriteString(c.Content + "\n\n")
	}
	m.vp.SetContent(b.String())
}

// View renders the page.
func (m Model) View() string {
	if !m.composer.Focused() {
		return m.vp.View()
	}
	label := styles.FormFocused.Render("Comment")
	return m.vp.View() + "\n" + label + "\n" + m.composer.View()
}
