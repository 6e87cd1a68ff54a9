// Package compose is the post editor used for both new posts and edits.
package compose

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/abelbrown/quill/internal/api"
	"github.com/abelbrown/quill/internal/blog"
	"github.com/abelbrown/quill/internal/logging"
	"github.com/abelbrown/quill/internal/nav"
	"github.com/abelbrown/quill/internal/ui/form"
	"github.com/abelbrown/quill/internal/ui/intent"
	"github.com/abelbrown/quill/internal/ui/styles"
)

// DefaultContent seeds the editor for a new post.
const DefaultContent = "<p>Write your post...</p>"

const (
	fieldTitle = iota
	fieldBadge
	fieldThumbnail
)

// Backend is the slice of the API the editor uses.
type Backend interface {
	GetPost(ctx context.Context, id string) (blog.Post, error)
	CreatePost(ctx context.Context, in api.PostInput) (blog.Post, error)
	UpdatePost(ctx context.Context, id string, in api.PostInput) (blog.Post, error)
}

type loadedMsg struct {
	post blog.Post
	err  error
}

type savedMsg struct {
	post blog.Post
	err  error
}

var keys = struct {
	Tab, Save, Cancel key.Binding
}{
	Tab:    key.NewBinding(key.WithKeys("tab")),
	Save:   key.NewBinding(key.WithKeys("ctrl+s")),
	Cancel: key.NewBinding(key.WithKeys("esc")),
}

// Model is the editor. An empty id means a new post.
type Model struct {
	backend Backend
	id      string
	ctx     context.Context
	cancel  context.CancelFunc

	fields    form.Form
	content   textarea.Model
	onContent bool

	loading bool
	pending bool
	errText string
	width   int
	height  int
}

// New creates an editor. id selects the post to edit; empty creates one.
func New(b Backend, id string) Model {
	ctx, cancel := context.WithCancel(context.Background())
	ta := textarea.New()
	ta.ShowLineNumbers = false
	ta.CharLimit = 0
	ta.SetHeight(10)
	ta.SetValue(DefaultContent)

	return Model{
		backend: b,
		id:      id,
		ctx:     ctx,
		cancel:  cancel,
		fields:  form.New("Title", "Badge", "Thumbnail"),
		content: ta,
		loading: id != "",
	}
}

// Init loads the post being edited.
func (m Model) Init() tea.Cmd {
	if m.id == "" {
		return nil
	}
	ctx, b, id := m.ctx, m.backend, m.id
	return func() tea.Msg {
		p, err := b.GetPost(ctx, id)
		return loadedMsg{post: p, err: err}
	}
}

// Input returns what would be saved.
func (m Model) Input() api.PostInput {
	return api.PostInput{
		Title:        m.fields.Value(fieldTitle),
		Badge:        m.fields.Value(fieldBadge),
		ThumbnailURL: m.fields.Value(fieldThumbnail),
		Content:      m.content.Value(),
	}
}

func (m Model) Capturing() bool { return true }
func (m Model) Close()          { m.cancel() }

func (m Model) Title() string {
	if m.id == "" {
		return "New post"
	}
	return "Edit post"
}

func (m Model) Help() string { return "tab:next field  ctrl+s:save  esc:cancel" }

// Update handles a message.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.content.SetWidth(max(20, msg.Width-4))
		m.content.SetHeight(max(5, msg.Height-10))
		return m, nil

	case loadedMsg:
		m.loading = false
		if msg.err != nil {
			logging.Warn("compose: load", "id", m.id, "err", msg.err)
			return m, tea.Batch(intent.Fail("Failed to load post"), intent.Go("/profile"))
		}
		p := msg.post
		m.fields.SetValue(fieldTitle, p.Title)
		m.fields.SetValue(fieldBadge, p.Badge)
		m.fields.SetValue(fieldThumbnail, p.ThumbnailURL)
		m.content.SetValue(p.Content)
		return m, nil

	case savedMsg:
		m.pending = false
		if msg.err != nil {
			logging.Warn("compose: save", "id", m.id, "err", msg.err)
			m.errText = api.Message(msg.err)
			if m.errText == "" {
				m.errText = "Failed"
			}
			return m, nil
		}
		done := "Post published"
		if m.id != "" {
			done = "Post updated"
		}
		return m, tea.Batch(intent.Info(done), intent.Go(nav.PostPath(msg.post.ID)))

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Cancel):
			return m, func() tea.Msg { return intent.Back{} }
		case key.Matches(msg, keys.Save):
			return m.save()
		case key.Matches(msg, keys.Tab):
			return m, m.advance()
		}
	}

	if m.loading {
		return m, nil
	}
	var cmd tea.Cmd
	if m.onContent {
		m.content, cmd = m.content.Update(msg)
	} else {
		cmd = m.fields.Update(msg)
	}
	return m, cmd
}

// advance moves focus through the fields and then the body.
func (m *Model) advance() tea.Cmd {
	switch {
	case m.onContent:
		m.content.Blur()
		m.onContent = false
		return m.fields.FocusOn(fieldTitle)
	case m.fields.Last():
		m.fields.Blur()
		m.onContent = true
		return m.content.Focus()
	}
	return m.fields.Move(1)
}

func (m Model) save() (Model, tea.Cmd) {
	if m.pending || m.loading {
		return m, nil
	}
	in := m.Input()
	if in.Title == "" {
		m.errText = "Title is required"
		return m, nil
	}
	if strings.TrimSpace(blog.StripHTML(in.Content)) == "" {
		m.errText = "Content is required"
		return m, nil
	}
	m.pending = true
	m.errText = ""
	ctx, b, id := m.ctx, m.backend, m.id
	return m, func() tea.Msg {
		var p blog.Post
		var err error
		if id == "" {
			p, err = b.CreatePost(ctx, in)
		} else {
			p, err = b.UpdatePost(ctx, id, in)
		}
		return savedMsg{post: p, err: err}
	}
}

// View renders the editor.
func (m Model) View() string {
	var b strings.Builder
	b.WriteString(styles.Title.Render(m.Title()) + "\n\n")
	if m.loading {
		b.WriteString(styles.Muted.Render("Loading post..."))
		return b.String()
	}
	b.WriteString(m.fields.View())
	label := styles.FormLabel.Render("Content")
	if m.onContent {
		label = styles.FormFocused.Render("Content")
	}
	b.WriteString(label + "\n" + m.content.View() + "\n")
	switch {
	case m.pending:
		b.WriteString(styles.Muted.Render("Saving..."))
	case m.errText != "":
		b.WriteString(styles.ErrorStyle.Render(m.errText))
	}
	return b.String()
}
