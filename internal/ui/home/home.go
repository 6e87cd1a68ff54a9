// Package home is the landing page: the latest few posts and a way into
// the full listing.
package home

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/abelbrown/quill/internal/api"
	"github.com/abelbrown/quill/internal/blog"
	"github.com/abelbrown/quill/internal/logging"
	"github.com/abelbrown/quill/internal/nav"
	"github.com/abelbrown/quill/internal/query"
	"github.com/abelbrown/quill/internal/ui/intent"
	"github.com/abelbrown/quill/internal/ui/styles"
)

// Latest is how many posts the landing page shows.
const Latest = 5

// Backend loads posts.
type Backend interface {
	SearchPosts(ctx context.Context, p api.SearchParams) (blog.PostPage, error)
}

type latestMsg struct {
	posts []blog.Post
	err   error
}

var keys = struct {
	Up, Down, Open, All, Reload key.Binding
}{
	Up:     key.NewBinding(key.WithKeys("k", "up")),
	Down:   key.NewBinding(key.WithKeys("j", "down")),
	Open:   key.NewBinding(key.WithKeys("enter")),
	All:    key.NewBinding(key.WithKeys("v")),
	Reload: key.NewBinding(key.WithKeys("r")),
}

// Model is the landing page.
type Model struct {
	backend Backend
	ctx     context.Context
	cancel  context.CancelFunc

	posts   []blog.Post
	loading bool
	failed  bool
	cursor  int
	width   int
	spin    spinner.Model
}

// New creates the landing page.
func New(b Backend) Model {
	ctx, cancel := context.WithCancel(context.Background())
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(styles.ColorHighlight)
	return Model{backend: b, ctx: ctx, cancel: cancel, loading: true, spin: sp}
}

// Init loads the latest posts.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.load(), m.spin.Tick)
}

func (m Model) load() tea.Cmd {
	ctx, b := m.ctx, m.backend
	return func() tea.Msg {
		page, err := b.SearchPosts(ctx, api.SearchParams{Page: 1, Limit: Latest, Sort: string(query.SortNew)})
		return latestMsg{posts: page.Posts, err: err}
	}
}

// Posts returns what is on screen.
func (m Model) Posts() []blog.Post { return m.posts }

func (m Model) Capturing() bool { return false }
func (m Model) Close()          { m.cancel() }
func (m Model) Title() string   { return "Latest" }
func (m Model) Help() string    { return "j/k:move  enter:open  v:view all  r:reload" }

// Update handles a message.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case latestMsg:
		m.loading = false
		if msg.err != nil {
			logging.Warn("home: load latest", "err", msg.err)
			m.failed = true
			return m, nil
		}
		m.failed = false
		m.posts = msg.posts
		m.cursor = min(m.cursor, max(0, len(m.posts)-1))
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Down):
			if m.cursor < len(m.posts)-1 {
				m.cursor++
			}
		case key.Matches(msg, keys.Up):
			if m.cursor > 0 {
				m.cursor--
			}
		case key.Matches(msg, keys.Open):
			if m.cursor < len(m.posts) {
				return m, intent.Go(nav.PostPath(m.posts[m.cursor].ID))
			}
		case key.Matches(msg, keys.All):
			return m, intent.Go(query.ListingPath)
		case key.Matches(msg, keys.Reload):
			m.loading = true
			return m, m.load()
		}
	}
	return m, nil
}

// View renders the page.
func (m Model) View() string {
	var b strings.Builder
	b.WriteString(styles.Title.Render("Latest posts") + "\n\n")

	switch {
	case m.loading && len(m.posts) == 0:
		b.WriteString(m.spin.View() + " Loading...\n")
	case m.failed && len(m.posts) == 0:
		b.WriteString(styles.ErrorStyle.Render("Could not load posts. Press r to retry.") + "\n")
	case len(m.posts) == 0:
		b.WriteString(styles.Muted.Render("Nothing published yet.") + "\n")
	}

	for i, p := range m.posts {
		line := p.Title
		if p.Badge != "" {
			line = styles.Badge.Render(p.Badge) + " " + line
		}
		meta := p.Author.DisplayName()
		if !p.CreatedAt.IsZero() {
			meta += " · " + humanize.Time(p.CreatedAt)
		}
		if i == m.cursor {
			b.WriteString(styles.StatusBarKey.Render("▸ ") + styles.Title.Render(line))
		} else {
			b.WriteString("  " + line)
		}
		b.WriteString("  " + styles.Meta.Render(meta) + "\n")
	}

	b.WriteString("\n" + styles.Muted.Render("v: view all posts"))
	return b.String()
}
