package listing

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/abelbrown/quill/internal/blog"
	"github.com/abelbrown/quill/internal/nav"
	"github.com/abelbrown/quill/internal/ui/intent"
	"github.com/abelbrown/quill/internal/ui/styles"
)

// cardHeight is the number of lines a rendered card occupies.
const cardHeight = 6

// chromeHeight covers search bar, info line and pager.
const chromeHeight = 6

type keyMap struct {
	Focus  key.Binding
	Submit key.Binding
	Escape key.Binding
	Clear  key.Binding
	Sort   key.Binding
	Next   key.Binding
	Prev   key.Binding
	Up     key.Binding
	Down   key.Binding
	Open   key.Binding
	Jump   key.Binding
}

var keys = keyMap{
	Focus:  key.NewBinding(key.WithKeys("/")),
	Submit: key.NewBinding(key.WithKeys("enter")),
	Escape: key.NewBinding(key.WithKeys("esc")),
	Clear:  key.NewBinding(key.WithKeys("x")),
	Sort:   key.NewBinding(key.WithKeys("s")),
	Next:   key.NewBinding(key.WithKeys("n", "right", "l")),
	Prev:   key.NewBinding(key.WithKeys("p", "left", "h")),
	Up:     key.NewBinding(key.WithKeys("k", "up")),
	Down:   key.NewBinding(key.WithKeys("j", "down")),
	Open:   key.NewBinding(key.WithKeys("enter")),
	Jump:   key.NewBinding(key.WithKeys("1", "2", "3", "4", "5")),
}

// Model renders the listing and turns keys into controller intents.
type Model struct {
	ctrl   *Controller
	input  textinput.Model
	spin   spinner.Model
	cursor int
	offset int
	width  int
	height int
}

// NewModel wraps ctrl. The search box starts with the controller's text.
func NewModel(ctrl *Controller) Model {
	ti := textinput.New()
	ti.Placeholder = "Search by title or content"
	ti.Prompt = "/ "
	ti.PromptStyle = styles.SearchPrompt
	ti.CharLimit = 120
	ti.SetValue(ctrl.Query().Text)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(styles.ColorHighlight)

	return Model{ctrl: ctrl, input: ti, spin: sp}
}

// Controller exposes the underlying controller.
func (m Model) Controller() *Controller { return m.ctrl }

// Init starts the first fetch.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.ctrl.Init(), m.spin.Tick)
}

// Capturing reports whether keys go to the search box.
func (m Model) Capturing() bool { return m.input.Focused() }

// Close tears the controller down.
func (m Model) Close() { m.ctrl.Close() }

// Title names the view.
func (m Model) Title() string { return "All posts" }

// Help lists the view's keys.
func (m Model) Help() string {
	if m.input.Focused() {
		return "enter:search  esc:clear/leave"
	}
	return "/:search  x:clear  s:sort  p/n:page  1-5:jump  enter:open"
}

// Update handles a message.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.input.Width = max(10, msg.Width-24)
		return m, nil

	case tea.KeyMsg:
		if m.input.Focused() {
			return m.handleInputKey(msg)
		}
		return m.handleKey(msg)

	case ScrollTopMsg:
		m.cursor, m.offset = 0, 0
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}

	cmd := m.ctrl.Update(msg)
	if n := len(m.ctrl.State().Posts); m.cursor >= n {
		m.cursor = max(0, n-1)
		m.clampOffset()
	}
	return m, cmd
}

func (m Model) handleInputKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Submit):
		m.input.Blur()
		return m, m.ctrl.SearchSubmit()

	case key.Matches(msg, keys.Escape):
		if m.input.Value() != "" {
			m.input.SetValue("")
			return m, m.ctrl.ClearSearch()
		}
		m.input.Blur()
		return m, nil
	}

	old := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if v := m.input.Value(); v != old {
		return m, tea.Batch(cmd, m.ctrl.SearchInput(v))
	}
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	st := m.ctrl.State()
	pg := Pager(st.CurrentPage, st.TotalPages)

	switch {
	case key.Matches(msg, keys.Focus):
		return m, m.input.Focus()

	case key.Matches(msg, keys.Clear):
		if st.SearchQuery == "" {
			return m, nil
		}
		m.input.SetValue("")
		return m, m.ctrl.ClearSearch()

	case key.Matches(msg, keys.Sort):
		return m, m.ctrl.SortChange(st.SortBy.Toggle())

	case key.Matches(msg, keys.Next):
		if !pg.Next {
			return m, nil
		}
		return m, m.ctrl.PageChange(pg.NextPage())

	case key.Matches(msg, keys.Prev):
		if !pg.Prev {
			return m, nil
		}
		return m, m.ctrl.PageChange(pg.PrevPage())

	case key.Matches(msg, keys.Jump):
		idx := int(msg.String()[0] - '1')
		if idx >= len(pg.Numbers) || pg.Numbers[idx] == st.CurrentPage {
			return m, nil
		}
		return m, m.ctrl.PageChange(pg.Numbers[idx])

	case key.Matches(msg, keys.Down):
		if m.cursor < len(st.Posts)-1 {
			m.cursor++
			m.clampOffset()
		}
		return m, nil

	case key.Matches(msg, keys.Up):
		if m.cursor > 0 {
			m.cursor--
			m.clampOffset()
		}
		return m, nil

	case key.Matches(msg, keys.Open):
		if m.cursor < len(st.Posts) {
			return m, intent.Go(nav.PostPath(st.Posts[m.cursor].ID))
		}
	}
	return m, nil
}

func (m Model) visibleCards() int {
	if m.height <= 0 {
		return 3
	}
	return max(1, (m.height-chromeHeight)/cardHeight)
}

func (m *Model) clampOffset() {
	vis := m.visibleCards()
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+vis {
		m.offset = m.cursor - vis + 1
	}
}

// InfoLine is the search summary shown under the search box. Empty when
// there is no search text.
func InfoLine(st State) string {
	if st.SearchQuery == "" {
		return ""
	}
	if st.Loading {
		return "Searching..."
	}
	plural := "s"
	if st.Total == 1 {
		plural = ""
	}
	return fmt.Sprintf("Found %d result%s for %q", st.Total, plural, st.SearchQuery)
}

// View renders the listing.
func (m Model) View() string {
	st := m.ctrl.State()
	var b strings.Builder

	sortLabel := styles.Meta.Render("sort: ") + styles.Title.Render(st.SortBy.Label())
	b.WriteString(m.input.View() + "   " + sortLabel + "\n")
	if info := InfoLine(st); info != "" {
		b.WriteString(styles.Muted.Render(info))
	}
	b.WriteString("\n\n")

	switch {
	case st.Loading:
		b.WriteString(m.spin.View() + " Loading posts...\n")

	case len(st.Posts) == 0:
		b.WriteString(styles.Title.Render("No posts found") + "\n")
		if st.SearchQuery != "" {
			b.WriteString(styles.Muted.Render("press x to clear search and show all posts") + "\n")
		}
		if st.CurrentPage > st.TotalPages {
			b.WriteString(styles.Muted.Render("press p to go back to the last page") + "\n")
		}
		if st.TotalPages > 1 || st.CurrentPage > st.TotalPages {
			b.WriteString("\n" + Pager(st.CurrentPage, st.TotalPages).Render() + "\n")
		}

	default:
		end := min(len(st.Posts), m.offset+m.visibleCards())
		for i := m.offset; i < end; i++ {
			b.WriteString(m.renderCard(st.Posts[i], i == m.cursor) + "\n")
		}
		if st.TotalPages > 1 {
			b.WriteString("\n" + Pager(st.CurrentPage, st.TotalPages).Render() + "\n")
		}
	}
	return b.String()
}

func (m Model) renderCard(p blog.Post, selected bool) string {
	width := m.width - 4
	if width < 30 {
		width = 76
	}

	title := styles.Title.Render(p.Title)
	if p.Badge != "" {
		title = styles.Badge.Render(p.Badge) + " " + title
	}
	meta := []string{p.Author.DisplayName()}
	if !p.CreatedAt.IsZero() {
		meta = append(meta, humanize.Time(p.CreatedAt))
	}
	if p.Likes > 0 {
		meta = append(meta, "♥ "+humanize.Comma(int64(p.Likes)))
	}
	excerpt := lipgloss.NewStyle().Width(width - 4).MaxHeight(2).Render(styles.Muted.Render(p.Excerpt()))

	body := lipgloss.JoinVertical(lipgloss.Left, title, styles.Meta.Render(strings.Join(meta, " · ")), excerpt)
	if selected {
		return styles.SelectedCard.Width(width).Render(body)
	}
	return styles.Card.Width(width).Render(body)
}
