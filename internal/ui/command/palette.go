// Package command is the ":" palette: a filtered list of commands that
// also accepts a raw location or free search text. "/..." is a location,
// "?text" always searches, and text no command name starts with searches
// too.
package command

import (
	"strings"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/abelbrown/quill/internal/query"
	"github.com/abelbrown/quill/internal/ui/styles"
)

// Command represents an available command. Commands with a Location
// navigate there; the rest are actions the app performs by Name.
type Command struct {
	Name        string
	Aliases     []string
	Description string
	Key         string // shortcut key if any
	Location    string
}

// Action names.
const (
	ActionLogout = "logout"
	ActionDebug  = "debug"
	ActionQuit   = "quit"
)

// DefaultCommands returns the built-in commands
func DefaultCommands() []Command {
	return []Command{
		{Name: "home", Description: "Latest posts", Key: "H", Location: "/"},
		{Name: "all", Aliases: []string{"posts", "blogs"}, Description: "All posts, newest first", Key: "A", Location: query.ListingPath},
		{Name: "oldest", Description: "All posts, oldest first", Location: query.Default().WithSort(query.SortOld).Path()},
		{Name: "profile", Aliases: []string{"me", "dashboard"}, Description: "Your posts and account", Key: "P", Location: "/profile"},
		{Name: "new", Aliases: []string{"write", "compose"}, Description: "Write a post", Key: "N", Location: "/profile/posts/new"},
		{Name: "comments", Aliases: []string{"moderate"}, Description: "Moderate comments (admin)", Location: "/profile/comments"},
		{Name: "login", Aliases: []string{"signin"}, Description: "Sign in", Key: "L", Location: "/auth/login"},
		{Name: "register", Aliases: []string{"signup"}, Description: "Create an account", Location: "/auth/register"},
		{Name: ActionLogout, Aliases: []string{"signout"}, Description: "Sign out"},
		{Name: ActionDebug, Description: "Session stats and recent events", Key: "D"},
		{Name: ActionQuit, Aliases: []string{"exit", "q"}, Description: "Exit quill", Key: "q"},
	}
}

// Choice is what enter picked. Exactly one field is set.
type Choice struct {
	Action   string
	Location string
}

// Palette is a command palette with prefix matching
type Palette struct {
	input    textinput.Model
	commands []Command
	filtered []Command
	cursor   int
	width    int
	active   bool
}

// New creates a new command palette
func New() Palette {
	ti := textinput.New()
	ti.Placeholder = "command, /location or search text"
	ti.Prompt = ": "
	ti.PromptStyle = styles.SearchPrompt
	ti.CharLimit = 200
	ti.Cursor.SetMode(cursor.CursorStatic)

	return Palette{
		input:    ti,
		commands: DefaultCommands(),
		filtered: DefaultCommands(),
	}
}

// Activate shows the palette
func (p *Palette) Activate() tea.Cmd {
	p.active = true
	p.input.SetValue("")
	p.filtered = p.commands
	p.cursor = 0
	return p.input.Focus()
}

// Deactivate hides the palette
func (p *Palette) Deactivate() {
	p.active = false
	p.input.Blur()
}

// IsActive returns whether palette is showing
func (p Palette) IsActive() bool {
	return p.active
}

// SetWidth sets the palette width
func (p *Palette) SetWidth(w int) {
	p.width = w
	p.input.Width = max(10, w-10)
}

// Filtered returns the commands matching the current input.
func (p Palette) Filtered() []Command {
	return p.filtered
}

// resolve turns the input and selection into a Choice. Input starting
// with "/" is a location; input matching no command searches for it.
func (p Palette) resolve() (Choice, bool) {
	text := strings.TrimSpace(p.input.Value())
	if strings.HasPrefix(text, "/") {
		return Choice{Location: text}, true
	}
	if search, ok := strings.CutPrefix(text, "?"); ok {
		if search = strings.TrimSpace(search); search == "" {
			return Choice{}, false
		}
		return Choice{Location: query.Default().WithText(search).Path()}, true
	}
	if p.cursor >= 0 && p.cursor < len(p.filtered) {
		c := p.filtered[p.cursor]
		if c.Location != "" {
			return Choice{Location: c.Location}, true
		}
		return Choice{Action: c.Name}, true
	}
	if text != "" {
		return Choice{Location: query.Default().WithText(text).Path()}, true
	}
	return Choice{}, false
}

// Update handles input. ok reports that a choice was made.
func (p Palette) Update(msg tea.Msg) (Palette, tea.Cmd, Choice, bool) {
	if !p.active {
		return p, nil, Choice{}, false
	}

	if msg, isKey := msg.(tea.KeyMsg); isKey {
		switch msg.String() {
		case "esc":
			p.Deactivate()
			return p, nil, Choice{}, false

		case "enter":
			choice, ok := p.resolve()
			p.Deactivate()
			return p, nil, choice, ok

		case "up", "ctrl+p":
			if p.cursor > 0 {
				p.cursor--
			}
			return p, nil, Choice{}, false

		case "down", "ctrl+n":
			if p.cursor < len(p.filtered)-1 {
				p.cursor++
			}
			return p, nil, Choice{}, false

		case "tab":
			if len(p.filtered) > 0 {
				p.input.SetValue(p.filtered[p.cursor].Name)
				p.input.CursorEnd()
			}
			return p, nil, Choice{}, false
		}
	}

	oldValue := p.input.Value()

	var cmd tea.Cmd
	p.input, cmd = p.input.Update(msg)

	if p.input.Value() != oldValue {
		p.filter()
	}

	return p, cmd, Choice{}, false
}

func (p *Palette) filter() {
	text := strings.ToLower(strings.TrimSpace(p.input.Value()))
	if text == "" {
		p.filtered = p.commands
		p.cursor = 0
		return
	}
	if strings.HasPrefix(text, "/") || strings.HasPrefix(text, "?") {
		p.filtered = nil
		p.cursor = 0
		return
	}

	var matches []Command
	for _, c := range p.commands {
		if matchesCommand(c, text) {
			matches = append(matches, c)
		}
	}

	p.filtered = matches
	if p.cursor >= len(p.filtered) {
		p.cursor = max(0, len(p.filtered)-1)
	}
}

func matchesCommand(c Command, text string) bool {
	if strings.HasPrefix(c.Name, text) {
		return true
	}
	for _, alias := range c.Aliases {
		if strings.HasPrefix(alias, text) {
			return true
		}
	}
	return false
}

// View renders the palette
func (p Palette) View() string {
	if !p.active {
		return ""
	}

	var b strings.Builder
	b.WriteString(p.input.View())
	b.WriteString("\n")
	b.WriteString(styles.Muted.Render(strings.Repeat("─", max(0, p.width-8))))
	b.WriteString("\n")

	// Max 8 visible, scrolls with cursor
	maxVisible := min(8, len(p.filtered))
	start := 0
	if p.cursor >= maxVisible {
		start = p.cursor - maxVisible + 1
	}
	end := min(start+maxVisible, len(p.filtered))

	if start > 0 {
		b.WriteString(styles.Muted.Render("  ↑ more above"))
		b.WriteString("\n")
	}

	for i := start; i < end; i++ {
		cmd := p.filtered[i]

		var line string
		if i == p.cursor {
			line = styles.PaletteSelected.Render("› "+cmd.Name) + styles.Meta.Render(" "+cmd.Description)
		} else {
			line = "  " + cmd.Name + styles.Meta.Render(" "+cmd.Description)
		}

		if cmd.Key != "" {
			hint := styles.KeyHint.Render(cmd.Key)
			if pad := p.width - 10 - lipgloss.Width(line) - lipgloss.Width(hint); pad > 0 {
				line += strings.Repeat(" ", pad) + hint
			}
		}

		b.WriteString(line)
		b.WriteString("\n")
	}

	if end < len(p.filtered) {
		b.WriteString(styles.Muted.Render("  ↓ more below"))
		b.WriteString("\n")
	}

	if len(p.filtered) == 0 {
		text := strings.TrimSpace(p.input.Value())
		switch {
		case strings.HasPrefix(text, "/"):
			b.WriteString(styles.Muted.Render("  enter: go to " + text))
		case strings.HasPrefix(text, "?"):
			b.WriteString(styles.Muted.Render("  enter: search posts for " + strings.TrimSpace(text[1:])))
		case text != "":
			b.WriteString(styles.Muted.Render("  enter: search posts for " + text))
		}
		b.WriteString("\n")
	}

	b.WriteString(styles.Muted.Render("↑↓ navigate  enter select  tab complete  esc cancel"))

	return styles.Palette.Width(max(20, p.width-4)).Render(b.String())
}
