package auth

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/abelbrown/quill/internal/api"
	"github.com/abelbrown/quill/internal/logging"
	"github.com/abelbrown/quill/internal/nav"
	"github.com/abelbrown/quill/internal/ui/form"
	"github.com/abelbrown/quill/internal/ui/intent"
	"github.com/abelbrown/quill/internal/ui/styles"
)

// RegisterBackend creates accounts.
type RegisterBackend interface {
	Register(ctx context.Context, name, email, password string) (api.Session, error)
}

type registerMsg struct {
	err error
}

// Register is the sign-up form. A new account is not signed in; the user
// is sent to the login form instead.
type Register struct {
	backend RegisterBackend
	ctx     context.Context
	cancel  context.CancelFunc
	form    form.Form
	busy    bool
	errText string
}

// NewRegister creates the form.
func NewRegister(b RegisterBackend) Register {
	ctx, cancel := context.WithCancel(context.Background())
	return Register{backend: b, ctx: ctx, cancel: cancel, form: form.New("Name", "Email", "Password")}
}

func (m Register) Init() tea.Cmd   { return nil }
func (m Register) Capturing() bool { return true }
func (m Register) Close()          { m.cancel() }
func (m Register) Title() string   { return "Register" }
func (m Register) Help() string {
	return "tab:next field  enter:register  ctrl+r:login  esc:back"
}

// Update handles a message.
func (m Register) Update(msg tea.Msg) (Register, tea.Cmd) {
	switch msg := msg.(type) {
	case registerMsg:
		m.busy = false
		if msg.err != nil {
			logging.Info("register failed", "err", msg.err)
			m.errText = "Registration failed"
			return m, intent.Fail(m.errText)
		}
		return m, tea.Batch(intent.Info("Registered! Please login."), intent.Go(nav.LoginPath("")))

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Cancel):
			return m, func() tea.Msg { return intent.Back{} }
		case key.Matches(msg, keys.Switch):
			return m, intent.Go(nav.LoginPath(""))
		case key.Matches(msg, keys.Submit):
			if !m.form.Last() {
				return m, m.form.Move(1)
			}
			return m.submit()
		}
	}
	return m, m.form.Update(msg)
}

func (m Register) submit() (Register, tea.Cmd) {
	if m.busy {
		return m, nil
	}
	name, email, pw := m.form.Value(0), m.form.Value(1), m.form.Raw(2)
	if name == "" || email == "" || pw == "" {
		m.errText = "All fields are required"
		return m, nil
	}
	m.busy = true
	m.errText = ""
	ctx, b := m.ctx, m.backend
	return m, func() tea.Msg {
		_, err := b.Register(ctx, name, email, pw)
		return registerMsg{err: err}
	}
}

// View renders the form.
func (m Register) View() string {
	var b strings.Builder
	b.WriteString(styles.Title.Render("Create an account") + "\n\n")
	b.WriteString(m.form.View())
	b.WriteString("\n")
	switch {
	case m.busy:
		b.WriteString(styles.Muted.Render("Registering..."))
	case m.errText != "":
		b.WriteString(styles.ErrorStyle.Render(m.errText))
	default:
		b.WriteString(styles.Muted.Render("Have an account? ctrl+r to sign in"))
	}
	return b.String()
}
