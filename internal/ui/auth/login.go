package auth

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/abelbrown/quill/internal/api"
	"github.com/abelbrown/quill/internal/logging"
	"github.com/abelbrown/quill/internal/ui/form"
	"github.com/abelbrown/quill/internal/ui/intent"
	"github.com/abelbrown/quill/internal/ui/styles"
)

// LoginBackend signs users in.
type LoginBackend interface {
	Login(ctx context.Context, email, password string) (api.Session, error)
}

type loginMsg struct {
	sess api.Session
	err  error
}

// Login is the sign-in form.
type Login struct {
	backend LoginBackend
	next    string
	ctx     context.Context
	cancel  context.CancelFunc
	form    form.Form
	busy    bool
	errText string
}

// NewLogin creates the form. next is where to go once signed in.
func NewLogin(b LoginBackend, next string) Login {
	ctx, cancel := context.WithCancel(context.Background())
	return Login{backend: b, next: next, ctx: ctx, cancel: cancel, form: form.New("Email", "Password")}
}

func (m Login) Init() tea.Cmd   { return nil }
func (m Login) Capturing() bool { return true }
func (m Login) Close()          { m.cancel() }
func (m Login) Title() string   { return "Login" }
func (m Login) Help() string {
	return "tab:next field  enter:sign in  ctrl+r:register  esc:back"
}

// Update handles a message.
func (m Login) Update(msg tea.Msg) (Login, tea.Cmd) {
	switch msg := msg.(type) {
	case loginMsg:
		m.busy = false
		if msg.err != nil {
			logging.Info("login failed", "err", msg.err)
			m.errText = "Invalid credentials"
			return m, intent.Fail(m.errText)
		}
		sess, next := msg.sess, m.next
		return m, func() tea.Msg {
			return intent.SignedIn{Token: sess.Token, User: sess.User, Next: next}
		}

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Cancel):
			return m, func() tea.Msg { return intent.Back{} }
		case key.Matches(msg, keys.Switch):
			return m, intent.Go("/auth/register")
		case key.Matches(msg, keys.Submit):
			if !m.form.Last() {
				return m, m.form.Move(1)
			}
			return m.submit()
		}
	}
	return m, m.form.Update(msg)
}

func (m Login) submit() (Login, tea.Cmd) {
	if m.busy {
		return m, nil
	}
	email, pw := m.form.Value(0), m.form.Raw(1)
	if email == "" || pw == "" {
		m.errText = "Email and password are required"
		return m, nil
	}
	m.busy = true
	m.errText = ""
	ctx, b := m.ctx, m.backend
	return m, func() tea.Msg {
		sess, err := b.Login(ctx, email, pw)
		return loginMsg{sess: sess, err: err}
	}
}

// View renders the form.
func (m Login) View() string {
	var b strings.Builder
	b.WriteString(styles.Title.Render("Sign in") + "\n\n")
	b.WriteString(m.form.View())
	b.WriteString("\n")
	switch {
	case m.busy:
		b.WriteString(styles.Muted.Render("Signing in..."))
	case m.errText != "":
		b.WriteString(styles.ErrorStyle.Render(m.errText))
	default:
		b.WriteString(styles.Muted.Render("No account? ctrl+r to register"))
	}
	return b.String()
}
