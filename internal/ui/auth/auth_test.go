package auth

import (
	"net/http/httptest"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/abelbrown/quill/internal/api"
	"github.com/abelbrown/quill/internal/blog"
	"github.com/abelbrown/quill/internal/stub"
	"github.com/abelbrown/quill/internal/ui/intent"
)

func newClient(t *testing.T) (*api.Client, *stub.Server) {
	t.Helper()
	backend := stub.New()
	if _, _, err := backend.AddUser("Ann", "ann@example.com", "secret", blog.RoleUser); err != nil {
		t.Fatal(err)
	}
	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)
	c, err := api.New(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	return c, backend
}

func runCmd(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, runCmd(c)...)
		}
		return out
	}
	if msg == nil {
		return nil
	}
	return []tea.Msg{msg}
}

func typeText(m Login, s string) Login {
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
	return m
}

var enter = tea.KeyMsg{Type: tea.KeyEnter}

// submitLogin fills the form, presses enter twice and settles the request.
func submitLogin(t *testing.T, m Login, email, pw string) (Login, []tea.Msg) {
	t.Helper()
	m = typeText(m, email)
	m, _ = m.Update(enter)
	m = typeText(m, pw)
	m, cmd := m.Update(enter)
	var out []tea.Msg
	for _, msg := range runCmd(cmd) {
		if _, ok := msg.(loginMsg); ok {
			var next tea.Cmd
			m, next = m.Update(msg)
			out = append(out, runCmd(next)...)
			continue
		}
		out = append(out, msg)
	}
	return m, out
}

func TestLoginSuccessCarriesNext(t *testing.T) {
	c, _ := newClient(t)
	m := NewLogin(c, "/profile/posts/new")
	t.Cleanup(m.Close)

	_, out := submitLogin(t, m, "ann@example.com", "secret")
	if len(out) != 1 {
		t.Fatalf("out = %#v", out)
	}
	in, ok := out[0].(intent.SignedIn)
	if !ok {
		t.Fatalf("got %#v, want SignedIn", out[0])
	}
	if in.Token == "" || in.User.Name != "Ann" || in.Next != "/profile/posts/new" {
		t.Errorf("signed in = %+v", in)
	}
}

func TestLoginFailure(t *testing.T) {
	c, _ := newClient(t)
	m := NewLogin(c, "")
	t.Cleanup(m.Close)

	m, out := submitLogin(t, m, "ann@example.com", "wrong")
	if len(out) != 1 {
		t.Fatalf("out = %#v", out)
	}
	if n, ok := out[0].(intent.Notify); !ok || n.Text != "Invalid credentials" || !n.Err {
		t.Errorf("got %#v", out[0])
	}
	if !strings.Contains(m.View(), "Invalid credentials") {
		t.Errorf("view:\n%s", m.View())
	}
}

func TestLoginRequiresBothFields(t *testing.T) {
	m := NewLogin(nil, "")
	m, _ = m.Update(enter)
	m, cmd := m.Update(enter)
	if cmd != nil {
		t.Error("empty form should not submit")
	}
	if !strings.Contains(m.View(), "required") {
		t.Errorf("view:\n%s", m.View())
	}
}

func TestLoginPasswordIsMasked(t *testing.T) {
	m := NewLogin(nil, "")
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyTab})
	m = typeText(m, "hunter2")
	if strings.Contains(m.View(), "hunter2") {
		t.Error("password should not be echoed")
	}
}

func TestLoginKeys(t *testing.T) {
	m := NewLogin(nil, "")
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if msgs := runCmd(cmd); len(msgs) != 1 || msgs[0] != (intent.Back{}) {
		t.Errorf("esc = %#v", msgs)
	}
	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyCtrlR})
	if msgs := runCmd(cmd); len(msgs) != 1 || msgs[0] != (intent.Navigate{To: "/auth/register"}) {
		t.Errorf("ctrl+r = %#v", msgs)
	}
}

func TestRegisterGoesToLogin(t *testing.T) {
	c, _ := newClient(t)
	m := NewRegister(c)
	t.Cleanup(m.Close)

	for i, v := range []string{"Bob", "bob@example.com", "pw1234"} {
		m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(v)})
		if i < 2 {
			m, _ = m.Update(enter)
		}
	}
	m, cmd := m.Update(enter)
	msgs := runCmd(cmd)
	if len(msgs) != 1 {
		t.Fatalf("msgs = %#v", msgs)
	}
	_, cmd = m.Update(msgs[0])
	out := runCmd(cmd)

	var signedIn, notified, navigated bool
	for _, msg := range out {
		switch v := msg.(type) {
		case intent.SignedIn:
			signedIn = true
		case intent.Notify:
			notified = v.Text == "Registered! Please login." && !v.Err
		case intent.Navigate:
			navigated = v.To == "/auth/login"
		}
	}
	if signedIn || !notified || !navigated {
		t.Errorf("out = %#v", out)
	}

	// The account exists: logging in works.
	lm := NewLogin(c, "")
	t.Cleanup(lm.Close)
	if _, out := submitLogin(t, lm, "bob@example.com", "pw1234"); len(out) != 1 {
		t.Errorf("login after register = %#v", out)
	} else if _, ok := out[0].(intent.SignedIn); !ok {
		t.Errorf("login after register = %#v", out[0])
	}
}

func TestRegisterDuplicateFails(t *testing.T) {
	c, _ := newClient(t)
	m := NewRegister(c)
	t.Cleanup(m.Close)
	m.form.SetValue(0, "Ann")
	m.form.SetValue(1, "ann@example.com")
	m.form.SetValue(2, "another1")
	m.form.FocusOn(2)

	m, cmd := m.Update(enter)
	msgs := runCmd(cmd)
	if len(msgs) != 1 {
		t.Fatalf("msgs = %#v", msgs)
	}
	m, cmd = m.Update(msgs[0])
	out := runCmd(cmd)
	if len(out) != 1 {
		t.Fatalf("out = %#v", out)
	}
	if n, ok := out[0].(intent.Notify); !ok || n.Text != "Registration failed" {
		t.Errorf("got %#v", out[0])
	}
	if !strings.Contains(m.View(), "Registration failed") {
		t.Errorf("view:\n%s", m.View())
	}
}
