package profile

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/abelbrown/quill/internal/api"
	"github.com/abelbrown/quill/internal/blog"
	"github.com/abelbrown/quill/internal/stub"
	"github.com/abelbrown/quill/internal/ui/intent"
)

type fixture struct {
	backend *stub.Server
	admin   *api.Client
	user    *api.Client
	bob     blog.User
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	backend := stub.New()
	ann, annTok, err := backend.AddUser("Ann", "ann@example.com", "secret", blog.RoleAdmin)
	if err != nil {
		t.Fatal(err)
	}
	bob, bobTok, err := backend.AddUser("Bob", "bob@example.com", "secret", blog.RoleUser)
	if err != nil {
		t.Fatal(err)
	}
	backend.SeedPosts(ann, 2)
	backend.SeedPosts(bob, 3)

	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)
	admin, err := api.New(srv.URL, api.WithTokenSource(api.StaticToken(annTok)))
	if err != nil {
		t.Fatal(err)
	}
	user, err := api.New(srv.URL, api.WithTokenSource(api.StaticToken(bobTok)))
	if err != nil {
		t.Fatal(err)
	}
	return fixture{backend: backend, admin: admin, user: user, bob: bob}
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

// feed runs cmd, applies the page's own messages and returns the rest.
func feed(m Model, cmd tea.Cmd) (Model, []tea.Msg) {
	var out []tea.Msg
	for _, msg := range runCmd(cmd) {
		switch msg.(type) {
		case loadedMsg, deletedMsg, savedMsg:
			var next tea.Cmd
			m, next = m.Update(msg)
			var more []tea.Msg
			m, more = feed(m, next)
			out = append(out, more...)
		default:
			out = append(out, msg)
		}
	}
	return m, out
}

func open(t *testing.T, b Backend, edit Edit) (Model, []tea.Msg) {
	t.Helper()
	m := New(b, edit)
	t.Cleanup(m.Close)
	return feed(m, m.Init())
}

func press(m Model, k string) (Model, []tea.Msg) {
	var km tea.KeyMsg
	switch k {
	case "tab":
		km = tea.KeyMsg{Type: tea.KeyTab}
	case "enter":
		km = tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		km = tea.KeyMsg{Type: tea.KeyEsc}
	default:
		km = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
	}
	m, cmd := m.Update(km)
	return feed(m, cmd)
}

func TestUserSeesOnlyOwnPosts(t *testing.T) {
	f := newFixture(t)
	m, out := open(t, f.user, EditNone)

	u, ok := m.User()
	if !ok || u.Name != "Bob" {
		t.Fatalf("user = %+v", u)
	}
	if len(m.Mine()) != 3 || len(m.AllPosts()) != 0 || len(m.Users()) != 0 {
		t.Errorf("mine=%d all=%d users=%d", len(m.Mine()), len(m.AllPosts()), len(m.Users()))
	}
	if len(out) != 1 || out[0] != (intent.UserChanged{User: u}) {
		t.Errorf("out = %#v", out)
	}
	if m, _ = press(m, "tab"); m.Tab() != TabMine {
		t.Error("non-admin has a single list")
	}
}

func TestAdminLoadsEverything(t *testing.T) {
	f := newFixture(t)
	m, _ := open(t, f.admin, EditNone)

	if len(m.Mine()) != 2 || len(m.AllPosts()) != 5 || len(m.Users()) != 2 {
		t.Errorf("mine=%d all=%d users=%d", len(m.Mine()), len(m.AllPosts()), len(m.Users()))
	}
	view := m.View()
	for _, want := range []string{"admin", "My posts (2)", "All posts (5)", "Users (2)"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
}

func TestDeletePostNeedsConfirmation(t *testing.T) {
	f := newFixture(t)
	m, _ := open(t, f.admin, EditNone)
	target := m.Mine()[0].ID

	m, _ = press(m, "d")
	if !m.Capturing() || !strings.Contains(m.View(), "Delete this post? (y/n)") {
		t.Fatalf("expected confirmation prompt:\n%s", m.View())
	}
	m, _ = press(m, "n")
	if len(m.Mine()) != 2 {
		t.Fatal("declining should keep the post")
	}

	m, _ = press(m, "d")
	m, out := press(m, "y")
	if len(m.Mine()) != 1 || len(m.AllPosts()) != 4 {
		t.Errorf("after delete mine=%d all=%d", len(m.Mine()), len(m.AllPosts()))
	}
	for _, p := range m.AllPosts() {
		if p.ID == target {
			t.Error("deleted post still in the admin list")
		}
	}
	if len(out) != 1 || out[0] != (intent.Notify{Text: "Post deleted"}) {
		t.Errorf("out = %#v", out)
	}
	if _, err := f.admin.GetPost(context.Background(), target); err == nil {
		t.Error("post should be gone on the server")
	}
}

func TestDeleteUserRemovesTheirPosts(t *testing.T) {
	f := newFixture(t)
	m, _ := open(t, f.admin, EditNone)

	m, _ = press(m, "tab")
	m, _ = press(m, "tab")
	if m.Tab() != TabUsers {
		t.Fatalf("tab = %v", m.Tab())
	}
	// Users are sorted by name: Ann, Bob.
	m, _ = press(m, "j")
	m, _ = press(m, "d")
	if !strings.Contains(m.View(), "Delete this user? (y/n)") {
		t.Fatalf("view:\n%s", m.View())
	}
	m, out := press(m, "y")

	if len(m.Users()) != 1 || m.Users()[0].Name != "Ann" {
		t.Errorf("users = %+v", m.Users())
	}
	for _, p := range m.AllPosts() {
		if p.Author.ID == f.bob.ID {
			t.Errorf("post %s by deleted user still listed", p.ID)
		}
	}
	if len(m.AllPosts()) != 2 {
		t.Errorf("all posts = %d, want 2", len(m.AllPosts()))
	}
	if len(out) != 1 || out[0] != (intent.Notify{Text: "User deleted"}) {
		t.Errorf("out = %#v", out)
	}
}

func TestAdminModeratesComments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	posts, _ := f.user.SearchPosts(ctx, api.SearchParams{Author: f.bob.ID, Page: 1, Limit: 10})
	for _, text := range []string{"first", "second", "third"} {
		if _, err := f.user.CreateComment(ctx, posts.Posts[0].ID, text); err != nil {
			t.Fatal(err)
		}
	}

	m, _ := open(t, f.admin, EditNone)
	m = m.WithTab(TabComments)
	if len(m.Comments()) != 3 {
		t.Fatalf("comments = %d", len(m.Comments()))
	}
	view := m.View()
	for _, want := range []string{"Comments (3)", "third", "Bob"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}

	// Newest first: third, second, first.
	m, _ = press(m, "j")
	target := m.Comments()[1].ID
	m, _ = press(m, "d")
	if !m.Capturing() || !strings.Contains(m.View(), "Delete comment? (y/n)") {
		t.Fatalf("expected confirmation prompt:\n%s", m.View())
	}
	m, _ = press(m, "n")
	if len(m.Comments()) != 3 {
		t.Fatal("declining should keep the comment")
	}

	m, _ = press(m, "d")
	m, out := press(m, "y")
	if len(m.Comments()) != 2 {
		t.Fatalf("after delete comments = %d", len(m.Comments()))
	}
	for _, c := range m.Comments() {
		if c.ID == target {
			t.Error("deleted comment still listed")
		}
	}
	if len(out) != 1 || out[0] != (intent.Notify{Text: "Comment deleted"}) {
		t.Errorf("out = %#v", out)
	}
	left, _ := f.admin.ListAllComments(ctx, 1, 100)
	if left.Total != 2 {
		t.Errorf("server still has %d comments", left.Total)
	}

	_, out = press(m, "enter")
	if len(out) != 1 || out[0] != (intent.Navigate{To: "/blog/" + posts.Posts[0].ID}) {
		t.Errorf("enter = %#v", out)
	}
}

func TestCommentsTabIsAdminOnly(t *testing.T) {
	f := newFixture(t)

	m := New(f.user, EditNone).WithTab(TabComments)
	t.Cleanup(m.Close)
	m, _ = feed(m, m.Init())
	if m.Tab() != TabMine {
		t.Errorf("tab = %v, want own posts for a non-admin", m.Tab())
	}
	if strings.Contains(m.View(), "Comments") {
		t.Errorf("non-admin sees the moderation tab:\n%s", m.View())
	}

	m, _ = open(t, f.admin, EditNone)
	for range 3 {
		m, _ = press(m, "tab")
	}
	if m.Tab() != TabComments {
		t.Errorf("admin tab cycle ended on %v", m.Tab())
	}
}

func TestDeleteFailureReloads(t *testing.T) {
	f := newFixture(t)
	m, _ := open(t, f.admin, EditNone)

	f.backend.FailNext(500)
	m, _ = press(m, "d")
	m, out := press(m, "y")

	var failed bool
	for _, msg := range out {
		if n, ok := msg.(intent.Notify); ok && n.Err && n.Text == "Failed to delete post" {
			failed = true
		}
	}
	if !failed {
		t.Errorf("out = %#v", out)
	}
	if len(m.Mine()) != 2 {
		t.Errorf("reload should restore the list, mine = %d", len(m.Mine()))
	}
}

func TestNavigationKeys(t *testing.T) {
	f := newFixture(t)
	m, _ := open(t, f.user, EditNone)
	first := m.Mine()[0].ID

	tests := []struct {
		key  string
		want string
	}{
		{"enter", "/blog/" + first},
		{"e", "/profile/posts/" + first + "/edit"},
		{"n", "/profile/posts/new"},
		{"i", "/profile?edit=info"},
		{"w", "/profile?edit=password"},
	}
	for _, tt := range tests {
		_, out := press(m, tt.key)
		if len(out) != 1 || out[0] != (intent.Navigate{To: tt.want}) {
			t.Errorf("%s = %#v, want navigate to %s", tt.key, out, tt.want)
		}
	}
}

func TestEditInfo(t *testing.T) {
	f := newFixture(t)
	m, _ := open(t, f.user, EditInfo)
	if !m.Capturing() || m.Title() != "Edit profile" {
		t.Fatalf("capturing=%v title=%q", m.Capturing(), m.Title())
	}
	if m.form.Value(0) != "Bob" || m.form.Value(1) != "bob@example.com" {
		t.Fatalf("form not prefilled: %q %q", m.form.Value(0), m.form.Value(1))
	}

	m.form.SetValue(0, "Robert")
	m, _ = press(m, "enter")
	_, out := press(m, "enter")

	var notified, navigated bool
	for _, msg := range out {
		switch v := msg.(type) {
		case intent.Notify:
			notified = v.Text == "Profile updated"
		case intent.Navigate:
			navigated = v.To == "/profile"
		}
	}
	if !notified || !navigated {
		t.Errorf("out = %#v", out)
	}
	me, err := f.user.Me(context.Background())
	if err != nil || me.Name != "Robert" {
		t.Errorf("me = %+v, %v", me, err)
	}
}

func TestChangePassword(t *testing.T) {
	f := newFixture(t)
	m, _ := open(t, f.user, EditPassword)

	m.form.SetValue(0, "wrong")
	m.form.SetValue(1, "newsecret")
	m.form.FocusOn(1)
	m, out := press(m, "enter")
	if len(out) != 1 || out[0] != (intent.Notify{Text: "Password change failed", Err: true}) {
		t.Errorf("wrong current password: out = %#v", out)
	}

	m.form.SetValue(0, "secret")
	_, out = press(m, "enter")
	if len(out) != 2 {
		t.Errorf("out = %#v", out)
	}
	if _, err := f.user.Login(context.Background(), "bob@example.com", "newsecret"); err != nil {
		t.Errorf("login with new password: %v", err)
	}
}

func TestEditCancel(t *testing.T) {
	f := newFixture(t)
	m, _ := open(t, f.user, EditPassword)
	_, out := press(m, "esc")
	if len(out) != 1 || out[0] != (intent.Navigate{To: "/profile"}) {
		t.Errorf("out = %#v", out)
	}
}

func TestUnauthorizedExpiresSession(t *testing.T) {
	srv := httptest.NewServer(stub.New())
	t.Cleanup(srv.Close)
	c, _ := api.New(srv.URL, api.WithTokenSource(api.StaticToken("stale")))

	_, out := open(t, c, EditNone)
	if len(out) != 1 || out[0] != (intent.SessionExpired{}) {
		t.Errorf("out = %#v", out)
	}
}

func TestParseEdit(t *testing.T) {
	for in, want := range map[string]Edit{"info": EditInfo, "password": EditPassword, "": EditNone, "bogus": EditNone} {
		if got := ParseEdit(in); got != want {
			t.Errorf("ParseEdit(%q) = %q, want %q", in, got, want)
		}
	}
}
