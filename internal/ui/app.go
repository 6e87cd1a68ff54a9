package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/abelbrown/quill/internal/blog"
	"github.com/abelbrown/quill/internal/listing"
	"github.com/abelbrown/quill/internal/logging"
	"github.com/abelbrown/quill/internal/nav"
	"github.com/abelbrown/quill/internal/otel"
	"github.com/abelbrown/quill/internal/query"
	"github.com/abelbrown/quill/internal/store"
	"github.com/abelbrown/quill/internal/ui/auth"
	"github.com/abelbrown/quill/internal/ui/command"
	"github.com/abelbrown/quill/internal/ui/compose"
	"github.com/abelbrown/quill/internal/ui/detail"
	"github.com/abelbrown/quill/internal/ui/home"
	"github.com/abelbrown/quill/internal/ui/intent"
	"github.com/abelbrown/quill/internal/ui/profile"
	"github.com/abelbrown/quill/internal/ui/styles"
)

// chrome is the header plus the status bar.
const chrome = 2

// Backend is everything the pages need from the API.
type Backend interface {
	listing.Searcher
	detail.Backend
	auth.LoginBackend
	auth.RegisterBackend
	profile.Backend
	compose.Backend
}

// TokenSetter receives the bearer token for outgoing requests.
type TokenSetter interface {
	Set(token string)
}

// SessionStore persists the sign-in between runs.
type SessionStore interface {
	SaveSession(s store.Session) error
	ClearSession() error
}

// Deps wires the app. Sessions, Events, Ring and Clipboard may be nil.
type Deps struct {
	Backend   Backend
	Tokens    TokenSetter
	Sessions  SessionStore
	Router    *nav.Router
	Events    *otel.Logger
	Ring      *otel.RingBuffer
	Debounce  time.Duration
	Theme     string
	ShareBase string
	Clipboard func(string) error

	// Session is a sign-in restored at startup.
	Session *store.Session
}

var keys = struct {
	ForceQuit, Quit, Debug, Back, All, Home, Login, Profile, New, Palette key.Binding
}{
	ForceQuit: key.NewBinding(key.WithKeys("ctrl+c")),
	Quit:      key.NewBinding(key.WithKeys("q")),
	Debug:     key.NewBinding(key.WithKeys("D")),
	Back:      key.NewBinding(key.WithKeys("esc", "backspace")),
	All:       key.NewBinding(key.WithKeys("A")),
	Home:      key.NewBinding(key.WithKeys("H")),
	Login:     key.NewBinding(key.WithKeys("L")),
	Profile:   key.NewBinding(key.WithKeys("P")),
	New:       key.NewBinding(key.WithKeys("N")),
	Palette:   key.NewBinding(key.WithKeys(":")),
}

// routed tags a page's message with the page generation that produced it,
// so a late reply from a closed page never reaches its successor.
type routed struct {
	gen uint64
	msg tea.Msg
}

// App is the root Bubble Tea model.
type App struct {
	deps   Deps
	events otel.Scope

	view    View
	gen     uint64
	initCmd tea.Cmd

	token string
	user  *blog.User

	notice    intent.Notify
	palette   command.Palette
	showDebug bool
	width     int
	height    int
}

// NewApp opens the router's current location.
func NewApp(d Deps) App {
	a := App{deps: d, events: d.Events.For("ui"), palette: command.New()}
	if d.Session != nil && d.Session.Token != "" {
		u := d.Session.User
		a.token, a.user = d.Session.Token, &u
		if d.Tokens != nil {
			d.Tokens.Set(a.token)
		}
	}
	a, cmd := a.open()
	a.initCmd = cmd
	return a
}

// Init runs the first page's startup command.
func (a App) Init() tea.Cmd {
	return a.initCmd
}

// Close tears down the active page.
func (a App) Close() {
	if a.view != nil {
		a.view.Close()
	}
}

// Location returns the current address.
func (a App) Location() string { return a.deps.Router.Current().Raw }

// Page returns the active page's title.
func (a App) Page() string { return a.view.Title() }

// User returns the signed-in user, if any.
func (a App) User() (blog.User, bool) {
	if a.user == nil {
		return blog.User{}, false
	}
	return *a.user, true
}

// Notice returns the status bar message.
func (a App) Notice() intent.Notify { return a.notice }

// wrap tags cmd's result with the current page generation.
func (a App) wrap(cmd tea.Cmd) tea.Cmd {
	if cmd == nil {
		return nil
	}
	gen := a.gen
	return func() tea.Msg {
		msg := cmd()
		if msg == nil {
			return nil
		}
		return routed{gen: gen, msg: msg}
	}
}

// open builds the page for the current location, closing the old one.
// Protected pages send signed-out users to the login form first.
func (a App) open() (App, tea.Cmd) {
	loc := a.deps.Router.Current()
	if loc.Route.Protected() && a.user == nil {
		a.deps.Router.Replace(nav.LoginPath(loc.Raw))
		loc = a.deps.Router.Current()
	}

	if a.view != nil {
		a.view.Close()
	}
	a.gen++
	a.view = a.build(loc)

	var cmds []tea.Cmd
	if a.width > 0 {
		var cmd tea.Cmd
		a.view, cmd = a.view.Update(a.pageSize())
		cmds = append(cmds, cmd)
	}
	cmds = append(cmds, a.view.Init())
	return a, a.wrap(tea.Batch(cmds...))
}

func (a App) build(loc nav.Location) View {
	b := a.deps.Backend
	switch loc.Route {
	case nav.RouteHome:
		return adapt(home.New(b))

	case nav.RouteListing:
		opts := []listing.Option{listing.WithEvents(a.deps.Events)}
		if a.deps.Debounce > 0 {
			opts = append(opts, listing.WithDebounce(a.deps.Debounce))
		}
		ctrl := listing.New(b, a.deps.Router, query.FromValues(loc.Query), opts...)
		return adapt(listing.NewModel(ctrl))

	case nav.RoutePost:
		opts := []detail.Option{
			detail.WithSignedIn(a.user != nil),
			detail.WithShareBase(a.deps.ShareBase),
		}
		if a.deps.Theme != "" {
			opts = append(opts, detail.WithTheme(a.deps.Theme))
		}
		if a.deps.Clipboard != nil {
			opts = append(opts, detail.WithClipboard(a.deps.Clipboard))
		}
		return adapt(detail.New(b, loc.Param, opts...))

	case nav.RouteLogin:
		return adapt(auth.NewLogin(b, loc.Query.Get("next")))

	case nav.RouteRegister:
		return adapt(auth.NewRegister(b))

	case nav.RouteProfile:
		m := profile.New(b, profile.ParseEdit(loc.Query.Get("edit")))
		if loc.Param == "comments" {
			m = m.WithTab(profile.TabComments)
		}
		return adapt(m)

	case nav.RouteNewPost:
		return adapt(compose.New(b, ""))

	case nav.RouteEditPost:
		return adapt(compose.New(b, loc.Param))
	}
	return adapt(notFound{loc: loc.Raw})
}

func (a App) pageSize() tea.WindowSizeMsg {
	return tea.WindowSizeMsg{Width: a.width, Height: max(1, a.height-chrome)}
}

func (a App) navigate(to string) (App, tea.Cmd) {
	a.deps.Router.Push(to)
	return a.open()
}

func (a App) back() (App, tea.Cmd) {
	if !a.deps.Router.Back() {
		return a, nil
	}
	return a.open()
}

// Update handles messages and returns the updated model and any commands.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if otel.TraceEnabled() {
		a.events.Emit(otel.Event{Level: otel.LevelDebug, Kind: otel.KindMsgReceived, Msg: fmt.Sprintf("%T", msg)})
	}

	switch msg := msg.(type) {
	case routed:
		if msg.gen != a.gen {
			return a, nil
		}
		if batch, ok := msg.msg.(tea.BatchMsg); ok {
			cmds := make([]tea.Cmd, 0, len(batch))
			for _, c := range batch {
				cmds = append(cmds, a.wrap(c))
			}
			return a, tea.Batch(cmds...)
		}
		return a.Update(msg.msg)

	case tea.WindowSizeMsg:
		a.width, a.height = msg.Width, msg.Height
		a.palette.SetWidth(min(72, msg.Width))
		return a.forward(a.pageSize())

	case tea.KeyMsg:
		return a.handleKey(msg)

	case intent.Navigate:
		return a.navigate(msg.To)

	case intent.Back:
		return a.back()

	case intent.Notify:
		a.notice = msg
		return a, nil

	case intent.SignedIn:
		return a.signIn(msg)

	case intent.SignedOut:
		a.clearSession()
		a.notice = intent.Notify{Text: "Signed out"}
		return a.navigate("/")

	case intent.SessionExpired:
		a.clearSession()
		a.notice = intent.Notify{Text: "Session expired. Please login.", Err: true}
		loc := a.deps.Router.Current()
		if loc.Route != nav.RouteLogin {
			a.deps.Router.Replace(nav.LoginPath(loc.Raw))
		}
		return a.open()

	case intent.UserChanged:
		if a.user == nil {
			return a, nil
		}
		u := msg.User
		a.user = &u
		a.saveSession()
		return a, nil
	}

	return a.forward(msg)
}

func (a App) forward(msg tea.Msg) (App, tea.Cmd) {
	var cmd tea.Cmd
	a.view, cmd = a.view.Update(msg)
	return a, a.wrap(cmd)
}

func (a App) handleKey(msg tea.KeyMsg) (App, tea.Cmd) {
	if key.Matches(msg, keys.ForceQuit) {
		return a, tea.Quit
	}
	a.notice = intent.Notify{}

	if a.showDebug {
		if key.Matches(msg, keys.Debug) || key.Matches(msg, keys.Back) {
			a.showDebug = false
		}
		return a, nil
	}
	if a.palette.IsActive() {
		var cmd tea.Cmd
		var choice command.Choice
		var ok bool
		a.palette, cmd, choice, ok = a.palette.Update(msg)
		if !ok {
			return a, cmd
		}
		return a.choose(choice)
	}
	if a.view.Capturing() {
		return a.forward(msg)
	}

	switch {
	case key.Matches(msg, keys.Palette):
		return a, a.palette.Activate()
	case key.Matches(msg, keys.Quit):
		return a, tea.Quit
	case key.Matches(msg, keys.Debug):
		a.showDebug = a.deps.Ring != nil
		return a, nil
	case key.Matches(msg, keys.Back):
		return a.back()
	case key.Matches(msg, keys.All):
		return a.navigate(query.ListingPath)
	case key.Matches(msg, keys.Home):
		return a.navigate("/")
	case key.Matches(msg, keys.Login):
		if a.user != nil {
			return a, func() tea.Msg { return intent.SignedOut{} }
		}
		return a.navigate(nav.LoginPath(""))
	case key.Matches(msg, keys.Profile):
		return a.navigate("/profile")
	case key.Matches(msg, keys.New):
		return a.navigate("/profile/posts/new")
	}
	return a.forward(msg)
}

// choose carries out a palette selection.
func (a App) choose(c command.Choice) (App, tea.Cmd) {
	switch c.Action {
	case command.ActionQuit:
		return a, tea.Quit
	case command.ActionDebug:
		a.showDebug = a.deps.Ring != nil
		return a, nil
	case command.ActionLogout:
		if a.user == nil {
			return a, nil
		}
		return a, func() tea.Msg { return intent.SignedOut{} }
	}
	if c.Location == "" || c.Location == a.Location() {
		return a, nil
	}
	return a.navigate(c.Location)
}

func (a App) signIn(msg intent.SignedIn) (App, tea.Cmd) {
	u := msg.User
	a.token, a.user = msg.Token, &u
	if a.deps.Tokens != nil {
		a.deps.Tokens.Set(a.token)
	}
	a.saveSession()
	a.events.Emit(otel.Event{Kind: otel.KindLogin, Msg: u.Email})
	logging.Info("signed in", "user", u.Email)
	a.notice = intent.Notify{Text: "Signed in as " + u.Name}

	next := msg.Next
	if next == "" {
		next = "/"
	}
	// Replace the login form so Back does not return to it.
	a.deps.Router.Replace(next)
	return a.open()
}

func (a *App) clearSession() {
	if a.user != nil {
		a.events.Emit(otel.Event{Kind: otel.KindLogout, Msg: a.user.Email})
	}
	a.token, a.user = "", nil
	if a.deps.Tokens != nil {
		a.deps.Tokens.Set("")
	}
	if a.deps.Sessions != nil {
		if err := a.deps.Sessions.ClearSession(); err != nil {
			logging.Warn("clear session", "err", err)
			a.events.Error(otel.KindStoreError, err)
		}
	}
}

func (a App) saveSession() {
	if a.deps.Sessions == nil || a.user == nil {
		return
	}
	err := a.deps.Sessions.SaveSession(store.Session{Token: a.token, User: *a.user, Created: time.Now()})
	if err != nil {
		logging.Warn("save session", "err", err)
		a.events.Error(otel.KindStoreError, err)
	}
}

// View renders the UI.
func (a App) View() string {
	if a.width == 0 {
		return "Loading..."
	}

	if a.showDebug {
		body := lipgloss.Place(a.width, a.height-1, lipgloss.Center, lipgloss.Center,
			debugOverlay(a.deps.Ring, a.width, a.height-1))
		return body + "\n" + debugStatusBar(a.width)
	}

	content := a.view.View()
	if a.palette.IsActive() {
		content = lipgloss.Place(a.width, a.height-chrome, lipgloss.Center, lipgloss.Top, a.palette.View())
	}
	body := lipgloss.NewStyle().
		Width(a.width).
		Height(a.height - chrome).
		MaxHeight(a.height - chrome).
		Render(content)
	return a.header() + "\n" + body + "\n" + a.statusBar()
}

func (a App) header() string {
	left := styles.Header.Render("quill") + styles.Location.Render(" "+a.Location()+" ")
	right := styles.Meta.Render("not signed in")
	if a.user != nil {
		right = styles.Title.Render(a.user.Name)
		if a.user.IsAdmin() {
			right += " " + styles.Badge.Render("admin")
		}
	}
	gap := max(1, a.width-lipgloss.Width(left)-lipgloss.Width(right))
	return left + strings.Repeat(" ", gap) + right
}

func (a App) statusBar() string {
	if a.notice.Text != "" {
		if a.notice.Err {
			return styles.StatusBar.Width(a.width).Render(styles.ErrorStyle.Render(a.notice.Text))
		}
		return styles.StatusBar.Width(a.width).Render(styles.SuccessStyle.Render(a.notice.Text))
	}
	help := a.view.Help()
	global := ":cmd  esc:back  A:all  H:home  P:profile  N:new  L:login  D:debug  q:quit"
	if a.user != nil {
		global = strings.Replace(global, "L:login", "L:logout", 1)
	}
	if a.view.Capturing() {
		global = "ctrl+c:quit"
	}
	return styles.StatusBar.Width(a.width).Render(styles.StatusBarText.Render(help + "  │  " + global))
}
