// Package nav is the client's address bar: a current location, a history
// stack, and the route table mapping locations onto views.
package nav

import (
	"net/url"
	"strings"
	"sync"

	"github.com/abelbrown/quill/internal/otel"
	"github.com/abelbrown/quill/internal/query"
)

// Route names a view.
type Route int

const (
	RouteNotFound Route = iota
	RouteHome
	RouteListing
	RoutePost
	RouteLogin
	RouteRegister
	RouteProfile
	RouteNewPost
	RouteEditPost
)

var routeNames = map[Route]string{
	RouteNotFound: "not-found",
	RouteHome:     "home",
	RouteListing:  "all-blogs",
	RoutePost:     "post",
	RouteLogin:    "login",
	RouteRegister: "register",
	RouteProfile:  "profile",
	RouteNewPost:  "new-post",
	RouteEditPost: "edit-post",
}

func (r Route) String() string { return routeNames[r] }

// Location is a resolved address.
type Location struct {
	Raw   string
	Path  string
	Query url.Values
	Route Route
	Param string // post id for RoutePost and RouteEditPost, list for RouteProfile
}

// Resolve parses raw and matches it against the route table. Trailing
// slashes are ignored; an empty string is the home page.
func Resolve(raw string) Location {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		raw = "/"
	}
	u, err := url.Parse(raw)
	if err != nil {
		return Location{Raw: raw, Path: raw, Query: url.Values{}, Route: RouteNotFound}
	}
	path := u.Path
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
		if path == "" {
			path = "/"
		}
	}
	loc := Location{Raw: raw, Path: path, Query: u.Query()}

	parts := strings.Split(strings.Trim(path, "/"), "/")
	switch {
	case path == "/":
		loc.Route = RouteHome
	case path == query.ListingPath:
		loc.Route = RouteListing
	case len(parts) == 2 && parts[0] == "blog" && parts[1] != "":
		loc.Route, loc.Param = RoutePost, parts[1]
	case path == "/auth/login":
		loc.Route = RouteLogin
	case path == "/auth/register":
		loc.Route = RouteRegister
	case path == "/profile":
		loc.Route = RouteProfile
	case path == "/profile/comments":
		loc.Route, loc.Param = RouteProfile, "comments"
	case path == "/profile/posts/new":
		loc.Route = RouteNewPost
	case len(parts) == 4 && parts[0] == "profile" && parts[1] == "posts" && parts[3] == "edit":
		loc.Route, loc.Param = RouteEditPost, parts[2]
	default:
		loc.Route = RouteNotFound
	}
	return loc
}

// PostPath is the detail location of a post.
func PostPath(id string) string { return "/blog/" + url.PathEscape(id) }

// EditPostPath is the edit location of a post.
func EditPostPath(id string) string { return "/profile/posts/" + url.PathEscape(id) + "/edit" }

// LoginPath is the login location that returns to next once signed in.
func LoginPath(next string) string {
	if next == "" {
		return "/auth/login"
	}
	return "/auth/login?next=" + url.QueryEscape(next)
}

// Protected reports whether r needs a signed-in user.
func (r Route) Protected() bool {
	switch r {
	case RouteProfile, RouteNewPost, RouteEditPost:
		return true
	}
	return false
}

// Router holds the current location and the back stack. Methods are safe
// for concurrent use, though the UI only calls them from Update.
type Router struct {
	mu       sync.Mutex
	history  []string // history[len-1] is current
	onChange func(string)
	events   otel.Scope
}

// NewRouter starts at start.
func NewRouter(start string, events *otel.Logger) *Router {
	if start == "" {
		start = "/"
	}
	return &Router{history: []string{start}, events: events.For("nav")}
}

// OnChange registers fn to be called with every new current location.
func (r *Router) OnChange(fn func(string)) {
	r.mu.Lock()
	r.onChange = fn
	r.mu.Unlock()
}

func (r *Router) changed(loc string, kind otel.EventKind) {
	r.events.Emit(otel.Event{Level: otel.LevelDebug, Kind: kind, Path: loc})
	if r.onChange != nil {
		r.onChange(loc)
	}
}

// Current returns the current location.
func (r *Router) Current() Location {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Resolve(r.history[len(r.history)-1])
}

// Replace swaps the current location in place without adding history.
func (r *Router) Replace(loc string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.history[len(r.history)-1] == loc {
		return
	}
	r.history[len(r.history)-1] = loc
	r.changed(loc, otel.KindNavReplace)
}

// Push navigates to loc, keeping the current location for Back.
func (r *Router) Push(loc string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.history = append(r.history, loc)
	r.changed(loc, otel.KindNavPush)
}

// Back pops one entry. It reports false at the start of history.
func (r *Router) Back() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.history) < 2 {
		return false
	}
	r.history = r.history[:len(r.history)-1]
	r.changed(r.history[len(r.history)-1], otel.KindNavBack)
	return true
}

// Len returns the number of history entries.
func (r *Router) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.history)
}
