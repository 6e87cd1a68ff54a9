// Package intent holds the messages views send up to the root app.
package intent

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/abelbrown/quill/internal/blog"
)

// Navigate pushes a new location.
type Navigate struct {
	To string
}

// Back returns to the previous location.
type Back struct{}

// Notify shows a message in the status bar.
type Notify struct {
	Text string
	Err  bool
}

// SignedIn records a new session. Next is where to go afterwards; empty
// means the home page.
type SignedIn struct {
	Token string
	User  blog.User
	Next  string
}

// UserChanged carries a fresher copy of the signed-in user.
type UserChanged struct {
	User blog.User
}

// SignedOut forgets the session.
type SignedOut struct{}

// SessionExpired is sent when the backend rejects the stored token.
type SessionExpired struct{}

// Go returns a command that navigates to loc.
func Go(loc string) tea.Cmd {
	return func() tea.Msg { return Navigate{To: loc} }
}

// Info returns a command that shows a notice.
func Info(text string) tea.Cmd {
	return func() tea.Msg { return Notify{Text: text} }
}

// Fail returns a command that shows an error notice.
func Fail(text string) tea.Cmd {
	return func() tea.Msg { return Notify{Text: text, Err: true} }
}
