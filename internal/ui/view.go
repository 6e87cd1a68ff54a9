// Package ui is the root Bubble Tea model. It owns the router, the
// session and the active page, and turns intents from pages into
// navigation.
package ui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// View is a page. Pages are value types whose Update returns their own
// type; adapt lifts them into this interface.
type View interface {
	Init() tea.Cmd
	Update(msg tea.Msg) (View, tea.Cmd)
	View() string
	// Capturing reports that keys belong to the page, e.g. a focused input.
	Capturing() bool
	Close()
	Title() string
	Help() string
}

type page[M any] interface {
	Init() tea.Cmd
	Update(msg tea.Msg) (M, tea.Cmd)
	View() string
	Capturing() bool
	Close()
	Title() string
	Help() string
}

type adapter[M page[M]] struct {
	m M
}

func adapt[M page[M]](m M) View { return adapter[M]{m: m} }

func (a adapter[M]) Init() tea.Cmd   { return a.m.Init() }
func (a adapter[M]) View() string    { return a.m.View() }
func (a adapter[M]) Capturing() bool { return a.m.Capturing() }
func (a adapter[M]) Close()          { a.m.Close() }
func (a adapter[M]) Title() string   { return a.m.Title() }
func (a adapter[M]) Help() string    { return a.m.Help() }

func (a adapter[M]) Update(msg tea.Msg) (View, tea.Cmd) {
	m, cmd := a.m.Update(msg)
	return adapter[M]{m: m}, cmd
}

// notFound is shown for unknown locations.
type notFound struct {
	loc string
}

func (n notFound) Init() tea.Cmd                      { return nil }
func (n notFound) Update(tea.Msg) (notFound, tea.Cmd) { return n, nil }
func (n notFound) Capturing() bool                    { return false }
func (n notFound) Close()                             {}
func (n notFound) Title() string                      { return "Not found" }
func (n notFound) Help() string                       { return "esc:back  H:home" }

func (n notFound) View() string {
	return "Nothing lives at " + n.loc + "\n\nPress H to go home."
}
