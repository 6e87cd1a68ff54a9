// Package auth holds the login and registration forms.
package auth

import "github.com/charmbracelet/bubbles/key"

var keys = struct {
	Submit, Cancel, Switch key.Binding
}{
	Submit: key.NewBinding(key.WithKeys("enter")),
	Cancel: key.NewBinding(key.WithKeys("esc")),
	Switch: key.NewBinding(key.WithKeys("ctrl+r")),
}
