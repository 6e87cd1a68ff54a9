// Package form is a vertical stack of labelled text inputs with one
// focused at a time. Views own the submit and cancel keys.
package form

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/abelbrown/quill/internal/ui/styles"
)

var (
	nextKey = key.NewBinding(key.WithKeys("tab", "down"))
	prevKey = key.NewBinding(key.WithKeys("shift+tab", "up"))
)

type field struct {
	label string
	input textinput.Model
}

// Form holds the inputs. Labels containing "password" are masked.
type Form struct {
	fields []field
	focus  int
}

// New creates a form with the first field focused.
func New(labels ...string) Form {
	f := Form{}
	for _, l := range labels {
		ti := textinput.New()
		ti.Prompt = ""
		ti.CharLimit = 200
		ti.Width = 40
		if strings.Contains(strings.ToLower(l), "password") {
			ti.EchoMode = textinput.EchoPassword
			ti.EchoCharacter = '•'
		}
		f.fields = append(f.fields, field{label: l, input: ti})
	}
	if len(f.fields) > 0 {
		f.fields[0].input.Focus()
	}
	return f
}

// Len is the number of fields.
func (f Form) Len() int { return len(f.fields) }

// Focused is the index of the focused field.
func (f Form) Focused() int { return f.focus }

// Value returns field i with surrounding space trimmed.
func (f Form) Value(i int) string {
	return strings.TrimSpace(f.fields[i].input.Value())
}

// Raw returns field i as typed. Use it for passwords.
func (f Form) Raw(i int) string {
	return f.fields[i].input.Value()
}

// SetValue replaces field i.
func (f *Form) SetValue(i int, v string) {
	f.fields[i].input.SetValue(v)
}

// Last reports whether the last field has focus.
func (f Form) Last() bool { return f.focus == len(f.fields)-1 }

// Move shifts focus by delta, wrapping around.
func (f *Form) Move(delta int) tea.Cmd {
	f.fields[f.focus].input.Blur()
	f.focus = (f.focus + delta + len(f.fields)) % len(f.fields)
	return f.fields[f.focus].input.Focus()
}

// FocusOn focuses field i.
func (f *Form) FocusOn(i int) tea.Cmd {
	return f.Move(i - f.focus)
}

// Blur removes focus from every field.
func (f *Form) Blur() {
	f.fields[f.focus].input.Blur()
}

// Update routes tab and arrow keys and passes everything else to the
// focused input.
func (f *Form) Update(msg tea.Msg) tea.Cmd {
	if km, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(km, nextKey):
			return f.Move(1)
		case key.Matches(km, prevKey):
			return f.Move(-1)
		}
	}
	var cmd tea.Cmd
	f.fields[f.focus].input, cmd = f.fields[f.focus].input.Update(msg)
	return cmd
}

// View renders one line per field.
func (f Form) View() string {
	var b strings.Builder
	for i, fl := range f.fields {
		label := styles.FormLabel.Render(fl.label)
		if i == f.focus {
			label = styles.FormFocused.Render(fl.label)
		}
		b.WriteString(label + " " + fl.input.View() + "\n")
	}
	return b.String()
}
