// Package styles is the lipgloss palette shared by every view.
package styles

import "github.com/charmbracelet/lipgloss"

// Colors used in the application.
var (
	ColorPrimary   = lipgloss.Color("62")  // Purple
	ColorSecondary = lipgloss.Color("241") // Gray
	ColorMuted     = lipgloss.Color("240") // Darker gray
	ColorHighlight = lipgloss.Color("212") // Pink
	ColorSuccess   = lipgloss.Color("78")  // Green
	ColorError     = lipgloss.Color("196")
	ColorBadge     = lipgloss.Color("214") // Amber
	ColorText      = lipgloss.Color("255")
	ColorPanel     = lipgloss.Color("236")
)

// Header is the top bar holding the app name and current location.
var Header = lipgloss.NewStyle().
	Foreground(ColorText).
	Background(ColorPrimary).
	Bold(true).
	Padding(0, 1)

// Location is the address shown inside the header.
var Location = lipgloss.NewStyle().
	Foreground(lipgloss.Color("253")).
	Background(ColorPrimary)

// Title style for view and card headings.
var Title = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorText)

// SelectedCard style for the highlighted card.
var SelectedCard = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(ColorHighlight).
	Padding(0, 1)

// Card style for unselected cards.
var Card = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(ColorMuted).
	Padding(0, 1)

// Badge style for post badges.
var Badge = lipgloss.NewStyle().
	Foreground(lipgloss.Color("0")).
	Background(ColorBadge).
	Padding(0, 1)

// Meta style for authors, dates and counts.
var Meta = lipgloss.NewStyle().
	Foreground(ColorSecondary)

// Muted style for excerpts and hints.
var Muted = lipgloss.NewStyle().
	Foreground(ColorMuted)

// StatusBar style for the bottom status bar.
var StatusBar = lipgloss.NewStyle().
	Foreground(ColorText).
	Background(ColorPanel).
	Padding(0, 1)

// StatusBarKey style for key hints in status bar.
var StatusBarKey = lipgloss.NewStyle().
	Foreground(ColorHighlight).
	Bold(true)

// StatusBarText style for descriptive text in status bar.
var StatusBarText = lipgloss.NewStyle().
	Foreground(ColorSecondary)

// ErrorStyle for displaying errors.
var ErrorStyle = lipgloss.NewStyle().
	Foreground(ColorError).
	Bold(true)

// SuccessStyle for confirmation notices.
var SuccessStyle = lipgloss.NewStyle().
	Foreground(ColorSuccess).
	Bold(true)

// SearchBar style for the search input row.
var SearchBar = lipgloss.NewStyle().
	Foreground(ColorText).
	Background(ColorMuted).
	Padding(0, 1)

// SearchPrompt style for the "/" prompt.
var SearchPrompt = lipgloss.NewStyle().
	Foreground(ColorHighlight).
	Bold(true)

// PageCurrent style for the current page number.
var PageCurrent = lipgloss.NewStyle().
	Foreground(ColorText).
	Background(ColorPrimary).
	Bold(true).
	Padding(0, 1)

// PageOther style for selectable page numbers.
var PageOther = lipgloss.NewStyle().
	Foreground(ColorSecondary).
	Padding(0, 1)

// Disabled style for controls that cannot be used right now.
var Disabled = lipgloss.NewStyle().
	Foreground(lipgloss.Color("238"))

// FormLabel style for form field labels.
var FormLabel = lipgloss.NewStyle().
	Foreground(ColorSecondary).
	Width(12)

// FormFocused style for the label of the focused field.
var FormFocused = lipgloss.NewStyle().
	Foreground(ColorHighlight).
	Bold(true).
	Width(12)

// DebugPanel is the bordered box of the debug overlay.
var DebugPanel = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(ColorPrimary).
	Padding(1, 2)

// DebugHeader style for section headings in the debug overlay.
var DebugHeader = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorHighlight)

// Palette is the box around the command palette.
var Palette = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(ColorPrimary).
	Padding(0, 1)

// PaletteSelected style for the highlighted palette entry.
var PaletteSelected = lipgloss.NewStyle().
	Foreground(ColorHighlight).
	Bold(true)

// KeyHint style for the shortcut shown beside a palette entry.
var KeyHint = lipgloss.NewStyle().
	Foreground(ColorSecondary).
	Background(ColorPanel).
	Padding(0, 1)
