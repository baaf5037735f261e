package theme

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/messagelist/internal/model"
)

// Adaptive color pairs (dark terminal value, light terminal value).
var (
	ColorBlue    = lipgloss.AdaptiveColor{Dark: "#5B9BD5", Light: "#2B6CB0"}
	ColorGreen   = lipgloss.AdaptiveColor{Dark: "#6BCB77", Light: "#2F855A"}
	ColorYellow  = lipgloss.AdaptiveColor{Dark: "#FFD93D", Light: "#B7791F"}
	ColorRed     = lipgloss.AdaptiveColor{Dark: "#FF6B6B", Light: "#C53030"}
	ColorOrange  = lipgloss.AdaptiveColor{Dark: "#FFA94D", Light: "#C05621"}
	ColorMagenta = lipgloss.AdaptiveColor{Dark: "#CC5DE8", Light: "#805AD5"}
	ColorGray    = lipgloss.AdaptiveColor{Dark: "#868E96", Light: "#718096"}
	ColorWhite   = lipgloss.AdaptiveColor{Dark: "#F8F9FA", Light: "#1A202C"}
	ColorSubtle  = lipgloss.AdaptiveColor{Dark: "#495057", Light: "#CBD5E0"}
	ColorBorder  = lipgloss.AdaptiveColor{Dark: "#495057", Light: "#E2E8F0"}
)

// HeaderStyle is used for the application title bar.
var HeaderStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorWhite).
	Background(ColorBlue).
	Padding(0, 1)

// StatusBarStyle is used for the bottom status bar.
var StatusBarStyle = lipgloss.NewStyle().
	Foreground(ColorWhite).
	Background(ColorSubtle).
	Padding(0, 1)

// ProgressStyle renders the engine progress text on the status bar.
var ProgressStyle = StatusBarStyle.
	Foreground(ColorYellow)

// PanelStyle wraps overlay panels such as help and the command palette.
var PanelStyle = lipgloss.NewStyle().
	Padding(1, 2).
	Border(lipgloss.RoundedBorder()).
	BorderForeground(ColorBorder)

// RowStyle is the base style for tree rows.
var RowStyle = lipgloss.NewStyle().
	PaddingLeft(2)

// SelectedRowStyle highlights the row under the cursor.
var SelectedRowStyle = lipgloss.NewStyle().
	PaddingLeft(1).
	Bold(true).
	Foreground(ColorBlue).
	Border(lipgloss.NormalBorder(), false, false, false, true).
	BorderForeground(ColorBlue)

// GroupHeaderStyle renders date and sender group headers.
var GroupHeaderStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorMagenta)

var (
	UnreadStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorWhite)
	DimmedStyle = lipgloss.NewStyle().Foreground(ColorGray)
	DateStyle   = lipgloss.NewStyle().Foreground(ColorGray)
	ErrorStyle  = lipgloss.NewStyle().Bold(true).Foreground(ColorRed)
)

// HelpStyle is used for keyboard shortcut hints and help text.
var HelpStyle = lipgloss.NewStyle().
	Foreground(ColorGray).
	Italic(true)

// StatusGlyph returns the one-cell marker and its style for a message
// status. Important wins over action items, which win over unread.
func StatusGlyph(s model.Status) (string, lipgloss.Style) {
	base := lipgloss.NewStyle().Bold(true)

	switch {
	case s.IsImportant():
		return "!", base.Foreground(ColorRed)
	case s.IsToAct():
		return "*", base.Foreground(ColorOrange)
	case !s.IsRead():
		return "●", base.Foreground(ColorGreen)
	case s.Has(model.StatusReplied):
		return "↩", base.Foreground(ColorGray)
	default:
		return " ", base
	}
}

// AttachmentGlyph marks messages carrying attachments.
func AttachmentGlyph(s model.Status) string {
	if s.Has(model.StatusHasAttachment) {
		return lipgloss.NewStyle().Foreground(ColorYellow).Render("@")
	}
	return " "
}
