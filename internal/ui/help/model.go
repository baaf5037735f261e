package help

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/messagelist/internal/core"
	"github.com/nhle/messagelist/internal/keys"
	"github.com/nhle/messagelist/internal/theme"
)

// Model is the help overlay view. Besides the key bindings it lists the
// active grouping, threading and sort settings.
type Model struct {
	keys        *keys.KeyMap
	help        help.Model
	aggregation core.Aggregation
	sortOrder   core.SortOrder
	width       int
	height      int
}

// New creates a new help view model.
func New(keys *keys.KeyMap, width, height int) Model {
	h := help.New()
	h.Width = width
	return Model{
		keys:        keys,
		help:        h,
		aggregation: core.DefaultAggregation(),
		sortOrder:   core.DefaultSortOrder(),
		width:       width,
		height:      height,
	}
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages for the help view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	return m, nil
}

// SetSettings records the view settings shown below the bindings.
func (m *Model) SetSettings(a core.Aggregation, s core.SortOrder) {
	m.aggregation = a
	m.sortOrder = s
}

// View renders the help overlay.
func (m Model) View() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	title := titleStyle.Render("Keyboard Shortcuts")

	m.help.Width = m.width - 4
	m.help.ShowAll = true
	helpText := m.help.View(m.keys)

	settings := lipgloss.NewStyle().
		MarginTop(1).
		Foreground(theme.ColorGray).
		Render(m.settingsText())

	content := lipgloss.JoinVertical(lipgloss.Left, title, helpText, settings)

	return theme.PanelStyle.
		Width(max(0, m.width-4)).
		Height(max(0, m.height-4)).
		Render(content)
}

func (m Model) settingsText() string {
	a, s := m.aggregation, m.sortOrder
	lines := []string{
		fmt.Sprintf("grouping      %s (expand %s)", a.Grouping, a.GroupExpandPolicy),
		fmt.Sprintf("threading     %s (leader %s, expand %s)", a.Threading, a.ThreadLeader, a.ThreadExpandPolicy),
		fmt.Sprintf("group order   %s %s", s.GroupSorting, s.GroupSortDirection),
		fmt.Sprintf("message order %s %s", s.MessageSorting, s.MessageSortDirection),
		fmt.Sprintf("fill          %s", a.FillViewStrategy),
	}
	return strings.Join(lines, "\n")
}

// SetSize updates the help view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.help.Width = width - 4
}
