package command

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/messagelist/internal/core"
	"github.com/nhle/messagelist/internal/theme"
)

// CommandMsg is emitted when the user executes a command.
type CommandMsg string

// Verb splits a command into its first word and the rest.
func (c CommandMsg) Verb() (verb, arg string) {
	verb, arg, _ = strings.Cut(strings.TrimSpace(string(c)), " ")
	return strings.ToLower(verb), strings.TrimSpace(arg)
}

// Suggestions lists every command the palette completes, including one
// entry per policy name.
func Suggestions() []string {
	out := []string{
		"refresh", "quit", "configure", "reload",
		"expand all", "collapse all",
		"filter ", "clear",
	}
	add := func(verb string, names []string) {
		for _, n := range names {
			out = append(out, verb+" "+n)
		}
	}
	add("group", core.GroupingNames())
	add("thread", core.ThreadingNames())
	add("leader", core.ThreadLeaderNames())
	add("sort", core.MessageSortingNames())
	add("groupsort", core.GroupSortingNames())
	return out
}

// Model is the command palette view.
type Model struct {
	input  textinput.Model
	width  int
	height int
}

// New creates a new command palette model.
func New(width, height int) Model {
	ti := textinput.New()
	ti.Placeholder = "type a command..."
	ti.Prompt = ": "
	ti.ShowSuggestions = true
	ti.SetSuggestions(Suggestions())
	ti.Focus()
	ti.Width = width - 6

	return Model{
		input:  ti,
		width:  width,
		height: height,
	}
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles messages for the command palette.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "enter":
			cmd := strings.TrimSpace(m.input.Value())
			m.input.Reset()
			if cmd != "" {
				return m, func() tea.Msg {
					return CommandMsg(cmd)
				}
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the command palette.
func (m Model) View() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	title := titleStyle.Render("Command Palette")
	hint := theme.HelpStyle.Render("tab completes · group/thread/leader/sort/groupsort <name>")

	content := lipgloss.JoinVertical(lipgloss.Left, title, m.input.View(), hint)

	return theme.PanelStyle.
		Width(max(0, m.width-4)).
		Render(content)
}

// SetSize updates the command palette dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.input.Width = width - 6
}

// Focus gives keyboard focus to the text input.
func (m *Model) Focus() tea.Cmd {
	return m.input.Focus()
}
