package keys

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the global keybindings for the application.
type KeyMap struct {
	// Navigation
	Down   key.Binding
	Up     key.Binding
	PgDown key.Binding
	PgUp   key.Binding
	Top    key.Binding
	Bottom key.Binding

	// Tree
	Toggle     key.Binding
	Expand     key.Binding
	Collapse   key.Binding
	NextUnread key.Binding

	// Back / Quit
	Back key.Binding
	Quit key.Binding

	// Filtering
	Search          key.Binding
	FilterImportant key.Binding

	Command key.Binding
	Help    key.Binding
	Config  key.Binding

	// Manual refresh
	Refresh key.Binding

	// Message actions
	ToggleRead      key.Binding
	ToggleImportant key.Binding
	ToggleToAct     key.Binding
	Delete          key.Binding

	// View settings
	CycleGrouping  key.Binding
	CycleThreading key.Binding
	CycleSort      key.Binding
	FlipDirection  key.Binding
}

// DefaultKeyMap returns the default set of keybindings.
func DefaultKeyMap() *KeyMap {
	return &KeyMap{
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/↓", "down"),
		),
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/↑", "up"),
		),
		PgDown: key.NewBinding(
			key.WithKeys("pgdown", "ctrl+d"),
			key.WithHelp("pgdn", "page down"),
		),
		PgUp: key.NewBinding(
			key.WithKeys("pgup", "ctrl+u"),
			key.WithHelp("pgup", "page up"),
		),
		Top: key.NewBinding(
			key.WithKeys("home", "g"),
			key.WithHelp("g", "top"),
		),
		Bottom: key.NewBinding(
			key.WithKeys("end", "G"),
			key.WithHelp("G", "bottom"),
		),
		Toggle: key.NewBinding(
			key.WithKeys("enter", " "),
			key.WithHelp("enter", "expand/collapse"),
		),
		Expand: key.NewBinding(
			key.WithKeys("l", "right"),
			key.WithHelp("l/→", "expand"),
		),
		Collapse: key.NewBinding(
			key.WithKeys("h", "left"),
			key.WithHelp("h/←", "collapse / parent"),
		),
		NextUnread: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "next unread"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "back"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q"),
			key.WithHelp("q", "quit"),
		),
		Search: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "filter"),
		),
		FilterImportant: key.NewBinding(
			key.WithKeys("I"),
			key.WithHelp("I", "only important"),
		),
		Command: key.NewBinding(
			key.WithKeys(":"),
			key.WithHelp(":", "command palette"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "toggle help"),
		),
		Config: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "configure"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
		ToggleRead: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "toggle read"),
		),
		ToggleImportant: key.NewBinding(
			key.WithKeys("i"),
			key.WithHelp("i", "toggle important"),
		),
		ToggleToAct: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "toggle action item"),
		),
		Delete: key.NewBinding(
			key.WithKeys("d", "delete"),
			key.WithHelp("d", "delete"),
		),
		CycleGrouping: key.NewBinding(
			key.WithKeys("1"),
			key.WithHelp("1", "cycle grouping"),
		),
		CycleThreading: key.NewBinding(
			key.WithKeys("2"),
			key.WithHelp("2", "cycle threading"),
		),
		CycleSort: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "cycle sort"),
		),
		FlipDirection: key.NewBinding(
			key.WithKeys("shift+tab"),
			key.WithHelp("shift+tab", "flip sort direction"),
		),
	}
}

// ShortHelp returns the most essential keybindings for the compact help view.
func (k *KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{
		k.Up, k.Down, k.Toggle, k.Back,
		k.Quit, k.Help, k.Search,
	}
}

// FullHelp returns all keybindings grouped by category for the expanded
// help view.
func (k *KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.PgUp, k.PgDown, k.Top, k.Bottom},
		{k.Toggle, k.Expand, k.Collapse, k.NextUnread},
		{k.ToggleRead, k.ToggleImportant, k.ToggleToAct, k.Delete},
		{k.CycleGrouping, k.CycleThreading, k.CycleSort, k.FlipDirection},
		{k.Search, k.FilterImportant, k.Command, k.Config, k.Refresh, k.Help, k.Quit},
	}
}
