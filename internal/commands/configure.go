package commands

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/nhle/messagelist/internal/keys"
	configview "github.com/nhle/messagelist/internal/ui/config"
)

// configureModel runs the configuration view on its own and quits when it
// is closed.
type configureModel struct {
	view configview.Model
}

func (m configureModel) Init() tea.Cmd { return m.view.Init() }

func (m configureModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case configview.ConfigDoneMsg:
		return m, tea.Quit
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.view, cmd = m.view.Update(msg)
	return m, cmd
}

func (m configureModel) View() string { return m.view.View() }

func addConfigure(topLevel *cobra.Command, ro *rootOptions) {
	cmd := &cobra.Command{
		Use:   "configure",
		Short: "Manage IMAP sources and view settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			view := configview.New(ro.cfg, ro.configPath, keys.DefaultKeyMap(), 80, 24)
			p := tea.NewProgram(configureModel{view: view}, tea.WithAltScreen(), tea.WithContext(cmd.Context()))
			if _, err := p.Run(); err != nil {
				return fmt.Errorf("error running configuration: %w", err)
			}
			return nil
		},
	}

	topLevel.AddCommand(cmd)
}
