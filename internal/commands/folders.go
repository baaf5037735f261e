package commands

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/nhle/messagelist/internal/theme"
)

func addFolders(topLevel *cobra.Command, ro *rootOptions) {
	cmd := &cobra.Command{
		Use:   "folders",
		Short: "List the stored folders with their message counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := ro.openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			folders, err := s.GetFolders(cmd.Context())
			if err != nil {
				return err
			}

			t := table.New().
				Border(lipgloss.NormalBorder()).
				BorderStyle(lipgloss.NewStyle().Foreground(theme.ColorBorder)).
				Headers("FOLDER", "MESSAGES", "UNREAD")
			for _, f := range folders {
				t.Row(f.Name, strconv.Itoa(f.Messages), strconv.Itoa(f.Unread))
			}
			fmt.Fprintln(cmd.OutOrStdout(), t.Render())
			return nil
		},
	}

	topLevel.AddCommand(cmd)
}
