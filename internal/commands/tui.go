package commands

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/nhle/messagelist/internal/app"
	"github.com/nhle/messagelist/internal/core"
	"github.com/nhle/messagelist/internal/model"
	"github.com/nhle/messagelist/internal/source/email"
)

func addTUI(topLevel *cobra.Command, ro *rootOptions) {
	var (
		preSelect string
		watchDir  string
	)

	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Browse the folder as a threaded tree",
		Example: `
messagelist tui
messagelist tui --folder Archive --select newest
messagelist tui --watch ~/Maildir/INBOX
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
				return fmt.Errorf("TUI mode requires an interactive terminal")
			}

			mode, err := core.ParsePreSelectionMode(preSelect)
			if err != nil {
				return err
			}

			log, closeLog, err := ro.logger(true, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer closeLog()

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			s, err := ro.openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			var watched <-chan model.MessageRecord
			if watchDir != "" {
				w, err := email.NewWatcher(watchDir, ro.cfg.Folder, email.WithLogger(log))
				if err != nil {
					return err
				}
				go func() {
					if err := w.Run(ctx); err != nil && ctx.Err() == nil {
						log.WithError(err).Error("watcher stopped")
					}
				}()
				watched = w.Messages()
			}

			m, err := app.New(ctx, app.Options{
				Config:     ro.cfg,
				ConfigPath: ro.configPath,
				Store:      s,
				Log:        log,
				PreSelect:  mode,
				Watched:    watched,
			})
			if err != nil {
				return err
			}

			log.WithField("folder", ro.cfg.Folder).Info("starting TUI")
			p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
			if _, err := p.Run(); err != nil {
				return fmt.Errorf("error running TUI: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&preSelect, "select", core.PreSelectFirstUnread.String(),
		"Message made current once loaded: none, last_selected, first_unread, newest or oldest.")
	cmd.Flags().StringVar(&watchDir, "watch", "",
		"Maildir or .eml directory whose new files are added to the folder.")

	topLevel.AddCommand(cmd)
}
