package commands

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/nhle/messagelist/internal/source"
	"github.com/nhle/messagelist/internal/source/email"
)

func addImport(topLevel *cobra.Command, ro *rootOptions) {
	var workers int

	cmd := &cobra.Command{
		Use:   "import <dir>",
		Short: "Import .eml files or a maildir into the folder",
		Example: `
messagelist import ~/Downloads/thread
messagelist import ~/Maildir/INBOX --folder INBOX --workers 16
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log, closeLog, err := ro.logger(false, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer closeLog()

			im := email.NewImporter(args[0], ro.cfg.Folder, workers)
			if _, err := im.ValidateConnection(ctx); err != nil {
				return err
			}
			res, err := im.FetchMessages(ctx, source.FetchOptions{})
			if err != nil {
				return err
			}

			s, err := ro.openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			// Upserting by Message-Id keeps repeated imports idempotent.
			if err := s.UpsertMessages(ctx, res.Messages); err != nil {
				return err
			}
			log.WithFields(logrus.Fields{
				"dir":      args[0],
				"folder":   ro.cfg.Folder,
				"messages": len(res.Messages),
			}).Info("imported")

			fmt.Fprintf(cmd.OutOrStdout(), "imported %d message(s) into %s\n", len(res.Messages), ro.cfg.Folder)
			return nil
		},
	}

	cmd.Flags().IntVarP(&workers, "workers", "w", 8, "Number of files parsed concurrently.")

	topLevel.AddCommand(cmd)
}
