package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nhle/messagelist/internal/app"
	msync "github.com/nhle/messagelist/internal/sync"
)

func addSync(topLevel *cobra.Command, ro *rootOptions) {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Fetch new mail from every enabled source once",
		Example: `
messagelist sync
messagelist sync --log-level debug
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			log, closeLog, err := ro.logger(false, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer closeLog()

			s, err := ro.openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			p := msync.New(s, log)
			if app.RegisterSources(p, ro.cfg.Sources, log) == 0 {
				return fmt.Errorf("no enabled source with a stored password; run 'messagelist configure'")
			}

			out := cmd.OutOrStdout()
			failed := 0
			for _, res := range p.SyncOnce(cmd.Context()) {
				switch {
				case res.AuthError != nil:
					failed++
					fmt.Fprintln(out, res.AuthError.Message)
				case res.Error != nil:
					failed++
					fmt.Fprintf(out, "%s: %v\n", res.SourceID, res.Error)
				default:
					fmt.Fprintf(out, "%s: %d fetched, %d new in %s\n",
						res.SourceID, len(res.Messages), res.NewCount, res.Folder)
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d source(s) failed", failed)
			}
			return nil
		},
	}

	topLevel.AddCommand(cmd)
}
