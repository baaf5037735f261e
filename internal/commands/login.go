package commands

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/huh/spinner"
	"github.com/spf13/cobra"

	"github.com/nhle/messagelist/internal/credential"
	"github.com/nhle/messagelist/internal/model"
	configview "github.com/nhle/messagelist/internal/ui/config"
)

func addLogin(topLevel *cobra.Command, ro *rootOptions) {
	var skipCheck bool

	cmd := &cobra.Command{
		Use:   "login <source-id>",
		Short: "Store the password of an IMAP source in the system keyring",
		Example: `
messagelist login work
messagelist login work --no-check
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			i := slices.IndexFunc(ro.cfg.Sources, func(s model.SourceConfig) bool { return s.ID == args[0] })
			if i < 0 {
				return fmt.Errorf("no source %q in %s", args[0], ro.configPath)
			}
			src := ro.cfg.Sources[i]

			var password string
			form := huh.NewForm(huh.NewGroup(
				huh.NewInput().
					Title(fmt.Sprintf("Password for %s@%s", src.Username, src.Host)).
					EchoMode(huh.EchoModePassword).
					Value(&password).
					Validate(func(s string) error {
						if strings.TrimSpace(s) == "" {
							return fmt.Errorf("Password is required")
						}
						return nil
					}),
			))
			if err := form.Run(); err != nil {
				return err
			}

			if !skipCheck {
				var info string
				var checkErr error
				err := spinner.New().
					Title("Testing connection...").
					Action(func() {
						ctx, cancel := context.WithTimeout(cmd.Context(), 20*time.Second)
						defer cancel()
						info, checkErr = configview.ValidateIMAP(ctx, src, password)
					}).
					Run()
				if err != nil {
					return err
				}
				if checkErr != nil {
					return fmt.Errorf("connection test failed, password not stored: %w", checkErr)
				}
				fmt.Fprintln(cmd.OutOrStdout(), info)
			}

			if err := credential.Set(credential.SourcePasswordKey(src.ID), password); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "password for %s stored\n", src.ID)
			return nil
		},
	}

	cmd.Flags().BoolVar(&skipCheck, "no-check", false, "Store the password without testing the connection.")

	topLevel.AddCommand(cmd)
}
