package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nhle/messagelist/internal/core"
)

func addDump(topLevel *cobra.Command, ro *rootOptions) {
	var grouping, threading, sorting string

	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Print the folder as a threaded tree",
		Example: `
messagelist dump
messagelist dump --grouping sender --threading perfect_references
messagelist dump --folder Sent --sort subject
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log, closeLog, err := ro.logger(false, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer closeLog()

			aggCfg := ro.cfg.Aggregation
			if grouping != "" {
				aggCfg.Grouping = grouping
			}
			if threading != "" {
				aggCfg.Threading = threading
			}
			// Everything is printed, so nothing needs to stay interactive.
			aggCfg.FillStrategy = core.BatchNoInteractivity.String()
			agg, err := core.AggregationFromConfig(aggCfg)
			if err != nil {
				return err
			}

			sortCfg := ro.cfg.Sort
			if sorting != "" {
				sortCfg.Messages = sorting
			}
			order, err := core.SortOrderFromConfig(sortCfg)
			if err != nil {
				return err
			}

			s, folder, err := ro.openFolder(ctx, log)
			if err != nil {
				return err
			}
			defer s.Close()

			e := core.New(core.Options{
				Logger:        log,
				Aggregation:   &agg,
				SortOrder:     &order,
				SubjectMinGap: ro.cfg.Threading.SubjectMinGap,
				SubjectMaxGap: ro.cfg.Threading.SubjectMaxGap,
			})
			e.SetStorage(folder, core.PreSelectNone)
			if err := e.Run(ctx); err != nil {
				return err
			}

			fmt.Fprint(cmd.OutOrStdout(), e.Dump())
			return nil
		},
	}

	cmd.Flags().StringVar(&grouping, "grouping", "", "Grouping policy (overrides the configuration).")
	cmd.Flags().StringVar(&threading, "threading", "", "Threading policy (overrides the configuration).")
	cmd.Flags().StringVar(&sorting, "sort", "", "Message sort key (overrides the configuration).")

	topLevel.AddCommand(cmd)
}
