package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show timeline statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			st, err := newStore(ctx, logger)
			if err != nil {
				return fmt.Errorf("stats: opening store: %w", err)
			}
			defer func() { _ = st.Close() }()

			stats, err := newService(st, logger).Stats(ctx)
			if err != nil {
				return fmt.Errorf("stats: fetching statistics: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Timelines:   %d\n", stats.Timelines)
			fmt.Fprintf(out, "Events:      %d\n", stats.Events)
			fmt.Fprintf(out, "Event types: %d\n", stats.EventTypes)

			if len(stats.EventsByType) > 0 {
				names := make([]string, 0, len(stats.EventsByType))
				for name := range stats.EventsByType {
					names = append(names, name)
				}
				sort.Strings(names)

				fmt.Fprintln(out, "\nEvents by type:")
				for _, name := range names {
					label := name
					if label == "" {
						label = "(none)"
					}
					fmt.Fprintf(out, "  %-16s %d\n", label, stats.EventsByType[name])
				}
			}
			return nil
		},
	}
}
