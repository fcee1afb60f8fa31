package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored timelines",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			st, err := newStore(ctx, logger)
			if err != nil {
				return fmt.Errorf("list: opening store: %w", err)
			}
			defer func() { _ = st.Close() }()

			tls, err := newService(st, logger).ListTimelines(ctx)
			if err != nil {
				return fmt.Errorf("list: fetching timelines: %w", err)
			}

			out := cmd.OutOrStdout()
			for i := range tls {
				tl := &tls[i]
				fmt.Fprintf(out, "[%d] %s\n", i+1, truncate(tl.Name, 80))
				fmt.Fprintf(out, "    ID: %s | Created: %s | Events: %d | Types: %d\n",
					tl.ID, tl.CreatedAt.Format("2006-01-02 15:04"), len(tl.Events), len(tl.EventTypes))
			}

			if len(tls) == 0 {
				fmt.Fprintln(out, "No timelines found.")
			}
			return nil
		},
	}
}
