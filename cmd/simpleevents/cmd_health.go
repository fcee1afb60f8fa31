package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func healthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the storage backend is reachable and writable",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			// newStore runs EnsureReady, which probes writability.
			st, err := newStore(ctx, logger)
			if err != nil {
				fmt.Fprintf(out, "Storage (%s): FAIL (%v)\n", cfg.Storage.Backend, err)
				return fmt.Errorf("one or more health checks failed")
			}
			defer func() { _ = st.Close() }()
			fmt.Fprintf(out, "Storage (%s): OK\n", cfg.Storage.Backend)

			if _, err := st.List(ctx); err != nil {
				fmt.Fprintf(out, "Documents: FAIL (%v)\n", err)
				return fmt.Errorf("one or more health checks failed")
			}
			fmt.Fprintln(out, "Documents: OK")
			return nil
		},
	}
}
