package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func getCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Print one timeline as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			st, err := newStore(ctx, logger)
			if err != nil {
				return fmt.Errorf("get: opening store: %w", err)
			}
			defer func() { _ = st.Close() }()

			tl, err := newService(st, logger).GetTimeline(ctx, args[0])
			if err != nil {
				return fmt.Errorf("get: %w", err)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(tl)
		},
	}
}
