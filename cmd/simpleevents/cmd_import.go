package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ajitpratap0/simpleevents/internal/models"
	"github.com/ajitpratap0/simpleevents/internal/transfer"
)

func importCmd() *cobra.Command {
	var (
		filePath string
		format   string
		keepIDs  bool
	)

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import timelines from a JSON, JSONL, or YAML file",
		Long: `Import timelines from a JSON array (or single object), JSON Lines, or YAML file.

By default every document is created as a new timeline with a fresh id; seeded
events keep their ids. With --keep-ids each document is restored under its own id,
replacing any timeline already stored there.

Use - as the file path to read from stdin.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			f, err := transfer.ParseFormat(format)
			if err != nil {
				return fmt.Errorf("import: %w", err)
			}

			var r io.Reader = cmd.InOrStdin()
			if filePath != "" && filePath != "-" {
				file, openErr := os.Open(filePath)
				if openErr != nil {
					return fmt.Errorf("import: opening file: %w", openErr)
				}
				defer func() { _ = file.Close() }()
				r = file
			}

			tls, err := transfer.Decode(r, f)
			if err != nil {
				return fmt.Errorf("import: %w", err)
			}

			st, err := newStore(ctx, logger)
			if err != nil {
				return fmt.Errorf("import: opening store: %w", err)
			}
			defer func() { _ = st.Close() }()
			svc := newService(st, logger)

			imported := 0
			for i := range tls {
				var (
					tl     *models.Timeline
					putErr error
				)
				if keepIDs {
					tl, putErr = svc.RestoreTimeline(ctx, tls[i])
				} else {
					tl, putErr = svc.CreateTimeline(ctx, tls[i])
				}
				if putErr != nil {
					logger.Error("import: skipping timeline", "index", i, "name", tls[i].Name, "error", putErr)
					continue
				}
				imported++
				logger.Debug("import: stored timeline", "timeline_id", tl.ID, "events", len(tl.Events))
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d/%d timelines\n", imported, len(tls))
			if imported < len(tls) {
				return fmt.Errorf("import: %d timelines failed", len(tls)-imported)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&filePath, "file", "f", "-", "input file path (- for stdin)")
	cmd.Flags().StringVar(&format, "format", "json", "input format: json, jsonl, or yaml")
	cmd.Flags().BoolVar(&keepIDs, "keep-ids", false, "restore documents under their own ids, overwriting")
	return cmd
}
