package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ajitpratap0/simpleevents/internal/models"
	"github.com/ajitpratap0/simpleevents/internal/transfer"
)

func exportCmd() *cobra.Command {
	var (
		format     string
		output     string
		timelineID string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export timelines to JSON, JSONL, or YAML, or one timeline's events to CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			f, err := transfer.ParseFormat(format)
			if err != nil {
				return fmt.Errorf("export: %w", err)
			}
			if f == transfer.FormatCSV && timelineID == "" {
				return fmt.Errorf("export: csv needs --timeline")
			}

			st, err := newStore(ctx, logger)
			if err != nil {
				return fmt.Errorf("export: opening store: %w", err)
			}
			defer func() { _ = st.Close() }()
			svc := newService(st, logger)

			var tls []models.Timeline
			if timelineID != "" {
				tl, getErr := svc.GetTimeline(ctx, timelineID)
				if getErr != nil {
					return fmt.Errorf("export: %w", getErr)
				}
				tls = []models.Timeline{*tl}
			} else {
				tls, err = svc.ListTimelines(ctx)
				if err != nil {
					return fmt.Errorf("export: listing timelines: %w", err)
				}
			}

			var w io.Writer = cmd.OutOrStdout()
			if output != "" && output != "-" {
				file, createErr := os.Create(output)
				if createErr != nil {
					return fmt.Errorf("export: creating output file: %w", createErr)
				}
				defer func() { _ = file.Close() }()
				w = file
			}

			if f == transfer.FormatCSV {
				err = transfer.WriteEventsCSV(w, tls[0])
			} else {
				err = transfer.Encode(w, f, tls)
			}
			if err != nil {
				return fmt.Errorf("export: %w", err)
			}

			if output != "" && output != "-" {
				fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d timelines to %s\n", len(tls), output)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "json", "output format: json, jsonl, yaml, or csv")
	cmd.Flags().StringVarP(&output, "output", "o", "-", "output file path (- for stdout)")
	cmd.Flags().StringVar(&timelineID, "timeline", "", "export only this timeline (required for csv)")
	return cmd
}
