package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ajitpratap0/simpleevents/internal/config"
	"github.com/ajitpratap0/simpleevents/internal/store"
	"github.com/ajitpratap0/simpleevents/internal/timeline"
)

var cfg *config.Config

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "simpleevents",
		Short: "simpleevents: timelines of typed, colored events",
		Long:  "simpleevents stores timelines as whole documents and keeps their events and event types consistent.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			return nil
		},
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		serveCmd(),
		mcpCmd(),
		listCmd(),
		getCmd(),
		exportCmd(),
		importCmd(),
		healthCmd(),
		statsCmd(),
	)
	return rootCmd
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if cfg != nil && cfg.Logging.Level == "debug" {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg != nil && cfg.Logging.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// newStore opens the configured backend and makes sure it is ready for writes.
func newStore(ctx context.Context, logger *slog.Logger) (store.Store, error) {
	var st store.Store
	switch cfg.Storage.Backend {
	case config.BackendSQLite:
		sq, err := store.OpenSQLite(cfg.Storage.SQLitePath, logger)
		if err != nil {
			return nil, err
		}
		st = sq
	default:
		st = store.NewFileStore(cfg.Storage.DataDir, cfg.Storage.ListConcurrency, logger)
	}
	if err := st.EnsureReady(ctx); err != nil {
		_ = st.Close()
		return nil, err
	}
	return st, nil
}

func newService(st store.Store, logger *slog.Logger) *timeline.Service {
	return timeline.NewService(st, logger)
}

func truncate(s string, maxLen int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	runes := []rune(s)
	if len(runes) > maxLen {
		return string(runes[:maxLen]) + "..."
	}
	return s
}
