// quillctl manages a quill store from the command line: backups, resets,
// sample data, payload validation and local access tokens.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/anonto42/quill/internal/repositories"
	"github.com/anonto42/quill/internal/services"
	"github.com/anonto42/quill/pkg/config"
	"github.com/anonto42/quill/pkg/kv"
	"github.com/spf13/cobra"
)

// app carries what the subcommands share. Tests fill backend and cfg
// directly; otherwise they are loaded from the environment before a command
// runs.
type app struct {
	cfg     *config.Config
	backend kv.Backend
	logger  *slog.Logger
	close   func()
}

func main() {
	a := &app{logger: slog.New(slog.NewTextHandler(os.Stderr, nil))}
	if err := newRootCmd(a).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "quillctl",
		Short:         "Manage a quill content store",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.open(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.close != nil {
				a.close()
			}
		},
	}

	rootCmd.AddCommand(exportCmd(a))
	rootCmd.AddCommand(importCmd(a))
	rootCmd.AddCommand(resetCmd(a))
	rootCmd.AddCommand(seedCmd(a))
	rootCmd.AddCommand(validateCmd(a))
	rootCmd.AddCommand(tokenCmd(a))
	return rootCmd
}

func (a *app) open(cmd *cobra.Command) error {
	if a.cfg == nil {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		a.cfg = cfg
	}
	if a.backend == nil {
		db, err := config.InitDB(cmd.Context(), a.cfg)
		if err != nil {
			return err
		}
		a.backend = db.Backend
		a.close = db.CloseDB
	}
	return nil
}

func (a *app) backup() *services.Backup {
	stores := repositories.NewStores(a.backend, repositories.WithLogger(a.logger))
	return services.NewBackup(stores, repositories.SystemClock, a.logger)
}
