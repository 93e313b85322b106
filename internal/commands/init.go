package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/teller-dev/teller/internal/config"
)

func newInitCommand() *cobra.Command {
	var backend string
	var dsn string

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Write a default teller.yaml",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}
			absDir, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}
			return runInit(absDir, backend, dsn)
		},
	}

	cmd.Flags().StringVar(&backend, "backend", config.BackendPostgres, "storage backend (postgres or memory)")
	cmd.Flags().StringVar(&dsn, "dsn", "", "postgres connection string")

	return cmd
}

func runInit(dir, backend, dsn string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}

	cfg := config.Default()
	cfg.Storage.Backend = backend
	if dsn != "" {
		cfg.Storage.DSN = dsn
	}
	if backend == config.BackendMemory {
		cfg.Storage.DSN = ""
		cfg.Storage.Migrations = ""
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	path := filepath.Join(dir, "teller.yaml")
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}
	if err := config.Save(path, cfg); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}
