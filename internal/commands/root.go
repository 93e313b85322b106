package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/teller-dev/teller/internal/buildinfo"
)

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:     "teller",
		Short:   "Banking ledger with an atomic, replayable transaction log",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", buildinfo.Version, buildinfo.Commit, buildinfo.Date),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "teller.yaml", "path to teller.yaml")

	rootCmd.AddCommand(newInitCommand())
	rootCmd.AddCommand(newOpenCommand(&configPath))
	rootCmd.AddCommand(newDepositCommand(&configPath))
	rootCmd.AddCommand(newWithdrawCommand(&configPath))
	rootCmd.AddCommand(newTransferCommand(&configPath))
	rootCmd.AddCommand(newBalanceCommand(&configPath))
	rootCmd.AddCommand(newHistoryCommand(&configPath))
	rootCmd.AddCommand(newSuspendCommand(&configPath))
	rootCmd.AddCommand(newReinstateCommand(&configPath))
	rootCmd.AddCommand(newVerifyCommand(&configPath))
	rootCmd.AddCommand(newExportCommand(&configPath))

	return rootCmd
}
