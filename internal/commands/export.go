package commands

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/teller-dev/teller/internal/statement"
	"github.com/teller-dev/teller/internal/store"
)

func newExportCommand(configPath *string) *cobra.Command {
	var accountFlag, tokenFlag, outPath string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export an account statement as CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer app.cleanup()

			id, err := app.resolveAccount(cmd.Context(), accountFlag, tokenFlag)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if outPath != "" {
				f, err := os.Create(outPath)
				if err != nil {
					return fmt.Errorf("creating %s: %w", outPath, err)
				}
				defer f.Close()
				out = f
			}
			return runExport(cmd.Context(), app, id, out)
		},
	}

	addAccountFlags(cmd, &accountFlag, &tokenFlag)
	cmd.Flags().StringVar(&outPath, "out", "", "output file (defaults to stdout)")
	return cmd
}

func runExport(ctx context.Context, app *app, id uuid.UUID, out io.Writer) error {
	if _, err := app.accounts.Get(ctx, id); err != nil {
		return err
	}
	// A statement covers the full history, not a page.
	records, err := app.store.ListTransactions(ctx, id, store.Filter{})
	if err != nil {
		return err
	}
	return statement.Write(out, records)
}
