package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/teller-dev/teller/internal/money"
)

func newBalanceCommand(configPath *string) *cobra.Command {
	var accountFlag, tokenFlag string

	cmd := &cobra.Command{
		Use:   "balance",
		Short: "Show an account's balance",
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
			return runBalance(cmd.Context(), app, id, cmd.OutOrStdout())
		},
	}

	addAccountFlags(cmd, &accountFlag, &tokenFlag)
	return cmd
}

func runBalance(ctx context.Context, app *app, id uuid.UUID, out io.Writer) error {
	balance, err := app.engine.GetBalance(ctx, id)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s\n", money.Format(balance))
	return nil
}
