package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/teller-dev/teller/internal/account"
	"github.com/teller-dev/teller/internal/money"
)

func newOpenCommand(configPath *string) *cobra.Command {
	var owner string
	var deposit string

	cmd := &cobra.Command{
		Use:   "open",
		Short: "Open an account with an initial deposit",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer app.cleanup()

			amount, err := decimal.NewFromString(deposit)
			if err != nil {
				return fmt.Errorf("parsing deposit %q: %w", deposit, err)
			}
			return runOpen(cmd.Context(), app, owner, amount, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&owner, "owner", "", "owner identity (required)")
	_ = cmd.MarkFlagRequired("owner")
	cmd.Flags().StringVar(&deposit, "deposit", "", "initial deposit amount (required)")
	_ = cmd.MarkFlagRequired("deposit")

	return cmd
}

func runOpen(ctx context.Context, app *app, owner string, deposit decimal.Decimal, out io.Writer) error {
	acct, err := app.accounts.Open(ctx, account.OpenParams{
		OwnerID:        owner,
		InitialDeposit: deposit,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "opened account %s for %s with balance %s\n",
		acct.ID, acct.OwnerID, money.Format(acct.Balance))
	return nil
}
