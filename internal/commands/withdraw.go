package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/teller-dev/teller/internal/money"
)

func newWithdrawCommand(configPath *string) *cobra.Command {
	var accountFlag, tokenFlag, amountFlag, description string

	cmd := &cobra.Command{
		Use:   "withdraw",
		Short: "Withdraw funds from an account",
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
			amount, err := decimal.NewFromString(amountFlag)
			if err != nil {
				return fmt.Errorf("parsing amount %q: %w", amountFlag, err)
			}
			return runWithdraw(cmd.Context(), app, id, amount, description, cmd.OutOrStdout())
		},
	}

	addAccountFlags(cmd, &accountFlag, &tokenFlag)
	cmd.Flags().StringVar(&amountFlag, "amount", "", "amount to withdraw (required)")
	_ = cmd.MarkFlagRequired("amount")
	cmd.Flags().StringVar(&description, "description", "", "free-form description")

	return cmd
}

func runWithdraw(ctx context.Context, app *app, id uuid.UUID, amount decimal.Decimal, description string, out io.Writer) error {
	balance, err := app.engine.Withdraw(ctx, id, amount, description)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "withdrew %s; new balance %s\n", money.Format(amount), money.Format(balance))
	return nil
}
