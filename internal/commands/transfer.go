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

func newTransferCommand(configPath *string) *cobra.Command {
	var fromFlag, tokenFlag, toFlag, amountFlag, description string

	cmd := &cobra.Command{
		Use:   "transfer",
		Short: "Transfer funds between accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer app.cleanup()

			fromID, err := app.resolveAccount(cmd.Context(), fromFlag, tokenFlag)
			if err != nil {
				return err
			}
			toID, err := uuid.Parse(toFlag)
			if err != nil {
				return fmt.Errorf("parsing destination account %q: %w", toFlag, err)
			}
			amount, err := decimal.NewFromString(amountFlag)
			if err != nil {
				return fmt.Errorf("parsing amount %q: %w", amountFlag, err)
			}
			return runTransfer(cmd.Context(), app, fromID, toID, amount, description, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&fromFlag, "from", "", "sender account ID")
	cmd.Flags().StringVar(&tokenFlag, "token", "", "sender credential resolved through the identity gate")
	cmd.Flags().StringVar(&toFlag, "to", "", "destination account ID (required)")
	_ = cmd.MarkFlagRequired("to")
	cmd.Flags().StringVar(&amountFlag, "amount", "", "amount to transfer (required)")
	_ = cmd.MarkFlagRequired("amount")
	cmd.Flags().StringVar(&description, "description", "", "free-form description")

	return cmd
}

func runTransfer(ctx context.Context, app *app, fromID, toID uuid.UUID, amount decimal.Decimal, description string, out io.Writer) error {
	res, err := app.engine.Transfer(ctx, fromID, toID, amount, description)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "transferred %s to %s; sender balance %s\n",
		money.Format(amount), res.Recipient, money.Format(res.SenderBalance))
	return nil
}
