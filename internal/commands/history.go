package commands

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/teller-dev/teller/internal/model"
	"github.com/teller-dev/teller/internal/money"
	"github.com/teller-dev/teller/internal/store"
)

func newHistoryCommand(configPath *string) *cobra.Command {
	var accountFlag, tokenFlag, typeFlag string
	var limit, offset int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show an account's transaction history, newest first",
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
			f := store.Filter{
				Type:   model.TransactionType(typeFlag),
				Limit:  limit,
				Offset: offset,
			}
			return runHistory(cmd.Context(), app, id, f, cmd.OutOrStdout())
		},
	}

	addAccountFlags(cmd, &accountFlag, &tokenFlag)
	cmd.Flags().StringVar(&typeFlag, "type", "", "filter by record type (deposit, withdrawal, transfer-out, transfer-in)")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum records to show")
	cmd.Flags().IntVar(&offset, "offset", 0, "records to skip")

	return cmd
}

func runHistory(ctx context.Context, app *app, id uuid.UUID, f store.Filter, out io.Writer) error {
	records, err := app.engine.ListTransactions(ctx, id, f)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tTYPE\tAMOUNT\tBALANCE\tCOUNTERPARTY\tDESCRIPTION")
	for _, rec := range records {
		counterparty := ""
		if rec.Counterparty != uuid.Nil {
			counterparty = rec.Counterparty.String()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			rec.CreatedAt.Format(time.RFC3339),
			rec.Type,
			money.Format(rec.Signed()),
			money.Format(rec.BalanceAfter),
			counterparty,
			rec.Description)
	}
	return tw.Flush()
}
