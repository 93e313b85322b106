package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newSuspendCommand(configPath *string) *cobra.Command {
	var accountFlag string

	cmd := &cobra.Command{
		Use:   "suspend",
		Short: "Suspend an account (blocks all fund movement)",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer app.cleanup()

			id, err := uuid.Parse(accountFlag)
			if err != nil {
				return fmt.Errorf("parsing account ID %q: %w", accountFlag, err)
			}
			return runSuspend(cmd.Context(), app, id, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&accountFlag, "account", "", "account ID (required)")
	_ = cmd.MarkFlagRequired("account")
	return cmd
}

func runSuspend(ctx context.Context, app *app, id uuid.UUID, out io.Writer) error {
	if err := app.accounts.Suspend(ctx, id); err != nil {
		return err
	}
	fmt.Fprintf(out, "account %s suspended\n", id)
	return nil
}

func newReinstateCommand(configPath *string) *cobra.Command {
	var accountFlag string

	cmd := &cobra.Command{
		Use:   "reinstate",
		Short: "Return a suspended account to active",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer app.cleanup()

			id, err := uuid.Parse(accountFlag)
			if err != nil {
				return fmt.Errorf("parsing account ID %q: %w", accountFlag, err)
			}
			return runReinstate(cmd.Context(), app, id, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&accountFlag, "account", "", "account ID (required)")
	_ = cmd.MarkFlagRequired("account")
	return cmd
}

func runReinstate(ctx context.Context, app *app, id uuid.UUID, out io.Writer) error {
	if err := app.accounts.Reinstate(ctx, id); err != nil {
		return err
	}
	fmt.Fprintf(out, "account %s reinstated\n", id)
	return nil
}
