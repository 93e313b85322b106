package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/teller-dev/teller/internal/audit"
)

func newVerifyCommand(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Replay every account's transaction log and check it against the stored balance",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer app.cleanup()
			return runVerify(cmd.Context(), app, cmd.OutOrStdout())
		},
	}
	return cmd
}

func runVerify(ctx context.Context, app *app, out io.Writer) error {
	violations, err := audit.Verify(ctx, app.store)
	if err != nil {
		return err
	}
	if len(violations) == 0 {
		fmt.Fprintln(out, "ledger verified: every account replays to its stored balance")
		return nil
	}
	for _, v := range violations {
		fmt.Fprintln(out, v.Error())
	}
	return fmt.Errorf("ledger verification failed with %d violation(s)", len(violations))
}
