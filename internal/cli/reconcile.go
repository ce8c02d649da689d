package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

func NewReconcileCommand(rootOpts *RootOptions) *cobra.Command {
	var batch int

	cmd := &cobra.Command{
		Use:   "reconcile-streaks",
		Short: "Apply streak updates that never landed",
		Long: `Find qualified weeks whose streak update did not complete and replay
them, oldest first. Safe to run while the server is up.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, err := openServices(ctx, rootOpts)
			if err != nil {
				return err
			}
			defer svc.Close()

			report, err := svc.gamification.ReconcileStreaks(ctx, batch)
			if err != nil {
				return err
			}
			return output(rootOpts, cmd.OutOrStdout(), report, func(w io.Writer) {
				fmt.Fprintf(w, "scanned %d weeks, applied %d, failed %d\n",
					report.Scanned, report.Applied, report.Failed)
			})
		},
	}

	cmd.Flags().IntVarP(&batch, "batch", "b", 500, "maximum weeks to process")
	return cmd
}
