package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Write the badge and track catalog to the database",
		Long: `Upsert every badge and track from the catalog by name. Existing rows
are updated in place, so earned badges keep their references.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, err := openServices(ctx, rootOpts)
			if err != nil {
				return err
			}
			defer svc.Close()

			if err := svc.gamification.SeedBadges(ctx); err != nil {
				return err
			}
			if err := svc.submissions.SeedTracks(ctx); err != nil {
				return err
			}

			badges := len(svc.gamification.CatalogBadges())
			res := map[string]int{"badges": badges}
			return output(rootOpts, cmd.OutOrStdout(), res, func(w io.Writer) {
				fmt.Fprintf(w, "seeded %d badges and the track catalog\n", badges)
			})
		},
	}
}
