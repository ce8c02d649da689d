package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/bloks-dev/backend/internal/gamification"
)

type weekResult struct {
	At       string `json:"at"`
	Week     string `json:"week"`
	Previous string `json:"previous"`
}

func NewWeekCommand(rootOpts *RootOptions) *cobra.Command {
	var at string

	cmd := &cobra.Command{
		Use:   "week",
		Short: "Print the week key used to bucket weekly progress",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			t := time.Now().UTC()
			if at != "" {
				parsed, err := time.Parse("2006-01-02", at)
				if err != nil {
					return fmt.Errorf("--at must be YYYY-MM-DD: %w", err)
				}
				t = parsed
			}

			week := gamification.WeekStartOf(t)
			res := weekResult{At: t.Format("2006-01-02"), Week: week.String(), Previous: week.Previous().String()}
			return output(rootOpts, cmd.OutOrStdout(), res, func(w io.Writer) {
				fmt.Fprintf(w, "%s is in week %s (previous %s)\n", res.At, res.Week, res.Previous)
			})
		},
	}

	cmd.Flags().StringVar(&at, "at", "", "date to resolve (YYYY-MM-DD, default today UTC)")
	return cmd
}
