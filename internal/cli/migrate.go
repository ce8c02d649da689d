package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/bloks-dev/backend/internal/config"
	"github.com/bloks-dev/backend/internal/database"
)

type migrateResult struct {
	Action  string `json:"action"`
	Version uint   `json:"version"`
	Dirty   bool   `json:"dirty"`
}

func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(rootOpts, cmd, "up", 0)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "down <steps>",
		Short: "Revert the given number of migrations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			steps, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("steps must be an integer: %w", err)
			}
			return runMigrate(rootOpts, cmd, "down", steps)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the applied schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(rootOpts, cmd, "version", 0)
		},
	})

	return cmd
}

func runMigrate(opts *RootOptions, cmd *cobra.Command, action string, steps int) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	switch action {
	case "up":
		err = database.Migrate(cfg.DatabaseURL)
	case "down":
		err = database.Rollback(cfg.DatabaseURL, steps)
	}
	if err != nil {
		return err
	}

	version, dirty, err := database.Version(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	res := migrateResult{Action: action, Version: version, Dirty: dirty}
	return output(opts, cmd.OutOrStdout(), res, func(w io.Writer) {
		fmt.Fprintf(w, "schema version %d", version)
		if dirty {
			fmt.Fprint(w, " (dirty)")
		}
		fmt.Fprintln(w)
	})
}
