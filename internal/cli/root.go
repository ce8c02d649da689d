// Package cli implements progressctl, the operator tool for the progress
// database.
package cli

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"slices"

	"github.com/spf13/cobra"

	"github.com/bloks-dev/backend/internal/catalog"
	"github.com/bloks-dev/backend/internal/config"
	"github.com/bloks-dev/backend/internal/database"
	"github.com/bloks-dev/backend/internal/gamification"
	"github.com/bloks-dev/backend/internal/logging"
	"github.com/bloks-dev/backend/internal/submissions"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
}

var ValidFormats = []string{"text", "json"}

func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "progressctl",
		Short: "Operate the bloks progress database",
		Long:  "Run migrations, seed the badge and track catalog, and repair streaks left behind by failed updates.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
		SilenceUsage: true,
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewSeedCommand(opts))
	cmd.AddCommand(NewReconcileCommand(opts))
	cmd.AddCommand(NewWeekCommand(opts))
	cmd.AddCommand(NewTokenCommand(opts))

	return cmd
}

// output writes data as indented JSON, or with text when the format is text.
func output(opts *RootOptions, w io.Writer, data any, text func(io.Writer)) error {
	if opts.Format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	}
	text(w)
	return nil
}

// services wires the stores the way the server does.
type services struct {
	db           *sql.DB
	gamification *gamification.Service
	submissions  *submissions.Service
}

func openServices(ctx context.Context, opts *RootOptions) (*services, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	level := "warn"
	if opts.Verbose {
		level = "debug"
	}
	logger := logging.NewLogger("progressctl", level)

	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		return nil, err
	}
	db, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	gamStore := gamification.NewStore(db)
	gam, err := gamification.NewService(gamStore, gamStore, cat, gamification.WithLogger(logger))
	if err != nil {
		db.Close()
		return nil, err
	}
	sub := submissions.NewService(submissions.NewStore(db), gam, gam, cat, submissions.WithLogger(logger))
	return &services{db: db, gamification: gam, submissions: sub}, nil
}

func (s *services) Close() error {
	return s.db.Close()
}
