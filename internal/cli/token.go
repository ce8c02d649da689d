package cli

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/bloks-dev/backend/internal/auth"
	"github.com/bloks-dev/backend/internal/config"
)

func NewTokenCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		user string
		ttl  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Sign a development token for AUTH_MODE=hmac",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if auth.Mode(cfg.AuthMode) != auth.ModeHMAC {
				return errors.New("token signing needs AUTH_MODE=hmac")
			}

			userID := uuid.New()
			if user != "" {
				if userID, err = uuid.Parse(user); err != nil {
					return fmt.Errorf("--user: %w", err)
				}
			}

			token, err := auth.IssueToken(cfg.Auth(), userID, ttl)
			if err != nil {
				return err
			}
			res := map[string]string{"user_id": userID.String(), "token": token}
			return output(rootOpts, cmd.OutOrStdout(), res, func(w io.Writer) {
				fmt.Fprintln(w, token)
			})
		},
	}

	cmd.Flags().StringVar(&user, "user", "", "user id (default random)")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}
