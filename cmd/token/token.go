// Package token provides a command that issues API bearer tokens signed
// with the configured secret.
package token

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonesrussell/jobsweep/cmd/common"
	"github.com/jonesrussell/jobsweep/internal/api"
	"github.com/jonesrussell/jobsweep/internal/bootstrap"
)

const defaultTTL = 24 * time.Hour

// Command creates the token command.
func Command() *cobra.Command {
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "token <user>",
		Short: "Issue a bearer token for the API",
		Long: `Issues an HS256 token whose subject is the given user. The subject
selects the user's event channel and owns the schedules they create.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := common.Deps()
			if err != nil {
				return err
			}
			auth := deps.Config.Auth
			if auth.JWTSecret == "" {
				return bootstrap.ErrMissingSecret
			}

			signed, err := api.IssueToken(auth.JWTSecret, auth.Issuer, args[0], ttl)
			if err != nil {
				return fmt.Errorf("failed to issue token: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), signed)
			return nil
		},
	}

	cmd.Flags().DurationVar(&ttl, "ttl", defaultTTL, "token lifetime")
	return cmd
}
