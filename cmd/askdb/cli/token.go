package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/askdb/askdb/internal/service"
)

func newTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage reviewer tokens",
	}

	cmd.AddCommand(newTokenIssueCmd())

	return cmd
}

func newTokenIssueCmd() *cobra.Command {
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "issue <reviewer>",
		Short: "Issue a signed token for the correction and feedback endpoints",
		Long: `Sign an HS256 token with auth.jwt_secret for the named reviewer. The token is
sent as "Authorization: Bearer <token>" to /api/v1/correct and /api/v1/feedback.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if ttl <= 0 {
				ttl = cfg.Auth.JWTExpiry
			}

			token, err := service.NewAuthService(cfg.Auth.JWTSecret).IssueReviewerToken(args[0], ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().DurationVar(&ttl, "ttl", 0, "Token lifetime (default auth.jwt_expiry)")

	return cmd
}
