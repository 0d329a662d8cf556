package admin

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/shopple/internal/auth"
)

func TokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage caller tokens",
		Long:  "Issue caller tokens signed with SHOPPLE_AUTH_SECRET",
	}

	cmd.AddCommand(TokenIssueCmd())

	return cmd
}

func TokenIssueCmd() *cobra.Command {
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "issue <user-id>",
		Short: "Issue a caller token",
		Long:  "Issue a bearer token identifying the given user. The token is shown once.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputFormat, _ := cmd.Flags().GetString("output")

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			tokens, err := auth.NewTokens(cfg.AuthSecret)
			if err != nil {
				return err
			}
			return runTokenIssue(cmd.OutOrStdout(), tokens, args[0], ttl, outputFormat)
		},
	}

	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "Token lifetime")
	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")

	return cmd
}

func runTokenIssue(out io.Writer, tokens *auth.Tokens, uid string, ttl time.Duration, outputFormat string) error {
	if ttl <= 0 {
		return fmt.Errorf("ttl must be positive, got %s", ttl)
	}
	token, err := tokens.Issue(uid, ttl)
	if err != nil {
		return fmt.Errorf("failed to issue token: %w", err)
	}

	if outputFormat == "json" {
		return writeJSON(out, map[string]any{
			"user_id":    uid,
			"token":      token,
			"expires_in": ttl.String(),
		})
	}
	fmt.Fprintf(out, "Token for %s (valid %s):\n%s\n", uid, ttl, token)
	return nil
}
