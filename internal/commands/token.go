package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"gitlab.com/yelinaung/expense-approvals/internal/auth"
)

func newTokenCommand() *cobra.Command {
	var userID int64

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for a user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if userID <= 0 {
				return fmt.Errorf("--user-id must be positive")
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			tokens := auth.NewTokenService(cfg.JWTSecret, cfg.JWTIssuer, cfg.TokenTTL)
			token, expires, err := tokens.Issue(userID)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s\nexpires %s\n", token, expires.UTC().Format(time.RFC3339))
			return err
		},
	}

	cmd.Flags().Int64Var(&userID, "user-id", 0, "id of the user the token authenticates (required)")
	_ = cmd.MarkFlagRequired("user-id")

	return cmd
}
