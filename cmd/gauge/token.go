package main

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/phrazzld/gauge/internal/service/auth"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Sign a bearer token for a user",
	Long: "Sign a bearer token with the configured secret. Learner tokens are normally " +
		"issued by the host application; this command is meant for operators and local testing.",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		rawUser, _ := cmd.Flags().GetString("user")
		userID, err := uuid.Parse(rawUser)
		if err != nil {
			return fmt.Errorf("invalid --user %q: %w", rawUser, err)
		}
		role, _ := cmd.Flags().GetString("role")
		ttl, _ := cmd.Flags().GetDuration("ttl")

		signer, err := auth.NewHMACValidator(cfg.Auth)
		if err != nil {
			return err
		}
		token, err := signer.SignToken(cmd.Context(), userID, role, ttl)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
		return err
	},
}

func init() {
	tokenCmd.Flags().String("user", "", "User ID the token is issued to")
	tokenCmd.Flags().String("role", "", "Role claim, e.g. admin")
	tokenCmd.Flags().Duration("ttl", time.Hour, "Token lifetime")
	_ = tokenCmd.MarkFlagRequired("user")
}
