package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/vibast-solutions/ms-go-apikeys/app/service"
	"github.com/vibast-solutions/ms-go-apikeys/config"
)

// Session tokens normally come from the dashboard login flow. This command
// signs one with the shared secret for local testing of the owner routes.
var sessionTokenCmd = &cobra.Command{
	Use:   "session-token",
	Short: "Sign an owner session token for local testing",
	RunE: func(cmd *cobra.Command, _ []string) error {
		userID, _ := cmd.Flags().GetUint64("user")
		if userID == 0 {
			return errors.New("--user is required")
		}
		email, _ := cmd.Flags().GetString("email")
		ttlMinutes, _ := cmd.Flags().GetInt("ttl")

		cfg, err := config.LoadJWT()
		if err != nil {
			return err
		}

		sessions := service.NewSessionService(cfg.Secret, cfg.AccessTokenTTL)
		token, err := sessions.IssueAccessToken(userID, email, time.Duration(ttlMinutes)*time.Minute)
		if err != nil {
			return err
		}

		fmt.Println(token)
		return nil
	},
}

func init() {
	sessionTokenCmd.Flags().Uint64("user", 0, "user id to put in the token")
	sessionTokenCmd.Flags().String("email", "", "email claim")
	sessionTokenCmd.Flags().Int("ttl", 0, "lifetime in minutes (defaults to JWT_ACCESS_TOKEN_TTL)")
	rootCmd.AddCommand(sessionTokenCmd)
}
