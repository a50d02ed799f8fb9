package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"mentorhub/internal/model"
	"mentorhub/internal/service"

	"github.com/spf13/cobra"
)

var (
	tokenUserID   string
	tokenUsername string
	tokenRole     string
	tokenTTL      time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a signed access token for local testing",
	RunE: func(cmd *cobra.Command, args []string) error {
		identity := model.Identity{
			UserID:   tokenUserID,
			Username: tokenUsername,
			Role:     model.Role(tokenRole),
		}
		if identity.UserID == "" {
			return fmt.Errorf("--user is required")
		}
		if !identity.Role.Valid() {
			return fmt.Errorf("--role must be mentor or learner")
		}
		if identity.Username == "" {
			identity.Username = identity.UserID
		}

		ttl := tokenTTL
		if ttl == 0 {
			ttl = cfg.TokenTTL
		}
		resp, err := service.NewAuthService(cfg.JWTSecret, ttl).IssueToken(identity)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenUserID, "user", "", "user id")
	tokenCmd.Flags().StringVar(&tokenUsername, "name", "", "display name")
	tokenCmd.Flags().StringVar(&tokenRole, "role", string(model.RoleLearner), "mentor or learner")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 0, "token lifetime (defaults to token_ttl)")
}
