package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rl1809/harvest-market/internal/auth"
	"github.com/rl1809/harvest-market/internal/core/domain"
)

var tokenOpts struct {
	role string
	id   string
	ttl  time.Duration
}

// tokenCmd issues development bearer tokens signed with JWT_SECRET.
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a bearer token for a farmer or grocer",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		who, ok := domain.NewIdentity(domain.Role(tokenOpts.role), tokenOpts.id)
		if !ok {
			return fmt.Errorf("--role must be farmer or grocer and --id must be set")
		}

		token, err := auth.NewTokens(cfg.JWTSecret).Issue(who, tokenOpts.ttl)
		if err != nil {
			return err
		}
		fmt.Println(token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenOpts.role, "role", "", "farmer or grocer")
	tokenCmd.Flags().StringVar(&tokenOpts.id, "id", "", "profile id")
	tokenCmd.Flags().DurationVar(&tokenOpts.ttl, "ttl", 24*time.Hour, "token lifetime")
}
