package main

import (
	"fmt"
	"time"

	"doc-splitter/pkg/auth"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func tokenCmd(e *env) *cobra.Command {
	var (
		user     string
		name     string
		duration time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a development JWT for the HTTP API",
		Long: `Mint a bearer token signed with JWT_SECRET_KEY.

Without --user a random user ID is generated.`,
		Example: `  doc-splitter token --user 4f0c7b8e-2a53-4c8e-9a4e-5b7d2f1e0c11
  doc-splitter token --ttl 1h`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := e.loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			userID := uuid.New()
			if user != "" {
				if userID, err = uuid.Parse(user); err != nil {
					return fmt.Errorf("invalid --user: %w", err)
				}
			}

			ttl := cfg.JWT.Expiration
			if duration > 0 {
				ttl = duration
			}

			token, err := auth.NewJWTManager(cfg.JWT.SecretKey, ttl).GenerateToken(userID, name)
			if err != nil {
				return err
			}

			_, err = fmt.Fprintln(e.stdout, token)
			return err
		},
	}

	cmd.Flags().StringVar(&user, "user", "", "user ID (UUID) to embed in the token")
	cmd.Flags().StringVar(&name, "name", "", "optional username claim")
	cmd.Flags().DurationVar(&duration, "ttl", 0, "token lifetime (defaults to JWT_EXPIRATION_HOURS)")

	return cmd
}
