package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fived/therapists/internal/auth"
)

func NewTokenCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token <user-id>",
		Short: "Issue a bearer token for a therapist",
		Args:  cobra.ExactArgs(1),
		RunE:  runToken,
	}
	cmd.Flags().Duration("ttl", 0, "token lifetime (defaults to auth.token_ttl)")
	return cmd
}

func runToken(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.Auth.Secret == "" {
		return errors.New("auth.secret (JWT_SECRET) is required to issue tokens")
	}
	ttl, _ := cmd.Flags().GetDuration("ttl")
	if ttl == 0 {
		ttl = cfg.Auth.TokenTTL
	}

	raw, err := auth.NewTokens(cfg.Auth.Secret, cfg.Auth.Issuer, ttl).Issue(args[0])
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), raw)
	return nil
}
