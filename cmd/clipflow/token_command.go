package main

import (
	"fmt"

	"github.com/amankumarsingh77/clipflow/pkg/utils"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// newTokenCommand mints a development token; production tokens come from the identity provider.
func newTokenCommand(ctx *commandContext) *cobra.Command {
	var userFlag, tierFlag string
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Sign an access token for local testing",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if _, ok := cfg.Tiers[tierFlag]; !ok {
				return fmt.Errorf("unknown tier %q", tierFlag)
			}
			userID := uuid.New()
			if userFlag != "" {
				if userID, err = uuid.Parse(userFlag); err != nil {
					return fmt.Errorf("invalid --user: %w", err)
				}
			}
			token, err := utils.GenerateJWTToken(userID, tierFlag, cfg.Server.JwtSecretKey)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&userFlag, "user", "", "User id (random when empty)")
	cmd.Flags().StringVar(&tierFlag, "tier", "free", "Tier name from the config")
	return cmd
}
