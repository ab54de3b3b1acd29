/*
Copyright © 2025 tieubaoca
*/
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tieubaoca/policy-assistant/utils"
)

// tokenCmd mints an identity token for local testing of the optional
// Authorization header.
var tokenCmd = &cobra.Command{
	Use:   "token [email]",
	Short: "Mint a signed identity token for an email",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadRuntime()
		if err != nil {
			return err
		}
		ttl, _ := cmd.Flags().GetDuration("ttl")
		if ttl <= 0 {
			ttl = cfg.Auth.TokenTTL
		}
		token, err := utils.GenerateIdentityToken(cfg.Auth.JWTSecret, args[0], ttl)
		if err != nil {
			return fmt.Errorf("sign token: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tokenCmd)
	tokenCmd.Flags().Duration("ttl", 0, "token lifetime (defaults to auth.token_ttl)")
}
