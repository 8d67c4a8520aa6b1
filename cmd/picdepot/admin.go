package main

import (
	"github.com/spf13/cobra"

	"picdepot/internal/auth"
)

func newAdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Administrative helpers",
	}

	cmd.AddCommand(newAdminTokenCmd())
	return cmd
}

func newAdminTokenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "token",
		Short: "Generate an admin token and its bcrypt hash",
		Long: "Generate a random admin token. Store the hash in the server config\n" +
			"(admin_token_hash) and pass the token itself via PICDEPOT_ADMIN_TOKEN\n" +
			"when calling admin commands.",
		RunE: func(cmd *cobra.Command, args []string) error {
			token, hash, err := auth.GenerateAdminToken()
			if err != nil {
				return err
			}
			if err := writePlain("token: %s\n", token); err != nil {
				return err
			}
			if err := writePlain("hash:  %s\n", hash); err != nil {
				return err
			}
			return writePlain("\nSave the hash with: picdepot config set admin_token_hash '%s'\n", hash)
		},
	}
}
