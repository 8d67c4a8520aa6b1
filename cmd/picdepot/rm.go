package main

import (
	"github.com/spf13/cobra"

	"picdepot/internal/api"
	"picdepot/internal/config"
)

func newRmCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <hash> [<hash>...]",
		Short: "Delete objects and their cached variants",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				for _, hash := range args {
					if err := client.DeleteObject(cmd.Context(), hash); err != nil {
						return err
					}
					if err := writePlain("deleted %s\n", hash); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}
