package main

import (
	"github.com/spf13/cobra"

	"picdepot/internal/api"
	"picdepot/internal/config"
)

func newShowCmd(cfg *config.Config, structured *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "show <hash>",
		Short: "Show object metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				resp, err := client.GetObject(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if *structured {
					return writeStructured(resp)
				}
				return writeObjectDetail(resp)
			})
		},
	}
}
