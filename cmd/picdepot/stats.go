package main

import (
	"net/url"
	"strconv"

	"github.com/spf13/cobra"

	"picdepot/internal/api"
	"picdepot/internal/config"
)

func newStatsCmd(cfg *config.Config) *cobra.Command {
	var owner int64

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show storage usage statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				query := url.Values{}
				if cmd.Flags().Changed("owner") {
					query.Set("owner", strconv.FormatInt(owner, 10))
				}
				resp, err := client.Stats(cmd.Context(), query)
				if err != nil {
					return err
				}
				return writeStructured(resp)
			})
		},
	}

	cmd.Flags().Int64Var(&owner, "owner", 0, "restrict object stats to one tenant")
	return cmd
}

func newInfoCmd(cfg *config.Config, structured *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show server information",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				resp, err := client.GetInfo(cmd.Context())
				if err != nil {
					return err
				}
				if *structured {
					return writeStructured(resp)
				}
				return writePlain("%s %s\n", resp.Name, resp.Version)
			})
		},
	}
}
