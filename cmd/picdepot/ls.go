package main

import (
	"net/url"
	"strconv"

	"github.com/spf13/cobra"

	"picdepot/internal/api"
	"picdepot/internal/config"
)

func newLsCmd(cfg *config.Config, structured *bool) *cobra.Command {
	var owner int64
	var order string
	var descending bool
	var limit int
	var offset int

	cmd := &cobra.Command{
		Use:   "ls",
		Short: "List stored objects",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				query := url.Values{}
				if cmd.Flags().Changed("owner") {
					query.Set("owner", strconv.FormatInt(owner, 10))
				}
				if order != "" {
					query.Set("order", order)
				}
				if descending {
					query.Set("dir", "desc")
				}
				if limit > 0 {
					query.Set("limit", strconv.Itoa(limit))
				}
				if offset > 0 {
					query.Set("offset", strconv.Itoa(offset))
				}

				resp, err := client.ListObjects(cmd.Context(), query)
				if err != nil {
					return err
				}
				if *structured {
					return writeStructured(resp)
				}
				return writeObjectList(resp.Objects)
			})
		},
	}

	cmd.Flags().Int64Var(&owner, "owner", 0, "filter by owning tenant")
	cmd.Flags().StringVar(&order, "order", "", "sort field (created_at, size, last_accessed, access_count)")
	cmd.Flags().BoolVar(&descending, "desc", false, "sort in descending order")
	cmd.Flags().IntVar(&limit, "limit", 0, "page size")
	cmd.Flags().IntVar(&offset, "offset", 0, "page offset")
	return cmd
}
