package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"picdepot/internal/api"
	"picdepot/internal/config"
)

func newQuotaCmd(cfg *config.Config, structured *bool) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quota",
		Short: "Manage tenant storage quotas",
	}

	cmd.AddCommand(
		newQuotaLsCmd(cfg, structured),
		newQuotaShowCmd(cfg, structured),
		newQuotaSetCmd(cfg, structured),
		newQuotaRmCmd(cfg),
	)
	return cmd
}

func parseTenantArg(arg string) (int64, error) {
	tenant, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || tenant <= 0 {
		return 0, fmt.Errorf("tenant must be a positive integer, got %q", arg)
	}
	return tenant, nil
}

func newQuotaLsCmd(cfg *config.Config, structured *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "ls",
		Short: "List quota accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				resp, err := client.ListQuotas(cmd.Context())
				if err != nil {
					return err
				}
				if *structured {
					return writeStructured(resp)
				}
				for _, quota := range resp {
					if err := writeQuotaDetail(quota); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}

func newQuotaShowCmd(cfg *config.Config, structured *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "show <tenant>",
		Short: "Show one tenant's quota account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tenant, err := parseTenantArg(args[0])
			if err != nil {
				return err
			}
			return withClient(cfg, func(client *api.Client) error {
				resp, err := client.GetQuota(cmd.Context(), tenant)
				if err != nil {
					return err
				}
				if *structured {
					return writeStructured(resp)
				}
				return writeQuotaDetail(resp)
			})
		},
	}
}

func newQuotaSetCmd(cfg *config.Config, structured *bool) *cobra.Command {
	var limit int64
	var unlimited bool

	cmd := &cobra.Command{
		Use:   "set <tenant>",
		Short: "Set or clear a tenant's byte limit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tenant, err := parseTenantArg(args[0])
			if err != nil {
				return err
			}

			var req api.QuotaSetRequest
			switch {
			case unlimited:
			case cmd.Flags().Changed("limit"):
				if limit < 0 {
					return fmt.Errorf("--limit must not be negative")
				}
				req.QuotaLimit = &limit
			default:
				return fmt.Errorf("either --limit or --unlimited is required")
			}

			return withClient(cfg, func(client *api.Client) error {
				resp, err := client.SetQuota(cmd.Context(), tenant, req)
				if err != nil {
					return err
				}
				if *structured {
					return writeStructured(resp)
				}
				return writeQuotaDetail(resp)
			})
		},
	}

	cmd.Flags().Int64Var(&limit, "limit", 0, "byte limit for the tenant")
	cmd.Flags().BoolVar(&unlimited, "unlimited", false, "remove the tenant's byte limit")
	return cmd
}

func newQuotaRmCmd(cfg *config.Config) *cobra.Command {
	var purge bool

	cmd := &cobra.Command{
		Use:   "rm <tenant>",
		Short: "Retire a tenant's quota account",
		Long: "Retire a tenant's quota account. This deletes every object the\n" +
			"tenant still owns, so --purge is required as confirmation.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tenant, err := parseTenantArg(args[0])
			if err != nil {
				return err
			}
			if !purge {
				return fmt.Errorf("refusing to retire tenant %d without --purge", tenant)
			}
			return withClient(cfg, func(client *api.Client) error {
				resp, err := client.DeleteQuota(cmd.Context(), tenant)
				if err != nil {
					return err
				}
				return writePlain("retired tenant %d (%d objects deleted)\n", tenant, resp.ObjectsDeleted)
			})
		},
	}

	cmd.Flags().BoolVar(&purge, "purge", false, "delete the tenant's objects before retiring the account")
	return cmd
}
