package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"picdepot/internal/api"
	"picdepot/internal/config"
)

func newCacheCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and maintain the derived-artifact cache",
	}

	cmd.AddCommand(
		newCacheStatsCmd(cfg),
		newCacheDecayCmd(cfg),
		newCacheCleanupCmd(cfg),
		newCacheClearCmd(cfg),
	)
	return cmd
}

func newCacheStatsCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show cache index footprint",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				resp, err := client.CacheStats(cmd.Context())
				if err != nil {
					return err
				}
				return writeStructured(resp)
			})
		},
	}
}

func newCacheDecayCmd(cfg *config.Config) *cobra.Command {
	var factor float64

	cmd := &cobra.Command{
		Use:   "decay",
		Short: "Multiply every heat score by a decay factor",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				resp, err := client.CacheDecay(cmd.Context(), api.DecayRequest{Factor: factor})
				if err != nil {
					return err
				}
				return writePlain("decayed %d entries by %g\n", resp.EntriesTouched, resp.Factor)
			})
		},
	}

	cmd.Flags().Float64Var(&factor, "factor", 0, "decay factor in (0, 1]; 0 selects the server default")
	return cmd
}

func newCacheCleanupCmd(cfg *config.Config) *cobra.Command {
	var maxAge time.Duration
	var maxSize int64

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Evict cache entries by age or size bound",
		Long: "Evict cache entries older than --max-age, then evict the coldest entries\n" +
			"until the cache fits --max-size. With no bounds the server runs its\n" +
			"threshold-driven automatic cleanup.",
		RunE: func(cmd *cobra.Command, args []string) error {
			var req api.CleanupRequest
			if cmd.Flags().Changed("max-age") {
				if maxAge < 0 {
					return fmt.Errorf("--max-age must not be negative")
				}
				seconds := int64(maxAge / time.Second)
				req.MaxAgeSeconds = &seconds
			}
			if cmd.Flags().Changed("max-size") {
				if maxSize < 0 {
					return fmt.Errorf("--max-size must not be negative")
				}
				req.MaxSize = &maxSize
			}

			return withClient(cfg, func(client *api.Client) error {
				resp, err := client.CacheCleanup(cmd.Context(), req)
				if err != nil {
					return err
				}
				return writeCleanupResult(resp)
			})
		},
	}

	cmd.Flags().DurationVar(&maxAge, "max-age", 0, "evict entries older than this, e.g. 72h")
	cmd.Flags().Int64Var(&maxSize, "max-size", 0, "evict coldest entries until total bytes fit this bound")
	return cmd
}

func newCacheClearCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every cache entry",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				resp, err := client.CacheClear(cmd.Context())
				if err != nil {
					return err
				}
				return writeCleanupResult(resp)
			})
		},
	}
}
