package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"picdepot/internal/blobstore"
	"picdepot/internal/config"
	"picdepot/internal/server"
	"picdepot/internal/store"
	"picdepot/internal/transform"
)

func newSrvCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "srv",
		Short: "Run the picdepot API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg == nil {
				return fmt.Errorf("config not initialized")
			}
			if cfg.DBPath == "" {
				return fmt.Errorf("db path is required")
			}
			if cfg.DataDir == "" {
				return fmt.Errorf("data dir is required")
			}

			server.Version = version
			logger := slog.Default().With("component", "server")

			addr, err := server.ListenAddr(cfg.APIURL)
			if err != nil {
				return err
			}

			logger.Info("opening database", "path", cfg.DBPath)
			st, err := store.Open(cfg.DBPath)
			if err != nil {
				return err
			}
			defer st.Close()

			bs, err := blobstore.NewShardedDir(cfg.DataDir)
			if err != nil {
				return err
			}

			srv := server.New(addr, st, bs, server.Options{
				MaxUploadBytes: cfg.Upload.MaxUploadBytes,
				Eviction: server.EvictionConfig{
					CapacityBytes: cfg.Cache.CapacityBytes,
					TriggerRatio:  cfg.Cache.TriggerRatio,
					TargetRatio:   cfg.Cache.TargetRatio,
					DecayFactor:   cfg.Cache.DecayFactor,
					InitialHeat:   cfg.Cache.InitialHeat,
					HitBoost:      cfg.Cache.HitBoost,
				},
				AdminTokenHash: cfg.AdminTokenHash,
				Transform:      transform.Resize,
				Logger:         logger,
			})
			return srv.ListenAndServe()
		},
	}
}
