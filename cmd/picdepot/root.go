package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"picdepot/internal/config"
	"picdepot/internal/format"
)

func newRootCmd(cfg *config.Config) *cobra.Command {
	var structured bool
	var output string
	var logLevel string

	cmd := &cobra.Command{
		Use:   "picdepot",
		Short: "Picdepot is a content-addressed image store with quotas and a derived-artifact cache",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			formatter, err := format.ByName(output)
			if err != nil {
				return err
			}
			outputFormatter = formatter
			if output == "yaml" || output == "yml" {
				structured = true
			}

			warning, err := configureLoggerForCLI(logLevel, cfg.LogLevel)
			if err != nil {
				return err
			}
			if warning != "" {
				fmt.Fprintln(cmd.ErrOrStderr(), warning)
			}
			return nil
		},
	}

	cmd.Version = version
	cmd.PersistentFlags().BoolVar(&structured, "json", false, "output structured data instead of plain text")
	cmd.PersistentFlags().StringVarP(&output, "output", "o", "json", "structured output encoding (json or yaml)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")

	cmd.AddCommand(
		newSrvCmd(cfg),
		newUploadCmd(cfg, &structured),
		newShowCmd(cfg, &structured),
		newGetCmd(cfg),
		newLsCmd(cfg, &structured),
		newRmCmd(cfg),
		newVariantCmd(cfg),
		newStatsCmd(cfg),
		newCacheCmd(cfg),
		newQuotaCmd(cfg, &structured),
		newAdminCmd(),
		newMigrateCmd(cfg, &structured),
		newConfigCmd(cfg),
		newInfoCmd(cfg, &structured),
	)

	return cmd
}
