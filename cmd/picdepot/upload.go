package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"picdepot/internal/api"
	"picdepot/internal/config"
)

func newUploadCmd(cfg *config.Config, structured *bool) *cobra.Command {
	var owner int64

	cmd := &cobra.Command{
		Use:   "upload <file> [<file>...]",
		Short: "Upload image files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				var responses []api.UploadResponse
				for _, path := range args {
					f, err := os.Open(path)
					if err != nil {
						return err
					}
					resp, err := client.Upload(cmd.Context(), filepath.Base(path), f, owner)
					f.Close()
					if err != nil {
						return fmt.Errorf("upload %s: %w", path, err)
					}
					responses = append(responses, resp)
				}

				if *structured {
					if len(responses) == 1 {
						return writeStructured(responses[0])
					}
					return writeStructured(responses)
				}

				for _, resp := range responses {
					verb := "stored"
					if !resp.Created {
						verb = "deduplicated to"
					}
					if err := writePlain("%s %s (%s)\n", verb, resp.Object.Hash, formatBytes(resp.Object.Size)); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}

	cmd.Flags().Int64Var(&owner, "owner", 0, "tenant that owns the upload (0 means anonymous)")
	return cmd
}
