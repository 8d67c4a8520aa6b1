package main

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"picdepot/internal/api"
	"picdepot/internal/config"
)

func newGetCmd(cfg *config.Config) *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "get <hash>",
		Short: "Download an object's content",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				w, closeFn, err := openOutput(outPath)
				if err != nil {
					return err
				}
				defer closeFn()
				return client.DownloadContent(cmd.Context(), args[0], w)
			})
		},
	}

	cmd.Flags().StringVarP(&outPath, "out", "f", "", "write content to a file instead of stdout")
	return cmd
}

func newVariantCmd(cfg *config.Config) *cobra.Command {
	var outPath string
	var transformKey string

	cmd := &cobra.Command{
		Use:   "variant <hash>",
		Short: "Download a derived variant, such as a thumbnail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				w, closeFn, err := openOutput(outPath)
				if err != nil {
					return err
				}
				defer closeFn()
				return client.DownloadVariant(cmd.Context(), args[0], transformKey, w)
			})
		},
	}

	cmd.Flags().StringVarP(&transformKey, "transform", "t", "", "transform parameters, e.g. w=128 or w=128,h=64")
	cmd.Flags().StringVarP(&outPath, "out", "f", "", "write content to a file instead of stdout")
	_ = cmd.MarkFlagRequired("transform")
	return cmd
}

func openOutput(path string) (io.Writer, func(), error) {
	if path == "" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { f.Close() }, nil
}
