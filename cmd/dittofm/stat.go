package main

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/marmos91/dittofm/pkg/client"
)

func statCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stat <url>",
		Short: "Print the file type the server reports for a URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			fetcher := client.NewFetcher(http.DefaultClient, cfg.Client.RetryPolicy())
			kind, err := fetcher.Stat(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), kind)
			return nil
		},
	}
}
